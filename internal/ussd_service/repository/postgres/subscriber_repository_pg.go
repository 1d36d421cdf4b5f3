package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

type PgSubscriberRepository struct {
	db     PgxIface
	logger *slog.Logger
}

func NewPgSubscriberRepository(db PgxIface, logger *slog.Logger) domain.SubscriberRepository {
	return &PgSubscriberRepository{db: db, logger: logger.With("component", "subscriber_repository_pg")}
}

func (r *PgSubscriberRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.Subscriber, error) {
	query := `
		SELECT id, phone_number, first_name, last_name, registered_at, last_activity, is_active
		FROM subscribers
		WHERE phone_number = $1
	`
	var sub domain.Subscriber
	err := r.db.QueryRow(ctx, query, phoneNumber).Scan(
		&sub.ID,
		&sub.PhoneNumber,
		&sub.FirstName,
		&sub.LastName,
		&sub.RegisteredAt,
		&sub.LastActivity,
		&sub.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error fetching subscriber", "phone_number", phoneNumber, "error", err)
		return nil, fmt.Errorf("fetching subscriber by phone number: %w", err)
	}
	return &sub, nil
}

func (r *PgSubscriberRepository) Create(ctx context.Context, subscriber *domain.Subscriber) error {
	query := `
		INSERT INTO subscribers (id, phone_number, first_name, last_name, registered_at, last_activity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		subscriber.ID,
		subscriber.PhoneNumber,
		subscriber.FirstName,
		subscriber.LastName,
		subscriber.RegisteredAt,
		subscriber.LastActivity,
		subscriber.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSubscriber
		}
		r.logger.ErrorContext(ctx, "Error inserting subscriber", "subscriber_id", subscriber.ID, "error", err)
		return fmt.Errorf("inserting subscriber: %w", err)
	}
	return nil
}
