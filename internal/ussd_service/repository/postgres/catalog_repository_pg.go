package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

type PgCatalogRepository struct {
	db     PgxIface
	logger *slog.Logger
}

func NewPgCatalogRepository(db PgxIface, logger *slog.Logger) domain.CatalogRepository {
	return &PgCatalogRepository{db: db, logger: logger.With("component", "catalog_repository_pg")}
}

func (r *PgCatalogRepository) GetServiceByName(ctx context.Context, name string) (*domain.Service, error) {
	query := `
		SELECT id, code, name, description, is_active, created_at, updated_at
		FROM ussd_services
		WHERE name = $1 AND is_active = TRUE
	`
	var svc domain.Service
	err := r.db.QueryRow(ctx, query, name).Scan(
		&svc.ID,
		&svc.Code,
		&svc.Name,
		&svc.Description,
		&svc.IsActive,
		&svc.CreatedAt,
		&svc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error fetching service", "name", name, "error", err)
		return nil, fmt.Errorf("fetching service by name: %w", err)
	}
	return &svc, nil
}

func (r *PgCatalogRepository) CreateSubscription(ctx context.Context, subscription *domain.ServiceSubscription) error {
	query := `
		INSERT INTO service_subscriptions (id, subscriber_id, service_id, subscribed_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		subscription.ID,
		subscription.SubscriberID,
		subscription.ServiceID,
		subscription.SubscribedAt,
		subscription.ExpiresAt,
		subscription.IsActive,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting service subscription", "subscription_id", subscription.ID, "error", err)
		return fmt.Errorf("inserting service subscription: %w", err)
	}
	return nil
}

func (r *PgCatalogRepository) CreateSurveyResponse(ctx context.Context, response *domain.SurveyResponse) error {
	query := `
		INSERT INTO survey_responses (id, subscriber_id, survey_id, question_id, response_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		response.ID,
		response.SubscriberID,
		response.SurveyID,
		response.QuestionID,
		response.ResponseValue,
		response.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting survey response", "response_id", response.ID, "error", err)
		return fmt.Errorf("inserting survey response: %w", err)
	}
	return nil
}
