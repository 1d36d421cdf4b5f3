package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

type PgInteractionLogRepository struct {
	db     PgxIface
	logger *slog.Logger
}

func NewPgInteractionLogRepository(db PgxIface, logger *slog.Logger) domain.InteractionLogRepository {
	return &PgInteractionLogRepository{db: db, logger: logger.With("component", "interaction_log_repository_pg")}
}

func (r *PgInteractionLogRepository) Append(ctx context.Context, entry *domain.InteractionLog) error {
	query := `
		INSERT INTO ussd_interaction_logs (id, subscriber_id, session_id, input_text, response_text,
		                                   menu_level, response_time_ms, is_error, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.SubscriberID,
		entry.SessionID,
		entry.InputText,
		entry.ResponseText,
		entry.MenuLevel,
		entry.ResponseTimeMs,
		entry.IsError,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting interaction log", "log_id", entry.ID, "error", err)
		return fmt.Errorf("inserting interaction log: %w", err)
	}
	return nil
}

func (r *PgInteractionLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.InteractionLog, error) {
	query := `
		SELECT id, subscriber_id, session_id, input_text, response_text,
		       menu_level, response_time_ms, is_error, error_message, created_at
		FROM ussd_interaction_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent interaction logs: %w", err)
	}
	defer rows.Close()

	var entries []domain.InteractionLog
	for rows.Next() {
		var entry domain.InteractionLog
		err := rows.Scan(
			&entry.ID,
			&entry.SubscriberID,
			&entry.SessionID,
			&entry.InputText,
			&entry.ResponseText,
			&entry.MenuLevel,
			&entry.ResponseTimeMs,
			&entry.IsError,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning interaction log: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating interaction logs: %w", err)
	}
	return entries, nil
}

func (r *PgInteractionLogRepository) UsageCounters(ctx context.Context) (int64, int64, float64, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_error),
		       COALESCE(AVG(response_time_ms), 0)
		FROM ussd_interaction_logs
	`
	var total, errorCount int64
	var avgMs float64
	if err := r.db.QueryRow(ctx, query).Scan(&total, &errorCount, &avgMs); err != nil {
		return 0, 0, 0, fmt.Errorf("aggregating interaction log counters: %w", err)
	}
	return total, errorCount, avgMs, nil
}
