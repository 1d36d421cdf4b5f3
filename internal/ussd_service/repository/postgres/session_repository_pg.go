package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

const sessionColumns = `id, session_id, subscriber_id, service_code, current_menu, session_data,
	       started_at, last_activity, ended_at, is_active`

type PgSessionRepository struct {
	db     PgxIface
	logger *slog.Logger
}

func NewPgSessionRepository(db PgxIface, logger *slog.Logger) domain.SessionRepository {
	return &PgSessionRepository{db: db, logger: logger.With("component", "session_repository_pg")}
}

func (r *PgSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM ussd_sessions
		WHERE session_id = $1
	`
	session, err := scanSession(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error fetching session", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("fetching session by session_id: %w", err)
	}
	return session, nil
}

func (r *PgSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO ussd_sessions (id, session_id, subscriber_id, service_code, current_menu, session_data,
		                           started_at, last_activity, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		session.ID,
		session.SessionID,
		session.SubscriberID,
		session.ServiceCode,
		session.CurrentMenu,
		session.Data,
		session.StartedAt,
		session.LastActivity,
		session.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSession
		}
		r.logger.ErrorContext(ctx, "Error inserting session", "session_id", session.SessionID, "error", err)
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *PgSessionRepository) TouchActivity(ctx context.Context, session *domain.Session, at time.Time) error {
	query := `UPDATE ussd_sessions SET last_activity = $2 WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, session.ID, at); err != nil {
		r.logger.ErrorContext(ctx, "Error refreshing session activity", "session_id", session.SessionID, "error", err)
		return fmt.Errorf("refreshing session activity: %w", err)
	}
	session.LastActivity = at
	return nil
}

func (r *PgSessionRepository) SaveProgress(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE ussd_sessions
		SET current_menu = $2, session_data = $3, last_activity = $4
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, session.ID, session.CurrentMenu, session.Data, session.LastActivity)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error saving session progress", "session_id", session.SessionID, "error", err)
		return fmt.Errorf("saving session progress: %w", err)
	}
	return nil
}

func (r *PgSessionRepository) Close(ctx context.Context, session *domain.Session) error {
	// The is_active guard makes closing an already-closed session a no-op.
	query := `
		UPDATE ussd_sessions
		SET is_active = FALSE, ended_at = $2, last_activity = $2
		WHERE id = $1 AND is_active = TRUE
	`
	if _, err := r.db.Exec(ctx, query, session.ID, session.EndedAt.Time); err != nil {
		r.logger.ErrorContext(ctx, "Error closing session", "session_id", session.SessionID, "error", err)
		return fmt.Errorf("closing session: %w", err)
	}
	return nil
}

func (r *PgSessionRepository) ListActive(ctx context.Context) ([]domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM ussd_sessions
		WHERE is_active = TRUE
		ORDER BY last_activity DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning active session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating active sessions: %w", err)
	}
	return sessions, nil
}

func (r *PgSessionRepository) CountSessions(ctx context.Context) (int64, int64, error) {
	query := `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM ussd_sessions`
	var total, active int64
	if err := r.db.QueryRow(ctx, query).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("counting sessions: %w", err)
	}
	return total, active, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.SubscriberID,
		&session.ServiceCode,
		&session.CurrentMenu,
		&session.Data,
		&session.StartedAt,
		&session.LastActivity,
		&session.EndedAt,
		&session.IsActive,
	)
	if err != nil {
		return nil, err
	}
	if session.Data == nil {
		session.Data = domain.SessionData{}
	}
	return &session, nil
}
