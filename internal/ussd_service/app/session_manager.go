package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

// SessionManager owns the session lifecycle: resolve-or-create keyed by the
// aggregator session identifier, additive data merges, and idempotent close.
type SessionManager struct {
	sessions    domain.SessionRepository
	subscribers domain.SubscriberRepository
	logger      *slog.Logger
	now         func() time.Time
}

func NewSessionManager(sessions domain.SessionRepository, subscribers domain.SubscriberRepository, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions:    sessions,
		subscribers: subscribers,
		logger:      logger.With("component", "session_manager"),
		now:         time.Now,
	}
}

// GetOrCreate resolves the session for an aggregator identifier, creating it
// (and lazily the subscriber) on first contact. An existing session only has
// its last_activity refreshed; current_menu and session_data are untouched.
// The returned bool is true when the session was created by this call.
//
// Two near-simultaneous first-contact requests can race on the insert; the
// loser receives ErrDuplicateSession from the store and falls back to
// fetching the winner's row, behaving exactly like a continuation request.
func (m *SessionManager) GetOrCreate(ctx context.Context, sessionID, phoneNumber, serviceCode string) (*domain.Session, bool, error) {
	session, err := m.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("fetching session %q: %w", sessionID, err)
	}
	if session != nil {
		if err := m.sessions.TouchActivity(ctx, session, m.now()); err != nil {
			return nil, false, fmt.Errorf("refreshing session %q activity: %w", sessionID, err)
		}
		return session, false, nil
	}

	subscriber, err := m.resolveSubscriber(ctx, phoneNumber)
	if err != nil {
		return nil, false, err
	}

	session = domain.NewSession(sessionID, subscriber.ID, serviceCode, m.now())
	if err := m.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, domain.ErrDuplicateSession) {
			m.logger.InfoContext(ctx, "Lost session create race, fetching existing session", "session_id", sessionID)
			existing, fetchErr := m.sessions.GetBySessionID(ctx, sessionID)
			if fetchErr != nil {
				return nil, false, fmt.Errorf("fetching session %q after create conflict: %w", sessionID, fetchErr)
			}
			if existing == nil {
				return nil, false, fmt.Errorf("session %q vanished after create conflict: %w", sessionID, domain.ErrSessionNotFound)
			}
			if err := m.sessions.TouchActivity(ctx, existing, m.now()); err != nil {
				return nil, false, fmt.Errorf("refreshing session %q activity: %w", sessionID, err)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("creating session %q: %w", sessionID, err)
	}

	m.logger.InfoContext(ctx, "Created new session", "session_id", sessionID, "subscriber_id", subscriber.ID)
	return session, true, nil
}

func (m *SessionManager) resolveSubscriber(ctx context.Context, phoneNumber string) (*domain.Subscriber, error) {
	subscriber, err := m.subscribers.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, fmt.Errorf("fetching subscriber: %w", err)
	}
	if subscriber != nil {
		return subscriber, nil
	}

	subscriber = domain.NewSubscriber(phoneNumber, m.now())
	if err := m.subscribers.Create(ctx, subscriber); err != nil {
		if errors.Is(err, domain.ErrDuplicateSubscriber) {
			existing, fetchErr := m.subscribers.GetByPhoneNumber(ctx, phoneNumber)
			if fetchErr != nil || existing == nil {
				return nil, fmt.Errorf("fetching subscriber after create conflict: %w", fetchErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("creating subscriber: %w", err)
	}

	m.logger.InfoContext(ctx, "Registered new subscriber", "subscriber_id", subscriber.ID)
	return subscriber, nil
}

// SaveProgress persists the session's next menu level together with an
// additive session-data patch and a refreshed last_activity.
func (m *SessionManager) SaveProgress(ctx context.Context, session *domain.Session, menuLevel string, patch domain.SessionData) error {
	session.CurrentMenu = menuLevel
	session.Data = session.Data.Merge(patch)
	session.LastActivity = m.now()
	if err := m.sessions.SaveProgress(ctx, session); err != nil {
		return fmt.Errorf("saving session %q progress: %w", session.SessionID, err)
	}
	return nil
}

// End closes a session. Closing an already-closed session succeeds without
// touching the store.
func (m *SessionManager) End(ctx context.Context, session *domain.Session) error {
	if !session.IsActive {
		return nil
	}
	session.IsActive = false
	session.EndedAt.Time = m.now()
	session.EndedAt.Valid = true
	if err := m.sessions.Close(ctx, session); err != nil {
		return fmt.Errorf("closing session %q: %w", session.SessionID, err)
	}
	m.logger.DebugContext(ctx, "Session ended", "session_id", session.SessionID)
	return nil
}
