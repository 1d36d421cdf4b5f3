package domain

import (
	"context"
	"time"
)

// SubscriberRepository persists subscribers.
type SubscriberRepository interface {
	// GetByPhoneNumber returns (nil, nil) when no subscriber exists.
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*Subscriber, error)

	// Create inserts a new subscriber. Returns ErrDuplicateSubscriber when
	// the phone number is already registered.
	Create(ctx context.Context, subscriber *Subscriber) error
}

// SessionRepository persists USSD sessions. The session_id uniqueness
// constraint lives at this layer; concurrent creates for the same identifier
// must surface ErrDuplicateSession so callers can fall back to a fetch.
type SessionRepository interface {
	// GetBySessionID returns (nil, nil) when no session exists for the
	// aggregator identifier.
	GetBySessionID(ctx context.Context, sessionID string) (*Session, error)

	// Create inserts a new session. Returns ErrDuplicateSession when the
	// aggregator identifier is already taken.
	Create(ctx context.Context, session *Session) error

	// TouchActivity refreshes last_activity without altering current_menu
	// or session_data.
	TouchActivity(ctx context.Context, session *Session, at time.Time) error

	// SaveProgress persists current_menu, session_data and last_activity.
	SaveProgress(ctx context.Context, session *Session) error

	// Close marks the session inactive and stamps ended_at. Closing an
	// already-closed session is a no-op that still succeeds.
	Close(ctx context.Context, session *Session) error

	ListActive(ctx context.Context) ([]Session, error)

	// CountSessions returns total and currently-active session counts.
	CountSessions(ctx context.Context) (total int64, active int64, err error)
}

// InteractionLogRepository appends and reads interaction audit records.
type InteractionLogRepository interface {
	// Append inserts a log entry. Pure insert, no read-modify-write.
	Append(ctx context.Context, entry *InteractionLog) error

	ListRecent(ctx context.Context, limit int) ([]InteractionLog, error)

	// UsageCounters returns total interactions, error count and average
	// response latency in milliseconds.
	UsageCounters(ctx context.Context) (total int64, errorCount int64, avgResponseMs float64, err error)
}

// CatalogRepository persists the service catalog and menu-branch outcomes.
type CatalogRepository interface {
	// GetServiceByName returns (nil, nil) when the catalog has no active
	// service with that name.
	GetServiceByName(ctx context.Context, name string) (*Service, error)

	CreateSubscription(ctx context.Context, subscription *ServiceSubscription) error

	CreateSurveyResponse(ctx context.Context, response *SurveyResponse) error
}
