package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SessionData is the free-form per-session state carried between menu steps.
// Values are either literal strings or RFC3339 timestamps.
type SessionData map[string]string

// Merge returns a copy of d with patch applied on top. Patch keys win on
// conflict, all other keys are preserved; neither input is mutated.
func (d SessionData) Merge(patch SessionData) SessionData {
	merged := make(SessionData, len(d)+len(patch))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

// Session is one continuous USSD dialogue, keyed by the aggregator-supplied
// session identifier. Exactly one row exists per identifier.
type Session struct {
	ID           uuid.UUID      `json:"id"`
	SessionID    string         `json:"session_id"`
	SubscriberID uuid.UUID      `json:"subscriber_id"`
	ServiceCode  sql.NullString `json:"service_code,omitempty"`
	CurrentMenu  string         `json:"current_menu"`
	Data         SessionData    `json:"session_data"`
	StartedAt    time.Time      `json:"started_at"`
	LastActivity time.Time      `json:"last_activity"`
	EndedAt      sql.NullTime   `json:"ended_at,omitempty"`
	IsActive     bool           `json:"is_active"`
}

// NewSession creates a fresh active session positioned at the main menu.
func NewSession(sessionID string, subscriberID uuid.UUID, serviceCode string, now time.Time) *Session {
	s := &Session{
		ID:           uuid.New(),
		SessionID:    sessionID,
		SubscriberID: subscriberID,
		CurrentMenu:  "main",
		Data:         SessionData{},
		StartedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}
	if serviceCode != "" {
		s.ServiceCode = sql.NullString{String: serviceCode, Valid: true}
	}
	return s
}
