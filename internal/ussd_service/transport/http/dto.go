package http

import (
	"time"

	"github.com/google/uuid"
)

// UssdCallbackRequest is the aggregator callback payload. Text must be
// present but may be empty: an empty text marks the initial request of a
// dialogue.
type UssdCallbackRequest struct {
	SessionID   string  `json:"sessionId" validate:"required"`
	PhoneNumber string  `json:"phoneNumber" validate:"required"`
	Text        *string `json:"text" validate:"required"`
	ServiceCode string  `json:"serviceCode,omitempty"`
}

// SessionSummary is one active session in the admin listing.
type SessionSummary struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"session_id"`
	SubscriberID uuid.UUID `json:"subscriber_id"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	CurrentMenu  string    `json:"current_menu"`
}

type ActiveSessionsResponse struct {
	Total    int              `json:"total"`
	Sessions []SessionSummary `json:"sessions"`
}

// InteractionLogEntry is one audit record in the admin listing.
type InteractionLogEntry struct {
	ID             uuid.UUID `json:"id"`
	SubscriberID   uuid.UUID `json:"subscriber_id"`
	SessionID      uuid.UUID `json:"session_id"`
	InputText      string    `json:"input_text"`
	ResponseText   string    `json:"response_text"`
	MenuLevel      string    `json:"menu_level"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	IsError        bool      `json:"is_error"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type RecentLogsResponse struct {
	Total int                   `json:"total"`
	Logs  []InteractionLogEntry `json:"logs"`
}
