package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// InteractionLog is an immutable audit record of one processed USSD request,
// success or failure. Entries are appended once and never mutated.
type InteractionLog struct {
	ID             uuid.UUID      `json:"id"`
	SubscriberID   uuid.UUID      `json:"subscriber_id"`
	SessionID      uuid.UUID      `json:"session_id"` // internal session row id, not the aggregator identifier
	InputText      string         `json:"input_text"`
	ResponseText   string         `json:"response_text"`
	MenuLevel      string         `json:"menu_level"`
	ResponseTimeMs int64          `json:"response_time_ms"`
	IsError        bool           `json:"is_error"`
	ErrorMessage   sql.NullString `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
