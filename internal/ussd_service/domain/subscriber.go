package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Subscriber is a mobile subscriber identified by phone number. Subscribers
// are created lazily on first contact and never deleted.
type Subscriber struct {
	ID           uuid.UUID      `json:"id"`
	PhoneNumber  string         `json:"phone_number"`
	FirstName    sql.NullString `json:"first_name,omitempty"`
	LastName     sql.NullString `json:"last_name,omitempty"`
	RegisteredAt time.Time      `json:"registered_at"`
	LastActivity time.Time      `json:"last_activity"`
	IsActive     bool           `json:"is_active"`
}

// NewSubscriber creates a subscriber record for a phone number seen for the
// first time.
func NewSubscriber(phoneNumber string, now time.Time) *Subscriber {
	return &Subscriber{
		ID:           uuid.New(),
		PhoneNumber:  phoneNumber,
		RegisteredAt: now,
		LastActivity: now,
		IsActive:     true,
	}
}
