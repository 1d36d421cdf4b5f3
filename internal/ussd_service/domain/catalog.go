package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Service is an entry in the USSD service catalog.
type Service struct {
	ID          uuid.UUID      `json:"id"`
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description sql.NullString `json:"description,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ServiceSubscription links a subscriber to a catalog service.
type ServiceSubscription struct {
	ID           uuid.UUID    `json:"id"`
	SubscriberID uuid.UUID    `json:"subscriber_id"`
	ServiceID    uuid.UUID    `json:"service_id"`
	SubscribedAt time.Time    `json:"subscribed_at"`
	ExpiresAt    sql.NullTime `json:"expires_at,omitempty"`
	IsActive     bool         `json:"is_active"`
}

// SurveyResponse is one recorded answer to the satisfaction survey.
type SurveyResponse struct {
	ID            uuid.UUID `json:"id"`
	SubscriberID  uuid.UUID `json:"subscriber_id"`
	SurveyID      string    `json:"survey_id"`
	QuestionID    string    `json:"question_id"`
	ResponseValue string    `json:"response_value"`
	CreatedAt     time.Time `json:"created_at"`
}
