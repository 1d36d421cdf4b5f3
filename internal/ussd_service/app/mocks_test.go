package app

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) TouchActivity(ctx context.Context, session *domain.Session, at time.Time) error {
	args := m.Called(ctx, session, at)
	return args.Error(0)
}

func (m *MockSessionRepository) SaveProgress(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) Close(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) ListActive(ctx context.Context) ([]domain.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Session), args.Error(1)
}

func (m *MockSessionRepository) CountSessions(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type MockSubscriberRepository struct {
	mock.Mock
}

func (m *MockSubscriberRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.Subscriber, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Subscriber), args.Error(1)
}

func (m *MockSubscriberRepository) Create(ctx context.Context, subscriber *domain.Subscriber) error {
	args := m.Called(ctx, subscriber)
	return args.Error(0)
}

type MockInteractionLogRepository struct {
	mock.Mock
}

func (m *MockInteractionLogRepository) Append(ctx context.Context, entry *domain.InteractionLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockInteractionLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.InteractionLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InteractionLog), args.Error(1)
}

func (m *MockInteractionLogRepository) UsageCounters(ctx context.Context) (int64, int64, float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Get(2).(float64), args.Error(3)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetServiceByName(ctx context.Context, name string) (*domain.Service, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Service), args.Error(1)
}

func (m *MockCatalogRepository) CreateSubscription(ctx context.Context, subscription *domain.ServiceSubscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockCatalogRepository) CreateSurveyResponse(ctx context.Context, response *domain.SurveyResponse) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}
