package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

func setupSessionManagerTest(t *testing.T) (*SessionManager, *MockSessionRepository, *MockSubscriberRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := new(MockSessionRepository)
	subscribers := new(MockSubscriberRepository)
	mgr := NewSessionManager(sessions, subscribers, logger)
	mgr.now = func() time.Time {
		return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	}
	return mgr, sessions, subscribers
}

func TestSessionManager_GetOrCreate_NewSession(t *testing.T) {
	mgr, sessions, subscribers := setupSessionManagerTest(t)
	ctx := context.Background()

	sessions.On("GetBySessionID", ctx, "AT-123").Return(nil, nil).Once()
	subscribers.On("GetByPhoneNumber", ctx, "+221771234567").Return(nil, nil).Once()
	subscribers.On("Create", ctx, mock.AnythingOfType("*domain.Subscriber")).Return(nil).Once()
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil).Once()

	session, created, err := mgr.GetOrCreate(ctx, "AT-123", "+221771234567", "*123#")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "AT-123", session.SessionID)
	assert.Equal(t, "main", session.CurrentMenu)
	assert.Empty(t, session.Data)
	assert.True(t, session.IsActive)
	assert.Equal(t, "*123#", session.ServiceCode.String)
	sessions.AssertExpectations(t)
	subscribers.AssertExpectations(t)
}

func TestSessionManager_GetOrCreate_ExistingSessionIsUntouched(t *testing.T) {
	mgr, sessions, subscribers := setupSessionManagerTest(t)
	ctx := context.Background()

	existing := &domain.Session{
		SessionID:   "AT-123",
		CurrentMenu: "order_tracking",
		Data:        domain.SessionData{"tracked_order": "A100"},
		IsActive:    true,
	}
	sessions.On("GetBySessionID", ctx, "AT-123").Return(existing, nil).Once()
	sessions.On("TouchActivity", ctx, existing, mock.AnythingOfType("time.Time")).Return(nil).Once()

	session, created, err := mgr.GetOrCreate(ctx, "AT-123", "+221771234567", "")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "order_tracking", session.CurrentMenu, "resolve must not alter current_menu")
	assert.Equal(t, domain.SessionData{"tracked_order": "A100"}, session.Data, "resolve must not alter session_data")
	sessions.AssertExpectations(t)
	subscribers.AssertNotCalled(t, "Create")
}

func TestSessionManager_GetOrCreate_DuplicateCreateRace(t *testing.T) {
	mgr, sessions, subscribers := setupSessionManagerTest(t)
	ctx := context.Background()

	winner := &domain.Session{SessionID: "AT-123", CurrentMenu: "main", IsActive: true}

	sessions.On("GetBySessionID", ctx, "AT-123").Return(nil, nil).Once()
	subscribers.On("GetByPhoneNumber", ctx, "+221771234567").Return(domain.NewSubscriber("+221771234567", time.Now()), nil).Once()
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(domain.ErrDuplicateSession).Once()
	sessions.On("GetBySessionID", ctx, "AT-123").Return(winner, nil).Once()
	sessions.On("TouchActivity", ctx, winner, mock.AnythingOfType("time.Time")).Return(nil).Once()

	session, created, err := mgr.GetOrCreate(ctx, "AT-123", "+221771234567", "")

	require.NoError(t, err)
	assert.False(t, created, "the race loser behaves like a continuation request")
	assert.Same(t, winner, session)
	sessions.AssertExpectations(t)
}

func TestSessionManager_GetOrCreate_DuplicateSubscriberRace(t *testing.T) {
	mgr, sessions, subscribers := setupSessionManagerTest(t)
	ctx := context.Background()

	registered := domain.NewSubscriber("+221771234567", time.Now())

	sessions.On("GetBySessionID", ctx, "AT-9").Return(nil, nil).Once()
	subscribers.On("GetByPhoneNumber", ctx, "+221771234567").Return(nil, nil).Once()
	subscribers.On("Create", ctx, mock.AnythingOfType("*domain.Subscriber")).Return(domain.ErrDuplicateSubscriber).Once()
	subscribers.On("GetByPhoneNumber", ctx, "+221771234567").Return(registered, nil).Once()
	sessions.On("Create", ctx, mock.AnythingOfType("*domain.Session")).Return(nil).Once()

	session, created, err := mgr.GetOrCreate(ctx, "AT-9", "+221771234567", "")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, registered.ID, session.SubscriberID)
	subscribers.AssertExpectations(t)
}

func TestSessionManager_SaveProgress_MergesAdditively(t *testing.T) {
	mgr, sessions, _ := setupSessionManagerTest(t)
	ctx := context.Background()

	session := &domain.Session{
		SessionID:   "AT-123",
		CurrentMenu: "main",
		Data:        domain.SessionData{"last_balance_check": "2024-01-01T00:00:00Z"},
		IsActive:    true,
	}
	sessions.On("SaveProgress", ctx, session).Return(nil).Once()

	err := mgr.SaveProgress(ctx, session, MenuOrderResult, domain.SessionData{"tracked_order": "A100"})

	require.NoError(t, err)
	assert.Equal(t, MenuOrderResult, session.CurrentMenu)
	assert.Equal(t, "A100", session.Data["tracked_order"])
	assert.Equal(t, "2024-01-01T00:00:00Z", session.Data["last_balance_check"], "existing keys survive the merge")
	sessions.AssertExpectations(t)
}

func TestSessionManager_End(t *testing.T) {
	mgr, sessions, _ := setupSessionManagerTest(t)
	ctx := context.Background()

	t.Run("ActiveSessionIsClosed", func(t *testing.T) {
		session := &domain.Session{SessionID: "AT-123", IsActive: true}
		sessions.On("Close", ctx, session).Return(nil).Once()

		require.NoError(t, mgr.End(ctx, session))
		assert.False(t, session.IsActive)
		assert.True(t, session.EndedAt.Valid)
		sessions.AssertExpectations(t)
	})

	t.Run("ClosingClosedSessionIsNoOp", func(t *testing.T) {
		session := &domain.Session{SessionID: "AT-123", IsActive: false}

		require.NoError(t, mgr.End(ctx, session))
		sessions.AssertNotCalled(t, "Close", ctx, session)
	})
}

func TestSessionManager_GetOrCreate_StoreError(t *testing.T) {
	mgr, sessions, _ := setupSessionManagerTest(t)
	ctx := context.Background()

	dbErr := errors.New("connection refused")
	sessions.On("GetBySessionID", ctx, "AT-123").Return(nil, dbErr).Once()

	_, _, err := mgr.GetOrCreate(ctx, "AT-123", "+221771234567", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
}
