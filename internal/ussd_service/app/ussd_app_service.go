package app

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

// UssdRequest is one inbound aggregator callback.
type UssdRequest struct {
	SessionID   string
	PhoneNumber string
	Text        string
	ServiceCode string
}

// UsageStats aggregates service-wide usage counters for the admin API.
type UsageStats struct {
	TotalSessions     int64   `json:"total_sessions"`
	ActiveSessions    int64   `json:"active_sessions"`
	TotalInteractions int64   `json:"total_interactions"`
	ErrorCount        int64   `json:"error_count"`
	ErrorRate         float64 `json:"error_rate"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// UssdAppService is the per-request orchestrator: it resolves the session,
// drives the menu engine, records side effects, appends the interaction log
// and closes the session on terminal responses. It never propagates a fault
// to the transport; every path returns a valid USSD response string.
type UssdAppService struct {
	sessionMgr *SessionManager
	logs       domain.InteractionLogRepository
	catalog    domain.CatalogRepository
	engine     *MenuEngine
	logger     *slog.Logger
	now        func() time.Time
}

func NewUssdAppService(
	sessionMgr *SessionManager,
	logs domain.InteractionLogRepository,
	catalog domain.CatalogRepository,
	engine *MenuEngine,
	logger *slog.Logger,
) *UssdAppService {
	return &UssdAppService{
		sessionMgr: sessionMgr,
		logs:       logs,
		catalog:    catalog,
		engine:     engine,
		logger:     logger.With("component", "ussd_app_service"),
		now:        time.Now,
	}
}

// HandleRequest processes one USSD callback and returns the response text,
// always prefixed with "CON " or "END ".
func (s *UssdAppService) HandleRequest(ctx context.Context, req UssdRequest) string {
	start := s.now()

	sessionType := "continuation"
	if req.Text == "" {
		sessionType = "initial"
	}
	ussdRequestsTotal.WithLabelValues(sessionType).Inc()

	response, logged, err := s.process(ctx, req, start)
	if err != nil {
		s.logger.ErrorContext(ctx, "USSD request processing failed",
			"session_id", req.SessionID, "phone_number", req.PhoneNumber, "error", err)
		response = s.failSafe(ctx, req, start, err, logged)
	}

	ussdResponseTimeSeconds.Observe(s.now().Sub(start).Seconds())
	return response
}

// process runs the happy path. The returned bool reports whether the
// interaction log entry was already appended, so the failure path never
// records a second entry for the same request.
func (s *UssdAppService) process(ctx context.Context, req UssdRequest, start time.Time) (string, bool, error) {
	session, created, err := s.sessionMgr.GetOrCreate(ctx, req.SessionID, req.PhoneNumber, req.ServiceCode)
	if err != nil {
		return "", false, err
	}

	var decision Decision
	if created || req.Text == "" {
		// Protocol reset: a brand-new session or empty text always shows
		// the main menu, bypassing the engine's level logic.
		decision = Decision{Response: s.engine.MainMenu(), MenuLevel: MenuMain}
	} else {
		decision = s.engine.Decide(session.CurrentMenu, session.Data, req.Text)
	}

	if err := s.recordSideEffects(ctx, session, decision); err != nil {
		return "", false, err
	}

	if err := s.sessionMgr.SaveProgress(ctx, session, decision.MenuLevel, decision.DataPatch); err != nil {
		return "", false, err
	}

	entry := &domain.InteractionLog{
		ID:             uuid.New(),
		SubscriberID:   session.SubscriberID,
		SessionID:      session.ID,
		InputText:      req.Text,
		ResponseText:   decision.Response,
		MenuLevel:      decision.MenuLevel,
		ResponseTimeMs: s.now().Sub(start).Milliseconds(),
		CreatedAt:      s.now(),
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		return "", false, err
	}

	if decision.Terminal() {
		if err := s.sessionMgr.End(ctx, session); err != nil {
			return "", true, err
		}
	}

	return decision.Response, true, nil
}

// recordSideEffects persists the catalog outcomes a decision carries: a
// service subscription or a survey answer.
func (s *UssdAppService) recordSideEffects(ctx context.Context, session *domain.Session, decision Decision) error {
	if decision.SubscribedService != "" {
		service, err := s.catalog.GetServiceByName(ctx, decision.SubscribedService)
		if err != nil {
			return err
		}
		if service == nil {
			// The menu names the service but the catalog row is missing;
			// the subscription still lands in session data.
			s.logger.WarnContext(ctx, "Subscribed service missing from catalog",
				"service_name", decision.SubscribedService)
		} else {
			subscription := &domain.ServiceSubscription{
				ID:           uuid.New(),
				SubscriberID: session.SubscriberID,
				ServiceID:    service.ID,
				SubscribedAt: s.now(),
				IsActive:     true,
			}
			if err := s.catalog.CreateSubscription(ctx, subscription); err != nil {
				return err
			}
		}
	}

	if decision.SurveyAnswer != "" {
		answer := &domain.SurveyResponse{
			ID:            uuid.New(),
			SubscriberID:  session.SubscriberID,
			SurveyID:      SurveyIDSatisfaction,
			QuestionID:    QuestionIDGeneral,
			ResponseValue: decision.SurveyAnswer,
			CreatedAt:     s.now(),
		}
		if err := s.catalog.CreateSurveyResponse(ctx, answer); err != nil {
			return err
		}
	}

	return nil
}

// failSafe is the orchestrator-boundary error path: re-resolve the session
// defensively, record an error interaction unless one was already written,
// close the session, and hand back the generic terminal failure message.
// Secondary failures are swallowed so the caller always gets a valid
// USSD response.
func (s *UssdAppService) failSafe(ctx context.Context, req UssdRequest, start time.Time, cause error, alreadyLogged bool) string {
	session, _, err := s.sessionMgr.GetOrCreate(ctx, req.SessionID, req.PhoneNumber, req.ServiceCode)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to resolve session while handling error",
			"session_id", req.SessionID, "error", err)
		return processingFailedText
	}

	if !alreadyLogged {
		entry := &domain.InteractionLog{
			ID:             uuid.New(),
			SubscriberID:   session.SubscriberID,
			SessionID:      session.ID,
			InputText:      req.Text,
			ResponseText:   processingFailedText,
			MenuLevel:      MenuError,
			ResponseTimeMs: s.now().Sub(start).Milliseconds(),
			IsError:        true,
			ErrorMessage:   sql.NullString{String: cause.Error(), Valid: true},
			CreatedAt:      s.now(),
		}
		if err := s.logs.Append(ctx, entry); err != nil {
			s.logger.ErrorContext(ctx, "Failed to log error interaction",
				"session_id", req.SessionID, "error", err)
		}
	}

	if err := s.sessionMgr.End(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close session after error",
			"session_id", req.SessionID, "error", err)
	}

	return processingFailedText
}

// ListActiveSessions backs the admin sessions endpoint.
func (s *UssdAppService) ListActiveSessions(ctx context.Context) ([]domain.Session, error) {
	return s.sessionMgr.sessions.ListActive(ctx)
}

// RecentLogs backs the admin logs endpoint.
func (s *UssdAppService) RecentLogs(ctx context.Context, limit int) ([]domain.InteractionLog, error) {
	return s.logs.ListRecent(ctx, limit)
}

// GetUsageStats backs the admin stats endpoint.
func (s *UssdAppService) GetUsageStats(ctx context.Context) (*UsageStats, error) {
	total, active, err := s.sessionMgr.sessions.CountSessions(ctx)
	if err != nil {
		return nil, err
	}
	interactions, errorCount, avgMs, err := s.logs.UsageCounters(ctx)
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{
		TotalSessions:     total,
		ActiveSessions:    active,
		TotalInteractions: interactions,
		ErrorCount:        errorCount,
		AvgResponseTimeMs: avgMs,
	}
	if interactions > 0 {
		stats.ErrorRate = float64(errorCount) / float64(interactions)
	}
	return stats, nil
}
