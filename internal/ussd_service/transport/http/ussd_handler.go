package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/sahelcom/ussd-gateway/internal/ussd_service/app"
	"github.com/sahelcom/ussd-gateway/internal/ussd_service/domain"
)

const defaultLogLimit = 100

// UssdProcessor is the application surface the handler drives.
type UssdProcessor interface {
	HandleRequest(ctx context.Context, req app.UssdRequest) string
	ListActiveSessions(ctx context.Context) ([]domain.Session, error)
	RecentLogs(ctx context.Context, limit int) ([]domain.InteractionLog, error)
	GetUsageStats(ctx context.Context) (*app.UsageStats, error)
}

type UssdHandler struct {
	svc      UssdProcessor
	logger   *slog.Logger
	validate *validator.Validate
}

func NewUssdHandler(svc UssdProcessor, logger *slog.Logger, validate *validator.Validate) *UssdHandler {
	return &UssdHandler{
		svc:      svc,
		logger:   logger.With("handler", "ussd"),
		validate: validate,
	}
}

// RegisterAdminRoutes mounts the read-only admin endpoints.
func (h *UssdHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/sessions", h.HandleListSessions)
	r.Get("/logs", h.HandleRecentLogs)
	r.Get("/stats", h.HandleUsageStats)
}

// HandleCallback processes the aggregator USSD callback. Once past the
// security middleware the response is always HTTP 200 with a plain-text body
// starting with "CON " or "END ".
func (h *UssdHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	var req UssdCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Failed to decode USSD callback JSON", "error", err)
		http.Error(w, "Invalid JSON format: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, req); err != nil {
		logger.WarnContext(ctx, "Failed to validate USSD callback", "error", err)
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	logger.InfoContext(ctx, "USSD request received",
		"session_id", req.SessionID, "phone_number", req.PhoneNumber, "text", *req.Text)

	responseText := h.svc.HandleRequest(ctx, app.UssdRequest{
		SessionID:   req.SessionID,
		PhoneNumber: req.PhoneNumber,
		Text:        *req.Text,
		ServiceCode: req.ServiceCode,
	})

	logger.InfoContext(ctx, "USSD response sent", "session_id", req.SessionID, "response", responseText)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(responseText))
}

// HandleListSessions returns the currently active sessions.
func (h *UssdHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.svc.ListActiveSessions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list active sessions", "error", err)
		http.Error(w, "Failed to list active sessions", http.StatusInternalServerError)
		return
	}

	resp := ActiveSessionsResponse{
		Total:    len(sessions),
		Sessions: make([]SessionSummary, 0, len(sessions)),
	}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, SessionSummary{
			ID:           s.ID,
			SessionID:    s.SessionID,
			SubscriberID: s.SubscriberID,
			StartedAt:    s.StartedAt,
			LastActivity: s.LastActivity,
			CurrentMenu:  s.CurrentMenu,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleRecentLogs returns the most recent interaction log entries. The
// limit query parameter defaults to 100.
func (h *UssdHandler) HandleRecentLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.svc.RecentLogs(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list recent logs", "error", err)
		http.Error(w, "Failed to list recent logs", http.StatusInternalServerError)
		return
	}

	resp := RecentLogsResponse{
		Total: len(entries),
		Logs:  make([]InteractionLogEntry, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Logs = append(resp.Logs, InteractionLogEntry{
			ID:             e.ID,
			SubscriberID:   e.SubscriberID,
			SessionID:      e.SessionID,
			InputText:      e.InputText,
			ResponseText:   e.ResponseText,
			MenuLevel:      e.MenuLevel,
			ResponseTimeMs: e.ResponseTimeMs,
			IsError:        e.IsError,
			ErrorMessage:   e.ErrorMessage.String,
			CreatedAt:      e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleUsageStats returns aggregate usage statistics.
func (h *UssdHandler) HandleUsageStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.svc.GetUsageStats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to compute usage stats", "error", err)
		http.Error(w, "Failed to compute usage stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
