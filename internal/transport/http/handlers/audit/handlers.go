package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"truckbooks/internal/domain/audit"
	"truckbooks/internal/domain/auth"
	"truckbooks/internal/transport/http/api"
	"truckbooks/internal/transport/http/middleware"
	"truckbooks/internal/transport/http/shared"
)

const exportLimit = 10000

type EventReader interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, opts audit.ListOptions) ([]audit.Event, error)
}

type Handler struct {
	Events EventReader
	Perms  middleware.PermissionStore
}

func NewHandler(events EventReader, perms middleware.PermissionStore) *Handler {
	return &Handler{Events: events, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/events/export", h.handleExportEvents)
	})
}

// parseFilter reads the audit query. A date-only "to" covers that whole day.
func parseFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	query := r.URL.Query()
	v := shared.NewValidator()
	filter := audit.Filter{
		Action:     query.Get("action"),
		EntityType: query.Get("entityType"),
		EntityID:   query.Get("entityId"),
		ActorID:    query.Get("actorUserId"),
	}
	v.ID("actorUserId", filter.ActorID)
	filter.From, filter.To = v.Period(query, "from", "to")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return audit.Filter{}, false
	}
	if raw := strings.TrimSpace(query.Get("to")); len(raw) == len(time.DateOnly) && !filter.To.IsZero() {
		filter.To = filter.To.AddDate(0, 0, 1)
	}
	return filter, true
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	page := shared.ParsePage(r, 100, 500)
	opts := audit.ListOptions{
		Details: r.URL.Query().Get("includeDetails") == "true",
		Limit:   page.Limit,
		Offset:  page.Offset,
	}

	total, err := h.Events.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	events, err := h.Events.List(r.Context(), filter, opts)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	shared.WriteList(w, events, page, total, requestID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	events, err := h.Events.List(r.Context(), filter, audit.ListOptions{Limit: exportLimit})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		if err := writer.Write([]string{
			evt.ID, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP,
			evt.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
