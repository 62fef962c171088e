package payrollhandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"truckbooks/internal/domain/audit"
	"truckbooks/internal/domain/auth"
	"truckbooks/internal/domain/fleet"
	"truckbooks/internal/domain/payroll"
	"truckbooks/internal/transport/http/api"
	"truckbooks/internal/transport/http/middleware"
	"truckbooks/internal/transport/http/shared"
)

const generateEndpoint = "statements.generate"

type StatementService interface {
	GenerateStatement(ctx context.Context, req payroll.GenerateRequest) (payroll.PayStatement, error)
	GetStatement(ctx context.Context, statementID string) (payroll.PayStatement, error)
	ListStatements(ctx context.Context, filter payroll.StatementFilter) ([]payroll.PayStatement, int, error)
	UpdateStatus(ctx context.Context, statementID, status string) (payroll.PayStatement, string, error)
	UpdateNotes(ctx context.Context, statementID, notes string) (payroll.PayStatement, error)
	Document(ctx context.Context, statementID string) ([]byte, error)
}

type Handler struct {
	Statements  StatementService
	Audit       audit.Recorder
	Idempotency middleware.IdempotencyBackend
	Perms       middleware.PermissionStore
}

func NewHandler(statements StatementService, recorder audit.Recorder, idempotency middleware.IdempotencyBackend, perms middleware.PermissionStore) *Handler {
	return &Handler{Statements: statements, Audit: recorder, Idempotency: idempotency, Perms: perms}
}

type deductionPayload struct {
	Type        string       `json:"type"`
	Description string       `json:"description"`
	Amount      fleet.Number `json:"amount"`
}

type generatePayload struct {
	DriverID             string             `json:"driverId"`
	PeriodStart          string             `json:"periodStart"`
	PeriodEnd            string             `json:"periodEnd"`
	AdditionalDeductions []deductionPayload `json:"additionalDeductions"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type notesPayload struct {
	Notes string `json:"notes"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/statements", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermStatementsRead, h.Perms)).Get("/", h.handleList)
		r.With(
			middleware.RequirePermission(auth.PermStatementsWrite, h.Perms),
			middleware.Idempotent(generateEndpoint, h.Idempotency),
		).Post("/", h.handleGenerate)
		r.With(middleware.RequirePermission(auth.PermStatementsExport, h.Perms)).Get("/export.csv", h.handleExportCSV)
		r.With(middleware.RequirePermission(auth.PermStatementsExport, h.Perms)).Get("/export.xlsx", h.handleExportXLSX)
		r.With(middleware.RequirePermission(auth.PermStatementsRead, h.Perms)).Get("/{statementID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermStatementsApprove, h.Perms)).Post("/{statementID}/status", h.handleStatus)
		r.With(middleware.RequirePermission(auth.PermStatementsWrite, h.Perms)).Put("/{statementID}/notes", h.handleNotes)
		r.With(middleware.RequirePermission(auth.PermStatementsRead, h.Perms)).Get("/{statementID}/document", h.handleDocument)
	})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload generatePayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	v := shared.NewValidator()
	v.Required("driverId", payload.DriverID, "is required")
	start, startOK := v.Date("periodStart", payload.PeriodStart)
	end, endOK := v.Date("periodEnd", payload.PeriodEnd)
	if startOK && endOK {
		v.DateOrder("periodStart", start, "periodEnd", end)
	}
	extras := make([]payroll.Deduction, 0, len(payload.AdditionalDeductions))
	for _, d := range payload.AdditionalDeductions {
		v.Enum("additionalDeductions.type", d.Type, payroll.DeductionTypes, "unsupported deduction type")
		v.NonNegative("additionalDeductions.amount", d.Amount.Float())
		extras = append(extras, payroll.Deduction{
			Type:        strings.ToLower(strings.TrimSpace(d.Type)),
			Description: strings.TrimSpace(d.Description),
			Amount:      d.Amount.Float(),
		})
	}
	if v.Reject(w, requestID) {
		return
	}

	statement, err := h.Statements.GenerateStatement(r.Context(), payroll.GenerateRequest{
		DriverID:             payload.DriverID,
		PeriodStart:          start,
		PeriodEnd:            end,
		AdditionalDeductions: extras,
	})
	if err != nil {
		h.fail(w, r, err, "statement_generate_failed", "failed to generate statement")
		return
	}

	h.record(r, user.UserID, audit.ActionStatementGenerate, statement.ID, nil, statement)

	api.Created(w, statement, requestID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	filter, ok := parseFilter(w, r, requestID)
	if !ok {
		return
	}
	if user.Role == auth.RoleDriver {
		if user.DriverID == "" {
			api.Fail(w, http.StatusForbidden, "forbidden", "no driver profile linked to this account", requestID)
			return
		}
		filter.DriverID = user.DriverID
	}
	page := shared.ParsePage(r, 50, 200)
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	statements, total, err := h.Statements.ListStatements(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "statements_list_failed", "failed to list statements")
		return
	}
	if statements == nil {
		statements = []payroll.PayStatement{}
	}
	shared.WriteList(w, statements, page, total, requestID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	statement, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	api.Success(w, statement, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload statusPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(payload.Status))
	v := shared.NewValidator()
	v.Required("status", status, "is required")
	v.Enum("status", status, payroll.Statuses, "must be one of draft, approved, paid, void")
	if v.Reject(w, requestID) {
		return
	}

	statementID := chi.URLParam(r, "statementID")
	statement, previous, err := h.Statements.UpdateStatus(r.Context(), statementID, status)
	if err != nil {
		h.fail(w, r, err, "statement_status_failed", "failed to update statement status")
		return
	}

	h.record(r, user.UserID, audit.ActionStatementStatus, statementID,
		map[string]string{"status": previous}, map[string]string{"status": statement.Status})
	api.Success(w, statement, requestID)
}

func (h *Handler) handleNotes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	var payload notesPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	if len(payload.Notes) > 4000 {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "notes", Reason: "must be at most 4000 characters"}})
		return
	}

	statementID := chi.URLParam(r, "statementID")
	statement, err := h.Statements.UpdateNotes(r.Context(), statementID, payload.Notes)
	if err != nil {
		h.fail(w, r, err, "statement_notes_failed", "failed to update statement notes")
		return
	}

	h.record(r, user.UserID, audit.ActionStatementNotes, statementID, nil, payload)
	api.Success(w, statement, requestID)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	statement, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	user, _ := middleware.GetUser(r.Context())

	data, err := h.Statements.Document(r.Context(), statement.ID)
	if err != nil {
		h.fail(w, r, err, "statement_document_failed", "failed to load statement document")
		return
	}

	h.record(r, user.UserID, audit.ActionStatementDocument, statement.ID, nil, nil)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=statement-"+statement.ID+".pdf")
	http.ServeContent(w, r, "statement.pdf", statement.UpdatedAt, bytes.NewReader(data))
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv", payroll.WriteRegisterCSV)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payroll.WriteRegisterXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(io.Writer, []payroll.PayStatement) error) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	filter, ok := parseFilter(w, r, requestID)
	if !ok {
		return
	}
	statements, _, err := h.Statements.ListStatements(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err, "export_failed", "failed to export statements")
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, statements); err != nil {
		slog.Error("statement export failed", "format", ext, "err", err)
		api.Fail(w, http.StatusInternalServerError, "export_failed", "failed to export statements", requestID)
		return
	}

	h.record(r, user.UserID, audit.ActionStatementExport, "", nil, map[string]any{"format": ext, "count": len(statements)})
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=pay-statements."+ext)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("export %s write failed: %v", ext, err)
	}
}

// loadVisible fetches the statement named in the URL. Drivers may only see
// their own statements.
func (h *Handler) loadVisible(w http.ResponseWriter, r *http.Request) (payroll.PayStatement, bool) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return payroll.PayStatement{}, false
	}

	statement, err := h.Statements.GetStatement(r.Context(), chi.URLParam(r, "statementID"))
	if err != nil {
		h.fail(w, r, err, "statement_get_failed", "failed to load statement")
		return payroll.PayStatement{}, false
	}
	if user.Role == auth.RoleDriver && (user.DriverID == "" || statement.DriverID != user.DriverID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
		return payroll.PayStatement{}, false
	}
	return statement, true
}

func parseFilter(w http.ResponseWriter, r *http.Request, requestID string) (payroll.StatementFilter, bool) {
	query := r.URL.Query()
	filter := payroll.StatementFilter{
		DriverID: strings.TrimSpace(query.Get("driverId")),
		Status:   strings.ToLower(strings.TrimSpace(query.Get("status"))),
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, payroll.Statuses, "must be one of draft, approved, paid, void")
	v.ID("driverId", filter.DriverID)
	filter.From, filter.To = v.Period(query, "from", "to")
	if v.Reject(w, requestID) {
		return payroll.StatementFilter{}, false
	}
	return filter, true
}

func (h *Handler) record(r *http.Request, actorID, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	entry := audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: audit.EntityStatement,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	}
	if err := h.Audit.Record(r.Context(), entry); err != nil {
		log.Printf("audit %s failed: %v", action, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, payroll.ErrStatementNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "statement not found", requestID)
	case errors.Is(err, fleet.ErrDriverNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "driver not found", requestID)
	case errors.Is(err, payroll.ErrInvalidStatusTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", err.Error(), requestID)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		api.Fail(w, http.StatusServiceUnavailable, "request_cancelled", "request cancelled", requestID)
	default:
		slog.Error(message, "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
