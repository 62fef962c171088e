package reportshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"truckbooks/internal/domain/auth"
	"truckbooks/internal/domain/reports"
	"truckbooks/internal/transport/http/api"
	"truckbooks/internal/transport/http/middleware"
	"truckbooks/internal/transport/http/shared"
)

type ReportService interface {
	Fleet(ctx context.Context, from, to time.Time) (reports.FleetDashboard, error)
	Driver(ctx context.Context, driverID, userID string) (reports.DriverDashboard, error)
	JobRuns(ctx context.Context, jobType string, limit, offset int) ([]reports.JobRun, int, error)
}

type JobFunc func(context.Context) (any, error)

// JobRunner runs a job synchronously and records it in job_runs.
type JobRunner interface {
	RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error)
}

type Handler struct {
	Reports ReportService
	Perms   middleware.PermissionStore
	Jobs    JobRunner
	Manual  map[string]JobFunc
}

func NewHandler(service ReportService, perms middleware.PermissionStore) *Handler {
	return &Handler{Reports: service, Perms: perms}
}

// WithManualJobs exposes the given jobs on POST /reports/jobs/{jobType}/run.
func (h *Handler) WithManualJobs(runner JobRunner, manual map[string]JobFunc) *Handler {
	h.Jobs = runner
	h.Manual = manual
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/dashboard/fleet", h.handleFleetDashboard)
		r.With(middleware.RequirePermission(auth.PermStatementsRead, h.Perms)).Get("/dashboard/driver", h.handleDriverDashboard)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/jobs", h.handleJobRuns)
		r.With(middleware.RequirePermission(auth.PermJobsRun, h.Perms)).Post("/jobs/{jobType}/run", h.handleRunJob)
	})
}

func (h *Handler) handleFleetDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	from, to := v.Period(r.URL.Query(), "from", "to")
	if v.Reject(w, requestID) {
		return
	}

	dash, err := h.Reports.Fleet(r.Context(), from, to)
	if err != nil {
		slog.Error("fleet dashboard failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build fleet dashboard", requestID)
		return
	}
	api.Success(w, dash, requestID)
}

func (h *Handler) handleDriverDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	dash, err := h.Reports.Driver(r.Context(), user.DriverID, user.UserID)
	if errors.Is(err, reports.ErrNoDriverProfile) {
		api.Fail(w, http.StatusForbidden, "forbidden", "no driver profile linked to this account", requestID)
		return
	}
	if err != nil {
		slog.Error("driver dashboard failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build driver dashboard", requestID)
		return
	}
	api.Success(w, dash, requestID)
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePage(r, 50, 200)

	runs, total, err := h.Reports.JobRuns(r.Context(), strings.TrimSpace(r.URL.Query().Get("jobType")), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_list_failed", "failed to list job runs", requestID)
		return
	}
	shared.WriteList(w, runs, page, total, requestID)
}

func (h *Handler) handleRunJob(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	jobType := chi.URLParam(r, "jobType")
	run, ok := h.Manual[jobType]
	if !ok || h.Jobs == nil {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown job type", requestID)
		return
	}

	user, _ := middleware.GetUser(r.Context())
	slog.Info("manual job run", "jobType", jobType, "userId", user.UserID)
	details, err := h.Jobs.RunNow(r.Context(), jobType, run)
	if err != nil {
		slog.Error("manual job run failed", "jobType", jobType, "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "job run failed", requestID)
		return
	}
	api.Success(w, map[string]any{"jobType": jobType, "details": details}, requestID)
}
