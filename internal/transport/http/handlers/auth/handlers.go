package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"truckbooks/internal/domain/auth"
	"truckbooks/internal/transport/http/api"
	"truckbooks/internal/transport/http/middleware"
	"truckbooks/internal/transport/http/shared"
)

type Service interface {
	Login(ctx context.Context, email, password, mfaCode string) (auth.Session, error)
	Refresh(ctx context.Context, userID, sessionID string) (auth.Session, error)
	Logout(ctx context.Context, userID, sessionID string) error
	SetupMFA(ctx context.Context, userID string) (auth.MFASetup, error)
	EnableMFA(ctx context.Context, userID, code string) error
	DisableMFA(ctx context.Context, userID, code string) error
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfaCode"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, requestID) {
		return
	}

	session, err := h.Service.Login(r.Context(), strings.TrimSpace(payload.Email), payload.Password, payload.MFACode)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		slog.Warn("login rejected", "ip", shared.ClientIP(r), "requestId", requestID)
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	}
	if errors.Is(err, auth.ErrMFARequired) {
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
		return
	}
	if errors.Is(err, auth.ErrMFAInvalid) {
		slog.Warn("login mfa rejected", "ip", shared.ClientIP(r), "requestId", requestID)
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
		return
	}
	if err != nil {
		slog.Error("login failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", requestID)
		return
	}
	api.Success(w, session, requestID)
}

// HandleMe echoes the caller's identity from the access token.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	api.Success(w, map[string]any{
		"userId":      user.UserID,
		"role":        user.Role,
		"driverId":    user.DriverID,
		"permissions": auth.RolePermissions[user.Role],
	}, requestID)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	if err := h.Service.Logout(r.Context(), user.UserID, user.SessionID); err != nil {
		slog.Error("logout failed", "err", err, "userId", user.UserID, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to revoke session", requestID)
		return
	}
	api.Success(w, map[string]string{"status": "logged_out"}, requestID)
}

// HandleRefresh issues a new token for a live session and rotates its handle.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	session, err := h.Service.Refresh(r.Context(), user.UserID, user.SessionID)
	if errors.Is(err, auth.ErrSessionExpired) {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "session expired", requestID)
		return
	}
	if err != nil {
		slog.Error("refresh failed", "err", err, "userId", user.UserID, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "session_error", "failed to rotate session", requestID)
		return
	}
	api.Success(w, session, requestID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	setup, err := h.Service.SetupMFA(r.Context(), user.UserID)
	if err != nil {
		failMFA(w, err, user.UserID, requestID)
		return
	}
	api.Success(w, setup, requestID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.handleMFAToggle(w, r, h.Service.EnableMFA, "enabled")
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.handleMFAToggle(w, r, h.Service.DisableMFA, "disabled")
}

func (h *Handler) handleMFAToggle(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, string) error, state string) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	var payload mfaCodeRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	if strings.TrimSpace(payload.Code) == "" {
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa code required", requestID)
		return
	}
	if err := apply(r.Context(), user.UserID, payload.Code); err != nil {
		failMFA(w, err, user.UserID, requestID)
		return
	}
	slog.Info("mfa "+state, "userId", user.UserID, "requestId", requestID)
	api.Success(w, map[string]bool{"mfaEnabled": state == "enabled"}, requestID)
}

func failMFA(w http.ResponseWriter, err error, userID, requestID string) {
	switch {
	case errors.Is(err, auth.ErrMFAUnavailable):
		api.Fail(w, http.StatusBadRequest, "mfa_unavailable", "mfa is not configured", requestID)
	case errors.Is(err, auth.ErrMFANotSetUp):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", requestID)
	case errors.Is(err, auth.ErrMFAInvalid):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", requestID)
	case errors.Is(err, auth.ErrMFANotAllowed):
		api.Fail(w, http.StatusForbidden, "forbidden", "mfa is not available for this role", requestID)
	case errors.Is(err, auth.ErrUserNotFound):
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
	default:
		slog.Error("mfa update failed", "err", err, "userId", userID, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "mfa_failed", "mfa update failed", requestID)
	}
}
