package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-id/aegis/internal/shared"
)

// AttemptRecorder counts auth operations for observability.
type AttemptRecorder interface {
	AuthAttempt(flow, outcome string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	signIn     *SignIn
	signUp     *SignUp
	validation *TokenValidation
	sessions   SessionRepository
	users      UserRepository
	metrics    AttemptRecorder
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, signIn *SignIn, signUp *SignUp, validation *TokenValidation, sessions SessionRepository, users UserRepository, metrics AttemptRecorder) *Handler {
	return &Handler{
		logger:     logger,
		signIn:     signIn,
		signUp:     signUp,
		validation: validation,
		sessions:   sessions,
		users:      users,
		metrics:    metrics,
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signin", h.handleSignIn)
	r.Post("/signup", h.handleSignUp)
	r.Post("/refresh", h.handleRefresh)
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.validation, h.metrics))
		r.Get("/me", h.handleMe)
		r.Post("/signout", h.handleSignOut)
		r.Get("/sessions", h.handleSessions)
		r.Post("/sessions/revoke", h.handleRevokeSessions)
		r.With(RequireRole(RoleAdmin)).Get("/users", h.handleListUsers)
	})
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) record(flow, outcome string) {
	if h.metrics != nil {
		h.metrics.AuthAttempt(flow, outcome)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Message: "invalid request body",
			Error:   "MALFORMED_INPUT",
		})
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Message: "invalid request body",
			Error:   "MALFORMED_INPUT",
		})
		return false
	}
	return true
}

func denyCredentials(w http.ResponseWriter) {
	// Uniform denial: absence, bad secret and ineligible account must be
	// indistinguishable to the caller.
	writeJSON(w, http.StatusUnauthorized, apiResponse{
		Success: false,
		Message: "invalid credentials",
		Error:   "INVALID_CREDENTIALS",
	})
}

type signInRequest struct {
	Provider   string `json:"provider" validate:"required,oneof=basic google microsoft"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password"`
	ProviderID string `json:"provider_id"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decode(w, r, &req) {
		return
	}
	kind, _ := ParseProviderKind(req.Provider)

	var (
		result *SessionResult
		err    error
		flow   string
	)
	if kind == ProviderBasic {
		flow = "signin_basic"
		if req.Password == "" {
			writeJSON(w, http.StatusBadRequest, apiResponse{
				Success: false,
				Message: "password is required for basic sign in",
				Error:   "MALFORMED_INPUT",
			})
			return
		}
		result, err = h.signIn.ExecuteBasic(r.Context(), req.Email, req.Password)
	} else {
		flow = "signin_social"
		externalID := req.ProviderID
		if externalID == "" {
			externalID = req.Email
		}
		result, err = h.signIn.ExecuteSocial(r.Context(), kind, req.Email, externalID)
	}
	if err != nil {
		h.record(flow, "failure")
		if errors.Is(err, shared.ErrInvalidCredentials) {
			denyCredentials(w)
			return
		}
		h.internalError(w, "sign in", err)
		return
	}
	h.record(flow, "success")
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "signed in",
		Data:    result,
	})
}

type signUpRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required"`
	Password   string `json:"password"`
	Provider   string `json:"provider" validate:"omitempty,oneof=google microsoft"`
	ProviderID string `json:"provider_id"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		result *SignUpResult
		err    error
		flow   string
	)
	switch {
	case req.Password != "":
		flow = "signup_basic"
		result, err = h.signUp.ExecuteBasic(r.Context(), req.Email, req.Name, req.Password)
	case req.Provider != "" && req.ProviderID != "":
		flow = "signup_social"
		kind, _ := ParseProviderKind(req.Provider)
		result, err = h.signUp.ExecuteSocial(r.Context(), kind, req.Email, req.Name, req.ProviderID)
	default:
		writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Message: "provide a password, or a provider and provider_id",
			Error:   "MALFORMED_INPUT",
		})
		return
	}
	if err != nil {
		h.record(flow, "failure")
		switch {
		case errors.Is(err, shared.ErrUserExists):
			writeJSON(w, http.StatusConflict, apiResponse{
				Success: false,
				Message: "an account with this email already exists",
				Error:   "USER_EXISTS",
			})
		case errors.Is(err, shared.ErrWeakPassword):
			writeJSON(w, http.StatusBadRequest, apiResponse{
				Success: false,
				Message: "password must be at least 8 characters with upper, lower, digit and special characters",
				Error:   "WEAK_PASSWORD",
			})
		case errors.Is(err, shared.ErrMalformedInput):
			writeJSON(w, http.StatusBadRequest, apiResponse{
				Success: false,
				Message: "invalid request body",
				Error:   "MALFORMED_INPUT",
			})
		default:
			h.internalError(w, "sign up", err)
		}
		return
	}
	h.record(flow, "success")
	writeJSON(w, http.StatusCreated, apiResponse{
		Success: true,
		Message: result.Message,
		Data:    result,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.validation.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.record("refresh", "failure")
		if errors.Is(err, shared.ErrInvalidCredentials) {
			denyCredentials(w)
			return
		}
		h.internalError(w, "refresh", err)
		return
	}
	h.record("refresh", "success")
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "tokens refreshed",
		Data:    result,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	// validate outcomes are recorded by RequireAuth.
	identity := IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "authenticated",
		Data:    identity,
	})
}

func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	session, err := h.sessions.GetByID(r.Context(), identity.SessionID)
	if err != nil {
		h.internalError(w, "sign out", err)
		return
	}
	session.Revoke()
	if _, err := h.sessions.Update(r.Context(), session); err != nil {
		h.internalError(w, "sign out", err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "signed out",
	})
}

type sessionSummary struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleSessions(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	sessions, err := h.sessions.GetByUserID(r.Context(), identity.User.ID)
	if err != nil {
		h.internalError(w, "list sessions", err)
		return
	}
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, sessionSummary{
			ID:        session.ID,
			Status:    string(session.Status),
			ExpiresAt: session.ExpiresAt,
			CreatedAt: session.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data:    map[string]any{"sessions": summaries},
	})
}

func (h *Handler) handleRevokeSessions(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	count, err := h.sessions.RevokeUserSessions(r.Context(), identity.User.ID)
	if err != nil {
		h.internalError(w, "revoke sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: "sessions revoked",
		Data:    map[string]int{"revoked": count},
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)
	limit, offset := pagination.Window()
	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.internalError(w, "list users", err)
		return
	}
	summaries := make([]UserSummary, 0, len(users))
	for _, user := range users {
		summaries = append(summaries, summarize(user))
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Data: map[string]any{
			"users":    summaries,
			"page":     pagination.Page,
			"per_page": pagination.PerPage,
		},
	})
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	// Internal detail stays in logs, never in the response.
	h.logger.Error(op, slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, apiResponse{
		Success: false,
		Message: "internal error",
		Error:   "INTERNAL",
	})
}
