package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pradeep-opticals/opticals-api/internal/platform/httpx"
	"github.com/pradeep-opticals/opticals-api/internal/rbac"
	"github.com/pradeep-opticals/opticals-api/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	users     *users.Service
	tokens    *Tokens
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, usersService *users.Service, tokens *Tokens) *Handler {
	return &Handler{
		logger:    logger,
		users:     usersService,
		tokens:    tokens,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
}

// MountUserRoutes registers the staff-only account management endpoints.
func (h *Handler) MountUserRoutes(r chi.Router, mw *Middleware) {
	r.Route("/users", func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RequireRole(rbac.RoleStaff))
		r.Get("/", h.handleListUsers)
		r.Patch("/{id}/active", h.handleSetActive)
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *users.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	token, err := h.tokens.Issue(user, time.Now())
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "an account with this email already exists")
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	req := users.ListUsersRequest{Search: r.URL.Query().Get("search")}
	if v := r.URL.Query().Get("role"); v != "" {
		role := rbac.Role(v)
		if !role.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role filter")
			return
		}
		req.Role = &role
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		req.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		req.Offset = v
	}

	list, total, err := h.users.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list, "total": total})
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}

	var req struct {
		Active *bool `json:"active" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Active == nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body must carry an active flag")
		return
	}

	if err := h.users.SetActive(r.Context(), id, *req.Active); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no such user")
			return
		}
		h.logger.Error("set user active", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
