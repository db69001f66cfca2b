package appointments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pradeep-opticals/opticals-api/internal/auth"
	"github.com/pradeep-opticals/opticals-api/internal/platform/httpx"
	"github.com/pradeep-opticals/opticals-api/internal/rbac"
	"github.com/pradeep-opticals/opticals-api/internal/shared"
)

// Handler exposes appointment booking over JSON endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type statusRequest struct {
	Status Status `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router, mw *auth.Middleware) {
	r.Route("/appointments", func(r chi.Router) {
		r.Use(mw.Authenticate)

		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.With(mw.RequireRole(rbac.RoleCustomer)).Post("/", h.Book)
		r.With(mw.RequireRole(rbac.RoleStaff)).Patch("/{id}/status", h.SetStatus)
	})
}

type listResponse struct {
	Data       []Appointment     `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var req BookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	appointment, err := h.service.Book(r.Context(), req, identity.Actor(), identity.Email)
	if err != nil {
		h.respondError(w, "book appointment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appointment)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	req := ListRequest{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := Status(status)
		req.Status = &s
	}
	if identity.Role == rbac.RoleCustomer {
		req.CustomerID = &identity.UserID
	}

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list appointments", err)
		return
	}

	page := 1
	if req.Limit > 0 {
		page = req.Offset/req.Limit + 1
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(page, req.Limit, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid appointment id")
		return
	}

	appointment, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get appointment", err)
		return
	}
	if identity.Role == rbac.RoleCustomer && appointment.CustomerID != identity.UserID {
		httpx.Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, appointment)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid appointment id")
		return
	}

	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	appointment, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondError(w, "set appointment status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, appointment)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
