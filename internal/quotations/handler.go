package quotations

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pradeep-opticals/opticals-api/internal/auth"
	"github.com/pradeep-opticals/opticals-api/internal/platform/httpx"
	"github.com/pradeep-opticals/opticals-api/internal/rbac"
	"github.com/pradeep-opticals/opticals-api/internal/shared"
)

// Handler exposes the quotation lifecycle over JSON endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	events      *shared.EventRecorder
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance. Events and idempotency are
// optional.
func NewHandler(logger *slog.Logger, service *Service, events *shared.EventRecorder, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		events:      events,
		idempotency: idempotency,
		validator:   validator.New(),
	}
}

type listResponse struct {
	Data       []Quotation       `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	customer := CustomerIdentity{
		ID:    identity.UserID,
		Name:  identity.Name,
		Email: identity.Email,
		Phone: req.CustomerPhone,
	}

	quotation, err := h.service.Create(r.Context(), req, customer)
	if err != nil {
		h.respondError(w, "create quotation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quotation)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	req := ListQuotationsRequest{
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := Status(status)
		req.Status = &s
	}
	req.DateFrom = queryDate(r, "date_from")
	req.DateTo = queryDate(r, "date_to")

	// Customers only see their own quotations.
	if identity.Role == rbac.RoleCustomer {
		req.CustomerID = &identity.UserID
	}

	result, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list quotations", err)
		return
	}

	page := 1
	if req.Limit > 0 {
		page = req.Offset/req.Limit + 1
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       result,
		Pagination: shared.NewPagination(page, req.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	quotation, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	quotation, ok := h.load(w, r)
	if !ok {
		return
	}
	if h.events == nil {
		httpx.JSON(w, http.StatusOK, []shared.Event{})
		return
	}
	events, err := h.events.List(r.Context(), quotation.ID)
	if err != nil {
		h.respondError(w, "list quotation events", err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "approve", func(id int64, actor rbac.Actor) (*Quotation, error) {
		var req ApproveRequest
		if r.ContentLength > 0 {
			if err := httpx.DecodeJSON(r, &req); err != nil {
				return nil, errInvalidBody
			}
		}
		return h.service.Approve(r.Context(), id, actor, req.Notes)
	})
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reject", func(id int64, actor rbac.Actor) (*Quotation, error) {
		var req RejectRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return nil, errInvalidBody
		}
		return h.service.Reject(r.Context(), id, actor, req.Reason, req.Notes)
	})
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "confirm", func(id int64, actor rbac.Actor) (*Quotation, error) {
		return h.service.Confirm(r.Context(), id, actor)
	})
}

func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reply", func(id int64, actor rbac.Actor) (*Quotation, error) {
		var req ReplyRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return nil, errInvalidBody
		}
		return h.service.Reply(r.Context(), id, actor, req.Message)
	})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "convert", func(id int64, actor rbac.Actor) (*Quotation, error) {
		return h.service.Convert(r.Context(), id, actor)
	})
}

var errInvalidBody = errors.New("invalid JSON body")

// transition runs the shared plumbing of the transition endpoints:
// id parsing, optional Idempotency-Key registration, and error mapping.
// The idempotency key is released again on failure so the caller can
// resubmit the same request after fixing the problem.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, scope string, apply func(int64, rbac.Actor) (*Quotation, error)) {
	identity := auth.IdentityFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quotation id")
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), idemKey, "quotations:"+scope); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Duplicate Request", "this request was already processed")
				return
			}
			h.respondError(w, "register idempotency key", err)
			return
		}
	}

	quotation, err := apply(id, identity.Actor())
	if err != nil {
		if idemKey != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), idemKey); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		if errors.Is(err, errInvalidBody) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", errInvalidBody.Error())
			return
		}
		h.respondError(w, scope+" quotation", err)
		return
	}

	httpx.JSON(w, http.StatusOK, quotation)
}

// load fetches the quotation and enforces that customers only read their
// own records.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Quotation, bool) {
	identity := auth.IdentityFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid quotation id")
		return nil, false
	}

	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get quotation", err)
		return nil, false
	}
	if identity.Role == rbac.RoleCustomer && quotation.CustomerID != identity.UserID {
		// Do not reveal other customers' quotation ids.
		httpx.Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
		return nil, false
	}
	return quotation, true
}

// respondError maps the lifecycle error kinds to HTTP statuses so callers
// can react: fix input on validation, reload on conflict, retry on a
// dependency failure.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrUnauthorizedTransition):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrQuotationExpired):
		httpx.Problem(w, http.StatusConflict, "Quotation Expired", err.Error())
	case errors.Is(err, ErrConcurrentModification):
		httpx.Problem(w, http.StatusConflict, "Concurrent Modification", "the quotation changed since you loaded it; reload and retry")
	case errors.Is(err, ErrDependencyFailure):
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Dependency Failure", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
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

func queryDate(r *http.Request, name string) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &t
}
