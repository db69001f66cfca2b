package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pradeep-opticals/opticals-api/internal/rbac"
)

// Policy bundles the creation-time business constants.
type Policy struct {
	Pricing      Pricing
	ValidityDays int
}

// DefaultPolicy applies the flat tax rate and a 30 day validity window.
var DefaultPolicy = Policy{Pricing: DefaultPricing, ValidityDays: 30}

// CustomerIdentity carries the requesting customer's party details.
type CustomerIdentity struct {
	ID    int64
	Name  string
	Email string
	Phone *string
}

// ProductInfo is what the catalog resolves a product reference to.
type ProductInfo struct {
	ID      int64
	Name    string
	Price   float64
	InStock bool
}

// Catalog resolves product references when a quotation is created.
type Catalog interface {
	Resolve(ctx context.Context, productID int64) (*ProductInfo, error)
}

// OrderCreator creates an order from a quotation snapshot and returns the
// new order's identifier. Implementations must be idempotent per
// quotation: when an order for the snapshot's quotation already exists,
// its id is returned instead of creating a second one. Convert relies on
// this so a retry after a version conflict cannot duplicate the order.
type OrderCreator interface {
	CreateFromQuotation(ctx context.Context, q Quotation, actor rbac.Actor) (int64, error)
}

// Dispatcher executes notification intents, typically by enqueueing them
// for the background worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, intents []Intent) error
}

// AuditLog records who did what to which quotation.
type AuditLog interface {
	Record(ctx context.Context, quotationID int64, actorID int64, action string, note string) error
}

// TransitionObserver counts transition outcomes for metrics.
type TransitionObserver interface {
	ObserveTransition(action Action, outcome string)
}

// Service orchestrates the lifecycle engine against persistence and the
// external collaborators. Concurrency control lives in the repository's
// version-conditioned writes; the service itself is stateless.
type Service struct {
	repo       Repository
	catalog    Catalog
	orders     OrderCreator
	dispatcher Dispatcher
	audit      AuditLog
	metrics    TransitionObserver
	engine     *Engine
	policy     Policy
	logger     *slog.Logger
}

// ServiceConfig collects the service dependencies. Audit and Metrics are
// optional. A nil Policy selects DefaultPolicy; an explicit Policy is
// taken verbatim, so a configured zero tax rate stays zero.
type ServiceConfig struct {
	Repo       Repository
	Catalog    Catalog
	Orders     OrderCreator
	Dispatcher Dispatcher
	Audit      AuditLog
	Metrics    TransitionObserver
	Policy     *Policy
	Logger     *slog.Logger
}

// NewService constructs a quotation service.
func NewService(cfg ServiceConfig) *Service {
	policy := DefaultPolicy
	if cfg.Policy != nil {
		policy = *cfg.Policy
		if policy.ValidityDays <= 0 {
			policy.ValidityDays = DefaultPolicy.ValidityDays
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       cfg.Repo,
		catalog:    cfg.Catalog,
		orders:     cfg.Orders,
		dispatcher: cfg.Dispatcher,
		audit:      cfg.Audit,
		metrics:    cfg.Metrics,
		engine:     NewEngine(),
		policy:     policy,
		logger:     logger,
	}
}

// Create builds a pending quotation from the customer's request, resolving
// each product reference against the catalog and applying the pricing
// policy and validity window.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, customer CustomerIdentity) (*Quotation, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrValidation)
	}

	now := time.Now()
	q := Quotation{
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		CustomerEmail:   customer.Email,
		CustomerPhone:   customer.Phone,
		Status:          StatusPending,
		ValidUntil:      now.AddDate(0, 0, s.policy.ValidityDays),
		PrescriptionURL: req.PrescriptionURL,
	}
	if req.CustomerPhone != nil {
		q.CustomerPhone = req.CustomerPhone
	}

	for _, itemReq := range req.Items {
		product, err := s.catalog.Resolve(ctx, itemReq.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve product %d: %v", ErrDependencyFailure, itemReq.ProductID, err)
		}
		if !product.InStock {
			return nil, fmt.Errorf("%w: product %q is out of stock", ErrValidation, product.Name)
		}
		item := Item{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       itemReq.Quantity,
			UnitPrice:      product.Price,
			Specifications: itemReq.Specifications,
		}
		if err := q.AddItem(s.policy.Pricing, item); err != nil {
			return nil, err
		}
	}

	number, err := s.repo.GenerateNumber(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate quotation number: %w", err)
	}
	q.Number = number

	id, err := s.repo.Create(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("create quotation: %w", err)
	}

	created, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("New quotation %s requested by %s for %.2f.", created.Number, created.CustomerName, created.TotalAmount)
	s.dispatch(ctx, []Intent{notifyStaff(*created, "New quotation request", msg)})
	return created, nil
}

// Get returns a quotation by id.
func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns a quotation by its human-readable number.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns quotations matching the filters plus the unpaged total.
func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Approve applies the staff approval transition.
func (s *Service) Approve(ctx context.Context, id int64, actor rbac.Actor, notes *string) (*Quotation, error) {
	return s.transition(ctx, id, actor, ActionApprove, func(q Quotation) (Quotation, []Intent, error) {
		return s.engine.Approve(q, actor, notes)
	})
}

// Reject applies the rejection transition for either role.
func (s *Service) Reject(ctx context.Context, id int64, actor rbac.Actor, reason string, notes *string) (*Quotation, error) {
	return s.transition(ctx, id, actor, ActionReject, func(q Quotation) (Quotation, []Intent, error) {
		return s.engine.Reject(q, actor, reason, notes)
	})
}

// Confirm records the customer's confirmation of an approved quotation.
func (s *Service) Confirm(ctx context.Context, id int64, actor rbac.Actor) (*Quotation, error) {
	return s.transition(ctx, id, actor, ActionConfirm, func(q Quotation) (Quotation, []Intent, error) {
		return s.engine.Confirm(q, actor)
	})
}

// Reply appends a staff message without changing the status.
func (s *Service) Reply(ctx context.Context, id int64, actor rbac.Actor, message string) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, intents, err := s.engine.Reply(*q, actor, message)
	if err != nil {
		s.observe(ActionReply, "denied")
		return nil, err
	}

	reply := next.StaffReplies[len(next.StaffReplies)-1]
	if err := s.repo.AppendReply(ctx, q.ID, q.Version, reply); err != nil {
		s.observe(ActionReply, "conflict")
		return nil, err
	}

	s.observe(ActionReply, "applied")
	s.record(ctx, q.ID, actor.ID, ActionReply, message)
	s.dispatch(ctx, intents)
	return s.repo.Get(ctx, id)
}

// Convert turns an approved quotation into an order. The converted status
// is only persisted after the order service succeeds; any failure leaves
// the quotation approved and is surfaced as a dependency failure so the
// same request can be retried. A competing transition between the order
// write and the finalisation surfaces as ErrConcurrentModification; the
// retry picks up the already created order through the creator's
// per-quotation idempotency, so no duplicate order or stock reservation
// can result.
func (s *Service) Convert(ctx context.Context, id int64, actor rbac.Actor) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, intents, err := s.engine.Convert(*q, actor)
	if err != nil {
		s.observe(ActionConvert, "denied")
		return nil, err
	}

	var snapshot Quotation
	for _, intent := range intents {
		if intent.Kind == IntentCreateOrder && intent.Snapshot != nil {
			snapshot = *intent.Snapshot
		}
	}

	orderID, err := s.orders.CreateFromQuotation(ctx, snapshot, actor)
	if err != nil {
		s.observe(ActionConvert, "dependency_failure")
		return nil, fmt.Errorf("%w: create order: %v", ErrDependencyFailure, err)
	}

	next, notify, err := s.engine.Finalize(*q, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.ApplyTransition(ctx, next); err != nil {
		s.observe(ActionConvert, "conflict")
		return nil, err
	}

	s.observe(ActionConvert, "applied")
	s.record(ctx, q.ID, actor.ID, ActionConvert, fmt.Sprintf("order %d", orderID))
	s.dispatch(ctx, notify)
	return s.repo.Get(ctx, id)
}

// transition is the shared load → engine → version-checked write path.
func (s *Service) transition(ctx context.Context, id int64, actor rbac.Actor, action Action, apply func(Quotation) (Quotation, []Intent, error)) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, intents, err := apply(*q)
	if err != nil {
		s.observe(action, "denied")
		return nil, err
	}

	if err := s.repo.ApplyTransition(ctx, next); err != nil {
		s.observe(action, "conflict")
		return nil, err
	}

	s.observe(action, "applied")
	s.record(ctx, q.ID, actor.ID, action, "")
	s.dispatch(ctx, intents)
	return s.repo.Get(ctx, id)
}

// dispatch hands notification intents to the queue. Enqueue failures are
// reported but do not roll back an already persisted transition.
func (s *Service) dispatch(ctx context.Context, intents []Intent) {
	if s.dispatcher == nil || len(intents) == 0 {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, intents); err != nil {
		s.logger.Error("dispatch notification intents", slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, quotationID, actorID int64, action Action, note string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, quotationID, actorID, string(action), note); err != nil {
		s.logger.Error("record quotation audit", slog.Any("error", err))
	}
}

func (s *Service) observe(action Action, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(action, outcome)
	}
}
