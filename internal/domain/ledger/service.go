package ledger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmitRequest holds the input for an agent's order submission.
type SubmitRequest struct {
	CustomerID string
	AgentID    string
	Folio      string
	Date       string
	Amount     decimal.Decimal
	Documents  Documents
	Notes      string
}

// ApproveResult holds the order and customer as persisted by an approval.
type ApproveResult struct {
	Order    Order
	Customer Customer
}

// OrderFilter narrows an order listing. Zero values match everything.
type OrderFilter struct {
	Status  Status
	AgentID string
}

// Settings is the admin-editable conversion and tier configuration.
type Settings struct {
	Levels []Threshold
	Config Config
}

// Service runs the ledger operations against a Repository. It assumes a
// single writer: each operation is a plain read-modify-write.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the generator used for new order and customer ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a ledger Service backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Submit validates an agent submission and stores it as a Pending order.
// An unknown customer id is kept as-is with a placeholder name.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Order, error) {
	if !req.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "amount must be greater than 0"}
	}
	if strings.TrimSpace(req.Documents.Payment) == "" {
		return nil, &ValidationError{Field: "documents.payment", Reason: "payment document is required"}
	}
	if strings.TrimSpace(req.Documents.OriginalOrder) == "" {
		return nil, &ValidationError{Field: "documents.originalOrder", Reason: "original order document is required"}
	}

	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}
	name := UnknownCustomerName
	if i := findCustomer(customers, req.CustomerID); i >= 0 {
		name = customers[i].Name
	}

	orders, err := s.repo.Orders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}

	o := Order{
		ID:           s.newID(),
		CustomerID:   req.CustomerID,
		CustomerName: name,
		AgentID:      req.AgentID,
		Folio:        strings.TrimSpace(req.Folio),
		Date:         strings.TrimSpace(req.Date),
		Amount:       req.Amount,
		Documents:    req.Documents,
		Notes:        req.Notes,
		Status:       StatusPending,
		SubmittedAt:  s.now(),
	}
	if err := s.repo.SaveOrders(ctx, append(slices.Clone(orders), o)); err != nil {
		return nil, errors.Wrap(err, "save orders")
	}
	return &o, nil
}

// Approve approves a pending order, credits the converted points to its
// customer and persists both in one write. On any error nothing is stored.
func (s *Service) Approve(ctx context.Context, orderID, actor string) (*ApproveResult, error) {
	orders, err := s.repo.Orders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	oi := findOrder(orders, orderID)
	if oi < 0 {
		return nil, &NotFoundError{Kind: "order", ID: orderID}
	}
	if err := orders[oi].transition(StatusApproved); err != nil {
		return nil, err
	}

	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}
	ci := findCustomer(customers, orders[oi].CustomerID)
	if ci < 0 {
		return nil, &NotFoundError{Kind: "customer", ID: orders[oi].CustomerID}
	}

	cfg, err := s.repo.Config(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	levels, err := s.repo.Levels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load levels")
	}

	o, c, err := Approve(orders[oi], customers[ci], cfg, levels, actor, s.now())
	if err != nil {
		return nil, err
	}

	orders = slices.Clone(orders)
	orders[oi] = o
	customers = slices.Clone(customers)
	customers[ci] = c
	if err := s.repo.SaveApproval(ctx, orders, customers); err != nil {
		return nil, errors.Wrap(err, "save approval")
	}

	return &ApproveResult{Order: o, Customer: c}, nil
}

// Reject rejects a pending order with a non-blank reason.
func (s *Service) Reject(ctx context.Context, orderID, reason, actor string) (*Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, &ValidationError{Field: "reason", Reason: "rejection reason is required"}
	}

	orders, err := s.repo.Orders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	i := findOrder(orders, orderID)
	if i < 0 {
		return nil, &NotFoundError{Kind: "order", ID: orderID}
	}

	o, err := Reject(orders[i], reason, actor, s.now())
	if err != nil {
		return nil, err
	}

	orders = slices.Clone(orders)
	orders[i] = o
	if err := s.repo.SaveOrders(ctx, orders); err != nil {
		return nil, errors.Wrap(err, "save orders")
	}
	return &o, nil
}

// Order returns a single order by id.
func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	orders, err := s.repo.Orders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	i := findOrder(orders, id)
	if i < 0 {
		return nil, &NotFoundError{Kind: "order", ID: id}
	}
	o := orders[i]
	return &o, nil
}

// Orders returns the stored orders matching f in submission order.
func (s *Service) Orders(ctx context.Context, f OrderFilter) ([]Order, error) {
	orders, err := s.repo.Orders(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Status != 0 && o.Status != f.Status {
			continue
		}
		if f.AgentID != "" && o.AgentID != f.AgentID {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// Recalculate re-derives every customer's tier from the current thresholds
// and stores the result. It is the explicit step that follows a threshold edit.
func (s *Service) Recalculate(ctx context.Context) ([]Customer, error) {
	levels, err := s.repo.Levels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load levels")
	}
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}

	updated, err := RecalculateAll(customers, levels)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveCustomers(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "save customers")
	}
	return updated, nil
}

// Settings returns the current thresholds and conversion config.
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	levels, err := s.repo.Levels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load levels")
	}
	cfg, err := s.repo.Config(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &Settings{Levels: levels, Config: cfg}, nil
}

// UpdateSettings validates and stores new thresholds and config. Cached
// customer tiers are not touched; call Recalculate to refresh them.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings) error {
	if err := ValidateThresholds(settings.Levels); err != nil {
		return err
	}
	if err := settings.Config.Validate(); err != nil {
		return err
	}

	levels := make([]Threshold, len(settings.Levels))
	for i, t := range settings.Levels {
		levels[i] = Threshold{Name: strings.TrimSpace(t.Name), MinPoints: t.MinPoints}
	}
	if err := s.repo.SaveSettings(ctx, levels, settings.Config); err != nil {
		return errors.Wrap(err, "save settings")
	}
	return nil
}

// Register adds a customer with a zero balance at the floor tier.
func (s *Service) Register(ctx context.Context, p Profile) (*Customer, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	levels, err := s.repo.Levels(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load levels")
	}
	floor, err := FloorTier(levels)
	if err != nil {
		return nil, err
	}

	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}

	c := Customer{ID: s.newID(), Profile: p, Points: 0, Level: floor}
	if err := s.repo.SaveCustomers(ctx, append(slices.Clone(customers), c)); err != nil {
		return nil, errors.Wrap(err, "save customers")
	}
	return &c, nil
}

// UpdateProfile replaces a customer's descriptive fields. Points and level
// are never changed through this path.
func (s *Service) UpdateProfile(ctx context.Context, id string, p Profile) (*Customer, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}

	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}
	i := findCustomer(customers, id)
	if i < 0 {
		return nil, &NotFoundError{Kind: "customer", ID: id}
	}

	customers = slices.Clone(customers)
	customers[i].Profile = p
	if err := s.repo.SaveCustomers(ctx, customers); err != nil {
		return nil, errors.Wrap(err, "save customers")
	}
	c := customers[i]
	return &c, nil
}

// DeleteCustomer removes a customer. Orders referencing it are kept.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return errors.Wrap(err, "load customers")
	}
	i := findCustomer(customers, id)
	if i < 0 {
		return &NotFoundError{Kind: "customer", ID: id}
	}

	customers = slices.Delete(slices.Clone(customers), i, i+1)
	if err := s.repo.SaveCustomers(ctx, customers); err != nil {
		return errors.Wrap(err, "save customers")
	}
	return nil
}

// Customer returns a single customer by id.
func (s *Service) Customer(ctx context.Context, id string) (*Customer, error) {
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}
	i := findCustomer(customers, id)
	if i < 0 {
		return nil, &NotFoundError{Kind: "customer", ID: id}
	}
	c := customers[i]
	return &c, nil
}

// Ranking returns customers ordered by points, highest first.
func (s *Service) Ranking(ctx context.Context, f RankingFilter) ([]Customer, error) {
	customers, err := s.repo.Customers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load customers")
	}
	return Rank(customers, f), nil
}

func findOrder(orders []Order, id string) int {
	return slices.IndexFunc(orders, func(o Order) bool { return o.ID == id })
}
