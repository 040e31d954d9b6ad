package ledger

import (
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// UnknownCustomerName is stored on orders whose customer id does not resolve
// at submission time.
const UnknownCustomerName = "Cliente desconocido"

// Status is the lifecycle state of an order.
type Status uint8

const (
	// StatusPending is the initial state of every submitted order.
	StatusPending Status = iota + 1
	// StatusApproved is terminal: points have been credited.
	StatusApproved
	// StatusRejected is terminal: the evidence was refused.
	StatusRejected
)

// String returns the wire name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusApproved:
		return "approved"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// ParseStatus parses a wire name produced by String.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "approved":
		return StatusApproved, nil
	case "rejected":
		return StatusRejected, nil
	}
	return 0, errors.Errorf("unknown order status %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return []byte(s.String()), nil
	}
	return nil, errors.Errorf("unknown order status %d", uint8(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// CanTransitionTo reports whether an order in state s may move to target.
// Approved and Rejected are terminal.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved, StatusRejected:
		return false
	}
	return false
}

// Documents references the evidence attached to an order. The engine only
// checks that both references are present; their content is opaque.
type Documents struct {
	Payment       string `json:"payment"`
	OriginalOrder string `json:"originalOrder"`
}

// Order is a sales-evidence submission awaiting or past admin validation.
type Order struct {
	ID           string          `json:"id"`
	CustomerID   string          `json:"customerId"`
	CustomerName string          `json:"customerName"`
	AgentID      string          `json:"agentId"`
	Folio        string          `json:"folio"`
	Date         string          `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Documents    Documents       `json:"documents"`
	Notes        string          `json:"notes,omitempty"`
	Status       Status          `json:"status"`

	// PointsAwarded is set iff Status is StatusApproved.
	PointsAwarded *int64 `json:"pointsAwarded,omitempty"`
	// RejectionReason is set iff Status is StatusRejected.
	RejectionReason string `json:"rejectionReason,omitempty"`

	SubmittedAt time.Time  `json:"submittedAt"`
	DecidedAt   *time.Time `json:"decidedAt,omitempty"`
	DecidedBy   string     `json:"decidedBy,omitempty"`
}

// Awarded returns the points credited by approval, if any.
func (o Order) Awarded() (int64, bool) {
	if o.PointsAwarded == nil {
		return 0, false
	}
	return *o.PointsAwarded, true
}

func (o Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, To: target}
	}
	return nil
}

// Approve moves a pending order to Approved and credits the converted points
// to the customer, re-deriving the customer's tier from the new balance.
//
// The inputs are never modified; on error no partial result is returned.
func Approve(o Order, c Customer, cfg Config, thresholds []Threshold, actor string, at time.Time) (Order, Customer, error) {
	if err := o.transition(StatusApproved); err != nil {
		return Order{}, Customer{}, err
	}
	if c.ID != o.CustomerID {
		return Order{}, Customer{}, &NotFoundError{Kind: "customer", ID: o.CustomerID}
	}

	points, err := PointsFor(o.Amount, cfg.PointRatio)
	if err != nil {
		return Order{}, Customer{}, err
	}
	if points > math.MaxInt64-c.Points {
		return Order{}, Customer{}, &ValidationError{Field: "amount", Reason: "approval would overflow the customer balance"}
	}
	balance := c.Points + points
	level, err := ResolveTier(balance, thresholds)
	if err != nil {
		return Order{}, Customer{}, err
	}

	o.Status = StatusApproved
	o.PointsAwarded = &points
	o.DecidedAt = &at
	o.DecidedBy = actor

	c.Points = balance
	c.Level = level

	return o, c, nil
}

// Reject moves a pending order to Rejected with the given reason. The
// customer balance is never touched.
func Reject(o Order, reason, actor string, at time.Time) (Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Order{}, &ValidationError{Field: "reason", Reason: "rejection reason is required"}
	}
	if err := o.transition(StatusRejected); err != nil {
		return Order{}, err
	}

	o.Status = StatusRejected
	o.RejectionReason = reason
	o.DecidedAt = &at
	o.DecidedBy = actor

	return o, nil
}
