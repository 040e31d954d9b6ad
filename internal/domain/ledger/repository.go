package ledger

import "context"

// Repository persists the ledger collections. Every Save call replaces the
// whole collection; callers read the latest snapshot before mutating.
type Repository interface {
	Customers(ctx context.Context) ([]Customer, error)
	SaveCustomers(ctx context.Context, customers []Customer) error

	Orders(ctx context.Context) ([]Order, error)
	SaveOrders(ctx context.Context, orders []Order) error

	// Levels returns the built-in thresholds when none are stored.
	Levels(ctx context.Context) ([]Threshold, error)
	SaveLevels(ctx context.Context, levels []Threshold) error

	// Config returns DefaultConfig when none is stored.
	Config(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) error

	// SaveApproval replaces the order and customer collections in one write.
	SaveApproval(ctx context.Context, orders []Order, customers []Customer) error
	// SaveSettings replaces the thresholds and config in one write.
	SaveSettings(ctx context.Context, levels []Threshold, cfg Config) error
}
