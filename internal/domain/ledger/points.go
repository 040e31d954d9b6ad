package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

var maxPoints = decimal.NewFromInt(math.MaxInt64)

// DefaultPointRatio is the ratio used when no configuration has been stored.
var DefaultPointRatio = decimal.NewFromInt(100)

// Config holds the admin-editable conversion settings.
type Config struct {
	// PointRatio is the number of monetary units worth one point.
	PointRatio decimal.Decimal `json:"pointRatio"`
}

// DefaultConfig returns the configuration used when none has been stored.
func DefaultConfig() Config {
	return Config{PointRatio: DefaultPointRatio}
}

// Validate reports a ConfigurationError when the ratio is not positive.
func (c Config) Validate() error {
	if !c.PointRatio.IsPositive() {
		return &ConfigurationError{Reason: "point ratio must be greater than 0, got " + c.PointRatio.String()}
	}
	return nil
}

// PointsFor converts a monetary amount into whole points: floor(amount / ratio).
// Amounts smaller than the ratio yield zero points, which is not an error.
func PointsFor(amount, ratio decimal.Decimal) (int64, error) {
	if !ratio.IsPositive() {
		return 0, &ConfigurationError{Reason: "point ratio must be greater than 0, got " + ratio.String()}
	}
	if !amount.IsPositive() {
		return 0, nil
	}

	// QuoRem with precision 0 yields the exact integer quotient, which for
	// positive operands equals the floor.
	q, _ := amount.QuoRem(ratio, 0)
	if q.GreaterThan(maxPoints) {
		return 0, &ValidationError{Field: "amount", Reason: "amount converts to more points than a balance can hold"}
	}
	return q.IntPart(), nil
}
