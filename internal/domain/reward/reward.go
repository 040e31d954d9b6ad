package reward

import (
	"context"
	"strings"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

// Reward is a catalog item customers can claim once their balance reaches
// PointsRequired.
type Reward struct {
	ID             string `json:"id"`
	PointsRequired int64  `json:"pointsRequired"`
	Description    string `json:"description"`
	IsActive       bool   `json:"isActive"`
}

// Repository persists the reward catalog. SaveRewards replaces it whole.
type Repository interface {
	Rewards(ctx context.Context) ([]Reward, error)
	SaveRewards(ctx context.Context, rewards []Reward) error
}

// Input holds the editable fields of a reward.
type Input struct {
	PointsRequired int64
	Description    string
	IsActive       bool
}

func (in Input) normalize() (Input, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Description == "" {
		return Input{}, &ledger.ValidationError{Field: "description", Reason: "description is required"}
	}
	if in.PointsRequired < 0 {
		return Input{}, &ledger.ValidationError{Field: "pointsRequired", Reason: "points required must not be negative"}
	}
	return in, nil
}
