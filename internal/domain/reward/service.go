package reward

import (
	"cmp"
	"context"
	"slices"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

// Service manages the reward catalog.
type Service struct {
	repo  Repository
	newID func() string
}

// NewService creates a reward Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, newID: uuid.NewString}
}

// List returns the whole catalog in stored order.
func (s *Service) List(ctx context.Context) ([]Reward, error) {
	rewards, err := s.repo.Rewards(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load rewards")
	}
	return rewards, nil
}

// Create adds a reward to the catalog.
func (s *Service) Create(ctx context.Context, in Input) (*Reward, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	r := Reward{ID: s.newID(), PointsRequired: in.PointsRequired, Description: in.Description, IsActive: in.IsActive}
	if err := s.repo.SaveRewards(ctx, append(slices.Clone(rewards), r)); err != nil {
		return nil, errors.Wrap(err, "save rewards")
	}
	return &r, nil
}

// Update replaces a reward's fields.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Reward, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := findReward(rewards, id)
	if i < 0 {
		return nil, &ledger.NotFoundError{Kind: "reward", ID: id}
	}

	rewards = slices.Clone(rewards)
	rewards[i] = Reward{ID: id, PointsRequired: in.PointsRequired, Description: in.Description, IsActive: in.IsActive}
	if err := s.repo.SaveRewards(ctx, rewards); err != nil {
		return nil, errors.Wrap(err, "save rewards")
	}
	r := rewards[i]
	return &r, nil
}

// Delete removes a reward from the catalog.
func (s *Service) Delete(ctx context.Context, id string) error {
	rewards, err := s.List(ctx)
	if err != nil {
		return err
	}
	i := findReward(rewards, id)
	if i < 0 {
		return &ledger.NotFoundError{Kind: "reward", ID: id}
	}
	if err := s.repo.SaveRewards(ctx, slices.Delete(slices.Clone(rewards), i, i+1)); err != nil {
		return errors.Wrap(err, "save rewards")
	}
	return nil
}

// Available returns the active rewards a balance of points can claim,
// cheapest first.
func (s *Service) Available(ctx context.Context, points int64) ([]Reward, error) {
	rewards, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Reward, 0, len(rewards))
	for _, r := range rewards {
		if r.IsActive && r.PointsRequired <= points {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Reward) int {
		return cmp.Compare(a.PointsRequired, b.PointsRequired)
	})
	return out, nil
}

func findReward(rewards []Reward, id string) int {
	return slices.IndexFunc(rewards, func(r Reward) bool { return r.ID == id })
}
