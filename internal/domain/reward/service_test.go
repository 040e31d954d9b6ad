package reward

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

type mockRepo struct {
	rewards []Reward
}

func (m *mockRepo) Rewards(_ context.Context) ([]Reward, error) {
	return slices.Clone(m.rewards), nil
}

func (m *mockRepo) SaveRewards(_ context.Context, rewards []Reward) error {
	m.rewards = slices.Clone(rewards)
	return nil
}

func TestCRUD(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	r, err := svc.Create(ctx, Input{PointsRequired: 1500, Description: " Termo Lester ", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "Termo Lester", r.Description)

	r, err = svc.Update(ctx, r.ID, Input{PointsRequired: 1200, Description: "Termo Lester", IsActive: false})
	require.NoError(t, err)
	assert.False(t, r.IsActive)
	assert.EqualValues(t, 1200, repo.rewards[0].PointsRequired)

	require.NoError(t, svc.Delete(ctx, r.ID))
	assert.Empty(t, repo.rewards)

	_, err = svc.Update(ctx, r.ID, Input{Description: "x"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, r.ID), ledger.ErrNotFound)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(&mockRepo{})

	_, err := svc.Create(context.Background(), Input{Description: "  "})
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = svc.Create(context.Background(), Input{Description: "Gorra", PointsRequired: -1})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestAvailable(t *testing.T) {
	repo := &mockRepo{rewards: []Reward{
		{ID: "big", PointsRequired: 5000, Description: "Parrilla", IsActive: true},
		{ID: "off", PointsRequired: 100, Description: "Llavero", IsActive: false},
		{ID: "mid", PointsRequired: 2500, Description: "Hielera", IsActive: true},
		{ID: "low", PointsRequired: 500, Description: "Gorra", IsActive: true},
	}}
	svc := NewService(repo)

	got, err := svc.Available(context.Background(), 2500)
	require.NoError(t, err)

	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"low", "mid"}, ids)

	got, err = svc.Available(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}
