package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTier_DefaultThresholds(t *testing.T) {
	tests := []struct {
		points int64
		want   string
	}{
		{points: 0, want: TierNew},
		{points: 999, want: TierNew},
		{points: 1000, want: TierBronze},
		{points: 2499, want: TierBronze},
		{points: 2500, want: TierSilver},
		{points: 4999, want: TierSilver},
		{points: 5000, want: TierGold},
		{points: 9999, want: TierGold},
		{points: 10000, want: TierPlatinum},
		{points: 1_000_000, want: TierPlatinum},
	}

	for _, tt := range tests {
		got, err := ResolveTier(tt.points, DefaultThresholds())
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "points %d", tt.points)
	}
}

func TestResolveTier_Monotonic(t *testing.T) {
	thresholds := DefaultThresholds()
	rank := make(map[string]int64, len(thresholds))
	for _, th := range thresholds {
		rank[th.Name] = th.MinPoints
	}

	prev, err := ResolveTier(0, thresholds)
	require.NoError(t, err)
	for p := int64(1); p <= 12000; p += 7 {
		cur, err := ResolveTier(p, thresholds)
		require.NoError(t, err)
		require.GreaterOrEqual(t, rank[cur], rank[prev], "tier dropped at %d points", p)
		prev = cur
	}
}

func TestResolveTier_UnsortedInput(t *testing.T) {
	thresholds := []Threshold{
		{Name: TierNew, MinPoints: 0},
		{Name: TierGold, MinPoints: 5000},
		{Name: TierBronze, MinPoints: 1000},
	}

	got, err := ResolveTier(6000, thresholds)
	require.NoError(t, err)
	assert.Equal(t, TierGold, got)

	// Input order is preserved for the caller.
	assert.Equal(t, TierNew, thresholds[0].Name)
}

func TestResolveTier_TieBreakFirstListedWins(t *testing.T) {
	thresholds := []Threshold{
		{Name: "Alpha", MinPoints: 500},
		{Name: "Beta", MinPoints: 500},
		{Name: TierNew, MinPoints: 0},
	}

	got, err := ResolveTier(700, thresholds)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got)

	thresholds[0], thresholds[1] = thresholds[1], thresholds[0]
	got, err = ResolveTier(700, thresholds)
	require.NoError(t, err)
	assert.Equal(t, "Beta", got)
}

func TestResolveTier_MissingFloor(t *testing.T) {
	thresholds := []Threshold{
		{Name: TierGold, MinPoints: 5000},
		{Name: TierBronze, MinPoints: 1000},
	}

	_, err := ResolveTier(6000, thresholds)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	_, err = ResolveTier(0, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestFloorTier(t *testing.T) {
	got, err := FloorTier(DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, TierNew, got)
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name       string
		thresholds []Threshold
		wantErr    bool
	}{
		{name: "default set", thresholds: DefaultThresholds()},
		{name: "single floor", thresholds: []Threshold{{Name: "Only", MinPoints: 0}}},
		{name: "empty", thresholds: nil, wantErr: true},
		{
			name:       "no floor",
			thresholds: []Threshold{{Name: "Gold", MinPoints: 10}},
			wantErr:    true,
		},
		{
			name:       "two floors",
			thresholds: []Threshold{{Name: "A", MinPoints: 0}, {Name: "B", MinPoints: 0}},
			wantErr:    true,
		},
		{
			name:       "negative minimum",
			thresholds: []Threshold{{Name: "A", MinPoints: -1}, {Name: "B", MinPoints: 0}},
			wantErr:    true,
		},
		{
			name:       "blank name",
			thresholds: []Threshold{{Name: "  ", MinPoints: 0}},
			wantErr:    true,
		},
		{
			name:       "duplicate name",
			thresholds: []Threshold{{Name: "A", MinPoints: 10}, {Name: "A", MinPoints: 0}},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateThresholds(tt.thresholds)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			assert.NoError(t, err)
		})
	}
}
