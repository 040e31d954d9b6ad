package ledger

import (
	"slices"
	"strings"
)

// Built-in tier names.
const (
	TierPlatinum = "Platino"
	TierGold     = "Oro"
	TierSilver   = "Plata"
	TierBronze   = "Bronce"
	TierNew      = "Nuevo"
)

// Threshold assigns a tier to every balance at or above MinPoints.
type Threshold struct {
	Name      string `json:"name"`
	MinPoints int64  `json:"minPoints"`
}

// DefaultThresholds returns the threshold set used when none has been stored.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Name: TierPlatinum, MinPoints: 10000},
		{Name: TierGold, MinPoints: 5000},
		{Name: TierSilver, MinPoints: 2500},
		{Name: TierBronze, MinPoints: 1000},
		{Name: TierNew, MinPoints: 0},
	}
}

// ResolveTier returns the name of the highest threshold the balance reaches.
//
// Thresholds are ordered by MinPoints descending with a stable sort, so when
// several thresholds share the same minimum the one listed first wins.
// A set without a zero floor is a ConfigurationError.
func ResolveTier(points int64, thresholds []Threshold) (string, error) {
	if !hasFloor(thresholds) {
		return "", &ConfigurationError{Reason: "threshold set has no 0-point floor"}
	}

	for _, t := range sortThresholds(thresholds) {
		if points >= t.MinPoints {
			return t.Name, nil
		}
	}

	// Only reachable for negative balances, which the engine never produces.
	return "", &ConfigurationError{Reason: "no threshold matches a negative balance"}
}

// FloorTier returns the name of the tier assigned to a zero balance.
func FloorTier(thresholds []Threshold) (string, error) {
	return ResolveTier(0, thresholds)
}

// ValidateThresholds checks a threshold set before it is stored: it must be
// non-empty, use unique non-blank names, have no negative minimums and
// contain exactly one zero floor.
func ValidateThresholds(thresholds []Threshold) error {
	if len(thresholds) == 0 {
		return &ConfigurationError{Reason: "threshold set is empty"}
	}

	seen := make(map[string]struct{}, len(thresholds))
	floors := 0
	for _, t := range thresholds {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return &ConfigurationError{Reason: "threshold name is blank"}
		}
		if _, dup := seen[name]; dup {
			return &ConfigurationError{Reason: "duplicate threshold " + name}
		}
		seen[name] = struct{}{}

		if t.MinPoints < 0 {
			return &ConfigurationError{Reason: "threshold " + name + " has a negative minimum"}
		}
		if t.MinPoints == 0 {
			floors++
		}
	}

	if floors != 1 {
		return &ConfigurationError{Reason: "threshold set must contain exactly one 0-point floor"}
	}
	return nil
}

func hasFloor(thresholds []Threshold) bool {
	return slices.ContainsFunc(thresholds, func(t Threshold) bool { return t.MinPoints == 0 })
}

func sortThresholds(thresholds []Threshold) []Threshold {
	sorted := slices.Clone(thresholds)
	slices.SortStableFunc(sorted, func(a, b Threshold) int {
		switch {
		case a.MinPoints > b.MinPoints:
			return -1
		case a.MinPoints < b.MinPoints:
			return 1
		default:
			return 0
		}
	})
	return sorted
}
