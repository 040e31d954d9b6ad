package ledger

// RecalculateAll re-derives every customer's tier from its current balance
// and the given thresholds. Points are left untouched and the input slice is
// not modified; the result is the complete replacement collection.
func RecalculateAll(customers []Customer, thresholds []Threshold) ([]Customer, error) {
	if !hasFloor(thresholds) {
		return nil, &ConfigurationError{Reason: "threshold set has no 0-point floor"}
	}

	sorted := sortThresholds(thresholds)
	out := make([]Customer, len(customers))
	for i, c := range customers {
		c.Level = resolveSorted(c.Points, sorted)
		out[i] = c
	}
	return out, nil
}

// resolveSorted is ResolveTier over a pre-sorted set that is known to
// contain a zero floor.
func resolveSorted(points int64, sorted []Threshold) string {
	for _, t := range sorted {
		if points >= t.MinPoints {
			return t.Name
		}
	}
	return sorted[len(sorted)-1].Name
}
