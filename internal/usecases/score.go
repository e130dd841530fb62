package usecases

// NormalizeScore maps a vendor confidence onto 0..1. Vendors report either
// fractions or percentages; anything above 1 is taken as a percentage and
// a missing score counts as 0.
func NormalizeScore(raw *float64) float64 {
	if raw == nil {
		return 0
	}
	return normalize(*raw)
}

// PassesThreshold compares a normalized score against threshold, which may
// itself be configured on either scale
func PassesThreshold(score, threshold float64) bool {
	return normalize(score) >= normalize(threshold)
}

func normalize(v float64) float64 {
	if v > 1.0 {
		return v / 100
	}
	return v
}
