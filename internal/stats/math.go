package stats

import "math"

// Round2 rounds to two decimals, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidScore reports whether a stored score can take part in an average.
func ValidScore(score *float64) bool {
	if score == nil {
		return false
	}
	v := *score
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= 100
}

// ClampScore bounds a possibly-anomalous score to [0, 100]. Nil and NaN stay nil.
func ClampScore(score *float64) *float64 {
	if score == nil || math.IsNaN(*score) {
		return nil
	}
	v := math.Max(0, math.Min(100, *score))
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

// ratePct returns part/whole as a percentage, or nil when whole is zero.
func ratePct(part, whole int) *float64 {
	if whole <= 0 {
		return nil
	}
	return floatPtr(Round2(float64(part) / float64(whole) * 100))
}
