package scoring

// ClampFloat64 bounds value to [min, max]
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
