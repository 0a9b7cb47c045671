package common

func AbsInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Manhattan returns |dx| + |dy|.
func Manhattan(x1, y1, x2, y2 int) int {
	return AbsInt(x1-x2) + AbsInt(y1-y2)
}
