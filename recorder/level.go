package recorder

import "math"

// levelPercent reduces a byte frequency snapshot to a 0-100 meter value.
// The snapshot bins are already scaled to 0-255, so the mean over all bins
// maps linearly onto the meter.
func levelPercent(bins []byte) int {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	mean := float64(sum) / float64(len(bins))
	pct := int(math.Round(mean * 100 / 255))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
