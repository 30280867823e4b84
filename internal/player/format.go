package player

import (
	"fmt"
	"math"
)

// FormatTime renders a position as m:ss, flooring fractional seconds.
func FormatTime(totalSeconds float64) string {
	if !finite(totalSeconds) || totalSeconds < 0 {
		totalSeconds = 0
	}
	total := int64(math.Floor(totalSeconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Progress returns position as a percentage of duration, capped at 100.
// An unknown duration counts as one second.
func Progress(position, duration float64) float64 {
	if duration <= 0 || !finite(duration) {
		duration = 1
	}
	return math.Min(100, position/duration*100)
}
