package timer

import "fmt"

// ProgressPercent reports how much of a session has elapsed, in [0, 100].
func ProgressPercent(totalTime, currentTime int) float64 {
	if totalTime <= 0 {
		return 0
	}
	progress := float64(totalTime-currentTime) / float64(totalTime) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// FormatClock renders seconds as MM:SS. Minutes are not wrapped into hours.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
