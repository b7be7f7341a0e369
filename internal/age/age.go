package age

import "time"

// AgeData computes the display age of a timestamp and whether one exists.
func AgeData(then time.Time, now time.Time) (time.Duration, bool) {
	if then.IsZero() {
		return 0, false
	}
	duration := now.Sub(then)
	if duration < 0 {
		duration = 0
	}
	return duration, true
}
