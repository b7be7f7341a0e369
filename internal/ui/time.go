package ui

import (
	"fmt"
	"time"

	internalage "github.com/harmon-tuazon/PD-enrollment-letter-generator/internal/age"
)

// FormatTimeAgo renders how long ago a timestamp was as a compact age like
// "2h ago". Unset timestamps render as "-".
func FormatTimeAgo(then time.Time, now time.Time) string {
	age, ok := internalage.AgeData(then, now)
	if !ok {
		return "-"
	}
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours())/24)
	}
}
