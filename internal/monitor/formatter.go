package monitor

import "fmt"

// FormatRate formats a completion rate as "X.X runs/min"
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.1f runs/min", rate)
}

// FormatElapsed formats a duration in seconds as "Xs", "Xm Ys" or "Xh Ym"
func FormatElapsed(seconds float64) string {
	total := int64(seconds)

	switch {
	case total >= 3600:
		return fmt.Sprintf("%dh %dm", total/3600, (total%3600)/60)
	case total >= 60:
		return fmt.Sprintf("%dm %ds", total/60, total%60)
	default:
		return fmt.Sprintf("%ds", total)
	}
}

// FormatStageCount formats stage progress as "done/total"
func FormatStageCount(done, total int) string {
	return fmt.Sprintf("%d/%d", done, total)
}

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}
