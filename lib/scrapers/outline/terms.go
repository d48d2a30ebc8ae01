package outline

import (
	"fmt"
	"time"
)

// TermForDate maps a date onto the university's term label, e.g.
// "Fall 2025". Winter runs January through April, Spring May through
// August, Fall September through December.
func TermForDate(now time.Time) string {
	year := now.Year()
	month := now.Month()

	switch {
	case month <= 4:
		return fmt.Sprintf("Winter %d", year)
	case month <= 8:
		return fmt.Sprintf("Spring %d", year)
	default:
		return fmt.Sprintf("Fall %d", year)
	}
}
