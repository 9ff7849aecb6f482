package errand

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ewhitmore/upkeep/internal/model"
)

// Greeting returns a time-of-day greeting for the dashboard.
func Greeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good Morning"
	case hour < 18:
		return "Good Afternoon"
	default:
		return "Good Evening"
	}
}

// IntervalLabel renders an errand's recurrence interval for display,
// e.g. "Every 6 months" or "Every 7,500 mi".
func IntervalLabel(intervalType model.IntervalType, value int) string {
	if intervalType == model.IntervalMiles {
		return fmt.Sprintf("Every %s mi", humanize.Comma(int64(value)))
	}
	if value == 1 {
		return "Every month"
	}
	return fmt.Sprintf("Every %d months", value)
}

// FormatCurrency renders a USD amount with cents, e.g. "$1,234.50".
func FormatCurrency(amount float64) string {
	return "$" + humanize.FormatFloat("#,###.##", amount)
}

// TotalCost sums the cost of every completion in history.
func TotalCost(history []model.Completion) float64 {
	var total float64
	for _, h := range history {
		total += h.Cost
	}
	return total
}

// AverageCost returns the mean completion cost, or 0 for empty history.
func AverageCost(history []model.Completion) float64 {
	if len(history) == 0 {
		return 0
	}
	return TotalCost(history) / float64(len(history))
}
