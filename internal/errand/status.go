package errand

import (
	"fmt"
	"time"

	"github.com/ewhitmore/upkeep/internal/model"
)

type Status string

const (
	StatusOverdue     Status = "overdue"
	StatusDueToday    Status = "due-today"
	StatusDueTomorrow Status = "due-tomorrow"
	StatusDueSoon     Status = "due-soon"
	StatusOnTrack     Status = "on-track"
)

// StatusInfo is the urgency classification of an errand relative to today.
type StatusInfo struct {
	Status       Status `json:"status"`
	Label        string `json:"status_label"`
	DaysUntilDue int    `json:"days_until_due"`
}

// WithStatus bundles an errand with its computed status for API responses.
type WithStatus struct {
	model.Errand
	StatusInfo
}

// ComputeStatus classifies how urgent an errand is given its next due date,
// today's date, and the user's reminder lead time in days. It is total: every
// input produces a classification.
func ComputeStatus(nextDue, today model.Date, remindDaysBefore int) StatusInfo {
	days := today.DaysUntil(nextDue)

	switch {
	case days < 0:
		return StatusInfo{StatusOverdue, fmt.Sprintf("%dd overdue", -days), days}
	case days == 0:
		return StatusInfo{StatusDueToday, "Due today", days}
	case days == 1:
		return StatusInfo{StatusDueTomorrow, "Due tomorrow", days}
	case days <= remindDaysBefore:
		return StatusInfo{StatusDueSoon, fmt.Sprintf("%dd left", days), days}
	default:
		return StatusInfo{StatusOnTrack, fmt.Sprintf("%dd left", days), days}
	}
}

// ForErrand attaches the computed status to an errand.
func ForErrand(e model.Errand, today model.Date, remindDaysBefore int) WithStatus {
	return WithStatus{
		Errand:     e,
		StatusInfo: ComputeStatus(e.NextDue, today, remindDaysBefore),
	}
}

// ComputeNextDue returns the next due date after a completion. For month
// intervals the day-of-month is preserved, clamped to the last day of the
// target month (Jan 31 + 1 month lands on the last day of February). For mile
// intervals ok is false: distance-driven recurrence needs odometer input the
// system does not track, so the caller must supply the next due date.
func ComputeNextDue(completed model.Date, intervalType model.IntervalType, intervalValue int) (model.Date, bool) {
	if intervalType != model.IntervalMonths {
		return model.Date{}, false
	}
	return addMonthsClamped(completed, intervalValue), true
}

// addMonthsClamped adds whole calendar months, clamping the day-of-month to
// the target month's length instead of letting it spill into the next month.
func addMonthsClamped(d model.Date, months int) model.Date {
	first := time.Date(d.Year(), d.Month()+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	day := d.Day()
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return model.NewDate(first.Year(), first.Month(), day)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
