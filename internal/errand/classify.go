package errand

import (
	"fmt"

	"github.com/ewhitmore/upkeep/internal/model"
)

type CompletionType string

const (
	CompletionOnTime CompletionType = "on-time"
	CompletionLate   CompletionType = "late"
	CompletionEarly  CompletionType = "early"
)

// CompletionStatus classifies a single completion against its scheduled date.
type CompletionStatus struct {
	Type     CompletionType `json:"type"`
	Label    string         `json:"label"`
	DaysDiff int            `json:"days_diff"`
}

// Classify compares the completed date to the scheduled date in whole days.
// Positive DaysDiff means late, negative means early.
func Classify(completed, scheduled model.Date) CompletionStatus {
	diff := scheduled.DaysUntil(completed)

	switch {
	case diff > 0:
		return CompletionStatus{CompletionLate, fmt.Sprintf("%dd late", diff), diff}
	case diff < 0:
		return CompletionStatus{CompletionEarly, fmt.Sprintf("%dd early", -diff), diff}
	default:
		return CompletionStatus{CompletionOnTime, "On time", 0}
	}
}
