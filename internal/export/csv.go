// Package export renders a user's errands as a CSV download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ewhitmore/upkeep/internal/model"
)

var header = []string{
	"Name", "Category", "Interval Type", "Interval Value",
	"Next Due", "Last Completed", "Estimated Cost", "Reminders", "Notes",
}

// Filename returns the suggested download name for an export taken now.
func Filename(now time.Time) string {
	return fmt.Sprintf("errands-%s.csv", now.Format("2006-01-02"))
}

// WriteCSV writes the errands to w as CSV, one row per errand plus a
// header row.
func WriteCSV(w io.Writer, errands []model.Errand) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, e := range errands {
		lastCompleted := ""
		if e.LastCompleted != nil {
			lastCompleted = e.LastCompleted.String()
		}
		reminders := "No"
		if e.Reminders {
			reminders = "Yes"
		}

		row := []string{
			e.Name,
			e.Category.Title(),
			string(e.IntervalType),
			strconv.Itoa(e.IntervalValue),
			e.NextDue.String(),
			lastCompleted,
			strconv.FormatFloat(e.EstimatedCost, 'f', 2, 64),
			reminders,
			e.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
