package errand

import (
	"testing"
	"time"

	"github.com/ewhitmore/upkeep/internal/model"
)

var today = model.NewDate(2024, time.March, 15)

func TestComputeStatusOverdue(t *testing.T) {
	info := ComputeStatus(model.NewDate(2024, time.March, 10), today, 3)
	if info.Status != StatusOverdue {
		t.Errorf("status = %q, want %q", info.Status, StatusOverdue)
	}
	if info.DaysUntilDue != -5 {
		t.Errorf("days = %d, want -5", info.DaysUntilDue)
	}
	if info.Label != "5d overdue" {
		t.Errorf("label = %q, want %q", info.Label, "5d overdue")
	}
}

func TestComputeStatusBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		due    model.Date
		remind int
		status Status
		label  string
	}{
		{"due today", today, 3, StatusDueToday, "Due today"},
		{"due tomorrow", today.AddDays(1), 3, StatusDueTomorrow, "Due tomorrow"},
		{"within lead time", today.AddDays(3), 3, StatusDueSoon, "3d left"},
		{"just past lead time", today.AddDays(4), 3, StatusOnTrack, "4d left"},
		{"zero lead time", today.AddDays(2), 0, StatusOnTrack, "2d left"},
		{"wide lead time", today.AddDays(10), 14, StatusDueSoon, "10d left"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ComputeStatus(tt.due, today, tt.remind)
			if info.Status != tt.status {
				t.Errorf("status = %q, want %q", info.Status, tt.status)
			}
			if info.Label != tt.label {
				t.Errorf("label = %q, want %q", info.Label, tt.label)
			}
		})
	}
}

func TestComputeStatusOneDayOverdue(t *testing.T) {
	info := ComputeStatus(today.AddDays(-1), today, 3)
	if info.Status != StatusOverdue {
		t.Errorf("status = %q, want %q", info.Status, StatusOverdue)
	}
	if info.Label != "1d overdue" {
		t.Errorf("label = %q, want %q", info.Label, "1d overdue")
	}
}

func TestComputeNextDueMonths(t *testing.T) {
	completed := model.NewDate(2024, time.March, 15)
	next, ok := ComputeNextDue(completed, model.IntervalMonths, 6)
	if !ok {
		t.Fatal("expected ok for month interval")
	}
	if got := next.String(); got != "2024-09-15" {
		t.Errorf("next = %s, want 2024-09-15", got)
	}
}

func TestComputeNextDueClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		completed string
		months    int
		want      string
	}{
		{"2024-01-31", 1, "2024-02-29"}, // leap year
		{"2023-01-31", 1, "2023-02-28"},
		{"2024-03-31", 1, "2024-04-30"},
		{"2024-08-31", 6, "2025-02-28"},
		{"2024-12-15", 1, "2025-01-15"}, // year rollover, no clamp
	}

	for _, tt := range tests {
		completed, err := model.ParseDate(tt.completed)
		if err != nil {
			t.Fatalf("parse %s: %v", tt.completed, err)
		}
		next, ok := ComputeNextDue(completed, model.IntervalMonths, tt.months)
		if !ok {
			t.Fatalf("%s + %d months: expected ok", tt.completed, tt.months)
		}
		if got := next.String(); got != tt.want {
			t.Errorf("%s + %d months = %s, want %s", tt.completed, tt.months, got, tt.want)
		}
	}
}

func TestComputeNextDueMiles(t *testing.T) {
	next, ok := ComputeNextDue(model.NewDate(2024, time.March, 15), model.IntervalMiles, 7500)
	if ok {
		t.Error("expected ok=false for mile interval")
	}
	if !next.IsZero() {
		t.Errorf("next = %v, want zero date", next)
	}
}

func TestForErrand(t *testing.T) {
	e := model.Errand{
		ID:      "e1",
		Name:    "Oil Change",
		NextDue: today.AddDays(2),
	}
	ws := ForErrand(e, today, 3)
	if ws.Status != StatusDueSoon {
		t.Errorf("status = %q, want %q", ws.Status, StatusDueSoon)
	}
	if ws.Name != "Oil Change" {
		t.Errorf("name = %q, want %q", ws.Name, "Oil Change")
	}
	if ws.DaysUntilDue != 2 {
		t.Errorf("days = %d, want 2", ws.DaysUntilDue)
	}
}
