package model

import "time"

// Completion records one completion event for an errand. completed_date is
// when the errand was carried out; scheduled_date is the due date it fulfilled.
type Completion struct {
	ID            string    `json:"id"`
	ErrandID      string    `json:"errand_id"`
	UserID        string    `json:"user_id"`
	CompletedDate Date      `json:"completed_date"`
	ScheduledDate Date      `json:"scheduled_date"`
	Cost          float64   `json:"cost"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}
