package model

import "time"

// DefaultRemindDaysBefore is the reminder lead time used when a profile has
// not set one.
const DefaultRemindDaysBefore = 3

// Profile holds per-user settings. Its ID equals the owning user's ID.
type Profile struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	RemindDaysBefore int       `json:"remind_days_before"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
