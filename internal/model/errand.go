package model

import (
	"strings"
	"time"
)

type Category string

const (
	CategoryVehicle       Category = "vehicle"
	CategoryHome          Category = "home"
	CategorySubscriptions Category = "subscriptions"
	CategoryHealth        Category = "health"
	CategoryOther         Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryVehicle,
	CategoryHome,
	CategorySubscriptions,
	CategoryHealth,
	CategoryOther,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryVehicle, CategoryHome, CategorySubscriptions, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// Title returns the capitalized display name, e.g. "Vehicle".
func (c Category) Title() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

type IntervalType string

const (
	IntervalMonths IntervalType = "months"
	IntervalMiles  IntervalType = "miles"
)

func (t IntervalType) Valid() bool {
	return t == IntervalMonths || t == IntervalMiles
}

// Errand is a recurring obligation with a due date and repeat interval.
// last_completed is nil until the first completion is recorded.
type Errand struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Category      Category     `json:"category"`
	IntervalType  IntervalType `json:"interval_type"`
	IntervalValue int          `json:"interval_value"`
	NextDue       Date         `json:"next_due"`
	LastCompleted *Date        `json:"last_completed"`
	EstimatedCost float64      `json:"estimated_cost"`
	Reminders     bool         `json:"reminders"`
	Notes         string       `json:"notes"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}
