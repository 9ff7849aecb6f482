// Package seed loads a demo account with a realistic spread of errands and
// completion history, for trying the app without entering data by hand.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "upkeep-demo"
	DemoName     = "Demo User"
)

type demoErrand struct {
	name          string
	description   string
	category      model.Category
	intervalType  model.IntervalType
	intervalValue int
	dueInDays     int
	estimatedCost float64
	reminders     bool
	notes         string
}

var demoErrands = []demoErrand{
	{
		name: "Oil Change", description: "Full synthetic oil change for the car",
		category: model.CategoryVehicle, intervalType: model.IntervalMonths, intervalValue: 6,
		dueInDays: 5, estimatedCost: 75, reminders: true,
	},
	{
		name: "HVAC Filter", description: "Replace home HVAC air filter",
		category: model.CategoryHome, intervalType: model.IntervalMonths, intervalValue: 3,
		dueInDays: -2, estimatedCost: 25, reminders: true, notes: "Use MERV-13 filter",
	},
	{
		name: "Tire Rotation", description: "Rotate tires every 7,500 miles",
		category: model.CategoryVehicle, intervalType: model.IntervalMiles, intervalValue: 7500,
		dueInDays: 30, estimatedCost: 40, reminders: true,
	},
	{
		name: "Netflix Subscription", description: "Monthly streaming subscription",
		category: model.CategorySubscriptions, intervalType: model.IntervalMonths, intervalValue: 1,
		dueInDays: 12, estimatedCost: 15.99, reminders: false,
	},
	{
		name: "Dental Checkup", description: "Routine dental cleaning and checkup",
		category: model.CategoryHealth, intervalType: model.IntervalMonths, intervalValue: 6,
		dueInDays: 0, estimatedCost: 150, reminders: true, notes: "Dr. Smith at Main Street Dental",
	},
	{
		name: "Gutter Cleaning", description: "Clean out rain gutters",
		category: model.CategoryHome, intervalType: model.IntervalMonths, intervalValue: 6,
		dueInDays: 45, estimatedCost: 200, reminders: true,
	},
}

// Run creates the demo user with its errands and a year of plausible
// completion history. It fails if the demo account already exists.
func Run(store storage.Store, now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	user, err := store.CreateUser(DemoEmail, string(hash), DemoName)
	if err != nil {
		return fmt.Errorf("create demo user: %w", err)
	}

	today := model.DateOf(now)
	for _, d := range demoErrands {
		e, err := store.CreateErrand(&model.Errand{
			UserID:        user.ID,
			Name:          d.name,
			Description:   d.description,
			Category:      d.category,
			IntervalType:  d.intervalType,
			IntervalValue: d.intervalValue,
			NextDue:       today.AddDays(d.dueInDays),
			EstimatedCost: d.estimatedCost,
			Reminders:     d.reminders,
			Notes:         d.notes,
		})
		if err != nil {
			return fmt.Errorf("seed errand %q: %w", d.name, err)
		}

		if err := seedHistory(store, e, now); err != nil {
			return err
		}
	}
	return nil
}

// seedHistory backfills up to three completions per month-based errand,
// spaced one interval apart, each a couple of days off schedule with a cost
// jittered around the estimate. The final record restores the errand's due
// date, since RecordCompletion advances it as a side effect.
func seedHistory(store storage.Store, e *model.Errand, now time.Time) error {
	if e.IntervalType != model.IntervalMonths {
		return nil
	}

	count := 12 / e.IntervalValue
	if count > 3 {
		count = 3
	}

	today := model.DateOf(now)
	for i := count; i >= 1; i-- {
		scheduled := today.AddDays(-i * e.IntervalValue * 30)
		completed := scheduled.AddDays(rand.Intn(5) - 2)
		cost := float64(int(e.EstimatedCost*(0.8+rand.Float64()*0.4)*100)) / 100

		nextDue := e.NextDue
		if i > 1 {
			next, ok := errand.ComputeNextDue(completed, e.IntervalType, e.IntervalValue)
			if ok {
				nextDue = next
			}
		}

		if _, err := store.RecordCompletion(storage.RecordCompletionParams{
			ErrandID:      e.ID,
			UserID:        e.UserID,
			CompletedDate: completed,
			ScheduledDate: scheduled,
			Cost:          cost,
			NextDue:       nextDue,
		}); err != nil {
			return fmt.Errorf("seed history for %q: %w", e.Name, err)
		}
	}
	return nil
}
