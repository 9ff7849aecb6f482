// Package analytics reduces a user's completion history into spend and
// compliance views over a trailing time window. Everything here is a pure
// function of its inputs: no storage, no clocks, no shared state, so results
// are safe to cache and recompute freely.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/model"
)

// Period selects the trailing window for aggregation.
type Period string

const (
	Period30d Period = "30d"
	Period3m  Period = "3m"
	Period6m  Period = "6m"
	Period12m Period = "12m"
)

// ParsePeriod validates a period selector, defaulting to 30d for "".
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return Period30d, nil
	case Period30d, Period3m, Period6m, Period12m:
		return Period(s), nil
	}
	return "", fmt.Errorf("invalid period %q", s)
}

// Months returns the window length in trailing months.
func (p Period) Months() int {
	switch p {
	case Period3m:
		return 3
	case Period6m:
		return 6
	case Period12m:
		return 12
	default:
		return 1
	}
}

// MonthlySpendRow is one month's spend, broken down by category.
type MonthlySpendRow struct {
	Month      string                     `json:"month"`      // "Jan"
	FullMonth  string                     `json:"full_month"` // "2024-01"
	Categories map[model.Category]float64 `json:"categories"`
	Total      float64                    `json:"total"`
}

// CategoryCost is a category's total spend over the window.
type CategoryCost struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ErrandCost is an errand's total spend over the window.
type ErrandCost struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// TimingCount is one slice of the on-time/late/early distribution.
type TimingCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// MonthlyRate is one month's completion rate as a whole percentage.
type MonthlyRate struct {
	Month string `json:"month"`
	Rate  int    `json:"rate"`
}

// CategoryTiming counts completion timings within one category.
type CategoryTiming struct {
	Name   string `json:"name"`
	OnTime int    `json:"on_time"`
	Late   int    `json:"late"`
	Early  int    `json:"early"`
}

// Snapshot bundles every aggregate the analytics views consume. It is
// recomputed from inputs on each call and holds no references back into them.
type Snapshot struct {
	MonthlySpend          []MonthlySpendRow                     `json:"monthly_spend"`
	CategoryCosts         []CategoryCost                        `json:"category_costs"`
	TopErrands            []ErrandCost                          `json:"top_errands"`
	CompletionTiming      []TimingCount                         `json:"completion_timing"`
	MonthlyCompletionRate []MonthlyRate                         `json:"monthly_completion_rate"`
	CategoryCompletion    []CategoryTiming                      `json:"category_completion"`
	CostMatrix            map[string]map[model.Category]float64 `json:"cost_matrix"`

	TotalSpent       float64 `json:"total_spent"`
	AvgMonthly       float64 `json:"avg_monthly"`
	CompletionRate   int     `json:"completion_rate"`
	AvgDelay         float64 `json:"avg_delay"`
	TotalCompletions int     `json:"total_completions"`

	SpentChange float64 `json:"spent_change"`
	AvgChange   float64 `json:"avg_change"`
	RateChange  float64 `json:"rate_change"`
}

type window struct {
	start  model.Date
	end    model.Date
	months int
}

// resolveWindow maps a period to its inclusive date range: the start of the
// month monthsBack before now through the end of the current month.
func resolveWindow(p Period, now time.Time) window {
	months := p.Months()
	start := time.Date(now.Year(), now.Month()-time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	return window{
		start:  model.DateOf(start),
		end:    model.DateOf(end),
		months: months,
	}
}

func (w window) contains(d model.Date) bool {
	return !d.Before(w.start) && !d.After(w.end)
}

// previous returns the window of equal length immediately before w. Both
// windows are closed intervals, so the boundary day belongs to each.
func (w window) previous() window {
	start := time.Date(w.start.Year(), w.start.Month()-time.Month(w.months), 1, 0, 0, 0, 0, time.UTC)
	return window{
		start:  model.DateOf(start),
		end:    w.start,
		months: w.months,
	}
}

func filterWindow(history []model.Completion, w window) []model.Completion {
	var out []model.Completion
	for _, h := range history {
		if w.contains(h.CompletedDate) {
			out = append(out, h)
		}
	}
	return out
}

// Aggregate reduces the user's completion history and errand collection into
// a Snapshot for the given period, evaluated as of now. History records whose
// errand no longer exists are silently dropped: the errand was deleted after
// the completion was logged, and without it there is no category to join to.
func Aggregate(history []model.Completion, errands []model.Errand, period Period, now time.Time) *Snapshot {
	win := resolveWindow(period, now)
	filtered := filterWindow(history, win)

	byID := make(map[string]model.Errand, len(errands))
	for _, e := range errands {
		byID[e.ID] = e
	}

	snap := &Snapshot{
		CostMatrix:       make(map[string]map[model.Category]float64),
		TotalCompletions: len(filtered),
	}

	// Monthly spend by (year-month, category). Months absent from the data
	// are omitted, never zero-filled.
	monthlySpend := make(map[string]map[model.Category]float64)
	for _, h := range filtered {
		e, ok := byID[h.ErrandID]
		if !ok {
			continue
		}
		key := h.CompletedDate.YearMonth()
		if monthlySpend[key] == nil {
			monthlySpend[key] = make(map[model.Category]float64)
		}
		monthlySpend[key][e.Category] += h.Cost
	}
	spendMonths := sortedKeys(monthlySpend)
	for _, key := range spendMonths {
		cats := monthlySpend[key]
		row := MonthlySpendRow{
			Month:      monthShort(key),
			FullMonth:  key,
			Categories: cats,
		}
		for _, v := range cats {
			row.Total += v
		}
		snap.MonthlySpend = append(snap.MonthlySpend, row)
	}

	// Category cost distribution, in first-encounter order, zero totals
	// excluded.
	categoryCosts := make(map[model.Category]float64)
	var categoryOrder []model.Category
	for _, h := range filtered {
		e, ok := byID[h.ErrandID]
		if !ok {
			continue
		}
		if _, seen := categoryCosts[e.Category]; !seen {
			categoryOrder = append(categoryOrder, e.Category)
		}
		categoryCosts[e.Category] += h.Cost
	}
	for _, cat := range categoryOrder {
		if categoryCosts[cat] > 0 {
			snap.CategoryCosts = append(snap.CategoryCosts, CategoryCost{
				Name:  cat.Title(),
				Value: categoryCosts[cat],
			})
		}
	}

	// Top five errands by cost; stable sort keeps encounter order for ties.
	errandTotals := make(map[string]int) // errand ID -> index into slice
	var errandCosts []ErrandCost
	for _, h := range filtered {
		e, ok := byID[h.ErrandID]
		if !ok {
			continue
		}
		idx, seen := errandTotals[e.ID]
		if !seen {
			idx = len(errandCosts)
			errandTotals[e.ID] = idx
			errandCosts = append(errandCosts, ErrandCost{Name: e.Name})
		}
		errandCosts[idx].Total += h.Cost
	}
	sort.SliceStable(errandCosts, func(i, j int) bool {
		return errandCosts[i].Total > errandCosts[j].Total
	})
	if len(errandCosts) > 5 {
		errandCosts = errandCosts[:5]
	}
	snap.TopErrands = errandCosts

	// Completion timing distribution.
	var onTime, late, early int
	var lateDays int
	for _, h := range filtered {
		switch status := errand.Classify(h.CompletedDate, h.ScheduledDate); status.Type {
		case errand.CompletionOnTime:
			onTime++
		case errand.CompletionLate:
			late++
			lateDays += status.DaysDiff
		case errand.CompletionEarly:
			early++
		}
	}
	for _, tc := range []TimingCount{
		{"On Time", onTime},
		{"Late", late},
		{"Early", early},
	} {
		if tc.Value > 0 {
			snap.CompletionTiming = append(snap.CompletionTiming, tc)
		}
	}

	// Monthly completion rate. Every filtered record is by construction a
	// completion, so the rate is always 100 for months with data. The
	// computation is kept as-is rather than simplified: the shape allows a
	// scheduled-vs-actual denominator later without changing consumers.
	monthlyDone := make(map[string]struct{ total, completed int })
	for _, h := range filtered {
		key := h.CompletedDate.YearMonth()
		mc := monthlyDone[key]
		mc.total++
		mc.completed++
		monthlyDone[key] = mc
	}
	for _, key := range sortedKeys(monthlyDone) {
		mc := monthlyDone[key]
		rate := 0
		if mc.total > 0 {
			rate = int(math.Round(float64(mc.completed) / float64(mc.total) * 100))
		}
		snap.MonthlyCompletionRate = append(snap.MonthlyCompletionRate, MonthlyRate{
			Month: monthShort(key),
			Rate:  rate,
		})
	}

	// Per-category timing breakdown, in first-encounter order.
	catTiming := make(map[model.Category]*CategoryTiming)
	var catTimingOrder []model.Category
	for _, h := range filtered {
		e, ok := byID[h.ErrandID]
		if !ok {
			continue
		}
		ct, seen := catTiming[e.Category]
		if !seen {
			ct = &CategoryTiming{Name: e.Category.Title()}
			catTiming[e.Category] = ct
			catTimingOrder = append(catTimingOrder, e.Category)
		}
		switch errand.Classify(h.CompletedDate, h.ScheduledDate).Type {
		case errand.CompletionOnTime:
			ct.OnTime++
		case errand.CompletionLate:
			ct.Late++
		case errand.CompletionEarly:
			ct.Early++
		}
	}
	for _, cat := range catTimingOrder {
		snap.CategoryCompletion = append(snap.CategoryCompletion, *catTiming[cat])
	}

	// Month x category cost matrix keyed by display label.
	for _, h := range filtered {
		e, ok := byID[h.ErrandID]
		if !ok {
			continue
		}
		label := h.CompletedDate.Time().Format("Jan 2006")
		if snap.CostMatrix[label] == nil {
			snap.CostMatrix[label] = make(map[model.Category]float64)
		}
		snap.CostMatrix[label][e.Category] += h.Cost
	}

	// KPIs. The window always spans at least one month, so AvgMonthly needs
	// no zero guard.
	for _, h := range filtered {
		snap.TotalSpent += h.Cost
	}
	snap.AvgMonthly = snap.TotalSpent / float64(win.months)
	if snap.TotalCompletions > 0 {
		snap.CompletionRate = int(math.Round(float64(onTime) / float64(snap.TotalCompletions) * 100))
	}
	if late > 0 {
		snap.AvgDelay = float64(lateDays) / float64(late)
	}

	// Period-over-period comparison. A zero previous value yields a zero
	// change: "no prior data" and "no change" are deliberately conflated.
	prev := filterWindow(history, win.previous())
	var prevSpent float64
	var prevOnTime int
	for _, h := range prev {
		prevSpent += h.Cost
		if errand.Classify(h.CompletedDate, h.ScheduledDate).Type == errand.CompletionOnTime {
			prevOnTime++
		}
	}
	prevAvgMonthly := prevSpent / float64(win.months)
	prevRate := 0
	if len(prev) > 0 {
		prevRate = int(math.Round(float64(prevOnTime) / float64(len(prev)) * 100))
	}

	if prevSpent > 0 {
		snap.SpentChange = (snap.TotalSpent - prevSpent) / prevSpent * 100
	}
	if prevAvgMonthly > 0 {
		snap.AvgChange = (snap.AvgMonthly - prevAvgMonthly) / prevAvgMonthly * 100
	}
	if prevRate > 0 {
		snap.RateChange = float64(snap.CompletionRate - prevRate)
	}

	return snap
}

// monthShort turns a "2006-01" key into its short month name.
func monthShort(yearMonth string) string {
	t, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return yearMonth
	}
	return t.Format("Jan")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
