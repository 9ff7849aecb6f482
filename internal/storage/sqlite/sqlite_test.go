package sqlite

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store) *model.User {
	t.Helper()
	u, err := s.CreateUser("test@example.com", "hash", "Test User")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func date(t *testing.T, str string) model.Date {
	t.Helper()
	d, err := model.ParseDate(str)
	if err != nil {
		t.Fatalf("parse date %s: %v", str, err)
	}
	return d
}

func TestCreateUserAlsoCreatesProfile(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	p, err := s.GetProfile(u.ID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p == nil {
		t.Fatal("expected profile for new user")
	}
	if p.Name != "Test User" {
		t.Errorf("name = %q, want %q", p.Name, "Test User")
	}
	if p.RemindDaysBefore != model.DefaultRemindDaysBefore {
		t.Errorf("remind_days_before = %d, want %d", p.RemindDaysBefore, model.DefaultRemindDaysBefore)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := setupTestStore(t)
	createTestUser(t, s)

	_, err := s.CreateUser("test@example.com", "hash2", "Other")
	if err != storage.ErrConflict {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestErrandCRUD(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	e, err := s.CreateErrand(&model.Errand{
		UserID:        u.ID,
		Name:          "Oil Change",
		Description:   "Full synthetic",
		Category:      model.CategoryVehicle,
		IntervalType:  model.IntervalMonths,
		IntervalValue: 6,
		NextDue:       date(t, "2024-09-15"),
		EstimatedCost: 75,
		Reminders:     true,
	})
	if err != nil {
		t.Fatalf("create errand: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected generated id")
	}
	if e.LastCompleted != nil {
		t.Error("last_completed should be nil for a new errand")
	}

	got, err := s.GetErrand(e.ID)
	if err != nil {
		t.Fatalf("get errand: %v", err)
	}
	if got.Name != "Oil Change" || got.Category != model.CategoryVehicle {
		t.Errorf("got = %+v", got)
	}
	if got.NextDue.String() != "2024-09-15" {
		t.Errorf("next_due = %s, want 2024-09-15", got.NextDue)
	}

	got.Name = "Oil + Filter Change"
	updated, err := s.UpdateErrand(got)
	if err != nil {
		t.Fatalf("update errand: %v", err)
	}
	if updated.Name != "Oil + Filter Change" {
		t.Errorf("updated name = %q", updated.Name)
	}

	if err := s.DeleteErrand(e.ID); err != nil {
		t.Fatalf("delete errand: %v", err)
	}
	got, err = s.GetErrand(e.ID)
	if err != nil {
		t.Fatalf("get deleted errand: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted errand")
	}
}

func TestListErrandsSortedByNextDue(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	for _, e := range []struct {
		name string
		due  string
	}{
		{"Later", "2024-12-01"},
		{"Soonest", "2024-07-01"},
		{"Middle", "2024-09-01"},
	} {
		if _, err := s.CreateErrand(&model.Errand{
			UserID: u.ID, Name: e.name, Category: model.CategoryOther,
			IntervalType: model.IntervalMonths, IntervalValue: 1,
			NextDue: date(t, e.due),
		}); err != nil {
			t.Fatalf("create errand %s: %v", e.name, err)
		}
	}

	errands, err := s.ListErrands(u.ID)
	if err != nil {
		t.Fatalf("list errands: %v", err)
	}
	if len(errands) != 3 {
		t.Fatalf("len = %d, want 3", len(errands))
	}
	want := []string{"Soonest", "Middle", "Later"}
	for i, name := range want {
		if errands[i].Name != name {
			t.Errorf("errands[%d] = %q, want %q", i, errands[i].Name, name)
		}
	}
}

func TestRecordCompletionUpdatesErrandAtomically(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	e, err := s.CreateErrand(&model.Errand{
		UserID: u.ID, Name: "HVAC Filter", Category: model.CategoryHome,
		IntervalType: model.IntervalMonths, IntervalValue: 3,
		NextDue: date(t, "2024-06-01"), EstimatedCost: 25,
	})
	if err != nil {
		t.Fatalf("create errand: %v", err)
	}

	newEstimate := 30.0
	c, err := s.RecordCompletion(storage.RecordCompletionParams{
		ErrandID:      e.ID,
		UserID:        u.ID,
		CompletedDate: date(t, "2024-06-03"),
		ScheduledDate: date(t, "2024-06-01"),
		Cost:          28.50,
		Notes:         "MERV-13",
		NextDue:       date(t, "2024-09-03"),
		EstimatedCost: &newEstimate,
	})
	if err != nil {
		t.Fatalf("record completion: %v", err)
	}
	if c.Cost != 28.50 || c.ScheduledDate.String() != "2024-06-01" {
		t.Errorf("completion = %+v", c)
	}

	// The errand's schedule and estimate moved in the same write.
	got, err := s.GetErrand(e.ID)
	if err != nil {
		t.Fatalf("get errand: %v", err)
	}
	if got.NextDue.String() != "2024-09-03" {
		t.Errorf("next_due = %s, want 2024-09-03", got.NextDue)
	}
	if got.LastCompleted == nil || got.LastCompleted.String() != "2024-06-03" {
		t.Errorf("last_completed = %v, want 2024-06-03", got.LastCompleted)
	}
	if got.EstimatedCost != 30 {
		t.Errorf("estimated_cost = %v, want 30", got.EstimatedCost)
	}
}

func TestRecordCompletionKeepsEstimateWhenAbsent(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	e, err := s.CreateErrand(&model.Errand{
		UserID: u.ID, Name: "Checkup", Category: model.CategoryHealth,
		IntervalType: model.IntervalMonths, IntervalValue: 6,
		NextDue: date(t, "2024-06-01"), EstimatedCost: 150,
	})
	if err != nil {
		t.Fatalf("create errand: %v", err)
	}

	if _, err := s.RecordCompletion(storage.RecordCompletionParams{
		ErrandID: e.ID, UserID: u.ID,
		CompletedDate: date(t, "2024-06-01"), ScheduledDate: date(t, "2024-06-01"),
		Cost: 140, NextDue: date(t, "2024-12-01"),
	}); err != nil {
		t.Fatalf("record completion: %v", err)
	}

	got, _ := s.GetErrand(e.ID)
	if got.EstimatedCost != 150 {
		t.Errorf("estimated_cost = %v, want unchanged 150", got.EstimatedCost)
	}
}

func TestDeleteErrandCascadesHistory(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	e, err := s.CreateErrand(&model.Errand{
		UserID: u.ID, Name: "Oil Change", Category: model.CategoryVehicle,
		IntervalType: model.IntervalMonths, IntervalValue: 6,
		NextDue: date(t, "2024-06-01"),
	})
	if err != nil {
		t.Fatalf("create errand: %v", err)
	}

	for _, day := range []string{"2024-01-05", "2024-06-02"} {
		if _, err := s.RecordCompletion(storage.RecordCompletionParams{
			ErrandID: e.ID, UserID: u.ID,
			CompletedDate: date(t, day), ScheduledDate: date(t, day),
			Cost: 75, NextDue: date(t, "2024-12-01"),
		}); err != nil {
			t.Fatalf("record completion: %v", err)
		}
	}

	history, err := s.ListCompletionsByErrand(e.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %d records, want 2", len(history))
	}

	if err := s.DeleteErrand(e.ID); err != nil {
		t.Fatalf("delete errand: %v", err)
	}

	history, err = s.ListCompletionsByErrand(e.ID)
	if err != nil {
		t.Fatalf("list history after delete: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d records after delete, want 0", len(history))
	}
}

// Foreign key enforcement is per-connection state, so the cascade has to
// hold on every connection the pool hands out, not just the one that ran
// the migrations. Dropping idle connections forces each statement onto a
// fresh connection.
func TestDeleteErrandCascadesAcrossConnections(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "upkeep.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	s.DB().SetMaxIdleConns(0)

	u := createTestUser(t, s)
	e, err := s.CreateErrand(&model.Errand{
		UserID: u.ID, Name: "Oil Change", Category: model.CategoryVehicle,
		IntervalType: model.IntervalMonths, IntervalValue: 6,
		NextDue: date(t, "2024-06-01"),
	})
	if err != nil {
		t.Fatalf("create errand: %v", err)
	}

	for _, day := range []string{"2024-01-05", "2024-06-02"} {
		if _, err := s.RecordCompletion(storage.RecordCompletionParams{
			ErrandID: e.ID, UserID: u.ID,
			CompletedDate: date(t, day), ScheduledDate: date(t, day),
			Cost: 75, NextDue: date(t, "2024-12-01"),
		}); err != nil {
			t.Fatalf("record completion: %v", err)
		}
	}

	if err := s.DeleteErrand(e.ID); err != nil {
		t.Fatalf("delete errand: %v", err)
	}

	history, err := s.ListCompletionsByErrand(e.ID)
	if err != nil {
		t.Fatalf("list history after delete: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d records after delete, want 0", len(history))
	}
}

// An in-memory database lives and dies with its connection; the pool must
// stay at one so every caller sees the same database.
func TestMemoryDatabaseSingleConnection(t *testing.T) {
	s := setupTestStore(t)

	if got := s.DB().Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("max open conns = %d, want 1 for in-memory database", got)
	}

	createTestUser(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := s.GetUserByEmail("test@example.com")
			if err != nil {
				t.Errorf("concurrent read: %v", err)
				return
			}
			if u == nil {
				t.Error("concurrent read saw an empty database")
			}
		}()
	}
	wg.Wait()
}

func TestDeleteErrandsBulk(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	var ids []string
	for _, name := range []string{"A", "B", "C"} {
		e, err := s.CreateErrand(&model.Errand{
			UserID: u.ID, Name: name, Category: model.CategoryOther,
			IntervalType: model.IntervalMonths, IntervalValue: 1,
			NextDue: date(t, "2024-06-01"),
		})
		if err != nil {
			t.Fatalf("create errand %s: %v", name, err)
		}
		ids = append(ids, e.ID)
	}

	if err := s.DeleteErrands(ids[:2]); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}

	errands, _ := s.ListErrands(u.ID)
	if len(errands) != 1 || errands[0].Name != "C" {
		t.Errorf("remaining = %+v, want only C", errands)
	}
}

func TestListCompletionsNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	e, err := s.CreateErrand(&model.Errand{
		UserID: u.ID, Name: "Sub", Category: model.CategorySubscriptions,
		IntervalType: model.IntervalMonths, IntervalValue: 1,
		NextDue: date(t, "2024-06-01"),
	})
	if err != nil {
		t.Fatalf("create errand: %v", err)
	}

	for _, day := range []string{"2024-03-01", "2024-05-01", "2024-04-01"} {
		if _, err := s.RecordCompletion(storage.RecordCompletionParams{
			ErrandID: e.ID, UserID: u.ID,
			CompletedDate: date(t, day), ScheduledDate: date(t, day),
			Cost: 15.99, NextDue: date(t, "2024-06-01"),
		}); err != nil {
			t.Fatalf("record completion: %v", err)
		}
	}

	history, err := s.ListCompletions(u.ID)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	want := []string{"2024-05-01", "2024-04-01", "2024-03-01"}
	for i, day := range want {
		if history[i].CompletedDate.String() != day {
			t.Errorf("history[%d] = %s, want %s", i, history[i].CompletedDate, day)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)

	sess, err := s.CreateSession(u.ID, "tok-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.UserID != u.ID {
		t.Errorf("user_id = %q, want %q", sess.UserID, u.ID)
	}

	got, err := s.GetSessionByToken("tok-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil {
		t.Fatal("expected session")
	}

	if _, err := s.CreateSession(u.ID, "tok-expired", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("create expired session: %v", err)
	}
	n, err := s.DeleteExpiredSessions(time.Now())
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	if err := s.DeleteSessionByToken("tok-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	got, _ = s.GetSessionByToken("tok-1")
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestReminderLog(t *testing.T) {
	s := setupTestStore(t)
	u := createTestUser(t, s)
	due := date(t, "2024-06-01")

	sent, err := s.ReminderWasSent(u.ID, "e1", due)
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent")
	}

	if err := s.MarkReminderSent(u.ID, "e1", due); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	// Marking twice is a no-op, not an error.
	if err := s.MarkReminderSent(u.ID, "e1", due); err != nil {
		t.Fatalf("mark sent again: %v", err)
	}

	sent, _ = s.ReminderWasSent(u.ID, "e1", due)
	if !sent {
		t.Error("expected sent")
	}

	if err := s.DeleteReminderLogBefore(time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sent, _ = s.ReminderWasSent(u.ID, "e1", due)
	if sent {
		t.Error("expected cleared after cleanup")
	}
}
