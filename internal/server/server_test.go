package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/push"
	"github.com/ewhitmore/upkeep/internal/storage/memory"
)

// testClient wraps an httptest server with a cookie-jar client so the
// session survives across calls.
type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	store := memory.New()
	s := New(store, push.NewService("", "", ""), slog.Default())

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testClient{t: t, srv: srv, client: &http.Client{Jar: jar}}
}

func (c *testClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func (c *testClient) register(email string) {
	c.t.Helper()
	resp, body := c.do("POST", "/register", map[string]string{
		"email": email, "password": "password123", "name": "Test User",
	})
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("register: status = %d, body = %s", resp.StatusCode, body)
	}
}

func (c *testClient) createErrand(req map[string]any) string {
	c.t.Helper()
	resp, body := c.do("POST", "/api/errands", req)
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("create errand: status = %d, body = %s", resp.StatusCode, body)
	}
	var e model.Errand
	if err := json.Unmarshal(body, &e); err != nil {
		c.t.Fatalf("decode errand: %v", err)
	}
	return e.ID
}

func daysFromNow(d int) string {
	return model.DateOf(time.Now()).AddDays(d).String()
}

func TestHealth(t *testing.T) {
	c := newTestClient(t)
	resp, body := c.do("GET", "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "ok") {
		t.Errorf("body = %s", body)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	c := newTestClient(t)
	resp, _ := c.do("GET", "/api/errands", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRegisterCreatesSessionAndProfile(t *testing.T) {
	c := newTestClient(t)
	c.register("flow@example.com")

	resp, body := c.do("GET", "/api/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile: status = %d, body = %s", resp.StatusCode, body)
	}
	var p model.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if p.Name != "Test User" {
		t.Errorf("name = %q", p.Name)
	}
	if p.RemindDaysBefore != model.DefaultRemindDaysBefore {
		t.Errorf("remind_days_before = %d, want %d", p.RemindDaysBefore, model.DefaultRemindDaysBefore)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	c := newTestClient(t)
	c.register("dup@example.com")

	resp, _ := c.do("POST", "/register", map[string]string{
		"email": "dup@example.com", "password": "password123", "name": "Again",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := newTestClient(t)
	c.register("login@example.com")

	resp, _ := c.do("POST", "/login", map[string]string{
		"email": "login@example.com", "password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	c := newTestClient(t)
	c.register("bye@example.com")

	resp, _ := c.do("POST", "/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: status = %d", resp.StatusCode)
	}

	resp, _ = c.do("GET", "/api/errands", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want 401", resp.StatusCode)
	}
}

func TestErrandValidation(t *testing.T) {
	c := newTestClient(t)
	c.register("valid@example.com")

	cases := []struct {
		name string
		req  map[string]any
	}{
		{"missing name", map[string]any{
			"category": "home", "interval_type": "months", "interval_value": 1, "next_due": daysFromNow(10),
		}},
		{"bad category", map[string]any{
			"name": "X", "category": "boats", "interval_type": "months", "interval_value": 1, "next_due": daysFromNow(10),
		}},
		{"bad interval type", map[string]any{
			"name": "X", "category": "home", "interval_type": "weeks", "interval_value": 1, "next_due": daysFromNow(10),
		}},
		{"zero interval", map[string]any{
			"name": "X", "category": "home", "interval_type": "months", "interval_value": 0, "next_due": daysFromNow(10),
		}},
		{"negative cost", map[string]any{
			"name": "X", "category": "home", "interval_type": "months", "interval_value": 1,
			"next_due": daysFromNow(10), "estimated_cost": -5,
		}},
		{"malformed date", map[string]any{
			"name": "X", "category": "home", "interval_type": "months", "interval_value": 1, "next_due": "06/15/2024",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := c.do("POST", "/api/errands", tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestErrandListIncludesStatus(t *testing.T) {
	c := newTestClient(t)
	c.register("status@example.com")

	c.createErrand(map[string]any{
		"name": "HVAC Filter", "category": "home",
		"interval_type": "months", "interval_value": 3,
		"next_due": daysFromNow(1), "estimated_cost": 25,
	})

	resp, body := c.do("GET", "/api/errands", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}

	var list []struct {
		model.Errand
		Status       errand.Status `json:"status"`
		StatusLabel  string        `json:"status_label"`
		DaysUntilDue int           `json:"days_until_due"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len = %d, want 1", len(list))
	}
	if list[0].Status != errand.StatusDueTomorrow {
		t.Errorf("status = %q, want %q", list[0].Status, errand.StatusDueTomorrow)
	}
	if list[0].StatusLabel != "Due tomorrow" {
		t.Errorf("label = %q, want Due tomorrow", list[0].StatusLabel)
	}
	if list[0].DaysUntilDue != 1 {
		t.Errorf("days_until_due = %d, want 1", list[0].DaysUntilDue)
	}
}

func TestCompleteMonthsErrand(t *testing.T) {
	c := newTestClient(t)
	c.register("complete@example.com")

	id := c.createErrand(map[string]any{
		"name": "Dental Checkup", "category": "health",
		"interval_type": "months", "interval_value": 6,
		"next_due": daysFromNow(0), "estimated_cost": 150,
	})

	completed := model.DateOf(time.Now())
	resp, body := c.do("POST", "/api/errands/"+id+"/complete", map[string]any{
		"completed_date": completed.String(), "cost": 140,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("complete: status = %d, body = %s", resp.StatusCode, body)
	}

	var result struct {
		Completion model.Completion `json:"completion"`
		Status     struct {
			Type  errand.CompletionType `json:"type"`
			Label string                `json:"label"`
		} `json:"status"`
		NextDue model.Date `json:"next_due"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	if result.Status.Type != errand.CompletionOnTime {
		t.Errorf("completion type = %q, want on-time", result.Status.Type)
	}
	wantNext, _ := errand.ComputeNextDue(completed, model.IntervalMonths, 6)
	if !result.NextDue.Equal(wantNext) {
		t.Errorf("next_due = %s, want %s", result.NextDue, wantNext)
	}

	// History shows the record with its timing classification and totals.
	resp, body = c.do("GET", "/api/completions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("completions: status = %d", resp.StatusCode)
	}
	var history struct {
		History []struct {
			model.Completion
			Status errand.CompletionStatus `json:"status"`
		} `json:"history"`
		TotalCost   float64 `json:"total_cost"`
		AverageCost float64 `json:"average_cost"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.History) != 1 {
		t.Fatalf("history len = %d, want 1", len(history.History))
	}
	if history.History[0].Cost != 140 {
		t.Errorf("cost = %v, want 140", history.History[0].Cost)
	}
	if history.TotalCost != 140 || history.AverageCost != 140 {
		t.Errorf("totals = %v / %v, want 140 / 140", history.TotalCost, history.AverageCost)
	}

	// The per-errand view returns the same record.
	resp, body = c.do("GET", "/api/errands/"+id+"/completions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("errand completions: status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode errand history: %v", err)
	}
	if len(history.History) != 1 {
		t.Errorf("errand history len = %d, want 1", len(history.History))
	}
}

func TestCompleteMilesErrandRequiresNextDue(t *testing.T) {
	c := newTestClient(t)
	c.register("miles@example.com")

	id := c.createErrand(map[string]any{
		"name": "Tire Rotation", "category": "vehicle",
		"interval_type": "miles", "interval_value": 7500,
		"next_due": daysFromNow(30), "estimated_cost": 40,
	})

	resp, _ := c.do("POST", "/api/errands/"+id+"/complete", map[string]any{
		"completed_date": daysFromNow(0), "cost": 40,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("without next_due: status = %d, want 400", resp.StatusCode)
	}

	resp, body := c.do("POST", "/api/errands/"+id+"/complete", map[string]any{
		"completed_date": daysFromNow(0), "cost": 40, "next_due": daysFromNow(120),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("with next_due: status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestDeleteErrandRemovesHistory(t *testing.T) {
	c := newTestClient(t)
	c.register("cascade@example.com")

	id := c.createErrand(map[string]any{
		"name": "Oil Change", "category": "vehicle",
		"interval_type": "months", "interval_value": 6,
		"next_due": daysFromNow(0), "estimated_cost": 75,
	})

	for i := 0; i < 2; i++ {
		resp, _ := c.do("POST", "/api/errands/"+id+"/complete", map[string]any{
			"completed_date": daysFromNow(0), "cost": 75,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("complete %d: status = %d", i, resp.StatusCode)
		}
	}

	resp, _ := c.do("DELETE", "/api/errands/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d", resp.StatusCode)
	}

	_, body := c.do("GET", "/api/completions", nil)
	var history struct {
		History []json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(body, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.History) != 0 {
		t.Errorf("history len = %d after delete, want 0", len(history.History))
	}
}

func TestUsersCannotTouchEachOthersErrands(t *testing.T) {
	owner := newTestClient(t)
	owner.register("owner@example.com")
	id := owner.createErrand(map[string]any{
		"name": "Private", "category": "other",
		"interval_type": "months", "interval_value": 1, "next_due": daysFromNow(5),
	})

	// Second session against the same server.
	jar, _ := cookiejar.New(nil)
	intruder := &testClient{t: t, srv: owner.srv, client: &http.Client{Jar: jar}}
	intruder.register("intruder@example.com")

	resp, _ := intruder.do("GET", "/api/errands/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign get: status = %d, want 404", resp.StatusCode)
	}
	resp, _ = intruder.do("DELETE", "/api/errands/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign delete: status = %d, want 404", resp.StatusCode)
	}

	resp, _ = owner.do("GET", "/api/errands/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner get after intrusion: status = %d", resp.StatusCode)
	}
}

func TestBulkDeleteOnlyOwnedIDs(t *testing.T) {
	c := newTestClient(t)
	c.register("bulk@example.com")

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, c.createErrand(map[string]any{
			"name": fmt.Sprintf("Errand %d", i), "category": "other",
			"interval_type": "months", "interval_value": 1, "next_due": daysFromNow(5),
		}))
	}

	resp, body := c.do("POST", "/api/errands/bulk-delete", map[string]any{
		"ids": []string{ids[0], ids[1], "not-a-real-id"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bulk delete: status = %d", resp.StatusCode)
	}
	var result map[string]int
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", result["deleted"])
	}

	_, body = c.do("GET", "/api/errands", nil)
	var list []json.RawMessage
	json.Unmarshal(body, &list)
	if len(list) != 1 {
		t.Errorf("remaining = %d, want 1", len(list))
	}
}

func TestAnalyticsEndpoint(t *testing.T) {
	c := newTestClient(t)
	c.register("analytics@example.com")

	id := c.createErrand(map[string]any{
		"name": "HVAC Filter", "category": "home",
		"interval_type": "months", "interval_value": 3,
		"next_due": daysFromNow(0), "estimated_cost": 25,
	})
	resp, _ := c.do("POST", "/api/errands/"+id+"/complete", map[string]any{
		"completed_date": daysFromNow(0), "cost": 30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("complete: status = %d", resp.StatusCode)
	}

	resp, body := c.do("GET", "/api/analytics?period=3m", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analytics: status = %d, body = %s", resp.StatusCode, body)
	}
	var snap struct {
		TotalSpent       float64 `json:"total_spent"`
		TotalCompletions int     `json:"total_completions"`
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.TotalSpent != 30 {
		t.Errorf("total_spent = %v, want 30", snap.TotalSpent)
	}
	if snap.TotalCompletions != 1 {
		t.Errorf("total_completions = %d, want 1", snap.TotalCompletions)
	}

	resp, _ = c.do("GET", "/api/analytics?period=99y", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad period: status = %d, want 400", resp.StatusCode)
	}
}

func TestExportCSV(t *testing.T) {
	c := newTestClient(t)
	c.register("export@example.com")

	c.createErrand(map[string]any{
		"name": "Gutter Cleaning", "category": "home",
		"interval_type": "months", "interval_value": 6,
		"next_due": daysFromNow(45), "estimated_cost": 200,
	})

	resp, body := c.do("GET", "/api/errands/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "errands-") {
		t.Errorf("content disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header + 1", len(lines))
	}
	if !strings.HasPrefix(lines[1], "Gutter Cleaning,Home,months,6,") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestProfileUpdateChangesStatusWindow(t *testing.T) {
	c := newTestClient(t)
	c.register("window@example.com")

	c.createErrand(map[string]any{
		"name": "Inspection", "category": "vehicle",
		"interval_type": "months", "interval_value": 12,
		"next_due": daysFromNow(7),
	})

	// 7 days out is on-track with the default 3-day window.
	_, body := c.do("GET", "/api/errands", nil)
	var list []struct {
		Status errand.Status `json:"status"`
	}
	json.Unmarshal(body, &list)
	if list[0].Status != errand.StatusOnTrack {
		t.Fatalf("status = %q, want on-track", list[0].Status)
	}

	resp, _ := c.do("PUT", "/api/profile", map[string]any{
		"name": "Test User", "remind_days_before": 10,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update profile: status = %d", resp.StatusCode)
	}

	_, body = c.do("GET", "/api/errands", nil)
	json.Unmarshal(body, &list)
	if list[0].Status != errand.StatusDueSoon {
		t.Errorf("status = %q after widening window, want due-soon", list[0].Status)
	}
}

func TestVAPIDKeyNotConfigured(t *testing.T) {
	c := newTestClient(t)
	c.register("push@example.com")

	resp, _ := c.do("GET", "/api/push/vapid-key", nil)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}
