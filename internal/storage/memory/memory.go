// Package memory is an in-memory Store backend, used for tests and demo
// runs. Nothing is persisted across restarts.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

type reminderKey struct {
	userID   string
	errandID string
	nextDue  string
}

// Store keeps everything in maps guarded by one mutex. Values are copied on
// the way in and out so callers can never alias internal state.
type Store struct {
	mu          sync.RWMutex
	users       map[string]model.User
	sessions    map[string]model.Session // keyed by token
	profiles    map[string]model.Profile
	errands     map[string]model.Errand
	completions map[string]model.Completion
	pushSubs    map[string]model.PushSubscription
	reminders   map[reminderKey]time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:       make(map[string]model.User),
		sessions:    make(map[string]model.Session),
		profiles:    make(map[string]model.Profile),
		errands:     make(map[string]model.Errand),
		completions: make(map[string]model.Completion),
		pushSubs:    make(map[string]model.PushSubscription),
		reminders:   make(map[reminderKey]time.Time),
	}
}

func (s *Store) Close() error { return nil }

// --- Users and sessions ---

func (s *Store) CreateUser(email, passwordHash, name string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return nil, storage.ErrConflict
		}
	}

	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.profiles[u.ID] = model.Profile{
		ID:               u.ID,
		Name:             name,
		RemindDaysBefore: model.DefaultRemindDaysBefore,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	out := u
	return &out, nil
}

func (s *Store) GetUserByEmail(email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) GetUserByID(id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	out := u
	return &out, nil
}

func (s *Store) CreateSession(userID, token string, expiresAt time.Time) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[token] = sess
	out := sess
	return &out, nil
}

func (s *Store) GetSessionByToken(token string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, nil
	}
	out := sess
	return &out, nil
}

func (s *Store) DeleteSessionByToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *Store) DeleteExpiredSessions(now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// --- Profiles ---

func (s *Store) GetProfile(userID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (s *Store) UpdateProfile(userID, name string, remindDaysBefore int) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.Name = name
	p.RemindDaysBefore = remindDaysBefore
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	out := p
	return &out, nil
}

// --- Errands ---

func (s *Store) CreateErrand(e *model.Errand) (*model.Errand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *e
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.LastCompleted = cloneDate(e.LastCompleted)
	s.errands[stored.ID] = stored

	out := stored
	out.LastCompleted = cloneDate(stored.LastCompleted)
	return &out, nil
}

func (s *Store) GetErrand(id string) (*model.Errand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.errands[id]
	if !ok {
		return nil, nil
	}
	out := e
	out.LastCompleted = cloneDate(e.LastCompleted)
	return &out, nil
}

func (s *Store) ListErrands(userID string) ([]model.Errand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errands []model.Errand
	for _, e := range s.errands {
		if e.UserID != userID {
			continue
		}
		out := e
		out.LastCompleted = cloneDate(e.LastCompleted)
		errands = append(errands, out)
	}
	sort.Slice(errands, func(i, j int) bool {
		if !errands[i].NextDue.Equal(errands[j].NextDue) {
			return errands[i].NextDue.Before(errands[j].NextDue)
		}
		return errands[i].Name < errands[j].Name
	})
	return errands, nil
}

func (s *Store) UpdateErrand(e *model.Errand) (*model.Errand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.errands[e.ID]
	if !ok {
		return nil, nil
	}
	stored := *e
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	stored.LastCompleted = cloneDate(e.LastCompleted)
	s.errands[e.ID] = stored

	out := stored
	out.LastCompleted = cloneDate(stored.LastCompleted)
	return &out, nil
}

func (s *Store) DeleteErrand(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErrandLocked(id)
	return nil
}

func (s *Store) DeleteErrands(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.deleteErrandLocked(id)
	}
	return nil
}

func (s *Store) DeleteAllErrands(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.errands {
		if e.UserID == userID {
			s.deleteErrandLocked(id)
		}
	}
	return nil
}

// deleteErrandLocked removes the errand and cascades to its history.
func (s *Store) deleteErrandLocked(id string) {
	delete(s.errands, id)
	for cid, c := range s.completions {
		if c.ErrandID == id {
			delete(s.completions, cid)
		}
	}
}

// --- Completions ---

func (s *Store) RecordCompletion(p storage.RecordCompletionParams) (*model.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := model.Completion{
		ID:            uuid.NewString(),
		ErrandID:      p.ErrandID,
		UserID:        p.UserID,
		CompletedDate: p.CompletedDate,
		ScheduledDate: p.ScheduledDate,
		Cost:          p.Cost,
		Notes:         p.Notes,
		CreatedAt:     time.Now().UTC(),
	}
	s.completions[c.ID] = c

	if e, ok := s.errands[p.ErrandID]; ok {
		completed := p.CompletedDate
		e.LastCompleted = &completed
		e.NextDue = p.NextDue
		if p.EstimatedCost != nil {
			e.EstimatedCost = *p.EstimatedCost
		}
		e.UpdatedAt = time.Now().UTC()
		s.errands[p.ErrandID] = e
	}

	out := c
	return &out, nil
}

func (s *Store) GetCompletion(id string) (*model.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.completions[id]
	if !ok {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (s *Store) ListCompletions(userID string) ([]model.Completion, error) {
	return s.listCompletions(func(c model.Completion) bool { return c.UserID == userID })
}

func (s *Store) ListCompletionsByErrand(errandID string) ([]model.Completion, error) {
	return s.listCompletions(func(c model.Completion) bool { return c.ErrandID == errandID })
}

func (s *Store) listCompletions(match func(model.Completion) bool) ([]model.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var completions []model.Completion
	for _, c := range s.completions {
		if match(c) {
			completions = append(completions, c)
		}
	}
	sort.Slice(completions, func(i, j int) bool {
		if !completions[i].CompletedDate.Equal(completions[j].CompletedDate) {
			return completions[i].CompletedDate.After(completions[j].CompletedDate)
		}
		return completions[i].CreatedAt.After(completions[j].CreatedAt)
	})
	return completions, nil
}

func (s *Store) DeleteCompletion(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.completions, id)
	return nil
}

// --- Push subscriptions and reminder log ---

func (s *Store) CreatePushSubscription(userID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.pushSubs {
		if sub.Endpoint == endpoint {
			delete(s.pushSubs, id)
		}
	}

	sub := model.PushSubscription{
		ID:         uuid.NewString(),
		UserID:     userID,
		Endpoint:   endpoint,
		P256dhKey:  p256dh,
		AuthKey:    auth,
		DeviceName: deviceName,
		CreatedAt:  time.Now().UTC(),
	}
	s.pushSubs[sub.ID] = sub
	out := sub
	return &out, nil
}

func (s *Store) ListPushSubscriptions(userID string) ([]model.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var subs []model.PushSubscription
	for _, sub := range s.pushSubs {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func (s *Store) ListPushUserIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, sub := range s.pushSubs {
		if _, ok := seen[sub.UserID]; !ok {
			seen[sub.UserID] = struct{}{}
			ids = append(ids, sub.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) DeletePushSubscription(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.pushSubs[id]; ok && sub.UserID == userID {
		delete(s.pushSubs, id)
	}
	return nil
}

func (s *Store) DeletePushSubscriptionByEndpoint(endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.pushSubs {
		if sub.Endpoint == endpoint {
			delete(s.pushSubs, id)
		}
	}
	return nil
}

func (s *Store) ReminderWasSent(userID, errandID string, nextDue model.Date) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.reminders[reminderKey{userID, errandID, nextDue.String()}]
	return ok, nil
}

func (s *Store) MarkReminderSent(userID, errandID string, nextDue model.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reminders[reminderKey{userID, errandID, nextDue.String()}] = time.Now().UTC()
	return nil
}

func (s *Store) DeleteReminderLogBefore(cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, sentAt := range s.reminders {
		if sentAt.Before(cutoff) {
			delete(s.reminders, key)
		}
	}
	return nil
}

func cloneDate(d *model.Date) *model.Date {
	if d == nil {
		return nil
	}
	out := *d
	return &out
}
