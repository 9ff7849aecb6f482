// Package storage defines the persistence interface shared by the relational
// and in-memory backends. The backend is chosen once at process start and
// passed into everything that needs it; nothing in here is ambient state.
package storage

import (
	"errors"
	"time"

	"github.com/ewhitmore/upkeep/internal/model"
)

// ErrConflict is returned when an insert violates a uniqueness constraint,
// e.g. registering an email that already has an account.
var ErrConflict = errors.New("storage: conflict")

// RecordCompletionParams carries everything a completion event changes: the
// new history record plus the owning errand's next_due/last_completed (and
// optionally its estimated cost). Stores apply all of it atomically.
type RecordCompletionParams struct {
	ErrandID      string
	UserID        string
	CompletedDate model.Date
	ScheduledDate model.Date
	Cost          float64
	Notes         string
	NextDue       model.Date
	EstimatedCost *float64
}

// Store is the persistence collaborator. Reads return (nil, nil) when the
// record does not exist. Deleting an errand, in any form, also removes its
// completion history.
type Store interface {
	CreateUser(email, passwordHash, name string) (*model.User, error)
	GetUserByEmail(email string) (*model.User, error)
	GetUserByID(id string) (*model.User, error)

	CreateSession(userID, token string, expiresAt time.Time) (*model.Session, error)
	GetSessionByToken(token string) (*model.Session, error)
	DeleteSessionByToken(token string) error
	DeleteExpiredSessions(now time.Time) (int64, error)

	GetProfile(userID string) (*model.Profile, error)
	UpdateProfile(userID, name string, remindDaysBefore int) (*model.Profile, error)

	CreateErrand(e *model.Errand) (*model.Errand, error)
	GetErrand(id string) (*model.Errand, error)
	ListErrands(userID string) ([]model.Errand, error)
	UpdateErrand(e *model.Errand) (*model.Errand, error)
	DeleteErrand(id string) error
	DeleteErrands(ids []string) error
	DeleteAllErrands(userID string) error

	RecordCompletion(p RecordCompletionParams) (*model.Completion, error)
	GetCompletion(id string) (*model.Completion, error)
	ListCompletions(userID string) ([]model.Completion, error)
	ListCompletionsByErrand(errandID string) ([]model.Completion, error)
	DeleteCompletion(id string) error

	CreatePushSubscription(userID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error)
	ListPushSubscriptions(userID string) ([]model.PushSubscription, error)
	ListPushUserIDs() ([]string, error)
	DeletePushSubscription(id, userID string) error
	DeletePushSubscriptionByEndpoint(endpoint string) error

	ReminderWasSent(userID, errandID string, nextDue model.Date) (bool, error)
	MarkReminderSent(userID, errandID string, nextDue model.Date) error
	DeleteReminderLogBefore(cutoff time.Time) error

	Close() error
}
