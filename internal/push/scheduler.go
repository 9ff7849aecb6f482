package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ewhitmore/upkeep/internal/errand"
	"github.com/ewhitmore/upkeep/internal/metrics"
	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

// Scheduler periodically scans each subscribed user's errands and sends a
// reminder when one enters its reminder window. A reminder goes out at most
// once per (user, errand, next_due): completing the errand moves next_due
// and re-arms it.
type Scheduler struct {
	mu       sync.RWMutex
	service  *Service
	store    storage.Store
	logger   *slog.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(svc *Service, store storage.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		service:  svc,
		store:    store,
		logger:   logger,
		interval: time.Hour,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(now time.Time) {
	userIDs, err := s.store.ListPushUserIDs()
	if err != nil {
		s.logger.Error("reminder scan: list users", "error", err)
		return
	}

	for _, uid := range userIDs {
		s.remindUser(uid, now)
	}
}

func (s *Scheduler) remindUser(userID string, now time.Time) {
	profile, err := s.store.GetProfile(userID)
	if err != nil {
		s.logger.Error("reminder scan: profile", "user", userID, "error", err)
		return
	}
	remindDays := model.DefaultRemindDaysBefore
	if profile != nil {
		remindDays = profile.RemindDaysBefore
	}

	errands, err := s.store.ListErrands(userID)
	if err != nil {
		s.logger.Error("reminder scan: list errands", "user", userID, "error", err)
		return
	}

	today := model.DateOf(now)
	for _, e := range errands {
		if !e.Reminders {
			continue
		}

		info := errand.ComputeStatus(e.NextDue, today, remindDays)
		if info.Status == errand.StatusOnTrack {
			continue
		}

		sent, err := s.store.ReminderWasSent(userID, e.ID, e.NextDue)
		if err != nil {
			s.logger.Error("reminder scan: check sent", "errand", e.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		s.sendReminder(userID, e, info)

		if err := s.store.MarkReminderSent(userID, e.ID, e.NextDue); err != nil {
			s.logger.Error("reminder scan: mark sent", "errand", e.ID, "error", err)
		}
	}
}

func (s *Scheduler) sendReminder(userID string, e model.Errand, info errand.StatusInfo) {
	subs, err := s.store.ListPushSubscriptions(userID)
	if err != nil {
		s.logger.Error("reminder scan: list subscriptions", "user", userID, "error", err)
		return
	}

	body := fmt.Sprintf("%s (%s): %s", e.Name, errand.IntervalLabel(e.IntervalType, e.IntervalValue), info.Label)
	if e.EstimatedCost > 0 {
		body += fmt.Sprintf(", est. %s", errand.FormatCurrency(e.EstimatedCost))
	}

	payload := Payload{
		Title: "Errand reminder",
		Body:  body,
		URL:   "/errands",
		Tag:   fmt.Sprintf("errand-%s", e.ID),
	}

	for i := range subs {
		sub := &subs[i]
		if err := s.service.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := s.store.DeletePushSubscriptionByEndpoint(sub.Endpoint); err != nil {
					s.logger.Error("reminder scan: drop expired subscription", "error", err)
				}
				continue
			}
			s.logger.Warn("reminder scan: send", "errand", e.ID, "error", err)
			continue
		}
		metrics.RemindersSent.Inc()
	}
}
