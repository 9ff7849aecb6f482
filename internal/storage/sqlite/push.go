package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitmore/upkeep/internal/model"
)

const pushCols = `id, user_id, endpoint, p256dh_key, auth_key, device_name, created_at`

func scanPushSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.DeviceName, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreatePushSubscription registers a device endpoint, replacing any earlier
// registration of the same endpoint (re-subscribes after a browser refresh).
func (s *Store) CreatePushSubscription(userID, endpoint, p256dh, auth, deviceName string) (*model.PushSubscription, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh_key, auth_key, device_name) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET user_id = excluded.user_id, p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, device_name = excluded.device_name`,
		id, userID, endpoint, p256dh, auth, deviceName,
	)
	if err != nil {
		return nil, fmt.Errorf("insert push subscription: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return scanPushSubscription(row)
}

func (s *Store) ListPushSubscriptions(userID string) ([]model.PushSubscription, error) {
	rows, err := s.db.Query(
		`SELECT `+pushCols+` FROM push_subscriptions WHERE user_id = ? ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list push subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanPushSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan push subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *Store) ListPushUserIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM push_subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("list push user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) DeletePushSubscription(id, userID string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete push subscription: %w", err)
	}
	return nil
}

func (s *Store) DeletePushSubscriptionByEndpoint(endpoint string) error {
	_, err := s.db.Exec(`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete push subscription by endpoint: %w", err)
	}
	return nil
}

func (s *Store) ReminderWasSent(userID, errandID string, nextDue model.Date) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM reminder_log WHERE user_id = ? AND errand_id = ? AND next_due = ?`,
		userID, errandID, nextDue,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check reminder sent: %w", err)
	}
	return count > 0, nil
}

func (s *Store) MarkReminderSent(userID, errandID string, nextDue model.Date) error {
	_, err := s.db.Exec(
		`INSERT INTO reminder_log (user_id, errand_id, next_due) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, errand_id, next_due) DO NOTHING`,
		userID, errandID, nextDue,
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

func (s *Store) DeleteReminderLogBefore(cutoff time.Time) error {
	_, err := s.db.Exec(`DELETE FROM reminder_log WHERE sent_at < ?`, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("cleanup reminder log: %w", err)
	}
	return nil
}
