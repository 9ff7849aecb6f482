package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ewhitmore/upkeep/internal/model"
	"github.com/ewhitmore/upkeep/internal/storage"
)

const errandCols = `id, user_id, name, description, category, interval_type, interval_value, next_due, last_completed, estimated_cost, reminders, notes, created_at, updated_at`

func scanErrand(scanner interface{ Scan(...any) error }) (*model.Errand, error) {
	var e model.Errand
	var lastCompleted sql.NullString

	err := scanner.Scan(
		&e.ID, &e.UserID, &e.Name, &e.Description, &e.Category,
		&e.IntervalType, &e.IntervalValue, &e.NextDue, &lastCompleted,
		&e.EstimatedCost, &e.Reminders, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastCompleted.Valid {
		d, err := model.ParseDate(lastCompleted.String)
		if err != nil {
			return nil, err
		}
		e.LastCompleted = &d
	}
	return &e, nil
}

func (s *Store) CreateErrand(e *model.Errand) (*model.Errand, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO errands (id, user_id, name, description, category, interval_type, interval_value, next_due, last_completed, estimated_cost, reminders, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.UserID, e.Name, e.Description, e.Category, e.IntervalType,
		e.IntervalValue, e.NextDue, lastCompletedValue(e.LastCompleted),
		e.EstimatedCost, e.Reminders, e.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert errand: %w", err)
	}
	return s.GetErrand(id)
}

func (s *Store) GetErrand(id string) (*model.Errand, error) {
	row := s.db.QueryRow(`SELECT `+errandCols+` FROM errands WHERE id = ?`, id)
	e, err := scanErrand(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get errand: %w", err)
	}
	return e, nil
}

func (s *Store) ListErrands(userID string) ([]model.Errand, error) {
	rows, err := s.db.Query(
		`SELECT `+errandCols+` FROM errands WHERE user_id = ? ORDER BY next_due ASC, name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list errands: %w", err)
	}
	defer rows.Close()

	var errands []model.Errand
	for rows.Next() {
		e, err := scanErrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan errand: %w", err)
		}
		errands = append(errands, *e)
	}
	return errands, rows.Err()
}

func (s *Store) UpdateErrand(e *model.Errand) (*model.Errand, error) {
	_, err := s.db.Exec(
		`UPDATE errands SET name = ?, description = ?, category = ?, interval_type = ?, interval_value = ?, next_due = ?, last_completed = ?, estimated_cost = ?, reminders = ?, notes = ?, updated_at = ? WHERE id = ?`,
		e.Name, e.Description, e.Category, e.IntervalType, e.IntervalValue,
		e.NextDue, lastCompletedValue(e.LastCompleted), e.EstimatedCost,
		e.Reminders, e.Notes, time.Now().UTC(), e.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update errand: %w", err)
	}
	return s.GetErrand(e.ID)
}

// DeleteErrand removes an errand; completion history goes with it via the
// foreign-key cascade.
func (s *Store) DeleteErrand(id string) error {
	_, err := s.db.Exec(`DELETE FROM errands WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete errand: %w", err)
	}
	return nil
}

func (s *Store) DeleteErrands(ids []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM errands WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete errand %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteAllErrands(userID string) error {
	_, err := s.db.Exec(`DELETE FROM errands WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete all errands: %w", err)
	}
	return nil
}

// RecordCompletion inserts the history record and updates the errand's
// schedule in one transaction, so a crash can't leave one without the other.
func (s *Store) RecordCompletion(p storage.RecordCompletionParams) (*model.Completion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.Exec(
		`INSERT INTO completion_history (id, errand_id, user_id, completed_date, scheduled_date, cost, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.ErrandID, p.UserID, p.CompletedDate, p.ScheduledDate, p.Cost, p.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	if p.EstimatedCost != nil {
		_, err = tx.Exec(
			`UPDATE errands SET last_completed = ?, next_due = ?, estimated_cost = ?, updated_at = ? WHERE id = ?`,
			p.CompletedDate, p.NextDue, *p.EstimatedCost, time.Now().UTC(), p.ErrandID,
		)
	} else {
		_, err = tx.Exec(
			`UPDATE errands SET last_completed = ?, next_due = ?, updated_at = ? WHERE id = ?`,
			p.CompletedDate, p.NextDue, time.Now().UTC(), p.ErrandID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("update errand schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	return s.GetCompletion(id)
}

func lastCompletedValue(d *model.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
