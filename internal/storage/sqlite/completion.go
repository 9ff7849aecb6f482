package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/ewhitmore/upkeep/internal/model"
)

const completionCols = `id, errand_id, user_id, completed_date, scheduled_date, cost, notes, created_at`

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.Completion, error) {
	var c model.Completion
	err := scanner.Scan(
		&c.ID, &c.ErrandID, &c.UserID, &c.CompletedDate, &c.ScheduledDate,
		&c.Cost, &c.Notes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetCompletion(id string) (*model.Completion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM completion_history WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *Store) ListCompletions(userID string) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completion_history WHERE user_id = ? ORDER BY completed_date DESC, created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

func (s *Store) ListCompletionsByErrand(errandID string) ([]model.Completion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM completion_history WHERE errand_id = ? ORDER BY completed_date DESC, created_at DESC`,
		errandID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by errand: %w", err)
	}
	defer rows.Close()
	return collectCompletions(rows)
}

func (s *Store) DeleteCompletion(id string) error {
	_, err := s.db.Exec(`DELETE FROM completion_history WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func collectCompletions(rows *sql.Rows) ([]model.Completion, error) {
	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
