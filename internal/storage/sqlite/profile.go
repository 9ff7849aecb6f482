package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ewhitmore/upkeep/internal/model"
)

const profileCols = `id, name, remind_days_before, created_at, updated_at`

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	err := scanner.Scan(&p.ID, &p.Name, &p.RemindDaysBefore, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProfile(userID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProfile(userID, name string, remindDaysBefore int) (*model.Profile, error) {
	_, err := s.db.Exec(
		`UPDATE profiles SET name = ?, remind_days_before = ?, updated_at = ? WHERE id = ?`,
		name, remindDaysBefore, time.Now().UTC(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(userID)
}
