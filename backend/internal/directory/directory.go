package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pactly/backend/pkg/errors"
)

// Profile is the display summary attached to friends, requests and
// suggestions. The account system owns the full user record; only the
// public attributes surface here.
type Profile struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Location  string `json:"location,omitempty"`
}

// Directory looks up user profile summaries by id
type Directory struct {
	db *sql.DB
}

// NewDirectory wraps an externally owned database handle
func NewDirectory(db *sql.DB) *Directory {
	return &Directory{db: db}
}

// FindByUserID returns the profile for a single user id
func (d *Directory) FindByUserID(ctx context.Context, userID string) (*Profile, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT user_id, username, firstname, lastname, COALESCE(location, '')
		FROM User WHERE user_id = ?`, userID)

	var p Profile
	if err := row.Scan(&p.UserID, &p.Username, &p.FirstName, &p.LastName, &p.Location); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewUserNotFound(userID)
		}
		return nil, errors.NewBackendUnavailable("findByUserId", err)
	}

	return &p, nil
}

// GetManyByIDs returns profiles for the given ids in the order requested.
// Unknown ids are skipped rather than failing the batch.
func (d *Directory) GetManyByIDs(ctx context.Context, userIDs []string) ([]Profile, error) {
	if len(userIDs) == 0 {
		return []Profile{}, nil
	}

	query := fmt.Sprintf(`
		SELECT user_id, username, firstname, lastname, COALESCE(location, '')
		FROM User WHERE user_id IN (%s)`,
		strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ","))

	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewBackendUnavailable("getManyByIds", err)
	}
	defer rows.Close()

	byID := make(map[string]Profile, len(userIDs))
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.Username, &p.FirstName, &p.LastName, &p.Location); err != nil {
			return nil, errors.NewBackendUnavailable("getManyByIds", err)
		}
		byID[p.UserID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendUnavailable("getManyByIds", err)
	}

	profiles := make([]Profile, 0, len(byID))
	for _, id := range userIDs {
		if p, ok := byID[id]; ok {
			profiles = append(profiles, p)
		}
	}

	return profiles, nil
}
