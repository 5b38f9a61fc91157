package tags

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pactly/backend/pkg/errors"
)

// Confirmed membership statuses. Pending and declined participation does not
// count toward a user's tag histogram.
var confirmedStatuses = []string{"accepted", "created"}

// TagCount is one row of a tag histogram
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Store derives activity-tag histograms from pact participation. It is a
// read-only query surface over the relational tables; nothing here is
// persisted or cached between calls.
type Store struct {
	db *sql.DB
}

// NewStore wraps an externally owned database handle
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// TopTags returns up to k (tag, count) pairs for a user, descending by count
// with ties broken by tag name ascending. A user with no confirmed pact
// memberships yields an empty slice, not an error.
func (s *Store) TopTags(ctx context.Context, userID string, k int) ([]TagCount, error) {
	if k < 1 {
		return []TagCount{}, nil
	}

	query := fmt.Sprintf(`
		SELECT t.tag, COUNT(*) AS uses
		FROM PactParticipants p
		JOIN PactTags t ON t.pact_id = p.pact_id
		WHERE p.user_id = ? AND p.status IN (%s)
		GROUP BY t.tag
		ORDER BY uses DESC, t.tag ASC
		LIMIT ?`, statusPlaceholders())

	args := make([]interface{}, 0, len(confirmedStatuses)+2)
	args = append(args, userID)
	for _, st := range confirmedStatuses {
		args = append(args, st)
	}
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewBackendUnavailable("topTags", err)
	}
	defer rows.Close()

	top := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, errors.NewBackendUnavailable("topTags", err)
		}
		top = append(top, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendUnavailable("topTags", err)
	}

	return top, nil
}

// HistogramForMany returns the full tag histogram for each of the given
// users in one query. Users without confirmed memberships are present in the
// result with an empty histogram.
func (s *Store) HistogramForMany(ctx context.Context, userIDs []string) (map[string]map[string]int, error) {
	histograms := make(map[string]map[string]int, len(userIDs))
	for _, id := range userIDs {
		histograms[id] = map[string]int{}
	}
	if len(userIDs) == 0 {
		return histograms, nil
	}

	query := fmt.Sprintf(`
		SELECT p.user_id, t.tag, COUNT(*) AS uses
		FROM PactParticipants p
		JOIN PactTags t ON t.pact_id = p.pact_id
		WHERE p.user_id IN (%s) AND p.status IN (%s)
		GROUP BY p.user_id, t.tag`,
		placeholders(len(userIDs)), statusPlaceholders())

	args := make([]interface{}, 0, len(userIDs)+len(confirmedStatuses))
	for _, id := range userIDs {
		args = append(args, id)
	}
	for _, st := range confirmedStatuses {
		args = append(args, st)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewBackendUnavailable("tagHistogramForMany", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, tag string
		var uses int
		if err := rows.Scan(&userID, &tag, &uses); err != nil {
			return nil, errors.NewBackendUnavailable("tagHistogramForMany", err)
		}
		histograms[userID][tag] = uses
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewBackendUnavailable("tagHistogramForMany", err)
	}

	return histograms, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func statusPlaceholders() string {
	return placeholders(len(confirmedStatuses))
}
