package graph

import (
	"context"
)

// ============================================================================
// Traversal Operations (recommendation candidate pool)
// ============================================================================

// TwoHopNeighbors returns the ids of users reachable by exactly two FRIENDS
// hops from the given user, excluding the user and anyone already directly
// friended. This is the candidate pool for friend suggestions.
func (s *Store) TwoHopNeighbors(ctx context.Context, userID string) ([]string, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	// Expand one hop, expand again, then subtract self and the direct
	// friend set
	query := `
		MATCH (u:User {user_id: $userID})-[:FRIENDS]-(:User)-[:FRIENDS]-(c:User)
		WHERE c <> u AND NOT (u)-[:FRIENDS]-(c)
		RETURN DISTINCT c.user_id AS user_id
		ORDER BY user_id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
	})
	if err != nil {
		return nil, unavailable("twoHopNeighbors", err)
	}

	ids := []string{}
	for result.Next(ctx) {
		ids = append(ids, getStringFromRecord(result.Record(), "user_id"))
	}
	if err := result.Err(); err != nil {
		return nil, unavailable("twoHopNeighbors", err)
	}

	return ids, nil
}

// MutualFriendCounts returns, for each candidate, the number of distinct
// users who are friends with both the given user and the candidate.
// Candidates with no mutual friends are absent from the map.
func (s *Store) MutualFriendCounts(ctx context.Context, userID string, candidates []string) (map[string]int, error) {
	counts := make(map[string]int, len(candidates))
	if len(candidates) == 0 {
		return counts, nil
	}

	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User {user_id: $userID})-[:FRIENDS]-(m:User)-[:FRIENDS]-(c:User)
		WHERE c.user_id IN $candidates AND c <> u
		RETURN c.user_id AS user_id, count(DISTINCT m) AS mutual_count
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID":     userID,
		"candidates": candidates,
	})
	if err != nil {
		return nil, unavailable("mutualFriendCounts", err)
	}

	for result.Next(ctx) {
		record := result.Record()
		counts[getStringFromRecord(record, "user_id")] = getIntFromRecord(record, "mutual_count")
	}
	if err := result.Err(); err != nil {
		return nil, unavailable("mutualFriendCounts", err)
	}

	return counts, nil
}
