package graph

import (
	"context"

	"pactly/backend/pkg/errors"
)

// ============================================================================
// Friend and Request Membership Queries
// ============================================================================

// AreFriends reports whether an undirected FRIENDS edge exists between a and b
func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:User {user_id: $a})
		MATCH (b:User {user_id: $b})
		RETURN EXISTS { (a)-[:FRIENDS]-(b) } AS friended
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"a": a,
		"b": b,
	})
	if err != nil {
		return false, unavailable("areFriends", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, unavailable("areFriends", err)
		}
		// one of the users does not exist in the graph
		return false, nil
	}

	return getBoolFromRecord(result.Record(), "friended"), nil
}

// FriendIDs returns the ids of every user with a FRIENDS edge to the given
// user. An empty slice is a valid, successful result.
func (s *Store) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User {user_id: $userID})-[:FRIENDS]-(f:User)
		RETURN f.user_id AS user_id
		ORDER BY user_id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
	})
	if err != nil {
		return nil, unavailable("getFriendIds", err)
	}

	ids := []string{}
	for result.Next(ctx) {
		ids = append(ids, getStringFromRecord(result.Record(), "user_id"))
	}
	if err := result.Err(); err != nil {
		return nil, unavailable("getFriendIds", err)
	}

	return ids, nil
}

// HasRequested reports whether a REQUESTED edge exists between a and b in
// either direction. Existence checks are direction-agnostic; creation and
// deletion are direction-aware.
func (s *Store) HasRequested(ctx context.Context, a, b string) (bool, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:User {user_id: $a})
		MATCH (b:User {user_id: $b})
		RETURN EXISTS { (a)-[:REQUESTED]-(b) } AS requested
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"a": a,
		"b": b,
	})
	if err != nil {
		return false, unavailable("hasRequested", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, unavailable("hasRequested", err)
		}
		return false, nil
	}

	return getBoolFromRecord(result.Record(), "requested"), nil
}

// IncomingRequestIDs returns the ids of users with an outstanding REQUESTED
// edge pointing at the given user
func (s *Store) IncomingRequestIDs(ctx context.Context, userID string) ([]string, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (r:User)-[:REQUESTED]->(u:User {user_id: $userID})
		RETURN r.user_id AS user_id
		ORDER BY user_id
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
	})
	if err != nil {
		return nil, unavailable("getRequests", err)
	}

	ids := []string{}
	for result.Next(ctx) {
		ids = append(ids, getStringFromRecord(result.Record(), "user_id"))
	}
	if err := result.Err(); err != nil {
		return nil, unavailable("getRequests", err)
	}

	return ids, nil
}

// ============================================================================
// Edge Primitives
// ============================================================================

// CreateRequest creates a directed REQUESTED edge from one user to another.
// Calling it when the edge already exists does not create a duplicate; the
// return value reports whether a new edge was created.
func (s *Store) CreateRequest(ctx context.Context, from, to string) (bool, error) {
	if from == to {
		return false, errors.NewSelfRelation(from)
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (f:User {user_id: $from})
		MATCH (t:User {user_id: $to})
		MERGE (f)-[r:REQUESTED]->(t)
		ON CREATE SET r.requested_at = datetime(), r.was_created = true
		ON MATCH SET r.was_created = false
		RETURN r.was_created AS created
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"from": from,
		"to":   to,
	})
	if err != nil {
		return false, unavailable("createRequest", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return false, unavailable("createRequest", err)
		}
		// zero rows means one of the User nodes failed to match
		return false, errors.NewUserNotFound(to)
	}
	created := getBoolFromRecord(result.Record(), "created")
	if _, err := result.Consume(ctx); err != nil {
		return false, unavailable("createRequest", err)
	}

	return created, nil
}

// DeleteRequest removes any REQUESTED edge between the pair, regardless of
// direction, and reports whether an edge was removed
func (s *Store) DeleteRequest(ctx context.Context, a, b string) (bool, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:User {user_id: $a})-[r:REQUESTED]-(b:User {user_id: $b})
		DELETE r
		RETURN count(r) AS removed
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"a": a,
		"b": b,
	})
	if err != nil {
		return false, unavailable("deleteRequest", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return false, unavailable("deleteRequest", err)
	}

	return getIntFromRecord(record, "removed") > 0, nil
}

// AddFriend creates an undirected FRIENDS edge between two users. Self-edges
// are rejected; an existing edge in either direction is left untouched.
func (s *Store) AddFriend(ctx context.Context, a, b string) error {
	if a == b {
		return errors.NewSelfRelation(a)
	}

	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:User {user_id: $a})
		MATCH (b:User {user_id: $b})
		WHERE NOT (a)-[:FRIENDS]-(b)
		CREATE (a)-[:FRIENDS {since: datetime()}]->(b)
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"a": a,
		"b": b,
	})
	if err != nil {
		return unavailable("addFriend", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return unavailable("addFriend", err)
	}

	return nil
}

// EnsureUser creates the User node for an id if it does not exist yet.
// Account provisioning owns the user record; the graph only mirrors the id.
func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MERGE (u:User {user_id: $userID})
		ON CREATE SET u.created_at = datetime()
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userID": userID,
	})
	if err != nil {
		return unavailable("ensureUser", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return unavailable("ensureUser", err)
	}

	return nil
}
