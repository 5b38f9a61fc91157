package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// ============================================================================
// Atomic Relationship Transitions
// ============================================================================
//
// Each transition is a single conditional Cypher statement executed inside a
// managed write transaction: the precondition is evaluated as a pattern
// predicate and the edge mutations are guarded by it, so the check and the
// write are never separately visible. Two concurrent transitions on the same
// pair cannot leave a FRIENDS edge and a REQUESTED edge coexisting, and a
// losing transition observes the state the winner committed.

// TransitionResult carries the diagnosis of a conditional transition so the
// state machine can report which precondition failed
type TransitionResult struct {
	// Applied is true when the guarded write ran
	Applied bool
	// AlreadyFriends is true when a FRIENDS edge existed for the pair
	AlreadyFriends bool
	// RequestExisted is true when a REQUESTED edge existed in either direction
	RequestExisted bool
	// UsersFound is false when either User node is missing from the graph
	UsersFound bool
}

// SendRequest conditionally creates REQUESTED(from -> to). The edge is only
// created when the pair is not friends and no request exists in either
// direction.
func (s *Store) SendRequest(ctx context.Context, from, to string) (TransitionResult, error) {
	query := `
		MATCH (f:User {user_id: $from})
		MATCH (t:User {user_id: $to})
		OPTIONAL MATCH (f)-[fr:FRIENDS]-(t)
		WITH f, t, count(fr) AS friend_edges
		OPTIONAL MATCH (f)-[rq:REQUESTED]-(t)
		WITH f, t, friend_edges, count(rq) AS request_edges
		FOREACH (_ IN CASE WHEN friend_edges = 0 AND request_edges = 0 THEN [1] ELSE [] END |
			CREATE (f)-[:REQUESTED {requested_at: datetime()}]->(t))
		RETURN friend_edges > 0 AS already_friends,
		       request_edges > 0 AS request_existed
	`

	return s.runTransition(ctx, "sendRequest", query, map[string]interface{}{
		"from": from,
		"to":   to,
	}, from, to, func(res TransitionResult) bool {
		return !res.AlreadyFriends && !res.RequestExisted
	})
}

// AcceptRequest conditionally replaces the outstanding REQUESTED edge(s)
// between requester and accepter with a single FRIENDS edge. Requests in both
// directions are consumed so a crossed pair of requests collapses cleanly.
func (s *Store) AcceptRequest(ctx context.Context, accepter, requester string) (TransitionResult, error) {
	query := `
		MATCH (r:User {user_id: $requester})
		MATCH (a:User {user_id: $accepter})
		OPTIONAL MATCH (r)-[fr:FRIENDS]-(a)
		WITH r, a, count(fr) AS friend_edges
		OPTIONAL MATCH (r)-[rq:REQUESTED]-(a)
		WITH r, a, friend_edges, collect(rq) AS requests
		FOREACH (rq IN CASE WHEN friend_edges = 0 THEN requests ELSE [] END |
			DELETE rq)
		FOREACH (_ IN CASE WHEN friend_edges = 0 AND size(requests) > 0 THEN [1] ELSE [] END |
			CREATE (r)-[:FRIENDS {since: datetime()}]->(a))
		RETURN friend_edges > 0 AS already_friends,
		       size(requests) > 0 AS request_existed
	`

	return s.runTransition(ctx, "acceptRequest", query, map[string]interface{}{
		"requester": requester,
		"accepter":  accepter,
	}, requester, accepter, func(res TransitionResult) bool {
		return !res.AlreadyFriends && res.RequestExisted
	})
}

// DeclineRequest conditionally deletes the outstanding REQUESTED edge(s)
// between requester and decliner, returning the pair to the unrelated state
func (s *Store) DeclineRequest(ctx context.Context, decliner, requester string) (TransitionResult, error) {
	query := `
		MATCH (r:User {user_id: $requester})
		MATCH (d:User {user_id: $decliner})
		OPTIONAL MATCH (r)-[fr:FRIENDS]-(d)
		WITH r, d, count(fr) AS friend_edges
		OPTIONAL MATCH (r)-[rq:REQUESTED]-(d)
		WITH r, d, friend_edges, collect(rq) AS requests
		FOREACH (rq IN CASE WHEN friend_edges = 0 THEN requests ELSE [] END |
			DELETE rq)
		RETURN friend_edges > 0 AS already_friends,
		       size(requests) > 0 AS request_existed
	`

	return s.runTransition(ctx, "declineRequest", query, map[string]interface{}{
		"requester": requester,
		"decliner":  decliner,
	}, requester, decliner, func(res TransitionResult) bool {
		return !res.AlreadyFriends && res.RequestExisted
	})
}

// runTransition executes one conditional write in a managed transaction and
// interprets the diagnosis row. Zero rows means a User node failed to match.
func (s *Store) runTransition(ctx context.Context, op, query string, params map[string]interface{}, firstID, secondID string, applied func(TransitionResult) bool) (TransitionResult, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	raw, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}

		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return TransitionResult{UsersFound: false}, nil
		}

		record := result.Record()
		res := TransitionResult{
			UsersFound:     true,
			AlreadyFriends: getBoolFromRecord(record, "already_friends"),
			RequestExisted: getBoolFromRecord(record, "request_existed"),
		}
		res.Applied = applied(res)

		if _, err := result.Consume(ctx); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return TransitionResult{}, unavailable(op, err)
	}

	res := raw.(TransitionResult)
	s.logger.Debug("Relationship transition",
		zap.String("op", op),
		zap.String("first", firstID),
		zap.String("second", secondID),
		zap.Bool("applied", res.Applied),
	)
	return res, nil
}
