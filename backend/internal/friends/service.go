package friends

import (
	"context"

	"go.uber.org/zap"

	"pactly/backend/internal/directory"
	"pactly/backend/internal/graph"
	"pactly/backend/pkg/errors"
	"pactly/backend/pkg/logger"
)

// GraphStore is the slice of the friend graph the state machine drives.
// Transitions are atomic against the store; see graph.TransitionResult.
type GraphStore interface {
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	IncomingRequestIDs(ctx context.Context, userID string) ([]string, error)
	SendRequest(ctx context.Context, from, to string) (graph.TransitionResult, error)
	AcceptRequest(ctx context.Context, accepter, requester string) (graph.TransitionResult, error)
	DeclineRequest(ctx context.Context, decliner, requester string) (graph.TransitionResult, error)
}

// Directory resolves user ids to profile summaries
type Directory interface {
	GetManyByIDs(ctx context.Context, userIDs []string) ([]directory.Profile, error)
}

// Service enforces the legal transitions between unrelated, requested and
// friends for a pair of users: None -> Requested(A->B) -> Friends, with
// decline returning the pair to None. FRIENDS and REQUESTED edges are only
// ever created or destroyed through this service.
type Service struct {
	graph  GraphStore
	dir    Directory
	logger *zap.Logger
}

// NewService creates a relationship service over the given stores
func NewService(graphStore GraphStore, dir Directory) *Service {
	return &Service{
		graph:  graphStore,
		dir:    dir,
		logger: logger.Get(),
	}
}

// ListFriends returns profile summaries for every confirmed friend of a user
func (s *Service) ListFriends(ctx context.Context, userID string) ([]directory.Profile, error) {
	if userID == "" {
		return nil, errors.NewInvalidInput("user_id", "must not be empty")
	}

	ids, err := s.graph.FriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.dir.GetManyByIDs(ctx, ids)
}

// ListIncomingRequests returns profile summaries for every user with an
// outstanding request to the given user
func (s *Service) ListIncomingRequests(ctx context.Context, userID string) ([]directory.Profile, error) {
	if userID == "" {
		return nil, errors.NewInvalidInput("user_id", "must not be empty")
	}

	ids, err := s.graph.IncomingRequestIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.dir.GetManyByIDs(ctx, ids)
}

// SendRequest moves the pair from None to Requested(from -> to). It fails
// when the users are already friends or when a request is already
// outstanding in either direction.
func (s *Service) SendRequest(ctx context.Context, from, to string) error {
	if err := validatePair(from, to); err != nil {
		return err
	}

	res, err := s.graph.SendRequest(ctx, from, to)
	if err != nil {
		return err
	}

	switch {
	case !res.UsersFound:
		return errors.NewUserNotFound(to)
	case res.AlreadyFriends:
		return errors.NewAlreadyFriends(from, to)
	case res.RequestExisted:
		return errors.NewDuplicateRequest(from, to)
	}

	s.logger.Info("Friend request sent",
		zap.String("from", from),
		zap.String("to", to),
	)
	return nil
}

// AcceptRequest moves the pair from Requested to Friends. The request edge
// is deleted and the friend edge created in one atomic unit, so concurrent
// duplicate accepts resolve to exactly one success.
func (s *Service) AcceptRequest(ctx context.Context, accepter, requester string) error {
	if err := validatePair(accepter, requester); err != nil {
		return err
	}

	res, err := s.graph.AcceptRequest(ctx, accepter, requester)
	if err != nil {
		return err
	}

	switch {
	case !res.UsersFound:
		return errors.NewUserNotFound(requester)
	case res.AlreadyFriends:
		return errors.NewAlreadyFriends(accepter, requester)
	case !res.RequestExisted:
		return errors.NewNoSuchRequest(requester, accepter)
	}

	s.logger.Info("Friend request accepted",
		zap.String("accepter", accepter),
		zap.String("requester", requester),
	)
	return nil
}

// DeclineRequest deletes the outstanding request and returns the pair to
// None. The graph is left untouched when no request exists.
func (s *Service) DeclineRequest(ctx context.Context, decliner, requester string) error {
	if err := validatePair(decliner, requester); err != nil {
		return err
	}

	res, err := s.graph.DeclineRequest(ctx, decliner, requester)
	if err != nil {
		return err
	}

	switch {
	case !res.UsersFound:
		return errors.NewUserNotFound(requester)
	case res.AlreadyFriends:
		return errors.NewAlreadyFriends(decliner, requester)
	case !res.RequestExisted:
		return errors.NewNoSuchRequest(requester, decliner)
	}

	s.logger.Info("Friend request declined",
		zap.String("decliner", decliner),
		zap.String("requester", requester),
	)
	return nil
}

func validatePair(a, b string) error {
	if a == "" || b == "" {
		return errors.NewInvalidInput("user_id", "must not be empty")
	}
	if a == b {
		return errors.NewSelfRelation(a)
	}
	return nil
}
