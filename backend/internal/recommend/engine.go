package recommend

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pactly/backend/internal/directory"
	"pactly/backend/internal/tags"
	"pactly/backend/pkg/errors"
	"pactly/backend/pkg/logger"
)

// topTagCount is how many of the caller's most-used tags feed the
// behavioral-similarity half of the ranking
const topTagCount = 5

// GraphSource supplies the graph-proximity half of the ranking
type GraphSource interface {
	TwoHopNeighbors(ctx context.Context, userID string) ([]string, error)
	MutualFriendCounts(ctx context.Context, userID string, candidates []string) (map[string]int, error)
}

// TagSource supplies the behavioral-similarity half of the ranking
type TagSource interface {
	TopTags(ctx context.Context, userID string, k int) ([]tags.TagCount, error)
	HistogramForMany(ctx context.Context, userIDs []string) (map[string]map[string]int, error)
}

// Directory resolves candidate ids to profile summaries
type Directory interface {
	GetManyByIDs(ctx context.Context, userIDs []string) ([]directory.Profile, error)
}

// Suggestion is one ranked friend candidate
type Suggestion struct {
	Profile           directory.Profile `json:"profile"`
	MutualFriendCount int               `json:"mutual_friend_count"`
	CommonTag         string            `json:"common_tag,omitempty"`
}

// candidateScore lives only for the duration of one Suggest call
type candidateScore struct {
	userID       string
	mutualCount  int
	similarity   int
	sharedTopTag string
}

func (c candidateScore) metric() int {
	return c.mutualCount + c.similarity
}

// Engine ranks friend candidates by combining graph proximity (mutual
// friends) with behavioral similarity (shared activity tags). It is strictly
// read-only: candidate scores are computed, sorted and discarded per call,
// and staleness between the two stores is tolerated as best-effort ranking.
type Engine struct {
	graph  GraphSource
	tags   TagSource
	dir    Directory
	logger *zap.Logger
}

// NewEngine creates a recommendation engine over the given stores
func NewEngine(graphSource GraphSource, tagSource TagSource, dir Directory) *Engine {
	return &Engine{
		graph:  graphSource,
		tags:   tagSource,
		dir:    dir,
		logger: logger.Get(),
	}
}

// Suggest returns up to limit candidates ranked by mutual-friend count plus
// shared-tag similarity, ties broken by ascending user id. No candidates is
// a valid empty result, never an error.
func (e *Engine) Suggest(ctx context.Context, userID string, limit int) ([]Suggestion, error) {
	if userID == "" {
		return nil, errors.NewInvalidInput("user_id", "must not be empty")
	}
	if limit < 1 {
		return nil, errors.NewInvalidInput("limit", "must be positive")
	}

	candidates, err := e.graph.TwoHopNeighbors(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Suggestion{}, nil
	}

	// The three reads are independent; fan out and fail fast together
	var (
		mutual     map[string]int
		myTop      []tags.TagCount
		histograms map[string]map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		mutual, err = e.graph.MutualFriendCounts(gctx, userID, candidates)
		return err
	})
	g.Go(func() error {
		var err error
		myTop, err = e.tags.TopTags(gctx, userID, topTagCount)
		return err
	})
	g.Go(func() error {
		var err error
		histograms, err = e.tags.HistogramForMany(gctx, candidates)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	myTagSet := make(map[string]bool, len(myTop))
	for _, tc := range myTop {
		myTagSet[tc.Tag] = true
	}

	scores := make([]candidateScore, 0, len(candidates))
	for _, c := range candidates {
		score := candidateScore{
			userID:      c,
			mutualCount: mutual[c], // absent candidates count as zero
		}
		for tag, uses := range histograms[c] {
			if !myTagSet[tag] {
				continue
			}
			score.similarity++
			if score.sharedTopTag == "" || uses > histograms[c][score.sharedTopTag] ||
				(uses == histograms[c][score.sharedTopTag] && tag < score.sharedTopTag) {
				score.sharedTopTag = tag
			}
		}
		scores = append(scores, score)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].metric() != scores[j].metric() {
			return scores[i].metric() > scores[j].metric()
		}
		return scores[i].userID < scores[j].userID
	})

	if len(scores) > limit {
		scores = scores[:limit]
	}

	ranked := make([]string, len(scores))
	for i, sc := range scores {
		ranked[i] = sc.userID
	}
	profiles, err := e.dir.GetManyByIDs(ctx, ranked)
	if err != nil {
		return nil, err
	}
	profileByID := make(map[string]directory.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.UserID] = p
	}

	suggestions := make([]Suggestion, 0, len(scores))
	for _, sc := range scores {
		profile, ok := profileByID[sc.userID]
		if !ok {
			// graph knows an id the directory has dropped; skip it
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Profile:           profile,
			MutualFriendCount: sc.mutualCount,
			CommonTag:         sc.sharedTopTag,
		})
	}

	e.logger.Debug("Friend suggestions computed",
		zap.String("user_id", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(suggestions)),
	)
	return suggestions, nil
}
