package application

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

const (
	userCacheTTL     = 30 * time.Minute
	userCacheCleanup = 10 * time.Minute
)

// Helpers holds the lookups shared by every source plugin. It memoizes
// profile-to-user resolution across one ingest run.
type Helpers struct {
	users *cache.Cache
}

// NewHelpers creates Helpers with an empty user cache.
func NewHelpers() *Helpers {
	return &Helpers{users: cache.New(userCacheTTL, userCacheCleanup)}
}

func userKey(sourceID int64, username string) string {
	return strconv.FormatInt(sourceID, 10) + "/" + username
}

// CreateUser resolves the local user behind a remote identity, creating the
// user and profile on first sight.
func (h *Helpers) CreateUser(ctx context.Context, tx driven.Tx, sourceID int64, p model.Person) (*model.User, error) {
	if p.Username == "" {
		return nil, fmt.Errorf("resolve user: empty username: %w", model.ErrMalformed)
	}

	key := userKey(sourceID, p.Username)
	if cached, ok := h.users.Get(key); ok {
		u := cached.(model.User)
		return &u, nil
	}

	user, err := tx.Users().GetByProfile(ctx, sourceID, p.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup profile %s: %w", p.Username, err)
	}

	if user == nil {
		name := p.DisplayName
		if name == "" {
			name = p.Username
		}
		user = &model.User{Name: name}
		profile := &model.Profile{
			SourceID: sourceID,
			Name:     name,
			Username: p.Username,
			URL:      p.URL,
		}
		if err := tx.Users().Create(ctx, user, profile); err != nil {
			return nil, fmt.Errorf("create user %s: %w", p.Username, err)
		}
	}

	h.users.Set(key, *user, cache.DefaultExpiration)
	return user, nil
}

// OwnerID is CreateUser for the owner of a remote record. Remote accounts that
// were deleted carry no identity; they resolve to 0, meaning no local owner.
func (h *Helpers) OwnerID(ctx context.Context, tx driven.Tx, sourceID int64, p model.Person) (int64, error) {
	if p.Anonymous() {
		return 0, nil
	}
	u, err := h.CreateUser(ctx, tx, sourceID, p)
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}

// Forget drops every memoized user. Plugins call it after a rolled-back
// transaction so ids of users that were never committed are not reused.
func (h *Helpers) Forget() {
	h.users.Flush()
}

// CreateSeries returns the local series for a remote one, creating it or
// refreshing its name and active flag.
func (h *Helpers) CreateSeries(ctx context.Context, tx driven.Tx, rs model.RemoteSeries) (*model.Series, error) {
	s, err := tx.References().EnsureSeries(ctx, model.Series{
		Name:   rs.Name,
		Slug:   rs.Slug,
		Active: rs.Active,
	})
	if err != nil {
		return nil, fmt.Errorf("ensure series %s: %w", rs.Slug, err)
	}
	return s, nil
}

// CreateVote records a vote unless its comment was already recorded.
func (h *Helpers) CreateVote(ctx context.Context, tx driven.Tx, vote *model.ReviewVote) (bool, error) {
	existing, err := tx.Votes().GetByCommentID(ctx, vote.CommentID)
	if err != nil {
		return false, fmt.Errorf("lookup vote %s: %w", vote.CommentID, err)
	}
	if existing != nil && !existing.Created.IsZero() {
		return false, nil
	}

	created, err := tx.Votes().Create(ctx, vote)
	if err != nil {
		return false, fmt.Errorf("create vote %s: %w", vote.CommentID, err)
	}
	return created, nil
}

var (
	positiveVotes = map[string]bool{
		"approve":  true,
		"approved": true,
	}
	negativeVotes = map[string]bool{
		"disapprove":         true,
		"needs fixing":       true,
		"needs resubmitting": true,
		"changes_requested":  true,
	}
	negativeText = regexp.MustCompile(`(?i)(^|\s)-1([\s.,!]|$)|needs (fixing|work)|\bnack\b|\bdisapprove`)
	positiveText = regexp.MustCompile(`(?i)(^|\s)\+1([\s.,!]|$)|\blgtm\b|looks good|\bapprove`)
)

// DetermineSentiment classifies a comment. An explicit vote wins, then a
// non-zero score, then markers in the text. Everything else is a plain comment.
func DetermineSentiment(c model.Comment) model.VoteKind {
	vote := strings.ToLower(strings.TrimSpace(c.Vote))
	switch {
	case positiveVotes[vote]:
		return model.VotePositive
	case negativeVotes[vote]:
		return model.VoteNegative
	}

	switch {
	case c.Score > 0:
		return model.VotePositive
	case c.Score < 0:
		return model.VoteNegative
	}

	switch {
	case negativeText.MatchString(c.Content):
		return model.VoteNegative
	case positiveText.MatchString(c.Content):
		return model.VotePositive
	default:
		return model.VoteComment
	}
}
