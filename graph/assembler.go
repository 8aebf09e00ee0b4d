// Package graph assembles the nested account -> posts -> comments view from
// the three independent collections.
package graph

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/calunara/stitch/model"
	"github.com/calunara/stitch/store"
)

// Store is the read access the assembler needs.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	PostsByOwner(ctx context.Context, ownerID int64) ([]model.Post, error)
	CommentsByPosts(ctx context.Context, postIDs []int64) ([]model.Comment, error)
}

// Assembler builds nested account graphs.
type Assembler struct {
	store Store
}

// New creates an Assembler.
func New(s Store) *Assembler {
	return &Assembler{store: s}
}

var idPattern = regexp.MustCompile(`^[0-9]+$`)

// ParseID validates a textual account id. It must be all digits and fit in
// an int64, else store.ErrInvalidID.
func ParseID(raw string) (int64, error) {
	if !idPattern.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidID, raw)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidID, raw)
	}
	return id, nil
}

// AccountGraph returns the account's fields plus a posts list, each post
// carrying its comments. The id is validated before any store access.
//
// The read is exactly three store round-trips regardless of post and
// comment counts: the account, the posts by owner, and one membership fetch
// of comments for the whole post-id set. An account with zero posts yields
// posts: [], and a post with zero comments yields comments: []. Comment
// order within a post is store iteration order, not a contract.
func (a *Assembler) AccountGraph(ctx context.Context, rawID string) (*model.AccountGraph, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}

	acct, err := a.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	posts, err := a.store.PostsByOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	postIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}

	comments, err := a.store.CommentsByPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch comments: %w", err)
	}
	byPost := make(map[int64][]model.Comment, len(posts))
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
	}

	g := &model.AccountGraph{
		Account: *acct,
		Posts:   make([]model.PostGraph, 0, len(posts)),
	}
	for _, p := range posts {
		pc := byPost[p.ID]
		if pc == nil {
			pc = []model.Comment{}
		}
		g.Posts = append(g.Posts, model.PostGraph{Post: p, Comments: pc})
	}

	return g, nil
}
