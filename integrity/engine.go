// Package integrity implements the cascading-delete, ownership, and merge
// rules that the underlying document store does not enforce.
//
// Each multi-step operation runs its steps in a fixed dependency order
// (comments, then posts, then accounts) so that a crash mid-sequence never
// leaves a dangling child visible longer than its parent. The sequences are
// not atomic; they are safe to re-run from the top because every step is
// idempotent.
package integrity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calunara/stitch/model"
	"github.com/calunara/stitch/store"
)

// Store is the collection access the engine needs.
type Store interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	PutAccount(ctx context.Context, acct *model.Account) error
	UpdateAccountFields(ctx context.Context, id int64, fields map[string]any) (*model.Account, error)
	DeleteAccount(ctx context.Context, id int64) (bool, error)
	DeleteAllAccounts(ctx context.Context) (int, error)

	GetPost(ctx context.Context, id int64) (*model.Post, error)
	PutPost(ctx context.Context, post *model.Post) error
	PostsByOwner(ctx context.Context, ownerID int64) ([]model.Post, error)
	DeletePostsByOwner(ctx context.Context, ownerID int64) (int, error)
	DeleteAllPosts(ctx context.Context) (int, error)

	DeleteCommentsByPosts(ctx context.Context, postIDs []int64) (int, error)
	DeleteAllComments(ctx context.Context) (int, error)
}

// Engine enforces referential integrity across the three collections.
type Engine struct {
	store  Store
	logger *slog.Logger
}

// New creates an Engine.
func New(s Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  s,
		logger: logger,
	}
}

// DeleteAccount removes an account together with its posts and their
// comments, children first. Returns whether the account document itself was
// removed. Fails with store.ErrNotFound before any mutation if the account
// is absent, which also makes a retry after partial failure converge.
func (e *Engine) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	if _, err := e.store.GetAccount(ctx, id); err != nil {
		return false, err
	}

	posts, err := e.store.PostsByOwner(ctx, id)
	if err != nil {
		return false, fmt.Errorf("collect posts: %w", err)
	}
	postIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}

	comments, err := e.store.DeleteCommentsByPosts(ctx, postIDs)
	if err != nil {
		return false, fmt.Errorf("delete comments: %w", err)
	}

	deleted, err := e.store.DeletePostsByOwner(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete posts: %w", err)
	}

	removed, err := e.store.DeleteAccount(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete account: %w", err)
	}

	e.logger.Info("cascade delete completed",
		"accountID", id,
		"posts", deleted,
		"comments", comments,
		"accountRemoved", removed,
	)
	return removed, nil
}

// DeleteAllAccounts unconditionally empties all three collections in
// dependency order. Idempotent; an empty store is a successful no-op.
func (e *Engine) DeleteAllAccounts(ctx context.Context) error {
	comments, err := e.store.DeleteAllComments(ctx)
	if err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	posts, err := e.store.DeleteAllPosts(ctx)
	if err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	accounts, err := e.store.DeleteAllAccounts(ctx)
	if err != nil {
		return fmt.Errorf("delete accounts: %w", err)
	}

	e.logger.Info("collections emptied",
		"accounts", accounts,
		"posts", posts,
		"comments", comments,
	)
	return nil
}

// UpdatePost overwrites a stored post with the submitted document.
//
// The stored post's owner must equal the submitted owner; a mismatch fails
// with store.ErrUnauthorized and leaves the stored post untouched, which
// rejects cross-account edits even when the submitted document claims a
// different owner. A submitted document identical to the stored one fails
// with store.ErrUpdateRejected: a no-op write is treated as a client error,
// not silent success.
func (e *Engine) UpdatePost(ctx context.Context, post *model.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}

	existing, err := e.store.GetPost(ctx, post.ID)
	if err != nil {
		return err
	}
	if existing.OwnerID != post.OwnerID {
		return store.ErrUnauthorized
	}
	if *existing == *post {
		return store.ErrUpdateRejected
	}

	return e.store.PutPost(ctx, post)
}

// UpdateAccount shallow-merges the submitted fields over the stored account
// and returns the merged view. Accounts are self-owned, so there is no
// ownership check beyond existence.
func (e *Engine) UpdateAccount(ctx context.Context, id int64, fields map[string]any) (*model.Account, error) {
	if _, err := e.store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return e.store.UpdateAccountFields(ctx, id, fields)
}

// CreateAccount stores a new account. The id is caller-assigned and must be
// present; a duplicate fails with store.ErrConflict.
func (e *Engine) CreateAccount(ctx context.Context, acct *model.Account) error {
	if err := acct.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	return e.store.PutAccount(ctx, acct)
}
