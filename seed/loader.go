package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calunara/stitch/internal/batch"
	"github.com/calunara/stitch/model"
)

// DefaultAccountLimit is how many accounts the loader takes from the feed
// when no limit is configured.
const DefaultAccountLimit = 10

// MaxAccountLimit caps the configured limit so the account batch fits in a
// single transaction: a duplicate id then rejects the import with nothing
// written.
const MaxAccountLimit = batch.MaxTransactItems

// Feed produces the three record lists, or fails.
type Feed interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Posts(ctx context.Context) ([]model.Post, error)
	Comments(ctx context.Context) ([]model.Comment, error)
}

// Store is the write access the loader needs.
type Store interface {
	ImportAccounts(ctx context.Context, accts []model.Account) error
	ImportPosts(ctx context.Context, posts []model.Post) error
	ImportComments(ctx context.Context, comments []model.Comment) error
}

// Summary reports how many records an import wrote per collection.
type Summary struct {
	Accounts int `json:"accounts"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

// Loader imports a referentially consistent subset of the feed.
type Loader struct {
	feed   Feed
	store  Store
	limit  int
	logger *slog.Logger
}

// NewLoader creates a Loader taking at most limit accounts from the feed.
// A limit <= 0 means DefaultAccountLimit; anything above MaxAccountLimit is
// clamped to it.
func NewLoader(feed Feed, store Store, limit int, logger *slog.Logger) *Loader {
	if limit <= 0 {
		limit = DefaultAccountLimit
	}
	if limit > MaxAccountLimit {
		limit = MaxAccountLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		feed:   feed,
		store:  store,
		limit:  limit,
		logger: logger,
	}
}

// Load fetches the three lists, narrows them to a referentially consistent
// subset, and inserts them parent-first: a bounded prefix of accounts, then
// only posts owned by those accounts, then only comments under those posts.
//
// A duplicate account id rejects the whole import before any post or
// comment batch is attempted. If a later batch fails, accounts already
// inserted are not rolled back; a retry will then stop at the duplicate
// check, so the orphan-free property holds either way.
func (l *Loader) Load(ctx context.Context) (*Summary, error) {
	allAccounts, err := l.feed.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	allPosts, err := l.feed.Posts(ctx)
	if err != nil {
		return nil, err
	}
	allComments, err := l.feed.Comments(ctx)
	if err != nil {
		return nil, err
	}

	accounts := allAccounts
	if len(accounts) > l.limit {
		accounts = accounts[:l.limit]
	}
	accountIDs := make(map[int64]struct{}, len(accounts))
	for _, a := range accounts {
		accountIDs[a.ID] = struct{}{}
	}

	posts := make([]model.Post, 0, len(allPosts))
	postIDs := make(map[int64]struct{})
	for _, p := range allPosts {
		if _, ok := accountIDs[p.OwnerID]; ok {
			posts = append(posts, p)
			postIDs[p.ID] = struct{}{}
		}
	}

	comments := make([]model.Comment, 0, len(allComments))
	for _, c := range allComments {
		if _, ok := postIDs[c.PostID]; ok {
			comments = append(comments, c)
		}
	}

	if err := l.store.ImportAccounts(ctx, accounts); err != nil {
		return nil, fmt.Errorf("import accounts: %w", err)
	}
	if err := l.store.ImportPosts(ctx, posts); err != nil {
		return nil, fmt.Errorf("import posts: %w", err)
	}
	if err := l.store.ImportComments(ctx, comments); err != nil {
		return nil, fmt.Errorf("import comments: %w", err)
	}

	summary := &Summary{
		Accounts: len(accounts),
		Posts:    len(posts),
		Comments: len(comments),
	}
	l.logger.Info("seed import completed",
		"accounts", summary.Accounts,
		"posts", summary.Posts,
		"comments", summary.Comments,
	)
	return summary, nil
}
