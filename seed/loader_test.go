package seed_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calunara/stitch/model"
	"github.com/calunara/stitch/seed"
	"github.com/calunara/stitch/store"
)

type fakeFeed struct {
	accounts []model.Account
	posts    []model.Post
	comments []model.Comment
	err      error
}

func (f *fakeFeed) Accounts(context.Context) ([]model.Account, error) {
	return f.accounts, f.err
}
func (f *fakeFeed) Posts(context.Context) ([]model.Post, error) { return f.posts, nil }
func (f *fakeFeed) Comments(context.Context) ([]model.Comment, error) {
	return f.comments, nil
}

type fakeImporter struct {
	accounts []model.Account
	posts    []model.Post
	comments []model.Comment

	accountsErr error
	postsErr    error
}

func (f *fakeImporter) ImportAccounts(_ context.Context, accts []model.Account) error {
	if f.accountsErr != nil {
		return f.accountsErr
	}
	f.accounts = append(f.accounts, accts...)
	return nil
}

func (f *fakeImporter) ImportPosts(_ context.Context, posts []model.Post) error {
	if f.postsErr != nil {
		return f.postsErr
	}
	f.posts = append(f.posts, posts...)
	return nil
}

func (f *fakeImporter) ImportComments(_ context.Context, comments []model.Comment) error {
	f.comments = append(f.comments, comments...)
	return nil
}

// twelveAccountFeed has more accounts than the default prefix, a post whose
// owner is outside the prefix, and a comment whose post is filtered out.
func twelveAccountFeed() *fakeFeed {
	f := &fakeFeed{}
	for i := int64(1); i <= 12; i++ {
		f.accounts = append(f.accounts, model.Account{ID: i, Name: fmt.Sprintf("acct-%d", i)})
	}
	f.posts = []model.Post{
		{ID: 100, OwnerID: 1},
		{ID: 101, OwnerID: 10},
		{ID: 102, OwnerID: 11}, // owner beyond the prefix
		{ID: 103, OwnerID: 99}, // owner not in the feed at all
	}
	f.comments = []model.Comment{
		{ID: 1000, PostID: 100},
		{ID: 1001, PostID: 102}, // parent post filtered out
		{ID: 1002, PostID: 101},
		{ID: 1003, PostID: 999}, // parent post unknown
	}
	return f
}

func TestLoad_ReferentialSubsetting(t *testing.T) {
	st := &fakeImporter{}
	l := seed.NewLoader(twelveAccountFeed(), st, 0, nil)

	summary, err := l.Load(context.Background())
	require.NoError(t, err)

	// Bounded prefix of accounts.
	assert.Equal(t, seed.DefaultAccountLimit, summary.Accounts)
	require.Len(t, st.accounts, 10)
	assert.Equal(t, int64(1), st.accounts[0].ID)
	assert.Equal(t, int64(10), st.accounts[9].ID)

	// Only posts owned by accepted accounts.
	assert.Equal(t, 2, summary.Posts)
	for _, p := range st.posts {
		assert.LessOrEqual(t, p.OwnerID, int64(10))
	}

	// Only comments under accepted posts.
	assert.Equal(t, 2, summary.Comments)
	for _, c := range st.comments {
		assert.Contains(t, []int64{100, 101}, c.PostID)
	}
}

func TestLoad_CustomLimit(t *testing.T) {
	st := &fakeImporter{}
	l := seed.NewLoader(twelveAccountFeed(), st, 3, nil)

	summary, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Accounts)
	assert.Equal(t, 1, summary.Posts) // only post 100 (owner 1) survives
}

func TestLoad_LimitClampedToOneTransaction(t *testing.T) {
	f := &fakeFeed{}
	for i := int64(1); i <= 150; i++ {
		f.accounts = append(f.accounts, model.Account{ID: i})
	}
	st := &fakeImporter{}
	l := seed.NewLoader(f, st, 500, nil)

	summary, err := l.Load(context.Background())
	require.NoError(t, err)

	// The account batch never exceeds a single transaction, so a duplicate
	// id rejects the import with nothing written.
	assert.Equal(t, seed.MaxAccountLimit, summary.Accounts)
	assert.Len(t, st.accounts, seed.MaxAccountLimit)
}

func TestLoad_DuplicateAccountsAbortChildren(t *testing.T) {
	st := &fakeImporter{accountsErr: store.ErrConflict}
	l := seed.NewLoader(twelveAccountFeed(), st, 0, nil)

	_, err := l.Load(context.Background())
	require.ErrorIs(t, err, store.ErrConflict)

	// No child batch is attempted after an account conflict.
	assert.Empty(t, st.posts)
	assert.Empty(t, st.comments)
}

func TestLoad_ChildBatchFailureKeepsAccounts(t *testing.T) {
	batchErr := errors.New("throughput exceeded")
	st := &fakeImporter{postsErr: batchErr}
	l := seed.NewLoader(twelveAccountFeed(), st, 0, nil)

	_, err := l.Load(context.Background())
	require.ErrorIs(t, err, batchErr)

	// Accounts already inserted are not rolled back.
	assert.Len(t, st.accounts, 10)
	assert.Empty(t, st.comments)
}

func TestLoad_FeedFailure(t *testing.T) {
	st := &fakeImporter{}
	l := seed.NewLoader(&fakeFeed{err: store.ErrUpstreamFetch}, st, 0, nil)

	_, err := l.Load(context.Background())
	require.ErrorIs(t, err, store.ErrUpstreamFetch)
	assert.Empty(t, st.accounts)
}

func TestLoad_FewerAccountsThanLimit(t *testing.T) {
	f := &fakeFeed{accounts: []model.Account{{ID: 1}, {ID: 2}}}
	st := &fakeImporter{}
	l := seed.NewLoader(f, st, 10, nil)

	summary, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Accounts)
}
