package seed_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calunara/stitch/seed"
	"github.com/calunara/stitch/store"
)

const usersBody = `[
	{"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz",
	 "address": {"street": "Kulas Light", "suite": "Apt. 556", "city": "Gwenborough",
	             "zipcode": "92998-3874", "geo": {"lat": "-37.3159", "lng": "81.1496"}},
	 "phone": "1-770-736-8031", "website": "hildegard.org",
	 "company": {"name": "Romaguera-Crona", "catchPhrase": "Multi-layered", "bs": "harness"}}
]`

func feedServer(t *testing.T, users, posts, comments string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/users", serve(users))
	mux.HandleFunc("/posts", serve(posts))
	mux.HandleFunc("/comments", serve(comments))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientAccounts(t *testing.T) {
	srv := feedServer(t, usersBody, `[]`, `[]`)
	c := seed.NewClient(srv.URL, srv.Client())

	accts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accts, 1)

	// Upstream field names are converted to the stored document contract.
	assert.Equal(t, int64(1), accts[0].ID)
	assert.Equal(t, "Bret", accts[0].Handle)
	assert.Equal(t, "Gwenborough", accts[0].Address.City)
	assert.Equal(t, "-37.3159", accts[0].Address.Geo.Lat)
	assert.Equal(t, "Romaguera-Crona", accts[0].Company.Name)
}

func TestClientPosts(t *testing.T) {
	srv := feedServer(t, `[]`, `[{"id": 5, "userId": 1, "title": "t", "body": "b"}]`, `[]`)
	c := seed.NewClient(srv.URL, srv.Client())

	posts, err := c.Posts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].OwnerID)
}

func TestClientComments(t *testing.T) {
	srv := feedServer(t, `[]`, `[]`, `[{"id": 9, "postId": 5, "name": "n", "email": "e@x.io", "body": "b"}]`)
	c := seed.NewClient(srv.URL, srv.Client())

	comments, err := c.Comments(context.Background())
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, int64(5), comments[0].PostID)
}

func TestClient_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := seed.NewClient(srv.URL, srv.Client())

	_, err := c.Accounts(context.Background())
	assert.ErrorIs(t, err, store.ErrUpstreamFetch)
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := feedServer(t, `{not json`, `[]`, `[]`)
	c := seed.NewClient(srv.URL, srv.Client())

	_, err := c.Accounts(context.Background())
	assert.ErrorIs(t, err, store.ErrUpstreamFetch)
}

func TestClient_MalformedRecord(t *testing.T) {
	// A post with no id must be rejected at the boundary, not trusted.
	srv := feedServer(t, `[]`, `[{"userId": 1, "title": "t"}]`, `[]`)
	c := seed.NewClient(srv.URL, srv.Client())

	_, err := c.Posts(context.Background())
	assert.ErrorIs(t, err, store.ErrUpstreamFetch)
}

func TestClient_Unreachable(t *testing.T) {
	c := seed.NewClient("http://127.0.0.1:1", nil)

	_, err := c.Accounts(context.Background())
	assert.ErrorIs(t, err, store.ErrUpstreamFetch)
}
