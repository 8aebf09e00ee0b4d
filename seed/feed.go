// Package seed imports externally-sourced sample records into the stitch
// collections while preserving cross-collection referential subsetting.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/calunara/stitch/model"
	"github.com/calunara/stitch/store"
)

// Client fetches the three record lists from a read-only JSON feed.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a feed client for the given base URL. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
	}
}

// The feed wire shapes carry the upstream field names, which differ from
// the stored document contract (username vs handle, userId vs ownerId).
// They are validated here, at the boundary, before conversion.

type feedAccount struct {
	ID      int64         `json:"id" validate:"required,gt=0"`
	Name    string        `json:"name"`
	Handle  string        `json:"username"`
	Email   string        `json:"email"`
	Address model.Address `json:"address"`
	Phone   string        `json:"phone"`
	Website string        `json:"website"`
	Company model.Company `json:"company"`
}

type feedPost struct {
	ID      int64  `json:"id" validate:"required,gt=0"`
	OwnerID int64  `json:"userId" validate:"required,gt=0"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

type feedComment struct {
	ID     int64  `json:"id" validate:"required,gt=0"`
	PostID int64  `json:"postId" validate:"required,gt=0"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Body   string `json:"body"`
}

var validate = validator.New()

// Accounts fetches the account list.
func (c *Client) Accounts(ctx context.Context) ([]model.Account, error) {
	var raw []feedAccount
	if err := c.fetch(ctx, "/users", &raw); err != nil {
		return nil, err
	}

	accts := make([]model.Account, 0, len(raw))
	for i, r := range raw {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: account record %d: %v", store.ErrUpstreamFetch, i, err)
		}
		accts = append(accts, model.Account{
			ID:      r.ID,
			Name:    r.Name,
			Handle:  r.Handle,
			Email:   r.Email,
			Address: r.Address,
			Phone:   r.Phone,
			Website: r.Website,
			Company: r.Company,
		})
	}
	return accts, nil
}

// Posts fetches the post list.
func (c *Client) Posts(ctx context.Context) ([]model.Post, error) {
	var raw []feedPost
	if err := c.fetch(ctx, "/posts", &raw); err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, len(raw))
	for i, r := range raw {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: post record %d: %v", store.ErrUpstreamFetch, i, err)
		}
		posts = append(posts, model.Post{
			ID:      r.ID,
			OwnerID: r.OwnerID,
			Title:   r.Title,
			Body:    r.Body,
		})
	}
	return posts, nil
}

// Comments fetches the comment list.
func (c *Client) Comments(ctx context.Context) ([]model.Comment, error) {
	var raw []feedComment
	if err := c.fetch(ctx, "/comments", &raw); err != nil {
		return nil, err
	}

	comments := make([]model.Comment, 0, len(raw))
	for i, r := range raw {
		if err := validate.Struct(r); err != nil {
			return nil, fmt.Errorf("%w: comment record %d: %v", store.ErrUpstreamFetch, i, err)
		}
		comments = append(comments, model.Comment{
			ID:     r.ID,
			PostID: r.PostID,
			Name:   r.Name,
			Email:  r.Email,
			Body:   r.Body,
		})
	}
	return comments, nil
}

func (c *Client) fetch(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUpstreamFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", store.ErrUpstreamFetch, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", store.ErrUpstreamFetch, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: GET %s: invalid JSON: %v", store.ErrUpstreamFetch, path, err)
	}
	return nil
}
