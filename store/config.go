package store

// Config holds the table and index names used by the Store.
type Config struct {
	// AccountsTable is the accounts table name.
	// Default: "stitch_accounts"
	AccountsTable string

	// PostsTable is the posts table name.
	// Default: "stitch_posts"
	PostsTable string

	// CommentsTable is the comments table name.
	// Default: "stitch_comments"
	CommentsTable string

	// OwnerIndex is the GSI on PostsTable keyed by ownerId.
	// Default: "owner-id-index"
	OwnerIndex string

	// PostIndex is the GSI on CommentsTable keyed by postId.
	// Default: "post-id-index"
	PostIndex string
}

// DefaultConfig returns the default table and index names.
func DefaultConfig() Config {
	return Config{
		AccountsTable: "stitch_accounts",
		PostsTable:    "stitch_posts",
		CommentsTable: "stitch_comments",
		OwnerIndex:    "owner-id-index",
		PostIndex:     "post-id-index",
	}
}

// validate fills in defaults for any unset names.
func (c *Config) validate() {
	if c.AccountsTable == "" {
		c.AccountsTable = "stitch_accounts"
	}
	if c.PostsTable == "" {
		c.PostsTable = "stitch_posts"
	}
	if c.CommentsTable == "" {
		c.CommentsTable = "stitch_comments"
	}
	if c.OwnerIndex == "" {
		c.OwnerIndex = "owner-id-index"
	}
	if c.PostIndex == "" {
		c.PostIndex = "post-id-index"
	}
}
