// Package store is the DynamoDB access layer for the three stitch
// collections: accounts, posts, and comments.
//
// Each collection is an independent table keyed by the application-assigned
// numeric id. DynamoDB enforces no foreign keys and no cross-table
// transactions, so everything relational about the data model lives above
// this package (see the integrity, graph, and seed packages). What this
// package does guarantee:
//
//   - Unique account ids, via conditional puts (attribute_not_exists(id)).
//   - Membership reads (comments whose postId is in a set) as a single
//     logical operation rather than one query per post; membership deletes
//     collect keys from the post-id GSI instead.
//   - Account imports via TransactWriteItems with per-item conditions, so a
//     duplicate id rejects the transaction before any child batch is
//     attempted. Atomicity is per transaction of up to 100 items.
//
// Bulk deletes and child imports use BatchWriteItem, which is not atomic;
// callers rely on the documented step ordering and on idempotent retries
// rather than on rollback.
//
// # Errors
//
// The package defines the domain error taxonomy used across stitch:
//
//   - [ErrNotFound] / [ErrPostNotFound] - referenced document absent
//   - [ErrUnauthorized] - ownership mismatch on post update
//   - [ErrInvalidID] / [ErrInvalidInput] - malformed identifier or document
//   - [ErrUpdateRejected] - write would change nothing
//   - [ErrConflict] - duplicate unique id on create or import
//   - [ErrUpstreamFetch] - seed feed unreachable or unparseable
package store
