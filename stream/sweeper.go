// Package stream provides a DynamoDB Streams handler that makes account
// deletion convergent: the in-request cascade is not atomic, so any posts
// or comments that survive a partial failure are swept here when the
// account item's removal lands on the stream.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/calunara/stitch/model"
)

// Store is the access the sweeper needs.
type Store interface {
	PostsByOwner(ctx context.Context, ownerID int64) ([]model.Post, error)
	DeletePostsByOwner(ctx context.Context, ownerID int64) (int, error)
	DeleteCommentsByPosts(ctx context.Context, postIDs []int64) (int, error)
}

// Handler processes accounts-table stream events.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates a stream handler.
func NewHandler(s Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		logger: logger,
	}
}

// HandleAccountRemoval sweeps orphaned posts and comments for every account
// REMOVE record in the event. Designed to run as an AWS Lambda handler on
// the accounts table's stream.
func (h *Handler) HandleAccountRemoval(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord sweeps the children of one removed account. Idempotent: if
// the in-request cascade already finished, both deletes are no-ops.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	accountID := getNumberAttr(record.Change.OldImage, "id")
	if accountID == 0 {
		return nil
	}

	posts, err := h.store.PostsByOwner(ctx, accountID)
	if err != nil {
		return fmt.Errorf("query orphaned posts: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	postIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}

	comments, err := h.store.DeleteCommentsByPosts(ctx, postIDs)
	if err != nil {
		return fmt.Errorf("sweep comments: %w", err)
	}
	swept, err := h.store.DeletePostsByOwner(ctx, accountID)
	if err != nil {
		return fmt.Errorf("sweep posts: %w", err)
	}

	h.logger.Info("swept orphans after account removal",
		"accountID", accountID,
		"posts", swept,
		"comments", comments,
	)
	return nil
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}
