package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/calunara/stitch/model"
)

type fakeStore struct {
	posts map[int64][]model.Post

	commentDeletes [][]int64
	postDeletes    []int64
	postsErr       error
}

func (f *fakeStore) PostsByOwner(_ context.Context, ownerID int64) ([]model.Post, error) {
	if f.postsErr != nil {
		return nil, f.postsErr
	}
	return f.posts[ownerID], nil
}

func (f *fakeStore) DeletePostsByOwner(_ context.Context, ownerID int64) (int, error) {
	f.postDeletes = append(f.postDeletes, ownerID)
	return len(f.posts[ownerID]), nil
}

func (f *fakeStore) DeleteCommentsByPosts(_ context.Context, postIDs []int64) (int, error) {
	f.commentDeletes = append(f.commentDeletes, postIDs)
	return 0, nil
}

func removeEvent(accountID string) events.DynamoDBEvent {
	return events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{
			{
				EventID:   "evt-1",
				EventName: "REMOVE",
				Change: events.DynamoDBStreamRecord{
					OldImage: map[string]events.DynamoDBAttributeValue{
						"id": events.NewNumberAttribute(accountID),
					},
				},
			},
		},
	}
}

func TestHandleAccountRemoval_SweepsOrphans(t *testing.T) {
	f := &fakeStore{
		posts: map[int64][]model.Post{
			7: {{ID: 70, OwnerID: 7}, {ID: 71, OwnerID: 7}},
		},
	}
	h := NewHandler(f, nil)

	if err := h.HandleAccountRemoval(context.Background(), removeEvent("7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.commentDeletes) != 1 {
		t.Fatalf("expected 1 comment sweep, got %d", len(f.commentDeletes))
	}
	got := f.commentDeletes[0]
	if len(got) != 2 || got[0] != 70 || got[1] != 71 {
		t.Errorf("expected comment sweep for posts [70 71], got %v", got)
	}
	if len(f.postDeletes) != 1 || f.postDeletes[0] != 7 {
		t.Errorf("expected post sweep for owner 7, got %v", f.postDeletes)
	}
}

func TestHandleAccountRemoval_NoOrphans(t *testing.T) {
	f := &fakeStore{posts: map[int64][]model.Post{}}
	h := NewHandler(f, nil)

	if err := h.HandleAccountRemoval(context.Background(), removeEvent("7")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.commentDeletes) != 0 || len(f.postDeletes) != 0 {
		t.Error("expected no sweeps when the cascade already finished")
	}
}

func TestHandleAccountRemoval_SkipsOtherEvents(t *testing.T) {
	f := &fakeStore{posts: map[int64][]model.Post{7: {{ID: 70}}}}
	h := NewHandler(f, nil)

	event := removeEvent("7")
	event.Records[0].EventName = "MODIFY"

	if err := h.HandleAccountRemoval(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.postDeletes) != 0 {
		t.Error("expected MODIFY record to be skipped")
	}
}

func TestHandleAccountRemoval_PropagatesError(t *testing.T) {
	storeErr := errors.New("query failed")
	f := &fakeStore{postsErr: storeErr}
	h := NewHandler(f, nil)

	err := h.HandleAccountRemoval(context.Background(), removeEvent("7"))
	if !errors.Is(err, storeErr) {
		t.Errorf("expected store error to propagate for retry, got %v", err)
	}
}

// --- getNumberAttr Tests ---

func TestGetNumberAttr_ExistingNumber(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id": events.NewNumberAttribute("42"),
	}
	if got := getNumberAttr(image, "id"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestGetNumberAttr_MissingKey(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{}
	if got := getNumberAttr(image, "id"); got != 0 {
		t.Errorf("expected 0 for missing key, got %d", got)
	}
}

func TestGetNumberAttr_WrongType(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"id": events.NewStringAttribute("42"),
	}
	if got := getNumberAttr(image, "id"); got != 0 {
		t.Errorf("expected 0 for string attribute, got %d", got)
	}
}

func TestGetNumberAttr_NilImage(t *testing.T) {
	var image map[string]events.DynamoDBAttributeValue
	if got := getNumberAttr(image, "id"); got != 0 {
		t.Errorf("expected 0 for nil image, got %d", got)
	}
}
