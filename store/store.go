package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/calunara/stitch/internal/batch"
	"github.com/calunara/stitch/model"
)

// Store provides DynamoDB operations over the three stitch collections.
type Store struct {
	client *dynamodb.Client
	config Config
}

// New creates a new Store instance.
func New(client *dynamodb.Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the resolved configuration.
func (s *Store) Config() Config {
	return s.config
}

// numKey builds the primary key for an application-assigned numeric id.
func numKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

// Ping verifies the connection by describing all three tables. It is meant
// to be called once at startup; a failure should fail process start.
func (s *Store) Ping(ctx context.Context) error {
	for _, table := range []string{s.config.AccountsTable, s.config.PostsTable, s.config.CommentsTable} {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return fmt.Errorf("describe table %s: %w", table, err)
		}
	}
	return nil
}

// GetAccount retrieves an account by id, returning ErrNotFound if absent.
func (s *Store) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.AccountsTable),
		Key:       numKey(id),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var acct model.Account
	if err := attributevalue.UnmarshalMap(result.Item, &acct); err != nil {
		return nil, fmt.Errorf("unmarshal account: %w", err)
	}
	return &acct, nil
}

// PutAccount creates an account, failing with ErrConflict if the id exists.
func (s *Store) PutAccount(ctx context.Context, acct *model.Account) error {
	item, err := attributevalue.MarshalMap(acct)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.config.AccountsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if isConditionalCheckFailed(err) {
		return ErrConflict
	}
	return err
}

// GetPost retrieves a post by id, returning ErrPostNotFound if absent.
func (s *Store) GetPost(ctx context.Context, id int64) (*model.Post, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.PostsTable),
		Key:       numKey(id),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrPostNotFound
	}

	var post model.Post
	if err := attributevalue.UnmarshalMap(result.Item, &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	return &post, nil
}

// PutPost replaces a post document unconditionally. Ownership checks happen
// in the integrity engine before this is called.
func (s *Store) PutPost(ctx context.Context, post *model.Post) error {
	item, err := attributevalue.MarshalMap(post)
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.PostsTable),
		Item:      item,
	})
	return err
}

// PostsByOwner returns every post whose ownerId equals the given account id.
func (s *Store) PostsByOwner(ctx context.Context, ownerID int64) ([]model.Post, error) {
	var posts []model.Post

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.PostsTable),
		IndexName:              aws.String(s.config.OwnerIndex),
		KeyConditionExpression: aws.String("ownerId = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberN{Value: strconv.FormatInt(ownerID, 10)},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var pagePosts []model.Post
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pagePosts); err != nil {
			return nil, fmt.Errorf("unmarshal posts: %w", err)
		}
		posts = append(posts, pagePosts...)
	}

	return posts, nil
}

// CommentsByPosts returns every comment whose postId is in the given set.
// This is one membership scan per chunk of ids, not one query per post; the
// graph read's round-trip count is contractual, so it cannot fan out over
// the post-id GSI the way the delete paths do.
func (s *Store) CommentsByPosts(ctx context.Context, postIDs []int64) ([]model.Comment, error) {
	var comments []model.Comment

	for _, chunk := range batch.Chunk(postIDs, batch.MaxInOperands) {
		filter, values := membershipFilter("postId", chunk)
		paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
			TableName:                 aws.String(s.config.CommentsTable),
			FilterExpression:          aws.String(filter),
			ExpressionAttributeValues: values,
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			var pageComments []model.Comment
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageComments); err != nil {
				return nil, fmt.Errorf("unmarshal comments: %w", err)
			}
			comments = append(comments, pageComments...)
		}
	}

	return comments, nil
}

// DeleteAccount removes an account document, reporting whether exactly one
// document was removed. A missing account is not an error here; the engine
// checks existence before the cascade begins.
func (s *Store) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.config.AccountsTable),
		Key:                 numKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if isConditionalCheckFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeletePostsByOwner bulk-deletes every post owned by the account and
// returns how many were removed. A no-op on an empty set.
func (s *Store) DeletePostsByOwner(ctx context.Context, ownerID int64) (int, error) {
	posts, err := s.PostsByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	keys := make([]map[string]types.AttributeValue, 0, len(posts))
	for _, p := range posts {
		keys = append(keys, numKey(p.ID))
	}
	if err := s.batchDelete(ctx, s.config.PostsTable, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// DeleteCommentsByPosts bulk-deletes every comment whose postId is in the
// given set and returns how many were removed. A no-op on an empty set.
// Keys are collected from the post-id GSI, one query per post, which keeps
// the cascade off the full-table scan the graph read uses.
func (s *Store) DeleteCommentsByPosts(ctx context.Context, postIDs []int64) (int, error) {
	var keys []map[string]types.AttributeValue
	for _, postID := range postIDs {
		paginator := dynamodb.NewQueryPaginator(s.client, s.commentKeyQuery(postID))
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return 0, err
			}
			for _, item := range page.Items {
				if id, ok := item["id"]; ok {
					keys = append(keys, map[string]types.AttributeValue{"id": id})
				}
			}
		}
	}
	if err := s.batchDelete(ctx, s.config.CommentsTable, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// commentKeyQuery builds the post-id GSI query that projects just the
// comment keys for one post.
func (s *Store) commentKeyQuery(postID int64) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(s.config.CommentsTable),
		IndexName:              aws.String(s.config.PostIndex),
		KeyConditionExpression: aws.String("postId = :post"),
		ProjectionExpression:   aws.String("id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":post": &types.AttributeValueMemberN{Value: strconv.FormatInt(postID, 10)},
		},
	}
}

// DeleteAllAccounts empties the accounts table.
func (s *Store) DeleteAllAccounts(ctx context.Context) (int, error) {
	return s.deleteAll(ctx, s.config.AccountsTable)
}

// DeleteAllPosts empties the posts table.
func (s *Store) DeleteAllPosts(ctx context.Context) (int, error) {
	return s.deleteAll(ctx, s.config.PostsTable)
}

// DeleteAllComments empties the comments table.
func (s *Store) DeleteAllComments(ctx context.Context) (int, error) {
	return s.deleteAll(ctx, s.config.CommentsTable)
}

func (s *Store) deleteAll(ctx context.Context, table string) (int, error) {
	var keys []map[string]types.AttributeValue

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(table),
		ProjectionExpression: aws.String("id"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		for _, item := range page.Items {
			if v, ok := item["id"]; ok {
				keys = append(keys, map[string]types.AttributeValue{"id": v})
			}
		}
	}

	if err := s.batchDelete(ctx, table, keys); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// UpdateAccountFields shallow-merges the given fields over the stored
// account: submitted fields win, unspecified fields are retained. The id
// field is immutable and skipped. Returns the merged view.
func (s *Store) UpdateAccountFields(ctx context.Context, id int64, fields map[string]any) (*model.Account, error) {
	var setClauses []string
	exprNames := map[string]string{}
	exprValues := map[string]types.AttributeValue{}

	i := 0
	for k, v := range fields {
		if k == "id" {
			continue
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal field %s: %w", k, err)
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		exprNames[nameKey] = k
		exprValues[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}
	if len(setClauses) == 0 {
		return nil, fmt.Errorf("%w: no updatable fields", ErrInvalidInput)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.AccountsTable),
		Key:                       numKey(id),
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionalCheckFailed(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var merged model.Account
	if err := attributevalue.UnmarshalMap(result.Attributes, &merged); err != nil {
		return nil, fmt.Errorf("unmarshal merged account: %w", err)
	}
	return &merged, nil
}

// ImportAccounts inserts accounts as conditional puts inside transactions,
// so a duplicate id rejects the batch with ErrConflict. Atomicity is per
// transaction: batches larger than MaxTransactItems span several, and
// earlier transactions stay written when a later one is rejected. Callers
// wanting all-or-nothing must stay within one transaction, as the seed
// loader does by capping its account limit.
func (s *Store) ImportAccounts(ctx context.Context, accts []model.Account) error {
	for _, chunk := range batch.Chunk(accts, batch.MaxTransactItems) {
		items := make([]types.TransactWriteItem, 0, len(chunk))
		for i := range chunk {
			item, err := attributevalue.MarshalMap(&chunk[i])
			if err != nil {
				return fmt.Errorf("marshal account: %w", err)
			}
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName:           aws.String(s.config.AccountsTable),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			})
		}

		_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		})
		if err := mapTransactConflict(err); err != nil {
			return err
		}
	}
	return nil
}

// ImportPosts bulk-inserts posts. Unlike account import there is no
// duplicate check; BatchWriteItem puts replace silently.
func (s *Store) ImportPosts(ctx context.Context, posts []model.Post) error {
	reqs := make([]types.WriteRequest, 0, len(posts))
	for i := range posts {
		item, err := attributevalue.MarshalMap(&posts[i])
		if err != nil {
			return fmt.Errorf("marshal post: %w", err)
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	return s.batchWrite(ctx, s.config.PostsTable, reqs)
}

// ImportComments bulk-inserts comments.
func (s *Store) ImportComments(ctx context.Context, comments []model.Comment) error {
	reqs := make([]types.WriteRequest, 0, len(comments))
	for i := range comments {
		item, err := attributevalue.MarshalMap(&comments[i])
		if err != nil {
			return fmt.Errorf("marshal comment: %w", err)
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	return s.batchWrite(ctx, s.config.CommentsTable, reqs)
}

// batchDelete removes the given keys from a table in 25-item batches.
func (s *Store) batchDelete(ctx context.Context, table string, keys []map[string]types.AttributeValue) error {
	reqs := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	return s.batchWrite(ctx, table, reqs)
}

// batchWrite issues BatchWriteItem calls in 25-item chunks, retrying
// unprocessed items until done or maxBatchRetries is exceeded.
func (s *Store) batchWrite(ctx context.Context, table string, reqs []types.WriteRequest) error {
	for _, chunk := range batch.Chunk(reqs, batch.MaxWriteItems) {
		pending := chunk
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt > maxBatchRetries {
				return fmt.Errorf("batch write to %s: %d items unprocessed after %d attempts",
					table, len(pending), attempt)
			}
			out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{table: pending},
			})
			if err != nil {
				return err
			}
			pending = out.UnprocessedItems[table]
		}
	}
	return nil
}

const maxBatchRetries = 5

// membershipFilter builds an IN filter expression over numeric ids.
func membershipFilter(attr string, ids []int64) (string, map[string]types.AttributeValue) {
	operands := make([]string, 0, len(ids))
	values := make(map[string]types.AttributeValue, len(ids))
	for i, id := range ids {
		operand := fmt.Sprintf(":p%d", i)
		operands = append(operands, operand)
		values[operand] = &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)}
	}
	return fmt.Sprintf("%s IN (%s)", attr, strings.Join(operands, ", ")), values
}

// isConditionalCheckFailed reports whether err is a DynamoDB conditional
// check failure.
func isConditionalCheckFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

// mapTransactConflict maps a transaction cancellation caused by a failed
// condition check to ErrConflict. Other errors pass through unchanged.
func mapTransactConflict(err error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return ErrConflict
			}
		}
	}

	return err
}
