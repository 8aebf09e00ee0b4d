// stitch-sweeper is the Lambda entry point for the accounts-table stream
// handler. It deletes posts and comments that survived a partially failed
// cascade once the account item's removal appears on the stream.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/calunara/stitch/store"
	"github.com/calunara/stitch/stream"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("load aws config", "error", err)
		os.Exit(1)
	}

	cfg := store.DefaultConfig()
	if prefix := os.Getenv("STITCH_TABLE_PREFIX"); prefix != "" {
		cfg.AccountsTable = prefix + "_accounts"
		cfg.PostsTable = prefix + "_posts"
		cfg.CommentsTable = prefix + "_comments"
	}

	st := store.New(dynamodb.NewFromConfig(awsCfg), cfg)
	handler := stream.NewHandler(st, logger)

	lambda.Start(handler.HandleAccountRemoval)
}
