package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/calunara/stitch/graph"
	"github.com/calunara/stitch/integrity"
	"github.com/calunara/stitch/seed"
	"github.com/calunara/stitch/store"
)

const defaultFeedURL = "https://jsonplaceholder.typicode.com"

// appConfig is read from the environment after godotenv.Load.
type appConfig struct {
	Addr         string
	TablePrefix  string
	FeedURL      string
	SeedAccounts int
}

func configFromEnv() appConfig {
	cfg := appConfig{
		Addr:    envOr("STITCH_ADDR", ":3000"),
		FeedURL: envOr("STITCH_FEED_URL", defaultFeedURL),
	}
	cfg.TablePrefix = os.Getenv("STITCH_TABLE_PREFIX")
	if v := os.Getenv("STITCH_SEED_ACCOUNTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SeedAccounts = n
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func storeConfig(prefix string) store.Config {
	cfg := store.DefaultConfig()
	if prefix != "" {
		cfg.AccountsTable = prefix + "_accounts"
		cfg.PostsTable = prefix + "_posts"
		cfg.CommentsTable = prefix + "_comments"
	}
	return cfg
}

// app wires the store connection and the core components. The store handle
// is constructed once here and passed down; nothing reaches for it as
// ambient global state.
type app struct {
	cfg       appConfig
	store     *store.Store
	engine    *integrity.Engine
	assembler *graph.Assembler
	loader    *seed.Loader
	logger    *slog.Logger
}

// newApp connects to DynamoDB and verifies the tables before returning.
// A connect or verify failure must fail process startup.
func newApp(ctx context.Context) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg := configFromEnv()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	client := dynamodb.NewFromConfig(awsCfg)

	st := store.New(client, storeConfig(cfg.TablePrefix))

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := st.Ping(pingCtx); err != nil {
		return nil, err
	}
	logger.Info("store connection verified",
		"accountsTable", st.Config().AccountsTable,
	)

	feed := seed.NewClient(cfg.FeedURL, nil)
	return &app{
		cfg:       cfg,
		store:     st,
		engine:    integrity.New(st, logger),
		assembler: graph.New(st),
		loader:    seed.NewLoader(feed, st, cfg.SeedAccounts, logger),
		logger:    logger,
	}, nil
}
