// Copyright 2025 Stash Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/stashd/stash"
	"github.com/stashd/stash/ai"
	"github.com/stashd/stash/core"
	"github.com/stashd/stash/ingestion"
	"github.com/stashd/stash/reindex"
	"github.com/stashd/stash/storage"
)

const configKey = "fileConfig"

func main() {
	app := &cli.App{
		Name:  "stash",
		Usage: "Bookmark manager with hybrid lexical and semantic search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to YAML config file",
				EnvVars: []string{"STASH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"STASH_DB"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"STASH_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "analyzer-host",
				Usage:   "Analyzer service host URL",
				EnvVars: []string{"STASH_ANALYZER_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"STASH_EMBEDDING_MODEL"},
			},
			&cli.StringFlag{
				Name:    "analyzer-model",
				Usage:   "Analyzer model name",
				EnvVars: []string{"STASH_ANALYZER_MODEL"},
			},
			&cli.StringFlag{
				Name:    "ai-token",
				Usage:   "API token for AI services",
				EnvVars: []string{"STASH_AI_TOKEN"},
			},
			&cli.BoolFlag{
				Name:    "no-ai",
				Usage:   "Disable analysis and embeddings (lexical search only)",
				EnvVars: []string{"STASH_NO_AI"},
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			addCommand(),
			searchCommand(),
			showCommand(),
			collectionsCommand(),
			reindexCommand(),
			workerCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads the environment, configures logging, and parses the optional
// config file before any command runs.
func setup(c *cli.Context) error {
	// A missing .env file is fine
	_ = godotenv.Load()

	if err := setupLogger(c); err != nil {
		return err
	}

	cfg, err := loadFileConfig(c.String("config"))
	if err != nil {
		return err
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func appConfig(c *cli.Context) *fileConfig {
	if cfg, ok := c.App.Metadata[configKey].(*fileConfig); ok {
		return cfg
	}
	return &fileConfig{}
}

// dbPath resolves the database location: flag, then config file, then a
// local default.
func dbPath(c *cli.Context) string {
	if path := c.String("db"); path != "" {
		return path
	}
	if path := appConfig(c).Database; path != "" {
		return path
	}
	return "stash.db"
}

// aiConfig merges defaults, the config file, and flags, in increasing
// precedence.
func aiConfig(c *cli.Context) *ai.Config {
	cfg := ai.DefaultConfig()
	file := appConfig(c).AI

	apply := func(dst *string, fromFile, fromFlag string) {
		if fromFile != "" {
			*dst = fromFile
		}
		if fromFlag != "" {
			*dst = fromFlag
		}
	}
	apply(&cfg.EmbeddingHost, file.EmbeddingHost, c.String("embedding-host"))
	apply(&cfg.AnalyzerHost, file.AnalyzerHost, c.String("analyzer-host"))
	apply(&cfg.EmbeddingModel, file.EmbeddingModel, c.String("embedding-model"))
	apply(&cfg.AnalyzerModel, file.AnalyzerModel, c.String("analyzer-model"))
	apply(&cfg.Token, file.Token, c.String("ai-token"))

	return cfg
}

func openDatabase(c *cli.Context) (*stash.Database, error) {
	if c.Bool("no-ai") {
		return stash.NewDatabase(dbPath(c), stash.WithoutAI())
	}

	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return stash.NewDatabase(dbPath(c), stash.WithAIConfig(cfg))
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Save a URL and process it through the ingestion pipeline",
		ArgsUsage: "URL",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title to use instead of the page title",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Description to use instead of the page description",
			},
			&cli.StringFlag{
				Name:  "content",
				Usage: "Pre-extracted text content (skips fetching)",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "User tag (repeatable); AI tags are merged in, not replaced",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "How long to wait for processing to finish (0 to return immediately)",
				Value: 30 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one URL argument")
			}

			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			var opts []stash.AddOption
			if title := c.String("title"); title != "" {
				opts = append(opts, stash.WithTitle(title))
			}
			if description := c.String("description"); description != "" {
				opts = append(opts, stash.WithDescription(description))
			}
			if content := c.String("content"); content != "" {
				opts = append(opts, stash.WithContent(content))
			}
			if tags := c.StringSlice("tag"); len(tags) > 0 {
				opts = append(opts, stash.WithTags(tags...))
			}

			bookmark, err := db.AddBookmark(c.Context, c.Args().First(), opts...)
			if err != nil {
				return err
			}
			fmt.Printf("Saved bookmark %d (%s)\n", bookmark.Id, bookmark.URL)

			wait := c.Duration("wait")
			if wait <= 0 {
				return nil
			}

			final, err := waitForProcessing(c.Context, db, bookmark.Id, wait)
			if err != nil {
				return err
			}
			printBookmark(final)
			return nil
		},
	}
}

// waitForProcessing polls until the pipeline leaves the bookmark in a
// terminal status or the timeout expires.
func waitForProcessing(ctx context.Context, db *stash.Database, id core.ID, timeout time.Duration) (*core.Bookmark, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		bookmark, err := db.GetBookmark(ctx, id)
		if err != nil {
			return nil, err
		}
		switch bookmark.Status {
		case core.StatusCompleted:
			return bookmark, nil
		case core.StatusFailed:
			return bookmark, fmt.Errorf("processing failed for bookmark %d", id)
		}

		select {
		case <-ctx.Done():
			fmt.Fprintf(os.Stderr, "Still processing; check later with: stash show %d\n", id)
			return bookmark, nil
		case <-ticker.C:
		}
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Hybrid search over saved bookmarks",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Filter by category",
			},
			&cli.StringFlag{
				Name:  "domain",
				Usage: "Filter by domain",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Filter by tag (repeatable, any match)",
			},
			&cli.BoolFlag{
				Name:  "favorite",
				Usage: "Only favorites",
			},
			&cli.BoolFlag{
				Name:  "archived",
				Usage: "Only archived bookmarks",
			},
			&cli.BoolFlag{
				Name:  "read",
				Usage: "Only read bookmarks",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum results per page",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Results to skip",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit results as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(query) == "" {
				return fmt.Errorf("expected a search query")
			}

			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			filters := storage.Filters{
				Category: c.String("category"),
				Domain:   c.String("domain"),
				Tags:     c.StringSlice("tag"),
			}
			if c.IsSet("favorite") {
				v := c.Bool("favorite")
				filters.IsFavorite = &v
			}
			if c.IsSet("archived") {
				v := c.Bool("archived")
				filters.IsArchived = &v
			}
			if c.IsSet("read") {
				v := c.Bool("read")
				filters.IsRead = &v
			}

			page, err := db.Search(c.Context, query, filters, c.Int("limit"), c.Int("offset"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(page)
			}

			if page.Total == 0 {
				fmt.Println("No results.")
				return nil
			}
			fmt.Printf("%d results (showing %d from offset %d)\n\n",
				page.Total, len(page.Results), page.Offset)
			for i, result := range page.Results {
				title := result.Bookmark.Title
				if title == "" {
					title = result.Bookmark.URL
				}
				fmt.Printf("%2d. [%d] %s\n", page.Offset+i+1, result.Bookmark.Id, title)
				fmt.Printf("    %s", result.Bookmark.URL)
				if result.Bookmark.Category != "" {
					fmt.Printf("  (%s)", result.Bookmark.Category)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a bookmark in full",
		ArgsUsage: "ID",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one bookmark ID")
			}
			id, err := strconv.ParseUint(c.Args().First(), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bookmark ID %q", c.Args().First())
			}

			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			bookmark, err := db.GetBookmark(c.Context, core.ID(id))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("bookmark %d not found", id)
				}
				return err
			}
			printBookmark(bookmark)

			collections, err := db.CollectionRepository().GetCollectionsByBookmark(c.Context, bookmark.Id)
			if err != nil {
				return err
			}
			for _, collection := range collections {
				fmt.Printf("Collection: %s\n", collection.Name)
			}
			return nil
		},
	}
}

func printBookmark(b *core.Bookmark) {
	fmt.Printf("ID:       %d\n", b.Id)
	fmt.Printf("URL:      %s\n", b.URL)
	fmt.Printf("Status:   %s\n", b.Status)
	if b.Title != "" {
		fmt.Printf("Title:    %s\n", b.Title)
	}
	if b.Category != "" {
		fmt.Printf("Category: %s\n", b.Category)
	}
	if len(b.Tags) > 0 {
		fmt.Printf("Tags:     %s\n", strings.Join(b.Tags, ", "))
	}
	if b.Summary != "" {
		fmt.Printf("Summary:  %s\n", b.Summary)
	}
	if b.ReadingTime > 0 {
		fmt.Printf("Reading:  %d min\n", b.ReadingTime)
	}
	fmt.Printf("Added:    %s\n", b.CreatedAt.Local().Format(time.RFC1123))
}

func collectionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "collections",
		Usage: "List collections and their bookmark counts",
		Action: func(c *cli.Context) error {
			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			collections, err := db.CollectionRepository().GetAllCollections(c.Context)
			if err != nil {
				return err
			}
			if len(collections) == 0 {
				fmt.Println("No collections.")
				return nil
			}
			for _, collection := range collections {
				members, err := db.CollectionRepository().GetBookmarksByCollection(c.Context, collection.Id)
				if err != nil {
					return err
				}
				fmt.Printf("%-24s %d bookmarks\n", collection.Name, len(members))
			}
			return nil
		},
	}
}

func reindexCommand() *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild embeddings and the lexical index for every bookmark",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of bookmarks to process in each batch",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "report-interval",
				Usage: "Report progress every N bookmarks",
				Value: 100,
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum retry attempts for embedding calls",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff",
				Value: 1 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "lexical-only",
				Usage: "Rebuild only the lexical index, skipping embedding calls",
			},
		},
		Action: func(c *cli.Context) error {
			config := &reindex.Config{
				BatchSize:      c.Int("batch-size"),
				ReportInterval: c.Int("report-interval"),
				MaxRetries:     c.Int("max-retries"),
				RetryDelay:     c.Duration("retry-delay"),
				LexicalOnly:    c.Bool("lexical-only"),
			}
			if config.BatchSize <= 0 {
				return fmt.Errorf("batch-size must be greater than 0")
			}
			if config.ReportInterval <= 0 {
				return fmt.Errorf("report-interval must be greater than 0")
			}
			if config.MaxRetries <= 0 {
				return fmt.Errorf("max-retries must be greater than 0")
			}

			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Database: %s\n\n", dbPath(c))
			return db.NewReindexer(config, os.Stderr).Run(c.Context)
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Run the ingestion pipeline against a Redis-backed queue",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis server address",
				EnvVars: []string{"STASH_REDIS_ADDR"},
			},
			&cli.StringFlag{
				Name:  "queue",
				Usage: "Queue name",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent workers",
				Value: ingestion.DefaultWorkerCount,
			},
		},
		Action: func(c *cli.Context) error {
			cfg := appConfig(c)

			addr := c.String("redis-addr")
			if addr == "" {
				addr = cfg.Redis.Addr
			}
			if addr == "" {
				addr = "localhost:6379"
			}
			queueName := c.String("queue")
			if queueName == "" {
				queueName = cfg.Redis.Queue
			}

			db, err := openDatabase(c)
			if err != nil {
				return err
			}
			defer db.Close()

			client := redis.NewClient(&redis.Options{
				Addr:     addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			queue := ingestion.NewRedisQueue(client, queueName)

			pipeline, err := db.NewIngestionPipeline(
				ingestion.WithQueue(queue),
				ingestion.WithWorkerCount(c.Int("workers")),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := pipeline.Start(ctx); err != nil {
				pipeline.Release()
				return err
			}
			slog.Info("worker running", "redis", addr, "workers", c.Int("workers"))

			<-ctx.Done()
			slog.Info("shutting down")
			pipeline.Release()
			return nil
		},
	}
}
