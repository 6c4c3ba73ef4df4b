// Copyright 2025 Poiesic Systems
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
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/corpora"
	"github.com/poiesic/corpora/ai"
	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/ingestion"
	"github.com/poiesic/corpora/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := loadEnvFile(".env"); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadEnvFile loads name into the environment if it exists. Variables
// already set take precedence.
func loadEnvFile(name string) error {
	if _, err := os.Stat(name); err != nil {
		return nil
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("error loading %s: %w", name, err)
	}
	return nil
}

func newApp() *cli.App {
	defaults := corpora.DefaultSettings()
	return &cli.App{
		Name:  "corpora",
		Usage: "Hybrid structured and semantic retrieval over a knowledge corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				EnvVars: []string{"CORPORA_DB"},
				Value:   defaults.DatabasePath,
			},
			&cli.StringFlag{
				Name:    "corpus",
				Aliases: []string{"c"},
				Usage:   "Path to the corpus directory",
				EnvVars: []string{"CORPORA_ROOT"},
				Value:   defaults.CorpusRoot,
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Embedding service API key",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"OPENAI_API_BASE"},
				Value:   defaults.AI.EmbeddingHost,
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"OPENAI_EMBEDDING_MODEL"},
				Value:   defaults.AI.EmbeddingModel,
			},
			&cli.IntFlag{
				Name:    "dimensions",
				Usage:   "Expected embedding length (0 disables the check)",
				EnvVars: []string{"OPENAI_EMBEDDING_DIMENSIONS"},
				Value:   defaults.AI.Dimensions,
			},
			&cli.Float64Flag{
				Name:  "requests-per-second",
				Usage: "Maximum embedding requests per second (0 for unlimited)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Rebuild the store from the corpus",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Chunk window size in tokens",
						Value: defaults.ChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Tokens shared by neighbouring chunks",
						Value: defaults.ChunkOverlap,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each call",
						Value: defaults.BatchSize,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per embedding batch",
						Value: defaults.EmbeddingRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: defaults.RetryBaseDelay,
					},
					&cli.DurationFlag{
						Name:  "embed-timeout",
						Usage: "Timeout for a single embedding call",
						Value: defaults.EmbeddingTimeout,
					},
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Abort on the first document that cannot be read",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a hybrid search and print the context as JSON",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "per-table-limit",
						Usage: "Maximum structured hits per table",
						Value: defaults.StructuredPerTableLimit,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum structured hits overall",
						Value: defaults.StructuredLimit,
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks returned by vector search",
						Value: defaults.VectorLimit,
					},
					&cli.BoolFlag{
						Name:  "structured-only",
						Usage: "Skip vector search (no embedding service needed)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print the number of rows in each table",
				Action: statsCommand,
			},
		},
	}
}

// settingsFromContext builds engine settings from global and command flags.
// Command flags that are not defined keep their defaults.
func settingsFromContext(c *cli.Context) corpora.Settings {
	s := corpora.DefaultSettings()
	s.DatabasePath = c.String("db")
	s.CorpusRoot = c.String("corpus")
	s.AI = ai.NewConfig(
		ai.WithAPIKey(c.String("api-key")),
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithDimensions(c.Int("dimensions")),
		ai.WithRateLimit(c.Float64("requests-per-second"), 1),
	)

	if c.IsSet("chunk-size") {
		s.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("chunk-overlap") {
		s.ChunkOverlap = c.Int("chunk-overlap")
	}
	if c.IsSet("batch-size") {
		s.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		s.EmbeddingRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		s.RetryBaseDelay = c.Duration("retry-delay")
	}
	if c.IsSet("embed-timeout") {
		s.EmbeddingTimeout = c.Duration("embed-timeout")
	}
	if c.IsSet("per-table-limit") {
		s.StructuredPerTableLimit = c.Int("per-table-limit")
	}
	if c.IsSet("limit") {
		s.StructuredLimit = c.Int("limit")
	}
	if c.IsSet("k") {
		s.VectorLimit = c.Int("k")
	}
	s.StrictDocuments = c.Bool("strict")
	return s
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func ingestCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	settings := settingsFromContext(c)
	engine, err := corpora.NewEngine(settings, corpora.WithProgress(c.App.ErrWriter))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", settings.DatabasePath)
	fmt.Fprintf(c.App.ErrWriter, "Corpus: %s\n", settings.CorpusRoot)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", settings.AI.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	res := engine.RunFullIngestion(ctx)
	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, res); err != nil {
			return err
		}
	} else {
		printResult(c.App.Writer, res)
	}
	if !res.OK() {
		return fmt.Errorf("ingestion failed: %w", res.Err)
	}
	return nil
}

func printResult(w io.Writer, res *ingestion.Result) {
	fmt.Fprintln(w, res.Summary())
	for _, table := range core.StructuredTables {
		fmt.Fprintf(w, "  %-14s %d\n", table, res.Rows[table])
	}
	for _, e := range res.SourceErrors {
		fmt.Fprintf(w, "  skipped source %s (%s): %s\n", e.Loader, e.Path, e.Error)
	}
	for _, e := range res.DocumentErrors {
		fmt.Fprintf(w, "  skipped document %s: %s\n", e.Path, e.Error)
	}
	fmt.Fprintf(w, "  took %s\n", res.Duration.Round(time.Millisecond))
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return search.ErrEmptyQuery
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine, err := corpora.NewEngine(settingsFromContext(c))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	if c.Bool("structured-only") {
		hits, err := engine.StructuredSearch(ctx, query)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, &core.HybridContext{
			Query:          query,
			StructuredHits: hits,
			VectorHits:     []core.VectorHit{},
		})
	}

	result, err := engine.HybridSearch(ctx, query)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, result)
}

func statsCommand(c *cli.Context) error {
	engine, err := corpora.NewEngine(settingsFromContext(c))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	counts, err := engine.Stats(c.Context)
	if err != nil {
		return err
	}
	for _, t := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(c.App.Writer, "%-16s %d\n", t, counts[t])
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// setupLogger configures the default logger from the --log-level flag.
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

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
