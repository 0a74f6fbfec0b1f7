// memctl is an operational CLI over the graph memory engine: ingest text,
// search, dump, and wipe tenant scopes against the configured backend.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"graphmem/internal/adapter"
	"graphmem/internal/backend"
	"graphmem/internal/extraction"
	"graphmem/internal/memory"
	"graphmem/internal/store"
	"graphmem/pkg/config"
	"graphmem/pkg/logger"
)

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Tenant user id", Required: true},
		&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Optional agent id"},
		&cli.StringFlag{Name: "run", Aliases: []string{"r"}, Usage: "Optional run id"},
	}
}

func scopeFromFlags(cmd *cli.Command) store.Filters {
	return store.Filters{
		UserID:  cmd.String("user"),
		AgentID: cmd.String("agent"),
		RunID:   cmd.String("run"),
	}
}

func openMemory(ctx context.Context) (*memory.Memory, store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	graphStore, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	llm := adapter.NewLLMAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	embedder := adapter.NewEmbeddingAdapter(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDims)
	extractor := extraction.NewExtractor(llm, "")
	return memory.New(graphStore, extractor, embedder), graphStore, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	cmd := &cli.Command{
		Name:  "memctl",
		Usage: "Tenant-scoped graph memory over Neo4j or SQLite",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Ingest text into the tenant's graph",
				ArgsUsage: "<text>",
				Flags:     scopeFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					text := cmd.Args().First()
					if text == "" {
						return fmt.Errorf("text argument is required")
					}

					mem, graphStore, err := openMemory(ctx)
					if err != nil {
						return err
					}
					defer graphStore.Close(ctx)

					result, err := mem.Add(ctx, text, scopeFromFlags(cmd))
					if err != nil {
						return err
					}
					return printJSON(result)
				},
			},
			{
				Name:      "search",
				Usage:     "Search the tenant's graph",
				ArgsUsage: "<query>",
				Flags: append(scopeFlags(),
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results", Value: 10},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					query := cmd.Args().First()
					if query == "" {
						return fmt.Errorf("query argument is required")
					}

					mem, graphStore, err := openMemory(ctx)
					if err != nil {
						return err
					}
					defer graphStore.Close(ctx)

					results, err := mem.Search(ctx, query, scopeFromFlags(cmd), int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					return printJSON(results)
				},
			},
			{
				Name:  "get",
				Usage: "Dump the tenant's edges",
				Flags: append(scopeFlags(),
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum results", Value: 100},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					mem, graphStore, err := openMemory(ctx)
					if err != nil {
						return err
					}
					defer graphStore.Close(ctx)

					results, err := mem.GetAll(ctx, scopeFromFlags(cmd), int(cmd.Int("limit")))
					if err != nil {
						return err
					}
					return printJSON(results)
				},
			},
			{
				Name:  "delete",
				Usage: "Wipe the tenant's scope",
				Flags: scopeFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					mem, graphStore, err := openMemory(ctx)
					if err != nil {
						return err
					}
					defer graphStore.Close(ctx)

					if err := mem.DeleteAll(ctx, scopeFromFlags(cmd)); err != nil {
						return err
					}
					fmt.Println("scope deleted")
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "Wipe everything, all tenants",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Usage: "Confirm the wipe", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					mem, graphStore, err := openMemory(ctx)
					if err != nil {
						return err
					}
					defer graphStore.Close(ctx)

					if err := mem.Reset(ctx); err != nil {
						return err
					}
					fmt.Println("store reset")
					return nil
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Get().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
