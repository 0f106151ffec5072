// Command helmsman runs the agent platform: an HTTP/WebSocket server plus
// maintenance subcommands for ingesting and querying the knowledge base.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/helmsman-ai/helmsman/config"
	"github.com/helmsman-ai/helmsman/engine"
	"github.com/helmsman-ai/helmsman/guardrails"
	"github.com/helmsman-ai/helmsman/llm"
	"github.com/helmsman-ai/helmsman/memory"
	"github.com/helmsman-ai/helmsman/memory/store/jsonfile"
	"github.com/helmsman-ai/helmsman/memory/store/sqlitestore"
	"github.com/helmsman-ai/helmsman/rag"
	"github.com/helmsman-ai/helmsman/server"
	"github.com/helmsman-ai/helmsman/tools"
	"github.com/helmsman-ai/helmsman/tools/websearch"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "helmsman",
	Short: "Bounded agent orchestration with hybrid memory",
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.AddCommand(serveCmd, ingestCmd, queryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// stack holds the wired application components.
type stack struct {
	cfg          *config.Config
	memory       *memory.Hybrid
	retriever    *rag.RAG
	registry     *tools.Registry
	guards       *guardrails.Guardrails
	limiter      *guardrails.RateLimiter
	orchestrator *engine.Orchestrator
	closers      []func() error
}

func (s *stack) close() {
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			log.Printf("[MAIN] close: %v", err)
		}
	}
}

func buildStack(ctx context.Context) (*stack, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	s := &stack{cfg: cfg}

	var persistence memory.Persistence
	switch cfg.MemoryBackend {
	case "jsonfile":
		persistence = jsonfile.New(cfg.MemoryPath)
	case "sqlite":
		store, err := sqlitestore.Open(cfg.MemoryPath)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		persistence = store
		s.closers = append(s.closers, store.Close)
	case "none", "":
		// Memory-only.
	default:
		return nil, fmt.Errorf("unknown memory backend %q", cfg.MemoryBackend)
	}

	s.memory = memory.NewHybrid(
		memory.NewShortTerm(cfg.ShortTermMaxItems, cfg.ShortTermTTL.Std()),
		memory.NewLongTerm(ctx, persistence),
	)
	s.retriever = rag.New(s.memory)

	guardCfg := guardrails.DefaultConfig()
	guardCfg.ToxicityThreshold = cfg.ToxicityThreshold
	guardCfg.AllowedTools = cfg.AllowedTools
	s.guards = guardrails.New(guardCfg)
	s.limiter = guardrails.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	s.registry = tools.NewRegistry(s.guards)
	s.registry.RegisterDocumentSearch(s.retriever)

	var searchProvider websearch.Provider
	if cfg.UseMockSearch {
		searchProvider = websearch.NewMock()
	} else {
		cached, err := websearch.NewCached(websearch.NewSearXNG(cfg.SearXNGURL), 0)
		if err != nil {
			return nil, fmt.Errorf("create search provider: %w", err)
		}
		searchProvider = cached
	}
	s.registry.RegisterWebSearch(searchProvider)

	var providers []llm.Client
	if cfg.AnthropicAPIKey != "" {
		providers = append(providers, llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers, llm.NewOpenAICompatible("openai", cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel))
	}
	if len(providers) == 0 {
		log.Printf("[MAIN] no LLM API keys configured, responses will be mocked")
	}

	s.orchestrator = engine.New(llm.NewMulti(providers...),
		engine.WithTools(s.registry),
		engine.WithRetriever(s.retriever),
		engine.WithMaxSteps(cfg.MaxSteps),
		engine.WithGeneration(cfg.MaxTokens, cfg.Temperature),
		engine.WithStepTimeout(cfg.StepTimeout.Std()),
		engine.WithRunTimeout(cfg.RunTimeout.Std()),
	)
	return s, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/WebSocket server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := buildStack(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		srv := server.New(server.Deps{
			Orchestrator: s.orchestrator,
			Retriever:    s.retriever,
			Registry:     s.registry,
			Guards:       s.guards,
			RateLimiter:  s.limiter,
			Memory:       s.memory,
		})

		log.Printf("[MAIN] listening on :%s", s.cfg.Port)
		return srv.Listen(s.cfg.Port)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Ingest a document file into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		if title == "" {
			title = args[0]
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}

		s, err := buildStack(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		docID := s.retriever.IngestDocument(cmd.Context(), title, string(content), map[string]any{
			"source": args[0],
		})
		fmt.Println(docID)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Query the knowledge base and print scored passages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		s, err := buildStack(cmd.Context())
		if err != nil {
			return err
		}
		defer s.close()

		query := args[0]
		for _, arg := range args[1:] {
			query += " " + arg
		}

		results := s.retriever.Retrieve(cmd.Context(), query, "", limit)
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("title", "", "Document title (defaults to the file path)")
	queryCmd.Flags().Int("limit", 5, "Maximum passages to return")
}
