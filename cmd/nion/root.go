package main

import (
	"github.com/spf13/cobra"

	"nion/internal/cache"
	"nion/internal/config"
	"nion/internal/engine"
	nionerrors "nion/internal/errors"
	"nion/internal/knowledge"
	"nion/internal/llm"
	"nion/internal/logging"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "nion",
		Short:         "Hierarchical orchestration engine",
		Long:          "Nion turns unstructured project messages into structured action items, risks, decisions, and Q&A records through a staged orchestration pipeline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newProcessCmd(&configPath))
	return root
}

func loadConfig(path string) (config.Config, error) {
	return config.Load(config.WithFile(path))
}

// buildEngine assembles the full dependency chain from configuration: the
// generation client, the cache tiers, the knowledge service, and the engine.
func buildEngine(cfg config.Config) (*engine.Engine, error) {
	logger := logging.NewComponentLogger("nion")
	if cfg.Debug {
		logging.SetLevel(logging.LevelDebug)
	}

	var client llm.Client
	switch cfg.LLMProvider {
	case config.ProviderMock:
		logger.Info("using mock generation client")
		client = llm.NewMockClient()
	default:
		client = llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:     cfg.LLMBaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.RequestTimeout,
		})
	}

	var primary cache.Store
	if cfg.CacheRemoteURL != "" {
		primary = cache.NewHTTPStore(cfg.CacheRemoteURL, nil)
	}
	tiered := cache.NewTiered(primary, cache.NewMemoryStore(cfg.CacheMaxEntries), logger)
	know := knowledge.NewService(tiered, cfg.KnowledgeTTL)

	return engine.New(client, know, engine.Options{
		MaxSteps: cfg.MaxSteps,
		Retry: nionerrors.RetryConfig{
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: cfg.RetryInitialDelay,
		},
		Logger: logger,
	})
}
