// daybook is a single-user planning assistant: an append-only event log of
// check-ins, reflections, decisions, and goals, with context-grounded chat
// and pattern detection on top.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"daybook/internal/config"
	"daybook/internal/embedding"
	"daybook/internal/logging"
	"daybook/internal/memory"
	"daybook/internal/planner"
	"daybook/internal/reasoning"
	"daybook/internal/store"
	"daybook/internal/tasks"
	"daybook/internal/types"

	"github.com/spf13/cobra"
)

var dataDirFlag string

// app holds the wired subsystems for a command invocation.
type app struct {
	cfg     *config.Config
	store   *store.Store
	mem     *memory.LocalMemory
	planner *planner.Planner
}

// openApp loads config and brings up the store, memory, and planner.
// Collaborators that are not configured are simply absent.
func openApp() (*app, error) {
	dataDir := dataDirFlag
	if dataDir == "" {
		dataDir = os.Getenv("DAYBOOK_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = ".daybook"
	}

	cfg, err := config.Load(dataDir + "/config.yaml")
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	if err := logging.Initialize(cfg.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
	}
	logging.Boot("daybook %s starting (data dir %s)", cfg.Version, cfg.DataDir)

	s, err := store.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if cfg.Memory.Embedding.Provider != "" {
		engine, err := embedding.NewEngine(embedding.Config{
			Provider:       cfg.Memory.Embedding.Provider,
			OllamaEndpoint: cfg.Memory.Embedding.OllamaEndpoint,
			OllamaModel:    cfg.Memory.Embedding.OllamaModel,
			GenAIAPIKey:    cfg.Memory.Embedding.GenAIAPIKey,
			GenAIModel:     cfg.Memory.Embedding.GenAIModel,
			TaskType:       cfg.Memory.Embedding.TaskType,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: embeddings unavailable, using keyword recall: %v\n", err)
		} else if err := checkEmbeddingHealth(engine); err != nil {
			fmt.Fprintf(os.Stderr, "warning: embedding service unreachable, using keyword recall: %v\n", err)
		} else {
			s.SetEmbeddingEngine(engine)
		}
	}

	mem := memory.NewLocal(s)

	opts := planner.Options{}
	if cfg.Reasoning.APIKey != "" {
		r, err := reasoning.NewGenAI(context.Background(), cfg.Reasoning, cfg.GetReasoningTimeout())
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: reasoning unavailable: %v\n", err)
		} else {
			opts.Reasoner = r
		}
	}
	if c := tasks.NewClient(cfg.Tasks, cfg.GetTasksTimeout()); c != nil {
		opts.Tasks = c
	}

	return &app{
		cfg:     cfg,
		store:   s,
		mem:     mem,
		planner: planner.New(s, mem, cfg, opts),
	}, nil
}

// checkEmbeddingHealth probes engines that support it; engines without a
// health check are assumed reachable.
func checkEmbeddingHealth(engine embedding.Engine) error {
	hc, ok := engine.(embedding.HealthChecker)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return hc.HealthCheck(ctx)
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	logging.CloseAll()
}

// today returns the flag date or the current session date.
func today(flag string) string {
	if flag != "" {
		return flag
	}
	return time.Now().Format(types.DateLayout)
}

func main() {
	root := &cobra.Command{
		Use:           "daybook",
		Short:         "Personal planning assistant with an append-only memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default .daybook)")

	root.AddCommand(
		newCheckinCmd(),
		newReflectCmd(),
		newDecideCmd(),
		newOutcomeCmd(),
		newChatCmd(),
		newPatternsCmd(),
		newGoalCmd(),
		newTasksCmd(),
		newFactCmd(),
		newShowCmd(),
		newScanCmd(),
		newStatsCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
