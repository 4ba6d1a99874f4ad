package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/config"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/evaluation"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/grading"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/configuration"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/store"
	"github.com/Sujitsarkar6112/AI-Examiner/pkg/events"
)

// deps are the process-level constructors. Tests replace the oracle.
type deps struct {
	newOracle func(ctx context.Context, cfg *configuration.Config) (llm.Oracle, error)
}

func defaultDeps() deps {
	return deps{
		newOracle: func(ctx context.Context, cfg *configuration.Config) (llm.Oracle, error) {
			return llm.NewClient(ctx, cfg)
		},
	}
}

// cli holds the state shared by every subcommand.
type cli struct {
	deps deps
	cfg  *config.Config

	configPath  string
	logLevel    string
	logFormat   string
	storeDriver string
}

func newRootCmd(d deps) *cobra.Command {
	c := &cli{deps: d}

	root := &cobra.Command{
		Use:   "examiner",
		Short: "Grade exam answer sheets with a panel of model examiners",
		Long: `examiner aligns a student's answers with the questions of an exam paper,
has three examiner personas grade every answer, and reconciles their opinions
into a Markdown report with a total score.

Evaluations run directly in-process (evaluate, serve) or as Temporal workflows
(worker, submit).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "examiner.yaml", "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "Log format: text or json")
	root.PersistentFlags().StringVar(&c.storeDriver, "store", "", "Evaluation store: memory or sqlite")

	root.AddCommand(
		c.evaluateCmd(),
		c.mapCmd(),
		c.extractCmd(),
		c.serveCmd(),
		c.workerCmd(),
		c.submitCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	if c.storeDriver != "" {
		cfg.Store.Driver = c.storeDriver
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(cfg.Logging.NewLogger(cmd.ErrOrStderr()))
	c.cfg = cfg
	return nil
}

func (c *cli) oracle(ctx context.Context) (llm.Oracle, func(), error) {
	o, err := c.deps.newOracle(ctx, &c.cfg.Oracle)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize oracle: %w", err)
	}
	closeFn := func() {}
	if cl, ok := o.(interface{ Close() error }); ok {
		closeFn = func() {
			if err := cl.Close(); err != nil {
				slog.Warn("failed to close oracle", "error", err)
			}
		}
	}
	return o, closeFn, nil
}

func (c *cli) openStore(ctx context.Context) (store.Store, error) {
	switch c.cfg.Store.Driver {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.OpenSQLite(ctx, c.cfg.Store.Path)
	}
}

func (c *cli) newEvaluator(oracle llm.Oracle) *evaluation.Evaluator {
	return evaluation.NewEvaluator(oracle, evaluation.WithPause(c.cfg.Grading.Pause))
}

func (c *cli) newService(oracle llm.Oracle, st store.Store) *grading.Service {
	return grading.NewService(oracle,
		grading.WithEvaluator(c.newEvaluator(oracle)),
		grading.WithStore(st),
		grading.WithEventSink(events.NewLogSink(slog.Default())),
		grading.WithTimeout(c.cfg.Grading.Timeout),
	)
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func readFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
