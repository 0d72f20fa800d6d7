package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/texmerge/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// cliOptions holds state shared by every subcommand
type cliOptions struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "texmerge",
		Short: "Consolidate multi-file LaTeX sources into one deduplicated plain body",
		Long: `texmerge resolves include directives across a LaTeX project, picks the
plausible root documents, strips markup noise, and merges near-duplicate
roots into a single body with per-paragraph provenance.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newMergeCmd(opts),
		newRankCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

// init loads configuration and builds the logger
func (o *cliOptions) init() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	if o.verbose {
		level = zapcore.DebugLevel
	}

	logger, err := newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

// newLogger logs JSON to stderr; stdout carries merge output and the MCP protocol
func newLogger(level zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
