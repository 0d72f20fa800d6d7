package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/texmerge/internal/pipeline"
	"github.com/dshills/texmerge/internal/source"
	"github.com/dshills/texmerge/internal/storage"
	"github.com/dshills/texmerge/internal/watch"
	"github.com/dshills/texmerge/pkg/types"
)

type mergeOptions struct {
	root           string
	outPath        string
	provenancePath string
	watch          bool
	save           bool
}

func newMergeCmd(opts *cliOptions) *cobra.Command {
	mo := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge PATH",
		Short: "Merge a source directory, .tex file or archive into one body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			m := &merger{opts: opts, mo: mo, path: path, stdout: cmd.OutOrStdout()}

			if err := m.runOnce(ctx); err != nil {
				return err
			}
			if !mo.watch {
				return nil
			}
			return m.watch(ctx)
		},
	}

	cmd.Flags().StringVarP(&mo.root, "root", "r", "", "corpus key of the root file (skips discovery)")
	cmd.Flags().StringVarP(&mo.outPath, "out", "o", "", "write merged text to FILE instead of stdout")
	cmd.Flags().StringVar(&mo.provenancePath, "provenance", "", "write provenance and statistics JSON to FILE")
	cmd.Flags().BoolVarP(&mo.watch, "watch", "w", false, "re-run when source files change (directories only)")
	cmd.Flags().BoolVar(&mo.save, "save", false, "store the run in the run database")
	return cmd
}

// merger runs the pipeline for one input path, possibly repeatedly
type merger struct {
	opts   *cliOptions
	mo     *mergeOptions
	path   string
	stdout io.Writer
}

// provenanceReport is the --provenance file layout
type provenanceReport struct {
	Source     string               `json:"source"`
	RunID      string               `json:"run_id,omitempty"`
	Roots      []string             `json:"roots"`
	Provenance []types.Provenance   `json:"provenance"`
	Deps       map[string][]string  `json:"deps"`
	Statistics *pipeline.Statistics `json:"statistics"`
}

func (m *merger) runOnce(ctx context.Context) error {
	cfg, logger := m.opts.cfg, m.opts.logger

	corpus, err := source.Load(m.path, cfg.SourceOptions())
	if err != nil {
		return err
	}
	logger.Debug("sources loaded", zap.String("path", m.path), zap.Int("files", corpus.Len()))

	p := pipeline.New(cfg.Pipeline(), logger.Named("pipeline"))
	res, err := p.Run(ctx, corpus, m.mo.root)
	if err != nil {
		return err
	}
	for _, w := range res.Stats.Warnings {
		logger.Warn("merge warning", zap.String("warning", w))
	}

	var runID string
	if m.mo.save {
		runID, err = m.save(ctx, corpus, res)
		if err != nil {
			return err
		}
	}

	if err := m.writeText(res.Merged.Text); err != nil {
		return err
	}

	if m.mo.provenancePath != "" {
		report := provenanceReport{
			Source:     m.path,
			RunID:      runID,
			Roots:      res.Merged.Roots,
			Provenance: res.Merged.Provenance,
			Deps:       res.Deps,
			Statistics: res.Stats,
		}
		if err := writeJSON(m.mo.provenancePath, report); err != nil {
			return fmt.Errorf("failed to write provenance: %w", err)
		}
	}
	return nil
}

func (m *merger) writeText(text string) error {
	if m.mo.outPath == "" {
		_, err := fmt.Fprintln(m.stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.mo.outPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.mo.outPath, []byte(text+"\n"), 0644)
}

func (m *merger) save(ctx context.Context, corpus *types.Corpus, res *pipeline.Result) (string, error) {
	cfg := m.opts.cfg
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()

	run, sources, paragraphs := storage.NewRunRecord(m.path, source.ContentHash(corpus), cfg.RunKey(m.mo.root), corpus, res)
	if err := store.SaveRun(ctx, run, sources, paragraphs); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	m.opts.logger.Info("run stored", zap.String("run_id", run.ID), zap.String("db", dbPath))
	return run.ID, nil
}

func (m *merger) watch(ctx context.Context) error {
	info, err := os.Stat(m.path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("--watch needs a directory, got %s", m.path)
	}

	w, err := watch.New(m.path, m.opts.cfg.Source.Extensions, watch.DefaultDebounce, m.opts.logger.Named("watch"))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	m.opts.logger.Info("watching for changes", zap.String("path", m.path))

	return w.Run(ctx, func(changed string) {
		m.opts.logger.Info("change detected, merging again", zap.String("file", changed))
		if err := m.runOnce(ctx); err != nil {
			m.opts.logger.Error("merge failed", zap.Error(err))
		}
	})
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
