package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dshills/texmerge/internal/discover"
	"github.com/dshills/texmerge/internal/pipeline"
	"github.com/dshills/texmerge/internal/source"
	"github.com/dshills/texmerge/pkg/types"
)

func newRankCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rank PATH",
		Short: "Rank files as plausible root documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			corpus, err := source.Load(path, opts.cfg.SourceOptions())
			if err != nil {
				return err
			}
			if corpus.Len() == 0 {
				return types.ErrEmptyCorpus
			}

			p := pipeline.New(opts.cfg.Pipeline(), opts.logger.Named("pipeline"))
			renderRanking(cmd.OutOrStdout(), p.Rank(corpus), discover.GuessMain(corpus))
			return nil
		},
	}
}

// renderRanking prints ranked candidates as a table followed by the
// name-only main file guess
func renderRanking(w io.Writer, ranked []types.RankedRoot, guess string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Score", "File", "Class", "Document", "Title", "Hint", "Depth"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, r := range ranked {
		sig := r.Signals
		name := r.Name
		switch {
		case sig.MagicRoot:
			name += " (!TEX root)"
		case sig.Subfiles:
			name += " (subfiles)"
		}
		table.Append([]string{
			strconv.Itoa(r.Score),
			name,
			mark(sig.DocumentClass),
			mark(sig.BeginDocument),
			mark(sig.TitleOrAuthor),
			mark(sig.NameHint),
			strconv.Itoa(sig.Depth),
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d candidates", len(ranked)), "", "", "", "", ""})
	table.Render()

	if guess != "" {
		fmt.Fprintf(w, "\nmain file guess by name: %s\n", guess)
	}
}

func mark(b bool) string {
	if b {
		return "x"
	}
	return ""
}
