package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lilyanlefevre/formula-corrector/internal/analysis"
	"github.com/lilyanlefevre/formula-corrector/internal/compound"
	"github.com/lilyanlefevre/formula-corrector/internal/export"
	"github.com/lilyanlefevre/formula-corrector/internal/matcher"
)

// analyzeFlags are shared by match and stats.
type analyzeFlags struct {
	excludeSelf bool
	delimiter   string
	encoding    string
	noHeader    bool
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.excludeSelf, "exclude-self", false, "drop matches of a compound with itself")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "field delimiter (overrides config)")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "input charset, e.g. utf-8, windows-1252 (overrides config)")
	cmd.Flags().BoolVar(&f.noHeader, "no-header", false, "the first row is data, not a header")
}

func (a *app) analyze(cmd *cobra.Command, input string, f analyzeFlags) (*analysis.Report, error) {
	load := a.loadOptions()
	if f.delimiter != "" {
		load.Delimiter = f.delimiter
	}
	if f.encoding != "" {
		load.Encoding = f.encoding
	}
	if cmd.Flags().Changed("no-header") {
		load.NoHeader = f.noHeader
	}
	opts := matcher.Options{ExcludeSelf: a.cfg.Match.ExcludeSelf}
	if cmd.Flags().Changed("exclude-self") {
		opts.ExcludeSelf = f.excludeSelf
	}

	repo, err := a.repository()
	if err != nil {
		return nil, err
	}
	svc := analysis.NewService(repo, analysis.WithTracing(a.cfg.Tracing.Enabled))
	return svc.AnalyzeFile(cmd.Context(), "cli", input, load, opts)
}

func matchCmd(a *app) *cobra.Command {
	var (
		af       analyzeFlags
		output   string
		noExport bool
		sortBy   string
		desc     bool
		filter   string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "match <compounds.csv>",
		Short: "Apply every correction to every compound and list the matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := compound.ParseSortKey(sortBy)
			if err != nil {
				return err
			}
			input := args[0]
			report, err := a.analyze(cmd, input, af)
			if err != nil {
				return err
			}

			if !noExport {
				path := output
				if path == "" {
					path = export.DefaultResultsPath(input)
					if a.cfg.Export.Dir != "" {
						path = filepath.Join(a.cfg.Export.Dir, filepath.Base(path))
					}
				}
				if err := export.WriteResultsFile(path, report.Compounds, report.Results); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "results written to %s\n", path)
			}

			counts := matcher.Counts(report.Results)
			shown := matcher.Filter(report.Compounds, report.Results, filter)
			if cmd.Flags().Changed("sort") {
				shown = compound.Sort(shown, compound.SortOptions{
					Key:        key,
					Descending: desc,
					MatchCount: func(e compound.Entry) int { return counts[e.ID] },
				})
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				report.Compounds = shown
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "pretty":
				return printMatches(out, report, shown)
			default:
				return fmt.Errorf("unknown format %q (want pretty or json)", format)
			}
		},
	}
	af.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "results file (default results_<input>.csv next to the input)")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "do not write the results file")
	cmd.Flags().StringVar(&sortBy, "sort", "id", "sort the table by id|mz|formula|matches")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	cmd.Flags().StringVar(&filter, "filter", "", "only show rows containing this text")
	cmd.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")
	return cmd
}

func printMatches(w io.Writer, report *analysis.Report, shown []compound.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tM/Z\tFORMULA\tMATCHES")
	for _, c := range shown {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.MZText(), c.OriginalFormula, export.MatchCell(matcher.ForCompound(report.Results, c.ID)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%d compounds, %d corrections, %d matches across %d compounds\n",
		len(report.Compounds), report.Corrections, s.TotalMatches, s.CompoundsMatched)
	if n := len(report.Load.Dropped); n > 0 {
		fmt.Fprintf(w, "%d malformed rows skipped\n", n)
	}
	if s.CompoundsMultiple > 0 {
		fmt.Fprintf(w, "warning: %d compounds have more than one match and need review\n", s.CompoundsMultiple)
	}
	return nil
}
