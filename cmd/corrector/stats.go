package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lilyanlefevre/formula-corrector/internal/export"
	"github.com/lilyanlefevre/formula-corrector/internal/stats"
)

func statsCmd(a *app) *cobra.Command {
	var (
		af     analyzeFlags
		top    int
		pairs  bool
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "stats <compounds.csv>",
		Short: "Rank corrections by how many matches they produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.analyze(cmd, args[0], af)
			if err != nil {
				return err
			}
			list := report.Stats
			if top > 0 {
				list = stats.Top(list, top)
			}

			if output != "" {
				if err := writeStatsFile(output, report.Stats); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "statistics written to %s\n", output)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			case "pretty":
				return printStats(out, list, stats.Total(report.Stats), pairs)
			default:
				return fmt.Errorf("unknown format %q (want pretty or json)", format)
			}
		},
	}
	af.register(cmd)
	cmd.Flags().IntVar(&top, "top", 0, "only show the N most used corrections")
	cmd.Flags().BoolVar(&pairs, "pairs", false, "list the matched compound pairs of each correction")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the ranking as CSV")
	cmd.Flags().StringVar(&format, "format", "pretty", "output format: pretty|json")
	return cmd
}

func printStats(w io.Writer, list []stats.CorrectionStats, total int, pairs bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCORRECTION\tTIMES USED")
	for i, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", i+1, s.Correction.Name(), s.TimesUsed)
		if pairs {
			for _, p := range s.MatchedCompounds {
				fmt.Fprintf(tw, "\t  %s -> %s\t\n", p.Original.ID, p.Matched.ID)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\ntotal corrections applied: %d\n", total)
	return nil
}

func writeStatsFile(path string, list []stats.CorrectionStats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteStats(f, list); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
