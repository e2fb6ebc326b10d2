package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/services/analytics"
	"FinScope/internal/usecase"

	"github.com/spf13/cobra"
)

func newScreenCmd(o *options) *cobra.Command {
	var (
		dir         string
		lookback    int
		concurrency int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Analyze every bar file in a directory and rank by score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := newDirSource(dir)
			if err != nil {
				return err
			}
			ecfg, err := o.engineConfig()
			if err != nil {
				return err
			}
			analysis := usecase.NewAnalysisUseCase(src, analytics.NewEngine(nil, analytics.WithConfig(ecfg)))
			sc := usecase.NewScreenUseCase(analysis, concurrency, 5*time.Minute, nil)

			out, err := sc.Screen(cmd.Context(), usecase.ScreenParams{
				Tickers:  src.Tickers(),
				Interval: domrepo.Interval1d,
				Lookback: lookback,
			})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(o.out)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printScreen(o, out)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory of <TICKER>.json bar files")
	cmd.Flags().IntVar(&lookback, "lookback", 252, "bars per ticker")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel analyses")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printScreen(o *options, out *usecase.ScreenResult) error {
	w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTICKER\tACTION\tCONF\tSCORE\tREGIME\tRISK\tSTRETCH\tUPSIDE")
	for i, r := range out.Rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.3f\t%s\t%s\t%s\t%s\n",
			i+1, r.Ticker, r.Action, r.Confidence, r.Score, r.Regime, r.RiskLevel, r.Verdict, pct(r.Upside))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	failed := make([]string, 0, len(out.Errors))
	for t := range out.Errors {
		failed = append(failed, t)
	}
	sort.Strings(failed)
	for _, t := range failed {
		fmt.Fprintf(o.out, "skipped %s: %s\n", t, out.Errors[t])
	}
	return nil
}
