package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/analytics"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(o *options) *cobra.Command {
	var (
		file    string
		ticker  string
		asJSON  bool
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one bar file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bars, err := readBars(file)
			if err != nil {
				return err
			}
			if ticker == "" {
				ticker = tickerFromPath(file)
			}
			ecfg, err := o.engineConfig()
			if err != nil {
				return err
			}
			res, err := analytics.NewEngine(nil, analytics.WithConfig(ecfg)).Analyze(cmd.Context(), ticker, bars)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(o.out)
				enc.SetIndent("", "  ")
				if compact {
					return enc.Encode(res.Summary())
				}
				return enc.Encode(res)
			}
			return printResult(o, res)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON bar file")
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker symbol (default: file name)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&compact, "compact", false, "with --json, print only the summary")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func printResult(o *options, r *models.AnalysisResult) error {
	w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	rec := r.Recommendation
	fmt.Fprintf(w, "Ticker\t%s\n", r.Ticker)
	fmt.Fprintf(w, "Price\t%.2f\n", r.CurrentPrice)
	fmt.Fprintf(w, "Action\t%s (confidence %.2f, score %.3f)\n", rec.Action, rec.Confidence, rec.Score)
	fmt.Fprintf(w, "Target / Stop\t%.2f / %.2f\n", r.Target, r.StopLoss)
	fmt.Fprintf(w, "Regime\t%s (trend %s, strength %.1f)\n", r.Regime.Overall, r.Regime.Trend.Direction, r.Regime.Trend.Strength)
	fmt.Fprintf(w, "Risk\t%s (vol %.3f, sharpe %.2f, max dd %.3f)\n", r.Risk.RiskLevel, r.Risk.Volatility, r.Risk.Sharpe, r.Risk.MaxDrawdown)
	fmt.Fprintf(w, "Stretch\t%s (%.1f)\n", r.Valuation.Verdict, r.Valuation.Score)
	fmt.Fprintf(w, "Valuation\t%s (upside %s)\n", r.ValuationModels.Signal, pct(r.ValuationModels.Upside))
	fmt.Fprintf(w, "Signals\t%s\n", r.StatSignals.Aggregate.Signal)
	if len(rec.Reasons) > 0 {
		fmt.Fprintf(w, "Reasons\t%s\n", strings.Join(rec.Reasons, "; "))
	}
	return w.Flush()
}

func pct(n models.NullFloat) string {
	if !n.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", n.Float64*100)
}
