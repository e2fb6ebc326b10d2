package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/valuation"

	"github.com/spf13/cobra"
)

type fundamentalsOutput struct {
	Fundamentals models.Fundamentals    `json:"fundamentals"`
	Models       models.ValuationModels `json:"valuationModels"`
}

func newFundamentalsCmd(o *options) *cobra.Command {
	var (
		ticker string
		price  float64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "fundamentals",
		Short: "Show synthetic fundamentals and the DCF/DDM/multiples anchor for a ticker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := valuation.NewSyntheticProvider().Fundamentals(cmd.Context(), ticker, price)
			if err != nil {
				return err
			}
			ecfg, err := o.engineConfig()
			if err != nil {
				return err
			}
			res := fundamentalsOutput{Fundamentals: f, Models: ecfg.Valuation.Evaluate(f, price)}
			if asJSON {
				enc := json.NewEncoder(o.out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Ticker\t%s (%s)\n", f.Ticker, f.Source)
			fmt.Fprintf(w, "EPS / FCF per share\t%.2f / %.2f\n", f.EPS, f.FCFPerShare)
			fmt.Fprintf(w, "Dividend per share\t%.2f\n", f.DividendPerShare)
			fmt.Fprintf(w, "Beta\t%.2f\n", f.Beta)
			fmt.Fprintf(w, "DCF\t%s\n", money(res.Models.DCF))
			fmt.Fprintf(w, "DDM\t%s\n", money(res.Models.DDM))
			fmt.Fprintf(w, "Multiples\t%s\n", money(res.Models.Multiples))
			fmt.Fprintf(w, "Anchor\t%s (upside %s)\n", money(res.Models.Anchor), pct(res.Models.Upside))
			fmt.Fprintf(w, "Signal\t%s\n", res.Models.Signal)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&ticker, "ticker", "", "ticker symbol")
	cmd.Flags().Float64Var(&price, "price", 0, "current price")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("ticker")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func money(n models.NullFloat) string {
	if !n.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", n.Float64)
}
