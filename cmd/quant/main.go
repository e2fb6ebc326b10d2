package main

import (
	"fmt"
	"io"
	"os"

	"FinScope/internal/services/analytics"
	"FinScope/pkg/config"

	"github.com/spf13/cobra"
)

// options shared by every subcommand.
type options struct {
	configPath string
	out        io.Writer
}

// engineConfig returns the engine section of the config file, or the
// built-in defaults when no file is given.
func (o *options) engineConfig() (analytics.Config, error) {
	if o.configPath == "" {
		return analytics.DefaultConfig(), nil
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return analytics.Config{}, err
	}
	return cfg.Analysis.Engine, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out}
	root := &cobra.Command{
		Use:   "quant",
		Short: "Offline FinScope analysis over local bar files",
		Long: `quant runs the FinScope analysis engine over OHLCV series stored as JSON
files ([{"time","open","high","low","close","volume"}, ...]).

Examples:
  quant analyze --file bars/AAPL.json
  quant analyze --file bars/AAPL.json --json
  quant screen --dir bars/
  quant fundamentals --ticker AAPL --price 187.5`,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file supplying analysis.engine overrides")

	root.AddCommand(newAnalyzeCmd(o), newScreenCmd(o), newFundamentalsCmd(o))
	return root
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
