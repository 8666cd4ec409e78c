package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ClaimReserve/internal/domain/models"
	"ClaimReserve/internal/repository"
	"ClaimReserve/internal/services/chainladder"
)

type analyzeFlags struct {
	file          string
	method        string
	tailFactor    float64
	seed          uint64
	currentPeriod int
	format        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reserve",
		Short:        "Chain-Ladder claims reserving",
		SilenceUsage: true,
	}
	root.AddCommand(newAnalyzeCmd())
	return root
}

func newAnalyzeCmd() *cobra.Command {
	def := chainladder.DefaultConfig()
	f := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a reserve analysis on a policy CSV file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "policy table in CSV format")
	cmd.Flags().StringVar(&f.method, "method", string(models.DefaultMethod), "factor selection: simple_average, weighted_average, geometric_mean, median")
	cmd.Flags().Float64Var(&f.tailFactor, "tail-factor", models.DefaultTailFactor, "development beyond the last observed period")
	cmd.Flags().Uint64Var(&f.seed, "seed", def.Seed, "random seed for claim synthesis")
	cmd.Flags().IntVar(&f.currentPeriod, "current-period", def.CurrentPeriod, "evaluation period")
	cmd.Flags().StringVar(&f.format, "format", "table", "output format: json or table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAnalyze(out io.Writer, f *analyzeFlags) error {
	if f.format != "json" && f.format != "table" {
		return fmt.Errorf("unknown format %q", f.format)
	}
	in, err := os.Open(f.file)
	if err != nil {
		return err
	}
	defer in.Close()

	policies, err := repository.NewCSVPolicyReader(0).Read(in)
	if err != nil {
		return fmt.Errorf("%s: %w", f.file, err)
	}

	cfg := chainladder.DefaultConfig()
	cfg.Seed = f.seed
	cfg.CurrentPeriod = f.currentPeriod
	res, err := chainladder.NewEngine(cfg).Analyze(policies, models.AnalysisOptions{
		Method:     models.Method(f.method),
		TailFactor: f.tailFactor,
	})
	if err != nil {
		return err
	}

	if f.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeTable(out, res)
}

func writeTable(out io.Writer, res *models.ReserveResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(tw, "Method: %s\tTail factor: %s\t\n\n", res.Method, decimal.NewFromFloat(res.TailFactor).StringFixed(4))

	fmt.Fprintln(tw, "Period\tFactor\t")
	for _, s := range res.SelectedFactors {
		fmt.Fprintf(tw, "%s\t%s\t\n", s.Period, decimal.NewFromFloat(s.Factor).StringFixed(4))
	}
	fmt.Fprintln(tw, "\t\t")

	fmt.Fprintln(tw, "Origin\tLatest dev\tPaid\tUltimate\tIBNR\tIBNR %\t")
	for _, r := range res.Summary {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t\n",
			r.Origin, r.LatestDev,
			models.Money(r.LatestPaid).StringFixed(2),
			models.Money(r.Ultimate).StringFixed(2),
			models.Money(r.IBNR).StringFixed(2),
			decimal.NewFromFloat(r.IBNRPercent).StringFixed(2),
		)
	}
	fmt.Fprintf(tw, "Total\t\t%s\t%s\t%s\t%s\t\n",
		models.Money(res.TotalPaid).StringFixed(2),
		models.Money(res.TotalUltimate).StringFixed(2),
		models.Money(res.TotalIBNR).StringFixed(2),
		decimal.NewFromFloat(res.OverallIBNRPercent).StringFixed(2),
	)
	return tw.Flush()
}
