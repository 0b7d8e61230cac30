package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"truthline/internal/provider"
	"truthline/internal/scanner"
	"truthline/internal/strength"
	"truthline/internal/symbols"
	"truthline/internal/web"
	"truthline/pkg/model"
)

var (
	cfgFile string
	format  string
	verbose bool

	asOfDate      string
	benchmarkList string
	sector        string
	windowDays    int
	maDays        int
	minCoverage   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "truthline",
		Short: "Relative strength and SEC fundamentals for US equities",
		Long: `Truthline measures stocks against benchmark ETFs and reads their SEC filings:

Commands:
  rs     - Relative strength of targets against benchmarks
  truth  - Quarterly fundamentals and 10-K signals from SEC EDGAR
  serve  - HTTP API for both reports

Examples:
  truthline rs NVDA AMD --benchmarks SPY,SMH
  truthline truth NVDA --format json
  truthline serve --config truthline.yaml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "truthline.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	rsCmd := &cobra.Command{
		Use:   "rs TICKER...",
		Short: "Relative strength against benchmarks",
		Args:  cobra.RangeArgs(1, web.MaxTargets),
		RunE:  runRS,
	}
	rsCmd.Flags().StringVar(&asOfDate, "as-of", "", "as-of date YYYY-MM-DD (default: today)")
	rsCmd.Flags().StringVar(&benchmarkList, "benchmarks", "", "comma-separated benchmarks (default: config)")
	rsCmd.Flags().StringVar(&sector, "sector", "", "benchmark set: technology, biotech, industrials, energy, general")
	rsCmd.Flags().IntVar(&windowDays, "window", 0, "lookback window in trading days")
	rsCmd.Flags().IntVar(&maDays, "ma", 0, "moving average length in trading days")
	rsCmd.Flags().Float64Var(&minCoverage, "min-coverage", 0, "minimum overlap fraction 0..1")

	truthCmd := &cobra.Command{
		Use:   "truth TICKER...",
		Short: "Financial truth report from SEC EDGAR",
		Args:  cobra.RangeArgs(1, web.MaxTargets),
		RunE:  runTruth,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	rootCmd.AddCommand(rsCmd, truthCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runRS(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile, verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	targets := symbols.NormalizeList(args)
	for _, t := range targets {
		if !symbols.IsValid(t) {
			return fmt.Errorf("invalid ticker %q", t)
		}
	}

	benchmarks := a.cfg.RelativeStrength.Benchmarks
	switch {
	case benchmarkList != "":
		benchmarks = strings.Split(benchmarkList, ",")
	case sector != "":
		benchmarks = symbols.BenchmarksFor(symbols.Sector(strings.ToLower(sector)))
	}
	benchmarks = symbols.NormalizeList(benchmarks)

	date := asOfDate
	if date == "" {
		date = time.Now().UTC().Format(model.DateLayout)
	} else if _, err := time.Parse(model.DateLayout, date); err != nil {
		return fmt.Errorf("invalid --as-of %q: want YYYY-MM-DD", date)
	}

	settings := a.cfg.RelativeStrength.Settings
	if cmd.Flags().Changed("window") {
		settings.WindowTradingDays = windowDays
	}
	if cmd.Flags().Changed("ma") {
		settings.MaTradingDays = maDays
	}
	if cmd.Flags().Changed("min-coverage") {
		settings.MinCoveragePct = minCoverage
	}

	tickers := symbols.Union(targets, benchmarks)
	bar := progressbar.NewOptions(len(tickers),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Fetching prices"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	start := time.Now()
	prices := provider.FetchMultiple(ctx, a.priceProvider(), tickers, date, a.cfg.Prices.HistoryDays, a.log,
		func(done, _ int, _ string) { bar.Set(done) })
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("interrupted: %w", err)
	}

	out := strength.ComputeRelativeStrength(targets, benchmarks, prices, date, settings.Override())
	a.metrics.ObserveOperation("relative_strength", nil, time.Since(start))

	if format == "json" {
		return outputJSON(out)
	}
	printRS(out)
	return nil
}

func printRS(out model.RSOutput) {
	fmt.Printf("Relative strength as of %s (window %d, MA %d, min coverage %.0f%%)\n\n",
		out.AsOfDate, out.Settings.WindowTradingDays, out.Settings.MaTradingDays, out.Settings.MinCoveragePct*100)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Target", "Benchmark", "RS", "Return", "RS MA", "vs MA", "Coverage", "Signal"}),
	)

	for _, r := range out.Results {
		if r.Error.Valid {
			table.Append([]string{r.Ticker, "—", "—", "—", "—", "—", "—", r.Error.String})
			continue
		}
		for _, b := range r.Benchmarks {
			verdict := string(strength.Classify(b))
			if b.Error.Valid {
				verdict = b.Error.String
			}
			vs := "—"
			if b.RSVsMA.Valid {
				vs = b.RSVsMA.String
			}
			table.Append([]string{
				r.Ticker,
				b.Benchmark,
				strength.FormatLevel(b.RSLevel),
				strength.FormatReturn(b.RSReturn),
				strength.FormatLevel(b.RSMA),
				vs,
				fmt.Sprintf("%.0f%%", b.CoveragePct*100),
				verdict,
			})
		}
	}

	table.Render()
}

func runTruth(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile, verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) > 1 {
		return runTruthBatch(ctx, a, args)
	}

	start := time.Now()
	report, err := a.truthService().Build(ctx, args[0])
	a.metrics.ObserveOperation("financial_truth", err, time.Since(start))
	if err != nil {
		return err
	}

	if format == "json" {
		return outputJSON(report)
	}
	printTruth(report)
	return nil
}

func runTruthBatch(ctx context.Context, a *app, tickers []string) error {
	s := scanner.NewScanner(a.truthService(), a.cfg.Scanner.Workers, a.cfg.Scanner.Timeout)

	bar := progressbar.NewOptions(len(tickers),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Reading filings"),
	)
	s.SetProgressCallback(func(scanned, _ int) { bar.Set(scanned) })

	res := s.Scan(ctx, tickers)
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	for _, o := range res.Outcomes {
		if o.Err != nil {
			a.log.Warn().Err(o.Err).Str("ticker", o.Ticker).Msg("financial truth failed")
		}
	}

	if format == "json" {
		return outputJSON(res.Reports())
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Ticker", "Name", "Revenue", "Op Margin", "Capex", "Keywords", "Verdict"}),
	)
	for _, o := range res.Outcomes {
		if o.Err != nil {
			table.Append([]string{o.Ticker, "—", "—", "—", "—", "—", o.Err.Error()})
			continue
		}
		r := o.Report
		name := r.EntityName
		if len(name) > 24 {
			name = name[:24] + "..."
		}
		table.Append([]string{
			r.Ticker,
			name,
			"$" + money(r.Metrics.Revenue),
			fmt.Sprintf("%.1f%%", r.Metrics.OperatingMargin*100),
			fmt.Sprintf("%.1f%%", r.Metrics.CapexIntensity*100),
			fmt.Sprintf("%d", r.Evidence.KeywordCount),
			r.Evidence.Sentiment,
		})
	}
	table.Render()

	fmt.Printf("\nBuilt %d of %d reports in %s\n", len(res.Outcomes)-res.Failed, len(res.Outcomes), res.ScanTime.Round(time.Millisecond))
	return nil
}

func printTruth(r *model.FinancialTruth) {
	fmt.Printf("[%s] %s (CIK %s)\n\n", r.Ticker, r.EntityName, r.CIK)

	m := r.Metrics
	fmt.Printf("  Latest quarter revenue: $%s | Operating income: $%s\n", money(m.Revenue), money(m.OpIncome))
	fmt.Printf("  Operating margin: %.1f%% | Capex intensity: %.1f%% | R&D intensity: %.1f%%\n\n",
		m.OperatingMargin*100, m.CapexIntensity*100, m.RndIntensity*100)

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Period", "Revenue", "QoQ", "Gross", "Operating", "Net"}),
	)
	for i, q := range r.Quarters {
		growth := "—"
		if i < len(r.RevenueGrowth) {
			growth = fmt.Sprintf("%+.1f%%", r.RevenueGrowth[i].GrowthPct)
		}
		table.Append([]string{
			q.Period,
			"$" + money(q.Revenue),
			growth,
			fmt.Sprintf("%.1f%%", q.GrossMargin*100),
			fmt.Sprintf("%.1f%%", q.OpMargin*100),
			fmt.Sprintf("%.1f%%", q.NetMargin*100),
		})
	}
	table.Render()

	if len(r.MarginDeltas) > 0 {
		fmt.Println("\n--- Margin deltas (bps) ---")
		for _, d := range r.MarginDeltas {
			fmt.Printf("  %s  gross %+d  operating %+d  net %+d\n", d.Period, d.GrossDelta, d.OpDelta, d.NetDelta)
		}
	}

	ev := r.Evidence
	fmt.Println("\n--- 10-K evidence ---")
	if !ev.Latest10K {
		fmt.Println("  No 10-K on file")
	} else {
		fmt.Printf("  Filing: %s\n", ev.FilingURL)
	}
	fmt.Printf("  Constraint keywords: %d | Verdict: %s\n", ev.KeywordCount, ev.Sentiment)
	if ev.BusinessDescription != "" {
		desc := ev.BusinessDescription
		if len([]rune(desc)) > 300 {
			desc = string([]rune(desc)[:300]) + "..."
		}
		fmt.Printf("  Business: %s\n", desc)
	}
}

// money renders dollars with a B/M suffix
func money(v float64) string {
	switch {
	case v < 0:
		return "-" + money(-v)
	case v >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfgFile, verbose)
	if err != nil {
		return err
	}
	defer a.Close()

	h := web.NewHandler(a.priceProvider(), a.truthService(), a.log,
		web.WithSettings(a.cfg.RelativeStrength.Settings),
		web.WithBenchmarks(a.cfg.RelativeStrength.Benchmarks),
		web.WithHistoryDays(a.cfg.Prices.HistoryDays),
		web.WithOperationObserver(a.metrics),
	)
	srv := web.NewServer(a.cfg.Server, h, a.metrics.Handler(), a.log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return srv.Shutdown(context.Background())
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
