// Command replay-backtest runs a registered strategy over a price series —
// CSV file, stored Parquet bars, or a synthetic series — and writes the full
// artifact bundle plus a row in the run index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"replay/internal/backtest"
	"replay/internal/config"
	"replay/internal/domain"
	"replay/internal/frame"
	"replay/internal/store"
	"replay/internal/strategy"
	"replay/internal/strategy/builtins"
	"replay/internal/synth"
	"replay/internal/util"
)

func main() {
	var (
		strategyName = flag.String("strategy", "", "registered strategy name (required; see -list)")
		paramsFlag   = flag.String("params", "", "strategy parameters as name=value,name=value")
		csvPath      = flag.String("csv", "", "read the price series from a CSV file")
		symbol       = flag.String("symbol", "", "read the price series from the bar store")
		startFlag    = flag.String("start", "2020-01-01", "start date for -symbol reads (YYYY-MM-DD)")
		endFlag      = flag.String("end", "", "end date for -symbol reads (default: today)")
		synthBars    = flag.Int("synth", 0, "generate a synthetic series of N bars instead of loading data")
		synthSeed    = flag.Int64("seed", 42, "seed for -synth")
		listFlag     = flag.Bool("list", false, "list registered strategies and exit")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("REPLAY_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	registry := strategy.NewRegistry()
	builtins.RegisterAll(registry)

	if *listFlag {
		for _, name := range registry.List() {
			fmt.Println(name)
		}
		return
	}
	if *strategyName == "" {
		log.Fatal("-strategy is required (use -list to see what is registered)")
	}
	factory, ok := registry.Get(*strategyName)
	if !ok {
		log.Fatalf("unknown strategy %q (use -list)", *strategyName)
	}
	params, err := parseParams(*paramsFlag)
	if err != nil {
		log.Fatalf("bad -params: %v", err)
	}

	ctx := context.Background()
	data, dataLabel, err := loadData(ctx, cfg, *csvPath, *symbol, *startFlag, *endFlag, *synthBars, *synthSeed)
	if err != nil {
		log.Fatalf("loading data: %v", err)
	}

	runner := backtest.NewRunner(cfg.Backtest.InitialCapital, cfg.Backtest.TradingDays, nil)
	res, err := runner.Run(*strategyName, factory, params, data)
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}

	writer := store.NewArtifactWriter(cfg.Storage.OutputDir)
	outDir, err := writer.WriteRun(res, dataLabel)
	if err != nil {
		log.Fatalf("writing artifacts: %v", err)
	}

	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run index: %v", err)
	}
	defer runs.Close()
	id, err := runs.SaveRun(ctx, store.RunRecordFromResult(res, dataLabel, outDir))
	if err != nil {
		log.Fatalf("recording run: %v", err)
	}

	fmt.Printf("run %d: %s\n", id, res.Status)
	if res.Status == backtest.StatusFailed {
		fmt.Printf("  error: %s\n", res.Err)
	}
	fmt.Printf("  bars: %d  signals: %d  trades: %d\n", res.Bars, res.SignalMetrics.TotalSignals, len(res.Trades))
	fmt.Printf("  total return: %.2f%%  sharpe: %.2f  max drawdown: %.2f%%\n",
		res.PortfolioMetrics.TotalReturn*100, res.PortfolioMetrics.SharpeRatio, res.PortfolioMetrics.MaxDrawdown*100)
	fmt.Printf("  artifacts: %s\n", outDir)
}

// loadData resolves the one data source the flags select, preferring CSV,
// then the bar store, then synthetic generation.
func loadData(ctx context.Context, cfg *config.Config, csvPath, symbol, startFlag, endFlag string, synthBars int, seed int64) (*frame.Frame, string, error) {
	switch {
	case csvPath != "":
		f, err := frame.ReadCSV(csvPath)
		if err != nil {
			return nil, "", err
		}
		label := strings.TrimSuffix(strings.TrimSuffix(csvPath, ".csv"), "/")
		if i := strings.LastIndexByte(label, '/'); i >= 0 {
			label = label[i+1:]
		}
		return f, label, nil

	case symbol != "":
		start, err := time.Parse("2006-01-02", startFlag)
		if err != nil {
			return nil, "", fmt.Errorf("bad -start: %w", err)
		}
		end := time.Now().UTC()
		if endFlag != "" {
			if end, err = time.Parse("2006-01-02", endFlag); err != nil {
				return nil, "", fmt.Errorf("bad -end: %w", err)
			}
		}
		bars, err := store.NewParquetStore(cfg.Storage.DataDir).ReadBars(ctx, symbol, domain.MarketUS, start, end)
		if err != nil {
			return nil, "", err
		}
		if len(bars) == 0 {
			return nil, "", fmt.Errorf("no stored bars for %s in [%s, %s]", symbol, startFlag, endFlag)
		}
		return frame.FromBars(bars), strings.ToUpper(symbol), nil

	case synthBars > 0:
		bars := synth.Generate(synth.Params{Bars: synthBars, Seed: seed})
		return frame.FromBars(bars), "SYNTH", nil
	}
	return nil, "", fmt.Errorf("one of -csv, -symbol, or -synth is required")
}

// parseParams parses "short=20,long=50" into a parameter map.
func parseParams(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	params := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		params[strings.TrimSpace(name)] = v
	}
	return params, nil
}
