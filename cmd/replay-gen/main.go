// Command replay-gen writes a deterministic synthetic daily bar series into
// the Parquet bar store, so the backtest engine can run without market data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"replay/internal/config"
	"replay/internal/domain"
	"replay/internal/store"
	"replay/internal/synth"
	"replay/internal/util"
)

func main() {
	var (
		symbol = flag.String("symbol", "SYNTH", "symbol to write the series under")
		bars   = flag.Int("bars", 756, "number of daily bars to generate")
		base   = flag.Float64("base", 100, "base price")
		seed   = flag.Int64("seed", 42, "random seed; same seed, same series")
		start  = flag.String("start", "2020-01-02", "first bar date (YYYY-MM-DD)")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("REPLAY_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}

	series := synth.Generate(synth.Params{
		Symbol:    *symbol,
		Start:     startDate,
		Bars:      *bars,
		BasePrice: *base,
		Seed:      *seed,
	})

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	if err := pstore.WriteBars(context.Background(), domain.MarketUS, series); err != nil {
		log.Fatalf("writing bars: %v", err)
	}

	fmt.Printf("wrote %d bars for %s (%s .. %s) under %s\n",
		len(series), *symbol,
		series[0].Date.Format("2006-01-02"),
		series[len(series)-1].Date.Format("2006-01-02"),
		cfg.Storage.DataDir)
}
