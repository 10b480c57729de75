// Command replay-fetch downloads daily bars for an explicit symbol list from
// the Alpaca market-data API into the Parquet bar store.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"replay/internal/config"
	"replay/internal/gather"
	"replay/internal/store"
	"replay/internal/util"
)

func main() {
	var (
		symbolsFlag = flag.String("symbols", "", "comma-separated symbols to fetch (required)")
		startFlag   = flag.String("start", "2020-01-01", "start date (YYYY-MM-DD)")
		endFlag     = flag.String("end", "", "end date (default: today)")
		batchSize   = flag.Int("batch", 200, "symbols per API call")
	)
	flag.Parse()

	cfg, err := config.Load(os.Getenv("REPLAY_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	if *symbolsFlag == "" {
		log.Fatal("-symbols is required")
	}
	var symbols []string
	for _, s := range strings.Split(*symbolsFlag, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Fatal("Alpaca credentials missing (set APCA_API_KEY_ID / APCA_API_SECRET_KEY)")
	}

	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	end := time.Now().UTC()
	if *endFlag != "" {
		if end, err = time.Parse("2006-01-02", *endFlag); err != nil {
			log.Fatalf("bad -end: %v", err)
		}
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	gatherer := gather.NewDailyBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		symbols,
		gather.DateRange{Start: start, End: end},
		*batchSize,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("fetch error: %v", err)
	}
}
