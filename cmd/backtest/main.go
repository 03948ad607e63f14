package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/uhyunpark/quotesim/params"
	"github.com/uhyunpark/quotesim/pkg/api"
	"github.com/uhyunpark/quotesim/pkg/replay"
	"github.com/uhyunpark/quotesim/pkg/sim"
	"github.com/uhyunpark/quotesim/pkg/storage"
	"github.com/uhyunpark/quotesim/pkg/strategy"
	"github.com/uhyunpark/quotesim/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	// Setup logging (write to both console and file)
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "data/backtest.log"
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	// ---- Historical feed ----
	pricePaths := make([]string, len(cfg.Data.PriceFiles))
	for i, f := range cfg.Data.PriceFiles {
		pricePaths[i] = filepath.Join(cfg.Data.Dir, f)
	}
	tradePaths := make([]string, len(cfg.Data.TradeFiles))
	for i, f := range cfg.Data.TradeFiles {
		tradePaths[i] = filepath.Join(cfg.Data.Dir, f)
	}

	bookRecords, err := replay.LoadBookRecords(pricePaths, sugar)
	if err != nil {
		sugar.Fatalw("load_price_files_failed", "err", err)
	}
	tradeRecords, err := replay.LoadTradeRecords(tradePaths, sugar)
	if err != nil {
		sugar.Fatalw("load_trade_files_failed", "err", err)
	}
	timeline, err := replay.BuildTimeline(bookRecords, tradeRecords)
	if err != nil {
		sugar.Fatalw("build_timeline_failed", "err", err)
	}
	sugar.Infow("timeline_built",
		"book_records", len(bookRecords),
		"trade_records", len(tradeRecords),
		"ticks", len(timeline))

	// ---- Run store ----
	store, err := storage.NewRunStore(cfg.Store.Path)
	if err != nil {
		sugar.Fatalw("run_store_open_failed", "path", cfg.Store.Path, "err", err)
	}
	defer store.Close()

	// ---- Results API (optional) ----
	// Enable with: SERVE_API=true. Streams live equity over /ws while the
	// run is in progress and serves stored runs afterwards.
	var server *api.Server
	if cfg.Server.Enabled {
		server = api.NewServer(store)
		go func() {
			sugar.Infow("api_server_starting", "addr", cfg.Server.Addr)
			if err := server.Start(cfg.Server.Addr); err != nil {
				sugar.Fatalw("api_server_failed", "err", err)
			}
		}()
	}

	// ---- Backtest ----
	startedAt := time.Now()
	runID := fmt.Sprintf("run-%d", startedAt.UnixMilli())

	quoter := strategy.NewAvellanedaStoikov(cfg.Strategy, sugar)
	runner := sim.NewRunner(timeline, quoter, sugar)
	if server != nil {
		runner.OnEquity = func(pt sim.EquityPoint) {
			server.BroadcastEquity(runID, pt)
		}
	}

	sugar.Infow("run_starting", "run_id", runID, "ticks", len(timeline))
	result, err := runner.Run()
	if err != nil {
		sugar.Fatalw("run_failed", "run_id", runID, "err", err)
	}

	if err := store.SaveResult(runID, startedAt.UnixMilli(), result); err != nil {
		sugar.Fatalw("save_result_failed", "run_id", runID, "err", err)
	}

	sugar.Infow("run_saved",
		"run_id", runID,
		"ticks", len(result.EquityCurve),
		"fills", len(result.Fills),
		"final_cash", result.FinalCash,
		"elapsed", time.Since(startedAt).String())

	// With the API enabled, keep serving results until interrupted.
	if server != nil {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
	}
}
