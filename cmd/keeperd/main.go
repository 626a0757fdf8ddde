// Command keeperd wires the perpetuals core's engines together and runs
// the funding and liquidation keeper loops. It is not a trading surface
// in its own right: it has no HTTP/WebSocket listener for order flow,
// only an optional Prometheus /metrics endpoint. The read-only snapshot
// queries an external transport would serve live in internal/view.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oilperps/internal/config"
	"oilperps/internal/custody"
	"oilperps/internal/keeper"
	"oilperps/internal/ledger"
	"oilperps/internal/oracle"
	"oilperps/internal/referral"
	"oilperps/internal/store"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("OILP_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(newLogHandler(cfg.Logging))

	s, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	cust := custody.NewLedger()
	refs := referral.New(s, cust, "insurance:pool", logger)
	led := ledger.New(s, cust, refs, logger)
	agg := oracle.NewAggregator(cfg.Oracle, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())

	commodities := make([]string, 0, len(cfg.Markets))
	for _, m := range cfg.Markets {
		if err := led.InitializeMarket(ctx, ledger.MarketParams{
			Commodity:                m.Commodity,
			CollateralAsset:          m.CollateralAsset,
			MaxLeverage:              m.MaxLeverage,
			InitialMarginRatioBp:     m.InitialMarginRatioBp,
			MaintenanceMarginRatioBp: m.MaintMarginRatioBp,
			TakerFeeBp:               m.TakerFeeBp,
			MakerFeeBp:               m.MakerFeeBp,
			LiquidationFeeBp:         m.LiquidationFeeBp,
			MaxOpenInterest:          m.MaxOpenInterest,
			FundingIntervalSecs:      m.FundingIntervalSecs,
		}); err != nil {
			logger.Error("failed to initialize market", "commodity", m.Commodity, "error", err)
			cancel()
			os.Exit(1)
		}
		commodities = append(commodities, m.Commodity)
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("metrics server started", "addr", cfg.Metrics.Addr)
		defer srv.Shutdown(context.Background())
	}

	go agg.Start(ctx)

	k := keeper.New(led, agg, commodities, cfg.Keeper, logger)
	go k.Run(ctx)

	logger.Info("keeperd started",
		"commodities", commodities,
		"funding_tick", cfg.Keeper.FundingTick,
		"liquidation_tick", cfg.Keeper.LiquidationTick,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())
	cancel()
}

func newLogHandler(cfg config.LoggingConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
