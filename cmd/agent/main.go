package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/edgebot/config"
	"github.com/alejandrodnm/edgebot/internal/adapters/estimator"
	"github.com/alejandrodnm/edgebot/internal/adapters/manifold"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/onchain"
	"github.com/alejandrodnm/edgebot/internal/adapters/polymarket"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/agent"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	once := flag.Bool("once", false, "run one cycle and exit")
	dryRun := flag.Bool("dry-run", false, "decide and record without sending orders")
	verbose := flag.Bool("verbose", false, "debug logging")
	logFormat := flag.String("format", "", "log output format, text or json (overrides config)")
	reconcileOnly := flag.Bool("reconcile-only", false, "settle resolved positions and exit")
	report := flag.Bool("report", false, "print the calibration report and exit")
	redeem := flag.Bool("redeem", false, "redeem on-chain payouts for settled Polymarket positions")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("edgebot starting",
		"config", *configPath,
		"interval", cfg.CycleInterval(),
		"dry_run", *dryRun,
		"once", *once,
	)

	trading := !*reconcileOnly && !*report
	if trading && cfg.API.EstimatorBase == "" {
		slog.Error("api.estimator_base is not set; the agent cannot decide without the estimator service")
		os.Exit(1)
	}
	if trading && !*dryRun && cfg.PrivateKey == "" && cfg.ManifoldAPIKey == "" {
		slog.Error("live mode needs PRIVATE_KEY and/or MANIFOLD_API_KEY in the environment; use -dry-run to run without credentials")
		os.Exit(1)
	}
	if *redeem && cfg.PrivateKey == "" {
		slog.Error("-redeem requires PRIVATE_KEY to sign redemption transactions")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	polyClient := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)
	maniClient := manifold.NewClient(cfg.API.ManifoldBase, cfg.ManifoldAPIKey)

	resolution, err := onchain.NewResolutionClient(cfg.API.PolygonRPC, cfg.PrivateKey)
	if err != nil {
		slog.Error("failed to connect to polygon", "err", err, "rpc", cfg.API.PolygonRPC)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	executors := map[domain.Venue]ports.OrderExecutor{}
	if trading && !*dryRun {
		fmt.Printf("\n⚠️  LIVE MODE: orders will spend real funds\n")
		fmt.Printf("   Bankroll: $%.2f | Kelly multiplier: %.2f | Edge threshold: %.0f%%\n",
			cfg.Sizing.Bankroll, cfg.Sizing.KellyMultiplier, cfg.Agent.EdgeThreshold*100)
		fmt.Printf("   Ctrl+C in the next 5 seconds aborts.\n\n")

		abortTimer := time.NewTimer(5 * time.Second)
		select {
		case <-abortTimer.C:
		case <-ctx.Done():
			slog.Info("live trading aborted by user")
			return
		}

		executors = buildLiveExecutors(ctx, cfg, maniClient)
	}

	console := notify.NewConsole()

	eng := agent.New(agent.Config{
		Interval:       cfg.CycleInterval(),
		CandidateLimit: cfg.Agent.CandidateLimit,
		TopN:           cfg.Agent.TopN,
		EdgeThreshold:  cfg.Agent.EdgeThreshold,
		PriceTolerance: cfg.Agent.PriceTolerance,
		DryRun:         *dryRun,
		Once:           *once,
		RedeemEnabled:  *redeem,
		HasSportsData:  cfg.HasSportsSource(),
		HasFinanceData: cfg.HasFinanceSource(),
		Filter: domain.FilterConfig{
			MinLiquidity:    cfg.Filter.MinLiquidity,
			MinHoursToClose: cfg.Filter.MinHoursToClose,
			MaxHoursToClose: cfg.Filter.MaxHoursToClose,
			MinParticipants: cfg.Filter.MinParticipants,
		},
		Sizing: domain.SizingConfig{
			Bankroll:        cfg.Sizing.Bankroll,
			KellyMultiplier: cfg.Sizing.KellyMultiplier,
			MaxBankrollPct:  cfg.Sizing.MaxBankrollPct,
			MaxStake:        cfg.Sizing.MaxStake,
			ImpactCap:       cfg.Sizing.ImpactCap,
			Unit:            cfg.Sizing.Unit,
		},
	}, agent.Deps{
		Markets: map[domain.Venue]ports.MarketProvider{
			domain.VenuePolymarket: polyClient,
			domain.VenueManifold:   maniClient,
		},
		Executors:  executors,
		Books:      polyClient,
		Resolution: resolution,
		Estimator:  estimator.NewClient(cfg.API.EstimatorBase, cfg.EstimatorAPIKey),
		Store:      store,
		Notifier:   console,
	})

	if *report {
		runReport(ctx, eng, console)
		return
	}
	if *reconcileOnly {
		runReconcile(ctx, eng)
		return
	}

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("agent exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("edgebot stopped cleanly")
}

// buildLiveExecutors wires one executor per venue with configured credentials.
// Polymarket needs the full auth chain (L1 signature, derived L2 creds) before
// any order can be signed, so a broken key aborts here instead of mid-cycle.
func buildLiveExecutors(ctx context.Context, cfg *config.Config, mani *manifold.Client) map[domain.Venue]ports.OrderExecutor {
	executors := map[domain.Venue]ports.OrderExecutor{}

	if cfg.PrivateKey != "" {
		auth, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, cfg.PrivateKey)
		if err != nil {
			slog.Error("failed to create auth client", "err", err)
			os.Exit(1)
		}
		if err := auth.EnsureCreds(ctx); err != nil {
			slog.Error("failed to derive API credentials, check PRIVATE_KEY", "err", err)
			os.Exit(1)
		}
		slog.Info("live: authenticated with Polymarket CLOB", "address", auth.Address())

		trader, err := polymarket.NewTrader(auth, cfg.API.PolygonRPC)
		if err != nil {
			slog.Error("failed to create trader", "err", err)
			os.Exit(1)
		}
		if bal, err := trader.GetBalance(ctx); err != nil {
			slog.Warn("live: could not read USDC balance", "err", err)
		} else {
			slog.Info("live: polymarket balance", "usdc", fmt.Sprintf("$%.2f", bal))
		}
		executors[domain.VenuePolymarket] = trader
	}

	if cfg.ManifoldAPIKey != "" {
		if bal, err := mani.GetBalance(ctx); err != nil {
			slog.Warn("live: could not read mana balance", "err", err)
		} else {
			slog.Info("live: manifold balance", "mana", fmt.Sprintf("M%.0f", bal))
		}
		executors[domain.VenueManifold] = mani
	}

	return executors
}

func runReport(ctx context.Context, eng *agent.Engine, console *notify.Console) {
	rep, err := eng.BuildReport(ctx)
	if err != nil {
		slog.Error("report failed", "err", err)
		os.Exit(1)
	}
	console.PrintCalibrationReport(rep)
}

func runReconcile(ctx context.Context, eng *agent.Engine) {
	resolutions, err := eng.ReconcileOnce(ctx)
	if err != nil {
		slog.Error("reconcile failed", "err", err)
		os.Exit(1)
	}
	slog.Info("reconcile complete", "resolved", len(resolutions))
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
