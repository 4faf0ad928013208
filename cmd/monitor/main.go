package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/polymonitor/config"
	"github.com/alejandrodnm/polymonitor/internal/adapters/ledger"
	"github.com/alejandrodnm/polymonitor/internal/adapters/notify"
	"github.com/alejandrodnm/polymonitor/internal/adapters/onchain"
	"github.com/alejandrodnm/polymonitor/internal/adapters/polymarket"
	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/monitor"
	"github.com/alejandrodnm/polymonitor/internal/ports"
)

// noBalances es el BalanceSource del modo watch-only: sin private key no
// hay dirección que consultar, así que todo balance es 0 y el monitor usa
// las cantidades locales del ledger.
type noBalances struct{}

func (noBalances) TokenBalance(context.Context, domain.WalletScope, string) float64 { return 0 }

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one evaluation tick and exit")
	simulate := flag.Bool("simulate", false, "force simulated sells regardless of auto_execute")
	show := flag.Bool("show", false, "print current positions and exit")
	syncOnly := flag.Bool("sync", false, "run one balance reconciliation and exit")
	closeToken := flag.String("close", "", "mark the open position for this token id as closed and exit")
	setToken := flag.String("set-thresholds", "", "recompute TP/SL for this token id (with -tp/-sl) and exit")
	tpPct := flag.Float64("tp", 0, "take-profit pct for -set-thresholds (e.g. 0.2 = +20%)")
	slPct := flag.Float64("sl", 0, "stop-loss pct for -set-thresholds (e.g. 0.1 = -10%)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
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

	store := ledger.NewFileLedger(cfg.Ledger.Path, cfg.Monitor.TakeProfitPct, cfg.Monitor.StopLossPct)

	// Los comandos que solo tocan el ledger no necesitan red ni credenciales.
	switch {
	case *closeToken != "":
		if err := store.Close(*closeToken); err != nil {
			slog.Error("close failed", "token", *closeToken, "err", err)
			os.Exit(1)
		}
		fmt.Printf("position %s marked as closed\n", *closeToken)
		return
	case *setToken != "":
		if err := store.SetThresholds(*setToken, *tpPct, *slPct); err != nil {
			slog.Error("set thresholds failed", "token", *setToken, "err", err)
			os.Exit(1)
		}
		fmt.Printf("thresholds updated for %s (tp=%.2f sl=%.2f)\n", *setToken, *tpPct, *slPct)
		return
	}

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	privateKey := cfg.PrivateKey()

	var balances ports.BalanceSource = noBalances{}
	if privateKey != "" {
		chain, err := onchain.NewChainBalances(cfg.API.RPCURL, privateKey, cfg.Wallet.ProxyAddress)
		if err != nil {
			slog.Error("failed to set up chain balances", "err", err)
			os.Exit(1)
		}
		balances = chain
	} else {
		slog.Warn("POLY_PRIVATE_KEY not set — watch-only mode, using local quantities")
	}

	var venue ports.OrderVenue
	if privateKey != "" {
		auth, err := polymarket.NewAuthClient(cfg.API.CLOBBase, cfg.API.GammaBase, privateKey)
		if err != nil {
			slog.Error("failed to set up trading client", "err", err)
			os.Exit(1)
		}
		venue = polymarket.NewTradingClient(auth)
	}

	console := notify.NewConsole()
	oracle := monitor.NewOracle(client, client)
	executor := monitor.NewExecutor(oracle, client, balances, venue, store)

	// Sin private key no hay dirección que reconciliar: un sync con
	// balances en 0 cerraría todas las posiciones.
	var reconciler *monitor.Reconciler
	if privateKey != "" {
		reconciler = monitor.NewReconciler(store, balances, cfg.Monitor.BalanceTolerance)
	}

	monCfg := monitor.Config{
		Interval:       cfg.Interval(),
		SyncEveryTicks: cfg.Monitor.SyncEveryTicks,
		AutoExecute:    cfg.Monitor.AutoExecute,
		Simulate:       *simulate,
		Thresholds: monitor.Thresholds{
			TakeProfitPct: cfg.Monitor.TakeProfitPct,
			StopLossPct:   cfg.Monitor.StopLossPct,
		},
	}
	m := monitor.New(monCfg, store, balances, console, oracle, executor, reconciler)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch {
	case *show:
		runShow(ctx, store, oracle, console)
	case *syncOnly:
		if privateKey == "" {
			slog.Error("balance sync needs POLY_PRIVATE_KEY to derive the wallet address")
			os.Exit(1)
		}
		result, err := reconciler.Sync(ctx)
		if err != nil {
			slog.Error("sync failed", "err", err)
			os.Exit(1)
		}
		fmt.Printf("sync complete: checked=%d corrected=%d closed=%d\n",
			result.Checked, result.Corrected, result.Closed)
	case *once:
		reports, err := m.RunOnce(ctx)
		if err != nil {
			slog.Error("tick failed", "err", err)
			os.Exit(1)
		}
		if err := console.ReportTick(ctx, reports); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	default:
		if err := m.Run(ctx); err != nil {
			slog.Error("monitor exited with error", "err", err)
			os.Exit(1)
		}
	}

	slog.Info("polymonitor stopped cleanly")
}

// runShow imprime el estado actual del ledger con precios en vivo pero sin
// evaluar riesgo ni tocar la cadena: las cantidades son las locales.
func runShow(ctx context.Context, store ports.Ledger, oracle *monitor.Oracle, console *notify.Console) {
	positions, err := store.Load()
	if err != nil {
		slog.Error("failed to load positions", "err", err)
		os.Exit(1)
	}

	open, closed := 0, 0
	for _, p := range positions {
		if p.IsOpen() {
			open++
		} else {
			closed++
		}
	}
	fmt.Printf("total positions: %d (open: %d, closed: %d)\n", len(positions), open, closed)

	var rows []domain.PositionReport
	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		quote, qerr := oracle.Quote(ctx, p.TokenID)
		rows = append(rows, monitor.Evaluate(p, quote, qerr == nil, 0, monitor.Thresholds{}))
	}
	if err := console.ReportTick(ctx, rows); err != nil {
		slog.Warn("notifier error", "err", err)
	}
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
