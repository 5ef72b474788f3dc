// Command engine is the discretionary execution engine's entrypoint.
// Grounded on cmd/polybot/main.go / cmd/main.go's bootstrap shape
// (godotenv.Load -> zerolog setup -> wire components -> signal-driven
// graceful shutdown), narrowed to this engine's three subcommands
// (spec.md §6): `start` runs a position to completion, `size` is a
// documented out-of-scope stub, and `balance` prints the venue's account
// balances.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelquant/execengine/exchange"
	"github.com/kestrelquant/execengine/exchange/binance"
	"github.com/kestrelquant/execengine/hub"
	"github.com/kestrelquant/execengine/internal/audit"
	"github.com/kestrelquant/execengine/internal/config"
	"github.com/kestrelquant/execengine/internal/notify"
	"github.com/kestrelquant/execengine/model"
	"github.com/kestrelquant/execengine/position"
	"github.com/kestrelquant/execengine/protocolrunner"
)

const version = "0.1.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables as-is")
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = runStart(os.Args[2:])
	case "size":
		err = runSize(os.Args[2:])
	case "balance":
		err = runBalance(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("❌ engine exited with error")
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: engine <start|size|balance> [flags]")
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to the TOML config file")
	side := fs.String("side", "long", "position side: long|short")
	debug := fs.Bool("debug", false, "enable debug logging")
	dryRun := fs.Bool("dry-run", false, "do not place real orders")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *dryRun {
		cfg.Binance.DryRun = true
	}

	positionSide, err := parseSide(*side)
	if err != nil {
		return err
	}

	log.Info().Str("version", version).Str("asset", cfg.Engine.Asset).
		Str("side", positionSide.String()).Float64("size_usdt", cfg.Engine.SizeUSDT).
		Msg("🚀 execution engine starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := binance.NewClient(binance.Config{
		FullKey:    cfg.Binance.FullKey,
		FullSecret: cfg.Binance.FullSecret,
		ReadKey:    cfg.Binance.ReadKey,
		ReadSecret: cfg.Binance.ReadSecret,
		DryRun:     cfg.Binance.DryRun,
	})
	info := exchange.NewInfoCache(client)
	if err := info.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ initial exchange info fetch failed, continuing with empty cache")
	}

	venue := model.VenueBinanceFutures
	h := hub.New([]model.Venue{venue})

	runtime := exchange.NewRuntime(client, info, h.VenueWatch(venue), h.ExchangesIn())
	runtime.SetIntervals(cfg.Engine.PollInterval, cfg.Engine.RefreshInterval)

	ledger, err := audit.New(cfg.Audit.DatabasePath)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ audit ledger unavailable, continuing without persistence")
		ledger = nil
	}

	sink := buildNotifySink(cfg)

	feed := binance.NewPriceFeed("wss://fstream.binance.com/ws")
	protocols := func(phase position.Phase) []protocolrunner.Protocol {
		switch phase {
		case position.Acquisition:
			return []protocolrunner.Protocol{protocolrunner.NewDummyMarket("acquire-market", 0.5)}
		default:
			return []protocolrunner.Protocol{
				protocolrunner.NewTrailingStop("followup-trail", 1.5, feed),
				protocolrunner.NewSar("followup-sar", feed),
			}
		}
	}

	assetSymbol := fmt.Sprintf("%s-USDT-%s", cfg.Engine.Asset, cfg.Engine.Venue)
	spec := model.PositionSpec{Asset: assetSymbol, Side: positionSide, SizeUSDT: cfg.Engine.SizeUSDT}
	pos := position.New(spec, priceLookup{client}, info, h.PositionsIn(), protocols)

	if ledger != nil {
		ledger.RecordPositionOpened(pos.ID.String(), spec.Asset, spec.Side.String(), spec.SizeUSDT)
	}
	sink.PositionOpened(spec, pos.ID.String())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(gctx) })
	g.Go(func() error { return runtime.Run(gctx) })
	g.Go(func() error {
		err := pos.Run(gctx)
		cancel()
		return err
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			log.Info().Msg("🛑 shutdown signal received")
			cancel()
		case <-gctx.Done():
		}
	}()

	runErr := g.Wait()
	if ledger != nil {
		ledger.RecordPositionClosed(pos.ID.String())
	}
	sink.PositionClosed(pos.ID.String(), 0)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	log.Info().Msg("👋 engine stopped")
	return nil
}

// runSize is out of scope (spec.md §6): position sizing policy belongs to
// the operator's discretion, not this engine, so it only prints a notice.
func runSize(args []string) error {
	fmt.Fprintln(os.Stderr, "size: not implemented, sizing is an operator decision outside this engine's scope")
	return nil
}

func runBalance(args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	configPath := fs.String("config", "config.toml", "path to the TOML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	client := binance.NewClient(binance.Config{
		FullKey:    cfg.Binance.FullKey,
		FullSecret: cfg.Binance.FullSecret,
		ReadKey:    cfg.Binance.ReadKey,
		ReadSecret: cfg.Binance.ReadSecret,
	})
	balances, err := client.Balances(context.Background(), "", "")
	if err != nil {
		return fmt.Errorf("fetching balances: %w", err)
	}
	fmt.Printf("total: %.2f USD\n", balances.TotalUSD)
	for asset, v := range balances.PerAsset {
		fmt.Printf("%s: %.6f\n", asset, v)
	}
	return nil
}

func parseSide(s string) (model.Side, error) {
	switch s {
	case "long", "buy":
		return model.Buy, nil
	case "short", "sell":
		return model.Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q, want long|short", s)
	}
}

func buildNotifySink(cfg *config.Config) notify.Sink {
	if cfg.Telegram.BotToken == "" {
		return notify.LogSink{}
	}
	t, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ telegram notify unavailable, falling back to log sink")
		return notify.LogSink{}
	}
	return t
}

// priceLookup adapts binance.Client's Price method to position.PriceLookup.
type priceLookup struct {
	client *binance.Client
}

func (p priceLookup) Price(ctx context.Context, symbol model.Symbol) (float64, error) {
	return p.client.Price(ctx, symbol)
}
