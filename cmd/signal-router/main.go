package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drakos74/signal-router/client/binance"
	"github.com/drakos74/signal-router/client/local"
	"github.com/drakos74/signal-router/infra/config"
	"github.com/drakos74/signal-router/internal/api"
	"github.com/drakos74/signal-router/internal/control"
	"github.com/drakos74/signal-router/internal/engine"
	"github.com/drakos74/signal-router/internal/server"
	storage "github.com/drakos74/signal-router/internal/storage/file/json"
	"github.com/drakos74/signal-router/internal/tickers"
	localUser "github.com/drakos74/signal-router/user/local"
	"github.com/drakos74/signal-router/user/telegram"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const name = "signal-router"

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	file := flag.String("config", "", "path to the yaml configuration file")
	flag.Parse()

	cfg, err := config.Load(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load config")
	}
	setupLogger(cfg.Log)
	log.Info().Str("config", fmt.Sprintf("%+v", cfg.Redacted())).Msg("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := tickers.NewStore(storage.NewFileStorage(cfg.Store.Dir))
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Store.Dir).Msg("could not load ticker configuration")
	}

	u, err := newUser(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create user")
	}
	if err := u.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("could not start user")
	}

	e := engine.New(store, newBroker(cfg.Broker), u).
		WithTimeout(cfg.Engine.CallTimeout)
	pool := engine.NewPool(e, cfg.Engine.Workers)
	ctrl := control.New(store, u)

	srv := server.NewServer(name, cfg.Server.Port).
		Add(server.Live(), server.Hook(pool, cfg.Server.Debug), server.Prometheus())
	if cfg.Server.Debug {
		srv.Debug()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctrl.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})
	e.Announce()

	err = g.Wait()
	if err != nil {
		log.Error().Err(err).Msg("stopped with error")
	}

	drain, cancel := context.WithTimeout(context.Background(), 2*cfg.Engine.CallTimeout)
	defer cancel()
	if err := pool.Close(drain); err != nil {
		log.Warn().Err(err).Msg("evaluations interrupted")
	}
	log.Info().Msg("shut down")
}

func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func newBroker(cfg config.BrokerConfig) api.Broker {
	if cfg.Kind == config.BinanceBroker {
		log.Info().Str("quote", cfg.QuoteAsset).Msg("routing orders to binance")
		return binance.NewExchange(cfg.Key, cfg.Secret, cfg.QuoteAsset)
	}
	exchange := local.NewExchange()
	if cfg.LiveQuotes {
		exchange.WithQuoter(binance.NewExchange("", "", cfg.QuoteAsset))
	}
	log.Info().Bool("live-quotes", cfg.LiveQuotes).Msg("routing orders to paper broker")
	return exchange
}

func newUser(cfg *config.Config) (api.User, error) {
	if cfg.Telegram.Enabled {
		return telegram.NewBot(cfg.Telegram.Token, cfg.Telegram.ChatID)
	}
	return localUser.NewUser(cfg.Log.File)
}
