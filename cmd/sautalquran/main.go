package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"sautalquran/internal/api"
	"sautalquran/internal/assetcache"
	"sautalquran/internal/config"
	"sautalquran/internal/connectivity"
	"sautalquran/internal/gateway"
	"sautalquran/internal/metrics"
	"sautalquran/internal/remote"
	"sautalquran/internal/store"
	"sautalquran/internal/syncer"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "YAML config file path")
		addr    = flag.String("addr", "", "HTTP bind address (overrides config)")
		dbPath  = flag.String("db", "", "database file path (overrides config)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	metrics.Register()

	client := remote.New(cfg.API.BaseURL, time.Duration(cfg.API.TimeoutSeconds)*time.Second)

	observer := connectivity.New(
		connectivity.DialProbe(cfg.Probe.Addr, time.Duration(cfg.Probe.TimeoutSeconds)*time.Second),
		time.Duration(cfg.Probe.IntervalSeconds)*time.Second,
		log.With().Str("component", "connectivity").Logger(),
	)

	registrar := syncer.NewChannelRegistrar()
	worker := syncer.New(st, client, registrar.Triggers(), cfg.Sync.Schedule,
		log.With().Str("component", "syncer").Logger())

	gw := gateway.New(client, st, observer, registrar,
		log.With().Str("component", "gateway").Logger())

	assets := assetcache.New(cfg.Assets.Dir, cfg.Assets.Version, cfg.Assets.Origin,
		cfg.Assets.Manifest, time.Duration(cfg.Assets.TimeoutSeconds)*time.Second,
		log.With().Str("component", "assetcache").Logger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed install keeps the previously activated version serving.
	if err := assets.Install(ctx); err != nil {
		if assets.Installed() {
			log.Error().Err(err).Msg("asset cache install failed, previous version stays active")
		} else {
			log.Error().Err(err).Msg("asset cache install failed, no version available yet")
		}
	} else if err := assets.Activate(); err != nil {
		log.Error().Err(err).Msg("asset cache activation failed")
	}

	go worker.Run(ctx)
	go observer.Watch(ctx)
	go func() {
		// restored connectivity re-registers both sync tags
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-observer.Events():
				if ev.Online {
					registrar.Register(syncer.TagRecordings)
					registrar.Register(syncer.TagMarkers)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(gw, st, observer, registrar, assets),
	}
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	cancel()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}
