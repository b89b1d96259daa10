package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacecouncil/internal/api"
	"spacecouncil/internal/broadcast"
	"spacecouncil/internal/config"
	"spacecouncil/internal/game"
	"spacecouncil/internal/htmx"
	"spacecouncil/internal/lifecycle"
	"spacecouncil/internal/store"
	"spacecouncil/internal/ws"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize layers
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	rule, err := lifecycle.NewRule(cfg.EndCondition, cfg.MinPlayers)
	if err != nil {
		return err
	}
	hub := broadcast.NewHub(logger)
	rooms := game.NewService(st, rule, game.Config{
		Grid:       cfg.Grid,
		Windows:    cfg.Windows,
		Location:   cfg.Location,
		MaxRetries: cfg.MaxRetries,
	}, logger, game.WithPublisher(hub))
	limiter := api.NewLimiter(cfg.ActionRate, cfg.ActionBurst)

	// Setup routes
	mux := http.NewServeMux()
	api.NewHandler(rooms, limiter, logger).RegisterRoutes(mux)
	ws.NewHandler(rooms, hub, limiter, logger).RegisterRoutes(mux)
	htmx.NewHandler(rooms, hub, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.CORSMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		// SSE streams end with the process context
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	if cfg.TickInterval > 0 {
		go sweep(ctx, rooms, cfg.TickInterval, logger)
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("end_condition", rule.String()),
			zap.Bool("sqlite", cfg.DBPath != ""))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}

func openStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.DBPath == "" {
		logger.Info("using in-memory store")
		return store.NewMemory(), nil
	}
	return store.OpenSQLite(cfg.DBPath, logger)
}

// sweep grants due point distributions even in rooms nobody is looking at
func sweep(ctx context.Context, rooms *game.Service, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := rooms.TickAll(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("tick sweep failed", zap.Error(err))
				continue
			}
			logger.Debug("tick sweep done", zap.Int("rooms", n))
		case <-ctx.Done():
			return
		}
	}
}
