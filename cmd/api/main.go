package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"netventure.org/internal/auth"
	"netventure.org/internal/backup"
	"netventure.org/internal/config"
	"netventure.org/internal/engine"
	"netventure.org/internal/grpcapi"
	"netventure.org/internal/httpapi"
	"netventure.org/internal/obs"
	"netventure.org/internal/persist"
	"netventure.org/internal/store"
	"netventure.org/internal/stream"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "netventure-api:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.AuthSecret != "" {
		auth.SetSecret(cfg.AuthSecret)
	}
	if !auth.SecretConfigured() {
		logger.Warn("NV_AUTH_SECRET not set; admin tokens disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	defer func() { _ = backend.Close() }()

	eng := engine.New(
		engine.WithStore(backend),
		engine.WithCodec(persist.Codec{Legacy: cfg.Storage.Legacy}),
		engine.WithGate(auth.NewGate(auth.NewSessions(cfg.SessionTTL))),
		engine.WithStream(stream.New()),
		engine.WithLogger(logger.Named("engine")),
		engine.WithFlushInterval(cfg.Storage.FlushInterval),
	)
	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if cfg.DemoSeed && len(eng.Participants("")) == 0 {
		sys := auth.ContextWithPrincipal(ctx, auth.Principal{Subject: "system:demo", TenantID: eng.DefaultTenantID()})
		ps, err := eng.SeedDemo(sys)
		if err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
		logger.Info("demo data seeded", zap.Int("participants", len(ps)))
	}

	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		eng.Run(flushCtx)
	}()

	var runner *backup.Runner
	if cfg.Backup.Enabled {
		bucket, err := store.OpenBucket(ctx, cfg.Storage.S3)
		if err != nil {
			stopFlush()
			<-flushDone
			return fmt.Errorf("open backup bucket: %w", err)
		}
		runner, err = backup.New(eng, bucket, backup.Options{
			Interval: cfg.Backup.Interval,
			Prefix:   cfg.Backup.Prefix,
			Logger:   logger.Named("backup"),
		})
		if err == nil {
			err = runner.Start()
		}
		if err != nil {
			stopFlush()
			<-flushDone
			return err
		}
	}

	// HTTP API
	api := httpapi.New(eng, httpapi.Options{
		Version:     version,
		RatePerSec:  int(math.Ceil(cfg.RateLimit)),
		RateBurst:   cfg.RateBurst,
		CORSOrigins: cfg.CORSOrigins,
		TokenTTL:    cfg.TokenTTL,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// SSE responses stay open; per-handler deadlines bound the rest.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health
	health := grpcapi.New(eng, version, logger.Named("grpc"))
	grpcSrv := health.NewGRPCServer()
	healthCtx, stopHealth := context.WithCancel(ctx)
	defer stopHealth()
	go health.Watch(healthCtx, 5*time.Second)

	errc := make(chan error, 2)
	go func() {
		logger.Info("http listening", zap.String("addr", srv.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http listen: %w", err)
		}
	}()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			errc <- fmt.Errorf("grpc listen: %w", err)
		} else {
			go func() {
				logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
				if err := grpcSrv.Serve(lis); err != nil {
					errc <- fmt.Errorf("grpc serve: %w", err)
				}
			}()
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errc:
		logger.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopHealth()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	if runner != nil {
		if err := runner.Shutdown(); err != nil {
			logger.Warn("backup shutdown", zap.Error(err))
		}
	}

	// Run performs the final flush on cancel.
	stopFlush()
	select {
	case <-flushDone:
	case <-shutdownCtx.Done():
		logger.Warn("final flush timed out", zap.Bool("pending", eng.Pending()))
	}
	logger.Info("stopped")
	return runErr
}
