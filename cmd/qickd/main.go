// Command qickd binds the board's capability set and serves the exposed
// operations to remote clients.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qick-go/qick"
	"github.com/qick-go/qick/internal/audit"
	"github.com/qick-go/qick/internal/auth"
	"github.com/qick-go/qick/internal/config"
	"github.com/qick-go/qick/internal/logging"
	"github.com/qick-go/qick/internal/remote"
)

func main() {
	log.Printf("Starting qickd %s...", qick.Version)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, closer := logging.New(logging.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Prefix:     "qickd ",
	})
	defer closer.Close()

	h, err := qick.New(
		qick.WithBoard(cfg.Board),
		qick.WithFirmwareDir(cfg.Firmware.Dir),
		qick.WithFPGAManager(cfg.Firmware.FPGAManager),
		qick.WithMachine(cfg.Platform.Machine),
		qick.WithDocsBuild(cfg.Platform.DocsBuild),
		qick.WithLogger(logger),
	)
	if err != nil {
		logger.Fatalf("Failed to select platform: %v", err)
	}
	logger.Printf("Bound %s (board=%q bitfile=%q)", h, cfg.Board, h.Bitfile())

	opts := remote.ServerOptions{
		Addr:         cfg.Remote.Addr,
		H2C:          cfg.Remote.H2C,
		AllowedCIDRs: cfg.Remote.AllowedCIDRs,
		ReadTimeout:  cfg.Remote.ReadTimeout(),
		Unbound:      h.Cause(),
		Health: remote.Health{
			Mode:  h.Mode().String(),
			State: h.State().String(),
		},
	}
	if h.Cause() != nil {
		opts.Health.Cause = h.Cause().Error()
	}
	if cfg.Remote.Secret != "" {
		v, err := auth.NewVerifier(cfg.Remote.Secret)
		if err != nil {
			logger.Fatalf("Failed to create token verifier: %v", err)
		}
		opts.Verifier = v
	}

	if cfg.Remote.AuditDir != "" {
		a, err := audit.NewLogger(cfg.Remote.AuditDir, logger)
		if err != nil {
			logger.Fatalf("Failed to open audit log: %v", err)
		}
		defer a.Close()
		opts.Audit = a
	}

	server, err := remote.NewServer(h.Registry(), opts, logger)
	if err != nil {
		logger.Fatalf("Failed to create RPC server: %v", err)
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			logger.Fatalf("RPC server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("RPC server shutdown error: %v", err)
	}

	logger.Println("Server stopped")
}
