// The wealthos-stored daemon serves the generic record store over HTTP:
// staff CRUD, audit queries, the admin surface, and the portal surface.
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/wealthos-dev/wealthos-store/internal/api"
	"github.com/wealthos-dev/wealthos-store/internal/audit"
	"github.com/wealthos-dev/wealthos-store/internal/config"
	"github.com/wealthos-dev/wealthos-store/internal/engine"
	"github.com/wealthos-dev/wealthos-store/internal/logging"
	"github.com/wealthos-dev/wealthos-store/internal/metrics"
	"github.com/wealthos-dev/wealthos-store/internal/portal"
	"github.com/wealthos-dev/wealthos-store/internal/seed"
	"github.com/wealthos-dev/wealthos-store/internal/vault"
)

func main() {
	// .env is optional; absence is the normal case outside dev.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)

	codec, err := engine.NewCodec(cfg.DataDir, logger)
	if err != nil {
		logger.Error("init codec", "error", err)
		os.Exit(1)
	}

	auditLog := audit.NewLog(codec)
	store := engine.NewStore(codec, auditLog, logger)
	seeder := seed.NewManager(codec, nil, logger)
	sessions := portal.NewSessions(codec, store, []byte(cfg.JWTSecret), cfg.SessionTTLHours, logger)

	// Seed before serving: nothing read from the store is trusted to reflect
	// real data until this has run.
	if err := seeder.EnsureSeedOnce(false); err != nil {
		logger.Error("seeding failed", "error", err)
		os.Exit(1)
	}

	h := &api.Handler{
		Store:      store,
		Audit:      auditLog,
		Seeder:     seeder,
		Sessions:   sessions,
		AdminToken: cfg.AdminToken,
		Log:        logger,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	m := metrics.New()
	r.Use(m.Middleware())
	r.GET("/metrics", m.Handler())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h.Register(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	if cfg.EnableTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			logger.Error("generate TLS certificate", "error", err)
			os.Exit(1)
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	go func() {
		logger.Info("store daemon listening",
			"addr", cfg.HTTPAddr, "dataDir", cfg.DataDir, "tls", cfg.EnableTLS,
			"auditRetentionDays", cfg.AuditRetentionDays)

		var err error
		if cfg.EnableTLS {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("daemon stopped")
}
