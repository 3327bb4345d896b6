package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calebmorris/wellbeat/internal/config"
	"github.com/calebmorris/wellbeat/internal/database"
	"github.com/calebmorris/wellbeat/internal/logging"
	"github.com/calebmorris/wellbeat/internal/push"
	"github.com/calebmorris/wellbeat/internal/server"
	"github.com/calebmorris/wellbeat/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.LogLevel)

	if cfg.VAPIDPublicKey == "" || cfg.VAPIDPrivateKey == "" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("generate vapid keys: %v", err)
		}
		logger.Warn("no VAPID keys configured, generated ephemeral keys",
			"public_key", pub)
		cfg.VAPIDPublicKey = pub
		cfg.VAPIDPrivateKey = priv
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	sessions := session.StaticProvider{}
	if cfg.DevToken != "" {
		sessions[cfg.DevToken] = cfg.DevUserID
	}

	srv := server.New(db, cfg, sessions, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Wellbeat running at http://localhost:%s\n", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
