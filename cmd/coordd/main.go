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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Darlinghurst56/taskmaster/api"
	"github.com/Darlinghurst56/taskmaster/config"
	"github.com/Darlinghurst56/taskmaster/hub"
	"github.com/Darlinghurst56/taskmaster/policy"
	"github.com/Darlinghurst56/taskmaster/registry"
	"github.com/Darlinghurst56/taskmaster/store"
	"github.com/Darlinghurst56/taskmaster/tracker"
	"github.com/Darlinghurst56/taskmaster/workflow"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting coordination daemon...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Store backend: %s", cfg.StoreBackend)
	log.Printf("State dir: %s", cfg.StateDir)

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		log.Fatalf("Failed to create state dir: %v", err)
	}

	// Initialize store
	db, err := newStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize agent registry
	reg := registry.New(db, cfg.WorkingCopyPath)

	// Initialize policy engine
	ctx := context.Background()
	policyContent := policy.DefaultPolicy
	if cfg.PolicyPath != "" {
		data, err := os.ReadFile(cfg.PolicyPath)
		if err != nil {
			log.Fatalf("Failed to read policy file: %v", err)
		}
		policyContent = string(data)
	}
	policyEngine, err := policy.NewEngine(ctx, policyContent)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize dashboard event hub
	eventHub := hub.New()
	go eventHub.Run()

	// Initialize workflow
	wf := workflow.New(db, reg, policyEngine, eventHub)

	// Initialize server tracker
	trk, err := tracker.New(tracker.Options{
		StatePath:       cfg.TrackerStatePath,
		MonitorInterval: cfg.MonitorInterval,
		HealthInterval:  cfg.HealthInterval,
		PersistInterval: cfg.PersistInterval,
		Publisher:       eventHub,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server tracker: %v", err)
	}
	trk.Start(ctx)

	// Initialize handler
	h := api.NewHandler(wf, reg, trk, eventHub, cfg)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())
	server.Use(middleware.CORS())

	// Register routes
	h.RegisterRoutes(server)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Coordination API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down coordination daemon...")

	// Stop background loops and flush tracker state
	trk.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Coordination daemon stopped")
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "json":
		return store.NewJSONStore(cfg.StateDir)
	case "sqlite":
		return store.NewSQLiteStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
