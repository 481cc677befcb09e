package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	api "shifttask-backend/cmd/api"
	"shifttask-backend/internal/app"
	"shifttask-backend/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database, repositories and use cases
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer a.Close()

	// Shift events (Pub/Sub), optional
	if sub := a.StartSubscriber(ctx); sub != nil {
		defer sub.Close()
	}

	// Periodic sweeps
	sched := a.NewScheduler()
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer sched.Stop()

	handler := api.NewHandler(a)
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
