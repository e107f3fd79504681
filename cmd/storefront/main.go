// Package main runs the storefront API server.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/corner-store/storefront/internal/app/runtime"
)

func main() {
	// Optional local overrides; absence is not an error.
	_ = godotenv.Load()

	application, err := runtime.NewApplication()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
