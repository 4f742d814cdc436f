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
	"trailwise/internal/api"
	"trailwise/internal/app/service"
	"trailwise/internal/common/security"
	"trailwise/internal/domain/repository"
	"trailwise/internal/platform/cache"
	"trailwise/internal/platform/config"
	"trailwise/internal/platform/database"
	"trailwise/internal/platform/mail"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize Token Issuer
	issuer := security.NewTokenIssuer(config.AppConfig.JWTKey, config.AppConfig.JWTExp)

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	fmt.Println("Database migrated.")

	// 4. Initialize Redis (optional, the API degrades to uncached reads)
	var tourCache *cache.Cache
	if err := cache.ConnectRedis(); err != nil {
		log.Printf("Warning: %v. Continuing without cache.", err)
	} else {
		defer cache.CloseRedis()
		tourCache = cache.New(cache.RDB, 5*time.Minute)
	}

	// 5. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	tourRepo := repository.NewPgTourRepository(database.DB)

	// 6. Initialize Services
	mailer := mail.NewFromConfig()
	authService := service.NewAuthService(userRepo, issuer, mailer, config.AppConfig.ResetTokenTTL)
	tourService := service.NewTourService(tourRepo, tourCache)

	// 7. Initialize Router & HTTP Server
	router := api.NewRouter(issuer, userRepo, authService, tourService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server stopped gracefully.")
}
