// Package main initializes and starts the Realtivo API server, setting up
// configuration, logging, database connections, repositories, services and
// handlers.
package main

import (
	"context"
	"fmt"
	"os"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/config"
	"github.com/atinyakov/realtivo/internal/db"
	"github.com/atinyakov/realtivo/internal/logger"
	"github.com/atinyakov/realtivo/internal/repository"
	"github.com/atinyakov/realtivo/internal/server/handler/http"
	"github.com/atinyakov/realtivo/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.ParseServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", orNA(version))
	fmt.Printf("Build date: %s\n", orNA(buildDate))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Purge soft-deleted leads past their retention.
	db.StartSoftDeleteCleaner(context.Background(), postgresDB,
		options.CleanerInterval,
		options.Retention,
		zapLogger,
	)

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	leadRepo := repository.NewPostgresLeadRepository(postgresDB)
	noteRepo := repository.NewPostgresNoteRepository(postgresDB)
	tagRepo := repository.NewPostgresTagRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, []byte(options.JWTSecret), options.TokenTTL, options.AdminEmails)
	leadService := service.NewLeadService(leadRepo, noteRepo, tagRepo)

	// Build the router with middleware and routes.
	router := http.NewRouter(http.RouterConfig{
		Auth:           &http.AuthHandler{AuthService: authService, Log: zapLogger},
		Leads:          &http.LeadHandler{LeadService: leadService, Log: zapLogger},
		Verifier:       authService,
		Logger:         zapLogger,
		AllowedOrigins: options.AllowedOrigins,
	})

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	if options.TLSCert != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		err = server.ListenAndServe()
	}
	if err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

// orNA returns s, or "N/A" when s is empty.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
