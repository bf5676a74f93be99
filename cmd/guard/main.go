package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clowiza/backend/internal/config"
	"github.com/clowiza/backend/internal/database"
	"github.com/clowiza/backend/internal/gate"
	"github.com/clowiza/backend/internal/middleware"
	"github.com/clowiza/backend/internal/monitoring"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", cfgPath, err)
	}

	// Get port from environment (Cloud Run requirement)
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = "8080" // Default for local development
	}

	// Initialize Supabase client
	supabaseClient, err := database.NewSupabaseClient()
	if err != nil {
		log.Fatalf("Failed to initialize Supabase client: %v", err)
	}

	metrics := monitoring.NewMetrics()

	pol := gate.DefaultPolicy()
	if cfg.Gate.AllowedCountry != "" {
		pol.AllowedCountry = cfg.Gate.AllowedCountry
	}
	if len(cfg.Gate.MobileTokens) > 0 {
		pol.MobileTokens = cfg.Gate.MobileTokens
	}
	if cfg.Gate.IDPrefix != "" {
		pol.IDPrefix = cfg.Gate.IDPrefix
	}

	guard := gate.NewHandler(supabaseClient, supabaseClient, gate.HandlerConfig{
		Policy:        pol,
		LookupTimeout: cfg.Gate.LookupTimeout(),
		AuditTimeout:  cfg.Gate.AuditTimeout(),
	}, metrics)

	// Create router
	router := mux.NewRouter()

	// Health check endpoint (required for Cloud Run)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		supabaseStatus := "connected"
		if err := supabaseClient.Ping(ctx); err != nil {
			supabaseStatus = "error"
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":   "healthy",
			"service":  "clowiza-guard",
			"supabase": supabaseStatus,
		})
	}).Methods("GET")

	// The gating endpoint, embedded as a script tag on merchant pages
	router.Handle("/clowiza-guard", guard).Methods("GET", "OPTIONS")

	// Prometheus metrics
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Use(middleware.CORS)
	router.Use(middleware.Logging)

	// Create server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown (Cloud Run sends SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("🚀 Clowiza guard starting on port %s (allowed country=%s)", port, pol.AllowedCountry)
	log.Printf("📊 Health check: http://localhost:%s/health", port)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}
