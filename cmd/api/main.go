// cmd/api/main.go
// Main entry point for the discovery ranking engine
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/imadgeboyega/kiekky-discovery/internal/auth"
	"github.com/imadgeboyega/kiekky-discovery/internal/clients"
	"github.com/imadgeboyega/kiekky-discovery/internal/common/database"
	"github.com/imadgeboyega/kiekky-discovery/internal/config"
	"github.com/imadgeboyega/kiekky-discovery/internal/discovery"
	"github.com/imadgeboyega/kiekky-discovery/internal/heat"
	"github.com/imadgeboyega/kiekky-discovery/internal/maintenance"
	"github.com/imadgeboyega/kiekky-discovery/internal/preferences"
	"github.com/imadgeboyega/kiekky-discovery/internal/signals"
	"github.com/imadgeboyega/kiekky-discovery/internal/tiers"
)

var startTime = time.Now()

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Kiekky Discovery Engine")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	log.Printf("✅ Configuration loaded")

	// 3. Validate configuration
	log.Println("\n✔️  Step 3: Validating configuration...")
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration is valid")

	// 4. Connect to PostgreSQL
	log.Println("\n🗄️  Step 4: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("❌ Failed to ping PostgreSQL:", err)
	}
	log.Println("✅ Connected to PostgreSQL successfully")

	// 5. Connect to Redis
	log.Println("\n📮 Step 5: Connecting to Redis...")
	redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL)
	if err != nil {
		log.Printf("⚠️  Redis unavailable (%v), falling back to in-memory heat and tier stores", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		log.Println("✅ Connected to Redis successfully")
	}

	// 6. Run database migrations
	log.Println("\n🔨 Step 6: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Printf("❌ Migration error: %v", err)
		log.Fatal("Failed to run migrations")
	}
	log.Println("✅ Database migrations completed")

	// 7. Initialize external service clients
	log.Println("\n🔌 Step 7: Initializing external service clients...")

	var directoryClient clients.DirectoryClient
	if cfg.DirectoryBaseURL != "" {
		directoryClient = clients.NewHTTPDirectoryClient(cfg.DirectoryBaseURL, cfg.ClientTimeout)
		log.Println("   ✅ Using profile directory at", cfg.DirectoryBaseURL)
	} else {
		directoryClient = clients.NewMockDirectoryClient()
		log.Println("   ⚠️  Using mock profile directory (development mode)")
	}

	var trustClient clients.TrustClient
	if cfg.TrustBaseURL != "" {
		trustClient = clients.NewHTTPTrustClient(cfg.TrustBaseURL, cfg.ClientTimeout)
		log.Println("   ✅ Using trust service at", cfg.TrustBaseURL)
	} else {
		trustClient = clients.NewMockTrustClient()
		log.Println("   ⚠️  Using mock trust service (development mode)")
	}

	var billingClient clients.BillingClient
	if cfg.BillingBaseURL != "" {
		billingClient = clients.NewHTTPBillingClient(cfg.BillingBaseURL, cfg.ClientTimeout)
		log.Println("   ✅ Using billing ledger at", cfg.BillingBaseURL)
	} else {
		billingClient = clients.NewMockBillingClient()
		log.Println("   ⚠️  Using mock billing ledger (development mode)")
	}

	var notifyClient clients.NotifyClient
	if cfg.NotifyBaseURL != "" {
		notifyClient = clients.NewHTTPNotifyClient(cfg.NotifyBaseURL, cfg.ClientTimeout)
		log.Println("   ✅ Using notification dispatcher at", cfg.NotifyBaseURL)
	} else {
		notifyClient = clients.NewMockNotifyClient()
		log.Println("   ⚠️  Using mock notification dispatcher (development mode)")
	}

	// 8. Initialize heat tracker
	log.Println("\n🔥 Step 8: Initializing heat tracker...")
	var heatStore heat.Store
	if redisClient != nil {
		heatStore = heat.NewRedisStore(redisClient)
		log.Println("   ✅ Heat states stored in Redis")
	} else {
		heatStore = heat.NewMemoryStore()
		log.Println("   ⚠️  Heat states stored in memory (development mode)")
	}
	heatService := heat.NewService(heatStore, cfg.HeatWindow, cfg.HeatDailyCap)
	log.Println("✅ Heat tracker initialized")

	// 9. Initialize preference learner
	log.Println("\n🧠 Step 9: Initializing preference learner...")
	preferenceRepo := preferences.NewPostgresRepository(db)
	learnerCfg := preferences.DefaultLearnerConfig()
	learnerCfg.MinSwipes = cfg.MinSwipesForLearning
	learnerCfg.AgeTolerance = cfg.AgeTolerance
	learnerCfg.DistanceMultiplier = cfg.DistanceMultiplier
	preferenceService := preferences.NewService(preferenceRepo, learnerCfg, notifyClient)
	preferenceHandler := preferences.NewHandler(preferenceService)
	log.Println("✅ Preference learner initialized")

	// 10. Initialize signal store and behavior aggregator
	log.Println("\n📡 Step 10: Initializing signal store...")
	signalRepo := signals.NewPostgresRepository(db)
	signalService := signals.NewService(signalRepo, heatService, preferenceService)
	signalService.Start(context.Background())
	signalHandler := signals.NewHandler(signalService)
	log.Println("✅ Signal store initialized, aggregation workers started")

	// 11. Initialize tier classifier
	log.Println("\n🏅 Step 11: Initializing tier classifier...")
	var tierStore tiers.Store
	if redisClient != nil {
		tierStore = tiers.NewRedisStore(redisClient)
	} else {
		tierStore = tiers.NewMemoryStore()
	}
	tierService := tiers.NewService(
		tiers.NewClassifier(tiers.DefaultRules()),
		signalService,
		directoryClient,
		billingClient,
		tierStore,
		notifyClient,
	)
	log.Println("✅ Tier classifier initialized")

	// 12. Initialize candidate ranker
	log.Println("\n🎯 Step 12: Initializing candidate ranker...")
	discoveryService := discovery.NewService(
		directoryClient,
		trustClient,
		signalService,
		preferenceService,
		heatService,
		tierService,
		discovery.Options{
			PoolSize:      cfg.CandidatePoolSize,
			FanoutTimeout: cfg.FanoutTimeout,
			Scoring:       discovery.DefaultScoringConfig(),
		},
	)
	discoveryHandler := discovery.NewHandler(discoveryService, cfg.DefaultFeedLimit, cfg.MaxFeedLimit)
	log.Println("✅ Candidate ranker initialized")

	// 13. Setup routes
	log.Println("\n🛣️  Step 13: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/api", apiInfo).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	signals.RegisterRoutes(router, signalHandler, authMiddleware)
	log.Println("   ✅ Signal routes registered")

	preferences.RegisterRoutes(router, preferenceHandler, authMiddleware)
	log.Println("   ✅ Preference routes registered")

	discovery.RegisterRoutes(router, discoveryHandler, authMiddleware)
	log.Println("   ✅ Discovery routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 14. Start maintenance scheduler
	log.Println("\n🧹 Step 14: Starting maintenance scheduler...")
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	scheduler := maintenance.NewScheduler(
		signalService,
		preferenceService,
		heatService,
		cfg.HeatSweepInterval,
		cfg.RecomputeHour,
		cfg.RecomputeWindowDays,
	)
	scheduler.Start(schedulerCtx)
	log.Printf("✅ Maintenance scheduler started (heat sweep every %s, recompute at %02d:00)",
		cfg.HeatSweepInterval, cfg.RecomputeHour)

	// 15. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	// Stop periodic jobs before the server drains
	stopScheduler()

	// Let in-flight aggregate updates finish so no signal is half-applied
	log.Println("   - Draining signal aggregation workers...")
	signalService.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// apiInfo returns API information
func apiInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{
        "name": "Kiekky Discovery Engine",
        "version": "1.0.0",
        "status": "running",
        "endpoints": {
            "health": "GET /health",
            "metrics": "GET /metrics",
            "signals": "POST /api/v1/signals",
            "behaviorProfile": "GET /api/v1/me/behavior-profile",
            "preferences": "GET /api/v1/me/preferences",
            "feed": "GET /api/v1/discovery/feed?limit&cursor&exclude"
        }
    }`))
}

// Middleware functions

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log.Printf("→ %s %s from %s", r.Method, r.RequestURI, r.RemoteAddr)

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	log.Println("   - Creating/updating tables...")

	migrations := []string{
		// Append-only interaction event log. Ground truth for every
		// derived aggregate; rows are never updated or deleted.
		`CREATE TABLE IF NOT EXISTS signals (
			id UUID PRIMARY KEY,
			actor_id BIGINT NOT NULL,
			target_id BIGINT NOT NULL,
			signal_type VARCHAR(40) NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			metadata JSONB,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Per-user behavior aggregate, replaced wholesale on recompute
		`CREATE TABLE IF NOT EXISTS behavior_profiles (
			user_id BIGINT PRIMARY KEY,
			profile_views BIGINT NOT NULL DEFAULT 0,
			swipes_right BIGINT NOT NULL DEFAULT 0,
			swipes_left BIGINT NOT NULL DEFAULT 0,
			messages_sent BIGINT NOT NULL DEFAULT 0,
			messages_received BIGINT NOT NULL DEFAULT 0,
			message_replies BIGINT NOT NULL DEFAULT 0,
			paid_interactions BIGINT NOT NULL DEFAULT 0,
			meetings_booked BIGINT NOT NULL DEFAULT 0,
			matches BIGINT NOT NULL DEFAULT 0,
			right_swipes_received BIGINT NOT NULL DEFAULT 0,
			response_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			match_conversion_rate DOUBLE PRECISION NOT NULL DEFAULT 0,
			activity_recency_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_signal_at TIMESTAMPTZ,
			last_recomputed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Learned preferences, one row per user, overwritten on recompute
		`CREATE TABLE IF NOT EXISTS learned_preferences (
			user_id BIGINT PRIMARY KEY,
			age_min INTEGER NOT NULL,
			age_max INTEGER NOT NULL,
			max_distance_km DOUBLE PRECISION NOT NULL,
			interest_affinities JSONB NOT NULL DEFAULT '{}',
			confidence VARCHAR(10) NOT NULL,
			swipe_sample BIGINT NOT NULL,
			learned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_signals_actor ON signals(actor_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_target ON signals(target_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_actor_type ON signals(actor_id, signal_type)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_occurred_at ON signals(occurred_at DESC)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
