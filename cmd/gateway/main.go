package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/alphatracesol/operator-uplift-gateway/config"
	"github.com/alphatracesol/operator-uplift-gateway/internal/auditlog"
	"github.com/alphatracesol/operator-uplift-gateway/internal/credits"
	"github.com/alphatracesol/operator-uplift-gateway/internal/gateway"
	"github.com/alphatracesol/operator-uplift-gateway/internal/httpmw"
	"github.com/alphatracesol/operator-uplift-gateway/internal/identity"
	"github.com/alphatracesol/operator-uplift-gateway/internal/provider"
	"github.com/alphatracesol/operator-uplift-gateway/internal/provider/claude"
	"github.com/alphatracesol/operator-uplift-gateway/internal/provider/gemini"
	"github.com/alphatracesol/operator-uplift-gateway/internal/provider/groq"
	"github.com/alphatracesol/operator-uplift-gateway/internal/provider/openai"
	"github.com/alphatracesol/operator-uplift-gateway/internal/quota"
	"github.com/alphatracesol/operator-uplift-gateway/internal/seeder"
	"github.com/alphatracesol/operator-uplift-gateway/internal/telemetry"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	initLogger(cfg.LogFormat)

	// 2. Init telemetry
	shutdownTracer, err := telemetry.InitTracer("ai-gateway", cfg)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer shutdownTracer()

	// 3. Connect PostgreSQL
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping postgres: %v", err)
	}
	log.Println("PostgreSQL connected")

	// 4. Connect Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}
	log.Println("Redis connected")

	// 5. Init identity verifier
	verifier := identity.NewJWTVerifier(cfg.JWTSecret, rdb)

	// 6. Init quota store
	quotas := quota.NewRedisStore(rdb, cfg.RateLimitWindow, cfg.RateLimits)

	// 7. Init credit ledger + interaction logger
	ledger := credits.NewPostgresStore(pool)
	audit := auditlog.NewPostgresStore(pool)

	// 8. Init provider registry
	registry := provider.NewRegistry(
		openai.New(cfg.OpenAIAPIKey, cfg.ProviderTimeout),
		claude.New(cfg.AnthropicAPIKey, cfg.ProviderTimeout),
		gemini.New(cfg.GeminiAPIKey, cfg.ProviderTimeout),
		groq.New(cfg.GroqAPIKey, cfg.ProviderTimeout),
	)

	// 9. Init gateway handler
	tracer := otel.GetTracerProvider().Tracer("ai-gateway")
	handler := gateway.NewHandler(verifier, quotas, ledger, registry, audit, tracer, gateway.Options{
		MaxMessages:       cfg.MaxMessages,
		MaxMessageContent: cfg.MaxMessageContent,
		ProviderTimeout:   cfg.ProviderTimeout,
	})

	// 10. Seed test user if RUN_SEED=true
	if os.Getenv("RUN_SEED") == "true" {
		seeder.SeedTestUser(ctx, ledger, cfg.JWTSecret)
	}

	// 11. Init Chi router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(httpmw.SecurityHeaders)
	r.Use(httpmw.Metrics)
	r.Use(cors.Handler(httpmw.CORS(cfg.AllowedOrigins)))
	r.MethodNotAllowed(handler.HandleMethodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"ai-gateway"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/ai-proxy", handler.HandleProxy)
	// CORS preflights carrying Access-Control-Request-Method are
	// answered by the cors middleware; bare OPTIONS lands here.
	r.Options("/ai-proxy", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 12. Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("AI Gateway starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func initLogger(format string) {
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		h = slog.NewTextHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(h))
}
