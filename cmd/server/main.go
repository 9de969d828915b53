package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/optclear/clearing-engine/internal/clearing"
	"github.com/optclear/clearing-engine/internal/engine"
	"github.com/optclear/clearing-engine/internal/metrics"
	"github.com/optclear/clearing-engine/internal/risk"
	"github.com/optclear/clearing-engine/internal/series"
	"github.com/optclear/clearing-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Series terms ---
	symbol := os.Getenv("SERIES_SYMBOL")
	if symbol == "" {
		symbol = "CC-WETH-250000-20270917"
		slog.Warn("SERIES_SYMBOL not set, using default", "symbol", symbol)
	}
	terms, err := series.NewTerms(symbol, time.Time{},
		envInt("UNDERLYING_DECIMALS", 8),
		int64(envInt("ASSIGNMENT_FEE_PERCENT", 1)))
	if err != nil {
		slog.Error("invalid series terms", "err", err)
		os.Exit(1)
	}

	originator := os.Getenv("ORIGINATOR")
	if originator == "" {
		originator = "originator"
		slog.Warn("ORIGINATOR not set, using default", "originator", originator)
	}
	custody := "custody:" + terms.Symbol

	// --- External ports ---
	// In-memory custody and payment ports; production deployments swap in
	// adapters to the custody and treasury services.
	bank := engine.NewMemoryBank(custody)
	if seed := os.Getenv("CUSTODY_DEPOSIT"); seed != "" {
		amount, err := decimal.NewFromString(seed)
		if err != nil {
			slog.Error("invalid CUSTODY_DEPOSIT", "err", err)
			os.Exit(1)
		}
		bank.Deposit(custody, amount)
		slog.Info("custody pre-funded", "amount", amount.String())
	}
	payments := engine.NewMemoryPayments()
	gate := engine.StaticGate{Originator: originator}

	eng := engine.New(terms, gate, engine.SystemClock{}, bank, payments, custody, originator)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (journal will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Exposure limits (0 = unlimited) ---
	limiter := risk.NewExposureLimiter(
		int64(envInt("MAX_SHORT_PER_ACCOUNT", 0)),
		int64(envInt("MAX_OPEN_INTEREST", 0)),
	)

	// --- WebSocket hub ---
	wsHub := clearing.NewWSHub()
	go wsHub.Run()

	// --- Clearing service ---
	svc := clearing.NewService(eng, st, limiter, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"clearing-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time settlement events.
		r.Get("/ws", wsHub.HandleWS)

		// Series terms.
		r.Get("/series", svc.GetSeries)

		// Settlement operations.
		r.Post("/mint", svc.Mint)
		r.Post("/transfer", svc.Transfer)
		r.Post("/exercise", svc.Exercise)
		r.Post("/claim", svc.Claim)

		// Position and journal queries.
		r.Get("/positions", svc.ListPositions)
		r.Get("/positions/{address}", svc.GetPosition)
		r.Get("/journal", svc.GetJournal)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("clearing-engine listening",
			"port", port,
			"series", terms.Symbol,
			"strike", terms.StrikePrice.String(),
			"expiry", terms.Expiry,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down clearing-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("clearing-engine stopped")
}

// envInt reads an integer environment variable with a fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("invalid integer env var, using fallback", "key", key, "value", v)
		return fallback
	}
	return n
}
