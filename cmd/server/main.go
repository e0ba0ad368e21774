// cmd/server/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"worktrack/internal/config"
	"worktrack/internal/handlers"
	"worktrack/internal/logging"
	"worktrack/internal/middleware"
	"worktrack/internal/repo"
	"worktrack/internal/report"
	"worktrack/internal/workflow"
)

func main() {
	// --- Load config (config.yaml + env overrides) ---
	cfg := config.Load()

	// --- Logger ---
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format == "json")

	// --- Store: Postgres when configured, in-memory otherwise ---
	ctx := context.Background()
	var store repo.Store
	if cfg.Database.URL != "" {
		slog.Debug("connecting to database")
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("db connect error", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			slog.Error("db ping error", "err", err)
			os.Exit(1)
		}
		slog.Debug("database connection ready")
		store = repo.NewPG(pool)
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store")
		store = repo.NewMemory()
	}

	// --- Working calendar (built-in weekly schedule) ---
	calendar, err := report.NewWeeklyCalendar(cfg.Calendar)
	if err != nil {
		slog.Error("calendar config error", "err", err)
		os.Exit(1)
	}

	machine := workflow.New(store)
	engine := report.NewEngine(store, calendar, calendar)

	// --- Router ---
	mux := chi.NewRouter()

	// Ensure request ID then log requests with slog
	mux.Use(middleware.RequestID(cfg.Security.RequestID.TrustHeader))
	mux.Use(middleware.Actor)
	mux.Use(middleware.SlogRequestLogger)

	// --- CORS middleware ---
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Security.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-Id", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by browsers
	}))

	// Work item and report routes
	handlers.RegisterRoutes(mux, machine, engine)

	// Health root
	mux.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	})

	// --- Start server ---
	addr := cfg.Listen
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}
	slog.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
