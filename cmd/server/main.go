// HelsBotje GPT - completion gateway server
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/helsbotje/helsbotje-gpt/internal/api"
	"github.com/helsbotje/helsbotje-gpt/internal/config"
	"github.com/helsbotje/helsbotje-gpt/internal/gateway"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
	"github.com/helsbotje/helsbotje-gpt/internal/middleware"
	"github.com/helsbotje/helsbotje-gpt/internal/persona"
	"github.com/helsbotje/helsbotje-gpt/internal/provider"
	"github.com/helsbotje/helsbotje-gpt/internal/store"
	"github.com/helsbotje/helsbotje-gpt/web"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "provider", cfg.Provider.Name)

	pers := persona.Default()
	if cfg.PersonaFile != "" {
		pers, err = persona.Load(cfg.PersonaFile)
		if err != nil {
			slog.Error("Failed to load persona", "path", cfg.PersonaFile, "error", err)
			os.Exit(1)
		}
		slog.Info("Persona loaded", "name", pers.Name, "path", cfg.PersonaFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing credential is not fatal: the gateway answers with its
	// not-configured fallback until the key is set.
	prov, err := provider.New(ctx, provider.Config{
		Name:          cfg.Provider.Name,
		OpenAIAPIKey:  cfg.Provider.OpenAIAPIKey,
		OpenAIModel:   cfg.Provider.OpenAIModel,
		OpenAIBaseURL: cfg.Provider.OpenAIBaseURL,
		GeminiAPIKey:  cfg.Provider.GeminiAPIKey,
		GeminiModel:   cfg.Provider.GeminiModel,
		Sampling:      provider.Sampling{Temperature: pers.Temperature, MaxTokens: pers.MaxTokens},
	})
	switch {
	case errors.Is(err, provider.ErrMissingCredential):
		slog.Warn("Provider credential missing, chat will answer with the not-configured fallback", "provider", cfg.Provider.Name)
		prov = nil
	case err != nil:
		slog.Error("Failed to initialize provider", "error", err)
		os.Exit(1)
	}
	if closer, ok := prov.(io.Closer); ok {
		defer func() {
			if closeErr := closer.Close(); closeErr != nil {
				slog.Error("Failed to close provider", "error", closeErr)
			}
		}()
	}

	gwOpts := []gateway.Option{gateway.WithLogger(logger)}
	readyDeps := map[string]api.Pinger{}

	if cfg.ExchangeLog.Enabled {
		repo, err := store.NewSQLite(cfg.ExchangeLog.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()

		if err := repo.Ping(ctx); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Exchange log enabled", "db_path", cfg.ExchangeLog.DBPath, "retention", cfg.ExchangeLog.Retention)

		store.StartRetentionWorker(ctx, repo, cfg.ExchangeLog.Retention, store.DefaultRetentionInterval)
		gwOpts = append(gwOpts, gateway.WithRecorder(repo))
		readyDeps["database"] = repo
	}

	gw := gateway.New(prov, pers, gwOpts...)
	name, model := gw.Describe()
	slog.Info("Gateway ready", "persona", pers.Name, "provider", name, "model", model, "configured", gw.Configured())

	sm := gateway.NewSessionManager()
	chatHandler := gateway.NewHandler(gw, cfg.MaxRequestBodySize)
	wsHandler := gateway.NewWebSocketHandler(gw, sm, cfg.FrontendURL, cfg.IsDevelopment(), cfg.MaxRequestBodySize)
	readyHandler := api.NewReadyHandler(readyDeps)

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(identity.Middleware)

	readyHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve embedded widget (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // completions and WebSocket connections may be slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	sm.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if err := wsHandler.Wait(shutdownCtx); err != nil {
		slog.Warn("Chat sockets still open at shutdown", "error", err)
	}

	// Flush pending exchange records before the repository closes.
	gw.Close()

	slog.Info("Server stopped successfully")
}
