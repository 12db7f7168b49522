package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/smbv/internal/api"
	"github.com/RMahshie/smbv/internal/config"
	"github.com/RMahshie/smbv/internal/microwave"
	"github.com/RMahshie/smbv/internal/repository"
	"github.com/RMahshie/smbv/internal/repository/postgres"
	"github.com/RMahshie/smbv/pkg/models"
)

const version = "1.0.0"

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.Server.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Connect to the microwave source
	session := microwave.NewSession(microwave.Options{
		Address:      cfg.Instrument.Address,
		Timeout:      cfg.Instrument.CommTimeout,
		MaxPower:     cfg.Instrument.MaxPower,
		PollInterval: cfg.Instrument.PollInterval,
		PollTimeout:  cfg.Instrument.PollTimeout,
	})
	// COMM_TIMEOUT bounds each bus exchange, not the whole activation
	if err := session.Activate(context.Background()); err != nil {
		log.Fatal().Err(err).Str("address", cfg.Instrument.Address).Msg("Failed to activate microwave source")
	}

	// Optional output journal
	var events repository.EventRepository
	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = openJournal(cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open event journal")
		}
		events = postgres.NewPostgresEventRepository(db)
		log.Info().Msg("Event journal enabled")
	} else {
		log.Info().Msg("DATABASE_URL not set, event journal disabled")
	}

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("SMBV API", version)
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = version
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, session, events)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("model", session.Model()).Msg("Starting SMBV API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Leave the source with its output off
	if _, err := session.Off(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to switch output off")
	}
	if err := session.Deactivate(); err != nil {
		log.Error().Err(err).Msg("Failed to close instrument connection")
	}
	if db != nil {
		db.Close()
	}

	log.Info().Msg("Server exited")
}

// openJournal connects to postgres and creates the events table if needed
func openJournal(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Str("request_id", middleware.GetReqID(r.Context())).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
