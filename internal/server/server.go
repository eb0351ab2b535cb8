package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/coursebase/apiserver/config"
	"github.com/coursebase/apiserver/internal/auth"
	"github.com/coursebase/apiserver/internal/db"
	"github.com/coursebase/apiserver/internal/handlers"
	"github.com/coursebase/apiserver/internal/mq"
	"github.com/coursebase/apiserver/internal/notify"
	"github.com/coursebase/apiserver/internal/services"
	"github.com/coursebase/apiserver/internal/storage"
	"github.com/coursebase/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and its long-lived dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	broker, err := mq.Open(ctx, cfg.Broker)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	media, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = broker.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	courseRepo := store.NewCourseRepository(dbConn)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	notifier := notify.NewBrokerNotifier(broker, cfg.Broker.MailQueue)

	authService := services.NewAuthService(userRepo, hasher, issuer, notifier, cfg.Auth.ResetTokenTTL, logger)
	courseService := services.NewCourseService(courseRepo, media)
	analyticsService := services.NewAnalyticsService(courseRepo)

	authMiddleware := handlers.RequireAuth(issuer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authService, issuer)
	})
	router.Route("/courses", func(r chi.Router) {
		handlers.CourseRouter(r, courseService, authMiddleware)
	})
	router.Route("/analytics", func(r chi.Router) {
		handlers.AnalyticsRouter(r, analyticsService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
