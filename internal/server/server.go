// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"time"

	"lookup/internal/bootstrap"
	"lookup/internal/cache"
	"lookup/internal/config"
	"lookup/internal/database"
	"lookup/internal/kakao"
	"lookup/internal/middleware"
	"lookup/internal/models"
	"lookup/internal/repository"
	"lookup/internal/service"
	"lookup/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	cache          *cache.Cache
	uploadDir      string
	app            *fiber.App
	runtime        *bootstrap.Runtime
	promMiddleware *fiberprometheus.FiberPrometheus
	kakao          kakao.Provider
	userService    *service.UserService
	feedService    *service.FeedService
	postService    *service.PostService
}

// NewServer connects every runtime resource and builds the server. A database
// that cannot be reached is returned as an error; callers exit on it.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Migrate: !cfg.IsProduction()})
	if err != nil {
		return nil, err
	}

	provider := kakao.NewClient(kakao.Config{
		RESTAPIKey:   cfg.KakaoRESTAPIKey,
		ClientSecret: cfg.KakaoClientSecret,
		RedirectURI:  cfg.KakaoRedirectURI,
		AuthURL:      cfg.KakaoAuthURL,
		TokenURL:     cfg.KakaoTokenURL,
		ProfileURL:   cfg.KakaoProfileURL,
		Timeout:      cfg.KakaoTimeout(),
	})

	s := NewServerWithDeps(cfg, rt.DB, rt.Cache, rt.Store, provider)
	s.runtime = rt
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, c *cache.Cache, store storage.ContentStore, provider kakao.Provider) *Server {
	userRepo := repository.NewUserRepository(db, c)
	feedRepo := repository.NewFeedRepository(db)
	postRepo := repository.NewPostRepository(db)

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL())

	s := &Server{
		config:         cfg,
		db:             db,
		cache:          c,
		uploadDir:      cfg.UploadDir,
		promMiddleware: middleware.InitMetrics("lookup-api"),
		kakao:          provider,
		userService:    service.NewUserService(userRepo, provider, tokens),
		feedService:    service.NewFeedService(feedRepo),
		postService:    service.NewPostService(postRepo, userRepo, feedRepo, store, cfg.UploadURLPrefix),
	}
	if fs, ok := store.(*storage.FileSystemStore); ok {
		s.uploadDir = fs.Root()
	}
	return s
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Lookup API",
		BodyLimit:    s.config.UploadMaxSizeBytes(),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// errorHandler renders errors that escaped a handler, keeping Fiber's own
// statuses (404 for unknown routes, 413 for oversized bodies).
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Message: fiberErr.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
	return models.RespondWithError(c, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// OpenTelemetry server span per request
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Uploaded media is fetched cross-origin by the app.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       86400, // 24 hours
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Backend is running!")
	})
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Uploaded media
	prefix := s.config.UploadURLPrefix
	if prefix == "" {
		prefix = "/uploads"
	}
	if s.uploadDir != "" {
		app.Static(prefix, s.uploadDir, fiber.Static{ByteRange: true})
	}

	// Identity
	app.Post("/check-id-duplication", s.CheckIDDuplication)
	app.Post("/check-username-duplication", s.CheckUsernameDuplication)
	app.Post("/signup", s.Signup)

	auth := app.Group("/auth/kakao")
	auth.Post("/", s.KakaoLogin)
	auth.Get("/login", s.KakaoAuthorize)
	auth.Get("/callback", s.KakaoCallback)

	api := app.Group("/api")

	// Feeds
	feeds := api.Group("/feeds")
	feeds.Post("/", s.CreateFeed)
	feeds.Get("/:feedId/posts", s.GetFeedPosts)

	// Posts
	posts := api.Group("/posts")
	posts.Post("/", s.CreatePost)
	posts.Get("/", s.GetPosts)
}

// ReadinessCheck reports database and (when configured) Redis health.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.cache.Enabled() {
		redisStatus = "healthy"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("Server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, then releases the pool and Redis client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.runtime != nil {
		if err := s.runtime.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	middleware.Logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}
