package server

import (
	"log"
	"log/slog"

	"backend-umaklink/internal/announcement"
	"backend-umaklink/internal/audit"
	"backend-umaklink/internal/auth"
	"backend-umaklink/internal/config"
	"backend-umaklink/internal/db"
	"backend-umaklink/internal/location"
	"backend-umaklink/internal/notify"
	"backend-umaklink/internal/post"
	"backend-umaklink/internal/search"
	"backend-umaklink/internal/storage"
	"backend-umaklink/internal/stream"
	"backend-umaklink/internal/vision"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       db.Querier
	Redis    *redis.Client
	Stream   *stream.Hub
	Audit    *audit.Recorder
	Notifier *notify.Dispatcher
	Posts    *post.Service
}

// NewServer wires every service onto one Fiber app. A nil db is allowed so
// the app can start (and report health) before Postgres is reachable.
func NewServer(cfg config.Config, database db.Querier, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     database,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
		Notifier: notify.NewDispatcher(notify.Options{
			PushURL:   cfg.PushGatewayURL,
			EmailURL:  cfg.EmailAPIURL,
			EmailKey:  cfg.EmailAPIKey,
			EmailFrom: cfg.EmailFrom,
		}),
	}
	s.Audit = audit.NewRecorder(database)
	s.Posts = post.NewService(database, post.Hooks{
		Events:   s.Stream,
		Audit:    s.Audit,
		Notifier: s.Notifier,
	})

	registerRoutes(s)
	return s
}

func (s *Server) Close() {
	s.Stream.Close()
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		database := "up"
		if err := db.Ping(c.Context(), s.DB); err != nil {
			database = "down"
		}
		return c.JSON(fiber.Map{"status": "ok", "database": database})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	staffOnly := auth.RequireRole(auth.RoleStaff, auth.RoleAdmin)
	adminOnly := auth.RequireRole(auth.RoleAdmin)

	post.RegisterRoutes(s.App, s.Posts, jwtMiddleware, staffOnly)
	location.RegisterRoutes(s.App.Group("/locations"), location.NewService(s.DB), jwtMiddleware, adminOnly)
	storage.RegisterRoutes(s.App.Group("/storage"), storage.NewService(s.DB, objectStore(s.Cfg)), jwtMiddleware)
	announcement.RegisterRoutes(s.App.Group("/announcements"),
		announcement.NewService(s.DB, s.Notifier, s.Audit, s.Stream),
		jwtMiddleware, adminOnly)
	audit.RegisterRoutes(s.App.Group("/audit"), s.Audit, jwtMiddleware, adminOnly)
	notify.RegisterRoutes(s.App.Group("/notify"), s.Notifier, jwtMiddleware)
	search.RegisterRoutes(s.App.Group("/search"), search.NewComposer(s.Posts, search.Options{
		Classifier: classifier(s.Cfg),
	}))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, post.EventsTopic, announcement.Topic)
}

// objectStore returns nil when MinIO is not configured; uploads then fail
// with storage.ErrNotConfigured.
func objectStore(cfg config.Config) storage.ObjectStore {
	if cfg.MinioEndpoint == "" {
		return nil
	}
	store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
		cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioUseSSL)
	if err != nil {
		log.Printf("object storage disabled: %v", err)
		return nil
	}
	return store
}

func classifier(cfg config.Config) search.Classifier {
	if cfg.VisionAPIKey == "" {
		return nil
	}
	return vision.NewClient(vision.Options{
		Endpoint:      cfg.VisionEndpoint,
		APIKey:        cfg.VisionAPIKey,
		Model:         cfg.VisionModel,
		RatePerMinute: cfg.VisionRatePerMinute,
		Logger:        slog.Default().With("component", "vision"),
	})
}
