package server

import (
	"backend-tweeter/internal/comment"
	"backend-tweeter/internal/config"
	"backend-tweeter/internal/engagement"
	"backend-tweeter/internal/identity"
	"backend-tweeter/internal/profile"
	"backend-tweeter/internal/stream"
	"backend-tweeter/internal/timeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	identitySvc := identity.NewService(s.DB)
	requireViewer := identity.RequireViewer(identitySvc, s.Cfg.JWTSecret)
	optionalViewer := identity.OptionalViewer(identitySvc, s.Cfg.JWTSecret)

	var provider identity.Provider
	if s.Cfg.IdentityAPIURL != "" {
		provider = identity.NewHTTPProvider(s.Cfg.IdentityAPIURL, s.Cfg.IdentityAPIKey)
	}

	likes := engagement.NewService(s.DB)
	comments := comment.NewService(s.DB)
	posts := timeline.NewService(s.DB, comments, s.Stream)
	profiles := profile.NewService(s.DB, posts, provider)

	identity.RegisterRoutes(s.App.Group("/identity"), identitySvc, s.Cfg.WebhookSecret, requireViewer)
	timeline.RegisterRoutes(s.App.Group("/posts"), posts, likes, requireViewer, optionalViewer)
	comment.RegisterRoutes(s.App.Group("/comments"), comments, likes, requireViewer, optionalViewer)
	profile.RegisterRoutes(s.App.Group("/users"), profiles, requireViewer, optionalViewer)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
