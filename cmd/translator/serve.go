package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pdftranslate/client/internal/client"
	"github.com/pdftranslate/client/internal/handler"
	"github.com/pdftranslate/client/internal/logger"
	"github.com/pdftranslate/client/internal/middleware"
	"github.com/pdftranslate/client/internal/service"
	ws "github.com/pdftranslate/client/internal/websocket"
	"github.com/pdftranslate/client/pkg/response"
)

const downloadRoute = "/api/download"

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local server for the browser front-end",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	log := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: 2 * time.Second,
	})
	defer redisClient.Close()

	// Optional R2 mirror for translated files
	var exporters []service.Exporter
	var r2Client *client.R2Client
	if cfg.R2.Enabled() {
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Warn().Err(err).Msg("R2 storage not available")
		} else {
			exporters = append(exporters, service.NewStorageExporter(r2Client, time.Duration(cfg.R2.SignedURLExpiry)*time.Minute))
		}
	}

	// Initialize WebSocket hub
	hub := ws.NewHub(logger.WithComponent("websocket"))
	go hub.Run(ctx)

	svc := newCore(cfg, hub, downloadRoute, exporters...)
	defer svc.close()
	svc.presenter.Subscribe(hub.BroadcastView)

	uploadHandler := handler.NewUploadHandler(svc.uploads, svc.presenter, logger.WithComponent("handler"))
	stateHandler := handler.NewStateHandler(svc.presenter)
	downloadHandler := handler.NewDownloadHandler(svc.downloads)
	rateLimiter := middleware.NewRateLimiter(limiterRedis(ctx, redisClient), logger.WithComponent("ratelimit"))

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    51 * 1024 * 1024, // 50MB file plus multipart overhead
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	app.Get("/health", healthHandler(redisClient, r2Client))

	api := app.Group("/api")
	api.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Upload)
	api.Get("/state", stateHandler.State)
	api.Get("/download", downloadHandler.Download)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/progress", websocket.New(hub.HandleConnection))

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Str("api_url", cfg.API.URL).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// limiterRedis returns redisClient when it answers a ping, nil otherwise.
// Without Redis at start-up uploads are not rate limited.
func limiterRedis(ctx context.Context, redisClient *redis.Client) *redis.Client {
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log := logger.WithComponent("server")
		log.Warn().Err(err).Msg("redis not available, rate limiting disabled")
		return nil
	}
	return redisClient
}

func healthHandler(redisClient *redis.Client, r2Client *client.R2Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		redisStatus := "ok"
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisStatus = "unavailable"
		}

		r2Status := "disabled"
		if r2Client != nil && r2Client.IsConfigured() {
			r2Status = "ok"
		}

		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": redisStatus,
				"r2":    r2Status,
			},
		})
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return response.Error(c, code, response.CodeServiceError, message, nil)
}
