// Package api exposes the session to a front end over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	app    *fiber.App
	listen string
	logger zerolog.Logger
}

func NewServer(cfg config.APIConfig, handler *SessionHandler, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "alfresco-orchestrator",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			return errorResponse(c, err)
		},
	})
	app.Use(requestLogger(logger))

	v1 := app.Group("/api").Group("/v1")
	v1.Get("/state", handler.GetState)
	v1.Get("/configurations", handler.ListConfigurations)
	v1.Put("/configuration/:name", handler.SelectConfiguration)
	v1.Post("/setup", handler.Setup)
	v1.Post("/run", handler.Run)
	v1.Post("/stop", handler.Stop)
	v1.Post("/open", handler.Open)

	containers := v1.Group("/containers")
	containers.Get("/", handler.ListContainers)
	containers.Get("/:id", handler.GetContainer)

	return &Server{app: app, listen: cfg.Listen, logger: logger}
}

// Run serves until ctx is done, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.listen).Msg("HTTP API listening")
		errCh <- s.app.Listen(s.listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("HTTP API shutting down")
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) App() *fiber.App {
	return s.app
}

func requestLogger(logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
		return err
	}
}
