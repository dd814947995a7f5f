package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Abraxas-365/hybridparse/pkg/authx"
	"github.com/Abraxas-365/hybridparse/pkg/config"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const serviceName = "hybridparse"

func main() {
	logx.SetDefaultLogger(logx.NewLogger(logx.LoadFromEnv()))
	logx.Info("Starting document parsing API")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container := NewContainer(ctx, cfg)
	defer container.Cleanup()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          globalErrorHandler(cfg.IsProduction()),
		BodyLimit:             cfg.Server.BodyLimitBytes,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(requestid.New(requestid.Config{
		Header:    fiber.HeaderXRequestID,
		Generator: uuid.NewString,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:  "GET, POST, DELETE, OPTIONS",
		ExposeHeaders: fiber.HeaderXRequestID,
	}))
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path} | ${reqHeader:X-Request-ID}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Get("/health", healthCheckHandler(container))

	api := app.Group("/api/v1")
	var admin fiber.Handler
	if container.Auth != nil {
		api.Use(container.Auth.Authenticate())
		admin = authx.RequireScope(authx.ScopeAdmin)
	}
	container.Handlers.RegisterRoutes(api, admin)

	app.Use(notFoundHandler)

	workersDone := container.StartBackgroundServices(ctx)

	go func() {
		logx.WithField("port", cfg.Server.Port).Info("Server listening")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			logx.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logx.Info("Shutting down gracefully")

	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	<-workersDone
	logx.Info("Server exited")
}

func healthCheckHandler(container *Container) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		health := fiber.Map{
			"status":  "healthy",
			"service": serviceName,
			"ocr":     container.OCR.Available(),
		}

		if container.Redis != nil {
			if err := container.Redis.Ping(ctx).Err(); err != nil {
				health["redis"] = "unhealthy"
				health["redis_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["redis"] = "healthy"
			}
		}
		if container.DB != nil {
			if err := container.DB.PingContext(ctx); err != nil {
				health["db"] = "unhealthy"
				health["db_error"] = err.Error()
				health["status"] = "degraded"
			} else {
				health["db"] = "healthy"
			}
		}
		if c.QueryBool("check_storage", false) {
			if _, err := container.FileSystem.Exists(ctx, ".health-check"); err != nil {
				health["storage"] = "unhealthy"
				health["storage_error"] = err.Error()
			} else {
				health["storage"] = "healthy"
			}
		}

		status := fiber.StatusOK
		if health["status"] == "degraded" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(health)
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error":      "Route not found",
		"code":       "NOT_FOUND",
		"path":       c.Path(),
		"method":     c.Method(),
		"request_id": c.GetRespHeader(fiber.HeaderXRequestID),
	})
}

// globalErrorHandler converts errors to the errx JSON shape.
func globalErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":      fe.Message,
				"code":       "FIBER_ERROR",
				"status":     fe.Code,
				"request_id": requestID,
			})
		}

		e := errx.FromError(err)
		entry := logx.WithFields(logx.Fields{
			"path":       c.Path(),
			"method":     c.Method(),
			"request_id": requestID,
			"code":       e.Code,
		})
		if e.HTTPStatus >= fiber.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Debugf("request rejected: %v", err)
		}

		resp := fiber.Map{
			"error":      e.Message,
			"code":       e.Code,
			"type":       string(e.Type),
			"status":     e.HTTPStatus,
			"request_id": requestID,
		}
		if len(e.Details) > 0 {
			resp["details"] = e.Details
		}
		if !production && e.Err != nil {
			resp["underlying_error"] = e.Err.Error()
		}
		return c.Status(e.HTTPStatus).JSON(resp)
	}
}
