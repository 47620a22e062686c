// Package main is the settlement API server. It connects PostgreSQL and
// Redis, wires the service graph, starts the overdue sweeper and serves
// HTTP until interrupted.
package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"relist/internal/config"
	"relist/internal/repositories"
	"relist/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(config.GetEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(lvl)
	}

	if err := repositories.InitDB(); err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.WithError(err).Fatal("failed to get database instance")
	}
	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	if err := sqlDB.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.WithError(err).Warn("failed to close database connection")
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				log.WithError(err).Warn("failed to close redis connection")
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "relist-settlement",
		ReadTimeout:  config.GetDurationEnv("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: config.GetDurationEnv("HTTP_WRITE_TIMEOUT", 15*time.Second),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	core := routes.SetupRoutes(app, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Time-driven transitions (reminders, overdue splits, deposit expiry,
	// reconciliation) live in the sweeper, not in request handlers.
	go core.Sweeper.Run(ctx)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("forced shutdown")
		}
	}()

	addr := ":" + config.GetEnv("PORT", "3000")
	log.WithField("addr", addr).Info("settlement api listening")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
