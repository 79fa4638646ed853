package main // Entry point package

import (
    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/admintermas/reservas-api/internal/config"
    "github.com/admintermas/reservas-api/internal/database"
    "github.com/admintermas/reservas-api/internal/handler"
    "github.com/admintermas/reservas-api/internal/ledger"
    "github.com/admintermas/reservas-api/internal/middleware"
    "github.com/admintermas/reservas-api/internal/queue"
    "github.com/admintermas/reservas-api/internal/repository"
    "github.com/admintermas/reservas-api/internal/router"
    queuepublisher "github.com/admintermas/reservas-api/internal/service"
)

func main() {
    // .env is optional; real deployments set env vars directly.
    _ = godotenv.Load()

    log := logrus.New()
    log.SetFormatter(&logrus.JSONFormatter{})

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.WithError(err).Fatal("database connection failed")
    }
    defer db.Close()

    // Redis is optional: rate limiting and caching degrade to no-ops.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Warn("redis unavailable, rate limiting and caching disabled")
    }

    reservations := repository.NewReservationRepo(db)
    payments := repository.NewPaymentRepo(db)
    comments := repository.NewCommentRepo(db)
    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)

    store := repository.NewSQLStore(db, reservations, payments, comments)
    publisher := queuepublisher.New(log)
    processor := ledger.NewProcessor(store, publisher, log)

    authHandler := handler.NewAuthHandler(cfg, users, tokens)
    resHandler := handler.NewReservationHandler(processor, reservations, comments, log)

    e := echo.New()
    e.HideBanner = true
    e.Validator = handler.NewRequestValidator()

    rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler, cfg.JWTSecret)
    router.RegisterBackoffice(e, resHandler, cfg.JWTSecret, rateLimit, cache)

    // Consumes payment.recorded events and appends them to the audit log
    // file; reconnects on broker failures.
    go queue.StartPaymentConsumer(log)

    addr := ":" + cfg.Port
    log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
    if err := e.Start(addr); err != nil {
        log.WithError(err).Fatal("server stopped")
    }
}
