package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pradeep-opticals/opticals-api/internal/app"
	"github.com/pradeep-opticals/opticals-api/internal/appointments"
	"github.com/pradeep-opticals/opticals-api/internal/auth"
	"github.com/pradeep-opticals/opticals-api/internal/observability"
	"github.com/pradeep-opticals/opticals-api/internal/orders"
	"github.com/pradeep-opticals/opticals-api/internal/products"
	"github.com/pradeep-opticals/opticals-api/internal/quotations"
	"github.com/pradeep-opticals/opticals-api/internal/shared"
	"github.com/pradeep-opticals/opticals-api/internal/uploads"
	"github.com/pradeep-opticals/opticals-api/internal/users"
	"github.com/pradeep-opticals/opticals-api/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	authMiddleware := auth.NewMiddleware(tokens)
	authHandler := auth.NewHandler(logger, usersService, tokens)

	productsRepo := products.NewRepository(dbpool)
	productsService := products.NewService(productsRepo, redisClient, logger)
	productsHandler := products.NewHandler(logger, productsService)

	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, productsService, logger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, cfg.StaffInbox)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	eventRecorder := shared.NewEventRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	quotationsRepo := quotations.NewRepository(dbpool)
	quotationsService := quotations.NewService(quotations.ServiceConfig{
		Repo:       quotationsRepo,
		Catalog:    productsService,
		Orders:     ordersService,
		Dispatcher: jobClient,
		Audit:      eventRecorder,
		Metrics:    metrics,
		Policy: &quotations.Policy{
			Pricing:      quotations.Pricing{TaxRate: cfg.TaxRate},
			ValidityDays: cfg.QuotationValidityDays,
		},
		Logger: logger,
	})
	quotationsHandler := quotations.NewHandler(logger, quotationsService, eventRecorder, idempotencyStore)

	appointmentsRepo := appointments.NewRepository(dbpool)
	appointmentsService := appointments.NewService(appointmentsRepo, jobClient, logger)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService)

	storage, err := uploads.NewStorage(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		logger.Error("init upload storage", slog.Any("error", err))
		os.Exit(1)
	}
	uploadsHandler := uploads.NewHandler(logger, storage)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		AuthHandler:         authHandler,
		AuthMiddleware:      authMiddleware,
		QuotationsHandler:   quotationsHandler,
		ProductsHandler:     productsHandler,
		OrdersHandler:       ordersHandler,
		AppointmentsHandler: appointmentsHandler,
		UploadsHandler:      uploadsHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
