package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"notification-service/internal/config"
	httphandler "notification-service/internal/handler/http"
	"notification-service/internal/mailer"
	"notification-service/internal/repository"
	"notification-service/internal/router"
	"notification-service/internal/store"
	"notification-service/internal/usecase"
	"notification-service/pkg/template"
)

func NewServer(cfg config.AppConfig, logger *zap.Logger) *http.Server {
	dbpool, err := config.ConnectDB()
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	preferredRepo := repository.NewPreferredRepo(dbpool)
	legacyRepo := repository.NewLegacyRepo(dbpool)
	recipientRepo := repository.NewRecipientRepo(dbpool)

	notifStore := store.New(preferredRepo, legacyRepo, logger)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	mailClient := mailer.NewClient(cfg.Mail, logger)
	templates := template.NewService(cfg.TemplateDir)

	dispatcher := usecase.NewDispatcher(notifStore, mailClient, templates, cfg.SendTimeout, logger)
	throttle := usecase.NewThrottlePolicy(notifStore, cfg.ThrottleWindow)
	broadcaster := usecase.NewBroadcaster(recipientRepo, notifStore, dispatcher, cfg.FanoutConcurrency, logger)
	uc := usecase.NewNotificationUsecase(notifStore, throttle, dispatcher, logger)

	notifHandler := httphandler.NewNotificationHandler(uc, broadcaster)
	recipientHandler := httphandler.NewRecipientHandler(recipientRepo)

	r := chi.NewRouter()
	router.SetupRoutes(r, notifHandler, recipientHandler, rdb)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
}
