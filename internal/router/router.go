package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	httphandler "notification-service/internal/handler/http"
	"notification-service/internal/middleware"
)

// SetupRoutes configures the HTTP routes for the notification service.
func SetupRoutes(
	r chi.Router,
	h *httphandler.NotificationHandler,
	rh *httphandler.RecipientHandler,
	rdb *redis.Client,
) chi.Router {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if rdb != nil {
		r.Use(middleware.RateLimiter(rdb, 100, time.Minute, 10*time.Minute, "global"))
	}

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Post("/", h.CreateNotification)
		r.Get("/", h.ListNotifications)
		r.Delete("/", h.DeleteNotifications)
		r.Post("/broadcast", h.Broadcast)
		r.Get("/{id}", h.GetNotification)
	})

	r.Route("/api/v1/recipients", func(r chi.Router) {
		r.Get("/", rh.ListRecipients)
		r.Post("/", rh.UpsertRecipient)
		r.Delete("/", rh.DeleteRecipient)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"notification"}`))
	})

	return r
}
