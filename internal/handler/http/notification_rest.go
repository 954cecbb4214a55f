package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"notification-service/internal/domain"
	"notification-service/internal/store"
	"notification-service/internal/usecase"
	"notification-service/internal/xerrors"
)

type NotificationHandler struct {
	uc          *usecase.NotificationUsecase
	broadcaster *usecase.Broadcaster
}

func NewNotificationHandler(uc *usecase.NotificationUsecase, broadcaster *usecase.Broadcaster) *NotificationHandler {
	return &NotificationHandler{
		uc:          uc,
		broadcaster: broadcaster,
	}
}

// notificationResponse is the wire shape of a record, identical for rows from
// either physical schema.
type notificationResponse struct {
	ID             string                 `json:"id"`
	EventType      string                 `json:"event_type"`
	RecipientEmail string                 `json:"recipient_email"`
	RecipientName  string                 `json:"recipient_name,omitempty"`
	Subject        string                 `json:"subject"`
	Content        string                 `json:"content,omitempty"`
	Channels       []string               `json:"channels"`
	Status         string                 `json:"status"`
	Priority       string                 `json:"priority"`
	ErrorMessage   *string                `json:"error_message,omitempty"`
	SentAt         *time.Time             `json:"sent_at,omitempty"`
	FailedAt       *time.Time             `json:"failed_at,omitempty"`
	ScheduledFor   *time.Time             `json:"scheduled_for,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	return notificationResponse{
		ID:             n.ID,
		EventType:      n.EventType,
		RecipientEmail: n.RecipientEmail,
		RecipientName:  n.RecipientName,
		Subject:        n.Subject,
		Content:        n.Content,
		Channels:       n.Channels,
		Status:         n.Status,
		Priority:       n.Priority,
		ErrorMessage:   n.ErrorMessage,
		SentAt:         n.SentAt,
		FailedAt:       n.FailedAt,
		ScheduledFor:   n.ScheduledFor,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
		Metadata:       n.Metadata,
	}
}

// CreateNotification accepts a send request, gates it through the throttle
// policy and returns once the record is accepted for dispatch.
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req domain.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	_, err := h.uc.Send(r.Context(), req)
	if err != nil {
		var throttled *xerrors.ThrottleError
		if errors.As(err, &throttled) {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"error":      throttled.Error(),
				"canBypass":  throttled.CanBypass,
				"lastSentAt": throttled.LastSentAt.Format(time.RFC3339),
			})
			return
		}
		var validation *xerrors.ValidationError
		var config *xerrors.ConfigError
		if errors.As(err, &validation) || errors.As(err, &config) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetNotification reads one record by id, preferred schema first.
func (h *NotificationHandler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	n, err := h.uc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		if errors.Is(err, xerrors.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

// ListNotifications reads across both schemas, sorted createdAt descending.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	f := store.Filter{
		Status:         q.Get("status"),
		EventType:      q.Get("event"),
		Category:       q.Get("category"),
		PlatformModule: q.Get("platform_module"),
		Priority:       q.Get("priority"),
		Limit:          limit,
	}

	items, err := h.uc.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	responses := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		responses = append(responses, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": responses})
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteNotifications handles both single (?id=) and bulk (?bulk=true)
// deletion across the two physical stores.
func (h *NotificationHandler) DeleteNotifications(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("bulk") == "true" {
		var req bulkDeleteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := h.uc.BulkDelete(r.Context(), req.IDs)
		if err != nil {
			var validation *xerrors.ValidationError
			if errors.As(err, &validation) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":        true,
			"deletedCount":   res.DeletedCount,
			"totalRequested": res.TotalRequested,
			"errors":         res.Errors,
		})
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id or bulk=true required")
		return
	}

	deleted, err := h.uc.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	count := 0
	if deleted {
		count = 1
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"deletedCount":   count,
		"totalRequested": 1,
	})
}

type broadcastRequest struct {
	Event    string          `json:"event"`
	Data     domain.SendData `json:"data"`
	Priority string          `json:"priority,omitempty"`
}

// Broadcast fans one notification out to every active admin recipient.
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Data.Title == "" || req.Data.Message == "" {
		writeError(w, http.StatusBadRequest, "data.title and data.message are required")
		return
	}
	if req.Event == "" {
		req.Event = "admin_notification"
	}

	res, err := h.broadcaster.BroadcastToAdmins(r.Context(), usecase.BroadcastInput{
		Event:     req.Event,
		Subject:   req.Data.Title,
		Title:     req.Data.Title,
		Message:   req.Data.Message,
		ActionURL: req.Data.ActionURL,
		Priority:  req.Priority,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}
