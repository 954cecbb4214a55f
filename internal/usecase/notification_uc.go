package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"notification-service/internal/domain"
	"notification-service/internal/store"
	"notification-service/internal/xerrors"
)

// NotificationStore is the store surface the usecase consumes.
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	Get(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, f store.Filter) ([]*domain.Notification, error)
	Delete(ctx context.Context, id string) (bool, error)
	BulkDelete(ctx context.Context, ids []string) (*store.BulkResult, error)
}

// NotificationUsecase drives the record lifecycle: validate, throttle-gate,
// persist pending, hand off to the dispatcher.
type NotificationUsecase struct {
	store      NotificationStore
	throttle   *ThrottlePolicy
	dispatcher *Dispatcher
	logger     *zap.Logger

	// dispatch hands a freshly created record to the dispatcher. The default
	// runs asynchronously; tests swap in a synchronous hook.
	dispatch func(n *domain.Notification)
}

func NewNotificationUsecase(s NotificationStore, t *ThrottlePolicy, d *Dispatcher, logger *zap.Logger) *NotificationUsecase {
	uc := &NotificationUsecase{
		store:      s,
		throttle:   t,
		dispatcher: d,
		logger:     logger,
	}
	uc.dispatch = uc.dispatchAsync
	return uc
}

func (uc *NotificationUsecase) dispatchAsync(n *domain.Notification) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				uc.logger.Error("panic recovered in dispatch",
					zap.String("notification_id", n.ID),
					zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := uc.dispatcher.Dispatch(ctx, n); err != nil {
			uc.logger.Error("dispatch finished with status-write error",
				zap.String("notification_id", n.ID),
				zap.Error(err))
		}
	}()
}

// Send validates the request, applies the throttle policy unless explicitly
// bypassed, persists a pending record and dispatches it. A configuration or
// validation failure happens before any record exists.
func (uc *NotificationUsecase) Send(ctx context.Context, req domain.SendRequest) (*domain.Notification, error) {
	if req.RecipientEmail == "" {
		return nil, &xerrors.ValidationError{Field: "recipient_email"}
	}
	if req.Data.Title == "" {
		return nil, &xerrors.ValidationError{Field: "data.title"}
	}
	if req.Data.Message == "" {
		return nil, &xerrors.ValidationError{Field: "data.message"}
	}
	if req.Priority != "" && !domain.ValidPriority(req.Priority) {
		return nil, &xerrors.ValidationError{Field: "priority", Msg: "unknown priority " + req.Priority}
	}
	if err := uc.dispatcher.Ready(); err != nil {
		return nil, err
	}

	if !req.BypassTimeframe {
		res, err := uc.throttle.Check(ctx, req.RecipientEmail)
		if err != nil {
			return nil, err
		}
		if !res.Allowed {
			throttled := &xerrors.ThrottleError{
				RecipientEmail: req.RecipientEmail,
				CanBypass:      res.CanBypass,
			}
			if res.LastSentAt != nil {
				throttled.LastSentAt = *res.LastSentAt
			}
			return nil, throttled
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	metadata := map[string]interface{}{
		"title":   req.Data.Title,
		"message": req.Data.Message,
	}
	if req.Data.ActionURL != "" {
		metadata["action_url"] = req.Data.ActionURL
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	record := &domain.Notification{
		EventType:      req.Event,
		RecipientEmail: req.RecipientEmail,
		RecipientName:  req.RecipientName,
		Subject:        req.Data.Title,
		Channels:       []string{domain.ChannelEmail},
		Status:         domain.StatusPending,
		Priority:       priority,
		Metadata:       metadata,
	}

	created, err := uc.store.Create(ctx, record)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("notification accepted",
		zap.String("notification_id", created.ID),
		zap.String("event", created.EventType),
		zap.String("recipient", created.RecipientEmail),
		zap.Bool("bypass", req.BypassTimeframe))

	uc.dispatch(created)
	return created, nil
}

func (uc *NotificationUsecase) Get(ctx context.Context, id string) (*domain.Notification, error) {
	if id == "" {
		return nil, xerrors.ErrInvalidInput
	}
	return uc.store.Get(ctx, id)
}

func (uc *NotificationUsecase) List(ctx context.Context, f store.Filter) ([]*domain.Notification, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return uc.store.List(ctx, f)
}

func (uc *NotificationUsecase) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, xerrors.ErrInvalidInput
	}
	return uc.store.Delete(ctx, id)
}

// BulkDelete validates the batch bound before any deletion is attempted, then
// delegates to the store's partial-failure-tolerant loop.
func (uc *NotificationUsecase) BulkDelete(ctx context.Context, ids []string) (*store.BulkResult, error) {
	return uc.store.BulkDelete(ctx, ids)
}
