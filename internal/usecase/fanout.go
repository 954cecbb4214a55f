package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"notification-service/internal/domain"
)

// RecipientLister loads the fan-out targets.
type RecipientLister interface {
	ListActive(ctx context.Context) ([]*domain.AdminRecipient, error)
}

// CreateStore persists the per-recipient records a broadcast produces.
type CreateStore interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
}

// BroadcastInput is one logical notification replicated to every active admin.
type BroadcastInput struct {
	Event     string
	Subject   string
	Title     string
	Message   string
	ActionURL string
	Priority  string
}

type BroadcastDetail struct {
	Email  string `json:"email"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type BroadcastResult struct {
	Attempted int               `json:"attempted"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Details   []BroadcastDetail `json:"details"`
}

// Broadcaster fans one notification out to every active admin recipient. Each
// leg creates its own record and dispatches independently: one recipient's
// failure never prevents, delays or rolls back another's send.
type Broadcaster struct {
	recipients  RecipientLister
	store       CreateStore
	dispatcher  *Dispatcher
	logger      *zap.Logger
	maxInFlight int
}

func NewBroadcaster(recipients RecipientLister, s CreateStore, d *Dispatcher, maxInFlight int, logger *zap.Logger) *Broadcaster {
	if maxInFlight <= 0 {
		maxInFlight = 10
	}
	return &Broadcaster{
		recipients:  recipients,
		store:       s,
		dispatcher:  d,
		logger:      logger,
		maxInFlight: maxInFlight,
	}
}

// BroadcastToAdmins runs the fan-out with a bounded number of legs in flight.
// Results flow through one channel into a single aggregating loop; the
// counters are never shared between tasks. Missing transport credentials
// surface here, before any record exists. A total absence of active
// recipients is a no-op with Attempted zero, not an error.
func (b *Broadcaster) BroadcastToAdmins(ctx context.Context, in BroadcastInput) (*BroadcastResult, error) {
	if err := b.dispatcher.Ready(); err != nil {
		return nil, err
	}

	admins, err := b.recipients.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	res := &BroadcastResult{Attempted: len(admins)}
	if len(admins) == 0 {
		b.logger.Info("broadcast skipped, no active admin recipients",
			zap.String("event", in.Event))
		return res, nil
	}

	sem := make(chan struct{}, b.maxInFlight)
	details := make(chan BroadcastDetail, len(admins))
	var wg sync.WaitGroup

	for _, admin := range admins {
		wg.Add(1)
		go func(admin *domain.AdminRecipient) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			details <- b.sendOne(ctx, in, admin)
		}(admin)
	}

	go func() {
		wg.Wait()
		close(details)
	}()

	for d := range details {
		if d.Status == domain.StatusSent {
			res.Succeeded++
		} else {
			res.Failed++
		}
		res.Details = append(res.Details, d)
	}

	b.logger.Info("admin broadcast completed",
		zap.String("event", in.Event),
		zap.Int("attempted", res.Attempted),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))
	return res, nil
}

// sendOne runs a single fan-out leg. Every failure path is folded into the
// returned detail so nothing escapes the broadcaster.
func (b *Broadcaster) sendOne(ctx context.Context, in BroadcastInput, admin *domain.AdminRecipient) BroadcastDetail {
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityHigh
	}

	record := &domain.Notification{
		EventType:      in.Event,
		RecipientEmail: admin.Email,
		RecipientName:  admin.Name,
		Subject:        in.Subject,
		Channels:       []string{domain.ChannelEmail},
		Status:         domain.StatusPending,
		Priority:       priority,
		Metadata: map[string]interface{}{
			"title":   in.Title,
			"message": in.Message,
		},
	}
	if in.ActionURL != "" {
		record.Metadata["action_url"] = in.ActionURL
	}

	created, err := b.store.Create(ctx, record)
	if err != nil {
		b.logger.Error("broadcast leg could not persist record",
			zap.String("recipient", admin.Email),
			zap.Error(err))
		return BroadcastDetail{Email: admin.Email, Status: domain.StatusFailed, Error: err.Error()}
	}

	out, err := b.dispatcher.Dispatch(ctx, created)
	if err != nil {
		// Status write failed; the leg outcome is still whatever the
		// transport reported.
		b.logger.Error("broadcast leg status write failed",
			zap.String("recipient", admin.Email),
			zap.Error(err))
	}

	detail := BroadcastDetail{Email: admin.Email, Status: out.Status, Error: out.ErrorMessage}
	if detail.Status == "" {
		detail.Status = domain.StatusFailed
		if err != nil {
			detail.Error = err.Error()
		}
	}
	return detail
}
