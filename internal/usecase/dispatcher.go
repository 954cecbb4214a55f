package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notification-service/internal/domain"
	"notification-service/internal/mailer"
	"notification-service/internal/store"
	"notification-service/internal/xerrors"
)

// DispatchStore is the slice of the notification store the dispatcher writes
// terminal statuses through.
type DispatchStore interface {
	UpdateStatus(ctx context.Context, id, status string, fields store.StatusFields) error
}

// MailSender is the transport consumed by the dispatcher.
type MailSender interface {
	Configured() error
	Send(ctx context.Context, msg mailer.Message) error
}

// TemplateRenderer renders an email body for an event. Rendering itself is an
// external collaborator; the dispatcher only calls it when a record carries no
// pre-rendered content.
type TemplateRenderer interface {
	Render(event string, data map[string]interface{}) (string, error)
}

// DispatchResult is the terminal outcome written back onto the record.
type DispatchResult struct {
	Status       string
	ErrorMessage string
}

// Dispatcher sends one notification and moves its record into a terminal
// state exactly once. Transport failures land on the record; they are never
// thrown past the dispatcher.
type Dispatcher struct {
	store       DispatchStore
	mail        MailSender
	templates   TemplateRenderer
	logger      *zap.Logger
	sendTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(s DispatchStore, mail MailSender, templates TemplateRenderer, sendTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:       s,
		mail:        mail,
		templates:   templates,
		logger:      logger,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// Ready reports whether the transport is usable. Callers check this before
// creating any record so a configuration error never strands a pending row.
func (d *Dispatcher) Ready() error {
	return d.mail.Configured()
}

// Dispatch renders, sends and writes the terminal status. A record already in
// a terminal state is returned as-is without another send; re-dispatching is
// therefore safe. The returned error reports status-write failures only — the
// email may already be out by then, which is logged rather than hidden.
func (d *Dispatcher) Dispatch(ctx context.Context, n *domain.Notification) (DispatchResult, error) {
	if n.IsTerminal() {
		return DispatchResult{Status: n.Status, ErrorMessage: deref(n.ErrorMessage)}, nil
	}
	if n.RecipientEmail == "" {
		return DispatchResult{}, &xerrors.ValidationError{Field: "recipient_email"}
	}

	content := n.Content
	if content == "" {
		rendered, err := d.templates.Render(n.EventType, n.Metadata)
		if err != nil {
			d.logger.Warn("template render failed, sending plain body",
				zap.String("notification_id", n.ID),
				zap.String("event", n.EventType),
				zap.Error(err))
			content = fallbackBody(n)
		} else {
			content = rendered
		}
	}

	start := d.now()
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	sendErr := d.mail.Send(sendCtx, mailer.Message{
		To:      n.RecipientEmail,
		Subject: n.Subject,
		HTML:    content,
	})
	duration := time.Since(start)

	if sendErr != nil {
		errMsg := sendErr.Error()
		failedAt := d.now()

		d.logger.Error("email send failed",
			zap.String("notification_id", n.ID),
			zap.String("recipient", n.RecipientEmail),
			zap.String("subject", n.Subject),
			zap.String("event", n.EventType),
			zap.Duration("duration", duration),
			zap.Error(sendErr))

		if err := d.store.UpdateStatus(ctx, n.ID, domain.StatusFailed, store.StatusFields{
			ErrorMessage: &errMsg,
			FailedAt:     &failedAt,
		}); err != nil {
			return DispatchResult{Status: domain.StatusFailed, ErrorMessage: errMsg},
				fmt.Errorf("record failure status: %w", err)
		}
		return DispatchResult{Status: domain.StatusFailed, ErrorMessage: errMsg}, nil
	}

	sentAt := d.now()
	d.logger.Info("email sent",
		zap.String("notification_id", n.ID),
		zap.String("recipient", n.RecipientEmail),
		zap.String("subject", n.Subject),
		zap.String("event", n.EventType),
		zap.Duration("duration", duration))

	if err := d.store.UpdateStatus(ctx, n.ID, domain.StatusSent, store.StatusFields{
		SentAt: &sentAt,
	}); err != nil {
		// The email is already out; losing the status write means the record
		// may be re-dispatched later. At-least-once delivery, by contract.
		d.logger.Error("sent status write failed after successful send",
			zap.String("notification_id", n.ID),
			zap.String("recipient", n.RecipientEmail),
			zap.Error(err))
		return DispatchResult{Status: domain.StatusSent}, fmt.Errorf("record sent status: %w", err)
	}
	return DispatchResult{Status: domain.StatusSent}, nil
}

func fallbackBody(n *domain.Notification) string {
	title, _ := n.Metadata["title"].(string)
	message, _ := n.Metadata["message"].(string)
	if title == "" {
		title = n.Subject
	}
	return fmt.Sprintf("<h2>%s</h2><p>%s</p>", title, message)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
