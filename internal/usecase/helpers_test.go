package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notification-service/internal/domain"
	"notification-service/internal/mailer"
	"notification-service/internal/store"
	"notification-service/internal/xerrors"
)

// memStore is an in-memory stand-in for the dual-schema store, shared by the
// usecase tests. It mirrors the preferred adapter's terminal-status handling.
type memStore struct {
	mu        sync.Mutex
	records   map[string]*domain.Notification
	seq       int
	createErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*domain.Notification{}}
}

func (m *memStore) Create(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.seq++
	cp := *n
	cp.ID = fmt.Sprintf("n-%d", m.seq)
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.records[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.records[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, xerrors.ErrNotFound
}

func (m *memStore) List(_ context.Context, _ store.Filter) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Notification
	for _, n := range m.records {
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return false, nil
	}
	delete(m.records, id)
	return true, nil
}

func (m *memStore) BulkDelete(_ context.Context, ids []string) (*store.BulkResult, error) {
	if len(ids) == 0 {
		return nil, &xerrors.ValidationError{Field: "ids", Msg: "empty id list"}
	}
	if len(ids) > store.MaxBulkDelete {
		return nil, &xerrors.ValidationError{Field: "ids", Msg: "batch too large"}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res := &store.BulkResult{TotalRequested: len(ids)}
	for _, id := range ids {
		if _, ok := m.records[id]; ok {
			delete(m.records, id)
			res.DeletedCount++
		}
	}
	return res, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id, status string, fields store.StatusFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	n, ok := m.records[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	if n.IsTerminal() {
		if n.Status == status {
			return nil
		}
		return xerrors.ErrTerminalStatus
	}
	n.Status = status
	if fields.SentAt != nil {
		n.SentAt = fields.SentAt
	}
	if fields.FailedAt != nil {
		n.FailedAt = fields.FailedAt
	}
	if fields.ErrorMessage != nil {
		n.ErrorMessage = fields.ErrorMessage
	}
	n.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) LatestForRecipient(_ context.Context, email string, since time.Time) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Notification
	for _, n := range m.records {
		if n.RecipientEmail != email || n.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || n.CreatedAt.After(latest.CreatedAt) {
			latest = n
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) get(id string) *domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.records[id]; ok {
		cp := *n
		return &cp
	}
	return nil
}

// fakeMailer records sends and fails selected recipients. It also tracks the
// maximum number of concurrent sends it observed.
type fakeMailer struct {
	mu            sync.Mutex
	configuredErr error
	failFor       map[string]error
	delay         time.Duration
	sends         []mailer.Message
	inFlight      int
	maxInFlight   int
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: map[string]error{}}
}

func (f *fakeMailer) Configured() error {
	return f.configuredErr
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.inFlight--
	f.sends = append(f.sends, msg)
	err := f.failFor[msg.To]
	f.mu.Unlock()
	return err
}

func (f *fakeMailer) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

// fakeRenderer returns a canned body, or an error when broken.
type fakeRenderer struct {
	body string
	err  error
}

func (f *fakeRenderer) Render(_ string, _ map[string]interface{}) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.body == "" {
		return "<p>rendered</p>", nil
	}
	return f.body, nil
}

// fakeRegistry serves a fixed recipient list.
type fakeRegistry struct {
	admins  []*domain.AdminRecipient
	listErr error
}

func (f *fakeRegistry) ListActive(_ context.Context) ([]*domain.AdminRecipient, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.admins, nil
}

func admin(email string) *domain.AdminRecipient {
	return &domain.AdminRecipient{
		ID:       "id-" + email,
		Email:    email,
		Name:     "Admin",
		IsActive: true,
	}
}
