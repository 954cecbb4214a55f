package domain

import "time"

// Notification statuses. Once a record reaches StatusSent or StatusFailed it is
// terminal and must not transition again.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
	StatusFailed    = "failed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ChannelEmail is the only delivery channel currently exercised. The channel
// set on a record stays open for future transports.
const ChannelEmail = "email"

type Notification struct {
	ID             string
	EventType      string
	RecipientEmail string
	RecipientName  string
	Subject        string
	Content        string
	Channels       []string
	Status         string
	Priority       string
	ErrorMessage   *string
	SentAt         *time.Time
	FailedAt       *time.Time
	ScheduledFor   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Metadata       map[string]interface{}
}

// IsTerminal reports whether the record has reached a final delivery state.
func (n *Notification) IsTerminal() bool {
	return n.Status == StatusSent || n.Status == StatusFailed
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusScheduled, StatusSent, StatusFailed:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AdminRecipient is an admin fan-out target. Email is the upsert key.
type AdminRecipient struct {
	ID        string
	Email     string
	Name      string
	IsActive  bool
	CreatedAt time.Time
}

// SendRequest is the caller-facing notification creation payload.
type SendRequest struct {
	Event           string            `json:"event"`
	RecipientEmail  string            `json:"recipient_email"`
	RecipientName   string            `json:"recipient_name,omitempty"`
	Data            SendData          `json:"data"`
	Priority        string            `json:"priority,omitempty"`
	BypassTimeframe bool              `json:"bypass_timeframe,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type SendData struct {
	Title     string `json:"title"`
	Message   string `json:"message"`
	ActionURL string `json:"action_url,omitempty"`
}
