package domain

type NotificationKind string

const (
	NotifyQuote      NotificationKind = "quote"
	NotifyContact    NotificationKind = "contact"
	NotifyNewsletter NotificationKind = "newsletter"
	NotifyChatbot    NotificationKind = "chatbot"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbound email waiting in the outbox. Times are RFC 3339 UTC.
type Notification struct {
	ID            string             `json:"id" db:"id"`
	Kind          NotificationKind   `json:"kind" db:"kind"`
	To            string             `json:"to" db:"recipient"`
	ReplyTo       string             `json:"replyTo,omitempty" db:"reply_to"`
	Subject       string             `json:"subject" db:"subject"`
	Body          string             `json:"body" db:"body"`
	Status        NotificationStatus `json:"status" db:"status"`
	Attempts      int                `json:"attempts" db:"attempts"`
	LastError     string             `json:"lastError,omitempty" db:"last_error"`
	NextAttemptAt string             `json:"nextAttemptAt" db:"next_attempt_at"`
	CreatedAt     string             `json:"createdAt" db:"created_at"`
	SentAt        string             `json:"sentAt,omitempty" db:"sent_at"`
}
