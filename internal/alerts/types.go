package alerts

import "time"

// Task type constants
const (
	TaskTransactionCreated   = "email:transaction_created"
	TaskTransactionCompleted = "email:transaction_completed"
	TaskTransactionCancelled = "email:transaction_cancelled"
)

// Queue names
const (
	QueueEmails = "emails"
	QueueAlerts = "alerts"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// TransactionPayload is shared by every transaction task. Amounts are
// decimal strings so the worker never re-rounds them.
type TransactionPayload struct {
	TransactionID string        `json:"transaction_id"`
	UserID        string        `json:"user_id"`
	Type          string        `json:"type"`
	Status        string        `json:"status"`
	Amount        string        `json:"amount"`
	CryptoAmount  string        `json:"crypto_amount,omitempty"`
	CryptoSymbol  string        `json:"crypto_symbol,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Envelope      EmailEnvelope `json:"envelope"`
	SentAt        time.Time     `json:"sent_at"`
}
