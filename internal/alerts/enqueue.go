package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/coinvault/internal/logger"
	"github.com/sudo-init-do/coinvault/internal/wallet"
)

// enqueuer is the part of *asynq.Client the notifier uses.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier turns workflow events into email tasks. New requests go to the
// admin alert queue; outcomes go to the account holder.
type Notifier struct {
	client     enqueuer
	adminEmail string
	appURL     string
	now        func() time.Time
}

func NewNotifier(client *asynq.Client, adminEmail, appURL string) *Notifier {
	return &Notifier{
		client:     client,
		adminEmail: adminEmail,
		appURL:     strings.TrimRight(appURL, "/"),
		now:        time.Now,
	}
}

// Notify implements wallet.Notifier. Failures are logged; the workflow step
// has already been committed.
func (n *Notifier) Notify(ctx context.Context, evt wallet.Event) {
	task, queue, ok := n.buildTask(evt)
	if !ok {
		return
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(queue), asynq.MaxRetry(5)); err != nil {
		logger.Errorf("[notify][ERROR] enqueue %s for transaction %s: %v", task.Type(), evt.Transaction.ID, err)
	}
}

func (n *Notifier) buildTask(evt wallet.Event) (*asynq.Task, string, bool) {
	tx := evt.Transaction
	payload := TransactionPayload{
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		Amount:        tx.Amount.StringFixed(2),
		CryptoSymbol:  tx.CryptoSymbol,
		Reason:        tx.CancellationReason,
		SentAt:        n.now(),
	}
	if tx.CryptoAmount != nil {
		payload.CryptoAmount = tx.CryptoAmount.String()
	}

	var (
		taskType string
		queue    string
	)
	switch evt.Kind {
	case wallet.EventCreated:
		if n.adminEmail == "" {
			return nil, "", false
		}
		taskType, queue = TaskTransactionCreated, QueueAlerts
		payload.Envelope = EmailEnvelope{
			To:      n.adminEmail,
			Subject: fmt.Sprintf("New %s request awaiting review", tx.Type),
			Body: fmt.Sprintf("%s (%s) requested a %s of $%s%s.\n\nReview it: %s/admin/transactions/%s",
				displayName(evt.Account), tx.UserID, tx.Type, payload.Amount, cryptoSuffix(payload), n.appURL, tx.ID),
		}
	case wallet.EventCompleted:
		if evt.Account.Email == "" {
			return nil, "", false
		}
		taskType, queue = TaskTransactionCompleted, QueueEmails
		payload.Envelope = EmailEnvelope{
			To:      evt.Account.Email,
			Subject: fmt.Sprintf("Your %s has been approved", tx.Type),
			Body: fmt.Sprintf("Hi %s,\n\nYour %s of $%s%s has been approved. Your wallet balance is now $%s.\n\nOpen your wallet: %s",
				displayName(evt.Account), tx.Type, payload.Amount, cryptoSuffix(payload), evt.Account.WalletBalance.StringFixed(2), n.appURL),
		}
	case wallet.EventCancelled:
		if evt.Account.Email == "" {
			return nil, "", false
		}
		taskType, queue = TaskTransactionCancelled, QueueEmails
		payload.Envelope = EmailEnvelope{
			To:      evt.Account.Email,
			Subject: fmt.Sprintf("Your %s was cancelled", tx.Type),
			Body: fmt.Sprintf("Hi %s,\n\nYour %s of $%s%s was cancelled.\nReason: %s\n\nNo funds were moved.",
				displayName(evt.Account), tx.Type, payload.Amount, cryptoSuffix(payload), tx.CancellationReason),
		}
	default:
		return nil, "", false
	}

	b, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("[notify][ERROR] encode %s payload: %v", taskType, err)
		return nil, "", false
	}
	return asynq.NewTask(taskType, b), queue, true
}

func displayName(a wallet.Account) string {
	if a.Name != "" {
		return a.Name
	}
	if a.Email != "" {
		return a.Email
	}
	return "there"
}

func cryptoSuffix(p TransactionPayload) string {
	if p.CryptoAmount == "" {
		return ""
	}
	return fmt.Sprintf(" (%s %s)", p.CryptoAmount, p.CryptoSymbol)
}
