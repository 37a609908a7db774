package alerts

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/coinvault/internal/config"
	"github.com/sudo-init-do/coinvault/internal/logger"
)

// RedisOpt builds the asynq connection options shared by client and worker.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewServer configures the worker with the email and admin alert queues.
func NewServer(opt asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
			QueueAlerts: 5,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			logger.Errorf("[notify][ERROR] task %s failed: %v", t.Type(), err)
		}),
	})
}

// NewMux routes every transaction task to the mailer.
func NewMux(m Mailer) *asynq.ServeMux {
	h := &taskHandler{mailer: m}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTransactionCreated, h.handle)
	mux.HandleFunc(TaskTransactionCompleted, h.handle)
	mux.HandleFunc(TaskTransactionCancelled, h.handle)
	return mux
}

type taskHandler struct {
	mailer Mailer
}

func (h *taskHandler) handle(ctx context.Context, t *asynq.Task) error {
	var p TransactionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.Envelope.To == "" {
		logger.Warnf("[notify] %s for transaction %s has no recipient, skipping", t.Type(), p.TransactionID)
		return nil
	}
	if err := h.mailer.Send(ctx, p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		logger.Errorf("[notify][ERROR] %s send failed: %v", t.Type(), err)
		return err
	}
	logger.Infof("[notify] %s sent -> to=%s transaction=%s", t.Type(), p.Envelope.To, p.TransactionID)
	return nil
}
