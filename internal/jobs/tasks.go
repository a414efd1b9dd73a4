package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"frs/internal/mail"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"

	sendEmailMaxRetry = 5
	sendEmailTimeout  = 30 * time.Second
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data,
		asynq.MaxRetry(sendEmailMaxRetry),
		asynq.Timeout(sendEmailTimeout),
	), nil
}

// NewSendEmailHandler returns the handler for TaskTypeSendEmail tasks. A
// payload that cannot be decoded is dropped; transport errors are retried.
func NewSendEmailHandler(sender mail.EmailSender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", TaskTypeSendEmail, err, asynq.SkipRetry)
		}
		if payload.To == "" {
			return fmt.Errorf("%s: empty recipient: %w", TaskTypeSendEmail, asynq.SkipRetry)
		}
		return sender.SendMail(ctx, payload.To, payload.Subject, payload.Body)
	}
}
