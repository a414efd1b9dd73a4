package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"frs/internal/mail"
)

// Enqueuer is the part of *asynq.Client used to schedule tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueSender implements mail.EmailSender by enqueueing a task for the worker.
// SendMail succeeds once the task is stored in Redis.
type QueueSender struct {
	client Enqueuer
	queue  string
}

var _ mail.EmailSender = (*QueueSender)(nil)

// NewQueueSender creates a QueueSender. An empty queue name selects QueueDefault.
func NewQueueSender(client Enqueuer, queue string) *QueueSender {
	if queue == "" {
		queue = QueueDefault
	}
	return &QueueSender{client: client, queue: queue}
}

// SendMail enqueues the email.
func (s *QueueSender) SendMail(ctx context.Context, to, subject, body string) error {
	task, err := NewSendEmailTask(SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("build mail task: %w", err)
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.Queue(s.queue)); err != nil {
		return fmt.Errorf("enqueue mail task: %w", err)
	}
	return nil
}
