package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskNewMessageEmail is the task type consumed by cmd/mailer.
	TaskNewMessageEmail = "email:new_message"

	// MailQueueName is the asynq queue notification tasks land on.
	MailQueueName = "emails"

	TypeNewMessage = "new_message"
)

// NewMessageIntent is the queued notification payload. The mailer owns
// rendering and retries; the gateway only records the intent.
type NewMessageIntent struct {
	Type       string `json:"type"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	SenderName string `json:"senderName"`
}

type MailQueue interface {
	EnqueueNewMessage(ctx context.Context, intent NewMessageIntent) error
	Close() error
}

// AsynqMailQueue enqueues notification tasks on the Redis-backed asynq queue.
type AsynqMailQueue struct {
	client *asynq.Client
}

func NewAsynqMailQueue(redisURL string) (*AsynqMailQueue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}

	return &AsynqMailQueue{client: asynq.NewClient(opt)}, nil
}

func (q *AsynqMailQueue) EnqueueNewMessage(ctx context.Context, intent NewMessageIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskNewMessageEmail, payload)
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(MailQueueName),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)

	return err
}

func (q *AsynqMailQueue) Close() error {
	return q.client.Close()
}
