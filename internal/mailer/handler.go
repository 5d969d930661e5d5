package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"messagehub/internal/notify"
)

// NewMessageHandler returns the asynq handler for queued new-message
// notifications. A send failure is returned so asynq retries per the task's
// policy.
func NewMessageHandler(sender Sender, logger *log.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var intent notify.NewMessageIntent
		if err := json.Unmarshal(task.Payload(), &intent); err != nil {
			return fmt.Errorf("decode %s payload: %w", task.Type(), err)
		}

		email := Email{
			To:          intent.Email,
			ToName:      intent.Name,
			Subject:     fmt.Sprintf("%s sent you a message", intent.SenderName),
			TextContent: renderNewMessageText(intent),
			HTMLContent: renderNewMessageHTML(intent),
		}

		if err := sender.Send(ctx, email); err != nil {
			return fmt.Errorf("send to %s: %w", intent.Email, err)
		}

		logger.Printf("sent new-message notification to %s", intent.Email)
		return nil
	}
}

func renderNewMessageText(intent notify.NewMessageIntent) string {
	return fmt.Sprintf("Hi %s,\n\n%s sent you a new message. Log in to read and reply.\n",
		intent.Name, intent.SenderName)
}

func renderNewMessageHTML(intent notify.NewMessageIntent) string {
	return fmt.Sprintf("<p>Hi %s,</p><p><strong>%s</strong> sent you a new message. Log in to read and reply.</p>",
		intent.Name, intent.SenderName)
}
