// Package notify decides whether the recipient of a freshly stored message
// should get an email in addition to the live push, and hands the resulting
// intent to the mail queue. Everything here is best-effort: a failure is
// logged and absorbed, never surfaced to the send path.
package notify

import (
	"context"
	"log"

	"messagehub/internal/presence"
)

type Escalator interface {
	MessageSent(ctx context.Context, recipientId, senderName string)
}

type EmailEscalator struct {
	presence presence.Tracker
	profiles ProfileResolver
	queue    MailQueue
	log      *log.Logger
}

func NewEmailEscalator(tracker presence.Tracker, profiles ProfileResolver, queue MailQueue, logger *log.Logger) *EmailEscalator {
	return &EmailEscalator{
		presence: tracker,
		profiles: profiles,
		queue:    queue,
		log:      logger,
	}
}

// MessageSent runs the escalation policy for one stored message. Recipients
// with a live connection or recent activity are presumed to see the push and
// are skipped.
func (e *EmailEscalator) MessageSent(ctx context.Context, recipientId, senderName string) {
	if !e.presence.IsInactive(ctx, recipientId) {
		return
	}

	profile, err := e.profiles.Resolve(ctx, recipientId)
	if err != nil {
		e.log.Printf("resolve profile for %s: %v", recipientId, err)
		return
	}

	intent := NewMessageIntent{
		Type:       TypeNewMessage,
		Email:      profile.Email,
		Name:       profile.DisplayName,
		SenderName: senderName,
	}
	if err := e.queue.EnqueueNewMessage(ctx, intent); err != nil {
		e.log.Printf("enqueue notification for %s: %v", recipientId, err)
	}
}
