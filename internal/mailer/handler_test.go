package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagehub/internal/notify"
	"messagehub/internal/testutil"
)

type captureSender struct {
	emails []Email
	err    error
}

func (s *captureSender) Send(_ context.Context, email Email) error {
	s.emails = append(s.emails, email)
	return s.err
}

func newMessageTask(t *testing.T, intent notify.NewMessageIntent) *asynq.Task {
	payload, err := json.Marshal(intent)
	require.NoError(t, err)
	return asynq.NewTask(notify.TaskNewMessageEmail, payload)
}

func TestNewMessageHandler(t *testing.T) {
	sender := &captureSender{}
	handler := NewMessageHandler(sender, testutil.TestLogger(t))

	task := newMessageTask(t, notify.NewMessageIntent{
		Type:       notify.TypeNewMessage,
		Email:      "bob@example.com",
		Name:       "Bob",
		SenderName: "Alice",
	})

	err := handler.ProcessTask(context.Background(), task)
	require.NoError(t, err)

	require.Len(t, sender.emails, 1)
	email := sender.emails[0]
	assert.Equal(t, "bob@example.com", email.To)
	assert.Equal(t, "Bob", email.ToName)
	assert.Equal(t, "Alice sent you a message", email.Subject)
	assert.Contains(t, email.TextContent, "Hi Bob")
	assert.Contains(t, email.TextContent, "Alice sent you a new message")
	assert.Contains(t, email.HTMLContent, "<strong>Alice</strong>")
}

func TestNewMessageHandlerMalformedPayload(t *testing.T) {
	sender := &captureSender{}
	handler := NewMessageHandler(sender, testutil.TestLogger(t))

	task := asynq.NewTask(notify.TaskNewMessageEmail, []byte("not json"))

	err := handler.ProcessTask(context.Background(), task)
	assert.Error(t, err)
	assert.Empty(t, sender.emails)
}

func TestNewMessageHandlerSendFailure(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp relay down")}
	handler := NewMessageHandler(sender, testutil.TestLogger(t))

	task := newMessageTask(t, notify.NewMessageIntent{
		Email:      "bob@example.com",
		Name:       "Bob",
		SenderName: "Alice",
	})

	err := handler.ProcessTask(context.Background(), task)
	assert.Error(t, err)
}
