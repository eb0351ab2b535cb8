package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coursebase/apiserver/internal/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channelBackend is an in-process mq.Backend for tests.
type channelBackend struct {
	mu       sync.Mutex
	channels map[string]chan mq.Message
}

func newChannelBackend() *channelBackend {
	return &channelBackend{channels: make(map[string]chan mq.Message)}
}

func (b *channelBackend) channel(name string) chan mq.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channels[name] == nil {
		b.channels[name] = make(chan mq.Message, 16)
	}
	return b.channels[name]
}

func (b *channelBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.channel(channel) <- mq.Message{ID: "test-id", Data: data, Attributes: attrs}
	return "test-id", nil
}

func (b *channelBackend) Subscribe(ctx context.Context, channel string, handler mq.Handler) error {
	deliveries := b.channel(channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-deliveries:
			_ = handler(ctx, msg)
		}
	}
}

func (b *channelBackend) Close() error { return nil }

type recordingMailer struct {
	delivered chan Message
}

func (m *recordingMailer) Deliver(ctx context.Context, from string, msg Message) error {
	m.delivered <- msg
	return nil
}

func TestBrokerNotifierPublishesJSON(t *testing.T) {
	backend := newChannelBackend()
	notifier := NewBrokerNotifier(mq.New(backend), "mail")

	err := notifier.Send(context.Background(), Message{
		To:      "ann@x.com",
		Subject: "Welcome Instructor",
		Body:    "Your instructor account has been created successfully.",
	})
	require.NoError(t, err)

	raw := <-backend.channel("mail")
	var msg Message
	require.NoError(t, json.Unmarshal(raw.Data, &msg))
	assert.Equal(t, "ann@x.com", msg.To)
	assert.Equal(t, "Welcome Instructor", msg.Subject)
}

func TestWorkerDeliversQueuedMail(t *testing.T) {
	backend := newChannelBackend()
	broker := mq.New(backend)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := &recordingMailer{delivered: make(chan Message, 1)}
	worker := NewWorker(broker, mailer, "mail", "no-reply@coursebase.local", logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- worker.Run(ctx)
	}()

	notifier := NewBrokerNotifier(broker, "mail")
	require.NoError(t, notifier.Send(ctx, Message{To: "bob@x.com", Subject: "Password Reset Request", Body: "token"}))

	select {
	case msg := <-mailer.delivered:
		assert.Equal(t, "bob@x.com", msg.To)
		assert.Equal(t, "Password Reset Request", msg.Subject)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

func TestWorkerDropsUndecodableMessage(t *testing.T) {
	backend := newChannelBackend()
	broker := mq.New(backend)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := &recordingMailer{delivered: make(chan Message, 1)}
	worker := NewWorker(broker, mailer, "mail", "no-reply@coursebase.local", logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = worker.Run(ctx)
	}()

	_, err := broker.Publish(ctx, "mail", []byte("not json"), nil)
	require.NoError(t, err)

	select {
	case <-mailer.delivered:
		t.Fatal("undecodable message should not reach the mailer")
	case <-time.After(200 * time.Millisecond):
	}
}
