package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coursebase/apiserver/internal/mq"
)

// Mailer delivers a single message to its recipient.
type Mailer interface {
	Deliver(ctx context.Context, from string, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. It is the
// default mailer for environments without an outbound mail provider.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Deliver(ctx context.Context, from string, msg Message) error {
	m.logger.InfoContext(ctx, "mail delivered",
		"from", from,
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// Worker consumes the mail queue and hands messages to a Mailer.
type Worker struct {
	broker *mq.MQ
	mailer Mailer
	queue  string
	from   string
	logger *slog.Logger
}

func NewWorker(broker *mq.MQ, mailer Mailer, queue, from string, logger *slog.Logger) *Worker {
	return &Worker{
		broker: broker,
		mailer: mailer,
		queue:  queue,
		from:   from,
		logger: logger,
	}
}

// Run blocks consuming the mail queue until ctx is cancelled. A message that
// fails to decode is dropped rather than redelivered forever.
func (w *Worker) Run(ctx context.Context) error {
	return w.broker.Subscribe(ctx, w.queue, func(ctx context.Context, raw mq.Message) error {
		var msg Message
		if err := json.Unmarshal(raw.Data, &msg); err != nil {
			w.logger.ErrorContext(ctx, "dropping undecodable mail message",
				"message_id", raw.ID,
				"error", err,
			)
			return nil
		}
		if err := w.mailer.Deliver(ctx, w.from, msg); err != nil {
			w.logger.ErrorContext(ctx, "mail delivery failed",
				"to", msg.To,
				"subject", msg.Subject,
				"error", err,
			)
			return err
		}
		return nil
	})
}
