package notify

import (
	"context"
	"encoding/json"

	"github.com/coursebase/apiserver/internal/mq"
)

// BrokerNotifier publishes notifications to the mail queue. The publish is
// the only work done on the request path; delivery is the mail worker's job.
type BrokerNotifier struct {
	broker *mq.MQ
	queue  string
}

func NewBrokerNotifier(broker *mq.MQ, queue string) *BrokerNotifier {
	return &BrokerNotifier{broker: broker, queue: queue}
}

func (n *BrokerNotifier) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = n.broker.Publish(ctx, n.queue, data, map[string]string{
		"content-type": "application/json",
	})
	return err
}
