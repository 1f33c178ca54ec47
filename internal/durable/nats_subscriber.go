// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

//go:build nats

package durable

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/goccy/go-json"

	"github.com/tagora/engine/internal/metrics"
)

// MirrorFunc mirrors one decoded event into a durable store. A nil
// return acks the originating message; a non-nil return nacks it so
// JetStream redelivers.
type MirrorFunc func(ctx context.Context, event wireEvent) error

// NATSSubscriber consumes encoded events off the durable-tier bus and
// mirrors them, e.g. into DuckDBMirror, so the in-memory core never
// has to wait on the write.
type NATSSubscriber struct {
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	mirror     MirrorFunc
}

// NewNATSSubscriber connects a durable consumer bound to EventSubject.
// queueGroup lets multiple engine replicas load-balance consumption.
func NewNATSSubscriber(url, queueGroup string, mirror MirrorFunc) (*NATSSubscriber, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(5),
		natsgo.MaxAckPending(1024),
		natsgo.AckWait(30 * time.Second),
		natsgo.DeliverNew(),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     5 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    true,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    "tagora-durable",
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("durable: create nats subscriber: %w", err)
	}

	return &NATSSubscriber{subscriber: sub, logger: logger, mirror: mirror}, nil
}

// Serve implements suture.Service: it subscribes to EventSubject and
// mirrors every event until ctx is canceled.
func (s *NATSSubscriber) Serve(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, EventSubject)
	if err != nil {
		return fmt.Errorf("durable: subscribe to %s: %w", EventSubject, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *NATSSubscriber) handle(ctx context.Context, msg *message.Message) {
	var event wireEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("discarding unreadable durable-tier message", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		msg.Ack() // malformed payload will never deserialize; don't redeliver
		return
	}

	if err := s.mirror(ctx, event); err != nil {
		s.logger.Error("mirror failed, nacking for redelivery", err, watermill.LogFields{
			"message_uuid": msg.UUID,
		})
		metrics.RecordNATSConsume()
		msg.Nack()
		return
	}

	metrics.RecordNATSConsume()
	msg.Ack()
}

// Close shuts down the subscriber.
func (s *NATSSubscriber) Close() error {
	return s.subscriber.Close()
}

func (s *NATSSubscriber) String() string { return "nats-subscriber" }
