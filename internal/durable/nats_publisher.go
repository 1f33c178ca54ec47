// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

//go:build nats

package durable

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/goccy/go-json"

	"github.com/tagora/engine/internal/metrics"
	"github.com/tagora/engine/internal/models"
)

// EventSubject is the NATS/JetStream subject encoded events are
// published on.
const EventSubject = "tagora.events.encoded"

// wireEvent is the on-the-wire shape of one published encoded event.
type wireEvent struct {
	models.EncodedEvent
	Action models.Action `json:"action"`
}

// NATSPublisher publishes encoded events to the durable-tier bus over
// watermill-nats, guarded by a circuit breaker.
type NATSPublisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
}

// NewNATSPublisher connects to url (embedded or external per cfg) and
// returns a ready-to-use publisher.
func NewNATSPublisher(url string, cb *gobreaker.CircuitBreaker[interface{}]) (*NATSPublisher, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("durable: create nats publisher: %w", err)
	}

	return &NATSPublisher{publisher: pub, circuitBreaker: cb}, nil
}

// Publish sends one encoded event. The message UUID doubles as the
// Nats-Msg-Id header for JetStream deduplication.
func (p *NATSPublisher) Publish(ctx context.Context, event models.EncodedEvent, action models.Action) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return NewPermanentError("publisher is closed", nil)
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(wireEvent{EncodedEvent: event, Action: action})
	if err != nil {
		return NewPermanentError("marshal encoded event", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)

	start := time.Now()
	_, err = ExecuteWithBreaker(p.circuitBreaker, func() (interface{}, error) {
		return nil, p.publisher.Publish(EventSubject, msg)
	})
	metrics.RecordDurableWrite("nats", time.Since(start), err)
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return NewRetryableError("circuit breaker open", err)
		}
		return NewRetryableError("nats publish failed", err)
	}
	metrics.RecordNATSPublish()
	return nil
}

// Close shuts down the publisher.
func (p *NATSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
