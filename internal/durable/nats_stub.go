// Tagora - In-Memory Ad Event Analytics Engine
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tagora/engine

//go:build !nats

package durable

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tagora/engine/internal/models"
)

// ErrNATSDisabled is returned by NewNATSPublisher, NewNATSSubscriber
// and NATSPublisher.Publish in builds without the "nats" tag.
var ErrNATSDisabled = errors.New("durable: built without nats tag")

// wireEvent mirrors the nats-tagged build's wire shape so sink.go
// compiles unchanged regardless of the "nats" build tag.
type wireEvent struct {
	models.EncodedEvent
	Action models.Action `json:"action"`
}

// MirrorFunc matches the nats-tagged build's signature.
type MirrorFunc func(ctx context.Context, event wireEvent) error

// NATSPublisher is a no-op stub: the durable-tier bus is entirely
// absent rather than merely disabled at runtime.
type NATSPublisher struct{}

// NewNATSPublisher always fails in stub builds.
func NewNATSPublisher(url string, cb *gobreaker.CircuitBreaker[interface{}]) (*NATSPublisher, error) {
	return nil, ErrNATSDisabled
}

// Publish is a no-op.
func (p *NATSPublisher) Publish(ctx context.Context, event models.EncodedEvent, action models.Action) error {
	return ErrNATSDisabled
}

// Close is a no-op.
func (p *NATSPublisher) Close() error { return nil }

// NATSSubscriber is a no-op stub.
type NATSSubscriber struct{}

// NewNATSSubscriber always fails in stub builds.
func NewNATSSubscriber(url, queueGroup string, mirror MirrorFunc) (*NATSSubscriber, error) {
	return nil, ErrNATSDisabled
}

// Serve blocks until ctx is done; there is nothing to consume.
func (s *NATSSubscriber) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// Close is a no-op.
func (s *NATSSubscriber) Close() error { return nil }

func (s *NATSSubscriber) String() string { return "nats-subscriber-disabled" }
