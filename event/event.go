// Package event carries lifecycle notifications out of the repository:
// every successful insert, update and delete raises an event that session
// listeners and external sinks can consume.
//
// Dispatch failures are logged and never propagate into the repository
// operation that raised the event; a flaky broker must not fail a write
// that the store already committed.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Kind identifies the lifecycle transition an event describes.
type Kind string

const (
	NodeCreated Kind = "node-created"
	NodeUpdated Kind = "node-updated"
	NodeDeleted Kind = "node-deleted"
)

// Event is one lifecycle notification.
type Event struct {
	// ID uniquely identifies the event across sinks.
	ID string `json:"id"`

	// Kind is the lifecycle transition.
	Kind Kind `json:"kind"`

	// Label is the node label of the affected class.
	Label string `json:"label"`

	// NodeID is the store identity of the affected node.
	NodeID int64 `json:"node_id"`

	// Entity is the affected instance. Nil for deletes, where the node no
	// longer exists.
	Entity interface{} `json:"entity,omitempty"`

	// At is the time the repository raised the event.
	At time.Time `json:"at"`
}

// New creates an event stamped with a fresh ID and the current time.
func New(kind Kind, label string, nodeID int64, entity interface{}) Event {
	return Event{
		ID:     uuid.New().String(),
		Kind:   kind,
		Label:  label,
		NodeID: nodeID,
		Entity: entity,
		At:     time.Now().UTC(),
	}
}

// Sink consumes dispatched events.
type Sink interface {
	Dispatch(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Dispatch(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Dispatcher fans events out to registered sinks. A sink that fails is
// logged and skipped; the remaining sinks still receive the event.
type Dispatcher struct {
	sinks  []Sink
	logger *logrus.Logger
}

// NewDispatcher creates a dispatcher logging sink failures to logger.
func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Register adds a sink. Not safe to call concurrently with Dispatch.
func (d *Dispatcher) Register(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Dispatch delivers the event to every registered sink.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		if err := s.Dispatch(ctx, e); err != nil {
			d.logger.WithFields(logrus.Fields{
				"event": e.ID,
				"kind":  e.Kind,
				"label": e.Label,
				"node":  e.NodeID,
			}).WithError(err).Warn("event sink dispatch failed")
		}
	}
}
