// Package graphom maps domain structs onto nodes of a graph store and gives
// each mapped class a typed repository with criteria search, raw-query
// search, persistence and lifecycle events.
//
// A Session owns the collaborators every repository shares: the store
// client, the statement builder, the hydration mapper, the class metadata
// registry, the identity map and the event dispatcher. Repositories are
// created per mapped class with NewRepository.
package graphom

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/graphom/graphom/common"
	"github.com/graphom/graphom/criteria"
	"github.com/graphom/graphom/cypher"
	"github.com/graphom/graphom/event"
	"github.com/graphom/graphom/hydrate"
	"github.com/graphom/graphom/identity"
	"github.com/graphom/graphom/metadata"
	"github.com/graphom/graphom/store"
)

// QueryBuilder renders store statements from class metadata. Satisfied by
// cypher.Builder.
type QueryBuilder interface {
	SearchQuery(md *metadata.Metadata, c *criteria.Criteria) (*store.Statement, error)
	CustomSearchQuery(md *metadata.Metadata, fragment string, params map[string]interface{}, orderBy []criteria.Order, limit, offset int) (*store.Statement, error)
	CreateQuery(md *metadata.Metadata, entity interface{}) (*store.Statement, error)
	UpdateQuery(md *metadata.Metadata, entity interface{}) (*store.Statement, error)
	DetachDeleteQuery(md *metadata.Metadata, id int64) (*store.Statement, error)
	CountQuery(md *metadata.Metadata, c *criteria.Criteria) (*store.Statement, error)
}

// Hydrator fills entities from raw value bags. Satisfied by hydrate.Mapper.
type Hydrator interface {
	Populate(md *metadata.Metadata, entity interface{}, bag map[string]interface{}) error
}

// IdentityCache keys managed instances by label and store identity.
// Satisfied by identity.Map.
type IdentityCache interface {
	Get(label string, id int64) (interface{}, bool)
	Put(label string, id int64, entity interface{})
	Remove(label string, id int64)
}

// Session holds the collaborators shared by every repository created from
// it. All repositories of one session share one identity map, so a node
// loaded twice materializes once.
type Session struct {
	client   store.Client
	builder  QueryBuilder
	hydrator Hydrator
	registry *metadata.Registry
	cache    IdentityCache
	events   *event.Dispatcher
	logger   *logrus.Logger

	pendingSinks []event.Sink
	closers      []func(context.Context) error
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithLogger replaces the session logger.
func WithLogger(logger *logrus.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithBuilder replaces the statement builder.
func WithBuilder(b QueryBuilder) SessionOption {
	return func(s *Session) { s.builder = b }
}

// WithHydrator replaces the hydration mapper.
func WithHydrator(h Hydrator) SessionOption {
	return func(s *Session) { s.hydrator = h }
}

// WithCache replaces the identity cache.
func WithCache(c IdentityCache) SessionOption {
	return func(s *Session) { s.cache = c }
}

// WithEventSink registers a sink on the session's event dispatcher.
func WithEventSink(sink event.Sink) SessionOption {
	return func(s *Session) { s.pendingSinks = append(s.pendingSinks, sink) }
}

// NewSession creates a session around the given store client. Collaborators
// not overridden by options get the library defaults.
func NewSession(client store.Client, opts ...SessionOption) (*Session, error) {
	if client == nil {
		return nil, fmt.Errorf("store client is required")
	}

	s := &Session{
		client:   client,
		registry: metadata.NewRegistry(),
		cache:    identity.NewMap(),
		logger:   common.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.hydrator == nil {
		s.hydrator = hydrate.NewMapper()
	}
	if s.builder == nil {
		s.builder = cypher.NewBuilder(hydrate.NewMapper())
	}
	s.events = event.NewDispatcher(s.logger)
	for _, sink := range s.pendingSinks {
		s.events.Register(sink)
	}
	s.pendingSinks = nil

	return s, nil
}

// Registry returns the session's metadata registry.
func (s *Session) Registry() *metadata.Registry { return s.registry }

// Events returns the session's event dispatcher.
func (s *Session) Events() *event.Dispatcher { return s.events }

// Logger returns the session logger.
func (s *Session) Logger() *logrus.Logger { return s.logger }

// Close releases the session's store connection and event sinks.
func (s *Session) Close(ctx context.Context) error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Session) addCloser(c func(context.Context) error) {
	s.closers = append(s.closers, c)
}
