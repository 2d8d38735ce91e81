package graphom

import (
	"context"
	"fmt"

	"github.com/graphom/graphom/common"
	"github.com/graphom/graphom/config"
	"github.com/graphom/graphom/event"
	"github.com/graphom/graphom/store"
)

// Open bootstraps a session from configuration: it connects the store
// client, wires the configured event sinks and builds the logger. The
// returned session owns these resources; release them with Session.Close.
func Open(ctx context.Context, cfg *config.Config, opts ...SessionOption) (*Session, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := common.NewLogger(common.LoggerConfig{
		Level:      common.LogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		TimeFormat: common.DefaultLoggerConfig().TimeFormat,
	})

	client, err := store.NewNeo4jClient(ctx, store.Neo4jConfig{
		URI:      cfg.Store.URI,
		Username: cfg.Store.Username,
		Password: cfg.Store.Password,
		Database: cfg.Store.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	sessionOpts := []SessionOption{WithLogger(logger)}
	var closers []func(context.Context) error
	closers = append(closers, client.Close)

	cleanup := func() {
		for _, c := range closers {
			_ = c(ctx)
		}
	}

	if cfg.Events.RedisURL != "" {
		sink, err := event.NewRedisSink(cfg.Events.RedisURL, cfg.Events.RedisChannel)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to open Redis event sink: %w", err)
		}
		sessionOpts = append(sessionOpts, WithEventSink(sink))
		closers = append(closers, func(context.Context) error { return sink.Close() })
	}

	if cfg.Events.AMQPURL != "" {
		sink, err := event.NewAMQPSink(cfg.Events.AMQPURL, cfg.Events.AMQPQueue)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to open AMQP event sink: %w", err)
		}
		sessionOpts = append(sessionOpts, WithEventSink(sink))
		closers = append(closers, func(context.Context) error { return sink.Close() })
	}

	sessionOpts = append(sessionOpts, opts...)
	session, err := NewSession(client, sessionOpts...)
	if err != nil {
		cleanup()
		return nil, err
	}
	for _, c := range closers {
		session.addCloser(c)
	}

	logger.WithField("uri", cfg.Store.URI).Info("session opened")
	return session, nil
}
