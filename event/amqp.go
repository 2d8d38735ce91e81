package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// AMQPSink publishes events as JSON onto a durable AMQP queue.
type AMQPSink struct {
	connection AMQPConnection
	channel    AMQPChannel
	queue      string
}

// NewAMQPSink connects to the broker at url and declares a durable queue.
func NewAMQPSink(url, queue string) (*AMQPSink, error) {
	return NewAMQPSinkWithDialer(url, queue, &RealAMQPDialer{})
}

// NewAMQPSinkWithDialer creates a sink with an injected dialer, so tests
// can run against a mock broker.
func NewAMQPSinkWithDialer(url, queue string, dialer AMQPDialer) (*AMQPSink, error) {
	conn, err := dialer.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Durable so queued events survive broker restarts.
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &AMQPSink{
		connection: conn,
		channel:    ch,
		queue:      queue,
	}, nil
}

// Dispatch publishes the event to the default exchange with the queue name
// as routing key.
func (s *AMQPSink) Dispatch(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = s.channel.Publish(
		"",      // exchange (empty string means default exchange)
		s.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the AMQP channel and connection.
func (s *AMQPSink) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.connection != nil {
		s.connection.Close()
	}
	return nil
}
