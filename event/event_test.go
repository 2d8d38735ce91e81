package event

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	e := New(NodeCreated, "Person", 42, map[string]string{"name": "Alice"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, NodeCreated, e.Kind)
	assert.Equal(t, "Person", e.Label)
	assert.Equal(t, int64(42), e.NodeID)
	assert.NotNil(t, e.Entity)
	assert.False(t, e.At.IsZero())

	assert.NotEqual(t, e.ID, New(NodeCreated, "Person", 42, nil).ID)
}

func TestDispatcher(t *testing.T) {
	t.Run("delivers to every sink in registration order", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		d := NewDispatcher(logger)

		var got []string
		d.Register(SinkFunc(func(ctx context.Context, e Event) error {
			got = append(got, "first")
			return nil
		}))
		d.Register(SinkFunc(func(ctx context.Context, e Event) error {
			got = append(got, "second")
			return nil
		}))

		d.Dispatch(context.Background(), New(NodeUpdated, "Person", 1, nil))
		assert.Equal(t, []string{"first", "second"}, got)
	})

	t.Run("a failing sink is logged, later sinks still run", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		d := NewDispatcher(logger)

		d.Register(SinkFunc(func(ctx context.Context, e Event) error {
			return errors.New("broker down")
		}))
		delivered := false
		d.Register(SinkFunc(func(ctx context.Context, e Event) error {
			delivered = true
			return nil
		}))

		d.Dispatch(context.Background(), New(NodeDeleted, "Person", 1, nil))

		assert.True(t, delivered)
		require.Len(t, hook.Entries, 1)
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
		assert.Equal(t, "Person", hook.LastEntry().Data["label"])
	})

	t.Run("dispatch with no sinks is a no-op", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		NewDispatcher(logger).Dispatch(context.Background(), New(NodeCreated, "Person", 1, nil))
		assert.Empty(t, hook.Entries)
	})
}
