package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(ErrorsChanged, "metadata.creators.0.name")

	ev, ok := ListenCmd(context.Background(), ch)().(Event[string])
	require.True(t, ok)
	require.Equal(t, "metadata.creators.0.name", ev.Payload)
}

func TestListenCmd_EndsQuietly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Nil(t, ListenCmd(ctx, make(chan Event[string]))())

	closed := make(chan Event[string])
	close(closed)
	require.Nil(t, ListenCmd(context.Background(), closed)())
}

func TestContinuousListener_OneEventPerListen(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	l := NewContinuousListener(context.Background(), broker)
	broker.Publish(ValuesChanged, 1)
	broker.Publish(ErrorsChanged, 2)

	for _, want := range []int{1, 2} {
		ev, ok := l.Listen()().(Event[int])
		require.True(t, ok)
		require.Equal(t, want, ev.Payload)
	}
}

func TestContinuousListener_MergesQueuedEvents(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	sum := func(a, b Event[int]) Event[int] {
		b.Payload += a.Payload
		return b
	}
	l := NewContinuousListener(context.Background(), broker, WithMerge(sum))
	broker.Publish(ValuesChanged, 1)
	broker.Publish(ErrorsChanged, 2)
	broker.Publish(TouchedChanged, 3)

	ev, ok := l.Listen()().(Event[int])
	require.True(t, ok)
	require.Equal(t, 6, ev.Payload)
	require.Equal(t, TouchedChanged, ev.Type)
	require.Equal(t, uint64(3), ev.Seq)
}

func TestContinuousListener_Types(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	l := NewContinuousListener(context.Background(), broker, WithTypes[int](ServerResponded))
	broker.Publish(ValuesChanged, 1)
	broker.Publish(ServerResponded, 2)

	ev, ok := l.Listen()().(Event[int])
	require.True(t, ok)
	require.Equal(t, 2, ev.Payload)
}
