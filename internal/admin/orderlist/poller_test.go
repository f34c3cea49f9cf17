package orderlist

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/T0MGL/0rdefy-sub009/internal/admin/notifications"
)

func TestPollerPollsImmediatelyWhenVisibleAgain(t *testing.T) {
	t.Parallel()

	polls := make(chan struct{}, 4)
	p := NewPoller(time.Hour, func(context.Context) error {
		polls <- struct{}{}
		return nil
	}, zap.NewNop())
	p.Start(context.Background())
	defer p.Stop()

	p.SetVisible(false)
	require.False(t, p.Visible())
	p.SetVisible(true)

	select {
	case <-polls:
	case <-time.After(time.Second):
		t.Fatal("expected a poll after the page became visible")
	}

	// already visible: no extra poll
	p.SetVisible(true)
	select {
	case <-polls:
		t.Fatal("unexpected poll")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPollerSkipsTicksWhileHidden(t *testing.T) {
	t.Parallel()

	polls := make(chan struct{}, 16)
	p := NewPoller(10*time.Millisecond, func(context.Context) error {
		polls <- struct{}{}
		return nil
	}, nil)
	p.SetVisible(false)
	p.Start(context.Background())

	time.Sleep(60 * time.Millisecond)
	p.Stop()
	require.Empty(t, polls)
}

func TestRegistryReusesAndEvictsSessions(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	created := 0
	registry := NewRegistry(func(toasts *notifications.Queue) *Controller {
		created++
		return New(newFakeService(fixtureOrders()), WithNotifier(toasts))
	}, WithIdleTTL(time.Minute))
	registry.now = func() time.Time { return now }
	defer registry.Close()

	first := registry.Get("sess-1")
	require.Same(t, first, registry.Get("sess-1"))
	require.NotSame(t, first, registry.Get("sess-2"))
	require.Equal(t, 2, created)
	require.Nil(t, first.Poller)

	require.NoError(t, first.Controller.Load(context.Background()))
	_, err := first.Controller.BulkPrint(context.Background())
	require.ErrorIs(t, err, ErrEmptySelection)
	require.Equal(t, 1, first.Toasts.Len())

	now = now.Add(30 * time.Second)
	registry.Get("sess-2")
	now = now.Add(45 * time.Second)
	require.Equal(t, 1, registry.Sweep())
	require.Equal(t, 1, registry.Len())
	require.NotSame(t, first, registry.Get("sess-1"))

	require.True(t, registry.Remove("sess-2"))
	require.False(t, registry.Remove("sess-2"))
	require.Equal(t, 1, registry.Len())
}
