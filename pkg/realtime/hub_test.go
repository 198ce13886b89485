package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObserver struct {
	handle string

	mu       sync.Mutex
	messages [][]byte
	sendErr  error
	closed   bool
}

func (f *fakeObserver) Handle() string { return f.handle }

func (f *fakeObserver) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeObserver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeObserver) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func TestRegisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	obs := &fakeObserver{handle: "a"}

	hub.Register(obs)
	hub.Register(obs)
	assert.Equal(t, 1, hub.Len())
}

func TestUnregisterUnknownHandleIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Unregister("ghost")
	hub.Unregister("ghost")
	assert.Equal(t, 0, hub.Len())
}

func TestBroadcastDeliversEnvelopeShape(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	hub := NewHub(WithHubClock(func() time.Time { return ts }))
	obs := &fakeObserver{handle: "a"}
	hub.Register(obs)

	hub.Announce("sale.created", map[string]any{"total": 42.0})

	require.Equal(t, 1, obs.received())
	var frame map[string]any
	require.NoError(t, json.Unmarshal(obs.messages[0], &frame))
	assert.Equal(t, "sale.created", frame["type"])
	assert.Equal(t, SourceServer, frame["source"])
	assert.Equal(t, float64(EnvelopeVersion), frame["version"])
	assert.NotEmpty(t, frame["ts"])
	assert.Equal(t, map[string]any{"total": 42.0}, frame["data"])
}

func TestBroadcastIsolatesDeadObservers(t *testing.T) {
	hub := NewHub()
	obs1 := &fakeObserver{handle: "a"}
	obs2 := &fakeObserver{handle: "b", sendErr: errors.New("broken pipe")}
	obs3 := &fakeObserver{handle: "c"}
	hub.Register(obs1)
	hub.Register(obs2)
	hub.Register(obs3)

	hub.Announce("product.updated", nil)

	assert.Equal(t, 1, obs1.received())
	assert.Equal(t, 1, obs3.received())
	assert.True(t, obs2.closed)
	assert.Equal(t, 2, hub.Len())

	// The dead observer stays gone on the next broadcast.
	hub.Announce("product.updated", nil)
	assert.Equal(t, 2, obs1.received())
	assert.Equal(t, 2, obs3.received())
}

func TestBroadcastPreservesPerObserverOrder(t *testing.T) {
	hub := NewHub()
	obs := &fakeObserver{handle: "a"}
	hub.Register(obs)

	for _, kind := range []string{"e1", "e2", "e3"} {
		hub.Announce(kind, nil)
	}

	require.Equal(t, 3, obs.received())
	for i, want := range []string{"e1", "e2", "e3"} {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(obs.messages[i], &frame))
		assert.Equal(t, want, frame["type"])
	}
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			obs := &fakeObserver{handle: string(rune('a' + n))}
			hub.Register(obs)
			hub.Announce("tick", n)
			hub.Unregister(obs.Handle())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Len())
}

func TestShutdownClosesAllObservers(t *testing.T) {
	hub := NewHub()
	obs1 := &fakeObserver{handle: "a"}
	obs2 := &fakeObserver{handle: "b"}
	hub.Register(obs1)
	hub.Register(obs2)

	hub.Shutdown()

	assert.Equal(t, 0, hub.Len())
	assert.True(t, obs1.closed)
	assert.True(t, obs2.closed)
}
