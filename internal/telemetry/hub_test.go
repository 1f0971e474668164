package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArranJacques/paplin/internal/config"
)

// threadSafeResponseWriter captures SSE output written from the subscriber goroutine.
type threadSafeResponseWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	headers http.Header
}

func newThreadSafeResponseWriter() *threadSafeResponseWriter {
	return &threadSafeResponseWriter{headers: make(http.Header)}
}

func (w *threadSafeResponseWriter) Header() http.Header { return w.headers }

func (w *threadSafeResponseWriter) Write(data []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(data)
}

func (w *threadSafeResponseWriter) WriteHeader(int) {}

func (w *threadSafeResponseWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func subscribe(t *testing.T, hub *Hub, target string, lastEventID string) (*threadSafeResponseWriter, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	w := newThreadSafeResponseWriter()
	errCh := make(chan error, 1)
	before := hub.ClientCount()
	go func() { errCh <- hub.Subscribe(ctx, w, req) }()
	require.Eventually(t, func() bool { return hub.ClientCount() > before }, time.Second, 5*time.Millisecond)
	return w, cancel, errCh
}

func TestNewHub(t *testing.T) {
	cfg := config.LoadTimingBaseline()
	hub := NewHub(cfg)
	defer hub.Stop()

	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.counters)
	assert.NotNil(t, hub.buffers)
	assert.Same(t, cfg, hub.config)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestPublishArmAssignsMonotonicIDsPerArm(t *testing.T) {
	hub := NewHub(config.LoadTimingBaseline())
	defer hub.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.PublishArm("arm-a", Event{Type: EventStep, Data: map[string]interface{}{"index": i}}))
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, hub.PublishArm("arm-b", Event{Type: EventStep}))
	}

	a := hub.Buffer("arm-a").GetEventsAfter(0)
	require.Len(t, a, 3)
	for i, e := range a {
		assert.Equal(t, int64(i+1), e.ID)
		assert.Equal(t, "arm-a", e.Arm)
	}

	b := hub.Buffer("arm-b").GetEventsAfter(0)
	require.Len(t, b, 2)
	assert.Equal(t, int64(2), b[1].ID)

	assert.Nil(t, hub.Buffer("arm-c"))
}

func TestGlobalEventsAreNotBuffered(t *testing.T) {
	hub := NewHub(config.LoadTimingBaseline())
	defer hub.Stop()

	require.NoError(t, hub.Publish(Event{Type: EventHeartbeat}))
	assert.Nil(t, hub.Buffer(""))
}

func TestEventBufferCapacity(t *testing.T) {
	buffer := NewEventBuffer(3, 0)
	for i := int64(1); i <= 5; i++ {
		buffer.AddEvent(Event{ID: i, Type: EventStep})
	}

	assert.Equal(t, 3, buffer.GetCapacity())
	assert.Equal(t, 3, buffer.GetSize())

	events := buffer.GetEventsAfter(0)
	require.Len(t, events, 3)
	assert.Equal(t, int64(3), events[0].ID)
	assert.Equal(t, int64(5), events[2].ID)

	assert.Len(t, buffer.GetEventsAfter(4), 1)
	assert.Empty(t, buffer.GetEventsAfter(5))
}

func TestEventBufferRetention(t *testing.T) {
	buffer := NewEventBuffer(10, time.Minute)
	buffer.AddEvent(Event{ID: 1, Type: EventStep, at: time.Now().Add(-2 * time.Minute)})
	buffer.AddEvent(Event{ID: 2, Type: EventStep})

	events := buffer.GetEventsAfter(0)
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].ID)
}

func TestSubscribeReceivesReadyAndEvents(t *testing.T) {
	hub := NewHub(config.LoadTimingBaseline())
	defer hub.Stop()
	hub.SetSnapshotProvider(func() map[string]interface{} {
		return map[string]interface{}{"activeArmId": "arm-01"}
	})

	w, cancel, errCh := subscribe(t, hub, "/api/v1/telemetry", "")

	require.NoError(t, hub.PublishArm("arm-01", Event{Type: EventLightChanged, Data: map[string]interface{}{"on": true}}))

	require.Eventually(t, func() bool {
		return strings.Contains(w.String(), "event: lightChanged")
	}, time.Second, 5*time.Millisecond)

	out := w.String()
	assert.True(t, strings.HasPrefix(out, "event: ready\n"), "ready event first, got %q", out)
	assert.Contains(t, out, `"activeArmId":"arm-01"`)
	assert.Contains(t, out, "id: 1\n")
	assert.Contains(t, out, `"armId":"arm-01"`)
	assert.Contains(t, out, `"on":true`)
	assert.Equal(t, "text/event-stream; charset=utf-8", w.Header().Get("Content-Type"))

	cancel()
	assert.NoError(t, <-errCh)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSubscribeArmFilter(t *testing.T) {
	hub := NewHub(config.LoadTimingBaseline())
	defer hub.Stop()

	w, cancel, _ := subscribe(t, hub, "/api/v1/telemetry?arm=arm-01", "")
	defer cancel()

	require.NoError(t, hub.PublishArm("arm-02", Event{Type: EventFault}))
	require.NoError(t, hub.PublishArm("arm-01", Event{Type: EventStep}))

	require.Eventually(t, func() bool {
		return strings.Contains(w.String(), "event: step")
	}, time.Second, 5*time.Millisecond)
	assert.NotContains(t, w.String(), "event: fault")
}

func TestSubscribeReplaysAfterLastEventID(t *testing.T) {
	hub := NewHub(config.LoadTimingBaseline())
	defer hub.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.PublishArm("arm-01", Event{Type: EventStep, Data: map[string]interface{}{"index": i}}))
	}

	w, cancel, _ := subscribe(t, hub, "/api/v1/telemetry?arm=arm-01", "1")
	defer cancel()

	require.Eventually(t, func() bool {
		return strings.Contains(w.String(), "id: 3\n")
	}, time.Second, 5*time.Millisecond)
	out := w.String()
	assert.Contains(t, out, "id: 2\n")
	assert.NotContains(t, out, "id: 1\n")
}

func TestHeartbeat(t *testing.T) {
	cfg := config.LoadTimingBaseline()
	cfg.HeartbeatInterval = 20 * time.Millisecond
	cfg.HeartbeatJitter = 0
	hub := NewHub(cfg)
	defer hub.Stop()

	w, cancel, _ := subscribe(t, hub, "/api/v1/telemetry", "")
	defer cancel()

	require.Eventually(t, func() bool {
		return strings.Contains(w.String(), "event: heartbeat")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, w.String(), `"ts":"`)
}

func TestStopEndsSubscriptions(t *testing.T) {
	hub := NewHub(config.LoadTimingBaseline())

	_, cancel, errCh := subscribe(t, hub, "/api/v1/telemetry", "")
	defer cancel()

	hub.Stop()
	hub.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after Stop")
	}
	assert.NoError(t, hub.Publish(Event{Type: EventHeartbeat}))
}

func TestWithJitter(t *testing.T) {
	assert.Equal(t, time.Second, withJitter(time.Second, 0))
	for i := 0; i < 100; i++ {
		d := withJitter(time.Second, 100*time.Millisecond)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}
