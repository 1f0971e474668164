package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ArranJacques/paplin/internal/config"
)

// Event types emitted by the hub and the execution engines.
const (
	EventReady             = "ready"
	EventHeartbeat         = "heartbeat"
	EventSequenceStarted   = "sequenceStarted"
	EventStep              = "step"
	EventSequenceCompleted = "sequenceCompleted"
	EventSequenceStopped   = "sequenceStopped"
	EventLightChanged      = "lightChanged"
	EventFault             = "fault"
)

const globalStream = "global"

// Event is one telemetry record.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	Arm  string                 `json:"arm,omitempty"`

	at time.Time
}

// Client is one connected SSE subscriber.
type Client struct {
	ID     string
	Arm    string
	LastID int64
	Events chan Event

	writer http.ResponseWriter
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // guards writer
}

// SnapshotFunc returns the state sent in the ready event.
type SnapshotFunc func() map[string]interface{}

// Hub distributes events to subscribers and keeps per-arm replay buffers.
//
// Lock order: h.mu before EventBuffer.mu. Buffers are never removed from
// h.buffers, so a buffer pointer stays valid after h.mu is released.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	counters map[string]*int64
	buffers  map[string]*EventBuffer
	snapshot SnapshotFunc

	config *config.TimingConfig

	stopHeartbeat chan struct{}

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub creates a hub using the event buffer and heartbeat settings of timingConfig.
func NewHub(timingConfig *config.TimingConfig) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		counters: make(map[string]*int64),
		buffers:  make(map[string]*EventBuffer),
		config:   timingConfig,
		done:     make(chan struct{}),
	}
}

// SetSnapshotProvider sets the function that fills the ready event.
func (h *Hub) SetSnapshotProvider(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Subscribe streams events to w until ctx ends or the hub stops.
// The optional "arm" query parameter limits the stream to one arm; Last-Event-ID resumes it.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	client := &Client{
		ID:     uuid.NewString(),
		Arm:    r.URL.Query().Get("arm"),
		LastID: lastEventID,
		Events: make(chan Event, 100),
		writer: w,
		ctx:    clientCtx,
		cancel: cancel,
	}

	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		cancel()
		return nil
	default:
	}
	h.clients[client.ID] = client
	if h.stopHeartbeat == nil {
		h.startHeartbeat()
	}
	h.mu.Unlock()

	defer h.unregisterClient(client.ID)

	if err := h.sendReadyEvent(client); err != nil {
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastEventID > 0 {
		if err := h.replayEvents(client, lastEventID); err != nil {
			return fmt.Errorf("failed to replay events: %w", err)
		}
	}

	for {
		select {
		case <-client.ctx.Done():
			return nil
		case <-h.done:
			return nil
		case event := <-client.Events:
			if err := h.sendEventToClient(client, event); err != nil {
				return err
			}
		}
	}
}

// Publish assigns an id, buffers arm events and delivers the event to every matching client.
// Slow clients drop the event rather than block the publisher.
func (h *Hub) Publish(event Event) error {
	if event.ID == 0 {
		event.ID = h.nextEventID(event.Arm)
	}
	if event.at.IsZero() {
		event.at = time.Now()
	}

	if event.Arm != "" {
		h.bufferEvent(event)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if client.Arm == "" || event.Arm == "" || client.Arm == event.Arm {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case <-client.ctx.Done():
		case <-h.done:
			return nil
		case client.Events <- event:
		default:
		}
	}

	return nil
}

// PublishArm publishes an event for a specific arm.
func (h *Hub) PublishArm(armID string, event Event) error {
	event.Arm = armID
	return h.Publish(event)
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Buffer returns the replay buffer for an arm, or nil if nothing was published for it.
func (h *Hub) Buffer(armID string) *EventBuffer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.buffers[armID]
}

func (h *Hub) sendReadyEvent(client *Client) error {
	h.mu.RLock()
	snapshotFn := h.snapshot
	h.mu.RUnlock()

	snapshot := map[string]interface{}{}
	if snapshotFn != nil {
		snapshot = snapshotFn()
	}

	return h.sendEventToClient(client, Event{
		Type: EventReady,
		Data: map[string]interface{}{"snapshot": snapshot},
	})
}

// replayEvents resends buffered events newer than lastEventID. Without an arm
// filter every arm's buffer is replayed.
func (h *Hub) replayEvents(client *Client, lastEventID int64) error {
	h.mu.RLock()
	var buffers []*EventBuffer
	if client.Arm != "" {
		if b, ok := h.buffers[client.Arm]; ok {
			buffers = append(buffers, b)
		}
	} else {
		for _, b := range h.buffers {
			buffers = append(buffers, b)
		}
	}
	h.mu.RUnlock()

	for _, buffer := range buffers {
		for _, event := range buffer.GetEventsAfter(lastEventID) {
			if err := h.sendEventToClient(client, event); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendEventToClient writes one event in SSE framing and flushes it.
func (h *Hub) sendEventToClient(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	if event.ID > 0 {
		if _, err := fmt.Fprintf(client.writer, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(client.writer, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}

	payload := event.Data
	if event.Arm != "" {
		payload = make(map[string]interface{}, len(event.Data)+1)
		for k, v := range event.Data {
			payload[k] = v
		}
		payload["armId"] = event.Arm
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if _, err := fmt.Fprintf(client.writer, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}

	if flusher, ok := client.writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func (h *Hub) unregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[clientID]
	if !exists {
		return
	}
	client.cancel()
	delete(h.clients, clientID)

	if len(h.clients) == 0 && h.stopHeartbeat != nil {
		close(h.stopHeartbeat)
		h.stopHeartbeat = nil
	}
}

// nextEventID returns the next monotonic id for an arm's stream.
func (h *Hub) nextEventID(armID string) int64 {
	if armID == "" {
		armID = globalStream
	}

	h.mu.RLock()
	counter, exists := h.counters[armID]
	h.mu.RUnlock()
	if exists {
		return atomic.AddInt64(counter, 1)
	}

	h.mu.Lock()
	counter, exists = h.counters[armID]
	if !exists {
		counter = new(int64)
		h.counters[armID] = counter
	}
	h.mu.Unlock()

	return atomic.AddInt64(counter, 1)
}

func (h *Hub) bufferEvent(event Event) {
	h.mu.Lock()
	buffer, exists := h.buffers[event.Arm]
	if !exists {
		buffer = NewEventBuffer(h.config.EventBufferSize, h.config.EventBufferRetention)
		h.buffers[event.Arm] = buffer
	}
	h.mu.Unlock()

	buffer.AddEvent(event)
}

// startHeartbeat launches the heartbeat loop. Caller holds h.mu.
func (h *Hub) startHeartbeat() {
	stop := make(chan struct{})
	h.stopHeartbeat = stop

	interval := h.config.HeartbeatInterval
	jitter := h.config.HeartbeatJitter

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		timer := time.NewTimer(withJitter(interval, jitter))
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				h.sendHeartbeat()
				timer.Reset(withJitter(interval, jitter))
			case <-stop:
				return
			case <-h.done:
				return
			}
		}
	}()
}

// withJitter spreads interval uniformly over [interval-jitter, interval+jitter].
func withJitter(interval, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return interval
	}
	return interval - jitter + time.Duration(rand.Int63n(int64(2*jitter)+1))
}

func (h *Hub) sendHeartbeat() {
	_ = h.Publish(Event{
		Type: EventHeartbeat,
		Data: map[string]interface{}{
			"ts": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Stop disconnects every client and ends the heartbeat. It is safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for _, client := range h.clients {
			client.cancel()
		}
		h.mu.Unlock()

		waited := make(chan struct{})
		go func() {
			h.wg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-time.After(5 * time.Second):
		}
	})
}

// EventBuffer is a bounded, time-limited replay buffer for one arm.
type EventBuffer struct {
	mu        sync.RWMutex
	events    []Event
	capacity  int
	retention time.Duration
}

// NewEventBuffer creates a buffer holding at most capacity events no older than retention.
// A zero retention keeps events until capacity evicts them.
func NewEventBuffer(capacity int, retention time.Duration) *EventBuffer {
	return &EventBuffer{
		events:    make([]Event, 0, capacity),
		capacity:  capacity,
		retention: retention,
	}
}

// AddEvent appends an event, evicting the oldest beyond capacity.
func (b *EventBuffer) AddEvent(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if event.at.IsZero() {
		event.at = time.Now()
	}
	b.events = append(b.events, event)
	if len(b.events) > b.capacity {
		b.events = b.events[len(b.events)-b.capacity:]
	}
	b.prune(event.at)
}

// GetEventsAfter returns retained events with an id greater than lastID.
func (b *EventBuffer) GetEventsAfter(lastID int64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(time.Now())

	var result []Event
	for _, event := range b.events {
		if event.ID > lastID {
			result = append(result, event)
		}
	}
	return result
}

// prune drops events older than the retention window. Caller holds b.mu.
func (b *EventBuffer) prune(now time.Time) {
	if b.retention <= 0 {
		return
	}
	cutoff := now.Add(-b.retention)
	i := 0
	for i < len(b.events) && b.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.events = append(b.events[:0], b.events[i:]...)
	}
}

// GetCapacity returns the buffer capacity.
func (b *EventBuffer) GetCapacity() int {
	return b.capacity
}

// GetSize returns the number of buffered events.
func (b *EventBuffer) GetSize() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
