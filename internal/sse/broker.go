// Package sse streams queue and content events to admin dashboards.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types emitted by the service.
const (
	KeywordAdded    = "keyword.added"
	KeywordRemoved  = "keyword.removed"
	KeywordStatus   = "keyword.status"
	ContentDeleted  = "content.deleted"
	ContentChanged  = "content.changed"
	QueueReconciled = "queue.reconciled"
	QueueUpdated    = "queue.updated"
)

const (
	clientBuffer     = 64
	defaultThrottle  = 2 * time.Second
	defaultKeepAlive = 25 * time.Second
	retryMillis      = 3000
)

// Event is one message on the stream.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of comment frames sent to idle clients.
// Zero disables them.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// Broker fans events out to subscribers.
//
// One goroutine owns the client set, the event sequence and the queue.updated
// throttle state; every public method talks to it over channels.
type Broker struct {
	throttle  time.Duration
	keepAlive time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	eventCh       chan envelope
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type envelope struct {
	event  Event
	change bool
}

// NewBroker starts a broker. queue.updated is emitted at most once per
// throttle interval and reports how many changes it covers. Changes that land
// inside an interval are flushed when it ends.
func NewBroker(throttle time.Duration, opts ...Option) *Broker {
	if throttle <= 0 {
		throttle = defaultThrottle
	}
	b := &Broker{
		throttle:      throttle,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		eventCh:       make(chan envelope, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.loop()
	return b
}

// frame renders one SSE message. Data that fails to marshal is dropped.
func frame(id uint64, ev Event) ([]byte, bool) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, ev.Type, payload)), true
}

func (b *Broker) loop() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		seq       uint64
		lastQueue time.Time
		folded    int
		timer     *time.Timer
		flush     <-chan time.Time
	)

	send := func(ev Event) {
		seq++
		msg, ok := frame(seq, ev)
		if !ok {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// slow client, drop
			}
		}
	}
	queueUpdated := func(now time.Time) {
		lastQueue = now
		send(Event{Type: QueueUpdated, Data: map[string]int{"changes": folded}})
		folded = 0
	}

	for {
		select {
		case <-b.stopCh:
			if timer != nil {
				timer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case env := <-b.eventCh:
			send(env.event)
			if !env.change {
				continue
			}
			folded++
			now := time.Now()
			if wait := b.throttle - now.Sub(lastQueue); wait <= 0 {
				queueUpdated(now)
			} else if flush == nil {
				// Changes inside the window go out when it closes.
				timer = time.NewTimer(wait)
				flush = timer.C
			}

		case <-flush:
			flush = nil
			if folded > 0 {
				queueUpdated(time.Now())
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel. Safe to call
// more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The returned channel is closed on
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

func (b *Broker) enqueue(env envelope) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- env:
	case <-b.stopped:
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.enqueue(envelope{event: event})
}

// PublishChange publishes an event that alters the queue or the artifact
// set, followed by a throttled queue.updated event.
func (b *Broker) PublishChange(event Event) {
	b.enqueue(envelope{event: event, change: true})
}

// PublishContentEvent reports a watcher-observed artifact change.
// kind is one of "created", "updated", "deleted".
func (b *Broker) PublishContentEvent(kind, path string) {
	b.PublishChange(Event{Type: ContentChanged, Data: map[string]string{"kind": kind, "path": path}})
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(retryMillis) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
