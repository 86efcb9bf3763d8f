package frontend

import (
	"encoding/json"
	"net/http"
	"sync"
)

// SSE event types sent to stream clients.
const (
	eventTypeStep = "step"
	eventTypeRun  = "run"
)

// SetSSEHeaders sets the standard headers required for SSE responses.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// event is one framed SSE message.
type event struct {
	Type string
	Data []byte
}

// Hub fans run progress events out to stream subscribers, keyed by
// run id. Subscriber channels are buffered; a slow consumer loses
// intermediate events rather than blocking the run.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan event)}
}

// Subscribe registers a consumer for the given run id. The returned
// cancel function must be called when the consumer goes away. The
// channel is closed when the run completes.
func (h *Hub) Subscribe(runID string) (<-chan event, func()) {
	ch := make(chan event, 16)
	h.mu.Lock()
	h.subs[runID] = append(h.subs[runID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		chans := h.subs[runID]
		for i, c := range chans {
			if c == ch {
				h.subs[runID] = append(chans[:i], chans[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

// Notify broadcasts a payload to every subscriber of the run.
func (h *Hub) Notify(runID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[runID] {
		select {
		case ch <- event{Type: eventType, Data: data}:
		default:
		}
	}
}

// Complete closes every subscriber channel of the run and forgets the
// topic.
func (h *Hub) Complete(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[runID] {
		close(ch)
	}
	delete(h.subs, runID)
}
