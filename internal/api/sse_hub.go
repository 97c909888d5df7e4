package api

import (
	"sync"
	"time"

	"cloneselect/internal"
)

// Event types streamed for a background sweep
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventFailed   = "failed"
)

// maxFinishedRuns bounds how many completed runs keep their event history
const maxFinishedRuns = 64

// minSubscriberBuffer is the smallest channel handed to a subscriber
const minSubscriberBuffer = 16

// SweepEvent is one server-sent event of a background sweep
type SweepEvent struct {
	RunID     string      `json:"run_id"`
	EventType string      `json:"event_type"`
	Progress  float64     `json:"progress"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type runStream struct {
	capacity    int
	history     []SweepEvent
	subscribers map[chan SweepEvent]bool
	done        bool
}

// SSEHub fans sweep events out to subscribers. Every event is kept per run
// so late subscribers replay what they missed.
type SSEHub struct {
	mu       sync.Mutex
	runs     map[string]*runStream
	finished []string
	logger   *internal.Logger
}

// NewSSEHub creates a new SSE hub
func NewSSEHub(logger *internal.Logger) *SSEHub {
	return &SSEHub{
		runs:   make(map[string]*runStream),
		logger: logger.WithComponent("SSE"),
	}
}

// Open registers a run so subscribers can attach before its first event.
// expectedEvents is the most events the run will broadcast; every subscriber
// channel holds that many so a slow reader never loses the terminal event.
func (h *SSEHub) Open(runID string, expectedEvents int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if expectedEvents < minSubscriberBuffer {
		expectedEvents = minSubscriberBuffer
	}
	if _, exists := h.runs[runID]; !exists {
		h.runs[runID] = &runStream{
			capacity:    expectedEvents,
			subscribers: make(map[chan SweepEvent]bool),
		}
	}
}

// Broadcast records an event and sends it to every subscriber of its run
func (h *SSEHub) Broadcast(event SweepEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	run, exists := h.runs[event.RunID]
	if !exists || run.done {
		return
	}
	run.history = append(run.history, event)
	for ch := range run.subscribers {
		select {
		case ch <- event:
		default:
			h.logger.Warn("subscriber channel full for run %s, skipping %s event", event.RunID, event.EventType)
		}
	}
}

// Finish closes every subscriber of a run. The history stays available
// until maxFinishedRuns newer runs have finished.
func (h *SSEHub) Finish(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	run, exists := h.runs[runID]
	if !exists || run.done {
		return
	}
	run.done = true
	for ch := range run.subscribers {
		close(ch)
	}
	run.subscribers = nil

	h.finished = append(h.finished, runID)
	if len(h.finished) > maxFinishedRuns {
		delete(h.runs, h.finished[0])
		h.finished = h.finished[1:]
	}
}

// Subscribe returns the events recorded so far and, for a run still in
// progress, a channel carrying the rest. The channel is nil for finished
// runs. ok is false for unknown runs.
func (h *SSEHub) Subscribe(runID string) (replay []SweepEvent, ch chan SweepEvent, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	run, exists := h.runs[runID]
	if !exists {
		return nil, nil, false
	}
	replay = append([]SweepEvent(nil), run.history...)
	if run.done {
		return replay, nil, true
	}
	ch = make(chan SweepEvent, run.capacity)
	run.subscribers[ch] = true
	h.logger.Debug("client subscribed to run %s (total clients: %d)", runID, len(run.subscribers))
	return replay, ch, true
}

// Unsubscribe detaches a channel from a run that is still in progress
func (h *SSEHub) Unsubscribe(runID string, ch chan SweepEvent) {
	if ch == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	run, exists := h.runs[runID]
	if !exists || run.done {
		return
	}
	if run.subscribers[ch] {
		delete(run.subscribers, ch)
		close(ch)
	}
}

// ClientCount returns the number of active subscribers of a run
func (h *SSEHub) ClientCount(runID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if run, exists := h.runs[runID]; exists {
		return len(run.subscribers)
	}
	return 0
}
