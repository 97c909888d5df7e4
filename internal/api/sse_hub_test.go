package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloneselect/internal"
)

func progressEvent(runID string, p float64) SweepEvent {
	return SweepEvent{RunID: runID, EventType: EventProgress, Progress: p, Timestamp: time.Now()}
}

func TestSSEHub_ReplayAndLive(t *testing.T) {
	hub := NewSSEHub(internal.NewLogger(internal.LogLevelError))
	hub.Open("run-1", 2)
	hub.Broadcast(progressEvent("run-1", 0.5))

	replay, ch, ok := hub.Subscribe("run-1")
	require.True(t, ok)
	require.NotNil(t, ch)
	require.Len(t, replay, 1)
	assert.Equal(t, 0.5, replay[0].Progress)
	assert.Equal(t, 1, hub.ClientCount("run-1"))

	hub.Broadcast(progressEvent("run-1", 1))
	live := <-ch
	assert.Equal(t, 1.0, live.Progress)

	hub.Finish("run-1")
	_, open := <-ch
	assert.False(t, open)
	hub.Unsubscribe("run-1", ch)

	replay, ch, ok = hub.Subscribe("run-1")
	require.True(t, ok)
	assert.Nil(t, ch)
	assert.Len(t, replay, 2)
}

func TestSSEHub_UnknownAndFinishedRuns(t *testing.T) {
	hub := NewSSEHub(internal.NewLogger(internal.LogLevelError))
	_, _, ok := hub.Subscribe("missing")
	assert.False(t, ok)

	hub.Broadcast(progressEvent("missing", 0.1))
	_, _, ok = hub.Subscribe("missing")
	assert.False(t, ok)

	hub.Open("done", 0)
	hub.Finish("done")
	hub.Broadcast(progressEvent("done", 0.1))
	replay, _, ok := hub.Subscribe("done")
	require.True(t, ok)
	assert.Empty(t, replay)
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := NewSSEHub(internal.NewLogger(internal.LogLevelError))
	hub.Open("run", 1)
	_, ch, _ := hub.Subscribe("run")
	hub.Unsubscribe("run", ch)
	assert.Zero(t, hub.ClientCount("run"))
	_, open := <-ch
	assert.False(t, open)

	hub.Broadcast(progressEvent("run", 0.2))
	hub.Finish("run")
}

func TestSSEHub_EvictsOldRuns(t *testing.T) {
	hub := NewSSEHub(internal.NewLogger(internal.LogLevelError))
	ids := make([]string, maxFinishedRuns+1)
	for i := range ids {
		ids[i] = time.Duration(i).String()
		hub.Open(ids[i], 0)
		hub.Finish(ids[i])
	}
	_, _, ok := hub.Subscribe(ids[0])
	assert.False(t, ok)
	_, _, ok = hub.Subscribe(ids[len(ids)-1])
	assert.True(t, ok)
}

func TestSSEHub_SlowSubscriberGetsTerminalEvent(t *testing.T) {
	hub := NewSSEHub(internal.NewLogger(internal.LogLevelError))
	const points = 1001
	hub.Open("long", points+1)

	_, ch, ok := hub.Subscribe("long")
	require.True(t, ok)

	for i := 1; i <= points; i++ {
		hub.Broadcast(progressEvent("long", float64(i)/points))
	}
	hub.Broadcast(SweepEvent{RunID: "long", EventType: EventComplete, Progress: 1, Timestamp: time.Now()})
	hub.Finish("long")

	var received []SweepEvent
	for event := range ch {
		received = append(received, event)
	}
	require.Len(t, received, points+1)
	assert.Equal(t, EventComplete, received[len(received)-1].EventType)
}
