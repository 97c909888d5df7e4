package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloneselect/app"
	"cloneselect/domain/core"
	"cloneselect/internal/errors"
)

const keepAliveInterval = 30 * time.Second

// handleSweepAsync validates the request, starts the sweep in the background
// and returns the run ID to stream from /runs/:id/events.
func (s *Server) handleSweepAsync(c *gin.Context) {
	req, table, ok := s.bindSimulation(c)
	if !ok {
		return
	}
	correlations, err := req.correlations()
	if err != nil {
		s.writeError(c, err)
		return
	}
	if err := req.Config.Normalize().Validate(table.Len()); err != nil {
		s.writeError(c, err)
		return
	}

	runID := core.NewRunID().String()
	// one progress event per point plus the terminal event
	s.hub.Open(runID, len(correlations)+1)

	go func() {
		defer s.hub.Finish(runID)
		progress := func(done, total int, point app.SweepPoint) {
			s.hub.Broadcast(SweepEvent{
				RunID:     runID,
				EventType: EventProgress,
				Progress:  float64(done) / float64(total),
				Data:      gin.H{"correlation": point.Correlation, "probability": point.Probability},
				Timestamp: time.Now(),
			})
		}

		result, err := s.sweep.SweepCorrelationsWithProgress(s.baseCtx, table.Results(), table, req.Config, correlations, progress)
		if err != nil {
			s.logger.Warn("background sweep %s failed: %v", runID, err)
			s.hub.Broadcast(SweepEvent{
				RunID:     runID,
				EventType: EventFailed,
				Data:      gin.H{"error": err.Error(), "code": errors.GetCode(err)},
				Timestamp: time.Now(),
			})
			return
		}
		s.hub.Broadcast(SweepEvent{
			RunID:     runID,
			EventType: EventComplete,
			Progress:  1,
			Data:      result,
			Timestamp: time.Now(),
		})
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"run_id": runID,
		"events": "/api/v1/runs/" + runID + "/events",
		"points": len(correlations),
	})
}

// handleRunEvents streams a background sweep as server-sent events, replaying
// anything emitted before the client connected. The stream ends with the run.
func (s *Server) handleRunEvents(c *gin.Context) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.InvalidInput(err.Error()))
		return
	}
	replay, ch, ok := s.hub.Subscribe(runID.String())
	if !ok {
		s.writeError(c, errors.NotFound("run "+runID.String()))
		return
	}
	defer s.hub.Unsubscribe(runID.String(), ch)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for _, event := range replay {
		c.SSEvent(event.EventType, event)
	}
	c.Writer.Flush()
	if ch == nil {
		return
	}

	ctx := c.Request.Context()
	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			c.SSEvent(event.EventType, event)
			c.Writer.Flush()
		case <-time.After(keepAliveInterval):
			c.SSEvent("ping", gin.H{"status": "alive", "timestamp": time.Now().Format(time.RFC3339)})
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
