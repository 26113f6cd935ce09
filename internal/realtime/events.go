package realtime

import (
	"context"
	"strings"

	"github.com/yungbote/maturity-assessment-backend/internal/observability"
)

type SSEEvent string

const (
	SSEEventAnswersSaved      SSEEvent = "AnswersSaved"
	SSEEventProgressUpdated   SSEEvent = "ProgressUpdated"
	SSEEventResultsRecomputed SSEEvent = "ResultsRecomputed"
	SSEEventSessionCompleted  SSEEvent = "SessionCompleted"
	SSEEventSessionDeleted    SSEEvent = "SessionDeleted"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// SessionChannel is the channel every tab of one assessment session listens on.
func SessionChannel(sessionID string) string {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ""
	}
	return "session:" + sessionID
}

// Emitter delivers a message to subscribers, locally or through a bus.
type Emitter interface {
	Emit(ctx context.Context, msg SSEMessage)
}

type HubEmitter struct {
	Hub     *SSEHub
	Metrics *observability.Metrics
}

func (e *HubEmitter) Emit(ctx context.Context, msg SSEMessage) {
	if e == nil || e.Hub == nil {
		return
	}
	e.Metrics.IncRealtimeEvent(string(msg.Event))
	e.Hub.Broadcast(msg)
}

// NopEmitter drops everything.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, SSEMessage) {}
