package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/sessions/:id/events
// Streams AnswersSaved, ProgressUpdated, ResultsRecomputed, SessionCompleted
// and SessionDeleted for one session until the client disconnects.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	key := sid.String()
	client := h.hub.NewSSEClient(key)
	h.hub.AddChannel(client, realtime.SessionChannel(key))
	h.log.Debug("SSE stream open", "session_id", key, "client_id", client.ID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("SSE stream closed", "session_id", key, "client_id", client.ID.String())
}
