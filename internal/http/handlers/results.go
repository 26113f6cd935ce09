package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

type ResultsHandler struct {
	results services.ResultsService
}

func NewResultsHandler(results services.ResultsService) *ResultsHandler {
	return &ResultsHandler{results: results}
}

type recomputeRequest struct {
	SessionID string `json:"session_id"`
}

// POST /api/results
func (h *ResultsHandler) Recompute(c *gin.Context) {
	var req recomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sid, err := services.ParseSessionID(req.SessionID)
	if err != nil {
		response.Error(c, "recompute_failed", err)
		return
	}
	report, err := h.results.Refresh(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, "recompute_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// GET /api/results?sessionId=
func (h *ResultsHandler) Get(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Query("sessionId"))
	if err != nil {
		response.Error(c, "get_results_failed", err)
		return
	}
	report, err := h.results.Report(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, "get_results_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"report": report, "results": report.Stages})
}
