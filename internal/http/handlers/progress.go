package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

type ProgressHandler struct {
	progress services.ProgressAggregator
}

func NewProgressHandler(progress services.ProgressAggregator) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

type recordProgressRequest struct {
	SessionID         string `json:"session_id"`
	StageName         string `json:"stage_name"`
	StageOrder        int    `json:"stage_order"`
	TotalQuestions    int    `json:"total_questions"`
	AnsweredQuestions int    `json:"answered_questions"`
}

// POST /api/progress
func (h *ProgressHandler) Record(c *gin.Context) {
	var req recordProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sid, err := services.ParseSessionID(req.SessionID)
	if err != nil {
		response.Error(c, "record_progress_failed", err)
		return
	}
	res, err := h.progress.RecordPage(c.Request.Context(), sid, services.PageProgress{
		Stage:    req.StageName,
		Order:    req.StageOrder,
		Total:    req.TotalQuestions,
		Answered: req.AnsweredQuestions,
	})
	if err != nil {
		response.Error(c, "record_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"progress":        res.Progress,
		"stage_completed": res.StageCompleted,
		"rescored":        res.Rescored,
	})
}

// GET /api/progress?sessionId=
func (h *ProgressHandler) Get(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Query("sessionId"))
	if err != nil {
		response.Error(c, "get_progress_failed", err)
		return
	}
	status, err := h.progress.LiveStatus(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, "get_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"progress":         status.Stages,
		"overall":          status.Visited,
		"definition":       status.Definition,
		"completed":        status.Completed,
		"results_unlocked": status.ResultsUnlocked,
	})
}
