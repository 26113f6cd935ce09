package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

// AttemptHandler exposes the session controller. An attempt is one
// respondent's in-browser run; its id is issued by POST /api/attempts.
type AttemptHandler struct {
	controller services.SessionController
}

func NewAttemptHandler(controller services.SessionController) *AttemptHandler {
	return &AttemptHandler{controller: controller}
}

func attemptID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "not_found", services.ErrAttemptNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptional accepts an empty body.
func bindOptional(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}

func respondAttempt(c *gin.Context, snap services.AttemptSnapshot, err error) {
	if err != nil {
		response.Error(c, "attempt_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"attempt": snap})
}

// POST /api/attempts
func (h *AttemptHandler) Open(c *gin.Context) {
	response.RespondCreated(c, gin.H{"attempt": h.controller.Open()})
}

// GET /api/attempts/:id
func (h *AttemptHandler) Get(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	snap, err := h.controller.Snapshot(id)
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/begin
func (h *AttemptHandler) Begin(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	snap, err := h.controller.BeginIdentity(id)
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/identity
func (h *AttemptHandler) SubmitIdentity(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, err := h.controller.SubmitIdentity(c.Request.Context(), id, services.IdentityInput{
		CompanyName:     req.CompanyName,
		RespondentName:  req.RespondentName,
		RespondentEmail: req.RespondentEmail,
		IPAddress:       c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	})
	if err == nil && snap.Outcome == services.OutcomeDuplicate {
		c.JSON(http.StatusConflict, gin.H{
			"error":   response.APIError{Message: "a session already exists for this email", Code: "duplicate_identity"},
			"attempt": snap,
		})
		return
	}
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/identity/load-existing
func (h *AttemptHandler) LoadExisting(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	snap, err := h.controller.LoadExisting(c.Request.Context(), id)
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/identity/create-anyway
func (h *AttemptHandler) CreateAnyway(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	snap, err := h.controller.CreateAnyway(c.Request.Context(), id)
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/recover
// A miss is reported as outcome "not_found" with status 404.
func (h *AttemptHandler) Recover(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	var req services.RecoverInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, err := h.controller.Recover(c.Request.Context(), id, req)
	if err == nil && snap.Outcome == services.OutcomeNotFound {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   response.APIError{Message: "no session matches; check your details or start a new assessment", Code: "not_found"},
			"attempt": snap,
		})
		return
	}
	respondAttempt(c, snap, err)
}

type selectRequest struct {
	SessionID string `json:"session_id"`
}

// POST /api/attempts/:id/select
func (h *AttemptHandler) Select(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sid, err := services.ParseSessionID(req.SessionID)
	if err != nil {
		response.Error(c, "attempt_failed", err)
		return
	}
	snap, err := h.controller.SelectSession(c.Request.Context(), id, sid)
	respondAttempt(c, snap, err)
}

type setAnswersRequest struct {
	Answers map[string]int `json:"answers"`
	Stage   *int           `json:"stage_index"`
}

// POST /api/attempts/:id/answers
// Ratings are keyed by question name. Rejected answers come back in "skipped".
func (h *AttemptHandler) SetAnswers(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	var req setAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, skipped, err := h.controller.SetAnswers(id, req.Answers)
	if err != nil {
		response.Error(c, "attempt_failed", err)
		return
	}
	if req.Stage != nil {
		if snap, err = h.controller.SetStage(id, *req.Stage); err != nil {
			response.Error(c, "attempt_failed", err)
			return
		}
	}
	msgs := make([]string, 0, len(skipped))
	for _, e := range skipped {
		msgs = append(msgs, e.Error())
	}
	response.RespondOK(c, gin.H{"attempt": snap, "skipped": msgs})
}

type navigateRequest struct {
	StageIndex int `json:"stage_index"`
}

// POST /api/attempts/:id/navigate
func (h *AttemptHandler) Navigate(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snap, err := h.controller.Navigate(c.Request.Context(), id, req.StageIndex)
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/complete
func (h *AttemptHandler) Complete(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	snap, err := h.controller.Complete(c.Request.Context(), id)
	respondAttempt(c, snap, err)
}

// POST /api/attempts/:id/start-new
func (h *AttemptHandler) StartNew(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	var ignored struct{}
	if !bindOptional(c, &ignored) {
		return
	}
	snap, err := h.controller.StartNew(id)
	respondAttempt(c, snap, err)
}

// DELETE /api/attempts/:id
func (h *AttemptHandler) Discard(c *gin.Context) {
	id, ok := attemptID(c)
	if !ok {
		return
	}
	if err := h.controller.Discard(c.Request.Context(), id); err != nil {
		response.Error(c, "attempt_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
