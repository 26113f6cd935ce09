package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

type ResponseHandler struct {
	answers services.AnswerStore
}

func NewResponseHandler(answers services.AnswerStore) *ResponseHandler {
	return &ResponseHandler{answers: answers}
}

type answerRequest struct {
	StageName          string `json:"stage_name"`
	Capability         string `json:"capability"`
	Question           string `json:"question"`
	Rating             int    `json:"rating"`
	SelectedOptionText string `json:"selected_option_text"`
	RatingExplanation  string `json:"rating_explanation"`
}

func (r answerRequest) input() services.AnswerInput {
	return services.AnswerInput{
		Stage:       r.StageName,
		Capability:  r.Capability,
		Question:    r.Question,
		Rating:      r.Rating,
		OptionText:  r.SelectedOptionText,
		Explanation: r.RatingExplanation,
	}
}

type saveResponseRequest struct {
	SessionID string `json:"session_id"`
	answerRequest
	Answers []answerRequest `json:"answers"`
}

// POST /api/response
// Accepts one answer inline or a batch under "answers". In a batch, invalid
// answers are reported and skipped.
func (h *ResponseHandler) Save(c *gin.Context) {
	var req saveResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sid, err := services.ParseSessionID(req.SessionID)
	if err != nil {
		response.Error(c, "save_response_failed", err)
		return
	}

	if len(req.Answers) == 0 {
		row, err := h.answers.Upsert(c.Request.Context(), sid, req.answerRequest.input())
		if err != nil {
			response.Error(c, "save_response_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"response": row})
		return
	}

	in := make([]services.AnswerInput, 0, len(req.Answers))
	for _, a := range req.Answers {
		in = append(in, a.input())
	}
	res, err := h.answers.UpsertBatch(c.Request.Context(), sid, in)
	if err != nil {
		response.Error(c, "save_response_failed", err)
		return
	}
	skipped := make([]string, 0, len(res.Skipped))
	for _, e := range res.Skipped {
		skipped = append(skipped, e.Error())
	}
	response.RespondOK(c, gin.H{"saved": len(res.Saved), "skipped": skipped})
}

// GET /api/response?sessionId=
func (h *ResponseHandler) List(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Query("sessionId"))
	if err != nil {
		response.Error(c, "list_responses_failed", err)
		return
	}
	rows, err := h.answers.ListBySession(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, "list_responses_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"responses": rows})
}
