package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

// adminSortKeys accepts the dashboard's camelCase sort names alongside column names.
var adminSortKeys = map[string]string{
	"createdAt":            "created_at",
	"lastActivity":         "last_activity",
	"completionPercentage": "completion_percentage",
	"companyName":          "company_name",
}

type AdminHandler struct {
	admin services.AdminService
}

func NewAdminHandler(admin services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// GET /api/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, "get_stats_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"stats": stats})
}

// GET /api/admin/analytics?days=
func (h *AdminHandler) Analytics(c *gin.Context) {
	out, err := h.admin.Analytics(c.Request.Context(), queryInt(c, "days"))
	if err != nil {
		response.Error(c, "get_analytics_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"analytics": out})
}

// GET /api/admin/surveys?page=&limit=&search=&status=&sortBy=&sortOrder=
func (h *AdminHandler) ListSurveys(c *gin.Context) {
	sortBy := c.Query("sortBy")
	if col, ok := adminSortKeys[sortBy]; ok {
		sortBy = col
	}
	page, err := h.admin.List(c.Request.Context(), assessment.SessionQuery{
		Page:      queryInt(c, "page"),
		Limit:     queryInt(c, "limit"),
		Search:    c.Query("search"),
		Status:    assessment.SessionStatus(c.Query("status")),
		SortBy:    sortBy,
		SortOrder: c.Query("sortOrder"),
	})
	if err != nil {
		response.Error(c, "list_surveys_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"surveys": page.Sessions,
		"pagination": gin.H{
			"page":        page.Page,
			"limit":       page.Limit,
			"total":       page.Total,
			"total_pages": page.TotalPages,
		},
	})
}

// GET /api/admin/surveys/:id
func (h *AdminHandler) GetSurvey(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Param("id"))
	if err != nil {
		response.Error(c, "get_survey_failed", err)
		return
	}
	details, err := h.admin.Details(c.Request.Context(), sid)
	if err != nil {
		response.Error(c, "get_survey_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"survey": details})
}

// PATCH /api/admin/surveys/:id
func (h *AdminHandler) UpdateSurvey(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Param("id"))
	if err != nil {
		response.Error(c, "update_survey_failed", err)
		return
	}
	var patch assessment.SessionMetadataPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sess, err := h.admin.UpdateMetadata(c.Request.Context(), sid, patch)
	if err != nil {
		response.Error(c, "update_survey_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}

// DELETE /api/admin/surveys/:id
func (h *AdminHandler) DeleteSurvey(c *gin.Context) {
	sid, err := services.ParseSessionID(c.Param("id"))
	if err != nil {
		response.Error(c, "delete_survey_failed", err)
		return
	}
	if err := h.admin.DeleteSession(c.Request.Context(), sid); err != nil {
		response.Error(c, "delete_survey_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

type deleteAnswerRequest struct {
	SessionID  string `json:"session_id"`
	StageName  string `json:"stage_name"`
	Capability string `json:"capability"`
}

// DELETE /api/admin/responses
func (h *AdminHandler) DeleteResponse(c *gin.Context) {
	var req deleteAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	sid, err := services.ParseSessionID(req.SessionID)
	if err != nil {
		response.Error(c, "delete_response_failed", err)
		return
	}
	if err := h.admin.DeleteAnswer(c.Request.Context(), sid, req.StageName, req.Capability); err != nil {
		response.Error(c, "delete_response_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
