package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/http/response"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

var errMissingLookup = errors.New("one of sessionId, email or company is required")

type SessionHandler struct {
	identity services.IdentityResolver
}

func NewSessionHandler(identity services.IdentityResolver) *SessionHandler {
	return &SessionHandler{identity: identity}
}

type createSessionRequest struct {
	CompanyName     string `json:"company_name"`
	RespondentName  string `json:"respondent_name"`
	RespondentEmail string `json:"respondent_email"`
	CreateAnyway    bool   `json:"create_anyway"`
}

// POST /api/session
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.identity.Create(c.Request.Context(), services.IdentityInput{
		CompanyName:     req.CompanyName,
		RespondentName:  req.RespondentName,
		RespondentEmail: req.RespondentEmail,
		IPAddress:       c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	}, req.CreateAnyway)
	if err != nil {
		response.Error(c, "create_session_failed", err)
		return
	}
	if res.Duplicate != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":            response.APIError{Message: "a session already exists for this email", Code: "duplicate_identity"},
			"existing_session": res.Duplicate,
		})
		return
	}
	response.RespondCreated(c, gin.H{"session_id": res.Session.SessionID, "session": res.Session})
}

// GET /api/session?sessionId=|email=|company=[&all=true]
func (h *SessionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := strings.TrimSpace(c.Query("sessionId"))
	email := strings.TrimSpace(c.Query("email"))
	company := strings.TrimSpace(c.Query("company"))

	if company != "" && sessionID == "" && email == "" && c.Query("all") == "true" {
		sessions, err := h.identity.AllByCompany(ctx, company)
		if err != nil {
			response.Error(c, "get_session_failed", err)
			return
		}
		response.RespondOK(c, gin.H{"sessions": sessions})
		return
	}

	var (
		sess *assessment.SurveySession
		err  error
	)
	switch {
	case sessionID != "":
		sess, err = h.identity.ByID(ctx, sessionID)
	case email != "":
		sess, err = h.identity.ByEmail(ctx, email)
	case company != "":
		sess, err = h.identity.ByCompany(ctx, company)
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errMissingLookup)
		return
	}
	if err != nil {
		response.Error(c, "get_session_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"session": sess})
}
