package assessment

import "time"

// SessionStatus filters admin listings.
type SessionStatus string

const (
	StatusAll        SessionStatus = "all"
	StatusCompleted  SessionStatus = "completed"
	StatusInProgress SessionStatus = "in_progress"
)

// SessionQuery pages and filters the admin session list.
type SessionQuery struct {
	Page      int
	Limit     int
	Search    string
	Status    SessionStatus
	SortBy    string
	SortOrder string
}

var sortableColumns = map[string]bool{
	"created_at":            true,
	"last_activity":         true,
	"completion_percentage": true,
	"company_name":          true,
}

// Normalized fills defaults and drops unknown sort keys.
func (q SessionQuery) Normalized() SessionQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 200 {
		q.Limit = 20
	}
	if q.Status != StatusCompleted && q.Status != StatusInProgress {
		q.Status = StatusAll
	}
	if !sortableColumns[q.SortBy] {
		q.SortBy = "created_at"
	}
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	return q
}

func (q SessionQuery) Offset() int { return (q.Page - 1) * q.Limit }

// SessionMetadataPatch holds admin-editable respondent fields. Nil leaves a field untouched.
type SessionMetadataPatch struct {
	CompanyName     *string `json:"company_name,omitempty"`
	RespondentName  *string `json:"respondent_name,omitempty"`
	RespondentEmail *string `json:"respondent_email,omitempty"`
}

func (p SessionMetadataPatch) Empty() bool {
	return p.CompanyName == nil && p.RespondentName == nil && p.RespondentEmail == nil
}

// SessionProgressUpdate refreshes the denormalized completion cache.
type SessionProgressUpdate struct {
	TotalQuestions       int
	AnsweredQuestions    int
	CompletionPercentage float64
	IsCompleted          bool
	CompletionDate       *time.Time
}

// SessionPage is one page of an admin listing.
type SessionPage struct {
	Sessions   []*SurveySession `json:"sessions"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

type SessionDetails struct {
	Session   *SurveySession    `json:"session"`
	Responses []*SurveyResponse `json:"responses"`
	Progress  []*StageProgress  `json:"progress"`
	Results   []*ResultSummary  `json:"results"`
}

type DashboardStats struct {
	TotalSurveys      int64   `json:"total_surveys"`
	CompletedSurveys  int64   `json:"completed_surveys"`
	InProgressSurveys int64   `json:"in_progress_surveys"`
	AverageCompletion float64 `json:"average_completion"`
	SurveysThisWeek   int64   `json:"surveys_this_week"`
	SurveysThisMonth  int64   `json:"surveys_this_month"`
	TotalResponses    int64   `json:"total_responses"`
}

type DailyCompletion struct {
	Date      string `json:"date"`
	Count     int    `json:"count"`
	Completed int    `json:"completed"`
}

type StageScore struct {
	StageName string  `json:"stage_name"`
	AvgScore  float64 `json:"avg_score"`
	Count     int     `json:"count"`
}

type RatingCount struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

type CompanyCount struct {
	CompanyName string `json:"company_name"`
	Count       int64  `json:"count"`
}

type Analytics struct {
	CompletionRates      []DailyCompletion `json:"completion_rates"`
	StageScores          []StageScore      `json:"stage_scores"`
	ResponseDistribution []RatingCount     `json:"response_distribution"`
	CompanySurveys       []CompanyCount    `json:"company_surveys"`
}
