package assessment

import (
	"time"

	"github.com/google/uuid"
)

// SurveySession is one assessment attempt by one respondent.
// The completion fields are a cache over StageProgress and may lag behind it.
type SurveySession struct {
	SessionID       uuid.UUID `gorm:"type:uuid;primaryKey;column:session_id" json:"session_id"`
	UserIdentifier  string    `gorm:"column:user_identifier;type:varchar(64);not null;index" json:"user_identifier"`
	CompanyName     string    `gorm:"column:company_name;type:text;not null;index" json:"company_name"`
	RespondentName  string    `gorm:"column:respondent_name;type:text;not null" json:"respondent_name"`
	RespondentEmail string    `gorm:"column:respondent_email;type:text;not null;index" json:"respondent_email"`
	UserIPAddress   *string   `gorm:"column:user_ip_address;type:text" json:"user_ip_address,omitempty"`
	UserAgent       *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`

	CreatedAt    time.Time `gorm:"column:created_at;not null;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
	LastActivity time.Time `gorm:"column:last_activity;not null;index" json:"last_activity"`

	IsCompleted          bool       `gorm:"column:is_completed;not null;default:false;index" json:"is_completed"`
	CompletionDate       *time.Time `gorm:"column:completion_date" json:"completion_date,omitempty"`
	TotalQuestions       int        `gorm:"column:total_questions;not null;default:0" json:"total_questions"`
	AnsweredQuestions    int        `gorm:"column:answered_questions;not null;default:0" json:"answered_questions"`
	CompletionPercentage float64    `gorm:"column:completion_percentage;not null;default:0" json:"completion_percentage"`
}

func (SurveySession) TableName() string { return "survey_sessions" }
