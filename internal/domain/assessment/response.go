package assessment

import (
	"time"

	"github.com/google/uuid"
)

// SurveyResponse is the persisted answer for one capability of one stage.
// (session_id, stage_name, capability) is the durable key; question names are
// UI-local and never stored as identity.
type SurveyResponse struct {
	SessionID          uuid.UUID `gorm:"type:uuid;primaryKey;column:session_id" json:"session_id"`
	StageName          string    `gorm:"primaryKey;column:stage_name;type:varchar(255)" json:"stage_name"`
	Capability         string    `gorm:"primaryKey;column:capability;type:varchar(512)" json:"capability"`
	Question           string    `gorm:"column:question;type:text;not null" json:"question"`
	Rating             *int      `gorm:"column:rating" json:"rating"`
	RatingExplanation  *string   `gorm:"column:rating_explanation;type:text" json:"rating_explanation,omitempty"`
	SelectedOptionText *string   `gorm:"column:selected_option_text;type:text" json:"selected_option_text,omitempty"`
	AnsweredAt         time.Time `gorm:"column:answered_at;not null" json:"answered_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (SurveyResponse) TableName() string { return "survey_responses" }

// RatingValue returns the rating, or 0 when it is unset.
func (r *SurveyResponse) RatingValue() int {
	if r == nil || r.Rating == nil {
		return 0
	}
	return *r.Rating
}
