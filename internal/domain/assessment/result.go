package assessment

import (
	"time"

	"github.com/google/uuid"
)

type ResultSummary struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	SessionID        uuid.UUID `gorm:"type:uuid;column:session_id;not null;uniqueIndex:idx_results_session_stage" json:"session_id"`
	StageName        string    `gorm:"column:stage_name;type:varchar(255);not null;uniqueIndex:idx_results_session_stage" json:"stage_name"`
	StageAverage     float64   `gorm:"column:stage_average;not null" json:"stage_average"`
	StageScaledScore float64   `gorm:"column:stage_scaled_score;not null" json:"stage_scaled_score"`
	QuestionCount    int       `gorm:"column:question_count;not null" json:"question_count"`
	AnsweredCount    int       `gorm:"column:answered_count;not null" json:"answered_count"`
	CalculatedAt     time.Time `gorm:"column:calculated_at;not null" json:"calculated_at"`
}

func (ResultSummary) TableName() string { return "survey_results_summary" }

var resultNamespace = uuid.MustParse("6f1d8c52-3b57-4d0e-9a8e-2c5b7e0f4a11")

// ResultID is stable per (session, stage) so repeated recomputes write the same row ids.
func ResultID(sessionID uuid.UUID, stage string) uuid.UUID {
	return uuid.NewSHA1(resultNamespace, []byte(sessionID.String()+"|"+stage))
}

// ScaledScore maps a 1..5 average onto 0..100.
func ScaledScore(avg float64) float64 {
	return (avg - 1) * 25
}
