package assessment

import (
	"time"

	"github.com/google/uuid"
)

type StageProgress struct {
	SessionID            uuid.UUID  `gorm:"type:uuid;primaryKey;column:session_id" json:"session_id"`
	StageName            string     `gorm:"primaryKey;column:stage_name;type:varchar(255)" json:"stage_name"`
	StageOrder           int        `gorm:"column:stage_order;not null" json:"stage_order"`
	TotalQuestions       int        `gorm:"column:total_questions;not null" json:"total_questions"`
	AnsweredQuestions    int        `gorm:"column:answered_questions;not null;default:0" json:"answered_questions"`
	CompletionPercentage float64    `gorm:"column:completion_percentage;not null;default:0" json:"completion_percentage"`
	IsCompleted          bool       `gorm:"column:is_completed;not null;default:false" json:"is_completed"`
	StartedAt            time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	CompletedAt          *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastUpdated          time.Time  `gorm:"column:last_updated;not null" json:"last_updated"`
}

func (StageProgress) TableName() string { return "stage_progress" }

// NewStageProgress derives the completion fields from raw counts.
// answered is clamped to [0,total]; a stage with no questions is never complete.
func NewStageProgress(sessionID uuid.UUID, stage string, order, total, answered int, now time.Time) *StageProgress {
	if total < 0 {
		total = 0
	}
	if answered < 0 {
		answered = 0
	}
	if answered > total {
		answered = total
	}
	p := &StageProgress{
		SessionID:         sessionID,
		StageName:         stage,
		StageOrder:        order,
		TotalQuestions:    total,
		AnsweredQuestions: answered,
		IsCompleted:       answered == total,
		StartedAt:         now,
		LastUpdated:       now,
	}
	p.CompletionPercentage = Percent(answered, total)
	if p.IsCompleted {
		at := now
		p.CompletedAt = &at
	}
	return p
}

// Percent is 100*part/whole, or 0 for an empty whole.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// OverallProgress sums answered/total over the given (visited) stages.
type OverallProgress struct {
	AnsweredQuestions int     `json:"answered_questions"`
	TotalQuestions    int     `json:"total_questions"`
	Percentage        float64 `json:"percentage"`
}

func SumProgress(rows []*StageProgress) OverallProgress {
	var out OverallProgress
	for _, r := range rows {
		if r == nil {
			continue
		}
		out.AnsweredQuestions += r.AnsweredQuestions
		out.TotalQuestions += r.TotalQuestions
	}
	out.Percentage = Percent(out.AnsweredQuestions, out.TotalQuestions)
	return out
}
