package assessment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type ResultSummaryRepo interface {
	Create(dbc dbctx.Context, rows []*types.ResultSummary) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ResultSummary, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
	StageScores(dbc dbctx.Context) ([]types.StageScore, error)
}

type resultSummaryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResultSummaryRepo(db *gorm.DB, baseLog *logger.Logger) ResultSummaryRepo {
	return &resultSummaryRepo{
		db:  db,
		log: baseLog.With("repo", "ResultSummaryRepo"),
	}
}

func (r *resultSummaryRepo) Create(dbc dbctx.Context, rows []*types.ResultSummary) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(&rows).Error
}

func (r *resultSummaryRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ResultSummary, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ResultSummary
	err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("stage_name").
		Find(&out).Error
	return out, err
}

func (r *resultSummaryRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.ResultSummary{}).Error
}

// StageScores averages the scaled score per stage across all sessions.
func (r *resultSummaryRepo) StageScores(dbc dbctx.Context) ([]types.StageScore, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []types.StageScore
	err := t.WithContext(dbc.Ctx).
		Model(&types.ResultSummary{}).
		Select("stage_name, AVG(stage_scaled_score) AS avg_score, COUNT(*) AS count").
		Group("stage_name").
		Order("stage_name").
		Scan(&out).Error
	return out, err
}
