package assessment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type StageProgressRepo interface {
	Get(dbc dbctx.Context, sessionID uuid.UUID, stage string) (*types.StageProgress, error)
	// Upsert keeps started_at from the first write.
	Upsert(dbc dbctx.Context, row *types.StageProgress) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.StageProgress, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
}

type stageProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStageProgressRepo(db *gorm.DB, baseLog *logger.Logger) StageProgressRepo {
	return &stageProgressRepo{
		db:  db,
		log: baseLog.With("repo", "StageProgressRepo"),
	}
}

func (r *stageProgressRepo) Get(dbc dbctx.Context, sessionID uuid.UUID, stage string) (*types.StageProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.StageProgress
	if err := t.WithContext(dbc.Ctx).
		Where("session_id = ? AND stage_name = ?", sessionID, stage).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *stageProgressRepo) Upsert(dbc dbctx.Context, row *types.StageProgress) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.SessionID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "stage_name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stage_order",
				"total_questions",
				"answered_questions",
				"completion_percentage",
				"is_completed",
				"completed_at",
				"last_updated",
			}),
		}).
		Create(row).Error
}

func (r *stageProgressRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.StageProgress, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.StageProgress
	err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("stage_order").
		Order("stage_name").
		Find(&out).Error
	return out, err
}

func (r *stageProgressRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.StageProgress{}).Error
}
