package assessment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type ResponseRepo interface {
	// Upsert writes one answer keyed by (session, stage, capability). On
	// conflict only the rating fields and updated_at change; answered_at
	// keeps its first value.
	Upsert(dbc dbctx.Context, row *types.SurveyResponse) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SurveyResponse, error)
	Delete(dbc dbctx.Context, sessionID uuid.UUID, stage, capability string) (bool, error)
	DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error
	Count(dbc dbctx.Context) (int64, error)
	RatingDistribution(dbc dbctx.Context) ([]types.RatingCount, error)
}

type responseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return &responseRepo{
		db:  db,
		log: baseLog.With("repo", "ResponseRepo"),
	}
}

func (r *responseRepo) Upsert(dbc dbctx.Context, row *types.SurveyResponse) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.SessionID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "session_id"},
				{Name: "stage_name"},
				{Name: "capability"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"rating",
				"rating_explanation",
				"selected_option_text",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *responseRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SurveyResponse, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.SurveyResponse
	if sessionID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("stage_name").
		Order("capability").
		Find(&out).Error
	return out, err
}

func (r *responseRepo) Delete(dbc dbctx.Context, sessionID uuid.UUID, stage, capability string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("session_id = ? AND stage_name = ? AND capability = ?", sessionID, stage, capability).
		Delete(&types.SurveyResponse{})
	return res.RowsAffected > 0, res.Error
}

func (r *responseRepo) DeleteBySession(dbc dbctx.Context, sessionID uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Delete(&types.SurveyResponse{}).Error
}

func (r *responseRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	err := t.WithContext(dbc.Ctx).Model(&types.SurveyResponse{}).Count(&n).Error
	return n, err
}

func (r *responseRepo) RatingDistribution(dbc dbctx.Context) ([]types.RatingCount, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []types.RatingCount
	err := t.WithContext(dbc.Ctx).
		Model(&types.SurveyResponse{}).
		Select("rating, COUNT(*) AS count").
		Where("rating IS NOT NULL").
		Group("rating").
		Order("rating").
		Scan(&out).Error
	return out, err
}
