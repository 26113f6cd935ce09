package assessment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type AuditLogRepo interface {
	// Record marshals oldValues/newValues to JSON; nil values are stored as NULL.
	Record(dbc dbctx.Context, sessionID *uuid.UUID, table, op, userIdentifier string, oldValues, newValues any) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AuditLogEntry, error)
}

type auditLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return &auditLogRepo{
		db:  db,
		log: baseLog.With("repo", "AuditLogRepo"),
	}
}

func (r *auditLogRepo) Record(dbc dbctx.Context, sessionID *uuid.UUID, table, op, userIdentifier string, oldValues, newValues any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	oldJSON, err := toJSON(oldValues)
	if err != nil {
		return err
	}
	newJSON, err := toJSON(newValues)
	if err != nil {
		return err
	}
	entry := &types.AuditLogEntry{
		LogID:          uuid.New(),
		SessionID:      sessionID,
		Table:          table,
		OperationType:  op,
		OldValues:      oldJSON,
		NewValues:      newJSON,
		UserIdentifier: userIdentifier,
		CreatedAt:      time.Now().UTC(),
	}
	return t.WithContext(dbc.Ctx).Create(entry).Error
}

func (r *auditLogRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AuditLogEntry, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.AuditLogEntry
	err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at").
		Find(&out).Error
	return out, err
}

func toJSON(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
