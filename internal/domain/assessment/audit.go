package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AuditInsert = "INSERT"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
)

type AuditLogEntry struct {
	LogID          uuid.UUID      `gorm:"type:uuid;primaryKey;column:log_id" json:"log_id"`
	SessionID      *uuid.UUID     `gorm:"type:uuid;column:session_id;index" json:"session_id,omitempty"`
	Table          string         `gorm:"column:table_name;type:varchar(100);not null" json:"table_name"`
	OperationType  string         `gorm:"column:operation_type;type:varchar(20);not null" json:"operation_type"`
	OldValues      datatypes.JSON `gorm:"column:old_values" json:"old_values,omitempty"`
	NewValues      datatypes.JSON `gorm:"column:new_values" json:"new_values,omitempty"`
	UserIdentifier string         `gorm:"column:user_identifier;type:varchar(64)" json:"user_identifier,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (AuditLogEntry) TableName() string { return "audit_log" }
