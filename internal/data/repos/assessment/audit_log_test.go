package assessment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
)

func TestAuditLogRepoRecord(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewAuditLogRepo(db, testutil.Logger(t))
	s := testutil.SeedSession(t, ctx, tx, "audit@example.com", "Audit Co", time.Now())
	sid := s.SessionID

	if err := repo.Record(dbc, &sid, "survey_sessions", types.AuditInsert, s.UserIdentifier, nil, map[string]any{"company_name": "Audit Co"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	rows, err := repo.ListBySession(dbc, sid)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != 1 || rows[0].OperationType != types.AuditInsert || rows[0].Table != "survey_sessions" {
		t.Fatalf("ListBySession: unexpected %+v", rows)
	}
	var vals map[string]any
	if err := json.Unmarshal(rows[0].NewValues, &vals); err != nil {
		t.Fatalf("new_values json: %v", err)
	}
	if vals["company_name"] != "Audit Co" {
		t.Fatalf("new_values: %v", vals)
	}
	if len(rows[0].OldValues) != 0 {
		t.Fatalf("old_values should be empty, got %s", rows[0].OldValues)
	}
}
