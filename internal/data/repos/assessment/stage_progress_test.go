package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
)

func TestStageProgressRepoUpsertKeepsStartedAt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewStageProgressRepo(db, testutil.Logger(t))
	s := testutil.SeedSession(t, ctx, tx, "progress@example.com", "Progress Co", time.Now())

	t0 := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Upsert(dbc, types.NewStageProgress(s.SessionID, "Stage B", 2, 4, 1, t0)); err != nil {
		t.Fatalf("Upsert(first): %v", err)
	}
	t1 := t0.Add(5 * time.Minute)
	if err := repo.Upsert(dbc, types.NewStageProgress(s.SessionID, "Stage B", 2, 4, 4, t1)); err != nil {
		t.Fatalf("Upsert(second): %v", err)
	}
	if err := repo.Upsert(dbc, types.NewStageProgress(s.SessionID, "Stage A", 1, 2, 0, t1)); err != nil {
		t.Fatalf("Upsert(stage A): %v", err)
	}

	got, err := repo.Get(dbc, s.SessionID, "Stage B")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || !got.IsCompleted || got.AnsweredQuestions != 4 || got.CompletionPercentage != 100 {
		t.Fatalf("Get: unexpected %+v", got)
	}
	if !got.StartedAt.Equal(t0) {
		t.Fatalf("started_at: want %v got %v", t0, got.StartedAt)
	}
	if !got.LastUpdated.Equal(t1) {
		t.Fatalf("last_updated: want %v got %v", t1, got.LastUpdated)
	}

	rows, err := repo.ListBySession(dbc, s.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != 2 || rows[0].StageName != "Stage A" {
		t.Fatalf("ListBySession: want stage order, got %+v", rows)
	}

	if err := repo.DeleteBySession(dbc, s.SessionID); err != nil {
		t.Fatalf("DeleteBySession: %v", err)
	}
	none, err := repo.Get(dbc, s.SessionID, "Stage B")
	if err != nil || none != nil {
		t.Fatalf("Get after delete: %+v err=%v", none, err)
	}
}
