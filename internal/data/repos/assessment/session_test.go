package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
)

func TestSessionRepoLookups(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewSessionRepo(db, testutil.Logger(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	email := "lookup-" + uuid.NewString()[:8] + "@example.com"
	company := "Lookup Co " + uuid.NewString()[:8]

	older := testutil.SeedSession(t, ctx, tx, email, company, base)
	newer := testutil.SeedSession(t, ctx, tx, email, company, base.Add(time.Hour))

	got, err := repo.GetByID(dbc, older.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.SessionID != older.SessionID {
		t.Fatalf("GetByID: unexpected %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): got %+v err=%v", missing, err)
	}

	latest, err := repo.LatestByEmail(dbc, "  "+email+"  ")
	if err != nil {
		t.Fatalf("LatestByEmail: %v", err)
	}
	if latest == nil || latest.SessionID != newer.SessionID {
		t.Fatalf("LatestByEmail: want newest session, got %+v", latest)
	}

	byCompany, err := repo.LatestByCompany(dbc, lowerASCII(company))
	if err != nil {
		t.Fatalf("LatestByCompany: %v", err)
	}
	if byCompany == nil || byCompany.SessionID != newer.SessionID {
		t.Fatalf("LatestByCompany: want newest session, got %+v", byCompany)
	}

	all, err := repo.ListByCompany(dbc, company)
	if err != nil {
		t.Fatalf("ListByCompany: %v", err)
	}
	if len(all) != 2 || all[0].SessionID != newer.SessionID || all[1].SessionID != older.SessionID {
		t.Fatalf("ListByCompany: unexpected order %+v", all)
	}
}

func TestSessionRepoTouchIsMonotonic(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewSessionRepo(db, testutil.Logger(t))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := testutil.SeedSession(t, ctx, tx, "touch@example.com", "Touch Co", base)

	later := base.Add(2 * time.Hour)
	if err := repo.Touch(dbc, s.SessionID, later); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if err := repo.Touch(dbc, s.SessionID, base.Add(time.Hour)); err != nil {
		t.Fatalf("Touch(earlier): %v", err)
	}
	got, err := repo.GetByID(dbc, s.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.LastActivity.Equal(later) {
		t.Fatalf("last_activity: want %v got %v", later, got.LastActivity)
	}
}

func TestSessionRepoListAndDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewSessionRepo(db, testutil.Logger(t))
	tag := uuid.NewString()[:8]
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	a := testutil.SeedSession(t, ctx, tx, "a-"+tag+"@example.com", "Alpha "+tag, base)
	b := testutil.SeedSession(t, ctx, tx, "b-"+tag+"@example.com", "Beta "+tag, base.Add(time.Minute))

	done := base.Add(time.Hour)
	if err := repo.UpdateProgress(dbc, b.SessionID, types.SessionProgressUpdate{
		TotalQuestions:       3,
		AnsweredQuestions:    3,
		CompletionPercentage: 100,
		IsCompleted:          true,
		CompletionDate:       &done,
	}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	rows, total, err := repo.List(dbc, types.SessionQuery{Search: tag, Status: types.StatusCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].SessionID != b.SessionID {
		t.Fatalf("List(completed): total=%d rows=%+v", total, rows)
	}

	rows, total, err = repo.List(dbc, types.SessionQuery{Search: tag, SortBy: "company_name", SortOrder: "asc"})
	if err != nil {
		t.Fatalf("List(all): %v", err)
	}
	if total != 2 || rows[0].SessionID != a.SessionID {
		t.Fatalf("List(all): total=%d first=%v", total, rows[0].SessionID)
	}

	deleted, err := repo.Delete(dbc, a.SessionID)
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.Delete(dbc, a.SessionID)
	if err != nil || deleted {
		t.Fatalf("Delete(again): deleted=%v err=%v", deleted, err)
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
