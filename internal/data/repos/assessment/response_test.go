package assessment

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
)

func TestResponseRepoUpsertOverwritesRating(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewResponseRepo(db, testutil.Logger(t))
	s := testutil.SeedSession(t, ctx, tx, "resp@example.com", "Resp Co", time.Now())

	first := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	r1, r2 := 2, 4
	if err := repo.Upsert(dbc, &types.SurveyResponse{
		SessionID: s.SessionID, StageName: "Stage A", Capability: "cap-1",
		Question: "Q1", Rating: &r1, AnsweredAt: first, UpdatedAt: first,
	}); err != nil {
		t.Fatalf("Upsert(first): %v", err)
	}
	second := first.Add(time.Minute)
	opt := "Managed"
	if err := repo.Upsert(dbc, &types.SurveyResponse{
		SessionID: s.SessionID, StageName: "Stage A", Capability: "cap-1",
		Question: "Q1", Rating: &r2, SelectedOptionText: &opt, AnsweredAt: second, UpdatedAt: second,
	}); err != nil {
		t.Fatalf("Upsert(second): %v", err)
	}

	rows, err := repo.ListBySession(dbc, s.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("ListBySession: want 1 row got %d", len(rows))
	}
	got := rows[0]
	if got.RatingValue() != 4 || got.SelectedOptionText == nil || *got.SelectedOptionText != opt {
		t.Fatalf("overwrite not applied: %+v", got)
	}
	if !got.AnsweredAt.Equal(first) {
		t.Fatalf("answered_at changed: want %v got %v", first, got.AnsweredAt)
	}
	if !got.UpdatedAt.Equal(second) {
		t.Fatalf("updated_at: want %v got %v", second, got.UpdatedAt)
	}
}

func TestResponseRepoOrderingAndDelete(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewResponseRepo(db, testutil.Logger(t))
	s := testutil.SeedSession(t, ctx, tx, "order@example.com", "Order Co", time.Now())
	testutil.SeedAnswer(t, ctx, tx, s.SessionID, "Stage B", "b", 3)
	testutil.SeedAnswer(t, ctx, tx, s.SessionID, "Stage A", "z", 1)
	testutil.SeedAnswer(t, ctx, tx, s.SessionID, "Stage A", "a", 5)

	rows, err := repo.ListBySession(dbc, s.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	var keys []string
	for _, r := range rows {
		keys = append(keys, r.StageName+"/"+r.Capability)
	}
	want := []string{"Stage A/a", "Stage A/z", "Stage B/b"}
	if len(keys) != len(want) {
		t.Fatalf("ListBySession: got %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("ListBySession order: want %v got %v", want, keys)
		}
	}

	ok, err := repo.Delete(dbc, s.SessionID, "Stage A", "z")
	if err != nil || !ok {
		t.Fatalf("Delete: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Delete(dbc, s.SessionID, "Stage A", "z")
	if err != nil || ok {
		t.Fatalf("Delete(missing): ok=%v err=%v", ok, err)
	}

	dist, err := repo.RatingDistribution(dbc)
	if err != nil {
		t.Fatalf("RatingDistribution: %v", err)
	}
	var sum int64
	for _, d := range dist {
		sum += d.Count
	}
	if sum < 2 {
		t.Fatalf("RatingDistribution: expected at least 2 ratings, got %+v", dist)
	}
}
