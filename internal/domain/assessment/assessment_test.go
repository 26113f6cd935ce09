package assessment

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUserIdentifierIsCaseInsensitive(t *testing.T) {
	a := UserIdentifier("Jane@Example.com", "Acme Corp")
	b := UserIdentifier("  jane@example.com ", "acme   corp")
	if a != b {
		t.Fatalf("identifiers differ: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("identifier length: want 16 got %d", len(a))
	}
}

func TestStageNameHelpers(t *testing.T) {
	if got := ParseStageNumber("3: Contract Workflow Automation"); got != 3 {
		t.Fatalf("ParseStageNumber: want 3 got %d", got)
	}
	if got := ParseStageNumber("CLM Stage 3: Workflow"); got != 0 {
		t.Fatalf("ParseStageNumber without prefix: want 0 got %d", got)
	}
	if got := FormatStageName("12: Execution"); got != "Execution" {
		t.Fatalf("FormatStageName: got %q", got)
	}
}

func TestScaledScoreBoundaries(t *testing.T) {
	cases := map[float64]float64{1: 0, 3: 50, 5: 100, 2.5: 37.5}
	for avg, want := range cases {
		if got := ScaledScore(avg); math.Abs(got-want) > 1e-9 {
			t.Fatalf("ScaledScore(%v): want %v got %v", avg, want, got)
		}
	}
}

func TestNewStageProgressClampsAndCompletes(t *testing.T) {
	now := time.Now().UTC()
	sid := uuid.New()

	p := NewStageProgress(sid, "S", 1, 3, 5, now)
	if p.AnsweredQuestions != 3 || !p.IsCompleted || p.CompletionPercentage != 100 {
		t.Fatalf("over-answered stage: %+v", p)
	}
	if p.CompletedAt == nil {
		t.Fatalf("completed stage should carry CompletedAt")
	}

	empty := NewStageProgress(sid, "S", 1, 0, 0, now)
	if !empty.IsCompleted || empty.CompletionPercentage != 0 {
		t.Fatalf("empty stage should be complete at 0%%: %+v", empty)
	}
}

func TestSumProgressCountsOnlyGivenStages(t *testing.T) {
	sid := uuid.New()
	now := time.Now()
	rows := []*StageProgress{
		NewStageProgress(sid, "A", 1, 5, 5, now),
		NewStageProgress(sid, "B", 2, 5, 0, now),
	}
	got := SumProgress(rows)
	if got.AnsweredQuestions != 5 || got.TotalQuestions != 10 || got.Percentage != 50 {
		t.Fatalf("SumProgress: %+v", got)
	}
}

func TestResultIDStable(t *testing.T) {
	sid := uuid.New()
	if ResultID(sid, "A") != ResultID(sid, "A") {
		t.Fatalf("ResultID not deterministic")
	}
	if ResultID(sid, "A") == ResultID(sid, "B") {
		t.Fatalf("ResultID collides across stages")
	}
}

func TestSessionQueryNormalized(t *testing.T) {
	q := SessionQuery{SortBy: "drop table", SortOrder: "sideways", Status: "x"}.Normalized()
	if q.Page != 1 || q.Limit != 20 || q.SortBy != "created_at" || q.SortOrder != "desc" || q.Status != StatusAll {
		t.Fatalf("Normalized: %+v", q)
	}
	if (SessionQuery{Page: 3, Limit: 10}).Normalized().Offset() != 20 {
		t.Fatalf("Offset mismatch")
	}
}
