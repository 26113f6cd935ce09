package aggregates_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/maturity-assessment-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/maturity-assessment-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/maturity-assessment-backend/internal/data/repos"
	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
)

type fixture struct {
	db    *gorm.DB
	agg   domainagg.AssessmentSessionAggregate
	repos struct {
		sessions  repos.SessionRepo
		responses repos.ResponseRepo
		progress  repos.StageProgressRepo
		results   repos.ResultSummaryRepo
		audit     repos.AuditLogRepo
	}
	hooks *aggtest.HooksRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	f := &fixture{db: db, hooks: &aggtest.HooksRecorder{}}
	f.repos.sessions = repos.NewSessionRepo(db, log)
	f.repos.responses = repos.NewResponseRepo(db, log)
	f.repos.progress = repos.NewStageProgressRepo(db, log)
	f.repos.results = repos.NewResultSummaryRepo(db, log)
	f.repos.audit = repos.NewAuditLogRepo(db, log)
	f.agg = aggregates.NewAssessmentSessionAggregate(aggregates.AssessmentSessionAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: log, Hooks: f.hooks},
		Sessions:  f.repos.sessions,
		Responses: f.repos.responses,
		Progress:  f.repos.progress,
		Results:   f.repos.results,
		Audit:     f.repos.audit,
	})
	return f
}

func (f *fixture) createSession(t *testing.T) *assessment.SurveySession {
	t.Helper()
	now := time.Now().UTC()
	s := &assessment.SurveySession{
		SessionID:       uuid.New(),
		UserIdentifier:  assessment.UserIdentifier("agg@example.com", "Agg Co"),
		CompanyName:     "Agg Co",
		RespondentName:  "Agg",
		RespondentEmail: "agg@example.com",
		CreatedAt:       now,
		UpdatedAt:       now,
		LastActivity:    now,
		TotalQuestions:  3,
	}
	if err := f.agg.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s
}

func TestCreateSessionWritesAudit(t *testing.T) {
	f := newFixture(t)
	s := f.createSession(t)

	entries, err := f.repos.audit.ListBySession(dbctx.Background(context.Background()), s.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(entries) != 1 || entries[0].OperationType != assessment.AuditInsert {
		t.Fatalf("audit entries: %+v", entries)
	}
}

func TestRecordStageProgressRefreshesSessionCache(t *testing.T) {
	f := newFixture(t)
	s := f.createSession(t)
	ctx := context.Background()
	t0 := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	res, err := f.agg.RecordStageProgress(ctx, domainagg.RecordStageProgressInput{
		Progress:        assessment.NewStageProgress(s.SessionID, "Stage A", 1, 2, 1, t0),
		DefinitionTotal: 3,
		StageCount:      2,
	})
	if err != nil {
		t.Fatalf("RecordStageProgress(first): %v", err)
	}
	if res.Previous != nil {
		t.Fatalf("first write should have no previous row")
	}

	t1 := t0.Add(time.Minute)
	res, err = f.agg.RecordStageProgress(ctx, domainagg.RecordStageProgressInput{
		Progress:        assessment.NewStageProgress(s.SessionID, "Stage A", 1, 2, 2, t1),
		DefinitionTotal: 3,
		StageCount:      2,
	})
	if err != nil {
		t.Fatalf("RecordStageProgress(second): %v", err)
	}
	if res.Previous == nil || res.Previous.IsCompleted {
		t.Fatalf("previous should be incomplete: %+v", res.Previous)
	}
	if !res.Current.IsCompleted || !res.Current.StartedAt.Equal(t0) {
		t.Fatalf("current: %+v", res.Current)
	}
	if res.Session.IsCompleted {
		t.Fatalf("session should not be complete with one of two stages")
	}

	got, err := f.repos.sessions.GetByID(dbctx.Background(ctx), s.SessionID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AnsweredQuestions != 2 || got.TotalQuestions != 3 {
		t.Fatalf("session cache: answered=%d total=%d", got.AnsweredQuestions, got.TotalQuestions)
	}

	res, err = f.agg.RecordStageProgress(ctx, domainagg.RecordStageProgressInput{
		Progress:        assessment.NewStageProgress(s.SessionID, "Stage B", 2, 1, 1, t1),
		DefinitionTotal: 3,
		StageCount:      2,
	})
	if err != nil {
		t.Fatalf("RecordStageProgress(stage B): %v", err)
	}
	if !res.Session.IsCompleted || res.Session.CompletionDate == nil || res.Session.CompletionPercentage != 100 {
		t.Fatalf("session should be complete: %+v", res.Session)
	}
}

func TestRecordStageProgressUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.agg.RecordStageProgress(context.Background(), domainagg.RecordStageProgressInput{
		Progress: assessment.NewStageProgress(uuid.New(), "Stage A", 1, 2, 1, time.Now()),
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestReplaceResultsRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	s := f.createSession(t)
	ctx := context.Background()

	good := func(_ []*assessment.SurveyResponse, now time.Time) []*assessment.ResultSummary {
		return []*assessment.ResultSummary{{
			ID: assessment.ResultID(s.SessionID, "Stage A"), SessionID: s.SessionID, StageName: "Stage A",
			StageAverage: 3, StageScaledScore: 50, QuestionCount: 2, AnsweredCount: 2, CalculatedAt: now,
		}}
	}
	if _, err := f.agg.ReplaceResults(ctx, s.SessionID, good); err != nil {
		t.Fatalf("ReplaceResults(good): %v", err)
	}

	dup := func(_ []*assessment.SurveyResponse, now time.Time) []*assessment.ResultSummary {
		id := uuid.New()
		return []*assessment.ResultSummary{
			{ID: id, SessionID: s.SessionID, StageName: "Stage X", CalculatedAt: now},
			{ID: id, SessionID: s.SessionID, StageName: "Stage Y", CalculatedAt: now},
		}
	}
	_, err := f.agg.ReplaceResults(ctx, s.SessionID, dup)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("want conflict, got %q (%v)", domainagg.CodeOf(err), err)
	}
	if len(f.hooks.Conflicts) != 1 {
		t.Fatalf("conflict hook: %v", f.hooks.Conflicts)
	}

	rows, err := f.repos.results.ListBySession(dbctx.Background(ctx), s.SessionID)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(rows) != 1 || rows[0].StageName != "Stage A" || rows[0].StageScaledScore != 50 {
		t.Fatalf("prior results not preserved: %+v", rows)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	f := newFixture(t)
	s := f.createSession(t)
	ctx := context.Background()
	dbc := dbctx.Background(ctx)

	testutil.SeedAnswer(t, ctx, f.db, s.SessionID, "Stage A", "cap", 4)
	if err := f.repos.progress.Upsert(dbc, assessment.NewStageProgress(s.SessionID, "Stage A", 1, 1, 1, time.Now())); err != nil {
		t.Fatalf("seed progress: %v", err)
	}

	existed, err := f.agg.DeleteSession(ctx, s.SessionID)
	if err != nil || !existed {
		t.Fatalf("DeleteSession: existed=%v err=%v", existed, err)
	}
	answers, _ := f.repos.responses.ListBySession(dbc, s.SessionID)
	progress, _ := f.repos.progress.ListBySession(dbc, s.SessionID)
	sess, _ := f.repos.sessions.GetByID(dbc, s.SessionID)
	if len(answers) != 0 || len(progress) != 0 || sess != nil {
		t.Fatalf("cascade incomplete: answers=%d progress=%d session=%v", len(answers), len(progress), sess)
	}

	existed, err = f.agg.DeleteSession(ctx, s.SessionID)
	if err != nil || existed {
		t.Fatalf("DeleteSession(again): existed=%v err=%v", existed, err)
	}
}

func TestUpdateMetadataRecomputesIdentifier(t *testing.T) {
	f := newFixture(t)
	s := f.createSession(t)
	email := "  New@Example.com "

	got, err := f.agg.UpdateMetadata(context.Background(), s.SessionID, assessment.SessionMetadataPatch{RespondentEmail: &email})
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if got.RespondentEmail != "new@example.com" {
		t.Fatalf("email not normalized: %q", got.RespondentEmail)
	}
	if got.UserIdentifier != assessment.UserIdentifier("new@example.com", "Agg Co") {
		t.Fatalf("identifier not recomputed")
	}

	empty := " "
	_, err = f.agg.UpdateMetadata(context.Background(), s.SessionID, assessment.SessionMetadataPatch{CompanyName: &empty})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation, got %q (%v)", domainagg.CodeOf(err), err)
	}
}
