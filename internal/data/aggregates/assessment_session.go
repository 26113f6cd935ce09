package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
)

type AssessmentSessionAggregateDeps struct {
	Base BaseDeps

	Sessions  repos.SessionRepo
	Responses repos.ResponseRepo
	Progress  repos.StageProgressRepo
	Results   repos.ResultSummaryRepo
	Audit     repos.AuditLogRepo
}

type assessmentSessionAggregate struct {
	deps AssessmentSessionAggregateDeps
}

func NewAssessmentSessionAggregate(deps AssessmentSessionAggregateDeps) domainagg.AssessmentSessionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &assessmentSessionAggregate{deps: deps}
}

func (a *assessmentSessionAggregate) Contract() domainagg.Contract {
	return domainagg.AssessmentSessionAggregateContract
}

func (a *assessmentSessionAggregate) CreateSession(ctx context.Context, s *assessment.SurveySession) error {
	const op = "Assessment.Session.Create"
	if s == nil || s.SessionID == uuid.Nil {
		return MapError(op, ValidationError("session id required"))
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Sessions.Create(dbc, s); err != nil {
			return err
		}
		sid := s.SessionID
		return a.deps.Audit.Record(dbc, &sid, s.TableName(), assessment.AuditInsert, s.UserIdentifier, nil, map[string]any{
			"company_name":     s.CompanyName,
			"respondent_name":  s.RespondentName,
			"respondent_email": s.RespondentEmail,
			"total_questions":  s.TotalQuestions,
		})
	})
}

func (a *assessmentSessionAggregate) RecordStageProgress(ctx context.Context, in domainagg.RecordStageProgressInput) (domainagg.RecordStageProgressResult, error) {
	const op = "Assessment.Session.RecordStageProgress"
	var out domainagg.RecordStageProgressResult
	if in.Progress == nil || in.Progress.SessionID == uuid.Nil || strings.TrimSpace(in.Progress.StageName) == "" {
		return out, MapError(op, ValidationError("stage progress requires session and stage"))
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cur := *in.Progress
		sid := cur.SessionID

		sess, err := a.deps.Sessions.GetByID(dbc, sid)
		if err != nil {
			return err
		}
		if sess == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "session not found", nil)
		}

		prev, err := a.deps.Progress.Get(dbc, sid, cur.StageName)
		if err != nil {
			return err
		}
		if prev != nil {
			cur.StartedAt = prev.StartedAt
			if prev.IsCompleted && cur.IsCompleted && prev.CompletedAt != nil {
				cur.CompletedAt = prev.CompletedAt
			}
		}
		if err := a.deps.Progress.Upsert(dbc, &cur); err != nil {
			return err
		}

		rows, err := a.deps.Progress.ListBySession(dbc, sid)
		if err != nil {
			return err
		}
		upd := sessionCompletion(rows, in.DefinitionTotal, in.StageCount)
		if upd.IsCompleted {
			at := a.deps.Base.Now()
			if sess.CompletionDate != nil {
				at = *sess.CompletionDate
			}
			upd.CompletionDate = &at
		}
		if err := a.deps.Sessions.UpdateProgress(dbc, sid, upd); err != nil {
			return err
		}

		out = domainagg.RecordStageProgressResult{Previous: prev, Current: &cur, Session: upd}
		return nil
	})
	return out, err
}

// sessionCompletion derives the session cache from stored stage rows. With a
// known stage count the session is complete only when that many stages are.
func sessionCompletion(rows []*assessment.StageProgress, definitionTotal, stageCount int) assessment.SessionProgressUpdate {
	sum := assessment.SumProgress(rows)
	total := definitionTotal
	if total <= 0 {
		total = sum.TotalQuestions
	}
	completed := 0
	for _, r := range rows {
		if r.IsCompleted {
			completed++
		}
	}
	need := stageCount
	if need <= 0 {
		need = len(rows)
	}
	return assessment.SessionProgressUpdate{
		TotalQuestions:       total,
		AnsweredQuestions:    sum.AnsweredQuestions,
		CompletionPercentage: assessment.Percent(sum.AnsweredQuestions, total),
		IsCompleted:          need > 0 && completed >= need,
	}
}

func (a *assessmentSessionAggregate) ReplaceResults(ctx context.Context, sessionID uuid.UUID, score domainagg.ScoreFunc) ([]*assessment.ResultSummary, error) {
	const op = "Assessment.Session.ReplaceResults"
	if sessionID == uuid.Nil || score == nil {
		return nil, MapError(op, ValidationError("session id and score func required"))
	}
	var out []*assessment.ResultSummary
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		answers, err := a.deps.Responses.ListBySession(dbc, sessionID)
		if err != nil {
			return err
		}
		rows := score(answers, a.deps.Base.Now())
		if err := a.deps.Results.DeleteBySession(dbc, sessionID); err != nil {
			return err
		}
		if err := a.deps.Results.Create(dbc, rows); err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *assessmentSessionAggregate) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	const op = "Assessment.Session.Delete"
	var existed bool
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		sess, err := a.deps.Sessions.GetByID(dbc, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return nil
		}
		if err := a.deps.Responses.DeleteBySession(dbc, sessionID); err != nil {
			return err
		}
		if err := a.deps.Progress.DeleteBySession(dbc, sessionID); err != nil {
			return err
		}
		if err := a.deps.Results.DeleteBySession(dbc, sessionID); err != nil {
			return err
		}
		if existed, err = a.deps.Sessions.Delete(dbc, sessionID); err != nil {
			return err
		}
		return a.deps.Audit.Record(dbc, &sessionID, sess.TableName(), assessment.AuditDelete, sess.UserIdentifier, map[string]any{
			"company_name":          sess.CompanyName,
			"completion_percentage": sess.CompletionPercentage,
		}, nil)
	})
	return existed, err
}

func (a *assessmentSessionAggregate) UpdateMetadata(ctx context.Context, sessionID uuid.UUID, patch assessment.SessionMetadataPatch) (*assessment.SurveySession, error) {
	const op = "Assessment.Session.UpdateMetadata"
	if patch.Empty() {
		return nil, MapError(op, ValidationError("no fields to update"))
	}
	var out *assessment.SurveySession
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		sess, err := a.deps.Sessions.GetByID(dbc, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, "session not found", nil)
		}

		before := map[string]any{}
		after := map[string]any{}
		updates := map[string]any{}
		company, email := sess.CompanyName, sess.RespondentEmail

		if patch.CompanyName != nil {
			v := assessment.NormalizeCompany(*patch.CompanyName)
			if v == "" {
				return ValidationError("company_name cannot be empty")
			}
			before["company_name"], after["company_name"] = sess.CompanyName, v
			updates["company_name"], company = v, v
		}
		if patch.RespondentName != nil {
			v := strings.TrimSpace(*patch.RespondentName)
			if v == "" {
				return ValidationError("respondent_name cannot be empty")
			}
			before["respondent_name"], after["respondent_name"] = sess.RespondentName, v
			updates["respondent_name"] = v
		}
		if patch.RespondentEmail != nil {
			v := assessment.NormalizeEmail(*patch.RespondentEmail)
			if v == "" {
				return ValidationError("respondent_email cannot be empty")
			}
			before["respondent_email"], after["respondent_email"] = sess.RespondentEmail, v
			updates["respondent_email"], email = v, v
		}
		updates["user_identifier"] = assessment.UserIdentifier(email, company)
		updates["updated_at"] = a.deps.Base.Now()

		if err := a.deps.Sessions.UpdateFields(dbc, sessionID, updates); err != nil {
			return err
		}
		if err := a.deps.Audit.Record(dbc, &sessionID, sess.TableName(), assessment.AuditUpdate, sess.UserIdentifier, before, after); err != nil {
			return err
		}
		out, err = a.deps.Sessions.GetByID(dbc, sessionID)
		return err
	})
	return out, err
}
