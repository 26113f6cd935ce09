package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/testutil"
	datastore "github.com/yungbote/maturity-assessment-backend/internal/data/store"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

func TestMain(m *testing.M) {
	// The shared Postgres handle used under TEST_POSTGRES_DSN stays open for the run.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

const testDefinitionYAML = `
title: test survey
choices:
  - {value: 1, text: "Not in place"}
  - {value: 3, text: "Defined"}
  - {value: 5, text: "Optimized"}
stages:
  - name: "Stage 1: Intake"
    title: "1: Intake"
    questions:
      - {name: a1, title: "Repository", capability: "**Repository**: contracts live in one place"}
      - {name: a2, title: "Metadata", capability: "Metadata capture"}
  - name: "Stage 2: Signing"
    title: "2: Signing"
    questions:
      - {name: b1, title: "E-signature", capability: "E-signature"}
      - {name: b2, title: "Routing", capability: "Signer routing"}
benchmarks:
  "Stage 1: Intake": {peer_average: 5, best_in_class: 8}
`

func testDefinition(t *testing.T) *survey.Definition {
	t.Helper()
	def, err := survey.Parse([]byte(testDefinitionYAML))
	if err != nil {
		t.Fatalf("parse definition: %v", err)
	}
	return def
}

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) count(event realtime.SSEEvent) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

var errStoreDown = errors.New("store unavailable")

// failingStore rejects answer writes while down is set.
type failingStore struct {
	*datastore.GormStore
	down atomic.Bool
}

func (s *failingStore) PutAnswer(ctx context.Context, answer *assessment.SurveyResponse) error {
	if s.down.Load() {
		return errStoreDown
	}
	return s.GormStore.PutAnswer(ctx, answer)
}

type harness struct {
	store      *datastore.GormStore
	flaky      *failingStore
	def        *survey.Definition
	emitter    *recordingEmitter
	identity   IdentityResolver
	answers    AnswerStore
	scoring    ScoringEngine
	progress   ProgressAggregator
	results    ResultsService
	admin      AdminService
	controller SessionController
}

func newHarness(t *testing.T, debounce time.Duration) *harness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)

	h := &harness{
		store:   datastore.New(db, log, datastore.Options{}),
		def:     testDefinition(t),
		emitter: &recordingEmitter{},
	}
	h.flaky = &failingStore{GormStore: h.store}
	h.identity = NewIdentityResolver(log, h.flaky, h.def, nil)
	h.answers = NewAnswerStore(log, h.flaky, h.def, nil)
	h.scoring = NewScoringEngine(log, ScoringEngineDeps{Store: h.flaky, Emitter: h.emitter})
	h.progress = NewProgressAggregator(log, ProgressAggregatorDeps{
		Store:      h.flaky,
		Scoring:    h.scoring,
		Definition: h.def,
		Emitter:    h.emitter,
	})
	h.results = NewResultsService(log, h.flaky, h.scoring, h.progress, h.def)
	h.controller = NewSessionController(log, SessionControllerDeps{
		Store:      h.flaky,
		Identity:   h.identity,
		Answers:    h.answers,
		Progress:   h.progress,
		Scoring:    h.scoring,
		Definition: h.def,
		Emitter:    h.emitter,
		Debounce:   debounce,
	})
	t.Cleanup(h.controller.Close)
	h.admin = NewAdminService(log, AdminServiceDeps{
		Store:     h.flaky,
		Admin:     h.store,
		Answers:   h.answers,
		Scoring:   h.scoring,
		Canceller: h.controller,
		Emitter:   h.emitter,
	})
	return h
}

func (h *harness) createSession(t *testing.T, email, company string) CreateResult {
	t.Helper()
	res, err := h.identity.Create(context.Background(), IdentityInput{
		CompanyName:     company,
		RespondentName:  "Pat",
		RespondentEmail: email,
	}, false)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return res
}
