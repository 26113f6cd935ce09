package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

type AttemptState string

const (
	StateNoSession        AttemptState = "no_session"
	StateAwaitingIdentity AttemptState = "awaiting_identity"
	StateActive           AttemptState = "active"
	StateCompleted        AttemptState = "completed"
)

// Outcome names the branch the last identity action ended in.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeActive    Outcome = "active"
	OutcomeDuplicate Outcome = "duplicate_identity"
	OutcomeAmbiguous Outcome = "ambiguous_identity"
	OutcomeNotFound  Outcome = "not_found"
)

const (
	flushTimeout           = 30 * time.Second
	autosaveWarning        = "autosave failed; changes will be retried"
	sessionDeletedWarning  = "session was deleted"
	TriggerSessionComplete = "session_completed"
)

type AttemptSnapshot struct {
	AttemptID   uuid.UUID                   `json:"attempt_id"`
	State       AttemptState                `json:"state"`
	Outcome     Outcome                     `json:"outcome,omitempty"`
	SessionID   *uuid.UUID                  `json:"session_id,omitempty"`
	StageIndex  int                         `json:"stage_index"`
	Answers     map[string]int              `json:"answers"`
	PendingSave bool                        `json:"pending_save"`
	Warning     string                      `json:"warning,omitempty"`
	LastSavedAt *time.Time                  `json:"last_saved_at,omitempty"`
	Duplicate   *assessment.SurveySession   `json:"duplicate,omitempty"`
	Candidates  []*assessment.SurveySession `json:"candidates,omitempty"`
}

// SessionController drives one respondent attempt through
// NoSession -> AwaitingIdentity -> Active -> Completed and owns its debounced autosave.
type SessionController interface {
	Open() AttemptSnapshot
	Snapshot(attemptID uuid.UUID) (AttemptSnapshot, error)
	BeginIdentity(attemptID uuid.UUID) (AttemptSnapshot, error)
	StartNew(attemptID uuid.UUID) (AttemptSnapshot, error)

	SubmitIdentity(ctx context.Context, attemptID uuid.UUID, in IdentityInput) (AttemptSnapshot, error)
	LoadExisting(ctx context.Context, attemptID uuid.UUID) (AttemptSnapshot, error)
	CreateAnyway(ctx context.Context, attemptID uuid.UUID) (AttemptSnapshot, error)
	Recover(ctx context.Context, attemptID uuid.UUID, in RecoverInput) (AttemptSnapshot, error)
	SelectSession(ctx context.Context, attemptID uuid.UUID, sessionID uuid.UUID) (AttemptSnapshot, error)

	// SetAnswers records ratings by question name and arms the autosave.
	// Invalid answers are returned and skipped; the rest still apply.
	SetAnswers(attemptID uuid.UUID, ratings map[string]int) (AttemptSnapshot, []error, error)
	SetStage(attemptID uuid.UUID, stageIndex int) (AttemptSnapshot, error)
	Navigate(ctx context.Context, attemptID uuid.UUID, stageIndex int) (AttemptSnapshot, error)
	Complete(ctx context.Context, attemptID uuid.UUID) (AttemptSnapshot, error)
	Discard(ctx context.Context, attemptID uuid.UUID) error

	// CancelSession drops pending autosaves of every attempt bound to sessionID.
	CancelSession(sessionID uuid.UUID) int
	Close()
}

type SessionControllerDeps struct {
	Store      Store
	Identity   IdentityResolver
	Answers    AnswerStore
	Progress   ProgressAggregator
	Scoring    ScoringEngine
	Definition *survey.Definition
	Emitter    realtime.Emitter
	Metrics    *observability.Metrics
	Debounce   time.Duration
	IdleTTL    time.Duration
}

type attempt struct {
	id uuid.UUID

	// flushMu serializes flushes; it is always taken before mu.
	flushMu sync.Mutex

	mu          sync.Mutex
	state       AttemptState
	outcome     Outcome
	sessionID   uuid.UUID
	stageIdx    int
	answers     map[string]int
	edits       map[string]uint64
	seq         uint64
	dirty       map[int]bool
	pending     *IdentityInput
	duplicate   *assessment.SurveySession
	candidates  []*assessment.SurveySession
	warning     string
	lastSavedAt *time.Time
	lastTouched time.Time
	debounce    *debouncer
}

type sessionController struct {
	log      *logger.Logger
	store    Store
	identity IdentityResolver
	answers  AnswerStore
	progress ProgressAggregator
	scoring  ScoringEngine
	def      *survey.Definition
	index    *survey.CapabilityIndex
	emitter  realtime.Emitter
	metrics  *observability.Metrics
	delay    time.Duration
	idleTTL  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	attempts map[uuid.UUID]*attempt
	closed   bool
	inflight sync.WaitGroup

	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

func NewSessionController(log *logger.Logger, deps SessionControllerDeps) SessionController {
	delay := deps.Debounce
	if delay <= 0 {
		delay = time.Second
	}
	ttl := deps.IdleTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = realtime.NopEmitter{}
	}
	c := &sessionController{
		log:         log.With("service", "SessionController"),
		store:       deps.Store,
		identity:    deps.Identity,
		answers:     deps.Answers,
		progress:    deps.Progress,
		scoring:     deps.Scoring,
		def:         deps.Definition,
		index:       survey.NewCapabilityIndex(deps.Definition),
		emitter:     emitter,
		metrics:     deps.Metrics,
		delay:       delay,
		idleTTL:     ttl,
		now:         func() time.Time { return time.Now().UTC() },
		attempts:    make(map[uuid.UUID]*attempt),
		janitorDone: make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.stopJanitor = cancel
	go c.janitor(ctx)
	return c
}

func (c *sessionController) Open() AttemptSnapshot {
	a := &attempt{
		id:          uuid.New(),
		state:       StateNoSession,
		answers:     map[string]int{},
		edits:       map[string]uint64{},
		dirty:       map[int]bool{},
		lastTouched: c.now(),
	}
	a.debounce = newDebouncer(c.delay, func() { c.runFlush(a, "debounce") })

	c.mu.Lock()
	if !c.closed {
		c.attempts[a.id] = a
	}
	n := len(c.attempts)
	c.mu.Unlock()
	c.metrics.SetActiveAttempts(n)
	return a.snapshot()
}

func (c *sessionController) get(id uuid.UUID) (*attempt, error) {
	c.mu.Lock()
	a, ok := c.attempts[id]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAttemptNotFound, id)
	}
	a.mu.Lock()
	a.lastTouched = c.now()
	a.mu.Unlock()
	return a, nil
}

func (c *sessionController) Snapshot(attemptID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	return a.snapshot(), nil
}

func (c *sessionController) BeginIdentity(attemptID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateNoSession, StateAwaitingIdentity:
		a.state = StateAwaitingIdentity
	default:
		return a.snapshotLocked(), fmt.Errorf("%w: begin identity from %s", ErrInvalidTransition, a.state)
	}
	return a.snapshotLocked(), nil
}

// StartNew abandons the current session binding. A pending autosave is cancelled, not flushed.
func (c *sessionController) StartNew(attemptID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.debounce.Cancel()
	a.flushMu.Lock()
	defer a.flushMu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked(StateAwaitingIdentity)
	return a.snapshotLocked(), nil
}

func (a *attempt) resetLocked(state AttemptState) {
	a.state = state
	a.outcome = OutcomeNone
	a.sessionID = uuid.Nil
	a.stageIdx = 0
	a.answers = map[string]int{}
	a.edits = map[string]uint64{}
	a.dirty = map[int]bool{}
	a.pending = nil
	a.duplicate = nil
	a.candidates = nil
	a.warning = ""
	a.lastSavedAt = nil
}

func (a *attempt) requireIdentityStage() error {
	switch a.state {
	case StateNoSession, StateAwaitingIdentity:
		return nil
	default:
		return fmt.Errorf("%w: identity action while %s", ErrInvalidTransition, a.state)
	}
}

func (c *sessionController) SubmitIdentity(ctx context.Context, attemptID uuid.UUID, in IdentityInput) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	if err := a.requireIdentityStage(); err != nil {
		defer a.mu.Unlock()
		return a.snapshotLocked(), err
	}
	a.state = StateAwaitingIdentity
	a.mu.Unlock()

	res, err := c.identity.Create(ctx, in, false)
	if err != nil {
		return a.snapshot(), err
	}
	if res.Duplicate != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		info := in
		a.pending = &info
		a.duplicate = res.Duplicate
		a.candidates = nil
		a.outcome = OutcomeDuplicate
		return a.snapshotLocked(), nil
	}
	return c.activate(ctx, a, res.Session, false)
}

func (c *sessionController) LoadExisting(ctx context.Context, attemptID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	dup := a.duplicate
	if a.state != StateAwaitingIdentity || dup == nil {
		defer a.mu.Unlock()
		return a.snapshotLocked(), fmt.Errorf("%w: no duplicate identity to load", ErrInvalidTransition)
	}
	a.mu.Unlock()

	sess, err := c.identity.ByID(ctx, dup.SessionID.String())
	if err != nil {
		return c.identityFailed(a, err)
	}
	return c.activate(ctx, a, sess, true)
}

// CreateAnyway creates the pending identity without the duplicate check. The
// bypass is consumed by this call.
func (c *sessionController) CreateAnyway(ctx context.Context, attemptID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	info := a.pending
	if a.state != StateAwaitingIdentity || info == nil {
		defer a.mu.Unlock()
		return a.snapshotLocked(), fmt.Errorf("%w: no pending identity", ErrInvalidTransition)
	}
	a.pending = nil
	a.mu.Unlock()

	res, err := c.identity.Create(ctx, *info, true)
	if err != nil {
		return a.snapshot(), err
	}
	return c.activate(ctx, a, res.Session, false)
}

func (c *sessionController) Recover(ctx context.Context, attemptID uuid.UUID, in RecoverInput) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	if err := a.requireIdentityStage(); err != nil {
		defer a.mu.Unlock()
		return a.snapshotLocked(), err
	}
	a.state = StateAwaitingIdentity
	a.mu.Unlock()

	res, err := c.identity.Recover(ctx, in)
	if err != nil {
		return c.identityFailed(a, err)
	}
	if res.Ambiguous() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.candidates = res.Candidates
		a.duplicate = nil
		a.pending = nil
		a.outcome = OutcomeAmbiguous
		return a.snapshotLocked(), nil
	}
	return c.activate(ctx, a, res.Session, true)
}

func (c *sessionController) SelectSession(ctx context.Context, attemptID uuid.UUID, sessionID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	known := false
	for _, s := range a.candidates {
		if s.SessionID == sessionID {
			known = true
			break
		}
	}
	if a.state != StateAwaitingIdentity || !known {
		defer a.mu.Unlock()
		return a.snapshotLocked(), fmt.Errorf("%w: session is not a candidate", ErrInvalidTransition)
	}
	a.mu.Unlock()

	sess, err := c.identity.ByID(ctx, sessionID.String())
	if err != nil {
		return c.identityFailed(a, err)
	}
	return c.activate(ctx, a, sess, true)
}

// identityFailed turns ErrNotFound into the recoverable not_found outcome.
func (c *sessionController) identityFailed(a *attempt, err error) (AttemptSnapshot, error) {
	if !errors.Is(err, ErrNotFound) {
		return a.snapshot(), err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateAwaitingIdentity
	a.outcome = OutcomeNotFound
	a.candidates = nil
	a.duplicate = nil
	return a.snapshotLocked(), nil
}

// activate binds the attempt to sess. With restore set, answers and the
// resume stage are rebuilt from the store.
func (c *sessionController) activate(ctx context.Context, a *attempt, sess *assessment.SurveySession, restore bool) (AttemptSnapshot, error) {
	answers := map[string]int{}
	stageIdx := 0
	if restore {
		var err error
		answers, stageIdx, err = c.restore(ctx, sess.SessionID)
		if err != nil {
			return a.snapshot(), err
		}
	}

	a.debounce.Cancel()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked(StateActive)
	a.sessionID = sess.SessionID
	a.answers = answers
	a.stageIdx = stageIdx
	a.outcome = OutcomeActive
	c.log.Info("attempt active", "attempt_id", a.id, "session_id", sess.SessionID, "restored", restore)
	return a.snapshotLocked(), nil
}

// restore loads answers and stage progress concurrently. Stored capabilities
// the definition no longer knows are logged and skipped.
func (c *sessionController) restore(ctx context.Context, sessionID uuid.UUID) (map[string]int, int, error) {
	var (
		rows     []*assessment.SurveyResponse
		progress []*assessment.StageProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = c.answers.ListBySession(gctx, sessionID)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = c.progress.ListStages(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("restore session: %w", err)
	}
	return c.mapAnswers(sessionID, rows), c.resumeStage(progress), nil
}

func (c *sessionController) mapAnswers(sessionID uuid.UUID, rows []*assessment.SurveyResponse) map[string]int {
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		if r.Rating == nil {
			continue
		}
		name, ok := c.index.Lookup(r.StageName, r.Capability)
		if !ok {
			c.log.Warn("stored capability has no question; skipping", "session_id", sessionID, "stage", r.StageName, "capability", r.Capability)
			continue
		}
		out[name] = *r.Rating
	}
	return out
}

// resumeStage is the first defined stage not yet completed, or the last stage.
func (c *sessionController) resumeStage(rows []*assessment.StageProgress) int {
	if c.def == nil || len(c.def.Stages) == 0 {
		return 0
	}
	done := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.IsCompleted {
			done[r.StageName] = true
		}
	}
	for i, st := range c.def.Stages {
		if !done[st.Name] {
			return i
		}
	}
	return len(c.def.Stages) - 1
}

func (c *sessionController) SetAnswers(attemptID uuid.UUID, ratings map[string]int) (AttemptSnapshot, []error, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, nil, err
	}
	a.mu.Lock()
	if a.state != StateActive {
		defer a.mu.Unlock()
		return a.snapshotLocked(), nil, fmt.Errorf("%w: answers while %s", ErrInvalidTransition, a.state)
	}
	names := make([]string, 0, len(ratings))
	for name := range ratings {
		names = append(names, name)
	}
	sort.Strings(names)

	var skipped []error
	changed := false
	for _, name := range names {
		rating := ratings[name]
		st, q, ok := c.question(name)
		if !ok {
			skipped = append(skipped, invalidAnswer("", name, "unknown question"))
			continue
		}
		if !survey.ValidRating(rating) {
			skipped = append(skipped, invalidAnswer(st.Name, q.Capability, fmt.Sprintf("rating %d outside %d..%d", rating, survey.MinRating, survey.MaxRating)))
			continue
		}
		a.seq++
		a.answers[name] = rating
		a.edits[name] = a.seq
		a.dirty[c.def.StageIndex(st.Name)] = true
		changed = true
	}
	a.mu.Unlock()

	if changed {
		a.debounce.Arm()
	}
	return a.snapshot(), skipped, nil
}

func (c *sessionController) question(name string) (*survey.Stage, *survey.Question, bool) {
	if c.def == nil {
		return nil, nil, false
	}
	return c.def.Question(name)
}

// SetStage moves to another page without re-reading the store.
func (c *sessionController) SetStage(attemptID uuid.UUID, stageIndex int) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	if _, ok := c.stageAt(stageIndex); !ok {
		return a.snapshot(), fmt.Errorf("%w: stage %d", ErrNotFound, stageIndex)
	}
	a.mu.Lock()
	if a.state != StateActive {
		defer a.mu.Unlock()
		return a.snapshotLocked(), fmt.Errorf("%w: page change while %s", ErrInvalidTransition, a.state)
	}
	a.dirty[a.stageIdx] = true
	a.stageIdx = stageIndex
	a.mu.Unlock()

	a.debounce.Arm()
	return a.snapshot(), nil
}

func (c *sessionController) stageAt(i int) (*survey.Stage, bool) {
	if c.def == nil {
		return nil, false
	}
	return c.def.StageAt(i)
}

// Navigate jumps to a stage: pending edits are flushed first, then the
// latest persisted answers are merged over memory so saves from other tabs show up.
// Answers on stages that are still unsaved keep their in-memory value.
func (c *sessionController) Navigate(ctx context.Context, attemptID uuid.UUID, stageIndex int) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	if _, ok := c.stageAt(stageIndex); !ok {
		return a.snapshot(), fmt.Errorf("%w: stage %d", ErrNotFound, stageIndex)
	}
	a.mu.Lock()
	if a.state != StateActive {
		defer a.mu.Unlock()
		return a.snapshotLocked(), fmt.Errorf("%w: navigate while %s", ErrInvalidTransition, a.state)
	}
	mark := a.seq
	a.mu.Unlock()

	if a.debounce.Cancel() || a.hasDirty() {
		if err := c.flush(ctx, a, "navigate", false); err != nil {
			c.log.Warn("flush before navigate failed", "attempt_id", a.id, "error", err)
		}
	}

	a.mu.Lock()
	a.stageIdx = stageIndex
	sid := a.sessionID
	a.mu.Unlock()

	rows, err := c.answers.ListBySession(ctx, sid)
	if err != nil {
		a.setWarning(autosaveWarning)
		c.log.Warn("merge after navigate failed", "attempt_id", a.id, "error", err)
		return a.snapshot(), nil
	}
	persisted := c.mapAnswers(sid, rows)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionID != sid {
		return a.snapshotLocked(), nil
	}
	for name, rating := range persisted {
		if a.edits[name] > mark || a.unsavedLocked(c, name) {
			continue
		}
		a.answers[name] = rating
	}
	return a.snapshotLocked(), nil
}

// Complete flushes synchronously and only then marks the attempt completed.
// The stored session flag is left to the progress rows; a partial submission
// stays incomplete there.
func (c *sessionController) Complete(ctx context.Context, attemptID uuid.UUID) (AttemptSnapshot, error) {
	a, err := c.get(attemptID)
	if err != nil {
		return AttemptSnapshot{}, err
	}
	a.mu.Lock()
	if a.state != StateActive {
		defer a.mu.Unlock()
		return a.snapshotLocked(), fmt.Errorf("%w: complete while %s", ErrInvalidTransition, a.state)
	}
	a.mu.Unlock()

	a.debounce.Cancel()
	if err := c.flush(ctx, a, "complete", true); err != nil {
		return a.snapshot(), err
	}

	a.mu.Lock()
	sid := a.sessionID
	a.mu.Unlock()
	if c.scoring != nil {
		if _, err := c.scoring.Recompute(ctx, sid, TriggerSessionComplete); err != nil {
			c.log.Warn("recompute on completion failed", "session_id", sid, "error", err)
		}
	}
	c.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(sid.String()),
		Event:   realtime.SSEEventSessionCompleted,
		Data:    map[string]any{"session_id": sid},
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionID == sid {
		a.state = StateCompleted
	}
	return a.snapshotLocked(), nil
}

// Discard flushes any pending autosave and forgets the attempt.
func (c *sessionController) Discard(ctx context.Context, attemptID uuid.UUID) error {
	a, err := c.get(attemptID)
	if err != nil {
		return err
	}
	if a.debounce.Cancel() {
		if err := c.flush(ctx, a, "discard", false); err != nil {
			c.log.Warn("flush on discard failed", "attempt_id", a.id, "error", err)
		}
	}
	a.debounce.Stop()
	c.mu.Lock()
	delete(c.attempts, attemptID)
	n := len(c.attempts)
	c.mu.Unlock()
	c.metrics.SetActiveAttempts(n)
	return nil
}

func (c *sessionController) CancelSession(sessionID uuid.UUID) int {
	c.mu.Lock()
	bound := make([]*attempt, 0)
	for _, a := range c.attempts {
		a.mu.Lock()
		if a.sessionID == sessionID {
			bound = append(bound, a)
		}
		a.mu.Unlock()
	}
	c.mu.Unlock()

	for _, a := range bound {
		a.debounce.Cancel()
		a.flushMu.Lock()
		a.mu.Lock()
		if a.sessionID == sessionID {
			a.resetLocked(StateNoSession)
			a.warning = sessionDeletedWarning
		}
		a.mu.Unlock()
		a.flushMu.Unlock()
	}
	if len(bound) > 0 {
		c.log.Info("cancelled attempts for deleted session", "session_id", sessionID, "attempts", len(bound))
	}
	return len(bound)
}

// runFlush is the debounce callback. It is skipped once the controller is closed.
func (c *sessionController) runFlush(a *attempt, trigger string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := c.flush(ctx, a, trigger, false); err != nil {
		c.log.Warn("autosave failed", "attempt_id", a.id, "trigger", trigger, "error", err)
	}
}

type pageBatch struct {
	stage    *survey.Stage
	inputs   []AnswerInput
	answered int
}

// flush persists the answered questions of every dirty stage (plus the active
// one when includeActive is set), then records progress for each page.
// On failure the stages stay dirty so the next cycle retries them.
func (c *sessionController) flush(ctx context.Context, a *attempt, trigger string, includeActive bool) (err error) {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "autosave", "SessionController.flush")
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.metrics.ObserveAutosaveFlush(trigger, status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	a.mu.Lock()
	if a.state != StateActive || a.sessionID == uuid.Nil {
		a.mu.Unlock()
		return nil
	}
	sid := a.sessionID
	stages := make([]int, 0, len(a.dirty)+1)
	for i := range a.dirty {
		stages = append(stages, i)
	}
	if includeActive && !a.dirty[a.stageIdx] {
		stages = append(stages, a.stageIdx)
	}
	sort.Ints(stages)
	batches := make([]pageBatch, 0, len(stages))
	for _, i := range stages {
		st, ok := c.stageAt(i)
		if !ok {
			continue
		}
		b := pageBatch{stage: st}
		for _, q := range st.Questions {
			rating, ok := a.answers[q.Name]
			if !ok {
				continue
			}
			b.answered++
			b.inputs = append(b.inputs, AnswerInput{
				Stage:      st.Name,
				Capability: q.Capability,
				Question:   q.Title,
				Rating:     rating,
			})
		}
		batches = append(batches, b)
	}
	a.dirty = map[int]bool{}
	a.mu.Unlock()

	failed := map[int]bool{}
	var firstErr error
	for _, b := range batches {
		if err := c.flushPage(ctx, sid, b); err != nil {
			failed[c.def.StageIndex(b.stage.Name)] = true
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionID != sid {
		return firstErr
	}
	if firstErr != nil {
		for i := range failed {
			a.dirty[i] = true
		}
		a.warning = autosaveWarning
		return firstErr
	}
	a.warning = ""
	at := c.now()
	a.lastSavedAt = &at
	return nil
}

func (c *sessionController) flushPage(ctx context.Context, sid uuid.UUID, b pageBatch) error {
	answered := b.answered
	if len(b.inputs) > 0 {
		res, err := c.answers.UpsertBatch(ctx, sid, b.inputs)
		if err != nil {
			return err
		}
		answered -= len(res.Skipped)
		if len(res.Saved) > 0 {
			c.emitter.Emit(ctx, realtime.SSEMessage{
				Channel: realtime.SessionChannel(sid.String()),
				Event:   realtime.SSEEventAnswersSaved,
				Data:    map[string]any{"session_id": sid, "stage_name": b.stage.Name, "count": len(res.Saved)},
			})
		}
	}
	_, err := c.progress.RecordPage(ctx, sid, PageProgress{
		Stage:    b.stage.Name,
		Order:    b.stage.Order,
		Total:    len(b.stage.Questions),
		Answered: answered,
	})
	return err
}

func (c *sessionController) janitor(ctx context.Context) {
	defer close(c.janitorDone)
	interval := c.idleTTL / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.evictIdle()
		}
	}
}

func (c *sessionController) evictIdle() {
	cutoff := c.now().Add(-c.idleTTL)
	c.mu.Lock()
	var evicted []*attempt
	for id, a := range c.attempts {
		a.mu.Lock()
		idle := a.lastTouched.Before(cutoff)
		unsaved := len(a.dirty) > 0
		a.mu.Unlock()
		if idle && !unsaved && !a.debounce.Pending() {
			delete(c.attempts, id)
			evicted = append(evicted, a)
		}
	}
	n := len(c.attempts)
	c.mu.Unlock()

	for _, a := range evicted {
		a.debounce.Stop()
	}
	if len(evicted) > 0 {
		c.metrics.SetActiveAttempts(n)
		c.log.Debug("evicted idle attempts", "count", len(evicted))
	}
}

// Close stops the janitor and every timer, waits for running flushes, then
// writes out answers still waiting on a debounce.
func (c *sessionController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	live := make([]*attempt, 0, len(c.attempts))
	for _, a := range c.attempts {
		a.debounce.Stop()
		live = append(live, a)
	}
	c.mu.Unlock()

	c.stopJanitor()
	<-c.janitorDone
	c.inflight.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for _, a := range live {
		if !a.hasDirty() {
			continue
		}
		if err := c.flush(ctx, a, "shutdown", false); err != nil {
			c.log.Warn("flush on shutdown failed", "attempt_id", a.id, "error", err)
		}
	}
}

// unsavedLocked reports whether name sits on a stage whose last flush did not land.
func (a *attempt) unsavedLocked(c *sessionController, name string) bool {
	st, _, ok := c.question(name)
	if !ok {
		return false
	}
	return a.dirty[c.def.StageIndex(st.Name)]
}

func (a *attempt) hasDirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.dirty) > 0
}

func (a *attempt) setWarning(w string) {
	a.mu.Lock()
	a.warning = w
	a.mu.Unlock()
}

func (a *attempt) snapshot() AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *attempt) snapshotLocked() AttemptSnapshot {
	s := AttemptSnapshot{
		AttemptID:   a.id,
		State:       a.state,
		Outcome:     a.outcome,
		StageIndex:  a.stageIdx,
		Answers:     make(map[string]int, len(a.answers)),
		PendingSave: a.debounce.Pending() || len(a.dirty) > 0,
		Warning:     a.warning,
		Duplicate:   a.duplicate,
		Candidates:  a.candidates,
	}
	for k, v := range a.answers {
		s.Answers[k] = v
	}
	if a.sessionID != uuid.Nil {
		sid := a.sessionID
		s.SessionID = &sid
	}
	if a.lastSavedAt != nil {
		at := *a.lastSavedAt
		s.LastSavedAt = &at
	}
	return s
}
