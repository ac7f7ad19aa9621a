package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	log "github.com/sirupsen/logrus"
)

type State string

const (
	StateIdle                    State = "idle"
	StateSubmitted               State = "submitted"
	StateAwaitingExternalVerdict State = "awaiting_external_verdict"
	StateCompleted               State = "completed"
	StateFailed                  State = "failed"
)

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Error kinds reported on failed snapshots.
const (
	KindMalformedVerdict      = "MalformedVerdict"
	KindEvaluationUnavailable = "EvaluationUnavailable"
)

// Snapshot is a copy of a pipeline's state. The submitted code is kept so a failed
// attempt can be retried without retyping.
type Snapshot struct {
	Generation uint64              `json:"generation"`
	State      State               `json:"state"`
	Mode       Mode                `json:"mode"`
	ProblemID  string              `json:"problem_id,omitempty"`
	Language   string              `json:"language,omitempty"`
	Code       string              `json:"code,omitempty"`
	Verdict    *model.JudgeVerdict `json:"verdict,omitempty"`
	Correct    *bool               `json:"correct,omitempty"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	Error      string              `json:"error,omitempty"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func (s Snapshot) clone() Snapshot {
	if s.Verdict != nil {
		v := *s.Verdict
		v.TestCases = append([]model.TestCaseResult(nil), s.Verdict.TestCases...)
		s.Verdict = &v
	}
	if s.Correct != nil {
		c := *s.Correct
		s.Correct = &c
	}
	return s
}

// Recorder stores completed full-mode verdicts as submissions.
type Recorder interface {
	RecordVerdict(ctx context.Context, userID string, problem model.Problem, language string, v model.JudgeVerdict) (*model.Submission, error)
}

// Console receives one line per terminal judging event.
type Console interface {
	Append(ctx context.Context, msg string)
}

// Pipeline runs at most one evaluation at a time for one user and mode.
// A new Submit supersedes the previous call, whose late result is discarded.
type Pipeline struct {
	userID    string
	mode      Mode
	evaluator Evaluator
	recorder  Recorder
	console   Console
	now       func() time.Time

	mu     sync.Mutex
	snap   Snapshot
	cancel context.CancelFunc
}

func NewPipeline(userID string, mode Mode, evaluator Evaluator, recorder Recorder, console Console) *Pipeline {
	p := &Pipeline{
		userID:    userID,
		mode:      mode,
		evaluator: evaluator,
		recorder:  recorder,
		console:   console,
		now:       time.Now,
	}
	p.snap = Snapshot{State: StateIdle, Mode: mode, UpdatedAt: p.now()}
	return p
}

// ValidateCode rejects blank submissions before anything is dispatched.
func ValidateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return common.Errorf("submitted code is empty: %w", common.ErrInvalidInput)
	}
	return nil
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.clone()
}

// Submit judges code and blocks until the evaluator answers. Failed evaluations return the
// failed snapshot together with an error wrapping ErrMalformedVerdict or ErrEvaluationUnavailable.
// If another Submit or Abandon happens meanwhile, the result is dropped and ErrJudgeSuperseded is returned.
func (p *Pipeline) Submit(ctx context.Context, problem model.Problem, language, code string) (Snapshot, error) {
	if err := ValidateCode(code); err != nil {
		return p.Snapshot(), err
	}
	gen, callCtx, req := p.dispatch(ctx, problem, language, code)
	raw, err := p.evaluator.Evaluate(callCtx, req)
	return p.complete(ctx, gen, problem, raw, err)
}

// SubmitAsync validates code synchronously and judges it in the background.
func (p *Pipeline) SubmitAsync(ctx context.Context, problem model.Problem, language, code string) (Future[Snapshot], error) {
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	gen, callCtx, req := p.dispatch(ctx, problem, language, code)
	return Async(func() (Snapshot, error) {
		raw, err := p.evaluator.Evaluate(callCtx, req)
		return p.complete(ctx, gen, problem, raw, err)
	}), nil
}

// Abandon discards any in-flight evaluation and returns the pipeline to idle.
func (p *Pipeline) Abandon() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return p.snap.clone()
}

// abandonGeneration resets the pipeline only if gen is still the current attempt.
func (p *Pipeline) abandonGeneration(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap.Generation == gen {
		p.resetLocked()
	}
}

func (p *Pipeline) resetLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.snap = Snapshot{
		Generation: p.snap.Generation + 1,
		State:      StateIdle,
		Mode:       p.mode,
		ProblemID:  p.snap.ProblemID,
		Language:   p.snap.Language,
		Code:       p.snap.Code,
		UpdatedAt:  p.now(),
	}
}

func (p *Pipeline) dispatch(ctx context.Context, problem model.Problem, language, code string) (uint64, context.Context, EvaluationRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	gen := p.snap.Generation + 1
	p.snap = Snapshot{
		Generation: gen,
		State:      StateSubmitted,
		Mode:       p.mode,
		ProblemID:  problem.ID,
		Language:   language,
		Code:       code,
		UpdatedAt:  p.now(),
	}

	req := BuildRequest(p.mode, problem, language, code)
	callCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.snap.State = StateAwaitingExternalVerdict
	return gen, callCtx, req
}

func (p *Pipeline) complete(ctx context.Context, gen uint64, problem model.Problem, raw []byte, evalErr error) (Snapshot, error) {
	if evalErr != nil && ctx.Err() != nil {
		// The caller went away; that is an abandonment, not an evaluator failure.
		p.abandonGeneration(gen)
		return Snapshot{}, common.Errorf("judging of generation %d abandoned by caller: %w", gen, common.ErrJudgeSuperseded)
	}
	ctx = context.WithoutCancel(ctx)
	next, resultErr := p.settle(raw, evalErr)

	p.mu.Lock()
	if p.snap.Generation != gen {
		p.mu.Unlock()
		return Snapshot{}, common.Errorf("result for generation %d dropped: %w", gen, common.ErrJudgeSuperseded)
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	next.Generation = gen
	next.Mode = p.mode
	next.ProblemID = p.snap.ProblemID
	next.Language = p.snap.Language
	next.Code = p.snap.Code
	next.UpdatedAt = p.now()
	p.snap = next
	snap := p.snap.clone()
	p.mu.Unlock()

	if snap.State == StateCompleted && snap.Verdict != nil && p.recorder != nil {
		if _, err := p.recorder.RecordVerdict(ctx, p.userID, problem, snap.Language, *snap.Verdict); err != nil {
			log.Errorf("ERROR: Failed to record verdict for user %s on %s: %v", p.userID, problem.ID, err)
		}
	}
	if p.console != nil {
		p.console.Append(ctx, consoleLine(problem, snap))
	}
	return snap, resultErr
}

// settle turns the evaluator outcome into a terminal snapshot.
func (p *Pipeline) settle(raw []byte, evalErr error) (Snapshot, error) {
	if evalErr != nil {
		if !errors.Is(evalErr, common.ErrEvaluationUnavailable) {
			evalErr = fmt.Errorf("%v: %w", evalErr, common.ErrEvaluationUnavailable)
		}
		return Snapshot{State: StateFailed, ErrorKind: KindEvaluationUnavailable, Error: evalErr.Error()}, evalErr
	}

	if p.mode == ModeDuel {
		correct, err := ParseDuelVerdict(raw)
		if err != nil {
			return Snapshot{State: StateFailed, ErrorKind: KindMalformedVerdict, Error: err.Error()}, err
		}
		return Snapshot{State: StateCompleted, Correct: &correct}, nil
	}

	v, err := ParseVerdict(raw)
	if err != nil {
		return Snapshot{State: StateFailed, ErrorKind: KindMalformedVerdict, Error: err.Error()}, err
	}
	return Snapshot{State: StateCompleted, Verdict: &v}, nil
}

func consoleLine(problem model.Problem, s Snapshot) string {
	switch {
	case s.State == StateFailed:
		return fmt.Sprintf("Judging %s failed: %s", problem.Title, s.ErrorKind)
	case s.Correct != nil && *s.Correct:
		return fmt.Sprintf("Duel verdict for %s: correct", problem.Title)
	case s.Correct != nil:
		return fmt.Sprintf("Duel verdict for %s: incorrect", problem.Title)
	case s.Verdict != nil:
		return fmt.Sprintf("Judged %s: %s (%d/%d)", problem.Title, s.Verdict.Status, s.Verdict.TotalScore, s.Verdict.MaxScore)
	}
	return fmt.Sprintf("Judged %s", problem.Title)
}
