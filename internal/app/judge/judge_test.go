package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
)

var testProblem = model.Problem{ID: "j1", Title: "A+B Problem", Topic: "Basics", Difficulty: model.DifficultyEasy, Statement: "Input two integers A and B. Output their sum A+B."}

func verdictJSON(status string, totalScore int, caseStatuses ...string) []byte {
	cases := make([]map[string]interface{}, len(caseStatuses))
	for i, s := range caseStatuses {
		cases[i] = map[string]interface{}{
			"id": i + 1, "status": s, "input": "2 3", "expected": "5", "actual": "5",
			"description": "sample", "score": 20,
		}
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"status": status, "totalScore": totalScore, "maxScore": 100,
		"memoryUsage": "4.5 MB", "runtime": "120ms", "testCases": cases,
	})
	return raw
}

func TestParseVerdictDerivesStatus(t *testing.T) {
	tests := []struct {
		name   string
		raw    []byte
		status model.JudgeStatus
		score  int
	}{
		{"all passed ignores inconsistent score", verdictJSON("AC", 40, "passed", "passed", "passed", "passed", "passed"), model.JudgeAccepted, 40},
		{"claimed AC with a failure", verdictJSON("AC", 100, "passed", "failed", "passed"), model.JudgeWrongAnswer, 100},
		{"claimed AC with an error case", verdictJSON("AC", 80, "passed", "error"), model.JudgeWrongAnswer, 80},
		{"TLE kept", verdictJSON("TLE", 60, "passed", "failed"), model.JudgeTimeLimitExceeded, 60},
		{"CE kept", verdictJSON("CE", 0), model.JudgeCompileError, 0},
		{"AC with no cases", verdictJSON("AC", 100), model.JudgeAccepted, 100},
		{"score clamped high", verdictJSON("WA", 250, "failed"), model.JudgeWrongAnswer, 100},
		{"score clamped low", verdictJSON("WA", -5, "failed"), model.JudgeWrongAnswer, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVerdict(tt.raw)
			if err != nil {
				t.Fatal("Error:", err)
			}
			if v.Status != tt.status {
				t.Fatalf("Expected status %s, got %s", tt.status, v.Status)
			}
			if v.TotalScore != tt.score || v.MaxScore != model.MaxScore {
				t.Fatalf("Expected %d/100, got %d/%d", tt.score, v.TotalScore, v.MaxScore)
			}
		})
	}
}

func TestParseVerdictRescalesMaxScore(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		total     int
		caseScore int
	}{
		{"rescaled", `{"status":"WA","totalScore":5,"maxScore":10,"memoryUsage":"1 MB","runtime":"1ms","testCases":[
			{"id":1,"status":"failed","input":"","expected":"1","actual":"2","description":"d","score":-3}]}`, 50, 0},
		{"overscored", `{"status":"AC","totalScore":1e20,"maxScore":100,"memoryUsage":"1 MB","runtime":"1ms","testCases":[
			{"id":1,"status":"passed","input":"","expected":"1","actual":"1","description":"d","score":1e20}]}`, 100, 100},
		{"overscored after rescale", `{"status":"AC","totalScore":40,"maxScore":20,"memoryUsage":"1 MB","runtime":"1ms","testCases":[
			{"id":1,"status":"passed","input":"","expected":"1","actual":"1","description":"d","score":-1e20}]}`, 100, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseVerdict([]byte(tc.raw))
			if err != nil {
				t.Fatal("Error:", err)
			}
			if v.TotalScore != tc.total || v.MaxScore != 100 {
				t.Fatalf("Expected %d/100, got %d/%d", tc.total, v.TotalScore, v.MaxScore)
			}
			if v.TestCases[0].Score != tc.caseScore {
				t.Fatalf("Expected case score %d, got %d", tc.caseScore, v.TestCases[0].Score)
			}
		})
	}
}

func TestParseVerdictOptionalFields(t *testing.T) {
	raw := []byte("```json\n" + `{"status":"CE","totalScore":0,"maxScore":100,"memoryUsage":"0 KB","runtime":"0ms",
		"errorLine":3,"errorMessage":"expected ';'","testCases":[]}` + "\n```")
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if v.ErrorLine == nil || *v.ErrorLine != 3 || v.ErrorMessage == nil || *v.ErrorMessage != "expected ';'" {
		t.Fatalf("Unexpected error details: %+v", v)
	}
}

func TestParseVerdictMalformed(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing status", `{"totalScore":0,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[]}`, "status"},
		{"unknown status", `{"status":"OK","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[]}`, "status"},
		{"missing test cases", `{"status":"AC","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":""}`, "testCases"},
		{"null runtime", `{"status":"AC","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":null,"testCases":[]}`, "runtime"},
		{"bad case status", `{"status":"WA","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[
			{"id":1,"status":"skipped","input":"","expected":"","actual":"","description":"","score":0}]}`, "testCases[0].status"},
		{"case missing actual", `{"status":"WA","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[
			{"id":1,"status":"failed","input":"","expected":"","description":"","score":0}]}`, "testCases[0].actual"},
		{"huge id", `{"status":"WA","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[
			{"id":1e20,"status":"failed","input":"","expected":"","actual":"","description":"","score":0}]}`, "testCases[0].id"},
		{"fractional id", `{"status":"WA","totalScore":0,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[
			{"id":1.5,"status":"failed","input":"","expected":"","actual":"","description":"","score":0}]}`, "testCases[0].id"},
		{"wrong type", `{"status":1}`, ""},
		{"not json", `The code looks correct!`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVerdict([]byte(tt.raw))
			if !errors.Is(err, common.ErrMalformedVerdict) {
				t.Fatalf("Expected ErrMalformedVerdict, got %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Expected *ParseError, got %T", err)
			}
			if perr.Field != tt.field {
				t.Fatalf("Expected field %q, got %q", tt.field, perr.Field)
			}
		})
	}
}

func TestParseDuelVerdict(t *testing.T) {
	if ok, err := ParseDuelVerdict([]byte(`{"correct":true}`)); err != nil || !ok {
		t.Fatalf("Expected correct, got %v, %v", ok, err)
	}
	if ok, err := ParseDuelVerdict([]byte(`{"correct":false}`)); err != nil || ok {
		t.Fatalf("Expected incorrect, got %v, %v", ok, err)
	}
	for _, raw := range []string{`{}`, `{"correct":"yes"}`, `[]`} {
		if _, err := ParseDuelVerdict([]byte(raw)); !errors.Is(err, common.ErrMalformedVerdict) {
			t.Fatalf("%s: expected ErrMalformedVerdict, got %v", raw, err)
		}
	}
}

type fakeEvaluator struct {
	mu       sync.Mutex
	calls    []EvaluationRequest
	response []byte
	err      error
	// gate, when set, blocks Evaluate until a value arrives or ctx ends.
	gate chan []byte
}

func (e *fakeEvaluator) Evaluate(ctx context.Context, req EvaluationRequest) ([]byte, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	gate := e.gate
	e.mu.Unlock()
	if gate != nil {
		select {
		case raw := <-gate:
			return raw, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.response, e.err
}

func (e *fakeEvaluator) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type fakeRecorder struct {
	mu       sync.Mutex
	verdicts []model.JudgeVerdict
}

func (r *fakeRecorder) RecordVerdict(_ context.Context, userID string, problem model.Problem, language string, v model.JudgeVerdict) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts = append(r.verdicts, v)
	return &model.Submission{ProblemID: problem.ID, UserID: userID, Language: language}, nil
}

func (r *fakeRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.verdicts)
}

type fakeConsole struct {
	mu    sync.Mutex
	lines []string
}

func (c *fakeConsole) Append(_ context.Context, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, msg)
}

func (c *fakeConsole) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func TestPipelineCompleted(t *testing.T) {
	eval := &fakeEvaluator{response: verdictJSON("AC", 100, "passed", "passed", "passed", "passed", "passed")}
	rec := &fakeRecorder{}
	console := &fakeConsole{}
	p := NewPipeline("u1", ModeFull, eval, rec, console)

	snap, err := p.Submit(context.Background(), testProblem, "Python", "print(sum(map(int, input().split())))")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if snap.State != StateCompleted || snap.Verdict == nil || snap.Verdict.Status != model.JudgeAccepted {
		t.Fatalf("Unexpected snapshot: %+v", snap)
	}
	if rec.count() != 1 {
		t.Fatalf("Expected 1 recorded submission, got %d", rec.count())
	}
	if console.count() != 1 || !strings.Contains(console.lines[0], "AC") {
		t.Fatalf("Unexpected console lines: %v", console.lines)
	}
	req := eval.calls[0]
	if req.Mode != ModeFull || req.ProblemTitle != testProblem.Title || req.ProblemStatement != testProblem.Statement || req.Language != "Python" {
		t.Fatalf("Unexpected request: %+v", req)
	}
	if p.Snapshot().Generation != snap.Generation {
		t.Fatal("Snapshot generation mismatch")
	}
}

func TestPipelineMalformedRecordsNothing(t *testing.T) {
	eval := &fakeEvaluator{response: []byte(`{"totalScore":100,"maxScore":100,"memoryUsage":"","runtime":"","testCases":[]}`)}
	rec := &fakeRecorder{}
	console := &fakeConsole{}
	p := NewPipeline("u1", ModeFull, eval, rec, console)

	snap, err := p.Submit(context.Background(), testProblem, "Go", "package main")
	if !errors.Is(err, common.ErrMalformedVerdict) {
		t.Fatalf("Expected ErrMalformedVerdict, got %v", err)
	}
	if snap.State != StateFailed || snap.ErrorKind != KindMalformedVerdict {
		t.Fatalf("Unexpected snapshot: %+v", snap)
	}
	if snap.Code != "package main" {
		t.Fatal("Submitted code must be kept for retry")
	}
	if rec.count() != 0 {
		t.Fatalf("Expected no recorded submission, got %d", rec.count())
	}
	if console.count() != 1 {
		t.Fatalf("Expected 1 console line, got %d", console.count())
	}
}

func TestPipelineEvaluationUnavailable(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("dial tcp: connection refused")}
	rec := &fakeRecorder{}
	p := NewPipeline("u1", ModeFull, eval, rec, &fakeConsole{})

	snap, err := p.Submit(context.Background(), testProblem, "Go", "package main")
	if !errors.Is(err, common.ErrEvaluationUnavailable) {
		t.Fatalf("Expected ErrEvaluationUnavailable, got %v", err)
	}
	if snap.State != StateFailed || snap.ErrorKind != KindEvaluationUnavailable || rec.count() != 0 {
		t.Fatalf("Unexpected snapshot: %+v", snap)
	}
}

func TestPipelineInvalidInput(t *testing.T) {
	eval := &fakeEvaluator{response: verdictJSON("AC", 100)}
	p := NewPipeline("u1", ModeFull, eval, &fakeRecorder{}, &fakeConsole{})
	before := p.Snapshot()

	for _, code := range []string{"", "   \n\t"} {
		snap, err := p.Submit(context.Background(), testProblem, "Go", code)
		if !errors.Is(err, common.ErrInvalidInput) {
			t.Fatalf("Expected ErrInvalidInput, got %v", err)
		}
		if snap.State != StateIdle || snap.Generation != before.Generation {
			t.Fatalf("State changed on invalid input: %+v", snap)
		}
	}
	if _, err := p.SubmitAsync(context.Background(), testProblem, "Go", " "); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput, got %v", err)
	}
	if eval.callCount() != 0 {
		t.Fatalf("Evaluator called %d times for blank code", eval.callCount())
	}
}

func waitForCalls(t *testing.T, eval *fakeEvaluator, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for eval.callCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Evaluator was not called %d times", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPipelineSupersededResultIsDropped(t *testing.T) {
	eval := &fakeEvaluator{gate: make(chan []byte)}
	rec := &fakeRecorder{}
	console := &fakeConsole{}
	p := NewPipeline("u1", ModeFull, eval, rec, console)
	ctx := context.Background()

	first, err := p.SubmitAsync(ctx, testProblem, "Go", "first")
	if err != nil {
		t.Fatal("Error:", err)
	}
	waitForCalls(t, eval, 1)
	if p.Snapshot().State != StateAwaitingExternalVerdict {
		t.Fatalf("Expected awaiting state, got %s", p.Snapshot().State)
	}

	second, err := p.SubmitAsync(ctx, testProblem, "Go", "second")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if _, err := first.Get(ctx); !errors.Is(err, common.ErrJudgeSuperseded) {
		t.Fatalf("Expected ErrJudgeSuperseded, got %v", err)
	}

	waitForCalls(t, eval, 2)
	eval.gate <- verdictJSON("AC", 100, "passed")
	snap, err := second.Get(ctx)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if snap.Code != "second" || snap.State != StateCompleted {
		t.Fatalf("Unexpected snapshot: %+v", snap)
	}
	if rec.count() != 1 || console.count() != 1 {
		t.Fatalf("Expected one recorded result, got %d recorded and %d console lines", rec.count(), console.count())
	}
}

func TestPipelineAbandon(t *testing.T) {
	eval := &fakeEvaluator{gate: make(chan []byte)}
	rec := &fakeRecorder{}
	p := NewPipeline("u1", ModeFull, eval, rec, &fakeConsole{})
	ctx := context.Background()

	fut, err := p.SubmitAsync(ctx, testProblem, "Go", "code")
	if err != nil {
		t.Fatal("Error:", err)
	}
	waitForCalls(t, eval, 1)
	idle := p.Abandon()
	if idle.State != StateIdle || idle.Code != "code" {
		t.Fatalf("Unexpected snapshot after abandon: %+v", idle)
	}
	if _, err := fut.Get(ctx); !errors.Is(err, common.ErrJudgeSuperseded) {
		t.Fatalf("Expected ErrJudgeSuperseded, got %v", err)
	}
	if p.Snapshot().State != StateIdle || rec.count() != 0 {
		t.Fatal("Late result must not change the pipeline")
	}
}

func TestPipelineCallerGoneIsAbandonment(t *testing.T) {
	eval := &fakeEvaluator{gate: make(chan []byte)}
	rec := &fakeRecorder{}
	console := &fakeConsole{}
	p := NewPipeline("u1", ModeFull, eval, rec, console)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for eval.callCount() < 1 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	if _, err := p.Submit(ctx, testProblem, "Go", "code"); !errors.Is(err, common.ErrJudgeSuperseded) {
		t.Fatalf("Expected ErrJudgeSuperseded, got %v", err)
	}
	snap := p.Snapshot()
	if snap.State != StateIdle || snap.Code != "code" || snap.ErrorKind != "" {
		t.Fatalf("Expected idle snapshot keeping the code, got %+v", snap)
	}
	if rec.count() != 0 || console.count() != 0 {
		t.Fatalf("Abandonment must not record or log, got %d recorded and %d console lines", rec.count(), console.count())
	}
}

// answerThenCancel returns a verdict after the caller's context was cancelled.
type answerThenCancel struct {
	cancel   context.CancelFunc
	response []byte
}

func (e answerThenCancel) Evaluate(context.Context, EvaluationRequest) ([]byte, error) {
	e.cancel()
	return e.response, nil
}

type ctxCheckingRecorder struct {
	fakeRecorder
	cancelled bool
}

func (r *ctxCheckingRecorder) RecordVerdict(ctx context.Context, userID string, problem model.Problem, language string, v model.JudgeVerdict) (*model.Submission, error) {
	if ctx.Err() != nil {
		r.cancelled = true
		return nil, ctx.Err()
	}
	return r.fakeRecorder.RecordVerdict(ctx, userID, problem, language, v)
}

func TestPipelineRecordsVerdictAfterCallerLeft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &ctxCheckingRecorder{}
	eval := answerThenCancel{cancel: cancel, response: verdictJSON("AC", 100, "passed")}
	p := NewPipeline("u1", ModeFull, eval, rec, &fakeConsole{})

	snap, err := p.Submit(ctx, testProblem, "Go", "code")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if snap.State != StateCompleted {
		t.Fatalf("Expected completed snapshot, got %+v", snap)
	}
	if rec.cancelled || rec.count() != 1 {
		t.Fatalf("Expected the verdict recorded, cancelled=%v count=%d", rec.cancelled, rec.count())
	}
}

func TestPipelineDuelMode(t *testing.T) {
	eval := &fakeEvaluator{response: []byte(`{"correct":true}`)}
	rec := &fakeRecorder{}
	r := NewRegistry(eval, rec, &fakeConsole{})
	p := r.Pipeline("u1", ModeDuel)
	if r.Pipeline("u1", ModeDuel) != p {
		t.Fatal("Registry must reuse pipelines")
	}
	if r.Pipeline("u1", ModeFull) == p {
		t.Fatal("Modes must not share pipelines")
	}

	snap, err := p.Submit(context.Background(), testProblem, "Python", "print(a+b)")
	if err != nil {
		t.Fatal("Error:", err)
	}
	if snap.Correct == nil || !*snap.Correct || snap.Verdict != nil {
		t.Fatalf("Unexpected duel snapshot: %+v", snap)
	}
	if rec.count() != 0 {
		t.Fatal("Duel verdicts are not submissions")
	}
	if !strings.Contains(eval.calls[0].Prompt, "Competitive Duel Mode: A+B Problem") {
		t.Fatalf("Unexpected duel prompt: %q", eval.calls[0].Prompt)
	}
}

func TestHTTPEvaluator(t *testing.T) {
	var gotAuth string
	var gotReq EvaluationRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if gotReq.Code == "boom" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"correct":true}`))
	}))
	defer server.Close()

	e := NewHTTPEvaluator(server.URL, "secret", time.Second)
	raw, err := e.Evaluate(context.Background(), BuildRequest(ModeDuel, testProblem, "Go", "ok"))
	if err != nil {
		t.Fatal("Error:", err)
	}
	if string(raw) != `{"correct":true}` || gotAuth != "Bearer secret" || gotReq.Mode != ModeDuel {
		t.Fatalf("Unexpected exchange: %s, %q, %+v", raw, gotAuth, gotReq)
	}

	if _, err := e.Evaluate(context.Background(), BuildRequest(ModeDuel, testProblem, "Go", "boom")); !errors.Is(err, common.ErrEvaluationUnavailable) {
		t.Fatalf("Expected ErrEvaluationUnavailable, got %v", err)
	}

	down := NewHTTPEvaluator("http://127.0.0.1:1", "", time.Second)
	if _, err := down.Evaluate(context.Background(), BuildRequest(ModeFull, testProblem, "Go", "x")); !errors.Is(err, common.ErrEvaluationUnavailable) {
		t.Fatalf("Expected ErrEvaluationUnavailable, got %v", err)
	}
}

func TestMockEvaluatorProducesValidVerdicts(t *testing.T) {
	raw, err := MockEvaluator{}.Evaluate(context.Background(), BuildRequest(ModeFull, testProblem, "Go", "x"))
	if err != nil {
		t.Fatal("Error:", err)
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatal("Error:", err)
	}
	if v.Status != model.JudgeAccepted || len(v.TestCases) != 5 {
		t.Fatalf("Unexpected mock verdict: %+v", v)
	}
	raw, err = MockEvaluator{}.Evaluate(context.Background(), BuildRequest(ModeDuel, testProblem, "Go", "x"))
	if err != nil {
		t.Fatal("Error:", err)
	}
	if ok, err := ParseDuelVerdict(raw); err != nil || !ok {
		t.Fatalf("Unexpected mock duel verdict: %v, %v", ok, err)
	}
}

func TestAfter(t *testing.T) {
	f := After(Async(func() (int, error) { return 20, nil }), func(f Future[int]) (int, error) {
		v, err := f.Get(context.Background())
		return v + 1, err
	})
	v, err := f.Get(context.Background())
	if err != nil || v != 21 {
		t.Fatalf("Expected 21, got %d, %v", v, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)
	slow := Async(func() (int, error) { <-block; return 1, nil })
	if _, err := slow.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}
