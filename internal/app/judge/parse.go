package judge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
)

// ParseError describes why an evaluator response was rejected.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed verdict: %s", e.Reason)
	}
	return fmt.Sprintf("malformed verdict: %s: %s", e.Field, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return common.ErrMalformedVerdict
}

type rawVerdict struct {
	Status       *string        `json:"status"`
	TotalScore   *float64       `json:"totalScore"`
	MaxScore     *float64       `json:"maxScore"`
	MemoryUsage  *string        `json:"memoryUsage"`
	Runtime      *string        `json:"runtime"`
	ErrorLine    *float64       `json:"errorLine"`
	ErrorMessage *string        `json:"errorMessage"`
	TestCases    *[]rawTestCase `json:"testCases"`
}

type rawTestCase struct {
	ID          *float64 `json:"id"`
	Status      *string  `json:"status"`
	Input       *string  `json:"input"`
	Expected    *string  `json:"expected"`
	Actual      *string  `json:"actual"`
	Description *string  `json:"description"`
	Score       *float64 `json:"score"`
}

type rawDuelVerdict struct {
	Correct *bool `json:"correct"`
}

// ParseVerdict validates a full-mode response and re-derives its status and scores.
func ParseVerdict(raw []byte) (model.JudgeVerdict, error) {
	var rv rawVerdict
	if err := decode(raw, &rv); err != nil {
		return model.JudgeVerdict{}, err
	}

	switch {
	case rv.Status == nil:
		return model.JudgeVerdict{}, missing("status")
	case rv.TotalScore == nil:
		return model.JudgeVerdict{}, missing("totalScore")
	case rv.MaxScore == nil:
		return model.JudgeVerdict{}, missing("maxScore")
	case rv.MemoryUsage == nil:
		return model.JudgeVerdict{}, missing("memoryUsage")
	case rv.Runtime == nil:
		return model.JudgeVerdict{}, missing("runtime")
	case rv.TestCases == nil:
		return model.JudgeVerdict{}, missing("testCases")
	}
	status := model.JudgeStatus(*rv.Status)
	if !status.Valid() {
		return model.JudgeVerdict{}, &ParseError{Field: "status", Reason: fmt.Sprintf("unknown status %q", *rv.Status)}
	}

	v := model.JudgeVerdict{
		MaxScore:     model.MaxScore,
		MemoryUsage:  *rv.MemoryUsage,
		Runtime:      *rv.Runtime,
		ErrorMessage: rv.ErrorMessage,
		TestCases:    make([]model.TestCaseResult, 0, len(*rv.TestCases)),
	}
	if rv.ErrorLine != nil {
		line, ok := integral(*rv.ErrorLine)
		if !ok {
			return model.JudgeVerdict{}, &ParseError{Field: "errorLine", Reason: "not an integer"}
		}
		v.ErrorLine = &line
	}

	for i, rc := range *rv.TestCases {
		tc, err := parseTestCase(i, rc)
		if err != nil {
			return model.JudgeVerdict{}, err
		}
		v.TestCases = append(v.TestCases, tc)
	}

	v.Status = deriveStatus(status, v)
	v.TotalScore = normalizeScore(*rv.TotalScore, *rv.MaxScore)
	return v, nil
}

// ParseDuelVerdict validates a duel-mode response.
func ParseDuelVerdict(raw []byte) (bool, error) {
	var rv rawDuelVerdict
	if err := decode(raw, &rv); err != nil {
		return false, err
	}
	if rv.Correct == nil {
		return false, missing("correct")
	}
	return *rv.Correct, nil
}

func parseTestCase(i int, rc rawTestCase) (model.TestCaseResult, error) {
	field := func(name string) string { return fmt.Sprintf("testCases[%d].%s", i, name) }
	switch {
	case rc.ID == nil:
		return model.TestCaseResult{}, missing(field("id"))
	case rc.Status == nil:
		return model.TestCaseResult{}, missing(field("status"))
	case rc.Input == nil:
		return model.TestCaseResult{}, missing(field("input"))
	case rc.Expected == nil:
		return model.TestCaseResult{}, missing(field("expected"))
	case rc.Actual == nil:
		return model.TestCaseResult{}, missing(field("actual"))
	case rc.Description == nil:
		return model.TestCaseResult{}, missing(field("description"))
	case rc.Score == nil:
		return model.TestCaseResult{}, missing(field("score"))
	}
	id, ok := integral(*rc.ID)
	if !ok {
		return model.TestCaseResult{}, &ParseError{Field: field("id"), Reason: "not an integer"}
	}
	status := model.TestCaseStatus(*rc.Status)
	if !status.Valid() {
		return model.TestCaseResult{}, &ParseError{Field: field("status"), Reason: fmt.Sprintf("unknown status %q", *rc.Status)}
	}
	score := clampScore(*rc.Score)
	return model.TestCaseResult{
		ID:          id,
		Status:      status,
		Input:       *rc.Input,
		Expected:    *rc.Expected,
		Actual:      *rc.Actual,
		Description: *rc.Description,
		Score:       score,
	}, nil
}

// deriveStatus keeps the supplied status unless it claims AC with a non-passing case.
func deriveStatus(supplied model.JudgeStatus, v model.JudgeVerdict) model.JudgeStatus {
	if supplied == model.JudgeAccepted && !v.AllPassed() {
		return model.JudgeWrongAnswer
	}
	return supplied
}

// normalizeScore rescales total onto a 100 point scale and clamps it.
func normalizeScore(total, maxScore float64) int {
	if maxScore > 0 && maxScore != model.MaxScore {
		total = total * model.MaxScore / maxScore
	}
	return clampScore(total)
}

// clampScore bounds f to [0, MaxScore] before converting, so huge values saturate.
func clampScore(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	f = math.Max(0, math.Min(f, model.MaxScore))
	return int(math.Round(f))
}

func integral(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func missing(field string) error {
	return &ParseError{Field: field, Reason: "required field is missing"}
}

// decode accepts a bare JSON object, optionally wrapped in a markdown code fence.
func decode(raw []byte, dst interface{}) error {
	body := bytes.TrimSpace(raw)
	if bytes.HasPrefix(body, []byte("```")) {
		body = bytes.TrimPrefix(body, []byte("```"))
		body = bytes.TrimPrefix(body, []byte("json"))
		body = bytes.TrimSuffix(bytes.TrimSpace(body), []byte("```"))
	}
	if len(body) == 0 {
		return &ParseError{Reason: "empty response"}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ParseError{Reason: err.Error()}
	}
	return nil
}
