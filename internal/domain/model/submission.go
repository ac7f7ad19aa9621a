package model

import "time"

// Verdict is the outcome recorded on a Submission.
type Verdict string

const (
	VerdictAccepted          Verdict = "AC"
	VerdictWrongAnswer       Verdict = "WA"
	VerdictTimeLimitExceeded Verdict = "TLE"
	VerdictRuntimeError      Verdict = "RE"
)

func (v Verdict) Valid() bool {
	switch v {
	case VerdictAccepted, VerdictWrongAnswer, VerdictTimeLimitExceeded, VerdictRuntimeError:
		return true
	}
	return false
}

// CountsAsWeakness reports whether the verdict is a wrong answer or a timeout.
func (v Verdict) CountsAsWeakness() bool {
	return v == VerdictWrongAnswer || v == VerdictTimeLimitExceeded
}

// Submission is immutable once recorded.
type Submission struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	UserID         string    `json:"user_id"`
	Verdict        Verdict   `json:"verdict"`
	Timestamp      time.Time `json:"timestamp"`
	RuntimeMs      int       `json:"runtime_ms"`
	MemoryKb       int       `json:"memory_kb"`
	Language       string    `json:"language"`
	FailedTestCase *int      `json:"failed_test_case,omitempty"`
}

// SubmissionEvent announces a newly recorded submission so the affected topic stat is recomputed.
type SubmissionEvent struct {
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id"`
	ProblemID    string    `json:"problem_id"`
	Topic        string    `json:"topic"`
	Verdict      Verdict   `json:"verdict"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// MistakeEntry counts how often a problem's test case was the first failing one.
type MistakeEntry struct {
	ProblemID string `json:"problem_id"`
	TestCase  int    `json:"test_case"`
	Count     int    `json:"count"`
}
