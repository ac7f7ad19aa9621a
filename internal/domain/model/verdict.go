package model

// JudgeStatus is the status of a full judging run. Unlike Verdict it includes CE.
type JudgeStatus string

const (
	JudgeAccepted          JudgeStatus = "AC"
	JudgeWrongAnswer       JudgeStatus = "WA"
	JudgeTimeLimitExceeded JudgeStatus = "TLE"
	JudgeRuntimeError      JudgeStatus = "RE"
	JudgeCompileError      JudgeStatus = "CE"
)

// MaxScore is the fixed score ceiling of every verdict.
const MaxScore = 100

func (s JudgeStatus) Valid() bool {
	switch s {
	case JudgeAccepted, JudgeWrongAnswer, JudgeTimeLimitExceeded, JudgeRuntimeError, JudgeCompileError:
		return true
	}
	return false
}

// SubmissionVerdict maps a judge status onto the recorded verdict. CE has no counterpart.
func (s JudgeStatus) SubmissionVerdict() (Verdict, bool) {
	switch s {
	case JudgeAccepted:
		return VerdictAccepted, true
	case JudgeWrongAnswer:
		return VerdictWrongAnswer, true
	case JudgeTimeLimitExceeded:
		return VerdictTimeLimitExceeded, true
	case JudgeRuntimeError:
		return VerdictRuntimeError, true
	}
	return "", false
}

type TestCaseStatus string

const (
	TestCasePassed TestCaseStatus = "passed"
	TestCaseFailed TestCaseStatus = "failed"
	TestCaseError  TestCaseStatus = "error"
)

func (s TestCaseStatus) Valid() bool {
	return s == TestCasePassed || s == TestCaseFailed || s == TestCaseError
}

type TestCaseResult struct {
	ID          int            `json:"id"`
	Status      TestCaseStatus `json:"status"`
	Input       string         `json:"input"`
	Expected    string         `json:"expected"`
	Actual      string         `json:"actual"`
	Description string         `json:"description"`
	Score       int            `json:"score"`
}

// JudgeVerdict is produced once per judging invocation.
type JudgeVerdict struct {
	Status       JudgeStatus      `json:"status"`
	TotalScore   int              `json:"totalScore"`
	MaxScore     int              `json:"maxScore"`
	MemoryUsage  string           `json:"memoryUsage"`
	Runtime      string           `json:"runtime"`
	ErrorLine    *int             `json:"errorLine,omitempty"`
	ErrorMessage *string          `json:"errorMessage,omitempty"`
	TestCases    []TestCaseResult `json:"testCases"`
}

// AllPassed reports whether every test case passed.
func (v JudgeVerdict) AllPassed() bool {
	for _, tc := range v.TestCases {
		if tc.Status != TestCasePassed {
			return false
		}
	}
	return true
}

// FirstFailedTestCase returns the id of the first non-passed test case.
func (v JudgeVerdict) FirstFailedTestCase() (int, bool) {
	for _, tc := range v.TestCases {
		if tc.Status != TestCasePassed {
			return tc.ID, true
		}
	}
	return 0, false
}
