package judge

import (
	"fmt"
	"strings"

	"codeforge_arena/internal/domain/model"
)

// BuildRequest assembles the evaluator request, including the natural-language prompt.
func BuildRequest(mode Mode, problem model.Problem, language, code string) EvaluationRequest {
	return EvaluationRequest{
		Mode:             mode,
		ProblemTitle:     problem.Title,
		ProblemStatement: problem.Statement,
		Language:         language,
		Code:             code,
		Prompt:           buildPrompt(mode, problem, language, code),
	}
}

func buildPrompt(mode Mode, problem model.Problem, language, code string) string {
	var b strings.Builder
	if mode == ModeDuel {
		fmt.Fprintf(&b, "Competitive Duel Mode: %s\n", problem.Title)
		b.WriteString("Evaluate this code for correctness.\n")
		b.WriteString(code)
		b.WriteString("\nReturn JSON { \"correct\": boolean }\n")
		return b.String()
	}

	b.WriteString("You are a strict competitive programming judge.\n")
	fmt.Fprintf(&b, "Problem: %s\n", problem.Title)
	fmt.Fprintf(&b, "Statement: %s\n", problem.Statement)
	fmt.Fprintf(&b, "Language: %s\n", language)
	b.WriteString("Code:\n")
	b.WriteString(code)
	b.WriteString("\n\nGenerate 5 test cases (including edge cases), run the code against them mentally, ")
	b.WriteString("and report each case as passed, failed or error. ")
	b.WriteString("Status must be AC only if every test case passed; otherwise WA, TLE, RE or CE. ")
	b.WriteString("If the code does not compile, report CE with errorLine and errorMessage. ")
	b.WriteString("Return JSON with status, totalScore, maxScore (100), memoryUsage, runtime and testCases ")
	b.WriteString("[{id, status, input, expected, actual, description, score}].\n")
	return b.String()
}
