package service

import (
	"sort"

	"codeforge_arena/internal/domain/model"
)

// BuildMistakeLog counts failing test cases per problem, most frequent first.
func BuildMistakeLog(submissions []model.Submission) []model.MistakeEntry {
	type key struct {
		problemID string
		testCase  int
	}
	counts := make(map[key]int)
	for _, s := range submissions {
		if s.FailedTestCase == nil || s.Verdict == model.VerdictAccepted {
			continue
		}
		counts[key{s.ProblemID, *s.FailedTestCase}]++
	}

	entries := make([]model.MistakeEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, model.MistakeEntry{ProblemID: k.problemID, TestCase: k.testCase, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.ProblemID != b.ProblemID {
			return a.ProblemID < b.ProblemID
		}
		return a.TestCase < b.TestCase
	})
	return entries
}
