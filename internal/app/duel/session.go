package duel

import (
	"time"

	"codeforge_arena/internal/domain/model"
)

// MaxIncrement is the largest opponent progress gained in one tick.
const MaxIncrement = 2.0

// NewSession starts a pending duel on problem.
func NewSession(id string, problem model.Problem, start time.Time) model.DuelSession {
	return model.DuelSession{
		ID:        id,
		Phase:     model.DuelInProgress,
		Problem:   problem,
		StartTime: start,
		Outcome:   model.DuelPending,
	}
}

// ApplyTick advances the clock by one second and the opponent by increment, clamped to 100.
// Reaching 100 resolves the duel as a defeat. Resolved sessions are returned unchanged.
func ApplyTick(s model.DuelSession, increment float64, at time.Time) model.DuelSession {
	if s.Outcome != model.DuelPending {
		return s
	}
	if increment < 0 {
		increment = 0
	}
	s.ElapsedSeconds++
	s.OpponentProgress += increment
	if s.OpponentProgress >= model.MaxOpponentProgress {
		s.OpponentProgress = model.MaxOpponentProgress
		return resolve(s, model.DuelDefeat, at)
	}
	return s
}

// ApplyVerdict resolves a pending duel as a victory when correct is true.
// Incorrect verdicts and resolved sessions leave the session unchanged.
func ApplyVerdict(s model.DuelSession, correct bool, at time.Time) model.DuelSession {
	if s.Outcome != model.DuelPending || !correct {
		return s
	}
	if s.OpponentProgress >= model.MaxOpponentProgress {
		return s
	}
	return resolve(s, model.DuelVictory, at)
}

func resolve(s model.DuelSession, outcome model.DuelOutcome, at time.Time) model.DuelSession {
	s.Outcome = outcome
	s.Phase = model.DuelResolved
	s.ResolvedAt = &at
	return s
}
