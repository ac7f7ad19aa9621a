package model

import (
	"fmt"
	"time"
)

type DuelOutcome string

const (
	DuelPending DuelOutcome = "pending"
	DuelVictory DuelOutcome = "victory"
	DuelDefeat  DuelOutcome = "defeat"
)

type DuelPhase string

const (
	DuelSetup      DuelPhase = "setup"
	DuelInProgress DuelPhase = "in_progress"
	DuelResolved   DuelPhase = "resolved"
)

// MaxOpponentProgress is the progress at which the simulated opponent has solved the problem.
const MaxOpponentProgress = 100.0

// DuelSession is a value snapshot; simulators hand out copies.
type DuelSession struct {
	ID               string      `json:"id"`
	Phase            DuelPhase   `json:"phase"`
	Problem          Problem     `json:"problem"`
	StartTime        time.Time   `json:"start_time"`
	ElapsedSeconds   int         `json:"elapsed_seconds"`
	OpponentProgress float64     `json:"opponent_progress"`
	Outcome          DuelOutcome `json:"outcome"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty"`
}

// Clock renders the elapsed time as m:ss.
func (s DuelSession) Clock() string {
	return fmt.Sprintf("%d:%02d", s.ElapsedSeconds/60, s.ElapsedSeconds%60)
}
