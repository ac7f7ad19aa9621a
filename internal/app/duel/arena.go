package duel

import (
	"context"
	"sync"

	"codeforge_arena/internal/app/judge"
	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	log "github.com/sirupsen/logrus"
)

// Arena owns every user's duel simulator and connects duel submissions to judging.
type Arena struct {
	opts   Options
	judges *judge.Registry

	mu   sync.Mutex
	sims map[string]*Simulator
}

func NewArena(opts Options, judges *judge.Registry) *Arena {
	return &Arena{opts: opts, judges: judges, sims: make(map[string]*Simulator)}
}

// Simulator returns the user's simulator, creating it on first use.
func (a *Arena) Simulator(userID string) *Simulator {
	a.mu.Lock()
	defer a.mu.Unlock()
	sim, ok := a.sims[userID]
	if !ok {
		sim = NewSimulator(userID, a.opts)
		a.sims[userID] = sim
	}
	return sim
}

func (a *Arena) Start(userID string, problem model.Problem) model.DuelSession {
	a.judges.Pipeline(userID, judge.ModeDuel).Abandon()
	return a.Simulator(userID).Start(problem)
}

func (a *Arena) Current(userID string) model.DuelSession {
	return a.Simulator(userID).Snapshot()
}

// Exit abandons any pending duel judging and resets the user's arena to setup.
func (a *Arena) Exit(userID string) model.DuelSession {
	a.judges.Pipeline(userID, judge.ModeDuel).Abandon()
	sim := a.Simulator(userID)
	sim.Exit()
	return sim.Snapshot()
}

// Submit sends code for duel-mode judging in the background. The returned future
// yields the session after the verdict has been applied.
func (a *Arena) Submit(userID, language, code string) (judge.Future[model.DuelSession], error) {
	sim := a.Simulator(userID)
	session := sim.Snapshot()
	if session.Phase != model.DuelInProgress {
		return nil, common.Errorf("user %s: %w", userID, common.ErrDuelNotActive)
	}

	pending, err := a.judges.Pipeline(userID, judge.ModeDuel).SubmitAsync(context.Background(), session.Problem, language, code)
	if err != nil {
		return nil, err
	}
	return judge.After(pending, func(f judge.Future[judge.Snapshot]) (model.DuelSession, error) {
		snap, err := f.Get(context.Background())
		if err != nil {
			log.Warnf("WARN: Duel judging for user %s did not complete: %v", userID, err)
			return sim.Snapshot(), err
		}
		if snap.Correct == nil {
			return sim.Snapshot(), common.Errorf("duel verdict without correctness: %w", common.ErrMalformedVerdict)
		}
		return sim.SubmitVerdict(session.ID, *snap.Correct)
	}), nil
}

// Shutdown stops every running duel.
func (a *Arena) Shutdown() {
	a.mu.Lock()
	sims := make([]*Simulator, 0, len(a.sims))
	for _, sim := range a.sims {
		sims = append(sims, sim)
	}
	a.mu.Unlock()
	for _, sim := range sims {
		sim.Exit()
	}
}
