package judge

import (
	"sync"
)

type pipelineKey struct {
	userID string
	mode   Mode
}

// Registry owns one pipeline per user and mode.
type Registry struct {
	evaluator Evaluator
	recorder  Recorder
	console   Console

	mu        sync.Mutex
	pipelines map[pipelineKey]*Pipeline
}

func NewRegistry(evaluator Evaluator, recorder Recorder, console Console) *Registry {
	return &Registry{
		evaluator: evaluator,
		recorder:  recorder,
		console:   console,
		pipelines: make(map[pipelineKey]*Pipeline),
	}
}

// Pipeline returns the user's pipeline for mode, creating it on first use.
// Duel pipelines never record submissions.
func (r *Registry) Pipeline(userID string, mode Mode) *Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pipelineKey{userID: userID, mode: mode}
	if p, ok := r.pipelines[key]; ok {
		return p
	}
	var recorder Recorder
	if mode == ModeFull {
		recorder = r.recorder
	}
	p := NewPipeline(userID, mode, r.evaluator, recorder, r.console)
	r.pipelines[key] = p
	return p
}
