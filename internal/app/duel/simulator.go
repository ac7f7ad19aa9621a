package duel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Console receives duel start and resolution lines.
type Console interface {
	Append(ctx context.Context, msg string)
}

// Leaderboard records victories by solve time.
type Leaderboard interface {
	RecordVictory(ctx context.Context, userID string, seconds int) error
}

type verdictEvent struct {
	sessionID string
	correct   bool
	reply     chan model.DuelSession
}

// run is one in-progress duel and its event loop.
type run struct {
	verdicts chan verdictEvent
	quit     chan struct{}
	done     chan struct{}
}

// Simulator runs one user's duels. Ticks, verdicts and exit are serialized by a
// per-duel event loop; a verdict that is ready together with a tick wins.
type Simulator struct {
	userID      string
	interval    time.Duration
	newTicker   TickerFactory
	rnd         RandomSource
	console     Console
	leaderboard Leaderboard
	now         func() time.Time

	ctl     sync.Mutex // serializes Start and Exit
	mu      sync.Mutex
	session *model.DuelSession
	current *run
}

type Options struct {
	Interval    time.Duration
	NewTicker   TickerFactory
	Random      RandomSource
	Console     Console
	Leaderboard Leaderboard
}

func NewSimulator(userID string, opts Options) *Simulator {
	s := &Simulator{
		userID:      userID,
		interval:    opts.Interval,
		newTicker:   opts.NewTicker,
		rnd:         opts.Random,
		console:     opts.Console,
		leaderboard: opts.Leaderboard,
		now:         time.Now,
	}
	if s.interval <= 0 {
		s.interval = time.Second
	}
	if s.newTicker == nil {
		s.newTicker = NewTimeTicker
	}
	if s.rnd == nil {
		s.rnd = NewRandomSource(time.Now().UnixNano())
	}
	return s
}

// Snapshot returns the current session, or a setup-phase session when no duel exists.
func (s *Simulator) Snapshot() model.DuelSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return model.DuelSession{Phase: model.DuelSetup}
	}
	return *s.session
}

// Start begins a new duel on problem, replacing any existing one.
func (s *Simulator) Start(problem model.Problem) model.DuelSession {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.exit()

	session := NewSession(uuid.NewString(), problem, s.now())
	r := &run{
		verdicts: make(chan verdictEvent),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	ticker := s.newTicker(s.interval)

	s.mu.Lock()
	s.session = &session
	s.current = r
	s.mu.Unlock()

	go s.loop(r, ticker)
	s.appendConsole(fmt.Sprintf("Duel started: %s", problem.Title))
	log.Infof("INFO: Duel %s started for user %s on %s", session.ID, s.userID, problem.ID)
	return session
}

// SubmitVerdict delivers a duel-mode verdict for sessionID and returns the session after it
// was applied. Verdicts for other sessions or resolved duels change nothing.
func (s *Simulator) SubmitVerdict(sessionID string, correct bool) (model.DuelSession, error) {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return s.Snapshot(), common.Errorf("verdict for duel %s: %w", sessionID, common.ErrDuelNotActive)
	}

	ev := verdictEvent{sessionID: sessionID, correct: correct, reply: make(chan model.DuelSession, 1)}
	select {
	case r.verdicts <- ev:
		return <-ev.reply, nil
	case <-r.done:
		return s.Snapshot(), nil
	}
}

// Exit stops the running duel, if any, and returns to setup.
func (s *Simulator) Exit() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.exit()
}

func (s *Simulator) exit() {
	s.mu.Lock()
	r := s.current
	s.current = nil
	s.mu.Unlock()

	if r != nil {
		close(r.quit)
		<-r.done
	}

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// Done is closed when the running duel resolves or exits. It is nil when no duel runs.
func (s *Simulator) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.done
}

func (s *Simulator) loop(r *run, ticker Ticker) {
	defer close(r.done)
	defer ticker.Stop()

	for {
		// Verdicts first, so a verdict racing a tick is applied before it.
		select {
		case ev := <-r.verdicts:
			if s.handleVerdict(ev) {
				return
			}
			continue
		case <-r.quit:
			return
		default:
		}

		select {
		case ev := <-r.verdicts:
			if s.handleVerdict(ev) {
				return
			}
		case <-ticker.C():
			select {
			case ev := <-r.verdicts:
				if s.handleVerdict(ev) {
					return
				}
			default:
			}
			if s.handleTick() {
				return
			}
		case <-r.quit:
			return
		}
	}
}

// handleVerdict applies ev and reports whether the duel resolved.
func (s *Simulator) handleVerdict(ev verdictEvent) bool {
	s.mu.Lock()
	if s.session == nil || s.session.ID != ev.sessionID {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		ev.reply <- snap
		return false
	}
	next := ApplyVerdict(*s.session, ev.correct, s.now())
	s.session = &next
	s.mu.Unlock()

	ev.reply <- next
	if next.Outcome == model.DuelVictory {
		s.onVictory(next)
		return true
	}
	if !ev.correct {
		s.appendConsole(fmt.Sprintf("Duel submission for %s rejected, keep trying", next.Problem.Title))
	}
	return false
}

// handleTick advances the clock and reports whether the duel resolved.
func (s *Simulator) handleTick() bool {
	increment := s.rnd.Float64() * MaxIncrement
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return true
	}
	next := ApplyTick(*s.session, increment, s.now())
	s.session = &next
	s.mu.Unlock()

	if next.Outcome == model.DuelDefeat {
		s.appendConsole(fmt.Sprintf("Defeat: the opponent solved %s first (%s)", next.Problem.Title, next.Clock()))
		log.Infof("INFO: Duel %s lost by user %s after %ds", next.ID, s.userID, next.ElapsedSeconds)
		return true
	}
	return false
}

func (s *Simulator) onVictory(session model.DuelSession) {
	s.appendConsole(fmt.Sprintf("Victory! %s solved in %s", session.Problem.Title, session.Clock()))
	log.Infof("INFO: Duel %s won by user %s after %ds", session.ID, s.userID, session.ElapsedSeconds)
	if s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.RecordVictory(context.Background(), s.userID, session.ElapsedSeconds); err != nil {
		log.Errorf("ERROR: Failed to record duel victory for user %s: %v", s.userID, err)
	}
}

func (s *Simulator) snapshotLocked() model.DuelSession {
	if s.session == nil {
		return model.DuelSession{Phase: model.DuelSetup}
	}
	return *s.session
}

func (s *Simulator) appendConsole(msg string) {
	if s.console != nil {
		s.console.Append(context.Background(), msg)
	}
}
