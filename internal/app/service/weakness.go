package service

import (
	"context"
	"math"
	"sync"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
	"codeforge_arena/internal/domain/repository"

	log "github.com/sirupsen/logrus"
)

// ScoreWeakness returns round(100 * (WA+TLE) / max(total, 1)) clamped to [0, 100].
// The submissions must already be restricted to a single topic.
func ScoreWeakness(submissions []model.Submission) int {
	wrong := 0
	for _, s := range submissions {
		if s.Verdict.CountsAsWeakness() {
			wrong++
		}
	}
	total := len(submissions)
	if total == 0 {
		return 0
	}
	score := int(math.Round(100 * float64(wrong) / float64(total)))
	return clamp(score, 0, 100)
}

// BuildTopicStat aggregates one topic's submissions. Solved counts distinct accepted problems.
func BuildTopicStat(topic string, submissions []model.Submission) model.TopicStat {
	solved := make(map[string]struct{})
	for _, s := range submissions {
		if s.Verdict == model.VerdictAccepted {
			solved[s.ProblemID] = struct{}{}
		}
	}
	return model.TopicStat{
		Topic:         topic,
		Solved:        len(solved),
		Total:         len(submissions),
		WeaknessScore: ScoreWeakness(submissions),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type TopicStatService struct {
	problemRepo    repository.ProblemRepository
	submissionRepo repository.SubmissionRepository
	statRepo       repository.TopicStatRepository
	locks          *keyedMutex
	now            func() time.Time
}

func NewTopicStatService(
	problemRepo repository.ProblemRepository,
	submissionRepo repository.SubmissionRepository,
	statRepo repository.TopicStatRepository,
) *TopicStatService {
	return &TopicStatService{
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		statRepo:       statRepo,
		locks:          newKeyedMutex(),
		now:            time.Now,
	}
}

// Recompute rebuilds the (user, topic) stat from the full submission history and stores it.
// Concurrent recomputations of the same pair are serialized.
func (s *TopicStatService) Recompute(ctx context.Context, userID, topic string) (*model.TopicStat, error) {
	if userID == "" || topic == "" {
		return nil, common.Errorf("user and topic are required: %w", common.ErrInvalidInput)
	}
	unlock := s.locks.Lock(userID + "\x00" + topic)
	defer unlock()

	problems, err := s.problemRepo.ListProblems(ctx, topic)
	if err != nil {
		return nil, common.Errorf("failed to list %s problems: %w", topic, err)
	}
	ids := make([]string, 0, len(problems))
	for _, p := range problems {
		ids = append(ids, p.ID)
	}
	submissions, err := s.submissionRepo.ListSubmissionsForProblems(ctx, userID, ids)
	if err != nil {
		return nil, common.Errorf("failed to load submissions: %w", err)
	}

	stat := BuildTopicStat(topic, submissions)
	stat.UpdatedAt = s.now()
	if err := s.statRepo.UpsertTopicStat(ctx, nil, userID, stat); err != nil {
		return nil, common.Errorf("failed to store topic stat: %w", err)
	}
	log.Debugf("Recomputed %s stat for user %s: %+v", topic, userID, stat)
	return &stat, nil
}

// HandleEvent recomputes the stat affected by a recorded submission.
func (s *TopicStatService) HandleEvent(ctx context.Context, ev model.SubmissionEvent) error {
	_, err := s.Recompute(ctx, ev.UserID, ev.Topic)
	return err
}

// TopicStat returns the stored stat for one topic.
func (s *TopicStatService) TopicStat(ctx context.Context, userID, topic string) (*model.TopicStat, error) {
	st, err := s.statRepo.FindTopicStat(ctx, userID, topic)
	if err != nil {
		return nil, common.Errorf("topic stat %q: %w", topic, err)
	}
	return st, nil
}

func (s *TopicStatService) ListTopicStats(ctx context.Context, userID string) ([]model.TopicStat, error) {
	stats, err := s.statRepo.ListTopicStats(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to list topic stats: %w", err)
	}
	return stats, nil
}

// MistakeLog aggregates the user's first failing test cases.
func (s *TopicStatService) MistakeLog(ctx context.Context, userID string) ([]model.MistakeEntry, error) {
	submissions, err := s.submissionRepo.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load submissions: %w", err)
	}
	return BuildMistakeLog(submissions), nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (m *keyedMutex) Lock(key string) (unlock func()) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyedLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
