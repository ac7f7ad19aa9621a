package service

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
	"codeforge_arena/internal/domain/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	publisher      EventPublisher
	db             *sql.DB // For transactions
	now            func() time.Time
}

func NewSubmissionService(subRepo repository.SubmissionRepository, publisher EventPublisher, db *sql.DB) *SubmissionService {
	return &SubmissionService{
		submissionRepo: subRepo,
		publisher:      publisher,
		db:             db,
		now:            time.Now,
	}
}

// RecordVerdict stores a judged submission and announces it. CE verdicts are not submissions
// and yield (nil, nil).
func (s *SubmissionService) RecordVerdict(ctx context.Context, userID string, problem model.Problem, language string, v model.JudgeVerdict) (*model.Submission, error) {
	verdict, ok := v.Status.SubmissionVerdict()
	if !ok {
		return nil, nil
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		ProblemID: problem.ID,
		UserID:    userID,
		Verdict:   verdict,
		Timestamp: s.now().UTC(),
		RuntimeMs: ParseRuntimeMs(v.Runtime),
		MemoryKb:  ParseMemoryKb(v.MemoryUsage),
		Language:  language,
	}
	if verdict != model.VerdictAccepted {
		if id, failed := v.FirstFailedTestCase(); failed {
			submission.FailedTestCase = &id
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	ev := model.SubmissionEvent{
		SubmissionID: submission.ID,
		UserID:       userID,
		ProblemID:    problem.ID,
		Topic:        problem.Topic,
		Verdict:      verdict,
		OccurredAt:   submission.Timestamp,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// The submission is stored; the stat catches up on the next event for this topic.
		log.Errorf("ERROR: Failed to publish event for submission %s: %v", submission.ID, err)
	}

	log.Infof("INFO: Submission %s recorded for user %s on %s with verdict %s.", submission.ID, userID, problem.ID, verdict)
	return submission, nil
}

func (s *SubmissionService) ListByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	subs, err := s.submissionRepo.ListSubmissionsByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

var measureRe = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

// ParseRuntimeMs reads evaluator runtimes such as "120ms", "0.5 s" or "15". Unknown formats give 0.
func ParseRuntimeMs(s string) int {
	value, unit, ok := parseMeasure(s)
	if !ok {
		return 0
	}
	switch unit {
	case "", "ms":
		return int(value + 0.5)
	case "s", "sec":
		return int(value*1000 + 0.5)
	}
	return 0
}

// ParseMemoryKb reads evaluator memory figures such as "4500 KB", "4.5MB" or "1GB". Unknown formats give 0.
func ParseMemoryKb(s string) int {
	value, unit, ok := parseMeasure(s)
	if !ok {
		return 0
	}
	switch unit {
	case "", "kb", "k", "kib":
		return int(value + 0.5)
	case "mb", "m", "mib":
		return int(value*1024 + 0.5)
	case "gb", "g", "gib":
		return int(value*1024*1024 + 0.5)
	case "b":
		return int(value/1024 + 0.5)
	}
	return 0
}

func parseMeasure(s string) (float64, string, bool) {
	m := measureRe.FindStringSubmatch(s)
	if m == nil {
		return 0, "", false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	return value, strings.ToLower(m[2]), true
}
