package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	ListSubmissionsByUser(ctx context.Context, userID string) ([]model.Submission, error)
	// ListSubmissionsForProblems returns the user's submissions to any of problemIDs, oldest first.
	ListSubmissionsForProblems(ctx context.Context, userID string, problemIDs []string) ([]model.Submission, error)
}

type sqlSubmissionRepository struct {
	db *sql.DB
}

func NewSQLSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &sqlSubmissionRepository{db: db}
}

const submissionColumns = `id, problem_id, user_id, verdict, submitted_at, runtime_ms, memory_kb, language, failed_test_case`

func (r *sqlSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	if !s.Verdict.Valid() {
		return fmt.Errorf("submission verdict %q: %w", s.Verdict, common.ErrValidation)
	}
	query := `INSERT INTO submissions (` + submissionColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var failed sql.NullInt64
	if s.FailedTestCase != nil {
		failed = sql.NullInt64{Int64: int64(*s.FailedTestCase), Valid: true}
	}
	args := []interface{}{s.ID, s.ProblemID, s.UserID, string(s.Verdict), s.Timestamp.UTC(), s.RuntimeMs, s.MemoryKb, s.Language, failed}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("submission %s already recorded: %w", s.ID, common.ErrConflict)
		}
		return fmt.Errorf("sqlSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *sqlSubmissionRepository) ListSubmissionsByUser(ctx context.Context, userID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE user_id = $1 ORDER BY submitted_at ASC, id ASC`
	return r.list(ctx, query, userID)
}

func (r *sqlSubmissionRepository) ListSubmissionsForProblems(ctx context.Context, userID string, problemIDs []string) ([]model.Submission, error) {
	if len(problemIDs) == 0 {
		return []model.Submission{}, nil
	}

	args := []interface{}{userID}
	argID := 2
	placeholders := make([]string, len(problemIDs))
	for i := range problemIDs {
		placeholders[i] = fmt.Sprintf("$%d", argID)
		args = append(args, problemIDs[i])
		argID++
	}
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE user_id = $1 AND problem_id IN (%s) ORDER BY submitted_at ASC, id ASC`,
		submissionColumns, strings.Join(placeholders, ","))
	return r.list(ctx, query, args...)
}

func (r *sqlSubmissionRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlSubmissionRepository.list query: %w", err)
	}
	defer rows.Close()

	submissions := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		var failed sql.NullInt64
		if err := rows.Scan(&s.ID, &s.ProblemID, &s.UserID, &s.Verdict, &s.Timestamp, &s.RuntimeMs, &s.MemoryKb, &s.Language, &failed); err != nil {
			return nil, fmt.Errorf("sqlSubmissionRepository.list scan: %w", err)
		}
		if failed.Valid {
			tc := int(failed.Int64)
			s.FailedTestCase = &tc
		}
		submissions = append(submissions, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlSubmissionRepository.list rows.Err: %w", err)
	}
	return submissions, nil
}
