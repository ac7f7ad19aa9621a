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

// ProblemRepository is the read side of the problem catalog.
type ProblemRepository interface {
	ListProblems(ctx context.Context, topic string) ([]model.Problem, error)
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error)
}

type sqlProblemRepository struct {
	db *sql.DB
}

// SQLProblemRepository stores the catalog in the problems table.
type SQLProblemRepository interface {
	ProblemRepository
	UpsertProblems(ctx context.Context, tx *sql.Tx, problems []model.Problem) error
}

func NewSQLProblemRepository(db *sql.DB) SQLProblemRepository {
	return &sqlProblemRepository{db: db}
}

const problemColumns = `id, title, slug, topic, difficulty, solved_by, tags, statement`

// UpsertProblems writes the catalog, keeping the slice order as the catalog order.
func (r *sqlProblemRepository) UpsertProblems(ctx context.Context, tx *sql.Tx, problems []model.Problem) error {
	query := `INSERT INTO problems (id, title, slug, topic, difficulty, solved_by, tags, statement, sort_order)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          ON CONFLICT (id) DO UPDATE SET
	            title = excluded.title, slug = excluded.slug, topic = excluded.topic,
	            difficulty = excluded.difficulty, solved_by = excluded.solved_by,
	            tags = excluded.tags, statement = excluded.statement, sort_order = excluded.sort_order`

	for i := range problems {
		p := problems[i]
		p.EnsureSlug()
		args := []interface{}{p.ID, p.Title, p.Slug, p.Topic, string(p.Difficulty), p.SolvedBy, strings.Join(p.Tags, ","), p.Statement, i}

		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, args...)
		} else {
			_, err = r.db.ExecContext(ctx, query, args...)
		}
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // slug collision with another id
				return fmt.Errorf("problem with slug %q already exists: %w", p.Slug, common.ErrConflict)
			}
			return fmt.Errorf("sqlProblemRepository.UpsertProblems %s: %w", p.ID, err)
		}
	}
	return nil
}

func (r *sqlProblemRepository) ListProblems(ctx context.Context, topic string) ([]model.Problem, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + problemColumns + ` FROM problems`)

	var args []interface{}
	if topic != "" {
		query.WriteString(` WHERE topic = $1`)
		args = append(args, topic)
	}
	query.WriteString(` ORDER BY sort_order ASC, id ASC`)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, nil
}

func (r *sqlProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return r.findOne(ctx, `SELECT `+problemColumns+` FROM problems WHERE id = $1`, id)
}

func (r *sqlProblemRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.Problem, error) {
	return r.findOne(ctx, `SELECT `+problemColumns+` FROM problems WHERE slug = $1`, slug)
}

func (r *sqlProblemRepository) findOne(ctx context.Context, query string, arg string) (*model.Problem, error) {
	p, err := scanProblem(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlProblemRepository.findOne: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProblem(row rowScanner) (*model.Problem, error) {
	var p model.Problem
	var tags string
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Topic, &p.Difficulty, &p.SolvedBy, &tags, &p.Statement); err != nil {
		return nil, err
	}
	p.Tags = splitTags(tags)
	return &p, nil
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
