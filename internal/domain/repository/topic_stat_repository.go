package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codeforge_arena/internal/common"
	"codeforge_arena/internal/domain/model"
)

// TopicStatRepository holds one aggregate row per (user, topic).
type TopicStatRepository interface {
	UpsertTopicStat(ctx context.Context, tx *sql.Tx, userID string, stat model.TopicStat) error
	FindTopicStat(ctx context.Context, userID, topic string) (*model.TopicStat, error)
	ListTopicStats(ctx context.Context, userID string) ([]model.TopicStat, error)
}

type sqlTopicStatRepository struct {
	db *sql.DB
}

func NewSQLTopicStatRepository(db *sql.DB) TopicStatRepository {
	return &sqlTopicStatRepository{db: db}
}

func (r *sqlTopicStatRepository) UpsertTopicStat(ctx context.Context, tx *sql.Tx, userID string, st model.TopicStat) error {
	if st.Solved < 0 || st.Total < st.Solved || st.WeaknessScore < 0 || st.WeaknessScore > 100 {
		return fmt.Errorf("topic stat %s %+v out of range: %w", st.Topic, st, common.ErrValidation)
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	query := `INSERT INTO topic_stats (user_id, topic, solved, total, weakness_score, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (user_id, topic) DO UPDATE SET
	            solved = excluded.solved, total = excluded.total,
	            weakness_score = excluded.weakness_score, updated_at = excluded.updated_at`
	args := []interface{}{userID, st.Topic, st.Solved, st.Total, st.WeaknessScore, st.UpdatedAt.UTC()}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("sqlTopicStatRepository.UpsertTopicStat: %w", err)
	}
	return nil
}

func (r *sqlTopicStatRepository) FindTopicStat(ctx context.Context, userID, topic string) (*model.TopicStat, error) {
	query := `SELECT topic, solved, total, weakness_score, updated_at FROM topic_stats WHERE user_id = $1 AND topic = $2`
	st := &model.TopicStat{}
	err := r.db.QueryRowContext(ctx, query, userID, topic).Scan(&st.Topic, &st.Solved, &st.Total, &st.WeaknessScore, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlTopicStatRepository.FindTopicStat: %w", err)
	}
	return st, nil
}

func (r *sqlTopicStatRepository) ListTopicStats(ctx context.Context, userID string) ([]model.TopicStat, error) {
	query := `SELECT topic, solved, total, weakness_score, updated_at FROM topic_stats WHERE user_id = $1 ORDER BY topic ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlTopicStatRepository.ListTopicStats query: %w", err)
	}
	defer rows.Close()

	stats := []model.TopicStat{}
	for rows.Next() {
		var st model.TopicStat
		if err := rows.Scan(&st.Topic, &st.Solved, &st.Total, &st.WeaknessScore, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlTopicStatRepository.ListTopicStats scan: %w", err)
		}
		stats = append(stats, st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlTopicStatRepository.ListTopicStats rows.Err: %w", err)
	}
	return stats, nil
}
