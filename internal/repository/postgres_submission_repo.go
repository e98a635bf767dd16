package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/microearn/internal/model"
)

const submissionColumns = `id, task_id, task_title, payable_amount, worker_email, worker_name, buyer_email, content, created_at`

// PostgresSubmissionRepo はPostgreSQLを使用した提出物リポジトリ。
type PostgresSubmissionRepo struct {
	db *sql.DB
}

// NewPostgresSubmissionRepo はPostgresSubmissionRepoを生成する。
func NewPostgresSubmissionRepo(db *sql.DB) *PostgresSubmissionRepo {
	return &PostgresSubmissionRepo{db: db}
}

func (r *PostgresSubmissionRepo) querySubmissions(ctx context.Context, query string, args ...any) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("提出物の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	submissions := []*model.Submission{}
	for rows.Next() {
		s := &model.Submission{}
		if err := rows.Scan(
			&s.ID, &s.TaskID, &s.TaskTitle, &s.PayableAmount,
			&s.WorkerEmail, &s.WorkerName, &s.BuyerEmail, &s.Content, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("提出物のスキャンに失敗しました: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("提出物の走査に失敗しました: %w", err)
	}
	return submissions, nil
}

// List は全提出物を作成日時の新しい順で返す。
func (r *PostgresSubmissionRepo) List(ctx context.Context) ([]*model.Submission, error) {
	return r.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions ORDER BY created_at DESC`,
	)
}

// ListByWorkerEmail はワーカーのメールアドレスで提出物を絞り込む。
func (r *PostgresSubmissionRepo) ListByWorkerEmail(ctx context.Context, email string) ([]*model.Submission, error) {
	return r.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE worker_email = $1 ORDER BY created_at DESC`,
		email,
	)
}

// ListByBuyerEmail はバイヤーのメールアドレスで提出物を絞り込む。
func (r *PostgresSubmissionRepo) ListByBuyerEmail(ctx context.Context, email string) ([]*model.Submission, error) {
	return r.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE buyer_email = $1 ORDER BY created_at DESC`,
		email,
	)
}

// Create は提出物を作成する。
func (r *PostgresSubmissionRepo) Create(ctx context.Context, s *model.Submission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (id, task_id, task_title, payable_amount, worker_email, worker_name, buyer_email, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.TaskID, s.TaskTitle, s.PayableAmount,
		s.WorkerEmail, s.WorkerName, s.BuyerEmail, s.Content, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("提出物の作成に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SubmissionRepository = (*PostgresSubmissionRepo)(nil)
