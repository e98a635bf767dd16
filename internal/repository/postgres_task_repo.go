package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/microearn/internal/model"
)

const taskColumns = `id, buyer_id, buyer_email, title, detail, required_workers, payable_amount, submission_info, created_at, updated_at`

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

func scanTask(s rowScanner) (*model.Task, error) {
	task := &model.Task{}
	if err := s.Scan(
		&task.ID, &task.BuyerID, &task.BuyerEmail, &task.Title, &task.Detail,
		&task.RequiredWorkers, &task.PayableAmount, &task.SubmissionInfo,
		&task.CreatedAt, &task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *PostgresTaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("タスクのスキャンに失敗しました: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスクの走査に失敗しました: %w", err)
	}
	return tasks, nil
}

// List は全タスクを作成日時の新しい順で返す。
func (r *PostgresTaskRepo) List(ctx context.Context) ([]*model.Task, error) {
	return r.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
}

// ListByBuyerID はバイヤーが掲載したタスク一覧を返す。
func (r *PostgresTaskRepo) ListByBuyerID(ctx context.Context, buyerID string) ([]*model.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの検索に失敗しました: %w", err)
	}
	return task, nil
}

// Create はタスクを作成する。
// バイヤーが存在しない場合（外部キー違反）はErrReferenceMissingを返す。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, buyer_id, buyer_email, title, detail, required_workers, payable_amount, submission_info, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.BuyerID, task.BuyerEmail, task.Title, task.Detail,
		task.RequiredWorkers, task.PayableAmount, task.SubmissionInfo,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if sentinel := classifyPQError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は固定のフィールド集合を部分更新し、更新後のタスクを返す。
// nilのフィールドは現在値を維持する。
// いずれのフィールドも変化しない場合はWHERE句に一致せず、nilを返す。
func (r *PostgresTaskRepo) Update(ctx context.Context, id string, update model.TaskUpdate) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`UPDATE tasks SET
		     title = COALESCE($2::text, title),
		     detail = COALESCE($3::text, detail),
		     submission_info = COALESCE($4::text, submission_info),
		     updated_at = now()
		 WHERE id = $1
		   AND (title, detail, submission_info) IS DISTINCT FROM
		       (COALESCE($2::text, title), COALESCE($3::text, detail), COALESCE($4::text, submission_info))
		 RETURNING `+taskColumns,
		id, update.Title, update.Detail, update.SubmissionInfo,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	return task, nil
}

// DeleteWithRefund はタスクを削除し、バイヤーへ返金する。
// 1. タスク行をFOR UPDATEでロックして返金額を算出
// 2. バイヤーのavailable_coinに加算
// 3. タスクを削除（ちょうど1件であること）
// いずれかが失敗した場合はロールバックされ、返金も削除も行われない。
func (r *PostgresTaskRepo) DeleteWithRefund(ctx context.Context, id string) (*model.TaskRefund, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	task := &model.Task{ID: id}
	err = tx.QueryRowContext(ctx,
		`SELECT buyer_id, required_workers, payable_amount FROM tasks WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&task.BuyerID, &task.RequiredWorkers, &task.PayableAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("タスクのロックに失敗しました: %w", err)
	}

	refund := task.RefundAmount()

	result, err := tx.ExecContext(ctx,
		`UPDATE users SET available_coin = available_coin + $1, updated_at = now() WHERE id = $2`,
		refund, task.BuyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("バイヤーへの返金に失敗しました: %w", err)
	}
	if err := expectOneRow(result, "返金"); err != nil {
		return nil, err
	}

	result, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	if err := expectOneRow(result, "タスク削除"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return &model.TaskRefund{
		TaskID:  id,
		BuyerID: task.BuyerID,
		Amount:  refund,
	}, nil
}

// expectOneRow は更新件数がちょうど1件であることを検証する。
func expectOneRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました (%s): %w", op, err)
	}
	if n != 1 {
		return fmt.Errorf("%s: 更新件数が1件ではありません: %d", op, n)
	}
	return nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
