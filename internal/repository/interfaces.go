// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/microearn/internal/model"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// 条件付き更新の結果を表すセンチネルエラー。
var (
	// ErrNotFound は対象のレコードが存在しないことを表す。
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientBalance は残高不足により更新が行われなかったことを表す。
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenceMissing は参照先（外部キー）が存在しないことを表す。
	ErrReferenceMissing = errors.New("referenced record does not exist")
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// classifyPQError はpq.Errorを対応するセンチネルエラーに変換する。
// 該当しない場合はnilを返す。
func classifyPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return ErrDuplicate
	case pqForeignKeyViolation:
		return ErrReferenceMissing
	}
	return nil
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// List は全ユーザーを作成日時順で返す。
	List(ctx context.Context) ([]*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID はユーザーを削除し、管理者の操作履歴を同一トランザクションで記録する。
	// 削除対象が存在しない場合はfalseを返し、履歴も記録しない。
	DeleteByID(ctx context.Context, id string, activity *model.AdminActivity) (bool, error)

	// ReduceCoins はコイン残高をamountだけ減らし、更新後の残高を返す。
	// 残高チェックと更新は単一の条件付きUPDATEで行う。
	// ユーザーが存在しない場合はErrNotFound、残高不足の場合はErrInsufficientBalanceを返す。
	ReduceCoins(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// List は全タスクを作成日時の新しい順で返す。
	List(ctx context.Context) ([]*model.Task, error)

	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// ListByBuyerID はバイヤーが掲載したタスク一覧を返す。
	ListByBuyerID(ctx context.Context, buyerID string) ([]*model.Task, error)

	// Create はタスクを作成する。バイヤーが存在しない場合はErrReferenceMissingを返す。
	Create(ctx context.Context, task *model.Task) error

	// Update は固定のフィールド集合（title, detail, submission_info）を部分更新し、更新後のタスクを返す。
	// タスクが存在しないか、いずれのフィールドも変化しない場合はnilを返す。
	Update(ctx context.Context, id string, update model.TaskUpdate) (*model.Task, error)

	// DeleteWithRefund はタスクを削除し、required_workers × payable_amountを
	// バイヤーのavailable_coinへ返金する。返金と削除は同一トランザクションで行う。
	// タスクが存在しない場合はErrNotFoundを返す。
	DeleteWithRefund(ctx context.Context, id string) (*model.TaskRefund, error)
}

// SubmissionRepository は提出物データの永続化インターフェース。
type SubmissionRepository interface {
	// List は全提出物を作成日時の新しい順で返す。
	List(ctx context.Context) ([]*model.Submission, error)

	// ListByWorkerEmail はワーカーのメールアドレスで提出物を絞り込む。
	ListByWorkerEmail(ctx context.Context, email string) ([]*model.Submission, error)

	// ListByBuyerEmail はバイヤーのメールアドレスで提出物を絞り込む。
	ListByBuyerEmail(ctx context.Context, email string) ([]*model.Submission, error)

	// Create は提出物を作成する。
	Create(ctx context.Context, submission *model.Submission) error
}

// PaymentRepository は支払いデータの参照インターフェース。
type PaymentRepository interface {
	// List は全支払いを作成日時の新しい順で返す。
	List(ctx context.Context) ([]*model.Payment, error)

	// ListByUserID はユーザーIDで支払いを絞り込む。
	ListByUserID(ctx context.Context, userID string) ([]*model.Payment, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, notification *model.Notification) error

	// ListByEmail は宛先メールアドレスの通知を新しい順で返す。
	ListByEmail(ctx context.Context, email string) ([]*model.Notification, error)

	// DeleteReadBefore は既読かつbeforeより前に作成された通知を削除し、削除件数を返す。
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// AdminActivityRepository は管理者操作履歴の参照インターフェース。
type AdminActivityRepository interface {
	// List は操作履歴を新しい順で返す。
	List(ctx context.Context) ([]*model.AdminActivity, error)
}
