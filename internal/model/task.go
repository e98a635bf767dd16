package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// コイン額はJSON上で数値として扱う
	decimal.MarshalJSONWithoutQuotes = true
}

// Task はバイヤーが掲載する作業依頼を表す。
type Task struct {
	ID              string
	BuyerID         string
	BuyerEmail      string
	Title           string
	Detail          string
	RequiredWorkers int
	PayableAmount   decimal.Decimal // ワーカー1人あたりの報酬
	SubmissionInfo  string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// RefundAmount はタスク削除時にバイヤーへ返金する額を返す。
// required_workers × payable_amount。
func (t *Task) RefundAmount() decimal.Decimal {
	return t.PayableAmount.Mul(decimal.NewFromInt(int64(t.RequiredWorkers)))
}

// TaskUpdate はタスクの更新可能フィールドを表す。
// nilのフィールドは変更しない。
type TaskUpdate struct {
	Title          *string
	Detail         *string
	SubmissionInfo *string
}

// IsEmpty は更新対象のフィールドが1つもない場合にtrueを返す。
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Detail == nil && u.SubmissionInfo == nil
}

// TaskRefund はタスク削除に伴う返金結果を表す。
type TaskRefund struct {
	TaskID  string
	BuyerID string
	Amount  decimal.Decimal
}

// Submission はワーカーがタスクに対して提出した作業を表す。
type Submission struct {
	ID            string
	TaskID        string
	TaskTitle     string
	PayableAmount decimal.Decimal
	WorkerEmail   string
	WorkerName    string
	BuyerEmail    string
	Content       string
	CreatedAt     time.Time
}

// Payment はユーザーの支払い記録を表す。参照専用。
type Payment struct {
	ID        string
	UserID    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// Notification はユーザー宛の通知を表す。
type Notification struct {
	ID          string
	ToEmail     string
	Message     string
	ActionRoute string
	IsRead      bool
	CreatedAt   time.Time
}
