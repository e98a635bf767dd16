// Package task はタスクの掲載、更新、返金を伴う削除のドメインロジックを提供する。
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/repository"
	"github.com/shopspring/decimal"
)

// BuyerFinder はタスク掲載時のバイヤー検索インターフェース。
type BuyerFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// RefundMetrics は返金のメトリクス記録インターフェース。
type RefundMetrics interface {
	RecordTaskRefund(amount decimal.Decimal)
}

// ContentSanitizer はタスク本文のサニタイズに必要なインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
	SanitizeText(raw string) string
}

// CreateTaskInput はタスク掲載の入力。
type CreateTaskInput struct {
	BuyerID         string
	Title           string
	Detail          string
	RequiredWorkers int
	PayableAmount   decimal.Decimal
	SubmissionInfo  string
}

// Service はタスク管理のサービス層。
type Service struct {
	taskRepo  repository.TaskRepository
	buyers    BuyerFinder
	metrics   RefundMetrics
	sanitizer ContentSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	buyers BuyerFinder,
	m RefundMetrics,
	sanitizer ContentSanitizer,
) *Service {
	return &Service{
		taskRepo:  taskRepo,
		buyers:    buyers,
		metrics:   m,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// ListTasks は全タスクを返す。
func (s *Service) ListTasks(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.taskRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// GetTask はIDでタスクを取得する。
func (s *Service) GetTask(ctx context.Context, id string) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewTaskNotFoundError(id)
	}

	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(id)
	}
	return task, nil
}

// ListTasksByBuyer はバイヤーが掲載したタスクを返す。1件もない場合はNO_RECORDSを返す。
func (s *Service) ListTasksByBuyer(ctx context.Context, buyerID string) ([]*model.Task, error) {
	if _, err := uuid.Parse(buyerID); err != nil {
		return nil, model.NewNoRecordsError("tasks", buyerID)
	}

	tasks, err := s.taskRepo.ListByBuyerID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("バイヤーのタスク一覧の取得に失敗しました: %w", err)
	}
	if len(tasks) == 0 {
		return nil, model.NewNoRecordsError("tasks", buyerID)
	}
	return tasks, nil
}

// CreateTask はタスクを掲載し、生成したIDを返す。
func (s *Service) CreateTask(ctx context.Context, in CreateTaskInput) (string, error) {
	title := s.sanitizer.SanitizeText(in.Title)
	if title == "" {
		return "", model.NewInvalidInputError("title は必須です")
	}
	if _, err := uuid.Parse(in.BuyerID); err != nil {
		return "", model.NewInvalidInputError("buyer_id の形式が不正です")
	}
	if in.RequiredWorkers <= 0 {
		return "", model.NewInvalidInputError("required_workers には1以上を指定してください")
	}
	if !in.PayableAmount.IsPositive() {
		return "", model.NewInvalidInputError("payable_amount には正の数を指定してください")
	}
	if !model.IsStorableCoinAmount(in.PayableAmount) {
		return "", model.NewInvalidInputError("payable_amount は小数点以下2桁までの範囲内の値を指定してください")
	}

	buyer, err := s.buyers.FindByID(ctx, in.BuyerID)
	if err != nil {
		return "", fmt.Errorf("バイヤーの取得に失敗しました: %w", err)
	}
	if buyer == nil {
		return "", model.NewInvalidInputError("指定されたバイヤーが存在しません")
	}

	now := s.now()
	task := &model.Task{
		ID:              uuid.New().String(),
		BuyerID:         buyer.ID,
		BuyerEmail:      buyer.Email,
		Title:           title,
		Detail:          s.sanitizer.Sanitize(in.Detail),
		RequiredWorkers: in.RequiredWorkers,
		PayableAmount:   in.PayableAmount,
		SubmissionInfo:  s.sanitizer.Sanitize(in.SubmissionInfo),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrReferenceMissing) {
			return "", model.NewInvalidInputError("指定されたバイヤーが存在しません")
		}
		return "", fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	slog.Info("task created",
		slog.String("task_id", task.ID),
		slog.String("buyer_id", task.BuyerID),
		slog.Int("required_workers", task.RequiredWorkers),
		slog.String("payable_amount", task.PayableAmount.String()),
	)

	return task.ID, nil
}

// UpdateTask はタスクのtitle、detail、submission_infoを更新し、更新後のタスクを返す。
// 対象が存在しないか、内容に変化がない場合はTASK_NOT_MODIFIEDを返す。
func (s *Service) UpdateTask(ctx context.Context, id string, update model.TaskUpdate) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewTaskNotFoundError(id)
	}
	if update.IsEmpty() {
		return nil, model.NewTaskNotModifiedError(id)
	}

	if update.Title != nil {
		title := s.sanitizer.SanitizeText(*update.Title)
		if title == "" {
			return nil, model.NewInvalidInputError("title を空にすることはできません")
		}
		update.Title = &title
	}
	if update.Detail != nil {
		detail := s.sanitizer.Sanitize(*update.Detail)
		update.Detail = &detail
	}
	if update.SubmissionInfo != nil {
		info := s.sanitizer.Sanitize(*update.SubmissionInfo)
		update.SubmissionInfo = &info
	}

	task, err := s.taskRepo.Update(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotModifiedError(id)
	}
	return task, nil
}

// DeleteTask はタスクを削除し、required_workers × payable_amountをバイヤーへ返金する。
// 返金と削除は同一トランザクションで行われ、どちらか一方だけが反映されることはない。
func (s *Service) DeleteTask(ctx context.Context, id string) (*model.TaskRefund, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewTaskNotFoundError(id)
	}

	refund, err := s.taskRepo.DeleteWithRefund(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewTaskNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}

	s.metrics.RecordTaskRefund(refund.Amount)
	slog.Info("task deleted with refund",
		slog.String("task_id", id),
		slog.String("buyer_id", refund.BuyerID),
		slog.String("refund", refund.Amount.String()),
	)

	return refund, nil
}
