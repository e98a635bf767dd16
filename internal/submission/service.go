// Package submission はワーカーによる作業提出のドメインロジックを提供する。
package submission

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/repository"
)

// TaskFinder は提出先タスクの検索インターフェース。
type TaskFinder interface {
	FindByID(ctx context.Context, id string) (*model.Task, error)
}

// WorkerFinder はワーカー名の補完に使うユーザー検索インターフェース。
type WorkerFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// NotificationWriter はバイヤー宛通知の書き込みインターフェース。
type NotificationWriter interface {
	Create(ctx context.Context, notification *model.Notification) error
}

// ContentSanitizer は提出内容のサニタイズに必要なインターフェース。
type ContentSanitizer interface {
	Sanitize(raw string) string
	SanitizeText(raw string) string
}

// CreateSubmissionInput は作業提出の入力。
// WorkerEmailとBuyerEmailは省略可能。
type CreateSubmissionInput struct {
	TaskID      string
	WorkerEmail string
	WorkerName  string
	BuyerEmail  string
	Content     string
}

// バイヤー向け通知の遷移先
const buyerNotificationRoute = "/dashboard/buyer-home"

// Service は作業提出のサービス層。
type Service struct {
	submissionRepo repository.SubmissionRepository
	tasks          TaskFinder
	workers        WorkerFinder
	notifications  NotificationWriter
	sanitizer      ContentSanitizer
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	submissionRepo repository.SubmissionRepository,
	tasks TaskFinder,
	workers WorkerFinder,
	notifications NotificationWriter,
	sanitizer ContentSanitizer,
) *Service {
	return &Service{
		submissionRepo: submissionRepo,
		tasks:          tasks,
		workers:        workers,
		notifications:  notifications,
		sanitizer:      sanitizer,
		now:            time.Now,
	}
}

// ListSubmissions は全提出物を返す。
func (s *Service) ListSubmissions(ctx context.Context) ([]*model.Submission, error) {
	submissions, err := s.submissionRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("提出物一覧の取得に失敗しました: %w", err)
	}
	return submissions, nil
}

// ListByWorker はワーカーの提出物を返す。1件もない場合はNO_RECORDSを返す。
func (s *Service) ListByWorker(ctx context.Context, email string) ([]*model.Submission, error) {
	submissions, err := s.submissionRepo.ListByWorkerEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ワーカーの提出物の取得に失敗しました: %w", err)
	}
	if len(submissions) == 0 {
		return nil, model.NewNoRecordsError("submissions", email)
	}
	return submissions, nil
}

// ListByBuyer はバイヤーのタスクに対する提出物を返す。1件もない場合はNO_RECORDSを返す。
func (s *Service) ListByBuyer(ctx context.Context, email string) ([]*model.Submission, error) {
	submissions, err := s.submissionRepo.ListByBuyerEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("バイヤーの提出物の取得に失敗しました: %w", err)
	}
	if len(submissions) == 0 {
		return nil, model.NewNoRecordsError("submissions", email)
	}
	return submissions, nil
}

// CreateSubmission は作業提出を記録し、生成したIDを返す。
// 提出後、タスクのバイヤーへ通知を書き込む。通知の失敗は提出を取り消さない。
func (s *Service) CreateSubmission(ctx context.Context, authEmail string, in CreateSubmissionInput) (string, error) {
	content := s.sanitizer.Sanitize(in.Content)
	if strings.TrimSpace(content) == "" {
		return "", model.NewInvalidInputError("submission_details は必須です")
	}
	if _, err := uuid.Parse(in.TaskID); err != nil {
		return "", model.NewInvalidInputError("task_id の形式が不正です")
	}

	task, err := s.tasks.FindByID(ctx, in.TaskID)
	if err != nil {
		return "", fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return "", model.NewInvalidInputError("指定されたタスクが存在しません")
	}

	workerEmail := strings.TrimSpace(in.WorkerEmail)
	if workerEmail == "" {
		workerEmail = authEmail
	}
	buyerEmail := strings.TrimSpace(in.BuyerEmail)
	if buyerEmail == "" {
		buyerEmail = task.BuyerEmail
	}

	workerName := s.sanitizer.SanitizeText(in.WorkerName)
	if workerName == "" {
		worker, err := s.workers.FindByEmail(ctx, workerEmail)
		if err != nil {
			return "", fmt.Errorf("ワーカーの取得に失敗しました: %w", err)
		}
		if worker != nil {
			workerName = worker.Name
		}
	}

	submission := &model.Submission{
		ID:            uuid.New().String(),
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		PayableAmount: task.PayableAmount,
		WorkerEmail:   workerEmail,
		WorkerName:    workerName,
		BuyerEmail:    buyerEmail,
		Content:       content,
		CreatedAt:     s.now(),
	}

	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		return "", fmt.Errorf("提出物の作成に失敗しました: %w", err)
	}

	slog.Info("submission created",
		slog.String("submission_id", submission.ID),
		slog.String("task_id", task.ID),
		slog.String("worker_email", workerEmail),
	)

	s.notifyBuyer(ctx, submission)

	return submission.ID, nil
}

func (s *Service) notifyBuyer(ctx context.Context, submission *model.Submission) {
	if submission.BuyerEmail == "" {
		return
	}

	who := submission.WorkerName
	if who == "" {
		who = submission.WorkerEmail
	}

	notification := &model.Notification{
		ID:          uuid.New().String(),
		ToEmail:     submission.BuyerEmail,
		Message:     fmt.Sprintf("%s が「%s」に作業を提出しました", who, submission.TaskTitle),
		ActionRoute: buyerNotificationRoute,
		CreatedAt:   submission.CreatedAt,
	}
	if err := s.notifications.Create(ctx, notification); err != nil {
		slog.Warn("failed to notify buyer",
			slog.String("submission_id", submission.ID),
			slog.String("error", err.Error()),
		)
	}
}
