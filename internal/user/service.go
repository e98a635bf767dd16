// Package user はユーザー管理とコイン残高操作のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/microearn/internal/metrics"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/repository"
	"github.com/shopspring/decimal"
)

// BalanceMetrics は残高操作のメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type BalanceMetrics interface {
	RecordCoinsReduced(amount decimal.Decimal)
	RecordBalanceRejection(reason string)
}

// TextSanitizer は表示名のサニタイズに必要なインターフェース。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// CreateUserInput はユーザー登録の入力。
type CreateUserInput struct {
	Name          string
	Email         string
	PhotoURL      string
	Role          string
	Coins         decimal.Decimal
	AvailableCoin decimal.Decimal
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	metrics   BalanceMetrics
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, m BalanceMetrics, sanitizer TextSanitizer) *Service {
	return &Service{
		userRepo:  userRepo,
		metrics:   m,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// ListUsers は全ユーザーを返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(email)
	}
	return user, nil
}

// GetUserByID はIDでユーザーを取得する。IDがUUID形式でない場合も未検出として扱う。
func (s *Service) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewUserNotFoundError(id)
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(id)
	}
	return user, nil
}

// CreateUser はユーザーを登録し、生成したIDを返す。
// メールアドレスが登録済みの場合はUSER_ALREADY_EXISTSを返し、既存レコードは変更しない。
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (string, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return "", model.NewInvalidInputError("email は必須です")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", model.NewInvalidInputError("email の形式が不正です")
	}

	role, err := model.ParseRole(in.Role)
	if err != nil {
		return "", model.NewInvalidInputError("role は Admin, Worker, Buyer のいずれかを指定してください")
	}

	if in.Coins.IsNegative() || in.AvailableCoin.IsNegative() {
		return "", model.NewInvalidInputError("コイン残高に負の値は指定できません")
	}
	if !model.IsStorableCoinAmount(in.Coins) || !model.IsStorableCoinAmount(in.AvailableCoin) {
		return "", model.NewInvalidInputError("コイン残高は小数点以下2桁までの範囲内の値を指定してください")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("ユーザーの重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return "", model.NewUserAlreadyExistsError(email)
	}

	now := s.now()
	user := &model.User{
		ID:            uuid.New().String(),
		Name:          s.sanitizer.SanitizeText(in.Name),
		Email:         email,
		PhotoURL:      strings.TrimSpace(in.PhotoURL),
		Role:          role,
		Coins:         in.Coins,
		AvailableCoin: in.AvailableCoin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 重複確認と登録の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicate) {
			return "", model.NewUserAlreadyExistsError(email)
		}
		return "", fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	slog.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("email", email),
		slog.String("role", string(role)),
	)

	return user.ID, nil
}

// DeleteUser は管理者によるユーザー削除を行い、操作履歴を記録する。
func (s *Service) DeleteUser(ctx context.Context, adminEmail, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return model.NewInvalidIDError(id)
	}

	activity := &model.AdminActivity{
		ID:         uuid.New().String(),
		AdminEmail: adminEmail,
		Action:     model.AdminActionDeleteUser,
		TargetID:   id,
		CreatedAt:  s.now(),
	}

	deleted, err := s.userRepo.DeleteByID(ctx, id, activity)
	if err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError(id)
	}

	slog.Info("user deleted by admin",
		slog.String("user_id", id),
		slog.String("admin_email", adminEmail),
	)

	return nil
}

// ReduceCoins はユーザーのコイン残高をamountだけ減らし、更新後の残高を返す。
// amountが正でない場合や、小数点以下3桁以上・範囲外の場合は
// ストアにアクセスせずINVALID_INPUTを返す。
// 残高不足の場合はINSUFFICIENT_BALANCEを返し、残高は変更されない。
func (s *Service) ReduceCoins(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		s.metrics.RecordBalanceRejection(metrics.ReasonInvalidAmount)
		return decimal.Zero, model.NewInvalidInputError("coins には正の数を指定してください")
	}
	if !model.IsStorableCoinAmount(amount) {
		s.metrics.RecordBalanceRejection(metrics.ReasonInvalidAmount)
		return decimal.Zero, model.NewInvalidInputError("coins は小数点以下2桁までの範囲内の値を指定してください")
	}
	if _, err := uuid.Parse(id); err != nil {
		return decimal.Zero, model.NewInvalidIDError(id)
	}

	balance, err := s.userRepo.ReduceCoins(ctx, id, amount)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.metrics.RecordBalanceRejection(metrics.ReasonUserNotFound)
		return decimal.Zero, model.NewUserNotFoundError(id)
	case errors.Is(err, repository.ErrInsufficientBalance):
		s.metrics.RecordBalanceRejection(metrics.ReasonInsufficientBalance)
		slog.Warn("coin reduction rejected",
			slog.String("user_id", id),
			slog.String("amount", amount.String()),
		)
		return decimal.Zero, model.NewInsufficientBalanceError()
	case err != nil:
		return decimal.Zero, fmt.Errorf("コイン残高の減算に失敗しました: %w", err)
	}

	s.metrics.RecordCoinsReduced(amount)
	slog.Info("coins reduced",
		slog.String("user_id", id),
		slog.String("amount", amount.String()),
		slog.String("balance", balance.String()),
	)

	return balance, nil
}
