// Package payment は支払い記録の参照を提供する。
package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/repository"
)

// Service は支払い参照のサービス層。
type Service struct {
	paymentRepo repository.PaymentRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(paymentRepo repository.PaymentRepository) *Service {
	return &Service{paymentRepo: paymentRepo}
}

// ListPayments は全支払いを返す。
func (s *Service) ListPayments(ctx context.Context) ([]*model.Payment, error) {
	payments, err := s.paymentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("支払い一覧の取得に失敗しました: %w", err)
	}
	return payments, nil
}

// ListPaymentsByUser はユーザーの支払いを返す。
// IDが不正な場合と1件もない場合はいずれもNO_RECORDSを返す。
func (s *Service) ListPaymentsByUser(ctx context.Context, userID string) ([]*model.Payment, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewNoRecordsError("payments", userID)
	}

	payments, err := s.paymentRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの支払い一覧の取得に失敗しました: %w", err)
	}
	if len(payments) == 0 {
		return nil, model.NewNoRecordsError("payments", userID)
	}
	return payments, nil
}
