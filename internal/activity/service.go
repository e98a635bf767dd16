// Package activity は通知と管理者操作履歴の参照を提供する。
package activity

import (
	"context"
	"fmt"

	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/repository"
)

// NotificationLister は通知の参照インターフェース。
type NotificationLister interface {
	ListByEmail(ctx context.Context, email string) ([]*model.Notification, error)
}

// Service は通知と管理者操作履歴のサービス層。
type Service struct {
	notifications NotificationLister
	adminRepo     repository.AdminActivityRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(notifications NotificationLister, adminRepo repository.AdminActivityRepository) *Service {
	return &Service{notifications: notifications, adminRepo: adminRepo}
}

// ListNotifications はemail宛の通知を新しい順で返す。0件の場合は空スライスを返す。
func (s *Service) ListNotifications(ctx context.Context, email string) ([]*model.Notification, error) {
	notifications, err := s.notifications.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	return notifications, nil
}

// ListAdminActivities は管理者操作履歴を新しい順で返す。
func (s *Service) ListAdminActivities(ctx context.Context) ([]*model.AdminActivity, error) {
	activities, err := s.adminRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("管理者操作履歴の取得に失敗しました: %w", err)
	}
	return activities, nil
}
