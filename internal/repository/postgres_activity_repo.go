package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/microearn/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, to_email, message, action_route, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.ToEmail, n.Message, n.ActionRoute, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	return nil
}

// ListByEmail は宛先メールアドレスの通知を新しい順で返す。
func (r *PostgresNotificationRepo) ListByEmail(ctx context.Context, email string) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, to_email, message, action_route, is_read, created_at
		 FROM notifications WHERE to_email = $1 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	notifications := []*model.Notification{}
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.ToEmail, &n.Message, &n.ActionRoute, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("通知のスキャンに失敗しました: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知の走査に失敗しました: %w", err)
	}
	return notifications, nil
}

// DeleteReadBefore は既読かつbeforeより前に作成された通知を削除する。
// 対象がない場合も0件としてエラーにしない。
func (r *PostgresNotificationRepo) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE is_read AND created_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("既読通知の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// PostgresAdminActivityRepo はPostgreSQLを使用した管理者操作履歴リポジトリ。
// 書き込みはPostgresUserRepo.DeleteByIDのトランザクション内で行う。
type PostgresAdminActivityRepo struct {
	db *sql.DB
}

// NewPostgresAdminActivityRepo はPostgresAdminActivityRepoを生成する。
func NewPostgresAdminActivityRepo(db *sql.DB) *PostgresAdminActivityRepo {
	return &PostgresAdminActivityRepo{db: db}
}

// List は操作履歴を新しい順で返す。
func (r *PostgresAdminActivityRepo) List(ctx context.Context) ([]*model.AdminActivity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, admin_email, action, target_id, created_at
		 FROM admin_activities ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("管理者操作履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	activities := []*model.AdminActivity{}
	for rows.Next() {
		a := &model.AdminActivity{}
		if err := rows.Scan(&a.ID, &a.AdminEmail, &a.Action, &a.TargetID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("管理者操作履歴のスキャンに失敗しました: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("管理者操作履歴の走査に失敗しました: %w", err)
	}
	return activities, nil
}

// compile-time interface check
var (
	_ NotificationRepository  = (*PostgresNotificationRepo)(nil)
	_ AdminActivityRepository = (*PostgresAdminActivityRepo)(nil)
)
