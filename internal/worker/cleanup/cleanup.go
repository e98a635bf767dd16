// Package cleanup は既読通知の自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した既読通知を定期バッチで削除する。
// 未読の通知は保持期間を過ぎても削除しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetentionDays は既読通知のデフォルト保持日数。
const DefaultRetentionDays = 30

// NotificationPurger は既読通知の削除を抽象化するインターフェース。
type NotificationPurger interface {
	DeleteReadBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過した既読通知の自動削除ジョブ。
// 冪等な削除処理のため、何度実行しても結果は変わらない。
type CleanupJob struct {
	purger        NotificationPurger
	logger        *slog.Logger
	now           func() time.Time
	RetentionDays int // 既読通知の保持日数
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionDaysが0以下の場合はDefaultRetentionDaysを使用する。
func NewCleanupJob(purger NotificationPurger, logger *slog.Logger, retentionDays int) *CleanupJob {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		now:           time.Now,
		RetentionDays: retentionDays,
	}
}

// Run は保持期間を超過した既読通知を削除する。
// 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.purger.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("通知クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("通知クリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("通知クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start はRunを起動直後に1回実行し、以降intervalごとに繰り返す。
// ctxがキャンセルされるまでブロックする。個々の失敗はログに記録して継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
