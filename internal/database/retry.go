package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pinger はDB疎通確認のインターフェース。*sql.DBが満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RetryConfig は起動時の接続リトライ設定。
type RetryConfig struct {
	Attempts       int           // 最大試行回数（1以上）
	InitialBackoff time.Duration // 初回の待機時間
	MaxBackoff     time.Duration // 待機時間の上限
	PingTimeout    time.Duration // 1回あたりのPingタイムアウト
}

// DefaultRetryConfig はデフォルトのリトライ設定を返す。
// 初回500ms、2倍ずつ増加、最大8秒。
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:       5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		PingTimeout:    5 * time.Second,
	}
}

// CalculateBackoff は失敗回数に基づいて指数バックオフの待機時間を計算する。
func (c RetryConfig) CalculateBackoff(failures int) time.Duration {
	delay := c.InitialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return delay
}

// PingWithRetry はDBへの疎通を指数バックオフで再試行する。
// docker composeでDBコンテナの起動がアプリより遅れる場合を想定する。
// ctxがキャンセルされた場合は待機を中断してエラーを返す。
func PingWithRetry(ctx context.Context, db Pinger, cfg RetryConfig) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}

		if i == attempts-1 {
			break
		}

		delay := cfg.CalculateBackoff(i)
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("backoff", delay),
			slog.String("error", lastErr.Error()),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("database connection aborted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, lastErr)
}
