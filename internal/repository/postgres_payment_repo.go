package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/microearn/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用した支払いリポジトリ。参照専用。
type PostgresPaymentRepo struct {
	db *sql.DB
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

func (r *PostgresPaymentRepo) queryPayments(ctx context.Context, query string, args ...any) ([]*model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("支払いの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	payments := []*model.Payment{}
	for rows.Next() {
		p := &model.Payment{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("支払いのスキャンに失敗しました: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("支払いの走査に失敗しました: %w", err)
	}
	return payments, nil
}

// List は全支払いを作成日時の新しい順で返す。
func (r *PostgresPaymentRepo) List(ctx context.Context) ([]*model.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT id, user_id, amount, created_at FROM payments ORDER BY created_at DESC`,
	)
}

// ListByUserID はユーザーIDで支払いを絞り込む。
func (r *PostgresPaymentRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT id, user_id, amount, created_at FROM payments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// compile-time interface check
var _ PaymentRepository = (*PostgresPaymentRepo)(nil)
