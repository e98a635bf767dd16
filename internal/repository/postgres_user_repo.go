package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/microearn/internal/model"
	"github.com/shopspring/decimal"
)

const userColumns = `id, name, email, photo_url, role, coins, available_coin, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(s rowScanner) (*model.User, error) {
	user := &model.User{}
	var role string
	if err := s.Scan(
		&user.ID, &user.Name, &user.Email, &user.PhotoURL, &role,
		&user.Coins, &user.AvailableCoin, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	return user, nil
}

// List は全ユーザーを作成日時順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ユーザーのスキャンに失敗しました: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザーの走査に失敗しました: %w", err)
	}

	return users, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスでのユーザー検索に失敗しました: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
// メールアドレスの一意制約に違反した場合はErrDuplicateを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, photo_url, role, coins, available_coin, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Email, user.PhotoURL, string(user.Role),
		user.Coins, user.AvailableCoin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if sentinel := classifyPQError(err); sentinel != nil {
			return sentinel
		}
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID はユーザーを削除し、管理者の操作履歴を同一トランザクションで記録する。
// 関連するtasks、paymentsはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string, activity *model.AdminActivity) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	if activity != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO admin_activities (id, admin_email, action, target_id, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			activity.ID, activity.AdminEmail, activity.Action, activity.TargetID, activity.CreatedAt,
		)
		if err != nil {
			return false, fmt.Errorf("管理者操作履歴の記録に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return true, nil
}

// ReduceCoins はコイン残高を減算し、更新後の残高を返す。
// 残高チェックをWHERE句に含めた単一のUPDATEで行うため、
// 同一ユーザーへの並行リクエストでも残高が負になることはない。
func (r *PostgresUserRepo) ReduceCoins(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET coins = coins - $1, updated_at = now()
		 WHERE id = $2 AND coins >= $1
		 RETURNING coins`,
		amount, id,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("コイン残高の減算に失敗しました: %w", err)
	}

	// 更新対象なし: ユーザー不在か残高不足かを判別する
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	if !exists {
		return decimal.Zero, ErrNotFound
	}
	return decimal.Zero, ErrInsufficientBalance
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
