// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Role はユーザーの役割を表す。
// 文字列比較を各所に散らさないよう、境界でParseRoleにより検証する。
type Role string

const (
	// RoleAdmin は管理者。ユーザー削除などの破壊的操作が可能。
	RoleAdmin Role = "Admin"
	// RoleWorker はタスクに対して作業を提出するユーザー。
	RoleWorker Role = "Worker"
	// RoleBuyer はタスクを掲載し、コインで報酬を支払うユーザー。
	RoleBuyer Role = "Buyer"
)

// ParseRole は文字列をRoleに変換する。未知の値はエラーを返す。
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleWorker, RoleBuyer:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// User はプラットフォームの利用者を表す。
type User struct {
	ID            string
	Name          string
	Email         string
	PhotoURL      string
	Role          Role
	Coins         decimal.Decimal // ワーカーが消費・請求するコイン残高
	AvailableCoin decimal.Decimal // バイヤーがタスク報酬に充てられるコイン残高
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsAdmin は管理者かどうかを返す。
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsWorker はワーカーかどうかを返す。
func (u *User) IsWorker() bool { return u.Role == RoleWorker }

// IsBuyer はバイヤーかどうかを返す。
func (u *User) IsBuyer() bool { return u.Role == RoleBuyer }

// AdminActivity は管理者による操作の記録を表す。
type AdminActivity struct {
	ID         string
	AdminEmail string
	Action     string
	TargetID   string
	CreatedAt  time.Time
}

// AdminActionDeleteUser はユーザー削除操作を表すアクション名。
const AdminActionDeleteUser = "delete_user"
