package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/microearn/internal/model"
)

// UserFinder は管理者判定に必要なユーザー検索インターフェース。
// repository.UserRepositoryの部分集合として定義する。
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// NewAdminMiddleware は認証済みユーザーが管理者であることを検証するミドルウェアを返す。
// NewTokenMiddlewareの後に配置する。ユーザー検索は1リクエストにつき1回。
// ユーザーが存在しない、検索に失敗した、または管理者でない場合は403を返す。
func NewAdminMiddleware(finder UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := EmailFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			user, err := finder.FindByEmail(r.Context(), email)
			if err != nil {
				slog.Error("failed to load user for admin check",
					slog.String("email", email),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			if user == nil || !user.IsAdmin() {
				slog.Warn("admin access denied", slog.String("email", email))
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
