// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, conflict, balance, resource, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeTaskNotFound        = "TASK_NOT_FOUND"
	ErrCodeTaskNotModified     = "TASK_NOT_MODIFIED"
	ErrCodeNoRecords           = "NO_RECORDS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInvalidID           = "INVALID_ID"
	ErrCodeUserAlreadyExists   = "USER_ALREADY_EXISTS"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUnauthenticatedError は認証情報が無い場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "Authorizationヘッダーにトークンを指定してください。",
	}
}

// NewInvalidTokenError はトークンの署名または有効期限の検証に失敗した場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "トークンが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "/jwt からトークンを再発行してください。",
	}
}

// NewForbiddenError は権限不足のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントで操作してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", key),
		Category: "resource",
		Action:   "ユーザーIDまたはメールアドレスを確認してください。",
	}
}

// NewTaskNotFoundError はタスクが見つからない場合のエラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "resource",
		Action:   "タスクIDを確認してください。",
	}
}

// NewTaskNotModifiedError はタスクが見つからないか、更新内容に変更が無い場合のエラーを生成する。
func NewTaskNotModifiedError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotModified,
		Message:  fmt.Sprintf("タスクが見つからないか、変更がありません: %s", taskID),
		Category: "resource",
		Action:   "タスクIDと更新内容を確認してください。",
	}
}

// NewNoRecordsError は絞り込み条件に一致するデータが無い場合のエラーを生成する。
func NewNoRecordsError(resource, key string) *APIError {
	return &APIError{
		Code:     ErrCodeNoRecords,
		Message:  fmt.Sprintf("%s が見つかりません: %s", resource, key),
		Category: "resource",
		Action:   "検索条件を確認してください。",
	}
}

// NewInvalidInputError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidInputError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("入力内容が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewInvalidIDError はIDの形式が不正な場合のエラーを生成する。
func NewInvalidIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("IDの形式が不正です: %s", id),
		Category: "validation",
		Action:   "正しいID（UUID形式）を指定してください。",
	}
}

// NewUserAlreadyExistsError はメールアドレスが既に登録済みの場合のエラーを生成する。
func NewUserAlreadyExistsError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUserAlreadyExists,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "conflict",
		Action:   "別のメールアドレスを使用するか、既存のアカウントでログインしてください。",
	}
}

// NewInsufficientBalanceError はコイン残高が不足している場合のエラーを生成する。
func NewInsufficientBalanceError() *APIError {
	return &APIError{
		Code:     ErrCodeInsufficientBalance,
		Message:  "コイン残高が不足しています。",
		Category: "balance",
		Action:   "残高以下の金額を指定してください。",
	}
}

// NewRateLimitExceededError はレート制限を超過した場合のエラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、クライアントには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
