package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/microearn/internal/middleware"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/user"
	"github.com/shopspring/decimal"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, in user.CreateUserInput) (string, error)
	// DeleteUser は管理者によるユーザー削除を行い、操作履歴を記録する。
	DeleteUser(ctx context.Context, adminEmail, id string) error
	// ReduceCoins はコイン残高を減らし、更新後の残高を返す。
	ReduceCoins(ctx context.Context, id string, amount decimal.Decimal) (decimal.Decimal, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	PhotoURL      string          `json:"photo_url"`
	Role          string          `json:"role"`
	Coins         decimal.Decimal `json:"coins"`
	AvailableCoin decimal.Decimal `json:"available_coin"`
	CreatedAt     time.Time       `json:"created_at"`
}

// userLookupResponse はメールアドレス検索時のレスポンス。役割フラグを含む。
type userLookupResponse struct {
	userResponse
	IsAdmin  bool `json:"isAdmin"`
	IsWorker bool `json:"isWorker"`
	IsBuyer  bool `json:"isBuyer"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		PhotoURL:      u.PhotoURL,
		Role:          string(u.Role),
		Coins:         u.Coins,
		AvailableCoin: u.AvailableCoin,
		CreatedAt:     u.CreatedAt,
	}
}

// createUserRequest はユーザー登録リクエストのボディ。
type createUserRequest struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	PhotoURL      string          `json:"photo_url"`
	Role          string          `json:"role"`
	Coins         decimal.Decimal `json:"coins"`
	AvailableCoin decimal.Decimal `json:"available_coin"`
}

// reduceCoinsRequest はコイン減算リクエストのボディ。
// coinsは数値と数値文字列のどちらも受け付ける。
type reduceCoinsRequest struct {
	Coins decimal.Decimal `json:"coins"`
}

type reduceCoinsResponse struct {
	Message string          `json:"message"`
	Coins   decimal.Decimal `json:"coins"`
}

type deleteUserResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deletedCount"`
}

// ListUsers は全ユーザーを返す。
// GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetUser はユーザーを取得する。
// キーに@を含む場合はメールアドレスとして検索し、役割フラグを付けて返す。
// GET /users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	key, ok := urlParam(w, r, "userID")
	if !ok {
		return
	}

	if strings.Contains(key, "@") {
		u, err := h.service.GetUserByEmail(r.Context(), key)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, userLookupResponse{
			userResponse: toUserResponse(u),
			IsAdmin:      u.IsAdmin(),
			IsWorker:     u.IsWorker(),
			IsBuyer:      u.IsBuyer(),
		})
		return
	}

	u, err := h.service.GetUserByID(r.Context(), key)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// CreateUser はユーザーを登録する。
// POST /users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	id, err := h.service.CreateUser(r.Context(), user.CreateUserInput{
		Name:          req.Name,
		Email:         req.Email,
		PhotoURL:      req.PhotoURL,
		Role:          req.Role,
		Coins:         req.Coins,
		AvailableCoin: req.AvailableCoin,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, insertedResponse{InsertedID: id})
}

// DeleteUser は管理者がユーザーを削除する。
// DELETE /user/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	adminEmail, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), adminEmail, id); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteUserResponse{
		Message:      "ユーザーを削除しました",
		DeletedCount: 1,
	})
}

// ReduceCoins はユーザーのコイン残高を減らす。
// PATCH /users/{userID}/reduce-coins
func (h *UserHandler) ReduceCoins(w http.ResponseWriter, r *http.Request) {
	var req reduceCoinsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	userID, ok := urlParam(w, r, "userID")
	if !ok {
		return
	}
	balance, err := h.service.ReduceCoins(r.Context(), userID, req.Coins)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reduceCoinsResponse{
		Message: "コインを減算しました",
		Coins:   balance,
	})
}
