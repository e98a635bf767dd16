package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/microearn/internal/middleware"
	"github.com/hitoshi/microearn/internal/model"
)

// ActivityServiceInterface は通知と管理者操作履歴の参照インターフェース。
type ActivityServiceInterface interface {
	ListNotifications(ctx context.Context, email string) ([]*model.Notification, error)
	ListAdminActivities(ctx context.Context) ([]*model.AdminActivity, error)
}

// ActivityHandler は通知と管理者操作履歴のHTTPハンドラー。
type ActivityHandler struct {
	service ActivityServiceInterface
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(service ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{service: service}
}

type notificationResponse struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	ActionRoute string    `json:"action_route"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type adminActivityResponse struct {
	ID         string    `json:"id"`
	AdminEmail string    `json:"admin_email"`
	Action     string    `json:"action"`
	TargetID   string    `json:"target_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListNotifications は認証ユーザー宛の通知を返す。
// GET /notifications
func (h *ActivityHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	notifications, err := h.service.ListNotifications(r.Context(), email)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = notificationResponse{
			ID:          n.ID,
			Message:     n.Message,
			ActionRoute: n.ActionRoute,
			IsRead:      n.IsRead,
			CreatedAt:   n.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAdminActivities は管理者操作履歴を返す。
// GET /admin/activities
func (h *ActivityHandler) ListAdminActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.service.ListAdminActivities(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminActivityResponse, len(activities))
	for i, a := range activities {
		resp[i] = adminActivityResponse{
			ID:         a.ID,
			AdminEmail: a.AdminEmail,
			Action:     a.Action,
			TargetID:   a.TargetID,
			CreatedAt:  a.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
