package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/task"
	"github.com/shopspring/decimal"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	ListTasks(ctx context.Context) ([]*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasksByBuyer(ctx context.Context, buyerID string) ([]*model.Task, error)
	CreateTask(ctx context.Context, in task.CreateTaskInput) (string, error)
	UpdateTask(ctx context.Context, id string, update model.TaskUpdate) (*model.Task, error)
	// DeleteTask はタスクを削除し、バイヤーへ返金する。
	DeleteTask(ctx context.Context, id string) (*model.TaskRefund, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID              string          `json:"id"`
	BuyerID         string          `json:"buyer_id"`
	BuyerEmail      string          `json:"buyer_email"`
	Title           string          `json:"title"`
	Detail          string          `json:"detail"`
	RequiredWorkers int             `json:"required_workers"`
	PayableAmount   decimal.Decimal `json:"payable_amount"`
	SubmissionInfo  string          `json:"submission_info"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:              t.ID,
		BuyerID:         t.BuyerID,
		BuyerEmail:      t.BuyerEmail,
		Title:           t.Title,
		Detail:          t.Detail,
		RequiredWorkers: t.RequiredWorkers,
		PayableAmount:   t.PayableAmount,
		SubmissionInfo:  t.SubmissionInfo,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toTaskResponses(tasks []*model.Task) []taskResponse {
	resp := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = toTaskResponse(t)
	}
	return resp
}

// createTaskRequest はタスク掲載リクエストのボディ。
type createTaskRequest struct {
	BuyerID         string          `json:"buyer_id"`
	Title           string          `json:"title"`
	Detail          string          `json:"detail"`
	RequiredWorkers int             `json:"required_workers"`
	PayableAmount   decimal.Decimal `json:"payable_amount"`
	SubmissionInfo  string          `json:"submission_info"`
}

// updateTaskRequest はタスク更新リクエストのボディ。省略したフィールドは変更しない。
type updateTaskRequest struct {
	Title          *string `json:"title"`
	Detail         *string `json:"detail"`
	SubmissionInfo *string `json:"submission_info"`
}

type deleteTaskResponse struct {
	Message string          `json:"message"`
	Refund  decimal.Decimal `json:"refund"`
}

// ListTasks は全タスクを返す。
// GET /tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.ListTasks(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// GetTask はタスクを取得する。
// GET /task/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.service.GetTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// ListTasksByBuyer はバイヤーのタスク一覧を返す。
// GET /tasks/{buyerID}
func (h *TaskHandler) ListTasksByBuyer(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := urlParam(w, r, "buyerID")
	if !ok {
		return
	}
	tasks, err := h.service.ListTasksByBuyer(r.Context(), buyerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponses(tasks))
}

// CreateTask はタスクを掲載する。
// POST /tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	id, err := h.service.CreateTask(r.Context(), task.CreateTaskInput{
		BuyerID:         req.BuyerID,
		Title:           req.Title,
		Detail:          req.Detail,
		RequiredWorkers: req.RequiredWorkers,
		PayableAmount:   req.PayableAmount,
		SubmissionInfo:  req.SubmissionInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, insertedResponse{InsertedID: id})
}

// UpdateTask はタスクのtitle、detail、submission_infoを更新する。
// PATCH /task/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}
	t, err := h.service.UpdateTask(r.Context(), id, model.TaskUpdate{
		Title:          req.Title,
		Detail:         req.Detail,
		SubmissionInfo: req.SubmissionInfo,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// DeleteTask はタスクを削除し、バイヤーへ返金する。
// DELETE /task/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParam(w, r, "id")
	if !ok {
		return
	}
	refund, err := h.service.DeleteTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteTaskResponse{
		Message: "タスクを削除し、返金しました",
		Refund:  refund.Amount,
	})
}
