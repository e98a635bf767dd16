package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/microearn/internal/middleware"
	"github.com/hitoshi/microearn/internal/model"
	"github.com/hitoshi/microearn/internal/submission"
	"github.com/shopspring/decimal"
)

// SubmissionServiceInterface は提出物ハンドラーが必要とするサービスインターフェース。
type SubmissionServiceInterface interface {
	ListSubmissions(ctx context.Context) ([]*model.Submission, error)
	ListByWorker(ctx context.Context, email string) ([]*model.Submission, error)
	ListByBuyer(ctx context.Context, email string) ([]*model.Submission, error)
	CreateSubmission(ctx context.Context, authEmail string, in submission.CreateSubmissionInput) (string, error)
}

// SubmissionHandler は作業提出のHTTPハンドラー。
type SubmissionHandler struct {
	service SubmissionServiceInterface
}

// NewSubmissionHandler はSubmissionHandlerを生成する。
func NewSubmissionHandler(service SubmissionServiceInterface) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// submissionResponse は提出物のAPIレスポンス。
type submissionResponse struct {
	ID                string          `json:"id"`
	TaskID            string          `json:"task_id"`
	TaskTitle         string          `json:"task_title"`
	PayableAmount     decimal.Decimal `json:"payable_amount"`
	WorkerEmail       string          `json:"worker_email"`
	WorkerName        string          `json:"worker_name"`
	BuyerEmail        string          `json:"buyer_email"`
	SubmissionDetails string          `json:"submission_details"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toSubmissionResponses(submissions []*model.Submission) []submissionResponse {
	resp := make([]submissionResponse, len(submissions))
	for i, s := range submissions {
		resp[i] = submissionResponse{
			ID:                s.ID,
			TaskID:            s.TaskID,
			TaskTitle:         s.TaskTitle,
			PayableAmount:     s.PayableAmount,
			WorkerEmail:       s.WorkerEmail,
			WorkerName:        s.WorkerName,
			BuyerEmail:        s.BuyerEmail,
			SubmissionDetails: s.Content,
			CreatedAt:         s.CreatedAt,
		}
	}
	return resp
}

// createSubmissionRequest は作業提出リクエストのボディ。
type createSubmissionRequest struct {
	TaskID            string `json:"task_id"`
	WorkerEmail       string `json:"worker_email"`
	WorkerName        string `json:"worker_name"`
	BuyerEmail        string `json:"buyer_email"`
	SubmissionDetails string `json:"submission_details"`
}

// ListSubmissions は全提出物を返す。
// GET /submissions
func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.service.ListSubmissions(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponses(submissions))
}

// ListByWorker はワーカーの提出物を返す。
// GET /submissions/{workerEmail}
func (h *SubmissionHandler) ListByWorker(w http.ResponseWriter, r *http.Request) {
	workerEmail, ok := urlParam(w, r, "workerEmail")
	if !ok {
		return
	}
	submissions, err := h.service.ListByWorker(r.Context(), workerEmail)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponses(submissions))
}

// ListByBuyer はバイヤー宛の提出物を返す。
// GET /submissions/buyer/{buyerEmail}
func (h *SubmissionHandler) ListByBuyer(w http.ResponseWriter, r *http.Request) {
	buyerEmail, ok := urlParam(w, r, "buyerEmail")
	if !ok {
		return
	}
	submissions, err := h.service.ListByBuyer(r.Context(), buyerEmail)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionResponses(submissions))
}

// CreateSubmission は作業提出を記録する。
// POST /submissions
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	email, err := middleware.EmailFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createSubmissionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	id, err := h.service.CreateSubmission(r.Context(), email, submission.CreateSubmissionInput{
		TaskID:      req.TaskID,
		WorkerEmail: req.WorkerEmail,
		WorkerName:  req.WorkerName,
		BuyerEmail:  req.BuyerEmail,
		Content:     req.SubmissionDetails,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, insertedResponse{InsertedID: id})
}
