// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hitoshi/microearn/internal/auth"
	"github.com/hitoshi/microearn/internal/model"
)

// TokenIssuer はアクセストークン発行のインターフェース。
type TokenIssuer interface {
	Issue(email string) (string, error)
}

// AuthHandler はトークン発行のHTTPハンドラー。
type AuthHandler struct {
	issuer TokenIssuer
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

// tokenRequest はトークン発行リクエストのボディ。
type tokenRequest struct {
	Email string `json:"email"`
}

// tokenResponse はトークン発行のレスポンス。
type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken はemailを主体とするアクセストークンを発行する。
// POST /jwt
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	token, err := h.issuer.Issue(strings.TrimSpace(req.Email))
	if errors.Is(err, auth.ErrEmailRequired) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidInputError("email は必須です"))
		return
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}
