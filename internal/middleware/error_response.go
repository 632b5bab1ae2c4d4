package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/blogfront/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// Redirectはフロントエンドが遷移すべきパス（ログイン画面など）。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
	Redirect string `json:"redirect,omitempty"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	WriteErrorResponseWithRedirect(w, statusCode, apiErr, "")
}

// WriteErrorResponseWithRedirect は遷移先付きでエラーレスポンスを書き込む。
func WriteErrorResponseWithRedirect(w http.ResponseWriter, statusCode int, apiErr *model.APIError, redirect string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
		Redirect: redirect,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、利用者には一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Something went wrong.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	})
}
