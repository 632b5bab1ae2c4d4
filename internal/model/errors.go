package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, blog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeRegisterFailed   = "REGISTER_FAILED"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeBlogNotFound     = "BLOG_NOT_FOUND"
	ErrCodeLikeFailed       = "LIKE_FAILED"
	ErrCodeLikeInFlight     = "LIKE_IN_FLIGHT"
	ErrCodeCommentFailed    = "COMMENT_FAILED"
	ErrCodeBackendFailed    = "BACKEND_FAILED"
	ErrCodeInvalidParameter = "INVALID_PARAMETER"
)

// NewUnauthorizedError はログインが必要な操作に対するエラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	if message == "" {
		message = "Authentication required."
	}
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
		Action:   "Please login to continue.",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "Fix the highlighted input and submit again.",
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
func NewLoginFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  message,
		Category: "auth",
		Action:   "Check your email and password.",
	}
}

// NewRegisterFailedError はユーザー登録失敗エラーを生成する。
func NewRegisterFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeRegisterFailed,
		Message:  message,
		Category: "auth",
		Action:   "Use another email or login instead.",
	}
}

// NewBlogNotFoundError はブログ未検出エラーを生成する。
func NewBlogNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeBlogNotFound,
		Message:  fmt.Sprintf("Blog not found: %s", slug),
		Category: "blog",
		Action:   "Go back to the feed.",
	}
}

// NewLikeFailedError はいいね更新失敗エラーを生成する。
func NewLikeFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeLikeFailed,
		Message:  message,
		Category: "blog",
		Action:   "Please try again.",
	}
}

// NewLikeInFlightError は同一ブログへのいいね更新が処理中であることを示すエラーを生成する。
func NewLikeInFlightError() *APIError {
	return &APIError{
		Code:     ErrCodeLikeInFlight,
		Message:  "Updating...",
		Category: "blog",
		Action:   "Wait for the current update to finish.",
	}
}

// NewCommentFailedError はコメント投稿失敗エラーを生成する。
func NewCommentFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentFailed,
		Message:  message,
		Category: "blog",
		Action:   "Please try again.",
	}
}

// NewBackendFailedError はバックエンド呼び出しの汎用失敗エラーを生成する。
func NewBackendFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeBackendFailed,
		Message:  message,
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}
}

// NewInvalidParameterError は不正なクエリ・パスパラメータのエラーを生成する。
func NewInvalidParameterError(name, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf("Invalid parameter %s: %q", name, value),
		Category: "validation",
		Action:   "Check the request parameters.",
	}
}
