package backend

import (
	"errors"
	"net/http"
	"strings"
)

// defaultErrorMessage はレスポンスにmessageが無い場合の表示用メッセージ。
const defaultErrorMessage = "Something went wrong"

// ErrUnauthorized はトークンが無いため認証必須APIを呼び出せないことを示す。
// ネットワーク呼び出しは行われない。
var ErrUnauthorized = errors.New("Unauthorized")

// StatusError はバックエンドが2xx以外を返したことを表す。
type StatusError struct {
	StatusCode int
	// Message はレスポンスボディのmessageフィールド。無い場合は空。
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Message == "" {
		return defaultErrorMessage
	}
	return e.Message
}

// Kind はバックエンドエラーの分類。
type Kind int

const (
	// KindGeneric はその他のエラー（ネットワークエラーを含む）。
	KindGeneric Kind = iota
	// KindUnauthorized はトークン無し・無効トークン。
	KindUnauthorized
	// KindNotFound は対象が存在しない（404）。
	KindNotFound
	// KindConflict は重複・検証エラー。
	KindConflict
)

// String はログ出力用の名前を返す。
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "generic"
	}
}

// Classify はエラーを分類する。nilの場合はKindGenericを返す。
func Classify(err error) Kind {
	if errors.Is(err, ErrUnauthorized) {
		return KindUnauthorized
	}
	var se *StatusError
	if !errors.As(err, &se) {
		return KindGeneric
	}
	switch se.StatusCode {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return KindConflict
	}
	if IsDuplicateMessage(se.Message) {
		return KindConflict
	}
	return KindGeneric
}

// StatusCode はエラーのHTTPステータスコードを返す。StatusErrorでなければ0。
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound は404エラーかを判定する。
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}

// ServerMessage はサーバーが返したmessageを取り出す。無い場合はfalse。
func ServerMessage(err error) (string, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message, true
	}
	return "", false
}

// MessageOf はサーバーのmessageを優先し、無ければfallbackを返す。
func MessageOf(err error, fallback string) string {
	if msg, ok := ServerMessage(err); ok {
		return msg
	}
	return fallback
}

// IsDuplicateMessage はメッセージが重複アカウントを示す文言か判定する。
func IsDuplicateMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "already") || strings.Contains(lower, "exists")
}
