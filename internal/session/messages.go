package session

import (
	"errors"
	"net/http"

	"github.com/hitoshi/blogfront/internal/backend"
)

// 画面に表示するメッセージ。
const (
	MsgEmailNotFound       = "Email not found. Please register first."
	MsgInvalidPassword     = "Invalid password."
	MsgLoginFailed         = "Login failed. Please try again."
	MsgAlreadyRegistered   = "This email is already registered. Please login instead."
	MsgRegisterFailed      = "Unable to create account. Please try again."
	MsgRegisterSucceeded   = "Account created successfully!"
	MsgIdentityUnavailable = "Logged in, but your profile could not be loaded. Please login again."
)

// LoginErrorMessage はログイン失敗を利用者向けメッセージに変換する。
// 404はメール未登録、401はパスワード誤り、その他のステータスは汎用メッセージ。
func LoginErrorMessage(err error) string {
	if errors.Is(err, ErrIdentityUnavailable) {
		return MsgIdentityUnavailable
	}
	var se *backend.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusNotFound:
			return MsgEmailNotFound
		case http.StatusUnauthorized:
			return MsgInvalidPassword
		default:
			return MsgLoginFailed
		}
	}
	return MsgLoginFailed
}

// RegisterErrorMessage はユーザー登録失敗を利用者向けメッセージに変換する。
// バックエンドのメッセージに"already"/"exists"が含まれる場合は重複アカウント向けの文言にする。
func RegisterErrorMessage(err error) string {
	msg, ok := backend.ServerMessage(err)
	if !ok {
		return MsgRegisterFailed
	}
	if backend.IsDuplicateMessage(msg) {
		return MsgAlreadyRegistered
	}
	return msg
}
