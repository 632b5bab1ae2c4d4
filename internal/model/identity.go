// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Identity はバックエンドが認証済みと確認したユーザーの公開プロフィール。
// 1セッション内で取得後は変更しない。
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName は表示名を返す。名前が空の場合はメールアドレスのローカル部を使う。
func (i *Identity) DisplayName() string {
	return displayName(i.Name, i.Email)
}

// Initial はヘッダー表示用の頭文字（メールアドレス先頭1文字の大文字）を返す。
func (i *Identity) Initial() string {
	if i.Email == "" {
		return ""
	}
	r := []rune(i.Email)
	return strings.ToUpper(string(r[0]))
}

// Credentials はログイン・ユーザー登録のリクエストボディ。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// displayName はnameが空ならemailの@より前を返す。
func displayName(name, email string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
