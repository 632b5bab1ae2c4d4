package model

import "time"

// ViewerSession はブラウザ（閲覧者）ごとのサーバー側セッション。
// バックエンドのアクセストークンを保持し、ブラウザには公開しない。
// JSONタグはRedisへの保存形式。
type ViewerSession struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"` // 未ログインの場合は空
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
