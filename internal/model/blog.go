package model

import (
	"strings"
	"time"
)

// Author はブログ・コメントの著者情報を表す。
type Author struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// DisplayName は著者の表示名を返す。名前が無ければメールのローカル部。
func (a Author) DisplayName() string {
	return displayName(a.Name, a.Email)
}

// Initials は表示名の各単語の頭文字を最大2文字、大文字で返す。
func (a Author) Initials() string {
	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(a.DisplayName()) {
		if n == 2 {
			break
		}
		r := []rune(word)
		b.WriteRune(r[0])
		n++
	}
	return strings.ToUpper(b.String())
}

// Blog は著者自身が管理するブログ記事（ダッシュボード用）。
type Blog struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Content     string    `json:"content"`
	Summary     *string   `json:"summary,omitempty"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Author      *Author   `json:"author,omitempty"`
}

// StatusLabel は公開状態の表示ラベルを返す。
func (b *Blog) StatusLabel() string {
	if b.IsPublished {
		return "Published"
	}
	return "Draft"
}

// FeedBlog は公開フィードに並ぶブログのカード情報。
type FeedBlog struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Summary      *string   `json:"summary,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	Author       Author    `json:"author"`
}

// FeedPage は公開フィードAPIのページングレスポンス。
type FeedPage struct {
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Total int        `json:"total"`
	Items []FeedBlog `json:"items"`
}

// TotalPages は総ページ数を返す。0件やlimit不正の場合は1ページとして扱う。
func (p *FeedPage) TotalPages() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

// BlogDetail は公開ブログの詳細。
// Likedはバックエンドが閲覧者のいいね状態を返す場合のみ設定される。
type BlogDetail struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Content      string    `json:"content"`
	Summary      *string   `json:"summary,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LikeCount    int       `json:"likeCount"`
	CommentCount int       `json:"commentCount"`
	Liked        *bool     `json:"liked,omitempty"`
	Author       Author    `json:"author"`
}

// CreateBlogPayload はブログ作成リクエストのボディ。
type CreateBlogPayload struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished bool   `json:"isPublished"`
}

// UpdateBlogPayload はブログ部分更新リクエストのボディ。
// nilフィールドは送信しない。
type UpdateBlogPayload struct {
	Title       *string `json:"title,omitempty"`
	Content     *string `json:"content,omitempty"`
	IsPublished *bool   `json:"isPublished,omitempty"`
}

// Comment はブログへのコメント。
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
}

// CreateCommentPayload はコメント投稿リクエストのボディ。
type CreateCommentPayload struct {
	Content string `json:"content"`
}
