package blog

import (
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/blogfront/internal/model"
)

// 入力値の制約。
const (
	MinTitleLength   = 3
	MinContentLength = 10
	MinCommentLength = 3
	MaxCommentLength = 500
)

// 検証エラーのメッセージ。
const (
	MsgTitleContentRequired = "Title and content are required."
	MsgTitleTooShort        = "Title must be at least 3 characters."
	MsgContentTooShort      = "Content must be at least 10 characters."
	MsgCommentTooShort      = "Comment must be at least 3 characters."
	MsgCommentTooLong       = "Comment cannot exceed 500 characters."
)

// BlogInput はダッシュボードのブログ作成・編集フォームの入力。
type BlogInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished bool   `json:"isPublished"`
}

// Normalize は前後の空白を除去した入力を返す。
func (in BlogInput) Normalize() BlogInput {
	return BlogInput{
		Title:       strings.TrimSpace(in.Title),
		Content:     strings.TrimSpace(in.Content),
		IsPublished: in.IsPublished,
	}
}

// ValidateBlogInput はフォーム入力を検証する。前後の空白は長さに含めない。
func ValidateBlogInput(in BlogInput) error {
	in = in.Normalize()
	if in.Title == "" || in.Content == "" {
		return model.NewValidationError(MsgTitleContentRequired)
	}
	if utf8.RuneCountInString(in.Title) < MinTitleLength {
		return model.NewValidationError(MsgTitleTooShort)
	}
	if utf8.RuneCountInString(in.Content) < MinContentLength {
		return model.NewValidationError(MsgContentTooShort)
	}
	return nil
}

// ValidateComment はコメント本文を検証する。前後の空白は長さに含めない。
func ValidateComment(content string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < MinCommentLength {
		return model.NewValidationError(MsgCommentTooShort)
	}
	if n > MaxCommentLength {
		return model.NewValidationError(MsgCommentTooLong)
	}
	return nil
}
