// Package security はブログ本文の表示に関するセキュリティ機能を提供する。
//
// バックエンドが返すブログ本文は投稿者が自由に入力したものであり、
// そのままHTMLとして描画するとXSSの危険がある。ContentSanitizerは
// bluemondayの許可リストポリシーで安全なタグと属性のみを残す。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はブログ本文のサニタイズ機能のインターフェース。
type ContentSanitizerService interface {
	// Sanitize は本文HTMLをサニタイズして描画可能なHTMLを返す。
	// 空文字列の入力には空文字列を返す。同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

// ContentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので、1インスタンスを共有してよい。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はブログ本文用のポリシーでContentSanitizerを生成する。
//   - 許可タグ: h2〜h4, p, br, hr, ul, ol, li, blockquote, pre, code, strong, em, a, img
//   - aタグ: 絶対URLのみ。target="_blank"とrel="noopener noreferrer"を付与
//   - imgタグ: httpsのsrcとaltのみ
func NewContentSanitizer() *ContentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"h2", "h3", "h4",
		"p", "br", "hr",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(*url.URL) bool { return true })

	return &ContentSanitizer{policy: p}
}

// Sanitize は本文HTMLをサニタイズする。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

var _ ContentSanitizerService = (*ContentSanitizer)(nil)
