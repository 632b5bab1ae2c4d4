package security

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

const ellipsis = "…"

// Excerpt は本文からテキストのみを取り出し、先頭maxRunes文字までの抜粋を返す。
// 連続する空白は1つにまとめる。切り詰めた場合は末尾に"…"を付ける。
// フィードでsummaryが無いブログのカード表示に使う。
func Excerpt(content string, maxRunes int) string {
	text := collapseSpace(plainText(content))
	if maxRunes <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace) + ellipsis
}

// plainText はHTMLのテキストノードを連結する。script/styleの中身は含めない。
func plainText(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))

	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "p", "br", "li", "h2", "h3", "h4", "blockquote", "pre":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if s := string(name); (s == "script" || s == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
