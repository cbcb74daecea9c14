// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は求人・イベント・プロフィールの説明文HTMLをサニタイズし、
// 保存前にXSSの原因となるタグや属性を取り除く。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// リッチテキストエディタが出力する書式タグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は説明文HTMLのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, strong, em, u, s, h2, h3, h4）のみを通過させ、
	// script, iframe, style, imgタグおよびon*イベント属性を除去する。
	// aタグにはtarget="_blank"とrel="noopener noreferrer"が自動付与される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// Excerpt はHTMLからタグを除いたプレーンテキストを最大maxRunes文字で返す。
	Excerpt(rawHTML string, maxRunes int) string
}

// contentSanitizer はContentSanitizerServiceの実装。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote",
		"strong", "em", "u", "s",
		"h2", "h3", "h4",
	)

	// リンクはhttp/https/mailtoの絶対URLのみ
	p.AllowAttrs("href").OnElements("a")
	p.AllowStandardURLs()
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// Excerpt はHTMLからプレーンテキストの抜粋を生成する。
func (s *contentSanitizer) Excerpt(rawHTML string, maxRunes int) string {
	return PlainTextExcerpt(rawHTML, maxRunes)
}
