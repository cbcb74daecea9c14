package security

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// blockElements はテキスト抽出時に区切りとして空白を挿入する要素。
var blockElements = map[string]bool{
	"p": true, "br": true, "li": true, "ul": true, "ol": true,
	"blockquote": true, "h2": true, "h3": true, "h4": true, "div": true,
}

// PlainTextExcerpt はHTMLからタグを除いたテキストを抽出し、
// 連続する空白を1つにまとめてmaxRunes文字で切り詰める。
// 切り詰めた場合は末尾に "…" を付与する。maxRunesが0以下の場合は切り詰めない。
func PlainTextExcerpt(rawHTML string, maxRunes int) string {
	if rawHTML == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	skipDepth := 0

loop:
	for {
		switch z.Next() {
		case html.ErrorToken:
			break loop
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipDepth++
			}
			if blockElements[tag] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[tag] {
				b.WriteByte(' ')
			}
		}
	}

	text := collapseSpaces(b.String())
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace) + "…"
}

// collapseSpaces は連続する空白文字を半角スペース1つにまとめ、前後の空白を除去する。
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
