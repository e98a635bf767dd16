// Package security はユーザー入力テキストのサニタイズを提供する。
//
// タスクの説明や提出内容はバイヤー、ワーカー双方のダッシュボードで
// HTMLとして描画されるため、保存前に許可リスト方式で無害化する。
package security

import (
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストのサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize は書式付きテキスト（タスク詳細、提出内容など）をサニタイズする。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, pre, code, strong, em）のみを通過させる。
	// aタグのhrefはhttpsのみ許可し、rel="nofollow noreferrer noopener"を付与する。
	Sanitize(raw string) string

	// SanitizeText はタイトルや名前などの単一行テキストから全てのタグを除去し、前後の空白を取り除く。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーは生成後に変更しないため、並行利用できる。
type contentSanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() ContentSanitizerService {
	rich := bluemonday.NewPolicy()
	rich.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	rich.AllowAttrs("href").OnElements("a")
	rich.AllowRelativeURLs(false)
	rich.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})
	rich.RequireNoFollowOnLinks(true)
	rich.RequireNoReferrerOnLinks(true)
	rich.AddTargetBlankToFullyQualifiedLinks(true)

	return &contentSanitizer{
		rich:  rich,
		plain: bluemonday.StrictPolicy(),
	}
}

// Sanitize は書式付きテキストをサニタイズする。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.rich.Sanitize(raw)
}

// SanitizeText は全てのタグを除去する。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return strings.TrimSpace(s.plain.Sanitize(raw))
}
