package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// CaptionSanitizerService はキャプションテキストのサニタイズ機能の
// インターフェースを定義する。投稿サイクルでキャプション読み込み時に使用される。
type CaptionSanitizerService interface {
	// Sanitize はキャプションからHTMLタグを全て除去し、
	// プレーンテキストとして返す。手作業で用意されるキャプションファイルには
	// Webからコピーした断片が混入することがあるため、タグは一切許可しない。
	// HTMLエンティティは元の文字に戻し、前後の空白を除去する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// captionSanitizer はCaptionSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type captionSanitizer struct {
	policy *bluemonday.Policy
}

// NewCaptionSanitizer はCaptionSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去する。
func NewCaptionSanitizer() *captionSanitizer {
	return &captionSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はキャプションからHTMLを除去したプレーンテキストを返す。
func (s *captionSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	// StrictPolicyは残したテキストをエスケープするため、エンティティを元に戻す
	return strings.TrimSpace(html.UnescapeString(stripped))
}
