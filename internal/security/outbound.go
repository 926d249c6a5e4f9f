// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes はリモートAPI接続で許可されるURLスキーム。
// APIベースURLは環境変数で差し替え可能なため、httpsのみに制限する。
var allowedSchemes = []string{"https"}

// OutboundGuardService はリモートAPI向けHTTPクライアントの生成と
// ベースURLの事前検証を提供するインターフェース。
type OutboundGuardService interface {
	// NewSafeClient は保護付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// メタデータIPへのリクエストが自動的にブロックされる。
	// APIベースURLが誤って内部ネットワークに向けられた場合の保護となる。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateBaseURL はAPIベースURLの安全性を起動時に検証する。
	ValidateBaseURL(rawURL string) error
}

// outboundGuard はOutboundGuardServiceの実装。
type outboundGuard struct{}

// NewOutboundGuard はOutboundGuardServiceの新しいインスタンスを生成する。
func NewOutboundGuard() *outboundGuard {
	return &outboundGuard{}
}

// NewSafeClient は保護付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// DNS再バインディングにも対応している。
func (g *outboundGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateBaseURL はAPIベースURLの静的な事前検証を行う。
// スキームとホストの存在のみを確認する。IPレベルの検証は
// NewSafeClientが生成するクライアント側のDialerで行われる。
func (g *outboundGuard) ValidateBaseURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty API base URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	ok := false
	for _, s := range allowedSchemes {
		if scheme == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	if parsed.Host == "" {
		return fmt.Errorf("API base URL has no host: %s", rawURL)
	}

	return nil
}
