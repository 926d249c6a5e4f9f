package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestValidateBaseURL(t *testing.T) {
	guard := NewOutboundGuard()

	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{"httpsのAPIベースURLは許可", "https://i.instagram.com", false},
		{"httpは拒否", "http://i.instagram.com", true},
		{"空文字列は拒否", "", true},
		{"スキームなしは拒否", "i.instagram.com", true},
		{"ホストなしは拒否", "https://", true},
		{"fileスキームは拒否", "file:///etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateBaseURL(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateBaseURL(%q) = %v, wantErr %v", tt.rawURL, err, tt.wantErr)
			}
		})
	}
}

func TestNewSafeClient_SetsTimeout(t *testing.T) {
	guard := NewOutboundGuard()

	client := guard.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("NewSafeClient() がnilを返した")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", client.Timeout)
	}
}

// TestNewSafeClient_BlocksLoopback は保護付きクライアントがループバックへの
// リクエストをブロックすることをテストする。httptestサーバーは127.0.0.1で
// 起動されるため、safeurlがブロックする。
func TestNewSafeClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	guard := NewOutboundGuard()
	client := guard.NewSafeClient(5 * time.Second)

	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("ループバックアドレスへのリクエストがブロックされなかった")
	}
}

func TestOutboundGuardInterface(t *testing.T) {
	var _ OutboundGuardService = NewOutboundGuard()
}
