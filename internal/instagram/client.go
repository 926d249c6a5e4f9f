package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// appID はAPIリクエストのX-IG-App-IDヘッダー値。
const appID = "567067343352427"

// Config はClientの設定。
// リクエストタイムアウトは渡されるhttp.Client側で設定する。
type Config struct {
	// BaseURL はAPIのベースURL（例: "https://i.instagram.com"）。
	BaseURL string
	// MinInterval はAPIリクエストの最低間隔。
	// 自動化検知を避けるため、全リクエストがこの間隔でペーシングされる。
	MinInterval time.Duration
}

// Client はInstagramプライベートAPIのHTTPクライアント。
// ユーザー名から決定的に導出したデバイス識別子でリクエストを送り、
// 認証状態（Cookie・CSRFトークン・ユーザーID）を保持する。
// 1つの投稿サイクル内で単一ゴルーチンから使用される前提であり、
// 並行アクセスに対する保護は行わない。
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger

	username string
	device   Device

	// 認証状態
	loggedIn  bool
	userID    string
	csrfToken string
	cookies   map[string]string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientには保護付きクライアント（security.NewSafeClient）を渡すことを想定している。
func NewClient(httpClient *http.Client, cfg Config, username string, logger *slog.Logger) *Client {
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Every(minInterval), 1),
		logger:     logger,
		username:   username,
		device:     NewDevice(username),
		cookies:    make(map[string]string),
	}
}

// LoggedIn は認証状態が確立済みかを返す。
func (c *Client) LoggedIn() bool {
	return c.loggedIn
}

// Reset は認証状態を破棄し、未ログイン状態に戻す。
// デバイス識別子はユーザー名から再導出されるため変化しない。
func (c *Client) Reset() {
	c.loggedIn = false
	c.userID = ""
	c.csrfToken = ""
	c.cookies = make(map[string]string)
	c.device = NewDevice(c.username)
}

// do はレート制限・共通ヘッダー・Cookie管理を適用してAPIリクエストを実行する。
// レスポンスボディとHTTPステータスを返す。ネットワーク層の失敗はそのまま返す。
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("レート制限の待機に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", c.device.UserAgent)
	req.Header.Set("X-IG-App-ID", appID)
	req.Header.Set("X-IG-Device-ID", c.device.GUID)
	req.Header.Set("Accept-Language", "en-US")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}
	if len(c.cookies) > 0 {
		var pairs []string
		for k, v := range c.cookies {
			pairs = append(pairs, k+"="+v)
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTPリクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	c.captureCookies(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}

	return data, resp.StatusCode, nil
}

// captureCookies はSet-CookieヘッダーからCookieを取り込み、CSRFトークンを追従させる。
func (c *Client) captureCookies(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Value == "" {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck.Value
		if ck.Name == "csrftoken" {
			c.csrfToken = ck.Value
		}
	}
}

// doJSON はAPIを呼び出し、成功レスポンスをoutにデコードする。
// status=="ok"以外のレスポンスはclassifyFailureで型付きエラーに写像する。
func (c *Client) doJSON(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	contentType := ""
	if form != nil {
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	data, httpStatus, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}

	var env apiEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("instagram: unexpected response (status %d): %w", httpStatus, err)
	}

	if env.Status != "ok" {
		return classifyFailure(&env, httpStatus)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("レスポンスのデコードに失敗: %w", err)
		}
	}
	return nil
}

// Login は認証情報によるフルログインを実行する。
// 成功すると認証状態（Cookie・ユーザーID）が確立され、ExportSessionで
// 永続化可能になる。認証情報拒否はErrBadCredentials、
// 本人確認要求はCheckpointErrorとして返す。
func (c *Client) Login(ctx context.Context, password string) error {
	// CSRFトークン取得のためのプリフライト
	if c.csrfToken == "" {
		if _, _, err := c.do(ctx, http.MethodGet, "/api/v1/si/fetch_headers/", nil, ""); err != nil {
			return fmt.Errorf("ログイン前処理に失敗: %w", err)
		}
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM:0:%d:%s", time.Now().Unix(), password))
	form.Set("device_id", c.device.DeviceID)
	form.Set("guid", c.device.GUID)
	form.Set("phone_id", c.device.PhoneID)
	form.Set("login_attempt_count", "0")

	var result struct {
		LoggedInUser struct {
			PK       json.Number `json:"pk"`
			Username string      `json:"username"`
		} `json:"logged_in_user"`
	}

	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/accounts/login/", form, &result); err != nil {
		return err
	}

	c.userID = result.LoggedInUser.PK.String()
	c.loggedIn = true

	c.logger.Info("Instagramへのフルログインが完了しました",
		slog.String("username", c.username),
		slog.String("user_id", c.userID),
	)
	return nil
}

// CurrentUser は現在のセッションで自アカウント情報を取得する。
// 復元したセッションの有効性検証（安価な認証付きプローブ）として使用する。
// セッションが無効な場合はErrSessionInvalidを返す。
func (c *Client) CurrentUser(ctx context.Context) error {
	if !c.loggedIn {
		return ErrSessionInvalid
	}

	var result struct {
		User struct {
			PK       json.Number `json:"pk"`
			Username string      `json:"username"`
		} `json:"user"`
	}

	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/accounts/current_user/", nil, &result); err != nil {
		return err
	}

	if result.User.PK.String() == "" {
		return ErrSessionInvalid
	}
	return nil
}

// postForm はsigned_body形式のフォームをJSONペイロードで送信する。
// configure系エンドポイントで使用する。
func (c *Client) postForm(ctx context.Context, path string, payload map[string]any, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ペイロードのエンコードに失敗: %w", err)
	}

	form := url.Values{}
	form.Set("signed_body", "SIGNATURE."+string(encoded))
	return c.doJSON(ctx, http.MethodPost, path, form, out)
}

// uploadBody は生バイト列のアップロードリクエストを実行する。
func (c *Client) uploadBody(ctx context.Context, path string, data []byte, headers map[string]string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("レート制限の待機に失敗: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("アップロードリクエスト作成に失敗: %w", err)
	}

	req.Header.Set("User-Agent", c.device.UserAgent)
	req.Header.Set("X-IG-App-ID", appID)
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}
	if len(c.cookies) > 0 {
		var pairs []string
		for k, v := range c.cookies {
			pairs = append(pairs, k+"="+v)
		}
		req.Header.Set("Cookie", strings.Join(pairs, "; "))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("アップロードに失敗: %w", err)
	}
	defer resp.Body.Close()

	c.captureCookies(resp)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("アップロードレスポンスの読み取りに失敗: %w", err)
	}
	return body, resp.StatusCode, nil
}
