package instagram

import (
	"encoding/json"
	"fmt"
)

// sessionState はセッション復元に必要な認証状態のシリアライズ形式。
// この構造はアダプタ内部に閉じており、他のコンポーネントは
// 不透明なバイト列としてのみ扱う。
type sessionState struct {
	Username  string            `json:"username"`
	DeviceID  string            `json:"device_id"`
	GUID      string            `json:"guid"`
	PhoneID   string            `json:"phone_id"`
	UserAgent string            `json:"user_agent"`
	UserID    string            `json:"user_id"`
	CSRFToken string            `json:"csrf_token"`
	Cookies   map[string]string `json:"cookies"`
}

// ExportSession は現在の認証状態を不透明なバイト列として書き出す。
// ログイン済みでない場合はエラーを返す。
func (c *Client) ExportSession() ([]byte, error) {
	if !c.loggedIn {
		return nil, fmt.Errorf("instagram: not logged in, nothing to export")
	}

	cookies := make(map[string]string, len(c.cookies))
	for k, v := range c.cookies {
		cookies[k] = v
	}

	state := sessionState{
		Username:  c.username,
		DeviceID:  c.device.DeviceID,
		GUID:      c.device.GUID,
		PhoneID:   c.device.PhoneID,
		UserAgent: c.device.UserAgent,
		UserID:    c.userID,
		CSRFToken: c.csrfToken,
		Cookies:   cookies,
	}

	blob, err := json.Marshal(&state)
	if err != nil {
		return nil, fmt.Errorf("セッション状態のシリアライズに失敗: %w", err)
	}
	return blob, nil
}

// ImportSession は永続化されたバイト列から認証状態を復元する。
// 形式が不正な場合やユーザー名が一致しない場合はエラーを返し、
// クライアントの状態は変更されない。復元後の有効性はCurrentUserで検証すること。
func (c *Client) ImportSession(blob []byte) error {
	var state sessionState
	if err := json.Unmarshal(blob, &state); err != nil {
		return fmt.Errorf("セッション状態のデシリアライズに失敗: %w", err)
	}

	if state.Username != c.username {
		return fmt.Errorf("セッション状態のユーザー名が一致しません: %q", state.Username)
	}
	if state.UserID == "" || len(state.Cookies) == 0 {
		return fmt.Errorf("セッション状態に必須フィールドがありません")
	}

	c.device = Device{
		DeviceID:  state.DeviceID,
		GUID:      state.GUID,
		PhoneID:   state.PhoneID,
		UserAgent: state.UserAgent,
	}
	c.userID = state.UserID
	c.csrfToken = state.CSRFToken
	c.cookies = make(map[string]string, len(state.Cookies))
	for k, v := range state.Cookies {
		c.cookies[k] = v
	}
	c.loggedIn = true

	return nil
}
