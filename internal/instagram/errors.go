package instagram

import (
	"errors"
	"fmt"
)

// 認証系の典型的な失敗を表すセンチネルエラー。
// 呼び出し側はerrors.Is/Asでモデル層のエラーコードに写像する。
var (
	// ErrBadCredentials は認証情報が拒否されたことを示す。
	ErrBadCredentials = errors.New("instagram: bad credentials")
	// ErrSessionInvalid は復元したセッションが無効と判定されたことを示す。
	ErrSessionInvalid = errors.New("instagram: session invalid")
)

// CheckpointError はInstagramが本人確認（チェックポイント）を
// 要求していることを示す。URLは空の場合がある。
type CheckpointError struct {
	URL string
}

// Error はerrorインターフェースを実装する。
func (e *CheckpointError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("instagram: checkpoint required: %s", e.URL)
	}
	return "instagram: checkpoint required"
}

// apiEnvelope はInstagram APIの共通レスポンス形式。
// 失敗時のmessageフィールドでチェックポイントや認証エラーを識別する。
type apiEnvelope struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	CheckpointURL string `json:"checkpoint_url"`
	Challenge     struct {
		URL string `json:"url"`
	} `json:"challenge"`
	ErrorType string `json:"error_type"`
}

// classifyFailure はAPIレスポンスの失敗内容を型付きエラーに写像する。
// 既知の識別シグナル以外は汎用エラーとして返す。
func classifyFailure(env *apiEnvelope, httpStatus int) error {
	switch env.Message {
	case "checkpoint_required", "challenge_required":
		url := env.CheckpointURL
		if url == "" {
			url = env.Challenge.URL
		}
		return &CheckpointError{URL: url}
	case "login_required":
		return ErrSessionInvalid
	}

	switch env.ErrorType {
	case "bad_password", "invalid_user":
		return ErrBadCredentials
	}

	if httpStatus == 401 || httpStatus == 403 {
		return ErrSessionInvalid
	}

	if env.Message != "" {
		return fmt.Errorf("instagram: request failed (status %d): %s", httpStatus, env.Message)
	}
	return fmt.Errorf("instagram: request failed (status %d)", httpStatus)
}
