// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// CycleError は投稿サイクルの失敗を表す統一エラーフォーマット。
// デイリーゲートの遷移判定に使用する原因コードと対処方法を含む。
type CycleError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
	Action  string // 運用者向け対処方法
	Err     error  // ラップされた原因エラー
}

// Error はerrorインターフェースを実装する。
func (e *CycleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はラップされた原因エラーを返す。
func (e *CycleError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	// ErrCodeNoContent は当日分のメディアまたはキャプションが存在しないことを示す。
	// ウィンドウ内の次のティックで再試行される。
	ErrCodeNoContent = "NO_CONTENT"
	// ErrCodeAuthFailure は認証情報の拒否またはログイン中のネットワーク障害を示す。
	// ウィンドウ内の次のティックで再試行され、単発ではその日をロックしない。
	ErrCodeAuthFailure = "AUTH_FAILURE"
	// ErrCodeSecurityCheckpoint はInstagramが本人確認を要求している状態を示す。
	// アカウントリスクが高いため、その日の自動試行をすべて停止する。
	ErrCodeSecurityCheckpoint = "SECURITY_CHECKPOINT"
	// ErrCodePublishFailure は認証以外の理由で投稿呼び出しが拒否されたことを示す。
	// 危険な再試行を避けるため、その日をロックする（フェイルクローズ方針）。
	ErrCodePublishFailure = "PUBLISH_FAILURE"
)

// NewNoContentError はコンテンツ未検出エラーを生成する。
func NewNoContentError(weekdayDir string, cause error) *CycleError {
	return &CycleError{
		Code:    ErrCodeNoContent,
		Message: fmt.Sprintf("当日フォルダに投稿可能なコンテンツがありません: %s", weekdayDir),
		Action:  "画像（.png/.jpg/.jpeg）とtexto.txtを当日フォルダに配置してください。",
		Err:     cause,
	}
}

// NewAuthFailureError は認証失敗エラーを生成する。
func NewAuthFailureError(cause error) *CycleError {
	return &CycleError{
		Code:    ErrCodeAuthFailure,
		Message: "Instagramへの認証に失敗しました",
		Action:  "認証情報とネットワーク接続を確認してください。",
		Err:     cause,
	}
}

// NewSecurityCheckpointError はセキュリティチェックポイントエラーを生成する。
// checkpointURLは空の場合がある。
func NewSecurityCheckpointError(checkpointURL string, cause error) *CycleError {
	msg := "Instagramが本人確認（チェックポイント）を要求しています"
	if checkpointURL != "" {
		msg = fmt.Sprintf("%s: %s", msg, checkpointURL)
	}
	return &CycleError{
		Code:    ErrCodeSecurityCheckpoint,
		Message: msg,
		Action:  "ブラウザまたは公式アプリでアカウントにログインし、本人確認を完了してください。完了するまで自動投稿は当日中停止します。",
		Err:     cause,
	}
}

// NewPublishFailureError は投稿失敗エラーを生成する。
func NewPublishFailureError(cause error) *CycleError {
	return &CycleError{
		Code:    ErrCodePublishFailure,
		Message: "Instagramへの投稿呼び出しが拒否されました",
		Action:  "アカウント状態とメディア内容を確認してください。本日の自動再試行は行いません。",
		Err:     cause,
	}
}

// CodeOf はエラーからサイクルエラーコードを取り出す。
// CycleErrorでない場合はErrCodePublishFailureとして扱う（フェイルクローズ）。
// nilの場合は空文字列を返す。
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodePublishFailure
}
