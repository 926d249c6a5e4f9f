// Package session はセッション状態の永続化を提供する。
// セッション状態は不透明なバイト列として扱い、内容の解釈は一切行わない。
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound は永続化されたセッション状態が存在しないことを示す。
var ErrNotFound = errors.New("session state not found")

// Store はセッション状態の永続化ストアのインターフェース。
// テスト時にモックに差し替え可能。
type Store interface {
	// Load は永続化されたセッション状態を丸ごと読み込む。
	// 存在しない場合はErrNotFoundを返す。
	Load() ([]byte, error)
	// Save はセッション状態を丸ごと書き込む。既存の内容は上書きされる。
	Save(blob []byte) error
	// Delete は永続化されたセッション状態を削除する。
	// 存在しない場合もエラーにならない（冪等）。
	Delete() error
}

// FileStore は単一ファイルにセッション状態を保存するStore実装。
// ファイルは丸ごと読み書き・削除され、部分更新は行わない。
type FileStore struct {
	path string
}

// NewFileStore はFileStoreの新しいインスタンスを生成する。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load は永続化されたセッション状態を読み込む。
func (s *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("セッションファイルの読み込みに失敗: %w", err)
	}
	if len(data) == 0 {
		// 空ファイルは存在しないものとして扱う
		return nil, ErrNotFound
	}
	return data, nil
}

// Save はセッション状態を書き込む。
// 一時ファイルへの書き込みとリネームにより、書き込み途中のクラッシュでも
// 既存のセッションファイルが破損しないことを保証する。
func (s *FileStore) Save(blob []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("セッションファイルの書き込みに失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("セッションファイルのクローズに失敗: %w", err)
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("セッションファイルの権限設定に失敗: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("セッションファイルの置き換えに失敗: %w", err)
	}

	return nil
}

// Delete はセッションファイルを削除する。
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("セッションファイルの削除に失敗: %w", err)
	}
	return nil
}
