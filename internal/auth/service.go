// Package auth はセッション再利用を優先する認証プロトコルを提供する。
// 永続化されたセッションの復元・検証・破棄とフルログインへのフォールバックを扱う。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/srcjp/bot-inst/internal/instagram"
	"github.com/srcjp/bot-inst/internal/model"
	"github.com/srcjp/bot-inst/internal/session"
)

// SessionClient は認証プロトコルが必要とするリモートクライアントの操作面。
// テスト時にモックに差し替え可能。
type SessionClient interface {
	// ImportSession は不透明なセッション状態をクライアントに復元する。
	ImportSession(blob []byte) error
	// ExportSession は現在の認証状態を不透明なバイト列として書き出す。
	ExportSession() ([]byte, error)
	// Login は認証情報によるフルログインを実行する。
	Login(ctx context.Context, password string) error
	// CurrentUser は復元したセッションの有効性を検証する安価なプローブ。
	CurrentUser(ctx context.Context) error
	// Reset は認証状態を破棄し、未ログイン状態に戻す。
	Reset()
}

// LoginRecorder はセッション確立方式のメトリクス記録インターフェース。
type LoginRecorder interface {
	RecordLogin(mode string)
}

// Service はセッションライフサイクル（1回認証・再利用・無効化して再試行）を管理する。
// セッション状態の永続化はServiceが排他的に所有し、他のコンポーネントは変更しない。
type Service struct {
	store    session.Store
	client   SessionClient
	password string
	metrics  LoginRecorder
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(store session.Store, client SessionClient, password string, metrics LoginRecorder, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		client:   client,
		password: password,
		metrics:  metrics,
		logger:   logger,
	}
}

// AcquireSession は利用可能な認証済みセッションを確立する。
//
// アルゴリズム:
//  1. 永続化されたセッション状態があれば復元し、認証付きプローブで検証する。
//  2. 復元または検証が失敗した場合、永続化されたセッション状態を削除して
//     フルログインを実行する（破損・期限切れセッションを再試行させないため）。
//  3. フルログイン成功時は新しいセッション状態を永続化する（既存を上書き）。
//
// 1サイクル内でフルログインは最大1回しか実行されない。
// 復元とフルログインの両方が失敗した場合のみエラーを返す。
// チェックポイント要求はmodel.ErrCodeSecurityCheckpointとして区別して返す。
func (s *Service) AcquireSession(ctx context.Context) error {
	if s.tryRestore(ctx) {
		s.metrics.RecordLogin("restore")
		return nil
	}

	// 復元不能なセッションは削除し、次回以降も再試行させない
	if err := s.store.Delete(); err != nil {
		s.logger.Error("無効セッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	s.client.Reset()

	if err := s.client.Login(ctx, s.password); err != nil {
		var checkpoint *instagram.CheckpointError
		if errors.As(err, &checkpoint) {
			return model.NewSecurityCheckpointError(checkpoint.URL, err)
		}
		return model.NewAuthFailureError(err)
	}

	s.metrics.RecordLogin("full")

	blob, err := s.client.ExportSession()
	if err != nil {
		return model.NewAuthFailureError(fmt.Errorf("セッション状態の書き出しに失敗: %w", err))
	}
	if err := s.store.Save(blob); err != nil {
		// 永続化失敗はログイン自体の成功を妨げない。次回はフルログインになるだけ。
		s.logger.Error("セッション状態の永続化に失敗しました",
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("新しいセッション状態を永続化しました")
	}

	return nil
}

// tryRestore は永続化されたセッションの復元と検証を試みる。
// 成功した場合のみtrueを返す。失敗理由はログに残すが、呼び出し側は
// 理由を問わずフルログインにフォールバックする。
func (s *Service) tryRestore(ctx context.Context) bool {
	blob, err := s.store.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn("セッション状態の読み込みに失敗しました",
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	if err := s.client.ImportSession(blob); err != nil {
		s.logger.Warn("セッション状態の復元に失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}

	if err := s.client.CurrentUser(ctx); err != nil {
		s.logger.Warn("復元したセッションの検証に失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.Info("永続化されたセッションを再利用します")
	return true
}
