// Package publisher は単独写真かアルバムかの投稿判定と投稿実行を提供する。
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/srcjp/bot-inst/internal/instagram"
	"github.com/srcjp/bot-inst/internal/model"
)

// PublishClient は投稿処理が必要とするリモートクライアントの操作面。
// テスト時にモックに差し替え可能。
type PublishClient interface {
	SearchLocations(ctx context.Context, query string) ([]model.Location, error)
	PublishPhoto(ctx context.Context, img model.Image, caption string, loc *model.Location) (*model.PostResult, error)
	PublishAlbum(ctx context.Context, images []model.Image, caption string, loc *model.Location) (*model.PostResult, error)
}

// Config は投稿サービスの設定。
type Config struct {
	// LocationQuery は位置情報検索のフリーテキストクエリ。空の場合は検索しない。
	LocationQuery string
	// LocationPrefer は候補名に含まれてほしい部分文字列のリスト（小文字比較）。
	// 全てを含む候補を優先し、なければ先頭候補を使用する。
	LocationPrefer []string
}

// Service は投稿の単独/アルバム判定と位置タグ解決を行う。
type Service struct {
	client PublishClient
	config Config
	logger *slog.Logger
}

// NewService はServiceを生成する。
func NewService(client PublishClient, config Config, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		config: config,
		logger: logger,
	}
}

// Publish はメディア一式を投稿する。
//
// 判定規則: 画像がちょうど1枚なら単独写真投稿、2枚以上なら入力順を保持した
// アルバム投稿。投稿はコアから見て単一のアトミックなリモート操作であり、
// 部分的なリトライは行わない。
// チェックポイント要求はSECURITY_CHECKPOINT、それ以外の失敗は
// PUBLISH_FAILUREとして返す。
func (s *Service) Publish(ctx context.Context, media *model.MediaSet) (*model.PostResult, error) {
	loc := s.resolveLocation(ctx)

	var (
		result *model.PostResult
		err    error
	)
	if len(media.Images) == 1 {
		result, err = s.client.PublishPhoto(ctx, media.Images[0], media.Caption, loc)
	} else {
		result, err = s.client.PublishAlbum(ctx, media.Images, media.Caption, loc)
	}

	if err != nil {
		var checkpoint *instagram.CheckpointError
		if errors.As(err, &checkpoint) {
			return nil, model.NewSecurityCheckpointError(checkpoint.URL, err)
		}
		return nil, model.NewPublishFailureError(err)
	}

	return result, nil
}

// resolveLocation は位置タグをベストエフォートで解決する。
// 検索失敗や候補ゼロの場合はnilを返し、投稿サイクル自体は失敗させない。
func (s *Service) resolveLocation(ctx context.Context) *model.Location {
	if s.config.LocationQuery == "" {
		return nil
	}

	candidates, err := s.client.SearchLocations(ctx, s.config.LocationQuery)
	if err != nil {
		s.logger.Warn("位置情報の検索に失敗しました。位置タグなしで投稿します",
			slog.String("query", s.config.LocationQuery),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if len(candidates) == 0 {
		s.logger.Warn("位置情報の候補が見つかりませんでした。位置タグなしで投稿します",
			slog.String("query", s.config.LocationQuery),
		)
		return nil
	}

	chosen := s.pickCandidate(candidates)
	s.logger.Info("位置情報を解決しました",
		slog.String("name", chosen.Name),
		slog.String("external_id", chosen.ExternalID),
	)
	return chosen
}

// pickCandidate は優先部分文字列を全て含む候補を探し、なければ先頭候補を返す。
func (s *Service) pickCandidate(candidates []model.Location) *model.Location {
	for i := range candidates {
		name := strings.ToLower(candidates[i].Name)
		match := len(s.config.LocationPrefer) > 0
		for _, substr := range s.config.LocationPrefer {
			if !strings.Contains(name, strings.ToLower(substr)) {
				match = false
				break
			}
		}
		if match {
			return &candidates[i]
		}
	}
	return &candidates[0]
}
