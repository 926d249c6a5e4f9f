package post

import (
	"context"
	"log/slog"
	"time"

	"github.com/srcjp/bot-inst/internal/model"
)

// Authenticator は認証済みセッションの確立インターフェース。
type Authenticator interface {
	AcquireSession(ctx context.Context) error
}

// MediaSelector は曜日からメディア一式を解決するインターフェース。
type MediaSelector interface {
	Select(ctx context.Context, weekday time.Weekday) (*model.MediaSet, error)
}

// Publisher はメディア一式の投稿実行インターフェース。
type Publisher interface {
	Publish(ctx context.Context, media *model.MediaSet) (*model.PostResult, error)
}

// CycleRunner は1回の投稿サイクル（認証→コンテンツ解決→投稿）を実行する。
// サイクルは逐次パイプラインであり、開始したら完了または失敗まで走り切る。
type CycleRunner struct {
	auth      Authenticator
	selector  MediaSelector
	publisher Publisher
	logger    *slog.Logger
}

// NewCycleRunner はCycleRunnerの新しいインスタンスを生成する。
func NewCycleRunner(auth Authenticator, selector MediaSelector, publisher Publisher, logger *slog.Logger) *CycleRunner {
	return &CycleRunner{
		auth:      auth,
		selector:  selector,
		publisher: publisher,
		logger:    logger,
	}
}

// RunCycle は指定曜日の投稿サイクルを1回実行する。
// 失敗はすべてmodel.CycleErrorとして返し、ゲートの遷移判定に使用される。
func (r *CycleRunner) RunCycle(ctx context.Context, weekday time.Weekday) (*model.PostResult, error) {
	start := time.Now()

	r.logger.Info("投稿サイクルを開始します",
		slog.String("weekday_dir", model.WeekdayDir(weekday)),
	)

	if err := r.auth.AcquireSession(ctx); err != nil {
		return nil, err
	}

	media, err := r.selector.Select(ctx, weekday)
	if err != nil {
		return nil, err
	}

	result, err := r.publisher.Publish(ctx, media)
	if err != nil {
		return nil, err
	}

	r.logger.Info("投稿サイクルが完了しました",
		slog.String("media_id", result.MediaID),
		slog.Int("media_count", result.MediaCount),
		slog.Bool("album", result.Album),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return result, nil
}
