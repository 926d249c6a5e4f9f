// Package history は投稿試行結果の監査ログを提供する。
// 記録は観測目的のみであり、デイリーゲートがこのデータを読み戻すことはない
// （プロセス再起動が当日の完了を忘れる仕様は維持される）。
package history

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/srcjp/bot-inst/internal/model"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// PostgresRepo は投稿履歴のPostgreSQLリポジトリ。
type PostgresRepo struct {
	db     Executor
	logger *slog.Logger
}

// NewPostgresRepo はPostgresRepoの新しいインスタンスを生成する。
func NewPostgresRepo(db Executor, logger *slog.Logger) *PostgresRepo {
	return &PostgresRepo{db: db, logger: logger}
}

// Record は1回の投稿試行の結果を記録する。
// 記録の失敗は投稿サイクル自体を失敗させてはならないため、
// エラーはログに残すのみで呼び出し側には返さない。
func (r *PostgresRepo) Record(ctx context.Context, day time.Time, result *model.PostResult, outcome error) {
	status := "posted"
	detail := ""
	mediaID := ""
	mediaCount := 0
	album := false

	if outcome != nil {
		status = model.CodeOf(outcome)
		detail = outcome.Error()
	} else if result != nil {
		mediaID = result.MediaID
		mediaCount = result.MediaCount
		album = result.Album
	}

	query := `
		INSERT INTO post_history (posted_on, weekday, status, media_id, media_count, album, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		day.Format("2006-01-02"),
		model.WeekdayDir(day.Weekday()),
		status,
		mediaID,
		mediaCount,
		album,
		detail,
	)
	if err != nil {
		r.logger.Error("投稿履歴の記録に失敗しました",
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}

// NoopRecorder は投稿履歴が無効な場合のno-op実装。
type NoopRecorder struct{}

// Record は何も行わない。
func (NoopRecorder) Record(ctx context.Context, day time.Time, result *model.PostResult, outcome error) {
}
