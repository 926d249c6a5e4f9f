package history

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/srcjp/bot-inst/internal/model"
)

// mockExecutor はExecutorのテスト用モック。実行されたクエリと引数を記録する。
type mockExecutor struct {
	execErr error
	queries []string
	args    [][]interface{}
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.queries = append(m.queries, query)
	m.args = append(m.args, args)
	if m.execErr != nil {
		return nil, m.execErr
	}
	return nil, nil
}

func newTestRepo(exec *mockExecutor) (*PostgresRepo, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewPostgresRepo(exec, logger), &buf
}

func TestRecord_SuccessfulPost(t *testing.T) {
	exec := &mockExecutor{}
	repo, _ := newTestRepo(exec)

	day := time.Date(2025, 6, 2, 6, 31, 0, 0, time.UTC) // 月曜日
	result := &model.PostResult{MediaID: "m-1", MediaCount: 3, Album: true}

	repo.Record(context.Background(), day, result, nil)

	if len(exec.queries) != 1 {
		t.Fatalf("実行されたクエリ数 = %d, want 1", len(exec.queries))
	}
	if !strings.Contains(exec.queries[0], "INSERT INTO post_history") {
		t.Errorf("クエリ = %q, want post_historyへのINSERT", exec.queries[0])
	}

	args := exec.args[0]
	if args[0] != "2025-06-02" {
		t.Errorf("posted_on = %v, want 2025-06-02", args[0])
	}
	if args[1] != "segunda" {
		t.Errorf("weekday = %v, want segunda", args[1])
	}
	if args[2] != "posted" {
		t.Errorf("status = %v, want posted", args[2])
	}
	if args[3] != "m-1" || args[4] != 3 || args[5] != true {
		t.Errorf("メディア情報 = %v/%v/%v, want m-1/3/true", args[3], args[4], args[5])
	}
}

func TestRecord_FailureUsesErrorCode(t *testing.T) {
	exec := &mockExecutor{}
	repo, _ := newTestRepo(exec)

	day := time.Date(2025, 6, 6, 6, 31, 0, 0, time.UTC) // 金曜日
	outcome := model.NewNoContentError("sexta", nil)

	repo.Record(context.Background(), day, nil, outcome)

	args := exec.args[0]
	if args[2] != model.ErrCodeNoContent {
		t.Errorf("status = %v, want %q", args[2], model.ErrCodeNoContent)
	}
	detail, _ := args[6].(string)
	if !strings.Contains(detail, model.ErrCodeNoContent) {
		t.Errorf("detail = %q, want エラーメッセージを含むこと", detail)
	}
}

func TestRecord_ExecFailureIsLoggedNotReturned(t *testing.T) {
	// 記録失敗は投稿サイクルを失敗させない（ログのみ）
	exec := &mockExecutor{execErr: errors.New("connection refused")}
	repo, buf := newTestRepo(exec)

	day := time.Date(2025, 6, 2, 6, 31, 0, 0, time.UTC)
	repo.Record(context.Background(), day, &model.PostResult{MediaID: "m-1"}, nil)

	if !strings.Contains(buf.String(), "connection refused") {
		t.Error("記録失敗がログに残っていない")
	}
}

func TestNoopRecorder_DoesNothing(t *testing.T) {
	var rec NoopRecorder
	rec.Record(context.Background(), time.Now(), nil, nil)
}
