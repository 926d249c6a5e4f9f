// Package handler は運用用HTTPサーフェス（ヘルスチェック・状態参照・メトリクス）を提供する。
// 投稿を操作するエンドポイントは存在しない。
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srcjp/bot-inst/internal/metrics"
	"github.com/srcjp/bot-inst/internal/worker/post"
)

// GateStateProvider はデイリーゲートの状態スナップショット取得インターフェース。
type GateStateProvider interface {
	State() post.State
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Gate     GateStateProvider
	Gatherer prometheus.Gatherer
}

// statusResponse はGET /api/statusのレスポンス形式。
type statusResponse struct {
	Weekday      string `json:"weekday"`
	Phase        string `json:"phase"`
	AuthFailures int    `json:"auth_failures"`
	LockedCode   string `json:"locked_code,omitempty"`
}

// NewRouter は運用エンドポイントのルーティングを構成したchi.Routerを返す。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
		state := deps.Gate.State()

		resp := statusResponse{
			Phase:        string(state.Phase),
			AuthFailures: state.AuthFailures,
			LockedCode:   state.LockedCode,
		}
		if state.Checked {
			resp.Weekday = state.Day.String()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	})

	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	return r
}
