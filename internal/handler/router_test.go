package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/srcjp/bot-inst/internal/metrics"
	"github.com/srcjp/bot-inst/internal/model"
	"github.com/srcjp/bot-inst/internal/worker/post"
)

// mockGate はGateStateProviderのテスト用モック。
type mockGate struct {
	state post.State
}

func (m *mockGate) State() post.State {
	return m.state
}

func newTestRouter(gate *mockGate) (http.Handler, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	return NewRouter(&RouterDeps{Gate: gate, Gatherer: reg}), collector
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(&mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf(`status = %q, want "ok"`, body["status"])
	}
}

func TestStatusEndpoint_ReportsGateState(t *testing.T) {
	gate := &mockGate{state: post.State{
		Checked:      true,
		Day:          time.Monday,
		Phase:        post.PhasePosted,
		AuthFailures: 1,
	}}
	router, _ := newTestRouter(gate)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Weekday      string `json:"weekday"`
		Phase        string `json:"phase"`
		AuthFailures int    `json:"auth_failures"`
		LockedCode   string `json:"locked_code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if body.Weekday != "Monday" {
		t.Errorf("weekday = %q, want Monday", body.Weekday)
	}
	if body.Phase != "posted" {
		t.Errorf("phase = %q, want posted", body.Phase)
	}
	if body.AuthFailures != 1 {
		t.Errorf("auth_failures = %d, want 1", body.AuthFailures)
	}
	if body.LockedCode != "" {
		t.Errorf("locked_code = %q, want 空", body.LockedCode)
	}
}

func TestStatusEndpoint_IncludesLockedCode(t *testing.T) {
	gate := &mockGate{state: post.State{
		Checked:    true,
		Day:        time.Friday,
		Phase:      post.PhaseLocked,
		LockedCode: model.ErrCodeSecurityCheckpoint,
	}}
	router, _ := newTestRouter(gate)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body struct {
		Phase      string `json:"phase"`
		LockedCode string `json:"locked_code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if body.Phase != "locked" || body.LockedCode != model.ErrCodeSecurityCheckpoint {
		t.Errorf("レスポンス = %+v, want locked/SECURITY_CHECKPOINT", body)
	}
}

func TestStatusEndpoint_BeforeFirstTickOmitsWeekday(t *testing.T) {
	router, _ := newTestRouter(&mockGate{state: post.State{Phase: post.PhaseIdle}})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if body["weekday"] != "" {
		t.Errorf("初回ティック前のweekday = %v, want 空", body["weekday"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, collector := newTestRouter(&mockGate{})
	collector.RecordPublishSuccess()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "botinst_publish_success_total") {
		t.Error("メトリクスレスポンスにbotinst_publish_success_totalが含まれない")
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router, _ := newTestRouter(&mockGate{})

	req := httptest.NewRequest(http.MethodGet, "/api/publish", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d (投稿操作エンドポイントは存在しないこと)", w.Code, http.StatusNotFound)
	}
}
