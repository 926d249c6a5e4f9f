package post

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/srcjp/bot-inst/internal/model"
)

// Runner は投稿サイクル実行のインターフェース。
// テスト時にモックに差し替え可能。
type Runner interface {
	RunCycle(ctx context.Context, weekday time.Weekday) (*model.PostResult, error)
}

// OutcomeRecorder は投稿試行の結果記録インターフェース。
// 投稿履歴が無効な場合はno-op実装を渡す。
type OutcomeRecorder interface {
	Record(ctx context.Context, day time.Time, result *model.PostResult, outcome error)
}

// MetricsCollector はスケジューラが記録するメトリクスのインターフェース。
type MetricsCollector interface {
	RecordPublishSuccess()
	RecordPublishFailure(code string)
	RecordCycleLatency(duration time.Duration)
	SetGatePhase(phase string)
}

// SchedulerConfig はスケジューラの設定。
type SchedulerConfig struct {
	// Window は投稿ウィンドウ。
	Window Window
	// Location は曜日と時刻の判定に使用するタイムゾーン。
	Location *time.Location
	// MaxAuthFailures は当日をロックするまでに許容する認証失敗回数。
	MaxAuthFailures int
}

// Scheduler はデイリーゲートを所有し、ティックごとに投稿サイクルの
// 起動可否を評価する。ゲート状態の変更とサイクル実行はスケジューラの
// 単一ゴルーチンに閉じ込められており、サイクルはティックハンドラ上で
// 同期実行されるため、2つのサイクルが並行することはない
// （サイクル実行中のティックはtime.Tickerのセマンティクスにより潰される）。
type Scheduler struct {
	runner   Runner
	recorder OutcomeRecorder
	metrics  MetricsCollector
	logger   *slog.Logger
	config   SchedulerConfig

	// stateはティックハンドラのみが書き込む。snapshotMuは
	// 運用HTTPサーフェスからの読み取りのためだけに存在する。
	snapshotMu sync.RWMutex
	state      State
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// MaxAuthFailuresが0以下の場合はデフォルト値3を使用する。
func NewScheduler(runner Runner, recorder OutcomeRecorder, metrics MetricsCollector, logger *slog.Logger, config SchedulerConfig) *Scheduler {
	if config.MaxAuthFailures <= 0 {
		config.MaxAuthFailures = 3
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &Scheduler{
		runner:   runner,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		config:   config,
		state:    NewState(),
	}
}

// Start はティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("投稿スケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.String("timezone", s.config.Location.String()),
		slog.String("window_start", s.windowStartString()),
		slog.Int("window_width_min", s.config.Window.WidthMin),
	)

	// 起動直後に1回評価する（ウィンドウ内に再起動した場合の取りこぼし防止）
	s.Tick(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("投稿スケジューラを停止しました")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick は1回のティック評価を実行する。
// ゲートが発火を許可した場合のみ投稿サイクルを同期実行し、結果を状態に反映する。
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	localNow := now.In(s.config.Location)

	next, fire := Decide(s.state, localNow, s.config.Window)

	if next.Day != s.state.Day || !s.state.Checked {
		s.logger.Info("日次状態をリセットしました",
			slog.String("weekday", next.Day.String()),
		)
	}

	s.setState(next)

	if !fire {
		s.warnIfLocked(localNow)
		return
	}

	start := time.Now()
	result, err := s.runner.RunCycle(ctx, localNow.Weekday())
	s.metrics.RecordCycleLatency(time.Since(start))

	s.setState(Apply(s.state, err, s.config.MaxAuthFailures))
	s.recorder.Record(ctx, localNow, result, err)

	if err != nil {
		s.metrics.RecordPublishFailure(model.CodeOf(err))
		s.logCycleFailure(err)
		return
	}

	s.metrics.RecordPublishSuccess()
	s.logger.Info("本日の投稿が完了しました",
		slog.String("media_id", result.MediaID),
		slog.Int("media_count", result.MediaCount),
	)
}

// State はゲート状態のスナップショットを返す。運用HTTPサーフェス用。
func (s *Scheduler) State() State {
	s.snapshotMu.RLock()
	defer s.snapshotMu.RUnlock()
	return s.state
}

// setState はゲート状態を更新し、メトリクスのゲージを追従させる。
func (s *Scheduler) setState(next State) {
	s.snapshotMu.Lock()
	s.state = next
	s.snapshotMu.Unlock()
	s.metrics.SetGatePhase(string(next.Phase))
}

// logCycleFailure はサイクル失敗の内容と対処方法をログに残す。
func (s *Scheduler) logCycleFailure(err error) {
	code := model.CodeOf(err)

	attrs := []any{
		slog.String("code", code),
		slog.String("error", err.Error()),
	}

	switch code {
	case model.ErrCodeSecurityCheckpoint:
		s.logger.Error("セキュリティチェックポイントを検出しました。本日の自動投稿を停止します。手動での本人確認が必要です", attrs...)
	case model.ErrCodePublishFailure:
		s.logger.Error("投稿が拒否されたため本日の再試行を停止します", attrs...)
	case model.ErrCodeAuthFailure:
		s.logger.Warn("認証に失敗しました。ウィンドウ内の次のティックで再試行します", attrs...)
	case model.ErrCodeNoContent:
		s.logger.Warn("投稿コンテンツが見つかりません。ウィンドウ内の次のティックで再試行します", attrs...)
	default:
		s.logger.Error("投稿サイクルが失敗しました", attrs...)
	}
}

// warnIfLocked はチェックポイントでロックされた日のウィンドウ内ティックごとに、
// 手動確認を促すログを繰り返し出力する。
func (s *Scheduler) warnIfLocked(localNow time.Time) {
	if s.state.Phase != PhaseLocked || !s.config.Window.Contains(localNow) {
		return
	}
	if s.state.LockedCode == model.ErrCodeSecurityCheckpoint {
		s.logger.Error("本日はセキュリティチェックポイントによりロックされています。ブラウザまたは公式アプリで本人確認を完了してください")
	}
}

// windowStartString はログ表示用のウィンドウ開始時刻文字列を返す。
func (s *Scheduler) windowStartString() string {
	return time.Date(0, 1, 1, s.config.Window.StartHour, s.config.Window.StartMinute, 0, 0, time.UTC).Format("15:04")
}
