// Package post は日次投稿のデイリーゲートとスケジューラを提供する。
// ゲートは「設定タイムゾーンの1暦日に最大1回の投稿試行」を保証する
// 有限状態機械であり、純粋関数Decide/Applyとして実装することで
// タイマーやネットワークなしに決定的にテストできる。
package post

import (
	"time"

	"github.com/srcjp/bot-inst/internal/model"
)

// Phase はデイリーゲートの状態を表す。
type Phase string

const (
	// PhaseIdle は当日まだ投稿が完了しておらず、ウィンドウ内なら試行可能な状態。
	PhaseIdle Phase = "idle"
	// PhasePosted は当日の投稿が成功済みの状態。日付が変わるまで何もしない。
	PhasePosted Phase = "posted"
	// PhaseLocked は当日の試行が恒久的に失敗した状態（チェックポイント等）。
	// 日付が変わるまで何もしない。
	PhaseLocked Phase = "locked"
)

// State はデイリーゲートの状態値。
// スケジューラのティックハンドラのみが変更し、プロセス再起動で失われる
// （再起動すると当日の完了を忘れるのは仕様上許容された制限）。
type State struct {
	Checked      bool         // 一度でも曜日を観測したか
	Day          time.Weekday // 最後に観測した曜日（設定タイムゾーン）
	Phase        Phase
	AuthFailures int    // 当日の認証失敗回数
	LockedCode   string // ロック時の原因コード
}

// NewState はプロセス起動時の初期状態（曜日未観測・未投稿）を返す。
func NewState() State {
	return State{Phase: PhaseIdle}
}

// Window は投稿ウィンドウ（開始時刻と幅）を表す。
type Window struct {
	StartHour   int
	StartMinute int
	WidthMin    int
}

// Contains はnowの時刻部分がウィンドウ内（開始以上・終了未満）かを判定する。
// ウィンドウは同一暦日内に収まる前提（config.Loadで検証済み）。
func (w Window) Contains(now time.Time) bool {
	minutes := now.Hour()*60 + now.Minute()
	start := w.StartHour*60 + w.StartMinute
	return minutes >= start && minutes < start+w.WidthMin
}

// Decide はティックごとのゲート遷移を評価する純粋関数。
// 新しい状態と、投稿サイクルを起動すべきか（fire）を返す。
//
//  1. 観測曜日が変わった場合はIdle(d)にリセットする。これが日次状態を
//     クリアする唯一の経路であり、複数日アイドル後でも必ず発火する
//     （スキップされた日の追い付き実行は行わない）。
//  2. Idle(d)かつウィンドウ内なら発火する。
//  3. PostedまたはLockedの間はその日の残りは何もしない。
func Decide(state State, now time.Time, w Window) (State, bool) {
	d := now.Weekday()

	if !state.Checked || state.Day != d {
		state = State{
			Checked: true,
			Day:     d,
			Phase:   PhaseIdle,
		}
	}

	if state.Phase != PhaseIdle {
		return state, false
	}

	return state, w.Contains(now)
}

// Apply は投稿サイクルの結果をゲート状態に反映する純粋関数。
//
//   - 成功 → Posted
//   - SECURITY_CHECKPOINT / PUBLISH_FAILURE → Locked（当日中の再試行なし）
//   - AUTH_FAILURE → カウントし、maxAuthFailures回に達したらLocked
//   - NO_CONTENT その他の一時的失敗 → Idleのまま（次ティックで再試行可能）
func Apply(state State, outcome error, maxAuthFailures int) State {
	if outcome == nil {
		state.Phase = PhasePosted
		return state
	}

	switch code := model.CodeOf(outcome); code {
	case model.ErrCodeSecurityCheckpoint, model.ErrCodePublishFailure:
		state.Phase = PhaseLocked
		state.LockedCode = code
	case model.ErrCodeAuthFailure:
		state.AuthFailures++
		if state.AuthFailures >= maxAuthFailures {
			state.Phase = PhaseLocked
			state.LockedCode = code
		}
	case model.ErrCodeNoContent:
		// Idleのまま。ウィンドウ内の後続ティックが再試行する。
	}

	return state
}
