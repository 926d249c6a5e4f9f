package config

import (
	"strings"
	"testing"
	"time"
)

// optionalKeys はデフォルト値を持つ環境変数の一覧。
// テスト環境からの漏れ込みを防ぐため、各テストの冒頭で空にする。
var optionalKeys = []string{
	"POSTS_DIR", "SESSION_FILE", "TIMEZONE",
	"POST_WINDOW_START", "POST_WINDOW_WIDTH_MIN", "TICK_INTERVAL",
	"MAX_AUTH_FAILURES", "LOCATION_QUERY", "LOCATION_PREFER",
	"API_BASE_URL", "API_TIMEOUT", "API_MIN_INTERVAL",
	"DATABASE_URL", "SERVER_PORT", "LOG_LEVEL",
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("IG_USERNAME", "bot_user")
	t.Setenv("IG_PASSWORD", "hunter2")
	for _, key := range optionalKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IG_USERNAME", "")
	t.Setenv("IG_PASSWORD", "")

	_, err := Load()
	if err == nil {
		t.Fatal("必須環境変数なしでLoad() が成功した")
	}
	if !strings.Contains(err.Error(), "IG_USERNAME") || !strings.Contains(err.Error(), "IG_PASSWORD") {
		t.Errorf("エラーメッセージに欠落した変数名が含まれない: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() がエラーを返した: %v", err)
	}

	if cfg.PostsDir != "posts" {
		t.Errorf("PostsDir = %q, want posts", cfg.PostsDir)
	}
	if cfg.SessionFile != "session.json" {
		t.Errorf("SessionFile = %q, want session.json", cfg.SessionFile)
	}
	if cfg.Timezone != "America/Sao_Paulo" {
		t.Errorf("Timezone = %q, want America/Sao_Paulo", cfg.Timezone)
	}
	if cfg.WindowStart != "06:30" {
		t.Errorf("WindowStart = %q, want 06:30", cfg.WindowStart)
	}
	if cfg.WindowWidthMin != 10 {
		t.Errorf("WindowWidthMin = %d, want 10", cfg.WindowWidthMin)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("TickInterval = %v, want 1m", cfg.TickInterval)
	}
	if cfg.MaxAuthFailures != 3 {
		t.Errorf("MaxAuthFailures = %d, want 3", cfg.MaxAuthFailures)
	}
	if cfg.APIBaseURL != "https://i.instagram.com" {
		t.Errorf("APIBaseURL = %q, want https://i.instagram.com", cfg.APIBaseURL)
	}
	if cfg.APIMinInterval != 2*time.Second {
		t.Errorf("APIMinInterval = %v, want 2s", cfg.APIMinInterval)
	}
	if len(cfg.LocationPrefer) != 2 || cfg.LocationPrefer[0] != "londrina" || cfg.LocationPrefer[1] != "pr" {
		t.Errorf("LocationPrefer = %v, want [londrina pr]", cfg.LocationPrefer)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want 空 (デフォルトで無効)", cfg.DatabaseURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POSTS_DIR", "/data/posts")
	t.Setenv("POST_WINDOW_START", "21:00")
	t.Setenv("POST_WINDOW_WIDTH_MIN", "30")
	t.Setenv("TICK_INTERVAL", "30s")
	t.Setenv("LOCATION_PREFER", "curitiba, pr ,brasil")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() がエラーを返した: %v", err)
	}

	if cfg.PostsDir != "/data/posts" {
		t.Errorf("PostsDir = %q, want /data/posts", cfg.PostsDir)
	}
	if cfg.WindowStart != "21:00" || cfg.WindowWidthMin != 30 {
		t.Errorf("ウィンドウ設定 = %q/%d, want 21:00/30", cfg.WindowStart, cfg.WindowWidthMin)
	}
	if cfg.TickInterval != 30*time.Second {
		t.Errorf("TickInterval = %v, want 30s", cfg.TickInterval)
	}
	want := []string{"curitiba", "pr", "brasil"}
	if len(cfg.LocationPrefer) != len(want) {
		t.Fatalf("LocationPrefer = %v, want %v", cfg.LocationPrefer, want)
	}
	for i, w := range want {
		if cfg.LocationPrefer[i] != w {
			t.Errorf("LocationPrefer[%d] = %q, want %q (空白が除去されること)", i, cfg.LocationPrefer[i], w)
		}
	}
}

func TestLoad_InvalidWindowStart(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"コロンなし", "0630"},
		{"時が範囲外", "24:00"},
		{"分が範囲外", "06:60"},
		{"数値でない", "ab:cd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("POST_WINDOW_START", tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("POST_WINDOW_START=%q でLoad() が成功した", tt.value)
			}
		})
	}
}

func TestLoad_InvalidWindowWidth(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POST_WINDOW_WIDTH_MIN", "-5")

	if _, err := Load(); err == nil {
		t.Error("負のウィンドウ幅でLoad() が成功した")
	}
}

func TestLoad_WindowCrossingMidnight(t *testing.T) {
	tests := []struct {
		name  string
		start string
		width string
	}{
		{"デフォルト幅で日付をまたぐ", "23:55", ""},
		{"幅指定で日付をまたぐ", "23:00", "120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv("POST_WINDOW_START", tt.start)
			if tt.width != "" {
				t.Setenv("POST_WINDOW_WIDTH_MIN", tt.width)
			}

			if _, err := Load(); err == nil {
				t.Errorf("日付をまたぐウィンドウ (%s + %s分) でLoad() が成功した", tt.start, tt.width)
			}
		})
	}
}

func TestLoad_WindowEndingAtMidnightIsValid(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("POST_WINDOW_START", "23:50")
	t.Setenv("POST_WINDOW_WIDTH_MIN", "10")

	if _, err := Load(); err != nil {
		t.Errorf("24:00ちょうどで終わるウィンドウでLoad() が失敗した: %v", err)
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Error("不正なタイムゾーンでLoad() が成功した")
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TICK_INTERVAL", "quickly")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() がエラーを返した: %v", err)
	}
	if cfg.TickInterval != time.Minute {
		t.Errorf("TickInterval = %v, want デフォルト1m", cfg.TickInterval)
	}
}

func TestWindowStartClock(t *testing.T) {
	cfg := &Config{WindowStart: "06:30"}

	hour, minute := cfg.WindowStartClock()
	if hour != 6 || minute != 30 {
		t.Errorf("WindowStartClock() = %d:%d, want 6:30", hour, minute)
	}
}

func TestLocation(t *testing.T) {
	cfg := &Config{Timezone: "America/Sao_Paulo"}

	loc := cfg.Location()
	if loc.String() != "America/Sao_Paulo" {
		t.Errorf("Location() = %v, want America/Sao_Paulo", loc)
	}
}
