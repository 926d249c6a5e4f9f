// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Instagram認証情報
	Username string
	Password string

	// コンテンツ
	PostsDir    string
	SessionFile string

	// スケジュール
	Timezone        string
	WindowStart     string // "HH:MM" 形式
	WindowWidthMin  int
	TickInterval    time.Duration
	MaxAuthFailures int

	// 位置情報
	LocationQuery  string
	LocationPrefer []string

	// リモートAPI
	APIBaseURL     string
	APITimeout     time.Duration
	APIMinInterval time.Duration

	// 投稿履歴（空の場合は無効）
	DatabaseURL string

	// 運用HTTPサーバー
	ServerPort string

	// ログ
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.Username = os.Getenv("IG_USERNAME")
	if cfg.Username == "" {
		missing = append(missing, "IG_USERNAME")
	}

	cfg.Password = os.Getenv("IG_PASSWORD")
	if cfg.Password == "" {
		missing = append(missing, "IG_PASSWORD")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PostsDir = getEnvString("POSTS_DIR", "posts")
	cfg.SessionFile = getEnvString("SESSION_FILE", "session.json")
	cfg.Timezone = getEnvString("TIMEZONE", "America/Sao_Paulo")
	cfg.WindowStart = getEnvString("POST_WINDOW_START", "06:30")
	cfg.WindowWidthMin = getEnvInt("POST_WINDOW_WIDTH_MIN", 10)
	cfg.TickInterval = getEnvDuration("TICK_INTERVAL", time.Minute)
	cfg.MaxAuthFailures = getEnvInt("MAX_AUTH_FAILURES", 3)
	cfg.LocationQuery = getEnvString("LOCATION_QUERY", "Londrina")
	cfg.LocationPrefer = getEnvList("LOCATION_PREFER", []string{"londrina", "pr"})
	cfg.APIBaseURL = getEnvString("API_BASE_URL", "https://i.instagram.com")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 30*time.Second)
	cfg.APIMinInterval = getEnvDuration("API_MIN_INTERVAL", 2*time.Second)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	if err := validateWindowStart(cfg.WindowStart); err != nil {
		return nil, err
	}
	if cfg.WindowWidthMin <= 0 {
		return nil, fmt.Errorf("POST_WINDOW_WIDTH_MIN must be positive: %d", cfg.WindowWidthMin)
	}
	// 投稿ウィンドウは同一暦日内に収まること（日付をまたぐと曜日判定が曖昧になる）
	startHour, startMinute := cfg.WindowStartClock()
	if startHour*60+startMinute+cfg.WindowWidthMin > 24*60 {
		return nil, fmt.Errorf("post window must not cross midnight: start %s width %dmin", cfg.WindowStart, cfg.WindowWidthMin)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// Location は設定されたタイムゾーンの*time.Locationを返す。
// Loadでバリデーション済みのため失敗しない前提だが、万一の場合はUTCを返す。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WindowStartClock はウィンドウ開始時刻を時・分に分解して返す。
func (c *Config) WindowStartClock() (hour, minute int) {
	parts := strings.SplitN(c.WindowStart, ":", 2)
	hour, _ = strconv.Atoi(parts[0])
	minute, _ = strconv.Atoi(parts[1])
	return hour, minute
}

// validateWindowStart は"HH:MM"形式の時刻文字列を検証する。
func validateWindowStart(s string) error {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("POST_WINDOW_START must be in HH:MM format: %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return fmt.Errorf("POST_WINDOW_START has invalid hour: %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return fmt.Errorf("POST_WINDOW_START has invalid minute: %q", s)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
