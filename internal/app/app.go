// Package app はアプリケーションの初期化・依存関係のワイヤリング・起動モードの
// 振り分けを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/srcjp/bot-inst/internal/auth"
	"github.com/srcjp/bot-inst/internal/config"
	"github.com/srcjp/bot-inst/internal/content"
	"github.com/srcjp/bot-inst/internal/database"
	"github.com/srcjp/bot-inst/internal/handler"
	"github.com/srcjp/bot-inst/internal/history"
	"github.com/srcjp/bot-inst/internal/instagram"
	"github.com/srcjp/bot-inst/internal/logger"
	"github.com/srcjp/bot-inst/internal/metrics"
	"github.com/srcjp/bot-inst/internal/publisher"
	"github.com/srcjp/bot-inst/internal/security"
	"github.com/srcjp/bot-inst/internal/session"
	"github.com/srcjp/bot-inst/internal/worker/post"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在すれば）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
func Init(w io.Writer) (*config.Config, error) {
	// .envは任意。存在しなくてもエラーにしない
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// 設定読み込み前でもログは使えるようにする
		logger.SetupDefault(w, "info")
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("username", cfg.Username),
		slog.String("timezone", cfg.Timezone),
	)

	switch cmd {
	case CommandPostNow:
		return runPostNow(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runWorker(cfg)
	}
}

// pipeline は投稿サイクルを構成するワイヤリング済みの依存一式。
type pipeline struct {
	runner   *post.CycleRunner
	recorder post.OutcomeRecorder
	metrics  *metrics.Collector
	gatherer prometheus.Gatherer
	closeDB  func()
}

// buildPipeline は投稿サイクルの全依存関係をワイヤリングする。
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. 保護付きHTTPクライアントとリモートアダプタ
	guard := security.NewOutboundGuard()
	if err := guard.ValidateBaseURL(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	client := instagram.NewClient(
		guard.NewSafeClient(cfg.APITimeout),
		instagram.Config{
			BaseURL:     cfg.APIBaseURL,
			MinInterval: cfg.APIMinInterval,
		},
		cfg.Username,
		slog.Default(),
	)

	// 3. セッションストアと認証サービス
	store := session.NewFileStore(cfg.SessionFile)
	authService := auth.NewService(store, client, cfg.Password, collector, slog.Default())

	// 4. コンテンツセレクタ
	sanitizer := security.NewCaptionSanitizer()
	selector := content.NewSelector(cfg.PostsDir, sanitizer, slog.Default(), 4)

	// 5. 投稿サービス
	pubService := publisher.NewService(client, publisher.Config{
		LocationQuery:  cfg.LocationQuery,
		LocationPrefer: cfg.LocationPrefer,
	}, slog.Default())

	// 6. 投稿履歴（DATABASE_URL設定時のみ有効）
	var recorder post.OutcomeRecorder = history.NoopRecorder{}
	closeDB := func() {}
	if cfg.DatabaseURL != "" {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("database connection established (post history enabled)")
		recorder = history.NewPostgresRepo(db, slog.Default())
		closeDB = func() { db.Close() }
	} else {
		slog.Info("post history disabled (DATABASE_URL not set)")
	}

	runner := post.NewCycleRunner(authService, selector, pubService, slog.Default())

	return &pipeline{
		runner:   runner,
		recorder: recorder,
		metrics:  collector,
		gatherer: registry,
		closeDB:  closeDB,
	}, nil
}

// runWorker は常駐スケジューラモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.closeDB()

	hour, minute := cfg.WindowStartClock()
	scheduler := post.NewScheduler(p.runner, p.recorder, p.metrics, slog.Default(), post.SchedulerConfig{
		Window: post.Window{
			StartHour:   hour,
			StartMinute: minute,
			WidthMin:    cfg.WindowWidthMin,
		},
		Location:        cfg.Location(),
		MaxAuthFailures: cfg.MaxAuthFailures,
	})

	// 運用HTTPサーバー（ヘルスチェック・状態参照・メトリクス）
	router := handler.NewRouter(&handler.RouterDeps{
		Gate:     scheduler,
		Gatherer: p.gatherer,
	})
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("ops server shutdown error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		slog.Info("ops server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server listen error", slog.String("error", err.Error()))
		}
	}()

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.TickInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runPostNow はゲートを経由せず投稿サイクルを即時に1回実行する。
// デイリーゲートの冪等性保証の外で動くため、動作確認用途に限る。
func runPostNow(cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.closeDB()

	now := time.Now().In(cfg.Location())
	slog.Info("executing a single publish cycle (gate bypassed)",
		slog.String("weekday", now.Weekday().String()),
	)

	result, err := p.runner.RunCycle(context.Background(), now.Weekday())
	p.recorder.Record(context.Background(), now, result, err)
	if err != nil {
		return fmt.Errorf("publish cycle failed: %w", err)
	}

	slog.Info("publish cycle completed",
		slog.String("media_id", result.MediaID),
		slog.Int("media_count", result.MediaCount),
	)
	return nil
}

// runMigrate は投稿履歴データベースのマイグレーションを実行する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
