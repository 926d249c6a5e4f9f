// Package content は曜日別フォルダから投稿メディアを解決する。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/srcjp/bot-inst/internal/model"
)

// captionFilename はキャプションを格納する固定ファイル名。
const captionFilename = "texto.txt"

// imageExtensions は投稿対象として認識する画像拡張子（小文字）。
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// CaptionSanitizer はキャプションのサニタイズ機能のインターフェース。
type CaptionSanitizer interface {
	Sanitize(raw string) string
}

// Selector は曜日に対応するメディア一式（画像列＋キャプション）を解決する。
// 読み込み結果はサイクルごとに使い捨てで、キャッシュは行わない。
type Selector struct {
	postsDir       string
	sanitizer      CaptionSanitizer
	logger         *slog.Logger
	maxConcurrency int
}

// NewSelector はSelectorの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewSelector(postsDir string, sanitizer CaptionSanitizer, logger *slog.Logger, maxConcurrency int) *Selector {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Selector{
		postsDir:       postsDir,
		sanitizer:      sanitizer,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Select は指定された曜日のメディア一式を解決する。
// フォルダ欠落・画像ゼロ・キャプション欠落はいずれもNO_CONTENTとして返す
// （キャプションなしの不完全な投稿は許可しない）。
// 画像はソート済み一覧順を保持したまま並列で読み込まれる。
func (s *Selector) Select(ctx context.Context, weekday time.Weekday) (*model.MediaSet, error) {
	dirName := model.WeekdayDir(weekday)
	dirPath := filepath.Join(s.postsDir, dirName)

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, model.NewNoContentError(dirName, fmt.Errorf("フォルダの読み込みに失敗: %w", err))
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if imageExtensions[ext] {
			filenames = append(filenames, entry.Name())
		}
	}
	sort.Strings(filenames)

	if len(filenames) == 0 {
		return nil, model.NewNoContentError(dirName, fmt.Errorf("画像ファイルが存在しません"))
	}

	caption, err := s.readCaption(dirPath)
	if err != nil {
		return nil, model.NewNoContentError(dirName, err)
	}

	images, err := s.readImages(ctx, dirPath, filenames)
	if err != nil {
		// キャンセルはコンテンツ欠落ではないため、そのまま返す
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, model.NewNoContentError(dirName, err)
	}

	s.logger.Info("当日のメディア一式を解決しました",
		slog.String("dir", dirName),
		slog.Int("image_count", len(images)),
		slog.Int("caption_length", len(caption)),
	)

	return &model.MediaSet{
		Weekday: weekday,
		Dir:     dirName,
		Images:  images,
		Caption: caption,
	}, nil
}

// readCaption は固定ファイル名のキャプションを読み込み、サニタイズして返す。
// ファイル欠落またはサニタイズ後に空になる場合はエラーを返す。
func (s *Selector) readCaption(dirPath string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(dirPath, captionFilename))
	if err != nil {
		return "", fmt.Errorf("キャプションファイルの読み込みに失敗 (%s): %w", captionFilename, err)
	}

	caption := s.sanitizer.Sanitize(string(raw))
	if caption == "" {
		return "", fmt.Errorf("キャプションが空です (%s)", captionFilename)
	}
	return caption, nil
}

// readImages は画像ファイルをsemaphoreパターンの並列読み込みで取得する。
// 完了順序は不定だが、結果はfilenamesのインデックス位置に格納されるため
// 一覧順が保持される。1件でも失敗した場合は全体を失敗として返す。
func (s *Selector) readImages(ctx context.Context, dirPath string, filenames []string) ([]model.Image, error) {
	images := make([]model.Image, len(filenames))
	errs := make([]error, len(filenames))

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for i, name := range filenames {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, filename string) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := os.ReadFile(filepath.Join(dirPath, filename))
			if err != nil {
				errs[idx] = fmt.Errorf("画像の読み込みに失敗 (%s): %w", filename, err)
				return
			}
			images[idx] = model.Image{Filename: filename, Data: data}
		}(i, name)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return images, nil
}
