package model

import "time"

// weekdayDirs は曜日から投稿フォルダ名へのマッピング。
// time.Weekdayの並び（0=日曜）に対応する。
var weekdayDirs = [7]string{
	"domingo", "segunda", "terca", "quarta", "quinta", "sexta", "sabado",
}

// WeekdayDir は曜日に対応する投稿フォルダ名を返す。
func WeekdayDir(d time.Weekday) string {
	return weekdayDirs[int(d)]
}

// Image は投稿対象の1枚の画像を表す。
type Image struct {
	Filename string // 元ファイル名（ログ・履歴用）
	Data     []byte // 画像バイト列
}

// MediaSet はある曜日に対して解決された投稿メディア一式。
// Imagesはディレクトリ一覧順を保持し、サイクルをまたいでキャッシュされない。
type MediaSet struct {
	Weekday time.Weekday
	Dir     string  // 解決されたフォルダ名
	Images  []Image // 一覧順（投稿時もこの順序を維持する）
	Caption string  // サニタイズ済みキャプション
}

// Location は位置情報検索で解決された投稿先の位置タグ。
type Location struct {
	ExternalID string  // リモートサービス上の位置ID
	Name       string  // 表示名
	Lat        float64 // 緯度
	Lng        float64 // 経度
}

// PostResult は投稿成功時の結果を表す。
type PostResult struct {
	MediaID    string    // リモートサービスが発行したメディアID
	MediaCount int       // 投稿した画像枚数
	Album      bool      // アルバム投稿だったか
	PostedAt   time.Time // 投稿完了時刻
}
