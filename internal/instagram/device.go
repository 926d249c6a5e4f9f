// Package instagram はInstagramプライベートAPIへのアダプタを提供する。
// ログイン・セッション復元・位置検索・写真/アルバム投稿のみを扱い、
// それ以外のAPIサーフェスは実装しない。
package instagram

import (
	"fmt"

	"github.com/google/uuid"
)

// deviceNamespace はデバイスID導出に使うUUID名前空間。
// 同一ユーザー名からは常に同一のデバイスIDが導出される。
var deviceNamespace = uuid.MustParse("5d7a2e1c-9f34-4b68-a0d3-8c6e51b2f7a9")

// Device はアカウントに紐づく擬似デバイス識別子の組。
// ログインごとにデバイスが変わるとリスク判定が上がるため、
// ユーザー名から決定的に導出して毎回同じ端末として振る舞う。
type Device struct {
	DeviceID  string // "android-" プレフィクス付きの端末ID
	GUID      string // セッションGUID
	PhoneID   string // 端末固有GUID
	UserAgent string // APIリクエストに使用するUser-Agent
}

// NewDevice はユーザー名から決定的にDeviceを導出する。
func NewDevice(username string) Device {
	base := uuid.NewSHA1(deviceNamespace, []byte(username))
	guid := uuid.NewSHA1(deviceNamespace, []byte(username+":guid"))
	phoneID := uuid.NewSHA1(deviceNamespace, []byte(username+":phone"))

	return Device{
		DeviceID:  fmt.Sprintf("android-%x", base[:8]),
		GUID:      guid.String(),
		PhoneID:   phoneID.String(),
		UserAgent: "Instagram 275.0.0.27.98 Android (33/13; 420dpi; 1080x2219; Google/google; Pixel 7; panther; armv8l; en_US; 458229237)",
	}
}
