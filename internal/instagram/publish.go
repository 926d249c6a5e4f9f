package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/srcjp/bot-inst/internal/model"
)

// uploadPhoto は1枚の画像をアップロードし、upload_idを返す。
func (c *Client) uploadPhoto(ctx context.Context, img model.Image) (string, error) {
	uploadID := strconv.FormatInt(time.Now().UnixMilli(), 10)
	entityName := fmt.Sprintf("%s_0_%s", uploadID, uuid.New().String())

	ruploadParams, err := json.Marshal(map[string]string{
		"upload_id":         uploadID,
		"media_type":        "1",
		"xsharing_user_ids": "[]",
	})
	if err != nil {
		return "", fmt.Errorf("アップロードパラメータのエンコードに失敗: %w", err)
	}

	headers := map[string]string{
		"X-Instagram-Rupload-Params": string(ruploadParams),
		"X-Entity-Name":              entityName,
		"X-Entity-Type":              "image/jpeg",
		"X-Entity-Length":            strconv.Itoa(len(img.Data)),
		"Offset":                     "0",
	}

	body, httpStatus, err := c.uploadBody(ctx, "/rupload_igphoto/"+entityName, img.Data, headers)
	if err != nil {
		return "", err
	}

	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("instagram: unexpected upload response (status %d): %w", httpStatus, err)
	}
	if env.Status != "ok" {
		return "", classifyFailure(&env, httpStatus)
	}

	return uploadID, nil
}

// locationPayload はconfigureリクエストに埋め込む位置情報フィールドを構築する。
func locationPayload(loc *model.Location) (string, error) {
	if loc == nil {
		return "", nil
	}
	encoded, err := json.Marshal(map[string]any{
		"external_id":        loc.ExternalID,
		"name":               loc.Name,
		"lat":                loc.Lat,
		"lng":                loc.Lng,
		"external_id_source": "facebook_places",
	})
	if err != nil {
		return "", fmt.Errorf("位置情報のエンコードに失敗: %w", err)
	}
	return string(encoded), nil
}

// configureResult はconfigure系エンドポイントの成功レスポンス。
type configureResult struct {
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
}

// PublishPhoto は1枚の画像を単独投稿する。
// アップロードとconfigureの2段階で構成され、途中失敗は全体の失敗として返す。
func (c *Client) PublishPhoto(ctx context.Context, img model.Image, caption string, loc *model.Location) (*model.PostResult, error) {
	uploadID, err := c.uploadPhoto(ctx, img)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"upload_id":   uploadID,
		"caption":     caption,
		"device_id":   c.device.DeviceID,
		"_uid":        c.userID,
		"_uuid":       c.device.GUID,
		"source_type": "4",
	}
	if locJSON, err := locationPayload(loc); err != nil {
		return nil, err
	} else if locJSON != "" {
		payload["location"] = locJSON
	}

	var result configureResult
	if err := c.postForm(ctx, "/api/v1/media/configure/", payload, &result); err != nil {
		return nil, err
	}

	c.logger.Info("単独写真の投稿が完了しました",
		slog.String("media_id", result.Media.ID),
		slog.String("filename", img.Filename),
	)

	return &model.PostResult{
		MediaID:    result.Media.ID,
		MediaCount: 1,
		Album:      false,
		PostedAt:   time.Now(),
	}, nil
}

// PublishAlbum は複数画像を順序付きアルバム（カルーセル）として投稿する。
// imagesの順序がそのまま投稿内の表示順序になる。並べ替えや重複排除は行わない。
// 2枚未満の場合はエラーを返す。
func (c *Client) PublishAlbum(ctx context.Context, images []model.Image, caption string, loc *model.Location) (*model.PostResult, error) {
	if len(images) < 2 {
		return nil, fmt.Errorf("アルバム投稿には2枚以上の画像が必要です: %d枚", len(images))
	}

	// 各画像を入力順にアップロードし、upload_idの順序を保持する
	uploadIDs := make([]string, 0, len(images))
	for _, img := range images {
		uploadID, err := c.uploadPhoto(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("アルバム画像のアップロードに失敗 (%s): %w", img.Filename, err)
		}
		uploadIDs = append(uploadIDs, uploadID)
	}

	children := make([]map[string]any, 0, len(uploadIDs))
	for _, id := range uploadIDs {
		children = append(children, map[string]any{
			"upload_id":   id,
			"source_type": "4",
		})
	}

	payload := map[string]any{
		"caption":           caption,
		"client_sidecar_id": strconv.FormatInt(time.Now().UnixMilli(), 10),
		"children_metadata": children,
		"device_id":         c.device.DeviceID,
		"_uid":              c.userID,
		"_uuid":             c.device.GUID,
	}
	if locJSON, err := locationPayload(loc); err != nil {
		return nil, err
	} else if locJSON != "" {
		payload["location"] = locJSON
	}

	var result configureResult
	if err := c.postForm(ctx, "/api/v1/media/configure_sidecar/", payload, &result); err != nil {
		return nil, err
	}

	c.logger.Info("アルバム投稿が完了しました",
		slog.String("media_id", result.Media.ID),
		slog.Int("media_count", len(images)),
	)

	return &model.PostResult{
		MediaID:    result.Media.ID,
		MediaCount: len(images),
		Album:      true,
		PostedAt:   time.Now(),
	}, nil
}
