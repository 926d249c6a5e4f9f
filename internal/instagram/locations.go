package instagram

import (
	"context"
	"net/http"
	"net/url"

	"github.com/srcjp/bot-inst/internal/model"
)

// SearchLocations はフリーテキストクエリで位置情報レジストリを検索する。
// 結果はAPIが返した順序のまま返す。候補が存在しない場合は空スライスを返す。
func (c *Client) SearchLocations(ctx context.Context, query string) ([]model.Location, error) {
	params := url.Values{}
	params.Set("search_query", query)
	params.Set("rank_token", c.device.GUID)

	var result struct {
		Venues []struct {
			ExternalID string  `json:"external_id"`
			Name       string  `json:"name"`
			Lat        float64 `json:"lat"`
			Lng        float64 `json:"lng"`
		} `json:"venues"`
	}

	path := "/api/v1/location_search/?" + params.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	locations := make([]model.Location, 0, len(result.Venues))
	for _, v := range result.Venues {
		locations = append(locations, model.Location{
			ExternalID: v.ExternalID,
			Name:       v.Name,
			Lat:        v.Lat,
			Lng:        v.Lng,
		})
	}
	return locations, nil
}
