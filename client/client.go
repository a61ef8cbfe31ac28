// Copyright 2026 nopo Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/logics"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/storage/data"
	"go.uber.org/zap"
)

// NopoClient calls the REST API of a nopo server.
type NopoClient struct {
	entryPoint string
	apiKey     string
	httpClient http.Client
}

func NewNopoClient(entryPoint, apiKey string) *NopoClient {
	return &NopoClient{
		entryPoint: entryPoint,
		apiKey:     apiKey,
	}
}

// request sends a request and decodes the JSON response into result. Not found responses are
// returned as NotFound errors and bad requests as NotValid errors.
func (c *NopoClient) request(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Trace(err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.entryPoint+path, reader)
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Trace(err)
	}
	if resp.StatusCode != http.StatusOK {
		message := string(buf)
		var e errorResponse
		if json.Unmarshal(buf, &e) == nil && e.Message != "" {
			message = e.Message
		}
		log.Logger().Debug("request failed",
			zap.String("method", method), zap.String("path", path), zap.Int("status", resp.StatusCode))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return errors.NewNotFound(nil, message)
		case http.StatusBadRequest:
			return errors.NewNotValid(nil, message)
		default:
			return errors.Errorf("%d %s", resp.StatusCode, message)
		}
	}
	return errors.Trace(json.Unmarshal(buf, result))
}

func (c *NopoClient) Blend(ctx context.Context, userId, aztiType string) ([]logics.RatedRestaurant, error) {
	var result blendResponse
	err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/blend/%s/%s", url.PathEscape(userId), url.PathEscape(aztiType)), nil, &result)
	return result.RecomList, err
}

func (c *NopoClient) ContentBased(ctx context.Context, aztiType string) ([]model.Recommendation, error) {
	var result contentBasedResponse
	err := c.request(ctx, http.MethodGet, "/api/cbf/"+url.PathEscape(aztiType), nil, &result)
	return result.RecommendCbfList, err
}

func (c *NopoClient) ItemCollaborative(ctx context.Context, restaurantId int64) ([]logics.RatedRestaurant, error) {
	var result itemCollaborativeResponse
	err := c.request(ctx, http.MethodGet, "/api/cf/"+strconv.FormatInt(restaurantId, 10), nil, &result)
	return result.RecommendCfList, err
}

func (c *NopoClient) MatrixFactorization(ctx context.Context, userId string) ([]data.Restaurant, error) {
	var result matrixFactorizationResponse
	err := c.request(ctx, http.MethodGet, "/api/mf/"+url.PathEscape(userId), nil, &result)
	return result.RecommendMfList, err
}

func (c *NopoClient) DeveloperPicks(ctx context.Context) ([]logics.CuratedRestaurant, error) {
	var result curatedResponse
	err := c.request(ctx, http.MethodGet, "/api/restaurants/developer", nil, &result)
	return result.DevList, err
}

func (c *NopoClient) YoutuberPicks(ctx context.Context) ([]logics.CuratedRestaurant, error) {
	var result curatedResponse
	err := c.request(ctx, http.MethodGet, "/api/restaurants/youtuber", nil, &result)
	return result.YouList, err
}

func (c *NopoClient) ThirtyYears(ctx context.Context) ([]logics.CuratedRestaurant, error) {
	var result curatedResponse
	err := c.request(ctx, http.MethodGet, "/api/restaurants/thirty", nil, &result)
	return result.ThirList, err
}

func (c *NopoClient) MostLiked(ctx context.Context) ([]logics.CuratedRestaurant, error) {
	var result curatedResponse
	err := c.request(ctx, http.MethodGet, "/api/restaurants/liked", nil, &result)
	return result.LikeList, err
}

func (c *NopoClient) Nearby(ctx context.Context, x, y float64) ([]data.Restaurant, error) {
	var result locationResponse
	err := c.request(ctx, http.MethodPost, "/api/restaurants/location", Location{LocationX: x, LocationY: y}, &result)
	return result.LocList, err
}

func (c *NopoClient) RestaurantReviews(ctx context.Context, restaurantId int64) ([]data.ReviewDetail, error) {
	var result []data.ReviewDetail
	err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/restaurant/%d/reviews", restaurantId), nil, &result)
	return result, err
}
