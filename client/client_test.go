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
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/logics"
	"github.com/nopo-io/nopo/server"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const apiKey = "client_api_key"

type ClientTestSuite struct {
	suite.Suite
	server.RestServer
	httpServer *httptest.Server
	client     *NopoClient
}

func (suite *ClientTestSuite) SetupSuite() {
	var err error
	ctx := context.Background()
	suite.DataClient, err = data.Open(fmt.Sprintf("sqlite://%s/data.db", suite.T().TempDir()), "")
	suite.NoError(err)
	suite.NoError(suite.DataClient.Init())
	restaurants := make([]data.Restaurant, 20)
	for i := range restaurants {
		id := int64(i + 1)
		restaurants[i] = data.Restaurant{
			Id:        id,
			Name:      fmt.Sprintf("restaurant %d", id),
			Grade:     lo.Ternary(id%4 == 0, "THIRTY", "NORMAL"),
			LocationX: 33 + float64(id)*0.01,
			LocationY: 126,
			Tags: data.Tags{
				Terrace:       lo.ToPtr(id % 2),
				CostEffective: lo.ToPtr(id / 2 % 2),
				RealLocal:     lo.ToPtr(id / 4 % 2),
				Drinking:      lo.ToPtr(id / 8 % 2),
			},
		}
	}
	suite.NoError(suite.DataClient.BatchInsertRestaurants(ctx, restaurants))
	suite.NoError(suite.DataClient.BatchInsertUsers(ctx, []data.User{{Id: "alice"}, {Id: "bob"}}))
	var reviews []data.Review
	for i, userId := range []string{"alice", "bob"} {
		for j := int64(1); j <= 8; j++ {
			reviews = append(reviews, data.Review{
				Id:           int64(len(reviews) + 1),
				UserId:       userId,
				RestaurantId: j,
				Rating:       float64((int64(i)*3+j)%5 + 1),
				Timestamp:    time.Date(2024, 2, int(j), 0, 0, 0, 0, time.UTC),
			})
		}
	}
	suite.NoError(suite.DataClient.BatchInsertReviews(ctx, reviews))
	suite.NoError(suite.DataClient.BatchInsertLiked(ctx, []data.Liked{{UserId: "alice", RestaurantId: 3}}))
	suite.Config = config.GetDefaultConfig()
	suite.Config.Server.APIKey = apiKey
	suite.Config.Recommend.DeveloperPicks = []int64{2, 1}
	suite.Config.Recommend.YoutuberPicks = []int64{6}
	suite.WebService = new(restful.WebService)
	suite.CreateWebService()
	container := restful.NewContainer()
	container.Add(suite.WebService)
	suite.httpServer = httptest.NewServer(container)
	suite.client = NewNopoClient(suite.httpServer.URL, apiKey)
}

func (suite *ClientTestSuite) TearDownSuite() {
	suite.httpServer.Close()
	suite.NoError(suite.DataClient.Close())
}

func (suite *ClientTestSuite) TestBlend() {
	restaurants, err := suite.client.Blend(context.Background(), "alice", "mcis")
	suite.NoError(err)
	suite.Len(restaurants, 10)
}

func (suite *ClientTestSuite) TestContentBased() {
	ctx := context.Background()
	recommendations, err := suite.client.ContentBased(ctx, "mcis")
	suite.NoError(err)
	suite.Len(recommendations, suite.Config.Recommend.TopN)
	suite.InDelta(1, recommendations[0].Score, 1e-9)
	// invalid azti types are relaxed
	recommendations, err = suite.client.ContentBased(ctx, "zzzz")
	suite.NoError(err)
	suite.NotEmpty(recommendations)
}

func (suite *ClientTestSuite) TestItemCollaborative() {
	ctx := context.Background()
	restaurants, err := suite.client.ItemCollaborative(ctx, 1)
	suite.NoError(err)
	suite.NotEmpty(restaurants)
	suite.NotContains(lo.Map(restaurants, func(r logics.RatedRestaurant, _ int) int64 { return r.Id }), int64(1))
	_, err = suite.client.ItemCollaborative(ctx, 1000)
	suite.Error(err)
}

func (suite *ClientTestSuite) TestMatrixFactorization() {
	ctx := context.Background()
	restaurants, err := suite.client.MatrixFactorization(ctx, "alice")
	suite.NoError(err)
	// only reviewed restaurants are predicted
	suite.Len(restaurants, 8)
	_, err = suite.client.MatrixFactorization(ctx, "nobody")
	suite.True(errors.IsNotFound(err))
}

func (suite *ClientTestSuite) TestCurated() {
	ctx := context.Background()
	developer, err := suite.client.DeveloperPicks(ctx)
	suite.NoError(err)
	suite.Equal([]int64{2, 1}, lo.Map(developer, func(r logics.CuratedRestaurant, _ int) int64 { return r.Id }))
	youtuber, err := suite.client.YoutuberPicks(ctx)
	suite.NoError(err)
	suite.Equal([]int64{6}, lo.Map(youtuber, func(r logics.CuratedRestaurant, _ int) int64 { return r.Id }))
	thirty, err := suite.client.ThirtyYears(ctx)
	suite.NoError(err)
	for _, restaurant := range thirty {
		suite.Equal("THIRTY", restaurant.Grade)
	}
	suite.Len(thirty, 5)
	liked, err := suite.client.MostLiked(ctx)
	suite.NoError(err)
	suite.Equal([]int64{3}, lo.Map(liked, func(r logics.CuratedRestaurant, _ int) int64 { return r.Id }))
}

func (suite *ClientTestSuite) TestNearby() {
	restaurants, err := suite.client.Nearby(context.Background(), 33.05, 126)
	suite.NoError(err)
	suite.ElementsMatch([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, lo.Map(restaurants, func(r data.Restaurant, _ int) int64 { return r.Id }))
}

func (suite *ClientTestSuite) TestRestaurantReviews() {
	ctx := context.Background()
	reviews, err := suite.client.RestaurantReviews(ctx, 1)
	suite.NoError(err)
	suite.Len(reviews, 2)
	_, err = suite.client.RestaurantReviews(ctx, 1000)
	suite.True(errors.IsNotFound(err))
}

func (suite *ClientTestSuite) TestUnauthorized() {
	client := NewNopoClient(suite.httpServer.URL, "wrong")
	_, err := client.ContentBased(context.Background(), "mcis")
	suite.Error(err)
	suite.False(errors.IsNotFound(err))
	suite.Contains(err.Error(), "401")
}

func TestClient(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
