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
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/emicklei/go-restful/v3"
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/logics"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/suite"
)

const apiKey = "test_api_key"

type ServerTestSuite struct {
	suite.Suite
	RestServer
	handler *restful.Container
}

func (suite *ServerTestSuite) SetupSuite() {
	var err error
	ctx := context.Background()
	// open database
	suite.DataClient, err = data.Open(fmt.Sprintf("sqlite://%s/data.db", suite.T().TempDir()), "")
	suite.NoError(err)
	suite.NoError(suite.DataClient.Init())
	// insert data
	restaurants := make([]data.Restaurant, 30)
	for i := range restaurants {
		id := int64(i + 1)
		restaurants[i] = data.Restaurant{
			Id:        id,
			Name:      fmt.Sprintf("restaurant %d", id),
			Grade:     lo.Ternary(id%3 == 0, "THIRTY", "NORMAL"),
			LocationX: 33 + float64(id)*0.01,
			LocationY: 126,
			Tags: data.Tags{
				Terrace:       lo.ToPtr(id % 2),
				CostEffective: lo.ToPtr(id / 2 % 2),
				RealLocal:     lo.ToPtr(id / 4 % 2),
				Drinking:      lo.ToPtr(id / 8 % 2),
				Etc:           lo.ToPtr(fmt.Sprintf("food%d, dish%d", id%3, id%5)),
			},
		}
	}
	suite.NoError(suite.DataClient.BatchInsertRestaurants(ctx, restaurants))
	var reviews []data.Review
	for i, userId := range []string{"alice", "bob", "carol"} {
		suite.NoError(suite.DataClient.BatchInsertUsers(ctx, []data.User{{Id: userId, Nickname: "nick " + userId}}))
		for j := int64(1); j <= 12; j++ {
			if (int64(i)+j)%3 == 0 {
				continue
			}
			reviews = append(reviews, data.Review{
				Id:           int64(len(reviews) + 1),
				UserId:       userId,
				RestaurantId: j,
				Rating:       float64((int64(i)*7+j*3)%5 + 1),
				Timestamp:    time.Date(2024, 1, int(j), 0, 0, 0, 0, time.UTC),
			})
		}
	}
	suite.NoError(suite.DataClient.BatchInsertReviews(ctx, reviews))
	suite.NoError(suite.DataClient.BatchInsertLiked(ctx, []data.Liked{
		{UserId: "bob", RestaurantId: 2},
		{UserId: "carol", RestaurantId: 2},
		{UserId: "carol", RestaurantId: 5},
	}))
	suite.NoError(suite.DataClient.BatchInsertVisited(ctx, []data.Visited{{UserId: "bob", RestaurantId: 1}}))
	// configuration
	suite.Config = config.GetDefaultConfig()
	suite.Config.Server.APIKey = apiKey
	suite.Config.Recommend.DeveloperPicks = []int64{4, 2}
	suite.Config.Recommend.YoutuberPicks = []int64{7}
	// create handler
	suite.WebService = new(restful.WebService)
	suite.CreateWebService()
	suite.handler = restful.NewContainer()
	suite.handler.Add(suite.WebService)
}

func (suite *ServerTestSuite) TearDownSuite() {
	suite.NoError(suite.DataClient.Close())
}

func (suite *ServerTestSuite) marshal(v any) string {
	s, err := json.Marshal(v)
	suite.NoError(err)
	return string(s)
}

func (suite *ServerTestSuite) TestAuth() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/cbf/mcis").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/cbf/mcis").
		Header("X-API-Key", "wrong").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	// health checks are open
	apitest.New().
		Handler(suite.handler).
		Get("/api/health/live").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(HealthStatus{Ready: true})).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/health/ready").
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(HealthStatus{Ready: true})).
		End()
}

func (suite *ServerTestSuite) TestRequestId() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/health/live").
		Header("X-Request-ID", "request-1").
		Expect(t).
		Status(http.StatusOK).
		Header("X-Request-ID", "request-1").
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/health/live").
		Expect(t).
		Status(http.StatusOK).
		HeaderPresent("X-Request-ID").
		End()
}

func (suite *ServerTestSuite) TestBlend() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/blend/alice/mcis").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Assert(func(resp *http.Response, _ *http.Request) error {
			var body BlendResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return err
			}
			if len(body.RecomList) != 10 {
				return fmt.Errorf("expect 10 restaurants, got %d", len(body.RecomList))
			}
			return nil
		}).
		End()
}

func (suite *ServerTestSuite) TestContentBased() {
	t := suite.T()
	recommendations, err := logics.NewRecommender(suite.DataClient, suite.Config.Recommend).ContentBased(context.Background(), "mcis")
	suite.NoError(err)
	suite.Len(recommendations, 10)
	apitest.New().
		Handler(suite.handler).
		Get("/api/cbf/mcis").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(ContentBasedResponse{RecommendCbfList: recommendations})).
		End()
}

func (suite *ServerTestSuite) TestItemCollaborative() {
	t := suite.T()
	restaurants, err := logics.NewRecommender(suite.DataClient, suite.Config.Recommend).ItemCollaborative(context.Background(), 1)
	suite.NoError(err)
	suite.Len(restaurants, 11)
	apitest.New().
		Handler(suite.handler).
		Get("/api/cf/1").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(ItemCollaborativeResponse{RecommendCfList: restaurants})).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/cf/abc").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/cf/1000").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestMatrixFactorization() {
	t := suite.T()
	restaurants, err := logics.NewRecommender(suite.DataClient, suite.Config.Recommend).MatrixFactorization(context.Background(), "bob")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	apitest.New().
		Handler(suite.handler).
		Get("/api/mf/bob").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(MatrixFactorizationResponse{RecommendMfList: restaurants})).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/mf/zed").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func (suite *ServerTestSuite) TestCuratedLists() {
	t := suite.T()
	recommender := logics.NewRecommender(suite.DataClient, suite.Config.Recommend)
	developerPicks, err := recommender.DeveloperPicks(context.Background())
	suite.NoError(err)
	suite.Len(developerPicks, 2)
	apitest.New().
		Handler(suite.handler).
		Get("/api/restaurants/developer").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(DeveloperResponse{DevList: developerPicks})).
		End()
	youtuberPicks, err := recommender.YoutuberPicks(context.Background())
	suite.NoError(err)
	apitest.New().
		Handler(suite.handler).
		Get("/api/restaurants/youtuber").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(YoutuberResponse{YouList: youtuberPicks})).
		End()
	mostLiked, err := recommender.MostLiked(context.Background())
	suite.NoError(err)
	suite.Equal(int64(2), mostLiked[0].Id)
	apitest.New().
		Handler(suite.handler).
		Get("/api/restaurants/liked").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(LikedResponse{LikeList: mostLiked})).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/restaurants/thirty").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Assert(func(resp *http.Response, _ *http.Request) error {
			var body ThirtyResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return err
			}
			if len(body.ThirList) != 10 {
				return fmt.Errorf("expect 10 restaurants, got %d", len(body.ThirList))
			}
			for _, restaurant := range body.ThirList {
				if restaurant.Grade != "THIRTY" {
					return fmt.Errorf("unexpected grade %s", restaurant.Grade)
				}
			}
			return nil
		}).
		End()
}

func (suite *ServerTestSuite) TestLocation() {
	t := suite.T()
	restaurants, err := suite.DataClient.GetRestaurantsInBox(context.Background(), data.NewBox(33.05, 126, 0.054))
	suite.NoError(err)
	suite.Len(restaurants, 10)
	apitest.New().
		Handler(suite.handler).
		Post("/api/restaurants/location").
		Header("X-API-Key", apiKey).
		JSON(`{"location_x": 33.05, "location_y": 126}`).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(LocationResponse{LocList: restaurants})).
		End()
	// coordinates in strings
	apitest.New().
		Handler(suite.handler).
		Post("/api/restaurants/location").
		Header("X-API-Key", apiKey).
		JSON(`{"location_x": "33.05", "location_y": "126"}`).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(LocationResponse{LocList: restaurants})).
		End()
	// missing coordinates
	apitest.New().
		Handler(suite.handler).
		Post("/api/restaurants/location").
		Header("X-API-Key", apiKey).
		JSON(`{"location_x": 33.05}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func (suite *ServerTestSuite) TestRestaurantReviews() {
	t := suite.T()
	reviews, err := suite.DataClient.GetRestaurantReviews(context.Background(), 1)
	suite.NoError(err)
	suite.Len(reviews, 2)
	apitest.New().
		Handler(suite.handler).
		Get("/api/restaurant/1/reviews").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(reviews)).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/restaurant/1000/reviews").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestError(t *testing.T) {
	container := restful.NewContainer()
	ws := new(restful.WebService)
	ws.Route(ws.GET("/{kind}").To(func(request *restful.Request, response *restful.Response) {
		switch request.PathParameter("kind") {
		case "not_found":
			Error(response, errors.Annotate(data.ErrRestaurantNotExist, "1"))
		case "not_valid":
			Error(response, errors.NotValidf("azti type"))
		default:
			Error(response, errors.New("unknown"))
		}
	}))
	container.Add(ws)
	apitest.New().Handler(container).Get("/not_found").Expect(t).Status(http.StatusNotFound).End()
	apitest.New().Handler(container).Get("/not_valid").Expect(t).Status(http.StatusBadRequest).End()
	apitest.New().Handler(container).Get("/other").Expect(t).Status(http.StatusInternalServerError).End()
}
