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
package logics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

var testUsers = []string{"alice", "bob", "carol", "dave"}

// testCatalog creates restaurants whose azti tags follow the bits of their ids, so "mcis"
// matches restaurant 11 first.
func testCatalog(n int) []data.Restaurant {
	restaurants := make([]data.Restaurant, n)
	for i := range restaurants {
		id := int64(i + 1)
		grade := "NORMAL"
		if id%3 == 0 {
			grade = "THIRTY"
		}
		restaurants[i] = data.Restaurant{
			Id:        id,
			Name:      fmt.Sprintf("restaurant %d", id),
			Grade:     grade,
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
	return restaurants
}

// testReviews creates reviews of restaurants 1 to 12.
func testReviews() []data.Review {
	var reviews []data.Review
	for i, userId := range testUsers {
		for j := int64(1); j <= 12; j++ {
			if (int64(i)+j)%4 == 0 {
				continue
			}
			reviews = append(reviews, data.Review{
				Id:           int64(len(reviews) + 1),
				UserId:       userId,
				RestaurantId: j,
				Rating:       float64((int64(i)*7+j*3)%5 + 1),
				Content:      fmt.Sprintf("review of %d by %s", j, userId),
				Timestamp:    time.Date(2024, 1, int(j), 0, 0, 0, 0, time.UTC),
			})
		}
	}
	return reviews
}

type RecommenderTestSuite struct {
	suite.Suite
	database    data.Database
	recommender *Recommender
}

func (suite *RecommenderTestSuite) SetupTest() {
	var err error
	ctx := context.Background()
	suite.database, err = data.Open(fmt.Sprintf("sqlite://%s/sqlite.db", suite.T().TempDir()), "")
	suite.NoError(err)
	suite.NoError(suite.database.Init())
	cfg := config.GetDefaultConfig().Recommend
	cfg.DeveloperPicks = []int64{3, 1, 1000}
	cfg.YoutuberPicks = []int64{5}
	suite.recommender = NewRecommender(suite.database, cfg)
	// insert data
	suite.NoError(suite.database.BatchInsertRestaurants(ctx, testCatalog(100)))
	suite.NoError(suite.database.BatchInsertUsers(ctx, lo.Map(testUsers, func(userId string, _ int) data.User {
		return data.User{Id: userId, Nickname: "nick " + userId}
	})))
	suite.NoError(suite.database.BatchInsertReviews(ctx, testReviews()))
	var liked []data.Liked
	for j := int64(1); j <= 6; j++ {
		liked = append(liked, data.Liked{UserId: "bob", RestaurantId: j})
	}
	for j := int64(1); j <= 100; j++ {
		liked = append(liked, data.Liked{UserId: "carol", RestaurantId: j})
	}
	suite.NoError(suite.database.BatchInsertLiked(ctx, liked))
	suite.NoError(suite.database.BatchInsertVisited(ctx, []data.Visited{
		{UserId: "carol", RestaurantId: 1},
		{UserId: "carol", RestaurantId: 2},
	}))
}

func (suite *RecommenderTestSuite) TearDownTest() {
	suite.NoError(suite.database.Close())
}

func ids(restaurants []RatedRestaurant) []int64 {
	return lo.Map(restaurants, func(restaurant RatedRestaurant, _ int) int64 {
		return restaurant.Id
	})
}

func restaurantIds(restaurants []data.Restaurant) []int64 {
	return lo.Map(restaurants, func(restaurant data.Restaurant, _ int) int64 {
		return restaurant.Id
	})
}

func (suite *RecommenderTestSuite) TestContentBased() {
	ctx := context.Background()
	recommendations, err := suite.recommender.ContentBased(ctx, "mcis")
	suite.NoError(err)
	suite.Len(recommendations, 10)
	suite.Contains(model.Ids(recommendations), int64(11))
	suite.InDelta(1, recommendations[0].Score, 1e-9)
	for i := 1; i < len(recommendations); i++ {
		suite.GreaterOrEqual(recommendations[i-1].Score, recommendations[i].Score)
	}
	// invalid azti type relaxes to restaurants with a terrace
	recommendations, err = suite.recommender.ContentBased(ctx, "xxxx")
	suite.NoError(err)
	suite.Len(recommendations, 10)
	suite.Contains(model.Ids(recommendations), int64(1))
}

func (suite *RecommenderTestSuite) TestContentBasedRelaxed() {
	ctx := context.Background()
	suite.NoError(suite.database.Purge())
	// nothing matches "mcis" but restaurant 2 has a terrace
	suite.NoError(suite.database.BatchInsertRestaurants(ctx, []data.Restaurant{
		{Id: 1, Name: "a", Tags: data.Tags{Terrace: lo.ToPtr[int64](0), Meal: lo.ToPtr[int64](1)}},
		{Id: 2, Name: "b", Tags: data.Tags{Terrace: lo.ToPtr[int64](1)}},
	}))
	before := testutil.ToFloat64(FallbackTotal.WithLabelValues(FallbackRelaxedAzti))
	recommendations, err := suite.recommender.ContentBased(ctx, "mcis")
	suite.NoError(err)
	suite.Equal([]int64{2, 1}, model.Ids(recommendations))
	suite.Equal(before+1, testutil.ToFloat64(FallbackTotal.WithLabelValues(FallbackRelaxedAzti)))
	// nothing has a terrace
	suite.NoError(suite.database.Purge())
	suite.NoError(suite.database.BatchInsertRestaurants(ctx, []data.Restaurant{
		{Id: 1, Name: "a", Tags: data.Tags{Terrace: lo.ToPtr[int64](0)}},
	}))
	recommendations, err = suite.recommender.ContentBased(ctx, "mcis")
	suite.NoError(err)
	suite.Empty(recommendations)
}

func (suite *RecommenderTestSuite) TestItemCollaborative() {
	ctx := context.Background()
	restaurants, err := suite.recommender.ItemCollaborative(ctx, 1)
	suite.NoError(err)
	suite.Len(restaurants, 11)
	suite.NotContains(ids(restaurants), int64(1))
	for _, restaurant := range restaurants {
		suite.LessOrEqual(restaurant.Id, int64(12))
		suite.Greater(restaurant.Rating, 0.0)
	}
	// restaurants without reviews fall back to content-based similarity
	restaurants, err = suite.recommender.ItemCollaborative(ctx, 50)
	suite.NoError(err)
	suite.Len(restaurants, 10)
	suite.Contains(ids(restaurants), int64(50))
	// unknown restaurant
	_, err = suite.recommender.ItemCollaborative(ctx, 1000)
	suite.True(errors.IsNotFound(err))
}

func (suite *RecommenderTestSuite) TestMatrixFactorization() {
	ctx := context.Background()
	restaurants, err := suite.recommender.MatrixFactorization(ctx, "carol")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	suite.NotContains(restaurantIds(restaurants), int64(1))
	suite.NotContains(restaurantIds(restaurants), int64(2))
	restaurants, err = suite.recommender.MatrixFactorization(ctx, "bob")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	// users without reviews
	_, err = suite.recommender.MatrixFactorization(ctx, "zed")
	suite.True(errors.IsNotFound(err))
}

func (suite *RecommenderTestSuite) TestBlend() {
	ctx := context.Background()
	cbfRecommendations, err := suite.recommender.ContentBased(ctx, "mcis")
	suite.NoError(err)
	cbfIds := model.Ids(cbfRecommendations)

	// no liked restaurants: 2 random + 8 content-based
	restaurants, err := suite.recommender.Blend(ctx, "alice", "mcis")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	suite.Equal(cbfIds[:8], ids(restaurants)[2:])

	// 6 liked restaurants: 2 random + 4 content-based + 4 matrix factorization
	mfRestaurants, err := suite.recommender.MatrixFactorization(ctx, "bob")
	suite.NoError(err)
	restaurants, err = suite.recommender.Blend(ctx, "bob", "mcis")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	suite.Equal(cbfIds[:4], ids(restaurants)[2:6])
	suite.Equal(restaurantIds(mfRestaurants)[:4], ids(restaurants)[6:])

	// 100 liked restaurants: 2 random + 1 content-based + 7 matrix factorization
	mfRestaurants, err = suite.recommender.MatrixFactorization(ctx, "carol")
	suite.NoError(err)
	restaurants, err = suite.recommender.Blend(ctx, "carol", "mcis")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	suite.Equal(cbfIds[:1], ids(restaurants)[2:3])
	suite.Equal(restaurantIds(mfRestaurants)[:7], ids(restaurants)[3:])

	// unrated restaurants are rated zero
	for _, restaurant := range restaurants {
		if restaurant.Id > 12 {
			suite.Zero(restaurant.Rating)
		} else {
			suite.Greater(restaurant.Rating, 0.0)
		}
	}
}

func (suite *RecommenderTestSuite) TestBlendWithoutReviews() {
	ctx := context.Background()
	// users who never reviewed get no matrix factorization recommendations
	restaurants, err := suite.recommender.Blend(ctx, "zed", "dnic")
	suite.NoError(err)
	suite.Len(restaurants, 10)
	// empty catalog
	suite.NoError(suite.database.Purge())
	restaurants, err = suite.recommender.Blend(ctx, "alice", "mcis")
	suite.NoError(err)
	suite.Empty(restaurants)
}

func (suite *RecommenderTestSuite) TestCuratedLists() {
	ctx := context.Background()
	// picks keep the configured order and skip unknown restaurants
	restaurants, err := suite.recommender.DeveloperPicks(ctx)
	suite.NoError(err)
	suite.Equal([]int64{3, 1}, lo.Map(restaurants, func(r CuratedRestaurant, _ int) int64 { return r.Id }))
	suite.NotEmpty(restaurants[0].Reviews)
	for _, review := range restaurants[0].Reviews {
		suite.Equal(int64(3), review.RestaurantId)
		suite.Equal("nick "+review.UserId, review.Nickname)
	}
	restaurants, err = suite.recommender.YoutuberPicks(ctx)
	suite.NoError(err)
	suite.Len(restaurants, 1)
	suite.Greater(restaurants[0].Rating, 0.0)
	// thirty years
	restaurants, err = suite.recommender.ThirtyYears(ctx)
	suite.NoError(err)
	suite.Len(restaurants, 20)
	for _, restaurant := range restaurants {
		suite.Equal("THIRTY", restaurant.Grade)
	}
	// most liked
	restaurants, err = suite.recommender.MostLiked(ctx)
	suite.NoError(err)
	suite.Len(restaurants, 20)
	suite.Equal([]int64{1, 2, 3, 4, 5, 6}, lo.Map(restaurants[:6], func(r CuratedRestaurant, _ int) int64 { return r.Id }))
	suite.Zero(restaurants[19].Rating)
	suite.Empty(restaurants[19].Reviews)
}

func (suite *RecommenderTestSuite) TestNearby() {
	ctx := context.Background()
	restaurants, err := suite.recommender.Nearby(ctx, 33.05, 126)
	suite.NoError(err)
	suite.Equal([]int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, restaurantIds(restaurants))
	restaurants, err = suite.recommender.Nearby(ctx, 0, 0)
	suite.NoError(err)
	suite.Empty(restaurants)
}

func (suite *RecommenderTestSuite) TestRestaurantReviews() {
	ctx := context.Background()
	reviews, err := suite.recommender.RestaurantReviews(ctx, 1)
	suite.NoError(err)
	suite.Len(reviews, 3)
	_, err = suite.recommender.RestaurantReviews(ctx, 1000)
	suite.True(errors.IsNotFound(err))
}

func TestRecommender(t *testing.T) {
	suite.Run(t, new(RecommenderTestSuite))
}
