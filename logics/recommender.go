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
	"time"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/base/log"
	"github.com/nopo-io/nopo/config"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/model/cbf"
	"github.com/nopo-io/nopo/model/cf"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// UnratedScore is the rating of restaurants without any review.
const UnratedScore = 0.0

// RatedRestaurant is a restaurant with its mean rating.
type RatedRestaurant struct {
	data.Restaurant
	Rating float64 `json:"rating"`
}

// CuratedRestaurant is a restaurant with its mean rating and reviews.
type CuratedRestaurant struct {
	data.Restaurant
	Rating  float64             `json:"rating"`
	Reviews []data.ReviewDetail `json:"review"`
}

// Recommender builds recommendation lists from live data. Similarity and factorization are
// recomputed on every call.
type Recommender struct {
	database data.Database
	config   config.RecommendConfig
}

func NewRecommender(database data.Database, cfg config.RecommendConfig) *Recommender {
	return &Recommender{database: database, config: cfg}
}

func fallback(policy string, fields ...zap.Field) {
	FallbackTotal.WithLabelValues(policy).Inc()
	log.Logger().Debug("recommendation fallback", append([]zap.Field{zap.String("policy", policy)}, fields...)...)
}

// Blend mixes random, content-based and matrix factorization recommendations. The more
// restaurants a user liked, the more matrix factorization recommendations are taken.
func (r *Recommender) Blend(ctx context.Context, userId, aztiType string) ([]RatedRestaurant, error) {
	startTime := time.Now()
	liked, err := r.database.CountLiked(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	tier := TierOf(liked)
	restaurants, err := r.database.GetRestaurants(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	reviews, err := r.database.GetReviews(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// random pool
	randomPool, err := r.database.GetRandomRestaurants(ctx, "", r.config.RandomSize)
	if err != nil {
		return nil, errors.Trace(err)
	}
	// content-based pool
	recommendations, exemplar, err := r.contentBased(ctx, restaurants, aztiType)
	if err != nil {
		return nil, errors.Trace(err)
	}
	cbfPool := lo.Map(recommendations, func(recommendation model.Recommendation, _ int) data.Restaurant {
		return recommendation.Restaurant
	})
	if exemplar != nil {
		neighbors, err := r.itemNeighbors(reviews, exemplar.Id)
		if err != nil && !errors.IsNotFound(err) {
			return nil, errors.Trace(err)
		} else if err != nil {
			fallback(FallbackNoNeighbors, zap.Int64("restaurant_id", exemplar.Id))
		} else {
			neighborRestaurants, err := r.getRestaurants(ctx, neighbors)
			if err != nil {
				return nil, errors.Trace(err)
			}
			cbfPool = append(cbfPool, neighborRestaurants...)
		}
	}
	// matrix factorization pool
	mfPool, err := r.matrixFactorization(ctx, reviews, userId)
	if errors.IsNotFound(err) {
		fallback(FallbackNoRatings, zap.String("user_id", userId))
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	// blend
	blended := make([]data.Restaurant, 0, len(randomPool)+tier.CBF+tier.MF)
	blended = append(blended, randomPool...)
	blended = append(blended, cbfPool[:min(tier.CBF, len(cbfPool))]...)
	blended = append(blended, mfPool[:min(tier.MF, len(mfPool))]...)
	result, err := r.rate(ctx, blended)
	if err != nil {
		return nil, errors.Trace(err)
	}
	BlendSeconds.Observe(time.Since(startTime).Seconds())
	log.Logger().Debug("blend recommendations",
		zap.String("user_id", userId),
		zap.String("azti_type", aztiType),
		zap.Int("liked", liked),
		zap.Int("random", len(randomPool)),
		zap.Int("cbf", len(cbfPool)),
		zap.Int("mf", len(mfPool)))
	return result, nil
}

// ContentBased returns restaurants similar to the exemplar of an azti type.
func (r *Recommender) ContentBased(ctx context.Context, aztiType string) ([]model.Recommendation, error) {
	startTime := time.Now()
	restaurants, err := r.database.GetRestaurants(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	recommendations, _, err := r.contentBased(ctx, restaurants, aztiType)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ContentBasedSeconds.Observe(time.Since(startTime).Seconds())
	return recommendations, nil
}

// ItemCollaborative returns restaurants rated similarly to a restaurant. Restaurants without
// reviews fall back to content-based similarity.
func (r *Recommender) ItemCollaborative(ctx context.Context, restaurantId int64) ([]RatedRestaurant, error) {
	startTime := time.Now()
	reviews, err := r.database.GetReviews(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids, err := r.itemNeighbors(reviews, restaurantId)
	if errors.IsNotFound(err) {
		fallback(FallbackNoNeighbors, zap.Int64("restaurant_id", restaurantId))
		restaurants, err := r.database.GetRestaurants(ctx)
		if err != nil {
			return nil, errors.Trace(err)
		}
		recommendations, err := cbf.NewEngine(restaurants).SimilarById(restaurantId, r.config.TopN)
		if err != nil {
			return nil, errors.Trace(err)
		}
		ids = model.Ids(recommendations)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	restaurants, err := r.getRestaurants(ctx, ids)
	if err != nil {
		return nil, errors.Trace(err)
	}
	result, err := r.rate(ctx, restaurants)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ItemCollaborativeSeconds.Observe(time.Since(startTime).Seconds())
	return result, nil
}

// MatrixFactorization returns unvisited restaurants with the highest predicted ratings for a user.
func (r *Recommender) MatrixFactorization(ctx context.Context, userId string) ([]data.Restaurant, error) {
	startTime := time.Now()
	reviews, err := r.database.GetReviews(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	restaurants, err := r.matrixFactorization(ctx, reviews, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	MatrixFactorizationSeconds.Observe(time.Since(startTime).Seconds())
	return restaurants, nil
}

// DeveloperPicks returns restaurants picked by developers.
func (r *Recommender) DeveloperPicks(ctx context.Context) ([]CuratedRestaurant, error) {
	restaurants, err := r.getRestaurants(ctx, r.config.DeveloperPicks)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.curate(ctx, restaurants)
}

// YoutuberPicks returns restaurants featured by youtubers.
func (r *Recommender) YoutuberPicks(ctx context.Context) ([]CuratedRestaurant, error) {
	restaurants, err := r.getRestaurants(ctx, r.config.YoutuberPicks)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.curate(ctx, restaurants)
}

// ThirtyYears returns random restaurants open for more than thirty years.
func (r *Recommender) ThirtyYears(ctx context.Context) ([]CuratedRestaurant, error) {
	restaurants, err := r.database.GetRandomRestaurants(ctx, r.config.ThirtyGrade, r.config.CuratedSize)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.curate(ctx, restaurants)
}

// MostLiked returns the most liked restaurants in the order of like counts.
func (r *Recommender) MostLiked(ctx context.Context) ([]CuratedRestaurant, error) {
	counts, err := r.database.GetMostLiked(ctx, r.config.CuratedSize)
	if err != nil {
		return nil, errors.Trace(err)
	}
	restaurants, err := r.getRestaurants(ctx, lo.Map(counts, func(count data.LikeCount, _ int) int64 {
		return count.RestaurantId
	}))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return r.curate(ctx, restaurants)
}

// Nearby returns restaurants around a location.
func (r *Recommender) Nearby(ctx context.Context, x, y float64) ([]data.Restaurant, error) {
	restaurants, err := r.database.GetRestaurantsInBox(ctx, data.NewBox(x, y, r.config.LocationRadius))
	if err != nil {
		return nil, errors.Trace(err)
	}
	return restaurants, nil
}

// RestaurantReviews returns reviews of a restaurant from latest to earliest.
func (r *Recommender) RestaurantReviews(ctx context.Context, restaurantId int64) ([]data.ReviewDetail, error) {
	if _, err := r.database.GetRestaurant(ctx, restaurantId); err != nil {
		return nil, errors.Trace(err)
	}
	reviews, err := r.database.GetRestaurantReviews(ctx, restaurantId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return reviews, nil
}

// exemplar finds the first restaurant matching an azti type. Invalid or unmatched azti types
// relax to restaurants with a terrace. It returns nil if nothing matches.
func (r *Recommender) exemplar(ctx context.Context, aztiType string) (*data.Restaurant, error) {
	predicate, err := ParseAztiType(aztiType)
	relaxed := err != nil
	if relaxed {
		fallback(FallbackRelaxedAzti, zap.String("azti_type", aztiType), zap.Error(err))
		predicate = RelaxedPredicate
	}
	restaurants, err := r.database.GetRestaurantsMatching(ctx, predicate)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(restaurants) == 0 && !relaxed {
		fallback(FallbackRelaxedAzti, zap.String("azti_type", aztiType), zap.Stringer("predicate", predicate))
		restaurants, err = r.database.GetRestaurantsMatching(ctx, RelaxedPredicate)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	if len(restaurants) == 0 {
		fallback(FallbackNoExemplar, zap.String("azti_type", aztiType))
		return nil, nil
	}
	return &restaurants[0], nil
}

func (r *Recommender) contentBased(ctx context.Context, restaurants []data.Restaurant, aztiType string) ([]model.Recommendation, *data.Restaurant, error) {
	exemplar, err := r.exemplar(ctx, aztiType)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if exemplar == nil {
		return []model.Recommendation{}, nil, nil
	}
	recommendations, err := cbf.NewEngine(restaurants).SimilarById(exemplar.Id, r.config.TopN)
	if errors.IsNotFound(err) {
		// the exemplar is missing from the catalog loaded earlier
		fallback(FallbackNoExemplar, zap.String("azti_type", aztiType), zap.Int64("restaurant_id", exemplar.Id))
		return []model.Recommendation{}, nil, nil
	} else if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return recommendations, exemplar, nil
}

func (r *Recommender) itemNeighbors(reviews []data.Review, restaurantId int64) ([]int64, error) {
	neighbors, err := cf.NewItemBased(cf.NewRatingMatrix(reviews)).Neighbors(restaurantId, r.config.Neighbors)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(neighbors, func(neighbor cf.Neighbor, _ int) int64 {
		return neighbor.RestaurantId
	}), nil
}

func (r *Recommender) matrixFactorization(ctx context.Context, reviews []data.Review, userId string) ([]data.Restaurant, error) {
	svd, err := cf.NewSVD(cf.NewRatingMatrix(reviews), r.config.SVDRank)
	if err != nil {
		return nil, errors.Trace(err)
	}
	predictions, err := svd.Predict(userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	visited, err := r.database.GetVisited(ctx, userId)
	if err != nil {
		return nil, errors.Trace(err)
	}
	ids := make([]int64, 0, r.config.TopN)
	for _, prediction := range predictions {
		if len(ids) >= r.config.TopN {
			break
		}
		if !visited.Contains(prediction.RestaurantId) {
			ids = append(ids, prediction.RestaurantId)
		}
	}
	return r.getRestaurants(ctx, ids)
}

// getRestaurants loads restaurants in the order of ids. Missing restaurants are skipped.
func (r *Recommender) getRestaurants(ctx context.Context, ids []int64) ([]data.Restaurant, error) {
	restaurants, err := r.database.BatchGetRestaurants(ctx, ids)
	if err != nil {
		return nil, errors.Trace(err)
	}
	index := lo.SliceToMap(restaurants, func(restaurant data.Restaurant) (int64, data.Restaurant) {
		return restaurant.Id, restaurant
	})
	result := make([]data.Restaurant, 0, len(ids))
	for _, id := range ids {
		if restaurant, exist := index[id]; exist {
			result = append(result, restaurant)
		}
	}
	return result, nil
}

func (r *Recommender) meanRating(ctx context.Context, restaurantId int64) (float64, error) {
	rating, exist, err := r.database.GetMeanRating(ctx, restaurantId)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if !exist {
		fallback(FallbackUnrated, zap.Int64("restaurant_id", restaurantId))
		return UnratedScore, nil
	}
	return rating, nil
}

func (r *Recommender) rate(ctx context.Context, restaurants []data.Restaurant) ([]RatedRestaurant, error) {
	result := make([]RatedRestaurant, len(restaurants))
	for i, restaurant := range restaurants {
		rating, err := r.meanRating(ctx, restaurant.Id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		result[i] = RatedRestaurant{Restaurant: restaurant, Rating: rating}
	}
	return result, nil
}

func (r *Recommender) curate(ctx context.Context, restaurants []data.Restaurant) ([]CuratedRestaurant, error) {
	result := make([]CuratedRestaurant, len(restaurants))
	for i, restaurant := range restaurants {
		rating, err := r.meanRating(ctx, restaurant.Id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		reviews, err := r.database.GetRestaurantReviews(ctx, restaurant.Id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		result[i] = CuratedRestaurant{Restaurant: restaurant, Rating: rating, Reviews: reviews}
	}
	return result, nil
}
