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

package cf

import (
	"slices"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUserNotExist       = errors.NotFoundf("user")
	ErrRestaurantNotExist = errors.NotFoundf("restaurant")
)

// RatingMatrix is a dense users by restaurants matrix of ratings. Missing ratings are zeros.
type RatingMatrix struct {
	UserIds         []string
	RestaurantIds   []int64
	Ratings         *mat.Dense
	userIndex       map[string]int
	restaurantIndex map[int64]int
}

// NewRatingMatrix pivots reviews into a rating matrix. Users and restaurants are sorted by id.
// Multiple reviews of a restaurant by the same user are averaged.
func NewRatingMatrix(reviews []data.Review) *RatingMatrix {
	m := &RatingMatrix{
		UserIds: lo.Uniq(lo.Map(reviews, func(review data.Review, _ int) string {
			return review.UserId
		})),
		RestaurantIds: lo.Uniq(lo.Map(reviews, func(review data.Review, _ int) int64 {
			return review.RestaurantId
		})),
	}
	slices.Sort(m.UserIds)
	slices.Sort(m.RestaurantIds)
	m.userIndex = make(map[string]int, len(m.UserIds))
	for i, userId := range m.UserIds {
		m.userIndex[userId] = i
	}
	m.restaurantIndex = make(map[int64]int, len(m.RestaurantIds))
	for j, restaurantId := range m.RestaurantIds {
		m.restaurantIndex[restaurantId] = j
	}
	if len(reviews) == 0 {
		return m
	}
	// average duplicated reviews
	sums := mat.NewDense(len(m.UserIds), len(m.RestaurantIds), nil)
	counts := mat.NewDense(len(m.UserIds), len(m.RestaurantIds), nil)
	for _, review := range reviews {
		i, j := m.userIndex[review.UserId], m.restaurantIndex[review.RestaurantId]
		sums.Set(i, j, sums.At(i, j)+review.Rating)
		counts.Set(i, j, counts.At(i, j)+1)
	}
	m.Ratings = mat.NewDense(len(m.UserIds), len(m.RestaurantIds), nil)
	m.Ratings.Apply(func(i, j int, v float64) float64 {
		if c := counts.At(i, j); c > 0 {
			return v / c
		}
		return 0
	}, sums)
	return m
}

// IsEmpty returns true if there is no rating.
func (m *RatingMatrix) IsEmpty() bool {
	return m.Ratings == nil
}

// UserIndex returns the row of a user.
func (m *RatingMatrix) UserIndex(userId string) (int, bool) {
	i, exist := m.userIndex[userId]
	return i, exist
}

// RestaurantIndex returns the column of a restaurant.
func (m *RatingMatrix) RestaurantIndex(restaurantId int64) (int, bool) {
	j, exist := m.restaurantIndex[restaurantId]
	return j, exist
}
