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

package data

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
)

// NoDatabase means that no database used.
type NoDatabase struct{}

func (NoDatabase) Init() error {
	return ErrNoDatabase
}

func (NoDatabase) Ping() error {
	return ErrNoDatabase
}

func (NoDatabase) Close() error {
	return ErrNoDatabase
}

func (NoDatabase) Purge() error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertRestaurants(_ context.Context, _ []Restaurant) error {
	return ErrNoDatabase
}

func (NoDatabase) GetRestaurant(_ context.Context, _ int64) (Restaurant, error) {
	return Restaurant{}, ErrNoDatabase
}

func (NoDatabase) GetRestaurants(_ context.Context) ([]Restaurant, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) BatchGetRestaurants(_ context.Context, _ []int64) ([]Restaurant, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRestaurantsMatching(_ context.Context, _ Predicate) ([]Restaurant, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRandomRestaurants(_ context.Context, _ string, _ int) ([]Restaurant, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRestaurantsInBox(_ context.Context, _ Box) ([]Restaurant, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) BatchInsertUsers(_ context.Context, _ []User) error {
	return ErrNoDatabase
}

func (NoDatabase) BatchInsertReviews(_ context.Context, _ []Review) error {
	return ErrNoDatabase
}

func (NoDatabase) GetReviews(_ context.Context) ([]Review, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetUserReviews(_ context.Context, _ string) ([]Review, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetRestaurantReviews(_ context.Context, _ int64) ([]ReviewDetail, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) GetMeanRating(_ context.Context, _ int64) (float64, bool, error) {
	return 0, false, ErrNoDatabase
}

func (NoDatabase) BatchInsertLiked(_ context.Context, _ []Liked) error {
	return ErrNoDatabase
}

func (NoDatabase) CountLiked(_ context.Context, _ string) (int, error) {
	return 0, ErrNoDatabase
}

func (NoDatabase) GetMostLiked(_ context.Context, _ int) ([]LikeCount, error) {
	return nil, ErrNoDatabase
}

func (NoDatabase) BatchInsertVisited(_ context.Context, _ []Visited) error {
	return ErrNoDatabase
}

func (NoDatabase) GetVisited(_ context.Context, _ string) (mapset.Set[int64], error) {
	return nil, ErrNoDatabase
}
