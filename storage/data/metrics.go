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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchInsertRestaurantsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "batch_insert_restaurants_seconds",
	})
	GetRestaurantsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "get_restaurants_seconds",
	})
	GetRestaurantsMatchingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "get_restaurants_matching_seconds",
	})
	GetReviewsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "get_reviews_seconds",
	})
	GetUserReviewsSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "get_user_reviews_seconds",
	})
	GetMeanRatingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "get_mean_rating_seconds",
	})
	CountLikedSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "count_liked_seconds",
	})
	GetVisitedSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "database",
		Name:      "get_visited_seconds",
	})
)
