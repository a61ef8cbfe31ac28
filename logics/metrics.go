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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback policies.
const (
	FallbackRelaxedAzti = "relaxed_azti"
	FallbackNoExemplar  = "no_exemplar"
	FallbackNoRatings   = "no_ratings"
	FallbackNoNeighbors = "no_neighbors"
	FallbackUnrated     = "unrated"
)

var (
	FallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nopo",
		Subsystem: "logics",
		Name:      "fallback_total",
	}, []string{"policy"})
	BlendSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "logics",
		Name:      "blend_seconds",
	})
	ContentBasedSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "logics",
		Name:      "content_based_seconds",
	})
	ItemCollaborativeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "logics",
		Name:      "item_collaborative_seconds",
	})
	MatrixFactorizationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "nopo",
		Subsystem: "logics",
		Name:      "matrix_factorization_seconds",
	})
)
