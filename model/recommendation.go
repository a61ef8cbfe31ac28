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

package model

import (
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
)

// Recommendation is a restaurant with a similarity or a predicted rating.
type Recommendation struct {
	data.Restaurant
	Score float64 `json:"score"`
}

// Ids returns restaurant ids of recommendations.
func Ids(recommendations []Recommendation) []int64 {
	return lo.Map(recommendations, func(r Recommendation, _ int) int64 {
		return r.Id
	})
}
