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

package cbf

import (
	"strconv"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/storage/data"
	"gonum.org/v1/gonum/mat"
)

var ErrRestaurantNotExist = errors.NotFoundf("restaurant")

// Engine ranks restaurants by the cosine similarity of their tag documents.
type Engine struct {
	restaurants []data.Restaurant
	index       map[int64]int
	similarity  *mat.SymDense
}

// NewEngine builds documents of restaurants, counts unigrams and bigrams and computes the
// similarity between every pair of restaurants.
func NewEngine(restaurants []data.Restaurant) *Engine {
	engine := &Engine{
		restaurants: restaurants,
		index:       make(map[int64]int, len(restaurants)),
	}
	for i, restaurant := range restaurants {
		if _, exist := engine.index[restaurant.Id]; !exist {
			engine.index[restaurant.Id] = i
		}
	}
	vectorizer := NewCountVectorizer(1, 2)
	if counts := vectorizer.FitTransform(BuildDocuments(restaurants)); counts != nil {
		engine.similarity = model.CosineSimilarity(counts)
	} else {
		engine.similarity = model.Identity(len(restaurants))
	}
	return engine
}

// Len returns the number of restaurants.
func (e *Engine) Len() int {
	return len(e.restaurants)
}

// Similarity returns the similarity matrix in the order of restaurants.
func (e *Engine) Similarity() mat.Symmetric {
	return e.similarity
}

// Similar returns the n restaurants most similar to the restaurant at a row, including itself.
func (e *Engine) Similar(row, n int) []model.Recommendation {
	if row < 0 || row >= len(e.restaurants) || n <= 0 {
		return []model.Recommendation{}
	}
	ranks := model.Rank(e.similarity, row)
	if n < len(ranks) {
		ranks = ranks[:n]
	}
	recommendations := make([]model.Recommendation, len(ranks))
	for i, j := range ranks {
		recommendations[i] = model.Recommendation{
			Restaurant: e.restaurants[j],
			Score:      e.similarity.At(row, j),
		}
	}
	return recommendations
}

// SimilarById returns the n restaurants most similar to a restaurant.
func (e *Engine) SimilarById(id int64, n int) ([]model.Recommendation, error) {
	row, exist := e.index[id]
	if !exist {
		return nil, errors.Annotate(ErrRestaurantNotExist, strconv.FormatInt(id, 10))
	}
	return e.Similar(row, n), nil
}

// SimilarByName returns the n restaurants most similar to the first restaurant with the name.
func (e *Engine) SimilarByName(name string, n int) ([]model.Recommendation, error) {
	for row, restaurant := range e.restaurants {
		if restaurant.Name == name {
			return e.Similar(row, n), nil
		}
	}
	return nil, errors.Annotate(ErrRestaurantNotExist, name)
}
