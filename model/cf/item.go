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
	"strconv"

	"github.com/juju/errors"
	"github.com/nopo-io/nopo/model"
	"gonum.org/v1/gonum/mat"
)

// Neighbor is a restaurant similar to another restaurant.
type Neighbor struct {
	RestaurantId int64
	Similarity   float64
}

// ItemBased finds similar restaurants by the cosine similarity of their rating columns.
type ItemBased struct {
	matrix     *RatingMatrix
	similarity *mat.SymDense
}

func NewItemBased(matrix *RatingMatrix) *ItemBased {
	ib := &ItemBased{matrix: matrix}
	if !matrix.IsEmpty() {
		ib.similarity = model.CosineSimilarity(matrix.Ratings.T())
	}
	return ib
}

// Similarity returns the similarity between restaurants in the column order of the rating matrix.
func (ib *ItemBased) Similarity() mat.Symmetric {
	return ib.similarity
}

// Neighbors returns the n restaurants most similar to a restaurant, excluding itself.
func (ib *ItemBased) Neighbors(restaurantId int64, n int) ([]Neighbor, error) {
	col, exist := ib.matrix.RestaurantIndex(restaurantId)
	if !exist {
		return nil, errors.Annotate(ErrRestaurantNotExist, strconv.FormatInt(restaurantId, 10))
	}
	neighbors := make([]Neighbor, 0, n)
	for _, j := range model.Rank(ib.similarity, col) {
		if len(neighbors) >= n {
			break
		}
		if j == col {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			RestaurantId: ib.matrix.RestaurantIds[j],
			Similarity:   ib.similarity.At(col, j),
		})
	}
	return neighbors, nil
}
