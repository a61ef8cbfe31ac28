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
	"cmp"
	"slices"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Prediction is a predicted rating of a restaurant.
type Prediction struct {
	RestaurantId int64
	Rating       float64
}

// SVD predicts ratings by the truncated singular value decomposition of the mean-centered
// rating matrix:
//
//	\hat{R} = U_k Σ_k V_k^T + μ
//
// where μ is the mean rating of each user over all restaurants including unrated ones.
type SVD struct {
	matrix      *RatingMatrix
	rank        int
	predictions *mat.Dense
}

// NewSVD factorizes a rating matrix. The rank is clamped to the number of singular values.
func NewSVD(matrix *RatingMatrix, rank int) (*SVD, error) {
	svd := &SVD{matrix: matrix}
	if matrix.IsEmpty() {
		return svd, nil
	}
	users, restaurants := matrix.Ratings.Dims()
	// subtract user means
	means := make([]float64, users)
	centered := mat.DenseCopyOf(matrix.Ratings)
	for i := 0; i < users; i++ {
		row := centered.RawRowView(i)
		means[i] = floats.Sum(row) / float64(restaurants)
		floats.AddConst(-means[i], row)
	}
	// factorize
	var factorization mat.SVD
	if ok := factorization.Factorize(centered, mat.SVDThin); !ok {
		return nil, errors.New("failed to factorize rating matrix")
	}
	values := factorization.Values(nil)
	svd.rank = max(min(rank, len(values)), 1)
	var u, v mat.Dense
	factorization.UTo(&u)
	factorization.VTo(&v)
	uk := u.Slice(0, users, 0, svd.rank)
	vk := v.Slice(0, restaurants, 0, svd.rank)
	var us mat.Dense
	us.Mul(uk, mat.NewDiagDense(svd.rank, values[:svd.rank]))
	svd.predictions = mat.NewDense(users, restaurants, nil)
	svd.predictions.Mul(&us, vk.T())
	// add user means
	for i := 0; i < users; i++ {
		floats.AddConst(means[i], svd.predictions.RawRowView(i))
	}
	return svd, nil
}

// Rank returns the number of singular values kept.
func (svd *SVD) Rank() int {
	return svd.rank
}

// Predictions returns the reconstructed users by restaurants matrix.
func (svd *SVD) Predictions() mat.Matrix {
	return svd.predictions
}

// Predict returns predicted ratings of all restaurants for a user from high to low. Ties keep
// restaurant order.
func (svd *SVD) Predict(userId string) ([]Prediction, error) {
	row, exist := svd.matrix.UserIndex(userId)
	if !exist {
		return nil, errors.Annotate(ErrUserNotExist, userId)
	}
	predictions := make([]Prediction, len(svd.matrix.RestaurantIds))
	for j, restaurantId := range svd.matrix.RestaurantIds {
		predictions[j] = Prediction{
			RestaurantId: restaurantId,
			Rating:       svd.predictions.At(row, j),
		}
	}
	slices.SortStableFunc(predictions, func(a, b Prediction) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	return predictions, nil
}
