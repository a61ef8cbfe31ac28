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
	"cmp"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CosineSimilarity computes the cosine similarity between every pair of rows. Rows of zeros are
// dissimilar to every other row. The diagonal is always 1.
func CosineSimilarity(m mat.Matrix) *mat.SymDense {
	rows, cols := m.Dims()
	if rows == 0 {
		return &mat.SymDense{}
	}
	normalized := mat.NewDense(rows, cols, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
		normalized.SetRow(i, row)
	}
	similarity := mat.NewSymDense(rows, nil)
	similarity.SymOuterK(1, normalized)
	for i := 0; i < rows; i++ {
		similarity.SetSym(i, i, 1)
	}
	return similarity
}

// Identity returns the similarity between n rows without any feature.
func Identity(n int) *mat.SymDense {
	if n == 0 {
		return &mat.SymDense{}
	}
	similarity := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		similarity.SetSym(i, i, 1)
	}
	return similarity
}

// Rank returns row indices ordered by similarity to the given row from high to low. Ties keep
// row order.
func Rank(similarity mat.Symmetric, row int) []int {
	n := similarity.SymmetricDim()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	slices.SortStableFunc(indices, func(a, b int) int {
		return cmp.Compare(similarity.At(row, b), similarity.At(row, a))
	})
	return indices
}
