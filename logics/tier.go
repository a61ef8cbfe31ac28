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

// Tier decides how many content-based and matrix factorization recommendations a user gets.
type Tier struct {
	MinLiked int
	CBF      int
	MF       int
}

// Tiers are sorted by MinLiked. More liked restaurants shift recommendations to matrix factorization.
var Tiers = []Tier{
	{MinLiked: 0, CBF: 8, MF: 0},
	{MinLiked: 1, CBF: 5, MF: 3},
	{MinLiked: 6, CBF: 4, MF: 4},
	{MinLiked: 16, CBF: 3, MF: 5},
	{MinLiked: 31, CBF: 1, MF: 7},
}

// TierOf returns the tier of a user who liked n restaurants.
func TierOf(n int) Tier {
	tier := Tiers[0]
	for _, t := range Tiers {
		if n >= t.MinLiked {
			tier = t
		}
	}
	return tier
}
