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
package client

import (
	"github.com/nopo-io/nopo/logics"
	"github.com/nopo-io/nopo/model"
	"github.com/nopo-io/nopo/storage/data"
)

type blendResponse struct {
	RecomList []logics.RatedRestaurant `json:"recomList"`
}

type contentBasedResponse struct {
	RecommendCbfList []model.Recommendation `json:"recommendCbfList"`
}

type itemCollaborativeResponse struct {
	RecommendCfList []logics.RatedRestaurant `json:"recommendCfList"`
}

type matrixFactorizationResponse struct {
	RecommendMfList []data.Restaurant `json:"recommendMfList"`
}

type curatedResponse struct {
	DevList  []logics.CuratedRestaurant `json:"devList"`
	YouList  []logics.CuratedRestaurant `json:"youList"`
	ThirList []logics.CuratedRestaurant `json:"thirList"`
	LikeList []logics.CuratedRestaurant `json:"likeList"`
}

type locationResponse struct {
	LocList []data.Restaurant `json:"locList"`
}

// Location is the request body of nearby restaurants.
type Location struct {
	LocationX float64 `json:"location_x"`
	LocationY float64 `json:"location_y"`
}

type errorResponse struct {
	Message string `json:"message"`
}
