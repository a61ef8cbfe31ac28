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
	"strings"

	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
)

// BuildDocument converts the tags of a restaurant to a document. The free text tag has spaces
// removed and commas replaced by spaces, followed by the name of every tag valued at least 1.
func BuildDocument(restaurant *data.Restaurant) string {
	var builder strings.Builder
	if restaurant.Etc != nil {
		etc := strings.ReplaceAll(*restaurant.Etc, " ", "")
		builder.WriteString(strings.ReplaceAll(etc, ",", " "))
	}
	for _, name := range data.TagNames {
		if value := restaurant.Value(name); value != nil && *value >= 1 {
			builder.WriteString(" ")
			builder.WriteString(name)
		}
	}
	return builder.String()
}

// BuildDocuments converts restaurants to documents in the same order.
func BuildDocuments(restaurants []data.Restaurant) []string {
	return lo.Map(restaurants, func(restaurant data.Restaurant, _ int) string {
		return BuildDocument(&restaurant)
	})
}
