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
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
)

// Condition tests a single tag. Present requires the tag to be greater than zero,
// otherwise the tag must equal zero. A missing tag never satisfies a condition.
type Condition struct {
	Tag     string
	Present bool
}

func (c Condition) String() string {
	if c.Present {
		return c.Tag + ">0"
	}
	return c.Tag + "=0"
}

// Matches evaluates the condition on a restaurant.
func (c Condition) Matches(restaurant *Restaurant) bool {
	value := restaurant.Value(c.Tag)
	if value == nil {
		return false
	}
	if c.Present {
		return *value > 0
	}
	return *value == 0
}

// Predicate is a conjunction of conditions.
type Predicate []Condition

func (p Predicate) String() string {
	return strings.Join(lo.Map(p, func(c Condition, _ int) string {
		return c.String()
	}), " and ")
}

// Matches returns true if every condition holds.
func (p Predicate) Matches(restaurant *Restaurant) bool {
	for _, c := range p {
		if !c.Matches(restaurant) {
			return false
		}
	}
	return true
}

// Validate rejects tags outside the fixed tag set.
func (p Predicate) Validate() error {
	for _, c := range p {
		if !lo.Contains(TagNames, c.Tag) {
			return errors.NotValidf("tag %s", c.Tag)
		}
	}
	return nil
}

// sqlClauses renders parameterized conditions over the elements table aliased as e.
func (p Predicate) sqlClauses() ([]string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range p {
		if c.Present {
			clauses = append(clauses, fmt.Sprintf("e.%s > ?", c.Tag))
		} else {
			clauses = append(clauses, fmt.Sprintf("e.%s = ?", c.Tag))
		}
		args = append(args, 0)
	}
	return clauses, args
}

func (p Predicate) bsonFilter() bson.M {
	filter := bson.M{}
	for _, c := range p {
		if c.Present {
			filter[c.Tag] = bson.M{"$gt": 0}
		} else {
			filter[c.Tag] = 0
		}
	}
	return filter
}
