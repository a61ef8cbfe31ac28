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
	"github.com/juju/errors"
	"github.com/nopo-io/nopo/storage/data"
	"github.com/samber/lo"
)

// AztiTypes are the valid codes of the azti personality test.
var AztiTypes = []string{
	"mcis", "dcis", "mnis", "dnis", "mchs", "dchs", "mnhs", "dnhs",
	"mchc", "dchc", "mnhc", "dnhc", "mcic", "dcic", "mnic", "dnic",
}

// RelaxedPredicate matches restaurants of any azti type with a terrace.
var RelaxedPredicate = data.Predicate{{Tag: data.Terrace, Present: true}}

// aztiTags are the tags decided by each letter of an azti code and the letter meaning present.
var aztiTags = [4]struct {
	tag    string
	letter byte
}{
	{data.Terrace, 'm'},
	{data.CostEffective, 'c'},
	{data.RealLocal, 'h'},
	{data.Drinking, 's'},
}

// ParseAztiType converts an azti code to a predicate over restaurant tags.
func ParseAztiType(code string) (data.Predicate, error) {
	if !lo.Contains(AztiTypes, code) {
		return nil, errors.NotValidf("azti type %q", code)
	}
	predicate := make(data.Predicate, len(aztiTags))
	for i, t := range aztiTags {
		predicate[i] = data.Condition{Tag: t.tag, Present: code[i] == t.letter}
	}
	return predicate, nil
}

// AztiPredicate converts an azti code to a predicate. Invalid codes degrade to RelaxedPredicate.
func AztiPredicate(code string) data.Predicate {
	predicate, err := ParseAztiType(code)
	if err != nil {
		return RelaxedPredicate
	}
	return predicate
}
