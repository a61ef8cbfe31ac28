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
	"regexp"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gonum.org/v1/gonum/mat"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Tokenize splits a document into lower-cased tokens of at least two word characters.
func Tokenize(document string) []string {
	return tokenPattern.FindAllString(strings.ToLower(document), -1)
}

// CountVectorizer converts documents to vectors of n-gram counts.
type CountVectorizer struct {
	MinN, MaxN int
	vocabulary map[string]int
	terms      []string
}

// NewCountVectorizer creates a vectorizer over n-grams of lengths from minN to maxN.
func NewCountVectorizer(minN, maxN int) *CountVectorizer {
	return &CountVectorizer{MinN: minN, MaxN: maxN}
}

func (v *CountVectorizer) ngrams(document string) []string {
	tokens := Tokenize(document)
	var grams []string
	for n := v.MinN; n <= v.MaxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+n], " "))
		}
	}
	return grams
}

// Fit learns the vocabulary of documents. Terms are sorted.
func (v *CountVectorizer) Fit(documents []string) {
	termSet := mapset.NewThreadUnsafeSet[string]()
	for _, document := range documents {
		termSet.Append(v.ngrams(document)...)
	}
	v.terms = termSet.ToSlice()
	slices.Sort(v.terms)
	v.vocabulary = make(map[string]int, len(v.terms))
	for i, term := range v.terms {
		v.vocabulary[term] = i
	}
}

// Terms returns the vocabulary in column order.
func (v *CountVectorizer) Terms() []string {
	return v.terms
}

// Transform counts vocabulary terms in documents. It returns nil if the vocabulary or the
// documents are empty.
func (v *CountVectorizer) Transform(documents []string) *mat.Dense {
	if len(v.terms) == 0 || len(documents) == 0 {
		return nil
	}
	counts := mat.NewDense(len(documents), len(v.terms), nil)
	for i, document := range documents {
		for _, gram := range v.ngrams(document) {
			if j, exist := v.vocabulary[gram]; exist {
				counts.Set(i, j, counts.At(i, j)+1)
			}
		}
	}
	return counts
}

// FitTransform learns the vocabulary and counts terms in documents.
func (v *CountVectorizer) FitTransform(documents []string) *mat.Dense {
	v.Fit(documents)
	return v.Transform(documents)
}
