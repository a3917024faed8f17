/*
 *	Copyright 2026 The MLExport Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package sentiment trains a tiny text-classification pipeline -- a
// bag-of-words vectorizer plus a logistic regression -- on a fixed six-row
// dataset, and exports the classifier half of the pipeline to ONNX.
//
// The dataset is trivially separable, so the training deterministically
// drives the classes apart; it exists only to produce a valid, exportable
// model. The vectorizer is not exported: runtimes are expected to rebuild
// the feature vector from the feature-name list written alongside the model.
package sentiment

import (
	"regexp"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// trainingCSV is the complete training dataset: three positive and three
// negative examples.
const trainingCSV = `text,label
This is great,1
I love it,1
Amazing product,1
This is terrible,0
I hate it,0
Poor quality,0
`

// MaxFeatures caps the vectorizer vocabulary size.
const MaxFeatures = 100

// Dataset returns the fixed training rows: texts and their binary labels
// (1 positive, 0 negative).
func Dataset() (texts []string, labels []float32) {
	df := dataframe.ReadCSV(strings.NewReader(trainingCSV),
		dataframe.HasHeader(true),
		dataframe.WithTypes(map[string]series.Type{
			"text":  series.String,
			"label": series.Float,
		}))
	texts = df.Col("text").Records()
	for _, v := range df.Col("label").Float() {
		labels = append(labels, float32(v))
	}
	return
}

// tokenRe matches word tokens of at least two characters, the same token
// definition scikit-learn's CountVectorizer defaults to.
var tokenRe = regexp.MustCompile(`\w\w+`)

// Vectorizer maps texts to bag-of-words count vectors over a fixed,
// alphabetically ordered vocabulary.
type Vectorizer struct {
	vocab []string
	index map[string]int
}

// NewVectorizer learns a vocabulary from texts: lowercased word tokens of
// length >= 2, capped at maxFeatures by document frequency (ties broken
// alphabetically), final vocabulary sorted alphabetically so feature order
// is deterministic.
func NewVectorizer(texts []string, maxFeatures int) *Vectorizer {
	counts := make(map[string]int)
	for _, text := range texts {
		for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
			counts[tok]++
		}
	}

	vocab := make([]string, 0, len(counts))
	for tok := range counts {
		vocab = append(vocab, tok)
	}
	if maxFeatures > 0 && len(vocab) > maxFeatures {
		sort.Slice(vocab, func(i, j int) bool {
			if counts[vocab[i]] != counts[vocab[j]] {
				return counts[vocab[i]] > counts[vocab[j]]
			}
			return vocab[i] < vocab[j]
		})
		vocab = vocab[:maxFeatures]
	}
	sort.Strings(vocab)

	v := &Vectorizer{vocab: vocab, index: make(map[string]int, len(vocab))}
	for i, tok := range vocab {
		v.index[tok] = i
	}
	return v
}

// FeatureNames returns the vocabulary in feature-index order.
func (v *Vectorizer) FeatureNames() []string { return v.vocab }

// NumFeatures returns the vocabulary size.
func (v *Vectorizer) NumFeatures() int { return len(v.vocab) }

// Transform returns the count vector of each text, shaped
// [len(texts)][NumFeatures()]. Tokens outside the vocabulary are dropped.
func (v *Vectorizer) Transform(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		row := make([]float32, len(v.vocab))
		for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
			if idx, found := v.index[tok]; found {
				row[idx]++
			}
		}
		out[i] = row
	}
	return out
}
