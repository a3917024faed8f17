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

package sentiment_test

import (
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/onnx-gomlx/onnx/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlexport/examples/sentiment"
)

func TestDataset(t *testing.T) {
	texts, labels := sentiment.Dataset()
	require.Len(t, texts, 6)
	require.Len(t, labels, 6)
	var positives int
	for _, l := range labels {
		if l == 1 {
			positives++
		}
	}
	assert.Equal(t, 3, positives)
	assert.Equal(t, "This is great", texts[0])
}

func TestVectorizer(t *testing.T) {
	texts, _ := sentiment.Dataset()
	v := sentiment.NewVectorizer(texts, sentiment.MaxFeatures)

	// Tokens of length 1 are dropped ("I"); the rest are lowercased and the
	// vocabulary is alphabetically sorted.
	names := v.FeatureNames()
	assert.NotContains(t, names, "i")
	assert.Contains(t, names, "great")
	assert.Contains(t, names, "terrible")
	assert.True(t, sortedStrings(names), "feature names must be sorted: %v", names)

	rows := v.Transform([]string{"This is great", "great GREAT great"})
	require.Len(t, rows, 2)
	greatIdx := -1
	for i, n := range names {
		if n == "great" {
			greatIdx = i
		}
	}
	require.GreaterOrEqual(t, greatIdx, 0)
	assert.Equal(t, float32(1), rows[0][greatIdx])
	assert.Equal(t, float32(3), rows[1][greatIdx])
}

func TestVectorizerMaxFeatures(t *testing.T) {
	v := sentiment.NewVectorizer([]string{"aa aa aa bb bb cc"}, 2)
	// Capped by frequency: "aa" and "bb" survive, "cc" is cut.
	assert.Equal(t, []string{"aa", "bb"}, v.FeatureNames())
}

func TestTrainSeparatesClasses(t *testing.T) {
	backend := backends.MustNew()
	defer backend.Finalize()

	texts, labels := sentiment.Dataset()
	v := sentiment.NewVectorizer(texts, sentiment.MaxFeatures)
	features := v.Transform(texts)

	ctx, loss, err := sentiment.Train(backend, features, labels, 300)
	require.NoError(t, err)
	assert.Less(t, loss, float32(0.1), "six separable examples must train to near-zero loss")

	probs, err := sentiment.Predict(backend, ctx, features)
	require.NoError(t, err)
	for i, p := range probs {
		if labels[i] == 1 {
			assert.Greater(t, p, float32(0.5), "example %q must be classified positive", texts[i])
		} else {
			assert.Less(t, p, float32(0.5), "example %q must be classified negative", texts[i])
		}
	}
}

// TestExportedModelPredictsPositive round-trips the exported classifier
// through onnx-gomlx and checks the canonical probe: the feature vector of
// "This is great" must be scored as the positive class.
func TestExportedModelPredictsPositive(t *testing.T) {
	backend := backends.MustNew()
	defer backend.Finalize()

	texts, labels := sentiment.Dataset()
	v := sentiment.NewVectorizer(texts, sentiment.MaxFeatures)
	trainedCtx, _, err := sentiment.Train(backend, v.Transform(texts), labels, 300)
	require.NoError(t, err)

	model, err := sentiment.Export(trainedCtx, v.NumFeatures())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "text-classifier.onnx")
	require.NoError(t, model.Save(path))

	loaded, err := parser.ParseFile(path)
	require.NoError(t, err)
	defer loaded.Close()

	inputNames, _ := loaded.Inputs()
	require.Equal(t, []string{"float_input"}, inputNames)

	ctx := context.New()
	require.NoError(t, loaded.VariablesToContext(ctx))
	probe := v.Transform([]string{"This is great"})
	output := context.MustExecOnce(backend, ctx,
		func(ctx *context.Context, x *Node) *Node {
			return loaded.CallGraph(ctx, x.Graph(), map[string]*Node{"float_input": x}, "probability")[0]
		},
		tensors.FromValue(probe))

	prob := output.Value().([][]float32)[0][0]
	assert.Greater(t, prob, float32(0.5), "exported model must predict the positive class")
}

func sortedStrings(s []string) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}
