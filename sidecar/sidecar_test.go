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

package sidecar_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlexport/examples/sidecar"
)

func TestMetadataSave(t *testing.T) {
	m := &sidecar.Metadata{
		Task:      "image_classification",
		Framework: "gomlx",
		Quantization: sidecar.Quantization{
			Precision:          "fp16",
			CalibrationDataset: "validation",
		},
		Metrics: sidecar.Metrics{
			ParameterCount:          93826,
			LayerCount:              11,
			ComputationalComplexity: "O(n^2)",
			InferenceTime:           25,
			EstimatedMemoryUsage:    400,
			EstimatedGpuUtilization: 0.7,
			Accuracy:                0.92,
			Latency:                 25,
			Throughput:              120,
			PowerConsumption:        70,
		},
	}
	path := filepath.Join(t.TempDir(), "models", "metadata.json")
	require.NoError(t, m.Save(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// The document must parse as flat JSON with the fixed key set.
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.ElementsMatch(t,
		[]string{"task", "framework", "quantization", "metrics"},
		keys(doc))
	metrics, ok := doc["metrics"].(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]string{"parameterCount", "layerCount", "computationalComplexity",
			"inferenceTime", "estimatedMemoryUsage", "estimatedGpuUtilization",
			"accuracy", "latency", "throughput", "powerConsumption"},
		keys(metrics))
	assert.Equal(t, float64(93826), metrics["parameterCount"])
}

func TestMetadataOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, (&sidecar.Metadata{Task: "a"}).Save(path))
	require.NoError(t, (&sidecar.Metadata{Task: "b"}).Save(path))

	var doc sidecar.Metadata
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "b", doc.Task)
}

func TestWriteFeatureNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feature_names.txt")
	require.NoError(t, sidecar.WriteFeatureNames(path, []string{"amazing", "great", "terrible"}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "amazing\ngreat\nterrible\n", string(raw))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
