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

// Package sidecar writes the auxiliary descriptor files shipped alongside
// exported model artifacts: a JSON metadata document and a plain-text
// feature-name list.
//
// The metadata values are descriptive facts authored by the exporter, not
// measurements -- nothing ties them to the graph file beyond the parameter
// count, which callers typically fill in from the live model variables.
package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Quantization is a hint about the precision the model is meant to be
// quantized to, and the dataset to calibrate with.
type Quantization struct {
	Precision          string `json:"precision"`
	CalibrationDataset string `json:"calibrationDataset"`
}

// Metrics is the fixed metric set of the metadata document.
type Metrics struct {
	ParameterCount          int64   `json:"parameterCount"`
	LayerCount              int     `json:"layerCount"`
	ComputationalComplexity string  `json:"computationalComplexity"`
	InferenceTime           int     `json:"inferenceTime"`
	EstimatedMemoryUsage    int     `json:"estimatedMemoryUsage"`
	EstimatedGpuUtilization float64 `json:"estimatedGpuUtilization"`
	Accuracy                float64 `json:"accuracy"`
	Latency                 int     `json:"latency"`
	Throughput              int     `json:"throughput"`
	PowerConsumption        int     `json:"powerConsumption"`
}

// Metadata is the model descriptor document.
type Metadata struct {
	Task         string       `json:"task"`
	Framework    string       `json:"framework"`
	Quantization Quantization `json:"quantization"`
	Metrics      Metrics      `json:"metrics"`
}

// Save writes the document as indented JSON at path, creating parent
// directories as needed. An existing file is overwritten.
func (m *Metadata) Save(path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal metadata")
	}
	return write(path, append(b, '\n'))
}

// WriteFeatureNames writes names newline-separated at path, one feature name
// per line, in the given (vectorizer index) order.
func WriteFeatureNames(path string, names []string) error {
	return write(path, []byte(strings.Join(names, "\n")+"\n"))
}

func write(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %q", dir)
		}
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "failed to write %q", path)
}
