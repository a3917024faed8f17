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

// create builds the untrained LSTM text generator, runs one forward pass on
// a random input to materialize (and sanity-check) the graph, and exports it
// to ONNX with dynamic batch and sequence axes.
//
// Usage:
//
//	go run ./textgen/create
package main

import (
	"flag"
	"fmt"
	"math/rand"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/mlexport/examples/textgen"
)

var flagOutput = flag.String("output", "models/text-generation.onnx", "Path of the exported ONNX file.")

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	backend := backends.MustNew()
	defer backend.Finalize()
	ctx := context.New()

	// Forward pass on a random [1, seq, features] input: initializes the
	// variables and verifies the graph is well-formed.
	input := make([]float32, textgen.GeneratorSeqLen*textgen.GeneratorInputSize)
	for i := range input {
		input[i] = float32(rand.NormFloat64())
	}
	output := context.MustExecOnce(backend, ctx,
		func(ctx *context.Context, x *Node) *Node {
			return textgen.GeneratorModelGraph(ctx, nil, []*Node{x})[0]
		},
		tensors.FromFlatDataAndDimensions(input, 1, textgen.GeneratorSeqLen, textgen.GeneratorInputSize))
	fmt.Printf("Forward pass output shape: %s\n", output.Shape())

	model := must.M1(textgen.ExportGenerator(ctx))
	must.M(model.Save(*flagOutput))
	fmt.Println("ONNX model created successfully")
}
