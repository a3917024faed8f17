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

// textgraph hand-builds the smallest possible ONNX model: a single Concat
// node that passes a string tensor from input to output. It is the "hello
// world" of producing an exported inference-graph file -- no framework, no
// weights, no training.
//
// Usage:
//
//	go run ./textgraph
package main

import (
	"flag"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/mlexport/examples/onnxwriter"
)

var flagOutput = flag.String("output", "models/text-generation.onnx", "Path of the exported ONNX file.")

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	g := onnxwriter.NewGraph("text-generation")
	g.Input(onnxwriter.Value("input", onnxwriter.String, 1))
	g.Output(onnxwriter.Value("output", onnxwriter.String, 1))
	g.AddNode("Concat", []string{"input"}, []string{"output"},
		onnxwriter.IntAttr("axis", 0))

	model := onnxwriter.NewModel(g).
		WithDocString("Toy graph that concatenates its string input.")
	if err := model.Save(*flagOutput); err != nil {
		klog.Fatalf("Failed to save model: %+v", err)
	}
	fmt.Printf("Model saved to %s\n", *flagOutput)
}
