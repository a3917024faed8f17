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

// Package textgen holds two LSTM-based toy text models and their ONNX
// exporters.
//
// The "generator" is an untrained LSTM (input 256 -> hidden 512) with a
// fully-connected head over the last hidden state; it exists only to
// demonstrate exporting an LSTM graph with dynamic batch and sequence axes.
//
// The "sequence model" is a character-level model -- each character becomes
// ord(c)/255, one feature per step, padded to MaxLength -- with two stacked
// LSTM layers and a per-step fully-connected head, trained with MSE on a
// fixed three-row echo dataset.
//
// GoMLX's lstm layer stores its weights in the exact layout of the ONNX LSTM
// operator (gate order i,o,f,c; biases W then R), so the exporters reshape
// the trained variables into the W/R/B initializers without permuting data.
package textgen

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/lstm"
	"github.com/pkg/errors"

	"github.com/mlexport/examples/onnxwriter"
)

// Generator model dimensions.
const (
	GeneratorInputSize  = 256
	GeneratorHiddenSize = 512
	GeneratorOutputSize = 256
	GeneratorSeqLen     = 32
)

// Sequence model dimensions.
const (
	MaxLength  = 128
	HiddenSize = 256
)

// GeneratorModelGraph is the untrained text generator: LSTM over the input
// sequence, fully-connected head on the last hidden state.
// Input: [batch, seq, GeneratorInputSize]. Output: [batch, GeneratorOutputSize].
func GeneratorModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	x := inputs[0]
	_, lastHidden, _ := lstm.New(ctx.In("lstm"), x, GeneratorHiddenSize).Done()
	// lastHidden: [numDirections=1, batch, hidden].
	h := Squeeze(lastHidden, 0)
	out := layers.Dense(ctx, h, true, GeneratorOutputSize)
	return []*Node{out}
}

// SequenceModelGraph is the trainable character model: two stacked LSTM
// layers with a per-step fully-connected projection to one value.
// Input: [batch, MaxLength]. Output: [batch, MaxLength].
func SequenceModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	x := ExpandAxes(inputs[0], -1) // [batch, seq, 1]

	h := x
	for layer := 0; layer < 2; layer++ {
		allHidden, _, _ := lstm.New(ctx.Inf("lstm%d", layer+1), h, HiddenSize).Done()
		// allHidden: [seq, numDirections=1, batch, hidden].
		h = Transpose(Squeeze(allHidden, 1), 0, 1) // [batch, seq, hidden]
	}

	out := layers.Dense(ctx, h, true, 1) // [batch, seq, 1]
	return []*Node{Squeeze(out, -1)}
}

// trainingRows is the fixed toy dataset: (text, context) pairs.
var trainingRows = [][2]string{
	{"What is machine learning?", "AI and computer science"},
	{"How does LSTM work?", "Neural networks and deep learning"},
	{"Explain backpropagation", "Training neural networks"},
}

// Encode turns text into its fixed-length feature sequence: one value per
// character, ord(c)/255, truncated/zero-padded to MaxLength.
func Encode(text string) []float32 {
	out := make([]float32, MaxLength)
	for i, r := range []rune(text) {
		if i >= MaxLength {
			break
		}
		out[i] = float32(r) / 255.0
	}
	return out
}

// TrainingBatch returns the encoded training inputs and their echo targets,
// both shaped [numRows, MaxLength].
func TrainingBatch() (inputs, targets [][]float32) {
	for _, row := range trainingRows {
		encoded := Encode(fmt.Sprintf("Context: %s\nInput: %s", row[1], row[0]))
		inputs = append(inputs, encoded)
		// Echo targets: the model learns to reproduce its input.
		targets = append(targets, encoded)
	}
	return
}

// ExportGenerator translates the generator's variables in ctx into an ONNX
// graph with dynamic batch_size and sequence_length axes:
//
//	input [batch, seq, 256] -> Transpose -> LSTM(512) -> Squeeze -> Gemm -> output [batch, 256]
func ExportGenerator(ctx *context.Context) (*onnxwriter.Model, error) {
	w, r, b, err := lstmInitializers(ctx, "/lstm", "W", "R", "B")
	if err != nil {
		return nil, err
	}
	fcW, fcB, err := denseInitializers(ctx, "/dense", "fc_weights", "fc_bias")
	if err != nil {
		return nil, err
	}

	g := onnxwriter.NewGraph("text-generation")
	g.Input(onnxwriter.Value("input", onnxwriter.Float,
		"batch_size", "sequence_length", GeneratorInputSize))
	g.Output(onnxwriter.Value("output", onnxwriter.Float, "batch_size", GeneratorOutputSize))
	g.Initializer(w).Initializer(r).Initializer(b)
	g.Initializer(fcW).Initializer(fcB)

	// ONNX LSTM wants [seq, batch, features].
	g.AddNode("Transpose", []string{"input"}, []string{"input_tnc"},
		onnxwriter.IntsAttr("perm", 1, 0, 2))
	g.AddNode("LSTM", []string{"input_tnc", "W", "R", "B"},
		[]string{"hidden_seq", "last_hidden"},
		onnxwriter.IntAttr("hidden_size", GeneratorHiddenSize))
	// last_hidden: [numDirections=1, batch, hidden].
	g.AddNode("Squeeze", []string{"last_hidden"}, []string{"last_hidden_2d"},
		onnxwriter.IntsAttr("axes", 0))
	g.AddNode("Gemm", []string{"last_hidden_2d", "fc_weights", "fc_bias"}, []string{"output"})

	return onnxwriter.NewModel(g).
		WithDocString("Untrained LSTM text generator."), nil
}

// ExportSequenceModel translates the trained sequence model's variables in
// ctx into an ONNX graph with a dynamic batch_size axis:
//
//	input [batch, 128] -> Unsqueeze -> Transpose -> LSTM(256) -> LSTM(256)
//	  -> Transpose -> MatMul+Add -> Squeeze -> output [batch, 128]
func ExportSequenceModel(ctx *context.Context) (*onnxwriter.Model, error) {
	g := onnxwriter.NewGraph("miprov2")
	g.Input(onnxwriter.Value("input", onnxwriter.Float, "batch_size", MaxLength))
	g.Output(onnxwriter.Value("output", onnxwriter.Float, "batch_size", MaxLength))

	g.AddNode("Unsqueeze", []string{"input"}, []string{"input_bt1"},
		onnxwriter.IntsAttr("axes", 2))
	g.AddNode("Transpose", []string{"input_bt1"}, []string{"h0"},
		onnxwriter.IntsAttr("perm", 1, 0, 2))

	prev := "h0"
	for layer := 1; layer <= 2; layer++ {
		scope := fmt.Sprintf("/lstm%d", layer)
		wName := fmt.Sprintf("W%d", layer)
		rName := fmt.Sprintf("R%d", layer)
		bName := fmt.Sprintf("B%d", layer)
		w, r, b, err := lstmInitializers(ctx, scope, wName, rName, bName)
		if err != nil {
			return nil, err
		}
		g.Initializer(w).Initializer(r).Initializer(b)

		seqOut := fmt.Sprintf("h%d_seq", layer)
		out := fmt.Sprintf("h%d", layer)
		g.AddNode("LSTM", []string{prev, wName, rName, bName}, []string{seqOut},
			onnxwriter.IntAttr("hidden_size", HiddenSize))
		// Y: [seq, numDirections=1, batch, hidden] -> [seq, batch, hidden].
		g.AddNode("Squeeze", []string{seqOut}, []string{out},
			onnxwriter.IntsAttr("axes", 1))
		prev = out
	}

	fcW, fcB, err := denseInitializers(ctx, "/dense", "fc_weights", "fc_bias")
	if err != nil {
		return nil, err
	}
	g.Initializer(fcW).Initializer(fcB)

	g.AddNode("Transpose", []string{prev}, []string{"h_btc"},
		onnxwriter.IntsAttr("perm", 1, 0, 2))
	g.AddNode("MatMul", []string{"h_btc", "fc_weights"}, []string{"proj"})
	g.AddNode("Add", []string{"proj", "fc_bias"}, []string{"proj_biased"})
	g.AddNode("Squeeze", []string{"proj_biased"}, []string{"output"},
		onnxwriter.IntsAttr("axes", 2))

	return onnxwriter.NewModel(g).
		WithDocString("Character-level LSTM sequence model trained on toy data."), nil
}

// lstmInitializers reshapes the gomlx lstm variables under scope into the
// ONNX LSTM W/R/B initializers. gomlx shapes [1,4,h,f], [1,4,h,h] and
// [1,8,h] flatten to ONNX's [1,4h,f], [1,4h,h] and [1,8h] without moving
// any data.
func lstmInitializers(ctx *context.Context, scope, wName, rName, bName string) (w, r, b *onnxwriter.Tensor, err error) {
	wVar := ctx.GetVariableByScopeAndName(scope, "inputsW")
	rVar := ctx.GetVariableByScopeAndName(scope, "recurrentW")
	bVar := ctx.GetVariableByScopeAndName(scope, "biasesW")
	if wVar == nil || rVar == nil || bVar == nil {
		return nil, nil, nil, errors.Errorf("no LSTM variables found under scope %q", scope)
	}

	wData, err := flatFloats(wVar.MustValue())
	if err != nil {
		return nil, nil, nil, err
	}
	hidden := wVar.Shape().Dim(2)
	features := wVar.Shape().Dim(3)
	w = onnxwriter.FloatTensor(wName, []int{1, 4 * hidden, features}, wData)

	rData, err := flatFloats(rVar.MustValue())
	if err != nil {
		return nil, nil, nil, err
	}
	r = onnxwriter.FloatTensor(rName, []int{1, 4 * hidden, hidden}, rData)

	bData, err := flatFloats(bVar.MustValue())
	if err != nil {
		return nil, nil, nil, err
	}
	b = onnxwriter.FloatTensor(bName, []int{1, 8 * hidden}, bData)
	return w, r, b, nil
}

// denseInitializers extracts a dense layer's weights [in, out] and biases
// [out] from ctx -- already the layout Gemm/MatMul expect.
func denseInitializers(ctx *context.Context, scope, wName, bName string) (w, b *onnxwriter.Tensor, err error) {
	wVar := ctx.GetVariableByScopeAndName(scope, "weights")
	bVar := ctx.GetVariableByScopeAndName(scope, "biases")
	if wVar == nil || bVar == nil {
		return nil, nil, errors.Errorf("no dense variables found under scope %q", scope)
	}
	wData, err := flatFloats(wVar.MustValue())
	if err != nil {
		return nil, nil, err
	}
	bData, err := flatFloats(bVar.MustValue())
	if err != nil {
		return nil, nil, err
	}
	wShape := wVar.Shape()
	w = onnxwriter.FloatTensor(wName, []int{wShape.Dim(0), wShape.Dim(1)}, wData)
	b = onnxwriter.FloatTensor(bName, []int{len(bData)}, bData)
	return w, b, nil
}

func flatFloats(t *tensors.Tensor) ([]float32, error) {
	out := make([]float32, 0, t.Size())
	err := tensors.ConstFlatData(t, func(flat []float32) {
		out = append(out, flat...)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to read tensor data")
	}
	return out, nil
}
