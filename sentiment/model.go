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

package sentiment

import (
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"

	"github.com/mlexport/examples/onnxwriter"
)

// ModelGraph is the logistic-regression model: a single dense layer from the
// bag-of-words features to one logit.
func ModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	logits := layers.Dense(ctx, inputs[0], true, 1)
	return []*Node{logits}
}

// Train fits the logistic regression on the given count vectors and binary
// labels, full-batch, for the given number of steps. It returns the context
// holding the trained weights and the final training loss.
func Train(backend backends.Backend, features [][]float32, labels []float32, steps int) (*context.Context, float32, error) {
	ctx := context.New()
	ctx.SetParam(optimizers.ParamLearningRate, 0.1)
	trainer := train.NewTrainer(backend, ctx, ModelGraph,
		losses.BinaryCrossentropyLogits,
		optimizers.Adam().Done(),
		nil, nil) // trainMetrics, evalMetrics

	// Labels shaped [numExamples, 1] to match the logits.
	labelRows := make([][]float32, len(labels))
	for i, l := range labels {
		labelRows[i] = []float32{l}
	}
	inputT := tensors.FromValue(features)
	labelT := tensors.FromValue(labelRows)

	var loss float32
	for step := 0; step < steps; step++ {
		metrics, err := trainer.TrainStep(nil, []*tensors.Tensor{inputT}, []*tensors.Tensor{labelT})
		if err != nil {
			return nil, 0, errors.WithMessagef(err, "training step %d failed", step)
		}
		loss = metrics[0].Value().(float32)
	}
	return ctx, loss, nil
}

// Predict returns the positive-class probability for each count vector,
// using the trained weights in ctx.
func Predict(backend backends.Backend, ctx *context.Context, features [][]float32) ([]float32, error) {
	ctx = ctx.Reuse()
	results, err := context.ExecOnceN(backend, ctx,
		func(ctx *context.Context, x *Node) *Node {
			return Sigmoid(ModelGraph(ctx, nil, []*Node{x})[0])
		},
		tensors.FromValue(features))
	if err != nil {
		return nil, errors.WithMessage(err, "inference failed")
	}
	rows := results[0].Value().([][]float32)
	probs := make([]float32, len(rows))
	for i, row := range rows {
		probs[i] = row[0]
	}
	return probs, nil
}

// Export translates the trained logistic regression into an ONNX model:
//
//	float_input [batch_size, numFeatures]
//	  -> Gemm(coefficients, intercept) -> Sigmoid -> probability
//	  -> Greater(0.5) -> Cast(int64)              -> label
//
// Only the classifier is exported; the vectorizer stays on the caller's
// side, described by the feature-name list.
func Export(ctx *context.Context, numFeatures int) (*onnxwriter.Model, error) {
	wVar := ctx.GetVariableByScopeAndName("/dense", "weights")
	bVar := ctx.GetVariableByScopeAndName("/dense", "biases")
	if wVar == nil || bVar == nil {
		return nil, errors.New("no trained dense layer found in context (was Train called?)")
	}
	weights, err := flatFloats(wVar.MustValue())
	if err != nil {
		return nil, err
	}
	biases, err := flatFloats(bVar.MustValue())
	if err != nil {
		return nil, err
	}
	if len(weights) != numFeatures {
		return nil, errors.Errorf("trained weights have %d features, want %d", len(weights), numFeatures)
	}

	g := onnxwriter.NewGraph("text_classifier")
	g.Input(onnxwriter.Value("float_input", onnxwriter.Float, "batch_size", numFeatures))
	g.Output(onnxwriter.Value("probability", onnxwriter.Float, "batch_size", 1))
	g.Output(onnxwriter.Value("label", onnxwriter.Int64, "batch_size", 1))
	g.Initializer(onnxwriter.FloatTensor("coefficients", []int{numFeatures, 1}, weights))
	g.Initializer(onnxwriter.FloatTensor("intercept", []int{1}, biases))
	g.Initializer(onnxwriter.FloatTensor("threshold", nil, []float32{0.5}))
	g.AddNode("Gemm", []string{"float_input", "coefficients", "intercept"}, []string{"logits"})
	g.AddNode("Sigmoid", []string{"logits"}, []string{"probability"})
	g.AddNode("Greater", []string{"probability", "threshold"}, []string{"is_positive"})
	g.AddNode("Cast", []string{"is_positive"}, []string{"label"},
		onnxwriter.IntAttr("to", int64(onnxwriter.Int64)))

	return onnxwriter.NewModel(g).
		WithDocString("Logistic regression over bag-of-words features."), nil
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
