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

package vision

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"

	"github.com/mlexport/examples/onnxwriter"
)

// Export translates the CNN's variables in ctx into an ONNX graph with a
// dynamic batch_size axis. gomlx computes in channels-last (NHWC) while the
// exported graph is channels-first (NCHW), so conv kernels are permuted from
// [kh, kw, in, out] to [out, in, kh, kw] and the rows of the first dense
// layer are reordered to match the NCHW flatten order.
func Export(ctx *context.Context) (*onnxwriter.Model, error) {
	conv1W, conv1B, err := convInitializers(ctx, "/conv1/conv", "conv1_weights", "conv1_bias")
	if err != nil {
		return nil, err
	}
	conv2W, conv2B, err := convInitializers(ctx, "/conv2/conv", "conv2_weights", "conv2_bias")
	if err != nil {
		return nil, err
	}
	fc1W, fc1B, err := denseInitializers(ctx, "/fc1/dense", "fc1_weights", "fc1_bias", true)
	if err != nil {
		return nil, err
	}
	fc2W, fc2B, err := denseInitializers(ctx, "/fc2/dense", "fc2_weights", "fc2_bias", false)
	if err != nil {
		return nil, err
	}

	g := onnxwriter.NewGraph("image_classifier")
	g.Input(onnxwriter.Value("input", onnxwriter.Float, "batch_size", 3, InputSize, InputSize))
	g.Output(onnxwriter.Value("output", onnxwriter.Float, "batch_size", NumClasses))
	g.Initializer(conv1W).Initializer(conv1B)
	g.Initializer(conv2W).Initializer(conv2B)
	g.Initializer(fc1W).Initializer(fc1B)
	g.Initializer(fc2W).Initializer(fc2B)

	g.AddNode("Conv", []string{"input", "conv1_weights", "conv1_bias"}, []string{"conv1"},
		onnxwriter.IntsAttr("kernel_shape", 3, 3))
	g.AddNode("Relu", []string{"conv1"}, []string{"relu1"})
	g.AddNode("MaxPool", []string{"relu1"}, []string{"pool1"},
		onnxwriter.IntsAttr("kernel_shape", 2, 2),
		onnxwriter.IntsAttr("strides", 2, 2))
	g.AddNode("Conv", []string{"pool1", "conv2_weights", "conv2_bias"}, []string{"conv2"},
		onnxwriter.IntsAttr("kernel_shape", 3, 3))
	g.AddNode("Relu", []string{"conv2"}, []string{"relu2"})
	g.AddNode("MaxPool", []string{"relu2"}, []string{"pool2"},
		onnxwriter.IntsAttr("kernel_shape", 2, 2),
		onnxwriter.IntsAttr("strides", 2, 2))
	g.AddNode("Flatten", []string{"pool2"}, []string{"flat"},
		onnxwriter.IntAttr("axis", 1))
	g.AddNode("Gemm", []string{"flat", "fc1_weights", "fc1_bias"}, []string{"fc1"})
	g.AddNode("Relu", []string{"fc1"}, []string{"relu3"})
	g.AddNode("Gemm", []string{"relu3", "fc2_weights", "fc2_bias"}, []string{"fc2"})
	g.AddNode("Relu", []string{"fc2"}, []string{"output"})

	return onnxwriter.NewModel(g).
		WithDocString("Tiny image-classification CNN."), nil
}

// convInitializers extracts a convolution's kernel and bias from ctx and
// permutes the kernel from gomlx's [kh, kw, in, out] to ONNX's
// [out, in, kh, kw].
func convInitializers(ctx *context.Context, scope, wName, bName string) (w, b *onnxwriter.Tensor, err error) {
	wVar := ctx.GetVariableByScopeAndName(scope, "weights")
	bVar := ctx.GetVariableByScopeAndName(scope, "biases")
	if wVar == nil || bVar == nil {
		return nil, nil, errors.Errorf("no convolution variables found under scope %q", scope)
	}
	wData, err := flatFloats(wVar.MustValue())
	if err != nil {
		return nil, nil, err
	}
	bData, err := flatFloats(bVar.MustValue())
	if err != nil {
		return nil, nil, err
	}
	shape := wVar.Shape()
	kh, kw, in, out := shape.Dim(0), shape.Dim(1), shape.Dim(2), shape.Dim(3)
	w = onnxwriter.FloatTensor(wName, []int{out, in, kh, kw},
		permuteConvKernel(wData, kh, kw, in, out))
	b = onnxwriter.FloatTensor(bName, []int{len(bData)}, bData)
	return w, b, nil
}

// denseInitializers extracts a dense layer's weights [in, out] and biases
// [out] from ctx. With afterFlatten set, the weight rows are reordered from
// the NHWC flatten order the model was built with to the NCHW flatten order
// of the exported graph.
func denseInitializers(ctx *context.Context, scope, wName, bName string, afterFlatten bool) (w, b *onnxwriter.Tensor, err error) {
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
	shape := wVar.Shape()
	if afterFlatten {
		wData = reorderDenseRows(wData, PooledSize, PooledSize, Conv2Channels, shape.Dim(1))
	}
	w = onnxwriter.FloatTensor(wName, []int{shape.Dim(0), shape.Dim(1)}, wData)
	b = onnxwriter.FloatTensor(bName, []int{len(bData)}, bData)
	return w, b, nil
}

// permuteConvKernel reorders a flat [kh, kw, in, out] kernel into
// [out, in, kh, kw] order.
func permuteConvKernel(data []float32, kh, kw, in, out int) []float32 {
	permuted := make([]float32, len(data))
	for h := 0; h < kh; h++ {
		for x := 0; x < kw; x++ {
			for i := 0; i < in; i++ {
				for o := 0; o < out; o++ {
					oldIdx := ((h*kw+x)*in+i)*out + o
					newIdx := ((o*in+i)*kh+h)*kw + x
					permuted[newIdx] = data[oldIdx]
				}
			}
		}
	}
	return permuted
}

// reorderDenseRows remaps the rows of a flat [h*w*c, cols] weight matrix
// from (h, w, c) row order to (c, h, w) row order.
func reorderDenseRows(data []float32, h, w, c, cols int) []float32 {
	reordered := make([]float32, len(data))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			for ch := 0; ch < c; ch++ {
				oldRow := (y*w+x)*c + ch
				newRow := (ch*h+y)*w + x
				copy(reordered[newRow*cols:(newRow+1)*cols], data[oldRow*cols:(oldRow+1)*cols])
			}
		}
	}
	return reordered
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
