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

// Package vision defines a tiny image-classification CNN and its ONNX
// exporter.
//
// The architecture is the classic toy shape: two conv/relu/maxpool blocks,
// flatten, two dense layers. The second conv's input channels and the first
// dense layer's input features are fully determined by the surrounding
// layers (32 channels, and 64*54*54 features for a 224x224 input).
package vision

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

const (
	// InputSize is the height and width of the model input.
	InputSize = 224
	// NumClasses is the number of output classes.
	NumClasses = 2

	// PooledSize is the spatial size after the two conv/pool blocks:
	// 224 -conv3-> 222 -pool2-> 111 -conv3-> 109 -pool2-> 54.
	PooledSize = 54
	// Conv2Channels is the channel count after the second conv block.
	Conv2Channels = 64
)

// ModelGraph builds the CNN. Input: [batch, 224, 224, 3] (channels-last,
// gomlx's default). Output: [batch, NumClasses].
func ModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	x := inputs[0]
	batchSize := x.Shape().Dimensions[0]

	x = layers.Convolution(ctx.In("conv1"), x).Channels(32).KernelSize(3).Done()
	x = activations.Relu(x)
	x = MaxPool(x).Window(2).Done()
	x.AssertDims(batchSize, 111, 111, 32)

	x = layers.Convolution(ctx.In("conv2"), x).Channels(Conv2Channels).KernelSize(3).Done()
	x = activations.Relu(x)
	x = MaxPool(x).Window(2).Done()
	x.AssertDims(batchSize, PooledSize, PooledSize, Conv2Channels)

	x = Reshape(x, batchSize, PooledSize*PooledSize*Conv2Channels)
	x = layers.Dense(ctx.In("fc1"), x, true, 128)
	x = activations.Relu(x)
	x = layers.Dense(ctx.In("fc2"), x, true, NumClasses)
	x = activations.Relu(x)
	return []*Node{x}
}

// ParameterCount sums the sizes of all variables in ctx.
func ParameterCount(ctx *context.Context) int64 {
	var count int64
	ctx.EnumerateVariables(func(v *context.Variable) {
		count += int64(v.Shape().Size())
	})
	return count
}
