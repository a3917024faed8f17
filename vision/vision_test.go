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
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/simplego"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/onnx-gomlx/onnx/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermuteConvKernel(t *testing.T) {
	// [kh=1, kw=2, in=2, out=2], flat value encodes (x, i, o) as x*100+i*10+o.
	kernel := make([]float32, 8)
	for x := 0; x < 2; x++ {
		for i := 0; i < 2; i++ {
			for o := 0; o < 2; o++ {
				kernel[(x*2+i)*2+o] = float32(x*100 + i*10 + o)
			}
		}
	}
	permuted := permuteConvKernel(kernel, 1, 2, 2, 2)
	// [out, in, kh, kw] order.
	for o := 0; o < 2; o++ {
		for i := 0; i < 2; i++ {
			for x := 0; x < 2; x++ {
				assert.Equal(t, float32(x*100+i*10+o), permuted[(o*2+i)*2+x])
			}
		}
	}
}

func TestReorderDenseRows(t *testing.T) {
	// [h=2, w=2, c=2] rows, one column each, values equal to the old row index.
	rows := make([]float32, 8)
	for i := range rows {
		rows[i] = float32(i)
	}
	reordered := reorderDenseRows(rows, 2, 2, 2, 1)
	// (h, w, c) order rewritten as (c, h, w) order.
	assert.Equal(t, []float32{0, 2, 4, 6, 1, 3, 5, 7}, reordered)
}

func TestModelForwardAndExport(t *testing.T) {
	backend := backends.MustNew()
	defer backend.Finalize()
	ctx := context.New()

	input := InputTensor(SyntheticImage())
	require.Equal(t, []int{1, InputSize, InputSize, 3}, input.Shape().Dimensions)

	output := context.MustExecOnce(backend, ctx,
		func(ctx *context.Context, image *Node) *Node {
			return ModelGraph(ctx, nil, []*Node{image})[0]
		}, input)
	require.Equal(t, []int{1, NumClasses}, output.Shape().Dimensions)

	// conv1 + conv2 + fc1 + fc2, weights and biases.
	wantParams := int64(3*3*3*32+32) + int64(3*3*32*64+64) +
		int64(PooledSize*PooledSize*Conv2Channels*128+128) + int64(128*NumClasses+NumClasses)
	assert.Equal(t, wantParams, ParameterCount(ctx))

	model, err := Export(ctx)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "image-classifier.onnx")
	require.NoError(t, model.Save(path))

	loaded, err := parser.ParseFile(path)
	require.NoError(t, err, "exported CNN must parse as ONNX")
	defer loaded.Close()
	inputNames, _ := loaded.Inputs()
	outputNames, _ := loaded.Outputs()
	assert.Equal(t, []string{"input"}, inputNames)
	assert.Equal(t, []string{"output"}, outputNames)
}

func TestExportWithoutVariables(t *testing.T) {
	_, err := Export(context.New())
	require.ErrorContains(t, err, "/conv1")
}
