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

package onnxwriter_test

import (
	"os"
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

	"github.com/mlexport/examples/onnxwriter"
)

// concatModel is the string-concatenation toy graph: a single Concat node
// from "input" to "output".
func concatModel() *onnxwriter.Model {
	g := onnxwriter.NewGraph("text-generation")
	g.Input(onnxwriter.Value("input", onnxwriter.String, 1))
	g.Output(onnxwriter.Value("output", onnxwriter.String, 1))
	g.AddNode("Concat", []string{"input"}, []string{"output"},
		onnxwriter.IntAttr("axis", 0))
	return onnxwriter.NewModel(g)
}

func TestSaveAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text-generation.onnx")
	require.NoError(t, concatModel().Save(path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(0))

	model, err := parser.ParseFile(path)
	require.NoError(t, err, "exported file must parse as ONNX")
	defer model.Close()

	inputNames, _ := model.Inputs()
	outputNames, _ := model.Outputs()
	assert.Equal(t, []string{"input"}, inputNames)
	assert.Equal(t, []string{"output"}, outputNames)
}

func TestSaveCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "nested", "m.onnx")
	require.NoError(t, concatModel().Save(path))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

// TestExecuteExported writes a small linear model (MatMul+Add with float
// initializers) and runs it back through onnx-gomlx: this checks the wire
// encoding of initializers, attributes and shapes end-to-end, not just that
// the file parses.
func TestExecuteExported(t *testing.T) {
	g := onnxwriter.NewGraph("linear")
	g.Input(onnxwriter.Value("x", onnxwriter.Float, "batch_size", 2))
	g.Output(onnxwriter.Value("y", onnxwriter.Float, "batch_size", 1))
	g.Initializer(onnxwriter.FloatTensor("w", []int{2, 1}, []float32{2, 3}))
	g.Initializer(onnxwriter.FloatTensor("b", []int{1}, []float32{10}))
	g.AddNode("MatMul", []string{"x", "w"}, []string{"xw"})
	g.AddNode("Add", []string{"xw", "b"}, []string{"y"})

	path := filepath.Join(t.TempDir(), "linear.onnx")
	require.NoError(t, onnxwriter.NewModel(g).Save(path))

	model, err := parser.ParseFile(path)
	require.NoError(t, err)
	defer model.Close()

	ctx := context.New()
	require.NoError(t, model.VariablesToContext(ctx))

	backend := backends.MustNew()
	defer backend.Finalize()
	output := context.MustExecOnce(backend, ctx,
		func(ctx *context.Context, x *Node) *Node {
			return model.CallGraph(ctx, x.Graph(), map[string]*Node{"x": x})[0]
		},
		tensors.FromValue([][]float32{{1, 1}, {0, 5}}))

	got := output.Value().([][]float32)
	require.Len(t, got, 2)
	// y = 2*x0 + 3*x1 + 10
	assert.InDelta(t, 15.0, got[0][0], 1e-5)
	assert.InDelta(t, 25.0, got[1][0], 1e-5)
}

func TestDeterministicSerialization(t *testing.T) {
	m := concatModel()
	b1, err := m.Bytes()
	require.NoError(t, err)
	b2, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	// Re-saving overwrites with identical content.
	path := filepath.Join(t.TempDir(), "m.onnx")
	require.NoError(t, m.Save(path))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, m.Save(path))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidation(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		_, err := onnxwriter.NewModel(onnxwriter.NewGraph("empty")).Bytes()
		require.Error(t, err)
	})

	t.Run("initializer size mismatch", func(t *testing.T) {
		g := onnxwriter.NewGraph("bad")
		g.AddNode("Identity", []string{"w"}, []string{"y"})
		g.Initializer(onnxwriter.FloatTensor("w", []int{2, 2}, []float32{1, 2, 3}))
		_, err := onnxwriter.NewModel(g).Bytes()
		require.ErrorContains(t, err, "4 elements")
	})

	t.Run("node without op type", func(t *testing.T) {
		g := onnxwriter.NewGraph("bad")
		g.AddNode("", []string{"a"}, []string{"b"})
		_, err := onnxwriter.NewModel(g).Bytes()
		require.Error(t, err)
	})
}
