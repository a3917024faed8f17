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

// Package onnxwriter builds ONNX model files (ModelProto) and serializes them
// to the ONNX protobuf wire format.
//
// It covers the subset of ONNX needed to export small models: graphs with
// named input/output ports (fixed or symbolic dimensions), nodes with the
// common attribute types, and float/int64/string initializers.
//
// The serialization is written directly with
// google.golang.org/protobuf/encoding/protowire against the field numbers of
// onnx.proto (see https://onnx.ai/onnx/repo-docs/IR.html) -- ONNX's protos
// are not published as an importable Go package, so there is no generated
// code to link against.
//
// Typical usage:
//
//	g := onnxwriter.NewGraph("text-generation")
//	g.Input(onnxwriter.Value("input", onnxwriter.String, 1))
//	g.Output(onnxwriter.Value("output", onnxwriter.String, 1))
//	g.AddNode("Concat", []string{"input"}, []string{"output"},
//		onnxwriter.IntAttr("axis", 0))
//	err := onnxwriter.NewModel(g).Save("models/text-generation.onnx")
package onnxwriter

import (
	"github.com/pkg/errors"
)

// DataType is the ONNX TensorProto.DataType enum, for the element types
// supported by this writer.
type DataType int32

const (
	Undefined DataType = 0
	Float     DataType = 1
	Int32     DataType = 6
	Int64     DataType = 7
	String    DataType = 8
	Bool      DataType = 9
	Double    DataType = 11
)

// Dim is one axis of a declared tensor shape: either a fixed size or a
// symbolic (dynamic) dimension referred to by name, e.g. "batch_size".
type Dim struct {
	Size  int64
	Param string
}

// FixedDim returns a dimension with a known static size.
func FixedDim(size int) Dim { return Dim{Size: int64(size)} }

// SymbolicDim returns a named dynamic dimension.
func SymbolicDim(name string) Dim { return Dim{Param: name} }

// ValueInfo declares a named graph port (input or output) with its element
// type and shape.
type ValueInfo struct {
	Name string
	Type DataType
	Dims []Dim
}

// Value builds a ValueInfo. Each dim is either an int (fixed size) or a
// string (symbolic dimension name).
//
// It panics on other dim types: port declarations are always literal in the
// exporters, so a bad type is a programming error, not an input error.
func Value(name string, dtype DataType, dims ...any) ValueInfo {
	v := ValueInfo{Name: name, Type: dtype, Dims: make([]Dim, 0, len(dims))}
	for _, dim := range dims {
		switch d := dim.(type) {
		case int:
			v.Dims = append(v.Dims, FixedDim(d))
		case int64:
			v.Dims = append(v.Dims, Dim{Size: d})
		case string:
			v.Dims = append(v.Dims, SymbolicDim(d))
		default:
			panic(errors.Errorf("onnxwriter.Value(%q): dimension must be an int or a string, got %T", name, dim))
		}
	}
	return v
}

// attrKind is the ONNX AttributeProto.AttributeType enum.
type attrKind int32

const (
	attrFloat   attrKind = 1
	attrInt     attrKind = 2
	attrString  attrKind = 3
	attrTensor  attrKind = 4
	attrFloats  attrKind = 6
	attrInts    attrKind = 7
	attrStrings attrKind = 8
)

// Attribute is a named, typed attribute of a Node.
// Build them with IntAttr, FloatAttr, StringAttr, IntsAttr, FloatsAttr,
// StringsAttr or TensorAttr.
type Attribute struct {
	Name string

	kind    attrKind
	i       int64
	f       float32
	s       []byte
	ints    []int64
	floats  []float32
	strings [][]byte
	t       *Tensor
}

// IntAttr returns an INT attribute.
func IntAttr(name string, value int64) Attribute {
	return Attribute{Name: name, kind: attrInt, i: value}
}

// FloatAttr returns a FLOAT attribute.
func FloatAttr(name string, value float32) Attribute {
	return Attribute{Name: name, kind: attrFloat, f: value}
}

// StringAttr returns a STRING attribute.
func StringAttr(name, value string) Attribute {
	return Attribute{Name: name, kind: attrString, s: []byte(value)}
}

// IntsAttr returns an INTS attribute.
func IntsAttr(name string, values ...int64) Attribute {
	return Attribute{Name: name, kind: attrInts, ints: values}
}

// FloatsAttr returns a FLOATS attribute.
func FloatsAttr(name string, values ...float32) Attribute {
	return Attribute{Name: name, kind: attrFloats, floats: values}
}

// StringsAttr returns a STRINGS attribute.
func StringsAttr(name string, values ...string) Attribute {
	a := Attribute{Name: name, kind: attrStrings}
	for _, v := range values {
		a.strings = append(a.strings, []byte(v))
	}
	return a
}

// TensorAttr returns a TENSOR attribute.
func TensorAttr(name string, t *Tensor) Attribute {
	return Attribute{Name: name, kind: attrTensor, t: t}
}

// Node is one operation of the graph. Inputs and outputs refer to value
// names: graph ports, initializers or other nodes' outputs.
type Node struct {
	OpType     string
	Name       string
	Domain     string
	Inputs     []string
	Outputs    []string
	Attributes []Attribute
}

// Tensor is a constant tensor, used as a graph initializer (the exported
// model weights) or as a TENSOR attribute value. Exactly one of the data
// slices must be set, matching Type. Nil Dims means a scalar.
type Tensor struct {
	Name string
	Type DataType
	Dims []int64

	Floats  []float32
	Int64s  []int64
	Strings [][]byte
}

// FloatTensor builds a FLOAT tensor from flat data in row-major order.
func FloatTensor(name string, dims []int, data []float32) *Tensor {
	return &Tensor{Name: name, Type: Float, Dims: toInt64(dims), Floats: data}
}

// Int64Tensor builds an INT64 tensor from flat data in row-major order.
func Int64Tensor(name string, dims []int, data []int64) *Tensor {
	return &Tensor{Name: name, Type: Int64, Dims: toInt64(dims), Int64s: data}
}

// StringTensor builds a STRING tensor.
func StringTensor(name string, dims []int, data []string) *Tensor {
	t := &Tensor{Name: name, Type: String, Dims: toInt64(dims)}
	for _, s := range data {
		t.Strings = append(t.Strings, []byte(s))
	}
	return t
}

func toInt64(dims []int) []int64 {
	if dims == nil {
		return nil
	}
	out := make([]int64, len(dims))
	for i, d := range dims {
		out[i] = int64(d)
	}
	return out
}

// numElements is the product of dims; 1 for a scalar.
func (t *Tensor) numElements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

func (t *Tensor) validate() error {
	if t.Name == "" {
		return errors.New("initializer tensor has no name")
	}
	var got int64
	switch t.Type {
	case Float:
		got = int64(len(t.Floats))
	case Int64:
		got = int64(len(t.Int64s))
	case String:
		got = int64(len(t.Strings))
	default:
		return errors.Errorf("tensor %q: unsupported data type %d", t.Name, t.Type)
	}
	if want := t.numElements(); got != want {
		return errors.Errorf("tensor %q: shape %v holds %d elements, but %d were given",
			t.Name, t.Dims, want, got)
	}
	return nil
}

// Graph is an ONNX GraphProto under construction.
type Graph struct {
	Name      string
	DocString string

	nodes        []*Node
	inputs       []ValueInfo
	outputs      []ValueInfo
	initializers []*Tensor
}

// NewGraph creates an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// Input declares a graph input port. Order of declaration is preserved.
func (g *Graph) Input(v ValueInfo) *Graph {
	g.inputs = append(g.inputs, v)
	return g
}

// Output declares a graph output port. Order of declaration is preserved.
func (g *Graph) Output(v ValueInfo) *Graph {
	g.outputs = append(g.outputs, v)
	return g
}

// Initializer adds a constant tensor to the graph.
func (g *Graph) Initializer(t *Tensor) *Graph {
	g.initializers = append(g.initializers, t)
	return g
}

// GetInitializer returns the initializer with the given name, or nil.
func (g *Graph) GetInitializer(name string) *Tensor {
	for _, t := range g.initializers {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// AddNode appends an operation to the graph and returns it, in case the
// caller wants to set Name or Domain. Nodes execute in topological order of
// their value dependencies; this writer emits them in insertion order, so
// insert producers before consumers.
func (g *Graph) AddNode(opType string, inputs, outputs []string, attrs ...Attribute) *Node {
	n := &Node{OpType: opType, Inputs: inputs, Outputs: outputs, Attributes: attrs}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *Graph) validate() error {
	if g.Name == "" {
		return errors.New("graph has no name")
	}
	if len(g.nodes) == 0 {
		return errors.Errorf("graph %q has no nodes", g.Name)
	}
	for _, n := range g.nodes {
		if n.OpType == "" {
			return errors.Errorf("graph %q: node with outputs %v has no op type", g.Name, n.Outputs)
		}
		if len(n.Outputs) == 0 {
			return errors.Errorf("graph %q: node %q (%s) has no outputs", g.Name, n.Name, n.OpType)
		}
	}
	for _, t := range g.initializers {
		if err := t.validate(); err != nil {
			return errors.WithMessagef(err, "graph %q", g.Name)
		}
	}
	return nil
}

// Model is an ONNX ModelProto under construction: a graph plus the
// model-level envelope (IR version, opset, producer).
type Model struct {
	Graph *Graph

	IRVersion       int64
	OpsetVersion    int64
	ProducerName    string
	ProducerVersion string
	DocString       string
}

// Defaults for models created with NewModel. Opset 12 is old enough for
// every operator used by the exporters and widely supported by runtimes.
const (
	DefaultIRVersion    = 8
	DefaultOpsetVersion = 12
	defaultProducer     = "mlexport"
)

// NewModel wraps a graph in a model with default IR version, opset and
// producer. Fields can be adjusted before calling Save or Write.
func NewModel(g *Graph) *Model {
	return &Model{
		Graph:        g,
		IRVersion:    DefaultIRVersion,
		OpsetVersion: DefaultOpsetVersion,
		ProducerName: defaultProducer,
	}
}

// WithOpset overrides the opset version. Returns the model for chaining.
func (m *Model) WithOpset(version int64) *Model {
	m.OpsetVersion = version
	return m
}

// WithDocString sets the model doc string. Returns the model for chaining.
func (m *Model) WithDocString(doc string) *Model {
	m.DocString = doc
	return m
}

func (m *Model) validate() error {
	if m.Graph == nil {
		return errors.New("model has no graph")
	}
	return m.Graph.validate()
}
