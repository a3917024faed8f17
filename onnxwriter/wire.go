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

package onnxwriter

import (
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from onnx.proto (the ONNX IR definition). Only the fields
// this writer emits are listed.
const (
	// ModelProto
	fieldModelIRVersion       = 1
	fieldModelProducerName    = 2
	fieldModelProducerVersion = 3
	fieldModelDocString       = 6
	fieldModelGraph           = 7
	fieldModelOpsetImport     = 8

	// OperatorSetIdProto
	fieldOpsetDomain  = 1
	fieldOpsetVersion = 2

	// GraphProto
	fieldGraphNode        = 1
	fieldGraphName        = 2
	fieldGraphInitializer = 5
	fieldGraphDocString   = 10
	fieldGraphInput       = 11
	fieldGraphOutput      = 12

	// NodeProto
	fieldNodeInput     = 1
	fieldNodeOutput    = 2
	fieldNodeName      = 3
	fieldNodeOpType    = 4
	fieldNodeAttribute = 5
	fieldNodeDomain    = 7

	// AttributeProto
	fieldAttrName    = 1
	fieldAttrFloat   = 2
	fieldAttrInt     = 3
	fieldAttrString  = 4
	fieldAttrTensor  = 5
	fieldAttrFloats  = 7
	fieldAttrInts    = 8
	fieldAttrStrings = 9
	fieldAttrType    = 20

	// ValueInfoProto
	fieldValueInfoName = 1
	fieldValueInfoType = 2

	// TypeProto / TypeProto.Tensor
	fieldTypeTensorType   = 1
	fieldTensorTypeElem   = 1
	fieldTensorTypeShape  = 2
	fieldShapeDim         = 1
	fieldDimValue         = 1
	fieldDimParam         = 2

	// TensorProto
	fieldTensorDims       = 1
	fieldTensorDataType   = 2
	fieldTensorFloatData  = 4
	fieldTensorStringData = 6
	fieldTensorInt64Data  = 7
	fieldTensorName       = 8
)

// Bytes serializes the model to the ONNX protobuf wire format.
func (m *Model) Bytes() ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid ONNX model")
	}
	var b []byte
	b = appendVarintField(b, fieldModelIRVersion, m.IRVersion)
	if m.ProducerName != "" {
		b = appendStringField(b, fieldModelProducerName, m.ProducerName)
	}
	if m.ProducerVersion != "" {
		b = appendStringField(b, fieldModelProducerVersion, m.ProducerVersion)
	}
	if m.DocString != "" {
		b = appendStringField(b, fieldModelDocString, m.DocString)
	}
	b = appendMessageField(b, fieldModelGraph, m.Graph.encode())

	// Default-domain opset import.
	var opset []byte
	opset = appendStringField(opset, fieldOpsetDomain, "")
	opset = appendVarintField(opset, fieldOpsetVersion, m.OpsetVersion)
	b = appendMessageField(b, fieldModelOpsetImport, opset)
	return b, nil
}

// Write serializes the model to w.
func (m *Model) Write(w io.Writer) error {
	b, err := m.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Wrap(err, "failed to write ONNX model")
}

// Save serializes the model to path, creating parent directories as needed.
// An existing file is truncated: exports are write-once, re-runs overwrite.
func (m *Model) Save(path string) error {
	b, err := m.Bytes()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory %q", dir)
		}
	}
	return errors.Wrapf(os.WriteFile(path, b, 0o644), "failed to write %q", path)
}

func (g *Graph) encode() []byte {
	var b []byte
	for _, n := range g.nodes {
		b = appendMessageField(b, fieldGraphNode, n.encode())
	}
	b = appendStringField(b, fieldGraphName, g.Name)
	for _, t := range g.initializers {
		b = appendMessageField(b, fieldGraphInitializer, t.encode())
	}
	if g.DocString != "" {
		b = appendStringField(b, fieldGraphDocString, g.DocString)
	}
	for _, v := range g.inputs {
		b = appendMessageField(b, fieldGraphInput, v.encode())
	}
	for _, v := range g.outputs {
		b = appendMessageField(b, fieldGraphOutput, v.encode())
	}
	return b
}

func (n *Node) encode() []byte {
	var b []byte
	for _, in := range n.Inputs {
		b = appendStringField(b, fieldNodeInput, in)
	}
	for _, out := range n.Outputs {
		b = appendStringField(b, fieldNodeOutput, out)
	}
	if n.Name != "" {
		b = appendStringField(b, fieldNodeName, n.Name)
	}
	b = appendStringField(b, fieldNodeOpType, n.OpType)
	for i := range n.Attributes {
		b = appendMessageField(b, fieldNodeAttribute, n.Attributes[i].encode())
	}
	if n.Domain != "" {
		b = appendStringField(b, fieldNodeDomain, n.Domain)
	}
	return b
}

func (a *Attribute) encode() []byte {
	var b []byte
	b = appendStringField(b, fieldAttrName, a.Name)
	switch a.kind {
	case attrFloat:
		b = protowire.AppendTag(b, fieldAttrFloat, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.f))
	case attrInt:
		b = appendVarintField(b, fieldAttrInt, a.i)
	case attrString:
		b = protowire.AppendTag(b, fieldAttrString, protowire.BytesType)
		b = protowire.AppendBytes(b, a.s)
	case attrTensor:
		b = appendMessageField(b, fieldAttrTensor, a.t.encode())
	case attrFloats:
		// Declared "repeated float", not packed in onnx.proto, but packed
		// encoding is accepted by all proto3 parsers.
		b = appendPackedFloats(b, fieldAttrFloats, a.floats)
	case attrInts:
		b = appendPackedInt64s(b, fieldAttrInts, a.ints)
	case attrStrings:
		for _, s := range a.strings {
			b = protowire.AppendTag(b, fieldAttrStrings, protowire.BytesType)
			b = protowire.AppendBytes(b, s)
		}
	}
	b = appendVarintField(b, fieldAttrType, int64(a.kind))
	return b
}

func (v ValueInfo) encode() []byte {
	// TypeProto.Tensor
	var tt []byte
	tt = appendVarintField(tt, fieldTensorTypeElem, int64(v.Type))
	var shape []byte
	for _, d := range v.Dims {
		var dim []byte
		if d.Param != "" {
			dim = appendStringField(dim, fieldDimParam, d.Param)
		} else {
			dim = appendVarintField(dim, fieldDimValue, d.Size)
		}
		shape = appendMessageField(shape, fieldShapeDim, dim)
	}
	tt = appendMessageField(tt, fieldTensorTypeShape, shape)

	var typeProto []byte
	typeProto = appendMessageField(typeProto, fieldTypeTensorType, tt)

	var b []byte
	b = appendStringField(b, fieldValueInfoName, v.Name)
	b = appendMessageField(b, fieldValueInfoType, typeProto)
	return b
}

func (t *Tensor) encode() []byte {
	var b []byte
	if len(t.Dims) > 0 {
		b = appendPackedInt64s(b, fieldTensorDims, t.Dims)
	}
	b = appendVarintField(b, fieldTensorDataType, int64(t.Type))
	switch t.Type {
	case Float:
		b = appendPackedFloats(b, fieldTensorFloatData, t.Floats)
	case Int64:
		b = appendPackedInt64s(b, fieldTensorInt64Data, t.Int64s)
	case String:
		for _, s := range t.Strings {
			b = protowire.AppendTag(b, fieldTensorStringData, protowire.BytesType)
			b = protowire.AppendBytes(b, s)
		}
	}
	b = appendStringField(b, fieldTensorName, t.Name)
	return b
}

func appendVarintField(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPackedInt64s(b []byte, num protowire.Number, values []int64) []byte {
	if len(values) == 0 {
		return b
	}
	var payload []byte
	for _, v := range values {
		payload = protowire.AppendVarint(payload, uint64(v))
	}
	return appendMessageField(b, num, payload)
}

func appendPackedFloats(b []byte, num protowire.Number, values []float32) []byte {
	if len(values) == 0 {
		return b
	}
	payload := make([]byte, 0, 4*len(values))
	for _, v := range values {
		payload = protowire.AppendFixed32(payload, math.Float32bits(v))
	}
	return appendMessageField(b, num, payload)
}
