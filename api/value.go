// Package api defines the types shared between the execution engine and its
// collaborators: the value model, function signatures, and the error
// taxonomy a trap or a workflow mistake surfaces as.
package api

import (
	"fmt"
	"math"
)

// ValueType is one of the four Wasm numeric types. Signedness is not part of
// the type: it is a property of the operation that consumes a value.
type ValueType byte

const (
	ValueTypeI32 ValueType = 0x7f
	ValueTypeI64 ValueType = 0x7e
	ValueTypeF32 ValueType = 0x7d
	ValueTypeF64 ValueType = 0x7c
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("unknown(0x%x)", byte(v))
	}
}

// Value is a tagged union over i32/i64/f32/f64. Floats are stored in their
// raw bit pattern (Float32bits/Float64bits) so that a Value is always a
// plain 64-bit payload; ops that need the float form convert at the point of
// use. This mirrors how the operand stack itself is a slice of Value, never
// a slice of interface{}.
type Value struct {
	Type ValueType
	// Bits holds the bit-exact payload: for i32, the low 32 bits; for i64,
	// all 64 bits; for f32, math.Float32bits zero-extended; for f64,
	// math.Float64bits.
	Bits uint64
}

func I32(v uint32) Value { return Value{Type: ValueTypeI32, Bits: uint64(v)} }
func I64(v uint64) Value { return Value{Type: ValueTypeI64, Bits: v} }
func F32Bits(v uint32) Value { return Value{Type: ValueTypeF32, Bits: uint64(v)} }
func F64Bits(v uint64) Value { return Value{Type: ValueTypeF64, Bits: v} }
func F32(v float32) Value    { return F32Bits(math.Float32bits(v)) }
func F64(v float64) Value    { return F64Bits(math.Float64bits(v)) }

func (v Value) I32() uint32     { return uint32(v.Bits) }
func (v Value) I64() uint64     { return v.Bits }
func (v Value) F32Bits() uint32 { return uint32(v.Bits) }
func (v Value) F64Bits() uint64 { return v.Bits }
func (v Value) F32() float32    { return math.Float32frombits(uint32(v.Bits)) }
func (v Value) F64() float64    { return math.Float64frombits(v.Bits) }

// ZeroValue returns the default (all-zero-bits) Value for a ValueType, used
// to initialize declared locals.
func ZeroValue(t ValueType) Value {
	return Value{Type: t}
}

func (v Value) String() string {
	return fmt.Sprintf("%s:0x%x", v.Type, v.Bits)
}

// FunctionType is the ordered parameter and result value-types of a
// function. The current spec supports at most one result.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("%v->%v", t.Params, t.Results)
}

// Equal reports whether two function types have identical parameter and
// result sequences, used at call_indirect and import-resolution boundaries.
func (t *FunctionType) Equal(o *FunctionType) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil {
		return false
	}
	return sameTypes(t.Params, o.Params) && sameTypes(t.Results, o.Results)
}

func sameTypes(a, b []ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
