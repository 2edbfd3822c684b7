package engine

import (
	"math"
	"math/bits"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/moremath"
	"github.com/wazero-vm/core/internal/wasmtree"
)

// evalNumeric dispatches the arithmetic, comparison, test, conversion and
// reinterpret instructions. Trap semantics (divide by zero, signed
// overflow, float-to-int range checks) are enforced inline at the point
// where the reference interpretation traps.
func (e *Engine) evalNumeric(instr *wasmtree.Instr) error {
	switch instr.Op {
	case wasmtree.OpI32Eqz, wasmtree.OpI64Eqz:
		return e.evalTestOp(instr.Op)
	case wasmtree.OpI32Clz, wasmtree.OpI32Ctz, wasmtree.OpI32Popcnt,
		wasmtree.OpI64Clz, wasmtree.OpI64Ctz, wasmtree.OpI64Popcnt:
		return e.evalUnaryIntOp(instr.Op)
	case wasmtree.OpF32Abs, wasmtree.OpF32Neg, wasmtree.OpF32Ceil, wasmtree.OpF32Floor,
		wasmtree.OpF32Trunc, wasmtree.OpF32Nearest, wasmtree.OpF32Sqrt,
		wasmtree.OpF64Abs, wasmtree.OpF64Neg, wasmtree.OpF64Ceil, wasmtree.OpF64Floor,
		wasmtree.OpF64Trunc, wasmtree.OpF64Nearest, wasmtree.OpF64Sqrt:
		return e.evalUnaryFloatOp(instr.Op)
	case wasmtree.OpI32Eq, wasmtree.OpI32Ne, wasmtree.OpI32LtS, wasmtree.OpI32LtU,
		wasmtree.OpI32GtS, wasmtree.OpI32GtU, wasmtree.OpI32LeS, wasmtree.OpI32LeU,
		wasmtree.OpI32GeS, wasmtree.OpI32GeU,
		wasmtree.OpI64Eq, wasmtree.OpI64Ne, wasmtree.OpI64LtS, wasmtree.OpI64LtU,
		wasmtree.OpI64GtS, wasmtree.OpI64GtU, wasmtree.OpI64LeS, wasmtree.OpI64LeU,
		wasmtree.OpI64GeS, wasmtree.OpI64GeU:
		return e.evalIntCompareOp(instr.Op)
	case wasmtree.OpF32Eq, wasmtree.OpF32Ne, wasmtree.OpF32Lt, wasmtree.OpF32Gt,
		wasmtree.OpF32Le, wasmtree.OpF32Ge,
		wasmtree.OpF64Eq, wasmtree.OpF64Ne, wasmtree.OpF64Lt, wasmtree.OpF64Gt,
		wasmtree.OpF64Le, wasmtree.OpF64Ge:
		return e.evalFloatCompareOp(instr.Op)
	case wasmtree.OpI32Add, wasmtree.OpI32Sub, wasmtree.OpI32Mul,
		wasmtree.OpI32DivS, wasmtree.OpI32DivU, wasmtree.OpI32RemS, wasmtree.OpI32RemU,
		wasmtree.OpI32And, wasmtree.OpI32Or, wasmtree.OpI32Xor,
		wasmtree.OpI32Shl, wasmtree.OpI32ShrS, wasmtree.OpI32ShrU,
		wasmtree.OpI32Rotl, wasmtree.OpI32Rotr,
		wasmtree.OpI64Add, wasmtree.OpI64Sub, wasmtree.OpI64Mul,
		wasmtree.OpI64DivS, wasmtree.OpI64DivU, wasmtree.OpI64RemS, wasmtree.OpI64RemU,
		wasmtree.OpI64And, wasmtree.OpI64Or, wasmtree.OpI64Xor,
		wasmtree.OpI64Shl, wasmtree.OpI64ShrS, wasmtree.OpI64ShrU,
		wasmtree.OpI64Rotl, wasmtree.OpI64Rotr:
		return e.evalBinaryIntOp(instr.Op)
	case wasmtree.OpF32Add, wasmtree.OpF32Sub, wasmtree.OpF32Mul, wasmtree.OpF32Div,
		wasmtree.OpF32Min, wasmtree.OpF32Max, wasmtree.OpF32Copysign,
		wasmtree.OpF64Add, wasmtree.OpF64Sub, wasmtree.OpF64Mul, wasmtree.OpF64Div,
		wasmtree.OpF64Min, wasmtree.OpF64Max, wasmtree.OpF64Copysign:
		return e.evalBinaryFloatOp(instr.Op)
	case wasmtree.OpI32WrapI64, wasmtree.OpI64ExtendI32S, wasmtree.OpI64ExtendI32U,
		wasmtree.OpI32TruncF32S, wasmtree.OpI32TruncF32U, wasmtree.OpI32TruncF64S, wasmtree.OpI32TruncF64U,
		wasmtree.OpI64TruncF32S, wasmtree.OpI64TruncF32U, wasmtree.OpI64TruncF64S, wasmtree.OpI64TruncF64U,
		wasmtree.OpF32ConvertI32S, wasmtree.OpF32ConvertI32U, wasmtree.OpF32ConvertI64S, wasmtree.OpF32ConvertI64U,
		wasmtree.OpF64ConvertI32S, wasmtree.OpF64ConvertI32U, wasmtree.OpF64ConvertI64S, wasmtree.OpF64ConvertI64U,
		wasmtree.OpF32DemoteF64, wasmtree.OpF64PromoteF32,
		wasmtree.OpI32ReinterpretF32, wasmtree.OpI64ReinterpretF64,
		wasmtree.OpF32ReinterpretI32, wasmtree.OpF64ReinterpretI64:
		return e.evalConversionOp(instr.Op)
	default:
		return api.NewError(api.KindUnimplemented, "unimplemented numeric opcode")
	}
}

func (e *Engine) evalTestOp(op wasmtree.Op) error {
	v, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	var result uint32
	switch op {
	case wasmtree.OpI32Eqz:
		if v.I32() == 0 {
			result = 1
		}
	case wasmtree.OpI64Eqz:
		if v.I64() == 0 {
			result = 1
		}
	}
	e.Stack.Push(api.I32(result))
	return nil
}

func (e *Engine) evalUnaryIntOp(op wasmtree.Op) error {
	v, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	switch op {
	case wasmtree.OpI32Clz:
		e.Stack.Push(api.I32(uint32(bits.LeadingZeros32(v.I32()))))
	case wasmtree.OpI32Ctz:
		e.Stack.Push(api.I32(uint32(bits.TrailingZeros32(v.I32()))))
	case wasmtree.OpI32Popcnt:
		e.Stack.Push(api.I32(uint32(bits.OnesCount32(v.I32()))))
	case wasmtree.OpI64Clz:
		e.Stack.Push(api.I64(uint64(bits.LeadingZeros64(v.I64()))))
	case wasmtree.OpI64Ctz:
		e.Stack.Push(api.I64(uint64(bits.TrailingZeros64(v.I64()))))
	case wasmtree.OpI64Popcnt:
		e.Stack.Push(api.I64(uint64(bits.OnesCount64(v.I64()))))
	}
	return nil
}

func (e *Engine) evalUnaryFloatOp(op wasmtree.Op) error {
	v, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	if isF32Op(op) {
		f := v.F32()
		var r float32
		switch op {
		case wasmtree.OpF32Abs:
			r = float32(math.Abs(float64(f)))
		case wasmtree.OpF32Neg:
			r = -f
		case wasmtree.OpF32Ceil:
			r = float32(math.Ceil(float64(f)))
		case wasmtree.OpF32Floor:
			r = float32(math.Floor(float64(f)))
		case wasmtree.OpF32Trunc:
			r = float32(math.Trunc(float64(f)))
		case wasmtree.OpF32Nearest:
			r = moremath.WasmCompatNearestF32(f)
		case wasmtree.OpF32Sqrt:
			r = float32(math.Sqrt(float64(f)))
		}
		e.Stack.Push(api.F32(r))
		return nil
	}
	f := v.F64()
	var r float64
	switch op {
	case wasmtree.OpF64Abs:
		r = math.Abs(f)
	case wasmtree.OpF64Neg:
		r = -f
	case wasmtree.OpF64Ceil:
		r = math.Ceil(f)
	case wasmtree.OpF64Floor:
		r = math.Floor(f)
	case wasmtree.OpF64Trunc:
		r = math.Trunc(f)
	case wasmtree.OpF64Nearest:
		r = moremath.WasmCompatNearestF64(f)
	case wasmtree.OpF64Sqrt:
		r = math.Sqrt(f)
	}
	e.Stack.Push(api.F64(r))
	return nil
}

func (e *Engine) evalIntCompareOp(op wasmtree.Op) error {
	rhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	lhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	is64 := is64BitOp(op)
	var b bool
	if is64 {
		x, y := int64(lhs.I64()), int64(rhs.I64())
		ux, uy := lhs.I64(), rhs.I64()
		switch op {
		case wasmtree.OpI64Eq:
			b = ux == uy
		case wasmtree.OpI64Ne:
			b = ux != uy
		case wasmtree.OpI64LtS:
			b = x < y
		case wasmtree.OpI64LtU:
			b = ux < uy
		case wasmtree.OpI64GtS:
			b = x > y
		case wasmtree.OpI64GtU:
			b = ux > uy
		case wasmtree.OpI64LeS:
			b = x <= y
		case wasmtree.OpI64LeU:
			b = ux <= uy
		case wasmtree.OpI64GeS:
			b = x >= y
		case wasmtree.OpI64GeU:
			b = ux >= uy
		}
	} else {
		x, y := int32(lhs.I32()), int32(rhs.I32())
		ux, uy := lhs.I32(), rhs.I32()
		switch op {
		case wasmtree.OpI32Eq:
			b = ux == uy
		case wasmtree.OpI32Ne:
			b = ux != uy
		case wasmtree.OpI32LtS:
			b = x < y
		case wasmtree.OpI32LtU:
			b = ux < uy
		case wasmtree.OpI32GtS:
			b = x > y
		case wasmtree.OpI32GtU:
			b = ux > uy
		case wasmtree.OpI32LeS:
			b = x <= y
		case wasmtree.OpI32LeU:
			b = ux <= uy
		case wasmtree.OpI32GeS:
			b = x >= y
		case wasmtree.OpI32GeU:
			b = ux >= uy
		}
	}
	e.Stack.Push(boolToI32(b))
	return nil
}

func (e *Engine) evalFloatCompareOp(op wasmtree.Op) error {
	rhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	lhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	var b bool
	if isF32Op(op) {
		x, y := lhs.F32(), rhs.F32()
		switch op {
		case wasmtree.OpF32Eq:
			b = x == y
		case wasmtree.OpF32Ne:
			b = x != y
		case wasmtree.OpF32Lt:
			b = x < y
		case wasmtree.OpF32Gt:
			b = x > y
		case wasmtree.OpF32Le:
			b = x <= y
		case wasmtree.OpF32Ge:
			b = x >= y
		}
	} else {
		x, y := lhs.F64(), rhs.F64()
		switch op {
		case wasmtree.OpF64Eq:
			b = x == y
		case wasmtree.OpF64Ne:
			b = x != y
		case wasmtree.OpF64Lt:
			b = x < y
		case wasmtree.OpF64Gt:
			b = x > y
		case wasmtree.OpF64Le:
			b = x <= y
		case wasmtree.OpF64Ge:
			b = x >= y
		}
	}
	e.Stack.Push(boolToI32(b))
	return nil
}

func boolToI32(b bool) api.Value {
	if b {
		return api.I32(1)
	}
	return api.I32(0)
}

// evalBinaryIntOp implements the i32/i64 arithmetic, bitwise and shift
// operators. Integer div/rem by zero traps divide-by-zero; signed div with
// INT_MIN / -1 traps execution-failed (overflow); shift counts are taken
// modulo bit-width.
func (e *Engine) evalBinaryIntOp(op wasmtree.Op) error {
	rhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	lhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	if is64BitOp(op) {
		result, err := binaryI64(op, lhs.I64(), rhs.I64())
		if err != nil {
			return err
		}
		e.Stack.Push(api.I64(result))
		return nil
	}
	result, err := binaryI32(op, lhs.I32(), rhs.I32())
	if err != nil {
		return err
	}
	e.Stack.Push(api.I32(result))
	return nil
}

func binaryI32(op wasmtree.Op, lu, ru uint32) (uint32, error) {
	l, r := int32(lu), int32(ru)
	switch op {
	case wasmtree.OpI32Add:
		return lu + ru, nil
	case wasmtree.OpI32Sub:
		return lu - ru, nil
	case wasmtree.OpI32Mul:
		return lu * ru, nil
	case wasmtree.OpI32DivS:
		if r == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i32.div_s by zero")
		}
		if l == math.MinInt32 && r == -1 {
			return 0, api.NewError(api.KindExecutionFailed, "i32.div_s overflow")
		}
		return uint32(l / r), nil
	case wasmtree.OpI32DivU:
		if ru == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i32.div_u by zero")
		}
		return lu / ru, nil
	case wasmtree.OpI32RemS:
		if r == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i32.rem_s by zero")
		}
		if l == math.MinInt32 && r == -1 {
			return 0, nil
		}
		return uint32(l % r), nil
	case wasmtree.OpI32RemU:
		if ru == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i32.rem_u by zero")
		}
		return lu % ru, nil
	case wasmtree.OpI32And:
		return lu & ru, nil
	case wasmtree.OpI32Or:
		return lu | ru, nil
	case wasmtree.OpI32Xor:
		return lu ^ ru, nil
	case wasmtree.OpI32Shl:
		return lu << (ru % 32), nil
	case wasmtree.OpI32ShrS:
		return uint32(l >> (ru % 32)), nil
	case wasmtree.OpI32ShrU:
		return lu >> (ru % 32), nil
	case wasmtree.OpI32Rotl:
		return bits.RotateLeft32(lu, int(ru%32)), nil
	case wasmtree.OpI32Rotr:
		return bits.RotateLeft32(lu, -int(ru%32)), nil
	default:
		return 0, api.NewError(api.KindUnimplemented, "unimplemented i32 binary opcode")
	}
}

func binaryI64(op wasmtree.Op, lu, ru uint64) (uint64, error) {
	l, r := int64(lu), int64(ru)
	switch op {
	case wasmtree.OpI64Add:
		return lu + ru, nil
	case wasmtree.OpI64Sub:
		return lu - ru, nil
	case wasmtree.OpI64Mul:
		return lu * ru, nil
	case wasmtree.OpI64DivS:
		if r == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i64.div_s by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return 0, api.NewError(api.KindExecutionFailed, "i64.div_s overflow")
		}
		return uint64(l / r), nil
	case wasmtree.OpI64DivU:
		if ru == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i64.div_u by zero")
		}
		return lu / ru, nil
	case wasmtree.OpI64RemS:
		if r == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i64.rem_s by zero")
		}
		if l == math.MinInt64 && r == -1 {
			return 0, nil
		}
		return uint64(l % r), nil
	case wasmtree.OpI64RemU:
		if ru == 0 {
			return 0, api.NewError(api.KindDivideByZero, "i64.rem_u by zero")
		}
		return lu % ru, nil
	case wasmtree.OpI64And:
		return lu & ru, nil
	case wasmtree.OpI64Or:
		return lu | ru, nil
	case wasmtree.OpI64Xor:
		return lu ^ ru, nil
	case wasmtree.OpI64Shl:
		return lu << (ru % 64), nil
	case wasmtree.OpI64ShrS:
		return uint64(l >> (ru % 64)), nil
	case wasmtree.OpI64ShrU:
		return lu >> (ru % 64), nil
	case wasmtree.OpI64Rotl:
		return bits.RotateLeft64(lu, int(ru%64)), nil
	case wasmtree.OpI64Rotr:
		return bits.RotateLeft64(lu, -int(ru%64)), nil
	default:
		return 0, api.NewError(api.KindUnimplemented, "unimplemented i64 binary opcode")
	}
}

func (e *Engine) evalBinaryFloatOp(op wasmtree.Op) error {
	rhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	lhs, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	if isF32Op(op) {
		l, r := lhs.F32(), rhs.F32()
		var res float32
		switch op {
		case wasmtree.OpF32Add:
			res = l + r
		case wasmtree.OpF32Sub:
			res = l - r
		case wasmtree.OpF32Mul:
			res = l * r
		case wasmtree.OpF32Div:
			res = l / r
		case wasmtree.OpF32Min:
			res = float32(moremath.WasmCompatMin(float64(l), float64(r)))
		case wasmtree.OpF32Max:
			res = float32(moremath.WasmCompatMax(float64(l), float64(r)))
		case wasmtree.OpF32Copysign:
			res = float32(math.Copysign(float64(l), float64(r)))
		}
		e.Stack.Push(api.F32(res))
		return nil
	}
	l, r := lhs.F64(), rhs.F64()
	var res float64
	switch op {
	case wasmtree.OpF64Add:
		res = l + r
	case wasmtree.OpF64Sub:
		res = l - r
	case wasmtree.OpF64Mul:
		res = l * r
	case wasmtree.OpF64Div:
		res = l / r
	case wasmtree.OpF64Min:
		res = moremath.WasmCompatMin(l, r)
	case wasmtree.OpF64Max:
		res = moremath.WasmCompatMax(l, r)
	case wasmtree.OpF64Copysign:
		res = math.Copysign(l, r)
	}
	e.Stack.Push(api.F64(res))
	return nil
}

// evalConversionOp implements the numeric conversion and reinterpret
// instructions: truncation from float to integer traps
// floating-point-exception on NaN/±Inf and casting-error when the truncated
// value falls outside the target's range; reinterpret ops are bit-exact.
func (e *Engine) evalConversionOp(op wasmtree.Op) error {
	v, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	switch op {
	case wasmtree.OpI32WrapI64:
		e.Stack.Push(api.I32(uint32(v.I64())))
	case wasmtree.OpI64ExtendI32S:
		e.Stack.Push(api.I64(uint64(int64(int32(v.I32())))))
	case wasmtree.OpI64ExtendI32U:
		e.Stack.Push(api.I64(uint64(v.I32())))

	case wasmtree.OpI32TruncF32S:
		r, err := truncToInt(float64(v.F32()), math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I32(uint32(int32(r))))
	case wasmtree.OpI32TruncF32U:
		r, err := truncToInt(float64(v.F32()), 0, math.MaxUint32)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I32(uint32(r)))
	case wasmtree.OpI32TruncF64S:
		r, err := truncToInt(v.F64(), math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I32(uint32(int32(r))))
	case wasmtree.OpI32TruncF64U:
		r, err := truncToInt(v.F64(), 0, math.MaxUint32)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I32(uint32(r)))
	case wasmtree.OpI64TruncF32S:
		r, err := truncToInt(float64(v.F32()), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I64(uint64(r)))
	case wasmtree.OpI64TruncF32U:
		r, err := truncToUint(float64(v.F32()), math.MaxUint64)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I64(r))
	case wasmtree.OpI64TruncF64S:
		r, err := truncToInt(v.F64(), math.MinInt64, math.MaxInt64)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I64(uint64(r)))
	case wasmtree.OpI64TruncF64U:
		r, err := truncToUint(v.F64(), math.MaxUint64)
		if err != nil {
			return err
		}
		e.Stack.Push(api.I64(r))

	case wasmtree.OpF32ConvertI32S:
		e.Stack.Push(api.F32(float32(int32(v.I32()))))
	case wasmtree.OpF32ConvertI32U:
		e.Stack.Push(api.F32(float32(v.I32())))
	case wasmtree.OpF32ConvertI64S:
		e.Stack.Push(api.F32(float32(int64(v.I64()))))
	case wasmtree.OpF32ConvertI64U:
		e.Stack.Push(api.F32(float32(v.I64())))
	case wasmtree.OpF64ConvertI32S:
		e.Stack.Push(api.F64(float64(int32(v.I32()))))
	case wasmtree.OpF64ConvertI32U:
		e.Stack.Push(api.F64(float64(v.I32())))
	case wasmtree.OpF64ConvertI64S:
		e.Stack.Push(api.F64(float64(int64(v.I64()))))
	case wasmtree.OpF64ConvertI64U:
		e.Stack.Push(api.F64(float64(v.I64())))

	case wasmtree.OpF32DemoteF64:
		e.Stack.Push(api.F32(float32(v.F64())))
	case wasmtree.OpF64PromoteF32:
		e.Stack.Push(api.F64(float64(v.F32())))

	case wasmtree.OpI32ReinterpretF32:
		e.Stack.Push(api.I32(v.F32Bits()))
	case wasmtree.OpI64ReinterpretF64:
		e.Stack.Push(api.I64(v.F64Bits()))
	case wasmtree.OpF32ReinterpretI32:
		e.Stack.Push(api.F32Bits(v.I32()))
	case wasmtree.OpF64ReinterpretI64:
		e.Stack.Push(api.F64Bits(v.I64()))

	default:
		return api.NewError(api.KindUnimplemented, "unimplemented conversion opcode")
	}
	return nil
}

// twoPow63 and twoPow64 are the exact float64 representations of 2^63 and
// 2^64. MaxInt64 and MaxUint64 themselves are not exactly representable as
// float64 (both round up to these values), so range checks against an i64
// target compare against the power-of-two boundary directly rather than
// against float64(hi).
const (
	twoPow63 = 1 << 63
	twoPow64 = 1 << 64
)

func truncToInt(f float64, lo, hi int64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, api.NewError(api.KindFloatingPointExc, "float-to-int truncation of NaN or infinity")
	}
	t := math.Trunc(f)
	if hi == math.MaxInt64 {
		if t < float64(lo) || t >= twoPow63 {
			return 0, api.NewError(api.KindCastingError, "float-to-int truncation out of range")
		}
		return int64(t), nil
	}
	if t < float64(lo) || t > float64(hi) {
		return 0, api.NewError(api.KindCastingError, "float-to-int truncation out of range")
	}
	return int64(t), nil
}

func truncToUint(f float64, hi uint64) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, api.NewError(api.KindFloatingPointExc, "float-to-int truncation of NaN or infinity")
	}
	t := math.Trunc(f)
	if t < 0 {
		return 0, api.NewError(api.KindCastingError, "float-to-int truncation out of range")
	}
	if hi == math.MaxUint64 {
		if t >= twoPow64 {
			return 0, api.NewError(api.KindCastingError, "float-to-int truncation out of range")
		}
		return uint64(t), nil
	}
	if t > float64(hi) {
		return 0, api.NewError(api.KindCastingError, "float-to-int truncation out of range")
	}
	return uint64(t), nil
}

// isF32Op distinguishes the f32 member of an f32/f64 instruction pair. Each
// caller invokes it only with opcodes drawn from a single such pair, so an
// explicit enumeration (rather than a numeric range, which would cross into
// unrelated opcode blocks) is the safe way to classify it.
func isF32Op(op wasmtree.Op) bool {
	switch op {
	case wasmtree.OpF32Eq, wasmtree.OpF32Ne, wasmtree.OpF32Lt, wasmtree.OpF32Gt, wasmtree.OpF32Le, wasmtree.OpF32Ge,
		wasmtree.OpF32Abs, wasmtree.OpF32Neg, wasmtree.OpF32Ceil, wasmtree.OpF32Floor, wasmtree.OpF32Trunc,
		wasmtree.OpF32Nearest, wasmtree.OpF32Sqrt,
		wasmtree.OpF32Add, wasmtree.OpF32Sub, wasmtree.OpF32Mul, wasmtree.OpF32Div,
		wasmtree.OpF32Min, wasmtree.OpF32Max, wasmtree.OpF32Copysign:
		return true
	default:
		return false
	}
}

// is64BitOp distinguishes the i64 member of an i32/i64 instruction pair,
// under the same single-pair-per-call-site contract as isF32Op.
func is64BitOp(op wasmtree.Op) bool {
	switch op {
	case wasmtree.OpI64Eq, wasmtree.OpI64Ne, wasmtree.OpI64LtS, wasmtree.OpI64LtU,
		wasmtree.OpI64GtS, wasmtree.OpI64GtU, wasmtree.OpI64LeS, wasmtree.OpI64LeU,
		wasmtree.OpI64GeS, wasmtree.OpI64GeU,
		wasmtree.OpI64Add, wasmtree.OpI64Sub, wasmtree.OpI64Mul,
		wasmtree.OpI64DivS, wasmtree.OpI64DivU, wasmtree.OpI64RemS, wasmtree.OpI64RemU,
		wasmtree.OpI64And, wasmtree.OpI64Or, wasmtree.OpI64Xor,
		wasmtree.OpI64Shl, wasmtree.OpI64ShrS, wasmtree.OpI64ShrU,
		wasmtree.OpI64Rotl, wasmtree.OpI64Rotr:
		return true
	default:
		return false
	}
}

