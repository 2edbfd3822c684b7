package engine

import (
	"encoding/binary"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/store"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func isMemoryAccessOp(op wasmtree.Op) bool {
	switch op {
	case wasmtree.OpI32Load, wasmtree.OpI64Load, wasmtree.OpF32Load, wasmtree.OpF64Load,
		wasmtree.OpI32Load8S, wasmtree.OpI32Load8U, wasmtree.OpI32Load16S, wasmtree.OpI32Load16U,
		wasmtree.OpI64Load8S, wasmtree.OpI64Load8U, wasmtree.OpI64Load16S, wasmtree.OpI64Load16U,
		wasmtree.OpI64Load32S, wasmtree.OpI64Load32U,
		wasmtree.OpI32Store, wasmtree.OpI64Store, wasmtree.OpF32Store, wasmtree.OpF64Store,
		wasmtree.OpI32Store8, wasmtree.OpI32Store16, wasmtree.OpI64Store8, wasmtree.OpI64Store16, wasmtree.OpI64Store32:
		return true
	default:
		return false
	}
}

func (e *Engine) evalMemoryManage(instr *wasmtree.Instr) error {
	mem, err := e.currentMemory()
	if err != nil {
		return err
	}
	switch instr.Op {
	case wasmtree.OpMemorySize:
		e.Stack.Push(api.I32(mem.CurrPage))
		return nil
	case wasmtree.OpMemoryGrow:
		n, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		old := mem.Grow(n.I32())
		e.Stack.Push(api.I32(uint32(int32(old))))
		return nil
	default:
		return api.NewError(api.KindUnimplemented, "unimplemented memory-management opcode")
	}
}

// effectiveAddress computes i32_base + static_offset and bounds-checks it
// against accessWidth.
func effectiveAddress(mem *store.MemoryInstance, base uint32, offset uint32, width uint32) (uint32, error) {
	eff := uint64(base) + uint64(offset)
	if !mem.Bounds(eff, uint64(width)) {
		return 0, api.NewError(api.KindAccessForbidMemory, "memory access out of bounds")
	}
	return uint32(eff), nil
}

func (e *Engine) evalMemoryAccess(instr *wasmtree.Instr) error {
	mem, err := e.currentMemory()
	if err != nil {
		return err
	}

	if isStoreOp(instr.Op) {
		return e.evalStore(mem, instr)
	}
	return e.evalLoad(mem, instr)
}

func isStoreOp(op wasmtree.Op) bool {
	switch op {
	case wasmtree.OpI32Store, wasmtree.OpI64Store, wasmtree.OpF32Store, wasmtree.OpF64Store,
		wasmtree.OpI32Store8, wasmtree.OpI32Store16, wasmtree.OpI64Store8, wasmtree.OpI64Store16, wasmtree.OpI64Store32:
		return true
	default:
		return false
	}
}

func (e *Engine) evalLoad(mem *store.MemoryInstance, instr *wasmtree.Instr) error {
	baseVal, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	base := baseVal.I32()

	width := loadWidth(instr.Op)
	addr, err := effectiveAddress(mem, base, instr.MemOffset, width)
	if err != nil {
		return err
	}
	raw := mem.Data[addr : addr+width]

	switch instr.Op {
	case wasmtree.OpI32Load:
		e.Stack.Push(api.I32(binary.LittleEndian.Uint32(raw)))
	case wasmtree.OpI64Load:
		e.Stack.Push(api.I64(binary.LittleEndian.Uint64(raw)))
	case wasmtree.OpF32Load:
		e.Stack.Push(api.F32Bits(binary.LittleEndian.Uint32(raw)))
	case wasmtree.OpF64Load:
		e.Stack.Push(api.F64Bits(binary.LittleEndian.Uint64(raw)))
	case wasmtree.OpI32Load8S:
		e.Stack.Push(api.I32(uint32(int32(int8(raw[0])))))
	case wasmtree.OpI32Load8U:
		e.Stack.Push(api.I32(uint32(raw[0])))
	case wasmtree.OpI32Load16S:
		e.Stack.Push(api.I32(uint32(int32(int16(binary.LittleEndian.Uint16(raw))))))
	case wasmtree.OpI32Load16U:
		e.Stack.Push(api.I32(uint32(binary.LittleEndian.Uint16(raw))))
	case wasmtree.OpI64Load8S:
		e.Stack.Push(api.I64(uint64(int64(int8(raw[0])))))
	case wasmtree.OpI64Load8U:
		e.Stack.Push(api.I64(uint64(raw[0])))
	case wasmtree.OpI64Load16S:
		e.Stack.Push(api.I64(uint64(int64(int16(binary.LittleEndian.Uint16(raw))))))
	case wasmtree.OpI64Load16U:
		e.Stack.Push(api.I64(uint64(binary.LittleEndian.Uint16(raw))))
	case wasmtree.OpI64Load32S:
		e.Stack.Push(api.I64(uint64(int64(int32(binary.LittleEndian.Uint32(raw))))))
	case wasmtree.OpI64Load32U:
		e.Stack.Push(api.I64(uint64(binary.LittleEndian.Uint32(raw))))
	default:
		return api.NewError(api.KindUnimplemented, "unimplemented load opcode")
	}
	return nil
}

func (e *Engine) evalStore(mem *store.MemoryInstance, instr *wasmtree.Instr) error {
	val, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	baseVal, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	base := baseVal.I32()

	width := storeWidth(instr.Op)
	addr, err := effectiveAddress(mem, base, instr.MemOffset, width)
	if err != nil {
		return err
	}
	dst := mem.Data[addr : addr+width]

	switch instr.Op {
	case wasmtree.OpI32Store:
		binary.LittleEndian.PutUint32(dst, val.I32())
	case wasmtree.OpI64Store:
		binary.LittleEndian.PutUint64(dst, val.I64())
	case wasmtree.OpF32Store:
		binary.LittleEndian.PutUint32(dst, val.F32Bits())
	case wasmtree.OpF64Store:
		binary.LittleEndian.PutUint64(dst, val.F64Bits())
	case wasmtree.OpI32Store8:
		dst[0] = byte(val.I32())
	case wasmtree.OpI32Store16:
		binary.LittleEndian.PutUint16(dst, uint16(val.I32()))
	case wasmtree.OpI64Store8:
		dst[0] = byte(val.I64())
	case wasmtree.OpI64Store16:
		binary.LittleEndian.PutUint16(dst, uint16(val.I64()))
	case wasmtree.OpI64Store32:
		binary.LittleEndian.PutUint32(dst, uint32(val.I64()))
	default:
		return api.NewError(api.KindUnimplemented, "unimplemented store opcode")
	}
	return nil
}

func loadWidth(op wasmtree.Op) uint32 {
	switch op {
	case wasmtree.OpI32Load, wasmtree.OpF32Load:
		return 4
	case wasmtree.OpI64Load, wasmtree.OpF64Load:
		return 8
	case wasmtree.OpI32Load8S, wasmtree.OpI32Load8U, wasmtree.OpI64Load8S, wasmtree.OpI64Load8U:
		return 1
	case wasmtree.OpI32Load16S, wasmtree.OpI32Load16U, wasmtree.OpI64Load16S, wasmtree.OpI64Load16U:
		return 2
	case wasmtree.OpI64Load32S, wasmtree.OpI64Load32U:
		return 4
	default:
		return 0
	}
}

func storeWidth(op wasmtree.Op) uint32 {
	switch op {
	case wasmtree.OpI32Store, wasmtree.OpF32Store:
		return 4
	case wasmtree.OpI64Store, wasmtree.OpF64Store:
		return 8
	case wasmtree.OpI32Store8, wasmtree.OpI64Store8:
		return 1
	case wasmtree.OpI32Store16, wasmtree.OpI64Store16:
		return 2
	case wasmtree.OpI64Store32:
		return 4
	default:
		return 0
	}
}
