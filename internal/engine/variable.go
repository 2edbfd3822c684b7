package engine

import (
	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func (e *Engine) evalVariable(instr *wasmtree.Instr) error {
	switch instr.Op {
	case wasmtree.OpLocalGet:
		frame := e.Stack.CurrentFrame()
		if frame == nil || int(instr.Index) >= len(frame.Locals) {
			return api.NewError(api.KindWrongInstanceAddress, "local index out of range")
		}
		e.Stack.Push(frame.Locals[instr.Index])
		return nil
	case wasmtree.OpLocalSet:
		frame := e.Stack.CurrentFrame()
		if frame == nil || int(instr.Index) >= len(frame.Locals) {
			return api.NewError(api.KindWrongInstanceAddress, "local index out of range")
		}
		v, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		frame.Locals[instr.Index] = v
		return nil
	case wasmtree.OpLocalTee:
		frame := e.Stack.CurrentFrame()
		if frame == nil || int(instr.Index) >= len(frame.Locals) {
			return api.NewError(api.KindWrongInstanceAddress, "local index out of range")
		}
		v, err := e.Stack.Top()
		if err != nil {
			return err
		}
		frame.Locals[instr.Index] = v
		return nil
	case wasmtree.OpGlobalGet:
		g, err := e.currentGlobal(instr.Index)
		if err != nil {
			return err
		}
		e.Stack.Push(g.Value)
		return nil
	case wasmtree.OpGlobalSet:
		g, err := e.currentGlobal(instr.Index)
		if err != nil {
			return err
		}
		if !g.Mutable {
			return api.NewError(api.KindExecutionFailed, "global.set on immutable global")
		}
		v, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		g.Value = v
		return nil
	default:
		return api.NewError(api.KindUnimplemented, "unimplemented variable opcode")
	}
}
