package engine

import (
	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func (e *Engine) evalControl(instr *wasmtree.Instr) error {
	switch instr.Op {
	case wasmtree.OpUnreachable:
		return api.NewError(api.KindUnreachable, "unreachable instruction executed")
	case wasmtree.OpNop:
		return nil
	case wasmtree.OpBlock:
		e.enterBlock(instr.BlockArity, instr, instr.Then)
		return nil
	case wasmtree.OpLoop:
		e.enterBlock(instr.BlockArity, instr, instr.Then)
		return nil
	case wasmtree.OpIf:
		cond, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		if cond.I32() != 0 {
			e.enterBlock(instr.BlockArity, instr, instr.Then)
		} else {
			e.enterBlock(instr.BlockArity, instr, instr.Else)
		}
		return nil
	case wasmtree.OpBr:
		return e.branch(int(instr.LabelIdx))
	case wasmtree.OpBrIf:
		cond, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		if cond.I32() == 0 {
			return nil
		}
		return e.branch(int(instr.LabelIdx))
	case wasmtree.OpBrTable:
		idxVal, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		i := idxVal.I32()
		target := instr.DefaultLabel
		if int(i) < len(instr.LabelTable) {
			target = instr.LabelTable[i]
		}
		return e.branch(int(target))
	case wasmtree.OpReturn:
		return e.leaveFunction()
	case wasmtree.OpCall:
		return e.callByIndex(instr.FuncIdx)
	case wasmtree.OpCallIndirect:
		return e.callIndirect(instr.TypeIdx)
	case wasmtree.OpDrop:
		_, err := e.Stack.Pop()
		return err
	case wasmtree.OpSelect:
		return e.evalSelect()
	default:
		return api.NewError(api.KindUnimplemented, "unimplemented control opcode")
	}
}

// branch implements br to label depth n: preserve arity(L_n) values, drop
// n+1 labels and their engine scopes, and either resume after the block
// (block/if target) or replay the loop body from the start (loop target).
func (e *Engine) branch(n int) error {
	target, err := e.Stack.Branch(n)
	if err != nil {
		return err
	}
	for i := 0; i < n+1; i++ {
		e.popScope()
	}
	if target.IsLoop() {
		e.enterBlock(target.Arity, target.Origin, target.Origin.Then)
	}
	return nil
}

func (e *Engine) callByIndex(funcIdx uint32) error {
	mod, err := e.currentModule()
	if err != nil {
		return err
	}
	if int(funcIdx) >= len(mod.Functions) {
		return api.NewError(api.KindWrongInstanceAddress, "function index out of range")
	}
	fn, err := e.Store.GetFunction(mod.Functions[funcIdx])
	if err != nil {
		return err
	}
	return e.enterFunction(fn)
}

func (e *Engine) callIndirect(typeIdx uint32) error {
	mod, err := e.currentModule()
	if err != nil {
		return err
	}
	idxVal, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	table, err := e.currentTable(0)
	if err != nil {
		return err
	}
	i := idxVal.I32()
	if int(i) >= len(table.Elements) || table.Elements[i] == nil {
		return api.NewError(api.KindWrongInstanceAddress, "call_indirect: index out of range or empty slot")
	}
	fn, err := e.Store.GetFunction(*table.Elements[i])
	if err != nil {
		return err
	}
	if int(typeIdx) >= len(mod.Types) {
		return api.NewError(api.KindWrongInstanceAddress, "call_indirect: type index out of range")
	}
	expected := mod.Types[typeIdx]
	if !fn.Type.Equal(expected) {
		return api.NewError(api.KindTypeNotMatch, "call_indirect: callee type does not match")
	}
	return e.enterFunction(fn)
}

func (e *Engine) evalSelect() error {
	cond, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	v2, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	v1, err := e.Stack.Pop()
	if err != nil {
		return err
	}
	if cond.I32() != 0 {
		e.Stack.Push(v1)
	} else {
		e.Stack.Push(v2)
	}
	return nil
}
