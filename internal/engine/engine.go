// Package engine implements the instruction dispatch and evaluation loop: a
// run loop over an instruction provider that models the nested structure of
// currently executing instruction sequences as a stack of scopes tagged
// {Expression, Block, FunctionCall}.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/measure"
	"github.com/wazero-vm/core/internal/stack"
	"github.com/wazero-vm/core/internal/store"
	"github.com/wazero-vm/core/internal/wasmtree"
)

type scopeKind int

const (
	scopeExpression scopeKind = iota
	scopeBlock
	scopeFunctionCall
)

type scope struct {
	kind   scopeKind
	instrs []wasmtree.Instr
	pc     int
}

// Engine drives one Store/Stack pair through the dispatch loop. It holds no
// state beyond a Store, Stack, and Measure, so a fresh Engine can be built
// per invocation or reused across invocations of the same Store so long as
// the Stack is empty between them.
type Engine struct {
	Store   *store.Store
	Stack   *stack.Stack
	Measure measure.Measure
	Log     *logrus.Logger

	scopes []*scope
}

// New builds an Engine. measure may be nil, in which case metering is a
// no-op. log may be nil; it is kept for logf, and the dispatch loop itself
// emits no log lines.
func New(s *store.Store, st *stack.Stack, m measure.Measure, log *logrus.Logger) *Engine {
	if m == nil {
		m = measure.NoOp()
	}
	return &Engine{Store: s, Stack: st, Measure: m, Log: log}
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.Log != nil {
		e.Log.Debugf(format, args...)
	}
}

func (e *Engine) pushScope(kind scopeKind, instrs []wasmtree.Instr) {
	e.scopes = append(e.scopes, &scope{kind: kind, instrs: instrs})
}

func (e *Engine) topScope() *scope {
	if len(e.scopes) == 0 {
		return nil
	}
	return e.scopes[len(e.scopes)-1]
}

func (e *Engine) popScope() {
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// nextInstr returns the current top scope's next instruction, or nil if
// that scope is exhausted.
func (e *Engine) nextInstr() *wasmtree.Instr {
	top := e.topScope()
	if top.pc >= len(top.instrs) {
		return nil
	}
	instr := &top.instrs[top.pc]
	top.pc++
	return instr
}

// RunExpression evaluates a single, label-free instruction sequence (an
// init expression) against the currently pushed auxiliary frame. It
// returns the resulting top-of-stack value.
func (e *Engine) RunExpression(instrs []wasmtree.Instr) (api.Value, error) {
	e.pushScope(scopeExpression, instrs)
	if err := e.run(); err != nil {
		return api.Value{}, err
	}
	return e.Stack.Pop()
}

// RunInitExpr evaluates an initializer expression (a global's init, or an
// element/data segment's offset) against a temporary, local-less frame
// owned by moduleAddr. The frame is discarded afterwards regardless of
// outcome.
func (e *Engine) RunInitExpr(moduleAddr int, instrs []wasmtree.Instr) (api.Value, error) {
	height := e.Stack.Height()
	e.Stack.PushFrame(moduleAddr, 0, 0)
	val, err := e.RunExpression(instrs)
	e.Stack.TruncateTo(height)
	if err != nil {
		e.scopes = nil
		return api.Value{}, err
	}
	return val, nil
}

// InvokeFunction is the top-level entry point: args must already be pushed
// onto the Stack by the caller before calling Invoke; InvokeFunction enters
// the function, drives it to completion, and returns.
func (e *Engine) InvokeFunction(fn *store.FunctionInstance) error {
	entryHeight := e.Stack.Height() - len(fn.Type.Params)
	if err := e.enterFunction(fn); err != nil {
		e.Stack.TruncateTo(entryHeight)
		return err
	}
	if err := e.run(); err != nil {
		// Discard partially mutated operand stack; store mutations already
		// made stand.
		e.Stack.TruncateTo(entryHeight)
		e.scopes = nil
		return err
	}
	return nil
}

// run drives scopes to exhaustion.
func (e *Engine) run() error {
	for len(e.scopes) > 0 {
		top := e.topScope()
		instr := e.nextInstr()
		if instr == nil {
			kind := top.kind
			switch kind {
			case scopeFunctionCall:
				if err := e.leaveFunction(); err != nil {
					return err
				}
			case scopeBlock:
				if err := e.leaveBlock(); err != nil {
					return err
				}
			default: // scopeExpression
				e.popScope()
			}
			continue
		}
		if err := e.Measure.AddInstrCost(instr.Op); err != nil {
			return err
		}
		if err := e.eval(instr); err != nil {
			return err
		}
	}
	return nil
}

// enterBlock pushes a label and a Block scope for body. origin is the
// block/loop/if instruction the label targets; nil for the implicit
// function-body block.
func (e *Engine) enterBlock(arity int, origin *wasmtree.Instr, body []wasmtree.Instr) {
	e.Stack.PushLabel(arity, origin)
	e.pushScope(scopeBlock, body)
}

func (e *Engine) leaveBlock() error {
	if err := e.Stack.PopLabel(1); err != nil {
		return err
	}
	e.popScope()
	return nil
}

// enterFunction enters a resolved callee: native functions get a Frame,
// default-zero locals, a FunctionCall scope, and a Block scope for the
// body; host functions are invoked synchronously through the host
// boundary.
func (e *Engine) enterFunction(fn *store.FunctionInstance) error {
	if fn.IsHost() {
		return e.enterHostFunction(fn)
	}

	paramArity := len(fn.Type.Params)
	resultArity := len(fn.Type.Results)

	// Pop declared parameter values (pushed by the caller) before pushing
	// the frame, since PushFrame itself becomes the new top-of-stack entry.
	params := make([]api.Value, paramArity)
	for i := paramArity - 1; i >= 0; i-- {
		v, err := e.Stack.Pop()
		if err != nil {
			return err
		}
		params[i] = v
	}
	frame := e.Stack.PushFrame(int(fn.Owner), paramArity, resultArity)
	frame.Locals = params
	for _, d := range fn.Locals {
		for i := uint32(0); i < d.Count; i++ {
			frame.Locals = append(frame.Locals, api.ZeroValue(d.Type))
		}
	}

	e.pushScope(scopeFunctionCall, nil)
	e.enterBlock(resultArity, nil, fn.Body)
	return nil
}

func (e *Engine) enterHostFunction(fn *store.FunctionInstance) error {
	if err := e.Measure.AddCost(fn.Host.DeclaredCost()); err != nil {
		return err
	}
	mem, _ := e.currentMemory()
	e.Measure.StartTimer(measure.TimerHostFunc)
	status := fn.Host.Invoke(e.Stack, mem)
	e.Measure.StopTimer(measure.TimerHostFunc)
	switch status.Kind {
	case api.KindSuccess:
		return nil
	case api.KindTerminated:
		// Terminated maps to successful top-level completion.
		return api.NewError(api.KindTerminated, "host requested termination")
	default:
		if status.Err != nil {
			return api.Wrap(status.Kind, status.Err, "host function failed")
		}
		return api.NewError(status.Kind, "host function failed")
	}
}

// leaveFunction implements both the natural-fallthrough path (called when
// the FunctionCall scope itself goes dry) and the explicit `return`
// instruction: it unwinds every label still open above the current frame,
// pops the corresponding Block scopes, and finally pops the FunctionCall
// scope.
func (e *Engine) leaveFunction() error {
	labelsUnwound, err := e.Stack.PopFrame()
	if err != nil {
		return err
	}
	for i := 0; i < labelsUnwound; i++ {
		e.popScope()
	}
	e.popScope() // the FunctionCall scope itself.
	return nil
}

// currentModule resolves the ModuleInstance owning the innermost frame.
func (e *Engine) currentModule() (*store.ModuleInstance, error) {
	f := e.Stack.CurrentFrame()
	if f == nil {
		return nil, api.NewError(api.KindExecutionFailed, "no active frame")
	}
	return e.Store.GetModule(store.ModuleAddr(f.ModuleAddr))
}

func (e *Engine) currentMemory() (*store.MemoryInstance, error) {
	mod, err := e.currentModule()
	if err != nil {
		return nil, err
	}
	if len(mod.Memories) == 0 {
		return nil, api.NewError(api.KindWrongInstanceAddress, "module has no memory 0")
	}
	return e.Store.GetMemory(mod.Memories[0])
}

func (e *Engine) currentTable(idx uint32) (*store.TableInstance, error) {
	mod, err := e.currentModule()
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(mod.Tables) {
		return nil, api.NewError(api.KindWrongInstanceAddress, "table index out of range")
	}
	return e.Store.GetTable(mod.Tables[idx])
}

func (e *Engine) currentGlobal(idx uint32) (*store.GlobalInstance, error) {
	mod, err := e.currentModule()
	if err != nil {
		return nil, err
	}
	if int(idx) >= len(mod.Globals) {
		return nil, api.NewError(api.KindWrongInstanceAddress, "global index out of range")
	}
	return e.Store.GetGlobal(mod.Globals[idx])
}

// eval dispatches a single decoded instruction.
func (e *Engine) eval(instr *wasmtree.Instr) error {
	switch instr.Op {
	case wasmtree.OpUnreachable, wasmtree.OpNop, wasmtree.OpBlock, wasmtree.OpLoop,
		wasmtree.OpIf, wasmtree.OpBr, wasmtree.OpBrIf, wasmtree.OpBrTable,
		wasmtree.OpReturn, wasmtree.OpCall, wasmtree.OpCallIndirect,
		wasmtree.OpDrop, wasmtree.OpSelect:
		return e.evalControl(instr)
	case wasmtree.OpLocalGet, wasmtree.OpLocalSet, wasmtree.OpLocalTee,
		wasmtree.OpGlobalGet, wasmtree.OpGlobalSet:
		return e.evalVariable(instr)
	case wasmtree.OpI32Const, wasmtree.OpI64Const, wasmtree.OpF32Const, wasmtree.OpF64Const:
		e.Stack.Push(instr.ConstValue)
		return nil
	case wasmtree.OpMemorySize, wasmtree.OpMemoryGrow:
		return e.evalMemoryManage(instr)
	default:
		if isMemoryAccessOp(instr.Op) {
			return e.evalMemoryAccess(instr)
		}
		return e.evalNumeric(instr)
	}
}
