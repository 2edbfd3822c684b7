package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/engine"
	"github.com/wazero-vm/core/internal/host"
	"github.com/wazero-vm/core/internal/instantiate"
	"github.com/wazero-vm/core/internal/measure"
	"github.com/wazero-vm/core/internal/stack"
	"github.com/wazero-vm/core/internal/store"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func i32t() *api.FunctionType { return &api.FunctionType{} }

func setup(costLimit uint64) (*store.Store, *stack.Stack, *engine.Engine) {
	st := store.New()
	sk := stack.New()
	m := measure.New(measure.TableFor(measure.CategoryBase))
	if costLimit > 0 {
		m.SetCostLimit(costLimit)
	}
	return st, sk, engine.New(st, sk, m, nil)
}

func facModule() *wasmtree.Module {
	thenArm := []wasmtree.Instr{{Op: wasmtree.OpI32Const, ConstValue: api.I32(1)}}
	elseArm := []wasmtree.Instr{
		{Op: wasmtree.OpLocalGet, Index: 0},
		{Op: wasmtree.OpLocalGet, Index: 0},
		{Op: wasmtree.OpI32Const, ConstValue: api.I32(1)},
		{Op: wasmtree.OpI32Sub},
		{Op: wasmtree.OpCall, FuncIdx: 0},
		{Op: wasmtree.OpI32Mul},
	}
	body := []wasmtree.Instr{
		{Op: wasmtree.OpLocalGet, Index: 0},
		{Op: wasmtree.OpI32Eqz},
		{Op: wasmtree.OpIf, BlockArity: 1, Then: thenArm, Else: elseArm},
	}
	return &wasmtree.Module{
		Types:               []*wasmtree.FunctionType{{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code:                []wasmtree.Function{{Body: body}},
		Exports:             []wasmtree.Export{{Name: "fac", Kind: wasmtree.ExportFunc, Index: 0}},
	}
}

// S1: factorial recursion, including mod-2^32 wraparound at 13!.
func TestS1Factorial(t *testing.T) {
	st, sk, eng := setup(0)
	mi, _, err := instantiate.Instantiate(st, eng, facModule(), "fac", instantiate.Imports{})
	require.NoError(t, err)

	fn, err := st.GetFunction(mi.Exports["fac"].Func)
	require.NoError(t, err)

	sk.Push(api.I32(5))
	require.NoError(t, eng.InvokeFunction(fn))
	v, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(120), v.I32())

	sk.Push(api.I32(13))
	require.NoError(t, eng.InvokeFunction(fn))
	v, err = sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(6227020800%(1<<32)), v.I32())
}

// S2: memory.grow/memory.size bookkeeping and the -1 failure case.
func TestS2MemoryGrow(t *testing.T) {
	max := uint32(3)
	body := []wasmtree.Instr{
		{Op: wasmtree.OpI32Const, ConstValue: api.I32(2)},
		{Op: wasmtree.OpMemoryGrow},
	}
	mod := &wasmtree.Module{
		Types:               []*wasmtree.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code:                []wasmtree.Function{{Body: body}},
		Memories:            []wasmtree.MemoryType{{Min: 1, Max: &max}},
		Exports:             []wasmtree.Export{{Name: "grow", Kind: wasmtree.ExportFunc, Index: 0}},
	}
	st, sk, eng := setup(0)
	mi, _, err := instantiate.Instantiate(st, eng, mod, "m", instantiate.Imports{})
	require.NoError(t, err)
	fn, err := st.GetFunction(mi.Exports["grow"].Func)
	require.NoError(t, err)

	require.NoError(t, eng.InvokeFunction(fn))
	v, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v.I32(), "old size returned by first grow")

	mem, err := st.GetMemory(mi.Memories[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(3), mem.CurrPage)

	require.NoError(t, eng.InvokeFunction(fn))
	v, err = sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), int32(v.I32()), "grow past max fails")
	assert.Equal(t, uint32(3), mem.CurrPage, "size unchanged on failed grow")
}

// S3: integer division by zero traps and leaves the stack empty.
func TestS3DivByZeroTraps(t *testing.T) {
	body := []wasmtree.Instr{
		{Op: wasmtree.OpLocalGet, Index: 0},
		{Op: wasmtree.OpI32Const, ConstValue: api.I32(0)},
		{Op: wasmtree.OpI32DivS},
	}
	mod := &wasmtree.Module{
		Types:               []*wasmtree.FunctionType{{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}},
		FunctionTypeIndices: []uint32{0},
		Code:                []wasmtree.Function{{Body: body}},
		Exports:             []wasmtree.Export{{Name: "f", Kind: wasmtree.ExportFunc, Index: 0}},
	}
	st, sk, eng := setup(0)
	mi, _, err := instantiate.Instantiate(st, eng, mod, "m", instantiate.Imports{})
	require.NoError(t, err)
	fn, err := st.GetFunction(mi.Exports["f"].Func)
	require.NoError(t, err)

	entryHeight := sk.Height()
	sk.Push(api.I32(7))
	err = eng.InvokeFunction(fn)
	require.Error(t, err)
	assert.Equal(t, api.KindDivideByZero, api.KindOf(err))
	assert.Equal(t, entryHeight, sk.Height(), "stack restored to entry height after trap")
}

// S4: call_indirect success, out-of-range/empty slot, and type mismatch.
func TestS4CallIndirect(t *testing.T) {
	addType := &wasmtree.FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	mismatchedType := &wasmtree.FunctionType{Params: []api.ValueType{api.ValueTypeI64, api.ValueTypeI64}, Results: []api.ValueType{api.ValueTypeI64}}

	addBody := []wasmtree.Instr{
		{Op: wasmtree.OpLocalGet, Index: 0},
		{Op: wasmtree.OpLocalGet, Index: 1},
		{Op: wasmtree.OpI32Add},
	}
	callerBody := func(idx uint32, typeIdx uint32) []wasmtree.Instr {
		return []wasmtree.Instr{
			{Op: wasmtree.OpI32Const, ConstValue: api.I32(2)},
			{Op: wasmtree.OpI32Const, ConstValue: api.I32(3)},
			{Op: wasmtree.OpI32Const, ConstValue: api.I32(idx)},
			{Op: wasmtree.OpCallIndirect, TypeIdx: typeIdx},
		}
	}

	newModule := func(idx uint32, typeIdx uint32) *wasmtree.Module {
		return &wasmtree.Module{
			Types:               []*wasmtree.FunctionType{addType, mismatchedType},
			FunctionTypeIndices: []uint32{0, 0},
			Code: []wasmtree.Function{
				{Body: addBody},
				{Body: callerBody(idx, typeIdx)},
			},
			Tables:  []wasmtree.TableType{{Min: 2}},
			Exports: []wasmtree.Export{{Name: "call", Kind: wasmtree.ExportFunc, Index: 1}},
			Elements: []wasmtree.ElementSegment{{
				TableIndex:  0,
				Offset:      []wasmtree.Instr{{Op: wasmtree.OpI32Const, ConstValue: api.I32(0)}},
				FuncIndices: []uint32{0},
			}},
		}
	}

	t.Run("success", func(t *testing.T) {
		st, sk, eng := setup(0)
		mi, _, err := instantiate.Instantiate(st, eng, newModule(0, 0), "m", instantiate.Imports{})
		require.NoError(t, err)
		fn, err := st.GetFunction(mi.Exports["call"].Func)
		require.NoError(t, err)
		require.NoError(t, eng.InvokeFunction(fn))
		v, err := sk.Pop()
		require.NoError(t, err)
		assert.Equal(t, uint32(5), v.I32())
	})

	t.Run("empty slot", func(t *testing.T) {
		st, sk, eng := setup(0)
		_ = sk
		mi, _, err := instantiate.Instantiate(st, eng, newModule(1, 0), "m", instantiate.Imports{})
		require.NoError(t, err)
		fn, err := st.GetFunction(mi.Exports["call"].Func)
		require.NoError(t, err)
		err = eng.InvokeFunction(fn)
		require.Error(t, err)
		assert.Equal(t, api.KindWrongInstanceAddress, api.KindOf(err))
	})

	t.Run("type mismatch", func(t *testing.T) {
		st, sk, eng := setup(0)
		_ = sk
		mi, _, err := instantiate.Instantiate(st, eng, newModule(0, 1), "m", instantiate.Imports{})
		require.NoError(t, err)
		fn, err := st.GetFunction(mi.Exports["call"].Func)
		require.NoError(t, err)
		err = eng.InvokeFunction(fn)
		require.Error(t, err)
		assert.Equal(t, api.KindTypeNotMatch, api.KindOf(err))
	})
}

// S5: a host function with a declared cost, exhausted on the second call.
func TestS5HostCostLimit(t *testing.T) {
	st, sk, eng := setup(1500)
	_ = sk

	hm := host.NewModule("env")
	hm.Register("expensive", i32t(), 1000, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
		return store.HostSuccess()
	})
	fi := &store.FunctionInstance{Type: hm.Functions[0].Type, Host: hm.Functions[0].AsCallable()}
	addr := st.AllocateFunction(fi)
	fn, err := st.GetFunction(addr)
	require.NoError(t, err)

	require.NoError(t, eng.InvokeFunction(fn))
	err = eng.InvokeFunction(fn)
	require.Error(t, err)
	assert.Equal(t, api.KindCostLimitExceeded, api.KindOf(err))
}

// S6: an unconditional branch-to-loop terminates on cost-limit-exceeded,
// not on unbounded growth of any engine-internal structure.
func TestS6BranchToLoopTerminatesOnCostLimit(t *testing.T) {
	loop := wasmtree.Instr{Op: wasmtree.OpLoop, BlockArity: 0}
	loop.Then = []wasmtree.Instr{{Op: wasmtree.OpBr, LabelIdx: 0}}
	mod := &wasmtree.Module{
		Types:               []*wasmtree.FunctionType{{}},
		FunctionTypeIndices: []uint32{0},
		Code:                []wasmtree.Function{{Body: []wasmtree.Instr{loop}}},
		Exports:             []wasmtree.Export{{Name: "spin", Kind: wasmtree.ExportFunc, Index: 0}},
	}
	st, _, eng := setup(500)
	mi, _, err := instantiate.Instantiate(st, eng, mod, "m", instantiate.Imports{})
	require.NoError(t, err)
	fn, err := st.GetFunction(mi.Exports["spin"].Func)
	require.NoError(t, err)

	err = eng.InvokeFunction(fn)
	require.Error(t, err)
	assert.Equal(t, api.KindCostLimitExceeded, api.KindOf(err))
}
