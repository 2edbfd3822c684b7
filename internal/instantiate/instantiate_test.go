package instantiate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/engine"
	"github.com/wazero-vm/core/internal/instantiate"
	"github.com/wazero-vm/core/internal/measure"
	"github.com/wazero-vm/core/internal/stack"
	"github.com/wazero-vm/core/internal/store"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func harness() (*store.Store, *engine.Engine) {
	st := store.New()
	sk := stack.New()
	return st, engine.New(st, sk, measure.NoOp(), nil)
}

func TestInstantiateGlobalInitAndDataSegment(t *testing.T) {
	mod := &wasmtree.Module{
		Globals: []wasmtree.Global{
			{Type: api.ValueTypeI32, Mutable: false, Init: []wasmtree.Instr{{Op: wasmtree.OpI32Const, ConstValue: api.I32(42)}}},
		},
		Memories: []wasmtree.MemoryType{{Min: 1}},
		Data: []wasmtree.DataSegment{{
			MemoryIndex: 0,
			Offset:      []wasmtree.Instr{{Op: wasmtree.OpI32Const, ConstValue: api.I32(4)}},
			Bytes:       []byte{0xde, 0xad, 0xbe, 0xef},
		}},
		Exports: []wasmtree.Export{
			{Name: "g", Kind: wasmtree.ExportGlobal, Index: 0},
			{Name: "mem", Kind: wasmtree.ExportMemory, Index: 0},
		},
	}
	st, eng := harness()
	mi, _, err := instantiate.Instantiate(st, eng, mod, "m", instantiate.Imports{})
	require.NoError(t, err)

	g, err := st.GetGlobal(mi.Exports["g"].Global)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), g.Value.I32())

	mem, err := st.GetMemory(mi.Exports["mem"].Memory)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, mem.Data[4:8])
}

func TestInstantiateRunsStartFunction(t *testing.T) {
	started := false
	mod := &wasmtree.Module{
		Imports: []wasmtree.Import{{Module: "env", Field: "mark", Kind: wasmtree.ExportFunc, TypeIndex: 0}},
		Types:   []*wasmtree.FunctionType{{}},
	}
	startIdx := uint32(0)
	mod.StartFuncIndex = &startIdx

	st, eng := harness()
	fi := &store.FunctionInstance{
		Type: &api.FunctionType{},
		Host: markerCallable{onCall: func() { started = true }},
	}
	addr := st.AllocateFunction(fi)
	imports := instantiate.Imports{"env": {Functions: map[string]store.FuncAddr{"mark": addr}, Memories: map[string]store.MemAddr{}, Tables: map[string]store.TableAddr{}, Globals: map[string]store.GlobalAddr{}}}

	_, _, err := instantiate.Instantiate(st, eng, mod, "m", imports)
	require.NoError(t, err)
	assert.True(t, started)
}

func TestInstantiateFailsOnMissingImport(t *testing.T) {
	mod := &wasmtree.Module{
		Imports: []wasmtree.Import{{Module: "env", Field: "missing", Kind: wasmtree.ExportFunc, TypeIndex: 0}},
		Types:   []*wasmtree.FunctionType{{}},
	}
	st, eng := harness()
	_, _, err := instantiate.Instantiate(st, eng, mod, "m", instantiate.Imports{})
	require.Error(t, err)
	assert.Equal(t, api.KindInstantiateFailed, api.KindOf(err))
}

type markerCallable struct {
	onCall func()
}

func (m markerCallable) DescribeType() *api.FunctionType { return &api.FunctionType{} }
func (m markerCallable) DeclaredCost() uint64             { return 0 }
func (m markerCallable) Invoke(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
	m.onCall()
	return store.HostSuccess()
}
