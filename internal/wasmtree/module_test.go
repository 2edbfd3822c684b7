package wasmtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func TestFunctionTypeAliasInteroperatesWithAPI(t *testing.T) {
	var ft wasmtree.FunctionType = api.FunctionType{
		Params:  []api.ValueType{api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI64},
	}
	assert.True(t, ft.Equal(&api.FunctionType{
		Params:  []api.ValueType{api.ValueTypeI32},
		Results: []api.ValueType{api.ValueTypeI64},
	}))
}

func TestModuleIndexSpacesAreIndependentOfImports(t *testing.T) {
	mod := &wasmtree.Module{
		Imports: []wasmtree.Import{
			{Module: "env", Field: "log", Kind: wasmtree.ExportFunc, TypeIndex: 0},
		},
		Types:               []*wasmtree.FunctionType{{}},
		FunctionTypeIndices: []uint32{0},
		Code:                []wasmtree.Function{{Body: []wasmtree.Instr{{Op: wasmtree.OpNop}}}},
		Exports: []wasmtree.Export{
			{Name: "run", Kind: wasmtree.ExportFunc, Index: 1},
		},
	}

	// The module-defined function is index 1 in the combined function index
	// space: index 0 belongs to the single import.
	assert.Equal(t, uint32(1), mod.Exports[0].Index)
	assert.Len(t, mod.Code, 1)
	assert.Equal(t, wasmtree.OpNop, mod.Code[0].Body[0].Op)
}

func TestExportKindOrdering(t *testing.T) {
	assert.Equal(t, wasmtree.ExportKind(0), wasmtree.ExportFunc)
	assert.NotEqual(t, wasmtree.ExportFunc, wasmtree.ExportMemory)
	assert.NotEqual(t, wasmtree.ExportTable, wasmtree.ExportGlobal)
}
