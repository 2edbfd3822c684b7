// Package instantiate turns a decoded, validated
// module tree into a live ModuleInstance registered in a Store, resolving
// its imports against caller-supplied ImportObjects and running its
// initializer expressions through the dispatch engine.
package instantiate

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/engine"
	"github.com/wazero-vm/core/internal/store"
	"github.com/wazero-vm/core/internal/wasmtree"
)

// ImportObject exposes one host or previously-instantiated module's
// importable surface, addressed by field name within a single kind.
type ImportObject struct {
	Functions map[string]store.FuncAddr
	Memories  map[string]store.MemAddr
	Tables    map[string]store.TableAddr
	Globals   map[string]store.GlobalAddr
}

func NewImportObject() *ImportObject {
	return &ImportObject{
		Functions: make(map[string]store.FuncAddr),
		Memories:  make(map[string]store.MemAddr),
		Tables:    make(map[string]store.TableAddr),
		Globals:   make(map[string]store.GlobalAddr),
	}
}

// Imports is the name-indexed set of ImportObjects a single instantiation
// resolves against, keyed by the module name an Import references.
type Imports map[string]*ImportObject

func instantiateFailed(format string, args ...interface{}) error {
	return api.NewError(api.KindInstantiateFailed, fmt.Sprintf(format, args...))
}

// wrapInstantiateFailed attaches a stack trace to an error surfaced by a
// nested collaborator (the engine, the store) before it crosses the
// instantiation boundary, matching moby's daemon-boundary wrapping pattern.
func wrapInstantiateFailed(cause error, format string, args ...interface{}) error {
	return api.Wrap(api.KindInstantiateFailed, errors.WithStack(cause), fmt.Sprintf(format, args...))
}

// Instantiate runs the six-step instantiation procedure and returns the
// resulting ModuleInstance and its store address. name may be empty for an
// anonymous instance; a non-empty name registers it for later lookup by
// GetModuleByName (and by later modules' Imports).
func Instantiate(st *store.Store, eng *engine.Engine, mod *wasmtree.Module, name string, imports Imports) (*store.ModuleInstance, store.ModuleAddr, error) {
	mi := store.NewModuleInstance(name)
	mi.Types = mod.Types
	addr := st.AllocateModule(mi)

	// Step 1: resolve imports, populating the front of each index space.
	if err := resolveImports(st, mod, mi, imports); err != nil {
		return nil, 0, err
	}

	// Step 2a: allocate module-defined FunctionInstances.
	for i, typeIdx := range mod.FunctionTypeIndices {
		if int(typeIdx) >= len(mod.Types) {
			return nil, 0, instantiateFailed("function %d: type index %d out of range", i, typeIdx)
		}
		code := mod.Code[i]
		fn := &store.FunctionInstance{
			Type:   mod.Types[typeIdx],
			Owner:  addr,
			Locals: code.Locals,
			Body:   code.Body,
		}
		mi.Functions = append(mi.Functions, st.AllocateFunction(fn))
	}

	// Step 2b: allocate module-defined MemoryInstances (size = MinPage).
	for _, mt := range mod.Memories {
		m := store.NewMemoryInstance(mt.Min, mt.Max)
		mi.Memories = append(mi.Memories, st.AllocateMemory(m))
	}

	// Step 2c: allocate module-defined TableInstances.
	for _, tt := range mod.Tables {
		t := store.NewTableInstance(tt.Min, tt.Max)
		mi.Tables = append(mi.Tables, st.AllocateTable(t))
	}

	// Step 2d: allocate module-defined GlobalInstances, evaluating each
	// init expression via a minimal auxiliary frame. Globals may only
	// reference earlier entries in this module's global
	// index space (already-resolved imports, or earlier module globals),
	// which mi.Globals holds at this point in the loop.
	for i, g := range mod.Globals {
		val, err := eng.RunInitExpr(int(addr), g.Init)
		if err != nil {
			return nil, 0, wrapInstantiateFailed(err, "global %d init expression", i)
		}
		gi := &store.GlobalInstance{Type: g.Type, Mutable: g.Mutable, Value: val}
		mi.Globals = append(mi.Globals, st.AllocateGlobal(gi))
	}

	// Step 3: element segments copy function addresses into tables.
	for i, elem := range mod.Elements {
		if int(elem.TableIndex) >= len(mi.Tables) {
			return nil, 0, instantiateFailed("element segment %d: table index %d out of range", i, elem.TableIndex)
		}
		offVal, err := eng.RunInitExpr(int(addr), elem.Offset)
		if err != nil {
			return nil, 0, wrapInstantiateFailed(err, "element segment %d offset expression", i)
		}
		table, err := st.GetTable(mi.Tables[elem.TableIndex])
		if err != nil {
			return nil, 0, err
		}
		offset := int(offVal.I32())
		if offset < 0 || offset+len(elem.FuncIndices) > len(table.Elements) {
			return nil, 0, instantiateFailed("element segment %d: offset %d + length %d exceeds table size %d",
				i, offset, len(elem.FuncIndices), len(table.Elements))
		}
		for j, fidx := range elem.FuncIndices {
			if int(fidx) >= len(mi.Functions) {
				return nil, 0, instantiateFailed("element segment %d: function index %d out of range", i, fidx)
			}
			funcAddr := mi.Functions[fidx]
			table.Elements[offset+j] = &funcAddr
		}
	}

	// Step 4: data segments copy bytes into memories.
	for i, data := range mod.Data {
		if int(data.MemoryIndex) >= len(mi.Memories) {
			return nil, 0, instantiateFailed("data segment %d: memory index %d out of range", i, data.MemoryIndex)
		}
		offVal, err := eng.RunInitExpr(int(addr), data.Offset)
		if err != nil {
			return nil, 0, wrapInstantiateFailed(err, "data segment %d offset expression", i)
		}
		mem, err := st.GetMemory(mi.Memories[data.MemoryIndex])
		if err != nil {
			return nil, 0, err
		}
		offset := uint64(offVal.I32())
		if !mem.Bounds(offset, uint64(len(data.Bytes))) {
			return nil, 0, instantiateFailed("data segment %d: offset %d + length %d exceeds memory size %d",
				i, offset, len(data.Bytes), len(mem.Data))
		}
		copy(mem.Data[offset:], data.Bytes)
	}

	// Step 5: bind exports.
	for _, exp := range mod.Exports {
		ei, err := resolveExport(mi, exp)
		if err != nil {
			return nil, 0, err
		}
		mi.Export(exp.Name, ei)
	}

	// Step 6: invoke the start function, propagating any trap.
	if mod.StartFuncIndex != nil {
		idx := *mod.StartFuncIndex
		if int(idx) >= len(mi.Functions) {
			return nil, 0, instantiateFailed("start function index %d out of range", idx)
		}
		fn, err := st.GetFunction(mi.Functions[idx])
		if err != nil {
			return nil, 0, err
		}
		if err := eng.InvokeFunction(fn); err != nil {
			return nil, 0, err
		}
	}

	return mi, addr, nil
}

func resolveExport(mi *store.ModuleInstance, exp wasmtree.Export) (*store.ExportInstance, error) {
	switch exp.Kind {
	case wasmtree.ExportFunc:
		if int(exp.Index) >= len(mi.Functions) {
			return nil, instantiateFailed("export %q: function index %d out of range", exp.Name, exp.Index)
		}
		return &store.ExportInstance{Kind: exp.Kind, Func: mi.Functions[exp.Index]}, nil
	case wasmtree.ExportMemory:
		if int(exp.Index) >= len(mi.Memories) {
			return nil, instantiateFailed("export %q: memory index %d out of range", exp.Name, exp.Index)
		}
		return &store.ExportInstance{Kind: exp.Kind, Memory: mi.Memories[exp.Index]}, nil
	case wasmtree.ExportTable:
		if int(exp.Index) >= len(mi.Tables) {
			return nil, instantiateFailed("export %q: table index %d out of range", exp.Name, exp.Index)
		}
		return &store.ExportInstance{Kind: exp.Kind, Table: mi.Tables[exp.Index]}, nil
	case wasmtree.ExportGlobal:
		if int(exp.Index) >= len(mi.Globals) {
			return nil, instantiateFailed("export %q: global index %d out of range", exp.Name, exp.Index)
		}
		return &store.ExportInstance{Kind: exp.Kind, Global: mi.Globals[exp.Index]}, nil
	default:
		return nil, instantiateFailed("export %q: unknown export kind", exp.Name)
	}
}

// resolveImports resolves every import by
// (module name, field name, expected type), appending the resolved address
// to the front of the corresponding index space in encounter order.
func resolveImports(st *store.Store, mod *wasmtree.Module, mi *store.ModuleInstance, imports Imports) error {
	for _, imp := range mod.Imports {
		obj, ok := imports[imp.Module]
		if !ok {
			return instantiateFailed("import %s.%s: module not provided", imp.Module, imp.Field)
		}
		switch imp.Kind {
		case wasmtree.ExportFunc:
			addr, ok := obj.Functions[imp.Field]
			if !ok {
				return instantiateFailed("import %s.%s: function not found", imp.Module, imp.Field)
			}
			fn, err := st.GetFunction(addr)
			if err != nil {
				return err
			}
			if int(imp.TypeIndex) >= len(mod.Types) {
				return instantiateFailed("import %s.%s: type index %d out of range", imp.Module, imp.Field, imp.TypeIndex)
			}
			if !fn.Type.Equal(mod.Types[imp.TypeIndex]) {
				return instantiateFailed("import %s.%s: function type mismatch", imp.Module, imp.Field)
			}
			mi.Functions = append(mi.Functions, addr)

		case wasmtree.ExportMemory:
			addr, ok := obj.Memories[imp.Field]
			if !ok {
				return instantiateFailed("import %s.%s: memory not found", imp.Module, imp.Field)
			}
			mem, err := st.GetMemory(addr)
			if err != nil {
				return err
			}
			if mem.MinPage < imp.MemMin {
				return instantiateFailed("import %s.%s: memory too small (has %d pages, need %d)", imp.Module, imp.Field, mem.MinPage, imp.MemMin)
			}
			if imp.MemMax != nil && (mem.MaxPage == nil || *mem.MaxPage > *imp.MemMax) {
				return instantiateFailed("import %s.%s: memory max page mismatch", imp.Module, imp.Field)
			}
			mi.Memories = append(mi.Memories, addr)

		case wasmtree.ExportTable:
			addr, ok := obj.Tables[imp.Field]
			if !ok {
				return instantiateFailed("import %s.%s: table not found", imp.Module, imp.Field)
			}
			tbl, err := st.GetTable(addr)
			if err != nil {
				return err
			}
			if tbl.Min < imp.TableMin {
				return instantiateFailed("import %s.%s: table too small (has %d entries, need %d)", imp.Module, imp.Field, tbl.Min, imp.TableMin)
			}
			if imp.TableMax != nil && (tbl.Max == nil || *tbl.Max > *imp.TableMax) {
				return instantiateFailed("import %s.%s: table max size mismatch", imp.Module, imp.Field)
			}
			mi.Tables = append(mi.Tables, addr)

		case wasmtree.ExportGlobal:
			addr, ok := obj.Globals[imp.Field]
			if !ok {
				return instantiateFailed("import %s.%s: global not found", imp.Module, imp.Field)
			}
			g, err := st.GetGlobal(addr)
			if err != nil {
				return err
			}
			if g.Type != imp.GlobalType || g.Mutable != imp.GlobalMutable {
				return instantiateFailed("import %s.%s: global type/mutability mismatch", imp.Module, imp.Field)
			}
			mi.Globals = append(mi.Globals, addr)

		default:
			return instantiateFailed("import %s.%s: unknown import kind", imp.Module, imp.Field)
		}
	}
	return nil
}
