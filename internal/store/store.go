package store

import (
	"fmt"

	"github.com/wazero-vm/core/api"
)

// Store is the runtime image of every instantiated Wasm object: flat
// vectors keyed by stable, allocation-order addresses.
// A Store is exclusively owned by the executing engine for the duration of
// an invocation; it is not safe for concurrent use.
type Store struct {
	functions []*FunctionInstance
	memories  []*MemoryInstance
	tables    []*TableInstance
	globals   []*GlobalInstance
	modules   []*ModuleInstance

	// byName indexes modules allocated under a non-empty name, for
	// GetModuleByName.
	byName map[string]ModuleAddr
}

func New() *Store {
	return &Store{byName: make(map[string]ModuleAddr)}
}

func (s *Store) AllocateFunction(f *FunctionInstance) FuncAddr {
	s.functions = append(s.functions, f)
	return FuncAddr(len(s.functions) - 1)
}

func (s *Store) AllocateMemory(m *MemoryInstance) MemAddr {
	s.memories = append(s.memories, m)
	return MemAddr(len(s.memories) - 1)
}

func (s *Store) AllocateTable(t *TableInstance) TableAddr {
	s.tables = append(s.tables, t)
	return TableAddr(len(s.tables) - 1)
}

func (s *Store) AllocateGlobal(g *GlobalInstance) GlobalAddr {
	s.globals = append(s.globals, g)
	return GlobalAddr(len(s.globals) - 1)
}

func (s *Store) AllocateModule(m *ModuleInstance) ModuleAddr {
	s.modules = append(s.modules, m)
	addr := ModuleAddr(len(s.modules) - 1)
	if m.Name != "" {
		s.byName[m.Name] = addr
	}
	return addr
}

func wrongAddr(kind string, addr int) error {
	return api.NewError(api.KindWrongInstanceAddress, fmt.Sprintf("%s address %d out of range", kind, addr))
}

func (s *Store) GetFunction(a FuncAddr) (*FunctionInstance, error) {
	if a < 0 || int(a) >= len(s.functions) {
		return nil, wrongAddr("function", int(a))
	}
	return s.functions[a], nil
}

func (s *Store) GetMemory(a MemAddr) (*MemoryInstance, error) {
	if a < 0 || int(a) >= len(s.memories) {
		return nil, wrongAddr("memory", int(a))
	}
	return s.memories[a], nil
}

func (s *Store) GetTable(a TableAddr) (*TableInstance, error) {
	if a < 0 || int(a) >= len(s.tables) {
		return nil, wrongAddr("table", int(a))
	}
	return s.tables[a], nil
}

func (s *Store) GetGlobal(a GlobalAddr) (*GlobalInstance, error) {
	if a < 0 || int(a) >= len(s.globals) {
		return nil, wrongAddr("global", int(a))
	}
	return s.globals[a], nil
}

func (s *Store) GetModule(a ModuleAddr) (*ModuleInstance, error) {
	if a < 0 || int(a) >= len(s.modules) {
		return nil, wrongAddr("module", int(a))
	}
	return s.modules[a], nil
}

// GetModuleByName looks up a previously allocated module by its
// registration name.
func (s *Store) GetModuleByName(name string) (*ModuleInstance, ModuleAddr, bool) {
	addr, ok := s.byName[name]
	if !ok {
		return nil, invalidAddr, false
	}
	m, err := s.GetModule(addr)
	if err != nil {
		return nil, invalidAddr, false
	}
	return m, addr, true
}

// Reset drops all instances; any previously issued address becomes
// invalid. Modules live from instantiation until Reset.
func (s *Store) Reset() {
	s.functions = nil
	s.memories = nil
	s.tables = nil
	s.globals = nil
	s.modules = nil
	s.byName = make(map[string]ModuleAddr)
}
