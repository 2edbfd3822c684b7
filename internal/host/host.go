// Package host implements the host-function boundary: host module
// registration and the shared memory-access helpers every concrete host
// module (WASI, Ethereum EEI) builds on.
package host

import (
	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/store"
)

// Function is one host-registered callable: a declared FunctionType, gas
// cost, and the invoke capability, tagged with the module/field name it
// will be exposed as.
type Function struct {
	ModuleName string
	Field      string
	Type       *api.FunctionType
	Cost       uint64
	Invoke     func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus
}

func (f *Function) DescribeType() *api.FunctionType { return f.Type }
func (f *Function) DeclaredCost() uint64            { return f.Cost }

// callableAdapter satisfies store.HostCallable for a *Function; kept
// separate because Function already has a field named Invoke, which a
// method of the same name would clash with.
type callableAdapter struct{ f *Function }

func (c callableAdapter) DescribeType() *api.FunctionType { return c.f.Type }
func (c callableAdapter) DeclaredCost() uint64            { return c.f.Cost }
func (c callableAdapter) Invoke(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
	return c.f.Invoke(ops, mem)
}

// AsCallable adapts a Function to store.HostCallable for allocation into
// the store as a FunctionInstance.
func (f *Function) AsCallable() store.HostCallable { return callableAdapter{f} }

// Module is a named collection of host functions, the shape an
// ImportObject exposes for the function half of import resolution; wasi
// and ethereum host modules build one of these at registration time.
type Module struct {
	Name      string
	Functions []*Function
}

func NewModule(name string) *Module { return &Module{Name: name} }

func (m *Module) Register(field string, t *api.FunctionType, cost uint64, invoke func(store.OperandAccess, *store.MemoryInstance) store.HostStatus) {
	m.Functions = append(m.Functions, &Function{
		ModuleName: m.Name,
		Field:      field,
		Type:       t,
		Cost:       cost,
		Invoke:     invoke,
	})
}

// Lookup finds a registered function by field name.
func (m *Module) Lookup(field string) (*Function, bool) {
	for _, f := range m.Functions {
		if f.Field == field {
			return f, true
		}
	}
	return nil, false
}
