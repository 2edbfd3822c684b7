package store

import (
	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/wasmtree"
)

// PageSize is the fixed Wasm linear-memory page size.
const PageSize = 65536

// MaxPages is the absolute page cap a memory can never grow past even
// without a declared maximum (2^16 pages == 4 GiB).
const MaxPages = 65536

// Addresses are allocation-order indices into the Store's per-kind vectors.
// They are stable until Store.Reset and are never reused within a
// generation (Design Notes: "arena + stable index").
type (
	FuncAddr   int
	MemAddr    int
	TableAddr  int
	GlobalAddr int
	ModuleAddr int
)

const invalidAddr = -1

// HostCallable is the single polymorphic capability every host-registered
// function implements (Design Notes: "deep template/virtual hierarchy...
// becomes a single polymorphic HostCallable capability").
type HostCallable interface {
	// DescribeType returns the function's declared signature.
	DescribeType() *api.FunctionType
	// DeclaredCost is the non-negative gas cost charged before Invoke runs.
	DeclaredCost() uint64
	// Invoke consumes its declared parameters from the operand stack and
	// pushes its declared results, given a read/write view of the
	// designated memory. It returns a HostStatus rather than a Go error so
	// revert/terminated/cost-limit-exceeded can be distinguished from a
	// generic failure by the engine's outer loop.
	Invoke(ops OperandAccess, mem *MemoryInstance) HostStatus
}

// OperandAccess is the minimal operand-stack surface a host function needs:
// push/pop of Values. internal/stack.Stack satisfies this.
type OperandAccess interface {
	Push(api.Value)
	Pop() (api.Value, error)
}

// HostStatus is the result of a host-function invocation. Kind follows the
// api.ErrorKind taxonomy so revert/terminated/cost-limit-exceeded can be
// distinguished from a generic failure.
type HostStatus struct {
	Kind api.ErrorKind
	Err  error
}

func HostSuccess() HostStatus { return HostStatus{Kind: api.KindSuccess} }

func HostFailure(kind api.ErrorKind, err error) HostStatus {
	return HostStatus{Kind: kind, Err: err}
}

func (s HostStatus) OK() bool { return s.Kind == api.KindSuccess }

// FunctionInstance is either Native (a decoded Wasm function body owned by
// a ModuleInstance) or Host (an opaque callable registered by a host
// module). Exactly one of Body/Host is set.
type FunctionInstance struct {
	Type *api.FunctionType

	// Owner is the owning module's store address, used to resolve
	// module-relative indices (functions/memories/tables/globals) while
	// executing this function's body. Zero-valued (and ignored) for host
	// functions.
	Owner ModuleAddr

	// Native fields.
	Locals []wasmtree.LocalDecl
	Body   []wasmtree.Instr

	// Host fields.
	Host HostCallable

	// ModuleName/Field record where a host function was registered, used
	// for diagnostics and by import resolution.
	ModuleName string
	Field      string
}

func (f *FunctionInstance) IsHost() bool { return f.Host != nil }

// MemoryInstance is a linear memory: a byte vector plus page bookkeeping.
type MemoryInstance struct {
	Data     []byte
	MinPage  uint32
	MaxPage  *uint32 // nil means unbounded up to MaxPages.
	CurrPage uint32
}

func NewMemoryInstance(minPage uint32, maxPage *uint32) *MemoryInstance {
	return &MemoryInstance{
		Data:     make([]byte, uint64(minPage)*PageSize),
		MinPage:  minPage,
		MaxPage:  maxPage,
		CurrPage: minPage,
	}
}

// Grow attempts to add n pages. It returns the previous page count on
// success, or -1 if growth would exceed MaxPage (when set) or MaxPages.
// Memory is left unchanged on failure.
func (m *MemoryInstance) Grow(n uint32) int64 {
	newPages := uint64(m.CurrPage) + uint64(n)
	if newPages > MaxPages {
		return -1
	}
	if m.MaxPage != nil && newPages > uint64(*m.MaxPage) {
		return -1
	}
	old := m.CurrPage
	m.Data = append(m.Data, make([]byte, uint64(n)*PageSize)...)
	m.CurrPage = uint32(newPages)
	return int64(old)
}

// Bounds reports whether [offset, offset+width) lies within Data.
func (m *MemoryInstance) Bounds(offset uint64, width uint64) bool {
	end := offset + width
	return end >= offset && end <= uint64(len(m.Data))
}

// TableInstance holds optional function addresses; the element kind is
// function reference only. A nil slot is empty.
type TableInstance struct {
	Elements []*FuncAddr
	Min      uint32
	Max      *uint32
}

func NewTableInstance(min uint32, max *uint32) *TableInstance {
	return &TableInstance{Elements: make([]*FuncAddr, min), Min: min, Max: max}
}

// GlobalInstance is a mutable-or-immutable module-level value cell.
type GlobalInstance struct {
	Type    api.ValueType
	Mutable bool
	Value   api.Value
}

// ExportInstance is one exported name inside a ModuleInstance, resolved to
// a store address of the corresponding kind.
type ExportKind = wasmtree.ExportKind

type ExportInstance struct {
	Kind ExportKind
	// Exactly one of the following is meaningful, selected by Kind.
	Func   FuncAddr
	Memory MemAddr
	Table  TableAddr
	Global GlobalAddr
}

// ModuleInstance maps a module's local index spaces to store-wide
// addresses. It is itself stored by address so FunctionInstance.Owner can
// reference it without an ownership edge (Design Notes: cyclic references
// resolved via arena + stable index).
type ModuleInstance struct {
	Name string

	Functions []FuncAddr
	Memories  []MemAddr
	Tables    []TableAddr
	Globals   []GlobalAddr
	Types     []*api.FunctionType

	Exports map[string]*ExportInstance
}

func NewModuleInstance(name string) *ModuleInstance {
	return &ModuleInstance{Name: name, Exports: make(map[string]*ExportInstance)}
}

// Export registers name -> export under this module; re-registration under
// the same name overwrites.
func (m *ModuleInstance) Export(name string, e *ExportInstance) {
	m.Exports[name] = e
}
