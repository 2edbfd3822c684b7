// Package wasmtree defines the decoded module tree this engine consumes.
// Binary parsing and static validation are external collaborators; by the
// time a Module reaches this module it is assumed already decoded and
// validated. The instruction representation is a tree
// of scopes (Block/Loop/If bodies nest their own instruction sequences)
// rather than flat bytecode with jump targets, matching the "instruction
// provider" model of the dispatch engine.
package wasmtree

import "github.com/wazero-vm/core/api"

// Instr is one decoded instruction. Only the fields relevant to its Op are
// populated; the rest are zero.
type Instr struct {
	Op Op

	// Block/Loop/If: result arity of the body (restricted to 0 or 1
	// result) and the nested instruction sequences.
	BlockArity int
	Then       []Instr // Block, Loop, If (then-arm)
	Else       []Instr // If (else-arm), empty if absent

	// Br/BrIf: target label depth.
	LabelIdx uint32
	// BrTable: vector of targets plus the default.
	LabelTable   []uint32
	DefaultLabel uint32

	// Call: callee function index (module-local, resolved to a store
	// address by the engine via the current ModuleInstance).
	FuncIdx uint32
	// CallIndirect: expected type index.
	TypeIdx uint32

	// LocalGet/Set/Tee, GlobalGet/Set.
	Index uint32

	// Memory loads/stores: static byte offset added to the popped i32
	// base address.
	MemOffset uint32

	// MemoryGrow operand count is popped from the stack at runtime, not
	// carried here.

	// Const instructions.
	ConstValue api.Value
}

// FunctionType is re-exported for convenience so callers of this package
// don't need to import api directly for module-tree construction.
type FunctionType = api.FunctionType

// LocalDecl is one run of declared locals of the same type, as Wasm's code
// section encodes them (count, value-type) rather than one entry per local.
type LocalDecl struct {
	Count uint32
	Type  api.ValueType
}

// Function is one entry of the code section: a function body paired with
// its declared locals. The function's signature lives in Module.Types via
// Module.FunctionTypeIndices.
type Function struct {
	Locals []LocalDecl
	Body   []Instr
}

// Global describes a module-defined global: its declared type/mutability
// and the initializer expression evaluated at instantiation time.
type Global struct {
	Type    api.ValueType
	Mutable bool
	Init    []Instr
}

// ElementSegment copies function indices into a table at instantiation.
type ElementSegment struct {
	TableIndex uint32
	Offset     []Instr // i32 init expression
	FuncIndices []uint32
}

// DataSegment copies bytes into a memory at instantiation.
type DataSegment struct {
	MemoryIndex uint32
	Offset      []Instr // i32 init expression
	Bytes       []byte
}

// Export binds a name to an item in one of the module's local index
// spaces.
type ExportKind byte

const (
	ExportFunc ExportKind = iota
	ExportMemory
	ExportTable
	ExportGlobal
)

type Export struct {
	Name string
	Kind ExportKind
	Index uint32
}

// ImportKind mirrors ExportKind for the import side.
type ImportKind = ExportKind

// Import names an external dependency this module expects to be satisfied
// by an ImportObject at instantiation time.
type Import struct {
	Module string
	Field  string
	Kind   ImportKind
	// TypeIndex is meaningful when Kind == ExportFunc.
	TypeIndex uint32
	// MemMin/MemMax are meaningful when Kind == ExportMemory.
	MemMin uint32
	MemMax *uint32
	// TableMin/TableMax are meaningful when Kind == ExportTable.
	TableMin uint32
	TableMax *uint32
	// GlobalType/GlobalMutable are meaningful when Kind == ExportGlobal.
	GlobalType    api.ValueType
	GlobalMutable bool
}

// MemoryType is the declared shape of a module-defined memory.
type MemoryType struct {
	Min uint32
	Max *uint32 // nil when unbounded (up to the absolute page cap).
}

// TableType is the declared shape of a module-defined table. Element kind
// is function reference only.
type TableType struct {
	Min uint32
	Max *uint32
}

// Module is the fully decoded, already-validated module tree handed to
// Instantiate. Index spaces (types, funcs, tables, memories, globals) are
// module-local; the engine translates them to store addresses through the
// resulting ModuleInstance.
type Module struct {
	Types   []*FunctionType
	Imports []Import

	// FunctionTypeIndices has one entry per module-defined function
	// (import functions are not included; they live in Imports), indexing
	// into Types.
	FunctionTypeIndices []uint32
	Code                []Function

	Memories []MemoryType
	Tables   []TableType
	Globals  []Global

	Exports []Export

	// StartFuncIndex indexes into the module's combined function index
	// space (imports first, then module-defined). Nil if no start
	// function is declared.
	StartFuncIndex *uint32

	Elements []ElementSegment
	Data     []DataSegment
}
