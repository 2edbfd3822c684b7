package measure

import "github.com/wazero-vm/core/internal/wasmtree"

// Category names the cost-table priority tiers: cost tables are chosen by
// priority (EVM > WASI > base).
type Category int

const (
	CategoryBase Category = iota
	CategoryWASI
	CategoryEthereum
)

// baseCostTable is a flat per-instruction gas cost used when no host
// category overrides it. Constant, arithmetic and most control-flow
// instructions are cheapest; br_table, memory and call instructions cost
// more, matching the relative expense the ewasm/WASI cost schedules also
// assign to them.
var baseCostTable = buildBaseTable()

func buildBaseTable() CostTable {
	t := make(CostTable, 200)
	// Default: every recognized instruction costs 1 unit unless overridden
	// below. Building the table this way (rather than a bare map literal)
	// mirrors how a real gas schedule starts from a floor and special-cases
	// expensive opcodes.
	for op := 0; op < 256; op++ {
		t[wasmtree.Op(op)] = 1
	}
	// br_table and calls cost more than straight-line arithmetic.
	t[wasmtree.OpCall] = 10
	t[wasmtree.OpCallIndirect] = 20
	t[wasmtree.OpBrTable] = 5
	// Memory instructions cost more than register-like local access.
	for _, op := range []wasmtree.Op{
		wasmtree.OpI32Load, wasmtree.OpI64Load, wasmtree.OpF32Load, wasmtree.OpF64Load,
		wasmtree.OpI32Load8S, wasmtree.OpI32Load8U, wasmtree.OpI32Load16S, wasmtree.OpI32Load16U,
		wasmtree.OpI64Load8S, wasmtree.OpI64Load8U, wasmtree.OpI64Load16S, wasmtree.OpI64Load16U,
		wasmtree.OpI64Load32S, wasmtree.OpI64Load32U,
		wasmtree.OpI32Store, wasmtree.OpI64Store, wasmtree.OpF32Store, wasmtree.OpF64Store,
		wasmtree.OpI32Store8, wasmtree.OpI32Store16, wasmtree.OpI64Store8, wasmtree.OpI64Store16, wasmtree.OpI64Store32,
	} {
		t[op] = 3
	}
	t[wasmtree.OpMemoryGrow] = 100
	return t
}

// wasiCostTable is the 2nd-priority table: identical to base
// except memory.grow and calls are cheaper, reflecting that WASI-hosted
// programs are typically I/O bound rather than compute bound.
var wasiCostTable = buildWASITable()

func buildWASITable() CostTable {
	t := make(CostTable, len(baseCostTable))
	for k, v := range baseCostTable {
		t[k] = v
	}
	t[wasmtree.OpMemoryGrow] = 50
	t[wasmtree.OpCall] = 5
	return t
}

// ethereumCostTable is the 1st-priority table: EEI-hosted
// contracts are metered as close to EVM opcode costs as a Wasm-level table
// can express; per-call gas for copy-shaped host calls is computed
// separately in hostmodules/ethereum using 3*ceil(len/32).
var ethereumCostTable = buildEthereumTable()

func buildEthereumTable() CostTable {
	t := make(CostTable, len(baseCostTable))
	for k, v := range baseCostTable {
		t[k] = v
	}
	t[wasmtree.OpCall] = 40
	t[wasmtree.OpCallIndirect] = 40
	t[wasmtree.OpMemoryGrow] = 300
	return t
}

// TableFor returns the cost table for a category.
func TableFor(c Category) CostTable {
	switch c {
	case CategoryEthereum:
		return ethereumCostTable
	case CategoryWASI:
		return wasiCostTable
	default:
		return baseCostTable
	}
}
