// Package measure implements the cost/gas accounting collaborator. It is
// injected into the engine as an interface with a no-op default, keeping
// timers, cost tables, and metering state out of global scope so the
// engine runs without observability overhead when nothing needs it.
package measure

import (
	"time"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/wasmtree"
)

// TimerTag distinguishes the two clocks the engine tracks: time spent in
// the dispatch loop itself versus time spent inside host function calls.
type TimerTag int

const (
	TimerExecution TimerTag = iota
	TimerHostFunc
)

// CostTable maps opcode -> gas cost. Missing entries cost zero.
type CostTable map[wasmtree.Op]uint64

// Measure is the metering/observability collaborator the engine consults
// on every dispatched instruction and every host-function entry.
type Measure interface {
	// SetCostTable replaces the active per-opcode cost table (used when a
	// host category with higher priority is registered).
	SetCostTable(CostTable)
	// SetCostLimit sets the budget; CostSum must never exceed it.
	SetCostLimit(limit uint64)
	CostLimit() uint64
	CostSum() uint64
	InstrCount() uint64

	// AddInstrCost increments the instruction counter and adds the
	// opcode's table cost to CostSum, failing cost-limit-exceeded if that
	// would exceed CostLimit.
	AddInstrCost(op wasmtree.Op) error
	// AddCost adds an arbitrary cost (used for host-function declared
	// cost), failing cost-limit-exceeded if that would exceed CostLimit.
	AddCost(cost uint64) error

	StartTimer(TimerTag)
	StopTimer(TimerTag) time.Duration
	ExecutionNanos() int64
	HostFuncNanos() int64

	Clear()
}

// measure is the concrete implementation backing both the no-op default
// and any caller-configured budget.
type measure struct {
	table CostTable
	limit uint64
	sum   uint64
	instrCount uint64

	timerStart map[TimerTag]time.Time
	nanos      map[TimerTag]int64
}

// New returns a Measure with the given cost table and an unbounded limit;
// callers set a limit via SetCostLimit.
func New(table CostTable) Measure {
	return &measure{
		table:      table,
		limit:      ^uint64(0),
		timerStart: make(map[TimerTag]time.Time),
		nanos:      make(map[TimerTag]int64),
	}
}

// NoOp returns the zero-cost, unbounded-limit default: every instruction is
// free and CostSum never approaches CostLimit, so a caller that never
// touches cost limits pays no metering overhead in outcome (accounting
// still happens, it simply never traps).
func NoOp() Measure { return New(nil) }

func (m *measure) SetCostTable(t CostTable) { m.table = t }
func (m *measure) SetCostLimit(limit uint64) { m.limit = limit }
func (m *measure) CostLimit() uint64 { return m.limit }
func (m *measure) CostSum() uint64 { return m.sum }
func (m *measure) InstrCount() uint64 { return m.instrCount }

func (m *measure) AddInstrCost(op wasmtree.Op) error {
	m.instrCount++
	return m.AddCost(m.table[op])
}

func (m *measure) AddCost(cost uint64) error {
	if m.sum+cost > m.limit {
		return api.NewError(api.KindCostLimitExceeded, "cost budget exhausted")
	}
	m.sum += cost
	return nil
}

func (m *measure) StartTimer(tag TimerTag) {
	m.timerStart[tag] = time.Now()
}

func (m *measure) StopTimer(tag TimerTag) time.Duration {
	start, ok := m.timerStart[tag]
	if !ok {
		return 0
	}
	d := time.Since(start)
	m.nanos[tag] += d.Nanoseconds()
	delete(m.timerStart, tag)
	return d
}

func (m *measure) ExecutionNanos() int64 { return m.nanos[TimerExecution] }
func (m *measure) HostFuncNanos() int64  { return m.nanos[TimerHostFunc] }

func (m *measure) Clear() {
	m.sum = 0
	m.instrCount = 0
	m.timerStart = make(map[TimerTag]time.Time)
	m.nanos = make(map[TimerTag]int64)
}
