// Package vm implements the VM facade: the stage machine and public
// operations (registerModule, loadWasm, validate, instantiate, execute,
// cleanup, cost-limit accessors, memory helpers) that collaborators drive
// the core engine through.
package vm

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/engine"
	"github.com/wazero-vm/core/internal/host"
	"github.com/wazero-vm/core/internal/instantiate"
	"github.com/wazero-vm/core/internal/measure"
	"github.com/wazero-vm/core/internal/stack"
	"github.com/wazero-vm/core/internal/store"
	"github.com/wazero-vm/core/internal/wasmtree"
)

// Stage is one state of the VM stage machine:
// Inited -> Loaded -> Validated -> Instantiated.
type Stage int

const (
	StageInited Stage = iota
	StageLoaded
	StageValidated
	StageInstantiated
)

func (s Stage) String() string {
	switch s {
	case StageInited:
		return "inited"
	case StageLoaded:
		return "loaded"
	case StageValidated:
		return "validated"
	case StageInstantiated:
		return "instantiated"
	default:
		return "unknown"
	}
}

// HostCategory names one of the recognized host module categories, which
// select the active cost table by priority.
type HostCategory int

const (
	CategoryExtension HostCategory = iota
	CategoryWASI
	CategoryEthereum
)

// VM is the facade a CLI or embedding program drives. It owns exactly one
// Store/Stack/Engine triple and one pending module at a time; instantiating
// multiple independent modules concurrently is out of scope.
type VM struct {
	store   *store.Store
	stack   *stack.Stack
	engine  *engine.Engine
	measure measure.Measure
	log     *logrus.Logger

	stage Stage

	pendingName string
	pendingMod  *wasmtree.Module

	imports        instantiate.Imports
	activeCategory HostCategory

	instance     *store.ModuleInstance
	instanceAddr store.ModuleAddr
}

// Option configures a VM at construction time via functional options,
// forgoing a config-file format.
type Option func(*VM)

// WithLogger attaches a logger the VM facade (not the engine's hot path)
// uses for instantiation and top-level execution diagnostics.
func WithLogger(log *logrus.Logger) Option {
	return func(v *VM) { v.log = log }
}

// WithCostLimit sets the initial metering budget; equivalent to calling
// SetCostLimit immediately after New.
func WithCostLimit(limit uint64) Option {
	return func(v *VM) { v.measure.SetCostLimit(limit) }
}

// New builds a VM in the Inited stage with the base cost table and an
// unbounded limit until overridden.
func New(opts ...Option) *VM {
	v := &VM{
		store:   store.New(),
		stack:   stack.New(),
		measure: measure.New(measure.TableFor(measure.CategoryBase)),
		imports: make(instantiate.Imports),
		stage:   StageInited,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.engine = engine.New(v.store, v.stack, v.measure, v.log)
	return v
}

func (v *VM) logf(format string, args ...interface{}) {
	if v.log != nil {
		v.log.Infof(format, args...)
	}
}

func wrongWorkflow(op string, stage Stage) error {
	return api.NewError(api.KindWrongVMWorkflow, fmt.Sprintf("%s requires a later stage than %s", op, stage))
}

// RegisterModule adds a host or sibling-module import provider under name,
// available to satisfy imports of the module later passed to LoadWasm.
// Registering while Instantiated drops the stage back to Validated, since
// the store's module view must be rebuilt.
func (v *VM) RegisterModule(name string, obj *instantiate.ImportObject) {
	v.imports[name] = obj
	v.logf("registered import module %q", name)
	if v.stage == StageInstantiated {
		v.stage = StageValidated
	}
}

// RegisterHostModule allocates every function of a host.Module into the
// store and registers the resulting ImportObject under m.Name, additionally
// promoting the active cost table if category outranks the currently active
// one. Cost tables are chosen by priority: Ethereum outranks WASI, which
// outranks the base table.
func (v *VM) RegisterHostModule(m *host.Module, category HostCategory) {
	obj := instantiate.NewImportObject()
	for _, fn := range m.Functions {
		fi := &store.FunctionInstance{
			Type:       fn.Type,
			Host:       fn.AsCallable(),
			ModuleName: fn.ModuleName,
			Field:      fn.Field,
		}
		obj.Functions[fn.Field] = v.store.AllocateFunction(fi)
	}
	v.RegisterModule(m.Name, obj)

	if categoryOutranks(category, v.activeCategory) {
		v.activeCategory = category
		v.measure.SetCostTable(measure.TableFor(toMeasureCategory(category)))
		v.logf("cost table promoted to %v", category)
	}
}

func categoryOutranks(candidate, current HostCategory) bool {
	return candidate > current
}

func toMeasureCategory(c HostCategory) measure.Category {
	switch c {
	case CategoryEthereum:
		return measure.CategoryEthereum
	case CategoryWASI:
		return measure.CategoryWASI
	default:
		return measure.CategoryBase
	}
}

// LoadWasm sets the module the VM will validate and instantiate. Binary
// decoding is an external collaborator: mod must already be a decoded,
// well-formed module tree. Transitions to Loaded.
func (v *VM) LoadWasm(name string, mod *wasmtree.Module) {
	v.pendingName = name
	v.pendingMod = mod
	v.stage = StageLoaded
	v.logf("loaded module %q", name)
}

// Validate transitions Loaded -> Validated. Static type/control-flow
// validation is an external collaborator; this step only enforces that a
// module was actually loaded.
func (v *VM) Validate() error {
	if v.stage < StageLoaded {
		return wrongWorkflow("validate", v.stage)
	}
	v.stage = StageValidated
	return nil
}

// Instantiate transitions Validated -> Instantiated, running the six-step
// instantiation procedure against the currently registered import
// providers.
func (v *VM) Instantiate() error {
	if v.stage < StageValidated {
		return wrongWorkflow("instantiate", v.stage)
	}
	mi, addr, err := instantiate.Instantiate(v.store, v.engine, v.pendingMod, v.pendingName, v.imports)
	if err != nil {
		v.logf("instantiation failed: %v", err)
		return err
	}
	v.instance = mi
	v.instanceAddr = addr
	v.stage = StageInstantiated
	v.logf("instantiated module %q", v.pendingName)
	return nil
}

// Execute requires Instantiated; it invokes the named exported function
// with args and returns its results or a structured error.
func (v *VM) Execute(funcName string, args []api.Value) ([]api.Value, error) {
	if v.stage != StageInstantiated {
		return nil, wrongWorkflow("execute", v.stage)
	}
	exp, ok := v.instance.Exports[funcName]
	if !ok || exp.Kind != wasmtree.ExportFunc {
		return nil, api.NewError(api.KindFunctionInvalid, fmt.Sprintf("no exported function %q", funcName))
	}
	fn, err := v.store.GetFunction(exp.Func)
	if err != nil {
		return nil, err
	}
	if len(args) != len(fn.Type.Params) {
		return nil, api.NewError(api.KindCallFunctionError, fmt.Sprintf("%s expects %d arguments, got %d", funcName, len(fn.Type.Params), len(args)))
	}
	for i, a := range args {
		if a.Type != fn.Type.Params[i] {
			return nil, api.NewError(api.KindCallFunctionError, fmt.Sprintf("%s argument %d: expected %s, got %s", funcName, i, fn.Type.Params[i], a.Type))
		}
	}

	entryHeight := v.stack.Height()
	for _, a := range args {
		v.stack.Push(a)
	}

	v.measure.StartTimer(measure.TimerExecution)
	err = v.engine.InvokeFunction(fn)
	v.measure.StopTimer(measure.TimerExecution)
	if err != nil {
		if kind := api.KindOf(err); kind == api.KindTerminated {
			return nil, nil
		}
		v.logf("execution of %q failed: %v", funcName, err)
		return nil, err
	}

	results := make([]api.Value, len(fn.Type.Results))
	for i := len(results) - 1; i >= 0; i-- {
		val, err := v.stack.Pop()
		if err != nil {
			return nil, err
		}
		results[i] = val
	}
	if v.stack.Height() != entryHeight {
		return nil, api.NewError(api.KindStackWrongEntry, "operand stack imbalance after invocation")
	}
	return results, nil
}

// FunctionList returns the exported function names and types of the
// currently instantiated module.
func (v *VM) FunctionList() (map[string]*api.FunctionType, error) {
	if v.stage != StageInstantiated {
		return nil, wrongWorkflow("functionList", v.stage)
	}
	out := make(map[string]*api.FunctionType)
	for name, exp := range v.instance.Exports {
		if exp.Kind != wasmtree.ExportFunc {
			continue
		}
		fn, err := v.store.GetFunction(exp.Func)
		if err != nil {
			return nil, err
		}
		out[name] = fn.Type
	}
	return out, nil
}

// Cleanup resets the store, stack, and stage machine to their initial
// state.
func (v *VM) Cleanup() {
	v.store.Reset()
	v.stack = stack.New()
	v.measure.Clear()
	v.imports = make(instantiate.Imports)
	v.activeCategory = CategoryExtension
	v.instance = nil
	v.instanceAddr = 0
	v.pendingMod = nil
	v.pendingName = ""
	v.stage = StageInited
	v.engine = engine.New(v.store, v.stack, v.measure, v.log)
	v.logf("VM reset")
}

func (v *VM) SetCostLimit(limit uint64) { v.measure.SetCostLimit(limit) }
func (v *VM) GetCostLimit() uint64      { return v.measure.CostLimit() }
func (v *VM) GetUsedCost() uint64       { return v.measure.CostSum() }

// AddCost charges an ad hoc amount against the active budget, exposed so a
// host module (e.g. hostmodules/ethereum's fixed EEI constants) can charge
// gas outside the per-opcode cost table.
func (v *VM) AddCost(cost uint64) error { return v.measure.AddCost(cost) }

// ExecutionNanos and HostFuncNanos expose the optional per-invocation timing
// split, backed by the Measure collaborator's execution and host-function
// clocks.
func (v *VM) ExecutionNanos() int64 { return v.measure.ExecutionNanos() }
func (v *VM) HostFuncNanos() int64  { return v.measure.HostFuncNanos() }

func (v *VM) memoryByIndex(idx int) (*store.MemoryInstance, error) {
	if v.stage != StageInstantiated {
		return nil, wrongWorkflow("memory access", v.stage)
	}
	if idx < 0 || idx >= len(v.instance.Memories) {
		return nil, api.NewError(api.KindWrongInstanceAddress, fmt.Sprintf("memory index %d out of range", idx))
	}
	return v.store.GetMemory(v.instance.Memories[idx])
}

// ReadMemory returns a copy of length bytes at offset in memory idx of the
// currently instantiated module.
func (v *VM) ReadMemory(idx int, offset, length uint32) ([]byte, error) {
	mem, err := v.memoryByIndex(idx)
	if err != nil {
		return nil, err
	}
	return host.ReadBytes(mem, offset, length)
}

// WriteMemory copies data into memory idx at offset.
func (v *VM) WriteMemory(idx int, offset uint32, data []byte) error {
	mem, err := v.memoryByIndex(idx)
	if err != nil {
		return err
	}
	return host.WriteBytes(mem, offset, data)
}

// ReplaceMemory bulk-replaces the entire contents of memory idx.
func (v *VM) ReplaceMemory(idx int, data []byte) error {
	mem, err := v.memoryByIndex(idx)
	if err != nil {
		return err
	}
	return host.ReplaceAll(mem, data)
}
