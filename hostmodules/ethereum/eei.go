// Package ethereum implements a subset of the Ethereum Environment
// Interface: gas accounting for copy and call operations, a bounded
// call-depth counter, and the storage/log/call-data surface a guest
// contract observes. Dispatching a call to a real EVM host (evmc_context)
// is outside this package's scope; call performs the gas accounting a full
// EEI implementation always runs before dispatch and reports success
// without invoking a callee, since no EVMC host is wired into this VM.
package ethereum

import (
	"math/big"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/host"
	"github.com/wazero-vm/core/internal/store"
)

const (
	maxCallDepth     = 1024
	callStipend      = 2300
	valueTransferGas = 9000
	newAccountGas    = 25000
)

// ModuleName is the import module name Ewasm contracts expect.
const ModuleName = "ethereum"

// Account is the balance/existence view Call needs of the destination
// address; a real embedder backs this with chain state.
type Account struct {
	Balance *big.Int
	Exists  bool
}

// Environment is the transaction-scoped state EEI functions read and
// mutate.
type Environment struct {
	CallValue   *big.Int
	CallData    []byte
	Address     [20]byte
	Caller      [20]byte
	GasPrice    *big.Int
	BlockHash   [32]byte

	Storage map[[32]byte][32]byte

	ReturnData []byte
	Logs       [][]byte

	Depth    int
	Accounts map[[20]byte]*Account

	Reverted bool
}

func NewEnvironment() *Environment {
	return &Environment{
		CallValue: big.NewInt(0),
		GasPrice:  big.NewInt(0),
		Storage:   make(map[[32]byte][32]byte),
		Accounts:  make(map[[20]byte]*Account),
	}
}

// Module bundles an Environment behind an "ethereum" import object.
type Module struct {
	Env *Environment
}

func New(env *Environment) *Module {
	if env == nil {
		env = NewEnvironment()
	}
	return &Module{Env: env}
}

func addCopyCost(length uint32) uint64 {
	return 3 * uint64((length+31)/32)
}

func i32(ops store.OperandAccess) (uint32, error) {
	v, err := ops.Pop()
	if err != nil {
		return 0, err
	}
	return v.I32(), nil
}

func i64(ops store.OperandAccess) (uint64, error) {
	v, err := ops.Pop()
	if err != nil {
		return 0, err
	}
	return v.I64(), nil
}

func popI32N(ops store.OperandAccess, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := n - 1; i >= 0; i-- {
		v, err := i32(ops)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// AsHostModule builds the host.Module a VM registers as the "ethereum"
// import provider. The declared per-call cost is charged at entry by the
// dispatch loop; functions here additionally spend gas mid-body for
// copy/value-transfer operations by invoking the caller-supplied charge
// callback, returning HostFailure(KindCostLimitExceeded) when a fixed EEI
// constant (e.g. the 9000/25000 values below) would exceed the budget.
func (m *Module) AsHostModule(charge func(uint64) error) *host.Module {
	env := m.Env
	i32t := api.ValueTypeI32
	i64t := api.ValueTypeI64
	hm := host.NewModule(ModuleName)

	hm.Register("getGasLeft", &api.FunctionType{Results: []api.ValueType{i64t}}, 2,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			ops.Push(api.I64(0))
			return store.HostSuccess()
		})

	hm.Register("getCallValue", &api.FunctionType{Params: []api.ValueType{i32t}}, 2,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			off, err := i32(ops)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			var buf [32]byte
			env.CallValue.FillBytes(buf[:])
			if err := host.WriteBytes(mem, off, buf[:]); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return store.HostSuccess()
		})

	hm.Register("getCallDataSize", &api.FunctionType{Results: []api.ValueType{i32t}}, 2,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			ops.Push(api.I32(uint32(len(env.CallData))))
			return store.HostSuccess()
		})

	hm.Register("callDataCopy", &api.FunctionType{Params: []api.ValueType{i32t, i32t, i32t}}, 3,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popI32N(ops, 3)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			resultOff, dataOff, length := args[0], args[1], args[2]
			if err := charge(addCopyCost(length)); err != nil {
				return store.HostFailure(api.KindCostLimitExceeded, err)
			}
			if uint64(dataOff)+uint64(length) > uint64(len(env.CallData)) {
				return store.HostFailure(api.KindAccessForbidMemory, nil)
			}
			if err := host.WriteBytes(mem, resultOff, env.CallData[dataOff:dataOff+length]); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return store.HostSuccess()
		})

	hm.Register("storageStore", &api.FunctionType{Params: []api.ValueType{i32t, i32t}}, 20000,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popI32N(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			pathOff, valueOff := args[0], args[1]
			path, err := host.ReadBytesBigEndian(mem, pathOff, 32)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			value, err := host.ReadBytesBigEndian(mem, valueOff, 32)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			var k, v [32]byte
			copy(k[:], path)
			copy(v[:], value)
			env.Storage[k] = v
			return store.HostSuccess()
		})

	hm.Register("storageLoad", &api.FunctionType{Params: []api.ValueType{i32t, i32t}}, 200,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popI32N(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			pathOff, resultOff := args[0], args[1]
			path, err := host.ReadBytesBigEndian(mem, pathOff, 32)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			var k [32]byte
			copy(k[:], path)
			v := env.Storage[k]
			if err := host.WriteBytesBigEndian(mem, resultOff, v[:]); err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			return store.HostSuccess()
		})

	hm.Register("finish", &api.FunctionType{Params: []api.ValueType{i32t, i32t}}, 0,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popI32N(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			off, length := args[0], args[1]
			data, err := host.ReadBytes(mem, off, length)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			env.ReturnData = data
			return store.HostStatus{Kind: api.KindTerminated}
		})

	hm.Register("revert", &api.FunctionType{Params: []api.ValueType{i32t, i32t}}, 0,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popI32N(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			off, length := args[0], args[1]
			data, err := host.ReadBytes(mem, off, length)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			env.ReturnData = data
			env.Reverted = true
			return store.HostStatus{Kind: api.KindRevert}
		})

	hm.Register("log", &api.FunctionType{Params: []api.ValueType{i32t, i32t}}, 375,
		func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
			args, err := popI32N(ops, 2)
			if err != nil {
				return store.HostFailure(api.KindExecutionFailed, err)
			}
			off, length := args[0], args[1]
			if err := charge(addCopyCost(length)); err != nil {
				return store.HostFailure(api.KindCostLimitExceeded, err)
			}
			data, err := host.ReadBytes(mem, off, length)
			if err != nil {
				return store.HostFailure(api.KindAccessForbidMemory, err)
			}
			env.Logs = append(env.Logs, data)
			return store.HostSuccess()
		})

	// call implements the gas-accounting half of a contract call: depth
	// check, value-transfer gas, new-account gas, and the caller's gas
	// charge. It does not dispatch to a callee since no EVMC host is wired
	// in, and so it does not apply the 2300 stipend either; it always
	// reports success (ret=0) once accounting passes.
	hm.Register("call", &api.FunctionType{
		Params:  []api.ValueType{i64t, i32t, i32t, i32t, i32t},
		Results: []api.ValueType{i32t},
	}, 700, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
		// Params are declared (gas, addr, value, dataOffset, dataLength) in
		// call order, so dataLength sits on top of the operand stack and
		// gas is popped last.
		args, err := popI32N(ops, 4)
		if err != nil {
			return store.HostFailure(api.KindExecutionFailed, err)
		}
		addrOff, valueOff, dataOff, dataLen := args[0], args[1], args[2], args[3]
		gas, err := i64(ops)
		if err != nil {
			return store.HostFailure(api.KindExecutionFailed, err)
		}
		_ = dataOff
		_ = dataLen

		if env.Depth >= maxCallDepth {
			ops.Push(api.I32(1))
			return store.HostSuccess()
		}

		addrBytes, err := host.ReadBytes(mem, addrOff, 20)
		if err != nil {
			return store.HostFailure(api.KindAccessForbidMemory, err)
		}
		var addr [20]byte
		copy(addr[:], addrBytes)

		valueBytes, err := host.ReadBytes(mem, valueOff, 32)
		if err != nil {
			return store.HostFailure(api.KindAccessForbidMemory, err)
		}
		value := new(big.Int).SetBytes(valueBytes)
		hasValue := value.Sign() != 0

		if hasValue {
			if err := charge(valueTransferGas); err != nil {
				return store.HostFailure(api.KindCostLimitExceeded, err)
			}
			if acc, ok := env.Accounts[addr]; !ok || !acc.Exists {
				if err := charge(newAccountGas); err != nil {
					return store.HostFailure(api.KindCostLimitExceeded, err)
				}
			}
		}

		if err := charge(gas); err != nil {
			return store.HostFailure(api.KindCostLimitExceeded, err)
		}

		// A real callee gets gas+callStipend when hasValue, but nothing here
		// dispatches into a callee: without an EVMC host to hand it to, that
		// stipend has nowhere to go, so it is not computed.

		ops.Push(api.I32(0))
		return store.HostSuccess()
	})

	return hm
}
