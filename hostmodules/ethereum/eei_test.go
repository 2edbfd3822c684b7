package ethereum_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/hostmodules/ethereum"
	"github.com/wazero-vm/core/internal/stack"
	"github.com/wazero-vm/core/internal/store"
)

func noopCharge(uint64) error { return nil }

func TestGetCallValueWritesBigEndian(t *testing.T) {
	env := ethereum.NewEnvironment()
	env.CallValue = big.NewInt(0x0102)
	m := ethereum.New(env)
	hm := m.AsHostModule(noopCharge)

	fn, ok := hm.Lookup("getCallValue")
	require.True(t, ok)
	mem := store.NewMemoryInstance(1, nil)
	sk := stack.New()
	sk.Push(api.I32(0))
	status := fn.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())

	assert.Equal(t, byte(0x01), mem.Data[30])
	assert.Equal(t, byte(0x02), mem.Data[31])
	for i := 0; i < 30; i++ {
		assert.Equal(t, byte(0), mem.Data[i])
	}
}

func TestCallDataCopyChargesAndBoundsChecks(t *testing.T) {
	env := ethereum.NewEnvironment()
	env.CallData = []byte{0xaa, 0xbb, 0xcc, 0xdd}
	m := ethereum.New(env)

	var charged uint64
	charge := func(cost uint64) error { charged += cost; return nil }
	hm := m.AsHostModule(charge)
	fn, _ := hm.Lookup("callDataCopy")

	mem := store.NewMemoryInstance(1, nil)
	sk := stack.New()
	sk.Push(api.I32(0)) // resultOffset
	sk.Push(api.I32(1)) // dataOffset
	sk.Push(api.I32(2)) // length
	status := fn.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	assert.Equal(t, []byte{0xbb, 0xcc}, mem.Data[0:2])
	assert.Equal(t, uint64(3), charged, "3 * ceil(2/32) == 3")

	sk.Push(api.I32(0))
	sk.Push(api.I32(3))
	sk.Push(api.I32(10)) // past end of a 4-byte CallData
	status = fn.AsCallable().Invoke(sk, mem)
	assert.False(t, status.OK())
	assert.Equal(t, api.KindAccessForbidMemory, status.Kind)
}

func TestStorageStoreThenLoadRoundTrips(t *testing.T) {
	m := ethereum.New(nil)
	hm := m.AsHostModule(noopCharge)
	store_, _ := hm.Lookup("storageStore")
	load, _ := hm.Lookup("storageLoad")

	mem := store.NewMemoryInstance(1, nil)
	mem.Data[63] = 0x2a // value = 42 at big-endian offset 32..64

	sk := stack.New()
	sk.Push(api.I32(0))  // pathOffset (zeroed key)
	sk.Push(api.I32(32)) // valueOffset
	status := store_.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())

	sk.Push(api.I32(0))  // pathOffset
	sk.Push(api.I32(96)) // resultOffset
	status = load.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	assert.Equal(t, byte(0x2a), mem.Data[127])
}

func TestFinishSetsReturnDataAndTerminates(t *testing.T) {
	m := ethereum.New(nil)
	hm := m.AsHostModule(noopCharge)
	fn, _ := hm.Lookup("finish")

	mem := store.NewMemoryInstance(1, nil)
	copy(mem.Data[0:], []byte{1, 2, 3})
	sk := stack.New()
	sk.Push(api.I32(0))
	sk.Push(api.I32(3))
	status := fn.AsCallable().Invoke(sk, mem)
	assert.Equal(t, api.KindTerminated, status.Kind)
	assert.Equal(t, []byte{1, 2, 3}, m.Env.ReturnData)
}

func TestRevertSetsReturnDataAndRevertedFlag(t *testing.T) {
	m := ethereum.New(nil)
	hm := m.AsHostModule(noopCharge)
	fn, _ := hm.Lookup("revert")

	mem := store.NewMemoryInstance(1, nil)
	copy(mem.Data[0:], []byte{9})
	sk := stack.New()
	sk.Push(api.I32(0))
	sk.Push(api.I32(1))
	status := fn.AsCallable().Invoke(sk, mem)
	assert.Equal(t, api.KindRevert, status.Kind)
	assert.True(t, m.Env.Reverted)
}

func TestCallDepthLimitShortCircuits(t *testing.T) {
	env := ethereum.NewEnvironment()
	env.Depth = 1024
	m := ethereum.New(env)
	hm := m.AsHostModule(noopCharge)
	fn, _ := hm.Lookup("call")

	mem := store.NewMemoryInstance(1, nil)
	sk := stack.New()
	sk.Push(api.I64(100000))
	sk.Push(api.I32(0))  // addrOffset
	sk.Push(api.I32(64)) // valueOffset (zero value)
	sk.Push(api.I32(0))  // dataOffset
	sk.Push(api.I32(0))  // dataLength
	status := fn.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	ret, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ret.I32(), "depth limit reached returns nonzero")
}

func TestCallChargesValueTransferAndNewAccountGas(t *testing.T) {
	env := ethereum.NewEnvironment()
	m := ethereum.New(env)

	var charged uint64
	charge := func(cost uint64) error { charged += cost; return nil }
	hm := m.AsHostModule(charge)
	fn, _ := hm.Lookup("call")

	mem := store.NewMemoryInstance(1, nil)
	mem.Data[95] = 0x01 // value = 1 at big-endian offset 64..96

	sk := stack.New()
	sk.Push(api.I64(21000))
	sk.Push(api.I32(0))  // addrOffset (all-zero address, not in Accounts)
	sk.Push(api.I32(64)) // valueOffset
	sk.Push(api.I32(0))  // dataOffset
	sk.Push(api.I32(0))  // dataLength
	status := fn.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	ret, err := sk.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ret.I32())
	assert.Equal(t, uint64(9000+25000+21000), charged)
}

func TestCallWithNoValueSkipsTransferGas(t *testing.T) {
	env := ethereum.NewEnvironment()
	m := ethereum.New(env)

	var charged uint64
	charge := func(cost uint64) error { charged += cost; return nil }
	hm := m.AsHostModule(charge)
	fn, _ := hm.Lookup("call")

	mem := store.NewMemoryInstance(1, nil)
	sk := stack.New()
	sk.Push(api.I64(5000))
	sk.Push(api.I32(0))
	sk.Push(api.I32(64)) // zero value
	sk.Push(api.I32(0))
	sk.Push(api.I32(0))
	status := fn.AsCallable().Invoke(sk, mem)
	require.True(t, status.OK())
	assert.Equal(t, uint64(5000), charged)
}
