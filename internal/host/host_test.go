package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/host"
	"github.com/wazero-vm/core/internal/store"
)

func TestModuleRegisterAndLookup(t *testing.T) {
	m := host.NewModule("env")
	ft := &api.FunctionType{Results: []api.ValueType{api.ValueTypeI32}}
	m.Register("get", ft, 5, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
		return store.HostSuccess()
	})

	fn, ok := m.Lookup("get")
	require.True(t, ok)
	assert.Equal(t, "env", fn.ModuleName)
	assert.Equal(t, "get", fn.Field)
	assert.Equal(t, uint64(5), fn.DeclaredCost())
	assert.Same(t, ft, fn.DescribeType())

	_, ok = m.Lookup("missing")
	assert.False(t, ok)
}

func TestFunctionAsCallableInvokes(t *testing.T) {
	called := false
	m := host.NewModule("env")
	m.Register("mark", &api.FunctionType{}, 0, func(ops store.OperandAccess, mem *store.MemoryInstance) store.HostStatus {
		called = true
		return store.HostSuccess()
	})
	fn, _ := m.Lookup("mark")

	callable := fn.AsCallable()
	status := callable.Invoke(nil, nil)
	assert.True(t, called)
	assert.True(t, status.OK())
	assert.Equal(t, uint64(0), callable.DeclaredCost())
}
