package measure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/measure"
	"github.com/wazero-vm/core/internal/wasmtree"
)

func TestAddInstrCostAccumulates(t *testing.T) {
	table := measure.CostTable{wasmtree.OpI32Add: 3}
	m := measure.New(table)
	require.NoError(t, m.AddInstrCost(wasmtree.OpI32Add))
	require.NoError(t, m.AddInstrCost(wasmtree.OpI32Add))
	assert.Equal(t, uint64(6), m.CostSum())
	assert.Equal(t, uint64(2), m.InstrCount())
}

func TestAddCostFailsAtLimit(t *testing.T) {
	m := measure.New(nil)
	m.SetCostLimit(10)
	require.NoError(t, m.AddCost(10))
	err := m.AddCost(1)
	require.Error(t, err)
	assert.Equal(t, api.KindCostLimitExceeded, api.KindOf(err))
	assert.Equal(t, uint64(10), m.CostSum(), "failed charge does not partially apply")
}

func TestNoOpNeverExceedsLimit(t *testing.T) {
	m := measure.NoOp()
	for i := 0; i < 1000; i++ {
		require.NoError(t, m.AddInstrCost(wasmtree.OpI32Add))
	}
}

func TestTimersAccumulateAcrossStartStop(t *testing.T) {
	m := measure.New(nil)
	m.StartTimer(measure.TimerExecution)
	m.StopTimer(measure.TimerExecution)
	m.StartTimer(measure.TimerExecution)
	m.StopTimer(measure.TimerExecution)
	assert.GreaterOrEqual(t, m.ExecutionNanos(), int64(0))
	assert.Equal(t, int64(0), m.HostFuncNanos())
}

func TestClearResetsAccounting(t *testing.T) {
	m := measure.New(measure.TableFor(measure.CategoryBase))
	require.NoError(t, m.AddInstrCost(wasmtree.OpI32Add))
	m.Clear()
	assert.Equal(t, uint64(0), m.CostSum())
	assert.Equal(t, uint64(0), m.InstrCount())
}

func TestTableForPriority(t *testing.T) {
	base := measure.TableFor(measure.CategoryBase)
	wasi := measure.TableFor(measure.CategoryWASI)
	eth := measure.TableFor(measure.CategoryEthereum)
	assert.NotEqual(t, base[wasmtree.OpMemoryGrow], wasi[wasmtree.OpMemoryGrow])
	assert.NotNil(t, eth)
}
