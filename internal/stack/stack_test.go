package stack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wazero-vm/core/api"
)

func TestPushPop(t *testing.T) {
	s := New()
	s.Push(api.I32(41))
	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(41), v.I32())
}

func TestPopEmptyFails(t *testing.T) {
	s := New()
	_, err := s.Pop()
	require.Error(t, err)
	assert.Equal(t, api.KindStackEmpty, api.KindOf(err))
}

func TestPopWrongEntryFails(t *testing.T) {
	s := New()
	s.PushFrame(0, 0, 0)
	_, err := s.Pop()
	require.Error(t, err)
	assert.Equal(t, api.KindStackWrongEntry, api.KindOf(err))
}

func TestPushFrameAndPopFrameReturnsResults(t *testing.T) {
	s := New()
	frame := s.PushFrame(0, 0, 1)
	frame.Locals = []api.Value{api.I32(1)}
	s.Push(api.I32(99))

	labelsUnwound, err := s.PopFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, labelsUnwound)

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(99), v.I32())
	assert.Equal(t, 0, s.Height())
}

func TestPopFrameUnwindsOpenLabels(t *testing.T) {
	s := New()
	s.PushFrame(0, 0, 1)
	s.PushLabel(0, nil)
	s.PushLabel(0, nil)
	s.Push(api.I32(7))

	labelsUnwound, err := s.PopFrame()
	require.NoError(t, err)
	assert.Equal(t, 2, labelsUnwound)

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v.I32())
}

func TestBranchPreservesArityAndDropsLabels(t *testing.T) {
	s := New()
	s.PushFrame(0, 0, 0)
	s.PushLabel(1, nil) // outer, depth 1 once inner is pushed
	s.Push(api.I32(111))
	s.PushLabel(1, nil) // inner, depth 0
	s.Push(api.I32(222)) // below the top arity(L_1)=1 values, discarded
	s.Push(api.I32(333)) // top operand, preserved by the branch

	label, err := s.Branch(1)
	require.NoError(t, err)
	assert.Equal(t, 1, label.Arity)

	v, err := s.Pop()
	require.NoError(t, err)
	assert.Equal(t, uint32(333), v.I32())

	// Both labels (depth 0 and depth 1) are gone.
	_, err = s.GetLabelWithCount(0)
	require.Error(t, err)
}

func TestGetLabelWithCountStopsAtFrame(t *testing.T) {
	s := New()
	s.PushLabel(0, nil)
	s.PushFrame(0, 0, 0)
	s.PushLabel(0, nil)

	_, err := s.GetLabelWithCount(1)
	require.Error(t, err, "label above the frame boundary must not be visible")
}

func TestTruncateToDiscardsAboveHeight(t *testing.T) {
	s := New()
	s.Push(api.I32(1))
	height := s.Height()
	s.Push(api.I32(2))
	s.Push(api.I32(3))

	s.TruncateTo(height)
	assert.Equal(t, height, s.Height())
}
