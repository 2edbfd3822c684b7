// Package stack implements a single ordered operand/label/frame sequence.
// Every entry is one of {operand Value, Label, Frame}; branching and
// function return are expressed purely as height manipulations on this one
// sequence.
package stack

import (
	"github.com/wazero-vm/core/api"
	"github.com/wazero-vm/core/internal/wasmtree"
)

const initialHeight = 1024

type entryKind byte

const (
	kindValue entryKind = iota
	kindLabel
	kindFrame
)

// Label marks a branch target. Origin distinguishes loop labels (branches
// re-enter the body) from block/if labels (branches resume after the
// block).
type Label struct {
	Arity  int
	Origin *wasmtree.Instr
}

// IsLoop reports whether branching to this label should re-enter the loop
// body rather than resume after it.
func (l *Label) IsLoop() bool {
	return l.Origin != nil && l.Origin.Op == wasmtree.OpLoop
}

// Frame records one function activation.
type Frame struct {
	ModuleAddr  int
	ParamArity  int
	ResultArity int
	// height is the total stack height (all entries) at the point this
	// frame was pushed, i.e. before locals/labels for the call are pushed.
	height int
	Locals []api.Value
}

type entry struct {
	kind  entryKind
	value api.Value
	label *Label
	frame *Frame
}

// Stack is the operand/label/frame sequence for one invocation. It is
// reused across a Store's lifetime but must be empty between top-level
// invocations.
type Stack struct {
	entries []entry
}

func New() *Stack {
	return &Stack{entries: make([]entry, 0, initialHeight)}
}

func (s *Stack) Height() int { return len(s.entries) }

func (s *Stack) Push(v api.Value) {
	s.entries = append(s.entries, entry{kind: kindValue, value: v})
}

// Pop removes and returns the top operand Value. Fails stack-empty if the
// stack has no entries, or stack-wrong-entry if the top isn't a Value.
func (s *Stack) Pop() (api.Value, error) {
	if len(s.entries) == 0 {
		return api.Value{}, api.NewError(api.KindStackEmpty, "pop on empty stack")
	}
	top := s.entries[len(s.entries)-1]
	if top.kind != kindValue {
		return api.Value{}, api.NewError(api.KindStackWrongEntry, "pop expected operand value")
	}
	s.entries = s.entries[:len(s.entries)-1]
	return top.value, nil
}

// Top peeks the top operand Value without removing it.
func (s *Stack) Top() (api.Value, error) {
	if len(s.entries) == 0 {
		return api.Value{}, api.NewError(api.KindStackEmpty, "top on empty stack")
	}
	top := s.entries[len(s.entries)-1]
	if top.kind != kindValue {
		return api.Value{}, api.NewError(api.KindStackWrongEntry, "top expected operand value")
	}
	return top.value, nil
}

// TruncateTo discards every entry above height, used to discard a
// partially mutated operand stack after a trap by resetting to the frame's
// entry height.
func (s *Stack) TruncateTo(height int) {
	s.entries = s.entries[:height]
}

// PushLabel pushes a new label onto the stack.
func (s *Stack) PushLabel(arity int, origin *wasmtree.Instr) {
	s.entries = append(s.entries, entry{kind: kindLabel, label: &Label{
		Arity:  arity,
		Origin: origin,
	}})
}

// PopLabel removes the top n labels (default 1). Entries between and above
// the labels are not otherwise touched; callers arrange operand trimming
// separately (see Branch).
func (s *Stack) PopLabel(n int) error {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		idx, err := s.topLabelIndex()
		if err != nil {
			return err
		}
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
	return nil
}

func (s *Stack) topLabelIndex() (int, error) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		switch s.entries[i].kind {
		case kindLabel:
			return i, nil
		case kindFrame:
			return -1, api.NewError(api.KindStackWrongEntry, "no label above current frame")
		}
	}
	return -1, api.NewError(api.KindStackEmpty, "no label on stack")
}

// GetLabelWithCount peeks the n-th label from the top (0-based), without
// removing anything.
func (s *Stack) GetLabelWithCount(n int) (*Label, error) {
	count := -1
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].kind == kindLabel {
			count++
			if count == n {
				return s.entries[i].label, nil
			}
		}
		if s.entries[i].kind == kindFrame {
			break
		}
	}
	return nil, api.NewError(api.KindStackWrongEntry, "no such label depth")
}

// PushFrame pushes a new call frame. Locals (params followed by declared
// locals) are populated by the caller via Frame.Locals after this returns.
func (s *Stack) PushFrame(moduleAddr, paramArity, resultArity int) *Frame {
	f := &Frame{ModuleAddr: moduleAddr, ParamArity: paramArity, ResultArity: resultArity, height: len(s.entries)}
	s.entries = append(s.entries, entry{kind: kindFrame, frame: f})
	return f
}

// CurrentFrame returns the innermost frame, or nil if the stack holds no
// frame (e.g. before any invocation, or during an init-expression
// evaluation using the auxiliary no-locals frame).
func (s *Stack) CurrentFrame() *Frame {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].kind == kindFrame {
			return s.entries[i].frame
		}
	}
	return nil
}

// PopFrame unwinds all labels above the current frame, copies the top
// resultArity values, removes the frame and everything above it, then
// re-pushes those results. It returns the count of labels unwound so
// callers can pop the matching count of instruction-provider scopes.
func (s *Stack) PopFrame() (labelsUnwound int, err error) {
	frameIdx := -1
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].kind == kindFrame {
			frameIdx = i
			break
		}
		if s.entries[i].kind == kindLabel {
			labelsUnwound++
		}
	}
	if frameIdx < 0 {
		return 0, api.NewError(api.KindStackEmpty, "popFrame with no frame on stack")
	}
	frame := s.entries[frameIdx].frame

	// Collect the top resultArity operand values (in original order).
	results := make([]api.Value, 0, frame.ResultArity)
	for i := len(s.entries) - 1; i >= 0 && len(results) < frame.ResultArity; i-- {
		if s.entries[i].kind != kindValue {
			return labelsUnwound, api.NewError(api.KindStackWrongEntry, "expected operand results at frame exit")
		}
		results = append(results, s.entries[i].value)
	}
	// results were collected top-down; reverse to restore original order.
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	s.entries = s.entries[:frameIdx]
	for _, v := range results {
		s.Push(v)
	}
	return labelsUnwound, nil
}

// Branch implements br to label depth n: it preserves the top arity(L_n)
// values, drops n+1 labels, and returns the target label so the engine can
// decide whether to re-enter the loop body or resume after the block.
func (s *Stack) Branch(n int) (*Label, error) {
	target, err := s.GetLabelWithCount(n)
	if err != nil {
		return nil, err
	}
	arity := target.Arity
	// Preserve the top `arity` operand values.
	saved := make([]api.Value, 0, arity)
	for i := len(s.entries) - 1; i >= 0 && len(saved) < arity; i-- {
		if s.entries[i].kind != kindValue {
			return nil, api.NewError(api.KindStackWrongEntry, "expected operand values at branch")
		}
		saved = append(saved, s.entries[i].value)
	}
	for i, j := 0, len(saved)-1; i < j; i, j = i+1, j-1 {
		saved[i], saved[j] = saved[j], saved[i]
	}

	// Truncate to just below the target label itself: this drops its body's
	// operands and the n+1 labels from the target up.
	targetIdx := -1
	count := -1
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].kind == kindLabel {
			count++
			if count == n {
				targetIdx = i
				break
			}
		}
	}
	if targetIdx < 0 {
		return nil, api.NewError(api.KindStackWrongEntry, "no such label depth")
	}
	s.entries = s.entries[:targetIdx]
	for _, v := range saved {
		s.Push(v)
	}
	return target, nil
}
