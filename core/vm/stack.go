package vm

import (
	"sync"

	"github.com/holiman/uint256"
)

// StackLimit is the maximum number of words the operand stack may hold.
const StackLimit = 1024

var stackPool = sync.Pool{
	New: func() any {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

// Stack is the EVM operand stack: a LIFO sequence of 256-bit words bounded
// at StackLimit. Depth requirements are validated by the dispatch loop
// before instructions run, so the hot accessors omit bounds checks.
type Stack struct {
	data []uint256.Int
}

func newstack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// Data returns the underlying slice, bottom first.
func (s *Stack) Data() []uint256.Int {
	return s.data
}

// Len returns the current stack depth.
func (s *Stack) Len() int {
	return len(s.data)
}

// Push appends v to the top of the stack. Returns ErrStackOverflow when the
// stack is already at StackLimit, leaving the stack unchanged.
func (s *Stack) Push(v *uint256.Int) error {
	if len(s.data) >= StackLimit {
		return ErrStackOverflow
	}
	s.data = append(s.data, *v)
	return nil
}

// Pop removes and returns the top word by value.
func (s *Stack) Pop() (ret uint256.Int) {
	ret = s.data[len(s.data)-1]
	s.data = s.data[:len(s.data)-1]
	return
}

// Peek returns a pointer to the top word. Mutating it in place is the
// common way instructions write their result.
func (s *Stack) Peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

// Back returns a pointer to the word n positions below the top (0 = top).
func (s *Stack) Back(n int) *uint256.Int {
	return &s.data[len(s.data)-n-1]
}

// Swap exchanges the top word with the word n positions below it.
func (s *Stack) Swap(n int) {
	top := len(s.data) - 1
	s.data[top], s.data[top-n] = s.data[top-n], s.data[top]
}

// Dup pushes a copy of the word n positions below the top (1 = top).
func (s *Stack) Dup(n int) error {
	return s.Push(&s.data[len(s.data)-n])
}
