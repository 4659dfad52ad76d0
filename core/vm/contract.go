package vm

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// Contract is one call/create activation record. It carries the code being
// executed, the call input, the frame's remaining gas budget and the
// caller/callee identities. The stack, memory and program counter live in
// the dispatch loop; the Contract is what survives across nested calls.
type Contract struct {
	// CallerAddress is the account that initiated this frame. For
	// DELEGATECALL it is the caller of the parent frame.
	CallerAddress types.Address
	// Address is the account whose storage and balance the frame operates
	// on (the "self" address).
	Address types.Address

	Code     []byte
	CodeHash types.Hash
	Input    []byte

	// Gas is the frame's remaining budget. It only ever decreases during
	// execution; unused gas is handed back to the parent on completion.
	Gas uint64

	// value transferred into this frame. Never nil.
	value *uint256.Int

	// analysis caches the result of codeBitmap for this frame's code.
	// Shared via the EVM-level cache when the code hash is known.
	analysis bitvec
}

// NewContract builds a frame record for the given caller/callee pair.
func NewContract(caller, address types.Address, value *uint256.Int, gas uint64) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{
		CallerAddress: caller,
		Address:       address,
		value:         value,
		Gas:           gas,
	}
}

// SetCallCode assigns the code this frame executes along with its hash.
func (c *Contract) SetCallCode(hash types.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
}

// GetOp returns the opcode at pc, or STOP when pc is past the end of code.
func (c *Contract) GetOp(pc uint64) OpCode {
	if pc < uint64(len(c.Code)) {
		return OpCode(c.Code[pc])
	}
	return STOP
}

// Value returns the wei transferred into this frame.
func (c *Contract) Value() *uint256.Int {
	return c.value
}

// UseGas deducts amount from the frame budget. It returns false and leaves
// the budget untouched when the charge would underflow it.
func (c *Contract) UseGas(amount uint64) bool {
	if c.Gas < amount {
		return false
	}
	c.Gas -= amount
	return true
}

// RefundGas returns unused gas from a completed child frame to this one.
func (c *Contract) RefundGas(amount uint64) {
	c.Gas += amount
}

// validJumpdest reports whether dest is a JUMPDEST opcode that is not part
// of a PUSH immediate.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	if c.analysis == nil {
		c.analysis = codeBitmap(c.Code)
	}
	return c.analysis.codeSegment(udest)
}
