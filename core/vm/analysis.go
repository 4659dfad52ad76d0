package vm

// bitvec marks which byte offsets of a code blob are opcode positions
// (as opposed to PUSH immediate operand bytes). It is built once per
// distinct code blob and shared read-only across every frame executing it.
type bitvec []byte

func (bits bitvec) set1(pos uint64) {
	bits[pos/8] |= 1 << (pos % 8)
}

// codeSegment reports whether pos is an opcode position rather than the
// interior of a PUSH immediate.
func (bits bitvec) codeSegment(pos uint64) bool {
	return ((bits[pos/8] >> (pos % 8)) & 1) == 1
}

// codeBitmap walks the code once, marking every opcode position and
// skipping over PUSH immediates. An operand byte that happens to hold the
// JUMPDEST value is therefore never marked, which is the property JUMP
// validation relies on.
func codeBitmap(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1)
	for pc := uint64(0); pc < uint64(len(code)); {
		bits.set1(pc)
		op := OpCode(code[pc])
		pc += op.pushBytes() + 1
	}
	return bits
}
