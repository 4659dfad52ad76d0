package vm

import "testing"

func TestCodeBitmapSkipsPushData(t *testing.T) {
	// PUSH1 0x5B JUMPDEST: the 0x5B at offset 1 is immediate data, the one
	// at offset 2 is a real instruction.
	code := []byte{byte(PUSH1), 0x5B, byte(JUMPDEST)}
	bits := codeBitmap(code)

	if !bits.codeSegment(0) {
		t.Fatal("offset 0 (PUSH1) should be code")
	}
	if bits.codeSegment(1) {
		t.Fatal("offset 1 (push immediate) should be data")
	}
	if !bits.codeSegment(2) {
		t.Fatal("offset 2 (JUMPDEST) should be code")
	}
}

func TestCodeBitmapWidePush(t *testing.T) {
	// PUSH32 followed by 32 immediate bytes, then STOP.
	code := make([]byte, 34)
	code[0] = byte(PUSH32)
	code[33] = byte(STOP)
	bits := codeBitmap(code)

	for i := uint64(1); i <= 32; i++ {
		if bits.codeSegment(i) {
			t.Fatalf("offset %d inside PUSH32 immediate should be data", i)
		}
	}
	if !bits.codeSegment(33) {
		t.Fatal("offset 33 (STOP) should be code")
	}
}

func TestCodeBitmapTruncatedPush(t *testing.T) {
	// A PUSH whose immediate runs past the end of code must not panic and
	// must mark everything after the opcode as data.
	code := []byte{byte(PUSH4), 0x01, 0x02}
	bits := codeBitmap(code)

	if !bits.codeSegment(0) {
		t.Fatal("offset 0 should be code")
	}
	if bits.codeSegment(1) || bits.codeSegment(2) {
		t.Fatal("truncated immediate bytes should be data")
	}
}
