package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/state"
	"github.com/evmcore/evmcore/core/types"
)

var (
	testSender = testVMAddr(0xAA)
	testTarget = testVMAddr(0xBB)
)

func newTestEVM(rules ForkRules) (*EVM, *state.MemoryStateDB) {
	db := state.NewMemoryStateDB()
	blockCtx := BlockContext{
		GetHash:     func(n uint64) types.Hash { return testHashVM(byte(n)) },
		Coinbase:    testVMAddr(0xC0),
		BlockNumber: 1000,
		Time:        1700000000,
		GasLimit:    30_000_000,
	}
	txCtx := TxContext{Origin: testSender}
	return NewEVM(blockCtx, txCtx, db, rules, Config{}), db
}

func testHashVM(b byte) types.Hash {
	var h types.Hash
	h[31] = b
	return h
}

// run executes code as the body of testTarget on a fresh state.
func run(t *testing.T, rules ForkRules, code []byte, gas uint64) *ExecutionResult {
	t.Helper()
	evm, _ := newTestEVM(rules)
	return evm.Execute(testSender, testTarget, code, nil, gas, nil)
}

func TestExecuteAdd(t *testing.T) {
	// 3 + 5 stored at 0 and returned.
	code := []byte{
		byte(PUSH1), 3,
		byte(PUSH1), 5,
		byte(ADD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	res := run(t, CancunRules(), code, 100000)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if len(res.Output) != 32 || res.Output[31] != 8 {
		t.Fatalf("expected 8 in the result word, got %x", res.Output)
	}
	// 6 pushes and an ADD at 3 gas each, one word of memory, RETURN free.
	if res.GasUsed != 24 {
		t.Fatalf("expected 24 gas used, got %d", res.GasUsed)
	}
}

func TestExecuteImplicitStop(t *testing.T) {
	// Running past the end of code halts successfully.
	code := []byte{byte(PUSH1), 3, byte(PUSH1), 5, byte(ADD)}
	res := run(t, CancunRules(), code, 100)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if res.Output != nil {
		t.Fatalf("expected no output, got %x", res.Output)
	}
	if res.GasUsed != 9 {
		t.Fatalf("expected 9 gas used, got %d", res.GasUsed)
	}
}

func TestExecuteOutOfGas(t *testing.T) {
	code := []byte{byte(PUSH1), 3, byte(PUSH1), 5, byte(ADD)}
	res := run(t, CancunRules(), code, 5)
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	if !errors.Is(res.Err, ErrOutOfGas) {
		t.Fatalf("expected ErrOutOfGas, got %v", res.Err)
	}
	// Failure forfeits the entire gas stipend.
	if res.GasUsed != 5 {
		t.Fatalf("expected all 5 gas consumed, got %d", res.GasUsed)
	}
}

func TestExecuteUndefinedOpcode(t *testing.T) {
	res := run(t, CancunRules(), []byte{0x0c}, 100)
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	if !errors.Is(res.Err, ErrInvalidOpCode) {
		t.Fatalf("expected ErrInvalidOpCode, got %v", res.Err)
	}
	if res.GasUsed != 100 {
		t.Fatalf("expected full gas forfeiture, got %d", res.GasUsed)
	}
}

func TestExecuteJump(t *testing.T) {
	// Jump over an undefined byte onto a JUMPDEST.
	code := []byte{
		byte(PUSH1), 4,
		byte(JUMP),
		0xFE, // never executed
		byte(JUMPDEST),
		byte(STOP),
	}
	res := run(t, CancunRules(), code, 100)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if res.GasUsed != 3+8+1 {
		t.Fatalf("expected 12 gas used, got %d", res.GasUsed)
	}
}

func TestExecuteInvalidJump(t *testing.T) {
	// Offset 4 holds a 0x5B byte, but it is PUSH immediate data.
	code := []byte{
		byte(PUSH1), 4,
		byte(JUMP),
		byte(PUSH1), 0x5B,
		byte(STOP),
	}
	res := run(t, CancunRules(), code, 100)
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	if !errors.Is(res.Err, ErrInvalidJump) {
		t.Fatalf("expected ErrInvalidJump, got %v", res.Err)
	}
}

func TestExecuteJumpi(t *testing.T) {
	// Condition zero falls through to the STOP, skipping nothing.
	code := []byte{
		byte(PUSH1), 0, // condition
		byte(PUSH1), 7, // destination
		byte(JUMPI),
		byte(STOP),
		0xFE,
		byte(JUMPDEST),
		byte(STOP),
	}
	res := run(t, CancunRules(), code, 100)
	if res.Status != StatusSuccess {
		t.Fatalf("fall-through JUMPI failed: %s (%v)", res.Status, res.Err)
	}

	// Non-zero condition takes the jump.
	code[1] = 1
	res = run(t, CancunRules(), code, 100)
	if res.Status != StatusSuccess {
		t.Fatalf("taken JUMPI failed: %s (%v)", res.Status, res.Err)
	}
}

func TestExecuteRevert(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0xAA,
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(REVERT),
	}
	res := run(t, CancunRules(), code, 1000)
	if res.Status != StatusRevert {
		t.Fatalf("expected revert, got %s (%v)", res.Status, res.Err)
	}
	if len(res.Output) != 32 || res.Output[31] != 0xAA {
		t.Fatalf("revert data lost: %x", res.Output)
	}
	// Revert refunds unused gas: only the executed instructions are paid.
	if res.GasUsed != 18 {
		t.Fatalf("expected 18 gas used, got %d", res.GasUsed)
	}
	if !errors.Is(res.Err, ErrExecutionReverted) {
		t.Fatalf("expected ErrExecutionReverted, got %v", res.Err)
	}
}

func TestExecuteStackUnderflow(t *testing.T) {
	res := run(t, CancunRules(), []byte{byte(ADD)}, 100)
	if res.Status != StatusFailure || !errors.Is(res.Err, ErrStackUnderflow) {
		t.Fatalf("expected stack underflow failure, got %s (%v)", res.Status, res.Err)
	}
}

func TestExecuteStackOverflow(t *testing.T) {
	// 1025 pushes cannot fit.
	var code []byte
	for i := 0; i < StackLimit+1; i++ {
		code = append(code, byte(PUSH1), 1)
	}
	res := run(t, CancunRules(), code, 100000)
	if res.Status != StatusFailure || !errors.Is(res.Err, ErrStackOverflow) {
		t.Fatalf("expected stack overflow failure, got %s (%v)", res.Status, res.Err)
	}
}

func TestExecutePush0ByFork(t *testing.T) {
	code := []byte{byte(PUSH0), byte(POP)}

	res := run(t, ShanghaiRules(), code, 100)
	if res.Status != StatusSuccess {
		t.Fatalf("PUSH0 should work from Shanghai on: %s (%v)", res.Status, res.Err)
	}
	res = run(t, LondonRules(), code, 100)
	if res.Status != StatusFailure || !errors.Is(res.Err, ErrInvalidOpCode) {
		t.Fatalf("PUSH0 before Shanghai should be undefined, got %s (%v)", res.Status, res.Err)
	}
}

func TestExecuteTransientStorage(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x2A,
		byte(PUSH1), 0,
		byte(TSTORE),
		byte(PUSH1), 0,
		byte(TLOAD),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	res := run(t, CancunRules(), code, 100000)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if res.Output[31] != 0x2A {
		t.Fatalf("TLOAD did not see the TSTORE value: %x", res.Output)
	}
}

func TestExecuteMcopy(t *testing.T) {
	code := []byte{
		byte(PUSH1), 0x11,
		byte(PUSH1), 0,
		byte(MSTORE),    // word at [0,32)
		byte(PUSH1), 32, // length
		byte(PUSH1), 0, // src
		byte(PUSH1), 32, // dst
		byte(MCOPY),
		byte(PUSH1), 32, // size
		byte(PUSH1), 32, // offset
		byte(RETURN),
	}
	res := run(t, CancunRules(), code, 100000)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if res.Output[31] != 0x11 {
		t.Fatalf("MCOPY did not move the word: %x", res.Output)
	}
}

func TestExecuteTruncatedPush(t *testing.T) {
	// A PUSH2 with only one immediate byte reads the missing byte as zero
	// and is right-padded, so the pushed value is 0xAA00.
	code := []byte{byte(PUSH2), 0xAA}
	evm, _ := newTestEVM(CancunRules())
	logger := NewStructLogger(nil)
	evm.Config.Tracer = logger

	res := evm.Execute(testSender, testTarget, code, nil, 100, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	steps := logger.Steps()
	// The implicit STOP step sees the pushed value on the stack.
	last := steps[len(steps)-1]
	if last.OpCode != "STOP" {
		t.Fatalf("expected trailing implicit STOP, got %s", last.OpCode)
	}
	if len(last.Stack) != 1 || last.Stack[0] != "0xaa00" {
		t.Fatalf("expected stack [0xaa00], got %v", last.Stack)
	}
}

func TestExecuteMemoryLimit(t *testing.T) {
	// MLOAD at an offset beyond the memory cap must fail, not allocate.
	code := []byte{
		byte(PUSH8), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		byte(MLOAD),
	}
	res := run(t, CancunRules(), code, 100000)
	if res.Status != StatusFailure {
		t.Fatalf("expected failure, got %s", res.Status)
	}
	if !errors.Is(res.Err, ErrMemoryLimitExceeded) && !errors.Is(res.Err, ErrOutOfGas) {
		t.Fatalf("expected memory limit or gas failure, got %v", res.Err)
	}
}

func TestExecuteStaticViolation(t *testing.T) {
	evm, db := newTestEVM(CancunRules())

	// Child writes storage; it must fail under STATICCALL.
	child := testVMAddr(0xCC)
	db.SetCode(child, []byte{
		byte(PUSH1), 1,
		byte(PUSH1), 0,
		byte(SSTORE),
		byte(STOP),
	})

	// Parent static-calls the child and returns the success flag.
	code := []byte{
		byte(PUSH1), 0, // retSize
		byte(PUSH1), 0, // retOffset
		byte(PUSH1), 0, // inSize
		byte(PUSH1), 0, // inOffset
		byte(PUSH1), 0xCC, // address
		byte(PUSH2), 0xFF, 0xFF, // gas
		byte(STATICCALL),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	res := evm.Execute(testSender, testTarget, code, nil, 1_000_000, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("parent must survive the child's failure: %s (%v)", res.Status, res.Err)
	}
	if res.Output[31] != 0 {
		t.Fatalf("STATICCALL into a writing child must push 0, got %x", res.Output)
	}
	if got := db.GetState(child, types.Hash{}); !got.IsZero() {
		t.Fatalf("storage write leaked through the static barrier: %s", got)
	}
}

func TestExecuteKeccak256(t *testing.T) {
	// keccak256 of 32 zero bytes.
	code := []byte{
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(KECCAK256),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	res := run(t, CancunRules(), code, 100000)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	want := types.HexToHash("290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563")
	if !bytes.Equal(res.Output, want.Bytes()) {
		t.Fatalf("keccak256(zero word) = %x, want %s", res.Output, want)
	}
}

func TestExecuteChainID(t *testing.T) {
	evm, _ := newTestEVM(CancunRules())
	code := []byte{
		byte(CHAINID),
		byte(PUSH1), 0,
		byte(MSTORE),
		byte(PUSH1), 32,
		byte(PUSH1), 0,
		byte(RETURN),
	}
	res := evm.Execute(testSender, testTarget, code, nil, 100000, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if res.Output[31] != 1 {
		t.Fatalf("default chain id should be 1, got %x", res.Output)
	}
}

func TestExecuteValueTransfer(t *testing.T) {
	evm, db := newTestEVM(CancunRules())
	db.AddBalance(testSender, uint256.NewInt(1000))

	res := evm.Execute(testSender, testTarget, []byte{byte(STOP)}, nil, 100000, uint256.NewInt(400))
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if bal := db.GetBalance(testSender); bal.Uint64() != 600 {
		t.Fatalf("sender balance = %s, want 600", bal)
	}
	if bal := db.GetBalance(testTarget); bal.Uint64() != 400 {
		t.Fatalf("target balance = %s, want 400", bal)
	}
}

func TestExecuteInsufficientBalance(t *testing.T) {
	evm, db := newTestEVM(CancunRules())
	db.AddBalance(testSender, uint256.NewInt(10))

	res := evm.Execute(testSender, testTarget, []byte{byte(STOP)}, nil, 100000, uint256.NewInt(400))
	if res.Status != StatusFailure || !errors.Is(res.Err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance failure, got %s (%v)", res.Status, res.Err)
	}
	if bal := db.GetBalance(testSender); bal.Uint64() != 10 {
		t.Fatalf("failed transfer must not move funds, sender has %s", bal)
	}
}

func TestExecuteRefundCap(t *testing.T) {
	// Refunds settle at the end, capped at gasUsed/5.
	evm, db := newTestEVM(CancunRules())
	db.AddRefund(1_000_000)

	code := []byte{byte(PUSH1), 3, byte(PUSH1), 5, byte(ADD)}
	res := evm.Execute(testSender, testTarget, code, nil, 100000, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	// 9 gas executed, so at most 1 refunds.
	if res.GasRefunded != 1 {
		t.Fatalf("refund = %d, want 1", res.GasRefunded)
	}
	if res.GasUsed != 8 {
		t.Fatalf("net gas used = %d, want 8", res.GasUsed)
	}
}

func TestExecuteRefundCapPreLondon(t *testing.T) {
	// Before the EIP-3529 tightening the cap is gasUsed/2.
	evm, db := newTestEVM(BerlinRules())
	db.AddRefund(1_000_000)

	code := []byte{byte(PUSH1), 3, byte(PUSH1), 5, byte(ADD)}
	res := evm.Execute(testSender, testTarget, code, nil, 100000, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	// 9 gas executed, so at most 4 refunds.
	if res.GasRefunded != 4 {
		t.Fatalf("refund = %d, want 4", res.GasRefunded)
	}
	if res.GasUsed != 5 {
		t.Fatalf("net gas used = %d, want 5", res.GasUsed)
	}
}

func TestExecuteLogs(t *testing.T) {
	evm, _ := newTestEVM(CancunRules())

	// LOG1 with one topic over an empty data range.
	code := []byte{
		byte(PUSH1), 0x42, // topic
		byte(PUSH1), 0, // size
		byte(PUSH1), 0, // offset
		byte(LOG1),
		byte(STOP),
	}
	res := evm.Execute(testSender, testTarget, code, nil, 100000, nil)
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s (%v)", res.Status, res.Err)
	}
	if len(res.Logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(res.Logs))
	}
	lg := res.Logs[0]
	if lg.Address != testTarget {
		t.Fatalf("log address = %s, want %s", lg.Address, testTarget)
	}
	if len(lg.Topics) != 1 || lg.Topics[0][31] != 0x42 {
		t.Fatalf("log topics wrong: %v", lg.Topics)
	}
}

func TestExecuteRevertDiscardsLogs(t *testing.T) {
	evm, _ := newTestEVM(CancunRules())
	code := []byte{
		byte(PUSH1), 0, // size
		byte(PUSH1), 0, // offset
		byte(LOG0),
		byte(PUSH1), 0,
		byte(PUSH1), 0,
		byte(REVERT),
	}
	res := evm.Execute(testSender, testTarget, code, nil, 100000, nil)
	if res.Status != StatusRevert {
		t.Fatalf("expected revert, got %s (%v)", res.Status, res.Err)
	}
	if len(res.Logs) != 0 {
		t.Fatalf("reverted logs must be discarded, got %d", len(res.Logs))
	}
}

func TestSelectJumpTableForkGating(t *testing.T) {
	frontier := NewFrontierJumpTable()
	if frontier[DELEGATECALL] != nil {
		t.Fatal("DELEGATECALL must not exist before Homestead")
	}
	if frontier[ADD] == nil || frontier[SELFDESTRUCT] == nil {
		t.Fatal("core opcodes missing from Frontier")
	}
	homestead := NewHomesteadJumpTable()
	if homestead[DELEGATECALL] == nil {
		t.Fatal("DELEGATECALL missing from Homestead")
	}
	byzantium := NewByzantiumJumpTable()
	if byzantium[REVERT] == nil || byzantium[STATICCALL] == nil || byzantium[RETURNDATASIZE] == nil {
		t.Fatal("Byzantium opcodes missing")
	}
	constantinople := NewConstantinopleJumpTable()
	if constantinople[SHL] == nil || constantinople[CREATE2] == nil || constantinople[EXTCODEHASH] == nil {
		t.Fatal("Constantinople opcodes missing")
	}
	cancun := NewCancunJumpTable()
	if cancun[TLOAD] == nil || cancun[MCOPY] == nil || cancun[BLOBHASH] == nil || cancun[BLOBBASEFEE] == nil {
		t.Fatal("Cancun opcodes missing")
	}
	istanbul := NewIstanbulJumpTable()
	if istanbul[TLOAD] != nil || istanbul[PUSH0] != nil {
		t.Fatal("future opcodes leaked into Istanbul")
	}
	if istanbul[CHAINID] == nil || istanbul[SELFBALANCE] == nil {
		t.Fatal("Istanbul opcodes missing")
	}
}
