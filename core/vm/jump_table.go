package vm

import "github.com/holiman/uint256"

type (
	// executionFunc runs one instruction. It may advance pc (jumps, pushes)
	// and returns output bytes only for halting instructions.
	executionFunc func(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error)
	// memorySizeFunc returns the highest byte the instruction touches, with
	// an overflow flag for offset+length exceeding the addressable range.
	memorySizeFunc func(stack *Stack) (uint64, bool)
)

// operation describes one opcode under the active rule set.
type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  gasFunc
	// minStack is the operand count; maxStack the largest stack depth at
	// which executing still cannot overflow the limit.
	minStack   int
	maxStack   int
	memorySize memorySizeFunc

	halts  bool // instruction terminates the frame with success
	jumps  bool // instruction sets pc itself
	writes bool // instruction mutates state; barred in static frames
}

// JumpTable maps each opcode byte to its operation. A nil entry means the
// opcode is undefined under the active rule set.
type JumpTable [256]*operation

func minStack(pops, pushes int) int {
	return pops
}

func maxStack(pops, pushes int) int {
	return StackLimit + pops - pushes
}

// --- memory size calculators ---

func calcMemSize64(off, length *uint256.Int) (uint64, bool) {
	if length.IsZero() {
		return 0, false
	}
	l, overflow := length.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	o, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	return safeAdd(o, l)
}

func calcMemSize64WithUint(off *uint256.Int, length uint64) (uint64, bool) {
	o, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	return safeAdd(o, length)
}

func memoryKeccak256(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryCallDataCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(2))
}

func memoryReturnDataCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(2))
}

func memoryCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(2))
}

func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(3))
}

func memoryMLoad(stack *Stack) (uint64, bool) {
	return calcMemSize64WithUint(stack.Back(0), 32)
}

func memoryMStore(stack *Stack) (uint64, bool) {
	return calcMemSize64WithUint(stack.Back(0), 32)
}

func memoryMStore8(stack *Stack) (uint64, bool) {
	return calcMemSize64WithUint(stack.Back(0), 1)
}

func memoryCreate(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(2))
}

func memoryCreate2(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(1), stack.Back(2))
}

func memoryCall(stack *Stack) (uint64, bool) {
	in, overflow := calcMemSize64(stack.Back(3), stack.Back(4))
	if overflow {
		return 0, true
	}
	out, overflow := calcMemSize64(stack.Back(5), stack.Back(6))
	if overflow {
		return 0, true
	}
	if in > out {
		return in, false
	}
	return out, false
}

func memoryDelegateCall(stack *Stack) (uint64, bool) {
	in, overflow := calcMemSize64(stack.Back(2), stack.Back(3))
	if overflow {
		return 0, true
	}
	out, overflow := calcMemSize64(stack.Back(4), stack.Back(5))
	if overflow {
		return 0, true
	}
	if in > out {
		return in, false
	}
	return out, false
}

func memoryStaticCall(stack *Stack) (uint64, bool) {
	return memoryDelegateCall(stack)
}

func memoryReturn(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryRevert(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryLog(stack *Stack) (uint64, bool) {
	return calcMemSize64(stack.Back(0), stack.Back(1))
}

func memoryMcopy(stack *Stack) (uint64, bool) {
	dst, overflow := calcMemSize64(stack.Back(0), stack.Back(2))
	if overflow {
		return 0, true
	}
	src, overflow := calcMemSize64(stack.Back(1), stack.Back(2))
	if overflow {
		return 0, true
	}
	if dst > src {
		return dst, false
	}
	return src, false
}

// --- instruction sets, built incrementally per fork ---

// NewFrontierJumpTable returns the original instruction set.
func NewFrontierJumpTable() JumpTable {
	tbl := JumpTable{
		STOP: {
			execute:  opStop,
			minStack: minStack(0, 0), maxStack: maxStack(0, 0),
			halts: true,
		},
		ADD: {
			execute:     opAdd,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		MUL: {
			execute:     opMul,
			constantGas: GasFastStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		SUB: {
			execute:     opSub,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		DIV: {
			execute:     opDiv,
			constantGas: GasFastStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		SDIV: {
			execute:     opSdiv,
			constantGas: GasFastStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		MOD: {
			execute:     opMod,
			constantGas: GasFastStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		SMOD: {
			execute:     opSmod,
			constantGas: GasFastStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		ADDMOD: {
			execute:     opAddmod,
			constantGas: GasMidStep,
			minStack:    minStack(3, 1), maxStack: maxStack(3, 1),
		},
		MULMOD: {
			execute:     opMulmod,
			constantGas: GasMidStep,
			minStack:    minStack(3, 1), maxStack: maxStack(3, 1),
		},
		EXP: {
			execute:     opExp,
			constantGas: GasSlowStep,
			dynamicGas:  gasExpFrontier,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		SIGNEXTEND: {
			execute:     opSignExtend,
			constantGas: GasFastStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		LT: {
			execute:     opLt,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		GT: {
			execute:     opGt,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		SLT: {
			execute:     opSlt,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		SGT: {
			execute:     opSgt,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		EQ: {
			execute:     opEq,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		ISZERO: {
			execute:     opIszero,
			constantGas: GasFastestStep,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		AND: {
			execute:     opAnd,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		OR: {
			execute:     opOr,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		XOR: {
			execute:     opXor,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		NOT: {
			execute:     opNot,
			constantGas: GasFastestStep,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		BYTE: {
			execute:     opByte,
			constantGas: GasFastestStep,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
		},
		KECCAK256: {
			execute:     opKeccak256,
			constantGas: GasKeccak256,
			dynamicGas:  gasKeccak256,
			minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
			memorySize: memoryKeccak256,
		},
		ADDRESS: {
			execute:     opAddress,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		BALANCE: {
			execute:     opBalance,
			constantGas: GasBalance,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		ORIGIN: {
			execute:     opOrigin,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		CALLER: {
			execute:     opCaller,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		CALLVALUE: {
			execute:     opCallValue,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		CALLDATALOAD: {
			execute:     opCallDataLoad,
			constantGas: GasFastestStep,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		CALLDATASIZE: {
			execute:     opCallDataSize,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		CALLDATACOPY: {
			execute:     opCallDataCopy,
			constantGas: GasFastestStep,
			dynamicGas:  gasCalldataCopy,
			minStack:    minStack(3, 0), maxStack: maxStack(3, 0),
			memorySize: memoryCallDataCopy,
		},
		CODESIZE: {
			execute:     opCodeSize,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		CODECOPY: {
			execute:     opCodeCopy,
			constantGas: GasFastestStep,
			dynamicGas:  gasCodeCopy,
			minStack:    minStack(3, 0), maxStack: maxStack(3, 0),
			memorySize: memoryCodeCopy,
		},
		GASPRICE: {
			execute:     opGasprice,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		EXTCODESIZE: {
			execute:     opExtCodeSize,
			constantGas: GasExtcodeSize,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		EXTCODECOPY: {
			execute:     opExtCodeCopy,
			constantGas: GasExtcodeCopy,
			dynamicGas:  gasExtCodeCopy,
			minStack:    minStack(4, 0), maxStack: maxStack(4, 0),
			memorySize: memoryExtCodeCopy,
		},
		BLOCKHASH: {
			execute:     opBlockhash,
			constantGas: GasExtStep,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		COINBASE: {
			execute:     opCoinbase,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		TIMESTAMP: {
			execute:     opTimestamp,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		NUMBER: {
			execute:     opNumber,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		PREVRANDAO: {
			execute:     opPrevRandao,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		GASLIMIT: {
			execute:     opGasLimit,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		POP: {
			execute:     opPop,
			constantGas: GasQuickStep,
			minStack:    minStack(1, 0), maxStack: maxStack(1, 0),
		},
		MLOAD: {
			execute:     opMload,
			constantGas: GasFastestStep,
			dynamicGas:  gasMemoryExpansion,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
			memorySize: memoryMLoad,
		},
		MSTORE: {
			execute:     opMstore,
			constantGas: GasFastestStep,
			dynamicGas:  gasMemoryExpansion,
			minStack:    minStack(2, 0), maxStack: maxStack(2, 0),
			memorySize: memoryMStore,
		},
		MSTORE8: {
			execute:     opMstore8,
			constantGas: GasFastestStep,
			dynamicGas:  gasMemoryExpansion,
			minStack:    minStack(2, 0), maxStack: maxStack(2, 0),
			memorySize: memoryMStore8,
		},
		SLOAD: {
			execute:     opSload,
			constantGas: GasSload,
			minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
		},
		SSTORE: {
			execute:    opSstore,
			dynamicGas: gasSStoreLegacy,
			minStack:   minStack(2, 0), maxStack: maxStack(2, 0),
			writes: true,
		},
		JUMP: {
			execute:     opJump,
			constantGas: GasMidStep,
			minStack:    minStack(1, 0), maxStack: maxStack(1, 0),
			jumps: true,
		},
		JUMPI: {
			execute:     opJumpi,
			constantGas: GasSlowStep,
			minStack:    minStack(2, 0), maxStack: maxStack(2, 0),
			jumps: true,
		},
		PC: {
			execute:     opPc,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		MSIZE: {
			execute:     opMsize,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		GAS: {
			execute:     opGas,
			constantGas: GasQuickStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		},
		JUMPDEST: {
			execute:     opJumpdest,
			constantGas: GasJumpdest,
			minStack:    minStack(0, 0), maxStack: maxStack(0, 0),
		},
		CREATE: {
			execute:     opCreate,
			constantGas: GasCreate,
			dynamicGas:  gasMemoryExpansion,
			minStack:    minStack(3, 1), maxStack: maxStack(3, 1),
			memorySize: memoryCreate,
			writes:     true,
		},
		CALL: {
			execute:     opCall,
			constantGas: GasCall,
			dynamicGas:  gasCallFrontier,
			minStack:    minStack(7, 1), maxStack: maxStack(7, 1),
			memorySize: memoryCall,
		},
		CALLCODE: {
			execute:     opCallCode,
			constantGas: GasCall,
			dynamicGas:  gasCallCodeFrontier,
			minStack:    minStack(7, 1), maxStack: maxStack(7, 1),
			memorySize: memoryCall,
		},
		RETURN: {
			execute:    opReturn,
			dynamicGas: gasMemoryExpansion,
			minStack:   minStack(2, 0), maxStack: maxStack(2, 0),
			memorySize: memoryReturn,
			halts:      true,
		},
		SELFDESTRUCT: {
			execute:    opSelfdestruct,
			dynamicGas: gasSelfdestructFrontier,
			minStack:   minStack(1, 0), maxStack: maxStack(1, 0),
			halts:  true,
			writes: true,
		},
	}

	// PUSH1..PUSH32, DUP1..DUP16, SWAP1..SWAP16, LOG0..LOG4.
	for i := 0; i < 32; i++ {
		tbl[int(PUSH1)+i] = &operation{
			execute:     makePush(uint64(i + 1)),
			constantGas: GasFastestStep,
			minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
		}
	}
	for i := 1; i <= 16; i++ {
		tbl[int(DUP1)+i-1] = &operation{
			execute:     makeDup(i),
			constantGas: GasFastestStep,
			minStack:    minStack(i, i+1), maxStack: maxStack(i, i+1),
		}
	}
	for i := 1; i <= 16; i++ {
		tbl[int(SWAP1)+i-1] = &operation{
			execute:     makeSwap(i),
			constantGas: GasFastestStep,
			minStack:    minStack(i+1, i+1), maxStack: maxStack(i+1, i+1),
		}
	}
	for i := 0; i <= 4; i++ {
		tbl[int(LOG0)+i] = &operation{
			execute:    makeLog(i),
			dynamicGas: makeGasLog(uint64(i)),
			minStack:   minStack(i+2, 0), maxStack: maxStack(i+2, 0),
			memorySize: memoryLog,
			writes:     true,
		}
	}
	return tbl
}

// NewHomesteadJumpTable adds DELEGATECALL.
func NewHomesteadJumpTable() JumpTable {
	tbl := NewFrontierJumpTable()
	tbl[DELEGATECALL] = &operation{
		execute:     opDelegateCall,
		constantGas: GasCall,
		dynamicGas:  gasDelegateCallHomestead,
		minStack:    minStack(6, 1), maxStack: maxStack(6, 1),
		memorySize: memoryDelegateCall,
	}
	return tbl
}

// NewTangerineWhistleJumpTable applies the EIP-150 repricing of IO-heavy
// opcodes and the 63/64 gas forwarding rule.
func NewTangerineWhistleJumpTable() JumpTable {
	tbl := NewHomesteadJumpTable()
	tbl[BALANCE].constantGas = GasBalanceEIP150
	tbl[EXTCODESIZE].constantGas = GasExtcodeEIP150
	tbl[EXTCODECOPY].constantGas = GasExtcodeCopy150
	tbl[SLOAD].constantGas = GasSloadEIP150
	tbl[CALL].constantGas = GasCallEIP150
	tbl[CALL].dynamicGas = gasCallEIP150f
	tbl[CALLCODE].constantGas = GasCallEIP150
	tbl[CALLCODE].dynamicGas = gasCallCodeEIP150
	tbl[DELEGATECALL].constantGas = GasCallEIP150
	tbl[DELEGATECALL].dynamicGas = gasDelegateCall
	tbl[SELFDESTRUCT].constantGas = GasSelfdestruct
	tbl[SELFDESTRUCT].dynamicGas = gasSelfdestructEIP150
	return tbl
}

// NewSpuriousDragonJumpTable applies the EIP-160 EXP repricing.
func NewSpuriousDragonJumpTable() JumpTable {
	tbl := NewTangerineWhistleJumpTable()
	tbl[EXP].dynamicGas = gasExpEIP160
	return tbl
}

// NewByzantiumJumpTable adds REVERT, STATICCALL and the return data opcodes.
func NewByzantiumJumpTable() JumpTable {
	tbl := NewSpuriousDragonJumpTable()
	tbl[REVERT] = &operation{
		execute:    opRevert,
		dynamicGas: gasMemoryExpansion,
		minStack:   minStack(2, 0), maxStack: maxStack(2, 0),
		memorySize: memoryRevert,
	}
	tbl[STATICCALL] = &operation{
		execute:     opStaticCall,
		constantGas: GasCallEIP150,
		dynamicGas:  gasStaticCall,
		minStack:    minStack(6, 1), maxStack: maxStack(6, 1),
		memorySize: memoryStaticCall,
	}
	tbl[RETURNDATASIZE] = &operation{
		execute:     opReturnDataSize,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
	}
	tbl[RETURNDATACOPY] = &operation{
		execute:     opReturnDataCopy,
		constantGas: GasFastestStep,
		dynamicGas:  gasReturndataCopy,
		minStack:    minStack(3, 0), maxStack: maxStack(3, 0),
		memorySize: memoryReturnDataCopy,
	}
	return tbl
}

// NewConstantinopleJumpTable adds the shift opcodes, EXTCODEHASH and CREATE2.
func NewConstantinopleJumpTable() JumpTable {
	tbl := NewByzantiumJumpTable()
	tbl[SHL] = &operation{
		execute:     opSHL,
		constantGas: GasFastestStep,
		minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
	}
	tbl[SHR] = &operation{
		execute:     opSHR,
		constantGas: GasFastestStep,
		minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
	}
	tbl[SAR] = &operation{
		execute:     opSAR,
		constantGas: GasFastestStep,
		minStack:    minStack(2, 1), maxStack: maxStack(2, 1),
	}
	tbl[EXTCODEHASH] = &operation{
		execute:     opExtCodeHash,
		constantGas: GasExtcodeHash,
		minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
	}
	tbl[CREATE2] = &operation{
		execute:     opCreate2,
		constantGas: GasCreate,
		dynamicGas:  gasCreate2Constantinople,
		minStack:    minStack(4, 1), maxStack: maxStack(4, 1),
		memorySize: memoryCreate2,
		writes:     true,
	}
	return tbl
}

// NewIstanbulJumpTable adds CHAINID and SELFBALANCE, applies the EIP-1884
// repricings and switches SSTORE to net metering (EIP-2200).
func NewIstanbulJumpTable() JumpTable {
	tbl := NewConstantinopleJumpTable()
	tbl[CHAINID] = &operation{
		execute:     opChainID,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
	}
	tbl[SELFBALANCE] = &operation{
		execute:     opSelfBalance,
		constantGas: GasFastStep,
		minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
	}
	tbl[BALANCE].constantGas = GasBalanceEIP1884
	tbl[EXTCODEHASH].constantGas = GasExtcodeHash1884
	tbl[SLOAD].constantGas = GasSloadEIP1884
	tbl[SSTORE].dynamicGas = gasSStoreEIP2200
	return tbl
}

// NewBerlinJumpTable rewires the account and storage touching opcodes for
// EIP-2929 warm/cold accounting.
func NewBerlinJumpTable() JumpTable {
	tbl := NewIstanbulJumpTable()
	tbl[BALANCE].constantGas = WarmStorageReadCost
	tbl[BALANCE].dynamicGas = gasAccountAccessEIP2929
	tbl[EXTCODESIZE].constantGas = WarmStorageReadCost
	tbl[EXTCODESIZE].dynamicGas = gasAccountAccessEIP2929
	tbl[EXTCODEHASH].constantGas = WarmStorageReadCost
	tbl[EXTCODEHASH].dynamicGas = gasAccountAccessEIP2929
	tbl[EXTCODECOPY].constantGas = WarmStorageReadCost
	tbl[EXTCODECOPY].dynamicGas = gasExtCodeCopyEIP2929
	tbl[SLOAD].constantGas = 0
	tbl[SLOAD].dynamicGas = gasSLoadEIP2929
	tbl[SSTORE].dynamicGas = gasSStoreEIP2929
	tbl[CALL].constantGas = WarmStorageReadCost
	tbl[CALL].dynamicGas = gasCallEIP2929f
	tbl[CALLCODE].constantGas = WarmStorageReadCost
	tbl[CALLCODE].dynamicGas = gasCallCodeEIP2929
	tbl[DELEGATECALL].constantGas = WarmStorageReadCost
	tbl[DELEGATECALL].dynamicGas = gasDelegateCall2929
	tbl[STATICCALL].constantGas = WarmStorageReadCost
	tbl[STATICCALL].dynamicGas = gasStaticCall2929
	tbl[SELFDESTRUCT].constantGas = GasSelfdestruct
	tbl[SELFDESTRUCT].dynamicGas = gasSelfdestructEIP2929
	return tbl
}

// NewLondonJumpTable adds BASEFEE and applies the EIP-3529 refund cuts.
func NewLondonJumpTable() JumpTable {
	tbl := NewBerlinJumpTable()
	tbl[BASEFEE] = &operation{
		execute:     opBaseFee,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
	}
	tbl[SSTORE].dynamicGas = gasSStoreEIP3529
	tbl[SELFDESTRUCT].dynamicGas = gasSelfdestructEIP3529
	return tbl
}

// NewMergeJumpTable is London with 0x44 sourcing its word from the beacon
// chain randomness instead of difficulty.
func NewMergeJumpTable() JumpTable {
	return NewLondonJumpTable()
}

// NewShanghaiJumpTable adds PUSH0 and the EIP-3860 initcode metering.
func NewShanghaiJumpTable() JumpTable {
	tbl := NewMergeJumpTable()
	tbl[PUSH0] = &operation{
		execute:     opPush0,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
	}
	tbl[CREATE].dynamicGas = gasCreateEIP3860
	tbl[CREATE2].dynamicGas = gasCreate2EIP3860
	return tbl
}

// NewCancunJumpTable adds transient storage, MCOPY and the blob opcodes,
// and switches SELFDESTRUCT to EIP-6780 semantics.
func NewCancunJumpTable() JumpTable {
	tbl := NewShanghaiJumpTable()
	tbl[TLOAD] = &operation{
		execute:     opTload,
		constantGas: GasTLoadStore,
		minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
	}
	tbl[TSTORE] = &operation{
		execute:     opTstore,
		constantGas: GasTLoadStore,
		minStack:    minStack(2, 0), maxStack: maxStack(2, 0),
		writes: true,
	}
	tbl[MCOPY] = &operation{
		execute:     opMcopy,
		constantGas: GasFastestStep,
		dynamicGas:  gasMcopy,
		minStack:    minStack(3, 0), maxStack: maxStack(3, 0),
		memorySize: memoryMcopy,
	}
	tbl[BLOBHASH] = &operation{
		execute:     opBlobHash,
		constantGas: GasBlobHash,
		minStack:    minStack(1, 1), maxStack: maxStack(1, 1),
	}
	tbl[BLOBBASEFEE] = &operation{
		execute:     opBlobBaseFee,
		constantGas: GasQuickStep,
		minStack:    minStack(0, 1), maxStack: maxStack(0, 1),
	}
	tbl[SELFDESTRUCT].execute = opSelfdestruct6780
	return tbl
}

// NewPragueJumpTable carries the Cancun opcode set unchanged; Prague only
// extends the precompile registry.
func NewPragueJumpTable() JumpTable {
	return NewCancunJumpTable()
}
