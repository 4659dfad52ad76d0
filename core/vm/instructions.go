package vm

import (
	"errors"
	"math"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/crypto"
)

// getData returns data[start:start+size] right-padded with zeroes, treating
// any range past the end of data as zero bytes.
func getData(data []byte, start, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	out := make([]byte, size)
	copy(out, data[start:end])
	return out
}

// --- arithmetic ---

func opAdd(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Add(&x, y)
	return nil, nil
}

func opMul(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Mul(&x, y)
	return nil, nil
}

func opSub(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Sub(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.SMod(&x, y)
	return nil, nil
}

func opAddmod(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Pop()
	z := stack.Peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Pop()
	z := stack.Peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func opExp(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	base := stack.Pop()
	exponent := stack.Peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	back := stack.Pop()
	num := stack.Peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

// --- comparison and bitwise ---

func opLt(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Lt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opGt(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Gt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSlt(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Slt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opSgt(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Sgt(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opEq(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	if x.Eq(y) {
		y.SetOne()
	} else {
		y.Clear()
	}
	return nil, nil
}

func opIszero(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	if x.IsZero() {
		x.SetOne()
	} else {
		x.Clear()
	}
	return nil, nil
}

func opAnd(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Pop()
	y := stack.Peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	th := stack.Pop()
	val := stack.Peek()
	val.Byte(&th)
	return nil, nil
}

func opSHL(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	shift := stack.Pop()
	value := stack.Peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSHR(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	shift := stack.Pop()
	value := stack.Peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSAR(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	shift := stack.Pop()
	value := stack.Peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
	} else {
		value.SRsh(value, uint(shift.Uint64()))
	}
	return nil, nil
}

// --- hashing ---

func opKeccak256(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	size := stack.Peek()
	data := memory.GetPtr(offset.Uint64(), size.Uint64())
	size.SetBytes(crypto.Keccak256(data))
	return nil, nil
}

// --- execution environment ---

func opAddress(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetBytes(contract.Address[:]))
}

func opBalance(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.Address(slot.Bytes20())
	slot.Set(evm.StateDB.GetBalance(addr))
	return nil, nil
}

func opOrigin(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetBytes(evm.TxContext.Origin[:]))
}

func opCaller(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetBytes(contract.CallerAddress[:]))
}

func opCallValue(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).Set(contract.value))
}

func opCallDataLoad(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	x := stack.Peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		x.SetBytes(getData(contract.Input, offset, 32))
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCallDataSize(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(uint64(len(contract.Input))))
}

func opCallDataCopy(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	memOffset := stack.Pop()
	dataOffset := stack.Pop()
	length := stack.Pop()

	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = math.MaxUint64
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), getData(contract.Input, dataOffset64, length.Uint64()))
	return nil, nil
}

func opCodeSize(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(uint64(len(contract.Code))))
}

func opCodeCopy(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	memOffset := stack.Pop()
	codeOffset := stack.Pop()
	length := stack.Pop()

	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = math.MaxUint64
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), getData(contract.Code, codeOffset64, length.Uint64()))
	return nil, nil
}

func opGasprice(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).Set(evm.TxContext.GasPrice))
}

func opExtCodeSize(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.Address(slot.Bytes20())
	slot.SetUint64(uint64(evm.StateDB.GetCodeSize(addr)))
	return nil, nil
}

func opExtCodeCopy(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	a := stack.Pop()
	memOffset := stack.Pop()
	codeOffset := stack.Pop()
	length := stack.Pop()

	codeOffset64, overflow := codeOffset.Uint64WithOverflow()
	if overflow {
		codeOffset64 = math.MaxUint64
	}
	addr := types.Address(a.Bytes20())
	code := evm.StateDB.GetCode(addr)
	memory.Set(memOffset.Uint64(), length.Uint64(), getData(code, codeOffset64, length.Uint64()))
	return nil, nil
}

func opReturnDataSize(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(uint64(len(evm.returnData))))
}

func opReturnDataCopy(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	memOffset := stack.Pop()
	dataOffset := stack.Pop()
	length := stack.Pop()

	offset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, ErrReturnDataOutOfBounds
	}
	end, overflow := safeAdd(offset64, length.Uint64())
	if overflow || end > uint64(len(evm.returnData)) {
		return nil, ErrReturnDataOutOfBounds
	}
	memory.Set(memOffset.Uint64(), length.Uint64(), evm.returnData[offset64:end])
	return nil, nil
}

// opExtCodeHash pushes the code hash of the target account, or zero when
// the account does not exist or is empty per EIP-161.
func opExtCodeHash(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	slot := stack.Peek()
	addr := types.Address(slot.Bytes20())
	if evm.StateDB.Empty(addr) {
		slot.Clear()
	} else {
		hash := evm.StateDB.GetCodeHash(addr)
		slot.SetBytes(hash[:])
	}
	return nil, nil
}

// --- block context ---

func opBlockhash(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	num := stack.Peek()
	num64, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	var lower uint64
	upper := evm.Context.BlockNumber
	if upper >= 257 {
		lower = upper - 256
	}
	if num64 >= lower && num64 < upper && evm.Context.GetHash != nil {
		hash := evm.Context.GetHash(num64)
		num.SetBytes(hash[:])
	} else {
		num.Clear()
	}
	return nil, nil
}

func opCoinbase(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetBytes(evm.Context.Coinbase[:]))
}

func opTimestamp(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(evm.Context.Time))
}

func opNumber(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(evm.Context.BlockNumber))
}

func opPrevRandao(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetBytes(evm.Context.PrevRandao[:]))
}

func opGasLimit(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(evm.Context.GasLimit))
}

func opChainID(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).Set(evm.chainID))
}

func opSelfBalance(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).Set(evm.StateDB.GetBalance(contract.Address)))
}

func opBaseFee(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).Set(evm.Context.BaseFee))
}

func opBlobHash(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	index := stack.Peek()
	if index.LtUint64(uint64(len(evm.TxContext.BlobHashes))) {
		hash := evm.TxContext.BlobHashes[index.Uint64()]
		index.SetBytes(hash[:])
	} else {
		index.Clear()
	}
	return nil, nil
}

func opBlobBaseFee(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).Set(evm.Context.BlobBaseFee))
}

// --- storage, memory and flow control ---

func opPop(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	return nil, nil
}

func opMload(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	v := stack.Peek()
	offset := v.Uint64()
	v.SetBytes(memory.GetPtr(offset, 32))
	return nil, nil
}

func opMstore(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	mStart := stack.Pop()
	val := stack.Pop()
	memory.Set32(mStart.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	off := stack.Pop()
	val := stack.Pop()
	memory.Set(off.Uint64(), 1, []byte{byte(val.Uint64())})
	return nil, nil
}

func opSload(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Peek()
	val := evm.StateDB.GetState(contract.Address, types.Hash(loc.Bytes32()))
	loc.SetBytes(val[:])
	return nil, nil
}

func opSstore(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Pop()
	val := stack.Pop()
	evm.StateDB.SetState(contract.Address, types.Hash(loc.Bytes32()), types.Hash(val.Bytes32()))
	return nil, nil
}

func opJump(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	pos := stack.Pop()
	if !contract.validJumpdest(&pos) {
		return nil, ErrInvalidJump
	}
	*pc = pos.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	pos := stack.Pop()
	cond := stack.Pop()
	if !cond.IsZero() {
		if !contract.validJumpdest(&pos) {
			return nil, ErrInvalidJump
		}
		*pc = pos.Uint64()
	} else {
		*pc++
	}
	return nil, nil
}

func opPc(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(*pc))
}

func opMsize(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(uint64(memory.Len())))
}

func opGas(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int).SetUint64(contract.Gas))
}

func opJumpdest(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, nil
}

func opTload(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Peek()
	val := evm.StateDB.GetTransientState(contract.Address, types.Hash(loc.Bytes32()))
	loc.SetBytes(val[:])
	return nil, nil
}

func opTstore(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	loc := stack.Pop()
	val := stack.Pop()
	evm.StateDB.SetTransientState(contract.Address, types.Hash(loc.Bytes32()), types.Hash(val.Bytes32()))
	return nil, nil
}

func opMcopy(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	dst := stack.Pop()
	src := stack.Pop()
	length := stack.Pop()
	memory.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
	return nil, nil
}

func opPush0(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, stack.Push(new(uint256.Int))
}

// makePush builds the PUSH1..PUSH32 handler for an immediate of size bytes.
// Immediates running past the end of code read as zero on the right.
func makePush(size uint64) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
		codeLen := uint64(len(contract.Code))
		start := *pc + 1
		if start > codeLen {
			start = codeLen
		}
		end := start + size
		if end > codeLen {
			end = codeLen
		}
		padded := make([]byte, size)
		copy(padded, contract.Code[start:end])
		*pc += size
		return nil, stack.Push(new(uint256.Int).SetBytes(padded))
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
		return nil, stack.Dup(n)
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
		stack.Swap(n)
		return nil, nil
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
		mStart := stack.Pop()
		mSize := stack.Pop()
		topics := make([]types.Hash, n)
		for i := 0; i < n; i++ {
			t := stack.Pop()
			topics[i] = types.Hash(t.Bytes32())
		}
		evm.StateDB.AddLog(&types.Log{
			Address: contract.Address,
			Topics:  topics,
			Data:    memory.GetCopy(mStart.Uint64(), mSize.Uint64()),
		})
		return nil, nil
	}
}

// --- calls and creates ---

func opCreate(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	value := stack.Pop()
	offset := stack.Pop()
	size := stack.Pop()
	input := memory.GetCopy(offset.Uint64(), size.Uint64())

	gas := contract.Gas
	if evm.forkRules.IsTangerineWhistle {
		gas -= gas / CallGasFraction
	}
	contract.UseGas(gas)

	ret, addr, returnGas, err := evm.Create(contract.Address, input, gas, &value)

	var stackvalue uint256.Int
	if err == nil {
		stackvalue.SetBytes(addr[:])
	}
	if pushErr := stack.Push(&stackvalue); pushErr != nil {
		return nil, pushErr
	}
	contract.RefundGas(returnGas)

	if errors.Is(err, ErrExecutionReverted) {
		evm.returnData = ret
		return ret, nil
	}
	evm.returnData = nil
	return nil, nil
}

func opCreate2(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	value := stack.Pop()
	offset := stack.Pop()
	size := stack.Pop()
	salt := stack.Pop()
	input := memory.GetCopy(offset.Uint64(), size.Uint64())

	gas := contract.Gas
	gas -= gas / CallGasFraction
	contract.UseGas(gas)

	ret, addr, returnGas, err := evm.Create2(contract.Address, input, gas, &value, &salt)

	var stackvalue uint256.Int
	if err == nil {
		stackvalue.SetBytes(addr[:])
	}
	if pushErr := stack.Push(&stackvalue); pushErr != nil {
		return nil, pushErr
	}
	contract.RefundGas(returnGas)

	if errors.Is(err, ErrExecutionReverted) {
		evm.returnData = ret
		return ret, nil
	}
	evm.returnData = nil
	return nil, nil
}

func opCall(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	// The requested gas was consumed by the dynamic gas function; the
	// amount actually forwarded sits in callGasTemp.
	stack.Pop()
	a := stack.Pop()
	value := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	toAddr := types.Address(a.Bytes20())
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	gas := evm.callGasTemp
	if !value.IsZero() {
		if evm.readOnly {
			return nil, ErrWriteProtection
		}
		gas += CallStipend
	}
	ret, returnGas, err := evm.Call(contract.Address, toAddr, args, gas, &value)

	var success uint256.Int
	if err == nil {
		success.SetOne()
	}
	if pushErr := stack.Push(&success); pushErr != nil {
		return nil, pushErr
	}
	if err == nil || errors.Is(err, ErrExecutionReverted) {
		memory.Set(retOffset.Uint64(), min(retSize.Uint64(), uint64(len(ret))), ret)
	}
	contract.RefundGas(returnGas)
	evm.returnData = ret
	return nil, nil
}

func opCallCode(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	a := stack.Pop()
	value := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	toAddr := types.Address(a.Bytes20())
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	gas := evm.callGasTemp
	if !value.IsZero() {
		gas += CallStipend
	}
	ret, returnGas, err := evm.CallCode(contract.Address, toAddr, args, gas, &value)

	var success uint256.Int
	if err == nil {
		success.SetOne()
	}
	if pushErr := stack.Push(&success); pushErr != nil {
		return nil, pushErr
	}
	if err == nil || errors.Is(err, ErrExecutionReverted) {
		memory.Set(retOffset.Uint64(), min(retSize.Uint64(), uint64(len(ret))), ret)
	}
	contract.RefundGas(returnGas)
	evm.returnData = ret
	return nil, nil
}

func opDelegateCall(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	a := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	toAddr := types.Address(a.Bytes20())
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	ret, returnGas, err := evm.DelegateCall(contract, toAddr, args, evm.callGasTemp)

	var success uint256.Int
	if err == nil {
		success.SetOne()
	}
	if pushErr := stack.Push(&success); pushErr != nil {
		return nil, pushErr
	}
	if err == nil || errors.Is(err, ErrExecutionReverted) {
		memory.Set(retOffset.Uint64(), min(retSize.Uint64(), uint64(len(ret))), ret)
	}
	contract.RefundGas(returnGas)
	evm.returnData = ret
	return nil, nil
}

func opStaticCall(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	stack.Pop()
	a := stack.Pop()
	inOffset := stack.Pop()
	inSize := stack.Pop()
	retOffset := stack.Pop()
	retSize := stack.Pop()

	toAddr := types.Address(a.Bytes20())
	args := memory.GetCopy(inOffset.Uint64(), inSize.Uint64())

	ret, returnGas, err := evm.StaticCall(contract.Address, toAddr, args, evm.callGasTemp)

	var success uint256.Int
	if err == nil {
		success.SetOne()
	}
	if pushErr := stack.Push(&success); pushErr != nil {
		return nil, pushErr
	}
	if err == nil || errors.Is(err, ErrExecutionReverted) {
		memory.Set(retOffset.Uint64(), min(retSize.Uint64(), uint64(len(ret))), ret)
	}
	contract.RefundGas(returnGas)
	evm.returnData = ret
	return nil, nil
}

// --- halting ---

func opStop(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	return nil, nil
}

func opReturn(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	size := stack.Pop()
	return memory.GetCopy(offset.Uint64(), size.Uint64()), nil
}

func opRevert(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	offset := stack.Pop()
	size := stack.Pop()
	return memory.GetCopy(offset.Uint64(), size.Uint64()), ErrExecutionReverted
}

// opSelfdestruct sweeps the frame's balance to the beneficiary and marks
// the account for destruction at the end of the transaction.
func opSelfdestruct(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	beneficiary := stack.Pop()
	addr := types.Address(beneficiary.Bytes20())
	balance := new(uint256.Int).Set(evm.StateDB.GetBalance(contract.Address))
	evm.StateDB.SelfDestruct(contract.Address)
	evm.StateDB.AddBalance(addr, balance)
	return nil, nil
}

// opSelfdestruct6780 is the Cancun variant: the balance moves but accounts
// existing before this transaction are no longer destroyed.
func opSelfdestruct6780(pc *uint64, evm *EVM, contract *Contract, memory *Memory, stack *Stack) ([]byte, error) {
	beneficiary := stack.Pop()
	addr := types.Address(beneficiary.Bytes20())
	balance := new(uint256.Int).Set(evm.StateDB.GetBalance(contract.Address))
	evm.StateDB.SubBalance(contract.Address, balance)
	evm.StateDB.AddBalance(addr, balance)
	return nil, nil
}
