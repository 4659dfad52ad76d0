package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// gasFunc computes the dynamic gas of an instruction. memorySize is the
// word-rounded memory size the instruction requires; the returned charge
// includes the expansion cost to reach it.
type gasFunc func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error)

func safeAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum < a
}

func safeMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	prod := a * b
	return prod, prod/a != b
}

// toWordSize rounds a byte size up to whole 32-byte words.
func toWordSize(size uint64) uint64 {
	if size > ^uint64(0)-31 {
		return ^uint64(0)/32 + 1
	}
	return (size + 31) / 32
}

// memoryGasCost returns the charge for growing memory to newMemSize bytes.
// The total cost of a memory of w words is 3*w + w*w/512; the charge is the
// difference against the cost already paid, so it is zero when the memory
// does not grow.
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	if newMemSize > MemoryLimit {
		return 0, ErrMemoryLimitExceeded
	}
	newWords := toWordSize(newMemSize)
	newSize := newWords * 32
	if newSize <= uint64(mem.Len()) {
		return 0, nil
	}
	linear := newWords * GasMemoryWord
	quad := newWords * newWords / QuadCoeffDiv
	newTotal := linear + quad
	fee := newTotal - mem.lastGasCost
	mem.lastGasCost = newTotal
	return fee, nil
}

// gasMemoryExpansion is the dynamic gas of instructions whose only dynamic
// cost is memory growth (MLOAD, MSTORE, RETURN, ...).
func gasMemoryExpansion(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

// callGas applies the EIP-150 63/64 forwarding rule: of the gas left after
// base costs, the caller keeps at least 1/64. Before EIP-150 the requested
// amount is forwarded as-is (and may exceed what the caller holds; the
// deduction fails later in that case).
func callGas(isEip150 bool, availableGas, base uint64, callCost *uint256.Int) (uint64, error) {
	if isEip150 {
		availableGas -= base
		gas := availableGas - availableGas/CallGasFraction
		if !callCost.IsUint64() || gas < callCost.Uint64() {
			return gas, nil
		}
	}
	if !callCost.IsUint64() {
		return 0, ErrGasUintOverflow
	}
	return callCost.Uint64(), nil
}

// --- keccak, copy and log costs ---

func gasKeccak256(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	words, overflow := stack.Back(1).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	wordGas, overflow := safeMul(toWordSize(words), GasKeccak256Word)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	gas, overflow = safeAdd(gas, wordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// makeGasCopy builds the dynamic gas of the *COPY family: memory expansion
// plus 3 gas per copied word. lenPos is the stack position of the length.
func makeGasCopy(lenPos int) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		length, overflow := stack.Back(lenPos).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		wordGas, overflow := safeMul(toWordSize(length), GasCopyWord)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		gas, overflow = safeAdd(gas, wordGas)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasCalldataCopy   = makeGasCopy(2)
	gasCodeCopy       = makeGasCopy(2)
	gasReturndataCopy = makeGasCopy(2)
	gasMcopy          = makeGasCopy(2)
)

func makeGasLog(n uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		size, overflow := stack.Back(1).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		var of bool
		if gas, of = safeAdd(gas, GasLog); of {
			return 0, ErrGasUintOverflow
		}
		if gas, of = safeAdd(gas, n*GasLogTopic); of {
			return 0, ErrGasUintOverflow
		}
		byteGas, of := safeMul(size, GasLogByte)
		if of {
			return 0, ErrGasUintOverflow
		}
		if gas, of = safeAdd(gas, byteGas); of {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

// makeGasExp charges per significant byte of the exponent. The rate rose
// from 10 to 50 in EIP-160.
func makeGasExp(byteGas uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		expBytes := uint64((stack.Back(1).BitLen() + 7) / 8)
		gas, overflow := safeMul(expBytes, byteGas)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasExpFrontier = makeGasExp(GasExpByte)
	gasExpEIP160   = makeGasExp(GasExpByteEIP160)
)

// --- SSTORE across forks ---

// gasSStoreLegacy is the Frontier..Istanbul schedule (net-metering forks
// excluded): zero to non-zero costs 20000, any write to a non-zero slot
// costs 5000, and clearing a slot refunds 15000.
func gasSStoreLegacy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	key := types.Hash(stack.Back(0).Bytes32())
	value := stack.Back(1)
	current := evm.StateDB.GetState(contract.Address, key)

	switch {
	case current == (types.Hash{}) && !value.IsZero():
		return SstoreLegacySetGas, nil
	case current != (types.Hash{}) && value.IsZero():
		evm.StateDB.AddRefund(SstoreLegacyClearRefund)
		return SstoreLegacyResetGas, nil
	default:
		return SstoreLegacyResetGas, nil
	}
}

// makeGasSStoreNet builds the net-metered SSTORE schedule introduced by
// EIP-2200 and reshaped by EIP-2929/EIP-3529. The parameters are the gas of
// a no-op store, the cold-slot surcharge (0 before Berlin) and the refund
// for clearing a slot.
func makeGasSStoreNet(noopGas, coldCost, clearRefund uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		// EIP-2200 reentrancy sentry.
		if contract.Gas <= SstoreSentryGas {
			return 0, errors.New("not enough gas for sstore sentry")
		}
		key := types.Hash(stack.Back(0).Bytes32())
		value := types.Hash(stack.Back(1).Bytes32())

		var cost uint64
		if coldCost > 0 {
			if _, slotWarm := evm.StateDB.SlotInAccessList(contract.Address, key); !slotWarm {
				evm.StateDB.AddSlotToAccessList(contract.Address, key)
				cost = coldCost
			}
		}
		current := evm.StateDB.GetState(contract.Address, key)
		if current == value {
			return cost + noopGas, nil
		}
		original := evm.StateDB.GetCommittedState(contract.Address, key)
		if original == current {
			if original == (types.Hash{}) {
				return cost + SstoreSetGas, nil
			}
			if value == (types.Hash{}) {
				evm.StateDB.AddRefund(clearRefund)
			}
			return cost + (SstoreResetGas - coldCost), nil
		}
		// Dirty slot: adjust the clearing refund for transitions through
		// or away from zero, then settle restores.
		if original != (types.Hash{}) {
			if current == (types.Hash{}) {
				evm.StateDB.SubRefund(clearRefund)
			} else if value == (types.Hash{}) {
				evm.StateDB.AddRefund(clearRefund)
			}
		}
		if original == value {
			if original == (types.Hash{}) {
				evm.StateDB.AddRefund(SstoreSetGas - noopGas)
			} else {
				evm.StateDB.AddRefund((SstoreResetGas - coldCost) - noopGas)
			}
		}
		return cost + noopGas, nil
	}
}

var (
	// Istanbul: EIP-2200 with the 800-gas SLOAD as the no-op cost and the
	// original 15000 clearing refund.
	gasSStoreEIP2200 = makeGasSStoreNet(GasSloadEIP1884, 0, SstoreLegacyClearRefund)
	// Berlin: EIP-2929 cold-slot surcharge, warm no-op at 100.
	gasSStoreEIP2929 = makeGasSStoreNet(WarmStorageReadCost, ColdSloadCost, SstoreLegacyClearRefund)
	// London: EIP-3529 lowers the clearing refund to 4800.
	gasSStoreEIP3529 = makeGasSStoreNet(WarmStorageReadCost, ColdSloadCost, SstoreClearsScheduleRefund)
)

// --- EIP-2929 warm/cold helpers ---

// touchAddress warms addr and returns the cold surcharge over the warm
// constant cost already charged by the jump table.
func touchAddress(evm *EVM, addr types.Address) uint64 {
	if evm.StateDB.AddressInAccessList(addr) {
		return 0
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return ColdAccountAccessCost - WarmStorageReadCost
}

// gasSLoadEIP2929 returns the full SLOAD cost under Berlin rules; the
// constant cost in the jump table is zero.
func gasSLoadEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	key := types.Hash(stack.Back(0).Bytes32())
	if _, slotWarm := evm.StateDB.SlotInAccessList(contract.Address, key); slotWarm {
		return WarmStorageReadCost, nil
	}
	evm.StateDB.AddSlotToAccessList(contract.Address, key)
	return ColdSloadCost, nil
}

// gasAccountAccessEIP2929 is the dynamic gas of BALANCE, EXTCODESIZE and
// EXTCODEHASH under Berlin rules.
func gasAccountAccessEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	addr := types.Address(stack.Back(0).Bytes20())
	return touchAddress(evm, addr), nil
}

func gasExtCodeCopyEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := makeGasCopy(3)(evm, contract, stack, mem, memorySize)
	if err != nil {
		return 0, err
	}
	addr := types.Address(stack.Back(0).Bytes20())
	gas, overflow := safeAdd(gas, touchAddress(evm, addr))
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

var gasExtCodeCopy = makeGasCopy(3)

// --- CALL family ---

// callGasParams captures what varies across CALL/CALLCODE/DELEGATECALL/
// STATICCALL and across forks.
type callGasParams struct {
	hasValue   bool // value argument present on the stack (CALL, CALLCODE)
	newAccount bool // CALL charges for creating a non-existent recipient
	eip150     bool
	eip2929    bool
}

func makeGasCall(p callGasParams) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		addr := types.Address(stack.Back(1).Bytes20())
		var overflow bool

		if p.eip2929 {
			if gas, overflow = safeAdd(gas, touchAddress(evm, addr)); overflow {
				return 0, ErrGasUintOverflow
			}
		}
		transfersValue := p.hasValue && !stack.Back(2).IsZero()
		if transfersValue {
			if gas, overflow = safeAdd(gas, CallValueTransferGas); overflow {
				return 0, ErrGasUintOverflow
			}
			if p.newAccount && !evm.StateDB.Exist(addr) {
				if gas, overflow = safeAdd(gas, CallNewAccountGas); overflow {
					return 0, ErrGasUintOverflow
				}
			}
		}
		evm.callGasTemp, err = callGas(p.eip150, contract.Gas, gas, stack.Back(0))
		if err != nil {
			return 0, err
		}
		if gas, overflow = safeAdd(gas, evm.callGasTemp); overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasCallFrontier          = makeGasCall(callGasParams{hasValue: true, newAccount: true})
	gasCallEIP150f           = makeGasCall(callGasParams{hasValue: true, newAccount: true, eip150: true})
	gasCallEIP2929f          = makeGasCall(callGasParams{hasValue: true, newAccount: true, eip150: true, eip2929: true})
	gasCallCodeFrontier      = makeGasCall(callGasParams{hasValue: true})
	gasCallCodeEIP150        = makeGasCall(callGasParams{hasValue: true, eip150: true})
	gasCallCodeEIP2929       = makeGasCall(callGasParams{hasValue: true, eip150: true, eip2929: true})
	gasDelegateCallHomestead = makeGasCall(callGasParams{})
	gasDelegateCall          = makeGasCall(callGasParams{eip150: true})
	gasDelegateCall2929      = makeGasCall(callGasParams{eip150: true, eip2929: true})
	gasStaticCall            = makeGasCall(callGasParams{eip150: true})
	gasStaticCall2929        = makeGasCall(callGasParams{eip150: true, eip2929: true})
)

// --- CREATE family ---

func gasCreateEIP3860(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	size, overflow := stack.Back(2).Uint64WithOverflow()
	if overflow || size > MaxInitCodeSize {
		return 0, ErrGasUintOverflow
	}
	wordGas, overflow := safeMul(toWordSize(size), InitCodeWordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	gas, overflow = safeAdd(gas, wordGas)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// gasCreate2 charges the keccak cost of hashing the init code on top of
// memory expansion; Shanghai adds the EIP-3860 per-word charge.
func makeGasCreate2(withInitCodeGas bool) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		size, overflow := stack.Back(2).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if withInitCodeGas && size > MaxInitCodeSize {
			return 0, ErrGasUintOverflow
		}
		words := toWordSize(size)
		wordGas, overflow := safeMul(words, GasKeccak256Word)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if withInitCodeGas {
			initGas, of := safeMul(words, InitCodeWordGas)
			if of {
				return 0, ErrGasUintOverflow
			}
			if wordGas, of = safeAdd(wordGas, initGas); of {
				return 0, ErrGasUintOverflow
			}
		}
		gas, overflow = safeAdd(gas, wordGas)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return gas, nil
	}
}

var (
	gasCreate2Constantinople = makeGasCreate2(false)
	gasCreate2EIP3860        = makeGasCreate2(true)
)

// --- SELFDESTRUCT ---

func makeGasSelfdestruct(newAccountCharge, eip2929, refund bool) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		var gas uint64
		beneficiary := types.Address(stack.Back(0).Bytes20())
		if eip2929 {
			if !evm.StateDB.AddressInAccessList(beneficiary) {
				evm.StateDB.AddAddressToAccessList(beneficiary)
				gas = ColdAccountAccessCost
			}
		}
		// EIP-150/161 shape: charge for forcing a new account into
		// existence only when sweeping a balance to it.
		if newAccountCharge {
			if !evm.StateDB.Exist(beneficiary) && !evm.StateDB.GetBalance(contract.Address).IsZero() {
				gas += CreateBySelfdestructGas
			}
		}
		// Removed by EIP-3529 (London).
		if refund && !evm.StateDB.HasSelfDestructed(contract.Address) {
			evm.StateDB.AddRefund(SelfdestructRefundGas)
		}
		return gas, nil
	}
}

var (
	gasSelfdestructFrontier = makeGasSelfdestruct(false, false, true)
	gasSelfdestructEIP150   = makeGasSelfdestruct(true, false, true)
	gasSelfdestructEIP2929  = makeGasSelfdestruct(true, true, true)
	gasSelfdestructEIP3529  = makeGasSelfdestruct(true, true, false)
)
