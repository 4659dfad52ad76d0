package vm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/crypto"
)

// ExecutionStatus classifies the terminal outcome of a top-level execution.
type ExecutionStatus uint8

const (
	StatusSuccess ExecutionStatus = iota
	StatusRevert
	StatusFailure
)

func (s ExecutionStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRevert:
		return "revert"
	default:
		return "failure"
	}
}

// ExecutionResult is the aggregate outcome handed to the caller of Execute.
type ExecutionResult struct {
	Status      ExecutionStatus
	Output      []byte
	GasUsed     uint64
	GasRefunded uint64
	Logs        []*types.Log
	// Err carries the failing frame's error for diagnostics. Nil unless
	// Status is Failure, or ErrExecutionReverted for Revert.
	Err error
}

// transfer moves value between accounts. The caller has already verified
// the sender's balance.
func (evm *EVM) transfer(from, to types.Address, value *uint256.Int) {
	if value.IsZero() {
		return
	}
	evm.StateDB.SubBalance(from, value)
	evm.StateDB.AddBalance(to, value)
}

func (evm *EVM) canTransfer(from types.Address, value *uint256.Int) bool {
	return value.IsZero() || !evm.StateDB.GetBalance(from).Lt(value)
}

// Call executes the code at addr in addr's own context, transferring value
// from caller. On revert or failure every state change of the child is
// rolled back; on failure the forwarded gas is forfeited as well.
func (evm *EVM) Call(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth >= evm.maxCallDepth() {
		return nil, gas, ErrDepth
	}
	if !evm.canTransfer(caller, value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()
	p, isPrecompile := evm.precompile(addr)

	if !isPrecompile && !evm.StateDB.Exist(addr) {
		if evm.forkRules.IsSpuriousDragon && value.IsZero() {
			// Calling a void account with no value does nothing; do not
			// force the account into existence.
			return nil, gas, nil
		}
		evm.StateDB.CreateAccount(addr)
	}
	evm.transfer(caller, addr, value)

	evm.traceEnter(CALL, caller, addr, input, gas, value)
	evm.depth++
	gasLeft := gas
	if isPrecompile {
		ret, gasLeft, err = RunPrecompiledContract(p, input, gas)
	} else if code := evm.StateDB.GetCode(addr); len(code) > 0 {
		contract := NewContract(caller, addr, value, gas)
		contract.SetCallCode(evm.StateDB.GetCodeHash(addr), code)
		ret, err = evm.Run(contract, input, false)
		gasLeft = contract.Gas
	}
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
	}
	evm.traceExit(ret, gas-gasLeft, err)
	return ret, gasLeft, err
}

// CallCode executes addr's code in the caller's own context: storage,
// balance and address are the caller's. The value is checked but stays
// with the caller.
func (evm *EVM) CallCode(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth >= evm.maxCallDepth() {
		return nil, gas, ErrDepth
	}
	if !evm.canTransfer(caller, value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()

	evm.traceEnter(CALLCODE, caller, addr, input, gas, value)
	evm.depth++
	gasLeft := gas
	if p, isPrecompile := evm.precompile(addr); isPrecompile {
		ret, gasLeft, err = RunPrecompiledContract(p, input, gas)
	} else if code := evm.StateDB.GetCode(addr); len(code) > 0 {
		contract := NewContract(caller, caller, value, gas)
		contract.SetCallCode(evm.StateDB.GetCodeHash(addr), code)
		ret, err = evm.Run(contract, input, false)
		gasLeft = contract.Gas
	}
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
	}
	evm.traceExit(ret, gas-gasLeft, err)
	return ret, gasLeft, err
}

// DelegateCall executes addr's code in the parent frame's context,
// preserving the parent's caller and value.
func (evm *EVM) DelegateCall(parent *Contract, addr types.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth >= evm.maxCallDepth() {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	evm.traceEnter(DELEGATECALL, parent.Address, addr, input, gas, nil)
	evm.depth++
	gasLeft := gas
	if p, isPrecompile := evm.precompile(addr); isPrecompile {
		ret, gasLeft, err = RunPrecompiledContract(p, input, gas)
	} else if code := evm.StateDB.GetCode(addr); len(code) > 0 {
		contract := NewContract(parent.CallerAddress, parent.Address, parent.value, gas)
		contract.SetCallCode(evm.StateDB.GetCodeHash(addr), code)
		ret, err = evm.Run(contract, input, false)
		gasLeft = contract.Gas
	}
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
	}
	evm.traceExit(ret, gas-gasLeft, err)
	return ret, gasLeft, err
}

// StaticCall executes the code at addr with the read-only flag set for the
// child and all of its descendants.
func (evm *EVM) StaticCall(caller, addr types.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth >= evm.maxCallDepth() {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	evm.traceEnter(STATICCALL, caller, addr, input, gas, nil)
	evm.depth++
	gasLeft := gas
	if p, isPrecompile := evm.precompile(addr); isPrecompile {
		ret, gasLeft, err = RunPrecompiledContract(p, input, gas)
	} else if code := evm.StateDB.GetCode(addr); len(code) > 0 {
		contract := NewContract(caller, addr, new(uint256.Int), gas)
		contract.SetCallCode(evm.StateDB.GetCodeHash(addr), code)
		ret, err = evm.Run(contract, input, true)
		gasLeft = contract.Gas
	}
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			gasLeft = 0
		}
	}
	evm.traceExit(ret, gas-gasLeft, err)
	return ret, gasLeft, err
}

// Create deploys a contract at the address derived from the caller's
// account nonce.
func (evm *EVM) Create(caller types.Address, code []byte, gas uint64, value *uint256.Int) (ret []byte, contractAddr types.Address, leftOverGas uint64, err error) {
	contractAddr = createAddress(caller, evm.StateDB.GetNonce(caller))
	return evm.create(caller, code, gas, value, contractAddr, CREATE)
}

// Create2 deploys a contract at the address derived from caller, salt and
// the init code hash, independent of the caller's nonce.
func (evm *EVM) Create2(caller types.Address, code []byte, gas uint64, value *uint256.Int, salt *uint256.Int) (ret []byte, contractAddr types.Address, leftOverGas uint64, err error) {
	contractAddr = create2Address(caller, salt, crypto.Keccak256(code))
	return evm.create(caller, code, gas, value, contractAddr, CREATE2)
}

func (evm *EVM) create(caller types.Address, code []byte, gas uint64, value *uint256.Int, address types.Address, op OpCode) ([]byte, types.Address, uint64, error) {
	if evm.depth >= evm.maxCallDepth() {
		return nil, address, gas, ErrDepth
	}
	if !evm.canTransfer(caller, value) {
		return nil, address, gas, ErrInsufficientBalance
	}
	if evm.forkRules.IsShanghai && len(code) > MaxInitCodeSize {
		return nil, address, gas, ErrMaxInitCodeSizeExceeded
	}
	nonce := evm.StateDB.GetNonce(caller)
	if nonce+1 < nonce {
		return nil, address, gas, ErrNonceUintOverflow
	}
	evm.StateDB.SetNonce(caller, nonce+1)

	// The new address stays warm even if the creation collides (EIP-2929).
	if evm.forkRules.IsBerlin {
		evm.StateDB.AddAddressToAccessList(address)
	}
	// Collision: a used nonce or deployed code means the address is taken.
	// All gas is forfeited.
	codeHash := evm.StateDB.GetCodeHash(address)
	if evm.StateDB.GetNonce(address) != 0 || (codeHash != (types.Hash{}) && codeHash != types.EmptyCodeHash) {
		return nil, address, 0, ErrContractAddressCollision
	}

	snapshot := evm.StateDB.Snapshot()
	evm.StateDB.CreateAccount(address)
	if evm.forkRules.IsSpuriousDragon {
		evm.StateDB.SetNonce(address, 1)
	}
	evm.transfer(caller, address, value)

	contract := NewContract(caller, address, value, gas)
	contract.SetCallCode(crypto.Keccak256Hash(code), code)

	evm.traceEnter(op, caller, address, code, gas, value)
	evm.depth++
	ret, err := evm.Run(contract, nil, false)
	evm.depth--

	if err == nil {
		switch {
		case evm.forkRules.IsLondon && len(ret) > 0 && ret[0] == 0xEF:
			// EIP-3541 reserves the 0xEF code prefix.
			err = ErrInvalidCode
		case evm.forkRules.IsSpuriousDragon && len(ret) > MaxCodeSize:
			err = ErrMaxCodeSizeExceeded
		}
	}
	if err == nil {
		if contract.UseGas(CreateDataGas * uint64(len(ret))) {
			evm.StateDB.SetCode(address, ret)
		} else {
			err = ErrOutOfGas
		}
	}
	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if !errors.Is(err, ErrExecutionReverted) {
			contract.Gas = 0
		}
	}
	evm.traceExit(ret, gas-contract.Gas, err)
	return ret, address, contract.Gas, err
}

// Execute runs code as the body of target with the given input, gas limit
// and value from caller. It is the single external entry point: it warms
// the transaction scope, drives the frame stack to completion, settles the
// refund counter and folds everything into an ExecutionResult.
func (evm *EVM) Execute(caller, target types.Address, code, input []byte, gasLimit uint64, value *uint256.Int) *ExecutionResult {
	if value == nil {
		value = new(uint256.Int)
	}
	evm.warmTransactionScope(caller, target)

	if tracer := evm.Config.Tracer; tracer != nil {
		tracer.CaptureStart(caller, target, false, input, gasLimit, value)
	}
	if logger := evm.Config.Logger; logger != nil {
		logger.Debug("execution start", "caller", caller, "target", target, "gas", gasLimit)
	}

	snapshot := evm.StateDB.Snapshot()
	if len(code) > 0 && len(evm.StateDB.GetCode(target)) == 0 {
		if !evm.StateDB.Exist(target) {
			evm.StateDB.CreateAccount(target)
		}
		evm.StateDB.SetCode(target, code)
	}

	ret, gasLeft, err := evm.Call(caller, target, input, gasLimit, value)
	gasUsed := gasLimit - gasLeft

	result := &ExecutionResult{Output: ret, GasUsed: gasUsed, Err: err}
	switch {
	case err == nil:
		// Refunds settle only now, capped per the active fork's quotient.
		quotient := RefundQuotient
		if evm.forkRules.IsLondon {
			quotient = RefundQuotientEIP3529
		}
		refund := evm.StateDB.GetRefund()
		if maxRefund := gasUsed / quotient; refund > maxRefund {
			refund = maxRefund
		}
		result.Status = StatusSuccess
		result.GasRefunded = refund
		result.GasUsed = gasUsed - refund
		result.Logs = evm.StateDB.Logs()
	case errors.Is(err, ErrExecutionReverted):
		result.Status = StatusRevert
		evm.StateDB.RevertToSnapshot(snapshot)
	default:
		result.Status = StatusFailure
		evm.StateDB.RevertToSnapshot(snapshot)
	}

	if tracer := evm.Config.Tracer; tracer != nil {
		tracer.CaptureEnd(ret, result.GasUsed, err)
	}
	if logger := evm.Config.Logger; logger != nil {
		logger.Debug("execution end", "status", result.Status, "gasUsed", result.GasUsed, "err", err)
	}
	return result
}

// warmTransactionScope pre-warms the EIP-2929 access list with the
// addresses every transaction touches implicitly.
func (evm *EVM) warmTransactionScope(caller, target types.Address) {
	if !evm.forkRules.IsBerlin {
		return
	}
	evm.StateDB.AddAddressToAccessList(caller)
	evm.StateDB.AddAddressToAccessList(target)
	for addr := range evm.precompiles {
		evm.StateDB.AddAddressToAccessList(addr)
	}
	// EIP-3651 (Shanghai): the coinbase is warm too.
	if evm.forkRules.IsShanghai {
		evm.StateDB.AddAddressToAccessList(evm.Context.Coinbase)
	}
}

// traceEnter and traceExit report sub-frame boundaries. The top-level frame
// is reported by Execute through CaptureStart/CaptureEnd instead.
func (evm *EVM) traceEnter(op OpCode, from, to types.Address, input []byte, gas uint64, value *uint256.Int) {
	if tracer := evm.Config.Tracer; tracer != nil && evm.depth > 0 {
		tracer.CaptureEnter(op, from, to, input, gas, value)
	}
	if logger := evm.Config.Logger; logger != nil {
		logger.Debug("frame enter", "op", op.String(), "from", from, "to", to, "gas", gas, "depth", evm.depth)
	}
}

func (evm *EVM) traceExit(output []byte, gasUsed uint64, err error) {
	if tracer := evm.Config.Tracer; tracer != nil && evm.depth > 0 {
		tracer.CaptureExit(output, gasUsed, err)
	}
	if logger := evm.Config.Logger; logger != nil {
		logger.Debug("frame exit", "gasUsed", gasUsed, "err", err, "depth", evm.depth)
	}
}

// --- contract address derivation ---

// createAddress derives the CREATE address: the last 20 bytes of
// keccak256(rlp([sender, nonce])).
func createAddress(sender types.Address, nonce uint64) types.Address {
	payload := append(rlpBytes(sender[:]), rlpUint(nonce)...)
	hash := crypto.Keccak256(rlpList(payload))
	var addr types.Address
	copy(addr[:], hash[12:])
	return addr
}

// create2Address derives the CREATE2 address: the last 20 bytes of
// keccak256(0xff ++ sender ++ salt ++ keccak256(initCode)).
func create2Address(sender types.Address, salt *uint256.Int, initCodeHash []byte) types.Address {
	saltBytes := salt.Bytes32()
	hash := crypto.Keccak256([]byte{0xff}, sender[:], saltBytes[:], initCodeHash)
	var addr types.Address
	copy(addr[:], hash[12:])
	return addr
}

// Minimal RLP encoding, enough for the [sender, nonce] creation payload.

func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	// Strings under 56 bytes carry a single-byte header.
	return append([]byte{0x80 + byte(len(b))}, b...)
}

func rlpUint(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	var buf []byte
	for v > 0 {
		buf = append([]byte{byte(v)}, buf...)
		v >>= 8
	}
	return rlpBytes(buf)
}

func rlpList(payload []byte) []byte {
	if len(payload) < 56 {
		return append([]byte{0xc0 + byte(len(payload))}, payload...)
	}
	lenBytes := lengthBytes(uint64(len(payload)))
	out := append([]byte{0xf7 + byte(len(lenBytes))}, lenBytes...)
	return append(out, payload...)
}

func lengthBytes(v uint64) []byte {
	var buf []byte
	for v > 0 {
		buf = append([]byte{byte(v)}, buf...)
		v >>= 8
	}
	return buf
}
