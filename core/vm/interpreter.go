package vm

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/log"
)

// StateDB is the execution engine's view of the account/storage backend.
// Mutations must be revocable in bulk via Snapshot/RevertToSnapshot; the
// engine takes a snapshot at every child-frame entry.
type StateDB interface {
	CreateAccount(addr types.Address)
	SubBalance(addr types.Address, amount *uint256.Int)
	AddBalance(addr types.Address, amount *uint256.Int)
	GetBalance(addr types.Address) *uint256.Int
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	GetCode(addr types.Address) []byte
	SetCode(addr types.Address, code []byte)
	GetCodeHash(addr types.Address) types.Hash
	GetCodeSize(addr types.Address) int

	SelfDestruct(addr types.Address)
	HasSelfDestructed(addr types.Address) bool

	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key types.Hash, value types.Hash)
	GetCommittedState(addr types.Address, key types.Hash) types.Hash

	GetTransientState(addr types.Address, key types.Hash) types.Hash
	SetTransientState(addr types.Address, key types.Hash, value types.Hash)

	Exist(addr types.Address) bool
	Empty(addr types.Address) bool

	Snapshot() int
	RevertToSnapshot(id int)

	AddLog(log *types.Log)
	Logs() []*types.Log

	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	AddAddressToAccessList(addr types.Address)
	AddSlotToAccessList(addr types.Address, slot types.Hash)
	AddressInAccessList(addr types.Address) bool
	SlotInAccessList(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool)
}

// BlockContext supplies block-level environment data. It is fixed for the
// lifetime of one execution.
type BlockContext struct {
	GetHash     func(n uint64) types.Hash
	Coinbase    types.Address
	BlockNumber uint64
	Time        uint64
	GasLimit    uint64
	BaseFee     *uint256.Int
	PrevRandao  types.Hash
	BlobBaseFee *uint256.Int
}

// TxContext supplies transaction-level environment data.
type TxContext struct {
	Origin     types.Address
	GasPrice   *uint256.Int
	BlobHashes []types.Hash
}

// Config holds optional tuning for an EVM instance.
type Config struct {
	// Tracer receives a callback before every instruction and around every
	// frame. Nil disables tracing.
	Tracer EVMLogger
	// Logger emits frame entry/exit events at debug level. Nil disables.
	Logger *log.Logger
	// MaxCallDepth overrides the 1024 frame limit; 0 keeps the default.
	MaxCallDepth int
	// ChainID reported by the CHAINID opcode. Nil defaults to 1.
	ChainID *uint256.Int
}

// ForkRules gates opcode availability and cost schedules. Resolved once per
// execution; the zero value is Frontier.
type ForkRules struct {
	IsHomestead        bool
	IsTangerineWhistle bool
	IsSpuriousDragon   bool
	IsByzantium        bool
	IsConstantinople   bool
	IsIstanbul         bool
	IsBerlin           bool
	IsLondon           bool
	IsMerge            bool
	IsShanghai         bool
	IsCancun           bool
	IsPrague           bool
}

// Rule set constructors, each enabling everything up to the named fork.

func FrontierRules() ForkRules  { return ForkRules{} }
func HomesteadRules() ForkRules { return ForkRules{IsHomestead: true} }

func TangerineWhistleRules() ForkRules {
	r := HomesteadRules()
	r.IsTangerineWhistle = true
	return r
}

func SpuriousDragonRules() ForkRules {
	r := TangerineWhistleRules()
	r.IsSpuriousDragon = true
	return r
}

func ByzantiumRules() ForkRules {
	r := SpuriousDragonRules()
	r.IsByzantium = true
	return r
}

func ConstantinopleRules() ForkRules {
	r := ByzantiumRules()
	r.IsConstantinople = true
	return r
}

func IstanbulRules() ForkRules {
	r := ConstantinopleRules()
	r.IsIstanbul = true
	return r
}

func BerlinRules() ForkRules {
	r := IstanbulRules()
	r.IsBerlin = true
	return r
}

func LondonRules() ForkRules {
	r := BerlinRules()
	r.IsLondon = true
	return r
}

func MergeRules() ForkRules {
	r := LondonRules()
	r.IsMerge = true
	return r
}

func ShanghaiRules() ForkRules {
	r := MergeRules()
	r.IsShanghai = true
	return r
}

func CancunRules() ForkRules {
	r := ShanghaiRules()
	r.IsCancun = true
	return r
}

func PragueRules() ForkRules {
	r := CancunRules()
	r.IsPrague = true
	return r
}

// SelectJumpTable returns the instruction set active under rules.
func SelectJumpTable(rules ForkRules) JumpTable {
	switch {
	case rules.IsPrague:
		return NewPragueJumpTable()
	case rules.IsCancun:
		return NewCancunJumpTable()
	case rules.IsShanghai:
		return NewShanghaiJumpTable()
	case rules.IsMerge:
		return NewMergeJumpTable()
	case rules.IsLondon:
		return NewLondonJumpTable()
	case rules.IsBerlin:
		return NewBerlinJumpTable()
	case rules.IsIstanbul:
		return NewIstanbulJumpTable()
	case rules.IsConstantinople:
		return NewConstantinopleJumpTable()
	case rules.IsByzantium:
		return NewByzantiumJumpTable()
	case rules.IsSpuriousDragon:
		return NewSpuriousDragonJumpTable()
	case rules.IsTangerineWhistle:
		return NewTangerineWhistleJumpTable()
	case rules.IsHomestead:
		return NewHomesteadJumpTable()
	default:
		return NewFrontierJumpTable()
	}
}

// EVM is the execution engine. It owns the frame chain implicitly through
// recursive Call/Create invocations, guarded by the depth counter.
type EVM struct {
	Context   BlockContext
	TxContext TxContext
	StateDB   StateDB
	Config    Config

	chainID     *uint256.Int
	forkRules   ForkRules
	jumpTable   JumpTable
	precompiles map[types.Address]PrecompiledContract

	// depth is the current number of active frames.
	depth int
	// readOnly is set while executing inside a STATICCALL; children
	// inherit it and never unset it.
	readOnly bool
	// returnData holds the output of the most recent completed sub-call
	// for RETURNDATASIZE/RETURNDATACOPY.
	returnData []byte
	// callGasTemp carries the 63/64-capped forwardable gas from the
	// dynamic gas calculation to the call instruction itself.
	callGasTemp uint64
}

// NewEVM builds an engine for one execution under the given rule set.
func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, rules ForkRules, cfg Config) *EVM {
	if blockCtx.BaseFee == nil {
		blockCtx.BaseFee = new(uint256.Int)
	}
	if blockCtx.BlobBaseFee == nil {
		blockCtx.BlobBaseFee = new(uint256.Int)
	}
	if txCtx.GasPrice == nil {
		txCtx.GasPrice = new(uint256.Int)
	}
	chainID := cfg.ChainID
	if chainID == nil {
		chainID = uint256.NewInt(1)
	}
	return &EVM{
		Context:     blockCtx,
		TxContext:   txCtx,
		StateDB:     statedb,
		Config:      cfg,
		chainID:     chainID,
		forkRules:   rules,
		jumpTable:   SelectJumpTable(rules),
		precompiles: SelectPrecompiles(rules),
	}
}

// ForkRules returns the rule set this engine was built with.
func (evm *EVM) ForkRules() ForkRules {
	return evm.forkRules
}

// SetJumpTable overrides the instruction set, for rule experiments.
func (evm *EVM) SetJumpTable(tbl JumpTable) {
	evm.jumpTable = tbl
}

func (evm *EVM) maxCallDepth() int {
	if evm.Config.MaxCallDepth > 0 {
		return evm.Config.MaxCallDepth
	}
	return CallDepthLimit
}

func (evm *EVM) precompile(addr types.Address) (PrecompiledContract, bool) {
	p, ok := evm.precompiles[addr]
	return p, ok
}

// Run drives one frame to a terminal state: it fetches one opcode per
// iteration, validates it, charges gas, executes, and advances the program
// counter until the frame halts, reverts or fails.
//
// Per-step order: a program counter past the end of code is an implicit
// STOP; an undefined opcode fails the frame; then constant gas, the static
// write barrier, stack depth validation, memory sizing, dynamic gas, and
// only then the instruction's effect. A failed charge therefore never
// leaves a partial side effect.
func (evm *EVM) Run(contract *Contract, input []byte, readOnly bool) (ret []byte, err error) {
	if readOnly && !evm.readOnly {
		evm.readOnly = true
		defer func() { evm.readOnly = false }()
	}
	// EIP-211: the sub-call return buffer resets on frame entry.
	evm.returnData = nil

	if len(contract.Code) == 0 {
		return nil, nil
	}
	contract.Input = input

	stack := newstack()
	defer returnStack(stack)
	mem := NewMemory()
	var pc uint64

	for {
		op := contract.GetOp(pc)
		operation := evm.jumpTable[op]
		if operation == nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOpCode, op)
		}
		cost := operation.constantGas
		if !contract.UseGas(cost) {
			return nil, ErrOutOfGas
		}
		if evm.readOnly && operation.writes {
			return nil, ErrWriteProtection
		}
		if sLen := stack.Len(); sLen < operation.minStack {
			return nil, ErrStackUnderflow
		} else if sLen > operation.maxStack {
			return nil, ErrStackOverflow
		}
		var memorySize uint64
		if operation.memorySize != nil {
			memSize, overflow := operation.memorySize(stack)
			if overflow {
				return nil, ErrMemoryLimitExceeded
			}
			// Round up to whole words; the cost formula and MSIZE both
			// work in 32-byte increments.
			if memorySize, overflow = safeMul(toWordSize(memSize), 32); overflow {
				return nil, ErrMemoryLimitExceeded
			}
		}
		if operation.dynamicGas != nil {
			dynamicCost, dynErr := operation.dynamicGas(evm, contract, stack, mem, memorySize)
			if dynErr != nil {
				return nil, dynErr
			}
			cost += dynamicCost
			if !contract.UseGas(dynamicCost) {
				return nil, ErrOutOfGas
			}
		}
		if memorySize > 0 {
			mem.Resize(memorySize)
		}
		if tracer := evm.Config.Tracer; tracer != nil {
			tracer.CaptureState(pc, op, contract.Gas+cost, cost, stack, mem, evm.depth, nil)
		}

		res, execErr := operation.execute(&pc, evm, contract, mem, stack)
		if execErr != nil {
			return res, execErr
		}
		switch {
		case operation.halts:
			return res, nil
		case !operation.jumps:
			pc++
		}
	}
}
