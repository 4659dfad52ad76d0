package vm

import "errors"

// Execution errors. Each one terminates the frame that raised it; the parent
// frame observes only the folded success/failure result.
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrStackUnderflow           = errors.New("stack underflow")
	ErrStackOverflow            = errors.New("stack overflow")
	ErrInvalidOpCode            = errors.New("invalid opcode")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrMemoryLimitExceeded      = errors.New("memory limit exceeded")
	ErrWriteProtection          = errors.New("write protection")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrMaxInitCodeSizeExceeded  = errors.New("max initcode size exceeded")
	ErrInvalidCode              = errors.New("invalid code: must not begin with 0xef")
	ErrNonceUintOverflow        = errors.New("nonce uint64 overflow")
)
