// Package crypto provides the hashing primitives used by the execution engine.
package crypto

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/evmcore/evmcore/core/types"
)

// hasherPool recycles Keccak-256 states; hashing sits on the interpreter's
// hot path (KECCAK256 opcode, CREATE2 address derivation).
var hasherPool = sync.Pool{
	New: func() any { return sha3.NewLegacyKeccak256() },
}

// Keccak256 calculates the Keccak-256 hash of the given data.
func Keccak256(data ...[]byte) []byte {
	d := hasherPool.Get().(hash.Hash)
	d.Reset()
	for _, b := range data {
		d.Write(b)
	}
	sum := d.Sum(nil)
	hasherPool.Put(d)
	return sum
}

// Keccak256Hash calculates Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
