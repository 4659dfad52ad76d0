package vm

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/blake2b"
	"github.com/ethereum/go-ethereum/crypto/bn256"
	"golang.org/x/crypto/ripemd160"

	"github.com/evmcore/evmcore/core/types"
	"github.com/evmcore/evmcore/crypto"
)

// PrecompiledContract is a native contract reachable at a fixed address.
// RequiredGas is charged in full before Run; if Run fails the remaining
// forwarded gas is forfeited by the caller.
type PrecompiledContract interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// RunPrecompiledContract charges the precompile's gas and executes it.
func RunPrecompiledContract(p PrecompiledContract, input []byte, suppliedGas uint64) ([]byte, uint64, error) {
	gasCost := p.RequiredGas(input)
	if suppliedGas < gasCost {
		return nil, 0, ErrOutOfGas
	}
	suppliedGas -= gasCost
	output, err := p.Run(input)
	if err != nil {
		return nil, 0, err
	}
	return output, suppliedGas, nil
}

func precompileAddress(b byte) types.Address {
	var addr types.Address
	addr[19] = b
	return addr
}

// PrecompiledContractsHomestead holds the original four contracts, active
// since Frontier.
var PrecompiledContractsHomestead = map[types.Address]PrecompiledContract{
	precompileAddress(0x01): &ecrecover{},
	precompileAddress(0x02): &sha256hash{},
	precompileAddress(0x03): &ripemd160hash{},
	precompileAddress(0x04): &dataCopy{},
}

var PrecompiledContractsByzantium = map[types.Address]PrecompiledContract{
	precompileAddress(0x01): &ecrecover{},
	precompileAddress(0x02): &sha256hash{},
	precompileAddress(0x03): &ripemd160hash{},
	precompileAddress(0x04): &dataCopy{},
	precompileAddress(0x05): &bigModExp{},
	precompileAddress(0x06): &bn256Add{gasCost: 500},
	precompileAddress(0x07): &bn256ScalarMul{gasCost: 40000},
	precompileAddress(0x08): &bn256Pairing{baseGas: 100000, perPointGas: 80000},
}

// Istanbul reprices the bn256 contracts (EIP-1108) and adds BLAKE2 F.
var PrecompiledContractsIstanbul = map[types.Address]PrecompiledContract{
	precompileAddress(0x01): &ecrecover{},
	precompileAddress(0x02): &sha256hash{},
	precompileAddress(0x03): &ripemd160hash{},
	precompileAddress(0x04): &dataCopy{},
	precompileAddress(0x05): &bigModExp{},
	precompileAddress(0x06): &bn256Add{gasCost: 150},
	precompileAddress(0x07): &bn256ScalarMul{gasCost: 6000},
	precompileAddress(0x08): &bn256Pairing{baseGas: 45000, perPointGas: 34000},
	precompileAddress(0x09): &blake2F{},
}

// Berlin switches MODEXP to the EIP-2565 gas formula.
var PrecompiledContractsBerlin = map[types.Address]PrecompiledContract{
	precompileAddress(0x01): &ecrecover{},
	precompileAddress(0x02): &sha256hash{},
	precompileAddress(0x03): &ripemd160hash{},
	precompileAddress(0x04): &dataCopy{},
	precompileAddress(0x05): &bigModExp{eip2565: true},
	precompileAddress(0x06): &bn256Add{gasCost: 150},
	precompileAddress(0x07): &bn256ScalarMul{gasCost: 6000},
	precompileAddress(0x08): &bn256Pairing{baseGas: 45000, perPointGas: 34000},
	precompileAddress(0x09): &blake2F{},
}

// Cancun adds the KZG point evaluation contract (EIP-4844).
var PrecompiledContractsCancun = map[types.Address]PrecompiledContract{
	precompileAddress(0x01): &ecrecover{},
	precompileAddress(0x02): &sha256hash{},
	precompileAddress(0x03): &ripemd160hash{},
	precompileAddress(0x04): &dataCopy{},
	precompileAddress(0x05): &bigModExp{eip2565: true},
	precompileAddress(0x06): &bn256Add{gasCost: 150},
	precompileAddress(0x07): &bn256ScalarMul{gasCost: 6000},
	precompileAddress(0x08): &bn256Pairing{baseGas: 45000, perPointGas: 34000},
	precompileAddress(0x09): &blake2F{},
	precompileAddress(0x0a): &kzgPointEvaluation{},
}

// PrecompiledContractsPrague starts as the Cancun set. Builds with BLS
// support register the EIP-2537 contracts into it, see precompiles_bls.go.
var PrecompiledContractsPrague = map[types.Address]PrecompiledContract{
	precompileAddress(0x01): &ecrecover{},
	precompileAddress(0x02): &sha256hash{},
	precompileAddress(0x03): &ripemd160hash{},
	precompileAddress(0x04): &dataCopy{},
	precompileAddress(0x05): &bigModExp{eip2565: true},
	precompileAddress(0x06): &bn256Add{gasCost: 150},
	precompileAddress(0x07): &bn256ScalarMul{gasCost: 6000},
	precompileAddress(0x08): &bn256Pairing{baseGas: 45000, perPointGas: 34000},
	precompileAddress(0x09): &blake2F{},
	precompileAddress(0x0a): &kzgPointEvaluation{},
}

// SelectPrecompiles returns the precompile set active under the given fork.
func SelectPrecompiles(rules ForkRules) map[types.Address]PrecompiledContract {
	switch {
	case rules.IsPrague:
		return PrecompiledContractsPrague
	case rules.IsCancun:
		return PrecompiledContractsCancun
	case rules.IsBerlin:
		return PrecompiledContractsBerlin
	case rules.IsIstanbul:
		return PrecompiledContractsIstanbul
	case rules.IsByzantium:
		return PrecompiledContractsByzantium
	default:
		return PrecompiledContractsHomestead
	}
}

// --- 0x01: ECRECOVER ---

type ecrecover struct{}

func (c *ecrecover) RequiredGas(input []byte) uint64 { return EcrecoverGas }

func (c *ecrecover) Run(input []byte) ([]byte, error) {
	const inputLen = 128
	input = getData(input, 0, inputLen)

	// v occupies a full word but only 27 and 28 are valid.
	v := input[63] - 27
	if !allZero(input[32:63]) || v > 1 {
		return nil, nil
	}
	r := new(big.Int).SetBytes(input[64:96])
	s := new(big.Int).SetBytes(input[96:128])
	if !gethcrypto.ValidateSignatureValues(v, r, s, false) {
		return nil, nil
	}

	sig := make([]byte, 65)
	copy(sig[32-len(r.Bytes()):32], r.Bytes())
	copy(sig[64-len(s.Bytes()):64], s.Bytes())
	sig[64] = v

	pubKey, err := gethcrypto.Ecrecover(input[:32], sig)
	if err != nil {
		// Unrecoverable signatures yield empty output, not an error.
		return nil, nil
	}
	addr := crypto.Keccak256(pubKey[1:])[12:]
	return getData(append(make([]byte, 12), addr...), 0, 32), nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// --- 0x02: SHA-256 ---

type sha256hash struct{}

func (c *sha256hash) RequiredGas(input []byte) uint64 {
	return Sha256BaseGas + toWordSize(uint64(len(input)))*Sha256PerWordGas
}

func (c *sha256hash) Run(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// --- 0x03: RIPEMD-160 ---

type ripemd160hash struct{}

func (c *ripemd160hash) RequiredGas(input []byte) uint64 {
	return Ripemd160BaseGas + toWordSize(uint64(len(input)))*Ripemd160PerWordGas
}

func (c *ripemd160hash) Run(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	// 20-byte digest, left-padded to a word.
	return getData(append(make([]byte, 12), h.Sum(nil)...), 0, 32), nil
}

// --- 0x04: identity ---

type dataCopy struct{}

func (c *dataCopy) RequiredGas(input []byte) uint64 {
	return IdentityBaseGas + toWordSize(uint64(len(input)))*IdentityPerWordGas
}

func (c *dataCopy) Run(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// --- 0x05: MODEXP ---

type bigModExp struct {
	eip2565 bool
}

var (
	big1  = big.NewInt(1)
	big3  = big.NewInt(3)
	big4  = big.NewInt(4)
	big7  = big.NewInt(7)
	big8  = big.NewInt(8)
	big16 = big.NewInt(16)
	big20 = big.NewInt(20)
	big32 = big.NewInt(32)
	big64 = big.NewInt(64)
	big96 = big.NewInt(96)

	big480    = big.NewInt(480)
	big1024   = big.NewInt(1024)
	big3072   = big.NewInt(3072)
	big199680 = big.NewInt(199680)
)

func (c *bigModExp) RequiredGas(input []byte) uint64 {
	var (
		baseLen = new(big.Int).SetBytes(getData(input, 0, 32))
		expLen  = new(big.Int).SetBytes(getData(input, 32, 32))
		modLen  = new(big.Int).SetBytes(getData(input, 64, 32))
	)
	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}
	// The leading word of the exponent decides the adjusted length.
	var expHead *big.Int
	if big.NewInt(int64(len(input))).Cmp(baseLen) <= 0 {
		expHead = new(big.Int)
	} else {
		offset := baseLen.Uint64()
		if expLen.Cmp(big32) > 0 {
			expHead = new(big.Int).SetBytes(getData(input, offset, 32))
		} else {
			expHead = new(big.Int).SetBytes(getData(input, offset, expLen.Uint64()))
		}
	}
	adjExpLen := new(big.Int)
	if expLen.Cmp(big32) > 0 {
		adjExpLen.Sub(expLen, big32)
		adjExpLen.Mul(big8, adjExpLen)
	}
	if bitlen := expHead.BitLen(); bitlen > 0 {
		adjExpLen.Add(adjExpLen, big.NewInt(int64(bitlen-1)))
	}

	gas := new(big.Int)
	if modLen.Cmp(baseLen) > 0 {
		gas.Set(modLen)
	} else {
		gas.Set(baseLen)
	}
	if c.eip2565 {
		// words^2 with an 8-byte word, then scaled down by 3 and floored
		// at 200 (EIP-2565).
		gas.Add(gas, big7)
		gas.Rsh(gas, 3)
		gas.Mul(gas, gas)
		if adjExpLen.Cmp(big1) > 0 {
			gas.Mul(gas, adjExpLen)
		}
		gas.Div(gas, big3)
		if gas.BitLen() > 64 {
			return math.MaxUint64
		}
		if gas.Uint64() < 200 {
			return 200
		}
		return gas.Uint64()
	}
	// EIP-198 piecewise multiplication complexity.
	switch {
	case gas.Cmp(big64) <= 0:
		gas.Mul(gas, gas)
	case gas.Cmp(big1024) <= 0:
		gas = new(big.Int).Add(
			new(big.Int).Div(new(big.Int).Mul(gas, gas), big4),
			new(big.Int).Sub(new(big.Int).Mul(big96, gas), big3072),
		)
	default:
		gas = new(big.Int).Add(
			new(big.Int).Div(new(big.Int).Mul(gas, gas), big16),
			new(big.Int).Sub(new(big.Int).Mul(big480, gas), big199680),
		)
	}
	if adjExpLen.Cmp(big1) > 0 {
		gas.Mul(gas, adjExpLen)
	}
	gas.Div(gas, big20)
	if gas.BitLen() > 64 {
		return math.MaxUint64
	}
	return gas.Uint64()
}

func (c *bigModExp) Run(input []byte) ([]byte, error) {
	var (
		baseLen = new(big.Int).SetBytes(getData(input, 0, 32)).Uint64()
		expLen  = new(big.Int).SetBytes(getData(input, 32, 32)).Uint64()
		modLen  = new(big.Int).SetBytes(getData(input, 64, 32)).Uint64()
	)
	if len(input) > 96 {
		input = input[96:]
	} else {
		input = input[:0]
	}
	if baseLen == 0 && modLen == 0 {
		return []byte{}, nil
	}
	var (
		base = new(big.Int).SetBytes(getData(input, 0, baseLen))
		exp  = new(big.Int).SetBytes(getData(input, baseLen, expLen))
		mod  = new(big.Int).SetBytes(getData(input, baseLen+expLen, modLen))
	)
	if mod.BitLen() == 0 {
		// x mod 0 is defined as 0.
		return make([]byte, modLen), nil
	}
	result := new(big.Int).Exp(base, exp, mod).Bytes()
	out := make([]byte, modLen)
	copy(out[modLen-uint64(len(result)):], result)
	return out, nil
}

// --- 0x06..0x08: alt_bn128 ---

type bn256Add struct {
	gasCost uint64
}

func (c *bn256Add) RequiredGas(input []byte) uint64 { return c.gasCost }

func (c *bn256Add) Run(input []byte) ([]byte, error) {
	x, err := unmarshalBn256G1(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	y, err := unmarshalBn256G1(getData(input, 64, 64))
	if err != nil {
		return nil, err
	}
	res := new(bn256.G1).Add(x, y)
	return res.Marshal(), nil
}

type bn256ScalarMul struct {
	gasCost uint64
}

func (c *bn256ScalarMul) RequiredGas(input []byte) uint64 { return c.gasCost }

func (c *bn256ScalarMul) Run(input []byte) ([]byte, error) {
	p, err := unmarshalBn256G1(getData(input, 0, 64))
	if err != nil {
		return nil, err
	}
	res := new(bn256.G1).ScalarMult(p, new(big.Int).SetBytes(getData(input, 64, 32)))
	return res.Marshal(), nil
}

var errBadPairingInput = errors.New("bad elliptic curve pairing size")

type bn256Pairing struct {
	baseGas     uint64
	perPointGas uint64
}

func (c *bn256Pairing) RequiredGas(input []byte) uint64 {
	return c.baseGas + uint64(len(input)/192)*c.perPointGas
}

func (c *bn256Pairing) Run(input []byte) ([]byte, error) {
	if len(input)%192 > 0 {
		return nil, errBadPairingInput
	}
	var (
		cs []*bn256.G1
		ts []*bn256.G2
	)
	for i := 0; i < len(input); i += 192 {
		c, err := unmarshalBn256G1(input[i : i+64])
		if err != nil {
			return nil, err
		}
		t, err := unmarshalBn256G2(input[i+64 : i+192])
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
		ts = append(ts, t)
	}
	out := make([]byte, 32)
	if bn256.PairingCheck(cs, ts) {
		out[31] = 1
	}
	return out, nil
}

func unmarshalBn256G1(blob []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}
	return p, nil
}

func unmarshalBn256G2(blob []byte) (*bn256.G2, error) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}
	return p, nil
}

// --- 0x09: BLAKE2 F compression ---

var (
	errBlake2FInputLength = errors.New("invalid input length")
	errBlake2FFinalFlag   = errors.New("invalid final flag")
)

type blake2F struct{}

func (c *blake2F) RequiredGas(input []byte) uint64 {
	if len(input) != blake2FInputLength {
		return 0
	}
	return uint64(binary.BigEndian.Uint32(input[0:4]))
}

const blake2FInputLength = 213

func (c *blake2F) Run(input []byte) ([]byte, error) {
	if len(input) != blake2FInputLength {
		return nil, errBlake2FInputLength
	}
	if input[212] != 0 && input[212] != 1 {
		return nil, errBlake2FFinalFlag
	}
	var (
		rounds = binary.BigEndian.Uint32(input[0:4])
		final  = input[212] == 1
		h      [8]uint64
		m      [16]uint64
		t      [2]uint64
	)
	for i := 0; i < 8; i++ {
		h[i] = binary.LittleEndian.Uint64(input[4+i*8:])
	}
	for i := 0; i < 16; i++ {
		m[i] = binary.LittleEndian.Uint64(input[68+i*8:])
	}
	t[0] = binary.LittleEndian.Uint64(input[196:204])
	t[1] = binary.LittleEndian.Uint64(input[204:212])

	blake2b.F(&h, m, t, final, rounds)

	output := make([]byte, 64)
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint64(output[i*8:], h[i])
	}
	return output, nil
}

// --- 0x0a: KZG point evaluation (EIP-4844) ---

const (
	blobVerifyInputLength    = 192
	blobCommitmentVersionKZG = 0x01
)

var (
	errBlobVerifyInvalidInputLength = errors.New("invalid input length")
	errBlobVerifyMismatchedVersion  = errors.New("mismatched versioned hash")
	errBlobVerifyKZGProof           = errors.New("error verifying kzg proof")

	kzgContextOnce sync.Once
	kzgContext     *goethkzg.Context
	kzgContextErr  error
)

type kzgPointEvaluation struct{}

func (c *kzgPointEvaluation) RequiredGas(input []byte) uint64 { return PointEvaluationGas }

func (c *kzgPointEvaluation) Run(input []byte) ([]byte, error) {
	if len(input) != blobVerifyInputLength {
		return nil, errBlobVerifyInvalidInputLength
	}
	var (
		versionedHash = input[:32]
		point         = input[32:96]
		commitment    = input[96:144]
		proof         = input[144:192]
	)
	if kzgToVersionedHash(commitment) != types.BytesToHash(versionedHash) {
		return nil, errBlobVerifyMismatchedVersion
	}
	kzgContextOnce.Do(func() {
		kzgContext, kzgContextErr = goethkzg.NewContext4096Secure()
	})
	if kzgContextErr != nil {
		return nil, kzgContextErr
	}
	var (
		comm goethkzg.KZGCommitment
		prf  goethkzg.KZGProof
		z, y goethkzg.Scalar
	)
	copy(comm[:], commitment)
	copy(prf[:], proof)
	copy(z[:], point[:32])
	copy(y[:], point[32:])
	if err := kzgContext.VerifyKZGProof(comm, z, y, prf); err != nil {
		return nil, errBlobVerifyKZGProof
	}
	return kzgPointEvaluationReturn(), nil
}

func kzgToVersionedHash(commitment []byte) types.Hash {
	h := sha256.Sum256(commitment)
	h[0] = blobCommitmentVersionKZG
	return types.Hash(h)
}

// kzgPointEvaluationReturn is FIELD_ELEMENTS_PER_BLOB and BLS_MODULUS as
// defined by EIP-4844, each as a 32-byte big-endian word.
func kzgPointEvaluationReturn() []byte {
	out := make([]byte, 64)
	binary.BigEndian.PutUint64(out[24:32], 4096)
	mod, _ := new(big.Int).SetString("52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)
	mod.FillBytes(out[32:])
	return out
}
