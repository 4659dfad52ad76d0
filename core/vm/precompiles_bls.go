//go:build blst

package vm

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

// Optional EIP-2537 BLS12-381 precompiles, compiled in with the blst build
// tag. Only the addition and pairing contracts are provided; the
// multi-scalar-multiplication and field-mapping contracts are not part of
// this build.

func init() {
	PrecompiledContractsPrague[precompileAddress(0x0b)] = &bls12G1Add{}
	PrecompiledContractsPrague[precompileAddress(0x0d)] = &bls12G2Add{}
	PrecompiledContractsPrague[precompileAddress(0x0f)] = &bls12Pairing{}
}

var (
	errBLSInvalidInputLength  = errors.New("invalid input length")
	errBLSInvalidFieldElement = errors.New("invalid field element")
	errBLSPointNotOnCurve     = errors.New("point not on curve")
	errBLSPointNotInSubgroup  = errors.New("point not in correct subgroup")
)

// decodeBLSFieldElement checks the 16-byte zero padding of a 64-byte
// encoded field element and returns the 48-byte value.
func decodeBLSFieldElement(in []byte) ([]byte, error) {
	if len(in) != 64 {
		return nil, errBLSInvalidFieldElement
	}
	if !allZero(in[:16]) {
		return nil, errBLSInvalidFieldElement
	}
	return in[16:], nil
}

// decodeBLSG1 decodes a 128-byte G1 point. A nil return with nil error is
// the point at infinity.
func decodeBLSG1(in []byte) (*blst.P1Affine, error) {
	if len(in) != 128 {
		return nil, errBLSInvalidInputLength
	}
	if allZero(in) {
		return nil, nil
	}
	x, err := decodeBLSFieldElement(in[:64])
	if err != nil {
		return nil, err
	}
	y, err := decodeBLSFieldElement(in[64:])
	if err != nil {
		return nil, err
	}
	p := new(blst.P1Affine).Deserialize(append(append([]byte{}, x...), y...))
	if p == nil {
		return nil, errBLSPointNotOnCurve
	}
	return p, nil
}

// decodeBLSG2 decodes a 256-byte G2 point, nil meaning infinity. The wire
// order is (x_c0, x_c1, y_c0, y_c1) while blst serializes (x_c1, x_c0,
// y_c1, y_c0).
func decodeBLSG2(in []byte) (*blst.P2Affine, error) {
	if len(in) != 256 {
		return nil, errBLSInvalidInputLength
	}
	if allZero(in) {
		return nil, nil
	}
	var buf []byte
	for _, span := range [][2]int{{64, 128}, {0, 64}, {192, 256}, {128, 192}} {
		fe, err := decodeBLSFieldElement(in[span[0]:span[1]])
		if err != nil {
			return nil, err
		}
		buf = append(buf, fe...)
	}
	p := new(blst.P2Affine).Deserialize(buf)
	if p == nil {
		return nil, errBLSPointNotOnCurve
	}
	return p, nil
}

func encodeBLSG1(p *blst.P1Affine) []byte {
	out := make([]byte, 128)
	if p == nil {
		return out
	}
	ser := p.Serialize()
	copy(out[16:64], ser[:48])
	copy(out[80:128], ser[48:])
	return out
}

func encodeBLSG2(p *blst.P2Affine) []byte {
	out := make([]byte, 256)
	if p == nil {
		return out
	}
	ser := p.Serialize()
	copy(out[80:128], ser[:48])     // x_c1
	copy(out[16:64], ser[48:96])    // x_c0
	copy(out[208:256], ser[96:144]) // y_c1
	copy(out[144:192], ser[144:])   // y_c0
	return out
}

// --- 0x0b: G1ADD ---

type bls12G1Add struct{}

func (c *bls12G1Add) RequiredGas(input []byte) uint64 { return Bls12381G1AddGas }

func (c *bls12G1Add) Run(input []byte) ([]byte, error) {
	if len(input) != 256 {
		return nil, errBLSInvalidInputLength
	}
	a, err := decodeBLSG1(input[:128])
	if err != nil {
		return nil, err
	}
	b, err := decodeBLSG1(input[128:])
	if err != nil {
		return nil, err
	}
	switch {
	case a == nil:
		return encodeBLSG1(b), nil
	case b == nil:
		return encodeBLSG1(a), nil
	}
	sum := blst.P1AffinesAdd([]*blst.P1Affine{a, b})
	return encodeBLSG1(sum.ToAffine()), nil
}

// --- 0x0d: G2ADD ---

type bls12G2Add struct{}

func (c *bls12G2Add) RequiredGas(input []byte) uint64 { return Bls12381G2AddGas }

func (c *bls12G2Add) Run(input []byte) ([]byte, error) {
	if len(input) != 512 {
		return nil, errBLSInvalidInputLength
	}
	a, err := decodeBLSG2(input[:256])
	if err != nil {
		return nil, err
	}
	b, err := decodeBLSG2(input[256:])
	if err != nil {
		return nil, err
	}
	switch {
	case a == nil:
		return encodeBLSG2(b), nil
	case b == nil:
		return encodeBLSG2(a), nil
	}
	sum := blst.P2AffinesAdd([]*blst.P2Affine{a, b})
	return encodeBLSG2(sum.ToAffine()), nil
}

// --- 0x0f: PAIRING ---

type bls12Pairing struct{}

func (c *bls12Pairing) RequiredGas(input []byte) uint64 {
	return Bls12381PairingBaseGas + uint64(len(input)/384)*Bls12381PairingPerPairGas
}

func (c *bls12Pairing) Run(input []byte) ([]byte, error) {
	if len(input) == 0 || len(input)%384 != 0 {
		return nil, errBLSInvalidInputLength
	}
	acc := blst.Fp12One()
	for i := 0; i < len(input); i += 384 {
		g1, err := decodeBLSG1(input[i : i+128])
		if err != nil {
			return nil, err
		}
		g2, err := decodeBLSG2(input[i+128 : i+384])
		if err != nil {
			return nil, err
		}
		// Pairing inputs must pass the subgroup check, infinity aside.
		if g1 != nil && !g1.InG1() {
			return nil, errBLSPointNotInSubgroup
		}
		if g2 != nil && !g2.InG2() {
			return nil, errBLSPointNotInSubgroup
		}
		if g1 == nil || g2 == nil {
			continue
		}
		ml := blst.Fp12MillerLoop(g2, g1)
		acc.MulAssign(ml)
	}
	acc.FinalExp()
	out := make([]byte, 32)
	if acc.IsOne() {
		out[31] = 1
	}
	return out, nil
}
