package prover

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/vocdoni/zktally/types"
)

// Ledger is the flat big integer form of a Groth16 proof, the layout an
// external verifier consumes: A and C in G1, B in G2 with its coordinates
// ordered (x.A1, x.A0), (y.A1, y.A0).
type Ledger struct {
	A [2]*types.BigInt    `json:"a"`
	B [2][2]*types.BigInt `json:"b"`
	C [2]*types.BigInt    `json:"c"`
}

// Ledger decodes a Groth16 proof into its big integer form.
func (p *Proof) Ledger() (*Ledger, error) {
	if p.Backend != BackendGroth16 {
		return nil, fmt.Errorf("ledger export needs a groth16 proof, got %s", p.Backend)
	}
	proof := groth16.NewProof(Curve)
	if _, err := proof.ReadFrom(bytes.NewReader(p.Data)); err != nil {
		return nil, fmt.Errorf("%w: cannot decode: %v", ErrInvalidProof, err)
	}
	bn, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("unexpected proof type %T", proof)
	}
	return &Ledger{
		A: g1(&bn.Ar),
		B: [2][2]*types.BigInt{
			{fp(bn.Bs.X.A1.BigInt(new(big.Int))), fp(bn.Bs.X.A0.BigInt(new(big.Int)))},
			{fp(bn.Bs.Y.A1.BigInt(new(big.Int))), fp(bn.Bs.Y.A0.BigInt(new(big.Int)))},
		},
		C: g1(&bn.Krs),
	}, nil
}

func g1(p *bn254.G1Affine) [2]*types.BigInt {
	return [2]*types.BigInt{
		fp(p.X.BigInt(new(big.Int))),
		fp(p.Y.BigInt(new(big.Int))),
	}
}

func fp(v *big.Int) *types.BigInt {
	return types.NewBigInt(v)
}
