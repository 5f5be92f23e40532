package prover

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/log"
)

// SRSProvider returns the KZG SRS, canonical and Lagrange forms, sized for
// a constraint system.
type SRSProvider func(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error)

// Plonk is the PLONK over BN254 pipeline. The SRS comes from the caller.
type Plonk struct {
	SRS SRSProvider
}

func (*Plonk) Backend() Backend { return BackendPlonk }

// Setup compiles the placeholder and derives the keys from the SRS.
func (p *Plonk) Setup(id circuits.RelationID, placeholder frontend.Circuit) (*Relation, error) {
	ccs, err := frontend.Compile(Curve.ScalarField(), scs.NewBuilder, placeholder)
	if err != nil {
		return nil, fmt.Errorf("cannot compile %s: %w", id, err)
	}
	srs, srsLagrange, err := p.SRS(ccs)
	if err != nil {
		return nil, fmt.Errorf("cannot get SRS for %s: %w", id, err)
	}
	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, fmt.Errorf("cannot setup %s: %w", id, err)
	}
	log.Debugw("plonk relation ready", "relation", id.String(), "constraints", ccs.GetNbConstraints())
	return newRelation(id, BackendPlonk, ccs, pk, vk, vk.NbPublicWitness())
}

// Load decodes serialized artifacts.
func (p *Plonk) Load(id circuits.RelationID, ccsData, pkData, vkData []byte) (*Relation, error) {
	ccs := plonk.NewCS(Curve)
	if _, err := ccs.ReadFrom(bytes.NewReader(ccsData)); err != nil {
		return nil, fmt.Errorf("failed to read %s definition: %w", id, err)
	}
	pk := plonk.NewProvingKey(Curve)
	if _, err := pk.ReadFrom(bytes.NewReader(pkData)); err != nil {
		return nil, fmt.Errorf("failed to read %s proving key: %w", id, err)
	}
	vk := plonk.NewVerifyingKey(Curve)
	if _, err := vk.ReadFrom(bytes.NewReader(vkData)); err != nil {
		return nil, fmt.Errorf("failed to read %s verifying key: %w", id, err)
	}
	return newRelation(id, BackendPlonk, ccs, pk, vk, vk.NbPublicWitness(), ccsData, pkData, vkData)
}

// Prove generates a proof for the assignment. It fails with ErrUnsatisfied
// when the assignment does not satisfy the relation.
func (p *Plonk) Prove(rel *Relation, assignment frontend.Circuit) (*Proof, error) {
	if rel.Backend != BackendPlonk {
		return nil, fmt.Errorf("%w: %s relation on plonk pipeline", ErrRelationMismatch, rel.Backend)
	}
	w, err := fullWitness(assignment)
	if err != nil {
		return nil, err
	}
	proof, err := solve(func() (plonk.Proof, error) {
		return plonk.Prove(rel.ccs, rel.pk.(plonk.ProvingKey), w)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsatisfied, err)
	}
	data, err := serialize(proof)
	if err != nil {
		return nil, fmt.Errorf("cannot encode proof: %w", err)
	}
	return &Proof{
		Backend:  BackendPlonk,
		Relation: rel.ID,
		Version:  rel.Version,
		Data:     data,
	}, nil
}

// Verify checks a proof against the public input vector of the relation.
func (p *Plonk) Verify(rel *Relation, publicInputs []*big.Int, proof *Proof) error {
	if err := checkProof(rel, publicInputs, proof); err != nil {
		return err
	}
	w, err := PublicWitness(publicInputs)
	if err != nil {
		return err
	}
	pr := plonk.NewProof(Curve)
	if _, err := pr.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
		return fmt.Errorf("%w: cannot decode: %v", ErrInvalidProof, err)
	}
	if err := plonk.Verify(pr, rel.vk.(plonk.VerifyingKey), w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}
