package prover

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/log"
)

// Groth16 is the default pipeline: Groth16 over BN254 with a per relation
// setup.
type Groth16 struct{}

func (*Groth16) Backend() Backend { return BackendGroth16 }

// Setup compiles the placeholder and runs the Groth16 setup.
func (g *Groth16) Setup(id circuits.RelationID, placeholder frontend.Circuit) (*Relation, error) {
	ccs, err := frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, placeholder)
	if err != nil {
		return nil, fmt.Errorf("cannot compile %s: %w", id, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("cannot setup %s: %w", id, err)
	}
	log.Debugw("groth16 relation ready", "relation", id.String(), "constraints", ccs.GetNbConstraints())
	return newRelation(id, BackendGroth16, ccs, pk, vk, vk.NbPublicWitness())
}

// Load decodes serialized artifacts.
func (g *Groth16) Load(id circuits.RelationID, ccsData, pkData, vkData []byte) (*Relation, error) {
	ccs := groth16.NewCS(Curve)
	if _, err := ccs.ReadFrom(bytes.NewReader(ccsData)); err != nil {
		return nil, fmt.Errorf("failed to read %s definition: %w", id, err)
	}
	pk := groth16.NewProvingKey(Curve)
	if _, err := pk.ReadFrom(bytes.NewReader(pkData)); err != nil {
		return nil, fmt.Errorf("failed to read %s proving key: %w", id, err)
	}
	vk := groth16.NewVerifyingKey(Curve)
	if _, err := vk.ReadFrom(bytes.NewReader(vkData)); err != nil {
		return nil, fmt.Errorf("failed to read %s verifying key: %w", id, err)
	}
	return newRelation(id, BackendGroth16, ccs, pk, vk, vk.NbPublicWitness(), ccsData, pkData, vkData)
}

// Prove generates a proof for the assignment. It fails with ErrUnsatisfied
// when the assignment does not satisfy the relation.
func (g *Groth16) Prove(rel *Relation, assignment frontend.Circuit) (*Proof, error) {
	if rel.Backend != BackendGroth16 {
		return nil, fmt.Errorf("%w: %s relation on groth16 pipeline", ErrRelationMismatch, rel.Backend)
	}
	w, err := fullWitness(assignment)
	if err != nil {
		return nil, err
	}
	proof, err := solve(func() (groth16.Proof, error) {
		return groth16.Prove(rel.ccs, rel.pk.(groth16.ProvingKey), w)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsatisfied, err)
	}
	data, err := serialize(proof)
	if err != nil {
		return nil, fmt.Errorf("cannot encode proof: %w", err)
	}
	return &Proof{
		Backend:  BackendGroth16,
		Relation: rel.ID,
		Version:  rel.Version,
		Data:     data,
	}, nil
}

// Verify checks a proof against the public input vector of the relation.
func (g *Groth16) Verify(rel *Relation, publicInputs []*big.Int, proof *Proof) error {
	if err := checkProof(rel, publicInputs, proof); err != nil {
		return err
	}
	w, err := PublicWitness(publicInputs)
	if err != nil {
		return err
	}
	p := groth16.NewProof(Curve)
	if _, err := p.ReadFrom(bytes.NewReader(proof.Data)); err != nil {
		return fmt.Errorf("%w: cannot decode: %v", ErrInvalidProof, err)
	}
	if err := groth16.Verify(p, rel.vk.(groth16.VerifyingKey), w); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	return nil
}
