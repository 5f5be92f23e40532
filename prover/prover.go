// Package prover turns the relations of the circuits packages into proofs
// and checks them. A Pipeline is one proving backend; a Registry compiles
// every relation once per option count and keeps its artifacts on disk.
package prover

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/types"
)

// Curve is the curve every relation is proved over. Its scalar field is the
// base field of BabyJubJub.
const Curve = ecc.BN254

var (
	// ErrRelationMismatch is returned when a proof was produced for another
	// relation than the one it is checked against.
	ErrRelationMismatch = errors.New("proof relation mismatch")
	// ErrPublicInputs is returned for a public input vector with the wrong
	// length or with values outside the field.
	ErrPublicInputs = errors.New("invalid public inputs")
	// ErrUnsatisfied is returned by Prove when the witness does not satisfy
	// the constraints. No proof is produced.
	ErrUnsatisfied = errors.New("witness does not satisfy the relation")
	// ErrInvalidProof is returned when a proof does not verify.
	ErrInvalidProof = errors.New("invalid proof")
	// ErrUnknownBackend is returned for unsupported backends.
	ErrUnknownBackend = errors.New("unknown proving backend")
)

// Backend names a proving system.
type Backend string

const (
	BackendGroth16 Backend = "groth16"
	BackendPlonk   Backend = "plonk"
)

// Pipeline is a proving system. Setup compiles a relation and derives its
// keys, Load rebuilds it from serialized artifacts.
type Pipeline interface {
	Backend() Backend
	Setup(id circuits.RelationID, placeholder frontend.Circuit) (*Relation, error)
	Load(id circuits.RelationID, ccs, pk, vk []byte) (*Relation, error)
	Prove(rel *Relation, assignment frontend.Circuit) (*Proof, error)
	Verify(rel *Relation, publicInputs []*big.Int, proof *Proof) error
}

// key is what both backends proving and verifying keys have in common.
type key interface {
	io.WriterTo
	io.ReaderFrom
}

// Relation is a compiled relation with its keys, ready to prove and verify.
type Relation struct {
	ID      circuits.RelationID
	Backend Backend
	// Version digests the kind, the option count, the constraint system and
	// the verifying key. Proofs carry it.
	Version  types.HexBytes
	NbPublic int

	ccs constraint.ConstraintSystem
	pk  key
	vk  key

	ccsBytes []byte
	pkBytes  []byte
	vkBytes  []byte
}

// newRelation wraps compiled objects. Serialized artifacts that are already
// known are reused; the missing ones are encoded.
func newRelation(id circuits.RelationID, backend Backend, ccs constraint.ConstraintSystem, pk, vk key, nbPublic int, artifacts ...[]byte) (*Relation, error) {
	rel := &Relation{
		ID:       id,
		Backend:  backend,
		NbPublic: nbPublic,
		ccs:      ccs,
		pk:       pk,
		vk:       vk,
	}
	if len(artifacts) == 3 {
		rel.ccsBytes, rel.pkBytes, rel.vkBytes = artifacts[0], artifacts[1], artifacts[2]
	} else {
		var err error
		if rel.ccsBytes, err = serialize(ccs); err != nil {
			return nil, fmt.Errorf("constraint system: %w", err)
		}
		if rel.pkBytes, err = serialize(pk); err != nil {
			return nil, fmt.Errorf("proving key: %w", err)
		}
		if rel.vkBytes, err = serialize(vk); err != nil {
			return nil, fmt.Errorf("verifying key: %w", err)
		}
	}
	rel.Version = RelationVersion(id, rel.ccsBytes, rel.vkBytes)
	return rel, nil
}

func serialize(w io.WriterTo) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RelationVersion returns sha256(kind | N | constraint system | verifying key).
func RelationVersion(id circuits.RelationID, ccs, vk []byte) types.HexBytes {
	h := sha256.New()
	h.Write([]byte(id.Kind))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(id.NumOptions))
	h.Write(n[:])
	h.Write(ccs)
	h.Write(vk)
	return h.Sum(nil)
}

// NbConstraints returns the size of the compiled relation.
func (r *Relation) NbConstraints() int {
	return r.ccs.GetNbConstraints()
}

// Artifacts returns the serialized constraint system, proving key and
// verifying key.
func (r *Relation) Artifacts() (ccs, pk, vk []byte) {
	return r.ccsBytes, r.pkBytes, r.vkBytes
}

// VerifyingKey returns the serialized verifying key.
func (r *Relation) VerifyingKey() types.HexBytes {
	return r.vkBytes
}

func (r *Relation) String() string {
	return fmt.Sprintf("%s %s (%x)", r.Backend, r.ID, r.Version[:4])
}

// Proof is a backend proof together with the relation it was produced for.
type Proof struct {
	Backend  Backend             `json:"backend" cbor:"0,keyasint"`
	Relation circuits.RelationID `json:"relation" cbor:"1,keyasint"`
	Version  types.HexBytes      `json:"version" cbor:"2,keyasint"`
	Data     types.HexBytes      `json:"data" cbor:"3,keyasint"`
}

// checkProof fails with ErrRelationMismatch unless proof was produced for
// rel, and with ErrPublicInputs unless inputs fit the relation.
func checkProof(rel *Relation, publicInputs []*big.Int, proof *Proof) error {
	if proof == nil || len(proof.Data) == 0 {
		return fmt.Errorf("%w: empty proof", ErrInvalidProof)
	}
	if proof.Backend != rel.Backend {
		return fmt.Errorf("%w: backend %s, expected %s", ErrRelationMismatch, proof.Backend, rel.Backend)
	}
	if proof.Relation != rel.ID {
		return fmt.Errorf("%w: relation %s, expected %s", ErrRelationMismatch, proof.Relation, rel.ID)
	}
	if !bytes.Equal(proof.Version, rel.Version) {
		return fmt.Errorf("%w: version %x, expected %x", ErrRelationMismatch, proof.Version, rel.Version)
	}
	if len(publicInputs) != rel.NbPublic {
		return fmt.Errorf("%w: got %d values, expected %d", ErrPublicInputs, len(publicInputs), rel.NbPublic)
	}
	return nil
}

// PublicWitness builds the public witness of a relation from its public
// input vector. Values must be canonical field elements.
func PublicWitness(publicInputs []*big.Int) (witness.Witness, error) {
	field := Curve.ScalarField()
	values := make(chan any, len(publicInputs))
	for i, v := range publicInputs {
		if v == nil || v.Sign() < 0 || v.Cmp(field) >= 0 {
			close(values)
			return nil, fmt.Errorf("%w: input %d is not a field element", ErrPublicInputs, i)
		}
		values <- v
	}
	close(values)
	w, err := witness.New(field)
	if err != nil {
		return nil, err
	}
	if err := w.Fill(len(publicInputs), 0, values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicInputs, err)
	}
	return w, nil
}

// solve runs a backend prover and reports a panic raised while solving the
// witness as ErrUnsatisfied.
func solve[P any](prove func() (P, error)) (proof P, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: solver panic: %v", ErrUnsatisfied, r)
		}
	}()
	return prove()
}

// fullWitness builds the witness of an assignment.
func fullWitness(assignment frontend.Circuit) (witness.Witness, error) {
	w, err := frontend.NewWitness(assignment, Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsatisfied, err)
	}
	return w, nil
}

// New returns the pipeline of a backend. Plonk needs an SRS provider.
func New(backend Backend, srs SRSProvider) (Pipeline, error) {
	switch backend {
	case BackendGroth16, "":
		return &Groth16{}, nil
	case BackendPlonk:
		if srs == nil {
			return nil, fmt.Errorf("plonk backend needs an SRS provider")
		}
		return &Plonk{SRS: srs}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
