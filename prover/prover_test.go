package prover

import (
	"encoding/json"
	"math/big"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/test/unsafekzg"
	qt "github.com/frankban/quicktest"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/circuits/voteproof"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/types"
)

var scalarTwo = circuits.RelationID{Kind: circuits.KindVoteScalar, NumOptions: 2}

type vote struct {
	assignment *voteproof.ScalarCircuit
	inputs     []*big.Int
}

func newVote(c *qt.C, n, choice int) *vote {
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	ct, k, err := elgamal.EncryptChoice(keys.Curve, keys.Public, choice, n, nil)
	c.Assert(err, qt.IsNil)
	return &vote{
		assignment: voteproof.ScalarAssignment(n, keys.Public, ct, choice, k),
		inputs:     voteproof.ScalarPublicInputs(keys.Public, ct),
	}
}

type memoryIndex struct {
	mu     sync.Mutex
	hashes map[string][3]types.HexBytes
}

func (m *memoryIndex) RelationArtifacts(key string) ([3]types.HexBytes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return h, ErrArtifactsNotIndexed
	}
	return h, nil
}

func (m *memoryIndex) SetRelationArtifacts(key string, hashes [3]types.HexBytes) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hashes[key] = hashes
	return nil
}

func TestGroth16ProveVerify(t *testing.T) {
	c := qt.New(t)
	g := &Groth16{}
	placeholder, err := Placeholder(scalarTwo)
	c.Assert(err, qt.IsNil)
	rel, err := g.Setup(scalarTwo, placeholder)
	c.Assert(err, qt.IsNil)
	c.Assert(rel.NbPublic, qt.Equals, 6)

	v := newVote(c, 2, 1)
	proof, err := g.Prove(rel, v.assignment)
	c.Assert(err, qt.IsNil)
	c.Assert(g.Verify(rel, v.inputs, proof), qt.IsNil)

	// ledger form
	ledger, err := proof.Ledger()
	c.Assert(err, qt.IsNil)
	c.Assert(ledger.A[0], qt.IsNotNil)
	c.Assert(ledger.B[1][1], qt.IsNotNil)

	// public inputs of another ballot
	other := newVote(c, 2, 1)
	c.Assert(g.Verify(rel, other.inputs, proof), qt.ErrorIs, ErrInvalidProof)

	// wrong vector length
	c.Assert(g.Verify(rel, v.inputs[:4], proof), qt.ErrorIs, ErrPublicInputs)

	// non canonical field element
	bad := append([]*big.Int{}, v.inputs...)
	bad[0] = new(big.Int).Add(bad[0], Curve.ScalarField())
	c.Assert(g.Verify(rel, bad, proof), qt.ErrorIs, ErrPublicInputs)

	// proof survives a JSON round trip
	data, err := json.Marshal(proof)
	c.Assert(err, qt.IsNil)
	decoded := &Proof{}
	c.Assert(json.Unmarshal(data, decoded), qt.IsNil)
	c.Assert(g.Verify(rel, v.inputs, decoded), qt.IsNil)

	// choice 0 encodes the identity as message
	zero := newVote(c, 2, 0)
	proof, err = g.Prove(rel, zero.assignment)
	c.Assert(err, qt.IsNil)
	c.Assert(g.Verify(rel, zero.inputs, proof), qt.IsNil)
}

func TestGroth16Unsatisfied(t *testing.T) {
	c := qt.New(t)
	g := &Groth16{}
	placeholder, err := Placeholder(scalarTwo)
	c.Assert(err, qt.IsNil)
	rel, err := g.Setup(scalarTwo, placeholder)
	c.Assert(err, qt.IsNil)

	v := newVote(c, 2, 0)
	v.assignment.Choice = 1
	proof, err := g.Prove(rel, v.assignment)
	c.Assert(err, qt.ErrorIs, ErrUnsatisfied)
	c.Assert(proof, qt.IsNil)
}

func TestProveSolverPanic(t *testing.T) {
	c := qt.New(t)
	g := &Groth16{}
	placeholder, err := Placeholder(scalarTwo)
	c.Assert(err, qt.IsNil)
	rel, err := g.Setup(scalarTwo, placeholder)
	c.Assert(err, qt.IsNil)

	// a zero randomness makes the scalar multiplication hint fail
	v := newVote(c, 2, 1)
	v.assignment.K = 0
	proof, err := g.Prove(rel, v.assignment)
	c.Assert(err, qt.ErrorIs, ErrUnsatisfied)
	c.Assert(proof, qt.IsNil)
}

func TestRelationMismatch(t *testing.T) {
	c := qt.New(t)
	g := &Groth16{}
	scalarThree := circuits.RelationID{Kind: circuits.KindVoteScalar, NumOptions: 3}

	p2, err := Placeholder(scalarTwo)
	c.Assert(err, qt.IsNil)
	rel2, err := g.Setup(scalarTwo, p2)
	c.Assert(err, qt.IsNil)
	p3, err := Placeholder(scalarThree)
	c.Assert(err, qt.IsNil)
	rel3, err := g.Setup(scalarThree, p3)
	c.Assert(err, qt.IsNil)

	v := newVote(c, 2, 1)
	proof, err := g.Prove(rel2, v.assignment)
	c.Assert(err, qt.IsNil)
	c.Assert(g.Verify(rel3, v.inputs, proof), qt.ErrorIs, ErrRelationMismatch)

	// same relation, keys from another setup
	rel2b, err := g.Setup(scalarTwo, p2)
	c.Assert(err, qt.IsNil)
	c.Assert(g.Verify(rel2b, v.inputs, proof), qt.ErrorIs, ErrRelationMismatch)
}

func TestPlonkProveVerify(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping plonk setup in short mode")
	}
	c := qt.New(t)
	pipeline, err := New(BackendPlonk, func(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error) {
		return unsafekzg.NewSRS(ccs)
	})
	c.Assert(err, qt.IsNil)
	placeholder, err := Placeholder(scalarTwo)
	c.Assert(err, qt.IsNil)
	rel, err := pipeline.Setup(scalarTwo, placeholder)
	c.Assert(err, qt.IsNil)

	v := newVote(c, 2, 0)
	proof, err := pipeline.Prove(rel, v.assignment)
	c.Assert(err, qt.IsNil)
	c.Assert(pipeline.Verify(rel, v.inputs, proof), qt.IsNil)

	_, err = proof.Ledger()
	c.Assert(err, qt.IsNotNil)

	// a groth16 pipeline refuses the plonk relation
	_, err = (&Groth16{}).Prove(rel, v.assignment)
	c.Assert(err, qt.ErrorIs, ErrRelationMismatch)
}

func TestNewPipeline(t *testing.T) {
	c := qt.New(t)
	p, err := New("", nil)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Backend(), qt.Equals, BackendGroth16)
	_, err = New(BackendPlonk, nil)
	c.Assert(err, qt.IsNotNil)
	_, err = New("stark", nil)
	c.Assert(err, qt.ErrorIs, ErrUnknownBackend)
}

func TestPlaceholder(t *testing.T) {
	c := qt.New(t)
	for _, id := range []circuits.RelationID{
		{Kind: circuits.KindVoteScalar, NumOptions: 2},
		{Kind: circuits.KindVoteVector, NumOptions: types.MaxOptions},
		{Kind: circuits.KindTally, NumOptions: 1},
		{Kind: circuits.KindEligibility},
	} {
		_, err := Placeholder(id)
		c.Assert(err, qt.IsNil, qt.Commentf("%s", id))
	}
	for _, id := range []circuits.RelationID{
		{Kind: circuits.KindVoteScalar, NumOptions: 1},
		{Kind: circuits.KindVoteVector, NumOptions: types.MaxOptions + 1},
		{Kind: circuits.KindTally, NumOptions: 0},
		{Kind: circuits.KindEligibility, NumOptions: 2},
		{Kind: "unknown", NumOptions: 2},
	} {
		_, err := Placeholder(id)
		c.Assert(err, qt.IsNotNil, qt.Commentf("%s", id))
	}
}

func TestRegistryPersistsArtifacts(t *testing.T) {
	c := qt.New(t)
	circuits.BaseDir = t.TempDir()
	index := &memoryIndex{hashes: make(map[string][3]types.HexBytes)}

	reg := NewRegistry(&Groth16{}, index)
	var wg sync.WaitGroup
	rels := make([]*Relation, 4)
	for i := range rels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rel, err := reg.Relation(scalarTwo)
			if err != nil {
				t.Error(err)
				return
			}
			rels[i] = rel
		}(i)
	}
	wg.Wait()
	for _, rel := range rels {
		c.Assert(rel, qt.Equals, rels[0])
	}
	c.Assert(index.hashes, qt.HasLen, 1)

	v := newVote(c, 2, 1)
	proof, err := reg.Prove(scalarTwo, v.assignment)
	c.Assert(err, qt.IsNil)

	// a new registry over the same index loads the stored keys
	restarted := NewRegistry(&Groth16{}, index)
	rel, err := restarted.Relation(scalarTwo)
	c.Assert(err, qt.IsNil)
	c.Assert(rel.Version, qt.DeepEquals, rels[0].Version)
	c.Assert(restarted.Verify(scalarTwo, v.inputs, proof), qt.IsNil)
}
