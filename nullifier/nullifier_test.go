package nullifier

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/circuits/eligibility"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/util"
)

var testPollID = util.RandomBytes(32)

// newCensus registers n random identities and returns them with the census.
func newCensus(c *qt.C, database db.Database, n int) (*census.CensusRef, []*Identity) {
	ref, err := census.NewCensusDB(database).New(uuid.New())
	c.Assert(err, qt.IsNil)
	ids := make([]*Identity, n)
	for i := range ids {
		ids[i] = NewIdentity()
		_, err := ref.Add(ids[i].Commitment())
		c.Assert(err, qt.IsNil)
	}
	return ref, ids
}

func testBallot(c *qt.C) *elgamal.Ballot {
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	cts, _, err := elgamal.EncryptOneHot(keys.Curve, keys.Public, elgamal.OneHot(1, 3), nil)
	c.Assert(err, qt.IsNil)
	return elgamal.NewBallot(keys.Curve, cts)
}

func TestIdentity(t *testing.T) {
	c := qt.New(t)
	id := NewIdentity()
	c.Assert(id.Commitment().Cmp(id.Commitment()), qt.Equals, 0)

	ctx := PollContext(testPollID)
	c.Assert(id.Nullifier(ctx).Cmp(id.Nullifier(ctx)), qt.Equals, 0)
	c.Assert(id.Nullifier(ctx).Cmp(id.Nullifier(new(big.Int).Add(ctx, big.NewInt(1)))), qt.Not(qt.Equals), 0)
	c.Assert(id.Nullifier(ctx).Cmp(NewIdentity().Nullifier(ctx)), qt.Not(qt.Equals), 0)
}

func TestBallotHash(t *testing.T) {
	c := qt.New(t)
	b := testBallot(c)
	h1, err := BallotHash(b)
	c.Assert(err, qt.IsNil)
	h2, err := BallotHash(testBallot(c))
	c.Assert(err, qt.IsNil)
	c.Assert(h1.Cmp(h2), qt.Not(qt.Equals), 0)

	_, err = BallotHash(&elgamal.Ballot{})
	c.Assert(err, qt.ErrorIs, elgamal.ErrInvalidCiphertext)
}

func TestProveMembership(t *testing.T) {
	c := qt.New(t)
	ref, ids := newCensus(c, metadb.NewTest(t), 5)
	ctx := PollContext(testPollID)
	ballotHash, err := BallotHash(testBallot(c))
	c.Assert(err, qt.IsNil)

	proof, err := ref.GenProof(3)
	c.Assert(err, qt.IsNil)
	m, n, err := ProveMembership(ids[3], ctx, proof, ballotHash)
	c.Assert(err, qt.IsNil)
	c.Assert(n.Cmp(ids[3].Nullifier(ctx)), qt.Equals, 0)
	c.Assert(m.CensusRoot().Cmp(proof.RootBigInt()), qt.Equals, 0)
	c.Assert(test.IsSolved(eligibility.Placeholder(), m.Assignment(), ecc.BN254.ScalarField()), qt.IsNil)

	// another member's proof
	_, _, err = ProveMembership(ids[2], ctx, proof, ballotHash)
	c.Assert(err, qt.ErrorIs, ErrNotMember)

	// an identity outside the census
	_, _, err = ProveMembership(NewIdentity(), ctx, proof, ballotHash)
	c.Assert(err, qt.ErrorIs, ErrNotMember)
}

func TestSetConsume(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	set := NewSet(stg, testPollID)
	n := util.RandomFieldElement()

	extraCalls := 0
	extra := func(db.WriteTx) error {
		extraCalls++
		return nil
	}
	c.Assert(set.Consume(n, extra), qt.IsNil)
	c.Assert(set.Consume(n, extra), qt.ErrorIs, ErrDoubleVote)
	c.Assert(extraCalls, qt.Equals, 1)
	c.Assert(set.Size(), qt.Equals, 1)
	consumed, err := set.Contains(n)
	c.Assert(err, qt.IsNil)
	c.Assert(consumed, qt.IsTrue)

	// nullifiers are scoped by poll
	other := NewSet(stg, util.RandomBytes(32))
	consumed, err = other.Contains(n)
	c.Assert(err, qt.IsNil)
	c.Assert(consumed, qt.IsFalse)
	c.Assert(other.Consume(n), qt.IsNil)
}

func TestGate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping eligibility proof in short mode")
	}
	c := qt.New(t)
	database := metadb.NewTest(t)
	ref, ids := newCensus(c, database, 4)
	stg := storage.New(database)
	ctx := PollContext(testPollID)
	registry := prover.NewRegistry(&prover.Groth16{}, nil)

	ballotHash, err := BallotHash(testBallot(c))
	c.Assert(err, qt.IsNil)
	proof, err := ref.GenProof(1)
	c.Assert(err, qt.IsNil)
	m, n, err := ProveMembership(ids[1], ctx, proof, ballotHash)
	c.Assert(err, qt.IsNil)
	zkProof, err := registry.Prove(Relation, m.Assignment())
	c.Assert(err, qt.IsNil)

	set := NewSet(stg, testPollID)
	gate := NewGate(registry, set, proof.RootBigInt(), ctx)

	// the proof is bound to the ballot hash, a rejected proof never consumes
	c.Assert(gate.Admit(n, new(big.Int).Add(ballotHash, big.NewInt(1)), zkProof), qt.ErrorIs, prover.ErrInvalidProof)
	c.Assert(set.Size(), qt.Equals, 0)

	c.Assert(gate.Admit(n, ballotHash, zkProof), qt.IsNil)
	c.Assert(gate.Admit(n, ballotHash, zkProof), qt.ErrorIs, ErrDoubleVote)
	c.Assert(set.Size(), qt.Equals, 1)
}
