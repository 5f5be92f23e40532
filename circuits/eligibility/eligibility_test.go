package eligibility

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/crypto/hash/mimc"
	"github.com/vocdoni/zktally/util"
)

type testCensus struct {
	ref     *census.CensusRef
	secrets []*big.Int
}

func newTestCensus(c *qt.C, members int) *testCensus {
	ref, err := census.NewCensusDB(metadb.NewTest(c.TB)).New(uuid.New())
	c.Assert(err, qt.IsNil)
	tc := &testCensus{ref: ref}
	for i := 0; i < members; i++ {
		secret := util.RandomFieldElement()
		_, err := ref.Add(mimc.MustHash(secret))
		c.Assert(err, qt.IsNil)
		tc.secrets = append(tc.secrets, secret)
	}
	return tc
}

func (tc *testCensus) witness(c *qt.C, index uint64, pollContext, ballotHash *big.Int) *Witness {
	proof, err := tc.ref.GenProof(index)
	c.Assert(err, qt.IsNil)
	siblings, err := proof.CircuitSiblings()
	c.Assert(err, qt.IsNil)
	secret := tc.secrets[index]
	return &Witness{
		CensusRoot:     proof.RootBigInt(),
		PollContext:    pollContext,
		Nullifier:      mimc.MustHash(secret, pollContext),
		BallotHash:     ballotHash,
		IdentitySecret: secret,
		Index:          index,
		Siblings:       siblings,
	}
}

func TestEligibilitySolved(t *testing.T) {
	c := qt.New(t)
	tc := newTestCensus(c, 5)
	pollContext := util.RandomFieldElement()
	for _, index := range []uint64{0, 3, 4} {
		w := tc.witness(c, index, pollContext, big.NewInt(123))
		c.Assert(test.IsSolved(Placeholder(), w.Assignment(), ecc.BN254.ScalarField()), qt.IsNil,
			qt.Commentf("member %d", index))
	}
}

func TestEligibilityRejectsNonMember(t *testing.T) {
	c := qt.New(t)
	tc := newTestCensus(c, 3)
	pollContext := util.RandomFieldElement()

	w := tc.witness(c, 1, pollContext, big.NewInt(1))
	outsider := util.RandomFieldElement()
	w.IdentitySecret = outsider
	w.Nullifier = mimc.MustHash(outsider, pollContext)
	c.Assert(test.IsSolved(Placeholder(), w.Assignment(), ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestEligibilityRejectsWrongIndex(t *testing.T) {
	c := qt.New(t)
	tc := newTestCensus(c, 3)
	w := tc.witness(c, 1, util.RandomFieldElement(), big.NewInt(1))
	w.Index = 2
	c.Assert(test.IsSolved(Placeholder(), w.Assignment(), ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestEligibilityRejectsForeignNullifier(t *testing.T) {
	c := qt.New(t)
	tc := newTestCensus(c, 2)
	pollContext := util.RandomFieldElement()

	// nullifier of the same member for another poll
	w := tc.witness(c, 0, pollContext, big.NewInt(1))
	w.Nullifier = mimc.MustHash(tc.secrets[0], util.RandomFieldElement())
	c.Assert(test.IsSolved(Placeholder(), w.Assignment(), ecc.BN254.ScalarField()), qt.IsNotNil)

	// nullifier of another member
	w = tc.witness(c, 0, pollContext, big.NewInt(1))
	w.Nullifier = mimc.MustHash(tc.secrets[1], pollContext)
	c.Assert(test.IsSolved(Placeholder(), w.Assignment(), ecc.BN254.ScalarField()), qt.IsNotNil)
}

func TestNullifierIsDeterministic(t *testing.T) {
	c := qt.New(t)
	tc := newTestCensus(c, 1)
	pollA, pollB := util.RandomFieldElement(), util.RandomFieldElement()
	a1 := tc.witness(c, 0, pollA, big.NewInt(1)).Nullifier
	a2 := tc.witness(c, 0, pollA, big.NewInt(2)).Nullifier
	b := tc.witness(c, 0, pollB, big.NewInt(1)).Nullifier
	c.Assert(a1.Cmp(a2), qt.Equals, 0)
	c.Assert(a1.Cmp(b), qt.Not(qt.Equals), 0)
}

func TestEligibilityGroth16(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping eligibility proving in short mode")
	}
	c := qt.New(t)
	tc := newTestCensus(c, 4)
	w := tc.witness(c, 2, util.RandomFieldElement(), big.NewInt(77))
	test.NewAssert(t).ProverSucceeded(Placeholder(), w.Assignment(),
		test.WithCurves(ecc.BN254), test.WithBackends(backend.GROTH16))
}

func TestEligibilityProofBindsBallotHash(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping eligibility proving in short mode")
	}
	c := qt.New(t)
	tc := newTestCensus(c, 4)
	w := tc.witness(c, 1, util.RandomFieldElement(), big.NewInt(77))

	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, Placeholder())
	c.Assert(err, qt.IsNil)
	pk, vk, err := groth16.Setup(ccs)
	c.Assert(err, qt.IsNil)
	full, err := frontend.NewWitness(w.Assignment(), ecc.BN254.ScalarField())
	c.Assert(err, qt.IsNil)
	proof, err := groth16.Prove(ccs, pk, full)
	c.Assert(err, qt.IsNil)
	public, err := full.Public()
	c.Assert(err, qt.IsNil)
	c.Assert(groth16.Verify(proof, vk, public), qt.IsNil)

	// same membership, another ballot
	w.BallotHash = big.NewInt(78)
	other, err := frontend.NewWitness(w.Assignment(), ecc.BN254.ScalarField(), frontend.PublicOnly())
	c.Assert(err, qt.IsNil)
	c.Assert(groth16.Verify(proof, vk, other), qt.IsNotNil)
}
