package elgamal

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	bjj "github.com/vocdoni/zktally/crypto/ecc/bjj_gnark"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
)

func TestAggregateEmpty(t *testing.T) {
	c := qt.New(t)
	curve := curves.Default()
	sum, err := Aggregate(curve)
	c.Assert(err, qt.IsNil)
	c.Assert(sum.C1.IsIdentity(), qt.IsTrue)
	c.Assert(sum.C2.IsIdentity(), qt.IsTrue)
}

func TestAggregateRejectsMalformed(t *testing.T) {
	c := qt.New(t)
	curve := curves.Default()
	kp, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	good, _, err := EncryptChoice(curve, kp.Public, 1, 2, nil)
	c.Assert(err, qt.IsNil)

	_, err = Aggregate(curve, good, nil)
	c.Assert(errors.Is(err, ErrInvalidCiphertext), qt.IsTrue)

	// the zero value of a point is (0, 0), which is not on the curve
	bad := &Ciphertext{C1: &bjj.BJJ{}, C2: good.C2}
	_, err = Aggregate(curve, good, bad)
	c.Assert(errors.Is(err, ErrInvalidCiphertext), qt.IsTrue)
}

func TestAccumulatorMatchesBatch(t *testing.T) {
	c := qt.New(t)
	curve := curves.Default()
	kp, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	const n = 4
	choices := []int{0, 2, 2, 1, 3, 2, 0}
	ballots := make([][]*Ciphertext, len(choices))
	for i, choice := range choices {
		cts, _, err := EncryptOneHot(curve, kp.Public, OneHot(choice, n), nil)
		c.Assert(err, qt.IsNil)
		ballots[i] = cts
	}

	batch, err := AggregateBallots(curve, n, ballots...)
	c.Assert(err, qt.IsNil)

	acc := NewAccumulator(curve, n)
	var wg sync.WaitGroup
	for _, b := range ballots {
		wg.Add(1)
		go func(b []*Ciphertext) {
			defer wg.Done()
			if err := acc.Add(b); err != nil {
				t.Error(err)
			}
		}(b)
	}
	wg.Wait()
	c.Assert(acc.Count(), qt.Equals, uint64(len(choices)))

	streamed := acc.Sum()
	expected := []uint64{2, 1, 3, 1}
	for i := range batch {
		c.Assert(streamed[i].Equal(batch[i]), qt.IsTrue)
		got, err := Decrypt(curve, kp.Secret, batch[i], uint64(len(choices)))
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, expected[i])
	}

	c.Assert(errors.Is(acc.Add(ballots[0][:2]), ErrOptionCountMismatch), qt.IsTrue)

	restored, err := RestoreAccumulator(curve, streamed, acc.Count())
	c.Assert(err, qt.IsNil)
	c.Assert(restored.Add(ballots[0]), qt.IsNil)
	c.Assert(restored.Count(), qt.Equals, acc.Count()+1)
	c.Assert(acc.Sum()[0].Equal(streamed[0]), qt.IsTrue)
}

func TestCiphertextImmutable(t *testing.T) {
	c := qt.New(t)
	curve := curves.Default()
	kp, err := GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	a, err := Encrypt(curve, kp.Public, big.NewInt(1), big.NewInt(11))
	c.Assert(err, qt.IsNil)
	b, err := Encrypt(curve, kp.Public, big.NewInt(2), big.NewInt(22))
	c.Assert(err, qt.IsNil)
	before := a.String()
	_ = a.Add(b)
	c.Assert(a.String(), qt.Equals, before)
}
