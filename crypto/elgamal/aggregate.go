package elgamal

import (
	"fmt"
	"sync"

	"github.com/vocdoni/zktally/crypto/ecc"
)

// Aggregate folds the ciphertexts by addition, starting from the identity.
// Any nil or malformed ciphertext fails the whole call; none is skipped.
func Aggregate(curve ecc.Curve, cts ...*Ciphertext) (*Ciphertext, error) {
	sum := NewCiphertext(curve)
	for i, ct := range cts {
		if err := ct.Validate(curve); err != nil {
			return nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		sum = sum.Add(ct)
	}
	return sum, nil
}

// AggregateBallots sums, option by option, ballots of n ciphertexts each.
func AggregateBallots(curve ecc.Curve, n int, ballots ...[]*Ciphertext) ([]*Ciphertext, error) {
	acc := NewAccumulator(curve, n)
	for i, b := range ballots {
		if err := acc.Add(b); err != nil {
			return nil, fmt.Errorf("ballot %d: %w", i, err)
		}
	}
	return acc.Sum(), nil
}

// Accumulator keeps a running per option sum of ballots as they arrive. It is
// safe for concurrent use and yields the same sums as AggregateBallots over
// the same ballots, in any order.
type Accumulator struct {
	curve ecc.Curve
	mu    sync.RWMutex
	sums  []*Ciphertext
	count uint64
}

// NewAccumulator returns an empty accumulator for n options.
func NewAccumulator(curve ecc.Curve, n int) *Accumulator {
	sums := make([]*Ciphertext, n)
	for i := range sums {
		sums[i] = NewCiphertext(curve)
	}
	return &Accumulator{curve: curve, sums: sums}
}

// RestoreAccumulator resumes from a persisted state.
func RestoreAccumulator(curve ecc.Curve, sums []*Ciphertext, count uint64) (*Accumulator, error) {
	for i, ct := range sums {
		if err := ct.Validate(curve); err != nil {
			return nil, fmt.Errorf("sum %d: %w", i, err)
		}
	}
	restored := make([]*Ciphertext, len(sums))
	copy(restored, sums)
	return &Accumulator{curve: curve, sums: restored, count: count}, nil
}

// Add validates a ballot and folds it into the sums.
func (a *Accumulator) Add(ballot []*Ciphertext) error {
	if len(ballot) != len(a.sums) {
		return fmt.Errorf("%w: ballot has %d ciphertexts, expected %d", ErrOptionCountMismatch, len(ballot), len(a.sums))
	}
	for i, ct := range ballot {
		if err := ct.Validate(a.curve); err != nil {
			return fmt.Errorf("option %d: %w", i, err)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, ct := range ballot {
		a.sums[i] = a.sums[i].Add(ct)
	}
	a.count++
	return nil
}

// Sum returns the current per option sums.
func (a *Accumulator) Sum() []*Ciphertext {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Ciphertext, len(a.sums))
	copy(out, a.sums)
	return out
}

// Count returns the number of ballots folded so far.
func (a *Accumulator) Count() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Options returns the number of options.
func (a *Accumulator) Options() int {
	return len(a.sums)
}
