// Package tally recovers the per option counts of a poll from its aggregated
// ciphertexts and proves that they are the correct decryption.
package tally

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/zktally/crypto/elgamal"
)

// Tally holds the count of every aggregated slot, in option order.
type Tally []uint64

// Total returns the sum of the counts.
func (t Tally) Total() uint64 {
	var total uint64
	for _, v := range t {
		total += v
	}
	return total
}

// OptionError reports which slot of the aggregate failed to decrypt.
type OptionError struct {
	Option int
	Err    error
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("option %d: %v", e.Option, e.Err)
}

func (e *OptionError) Unwrap() error {
	return e.Err
}

// Decrypt recovers every count of the aggregate, searching each one in
// [0, upperBound]. The searches run in parallel. Either every count is
// found or an *OptionError describing the first failure is returned; a
// partial tally is never returned.
func Decrypt(ctx context.Context, keys *elgamal.KeyPair, aggregate []*elgamal.Ciphertext, upperBound uint64) (Tally, error) {
	if keys == nil || keys.Secret == nil {
		return nil, fmt.Errorf("missing secret key")
	}
	if len(aggregate) == 0 {
		return nil, fmt.Errorf("%w: empty aggregate", elgamal.ErrOptionCountMismatch)
	}
	result := make(Tally, len(aggregate))
	g, gctx := errgroup.WithContext(ctx)
	for i, ct := range aggregate {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := elgamal.Decrypt(keys.Curve, keys.Secret, ct, upperBound)
			if err != nil {
				return &OptionError{Option: i, Err: err}
			}
			result[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var optErr *OptionError
		if !errors.As(err, &optErr) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return result, nil
}
