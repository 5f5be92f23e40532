// Package sequencer admits submitted ballots: it validates them at the
// boundary, queues them and, in a background worker, verifies their proofs,
// consumes their nullifiers and folds them into the running poll aggregate.
package sequencer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/nullifier"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
)

var (
	// ErrBallotPending is returned when a ballot with the same nullifier
	// is already waiting for verification.
	ErrBallotPending = errors.New("ballot with the same nullifier is pending")
	// ErrInvalidBallot wraps every reason a ballot is refused for.
	ErrInvalidBallot = errors.New("invalid ballot")
)

// Sequencer is the worker that turns queued ballots into accepted ones.
type Sequencer struct {
	stg      *storage.Storage
	registry *prover.Registry
	curve    ecc.Curve
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// accumulators caches the running aggregate of every poll seen, keyed
	// by poll ID. It always matches the aggregate in storage.
	accumulators map[string]*elgamal.Accumulator
	accLock      sync.Mutex

	tick time.Duration
}

// New creates a sequencer over the storage and the relation registry. A nil
// curve selects the default one.
func New(stg *storage.Storage, registry *prover.Registry, curve ecc.Curve, tick time.Duration) (*Sequencer, error) {
	if stg == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if tick <= 0 {
		return nil, fmt.Errorf("tick must be positive")
	}
	if curve == nil {
		curve = curves.Default()
	}
	return &Sequencer{
		stg:          stg,
		registry:     registry,
		curve:        curve,
		accumulators: make(map[string]*elgamal.Accumulator),
		tick:         tick,
	}, nil
}

// Start launches the ballot processor. It runs until ctx is canceled or
// Stop is called.
func (s *Sequencer) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.startBallotProcessor()
	log.Infow("sequencer started", "tick", s.tick.String())
	return nil
}

// Stop cancels the processor and waits for it to return. It is safe to
// call Stop more than once.
func (s *Sequencer) Stop() error {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
		log.Infow("sequencer stopped")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBallot, fmt.Sprintf(format, args...))
}

// Submit checks a ballot against its poll and queues it. The proofs are
// verified later by the processor; Submit only refuses what is malformed,
// what targets a closed poll and nullifiers already consumed.
func (s *Sequencer) Submit(b *storage.Ballot) error {
	if b == nil || b.Ballot == nil {
		return invalid("empty ballot")
	}
	if b.Nullifier == nil {
		return invalid("missing nullifier")
	}
	if b.VoteProof == nil || b.EligibilityProof == nil {
		return invalid("missing proof")
	}
	p, err := s.stg.Poll(b.PollID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", poll.ErrPollNotFound, b.PollID)
	}
	if err != nil {
		return err
	}
	if !p.Accepting() {
		return fmt.Errorf("%w: poll is %s", poll.ErrPollNotAccepting, p.Status)
	}
	if err := b.Ballot.Validate(p.Slots()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBallot, err)
	}
	if !bytes.Equal(b.CensusRoot, p.CensusRoot) {
		return invalid("census root %s does not match the poll census", b.CensusRoot)
	}
	consumed, err := nullifier.NewSet(s.stg, p.ID).Contains(b.Nullifier.MathBigInt())
	if err != nil {
		return err
	}
	if consumed {
		return fmt.Errorf("%w: nullifier %s", nullifier.ErrDoubleVote, b.Nullifier)
	}
	b.SubmittedAt = time.Now()
	if err := s.stg.PushBallot(b); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			return ErrBallotPending
		}
		return err
	}
	log.Debugw("ballot queued", "poll", p.ID.String(), "nullifier", b.Nullifier.String())
	return nil
}
