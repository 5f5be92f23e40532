package sequencer

import (
	"bytes"
	"errors"
	"time"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/nullifier"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/types"
)

// startBallotProcessor runs the loop that takes queued ballots until the
// sequencer context is canceled. When the queue is empty it waits for the
// next tick.
func (s *Sequencer) startBallotProcessor() {
	ticker := time.NewTicker(s.tick)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		log.Infow("ballot processor started")
		for {
			select {
			case <-s.ctx.Done():
				log.Infow("ballot processor stopped")
				return
			default:
			}
			if !s.ProcessNext() {
				select {
				case <-ticker.C:
				case <-s.ctx.Done():
					log.Infow("ballot processor stopped")
					return
				}
			}
		}
	}()
}

// ProcessNext takes one queued ballot and accepts or rejects it. It returns
// false when the queue is empty or the storage failed.
func (s *Sequencer) ProcessNext() bool {
	b, key, err := s.stg.NextBallot()
	if err != nil {
		if !errors.Is(err, storage.ErrNoMoreElements) {
			log.Errorw(err, "failed to get next ballot")
		}
		return false
	}
	startTime := time.Now()
	err = s.processBallot(b, key)
	switch {
	case err == nil:
		log.Debugw("ballot accepted",
			"poll", b.PollID.String(),
			"nullifier", b.Nullifier.String(),
			"duration", time.Since(startTime).String())
	case rejectable(err):
		log.Warnw("invalid ballot",
			"poll", b.PollID.String(),
			"nullifier", b.Nullifier.String(),
			"error", err.Error())
		if err := s.stg.RejectBallot(key, &storage.RejectedBallot{
			PollID:     b.PollID,
			Nullifier:  b.Nullifier,
			Reason:     err.Error(),
			RejectedAt: time.Now(),
		}); err != nil {
			log.Errorw(err, "failed to reject ballot")
		}
	default:
		log.Errorw(err, "cannot process ballot, releasing it")
		if err := s.stg.ReleaseBallot(key); err != nil {
			log.Errorw(err, "failed to release ballot")
		}
	}
	return true
}

// rejectable reports whether err condemns the ballot itself, as opposed to
// a failure of the node that a later attempt may not hit.
func rejectable(err error) bool {
	for _, target := range []error{
		ErrInvalidBallot,
		nullifier.ErrDoubleVote,
		poll.ErrPollNotFound,
		poll.ErrPollNotAccepting,
		prover.ErrInvalidProof,
		prover.ErrPublicInputs,
		prover.ErrRelationMismatch,
		elgamal.ErrOptionCountMismatch,
		elgamal.ErrInvalidCiphertext,
		ecc.ErrNotOnCurve,
		ecc.ErrNotInSubgroup,
		ecc.ErrInvalidCoordinate,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// processBallot verifies the vote proof and the eligibility proof of a
// ballot, then consumes its nullifier and stores the new aggregate in one
// transaction.
func (s *Sequencer) processBallot(b *storage.Ballot, key []byte) error {
	p, err := s.stg.Poll(b.PollID)
	if errors.Is(err, storage.ErrNotFound) {
		return poll.ErrPollNotFound
	}
	if err != nil {
		return err
	}
	if p.Status == types.PollStatusTallied {
		return poll.ErrPollNotAccepting
	}
	if !bytes.Equal(b.CensusRoot, p.CensusRoot) {
		return invalid("census root mismatch")
	}
	pk, err := poll.EncryptionKey(s.curve, p)
	if err != nil {
		return err
	}
	inputs, err := poll.VotePublicInputs(p, pk, b.Ballot)
	if err != nil {
		return err
	}
	if err := s.registry.Verify(poll.VoteRelation(p), inputs, b.VoteProof); err != nil {
		return err
	}

	acc, err := s.accumulator(p)
	if err != nil {
		return err
	}
	next, err := s.fold(acc, b.Ballot)
	if err != nil {
		return err
	}
	ballotHash, err := nullifier.BallotHash(b.Ballot)
	if err != nil {
		return err
	}
	gate := nullifier.NewGate(s.registry, nullifier.NewSet(s.stg, p.ID),
		census.RootToBigInt(p.CensusRoot), types.PollContext(p.ID))
	accepted := &storage.AcceptedBallot{
		PollID:     p.ID,
		Nullifier:  b.Nullifier,
		Ballot:     b.Ballot,
		AcceptedAt: time.Now(),
	}
	writes := s.stg.AcceptBallotWrites(key, accepted, &storage.Aggregate{Sums: next.Sum(), Count: next.Count()})
	if err := gate.Admit(b.Nullifier.MathBigInt(), ballotHash, b.EligibilityProof, writes); err != nil {
		return err
	}
	s.commit(p.ID, next)
	return nil
}
