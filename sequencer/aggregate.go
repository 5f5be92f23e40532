package sequencer

import (
	"errors"

	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/types"
)

// accumulator returns the running aggregate of a poll, restoring it from
// storage the first time the poll is seen.
func (s *Sequencer) accumulator(p *types.Poll) (*elgamal.Accumulator, error) {
	s.accLock.Lock()
	defer s.accLock.Unlock()
	if acc, ok := s.accumulators[string(p.ID)]; ok {
		return acc, nil
	}
	agg, err := s.stg.Aggregate(p.ID)
	var acc *elgamal.Accumulator
	switch {
	case errors.Is(err, storage.ErrNotFound):
		acc = elgamal.NewAccumulator(s.curve, p.Slots())
	case err != nil:
		return nil, err
	default:
		if acc, err = elgamal.RestoreAccumulator(s.curve, agg.Sums, agg.Count); err != nil {
			return nil, err
		}
		log.Debugw("aggregate restored", "poll", p.ID.String(), "ballots", agg.Count)
	}
	s.accumulators[string(p.ID)] = acc
	return acc, nil
}

// fold returns a copy of acc with the ballot added. The cached accumulator
// is replaced by commit once the ballot is stored.
func (s *Sequencer) fold(acc *elgamal.Accumulator, ballot *elgamal.Ballot) (*elgamal.Accumulator, error) {
	next, err := elgamal.RestoreAccumulator(s.curve, acc.Sum(), acc.Count())
	if err != nil {
		return nil, err
	}
	if err := next.Add(ballot.Ciphertexts); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Sequencer) commit(pollID []byte, acc *elgamal.Accumulator) {
	s.accLock.Lock()
	defer s.accLock.Unlock()
	s.accumulators[string(pollID)] = acc
}

// Forget drops the cached aggregate of a poll. The next ballot of the poll
// restores it from storage.
func (s *Sequencer) Forget(pollID []byte) {
	s.accLock.Lock()
	defer s.accLock.Unlock()
	delete(s.accumulators, string(pollID))
}
