package storage

import (
	"github.com/vocdoni/zktally/tally"
)

// Aggregate returns the running aggregate of a poll. Returns ErrNotFound if
// no ballot was accepted yet.
func (s *Storage) Aggregate(pollID []byte) (*Aggregate, error) {
	agg := &Aggregate{}
	if err := s.getArtifact(aggregatePrefix, pollID, agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// SetAggregate overwrites the running aggregate of a poll.
func (s *Storage) SetAggregate(pollID []byte, agg *Aggregate) error {
	return s.setArtifact(aggregatePrefix, pollID, agg)
}

// Result returns the published tally of a poll.
func (s *Storage) Result(pollID []byte) (*tally.Result, error) {
	r := &tally.Result{}
	if err := s.getArtifact(resultPrefix, pollID, r); err != nil {
		return nil, err
	}
	return r, nil
}

// SetResult stores the tally of a poll.
func (s *Storage) SetResult(pollID []byte, r *tally.Result) error {
	return s.setArtifact(resultPrefix, pollID, r)
}
