package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"

	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/types"
)

// NullifierKey returns the 32 byte big endian form of a nullifier.
func NullifierKey(nullifier *big.Int) []byte {
	return nullifier.FillBytes(make([]byte, 32))
}

// BallotKey returns the queue key of a ballot: poll ID | nullifier.
func BallotKey(pollID []byte, nullifier *big.Int) []byte {
	return scopedKey(pollID, NullifierKey(nullifier))
}

// PushBallot stores a new ballot into the pending ballots queue. A ballot
// with the same nullifier already pending is rejected with
// ErrKeyAlreadyExists.
func (s *Storage) PushBallot(b *Ballot) error {
	if b == nil || b.Nullifier == nil || len(b.PollID) == 0 {
		return fmt.Errorf("incomplete ballot")
	}
	key := BallotKey(b.PollID, b.Nullifier.MathBigInt())
	val, err := encodeArtifact(b)
	if err != nil {
		return fmt.Errorf("encode ballot: %w", err)
	}
	status, err := encodeArtifact(&BallotStatusRecord{Status: BallotStatusPending, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}

	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	pending := prefixeddb.NewPrefixedWriteTx(wTx, ballotPrefix)
	if _, err := pending.Get(key); err == nil {
		return fmt.Errorf("%w: ballot already queued", ErrKeyAlreadyExists)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	if err := pending.Set(key, val); err != nil {
		return err
	}
	if err := prefixeddb.NewPrefixedWriteTx(wTx, ballotStatusPrefix).Set(key, status); err != nil {
		return err
	}
	return wTx.Commit()
}

// NextBallot returns the next non-reserved ballot and reserves it. It
// returns ErrNoMoreElements if no ballot is available. The key identifies
// the ballot in the later MarkBallot calls.
func (s *Storage) NextBallot() (*Ballot, []byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	pr := prefixeddb.NewPrefixedReader(s.db, ballotPrefix)
	var chosenKey, chosenVal []byte
	if err := pr.Iterate(nil, func(k, v []byte) bool {
		if s.isReserved(ballotReservationPrefix, k) {
			return true
		}
		chosenKey = append([]byte(nil), k...)
		chosenVal = append([]byte(nil), v...)
		return false
	}); err != nil {
		return nil, nil, fmt.Errorf("iterate ballots: %w", err)
	}
	if chosenVal == nil {
		return nil, nil, ErrNoMoreElements
	}
	var b Ballot
	if err := decodeArtifact(chosenVal, &b); err != nil {
		return nil, nil, fmt.Errorf("decode ballot: %w", err)
	}
	if err := s.setReservation(ballotReservationPrefix, chosenKey); err != nil {
		return nil, nil, fmt.Errorf("reserve ballot: %w", err)
	}
	return &b, chosenKey, nil
}

// ReleaseBallot drops the reservation of a ballot so it is taken again.
func (s *Storage) ReleaseBallot(key []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if err := s.deleteArtifact(ballotReservationPrefix, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// CountPendingBallots returns the number of queued ballots of a poll.
func (s *Storage) CountPendingBallots(pollID []byte) int {
	return s.countArtifacts(ballotPrefix, pollID)
}

// CountAcceptedBallots returns the number of accepted ballots of a poll.
func (s *Storage) CountAcceptedBallots(pollID []byte) int {
	return s.countArtifacts(acceptedBallotPrefix, pollID)
}

// AcceptedBallots returns the accepted ballots of a poll.
func (s *Storage) AcceptedBallots(pollID []byte) ([]*AcceptedBallot, error) {
	var list []*AcceptedBallot
	var decodeErr error
	if err := prefixeddb.NewPrefixedReader(s.db, acceptedBallotPrefix).Iterate(pollID, func(k, v []byte) bool {
		ab := &AcceptedBallot{}
		if err := decodeArtifact(v, ab); err != nil {
			decodeErr = fmt.Errorf("decode accepted ballot %x: %w", k, err)
			return false
		}
		list = append(list, ab)
		return true
	}); err != nil {
		return nil, err
	}
	return list, decodeErr
}

// BallotStatus returns the processing state of the ballot with nullifier.
func (s *Storage) BallotStatus(pollID []byte, nullifier *big.Int) (*BallotStatusRecord, error) {
	st := &BallotStatusRecord{}
	if err := s.getArtifact(ballotStatusPrefix, BallotKey(pollID, nullifier), st); err != nil {
		return nil, err
	}
	return st, nil
}

// AcceptBallotWrites returns the writes that move a reserved ballot to the
// accepted set: the accepted record, the new aggregate, the status and the
// poll counter. They are meant to run inside ConsumeNullifier, so a ballot
// is accepted only together with its fresh nullifier.
func (s *Storage) AcceptBallotWrites(key []byte, ab *AcceptedBallot, agg *Aggregate) TxWrite {
	return func(tx db.WriteTx) error {
		val, err := encodeArtifact(ab)
		if err != nil {
			return err
		}
		if err := prefixeddb.NewPrefixedWriteTx(tx, acceptedBallotPrefix).Set(key, val); err != nil {
			return err
		}
		if val, err = encodeArtifact(agg); err != nil {
			return err
		}
		if err := prefixeddb.NewPrefixedWriteTx(tx, aggregatePrefix).Set(ab.PollID, val); err != nil {
			return err
		}
		if err := s.txFinishBallot(tx, key, BallotStatusAccepted, ""); err != nil {
			return err
		}
		return txUpdatePoll(tx, ab.PollID, func(p *types.Poll) { p.Accepted++ })
	}
}

// RejectBallot moves a reserved ballot to the rejected set.
func (s *Storage) RejectBallot(key []byte, rb *RejectedBallot) error {
	val, err := encodeArtifact(rb)
	if err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := prefixeddb.NewPrefixedWriteTx(wTx, rejectedBallotPrefix).Set(key, val); err != nil {
		return err
	}
	if err := s.txFinishBallot(wTx, key, BallotStatusRejected, rb.Reason); err != nil {
		return err
	}
	if err := txUpdatePoll(wTx, rb.PollID, func(p *types.Poll) { p.Rejected++ }); err != nil {
		log.Warnw("cannot update rejected counter", "poll", rb.PollID.String(), "err", err)
	}
	return wTx.Commit()
}

// txFinishBallot removes a ballot from the queue and sets its final status.
func (s *Storage) txFinishBallot(tx db.WriteTx, key []byte, status BallotStatus, reason string) error {
	if err := prefixeddb.NewPrefixedWriteTx(tx, ballotReservationPrefix).Delete(key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if err := prefixeddb.NewPrefixedWriteTx(tx, ballotPrefix).Delete(key); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("delete pending ballot: %w", err)
	}
	val, err := encodeArtifact(&BallotStatusRecord{Status: status, Reason: reason, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	return prefixeddb.NewPrefixedWriteTx(tx, ballotStatusPrefix).Set(key, val)
}

func txUpdatePoll(tx db.WriteTx, pollID []byte, fn func(*types.Poll)) error {
	polls := prefixeddb.NewPrefixedWriteTx(tx, pollPrefix)
	data, err := polls.Get(pollID)
	if err != nil {
		return err
	}
	p := &types.Poll{}
	if err := decodeArtifact(data, p); err != nil {
		return err
	}
	fn(p)
	if data, err = encodeArtifact(p); err != nil {
		return err
	}
	return polls.Set(pollID, data)
}

// setReservation marks key as taken until the reservation times out.
func (s *Storage) setReservation(prefix, key []byte) error {
	var val [8]byte
	binary.BigEndian.PutUint64(val[:], uint64(time.Now().Add(s.ReservationTimeout).UnixNano()))
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, val[:]); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// isReserved reports whether key holds a reservation that did not expire.
func (s *Storage) isReserved(prefix, key []byte) bool {
	val, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil || len(val) != 8 {
		return false
	}
	return time.Now().UnixNano() < int64(binary.BigEndian.Uint64(val))
}
