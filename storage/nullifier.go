package storage

import (
	"errors"
	"fmt"
	"math/big"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// TxWrite is a write that runs inside another operation's transaction.
type TxWrite func(tx db.WriteTx) error

func nullifierScope(pollID []byte) []byte {
	return scopedKey(nullifierPrefix, append(append([]byte(nil), pollID...), '/'))
}

// ConsumeNullifier marks a nullifier as used for a poll. It fails with
// ErrKeyAlreadyExists if it was used before. The extra writes share the
// transaction: they are committed only together with a fresh nullifier.
func (s *Storage) ConsumeNullifier(pollID []byte, nullifier *big.Int, extra ...TxWrite) error {
	key := NullifierKey(nullifier)
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	consumed := prefixeddb.NewPrefixedWriteTx(wTx, nullifierScope(pollID))
	if _, err := consumed.Get(key); err == nil {
		return fmt.Errorf("%w: nullifier %x", ErrKeyAlreadyExists, key)
	} else if !errors.Is(err, db.ErrKeyNotFound) {
		return err
	}
	if err := consumed.Set(key, []byte{1}); err != nil {
		return err
	}
	for _, w := range extra {
		if err := w(wTx); err != nil {
			return err
		}
	}
	return wTx.Commit()
}

// NullifierConsumed reports whether a nullifier was used for a poll.
func (s *Storage) NullifierConsumed(pollID []byte, nullifier *big.Int) (bool, error) {
	_, err := prefixeddb.NewPrefixedReader(s.db, nullifierScope(pollID)).Get(NullifierKey(nullifier))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// CountNullifiers returns the number of consumed nullifiers of a poll.
func (s *Storage) CountNullifiers(pollID []byte) int {
	return s.countArtifacts(nullifierScope(pollID), nil)
}
