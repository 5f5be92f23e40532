package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/types"
)

// encryptionKeys is the stored key pair of a poll.
type encryptionKeys struct {
	CurveType string        `cbor:"0,keyasint"`
	X         *types.BigInt `cbor:"1,keyasint"`
	Y         *types.BigInt `cbor:"2,keyasint"`
	Secret    *types.BigInt `cbor:"3,keyasint"`
}

// Poll retrieves a poll. It returns ErrNotFound if it does not exist.
func (s *Storage) Poll(pollID []byte) (*types.Poll, error) {
	p := &types.Poll{}
	if err := s.getArtifact(pollPrefix, pollID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPoll stores a poll, overwriting the previous version.
func (s *Storage) SetPoll(p *types.Poll) error {
	if p == nil || len(p.ID) == 0 {
		return fmt.Errorf("nil poll or empty poll id")
	}
	return s.setArtifact(pollPrefix, p.ID, p)
}

// NewPoll stores a poll that must not exist yet.
func (s *Storage) NewPoll(p *types.Poll) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	if _, err := s.Poll(p.ID); err == nil {
		return fmt.Errorf("%w: poll %x", ErrKeyAlreadyExists, p.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.SetPoll(p)
}

// UpdatePoll applies fn to the stored poll and writes it back atomically.
func (s *Storage) UpdatePoll(pollID []byte, fn func(*types.Poll) error) (*types.Poll, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.updatePoll(pollID, fn)
}

func (s *Storage) updatePoll(pollID []byte, fn func(*types.Poll) error) (*types.Poll, error) {
	p, err := s.Poll(pollID)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.SetPoll(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPolls returns the IDs of every stored poll.
func (s *Storage) ListPolls() ([][]byte, error) {
	return s.listArtifacts(pollPrefix)
}

// SetEncryptionKeys stores the key pair of a poll. The secret never leaves
// the storage except through EncryptionKeys.
func (s *Storage) SetEncryptionKeys(pollID []byte, publicKey ecc.Point, secret *big.Int) error {
	x, y := publicKey.Point()
	return s.setArtifact(encryptionKeyPrefix, pollID, &encryptionKeys{
		CurveType: publicKey.Type(),
		X:         types.NewBigInt(x),
		Y:         types.NewBigInt(y),
		Secret:    types.NewBigInt(secret),
	})
}

// EncryptionKeys loads the key pair of a poll. Returns ErrNotFound if the
// keys do not exist.
func (s *Storage) EncryptionKeys(pollID []byte) (ecc.Point, *big.Int, error) {
	eks := &encryptionKeys{}
	if err := s.getArtifact(encryptionKeyPrefix, pollID, eks); err != nil {
		return nil, nil, fmt.Errorf("could not read encryption keys: %w", err)
	}
	curve, err := curves.New(eks.CurveType)
	if err != nil {
		return nil, nil, err
	}
	pk, err := curve.NewPoint(eks.X.MathBigInt(), eks.Y.MathBigInt())
	if err != nil {
		return nil, nil, fmt.Errorf("stored public key: %w", err)
	}
	return pk, eks.Secret.MathBigInt(), nil
}
