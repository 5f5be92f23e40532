// Package poll manages the lifecycle of a poll: creation with a fresh
// encryption key, closing, tallying and verification of the published result.
package poll

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/circuits/voteproof"
	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/tally"
	"github.com/vocdoni/zktally/types"
)

var (
	// ErrPollNotFound is returned for unknown poll IDs.
	ErrPollNotFound = errors.New("poll not found")
	// ErrPollExists is returned when creating a poll twice.
	ErrPollExists = errors.New("poll already exists")
	// ErrPollNotAccepting is returned for ballots or closes of a poll that
	// is no longer open.
	ErrPollNotAccepting = errors.New("poll is not accepting ballots")
	// ErrPollNotClosed is returned when tallying an open poll.
	ErrPollNotClosed = errors.New("poll is not closed")
	// ErrBallotsPending is returned when tallying a poll with queued ballots.
	ErrBallotsPending = errors.New("poll has pending ballots")
	// ErrResultMismatch is returned when a stored result does not match
	// the poll aggregate.
	ErrResultMismatch = errors.New("result does not match the poll aggregate")
)

// Manager creates, closes and tallies polls.
type Manager struct {
	stg    *storage.Storage
	curve  ecc.Curve
	prover *tally.Prover
}

// NewManager returns a poll manager. A nil curve selects the default one.
func NewManager(stg *storage.Storage, registry *prover.Registry, curve ecc.Curve) *Manager {
	if curve == nil {
		curve = curves.Default()
	}
	return &Manager{stg: stg, curve: curve, prover: tally.NewProver(registry)}
}

// MetadataHash is the keccak256 digest of the public poll parameters.
func MetadataHash(cfg *types.PollConfig) []byte {
	return ethcrypto.Keccak256(
		cfg.PollID().Marshal(),
		[]byte(cfg.Variant),
		big.NewInt(int64(cfg.NumOptions)).Bytes(),
		cfg.CensusRoot,
		[]byte(cfg.Title),
	)
}

// Create generates the poll key pair, keeps the secret in storage and
// publishes the poll with its public key.
func (m *Manager) Create(ctx context.Context, cfg *types.PollConfig) (*types.Poll, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := elgamal.GenerateKey(m.curve)
	if err != nil {
		return nil, err
	}
	x, y := keys.Public.Point()
	p := &types.Poll{
		ID:            cfg.PollID().Marshal(),
		Organizer:     cfg.Organizer,
		Status:        types.PollStatusReady,
		NumOptions:    cfg.NumOptions,
		Variant:       cfg.Variant,
		CensusID:      cfg.CensusID,
		CensusRoot:    cfg.CensusRoot,
		EncryptionKey: &types.EncryptionKey{X: types.NewBigInt(x), Y: types.NewBigInt(y)},
		Title:         cfg.Title,
		MetadataHash:  MetadataHash(cfg),
		CreatedAt:     time.Now(),
	}
	if err := m.stg.NewPoll(p); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrPollExists, p.ID)
		}
		return nil, err
	}
	if err := m.stg.SetEncryptionKeys(p.ID, keys.Public, keys.Secret); err != nil {
		return nil, fmt.Errorf("cannot store poll keys: %w", err)
	}
	log.Infow("poll created", "poll", p.ID.String(), "options", p.NumOptions, "variant", p.Variant)
	return p, nil
}

// Get returns a poll.
func (m *Manager) Get(pollID []byte) (*types.Poll, error) {
	p, err := m.stg.Poll(pollID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %x", ErrPollNotFound, pollID)
	}
	return p, err
}

// List returns every poll.
func (m *Manager) List() ([]*types.Poll, error) {
	ids, err := m.stg.ListPolls()
	if err != nil {
		return nil, err
	}
	polls := make([]*types.Poll, 0, len(ids))
	for _, id := range ids {
		p, err := m.stg.Poll(id)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, nil
}

// Close freezes the submissions of an open poll. Ballots already queued are
// still processed.
func (m *Manager) Close(pollID []byte) (*types.Poll, error) {
	p, err := m.stg.UpdatePoll(pollID, func(p *types.Poll) error {
		if !p.Accepting() {
			return fmt.Errorf("%w: poll is %s", ErrPollNotAccepting, p.Status)
		}
		p.Status = types.PollStatusClosed
		p.ClosedAt = time.Now()
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %x", ErrPollNotFound, pollID)
	}
	if err != nil {
		return nil, err
	}
	log.Infow("poll closed", "poll", p.ID.String(), "accepted", p.Accepted, "rejected", p.Rejected)
	return p, nil
}

// UpperBound returns the largest value a slot of the aggregate can hold
// after accepted ballots: the vector slots count ballots, the scalar slot
// sums choice indexes.
func UpperBound(p *types.Poll, accepted uint64) uint64 {
	if p.Variant == types.VariantScalar {
		return accepted * uint64(p.NumOptions-1)
	}
	return accepted
}

// aggregate returns the stored aggregate of a poll, or the encryption of
// zero in every slot if no ballot was accepted.
func (m *Manager) aggregate(p *types.Poll) (*storage.Aggregate, error) {
	agg, err := m.stg.Aggregate(p.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return &storage.Aggregate{Sums: elgamal.NewAccumulator(m.curve, p.Slots()).Sum()}, nil
	}
	return agg, err
}

// Tally decrypts the aggregate of a closed poll, proves the decryption and
// stores the result. Tallying a tallied poll returns the stored result.
func (m *Manager) Tally(ctx context.Context, pollID []byte) (*tally.Result, error) {
	p, err := m.Get(pollID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case types.PollStatusTallied:
		return m.stg.Result(pollID)
	case types.PollStatusReady:
		return nil, ErrPollNotClosed
	}
	if pending := m.stg.CountPendingBallots(pollID); pending > 0 {
		return nil, fmt.Errorf("%w: %d", ErrBallotsPending, pending)
	}
	pk, sk, err := m.stg.EncryptionKeys(pollID)
	if err != nil {
		return nil, err
	}
	keys, err := elgamal.NewKeyPair(m.curve, sk)
	if err != nil {
		return nil, err
	}
	if !keys.Public.Equal(pk) {
		return nil, fmt.Errorf("stored secret does not match the poll key")
	}
	agg, err := m.aggregate(p)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := m.prover.Prove(ctx, keys, agg.Sums, UpperBound(p, agg.Count))
	if err != nil {
		return nil, err
	}
	result.PollID = p.ID
	result.Ballots = agg.Count
	if err := m.stg.SetResult(pollID, result); err != nil {
		return nil, err
	}
	if _, err := m.stg.UpdatePoll(pollID, func(p *types.Poll) error {
		p.Status = types.PollStatusTallied
		return nil
	}); err != nil {
		return nil, err
	}
	log.Infow("poll tallied",
		"poll", p.ID.String(),
		"tally", fmt.Sprint(result.Tally),
		"ballots", agg.Count,
		"took", time.Since(start).String())
	return result, nil
}

// Result returns the published result of a tallied poll.
func (m *Manager) Result(pollID []byte) (*tally.Result, error) {
	r, err := m.stg.Result(pollID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: no result for %x", ErrPollNotFound, pollID)
	}
	return r, err
}

// VerifyResult checks the stored result of a poll against the poll key and
// the aggregate of its accepted ballots.
func (m *Manager) VerifyResult(pollID []byte) error {
	p, err := m.Get(pollID)
	if err != nil {
		return err
	}
	r, err := m.Result(pollID)
	if err != nil {
		return err
	}
	return m.Verify(p, r)
}

// Verify checks a result against a poll, recomputing the aggregate from
// the stored state.
func (m *Manager) Verify(p *types.Poll, r *tally.Result) error {
	pk, err := EncryptionKey(m.curve, p)
	if err != nil {
		return err
	}
	agg, err := m.aggregate(p)
	if err != nil {
		return err
	}
	if len(r.Aggregate) != len(agg.Sums) || r.Ballots != agg.Count {
		return ErrResultMismatch
	}
	for i := range agg.Sums {
		if !agg.Sums[i].Equal(r.Aggregate[i]) {
			return fmt.Errorf("%w: slot %d", ErrResultMismatch, i)
		}
	}
	return m.prover.Verify(pk, agg.Sums, r)
}

// EncryptionKey decodes the published key of a poll.
func EncryptionKey(curve ecc.Curve, p *types.Poll) (ecc.Point, error) {
	if p.EncryptionKey == nil || p.EncryptionKey.X == nil || p.EncryptionKey.Y == nil {
		return nil, fmt.Errorf("poll %s has no encryption key", p.ID)
	}
	return curve.NewPoint(p.EncryptionKey.X.MathBigInt(), p.EncryptionKey.Y.MathBigInt())
}

// VoteRelation returns the relation the ballots of a poll are proven with.
func VoteRelation(p *types.Poll) circuits.RelationID {
	if p.Variant == types.VariantScalar {
		return circuits.RelationID{Kind: circuits.KindVoteScalar, NumOptions: p.NumOptions}
	}
	return circuits.RelationID{Kind: circuits.KindVoteVector, NumOptions: p.NumOptions}
}

// VotePublicInputs returns the public inputs of the vote proof of a ballot.
func VotePublicInputs(p *types.Poll, pk ecc.Point, ballot *elgamal.Ballot) ([]*big.Int, error) {
	if err := ballot.Validate(p.Slots()); err != nil {
		return nil, err
	}
	if p.Variant == types.VariantScalar {
		return voteproof.ScalarPublicInputs(pk, ballot.Ciphertexts[0]), nil
	}
	return voteproof.VectorPublicInputs(pk, ballot.Ciphertexts), nil
}
