package tally

import (
	"context"
	"fmt"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/circuits/tallyproof"
	"github.com/vocdoni/zktally/crypto/ecc"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/types"
)

// Result is a published tally with the proof that it decrypts the
// aggregate under the poll key.
type Result struct {
	PollID        types.HexBytes        `json:"pollId"        cbor:"0,keyasint"`
	EncryptionKey *ecc.PointEC          `json:"encryptionKey" cbor:"1,keyasint"`
	Aggregate     []*elgamal.Ciphertext `json:"aggregate"     cbor:"2,keyasint"`
	Tally         Tally                 `json:"tally"         cbor:"3,keyasint"`
	UpperBound    uint64                `json:"upperBound"    cbor:"4,keyasint"`
	Ballots       uint64                `json:"ballots"       cbor:"5,keyasint"`
	Proof         *prover.Proof         `json:"proof"         cbor:"6,keyasint"`
}

// Relation returns the id of the tally relation for n slots.
func Relation(n int) circuits.RelationID {
	return circuits.RelationID{Kind: circuits.KindTally, NumOptions: n}
}

// Prover decrypts aggregates and proves the decryption through a registry.
type Prover struct {
	registry *prover.Registry
}

// NewProver returns a tally prover over the registry.
func NewProver(registry *prover.Registry) *Prover {
	return &Prover{registry: registry}
}

// Prove decrypts the aggregate with the poll keys and proves the result.
// Decryption failures are returned before any proving starts.
func (p *Prover) Prove(ctx context.Context, keys *elgamal.KeyPair, aggregate []*elgamal.Ciphertext, upperBound uint64) (*Result, error) {
	t, err := Decrypt(ctx, keys, aggregate, upperBound)
	if err != nil {
		return nil, err
	}
	assignment, err := tallyproof.Assignment(keys.Public, aggregate, t, keys.Secret)
	if err != nil {
		return nil, err
	}
	proof, err := p.registry.Prove(Relation(len(aggregate)), assignment)
	if err != nil {
		return nil, fmt.Errorf("cannot prove tally: %w", err)
	}
	log.Debugw("tally proven", "slots", len(aggregate), "total", t.Total())
	return &Result{
		EncryptionKey: ecc.EncodePoint(keys.Public),
		Aggregate:     aggregate,
		Tally:         t,
		UpperBound:    upperBound,
		Proof:         proof,
	}, nil
}

// Verify checks a published result against the poll public key and the
// aggregate the verifier computed on its own.
func (p *Prover) Verify(pk ecc.Point, aggregate []*elgamal.Ciphertext, r *Result) error {
	if r == nil || r.Proof == nil {
		return fmt.Errorf("%w: missing result proof", prover.ErrInvalidProof)
	}
	if len(r.Tally) != len(aggregate) {
		return fmt.Errorf("%w: %d tally values for %d aggregated slots",
			elgamal.ErrOptionCountMismatch, len(r.Tally), len(aggregate))
	}
	for i, ct := range aggregate {
		if ct == nil {
			return fmt.Errorf("slot %d: %w", i, elgamal.ErrInvalidCiphertext)
		}
	}
	inputs := tallyproof.PublicInputs(pk, aggregate, r.Tally)
	return p.registry.Verify(Relation(len(aggregate)), inputs, r.Proof)
}
