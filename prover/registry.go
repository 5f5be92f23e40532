package prover

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/logger"
	"golang.org/x/sync/singleflight"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/circuits/eligibility"
	"github.com/vocdoni/zktally/circuits/tallyproof"
	"github.com/vocdoni/zktally/circuits/voteproof"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/types"
)

// ErrArtifactsNotIndexed is returned by an ArtifactIndex for relations that
// were never set up.
var ErrArtifactsNotIndexed = errors.New("relation artifacts not indexed")

// ArtifactIndex remembers the artifact hashes of every relation set up, so
// a restarted node loads them instead of running the setup again.
type ArtifactIndex interface {
	RelationArtifacts(key string) ([3]types.HexBytes, error)
	SetRelationArtifacts(key string, hashes [3]types.HexBytes) error
}

// Placeholder returns the circuit to compile for a relation.
func Placeholder(id circuits.RelationID) (frontend.Circuit, error) {
	n := id.NumOptions
	switch id.Kind {
	case circuits.KindVoteScalar:
		if n < 2 || n > types.MaxOptions {
			return nil, fmt.Errorf("invalid option count %d for %s", n, id.Kind)
		}
		return voteproof.ScalarPlaceholder(n), nil
	case circuits.KindVoteVector:
		if n < 2 || n > types.MaxOptions {
			return nil, fmt.Errorf("invalid option count %d for %s", n, id.Kind)
		}
		return voteproof.VectorPlaceholder(n), nil
	case circuits.KindTally:
		if n < 1 || n > types.MaxOptions {
			return nil, fmt.Errorf("invalid option count %d for %s", n, id.Kind)
		}
		return tallyproof.Placeholder(n), nil
	case circuits.KindEligibility:
		if n != 0 {
			return nil, fmt.Errorf("eligibility relation does not depend on options, got %d", n)
		}
		return eligibility.Placeholder(), nil
	}
	return nil, fmt.Errorf("unknown relation kind %q", id.Kind)
}

// Registry sets up every relation once and serves it to provers and
// verifiers. Relations live in memory; with an index their artifacts are
// also written to the artifact cache and reloaded on restart.
type Registry struct {
	pipeline Pipeline
	index    ArtifactIndex
	// mirror serves the artifacts missing from the local cache.
	mirror string

	mu        sync.RWMutex
	relations map[circuits.RelationID]*Relation
	setup     singleflight.Group
}

// NewRegistry returns a registry over a pipeline. The index may be nil.
func NewRegistry(pipeline Pipeline, index ArtifactIndex) *Registry {
	if log.Level() == log.LogLevelDebug {
		logger.Set(*log.Logger())
	} else {
		logger.Disable()
	}
	return &Registry{
		pipeline:  pipeline,
		index:     index,
		relations: make(map[circuits.RelationID]*Relation),
	}
}

// SetMirror makes the registry download indexed artifacts missing from the
// local cache from baseURL.
func (r *Registry) SetMirror(baseURL string) {
	r.mirror = baseURL
}

// Pipeline returns the proving backend of the registry.
func (r *Registry) Pipeline() Pipeline {
	return r.pipeline
}

func (r *Registry) indexKey(id circuits.RelationID) string {
	return fmt.Sprintf("%s/%s", r.pipeline.Backend(), id)
}

// Relation returns the relation for id, loading or setting it up on first
// use. Concurrent callers wait for a single setup.
func (r *Registry) Relation(id circuits.RelationID) (*Relation, error) {
	r.mu.RLock()
	rel, ok := r.relations[id]
	r.mu.RUnlock()
	if ok {
		return rel, nil
	}
	v, err, _ := r.setup.Do(id.String(), func() (any, error) {
		r.mu.RLock()
		rel, ok := r.relations[id]
		r.mu.RUnlock()
		if ok {
			return rel, nil
		}
		rel, err := r.load(id)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.relations[id] = rel
		r.mu.Unlock()
		return rel, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Relation), nil
}

func (r *Registry) load(id circuits.RelationID) (*Relation, error) {
	placeholder, err := Placeholder(id)
	if err != nil {
		return nil, err
	}
	if r.index == nil {
		return r.pipeline.Setup(id, placeholder)
	}
	hashes, err := r.index.RelationArtifacts(r.indexKey(id))
	switch {
	case err == nil:
		rel, err := r.loadArtifacts(id, hashes)
		if err == nil {
			log.Infow("relation loaded from artifacts", "relation", rel.String())
			return rel, nil
		}
		log.Warnw("cannot load relation artifacts, running setup again", "relation", id.String(), "err", err)
	case !errors.Is(err, ErrArtifactsNotIndexed):
		return nil, err
	}

	rel, err := r.pipeline.Setup(id, placeholder)
	if err != nil {
		return nil, err
	}
	ccs, pk, vk := rel.Artifacts()
	artifacts := circuits.NewCircuitArtifacts(circuits.NewArtifact(ccs), circuits.NewArtifact(pk), circuits.NewArtifact(vk))
	if err := artifacts.StoreAll(); err != nil {
		return nil, fmt.Errorf("cannot store %s artifacts: %w", id, err)
	}
	if err := r.index.SetRelationArtifacts(r.indexKey(id), artifacts.Hashes()); err != nil {
		return nil, err
	}
	log.Infow("relation set up", "relation", rel.String(), "constraints", rel.NbConstraints())
	return rel, nil
}

func (r *Registry) loadArtifacts(id circuits.RelationID, hashes [3]types.HexBytes) (*Relation, error) {
	var list [3]*circuits.Artifact
	for i, hash := range hashes {
		list[i] = &circuits.Artifact{Hash: hash}
		if r.mirror != "" {
			remote, err := circuits.ArtifactURL(r.mirror, hash)
			if err != nil {
				return nil, err
			}
			list[i].RemoteURL = remote
		}
	}
	artifacts := circuits.NewCircuitArtifacts(list[0], list[1], list[2])
	if err := artifacts.LoadAll(context.Background()); err != nil {
		return nil, err
	}
	return r.pipeline.Load(id, artifacts.CircuitDefinition(), artifacts.ProvingKey(), artifacts.VerifyingKey())
}

// Prove proves an assignment of the relation id.
func (r *Registry) Prove(id circuits.RelationID, assignment frontend.Circuit) (*Proof, error) {
	rel, err := r.Relation(id)
	if err != nil {
		return nil, err
	}
	return r.pipeline.Prove(rel, assignment)
}

// Verify checks a proof of the relation id.
func (r *Registry) Verify(id circuits.RelationID, publicInputs []*big.Int, proof *Proof) error {
	rel, err := r.Relation(id)
	if err != nil {
		return err
	}
	return r.pipeline.Verify(rel, publicInputs, proof)
}
