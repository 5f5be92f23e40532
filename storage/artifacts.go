package storage

import (
	"errors"

	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/types"
)

// RelationArtifacts returns the artifact hashes of a relation set up by a
// previous run: constraint system, proving key and verifying key.
func (s *Storage) RelationArtifacts(key string) ([3]types.HexBytes, error) {
	var hashes [3]types.HexBytes
	if err := s.getArtifact(artifactIndexPrefix, []byte(key), &hashes); err != nil {
		if errors.Is(err, ErrNotFound) {
			return hashes, prover.ErrArtifactsNotIndexed
		}
		return hashes, err
	}
	return hashes, nil
}

// SetRelationArtifacts remembers the artifact hashes of a relation.
func (s *Storage) SetRelationArtifacts(key string, hashes [3]types.HexBytes) error {
	return s.setArtifact(artifactIndexPrefix, []byte(key), hashes)
}
