package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cannot build cbor encoder: %v", err))
	}
	return em
}()

// encodeArtifact encodes with the deterministic CBOR options, so equal
// artifacts always produce equal bytes and keys.
func encodeArtifact(a any) ([]byte, error) {
	data, err := encMode.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// scopedKey returns pollID | key.
func scopedKey(pollID, key []byte) []byte {
	k := make([]byte, 0, len(pollID)+len(key))
	k = append(k, pollID...)
	return append(k, key...)
}
