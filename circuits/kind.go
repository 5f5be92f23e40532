package circuits

import "fmt"

// RelationKind names a family of relations. Together with the option count
// it identifies a compiled relation.
type RelationKind string

const (
	KindVoteScalar  RelationKind = "vote-scalar"
	KindVoteVector  RelationKind = "vote-vector"
	KindTally       RelationKind = "tally"
	KindEligibility RelationKind = "eligibility"
)

// Kinds lists every relation kind.
func Kinds() []RelationKind {
	return []RelationKind{KindVoteScalar, KindVoteVector, KindTally, KindEligibility}
}

// Valid reports whether k is a known kind.
func (k RelationKind) Valid() bool {
	switch k {
	case KindVoteScalar, KindVoteVector, KindTally, KindEligibility:
		return true
	}
	return false
}

// RelationID identifies a relation: its kind and the option count it was
// compiled for. Eligibility does not depend on the options and always uses 0.
type RelationID struct {
	Kind       RelationKind `json:"kind" cbor:"0,keyasint"`
	NumOptions int          `json:"numOptions" cbor:"1,keyasint"`
}

func (id RelationID) String() string {
	return fmt.Sprintf("%s/%d", id.Kind, id.NumOptions)
}
