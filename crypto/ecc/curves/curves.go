// Package curves builds ecc.Curve implementations by name.
package curves

import (
	"fmt"

	"github.com/vocdoni/zktally/crypto/ecc"
	bjj_gnark "github.com/vocdoni/zktally/crypto/ecc/bjj_gnark"
	bjj_iden3 "github.com/vocdoni/zktally/crypto/ecc/bjj_iden3"
)

const (
	CurveTypeBabyJubJub      = CurveTypeBabyJubJubGnark // default
	CurveTypeBabyJubJubGnark = bjj_gnark.CurveType
	CurveTypeBabyJubJubIden3 = bjj_iden3.CurveType
)

// New returns the curve implementation for curveType.
func New(curveType string) (ecc.Curve, error) {
	switch curveType {
	case CurveTypeBabyJubJubGnark:
		return bjj_gnark.New(), nil
	case CurveTypeBabyJubJubIden3:
		return bjj_iden3.New(), nil
	default:
		return nil, fmt.Errorf("unsupported curve type: %s", curveType)
	}
}

// Default returns the gnark-crypto backed BabyJubJub.
func Default() ecc.Curve {
	return bjj_gnark.New()
}

// Curves returns the supported curve types.
func Curves() []string {
	return []string{CurveTypeBabyJubJubGnark, CurveTypeBabyJubJubIden3}
}
