package format

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

// generator of the subgroup in both forms
var (
	teX, _  = new(big.Int).SetString("5299619240641551281634865583518297030282874472190772894086521144482721001553", 10)
	rteX, _ = new(big.Int).SetString("9671717474070082183213120605117400219616337014328744928644933853176787189663", 10)
	genY, _ = new(big.Int).SetString("16950150798460657717958625567821834550301663161624707787222815936182638968203", 10)
)

func TestGeneratorConversion(t *testing.T) {
	c := qt.New(t)
	x, y := FromTEtoRTE(teX, genY)
	c.Assert(x.Cmp(rteX), qt.Equals, 0)
	c.Assert(y.Cmp(genY), qt.Equals, 0)

	x, y = FromRTEtoTE(rteX, genY)
	c.Assert(x.Cmp(teX), qt.Equals, 0)
	c.Assert(y.Cmp(genY), qt.Equals, 0)
}

func TestIdentityConversion(t *testing.T) {
	c := qt.New(t)
	x, y := FromTEtoRTE(big.NewInt(0), big.NewInt(1))
	c.Assert(x.Sign(), qt.Equals, 0)
	c.Assert(y.Int64(), qt.Equals, int64(1))
}

func TestMarshal(t *testing.T) {
	c := qt.New(t)
	buf := Marshal(rteX, genY)
	c.Assert(buf, qt.HasLen, 64)
	x, y, err := Unmarshal(buf)
	c.Assert(err, qt.IsNil)
	c.Assert(x.Cmp(rteX), qt.Equals, 0)
	c.Assert(y.Cmp(genY), qt.Equals, 0)

	_, _, err = Unmarshal(buf[:63])
	c.Assert(err, qt.IsNotNil)

	bad := Marshal(BaseField(), genY)
	_, _, err = Unmarshal(bad)
	c.Assert(err, qt.ErrorMatches, "coordinate out of the base field")
}
