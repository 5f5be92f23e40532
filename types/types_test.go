package types

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/fxamacker/cbor/v2"
)

func TestPollIDMarshal(t *testing.T) {
	c := qt.New(t)
	pid := &PollID{
		Organizer: common.HexToAddress("0x0102030405060708090a0b0c0d0e0f1011121314"),
		Nonce:     7,
		ChainID:   1337,
	}
	data := pid.Marshal()
	c.Assert(data, qt.HasLen, PollIDLen)

	parsed, err := ParsePollID("0x" + pid.String())
	c.Assert(err, qt.IsNil)
	c.Assert(parsed, qt.DeepEquals, pid)

	c.Assert((&PollID{}).Unmarshal(data[:31]), qt.IsNotNil)
}

func TestPollContextReduced(t *testing.T) {
	c := qt.New(t)
	a := &PollID{Nonce: 1, ChainID: 1}
	b := &PollID{Nonce: 2, ChainID: 1}
	c.Assert(a.Context().Cmp(b.Context()), qt.Not(qt.Equals), 0)
	c.Assert(a.Context().Cmp(a.Context()), qt.Equals, 0)

	// all 0xff is above the field modulus
	max := make([]byte, PollIDLen)
	for i := range max {
		max[i] = 0xff
	}
	ctx := PollContext(max)
	c.Assert(ctx.Cmp(PollContext(max)), qt.Equals, 0)
	c.Assert(ctx.BitLen() <= 254, qt.IsTrue)
}

func TestHexBytesJSON(t *testing.T) {
	c := qt.New(t)
	b := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(b)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"deadbeef"`)

	var out HexBytes
	c.Assert(json.Unmarshal([]byte(`"0xdeadbeef"`), &out), qt.IsNil)
	c.Assert(out, qt.DeepEquals, b)
	c.Assert(json.Unmarshal([]byte(`"zz"`), &out), qt.IsNotNil)
}

func TestPollStatusAndConfig(t *testing.T) {
	c := qt.New(t)
	p := &Poll{ID: HexBytes{1}, Status: PollStatusClosed, Variant: VariantVector, NumOptions: 8}
	data, err := json.Marshal(p)
	c.Assert(err, qt.IsNil)
	var decoded Poll
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded.Status, qt.Equals, PollStatusClosed)
	c.Assert(decoded.Accepting(), qt.IsFalse)

	cborData, err := cbor.Marshal(p)
	c.Assert(err, qt.IsNil)
	var fromCBOR Poll
	c.Assert(cbor.Unmarshal(cborData, &fromCBOR), qt.IsNil)
	c.Assert(fromCBOR.NumOptions, qt.Equals, 8)

	cfg := &PollConfig{NumOptions: 1, Variant: VariantScalar, CensusRoot: HexBytes{1}}
	c.Assert(cfg.Validate(), qt.ErrorMatches, "number of options.*")
	cfg.NumOptions = 8
	c.Assert(cfg.Validate(), qt.IsNil)
	cfg.Variant = "ranked"
	c.Assert(cfg.Validate(), qt.ErrorMatches, "unknown variant.*")
}
