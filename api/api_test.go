package api_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zktally/api"
	"github.com/vocdoni/zktally/api/client"
	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/crypto/ecc/curves"
	"github.com/vocdoni/zktally/crypto/elgamal"
	"github.com/vocdoni/zktally/nullifier"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/sequencer"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/tally"
	"github.com/vocdoni/zktally/types"
)

func newTestAPI(c *qt.C) *client.HTTPclient {
	database := metadb.NewTest(c.TB)
	stg := storage.New(database)
	registry := prover.NewRegistry(&prover.Groth16{}, nil)
	seq, err := sequencer.New(stg, registry, nil, time.Second)
	c.Assert(err, qt.IsNil)
	a, err := api.New(&api.APIConfig{
		Host:      "127.0.0.1",
		Port:      0,
		Storage:   stg,
		CensusDB:  census.NewCensusDB(database),
		Polls:     poll.NewManager(stg, registry, nil),
		Sequencer: seq,
	})
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = a.Stop(context.Background()) })

	cli, err := client.New(fmt.Sprintf("http://%s", a.Addr().String()))
	c.Assert(err, qt.IsNil)
	return cli
}

func assertAPIError(c *qt.C, err error, expected api.Error) {
	var apiErr *client.Error
	c.Assert(errors.As(err, &apiErr), qt.IsTrue, qt.Commentf("unexpected error %v", err))
	c.Assert(apiErr.Code, qt.Equals, expected.Code)
	c.Assert(apiErr.HTTPStatus, qt.Equals, expected.HTTPstatus)
}

func TestCensusEndpoints(t *testing.T) {
	c := qt.New(t)
	cli := newTestAPI(c)

	id, err := cli.NewCensus()
	c.Assert(err, qt.IsNil)
	ids := []*nullifier.Identity{nullifier.NewIdentity(), nullifier.NewIdentity(), nullifier.NewIdentity()}
	commitments := make([]*big.Int, len(ids))
	for i, v := range ids {
		commitments[i] = v.Commitment()
	}
	added, err := cli.AddParticipants(id, commitments)
	c.Assert(err, qt.IsNil)
	c.Assert(added.FirstIndex, qt.Equals, uint64(0))
	c.Assert(added.Size, qt.Equals, 3)

	root, err := cli.CensusRoot(id)
	c.Assert(err, qt.IsNil)
	c.Assert(root.Root, qt.DeepEquals, added.Root)

	proof, err := cli.CensusProof(id, 2)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Verify(), qt.IsTrue)
	c.Assert(proof.Commitment().Cmp(commitments[2]), qt.Equals, 0)

	_, err = cli.CensusProof(id, 9)
	assertAPIError(c, err, api.ErrResourceNotFound)

	_, err = cli.AddParticipants(id, nil)
	assertAPIError(c, err, api.ErrMalformedBody)

	data, status, err := cli.Request(client.HTTPGET, nil, nil, "/censuses/not-a-uuid/root")
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, http.StatusBadRequest, qt.Commentf("%s", data))
}

func TestPollEndpoints(t *testing.T) {
	c := qt.New(t)
	cli := newTestAPI(c)

	id, err := cli.NewCensus()
	c.Assert(err, qt.IsNil)
	added, err := cli.AddParticipants(id, []*big.Int{nullifier.NewIdentity().Commitment()})
	c.Assert(err, qt.IsNil)

	cfg := &types.PollConfig{
		Organizer:  common.HexToAddress("0x9b1d8d2b2f5f0b7a3d6b9c2f7e1a4c5d6e7f8091"),
		Nonce:      1,
		ChainID:    1,
		NumOptions: 2,
		Variant:    types.VariantVector,
		CensusRoot: added.Root,
	}
	p, err := cli.NewPoll(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(p.Status, qt.Equals, types.PollStatusReady)
	c.Assert(p.CensusID, qt.Equals, id.String())

	_, err = cli.NewPoll(cfg)
	assertAPIError(c, err, api.ErrPollAlreadyExists)

	unknown := *cfg
	unknown.Nonce = 2
	unknown.CensusRoot = make([]byte, 32)
	_, err = cli.NewPoll(&unknown)
	assertAPIError(c, err, api.ErrCensusNotFound)

	got, err := cli.Poll(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.EncryptionKey.X.Equal(p.EncryptionKey.X), qt.IsTrue)

	_, err = cli.Poll(make([]byte, types.PollIDLen))
	assertAPIError(c, err, api.ErrPollNotFound)
	_, err = cli.Poll([]byte{1, 2})
	assertAPIError(c, err, api.ErrMalformedPollID)

	_, err = cli.Tally(p.ID)
	assertAPIError(c, err, api.ErrPollNotClosed)
	_, err = cli.Results(p.ID)
	assertAPIError(c, err, api.ErrResultNotAvailable)

	// three ciphertexts for a two option poll
	keys, err := elgamal.GenerateKey(curves.Default())
	c.Assert(err, qt.IsNil)
	cts, _, err := elgamal.EncryptOneHot(keys.Curve, keys.Public, elgamal.OneHot(1, 3), nil)
	c.Assert(err, qt.IsNil)
	_, err = cli.Vote(&storage.Ballot{
		PollID:           p.ID,
		Ballot:           elgamal.NewBallot(keys.Curve, cts),
		VoteProof:        &prover.Proof{},
		EligibilityProof: &prover.Proof{},
		Nullifier:        types.NewInt(1),
		CensusRoot:       p.CensusRoot,
	})
	assertAPIError(c, err, api.ErrInvalidBallot)

	_, err = cli.VoteStatus(p.ID, big.NewInt(1))
	assertAPIError(c, err, api.ErrResourceNotFound)

	closed, err := cli.ClosePoll(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(closed.Status, qt.Equals, types.PollStatusClosed)
	_, err = cli.ClosePoll(p.ID)
	assertAPIError(c, err, api.ErrPollNotAccepting)

	if testing.Short() {
		return
	}
	cli.SetTimeout(5 * time.Minute)
	result, err := cli.Tally(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Tally, qt.DeepEquals, tally.Tally{0, 0})
	published, err := cli.Results(p.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(published.Proof.Data, qt.DeepEquals, result.Proof.Data)
}
