package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/arbo/memdb"
	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/zktally/api/client"
	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/nullifier"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/service"
	"github.com/vocdoni/zktally/storage"
	"github.com/vocdoni/zktally/types"
	"github.com/vocdoni/zktally/util"
	"github.com/vocdoni/zktally/voter"
)

const testOrganizer = "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"

func parseVotes(s string) ([]int, error) {
	var votes []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("invalid vote %q: %w", f, err)
		}
		votes = append(votes, v)
	}
	return votes, nil
}

func main() {
	numOptions := flag.Int("options", 8, "number of options of the poll")
	variant := flag.String("variant", string(types.VariantVector), "ballot variant (scalar or vector)")
	votesFlag := flag.String("votes", "0,2,2,1,2", "comma separated choices, one per voter")
	logLevel := flag.String("logLevel", "info", "log level")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	votes, err := parseVotes(*votesFlag)
	if err != nil {
		log.Fatal(err)
	}
	if err := run(*numOptions, types.Variant(*variant), votes); err != nil {
		log.Fatal(err)
	}
}

func run(numOptions int, variant types.Variant, votes []int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// node in memory, voters and the node share the registry
	kv := memdb.New()
	stg := storage.New(kv)
	defer stg.Close()
	registry := prover.NewRegistry(&prover.Groth16{}, nil)
	polls := poll.NewManager(stg, registry, nil)

	seq, err := service.NewSequencer(stg, registry, 200*time.Millisecond)
	if err != nil {
		return err
	}
	if err := seq.Start(ctx); err != nil {
		return err
	}
	defer seq.Stop()
	apiService := service.NewAPI(stg, census.NewCensusDB(kv), polls, seq.Sequencer, "127.0.0.1", 0)
	if err := apiService.Start(ctx); err != nil {
		return err
	}
	defer apiService.Stop()
	host, port := apiService.HostPort()
	cli, err := client.New(fmt.Sprintf("http://%s:%d", host, port))
	if err != nil {
		return err
	}
	// the tally request sets up and runs the tally prover
	cli.SetTimeout(10 * time.Minute)

	// census
	ids := make([]*nullifier.Identity, len(votes))
	commitments := make([]*big.Int, len(votes))
	for i := range ids {
		ids[i] = nullifier.NewIdentity()
		commitments[i] = ids[i].Commitment()
	}
	censusID, err := cli.NewCensus()
	if err != nil {
		return err
	}
	added, err := cli.AddParticipants(censusID, commitments)
	if err != nil {
		return err
	}
	log.Infow("census created", "id", censusID.String(), "root", added.Root.String(), "size", added.Size)

	// poll
	start := time.Now()
	p, err := cli.NewPoll(&types.PollConfig{
		Organizer:  common.HexToAddress(testOrganizer),
		Nonce:      uint64(time.Now().Unix()),
		ChainID:    1,
		NumOptions: numOptions,
		Variant:    variant,
		CensusRoot: added.Root,
		Title:      "e2e poll " + util.RandomHex(4),
	})
	if err != nil {
		return err
	}
	log.Infow("poll created", "pollID", p.ID.String(), "took", time.Since(start).String())

	// ballots are proved in parallel and submitted through the API
	start = time.Now()
	g, _ := errgroup.WithContext(ctx)
	nullifiers := make([]*big.Int, len(votes))
	for i, choice := range votes {
		g.Go(func() error {
			proof, err := cli.CensusProof(censusID, added.FirstIndex+uint64(i))
			if err != nil {
				return err
			}
			ballot, err := voter.New(ids[i], registry, nil).Vote(p, proof, choice)
			if err != nil {
				return fmt.Errorf("voter %d: %w", i, err)
			}
			if _, err := cli.Vote(ballot); err != nil {
				return fmt.Errorf("voter %d: %w", i, err)
			}
			nullifiers[i] = ballot.Nullifier.MathBigInt()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Infow("ballots submitted", "count", len(votes), "took", time.Since(start).String())

	// wait for the sequencer
	deadline := time.Now().Add(5 * time.Minute)
	for {
		pending := 0
		for i, n := range nullifiers {
			st, err := cli.VoteStatus(p.ID, n)
			if err != nil {
				return err
			}
			switch st.Status {
			case storage.BallotStatusPending:
				pending++
			case storage.BallotStatusRejected:
				return fmt.Errorf("ballot of voter %d rejected: %s", i, st.Reason)
			}
		}
		if pending == 0 {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%d ballots still pending", pending)
		}
		time.Sleep(500 * time.Millisecond)
	}

	if _, err := cli.ClosePoll(p.ID); err != nil {
		return err
	}
	start = time.Now()
	result, err := cli.Tally(p.ID)
	if err != nil {
		return err
	}
	log.Infow("poll tallied", "tally", fmt.Sprint(result.Tally), "took", time.Since(start).String())

	// the published result must verify against the published poll
	published, err := cli.Results(p.ID)
	if err != nil {
		return err
	}
	closed, err := cli.Poll(p.ID)
	if err != nil {
		return err
	}
	if err := polls.Verify(closed, published); err != nil {
		return fmt.Errorf("published result does not verify: %w", err)
	}

	expected := make([]uint64, numOptions)
	for _, v := range votes {
		expected[v]++
	}
	if variant == types.VariantScalar {
		sum := uint64(0)
		for _, v := range votes {
			sum += uint64(v)
		}
		expected = []uint64{sum}
	}
	if fmt.Sprint(expected) != fmt.Sprint([]uint64(published.Tally)) {
		return fmt.Errorf("unexpected tally %v, want %v", published.Tally, expected)
	}
	log.Infow("e2e test passed", "tally", fmt.Sprint(published.Tally), "ballots", published.Ballots)
	return nil
}
