package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/consensys/gnark-crypto/kzg"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/test/unsafekzg"
	flag "github.com/spf13/pflag"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/config"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/service"
	"github.com/vocdoni/zktally/storage"
)

func main() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	host := flag.String("host", config.DefaultAPIHost, "API host to listen on")
	port := flag.Int("port", config.DefaultAPIPort, "API port to listen on")
	datadir := flag.String("datadir", filepath.Join(home, config.DefaultDatadir), "data directory")
	artifactsDir := flag.String("artifactsDir", circuits.BaseDir, "directory where relation artifacts are cached")
	artifactsURL := flag.String("artifactsURL", "", "mirror to download missing relation artifacts from")
	logLevel := flag.String("logLevel", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	logOutput := flag.String("logOutput", config.DefaultLogOutput, "log output (stdout, stderr or a file path)")
	backend := flag.String("backend", string(prover.BackendGroth16), "proving backend (groth16 or plonk)")
	autoTally := flag.Bool("autoTally", false, "tally closed polls once their ballots are processed")
	warmup := flag.Int("warmup", 0, "set up the relations of polls with up to this many options at startup")
	flag.Parse()

	log.Init(*logLevel, *logOutput, nil)
	circuits.BaseDir = *artifactsDir

	database, err := metadb.New(db.TypePebble, filepath.Join(*datadir, "db"))
	if err != nil {
		log.Fatal(err)
	}
	stg := storage.New(database)
	defer stg.Close()

	var srs prover.SRSProvider
	if prover.Backend(*backend) == prover.BackendPlonk {
		log.Warn("plonk backend uses a locally generated SRS, do not use it in production")
		srs = func(ccs constraint.ConstraintSystem) (kzg.SRS, kzg.SRS, error) {
			return unsafekzg.NewSRS(ccs)
		}
	}
	pipeline, err := prover.New(prover.Backend(*backend), srs)
	if err != nil {
		log.Fatal(err)
	}
	registry := prover.NewRegistry(pipeline, stg)
	if *artifactsURL != "" {
		registry.SetMirror(*artifactsURL)
	}
	polls := poll.NewManager(stg, registry, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *warmup > 0 {
		log.Infow("preparing relations", "maxOptions", *warmup, "backend", *backend)
		if err := service.PrepareRelations(ctx, registry, service.RelationsFor(*warmup), time.Hour); err != nil {
			log.Fatal(err)
		}
	}

	seq, err := service.NewSequencer(stg, registry, config.SequencerTick)
	if err != nil {
		log.Fatal(err)
	}
	if err := seq.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer seq.Stop()

	if *autoTally {
		monitor := service.NewPollMonitor(polls, config.PollMonitorInterval)
		if err := monitor.Start(ctx); err != nil {
			log.Fatal(err)
		}
		defer monitor.Stop()
	}

	api := service.NewAPI(stg, census.NewCensusDB(database), polls, seq.Sequencer, *host, *port)
	if err := api.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer api.Stop()

	log.Infow("node started", "host", *host, "port", *port, "datadir", *datadir, "backend", *backend)
	<-ctx.Done()
	log.Info("shutting down")
}
