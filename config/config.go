// Package config holds the defaults and environment variable names shared by
// the node and its tools.
package config

import "time"

const (
	// DefaultAPIHost and DefaultAPIPort are where the HTTP API listens.
	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 9090
	// DefaultDatadir is the data directory, relative to the user home.
	DefaultDatadir = ".zktally"
	// DefaultLogLevel and DefaultLogOutput configure the log package.
	DefaultLogLevel  = "info"
	DefaultLogOutput = "stdout"

	// SequencerTick is how often the sequencer looks for queued ballots.
	SequencerTick = time.Second
	// BallotReservationTimeout is how long a taken ballot stays reserved
	// before another worker may take it again.
	BallotReservationTimeout = 5 * time.Minute
	// MaxBallotsPerTick bounds the ballots processed in one sequencer tick.
	MaxBallotsPerTick = 64
	// PollMonitorInterval is how often closed polls are checked for tallying.
	PollMonitorInterval = 5 * time.Second

	// APIRequestTimeout bounds every HTTP request, including tally proving.
	APIRequestTimeout = 5 * time.Minute
	// APIMaxConcurrentRequests bounds the requests served at once.
	APIMaxConcurrentRequests = 100
)

const (
	// EnvArtifactsDir overrides the artifact cache directory.
	EnvArtifactsDir = "ZKTALLY_ARTIFACTS_DIR"
	// EnvCheckHashes disables the artifact hash check when set to false or 0.
	EnvCheckHashes = "ZKTALLY_CHECK_HASHES"
	// EnvRunCircuitTests enables the slowest proving tests.
	EnvRunCircuitTests = "RUN_CIRCUIT_TESTS"
	// DefaultArtifactsDir is the artifact cache, relative to the user home.
	DefaultArtifactsDir = ".cache/zktally-artifacts"
)
