package service

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vocdoni/zktally/api"
	"github.com/vocdoni/zktally/census"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/sequencer"
	"github.com/vocdoni/zktally/storage"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	conf api.APIConfig
	api  *api.API
	mu   sync.Mutex
}

// NewAPI creates a new APIService instance.
func NewAPI(stg *storage.Storage, censusDB *census.CensusDB, polls *poll.Manager,
	seq *sequencer.Sequencer, host string, port int,
) *APIService {
	return &APIService{conf: api.APIConfig{
		Host:      host,
		Port:      port,
		Storage:   stg,
		CensusDB:  censusDB,
		Polls:     polls,
		Sequencer: seq,
	}}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(&as.conf)
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api = a
	go func() {
		<-ctx.Done()
		as.Stop()
	}()
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := as.api.Stop(ctx); err != nil {
		log.Warnw("API server stopped with error", "error", err)
	}
	as.api = nil
}

// HostPort returns the host and the port the server listens on, which is
// the configured one unless it was 0.
func (as *APIService) HostPort() (string, int) {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api != nil {
		if addr, ok := as.api.Addr().(*net.TCPAddr); ok {
			return as.conf.Host, addr.Port
		}
	}
	return as.conf.Host, as.conf.Port
}
