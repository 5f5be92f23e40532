package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/prover"
	"github.com/vocdoni/zktally/sequencer"
	"github.com/vocdoni/zktally/storage"
)

// SequencerService runs the ballot processor in the background.
type SequencerService struct {
	Sequencer *sequencer.Sequencer
	mu        sync.Mutex
	running   bool
}

// NewSequencer creates the sequencer service. The tick defines how long the
// processor waits when the ballot queue is empty.
func NewSequencer(stg *storage.Storage, registry *prover.Registry, tick time.Duration) (*SequencerService, error) {
	s, err := sequencer.New(stg, registry, nil, tick)
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}
	return &SequencerService{Sequencer: s}, nil
}

// Start begins the ballot processing. It returns an error if the service is
// already running.
func (ss *SequencerService) Start(ctx context.Context) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.running {
		return fmt.Errorf("service already running")
	}
	if err := ss.Sequencer.Start(ctx); err != nil {
		return err
	}
	ss.running = true
	return nil
}

// Stop halts the ballot processing.
func (ss *SequencerService) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.running {
		return
	}
	if err := ss.Sequencer.Stop(); err != nil {
		log.Warnw("sequencer service stopped", "error", err)
	}
	ss.running = false
}
