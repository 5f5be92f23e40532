package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/poll"
	"github.com/vocdoni/zktally/types"
)

// PollMonitor tallies closed polls as soon as their queued ballots are
// processed.
type PollMonitor struct {
	polls    *poll.Manager
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPollMonitor creates a monitor that checks the polls every interval.
func NewPollMonitor(polls *poll.Manager, interval time.Duration) *PollMonitor {
	return &PollMonitor{polls: polls, interval: interval}
}

// Start begins monitoring. It returns an error if the service is already
// running.
func (pm *PollMonitor) Start(ctx context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	ctx, pm.cancel = context.WithCancel(ctx)
	pm.done = make(chan struct{})
	go pm.monitorPolls(ctx)
	return nil
}

// Stop halts the monitoring service and waits for a running tally.
func (pm *PollMonitor) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.cancel != nil {
		pm.cancel()
		<-pm.done
		pm.cancel = nil
	}
}

func (pm *PollMonitor) monitorPolls(ctx context.Context) {
	defer close(pm.done)
	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.tallyClosedPolls(ctx)
		}
	}
}

// tallyClosedPolls tallies every closed poll without pending ballots.
func (pm *PollMonitor) tallyClosedPolls(ctx context.Context) {
	polls, err := pm.polls.List()
	if err != nil {
		log.Warnw("cannot list polls", "error", err.Error())
		return
	}
	for _, p := range polls {
		if p.Status != types.PollStatusClosed {
			continue
		}
		if _, err := pm.polls.Tally(ctx, p.ID); err != nil {
			if errors.Is(err, poll.ErrBallotsPending) {
				log.Debugw("waiting for pending ballots", "pollID", p.ID.String())
				continue
			}
			log.Warnw("failed to tally poll", "pollID", p.ID.String(), "error", err.Error())
		}
	}
}
