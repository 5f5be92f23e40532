package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/zktally/circuits"
	"github.com/vocdoni/zktally/log"
	"github.com/vocdoni/zktally/prover"
)

// PrepareRelations loads or sets up the relations concurrently, so the
// first ballot or tally does not wait for them.
func PrepareRelations(ctx context.Context, registry *prover.Registry, ids []circuits.RelationID, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			done := make(chan error, 1)
			go func() {
				start := time.Now()
				_, err := registry.Relation(id)
				if err == nil {
					log.Infow("relation ready", "relation", id.String(), "took", time.Since(start).String())
				}
				done <- err
			}()
			select {
			case err := <-done:
				if err != nil {
					return fmt.Errorf("relation %s: %w", id, err)
				}
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// RelationsFor returns the relations a node serving polls of up to
// maxOptions options uses.
func RelationsFor(maxOptions int) []circuits.RelationID {
	ids := []circuits.RelationID{
		{Kind: circuits.KindEligibility},
		{Kind: circuits.KindTally, NumOptions: 1},
	}
	for n := 2; n <= maxOptions; n++ {
		ids = append(ids,
			circuits.RelationID{Kind: circuits.KindVoteScalar, NumOptions: n},
			circuits.RelationID{Kind: circuits.KindVoteVector, NumOptions: n},
			circuits.RelationID{Kind: circuits.KindTally, NumOptions: n},
		)
	}
	return ids
}
