package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bcspragu/Switchboard"
)

// Factory builds the i'th game of a batch. Each game must get its own
// collaborators.
type Factory func(i int) (*Game, error)

// Batch is the outcome of running several games.
type Batch struct {
	// Results holds one entry per game, nil where the game failed.
	Results []*switchboard.Result
	// Errors holds one entry per game, nil where the game finished.
	Errors []error
}

// Failed counts the games that didn't finish.
func (b *Batch) Failed() int {
	n := 0
	for _, err := range b.Errors {
		if err != nil {
			n++
		}
	}
	return n
}

// Summary aggregates the finished games.
func (b *Batch) Summary() *switchboard.Summary {
	return switchboard.Summarize(b.Results)
}

// RunBatch plays n games, at most parallel at a time. A game that fails to set
// up or play is recorded and the rest of the batch carries on.
func RunBatch(ctx context.Context, n, parallel int, newGame Factory, log *zap.SugaredLogger) *Batch {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if parallel < 1 {
		parallel = 1
	}

	b := &Batch{
		Results: make([]*switchboard.Result, n),
		Errors:  make([]error, n),
	}

	var eg errgroup.Group
	eg.SetLimit(parallel)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			res, err := runOne(ctx, i, newGame)
			if err != nil {
				log.Errorw("game failed", "game", i+1, "of", n, "error", err)
				b.Errors[i] = err
				return nil
			}
			log.Infow("game finished", "game", i+1, "of", n, "game_id", res.GameID, "winner", res.Winner, "turns", res.Turns)
			b.Results[i] = res
			return nil
		})
	}
	// Every goroutine returns nil, failures are kept per game.
	_ = eg.Wait()

	return b
}

func runOne(ctx context.Context, i int, newGame Factory) (*switchboard.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := newGame(i)
	if err != nil {
		return nil, fmt.Errorf("failed to set up game %d: %w", i+1, err)
	}
	return g.Play(ctx)
}
