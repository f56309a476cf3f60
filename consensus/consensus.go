// Package consensus combines several players into one that only guesses words
// a strict majority of them agree on.
package consensus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bcspragu/Switchboard"
)

// Vote is one voter's pick for the next guess.
type Vote struct {
	Voter int
	Word  string
}

// Tally counts the votes for a single guess.
type Tally struct {
	mu    sync.Mutex
	votes []*Vote
}

// RecordVote records or replaces a voter's pick.
func (t *Tally) RecordVote(voter int, word string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, vote := range t.votes {
		if vote.Voter == voter {
			vote.Word = word
			return
		}
	}
	t.votes = append(t.votes, &Vote{Voter: voter, Word: word})
}

// ReachedConsensus returns the word more than half of totalVoters picked.
func (t *Tally) ReachedConsensus(totalVoters int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[string]int)
	for _, vote := range t.votes {
		counts[vote.Word]++
	}

	// A strict majority, e.g. 2 of 2, 2 of 3, 3 of 4, 3 of 5.
	majority := totalVoters/2 + 1
	for word, cnt := range counts {
		if cnt >= majority {
			return word, true
		}
	}
	return "", false
}

// Clear drops every vote.
func (t *Tally) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.votes = nil
}

// Player asks every voter for its guesses and plays them in majority order.
type Player struct {
	voters []switchboard.Player
	log    *zap.SugaredLogger
}

func New(log *zap.SugaredLogger, voters ...switchboard.Player) *Player {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Player{voters: voters, log: log}
}

func (p *Player) Name() string {
	names := make([]string, len(p.voters))
	for i, v := range p.voters {
		names[i] = v.Name()
	}
	return "consensus(" + strings.Join(names, ",") + ")"
}

func (p *Player) Guess(ctx context.Context, req *switchboard.GuessRequest) (switchboard.Guesses, error) {
	if len(p.voters) == 0 {
		return nil, fmt.Errorf("consensus player has no voters")
	}
	max := req.Clue.Count.MaxGuesses(len(req.View.Available()))

	ballots := make([][]string, len(p.voters))
	metas := make([]*switchboard.CallMeta, len(p.voters))
	eg, ctx := errgroup.WithContext(ctx)
	for i, v := range p.voters {
		i, v := i, v
		eg.Go(func() error {
			gs, err := v.Guess(ctx, req)
			if err != nil {
				return fmt.Errorf("voter %s: %w", v.Name(), err)
			}
			if m, ok := gs.(interface{ CallMeta() *switchboard.CallMeta }); ok {
				metas[i] = m.CallMeta()
			}
			for len(ballots[i]) < max {
				w, ok, err := gs.Next(ctx, req.View)
				if err != nil {
					return fmt.Errorf("voter %s: %w", v.Name(), err)
				}
				if !ok {
					break
				}
				ballots[i] = append(ballots[i], w)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	p.log.Debugw("collected ballots", "game_id", req.GameID, "turn", req.Turn, "ballots", ballots)
	return &guesses{ballots: ballots, meta: merge(p.Name(), metas)}, nil
}

type guesses struct {
	ballots [][]string
	meta    *switchboard.CallMeta
	tally   Tally
}

// Next has each voter back its highest ranked word that is still on the
// board. The turn ends once no word has a majority.
func (g *guesses) Next(_ context.Context, view *switchboard.BoardView) (string, bool, error) {
	g.tally.Clear()
	for i, ballot := range g.ballots {
		for _, w := range ballot {
			if word, ok := view.Lookup(w); ok {
				g.tally.RecordVote(i, word)
				break
			}
		}
	}
	word, ok := g.tally.ReachedConsensus(len(g.ballots))
	return word, ok, nil
}

func (g *guesses) CallMeta() *switchboard.CallMeta {
	return g.meta
}

func merge(name string, metas []*switchboard.CallMeta) *switchboard.CallMeta {
	var out *switchboard.CallMeta
	for _, m := range metas {
		if m == nil {
			continue
		}
		if out == nil {
			out = &switchboard.CallMeta{Model: name}
		}
		out.InputTokens += m.InputTokens
		out.OutputTokens += m.OutputTokens
		out.TotalTokens += m.TotalTokens
		out.Cost += m.Cost
		out.UpstreamCost += m.UpstreamCost
		if m.LatencyMS > out.LatencyMS {
			out.LatencyMS = m.LatencyMS
		}
	}
	return out
}
