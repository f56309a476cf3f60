// Package boardgen deals a new board from a word pool.
package boardgen

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/bcspragu/Switchboard"
)

// layout returns the identities of a board, in dealing order, for a game
// that the given team starts.
func layout(starter switchboard.Team) []switchboard.Identity {
	ids := make([]switchboard.Identity, 0, switchboard.Size)
	add := func(id switchboard.Identity, n int) {
		for i := 0; i < n; i++ {
			ids = append(ids, id)
		}
	}
	add(starter.Target(), switchboard.StartingTargets)
	add(starter.Other().Target(), switchboard.SecondTargets)
	add(switchboard.ForbiddenTarget, switchboard.ForbiddenTargets)
	add(switchboard.Civilian, switchboard.Civilians)
	return ids
}

// New picks 25 distinct words from pool and deals identities to them. The
// starting team gets 9 targets, the other team 8, plus 7 civilians and one
// forbidden target. The same pool, starter and seed always deal the same
// board.
func New(pool []string, starter switchboard.Team, r *rand.Rand) (*switchboard.Board, error) {
	if starter != switchboard.RedTeam && starter != switchboard.BlueTeam {
		return nil, fmt.Errorf("invalid starting team %d", starter)
	}

	words := distinct(pool)
	if len(words) < switchboard.Size {
		return nil, fmt.Errorf("pool has %d distinct words, need %d: %w", len(words), switchboard.Size, switchboard.ErrInsufficientWords)
	}

	// Pick words at random from our list.
	var selected []string
	for _, idx := range r.Perm(len(words))[:switchboard.Size] {
		selected = append(selected, words[idx])
	}

	ids := layout(starter)
	cards := make([]switchboard.Card, switchboard.Size)
	for i, pos := range r.Perm(switchboard.Size) {
		cards[pos] = switchboard.Card{
			Word:     selected[pos],
			Identity: ids[i],
		}
	}

	return &switchboard.Board{Cards: cards}, nil
}

// distinct drops empty and repeated words, keeping the first spelling seen.
func distinct(pool []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range pool {
		w = strings.TrimSpace(w)
		key := strings.ToLower(w)
		if w == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}
