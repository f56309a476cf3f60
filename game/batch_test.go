package game

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bcspragu/Switchboard"
)

func TestRunBatch(t *testing.T) {
	var reds []string
	for i := 0; i < 9; i++ {
		reds = append(reds, fmt.Sprintf("red%d", i))
	}

	newGame := func(i int) (*Game, error) {
		if i == 1 {
			return nil, errors.New("no word pool")
		}
		e := newEnv()
		e.redCoach.clues = []*switchboard.Clue{clue("all", switchboard.Unlimited)}
		e.redPlayer.turns = [][]string{reds}
		cfg := e.config()
		cfg.GameID = fmt.Sprintf("game%d", i)
		return New(testBoard(), switchboard.RedTeam, cfg)
	}

	b := RunBatch(context.Background(), 4, 2, newGame, nil)

	if got := b.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
	if b.Errors[1] == nil || b.Results[1] != nil {
		t.Errorf("game 1 should have failed, got result %v, error %v", b.Results[1], b.Errors[1])
	}
	for _, i := range []int{0, 2, 3} {
		if b.Results[i] == nil {
			t.Fatalf("game %d has no result: %v", i, b.Errors[i])
		}
		if got, want := b.Results[i].GameID, fmt.Sprintf("game%d", i); got != want {
			t.Errorf("result %d has game ID %q, want %q", i, got, want)
		}
	}

	s := b.Summary()
	if s.Games != 3 || s.RedWins != 3 {
		t.Errorf("summary = %+v, want 3 games, 3 red wins", s)
	}
	if s.Red.Accuracy != 1 {
		t.Errorf("red accuracy = %v, want 1", s.Red.Accuracy)
	}
}
