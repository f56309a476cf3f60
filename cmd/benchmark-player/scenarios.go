package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bcspragu/Switchboard"
)

// Scenario describes a certain setting of a board. Only fill in the fields a
// particular scenario needs; the player guesses for the red team.
type Scenario struct {
	Name      string            `yaml:"name"`
	Red       []string          `yaml:"red"`
	Blue      []string          `yaml:"blue"`
	Forbidden []string          `yaml:"forbidden"`
	Civilian  []string          `yaml:"civilian"`
	Clue      switchboard.Count `yaml:"count"`
	ClueWord  string            `yaml:"clue"`
	// Target is the words the clue was meant to point at.
	Target []string `yaml:"target"`
}

type Result struct {
	Correct            int
	IncorrectTeam      int
	IncorrectForbidden int
	IncorrectCivilian  int
	IncorrectInvalid   int
	Skipped            int
}

func (r *Result) add(o Result) {
	r.Correct += o.Correct
	r.IncorrectTeam += o.IncorrectTeam
	r.IncorrectForbidden += o.IncorrectForbidden
	r.IncorrectCivilian += o.IncorrectCivilian
	r.IncorrectInvalid += o.IncorrectInvalid
	r.Skipped += o.Skipped
}

var Scenarios = []Scenario{
	{
		Name:     "lead",
		Red:      []string{"LEAD"},
		Civilian: []string{"PIANO", "OCEAN"},
		ClueWord: "FOLLOW",
		Clue:     switchboard.Fixed(1),
		Target:   []string{"LEAD"},
	},
	{
		Name:     "maple",
		Red:      []string{"MAPLE"},
		Civilian: []string{"ENGINE", "CASTLE"},
		ClueWord: "SYRUP",
		Clue:     switchboard.Fixed(1),
		Target:   []string{"MAPLE"},
	},
	{
		Name:      "fruit",
		Red:       []string{"APPLE", "ORANGE", "ROBOT"},
		Blue:      []string{"BANANA"},
		Forbidden: []string{"BOMB"},
		Civilian:  []string{"TRAIN"},
		ClueWord:  "PIE",
		Clue:      switchboard.Fixed(1),
		Target:    []string{"APPLE"},
	},
	{
		Name:      "ocean",
		Red:       []string{"WHALE", "SHARK", "SPRING"},
		Blue:      []string{"BEACH"},
		Forbidden: []string{"DESERT"},
		Civilian:  []string{"PILOT", "LAB"},
		ClueWord:  "FIN",
		Clue:      switchboard.Fixed(2),
		Target:    []string{"WHALE", "SHARK"},
	},
}

// LoadScenarios reads a YAML list of scenarios.
func LoadScenarios(path string) ([]Scenario, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios: %w", err)
	}
	var out []Scenario
	if err := yaml.Unmarshal(dat, &out); err != nil {
		return nil, fmt.Errorf("failed to parse scenarios %q: %w", path, err)
	}
	return out, nil
}

// Score calculates a measure for how "good" a result is.
// Higher is better; 1.0 is a perfect score.
func Score(r Result) float32 {
	maxPotentialScore := float32(r.Correct + r.IncorrectTeam + r.IncorrectForbidden + r.IncorrectCivilian + r.IncorrectInvalid + r.Skipped)
	if maxPotentialScore == 0 {
		return 0
	}
	points := float32(r.Correct) - float32(r.IncorrectTeam) - 2.0*float32(r.IncorrectForbidden) - 0.5*float32(r.IncorrectCivilian) - 100.0*float32(r.IncorrectInvalid)
	return points / maxPotentialScore
}

// ScenarioBoard generates a Board from a Scenario.
func ScenarioBoard(s Scenario) *switchboard.Board {
	var cards []switchboard.Card
	for _, set := range []struct {
		words []string
		id    switchboard.Identity
	}{
		{s.Red, switchboard.RedTarget},
		{s.Blue, switchboard.BlueTarget},
		{s.Forbidden, switchboard.ForbiddenTarget},
		{s.Civilian, switchboard.Civilian},
	} {
		for _, w := range set.words {
			cards = append(cards, switchboard.Card{Word: w, Identity: set.id})
		}
	}
	return &switchboard.Board{Cards: cards}
}

// Run has the player guess on the scenario's board the way a red player
// would during a game, and tallies how the guesses turned out.
func Run(ctx context.Context, p switchboard.Player, s Scenario) (Result, error) {
	board := ScenarioBoard(s)
	clue := &switchboard.Clue{Word: s.ClueWord, Count: s.Clue}
	req := &switchboard.GuessRequest{
		GameID: "benchmark-" + s.Name,
		Team:   switchboard.RedTeam,
		Turn:   "1a",
		Clue:   clue,
		View:   board.View(false),
	}
	guesses, err := p.Guess(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	var r Result
	max := clue.Count.MaxGuesses(len(board.Unrevealed()))
	for i := 0; i < max; i++ {
		w, ok, err := guesses.Next(ctx, board.View(false))
		if err != nil {
			return Result{}, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		if !ok {
			break
		}
		word, ok := board.Lookup(w)
		if !ok || board.IsRevealed(word) {
			r.IncorrectInvalid++
			break
		}
		id, err := board.Reveal(word)
		if err != nil {
			return Result{}, err
		}
		outcome := switchboard.OutcomeFor(switchboard.RedTeam, id)
		if outcome == switchboard.Correct {
			r.Correct++
			continue
		}
		switch outcome {
		case switchboard.Enemy:
			r.IncorrectTeam++
		case switchboard.ForbiddenHit:
			r.IncorrectForbidden++
		case switchboard.CivilianHit:
			r.IncorrectCivilian++
		}
		break
	}

	for _, w := range s.Target {
		if !board.IsRevealed(w) {
			r.Skipped++
		}
	}
	return r, nil
}
