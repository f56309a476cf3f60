package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bcspragu/Switchboard"
)

type listPlayer []string

func (l listPlayer) Name() string { return "list" }

func (l listPlayer) Guess(context.Context, *switchboard.GuessRequest) (switchboard.Guesses, error) {
	return switchboard.NewGuessList(l, nil), nil
}

func TestRun(t *testing.T) {
	s := Scenario{
		Name:      "ocean",
		Red:       []string{"WHALE", "SHARK", "SPRING"},
		Blue:      []string{"BEACH"},
		Forbidden: []string{"DESERT"},
		Civilian:  []string{"PILOT"},
		ClueWord:  "FIN",
		Clue:      switchboard.Fixed(2),
		Target:    []string{"WHALE", "SHARK"},
	}

	tests := []struct {
		desc    string
		guesses []string
		want    Result
	}{
		{
			desc:    "perfect",
			guesses: []string{"whale", "shark"},
			want:    Result{Correct: 2},
		},
		{
			desc:    "stops on the enemy",
			guesses: []string{"WHALE", "BEACH", "SHARK"},
			want:    Result{Correct: 1, IncorrectTeam: 1, Skipped: 1},
		},
		{
			desc:    "forbidden",
			guesses: []string{"DESERT"},
			want:    Result{IncorrectForbidden: 1, Skipped: 2},
		},
		{
			desc:    "off the board",
			guesses: []string{"DOLPHIN"},
			want:    Result{IncorrectInvalid: 1, Skipped: 2},
		},
		{
			desc:    "bonus guess then the limit",
			guesses: []string{"WHALE", "SHARK", "SPRING", "PILOT"},
			want:    Result{Correct: 3},
		},
	}

	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got, err := Run(context.Background(), listPlayer(test.guesses), s)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected result (-want +got)\n%s", diff)
			}
		})
	}
}

func TestScore(t *testing.T) {
	if got := Score(Result{Correct: 2}); got != 1 {
		t.Errorf("Score(perfect) = %v, want 1", got)
	}
	if got := Score(Result{Correct: 1, IncorrectCivilian: 1}); got != 0.25 {
		t.Errorf("Score = %v, want 0.25", got)
	}
	if got := Score(Result{}); got != 0 {
		t.Errorf("Score(empty) = %v, want 0", got)
	}
}

func TestLoadScenarios(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	dat := `
- name: syrup
  red: [MAPLE]
  civilian: [ENGINE]
  clue: SYRUP
  count: unlimited
  target: [MAPLE]
`
	if err := os.WriteFile(path, []byte(dat), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadScenarios(path)
	if err != nil {
		t.Fatalf("LoadScenarios: %v", err)
	}
	want := []Scenario{{
		Name:     "syrup",
		Red:      []string{"MAPLE"},
		Civilian: []string{"ENGINE"},
		ClueWord: "SYRUP",
		Clue:     switchboard.Unlimited,
		Target:   []string{"MAPLE"},
	}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(switchboard.Count{})); diff != "" {
		t.Errorf("unexpected scenarios (-want +got)\n%s", diff)
	}
}

func TestBenchmark(t *testing.T) {
	var buf bytes.Buffer
	total, err := benchmark(context.Background(), &buf, listPlayer{"LEAD", "MAPLE"}, Scenarios[:2])
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	// The same list is played on both boards: LEAD then an invalid MAPLE on
	// the first, and an invalid LEAD straight away on the second.
	if diff := cmp.Diff(Result{Correct: 1, IncorrectInvalid: 2, Skipped: 1}, total); diff != "" {
		t.Errorf("unexpected total (-want +got)\n%s", diff)
	}
	if !strings.Contains(buf.String(), "FOLLOW (1)") {
		t.Errorf("table is missing the clue:\n%s", buf.String())
	}
}
