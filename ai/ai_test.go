package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/prompt"
	"github.com/google/go-cmp/cmp"
)

type fakeLLM struct {
	resp string
	err  error

	model   string
	prompts []string
}

func (f *fakeLLM) Call(_ context.Context, model, p string) (string, *switchboard.CallMeta, error) {
	f.model = model
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.resp, &switchboard.CallMeta{Model: model, TotalTokens: 42}, nil
}

func testView(revealAll bool) *switchboard.BoardView {
	b := &switchboard.Board{}
	for i := 0; i < switchboard.Size; i++ {
		id := switchboard.Civilian
		switch {
		case i < 9:
			id = switchboard.RedTarget
		case i < 17:
			id = switchboard.BlueTarget
		case i == 24:
			id = switchboard.ForbiddenTarget
		}
		b.Cards = append(b.Cards, switchboard.Card{Word: fmt.Sprintf("WORD%d", i), Identity: id})
	}
	b.Reveal("WORD0")
	return b.View(revealAll)
}

func TestCoach(t *testing.T) {
	f := &fakeLLM{resp: "CLUE: ocean\nNUMBER: 2"}
	c := NewCoach("gpt4", f, nil, nil)

	clue, err := c.GiveClue(context.Background(), &switchboard.ClueRequest{
		GameID:  "g",
		Team:    switchboard.RedTeam,
		Turn:    "1a",
		View:    testView(true),
		History: "None (game just started)",
	})
	if err != nil {
		t.Fatalf("GiveClue: %v", err)
	}

	want := &switchboard.Clue{
		Word:  "ocean",
		Count: switchboard.Fixed(2),
		Meta:  &switchboard.CallMeta{Model: "gpt4", TotalTokens: 42},
	}
	if diff := cmp.Diff(want, clue, cmp.AllowUnexported(switchboard.Count{})); diff != "" {
		t.Errorf("unexpected clue (-want +got)\n%s", diff)
	}
	if f.model != "gpt4" {
		t.Errorf("called model %q, want gpt4", f.model)
	}

	p := f.prompts[0]
	for _, s := range []string{"Red Team Coach", "Your targets: WORD0, WORD1", "Forbidden target: WORD24", "Already revealed: WORD0", "Remaining: Red 8, Blue 8"} {
		if !strings.Contains(p, s) {
			t.Errorf("coach prompt doesn't contain %q", s)
		}
	}
}

func TestCoachError(t *testing.T) {
	c := NewCoach("gpt4", &fakeLLM{err: errors.New("rate limited")}, nil, nil)
	_, err := c.GiveClue(context.Background(), &switchboard.ClueRequest{Team: switchboard.BlueTeam, View: testView(true)})
	if err == nil {
		t.Fatal("GiveClue succeeded, want an error")
	}
}

func TestPlayer(t *testing.T) {
	f := &fakeLLM{resp: "word3\nword0\nWORD5\nword7"}
	p := NewPlayer("claude", f, nil, nil)

	g, err := p.Guess(context.Background(), &switchboard.GuessRequest{
		Team:    switchboard.BlueTeam,
		Clue:    &switchboard.Clue{Word: "numbers", Count: switchboard.Fixed(1)},
		View:    testView(false),
		History: "none",
	})
	if err != nil {
		t.Fatalf("Guess: %v", err)
	}

	list, ok := g.(*switchboard.GuessList)
	if !ok {
		t.Fatalf("Guess returned %T, want *switchboard.GuessList", g)
	}
	// WORD0 is already revealed, and a count of 1 allows two guesses.
	if diff := cmp.Diff([]string{"WORD3", "WORD5"}, list.Words); diff != "" {
		t.Errorf("unexpected guesses (-want +got)\n%s", diff)
	}
	if list.CallMeta().TotalTokens != 42 {
		t.Errorf("meta = %+v", list.CallMeta())
	}

	prompt := f.prompts[0]
	if !strings.Contains(prompt, "[WORD0]") {
		t.Error("player prompt doesn't mark revealed words")
	}
	if !strings.Contains(prompt, "You may guess up to 2 words.") {
		t.Error("player prompt doesn't state the guess limit")
	}
	if strings.Contains(prompt, "WORD24:") || strings.Contains(prompt, "forbidden_target") {
		t.Error("player prompt leaks identities")
	}
}

func TestAdjudicator(t *testing.T) {
	var buf bytes.Buffer
	fouls := NewFoulLog(&buf)
	fouls.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	tests := []struct {
		resp       string
		wantValid  bool
		wantReason string
		wantFoul   bool
	}{
		{"VALID: fine", true, "fine", false},
		{"INVALID: clue is on the board", false, "clue is on the board", true},
	}
	for _, test := range tests {
		buf.Reset()
		a := NewAdjudicator("gemini-flash", &fakeLLM{resp: test.resp}, prompt.New(nil, nil), fouls, nil)
		r, err := a.Adjudicate(context.Background(), &switchboard.AdjudicationRequest{
			Team: switchboard.RedTeam,
			Clue: &switchboard.Clue{Word: "WORD1", Count: switchboard.Fixed(1)},
			View: testView(true),
		})
		if err != nil {
			t.Fatalf("Adjudicate: %v", err)
		}
		if r.Valid != test.wantValid || r.Reason != test.wantReason {
			t.Errorf("ruling = %+v, want valid %t, reason %q", r, test.wantValid, test.wantReason)
		}
		if r.Meta == nil {
			t.Error("ruling has no call metadata")
		}

		logged := buf.String()
		if got := logged != ""; got != test.wantFoul {
			t.Errorf("foul logged = %t, want %t", got, test.wantFoul)
		}
		if test.wantFoul {
			for _, s := range []string{"=== RED TEAM ===", "Timestamp: 2024-01-02T03:04:05Z", "Clue: WORD1", "Foul Reason: clue is on the board", "=== REFEREE RESPONSE ===\nINVALID: clue is on the board"} {
				if !strings.Contains(logged, s) {
					t.Errorf("foul log doesn't contain %q:\n%s", s, logged)
				}
			}
		}
	}
}

func TestFoulLogNil(t *testing.T) {
	var f *FoulLog
	// Shouldn't panic.
	f.Record(&Foul{Clue: &switchboard.Clue{}})
}
