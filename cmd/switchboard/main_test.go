package main

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/config"
	"github.com/bcspragu/Switchboard/prompt"
	"github.com/bcspragu/Switchboard/wordpool"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    humanRole
		wantErr bool
	}{
		{in: "", want: noHuman},
		{in: "referee", want: humanReferee},
		{in: "blue-player", want: humanBluePlayer},
		{in: "red-coach", want: humanRedCoach},
		{in: "coach", wantErr: true},
	}
	for _, test := range tests {
		got, err := parseRole(test.in)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseRole(%q) returned no error", test.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseRole(%q): %v", test.in, err)
		}
		if got != test.want {
			t.Errorf("parseRole(%q) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestPreviewPrompt(t *testing.T) {
	prompts := prompt.New(nil, nil)
	for _, id := range []string{prompt.RedCoach, prompt.BluePlayer, prompt.Referee} {
		var buf bytes.Buffer
		if err := previewPrompt(&buf, prompts, id, wordpool.Default(), rand.New(rand.NewSource(1))); err != nil {
			t.Fatalf("previewPrompt(%q): %v", id, err)
		}
		if !strings.HasPrefix(buf.String(), "=== "+id+" (default) ===") {
			t.Errorf("unexpected preview header:\n%s", buf.String())
		}
	}

	if err := previewPrompt(&bytes.Buffer{}, prompts, "umpire", wordpool.Default(), rand.New(rand.NewSource(1))); err == nil {
		t.Error("expected an error for an unknown prompt")
	}
}

func TestBuilderPanel(t *testing.T) {
	b := &builder{cfg: &config.Config{Referee: "gemini-flash", ReviewModel: "none"}}
	p := b.panel(switchboard.NopSink{})
	if p == nil || p.Review != nil {
		t.Errorf("expected a panel without review, got %+v", p)
	}

	b.cfg.NoReferee = true
	if p := b.panel(switchboard.NopSink{}); p != nil {
		t.Errorf("expected no panel, got %+v", p)
	}

	b = &builder{cfg: &config.Config{Referee: "gemini-flash", ReviewModel: "gemini-2.5"}, role: humanReferee}
	if p := b.panel(switchboard.NopSink{}); p.Review != nil {
		t.Error("human referees shouldn't be reviewed")
	}
}

func TestBuilderVoters(t *testing.T) {
	b := &builder{
		cfg:    &config.Config{},
		voters: map[switchboard.Team][]string{switchboard.BlueTeam: splitList(" gpt-4o, claude ,,")},
	}
	p, err := b.player(switchboard.BlueTeam, "gemini-flash")
	if err != nil {
		t.Fatalf("player: %v", err)
	}
	if got, want := p.Name(), "consensus(gpt-4o,claude)"; got != want {
		t.Errorf("blue player = %q, want %q", got, want)
	}

	if p, err = b.player(switchboard.RedTeam, "gemini-flash"); err != nil {
		t.Fatalf("player: %v", err)
	}
	if got, want := p.Name(), "gemini-flash"; got != want {
		t.Errorf("red player = %q, want %q", got, want)
	}
}
