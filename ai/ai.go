// Package ai implements coaches, players and adjudicators backed by language
// models. Every call renders a prompt, calls the model and parses the answer,
// and the call's metadata travels back with the result.
package ai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/llm"
	"github.com/bcspragu/Switchboard/parse"
	"github.com/bcspragu/Switchboard/prompt"
)

type base struct {
	model   string
	client  llm.Client
	prompts *prompt.Renderer
	log     *zap.SugaredLogger
}

func newBase(model string, client llm.Client, prompts *prompt.Renderer, log *zap.SugaredLogger) base {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if prompts == nil {
		prompts = prompt.New(nil, log)
	}
	return base{model: model, client: client, prompts: prompts, log: log.With("model", model)}
}

func (b *base) Name() string {
	return b.model
}

func (b *base) ask(ctx context.Context, id string, pc prompt.Context) (string, string, *switchboard.CallMeta, error) {
	p, err := b.prompts.Render(id, pc)
	if err != nil {
		return "", "", nil, err
	}
	text, meta, err := b.client.Call(ctx, b.model, p)
	if err != nil {
		return "", "", nil, err
	}
	return p, text, meta, nil
}

// Coach gives clues.
type Coach struct {
	base
}

func NewCoach(model string, client llm.Client, prompts *prompt.Renderer, log *zap.SugaredLogger) *Coach {
	return &Coach{base: newBase(model, client, prompts, log)}
}

func (c *Coach) GiveClue(ctx context.Context, req *switchboard.ClueRequest) (*switchboard.Clue, error) {
	_, text, meta, err := c.ask(ctx, prompt.CoachID(req.Team), CoachContext(req))
	if err != nil {
		return nil, fmt.Errorf("coach %s: %w", c.model, err)
	}

	word, count := parse.Clue(text)
	c.log.Infow("coach gave clue", "game_id", req.GameID, "team", req.Team, "clue", word, "count", count)
	return &switchboard.Clue{Word: word, Count: count, Meta: meta}, nil
}

// Player guesses. The whole guess list comes from one call.
type Player struct {
	base
}

func NewPlayer(model string, client llm.Client, prompts *prompt.Renderer, log *zap.SugaredLogger) *Player {
	return &Player{base: newBase(model, client, prompts, log)}
}

func (p *Player) Guess(ctx context.Context, req *switchboard.GuessRequest) (switchboard.Guesses, error) {
	_, text, meta, err := p.ask(ctx, prompt.PlayerID(req.Team), PlayerContext(req))
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", p.model, err)
	}

	words := parse.Guesses(text, req.View.Available(), req.Clue.Count)
	p.log.Infow("player guessed", "game_id", req.GameID, "team", req.Team, "guesses", words)
	return switchboard.NewGuessList(words, meta), nil
}

// Adjudicator judges clues. Rejections are written to its foul log, if it has
// one.
type Adjudicator struct {
	base

	fouls *FoulLog
}

func NewAdjudicator(model string, client llm.Client, prompts *prompt.Renderer, fouls *FoulLog, log *zap.SugaredLogger) *Adjudicator {
	return &Adjudicator{base: newBase(model, client, prompts, log), fouls: fouls}
}

func (a *Adjudicator) Adjudicate(ctx context.Context, req *switchboard.AdjudicationRequest) (*switchboard.Ruling, error) {
	p, text, meta, err := a.ask(ctx, prompt.Referee, RefereeContext(req))
	if err != nil {
		return nil, fmt.Errorf("adjudicator %s: %w", a.model, err)
	}

	valid, reason := parse.Verdict(text)
	if !valid {
		a.fouls.Record(&Foul{
			Team:     req.Team,
			Clue:     req.Clue,
			Reason:   reason,
			Referee:  a.model,
			Prompt:   p,
			Response: text,
		})
	}
	a.log.Infow("clue adjudicated", "game_id", req.GameID, "team", req.Team, "clue", req.Clue.Word, "valid", valid, "reason", reason)
	return &switchboard.Ruling{Valid: valid, Reason: reason, Meta: meta}, nil
}

// CoachContext fills a coach prompt. Coaches see every identity.
func CoachContext(req *switchboard.ClueRequest) prompt.Context {
	v := req.View
	return prompt.Context{
		"team":             req.Team.Title(),
		"board":            v.Words,
		"red_remaining":    v.Remaining(switchboard.RedTeam),
		"blue_remaining":   v.Remaining(switchboard.BlueTeam),
		"revealed_names":   prompt.List(v.RevealedWords()),
		"red_targets":      prompt.List(v.WordsWith(switchboard.RedTarget)),
		"blue_targets":     prompt.List(v.WordsWith(switchboard.BlueTarget)),
		"allied_targets":   prompt.List(v.WordsWith(req.Team.Target())),
		"civilians":        prompt.List(v.WordsWith(switchboard.Civilian)),
		"forbidden_target": prompt.List(v.WordsWith(switchboard.ForbiddenTarget)),
		"clue_history":     req.History,
	}
}

func PlayerContext(req *switchboard.GuessRequest) prompt.Context {
	v := req.View
	available := v.Available()
	return prompt.Context{
		"team":            req.Team.Title(),
		"board":           prompt.Grid(v.Words, v.Revealed),
		"available_names": prompt.List(available),
		"clue_history":    req.History,
		"clue":            req.Clue.Word,
		"number":          req.Clue.Count,
		"max_guesses":     req.Clue.Count.MaxGuesses(len(available)),
	}
}

func RefereeContext(req *switchboard.AdjudicationRequest) prompt.Context {
	v := req.View
	return prompt.Context{
		"clue":           req.Clue.Word,
		"number":         req.Clue.Count,
		"team":           req.Team.Title(),
		"board":          strings.Join(v.Words, ", "),
		"allied_targets": prompt.List(v.WordsWith(req.Team.Target())),
	}
}

// Foul is a rejected clue, with everything needed to second-guess the
// rejection later.
type Foul struct {
	Team     switchboard.Team
	Clue     *switchboard.Clue
	Reason   string
	Referee  string
	Prompt   string
	Response string
}

// FoulLog appends fouls to a writer. It's safe for concurrent use, and a nil
// *FoulLog discards everything.
type FoulLog struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

func NewFoulLog(w io.Writer) *FoulLog {
	return &FoulLog{w: w, now: time.Now}
}

func (f *FoulLog) Record(foul *Foul) {
	if f == nil || f.w == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s TEAM ===\n", strings.ToUpper(foul.Team.String()))
	sb.WriteString("=== REFEREE FOUL ===\n")
	fmt.Fprintf(&sb, "Timestamp: %s\n", f.now().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Team: %s\n", foul.Team)
	fmt.Fprintf(&sb, "Clue: %s\n", foul.Clue.Word)
	fmt.Fprintf(&sb, "Number: %s\n", foul.Clue.Count)
	fmt.Fprintf(&sb, "Foul Reason: %s\n", foul.Reason)
	if foul.Reason == parse.DefaultInvalidReason {
		sb.WriteString("NOTE: Generic reasoning detected - check full response below\n")
	}
	fmt.Fprintf(&sb, "Referee Model: %s\n\n", foul.Referee)
	fmt.Fprintf(&sb, "=== FULL PROMPT ===\n%s\n\n", foul.Prompt)
	fmt.Fprintf(&sb, "=== REFEREE RESPONSE ===\n%s\n\n", foul.Response)
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	io.WriteString(f.w, sb.String())
}
