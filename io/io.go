// Package io implements coaches, players and adjudicators played by a human
// at a terminal.
package io

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sahilm/fuzzy"

	"github.com/bcspragu/Switchboard"
)

// Name is what human collaborators call themselves.
const Name = "human"

// Console is a terminal shared by the human collaborators of a game. Input is
// read a line at a time.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

func (c *Console) ask(question string) (string, error) {
	fmt.Fprint(c.out, question)
	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// PrintBoard draws the board as a table. Words whose identities the view
// carries are colored, and revealed words are bracketed.
func PrintBoard(w io.Writer, v *switchboard.BoardView) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_CENTER)

	for i := 0; i < switchboard.Rows; i++ {
		var row []string
		var colors []tablewriter.Colors
		for j := 0; j < switchboard.Columns; j++ {
			idx := i*switchboard.Columns + j
			if idx >= len(v.Words) {
				break
			}
			word := v.Words[idx]

			var c tablewriter.Colors
			if id, ok := v.Identities[word]; ok {
				switch id {
				case switchboard.BlueTarget:
					c = append(c, tablewriter.FgBlueColor)
				case switchboard.RedTarget:
					c = append(c, tablewriter.FgHiRedColor)
				case switchboard.Civilian:
					c = append(c, tablewriter.FgHiBlackColor)
				case switchboard.ForbiddenTarget:
					c = append(c, tablewriter.FgBlackColor, tablewriter.BgWhiteColor)
				}
			}
			if v.Revealed[word] {
				word = "[" + word + "]"
				c = append(c, tablewriter.UnderlineSingle)
			}
			colors = append(colors, c)
			row = append(row, word)
		}
		table.Rich(row, colors)
	}

	table.Render()
}

// Coach asks the human at the console for a clue. They're shown the whole
// board.
type Coach struct {
	*Console
}

func NewCoach(c *Console) *Coach {
	return &Coach{Console: c}
}

func (c *Coach) Name() string { return Name }

func (c *Coach) GiveClue(ctx context.Context, req *switchboard.ClueRequest) (*switchboard.Clue, error) {
	fmt.Fprintf(c.out, "\n%s Coach, turn %s\n", req.Team.Title(), req.Turn)
	PrintBoard(c.out, req.View)
	fmt.Fprintf(c.out, "Your targets left: %s\n", strings.Join(unrevealed(req.View, req.Team.Target()), ", "))
	fmt.Fprintf(c.out, "History:\n%s\n\n", req.History)

	var word string
	for word == "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w, err := c.ask("Enter your clue: ")
		if err != nil {
			return nil, err
		}
		word = w
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := c.ask("Enter number of related words (or 'unlimited'): ")
		if err != nil {
			return nil, err
		}
		count, err := switchboard.ParseCount(in)
		if err != nil {
			fmt.Fprintln(c.out, "Please enter 0 or a positive number, or 'unlimited'")
			continue
		}
		return &switchboard.Clue{Word: word, Count: count}, nil
	}
}

func unrevealed(v *switchboard.BoardView, id switchboard.Identity) []string {
	var out []string
	for _, w := range v.WordsWith(id) {
		if !v.Revealed[w] {
			out = append(out, w)
		}
	}
	return out
}

// Player asks the human at the console for guesses, one at a time.
type Player struct {
	*Console
}

func NewPlayer(c *Console) *Player {
	return &Player{Console: c}
}

func (p *Player) Name() string { return Name }

func (p *Player) Guess(_ context.Context, req *switchboard.GuessRequest) (switchboard.Guesses, error) {
	fmt.Fprintf(p.out, "\n%s Player, turn %s\n", req.Team.Title(), req.Turn)
	PrintBoard(p.out, req.View)
	fmt.Fprintf(p.out, "History:\n%s\n\n", req.History)
	fmt.Fprintf(p.out, "Clue: %s\n", req.Clue)

	return &guesses{
		Console: p.Console,
		count:   req.Clue.Count,
		max:     req.Clue.Count.MaxGuesses(len(req.View.Available())),
	}, nil
}

type guesses struct {
	*Console
	count switchboard.Count
	max   int
	made  int
}

func (g *guesses) Next(ctx context.Context, v *switchboard.BoardView) (string, bool, error) {
	if g.made >= g.max {
		return "", false, nil
	}
	available := v.Available()
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		fmt.Fprintf(g.out, "\nAvailable words: %s\n", strings.Join(available, ", "))

		var q string
		switch {
		case g.count.IsZero() && g.made == 0:
			q = fmt.Sprintf("Guess %d (required for a zero clue): ", g.made+1)
		case g.count.IsUnlimited():
			q = fmt.Sprintf("Guess %d (or 'done' to stop): ", g.made+1)
		default:
			q = fmt.Sprintf("Guess %d/%d (or 'done' to stop): ", g.made+1, g.max)
		}

		in, err := g.ask(q)
		if err != nil {
			return "", false, err
		}

		if strings.EqualFold(in, "done") {
			if g.count.IsZero() && g.made == 0 {
				fmt.Fprintln(g.out, "Zero clues require at least one guess")
				continue
			}
			return "", false, nil
		}

		word, ok := v.Lookup(in)
		if !ok {
			fmt.Fprintf(g.out, "%q is not available. Try again.\n", in)
			if s := suggest(in, available); len(s) > 0 {
				fmt.Fprintf(g.out, "Did you mean: %s?\n", strings.Join(s, ", "))
			}
			continue
		}

		g.made++
		return word, true, nil
	}
}

// suggest returns up to three available words that fuzzily match the input.
func suggest(in string, available []string) []string {
	lower := make([]string, len(available))
	for i, w := range available {
		lower[i] = strings.ToLower(w)
	}
	var out []string
	for _, m := range fuzzy.Find(strings.ToLower(in), lower) {
		out = append(out, available[m.Index])
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Adjudicator asks the human at the console whether a clue is legal.
type Adjudicator struct {
	*Console
}

func NewAdjudicator(c *Console) *Adjudicator {
	return &Adjudicator{Console: c}
}

func (a *Adjudicator) Name() string { return Name }

func (a *Adjudicator) Adjudicate(ctx context.Context, req *switchboard.AdjudicationRequest) (*switchboard.Ruling, error) {
	fmt.Fprintf(a.out, "\nReferee, turn %s\n", req.Turn)
	PrintBoard(a.out, req.View)
	fmt.Fprintf(a.out, "Team: %s\nClue: %s\n", req.Team.Title(), req.Clue)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := a.ask("Is this clue valid? (y/n): ")
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(in) {
		case "y", "yes":
			reason, err := a.ask("Reasoning (optional): ")
			if err != nil {
				return nil, err
			}
			if reason == "" {
				reason = "Clue approved by human referee"
			}
			return &switchboard.Ruling{Valid: true, Reason: reason}, nil
		case "n", "no":
			reason, err := a.ask("Violation reasoning: ")
			if err != nil {
				return nil, err
			}
			if reason == "" {
				reason = "Rule violation detected by human referee"
			}
			return &switchboard.Ruling{Valid: false, Reason: reason}, nil
		}
		fmt.Fprintln(a.out, "Please enter 'y' or 'n'")
	}
}
