// Package history keeps the record of a game's clues and guesses, and renders
// it as the text coaches and players are shown.
package history

import (
	"fmt"
	"strings"

	"github.com/bcspragu/Switchboard"
)

// Empty is what an empty history renders as.
const Empty = "None (game just started)"

// Guess is the result of one guess made on a clue.
type Guess struct {
	Word     string               `json:"word"`
	Identity switchboard.Identity `json:"identity"`
	Outcome  switchboard.Outcome  `json:"outcome"`
}

// Entry is one coach turn: the clue, whether it stood, and the guesses made
// on it.
type Entry struct {
	Turn    string            `json:"turn"`
	Team    switchboard.Team  `json:"team"`
	Clue    string            `json:"clue"`
	Count   switchboard.Count `json:"count"`
	Invalid bool              `json:"invalid"`
	Reason  string            `json:"reason,omitempty"`
	Guesses []Guess           `json:"guesses"`
}

// History is an append-only list of entries. It isn't safe for concurrent
// use, each game owns its own.
type History struct {
	entries []*Entry
}

func New() *History {
	return &History{}
}

// Append starts a new entry. Entries can't be modified once the next one is
// appended.
func (h *History) Append(e *Entry) {
	h.entries = append(h.entries, e)
}

// RecordGuess adds a guess to the latest entry. Forbidden target hits end the
// game and aren't recorded.
func (h *History) RecordGuess(word string, id switchboard.Identity, outcome switchboard.Outcome) {
	if len(h.entries) == 0 || outcome == switchboard.ForbiddenHit {
		return
	}
	cur := h.entries[len(h.entries)-1]
	cur.Guesses = append(cur.Guesses, Guess{Word: word, Identity: id, Outcome: outcome})
}

// Entries returns a copy of the entries so far.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[i] = *e
		out[i].Guesses = append([]Guess(nil), e.Guesses...)
	}
	return out
}

// Len is the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Render formats the history, one clue line plus one outcome line per entry.
func (h *History) Render() string {
	if len(h.entries) == 0 {
		return Empty
	}

	var lines []string
	for _, e := range h.entries {
		line := fmt.Sprintf("Turn %s: %s Clue: \"%s\" (%s)", e.Turn, e.Team.Title(), e.Clue, e.Count)
		if e.Invalid {
			reason := e.Reason
			if reason == "" {
				reason = "rule violation"
			}
			line += fmt.Sprintf(" [INVALID: %s]", reason)
		}
		lines = append(lines, line)

		switch {
		case e.Invalid:
			lines = append(lines, "  → Turn ended due to invalid clue")
		case len(e.Guesses) == 0:
			lines = append(lines, "  → No guesses made")
		default:
			var outcomes []string
			for _, g := range e.Guesses {
				outcomes = append(outcomes, formatGuess(g))
			}
			lines = append(lines, "  → "+strings.Join(outcomes, ", "))
		}
		lines = append(lines, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func formatGuess(g Guess) string {
	switch g.Outcome {
	case switchboard.Correct:
		return g.Word + " ✓"
	case switchboard.Enemy:
		return g.Word + " ✗ (enemy)"
	case switchboard.CivilianHit:
		return g.Word + " ○ (civilian)"
	}
	return g.Word
}
