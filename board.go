package switchboard

import (
	"fmt"
	"strings"
)

// Card is a single word on the board and its hidden identity.
type Card struct {
	Word     string   `json:"word"`
	Identity Identity `json:"identity"`
	Revealed bool     `json:"revealed"`
}

// Board is the per-game identity and reveal store. Cards[i] sits at row i/5,
// column i%5. Identities never change once the board is built, and a card
// that has been revealed stays revealed.
type Board struct {
	Cards []Card `json:"cards"`
}

func (b *Board) index(word string) int {
	for i, card := range b.Cards {
		if strings.EqualFold(card.Word, word) {
			return i
		}
	}
	return -1
}

// Lookup returns the board's spelling of word, matched case-insensitively.
func (b *Board) Lookup(word string) (string, bool) {
	i := b.index(strings.TrimSpace(word))
	if i < 0 {
		return "", false
	}
	return b.Cards[i].Word, true
}

// Reveal flips a card face up and returns its identity. Revealing the same
// word twice is a caller bug and returns ErrAlreadyRevealed.
func (b *Board) Reveal(word string) (Identity, error) {
	i := b.index(word)
	if i < 0 {
		return UnknownIdentity, fmt.Errorf("reveal(%q): %w", word, ErrUnknownWord)
	}
	if b.Cards[i].Revealed {
		return UnknownIdentity, fmt.Errorf("reveal(%q): %w", word, ErrAlreadyRevealed)
	}
	b.Cards[i].Revealed = true
	return b.Cards[i].Identity, nil
}

// IsRevealed reports whether word is on the board and face up.
func (b *Board) IsRevealed(word string) bool {
	i := b.index(word)
	return i >= 0 && b.Cards[i].Revealed
}

// Remaining counts the team's targets that are still face down.
func (b *Board) Remaining(t Team) int {
	target := t.Target()
	n := 0
	for _, card := range b.Cards {
		if card.Identity == target && !card.Revealed {
			n++
		}
	}
	return n
}

// UnrevealedTargets lists the team's face-down targets in board order.
func (b *Board) UnrevealedTargets(t Team) []string {
	target := t.Target()
	var out []string
	for _, card := range b.Cards {
		if card.Identity == target && !card.Revealed {
			out = append(out, card.Word)
		}
	}
	return out
}

// Unrevealed lists every face-down word in board order.
func (b *Board) Unrevealed() []string {
	var out []string
	for _, card := range b.Cards {
		if !card.Revealed {
			out = append(out, card.Word)
		}
	}
	return out
}

// Words lists every word in board order.
func (b *Board) Words() []string {
	out := make([]string, len(b.Cards))
	for i, card := range b.Cards {
		out[i] = card.Word
	}
	return out
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	cards := make([]Card, len(b.Cards))
	copy(cards, b.Cards)
	return &Board{Cards: cards}
}

// View snapshots the board. With revealAll, the view carries every identity
// (what coaches and adjudicators see). Otherwise it only carries identities of
// revealed cards (what players see).
func (b *Board) View(revealAll bool) *BoardView {
	v := &BoardView{
		Words:      b.Words(),
		Revealed:   make(map[string]bool, len(b.Cards)),
		Identities: make(map[string]Identity),
	}
	for _, card := range b.Cards {
		v.Revealed[card.Word] = card.Revealed
		if revealAll || card.Revealed {
			v.Identities[card.Word] = card.Identity
		}
	}
	return v
}

// BoardView is a read-only snapshot of the board handed to collaborators.
type BoardView struct {
	Words      []string            `json:"words"`
	Revealed   map[string]bool     `json:"revealed"`
	Identities map[string]Identity `json:"identities"`
}

// Available lists the words that can still be guessed, in board order.
func (v *BoardView) Available() []string {
	var out []string
	for _, w := range v.Words {
		if !v.Revealed[w] {
			out = append(out, w)
		}
	}
	return out
}

// RevealedWords lists the face-up words, in board order.
func (v *BoardView) RevealedWords() []string {
	var out []string
	for _, w := range v.Words {
		if v.Revealed[w] {
			out = append(out, w)
		}
	}
	return out
}

// WordsWith lists the words known to have the given identity, in board order.
func (v *BoardView) WordsWith(id Identity) []string {
	var out []string
	for _, w := range v.Words {
		if v.Identities[w] == id {
			out = append(out, w)
		}
	}
	return out
}

// Remaining counts the team's face-down targets. It is only meaningful on a
// full view.
func (v *BoardView) Remaining(t Team) int {
	n := 0
	for _, w := range v.WordsWith(t.Target()) {
		if !v.Revealed[w] {
			n++
		}
	}
	return n
}

// Lookup returns the view's spelling of word if it can still be guessed.
func (v *BoardView) Lookup(word string) (string, bool) {
	word = strings.TrimSpace(word)
	for _, w := range v.Words {
		if strings.EqualFold(w, word) && !v.Revealed[w] {
			return w, true
		}
	}
	return "", false
}
