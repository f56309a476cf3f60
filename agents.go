package switchboard

import "context"

// ClueRequest is everything a coach is shown when asked for a clue.
type ClueRequest struct {
	GameID string
	Team   Team
	Turn   string
	// View is the full board, every identity included.
	View *BoardView
	// History is the rendered history of the game so far.
	History string
}

// GuessRequest is everything a player is shown when asked for guesses.
type GuessRequest struct {
	GameID string
	Team   Team
	Turn   string
	Clue   *Clue
	// View only carries identities for revealed words.
	View    *BoardView
	History string
}

// AdjudicationRequest asks whether a clue is legal.
type AdjudicationRequest struct {
	GameID string
	Team   Team
	Turn   string
	Clue   *Clue
	View   *BoardView
}

// Ruling is a single adjudicator's decision on a clue.
type Ruling struct {
	Valid  bool
	Reason string
	Meta   *CallMeta
}

type Coach interface {
	// GiveClue takes in the full board and returns a clue for the team's
	// player.
	GiveClue(context.Context, *ClueRequest) (*Clue, error)
	// Name identifies the coach in logs, e.g. a model name or "human".
	Name() string
}

type Player interface {
	// Guess starts the guessing phase of a turn. The returned Guesses is
	// drained one word at a time, and the engine stops asking as soon as a
	// guess ends the turn.
	Guess(context.Context, *GuessRequest) (Guesses, error)
	Name() string
}

type Adjudicator interface {
	// Adjudicate decides whether a clue follows the rules.
	Adjudicate(context.Context, *AdjudicationRequest) (*Ruling, error)
	Name() string
}

// Guesses yields a player's guesses for one turn.
type Guesses interface {
	// Next returns the next word to reveal, given the board as it stands
	// after the previous guess. ok is false once the player stops guessing.
	Next(ctx context.Context, view *BoardView) (word string, ok bool, err error)
}

// GuessList is a batch of guesses decided up front, as model-backed players
// produce them.
type GuessList struct {
	Words []string
	Meta  *CallMeta

	idx int
}

func NewGuessList(words []string, meta *CallMeta) *GuessList {
	return &GuessList{Words: words, Meta: meta}
}

func (g *GuessList) Next(context.Context, *BoardView) (string, bool, error) {
	if g.idx >= len(g.Words) {
		return "", false, nil
	}
	w := g.Words[g.idx]
	g.idx++
	return w, true, nil
}

// CallMeta returns the metadata of the call that produced the list.
func (g *GuessList) CallMeta() *CallMeta {
	return g.Meta
}
