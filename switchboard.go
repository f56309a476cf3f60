// Package switchboard holds the data model shared by every part of the game:
// teams, card identities, clues and their counts, the board itself, the
// collaborator interfaces that coaches, players and adjudicators implement, and
// the events a game emits while it is being played.
package switchboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Rows is the number of rows of cards on the board.
	Rows = 5
	// Columns is the number of columns of cards on the board.
	Columns = 5
	// Size is the total number of cards on the board.
	Size = Rows * Columns

	// StartingTargets is how many targets the team that moves first gets.
	StartingTargets = 9
	// SecondTargets is how many targets the team that moves second gets.
	SecondTargets = 8
	// Civilians is the number of cards that belong to neither team.
	Civilians = 7
	// ForbiddenTargets is the number of instant-loss cards.
	ForbiddenTargets = 1
)

var (
	ErrInsufficientWords = errors.New("switchboard: not enough distinct words")
	ErrUnknownWord       = errors.New("switchboard: word is not on the board")
	ErrAlreadyRevealed   = errors.New("switchboard: word was already revealed")
	ErrInvalidCount      = errors.New("switchboard: invalid clue count")
)

// Team is one of the two sides of a game.
type Team int

const (
	// NoTeam is an error case, and the winner of a game nobody won.
	NoTeam Team = iota
	RedTeam
	BlueTeam
)

func (t Team) String() string {
	switch t {
	case RedTeam:
		return "red"
	case BlueTeam:
		return "blue"
	}
	return ""
}

// Title is the capitalized team name, for display.
func (t Team) Title() string {
	switch t {
	case RedTeam:
		return "Red"
	case BlueTeam:
		return "Blue"
	}
	return "None"
}

// Other returns the opposing team.
func (t Team) Other() Team {
	switch t {
	case RedTeam:
		return BlueTeam
	case BlueTeam:
		return RedTeam
	}
	return NoTeam
}

// Target is the identity of this team's cards.
func (t Team) Target() Identity {
	switch t {
	case RedTeam:
		return RedTarget
	case BlueTeam:
		return BlueTarget
	}
	return UnknownIdentity
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(dat []byte) error {
	tm, err := ParseTeam(string(dat))
	if err != nil {
		return err
	}
	*t = tm
	return nil
}

// ParseTeam parses "red" or "blue". The empty string parses as NoTeam.
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return RedTeam, nil
	case "blue":
		return BlueTeam, nil
	case "":
		return NoTeam, nil
	}
	return NoTeam, fmt.Errorf("invalid team %q, 'red' and 'blue' are the only valid teams", s)
}

// Identity is the hidden affiliation of a card.
type Identity int

const (
	// UnknownIdentity means we don't know what the card is, which is what
	// players see for unrevealed cards.
	UnknownIdentity Identity = iota
	RedTarget
	BlueTarget
	Civilian
	// ForbiddenTarget ends the game for whoever reveals it.
	ForbiddenTarget
)

var identityNames = map[Identity]string{
	RedTarget:       "red_target",
	BlueTarget:      "blue_target",
	Civilian:        "civilian",
	ForbiddenTarget: "forbidden_target",
}

func (i Identity) String() string {
	if s, ok := identityNames[i]; ok {
		return s
	}
	return "unknown"
}

// Team returns the team a target belongs to, or NoTeam.
func (i Identity) Team() Team {
	switch i {
	case RedTarget:
		return RedTeam
	case BlueTarget:
		return BlueTeam
	}
	return NoTeam
}

func (i Identity) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *Identity) UnmarshalText(dat []byte) error {
	for id, name := range identityNames {
		if name == string(dat) {
			*i = id
			return nil
		}
	}
	*i = UnknownIdentity
	return nil
}

// Outcome is how a single guess turned out for the team that made it.
type Outcome int

const (
	NoOutcome Outcome = iota
	Correct
	Enemy
	CivilianHit
	ForbiddenHit
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Enemy:
		return "enemy"
	case CivilianHit:
		return "civilian"
	case ForbiddenHit:
		return "forbidden_target"
	}
	return ""
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(dat []byte) error {
	for _, oc := range []Outcome{Correct, Enemy, CivilianHit, ForbiddenHit} {
		if oc.String() == string(dat) {
			*o = oc
			return nil
		}
	}
	*o = NoOutcome
	return nil
}

// OutcomeFor scores a revealed identity from the guessing team's point of view.
func OutcomeFor(guesser Team, id Identity) Outcome {
	switch {
	case id == ForbiddenTarget:
		return ForbiddenHit
	case id == Civilian:
		return CivilianHit
	case id == guesser.Target():
		return Correct
	}
	return Enemy
}

// Count is the number attached to a clue: either a fixed number of related
// words, or unlimited.
type Count struct {
	n         uint
	unlimited bool
}

// Unlimited lets the guessing team keep going until it misses or runs out of
// words.
var Unlimited = Count{unlimited: true}

// Fixed is a clue for n related words.
func Fixed(n uint) Count {
	return Count{n: n}
}

// N returns the fixed count, and false for unlimited clues.
func (c Count) N() (int, bool) {
	if c.unlimited {
		return 0, false
	}
	return int(c.n), true
}

func (c Count) IsUnlimited() bool {
	return c.unlimited
}

// IsZero reports whether this is the "zero" clue, which still obliges the
// guessing team to make one guess.
func (c Count) IsZero() bool {
	return !c.unlimited && c.n == 0
}

// MaxGuesses is the most guesses a team may make on this clue. Fixed counts
// allow one more guess than the count, unlimited allows every unrevealed word.
func (c Count) MaxGuesses(unrevealed int) int {
	if c.unlimited {
		return unrevealed
	}
	return int(c.n) + 1
}

func (c Count) String() string {
	if c.unlimited {
		return "unlimited"
	}
	return strconv.FormatUint(uint64(c.n), 10)
}

func (c Count) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Count) UnmarshalText(dat []byte) error {
	pc, err := ParseCount(string(dat))
	if err != nil {
		return err
	}
	*c = pc
	return nil
}

// ParseCount parses a non-negative integer or the literal "unlimited".
func ParseCount(s string) (Count, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "unlimited" {
		return Unlimited, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Count{}, fmt.Errorf("%w: %q is not a number or 'unlimited'", ErrInvalidCount, s)
	}
	if n < 0 {
		return Count{}, fmt.Errorf("%w: %d is negative", ErrInvalidCount, n)
	}
	return Fixed(uint(n)), nil
}

// Clue is a word and a count from a coach.
type Clue struct {
	Word  string `json:"word"`
	Count Count  `json:"count"`
	// Meta describes the model call that produced the clue, if any.
	Meta *CallMeta `json:"meta,omitempty"`
}

func (c *Clue) String() string {
	return fmt.Sprintf("%q (%s)", c.Word, c.Count)
}

// CallMeta is what a model-backed collaborator reports about one call. It is
// passed through to the event sinks untouched.
type CallMeta struct {
	Model        string  `json:"model_name"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	LatencyMS    float64 `json:"latency_ms"`
	Cost         float64 `json:"openrouter_cost"`
	UpstreamCost float64 `json:"upstream_cost"`
}

// TurnLabel formats a turn as "1a", "1b", "2a"... The team that moved first
// always gets "a".
func TurnLabel(turnCount int, team, starting Team) string {
	phase := "b"
	if team == starting {
		phase = "a"
	}
	return fmt.Sprintf("%d%s", turnCount/2+1, phase)
}
