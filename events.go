package switchboard

// EventSink receives everything notable that happens during a game: setup,
// clues, rulings, guesses, penalties, team switches, model calls and the end
// of the game. Sinks must not block for long; the game waits on them.
type EventSink interface {
	Emit(Event)
}

// Event is one of the *Event structs below.
type Event interface {
	// Action names the event on the wire, e.g. "GAME_START".
	Action() string
	// Game is the ID of the game the event belongs to.
	Game() string
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink fans events out to several sinks, in order.
type MultiSink []EventSink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

type GameStartEvent struct {
	GameID       string     `json:"game_id"`
	StartingTeam Team       `json:"starting_team"`
	Board        *BoardView `json:"board"`
	Red          string     `json:"red"`
	Blue         string     `json:"blue"`
	Adjudicator  string     `json:"adjudicator,omitempty"`
	// Prompts maps a role ("red_coach", "referee", ...) to its template.
	Prompts map[string]string `json:"prompts,omitempty"`
}

func (e *GameStartEvent) Action() string { return "GAME_START" }
func (e *GameStartEvent) Game() string   { return e.GameID }

type ClueEvent struct {
	GameID string `json:"game_id"`
	Turn   string `json:"turn"`
	Team   Team   `json:"team"`
	Coach  string `json:"coach"`
	Clue   *Clue  `json:"clue"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func (e *ClueEvent) Action() string { return "CLUE" }
func (e *ClueEvent) Game() string   { return e.GameID }

// RulingEvent is emitted for every adjudicator decision, first opinion and
// review alike.
type RulingEvent struct {
	GameID      string    `json:"game_id"`
	Turn        string    `json:"turn"`
	Team        Team      `json:"team"`
	Adjudicator string    `json:"adjudicator"`
	Review      bool      `json:"review"`
	Clue        *Clue     `json:"clue"`
	Valid       bool      `json:"valid"`
	Reason      string    `json:"reason"`
	Meta        *CallMeta `json:"meta,omitempty"`
}

func (e *RulingEvent) Action() string { return "RULING" }
func (e *RulingEvent) Game() string   { return e.GameID }

type GuessEvent struct {
	GameID   string   `json:"game_id"`
	Turn     string   `json:"turn"`
	Team     Team     `json:"team"`
	Player   string   `json:"player"`
	Word     string   `json:"word"`
	Identity Identity `json:"identity"`
	Outcome  Outcome  `json:"outcome"`
}

func (e *GuessEvent) Action() string { return "GUESS" }
func (e *GuessEvent) Game() string   { return e.GameID }

// PenaltyEvent records the reveal that follows a rejected clue. Word is empty
// when the penalized team had nothing left to reveal.
type PenaltyEvent struct {
	GameID    string `json:"game_id"`
	Turn      string `json:"turn"`
	Offender  Team   `json:"offender"`
	Penalized Team   `json:"penalized"`
	Word      string `json:"word,omitempty"`
}

func (e *PenaltyEvent) Action() string { return "PENALTY" }
func (e *PenaltyEvent) Game() string   { return e.GameID }

type TurnEndEvent struct {
	GameID        string `json:"game_id"`
	Turn          string `json:"turn"`
	Team          Team   `json:"team"`
	StartingTeam  Team   `json:"starting_team"`
	RedRemaining  int    `json:"red_remaining"`
	BlueRemaining int    `json:"blue_remaining"`
}

func (e *TurnEndEvent) Action() string { return "TURN_END" }
func (e *TurnEndEvent) Game() string   { return e.GameID }

// CallEvent describes one model call and what came of it.
type CallEvent struct {
	GameID string `json:"game_id"`
	Turn   string `json:"turn"`
	// Team is the team the call was made for, e.g. "red" or "referee_red".
	Team string `json:"team"`
	// Role is one of "coach", "player", "referee" or "review_referee".
	Role          string         `json:"type"`
	Meta          *CallMeta      `json:"meta"`
	Result        map[string]any `json:"turn_result,omitempty"`
	GameContinues bool           `json:"game_continues"`
}

func (e *CallEvent) Action() string { return "CALL" }
func (e *CallEvent) Game() string   { return e.GameID }

type GameEndEvent struct {
	Result *Result `json:"result"`
}

func (e *GameEndEvent) Action() string { return "GAME_END" }
func (e *GameEndEvent) Game() string   { return e.Result.GameID }
