package web

import (
	"sync"

	"github.com/bcspragu/Switchboard"
)

// Status tracks a running game from its events, so the game itself is never
// read from another goroutine.
type Status struct {
	mu sync.Mutex

	ID            string                 `json:"id"`
	Red           string                 `json:"red"`
	Blue          string                 `json:"blue"`
	StartingTeam  switchboard.Team       `json:"starting_team"`
	Turn          string                 `json:"turn"`
	ActiveTeam    switchboard.Team       `json:"active_team"`
	RedRemaining  int                    `json:"red_remaining"`
	BlueRemaining int                    `json:"blue_remaining"`
	LastClue      *switchboard.Clue      `json:"last_clue,omitempty"`
	Board         *switchboard.BoardView `json:"board"`
	Done          bool                   `json:"done"`
	Winner        switchboard.Team       `json:"winner"`
}

func (st *Status) Emit(ev switchboard.Event) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch ev := ev.(type) {
	case *switchboard.GameStartEvent:
		st.ID = ev.GameID
		st.Red, st.Blue = ev.Red, ev.Blue
		st.StartingTeam = ev.StartingTeam
		st.ActiveTeam = ev.StartingTeam
		st.Board = ev.Board
		st.recount()
	case *switchboard.ClueEvent:
		st.Turn = ev.Turn
		st.ActiveTeam = ev.Team
		st.LastClue = ev.Clue
	case *switchboard.GuessEvent:
		st.reveal(ev.Word)
	case *switchboard.PenaltyEvent:
		st.reveal(ev.Word)
	case *switchboard.TurnEndEvent:
		st.ActiveTeam = ev.Team.Other()
		st.RedRemaining, st.BlueRemaining = ev.RedRemaining, ev.BlueRemaining
	case *switchboard.GameEndEvent:
		st.Done = true
		st.Winner = ev.Result.Winner
		if ev.Result.FinalBoard != nil {
			st.Board = ev.Result.FinalBoard
		}
		st.recount()
	}
}

func (st *Status) reveal(word string) {
	if st.Board == nil || word == "" {
		return
	}
	if st.Board.Revealed == nil {
		st.Board.Revealed = make(map[string]bool)
	}
	st.Board.Revealed[word] = true
	st.recount()
}

func (st *Status) recount() {
	if st.Board == nil {
		return
	}
	st.RedRemaining = st.Board.Remaining(switchboard.RedTeam)
	st.BlueRemaining = st.Board.Remaining(switchboard.BlueTeam)
}

// Snapshot returns a copy that's safe to read while the game goes on.
func (st *Status) Snapshot() *Status {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := &Status{
		ID:            st.ID,
		Red:           st.Red,
		Blue:          st.Blue,
		StartingTeam:  st.StartingTeam,
		Turn:          st.Turn,
		ActiveTeam:    st.ActiveTeam,
		RedRemaining:  st.RedRemaining,
		BlueRemaining: st.BlueRemaining,
		LastClue:      st.LastClue,
		Done:          st.Done,
		Winner:        st.Winner,
	}
	if st.Board != nil {
		b := &switchboard.BoardView{
			Words:      append([]string(nil), st.Board.Words...),
			Revealed:   make(map[string]bool, len(st.Board.Revealed)),
			Identities: make(map[string]switchboard.Identity, len(st.Board.Identities)),
		}
		for k, v := range st.Board.Revealed {
			b.Revealed[k] = v
		}
		for k, v := range st.Board.Identities {
			b.Identities[k] = v
		}
		out.Board = b
	}
	return out
}
