// Package console prints games as they happen, for someone watching a
// terminal.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/prompt"
)

var (
	redStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	blueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5A623"))
	headStyle  = lipgloss.NewStyle().Bold(true)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935"))
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Sink prints events to a terminal. Model call events are only shown when
// Verbose is set.
type Sink struct {
	Verbose bool

	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer) *Sink {
	return &Sink{out: out}
}

func team(t switchboard.Team) string {
	switch t {
	case switchboard.RedTeam:
		return redStyle.Render(strings.ToUpper(t.String()))
	case switchboard.BlueTeam:
		return blueStyle.Render(strings.ToUpper(t.String()))
	}
	return t.Title()
}

func (s *Sink) println(args ...any) {
	fmt.Fprintln(s.out, args...)
}

func (s *Sink) Emit(ev switchboard.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev := ev.(type) {
	case *switchboard.GameStartEvent:
		s.println(headStyle.Render(fmt.Sprintf("Game %s: %s vs %s", ev.GameID, ev.Red, ev.Blue)))
		s.println(team(ev.StartingTeam), "starts")
		if ev.Board != nil {
			s.println(boardStyle.Render(prompt.Grid(ev.Board.Words, ev.Board.Revealed)))
		}
	case *switchboard.ClueEvent:
		s.println(fmt.Sprintf("%s %s coach (%s): %q (%s)", dimStyle.Render("["+ev.Turn+"]"), team(ev.Team), ev.Coach, ev.Clue.Word, ev.Clue.Count))
		if !ev.Valid {
			s.println("  " + badStyle.Render("INVALID: "+ev.Reason))
		}
	case *switchboard.RulingEvent:
		if !s.Verbose {
			return
		}
		verdict := goodStyle.Render("valid")
		if !ev.Valid {
			verdict = badStyle.Render("invalid")
		}
		who := "referee"
		if ev.Review {
			who = "review referee"
		}
		s.println(dimStyle.Render(fmt.Sprintf("  %s (%s):", who, ev.Adjudicator)), verdict, dimStyle.Render(ev.Reason))
	case *switchboard.GuessEvent:
		s.println(fmt.Sprintf("  %s guesses %s: %s", team(ev.Team), ev.Word, outcome(ev.Outcome)))
	case *switchboard.PenaltyEvent:
		if ev.Word == "" {
			s.println("  " + warnStyle.Render(fmt.Sprintf("Penalty: %s has nothing left to reveal", ev.Penalized.Title())))
			return
		}
		s.println("  " + warnStyle.Render(fmt.Sprintf("Penalty: %s revealed for %s", ev.Word, ev.Penalized.Title())))
	case *switchboard.TurnEndEvent:
		s.println(dimStyle.Render(fmt.Sprintf("  Red %d remaining, Blue %d remaining", ev.RedRemaining, ev.BlueRemaining)))
	case *switchboard.CallEvent:
		if !s.Verbose || ev.Meta == nil {
			return
		}
		s.println(dimStyle.Render(fmt.Sprintf("  %s call to %s: %d tokens, %.0fms", ev.Role, ev.Meta.Model, ev.Meta.TotalTokens, ev.Meta.LatencyMS)))
	case *switchboard.GameEndEvent:
		r := ev.Result
		if r.Winner == switchboard.NoTeam {
			s.println(headStyle.Render(fmt.Sprintf("Game %s ended with no winner after %d turns", r.GameID, r.Turns)))
			return
		}
		s.println(headStyle.Render(fmt.Sprintf("Game %s:", r.GameID)), team(r.Winner), headStyle.Render(fmt.Sprintf("wins after %d turns (%s)", r.Turns, r.Duration.Round(time.Millisecond))))
	}
}

func outcome(o switchboard.Outcome) string {
	switch o {
	case switchboard.Correct:
		return goodStyle.Render("correct")
	case switchboard.Enemy:
		return badStyle.Render("enemy target")
	case switchboard.CivilianHit:
		return warnStyle.Render("civilian")
	case switchboard.ForbiddenHit:
		return badStyle.Bold(true).Render("FORBIDDEN TARGET")
	}
	return o.String()
}

// PrintSummary writes a batch summary.
func PrintSummary(w io.Writer, s *switchboard.Summary) {
	lines := []string{
		headStyle.Render("Summary"),
		fmt.Sprintf("Games: %d", s.Games),
		fmt.Sprintf("%s wins: %d", redStyle.Render("Red"), s.RedWins),
		fmt.Sprintf("%s wins: %d", blueStyle.Render("Blue"), s.BlueWins),
		fmt.Sprintf("No winner: %d", s.NoWinner),
		fmt.Sprintf("Turns: %.1f average, %.1f median", s.AverageTurns, s.MedianTurns),
		fmt.Sprintf("Total duration: %s", s.TotalDuration.Round(time.Millisecond)),
		fmt.Sprintf("Red accuracy: %.0f%% (%d/%d)", s.Red.Accuracy*100, s.Red.Correct, s.Red.Total),
		fmt.Sprintf("Blue accuracy: %.0f%% (%d/%d)", s.Blue.Accuracy*100, s.Blue.Correct, s.Blue.Total),
	}
	fmt.Fprintln(w, boardStyle.Render(strings.Join(lines, "\n")))
}
