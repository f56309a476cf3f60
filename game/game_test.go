package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/adjudicate"
	"github.com/google/go-cmp/cmp"
)

// testBoard is a board the red team starts: red0-red8, blue0-blue7, civ0-civ6
// and "forbidden", in that order.
func testBoard() *switchboard.Board {
	var cards []switchboard.Card
	add := func(prefix string, n int, id switchboard.Identity) {
		for i := 0; i < n; i++ {
			cards = append(cards, switchboard.Card{Word: fmt.Sprintf("%s%d", prefix, i), Identity: id})
		}
	}
	add("red", 9, switchboard.RedTarget)
	add("blue", 8, switchboard.BlueTarget)
	add("civ", 7, switchboard.Civilian)
	cards = append(cards, switchboard.Card{Word: "forbidden", Identity: switchboard.ForbiddenTarget})
	return &switchboard.Board{Cards: cards}
}

// revealAllBut reveals every target of the team except the ones named.
func revealAllBut(b *switchboard.Board, t switchboard.Team, keep ...string) {
	kept := make(map[string]bool)
	for _, w := range keep {
		kept[w] = true
	}
	for i, c := range b.Cards {
		if c.Identity == t.Target() && !kept[c.Word] {
			b.Cards[i].Revealed = true
		}
	}
}

type scriptedCoach struct {
	name  string
	clues []*switchboard.Clue
	err   error

	calls int
	reqs  []*switchboard.ClueRequest
}

func (c *scriptedCoach) GiveClue(_ context.Context, req *switchboard.ClueRequest) (*switchboard.Clue, error) {
	defer func() { c.calls++ }()
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.clues) == 0 {
		return &switchboard.Clue{Word: "pass", Count: switchboard.Fixed(0)}, nil
	}
	if c.calls >= len(c.clues) {
		return c.clues[len(c.clues)-1], nil
	}
	return c.clues[c.calls], nil
}

func (c *scriptedCoach) Name() string { return c.name }

// countingGuesses wraps a guess list and counts how many guesses were asked
// for.
type countingGuesses struct {
	*switchboard.GuessList
	asked int
}

func (c *countingGuesses) Next(ctx context.Context, v *switchboard.BoardView) (string, bool, error) {
	c.asked++
	return c.GuessList.Next(ctx, v)
}

type scriptedPlayer struct {
	name  string
	turns [][]string
	err   error

	calls   int
	reqs    []*switchboard.GuessRequest
	guesses []*countingGuesses
}

func (p *scriptedPlayer) Guess(_ context.Context, req *switchboard.GuessRequest) (switchboard.Guesses, error) {
	defer func() { p.calls++ }()
	p.reqs = append(p.reqs, req)
	if p.err != nil {
		return nil, p.err
	}
	var words []string
	if p.calls < len(p.turns) {
		words = p.turns[p.calls]
	}
	g := &countingGuesses{GuessList: switchboard.NewGuessList(words, nil)}
	p.guesses = append(p.guesses, g)
	return g, nil
}

func (p *scriptedPlayer) Name() string { return p.name }

type fixedAdjudicator struct {
	name  string
	valid bool
}

func (f *fixedAdjudicator) Adjudicate(context.Context, *switchboard.AdjudicationRequest) (*switchboard.Ruling, error) {
	reason := "looks fine"
	if !f.valid {
		reason = "breaks the rules"
	}
	return &switchboard.Ruling{Valid: f.valid, Reason: reason}, nil
}

func (f *fixedAdjudicator) Name() string { return f.name }

type env struct {
	redCoach, blueCoach   *scriptedCoach
	redPlayer, bluePlayer *scriptedPlayer
	events                []switchboard.Event
}

func (e *env) config() *Config {
	return &Config{
		RedCoach:   e.redCoach,
		BlueCoach:  e.blueCoach,
		RedPlayer:  e.redPlayer,
		BluePlayer: e.bluePlayer,
		Events:     switchboard.SinkFunc(func(ev switchboard.Event) { e.events = append(e.events, ev) }),
		Rand:       rand.New(rand.NewSource(0)),
		GameID:     "testgame",
	}
}

func (e *env) actions() []string {
	var out []string
	for _, ev := range e.events {
		out = append(out, ev.Action())
	}
	return out
}

func newEnv() *env {
	return &env{
		redCoach:   &scriptedCoach{name: "red-model"},
		blueCoach:  &scriptedCoach{name: "blue-model"},
		redPlayer:  &scriptedPlayer{name: "red-model"},
		bluePlayer: &scriptedPlayer{name: "blue-model"},
	}
}

func clue(word string, c switchboard.Count) *switchboard.Clue {
	return &switchboard.Clue{Word: word, Count: c}
}

func movesOf(g *Game) []string {
	var out []string
	for _, mv := range g.Result().Moves {
		out = append(out, mv.Word)
	}
	return out
}

func mustNew(t *testing.T, b *switchboard.Board, cfg *Config) *Game {
	t.Helper()
	g, err := New(b, switchboard.RedTeam, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func TestFixedCountAllowsOneExtraGuess(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("colors", switchboard.Fixed(2))}
	e.redPlayer.turns = [][]string{{"red0", "red1", "red2", "red3"}}
	g := mustNew(t, testBoard(), e.config())

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}

	if diff := cmp.Diff([]string{"red0", "red1", "red2"}, movesOf(g)); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
	if got := e.redPlayer.guesses[0].asked; got != 3 {
		t.Errorf("player was asked for %d guesses, want 3", got)
	}
	if g.Board().Revealed["red3"] {
		t.Error("red3 was revealed past the guess limit")
	}
	if g.ActiveTeam() != switchboard.BlueTeam || g.TurnCount() != 1 {
		t.Errorf("after one turn: active = %s, turn count = %d, want blue, 1", g.ActiveTeam(), g.TurnCount())
	}
}

func TestIncorrectGuessEndsTurn(t *testing.T) {
	tests := []struct {
		desc    string
		guesses []string
		want    []string
	}{
		{"enemy", []string{"red0", "blue0", "red1"}, []string{"red0", "blue0"}},
		{"civilian", []string{"civ0", "red0"}, []string{"civ0"}},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			e := newEnv()
			e.redCoach.clues = []*switchboard.Clue{clue("colors", switchboard.Fixed(3))}
			e.redPlayer.turns = [][]string{test.guesses}
			g := mustNew(t, testBoard(), e.config())

			if err := g.PlayTurn(context.Background()); err != nil {
				t.Fatalf("PlayTurn: %v", err)
			}
			if diff := cmp.Diff(test.want, movesOf(g)); diff != "" {
				t.Errorf("unexpected moves (-want +got)\n%s", diff)
			}
			if got := e.redPlayer.guesses[0].asked; got != len(test.want) {
				t.Errorf("player was asked for %d guesses, want %d", got, len(test.want))
			}
			if g.State() != AwaitingClue || g.ActiveTeam() != switchboard.BlueTeam {
				t.Errorf("state = %s, active = %s, want awaiting_clue, blue", g.State(), g.ActiveTeam())
			}
		})
	}
}

func TestUnlimitedCount(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("everything", switchboard.Unlimited)}
	var reds []string
	for i := 0; i < 9; i++ {
		reds = append(reds, fmt.Sprintf("red%d", i))
	}
	e.redPlayer.turns = [][]string{reds}
	g := mustNew(t, testBoard(), e.config())

	res, err := g.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Winner != switchboard.RedTeam {
		t.Errorf("winner = %s, want red", res.Winner)
	}
	if res.Turns != 0 {
		t.Errorf("turns = %d, want 0", res.Turns)
	}
	if diff := cmp.Diff(reds, movesOf(g)); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
	if e.bluePlayer.calls != 0 {
		t.Error("blue played after red won")
	}
}

func TestZeroCountAllowsOneGuess(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("zero", switchboard.Fixed(0))}
	// Unknown words don't use up a guess.
	e.redPlayer.turns = [][]string{{"nonsense", "RED0", "red1"}}
	g := mustNew(t, testBoard(), e.config())

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}
	if diff := cmp.Diff([]string{"red0"}, movesOf(g)); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
}

func TestForbiddenTargetLoses(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("danger", switchboard.Fixed(2))}
	e.redPlayer.turns = [][]string{{"red0", "forbidden", "red1"}}
	g := mustNew(t, testBoard(), e.config())

	res, err := g.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Winner != switchboard.BlueTeam {
		t.Errorf("winner = %s, want blue", res.Winner)
	}
	if g.State() != BlueWins {
		t.Errorf("state = %s, want blue_wins", g.State())
	}
	if diff := cmp.Diff([]string{"red0", "forbidden"}, movesOf(g)); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
	// The forbidden guess never shows up in the history.
	if h := g.History(); strings.Contains(h, "forbidden") {
		t.Errorf("history mentions the forbidden guess:\n%s", h)
	}
}

func TestEnemyHitOnLastTargetLosesForGuesser(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("ocean", switchboard.Fixed(1))}
	e.redPlayer.turns = [][]string{{"blue3"}}
	b := testBoard()
	revealAllBut(b, switchboard.BlueTeam, "blue3")
	g := mustNew(t, b, e.config())

	res, err := g.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Winner != switchboard.BlueTeam {
		t.Errorf("winner = %s, want blue", res.Winner)
	}
	if diff := cmp.Diff([]switchboard.Move{{Team: switchboard.RedTeam, Word: "blue3", Identity: switchboard.BlueTarget}}, res.Moves); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
}

func TestRejectedClue(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("red0", switchboard.Fixed(1))}
	e.redPlayer.turns = [][]string{{"red0"}}
	cfg := e.config()
	cfg.Panel = adjudicate.New(&fixedAdjudicator{name: "ref"}, &fixedAdjudicator{name: "rev"}, cfg.Events, nil)
	g := mustNew(t, testBoard(), cfg)

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}

	if e.redPlayer.calls != 0 {
		t.Errorf("player was called %d times after a rejected clue", e.redPlayer.calls)
	}
	if got := g.Board().Remaining(switchboard.BlueTeam); got != 7 {
		t.Errorf("blue has %d targets left, want 7 after one penalty reveal", got)
	}
	if got := g.Board().Remaining(switchboard.RedTeam); got != 9 {
		t.Errorf("red has %d targets left, want 9", got)
	}
	if len(movesOf(g)) != 0 {
		t.Errorf("penalty reveals shouldn't be moves, got %v", movesOf(g))
	}
	if !strings.Contains(g.History(), "[INVALID: Upheld on review") {
		t.Errorf("history doesn't record the rejection:\n%s", g.History())
	}

	var penalties []*switchboard.PenaltyEvent
	for _, ev := range e.events {
		if p, ok := ev.(*switchboard.PenaltyEvent); ok {
			penalties = append(penalties, p)
		}
	}
	if len(penalties) != 1 {
		t.Fatalf("got %d penalty events, want 1", len(penalties))
	}
	if p := penalties[0]; p.Offender != switchboard.RedTeam || p.Penalized != switchboard.BlueTeam || !strings.HasPrefix(p.Word, "blue") {
		t.Errorf("unexpected penalty %+v", p)
	}
	if g.ActiveTeam() != switchboard.BlueTeam {
		t.Errorf("active team = %s, want blue", g.ActiveTeam())
	}
}

func TestRejectedClueOverturned(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("fruit", switchboard.Fixed(1))}
	e.redPlayer.turns = [][]string{{"red0"}}
	cfg := e.config()
	cfg.Panel = adjudicate.New(&fixedAdjudicator{name: "ref"}, &fixedAdjudicator{name: "rev", valid: true}, cfg.Events, nil)
	g := mustNew(t, testBoard(), cfg)

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}

	if e.redPlayer.calls != 1 {
		t.Errorf("player was called %d times, want 1", e.redPlayer.calls)
	}
	if got := g.Board().Remaining(switchboard.BlueTeam); got != 8 {
		t.Errorf("blue has %d targets left, want 8", got)
	}
	var clues []*switchboard.ClueEvent
	for _, ev := range e.events {
		if c, ok := ev.(*switchboard.ClueEvent); ok {
			clues = append(clues, c)
		}
	}
	if len(clues) != 1 || !clues[0].Valid {
		t.Fatalf("unexpected clue events %+v", clues)
	}
	for _, s := range []string{"breaks the rules", "looks fine"} {
		if !strings.Contains(clues[0].Reason, s) {
			t.Errorf("reason %q doesn't record %q", clues[0].Reason, s)
		}
	}
}

func TestPenaltyRevealsLastTarget(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("bad", switchboard.Fixed(1))}
	cfg := e.config()
	cfg.Panel = adjudicate.New(&fixedAdjudicator{name: "ref"}, nil, cfg.Events, nil)
	b := testBoard()
	revealAllBut(b, switchboard.BlueTeam, "blue5")
	g := mustNew(t, b, cfg)

	res, err := g.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Winner != switchboard.BlueTeam {
		t.Errorf("winner = %s, want blue", res.Winner)
	}
}

func TestCollaboratorErrorsFallBack(t *testing.T) {
	e := newEnv()
	e.redCoach.err = errors.New("model unavailable")
	e.redPlayer.err = errors.New("model unavailable")
	g := mustNew(t, testBoard(), e.config())

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}

	if len(e.redPlayer.reqs) != 1 {
		t.Fatalf("player was called %d times, want 1", len(e.redPlayer.reqs))
	}
	if got := e.redPlayer.reqs[0].Clue; got.Word != ErrorClue || got.Count != switchboard.Fixed(1) {
		t.Errorf("fallback clue = %s, want %q (1)", got, ErrorClue)
	}
	// The fallback guess is the first face-down word.
	if diff := cmp.Diff([]string{"red0"}, movesOf(g)); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
}

func TestEmptyClueFallsBack(t *testing.T) {
	for _, word := range []string{"", "  "} {
		e := newEnv()
		e.redCoach.clues = []*switchboard.Clue{clue(word, switchboard.Fixed(3))}
		g := mustNew(t, testBoard(), e.config())

		if err := g.PlayTurn(context.Background()); err != nil {
			t.Fatalf("PlayTurn: %v", err)
		}
		if len(e.redPlayer.reqs) != 1 {
			t.Fatalf("player was called %d times, want 1", len(e.redPlayer.reqs))
		}
		if got := e.redPlayer.reqs[0].Clue; got.Word != ErrorClue || got.Count != switchboard.Fixed(1) {
			t.Errorf("clue %q became %s, want %q (1)", word, got, ErrorClue)
		}
	}
}

func TestIgnoredGuessesResetAfterPlay(t *testing.T) {
	nope := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "nope"
		}
		return out
	}
	var turn []string
	turn = append(turn, nope(20)...)
	turn = append(turn, "red0")
	turn = append(turn, nope(20)...)
	turn = append(turn, "red1")
	turn = append(turn, nope(maxIgnoredGuesses)...)
	turn = append(turn, "red2")

	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("colors", switchboard.Unlimited)}
	e.redPlayer.turns = [][]string{turn}
	g := mustNew(t, testBoard(), e.config())

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}
	// Only an unbroken run of unusable guesses ends the turn.
	if diff := cmp.Diff([]string{"red0", "red1"}, movesOf(g)); diff != "" {
		t.Errorf("unexpected moves (-want +got)\n%s", diff)
	}
}

func TestPlayerSeesNoHiddenIdentities(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("colors", switchboard.Fixed(1))}
	e.redPlayer.turns = [][]string{{"red0"}}
	g := mustNew(t, testBoard(), e.config())

	if err := g.PlayTurn(context.Background()); err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}
	for w := range e.redPlayer.reqs[0].View.Identities {
		if !e.redPlayer.reqs[0].View.Revealed[w] {
			t.Errorf("player saw the identity of face-down %q", w)
		}
	}
}

func TestMaxTurns(t *testing.T) {
	e := newEnv()
	cfg := e.config()
	cfg.MaxTurns = 4
	g := mustNew(t, testBoard(), cfg)

	res, err := g.Play(context.Background())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.Winner != switchboard.NoTeam || g.State() != NoWinner {
		t.Errorf("winner = %q, state = %s, want no winner", res.Winner, g.State())
	}
	if res.Turns != 4 {
		t.Errorf("turns = %d, want 4", res.Turns)
	}
}

func TestEvents(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("colors", switchboard.Fixed(1))}
	e.redPlayer.turns = [][]string{{"red0", "civ0"}}
	e.blueCoach.clues = []*switchboard.Clue{clue("danger", switchboard.Fixed(1))}
	e.bluePlayer.turns = [][]string{{"forbidden"}}
	g := mustNew(t, testBoard(), e.config())

	if _, err := g.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}

	want := []string{
		"GAME_START",
		"CLUE", "GUESS", "GUESS", "TURN_END",
		"CLUE", "GUESS",
		"GAME_END",
	}
	if diff := cmp.Diff(want, e.actions()); diff != "" {
		t.Errorf("unexpected events (-want +got)\n%s", diff)
	}
	for _, ev := range e.events {
		if ev.Game() != "testgame" {
			t.Errorf("%s event has game ID %q", ev.Action(), ev.Game())
		}
	}
}

func TestHistoryGivenToCollaborators(t *testing.T) {
	e := newEnv()
	e.redCoach.clues = []*switchboard.Clue{clue("colors", switchboard.Fixed(1))}
	e.redPlayer.turns = [][]string{{"red0", "blue0"}}
	g := mustNew(t, testBoard(), e.config())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := g.PlayTurn(ctx); err != nil {
			t.Fatalf("PlayTurn: %v", err)
		}
	}

	want := "Turn 1a: Red Clue: \"colors\" (1)\n  → red0 ✓, blue0 ✗ (enemy)"
	if got := e.blueCoach.reqs[0].History; got != want {
		t.Errorf("blue coach history = %q, want %q", got, want)
	}
	if got := e.redCoach.reqs[0].History; got != "None (game just started)" {
		t.Errorf("first coach history = %q, want the empty sentinel", got)
	}
}

func TestPlayCanceled(t *testing.T) {
	e := newEnv()
	g := mustNew(t, testBoard(), e.config())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Play(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Play = %v, want context.Canceled", err)
	}
}

func TestNewValidation(t *testing.T) {
	e := newEnv()

	short := testBoard()
	short.Cards = short.Cards[:24]

	dup := testBoard()
	dup.Cards[1].Word = "RED0"

	tests := []struct {
		desc    string
		board   *switchboard.Board
		starter switchboard.Team
		cfg     *Config
	}{
		{"too few cards", short, switchboard.RedTeam, e.config()},
		{"duplicate word", dup, switchboard.RedTeam, e.config()},
		{"wrong starter", testBoard(), switchboard.BlueTeam, e.config()},
		{"no starter", testBoard(), switchboard.NoTeam, e.config()},
		{"missing player", testBoard(), switchboard.RedTeam, &Config{RedCoach: e.redCoach, BlueCoach: e.blueCoach, RedPlayer: e.redPlayer}},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			if _, err := New(test.board, test.starter, test.cfg); err == nil {
				t.Error("New succeeded, want an error")
			}
		})
	}
}

func TestDeal(t *testing.T) {
	var pool []string
	for i := 0; i < 40; i++ {
		pool = append(pool, fmt.Sprintf("word%d", i))
	}

	deal := func() *Game {
		cfg := newEnv().config()
		cfg.Rand = rand.New(rand.NewSource(99))
		g, err := Deal(pool, switchboard.NoTeam, cfg)
		if err != nil {
			t.Fatalf("Deal: %v", err)
		}
		return g
	}

	a, b := deal(), deal()
	if a.StartingTeam() != b.StartingTeam() {
		t.Errorf("same seed picked different starting teams")
	}
	if diff := cmp.Diff(a.Board(), b.Board()); diff != "" {
		t.Errorf("same seed dealt different boards (-want +got)\n%s", diff)
	}
	if got := a.Board().Remaining(a.StartingTeam()); got != switchboard.StartingTargets {
		t.Errorf("starting team has %d targets, want %d", got, switchboard.StartingTargets)
	}

	if _, err := Deal(pool[:10], switchboard.RedTeam, newEnv().config()); !errors.Is(err, switchboard.ErrInsufficientWords) {
		t.Errorf("Deal with 10 words = %v, want ErrInsufficientWords", err)
	}
}
