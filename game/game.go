// Package game runs games of Switchboard: it deals or validates a board, then
// drives the coach, adjudication and guessing phases of each turn until a team
// wins.
package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/adjudicate"
	"github.com/bcspragu/Switchboard/boardgen"
	"github.com/bcspragu/Switchboard/cryptorand"
	"github.com/bcspragu/Switchboard/history"
)

// State is where a game is in the turn protocol.
type State int

const (
	AwaitingClue State = iota
	AdjudicatingClue
	AwaitingGuesses
	RedWins
	BlueWins
	// NoWinner means the game hit its turn limit.
	NoWinner
)

func (s State) String() string {
	switch s {
	case AwaitingClue:
		return "awaiting_clue"
	case AdjudicatingClue:
		return "adjudicating_clue"
	case AwaitingGuesses:
		return "awaiting_guesses"
	case RedWins:
		return "red_wins"
	case BlueWins:
		return "blue_wins"
	case NoWinner:
		return "no_winner"
	}
	return "unknown"
}

// Over reports whether the state is terminal.
func (s State) Over() bool {
	return s == RedWins || s == BlueWins || s == NoWinner
}

// ErrorClue is the clue a coach is recorded as giving when its call fails.
const ErrorClue = "ERROR"

// Config holds the collaborators and options for a single game. Collaborators
// must not be shared with other games that run at the same time.
type Config struct {
	RedCoach  switchboard.Coach
	BlueCoach switchboard.Coach

	RedPlayer  switchboard.Player
	BluePlayer switchboard.Player

	// Panel adjudicates clues. A nil Panel accepts every clue.
	Panel *adjudicate.Panel

	Events switchboard.EventSink
	Log    *zap.SugaredLogger
	// Rand picks the starting team and penalty reveals. Defaults to a
	// crypto-backed source.
	Rand *rand.Rand

	// GameID correlates events and logs. Defaults to a fresh random ID.
	GameID string
	// MaxTurns ends the game with no winner after that many team switches.
	// Zero means no limit.
	MaxTurns int
	// Prompts is reported in the game start event, keyed by role.
	Prompts map[string]string
}

// Game is a single game of Switchboard. A Game is not safe for concurrent
// use; run independent games in parallel instead.
type Game struct {
	cfg    *Config
	id     string
	events switchboard.EventSink
	log    *zap.SugaredLogger
	r      *rand.Rand

	board     *switchboard.Board
	starting  switchboard.Team
	active    switchboard.Team
	turnCount int
	state     State
	hist      *history.History
	moves     []switchboard.Move

	started time.Time
	ended   time.Time
}

// New validates and initializes a game on the given board.
func New(b *switchboard.Board, startingTeam switchboard.Team, cfg *Config) (*Game, error) {
	if startingTeam != switchboard.RedTeam && startingTeam != switchboard.BlueTeam {
		return nil, fmt.Errorf("invalid starting team %d", startingTeam)
	}
	if err := validateBoard(b, startingTeam); err != nil {
		return nil, fmt.Errorf("invalid board given: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	g := &Game{
		cfg:      cfg,
		id:       cfg.GameID,
		events:   cfg.Events,
		log:      cfg.Log,
		r:        cfg.Rand,
		board:    b.Clone(),
		starting: startingTeam,
		active:   startingTeam,
		state:    AwaitingClue,
		hist:     history.New(),
	}
	if g.id == "" {
		g.id = switchboard.NewGameID()
	}
	if g.events == nil {
		g.events = switchboard.NopSink{}
	}
	if g.log == nil {
		g.log = zap.NewNop().Sugar()
	}
	g.log = g.log.With("game_id", g.id)
	if g.r == nil {
		g.r = rand.New(cryptorand.NewSource())
	}
	return g, nil
}

// Deal deals a new board from pool and initializes a game on it. If
// startingTeam is NoTeam, the starting team is picked at random.
func Deal(pool []string, startingTeam switchboard.Team, cfg *Config) (*Game, error) {
	if cfg.Rand == nil {
		cfg.Rand = rand.New(cryptorand.NewSource())
	}
	if startingTeam == switchboard.NoTeam {
		startingTeam = switchboard.RedTeam
		if cfg.Rand.Intn(2) == 1 {
			startingTeam = switchboard.BlueTeam
		}
	}
	b, err := boardgen.New(pool, startingTeam, cfg.Rand)
	if err != nil {
		return nil, fmt.Errorf("failed to deal board: %w", err)
	}
	return New(b, startingTeam, cfg)
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("no config given")
	}
	if cfg.RedCoach == nil {
		return fmt.Errorf("RedCoach cannot be nil")
	}
	if cfg.BlueCoach == nil {
		return fmt.Errorf("BlueCoach cannot be nil")
	}
	if cfg.RedPlayer == nil {
		return fmt.Errorf("RedPlayer cannot be nil")
	}
	if cfg.BluePlayer == nil {
		return fmt.Errorf("BluePlayer cannot be nil")
	}
	if cfg.MaxTurns < 0 {
		return fmt.Errorf("MaxTurns must be non-negative, got %d", cfg.MaxTurns)
	}
	return nil
}

// validateBoard validates that the board has the correct number of cards of
// each type, and no word twice.
func validateBoard(b *switchboard.Board, starter switchboard.Team) error {
	if b == nil {
		return fmt.Errorf("no board given")
	}
	if len(b.Cards) != switchboard.Size {
		return fmt.Errorf("board must contain %d words, found %d", switchboard.Size, len(b.Cards))
	}

	got := make(map[switchboard.Identity]int)
	seen := make(map[string]bool)
	for _, c := range b.Cards {
		key := strings.ToLower(c.Word)
		if seen[key] {
			return fmt.Errorf("word %q appears more than once", c.Word)
		}
		seen[key] = true
		got[c.Identity]++
	}

	for id, wc := range want(starter) {
		if gc := got[id]; gc != wc {
			return fmt.Errorf("got %d cards of type %q, want %d", gc, id, wc)
		}
	}

	return nil
}

func want(starter switchboard.Team) map[switchboard.Identity]int {
	return map[switchboard.Identity]int{
		starter.Target():            switchboard.StartingTargets,
		starter.Other().Target():    switchboard.SecondTargets,
		switchboard.Civilian:        switchboard.Civilians,
		switchboard.ForbiddenTarget: switchboard.ForbiddenTargets,
	}
}

func (g *Game) ID() string                     { return g.id }
func (g *Game) State() State                   { return g.state }
func (g *Game) StartingTeam() switchboard.Team { return g.starting }
func (g *Game) ActiveTeam() switchboard.Team   { return g.active }
func (g *Game) TurnCount() int                 { return g.turnCount }

// Board returns a snapshot of the board with every identity.
func (g *Game) Board() *switchboard.BoardView {
	return g.board.View(true)
}

// History renders the game's history so far.
func (g *Game) History() string {
	return g.hist.Render()
}

// Winner is the winning team, or NoTeam if the game isn't won.
func (g *Game) Winner() switchboard.Team {
	switch g.state {
	case RedWins:
		return switchboard.RedTeam
	case BlueWins:
		return switchboard.BlueTeam
	}
	return switchboard.NoTeam
}

// Play plays the game out and returns its result. Errors from collaborators
// are handled inside the turn they happen in, so Play only fails when ctx is
// done.
func (g *Game) Play(ctx context.Context) (*switchboard.Result, error) {
	for !g.state.Over() {
		if err := g.PlayTurn(ctx); err != nil {
			return nil, err
		}
	}
	return g.Result(), nil
}

// PlayTurn plays a single turn: a clue, its adjudication, then either guesses
// or a penalty. The first call announces the game.
func (g *Game) PlayTurn(ctx context.Context) error {
	if g.state.Over() {
		return fmt.Errorf("game %s is already over", g.id)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("game %s: %w", g.id, err)
	}
	if g.started.IsZero() {
		g.start()
	}

	if err := g.playTurn(ctx); err != nil {
		return fmt.Errorf("game %s, turn %s: %w", g.id, g.turnLabel(), err)
	}

	if g.state.Over() {
		g.finish()
		return nil
	}

	g.switchTeams()
	if g.cfg.MaxTurns > 0 && g.turnCount >= g.cfg.MaxTurns {
		g.log.Warnw("turn limit reached, ending game without a winner", "max_turns", g.cfg.MaxTurns)
		g.state = NoWinner
		g.finish()
	}
	return nil
}

func (g *Game) start() {
	g.started = time.Now()
	g.log.Infow("starting game", "starting_team", g.starting, "red", g.teamName(switchboard.RedTeam), "blue", g.teamName(switchboard.BlueTeam))
	g.events.Emit(&switchboard.GameStartEvent{
		GameID:       g.id,
		StartingTeam: g.starting,
		Board:        g.board.View(true),
		Red:          g.teamName(switchboard.RedTeam),
		Blue:         g.teamName(switchboard.BlueTeam),
		Adjudicator:  g.cfg.Panel.Name(),
		Prompts:      g.cfg.Prompts,
	})
}

func (g *Game) finish() {
	g.ended = time.Now()
	res := g.Result()
	g.log.Infow("game over", "winner", res.Winner, "turns", res.Turns, "duration", res.Duration)
	g.events.Emit(&switchboard.GameEndEvent{Result: res})
}

// Result compiles the game's result so far.
func (g *Game) Result() *switchboard.Result {
	end := g.ended
	if end.IsZero() {
		end = time.Now()
	}
	var dur time.Duration
	if !g.started.IsZero() {
		dur = end.Sub(g.started)
	}
	return &switchboard.Result{
		GameID:       g.id,
		StartingTeam: g.starting,
		Winner:       g.Winner(),
		Turns:        g.turnCount,
		Duration:     dur,
		Moves:        append([]switchboard.Move(nil), g.moves...),
		FinalBoard:   g.board.View(true),
		Red:          g.teamName(switchboard.RedTeam),
		Blue:         g.teamName(switchboard.BlueTeam),
	}
}

func (g *Game) playTurn(ctx context.Context) error {
	team, turn := g.active, g.turnLabel()
	coach, player := g.cfg.RedCoach, g.cfg.RedPlayer
	if team == switchboard.BlueTeam {
		coach, player = g.cfg.BlueCoach, g.cfg.BluePlayer
	}

	g.state = AwaitingClue
	clue, err := g.requestClue(ctx, coach, team, turn)
	if err != nil {
		return err
	}

	g.state = AdjudicatingClue
	verdict := g.cfg.Panel.Validate(ctx, &switchboard.AdjudicationRequest{
		GameID: g.id,
		Team:   team,
		Turn:   turn,
		Clue:   clue,
		View:   g.board.View(true),
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	g.events.Emit(&switchboard.ClueEvent{
		GameID: g.id,
		Turn:   turn,
		Team:   team,
		Coach:  coach.Name(),
		Clue:   clue,
		Valid:  verdict.Valid,
		Reason: verdict.Reason,
	})
	g.hist.Append(&history.Entry{
		Turn:    turn,
		Team:    team,
		Clue:    clue.Word,
		Count:   clue.Count,
		Invalid: !verdict.Valid,
		Reason:  verdict.Reason,
	})

	if !verdict.Valid {
		g.log.Infow("clue rejected", "team", team, "clue", clue.Word, "reason", verdict.Reason)
		g.penalize(team, turn)
		return nil
	}

	g.state = AwaitingGuesses
	return g.takeGuesses(ctx, player, clue, team, turn)
}

func (g *Game) requestClue(ctx context.Context, coach switchboard.Coach, team switchboard.Team, turn string) (*switchboard.Clue, error) {
	clue, err := coach.GiveClue(ctx, &switchboard.ClueRequest{
		GameID:  g.id,
		Team:    team,
		Turn:    turn,
		View:    g.board.View(true),
		History: g.hist.Render(),
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil || clue == nil || strings.TrimSpace(clue.Word) == "" {
		g.log.Errorw("coach failed to give a clue, using fallback", "team", team, "coach", coach.Name(), "error", err)
		return &switchboard.Clue{Word: ErrorClue, Count: switchboard.Fixed(1)}, nil
	}

	if clue.Meta != nil {
		g.events.Emit(&switchboard.CallEvent{
			GameID: g.id,
			Turn:   turn,
			Team:   team.String(),
			Role:   "coach",
			Meta:   clue.Meta,
			Result: map[string]any{
				"clue":  clue.Word,
				"count": clue.Count.String(),
			},
			GameContinues: true,
		})
	}
	return clue, nil
}

// maxIgnoredGuesses bounds how many unusable words in a row a player can
// return before the turn is ended.
const maxIgnoredGuesses = switchboard.Size

func (g *Game) takeGuesses(ctx context.Context, player switchboard.Player, clue *switchboard.Clue, team switchboard.Team, turn string) error {
	maxGuesses := clue.Count.MaxGuesses(len(g.board.Unrevealed()))

	guesses, err := player.Guess(ctx, &switchboard.GuessRequest{
		GameID:  g.id,
		Team:    team,
		Turn:    turn,
		Clue:    clue,
		View:    g.board.View(false),
		History: g.hist.Render(),
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil || guesses == nil {
		g.log.Errorw("player failed to guess, using fallback", "team", team, "player", player.Name(), "error", err)
		guesses = switchboard.NewGuessList(firstAvailable(g.board), nil)
	}

	var (
		made, ignored int
		details       []map[string]any
		tally         = make(map[switchboard.Outcome]int)
	)
	for made < maxGuesses && ignored < maxIgnoredGuesses {
		word, ok, err := guesses.Next(ctx, g.board.View(false))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			g.log.Errorw("failed to get next guess, ending turn", "team", team, "player", player.Name(), "error", err)
			break
		}
		if !ok {
			break
		}

		w, found := g.board.Lookup(word)
		if !found || g.board.IsRevealed(w) {
			g.log.Warnw("ignoring guess that can't be played", "team", team, "guess", word)
			ignored++
			continue
		}

		made++
		ignored = 0
		outcome := g.applyGuess(team, turn, player.Name(), w)
		tally[outcome]++
		details = append(details, map[string]any{"guess": w, "result": outcome.String()})
		if outcome != switchboard.Correct || g.state.Over() {
			break
		}
	}

	if m, ok := guesses.(interface{ CallMeta() *switchboard.CallMeta }); ok && m.CallMeta() != nil {
		g.events.Emit(&switchboard.CallEvent{
			GameID: g.id,
			Turn:   turn,
			Team:   team.String(),
			Role:   "player",
			Meta:   m.CallMeta(),
			Result: map[string]any{
				"clue":            clue.Word,
				"count":           clue.Count.String(),
				"correct_guesses": tally[switchboard.Correct],
				"civilian_hits":   tally[switchboard.CivilianHit],
				"enemy_hits":      tally[switchboard.Enemy],
				"forbidden_hits":  tally[switchboard.ForbiddenHit],
				"guess_details":   details,
			},
			GameContinues: !g.state.Over(),
		})
	}
	return nil
}

// applyGuess reveals a word for the guessing team, records it and checks
// whether it ended the game.
func (g *Game) applyGuess(team switchboard.Team, turn, player, word string) switchboard.Outcome {
	id, err := g.board.Reveal(word)
	if err != nil {
		// Callers check the word is on the board and face down first.
		panic(err)
	}
	outcome := switchboard.OutcomeFor(team, id)

	g.moves = append(g.moves, switchboard.Move{
		Team:     team,
		Word:     word,
		Identity: id,
		Correct:  outcome == switchboard.Correct,
	})
	g.hist.RecordGuess(word, id, outcome)
	g.events.Emit(&switchboard.GuessEvent{
		GameID:   g.id,
		Turn:     turn,
		Team:     team,
		Player:   player,
		Word:     word,
		Identity: id,
		Outcome:  outcome,
	})

	switch outcome {
	case switchboard.ForbiddenHit:
		g.win(team.Other())
	case switchboard.Correct:
		g.checkWin(team)
	case switchboard.Enemy:
		// Revealing the other team's last target hands them the game.
		g.checkWin(team.Other())
	}
	return outcome
}

// penalize reveals one of the other team's targets, at random, after the
// team's clue was rejected.
func (g *Game) penalize(offender switchboard.Team, turn string) {
	penalized := offender.Other()
	ev := &switchboard.PenaltyEvent{
		GameID:    g.id,
		Turn:      turn,
		Offender:  offender,
		Penalized: penalized,
	}

	targets := g.board.UnrevealedTargets(penalized)
	if len(targets) == 0 {
		g.log.Infow("no targets left to reveal as a penalty", "penalized", penalized)
		g.events.Emit(ev)
		return
	}

	ev.Word = targets[g.r.Intn(len(targets))]
	if _, err := g.board.Reveal(ev.Word); err != nil {
		panic(err)
	}
	g.log.Infow("penalty applied", "offender", offender, "penalized", penalized, "word", ev.Word)
	g.events.Emit(ev)
	g.checkWin(penalized)
}

func (g *Game) checkWin(t switchboard.Team) {
	if g.board.Remaining(t) == 0 {
		g.win(t)
	}
}

func (g *Game) win(t switchboard.Team) {
	switch t {
	case switchboard.RedTeam:
		g.state = RedWins
	case switchboard.BlueTeam:
		g.state = BlueWins
	}
}

func (g *Game) switchTeams() {
	g.events.Emit(&switchboard.TurnEndEvent{
		GameID:        g.id,
		Turn:          g.turnLabel(),
		Team:          g.active,
		StartingTeam:  g.starting,
		RedRemaining:  g.board.Remaining(switchboard.RedTeam),
		BlueRemaining: g.board.Remaining(switchboard.BlueTeam),
	})
	g.active = g.active.Other()
	g.turnCount++
	g.state = AwaitingClue
}

func (g *Game) turnLabel() string {
	return switchboard.TurnLabel(g.turnCount, g.active, g.starting)
}

func (g *Game) teamName(t switchboard.Team) string {
	coach, player := g.cfg.RedCoach, g.cfg.RedPlayer
	if t == switchboard.BlueTeam {
		coach, player = g.cfg.BlueCoach, g.cfg.BluePlayer
	}
	if coach.Name() == player.Name() {
		return coach.Name()
	}
	return coach.Name() + "/" + player.Name()
}

func firstAvailable(b *switchboard.Board) []string {
	words := b.Unrevealed()
	if len(words) == 0 {
		return nil
	}
	return words[:1]
}
