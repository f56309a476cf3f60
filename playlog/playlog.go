// Package playlog writes games to log files: a human-readable play-by-play,
// a box score per finished game, and a metadata line per game setup and model
// call. The latter two are JSONL.
package playlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/prompt"
)

// Files is the set of log files for a run.
type Files struct {
	PlayByPlayPath string
	BoxScorePath   string
	MetadataPath   string

	files []*os.File
	sink  switchboard.MultiSink
}

// Open creates the run's log files in dir, named after the given time.
func Open(dir string, now time.Time) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	ts := now.Format("20060102_150405")
	f := &Files{
		PlayByPlayPath: filepath.Join(dir, "play_by_play_"+ts+".log"),
		BoxScorePath:   filepath.Join(dir, "box_scores_"+ts+".jsonl"),
		MetadataPath:   filepath.Join(dir, "game_metadata_"+ts+".jsonl"),
	}

	var ws []io.Writer
	for _, p := range []string{f.PlayByPlayPath, f.BoxScorePath, f.MetadataPath} {
		file, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		f.files = append(f.files, file)
		ws = append(ws, file)
	}

	f.sink = switchboard.MultiSink{
		NewPlayByPlay(ws[0]),
		NewBoxScores(ws[1]),
		NewMetadata(ws[2]),
	}
	return f, nil
}

// Sink returns a sink writing to all of the run's files.
func (f *Files) Sink() switchboard.EventSink {
	return f.sink
}

func (f *Files) Close() error {
	var firstErr error
	for _, file := range f.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PlayByPlay writes a readable account of each game. Games played
// concurrently are buffered separately and written out whole when they end.
type PlayByPlay struct {
	now func() time.Time

	mu    sync.Mutex
	out   io.Writer
	games map[string]*gameLog
}

type gameLog struct {
	sb       strings.Builder
	starting switchboard.Team
	red      string
	blue     string
}

func (g *gameLog) printf(format string, args ...any) {
	fmt.Fprintf(&g.sb, format+"\n", args...)
}

func NewPlayByPlay(out io.Writer) *PlayByPlay {
	return &PlayByPlay{now: time.Now, out: out, games: make(map[string]*gameLog)}
}

func (p *PlayByPlay) Emit(ev switchboard.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if start, ok := ev.(*switchboard.GameStartEvent); ok {
		g := &gameLog{starting: start.StartingTeam, red: start.Red, blue: start.Blue}
		p.games[start.GameID] = g
		p.start(g, start)
		return
	}

	g, ok := p.games[ev.Game()]
	if !ok {
		return
	}

	switch ev := ev.(type) {
	case *switchboard.ClueEvent:
		g.printf("Turn %s - %s COACH (%s): %q (%s)", ev.Turn, upper(ev.Team), ev.Coach, ev.Clue.Word, ev.Clue.Count)
		if !ev.Valid {
			g.printf("REFEREE REJECTION: %s team clue '%s' (%s) - %s", upper(ev.Team), ev.Clue.Word, ev.Clue.Count, ev.Reason)
			g.printf("Turn ended due to invalid clue")
			g.printf("")
		}
	case *switchboard.PenaltyEvent:
		if ev.Word == "" {
			g.printf("PENALTY: %s team has no targets left to reveal", upper(ev.Penalized))
		} else {
			g.printf("PENALTY: %s revealed for %s team due to %s team's invalid clue", ev.Word, upper(ev.Penalized), upper(ev.Offender))
		}
		g.printf("")
	case *switchboard.GuessEvent:
		g.printf("Turn %s - %s PLAYER (%s): %s → %s", ev.Turn, upper(ev.Team), ev.Player, ev.Word, describe(ev.Outcome))
	case *switchboard.TurnEndEvent:
		g.printf("Status: Red %d remaining, Blue %d remaining", ev.RedRemaining, ev.BlueRemaining)
		g.printf("")
	case *switchboard.GameEndEvent:
		r := ev.Result
		g.printf("")
		g.printf("%s", strings.Repeat("=", 50))
		if r.Winner == switchboard.NoTeam {
			g.printf("GAME ENDED IN DRAW")
		} else {
			g.printf("WINNER: %s TEAM", upper(r.Winner))
		}
		g.printf("Total Turns: %d", r.Turns)
		g.printf("Duration: %.1f seconds", r.Duration.Seconds())
		g.printf("%s", strings.Repeat("=", 50))
		g.printf("")

		io.WriteString(p.out, g.sb.String())
		delete(p.games, ev.Game())
	}
}

func (p *PlayByPlay) start(g *gameLog, ev *switchboard.GameStartEvent) {
	v := ev.Board
	red := v.WordsWith(switchboard.RedTarget)
	blue := v.WordsWith(switchboard.BlueTarget)

	g.printf("=== GAME START [%s] ===", p.now().Format("2006-01-02 15:04:05"))
	g.printf("Game ID: %s", ev.GameID)
	g.printf("Red Team: %s (%d targets)", ev.Red, len(red))
	g.printf("Blue Team: %s (%d targets)", ev.Blue, len(blue))
	g.printf("Starting Team: %s", upper(ev.StartingTeam))
	if ev.Adjudicator != "" {
		g.printf("Referee: %s", ev.Adjudicator)
	}
	g.printf("")
	g.printf("BOARD:")
	for _, row := range strings.Split(prompt.Grid(v.Words, nil), "\n") {
		g.printf("  %s", row)
	}
	g.printf("")
	g.printf("RED TARGETS (%d): %s", len(red), strings.Join(red, ", "))
	g.printf("BLUE TARGETS (%d): %s", len(blue), strings.Join(blue, ", "))
	civ := v.WordsWith(switchboard.Civilian)
	g.printf("CIVILIANS (%d): %s", len(civ), strings.Join(civ, ", "))
	g.printf("FORBIDDEN TARGET: %s", strings.Join(v.WordsWith(switchboard.ForbiddenTarget), ", "))
	g.printf("%s", strings.Repeat("=", 50))
	g.printf("")
}

func upper(t switchboard.Team) string {
	return strings.ToUpper(t.String())
}

func describe(o switchboard.Outcome) string {
	switch o {
	case switchboard.Correct:
		return "✓ CORRECT - Your Target"
	case switchboard.CivilianHit:
		return "○ MISS - Civilian"
	case switchboard.Enemy:
		return "✗ ENEMY - Opposing Target"
	case switchboard.ForbiddenHit:
		return "☠ FORBIDDEN TARGET - GAME OVER"
	}
	return "?"
}

// newJSONL returns a logger that writes one JSON object per line, with a
// Unix timestamp and no level or message.
func newJSONL(w io.Writer) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		EncodeTime:     zapcore.EpochTimeEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	})
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapcore.InfoLevel))
}

// BoxScores writes a line per finished game with each team's guessing record
// and the final board.
type BoxScores struct {
	log *zap.Logger
}

func NewBoxScores(w io.Writer) *BoxScores {
	return &BoxScores{log: newJSONL(w)}
}

type teamScore struct {
	Model string `json:"model"`
	switchboard.TeamStats
}

func (b *BoxScores) Emit(ev switchboard.Event) {
	end, ok := ev.(*switchboard.GameEndEvent)
	if !ok {
		return
	}
	r := end.Result
	var winner any
	if r.Winner != switchboard.NoTeam {
		winner = r.Winner.String()
	}
	b.log.Info("",
		zap.String("game_id", r.GameID),
		zap.Any("winner", winner),
		zap.Duration("duration", r.Duration),
		zap.Int("total_turns", r.Turns),
		zap.Strings("board_layout", BoardLayout(r.FinalBoard)),
		zap.Reflect("red_team", teamScore{Model: r.Red, TeamStats: r.Stats(switchboard.RedTeam)}),
		zap.Reflect("blue_team", teamScore{Model: r.Blue, TeamStats: r.Stats(switchboard.BlueTeam)}),
	)
}

// BoardLayout renders a final board a row per line, each word tagged with the
// first letter of its identity and bracketed if it was revealed.
func BoardLayout(v *switchboard.BoardView) []string {
	if v == nil {
		return nil
	}
	var rows []string
	for i := 0; i < len(v.Words); i += switchboard.Columns {
		end := i + switchboard.Columns
		if end > len(v.Words) {
			end = len(v.Words)
		}
		var cells []string
		for _, w := range v.Words[i:end] {
			name := w
			if v.Revealed[w] {
				name = "[" + w + "]"
			}
			id := "U"
			if ident, ok := v.Identities[w]; ok {
				id = strings.ToUpper(ident.String()[:1])
			}
			cells = append(cells, fmt.Sprintf("%12s (%s)", name, id))
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return rows
}

// Metadata writes a line per game setup and per model call.
type Metadata struct {
	log *zap.Logger
}

func NewMetadata(w io.Writer) *Metadata {
	return &Metadata{log: newJSONL(w)}
}

func (m *Metadata) Emit(ev switchboard.Event) {
	switch ev := ev.(type) {
	case *switchboard.GameStartEvent:
		v := ev.Board
		fields := []zap.Field{
			zap.String("game_id", ev.GameID),
			zap.String("type", "game_setup"),
			zap.String("red_model", ev.Red),
			zap.String("blue_model", ev.Blue),
		}
		for _, role := range []string{"red_coach", "red_player", "blue_coach", "blue_player", "referee"} {
			fields = append(fields, zap.String(role+"_prompt", ev.Prompts[role]))
		}
		fields = append(fields, zap.Reflect("words", map[string][]string{
			"red":              v.WordsWith(switchboard.RedTarget),
			"blue":             v.WordsWith(switchboard.BlueTarget),
			"civilians":        v.WordsWith(switchboard.Civilian),
			"forbidden_target": v.WordsWith(switchboard.ForbiddenTarget),
		}))
		m.log.Info("", fields...)
	case *switchboard.CallEvent:
		meta := ev.Meta
		if meta == nil {
			meta = &switchboard.CallMeta{}
		}
		continues := 0
		if ev.GameContinues {
			continues = 1
		}
		fields := []zap.Field{
			zap.String("game_id", ev.GameID),
			zap.String("model_name", meta.Model),
			zap.Int("input_tokens", meta.InputTokens),
			zap.Int("output_tokens", meta.OutputTokens),
			zap.Int("total_tokens", meta.TotalTokens),
			zap.Float64("latency_ms", meta.LatencyMS),
			zap.Float64("openrouter_cost", meta.Cost),
			zap.Float64("upstream_cost", meta.UpstreamCost),
			zap.String("type", ev.Role),
			zap.String("team", ev.Team),
			zap.String("turn", ev.Turn),
			zap.Int("game_continues", continues),
		}
		keys := make([]string, 0, len(ev.Result))
		for k := range ev.Result {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, zap.Any(k, ev.Result[k]))
		}
		m.log.Info("", fields...)
	}
}
