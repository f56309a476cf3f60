// Command switchboard plays batches of games between language models, word2vec
// bots and humans at the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/namsral/flag"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/ai"
	"github.com/bcspragu/Switchboard/config"
	"github.com/bcspragu/Switchboard/console"
	"github.com/bcspragu/Switchboard/cryptorand"
	"github.com/bcspragu/Switchboard/game"
	"github.com/bcspragu/Switchboard/llm"
	"github.com/bcspragu/Switchboard/playlog"
	"github.com/bcspragu/Switchboard/prompt"
	"github.com/bcspragu/Switchboard/sqldb"
	"github.com/bcspragu/Switchboard/wordpool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine, the environment may already be set up.
	_ = godotenv.Load()

	var (
		configPath  = flag.String("config", "", "Optional YAML or .env config file")
		red         = flag.String("red", "", "Model for the red team, 'w2v' for the word2vec bot")
		blue        = flag.String("blue", "", "Model for the blue team, 'w2v' for the word2vec bot")
		referee     = flag.String("referee", "", "Model for the referee")
		review      = flag.String("review", "", "Model that reviews the referee's rejections, 'none' to disable")
		noReferee   = flag.Bool("no_referee", false, "Accept every clue without adjudication")
		interactive = flag.String("interactive", "", "Play one role yourself: referee, red-coach, red-player, blue-coach or blue-player")
		games       = flag.Int("games", 0, "Number of games to play")
		parallel    = flag.Int("parallel", 0, "Number of games to play at once")
		maxTurns    = flag.Int("max_turns", 0, "End a game with no winner after this many turns, 0 for no limit")
		seed        = flag.Int64("seed", 0, "Random seed for reproducible boards, 0 for a random one")
		words       = flag.String("words", "", "Word list, YAML with a 'names' list or one word per line")
		mappings    = flag.String("model_mappings", "", "YAML file mapping model names to OpenRouter IDs")
		promptDir   = flag.String("prompt_dir", "", "Directory holding red_coach.md, referee.md, etc")
		logDir      = flag.String("log_dir", "", "Directory for play-by-play, box score and metadata logs")
		dbPath      = flag.String("db_path", "", "Also store results in this SQLite DB")
		w2vModel    = flag.String("w2v_model", "w2v.bin", "Binary word2vec model, for 'w2v' teams")
		listModels  = flag.Bool("list_models", false, "List known model names and exit")
		preview     = flag.String("preview", "", "Print the rendered prompt for a role on a sample board and exit, e.g. red_coach")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
		redVoters   = flag.String("red_voters", "", "Comma-separated models whose majority vote replaces the red player")
		blueVoters  = flag.String("blue_voters", "", "Comma-separated models whose majority vote replaces the blue player")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	overrideString(&cfg.RedModel, *red)
	overrideString(&cfg.BlueModel, *blue)
	overrideString(&cfg.Referee, *referee)
	overrideString(&cfg.ReviewModel, *review)
	overrideString(&cfg.WordsFile, *words)
	overrideString(&cfg.MappingsFile, *mappings)
	overrideString(&cfg.PromptDir, *promptDir)
	overrideString(&cfg.LogDir, *logDir)
	overrideInt(&cfg.Games, *games)
	overrideInt(&cfg.Parallel, *parallel)
	overrideInt(&cfg.MaxTurns, *maxTurns)
	cfg.NoReferee = cfg.NoReferee || *noReferee
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	models, err := llm.LoadMappings(cfg.MappingsFile)
	if err != nil {
		return err
	}
	if *listModels {
		for _, name := range models.Names() {
			id, _ := models.Resolve(name)
			fmt.Printf("%-14s %s\n", name, id)
		}
		return nil
	}

	pool := wordpool.Default()
	if cfg.WordsFile != "" {
		if pool, err = wordpool.Load(cfg.WordsFile); err != nil {
			return err
		}
	}

	promptFiles := make(map[string]string)
	for _, id := range []string{prompt.RedCoach, prompt.RedPlayer, prompt.BlueCoach, prompt.BluePlayer, prompt.Referee} {
		promptFiles[id] = cfg.PromptFile(id)
	}
	prompts := prompt.New(promptFiles, log)

	if *preview != "" {
		return previewPrompt(os.Stdout, prompts, *preview, pool, newRand(*seed, 0))
	}

	role, err := parseRole(*interactive)
	if err != nil {
		return err
	}
	if role != noHuman && cfg.Parallel > 1 {
		return errors.New("interactive games can't be played in parallel")
	}
	if cfg.RedModel == "" || cfg.BlueModel == "" {
		return errors.New("both --red and --blue are required")
	}

	voters := map[switchboard.Team][]string{
		switchboard.RedTeam:  splitList(*redVoters),
		switchboard.BlueTeam: splitList(*blueVoters),
	}

	// Check every model name before any game starts.
	var names []string
	all := append([]string{cfg.RedModel, cfg.BlueModel}, voters[switchboard.RedTeam]...)
	for _, m := range append(all, voters[switchboard.BlueTeam]...) {
		if m != w2vName {
			names = append(names, m)
		}
	}
	if !cfg.NoReferee && role != humanReferee {
		names = append(names, cfg.Referee)
		if hasReview(cfg) {
			names = append(names, cfg.ReviewModel)
		}
	}
	if err := models.Validate(names...); err != nil {
		return err
	}

	var client llm.Client
	if len(names) > 0 {
		if client, err = llm.NewOpenRouter(cfg.APIKey, models, log, llm.WithBaseURL(cfg.BaseURL)); err != nil {
			return fmt.Errorf("failed to set up OpenRouter client: %w", err)
		}
	}

	files, err := playlog.Open(cfg.LogDir, time.Now())
	if err != nil {
		return err
	}
	defer files.Close()
	log.Infow("writing game logs", "play_by_play", files.PlayByPlayPath, "box_scores", files.BoxScorePath, "metadata", files.MetadataPath)

	foulFile, err := os.OpenFile(filepath.Join(cfg.LogDir, "referee_fouls_"+time.Now().Format("20060102_150405")+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open foul log: %w", err)
	}
	defer foulFile.Close()

	screen := console.New(os.Stdout)
	screen.Verbose = *verbose
	sinks := switchboard.MultiSink{screen, files.Sink()}

	var db *sqldb.DB
	if *dbPath != "" {
		if db, err = sqldb.New(*dbPath); err != nil {
			return err
		}
		defer db.Close()
		sinks = append(sinks, storeResults(db, log))
	}

	b := &builder{
		cfg:     cfg,
		role:    role,
		client:  client,
		prompts: prompts,
		fouls:   ai.NewFoulLog(foulFile),
		w2vPath: *w2vModel,
		voters:  voters,
		log:     log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch := game.RunBatch(ctx, cfg.Games, cfg.Parallel, func(i int) (*game.Game, error) {
		gcfg, err := b.config(sinks)
		if err != nil {
			return nil, err
		}
		gcfg.Rand = newRand(*seed, i)
		gcfg.MaxTurns = cfg.MaxTurns
		gcfg.Prompts = prompts.Sources()
		return game.Deal(pool, switchboard.NoTeam, gcfg)
	}, log)

	console.PrintSummary(os.Stdout, batch.Summary())
	if n := batch.Failed(); n > 0 {
		return fmt.Errorf("%d of %d games failed", n, cfg.Games)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newRand returns the randomness for the i'th game. Seeded runs give every
// game its own reproducible source.
func newRand(seed int64, i int) *rand.Rand {
	if seed == 0 {
		return rand.New(cryptorand.NewSource())
	}
	return rand.New(rand.NewSource(seed + int64(i)))
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func hasReview(cfg *config.Config) bool {
	return cfg.ReviewModel != "" && !strings.EqualFold(cfg.ReviewModel, "none")
}

// storeResults saves every finished game.
func storeResults(db switchboard.DB, log *zap.SugaredLogger) switchboard.EventSink {
	return switchboard.SinkFunc(func(ev switchboard.Event) {
		end, ok := ev.(*switchboard.GameEndEvent)
		if !ok {
			return
		}
		if err := db.SaveResult(end.Result); err != nil {
			log.Errorw("failed to store result", "game_id", end.Result.GameID, "error", err)
		}
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
