// Command switchboard-server serves stored results over HTTP and lets an
// operator start AI games that spectators can watch live.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/namsral/flag"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/adjudicate"
	"github.com/bcspragu/Switchboard/ai"
	"github.com/bcspragu/Switchboard/config"
	"github.com/bcspragu/Switchboard/cryptorand"
	"github.com/bcspragu/Switchboard/game"
	"github.com/bcspragu/Switchboard/llm"
	"github.com/bcspragu/Switchboard/prompt"
	"github.com/bcspragu/Switchboard/sqldb"
	"github.com/bcspragu/Switchboard/web"
	"github.com/bcspragu/Switchboard/wordpool"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "Optional YAML or .env config file")
		addr       = flag.String("addr", "", "HTTP service address")
		dbPath     = flag.String("db_path", "", "Path to the SQLite DB file")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	db, err := sqldb.New(cfg.DBPath)
	if err != nil {
		log.Fatalw("failed to initialize datastore", "error", err)
	}

	sc, err := web.LoadKeys(cfg.CookieKeys)
	if err != nil {
		log.Fatalw("failed to load cookie keys", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []web.Option{web.WithLogger(log), web.WithContext(ctx)}
	if cfg.OperatorToken != "" {
		start, err := newStarter(cfg, log)
		if err != nil {
			log.Fatalw("failed to set up game starter", "error", err)
		}
		opts = append(opts, web.WithOperator(cfg.OperatorToken, start))
	} else {
		log.Info("no operator token set, starting games over HTTP is disabled")
	}

	r := rand.New(cryptorand.NewSource())
	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: web.New(db, r, sc, opts...),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infow("server is running", "addr", cfg.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("ListenAndServe", "error", err)
	}
	if err := db.Close(); err != nil {
		log.Errorw("failed to close database", "error", err)
	}
}

// newStarter sets up AI-vs-AI games with the configured referee.
func newStarter(cfg *config.Config, log *zap.SugaredLogger) (web.Starter, error) {
	models, err := llm.LoadMappings(cfg.MappingsFile)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewOpenRouter(cfg.APIKey, models, log, llm.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, err
	}

	pool := wordpool.Default()
	if cfg.WordsFile != "" {
		if pool, err = wordpool.Load(cfg.WordsFile); err != nil {
			return nil, err
		}
	}

	files := make(map[string]string)
	for _, id := range []string{prompt.RedCoach, prompt.RedPlayer, prompt.BlueCoach, prompt.BluePlayer, prompt.Referee} {
		files[id] = cfg.PromptFile(id)
	}
	prompts := prompt.New(files, log)

	return func(req *web.GameRequest, events switchboard.EventSink) (*game.Game, error) {
		if err := models.Validate(req.Red, req.Blue); err != nil {
			return nil, err
		}

		var panel *adjudicate.Panel
		if !cfg.NoReferee {
			var review switchboard.Adjudicator
			if cfg.ReviewModel != "" && cfg.ReviewModel != "none" {
				review = ai.NewAdjudicator(cfg.ReviewModel, client, prompts, nil, log)
			}
			panel = adjudicate.New(ai.NewAdjudicator(cfg.Referee, client, prompts, nil, log), review, events, log)
		}

		return game.Deal(pool, switchboard.NoTeam, &game.Config{
			RedCoach:   ai.NewCoach(req.Red, client, prompts, log),
			BlueCoach:  ai.NewCoach(req.Blue, client, prompts, log),
			RedPlayer:  ai.NewPlayer(req.Red, client, prompts, log),
			BluePlayer: ai.NewPlayer(req.Blue, client, prompts, log),
			Panel:      panel,
			Events:     events,
			Log:        log,
			MaxTurns:   cfg.MaxTurns,
			Prompts:    prompts.Sources(),
		})
	}, nil
}
