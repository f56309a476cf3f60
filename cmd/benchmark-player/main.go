// Command benchmark-player scores a player against fixed board scenarios, one
// clue each, without a coach or referee involved.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/namsral/flag"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/ai"
	"github.com/bcspragu/Switchboard/config"
	"github.com/bcspragu/Switchboard/llm"
	"github.com/bcspragu/Switchboard/prompt"
	"github.com/bcspragu/Switchboard/w2v"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "Optional YAML or .env config file")
		player     = flag.String("player", "w2v", "Model to benchmark, 'w2v' for the word2vec bot")
		w2vModel   = flag.String("w2v_model", "w2v.bin", "Binary word2vec model, for the 'w2v' player")
		scenarios  = flag.String("scenarios", "", "YAML list of scenarios, the built-in set if empty")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	ss := Scenarios
	if *scenarios != "" {
		if ss, err = LoadScenarios(*scenarios); err != nil {
			return err
		}
	}

	var p switchboard.Player
	if *player == "w2v" {
		m, err := w2v.Load(*w2vModel, log)
		if err != nil {
			return err
		}
		p = w2v.NewPlayer(m, log)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		models, err := llm.LoadMappings(cfg.MappingsFile)
		if err != nil {
			return err
		}
		if err := models.Validate(*player); err != nil {
			return err
		}
		client, err := llm.NewOpenRouter(cfg.APIKey, models, log, llm.WithBaseURL(cfg.BaseURL))
		if err != nil {
			return fmt.Errorf("failed to set up OpenRouter client: %w", err)
		}
		p = ai.NewPlayer(*player, client, prompt.New(map[string]string{
			prompt.RedPlayer: cfg.PromptFile(prompt.RedPlayer),
		}, log), log)
	}

	total, err := benchmark(context.Background(), os.Stdout, p, ss)
	if err != nil {
		return err
	}
	fmt.Printf("Score for %s: %.3f\n", p.Name(), Score(total))
	return nil
}

// benchmark runs every scenario and prints a row per scenario.
func benchmark(ctx context.Context, w io.Writer, p switchboard.Player, ss []Scenario) (Result, error) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Scenario", "Clue", "Correct", "Enemy", "Forbidden", "Civilian", "Invalid", "Skipped", "Score"})

	var total Result
	for _, s := range ss {
		r, err := Run(ctx, p, s)
		if err != nil {
			return Result{}, err
		}
		total.add(r)
		table.Append([]string{
			s.Name,
			fmt.Sprintf("%s (%s)", s.ClueWord, s.Clue),
			fmt.Sprint(r.Correct),
			fmt.Sprint(r.IncorrectTeam),
			fmt.Sprint(r.IncorrectForbidden),
			fmt.Sprint(r.IncorrectCivilian),
			fmt.Sprint(r.IncorrectInvalid),
			fmt.Sprint(r.Skipped),
			fmt.Sprintf("%.2f", Score(r)),
		})
	}
	table.Render()
	return total, nil
}
