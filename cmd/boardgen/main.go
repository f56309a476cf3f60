// Command boardgen deals a board and prints it, either as a table or as
// comma-separated word:identity pairs.
package main

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"

	"github.com/namsral/flag"

	"github.com/bcspragu/Switchboard"
	"github.com/bcspragu/Switchboard/boardgen"
	"github.com/bcspragu/Switchboard/cryptorand"
	hio "github.com/bcspragu/Switchboard/io"
	"github.com/bcspragu/Switchboard/wordpool"
)

func main() {
	var (
		starter = flag.String("starter", "red", "Which team starts the game")
		seed    = flag.Int64("seed", 0, "Random seed, 0 for a random board")
		words   = flag.String("words", "", "Word list, YAML with a 'names' list or one word per line")
		table   = flag.Bool("table", false, "Print the board as a table")
	)
	flag.Parse()

	team, err := switchboard.ParseTeam(*starter)
	if err != nil || team == switchboard.NoTeam {
		fmt.Fprintf(os.Stderr, "invalid team %q, 'red' and 'blue' are the only valid teams\n", *starter)
		os.Exit(1)
	}

	pool := wordpool.Default()
	if *words != "" {
		if pool, err = wordpool.Load(*words); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	src := rand.Source(cryptorand.NewSource())
	if *seed != 0 {
		src = rand.NewSource(*seed)
	}

	bd, err := boardgen.New(pool, team, rand.New(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *table {
		hio.PrintBoard(os.Stdout, bd.View(true))
		return
	}

	var buf bytes.Buffer
	for i, card := range bd.Cards {
		buf.WriteString(fmt.Sprintf("%s:%s", card.Word, card.Identity))
		if i != len(bd.Cards)-1 {
			buf.WriteString(",")
		}
	}

	fmt.Print(buf.String())
}
