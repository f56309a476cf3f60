// Command w2v-topn prints the closest legal clues for every combination of
// input_n words, which is handy for tuning the word2vec coach.
package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/namsral/flag"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard/w2v"
	"github.com/bcspragu/Switchboard/wordpool"
)

func main() {
	var (
		modelFile = flag.String("model_file", "", "A binary-formatted word2vec pre-trained model file.")

		wordList = flag.String("words", "", "Comma-separated list of words. Use --word_file to pass a file of words instead.")
		wordFile = flag.String("word_file", "", "Word list file, the built-in list if empty. Use --words to pass a list in manually instead.")

		inputN = flag.Int("input_n", 2, "The number of target words to find matches for.")
		topN   = flag.Int("top_n", 3, "The number of closest words from the model to output.")
	)
	flag.Parse()

	if *modelFile == "" {
		fmt.Fprintln(os.Stderr, "ERROR: You need to pass in a --model_file.")
		os.Exit(1)
	}

	words := wordpool.Default()
	switch {
	case *wordList != "":
		words = strings.Split(*wordList, ",")
	case *wordFile != "":
		var err error
		if words, err = wordpool.Load(*wordFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Sugar()

	model, err := w2v.Load(*modelFile, log)
	if err != nil {
		log.Fatal(err)
	}

	for combo := range combinations(len(words), *inputN) {
		var buffer bytes.Buffer
		targets := make([]string, len(combo))
		for i, index := range combo {
			targets[i] = words[index]
			buffer.WriteString(words[index])
			buffer.WriteString(" ")
		}
		buffer.WriteString("-> ")

		matches, err := w2v.Neighbors(model, targets, *topN, nil)
		if err != nil {
			log.Debugw("skipping combination", "words", targets, "error", err)
			continue
		}
		for _, match := range matches {
			buffer.WriteString(match.Word)
			buffer.WriteString(" (")
			buffer.WriteString(strconv.FormatFloat(float64(match.Score), 'f', 3, 32))
			buffer.WriteString(") ")
		}
		fmt.Println(buffer.String())
	}
}
