// Command shell is a tiny REPL with completion and persistent history.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nao1215/readline"
)

func main() {
	completer := readline.NewFuzzyCompleter([]string{
		"help", "status", "version", "history", "exit",
	})

	s, err := readline.New("shell> ",
		readline.WithCompleter(completer),
		readline.WithHistoryFile("~/.readline_shell_history"),
		readline.WithHistoryLimit(200),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	for {
		line, err := s.ReadLine(context.Background())
		if errors.Is(err, readline.ErrEOF) {
			return
		}
		if errors.Is(err, readline.ErrInterrupted) {
			continue
		}
		if err != nil {
			log.Fatal(err)
		}

		switch strings.TrimSpace(line) {
		case "exit":
			return
		case "history":
			for i, entry := range s.History().Entries() {
				fmt.Printf("%4d  %s\n", i+1, entry)
			}
		case "help":
			fmt.Println("commands: help, status, version, history, exit")
		case "status":
			fmt.Println("ok")
		case "version":
			fmt.Println("shell 0.1.0")
		case "":
		default:
			fmt.Printf("unknown command: %s\n", line)
		}
	}
}
