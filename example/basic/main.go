// Command basic shows the smallest possible readline loop.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nao1215/readline"
)

func main() {
	s, err := readline.New("> ")
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	for {
		line, err := s.ReadLine(context.Background())
		if errors.Is(err, readline.ErrEOF) {
			fmt.Println("bye")
			return
		}
		if errors.Is(err, readline.ErrInterrupted) {
			continue
		}
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("you typed: %s\n", line)
	}
}
