// Command vi runs the editor with Vi key bindings and a visual bell.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nao1215/readline"
)

func main() {
	s, err := readline.New(": ",
		readline.WithEditMode(readline.EditVi),
		readline.WithBellStyle(readline.BellVisual),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	for {
		line, err := readline.OnInterrupt(
			func() (string, error) { return s.ReadLine(context.Background()) },
			func() (string, error) { return "", nil },
		)
		if errors.Is(err, readline.ErrEOF) {
			return
		}
		if err != nil {
			log.Fatal(err)
		}
		if line != "" {
			fmt.Printf("-> %s\n", line)
		}
	}
}
