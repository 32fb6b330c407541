// Package readline is an interactive line-editing engine for command-line
// programs. It reads one line of user input at a time from a terminal,
// rendering the prompt and every edit with a minimal redraw, and degrades
// gracefully to plain buffered UTF-8 reads when the input or output is not
// an interactive terminal.
//
// Key features:
//
//   - Emacs and Vi editing modes, selected through preferences
//   - minimal-redraw rendering that stays correct across line wrapping,
//     wide Unicode runes and terminal resizes
//   - command history with recall and reverse incremental search
//   - Tab completion with common-prefix insertion and candidate listing
//   - Ctrl+C delivered as a typed, interceptable cancellation signal
//   - guaranteed raw-mode restoration on every exit path
//
// Quick start:
//
//	package main
//
//	import (
//		"context"
//		"errors"
//		"fmt"
//		"log"
//
//		"github.com/nao1215/readline"
//	)
//
//	func main() {
//		s, err := readline.New("$ ")
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer s.Close()
//
//		for {
//			line, err := s.ReadLine(context.Background())
//			if errors.Is(err, readline.ErrEOF) {
//				return
//			}
//			if errors.Is(err, readline.ErrInterrupted) {
//				continue
//			}
//			if err != nil {
//				log.Fatal(err)
//			}
//			fmt.Printf("you typed: %s\n", line)
//		}
//	}
//
// Editing preferences can be supplied directly or loaded once from a TOML
// file:
//
//	s, err := readline.New("$ ",
//		readline.WithEditMode(readline.EditVi),
//		readline.WithBellStyle(readline.BellNone),
//	)
//
//	s, err = readline.New("$ ", readline.WithPrefsFile("~/.myapp/prefs.toml"))
//
// When the input is a pipe or a file the session writes the prompt and
// reads one raw line instead of editing interactively; end of input is
// reported as ErrEOF, which callers should treat as routine control flow.
package readline
