package readline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Suggestion is one completion candidate.
type Suggestion struct {
	Text        string // the text to complete
	Description string // optional annotation shown alongside the candidate
}

// Document is the input context handed to a Completer.
type Document struct {
	Text           string // the entire input text
	CursorPosition int    // rune offset of the cursor within Text
}

// Completer produces candidates for the current input context. It runs
// synchronously on the event loop, so it must not block indefinitely.
type Completer func(Document) []Suggestion

// TextBeforeCursor returns the text before the cursor.
func (d *Document) TextBeforeCursor() string {
	runes := []rune(d.Text)
	if d.CursorPosition < 0 || d.CursorPosition > len(runes) {
		return d.Text
	}
	return string(runes[:d.CursorPosition])
}

// TextAfterCursor returns the text after the cursor.
func (d *Document) TextAfterCursor() string {
	runes := []rune(d.Text)
	if d.CursorPosition < 0 || d.CursorPosition >= len(runes) {
		return ""
	}
	return string(runes[d.CursorPosition:])
}

// WordBeforeCursor returns the whitespace-delimited word the cursor sits at
// the end of, or "" when the cursor follows whitespace.
func (d *Document) WordBeforeCursor() string {
	text := d.TextBeforeCursor()
	if text == "" {
		return ""
	}
	if r := text[len(text)-1]; r == ' ' || r == '\t' {
		return ""
	}
	start := strings.LastIndexAny(text, " \t")
	return text[start+1:]
}

// completeLine implements the Tab action shared by both editing modes:
// insert the unique candidate or the common prefix of all candidates, and
// when no further progress is possible, list the candidates below the
// prompt via a PrintLines effect. No candidates rings the bell.
func completeLine(line *Line, sc *SessionContext) Effect {
	if sc.completer == nil {
		return ringBell(line)
	}
	doc := Document{Text: line.Text(), CursorPosition: line.CursorOffset()}
	word := doc.WordBeforeCursor()

	candidates := sc.completer(doc)
	if word != "" {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if strings.HasPrefix(c.Text, word) {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}
	if len(candidates) == 0 {
		return ringBell(line)
	}
	if len(candidates) == 1 {
		return change(line.insertText(strings.TrimPrefix(candidates[0].Text, word)))
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	if common := commonPrefixString(texts); len(common) > len(word) {
		return change(line.insertText(strings.TrimPrefix(common, word)))
	}
	return printLines(candidateColumns(candidates, sc.renderer.width), line)
}

func commonPrefixString(texts []string) string {
	prefix := texts[0]
	for _, t := range texts[1:] {
		for !strings.HasPrefix(t, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// candidateColumns lays candidates out in width-aware columns, the way a
// shell lists ambiguous completions.
func candidateColumns(candidates []Suggestion, width int) []string {
	texts := make([]string, len(candidates))
	colWidth := 0
	for i, c := range candidates {
		texts[i] = c.Text
		if w := visualWidth(c.Text); w > colWidth {
			colWidth = w
		}
	}
	sort.Strings(texts)
	colWidth += 2
	cols := width / colWidth
	if cols < 1 {
		cols = 1
	}
	rows := (len(texts) + cols - 1) / cols

	lines := make([]string, 0, rows)
	for row := 0; row < rows; row++ {
		var b strings.Builder
		for col := 0; col < cols; col++ {
			i := col*rows + row
			if i >= len(texts) {
				break
			}
			b.WriteString(texts[i])
			if col < cols-1 && i+rows < len(texts) {
				b.WriteString(strings.Repeat(" ", colWidth-visualWidth(texts[i])))
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}

// fuzzyScore ranks candidate against input: exact matches beat prefix
// matches, prefix matches beat substring matches, and anything else falls
// back to in-order character matching. Zero means no match.
func fuzzyScore(input, candidate string) int {
	if input == "" {
		return 1
	}
	if candidate == "" {
		return 0
	}
	if input == candidate {
		return 1000
	}
	if strings.HasPrefix(candidate, input) {
		return 800 + len(input)*10
	}
	if strings.Contains(candidate, input) {
		return 500 + len(input)*5
	}

	score := 0
	idx := 0
	cand := []rune(candidate)
	for _, r := range input {
		matched := false
		for idx < len(cand) {
			if cand[idx] == r {
				score += 10
				idx++
				matched = true
				break
			}
			idx++
		}
		if !matched {
			return 0
		}
	}
	return score
}

// NewFuzzyCompleter returns a Completer that ranks the fixed candidate list
// with case-insensitive fuzzy matching.
//
// Example:
//
//	completer := readline.NewFuzzyCompleter([]string{
//		"git status", "git commit", "docker run",
//	})
//	s, _ := readline.New("$ ", readline.WithCompleter(completer))
func NewFuzzyCompleter(candidates []string) Completer {
	return func(d Document) []Suggestion {
		input := strings.ToLower(d.TextBeforeCursor())
		if input == "" {
			all := make([]Suggestion, len(candidates))
			for i, c := range candidates {
				all[i] = Suggestion{Text: c}
			}
			return all
		}
		type match struct {
			text  string
			score int
		}
		var matches []match
		for _, c := range candidates {
			if score := fuzzyScore(input, strings.ToLower(c)); score > 0 {
				matches = append(matches, match{text: c, score: score})
			}
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].score > matches[j].score
		})
		out := make([]Suggestion, len(matches))
		for i, m := range matches {
			out[i] = Suggestion{Text: m.text}
		}
		return out
	}
}

// NewFileCompleter returns a Completer that suggests files and directories
// under the path being typed. Hidden entries are skipped unless the typed
// base name already starts with a dot.
func NewFileCompleter() Completer {
	return func(d Document) []Suggestion {
		return completeFilePath(d.WordBeforeCursor())
	}
}

func completeFilePath(path string) []Suggestion {
	if path == "" {
		path = "."
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(os.PathSeparator)) {
		dir = path
		base = ""
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	suggestions := make([]Suggestion, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if base != "" && !strings.HasPrefix(name, base) {
			continue
		}
		full := filepath.Join(dir, name)
		if dir == "." && !strings.HasPrefix(path, "./") {
			full = name
		}
		description := "file"
		if entry.IsDir() {
			full += "/"
			description = "directory"
		}
		suggestions = append(suggestions, Suggestion{Text: full, Description: description})
	}
	return suggestions
}
