package readline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultHistoryLimit = 1000

// defaults for file rotation
const (
	defaultHistoryMaxFileSize = 1024 * 1024
	defaultHistoryMaxBackups  = 3
)

// History keeps the recalled command lines, optionally backed by a file.
// A successful non-blank read appends exactly once; blank or cancelled
// input is never recorded. Consecutive duplicates are collapsed.
type History struct {
	file        string
	limit       int
	maxFileSize int64
	maxBackups  int
	entries     []string
}

// newHistory creates a history with the given persistence file (empty means
// memory only) and entry limit. The path may be absolute, relative, or
// start with "~/".
func newHistory(file string, limit int) *History {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if file != "" {
		if abs, err := expandHistoryPath(file); err == nil {
			file = abs
		}
	}
	return &History{
		file:        file,
		limit:       limit,
		maxFileSize: defaultHistoryMaxFileSize,
		maxBackups:  defaultHistoryMaxBackups,
	}
}

// DefaultHistoryFile returns the XDG-compliant default history location:
// $XDG_CONFIG_HOME/readline/history, falling back to ~/.config.
func DefaultHistoryFile() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "readline", "history")
}

// Load reads entries from the persistence file. A missing file is not an
// error.
func (h *History) Load() error {
	if h.file == "" {
		return nil
	}
	f, err := os.Open(h.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			h.entries = append(h.entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}
	h.trim()
	return nil
}

// Save writes the entries back to the persistence file, rotating it first
// when it has grown past the size limit.
func (h *History) Save() error {
	if h.file == "" {
		return nil
	}
	if err := h.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate history file: %w", err)
	}
	if dir := filepath.Dir(h.file); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	f, err := os.Create(h.file)
	if err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	defer f.Close()

	for _, entry := range h.entries {
		if _, err := fmt.Fprintln(f, entry); err != nil {
			return fmt.Errorf("failed to write history entry: %w", err)
		}
	}
	return nil
}

// Add appends an entry, suppressing consecutive duplicates and enforcing
// the entry limit.
func (h *History) Add(entry string) {
	if entry == "" {
		return
	}
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == entry {
		return
	}
	h.entries = append(h.entries, entry)
	h.trim()
}

// Entries returns a copy of the current entries, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}

// Clear discards all entries.
func (h *History) Clear() {
	h.entries = nil
}

func (h *History) trim() {
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

func (h *History) rotateIfNeeded() error {
	info, err := os.Stat(h.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < h.maxFileSize {
		return nil
	}
	if h.maxBackups <= 0 {
		return os.Truncate(h.file, 0)
	}

	// Shift numbered backups, dropping the oldest.
	oldest := h.file + "." + strconv.Itoa(h.maxBackups)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			return fmt.Errorf("failed to remove oldest backup: %w", err)
		}
	}
	for i := h.maxBackups - 1; i >= 1; i-- {
		from := h.file + "." + strconv.Itoa(i)
		to := h.file + "." + strconv.Itoa(i+1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return fmt.Errorf("failed to rotate backup %d: %w", i, err)
			}
		}
	}
	if err := os.Rename(h.file, h.file+".1"); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	// Keep the recent half in memory so the fresh file starts small.
	keep := len(h.entries) / 2
	if keep < 100 {
		keep = len(h.entries)
	}
	h.entries = h.entries[len(h.entries)-keep:]
	return nil
}

// expandHistoryPath resolves "~/" prefixes and relative paths to an
// absolute location.
func expandHistoryPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to convert to absolute path: %w", err)
	}
	return abs, nil
}
