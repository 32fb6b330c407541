package readline

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// EditMode selects which key-table family drives the interactive editor.
type EditMode int

// Supported editing modes.
const (
	EditEmacs EditMode = iota
	EditVi
)

// BellStyle controls how attention is signalled on a lookup miss or a
// failed operation.
type BellStyle int

// Supported bell styles. BellNone emits no bytes at all.
const (
	BellAudible BellStyle = iota
	BellVisual
	BellNone
)

// Prefs holds user preferences. They are loaded once before any read call
// and are read-only afterwards.
type Prefs struct {
	EditMode  EditMode
	BellStyle BellStyle
}

// DefaultPrefs returns the stock preferences: Emacs bindings, audible bell.
func DefaultPrefs() *Prefs {
	return &Prefs{EditMode: EditEmacs, BellStyle: BellAudible}
}

// prefsFile is the on-disk TOML shape of Prefs.
type prefsFile struct {
	EditMode  string `toml:"edit_mode"`
	BellStyle string `toml:"bell_style"`
}

// LoadPrefs reads preferences from a TOML file, for example:
//
//	edit_mode = "vi"
//	bell_style = "none"
//
// Missing keys keep their defaults. A missing file is not an error; the
// defaults are returned.
func LoadPrefs(path string) (*Prefs, error) {
	prefs := DefaultPrefs()
	var pf prefsFile
	if _, err := toml.DecodeFile(path, &pf); err != nil {
		if os.IsNotExist(err) {
			return prefs, nil
		}
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	switch pf.EditMode {
	case "", "emacs":
		prefs.EditMode = EditEmacs
	case "vi":
		prefs.EditMode = EditVi
	default:
		return nil, fmt.Errorf("unknown edit_mode %q", pf.EditMode)
	}
	switch pf.BellStyle {
	case "", "audible":
		prefs.BellStyle = BellAudible
	case "visual":
		prefs.BellStyle = BellVisual
	case "none":
		prefs.BellStyle = BellNone
	default:
		return nil, fmt.Errorf("unknown bell_style %q", pf.BellStyle)
	}
	return prefs, nil
}
