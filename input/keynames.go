package input

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"
)

// keyToName maps tcell keys to canonical config names
// Control aliases sharing a code with a named key (ctrl_h, ctrl_i, ctrl_m, ctrl_[) are omitted
var keyToName = map[tcell.Key]string{
	tcell.KeyEscape:     "escape",
	tcell.KeyEnter:      "enter",
	tcell.KeyTab:        "tab",
	tcell.KeyBacktab:    "backtab",
	tcell.KeyBackspace:  "backspace",
	tcell.KeyBackspace2: "backspace2",
	tcell.KeyDelete:     "delete",

	tcell.KeyUp:     "up",
	tcell.KeyDown:   "down",
	tcell.KeyLeft:   "left",
	tcell.KeyRight:  "right",
	tcell.KeyHome:   "home",
	tcell.KeyEnd:    "end",
	tcell.KeyPgUp:   "page_up",
	tcell.KeyPgDn:   "page_down",
	tcell.KeyInsert: "insert",

	tcell.KeyF1:  "f1",
	tcell.KeyF2:  "f2",
	tcell.KeyF3:  "f3",
	tcell.KeyF4:  "f4",
	tcell.KeyF5:  "f5",
	tcell.KeyF6:  "f6",
	tcell.KeyF7:  "f7",
	tcell.KeyF8:  "f8",
	tcell.KeyF9:  "f9",
	tcell.KeyF10: "f10",
	tcell.KeyF11: "f11",
	tcell.KeyF12: "f12",

	tcell.KeyCtrlA: "ctrl_a",
	tcell.KeyCtrlB: "ctrl_b",
	tcell.KeyCtrlC: "ctrl_c",
	tcell.KeyCtrlD: "ctrl_d",
	tcell.KeyCtrlE: "ctrl_e",
	tcell.KeyCtrlF: "ctrl_f",
	tcell.KeyCtrlG: "ctrl_g",
	tcell.KeyCtrlJ: "ctrl_j",
	tcell.KeyCtrlK: "ctrl_k",
	tcell.KeyCtrlL: "ctrl_l",
	tcell.KeyCtrlN: "ctrl_n",
	tcell.KeyCtrlO: "ctrl_o",
	tcell.KeyCtrlP: "ctrl_p",
	tcell.KeyCtrlQ: "ctrl_q",
	tcell.KeyCtrlR: "ctrl_r",
	tcell.KeyCtrlS: "ctrl_s",
	tcell.KeyCtrlT: "ctrl_t",
	tcell.KeyCtrlU: "ctrl_u",
	tcell.KeyCtrlV: "ctrl_v",
	tcell.KeyCtrlW: "ctrl_w",
	tcell.KeyCtrlX: "ctrl_x",
	tcell.KeyCtrlY: "ctrl_y",
	tcell.KeyCtrlZ: "ctrl_z",
}

var nameToKey = func() map[string]tcell.Key {
	m := make(map[string]tcell.Key, len(keyToName))
	for k, n := range keyToName {
		m[n] = k
	}
	return m
}()

// Rune aliases for keys that can't be bare single-char TOML keys
var runeAliases = map[string]rune{
	"space":     ' ',
	"backslash": '\\',
	"quote":     '"',
}

var mouseNames = map[string]struct{}{
	"left": {}, "right": {}, "middle": {}, "move": {}, "wheel-up": {}, "wheel-down": {},
}

// KeyInput returns the raw id of a named key
func KeyInput(k tcell.Key) (string, bool) {
	n, ok := keyToName[k]
	if !ok {
		return "", false
	}
	return "key:" + n, true
}

// RuneInput returns the raw id of a printable character
func RuneInput(r rune) string {
	if r == ' ' {
		return "rune:space"
	}
	return "rune:" + string(r)
}

// ParseInput canonicalizes a keymap input name
// Accepts prefixed ids, bare key names, aliases and single characters
func ParseInput(s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("empty input name")
	}
	if kind, name, ok := strings.Cut(s, ":"); ok && name != "" {
		switch kind {
		case "key":
			if _, ok := nameToKey[strings.ToLower(name)]; !ok {
				return "", fmt.Errorf("unknown key name %q", name)
			}
			return "key:" + strings.ToLower(name), nil
		case "rune":
			r, err := resolveRune(name)
			if err != nil {
				return "", err
			}
			return RuneInput(r), nil
		case "mouse":
			if _, ok := mouseNames[name]; !ok {
				return "", fmt.Errorf("unknown mouse input %q", name)
			}
			return s, nil
		}
	}
	if _, ok := nameToKey[strings.ToLower(s)]; ok {
		return "key:" + strings.ToLower(s), nil
	}
	r, err := resolveRune(s)
	if err != nil {
		return "", err
	}
	return RuneInput(r), nil
}

func resolveRune(s string) (rune, error) {
	if r, ok := runeAliases[s]; ok {
		return r, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("expected single character or alias, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
