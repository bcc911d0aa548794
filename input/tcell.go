package input

import "github.com/gdamore/tcell/v2"

var buttonInputs = [...]struct {
	mask  tcell.ButtonMask
	input string
}{
	{tcell.ButtonPrimary, MouseLeft},
	{tcell.ButtonSecondary, MouseRight},
	{tcell.ButtonMiddle, MouseMiddle},
}

// Translator turns tcell events into raw events
// Terminals report no key release, so keys produce a single pressed event
type Translator struct {
	width, height int
	buttons       tcell.ButtonMask
	lastX, lastY  int
	seen          bool
}

// NewTranslator creates a translator for a screen of the given cell size
func NewTranslator(width, height int) *Translator {
	t := &Translator{}
	t.Resize(width, height)
	return t
}

// Resize updates the screen size used to normalize pointer positions
func (t *Translator) Resize(width, height int) {
	t.width = max(width, 1)
	t.height = max(height, 1)
}

// Translate converts one tcell event; unsupported events yield nothing
func (t *Translator) Translate(ev tcell.Event) []RawEvent {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return t.TranslateKey(ev.Key(), ev.Rune())
	case *tcell.EventMouse:
		x, y := ev.Position()
		return t.TranslateMouse(x, y, ev.Buttons())
	case *tcell.EventResize:
		t.Resize(ev.Size())
	}
	return nil
}

// TranslateKey converts a key press
func (t *Translator) TranslateKey(key tcell.Key, r rune) []RawEvent {
	if key == tcell.KeyRune {
		return []RawEvent{{Input: RuneInput(r), Pressed: true}}
	}
	in, ok := KeyInput(key)
	if !ok {
		return nil
	}
	return []RawEvent{{Input: in, Pressed: true}}
}

// TranslateMouse converts a mouse report at cell (x, y) into a move followed by
// button transitions, all carrying the normalized cell-center position
func (t *Translator) TranslateMouse(x, y int, buttons tcell.ButtonMask) []RawEvent {
	nx := (float32(x) + 0.5) / float32(t.width)
	ny := (float32(y) + 0.5) / float32(t.height)

	var out []RawEvent
	if !t.seen || x != t.lastX || y != t.lastY {
		out = append(out, RawEvent{Input: MouseMove, X: nx, Y: ny, Pointer: true})
		t.lastX, t.lastY, t.seen = x, y, true
	}

	for _, b := range buttonInputs {
		was := t.buttons&b.mask != 0
		is := buttons&b.mask != 0
		if was != is {
			out = append(out, RawEvent{Input: b.input, Pressed: is, X: nx, Y: ny, Pointer: true})
		}
	}
	if buttons&tcell.WheelUp != 0 {
		out = append(out, RawEvent{Input: MouseWheelUp, Pressed: true, X: nx, Y: ny, Pointer: true})
	}
	if buttons&tcell.WheelDown != 0 {
		out = append(out, RawEvent{Input: MouseWheelDown, Pressed: true, X: nx, Y: ny, Pointer: true})
	}

	t.buttons = buttons & (tcell.ButtonPrimary | tcell.ButtonSecondary | tcell.ButtonMiddle)
	return out
}
