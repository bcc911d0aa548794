package render

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/vmath"
)

type cell struct {
	r      rune
	fg, bg RGB
	depth  float32
}

var emptyCell = cell{fg: RgbForeground, bg: RgbBackground, depth: vmath.Infinity}

// TerminalBackend rasterizes draw lists into a tcell screen, one cell per sample
type TerminalBackend struct {
	screen tcell.Screen
	cells  []cell
	width  int
	height int
	empty  cell
	// overlay text drawn last, top-left, one line per row
	overlay []string
}

// NewTerminalBackend draws to screen; the screen must be initialized
func NewTerminalBackend(screen tcell.Screen) *TerminalBackend {
	return &TerminalBackend{screen: screen, empty: emptyCell}
}

// SetBackground sets the color of cells no geometry covers
func (t *TerminalBackend) SetBackground(c RGB) {
	t.empty.bg = c
}

// SetOverlay replaces the text lines drawn over every frame
func (t *TerminalBackend) SetOverlay(lines []string) {
	t.overlay = append(t.overlay[:0], lines...)
}

// Size returns the buffer dimensions of the current frame
func (t *TerminalBackend) Size() (int, int) { return t.width, t.height }

func (t *TerminalBackend) BeginFrame() error {
	w, h := t.screen.Size()
	t.resize(w, h)
	t.clear()
	return nil
}

// resize reallocates only if capacity is insufficient
func (t *TerminalBackend) resize(w, h int) {
	size := w * h
	if cap(t.cells) < size {
		t.cells = make([]cell, size)
	} else {
		t.cells = t.cells[:size]
	}
	t.width, t.height = w, h
}

// clear resets all cells using exponential copy
func (t *TerminalBackend) clear() {
	if len(t.cells) == 0 {
		return
	}
	t.cells[0] = t.empty
	for filled := 1; filled < len(t.cells); filled *= 2 {
		copy(t.cells[filled:], t.cells[:filled])
	}
}

// cellRect maps a normalized target rectangle to cell bounds, end exclusive
func (t *TerminalBackend) cellRect(x, y, w, h float32) (x0, y0, x1, y1 int) {
	fw, fh := float32(t.width), float32(t.height)
	x0 = max(int(x*fw), 0)
	y0 = max(int(y*fh), 0)
	x1 = min(int((x+w)*fw+0.5), t.width)
	y1 = min(int((y+h)*fh+0.5), t.height)
	return
}

func (t *TerminalBackend) DrawPass(p *Pass) error {
	tg := p.Config.Target
	x0, y0, x1, y1 := t.cellRect(tg.X, tg.Y, tg.W, tg.H)
	if x1 <= x0 || y1 <= y0 {
		return nil
	}
	// a nested viewport occludes what its parent drew before it
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			t.cells[y*t.width+x].depth = vmath.Infinity
		}
	}

	viewProj := p.Config.Camera.ProjectionMatrix().Mul4(p.View)
	for _, b := range p.Batches {
		for _, inst := range b.Instances {
			mvp := viewProj.Mul4(inst)
			modelView := p.View.Mul4(inst)
			t.drawMesh(b.Queue, b.Mesh, b.Material, mvp, modelView, x0, y0, x1, y1)
		}
	}
	return nil
}

type projected struct {
	x, y  float32 // cell space
	depth float32
}

func (t *TerminalBackend) drawMesh(q Queue, m *resource.Mesh, mat *resource.Material, mvp, modelView mgl32.Mat4, x0, y0, x1, y1 int) {
	w, h := float32(x1-x0), float32(y1-y0)
	color, alpha := RGBA(mat.Color)

	project := func(v mgl32.Vec3) (projected, bool) {
		clip := mvp.Mul4x1(v.Vec4(1))
		if clip.W() <= vmath.Epsilon {
			return projected{}, false
		}
		ndcX, ndcY := clip.X()/clip.W(), clip.Y()/clip.W()
		return projected{
			x:     float32(x0) + (ndcX+1)/2*w,
			y:     float32(y0) + (1-ndcY)/2*h,
			depth: -vmath.TransformPoint(modelView, v).Z(),
		}, true
	}

	for tri := 0; tri+2 < len(m.Indices); tri += 3 {
		va := m.Vertices[m.Indices[tri]]
		vb := m.Vertices[m.Indices[tri+1]]
		vc := m.Vertices[m.Indices[tri+2]]
		a, okA := project(va)
		b, okB := project(vb)
		c, okC := project(vc)
		if !okA || !okB || !okC {
			continue
		}

		// face shading from the view-space normal
		na := vmath.TransformPoint(modelView, va)
		n := vmath.TransformPoint(modelView, vb).Sub(na).Cross(vmath.TransformPoint(modelView, vc).Sub(na))
		shade := 0.45
		if l := n.Len(); l > vmath.Epsilon {
			shade += 0.55 * math.Abs(float64(n.Z()/l))
		}
		shaded := Scale(color, shade)

		t.fillTriangle(a, b, c, x0, y0, x1, y1, func(idx int, depth float32) {
			t.shadeCell(q, idx, depth, shaded, alpha, mat.Glyph)
		})
	}
}

// fillTriangle visits cells whose centers fall inside the projected triangle
func (t *TerminalBackend) fillTriangle(a, b, c projected, x0, y0, x1, y1 int, fn func(idx int, depth float32)) {
	area := edge(a, b, c.x, c.y)
	if abs(area) < 1e-6 {
		return
	}
	minX := max(int(math.Floor(float64(min(a.x, b.x, c.x)))), x0)
	maxX := min(int(math.Ceil(float64(max(a.x, b.x, c.x)))), x1)
	minY := max(int(math.Floor(float64(min(a.y, b.y, c.y)))), y0)
	maxY := min(int(math.Ceil(float64(max(a.y, b.y, c.y)))), y1)

	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			px, py := float32(x)+0.5, float32(y)+0.5
			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			fn(y*t.width+x, w0*a.depth+w1*b.depth+w2*c.depth)
		}
	}
}

func edge(a, b projected, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func (t *TerminalBackend) shadeCell(q Queue, idx int, depth float32, color RGB, alpha float64, glyph rune) {
	dst := &t.cells[idx]
	switch q {
	case QueueOpaque:
		if depth >= dst.depth {
			return
		}
		dst.depth = depth
		dst.bg = color
		dst.r, dst.fg = glyph, Scale(color, 1.4)
	case QueueTransparent:
		if depth >= dst.depth {
			return
		}
		dst.bg = Blend(dst.bg, color, alpha)
		if glyph != 0 {
			dst.r, dst.fg = glyph, color
		}
	case QueueOverlay:
		dst.bg = Blend(dst.bg, color, alpha)
		if glyph != 0 {
			dst.r, dst.fg = glyph, RgbForeground
		}
	}
}

// Cell returns the rune and background at a cell of the last frame
func (t *TerminalBackend) Cell(x, y int) (rune, RGB) {
	if x < 0 || x >= t.width || y < 0 || y >= t.height {
		return 0, RGB{}
	}
	c := t.cells[y*t.width+x]
	return c.r, c.bg
}

func (t *TerminalBackend) EndFrame() error {
	for row, line := range t.overlay {
		if row >= t.height {
			break
		}
		col := 0
		for _, r := range line {
			if col >= t.width {
				break
			}
			c := &t.cells[row*t.width+col]
			c.r, c.fg, c.bg = r, RgbForeground, RGBBlack
			col++
		}
	}

	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			c := t.cells[y*t.width+x]
			r := c.r
			if r == 0 {
				r = ' '
			}
			style := tcell.StyleDefault.Foreground(c.fg.Tcell()).Background(c.bg.Tcell())
			t.screen.SetContent(x, y, r, nil, style)
		}
	}
	t.screen.Show()
	return nil
}
