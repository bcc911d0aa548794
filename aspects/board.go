package aspects

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/query"
	"github.com/lixenwraith/toymaker/scene"
	"github.com/lixenwraith/toymaker/signal"
	"github.com/lixenwraith/toymaker/vmath"
)

const TypeBoardLocations = "BoardLocations"

// SignalBoardClicked carries the Cell under a completed click
const SignalBoardClicked = "BoardClicked"

// CellKind tells who may stand on a board cell
type CellKind uint8

const (
	CellInvalid CellKind = iota
	CellPlayerOne
	CellPlayerTwo
	CellBattlefield
)

func (k CellKind) String() string {
	switch k {
	case CellPlayerOne:
		return "player-one"
	case CellPlayerTwo:
		return "player-two"
	case CellBattlefield:
		return "battlefield"
	}
	return "invalid"
}

var cellRunes = map[rune]CellKind{
	'.': CellInvalid,
	'1': CellPlayerOne,
	'2': CellPlayerTwo,
	'B': CellBattlefield,
}

// DefaultLayout is the Ur board; rows run along z, columns along x
var DefaultLayout = []string{
	"2222..22",
	"BBBBBBBB",
	"1111..11",
}

// Cell is one board location
type Cell struct {
	Row  int
	Col  int
	Kind CellKind
}

// BoardLocations maps points on its node's board volume to grid cells
type BoardLocations struct {
	engine.AspectBase

	Size   mgl32.Vec3 // board extents in node space, centered on the node
	Volume string

	grid    [][]CellKind
	volume  string
	clicked signal.Signal[Cell]
}

func (*BoardLocations) TypeName() string { return TypeBoardLocations }
func (*BoardLocations) Unique() bool     { return true }

func (b *BoardLocations) Clone() engine.Aspect {
	grid := make([][]CellKind, len(b.grid))
	for i, row := range b.grid {
		grid[i] = append([]CellKind(nil), row...)
	}
	return &BoardLocations{Size: b.Size, grid: grid}
}

// Rows returns the number of grid rows
func (b *BoardLocations) Rows() int { return len(b.grid) }

// Cols returns the number of grid columns
func (b *BoardLocations) Cols() int {
	if len(b.grid) == 0 {
		return 0
	}
	return len(b.grid[0])
}

func (b *BoardLocations) OnAttached() error {
	var err error
	b.clicked, err = signal.NewSignal[Cell](b.Bus(), b.SignalKey(TypeBoardLocations, SignalBoardClicked))
	return err
}

func (b *BoardLocations) OnActivated() {
	w := b.World()
	id, ok := node(&b.AspectBase)
	if !ok {
		return
	}
	qs, ok := engine.GetService[*query.System](w)
	if !ok {
		w.Log.Warn("board without query system", zap.String("node", w.Path(id)))
		return
	}
	b.volume = b.Volume
	if b.volume == "" {
		b.volume = w.Path(id)
	}
	if err := qs.RegisterVolume(b.volume, vmath.Box{Dimensions: b.Size}, id, b); err != nil {
		w.Log.Error("board volume", zap.String("volume", b.volume), zap.Error(err))
		b.volume = ""
	}
}

func (b *BoardLocations) OnDeactivated() {
	if b.volume == "" {
		return
	}
	if qs, ok := engine.GetService[*query.System](b.World()); ok && qs.HasVolume(b.volume) {
		_ = qs.UnregisterVolume(b.volume)
	}
	b.volume = ""
}

// CellAt returns the cell under a node-space point on the board's upper half
func (b *BoardLocations) CellAt(local mgl32.Vec3) (Cell, bool) {
	if local.Y() < 0 {
		return Cell{}, false
	}
	half := b.Size.Mul(0.5)
	nx := (local.X() + half.X()) / b.Size.X()
	nz := (local.Z() + half.Z()) / b.Size.Z()
	if nx < 0 || nx > 1 || nz < 0 || nz > 1 {
		return Cell{}, false
	}
	row := min(int(nz*float32(b.Rows())), b.Rows()-1)
	col := min(int(nx*float32(b.Cols())), b.Cols()-1)
	kind := b.grid[row][col]
	if kind == CellInvalid {
		return Cell{}, false
	}
	return Cell{Row: row, Col: col, Kind: kind}, true
}

// CellCenter returns the world position of a cell's center on the board surface
func (b *BoardLocations) CellCenter(row, col int) (mgl32.Vec3, bool) {
	id, ok := node(&b.AspectBase)
	if !ok || row < 0 || row >= b.Rows() || col < 0 || col >= b.Cols() {
		return mgl32.Vec3{}, false
	}
	cw := b.Size.X() / float32(b.Cols())
	cd := b.Size.Z() / float32(b.Rows())
	local := mgl32.Vec3{
		-b.Size.X()/2 + cw*(float32(col)+0.5),
		b.Size.Y() / 2,
		-b.Size.Z()/2 + cd*(float32(row)+0.5),
	}
	return vmath.TransformPoint(b.World().WorldTransform(id), local), true
}

func (b *BoardLocations) OnPointerLeftClick(ev engine.PointerEvent) bool {
	id, ok := node(&b.AspectBase)
	if !ok {
		return false
	}
	inv := b.World().WorldTransform(id).Inv()
	cell, ok := b.CellAt(vmath.TransformPoint(inv, ev.Point))
	if !ok {
		return false
	}
	b.World().Log.Debug("board clicked", zap.Int("row", cell.Row), zap.Int("col", cell.Col), zap.Stringer("kind", cell.Kind))
	b.clicked.Fire(cell)
	return true
}

func (*BoardLocations) OnPointerLeftRelease(engine.PointerEvent) bool { return false }

func parseLayout(rows []string) ([][]CellKind, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("board layout is empty")
	}
	grid := make([][]CellKind, len(rows))
	for i, row := range rows {
		row = strings.TrimSpace(row)
		if len(row) == 0 || len(row) != len(strings.TrimSpace(rows[0])) {
			return nil, fmt.Errorf("board layout row %d: want %d cells", i, len(strings.TrimSpace(rows[0])))
		}
		for _, r := range row {
			kind, ok := cellRunes[r]
			if !ok {
				return nil, fmt.Errorf("board layout row %d: unknown cell %q", i, r)
			}
			grid[i] = append(grid[i], kind)
		}
	}
	return grid, nil
}

func newBoardLocations(p scene.Params) (engine.Aspect, error) {
	layout := p.Strings("layout")
	if len(layout) == 0 {
		layout = DefaultLayout
	}
	grid, err := parseLayout(layout)
	if err != nil {
		return nil, err
	}
	size, err := p.Vec3("size", mgl32.Vec3{8, 0.2, 3})
	if err != nil {
		return nil, err
	}
	if size.X() <= 0 || size.Y() <= 0 || size.Z() <= 0 {
		return nil, fmt.Errorf("board size %v must be positive", size)
	}
	return &BoardLocations{Size: size, Volume: p.String("volume", ""), grid: grid}, nil
}
