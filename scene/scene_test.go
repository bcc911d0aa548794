package scene

import (
	"context"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/signal"
)

// emitter owns one int signal
type emitter struct {
	engine.AspectBase
}

func (*emitter) TypeName() string     { return "Emitter" }
func (*emitter) Clone() engine.Aspect { return &emitter{} }
func (e *emitter) OnAttached() error {
	return e.Bus().Declare(e.SignalKey("Emitter", "Fired"), reflect.TypeFor[int]())
}

// counter sums what its observer receives
type counter struct {
	engine.AspectBase
	step  int
	total *int
}

func (*counter) TypeName() string       { return "Counter" }
func (c *counter) Clone() engine.Aspect { return &counter{step: c.step, total: c.total} }
func (c *counter) OnAttached() error {
	return c.Bus().DeclareObserver(c.SignalKey("Counter", "Add"), reflect.TypeFor[int](), func(p any) error {
		*c.total += p.(int) * c.step
		return nil
	})
}

func fixture(t *testing.T) (*engine.World, *resource.DB, *Loader, *int) {
	t.Helper()
	w := engine.NewWorld()
	db := resource.NewDB()
	total := new(int)
	reg := NewRegistry()
	reg.Register("Emitter", func(Params) (engine.Aspect, error) { return &emitter{}, nil })
	reg.Register("Counter", func(p Params) (engine.Aspect, error) {
		return &counter{step: p.Int("step", 1), total: total}, nil
	})
	return w, db, NewLoader(w, db, reg), total
}

const boardScene = `
name: board
resources:
  - {name: board-mesh, type: mesh, method: procedural, params: {shape: board}}
  - {name: wood, type: material}
nodes:
  - name: board
    transform: {position: [0, 0, -4]}
    aspects:
      - {type: Emitter}
  - name: piece
    parent: /board
    transform: {position: [1, 0, 0], scale: [0.5, 0.5, 0.5]}
    aspects:
      - {type: Counter, params: {step: 2}}
  - name: piece-2
    parent: /board
    clone_of: /board/piece
connections:
  - {from: /board@Emitter.Fired, to: /board/piece@Counter.Add}
  - {from: /board@Emitter.Fired, to: /board/piece-2@Counter.Add}
`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(boardScene))
	require.NoError(t, err)
	assert.Equal(t, "board", doc.Name)
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "/board", doc.Nodes[1].Parent)
	assert.Equal(t, 2, Params(doc.Nodes[1].Aspects[0].Params).Int("step", 0))

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Nodes)

	_, err = Parse([]byte("nodes:\n  - name: a\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestLoadBuildsScene(t *testing.T) {
	w, db, l, total := fixture(t)
	doc, err := Parse([]byte(boardScene))
	require.NoError(t, err)

	sc, err := l.Load(context.Background(), doc)
	require.NoError(t, err)
	assert.Len(t, sc.Roots, 1, "only /board hangs off a pre-existing node")
	assert.Len(t, sc.Resources, 2)
	assert.Len(t, sc.Connections, 2)
	assert.Equal(t, 1, db.RefCount("wood"))

	piece, ok := w.Lookup("/board/piece")
	require.True(t, ok)
	pos := w.WorldTransform(piece).Col(3)
	assert.InDelta(t, 1, pos.X(), 1e-5)
	assert.InDelta(t, -4, pos.Z(), 1e-5)

	clone, ok := w.Lookup("/board/piece-2")
	require.True(t, ok)
	e, ok := w.NodeEntity(clone)
	require.True(t, ok)
	_, ok = w.Aspect(e, "Counter")
	assert.True(t, ok, "clone carries the source's aspects")

	board, _ := w.Lookup("/board")
	be, _ := w.NodeEntity(board)
	w.Bus.Fire(signal.Key{Owner: uint64(be), Aspect: "Emitter", Name: "Fired"}, 3)
	assert.Equal(t, 12, *total, "both counters observe with step 2")
}

func TestLoadInvalidReferences(t *testing.T) {
	cases := map[string]struct {
		yaml  string
		field string
	}{
		"parent": {
			yaml:  "nodes:\n  - {name: a, parent: /missing}\n",
			field: "nodes[0].parent",
		},
		"forward parent": {
			yaml:  "nodes:\n  - {name: a, parent: /b}\n  - {name: b}\n",
			field: "nodes[0].parent",
		},
		"clone_of": {
			yaml:  "nodes:\n  - {name: a, clone_of: /ghost}\n",
			field: "nodes[0].clone_of",
		},
		"clone into own subtree": {
			yaml:  "nodes:\n  - {name: a}\n  - {name: b, parent: /a}\n  - {name: copy, parent: /a/b, clone_of: /a}\n",
			field: "nodes[2].clone_of",
		},
		"connection": {
			yaml:  "nodes:\n  - {name: a}\nconnections:\n  - {from: /a@Emitter.Fired, to: /nowhere@Counter.Add}\n",
			field: "connections[0].to",
		},
		"malformed path": {
			yaml:  "nodes:\n  - {name: a}\nconnections:\n  - {from: /a, to: /a@Counter.Add}\n",
			field: "connections[0].from",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w, _, l, _ := fixture(t)
			doc, err := Parse([]byte(tc.yaml))
			require.NoError(t, err)

			_, err = l.Load(context.Background(), doc)
			var ref *InvalidNodeReferenceError
			require.ErrorAs(t, err, &ref)
			assert.Equal(t, tc.field, ref.Field)
			_, ok := w.Lookup("/a")
			assert.False(t, ok, "nothing is created when validation fails")
		})
	}
}

func TestValidateRejectsRecursiveClone(t *testing.T) {
	w, _, l, _ := fixture(t)
	a, err := w.CreateNode(w.Root(), "a")
	require.NoError(t, err)
	_, err = w.CreateNode(a, "b")
	require.NoError(t, err)

	doc, err := Parse([]byte("nodes:\n  - {name: copy, parent: /a/b, clone_of: /a}\n  - {name: root-copy, clone_of: /}\n"))
	require.NoError(t, err)
	err = l.Validate(doc)
	assert.ErrorIs(t, err, engine.ErrCycle)
	_, err = l.Load(context.Background(), doc)
	assert.ErrorIs(t, err, engine.ErrCycle)
	_, ok := w.Lookup("/a/b/copy")
	assert.False(t, ok)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	_, _, l, _ := fixture(t)
	doc, err := Parse([]byte(`
nodes:
  - {name: a, parent: /x}
  - {name: b, aspects: [{type: Teleporter}]}
  - {name: b}
  - {name: "c/d"}
`))
	require.NoError(t, err)

	err = l.Validate(doc)
	var ref *InvalidNodeReferenceError
	var unknown *UnknownAspectError
	var dup *engine.DuplicateNameError
	assert.ErrorAs(t, err, &ref)
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Teleporter", unknown.Type)
	assert.ErrorAs(t, err, &dup)
	assert.ErrorIs(t, err, engine.ErrInvalidNodeName)
}

func TestLoadMissingResourceIsFatal(t *testing.T) {
	w, db, l, _ := fixture(t)
	doc, err := Parse([]byte(`
resources:
  - {name: wood, type: material}
  - {name: dice, type: mesh, method: photogrammetry}
nodes:
  - {name: board}
`))
	require.NoError(t, err)

	_, err = l.Load(context.Background(), doc)
	var nf *resource.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "dice", nf.Name)
	_, ok := w.Lookup("/board")
	assert.False(t, ok)
	assert.Zero(t, db.Count(), "preloaded siblings are not left cached")
}

func TestLoadRollsBackFailedBuild(t *testing.T) {
	w, db, l, _ := fixture(t)
	doc, err := Parse([]byte(`
resources:
  - {name: wood, type: material}
nodes:
  - name: board
    aspects: [{type: Emitter}]
  - name: piece
    parent: /board
    aspects: [{type: Counter}]
connections:
  - {from: /board@Emitter.Fired, to: /board/piece@Counter.Add}
  - {from: /board@Emitter.Missing, to: /board/piece@Counter.Add}
`))
	require.NoError(t, err)

	_, err = l.Load(context.Background(), doc)
	var ref *InvalidNodeReferenceError
	require.ErrorAs(t, err, &ref)
	assert.ErrorIs(t, err, signal.ErrUnknownSignal, "unknown signal surfaces through the reference error")

	_, ok := w.Lookup("/board")
	assert.False(t, ok)
	assert.Zero(t, db.Count())
	assert.Zero(t, w.Bus.Connections())
	assert.EqualValues(t, 1, w.Status.Count(MetricFailed))
}

func TestSceneUnload(t *testing.T) {
	w, db, l, _ := fixture(t)
	doc, err := Parse([]byte(boardScene))
	require.NoError(t, err)
	sc, err := l.Load(context.Background(), doc)
	require.NoError(t, err)

	require.NoError(t, sc.Unload())
	_, ok := w.Lookup("/board")
	assert.False(t, ok)
	assert.Zero(t, db.Count())
	assert.Zero(t, w.Bus.Connections())

	// a second unload has nothing left to do
	assert.NoError(t, sc.Unload())
}

func TestLoadFile(t *testing.T) {
	w, _, l, _ := fixture(t)
	fsys := fstest.MapFS{"scenes/title.yaml": {Data: []byte("nodes:\n  - {name: title}\n")}}

	sc, err := l.LoadFile(context.Background(), fsys, "scenes/title.yaml")
	require.NoError(t, err)
	assert.Equal(t, "title", sc.Name)
	_, ok := w.Lookup("/title")
	assert.True(t, ok)

	_, err = l.LoadFile(context.Background(), fsys, "scenes/none.yaml")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Emitter", func(Params) (engine.Aspect, error) { return &emitter{}, nil })
	reg.Register("Liar", func(Params) (engine.Aspect, error) { return &emitter{}, nil })
	assert.Equal(t, []string{"Emitter", "Liar"}, reg.Types())
	assert.Panics(t, func() {
		reg.Register("Emitter", func(Params) (engine.Aspect, error) { return &emitter{}, nil })
	})

	_, err := reg.Build("Liar", nil)
	assert.Error(t, err, "constructor must return its own type")

	var unknown *UnknownAspectError
	_, err = reg.Build("Nope", nil)
	assert.ErrorAs(t, err, &unknown)
}

func TestParams(t *testing.T) {
	p := Params{"n": 3, "f": 0.5, "s": "lapis", "b": true, "v": []any{1, 2.5, -3}, "bad": []any{1, "x", 2}, "l": []any{"a", 1, "b"}}
	assert.Equal(t, 3, p.Int("n", 0))
	assert.Equal(t, 7, p.Int("missing", 7))
	assert.InDelta(t, 3.0, p.Float("n", 0), 1e-9)
	assert.InDelta(t, 0.5, p.Float("f", 0), 1e-9)
	assert.Equal(t, "lapis", p.String("s", ""))
	assert.True(t, p.Bool("b", false))
	assert.Equal(t, []string{"a", "b"}, p.Strings("l"))

	v, err := p.Vec3("v", [3]float32{})
	require.NoError(t, err)
	assert.Equal(t, float32(2.5), v.Y())
	_, err = p.Vec3("bad", [3]float32{})
	assert.Error(t, err)
}
