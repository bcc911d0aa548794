package render

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/status"
	"github.com/lixenwraith/toymaker/vmath"
)

type drawer struct {
	engine.AspectBase
	ds []engine.Drawable
}

func (*drawer) TypeName() string         { return "TestDrawer" }
func (d *drawer) Clone() engine.Aspect   { return &drawer{ds: d.ds} }
func (d *drawer) Drawables(buf []engine.Drawable) []engine.Drawable {
	return append(buf, d.ds...)
}

func place(t *testing.T, w *engine.World, parent engine.NodeID, name string, z float32, ds ...engine.Drawable) engine.NodeID {
	t.Helper()
	id, err := w.CreateNode(parent, name)
	require.NoError(t, err)
	require.NoError(t, w.SetLocalTransform(id, vmath.At(mgl32.Vec3{0, 0, z})))
	e := w.CreateEntity()
	require.NoError(t, w.AttachAspect(e, &drawer{ds: ds}))
	require.NoError(t, w.AttachEntity(id, e))
	return id
}

func TestQueuesSortAndBatch(t *testing.T) {
	w := engine.NewWorld()
	rec := &Recorder{}
	p := NewPipeline(resource.NewDB(), rec)

	wood := engine.Drawable{Mesh: "cube", Material: "wood"}
	glass := engine.Drawable{Mesh: "cube", Material: "highlight"}
	hud := engine.Drawable{Mesh: "plane", Material: "ui"}

	place(t, w, w.Root(), "hud", -1, hud)
	place(t, w, w.Root(), "far", -9, wood)
	place(t, w, w.Root(), "glass-near", -4, glass)
	place(t, w, w.Root(), "mid", -6, wood)
	place(t, w, w.Root(), "glass-far", -8, glass)
	place(t, w, w.Root(), "near", -3, wood)
	w.AddSystem(p)
	w.Step(time.Millisecond)

	require.Len(t, rec.Passes, 1)
	batches := rec.Passes[0].Batches
	require.Len(t, batches, 3)

	assert.Equal(t, QueueOpaque, batches[0].Queue)
	assert.Equal(t, "wood", batches[0].Material.Name)
	require.Len(t, batches[0].Instances, 3)
	assert.True(t, batches[0].Depths[0] < batches[0].Depths[1] && batches[0].Depths[1] < batches[0].Depths[2],
		"opaque front to back: %v", batches[0].Depths)

	assert.Equal(t, QueueTransparent, batches[1].Queue)
	require.Len(t, batches[1].Depths, 2)
	assert.Greater(t, batches[1].Depths[0], batches[1].Depths[1], "transparent back to front")

	assert.Equal(t, QueueOverlay, batches[2].Queue)
	assert.Equal(t, Stats{Passes: 1, DrawCalls: 3, Instances: 6}, p.Last())
}

func TestPriorityOrdersWithinQueue(t *testing.T) {
	w := engine.NewWorld()
	rec := &Recorder{}
	p := NewPipeline(resource.NewDB(), rec)

	place(t, w, w.Root(), "late", -3, engine.Drawable{Mesh: "cube", Material: "ivory", Priority: PriorityPieces})
	place(t, w, w.Root(), "early", -9, engine.Drawable{Mesh: "cube", Material: "lapis", Priority: PriorityBoard})
	w.Step(0)
	_, err := p.Render(w)
	require.NoError(t, err)

	batches := rec.Passes[0].Batches
	require.Len(t, batches, 2)
	assert.Equal(t, "lapis", batches[0].Material.Name)
	assert.Equal(t, "ivory", batches[1].Material.Name)
}

func TestDifferentMeshesDoNotBatch(t *testing.T) {
	w := engine.NewWorld()
	rec := &Recorder{}
	p := NewPipeline(resource.NewDB(), rec)
	place(t, w, w.Root(), "a", -3, engine.Drawable{Mesh: "cube", Material: "wood"})
	place(t, w, w.Root(), "b", -4, engine.Drawable{Mesh: "plane", Material: "wood"})
	w.Step(0)
	st, err := p.Render(w)
	require.NoError(t, err)
	assert.Equal(t, 2, st.DrawCalls)
}

func TestPlaceholderLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	stats := status.NewRegistry()
	w := engine.NewWorld()
	rec := &Recorder{}
	p := NewPipeline(resource.NewDB(), rec, WithLogger(zap.New(core)), WithStatus(stats))
	w.AddSystem(p)

	place(t, w, w.Root(), "a", -3, engine.Drawable{Mesh: "cube", Material: "no-such-material"})
	place(t, w, w.Root(), "b", -5, engine.Drawable{Mesh: "no-such-mesh", Material: "no-such-material"})
	w.Step(time.Millisecond)
	w.Step(time.Millisecond)

	assert.Equal(t, 2, rec.Frames)
	assert.Equal(t, 2, logs.FilterMessage("resource unavailable, using placeholder").Len())
	assert.EqualValues(t, 2, stats.Count(MetricPlaceholders))

	batches := rec.Passes[0].Batches
	for _, b := range batches {
		assert.Equal(t, "placeholder", b.Material.Name)
	}
}

func TestNestedViewportsRenderSeparately(t *testing.T) {
	w := engine.NewWorld()
	rec := &Recorder{}
	p := NewPipeline(resource.NewDB(), rec)

	place(t, w, w.Root(), "board", -5, engine.Drawable{Mesh: "cube", Material: "wood"})
	cfg := engine.DefaultViewport()
	cfg.Target = engine.Rect{X: 0.75, Y: 0, W: 0.25, H: 0.25}
	vp, err := w.CreateViewport(w.Root(), "hud", cfg)
	require.NoError(t, err)
	place(t, w, vp, "button", -2, engine.Drawable{Mesh: "plane", Material: "ui"})

	disabled := engine.DefaultViewport()
	disabled.Enabled = false
	off, err := w.CreateViewport(w.Root(), "off", disabled)
	require.NoError(t, err)
	place(t, w, off, "hidden", -2, engine.Drawable{Mesh: "cube", Material: "wood"})
	w.Step(0)

	_, err = p.Render(w)
	require.NoError(t, err)
	require.Len(t, rec.Passes, 2)
	assert.Equal(t, "/hud", rec.Passes[0].Path)
	assert.Equal(t, "ui", rec.Passes[0].Batches[0].Material.Name)
	assert.Equal(t, "/", rec.Passes[1].Path)
	require.Len(t, rec.Passes[1].Batches, 1)
	assert.Len(t, rec.Passes[1].Batches[0].Instances, 1)
}

func TestPendingAndDoomedNodesAreSkipped(t *testing.T) {
	w := engine.NewWorld()
	rec := &Recorder{}
	p := NewPipeline(resource.NewDB(), rec)
	doomed := place(t, w, w.Root(), "doomed", -3, engine.Drawable{Mesh: "cube", Material: "wood"})
	w.Step(0)
	require.NoError(t, w.QueueDestroy(doomed))
	place(t, w, w.Root(), "pending", -3, engine.Drawable{Mesh: "cube", Material: "wood"})

	st, err := p.Render(w)
	require.NoError(t, err)
	assert.Zero(t, st.Instances)
}

func TestCloseReleasesHandles(t *testing.T) {
	db := resource.NewDB()
	w := engine.NewWorld()
	p := NewPipeline(db, &Recorder{})
	place(t, w, w.Root(), "a", -3, engine.Drawable{Mesh: "cube", Material: "wood"})
	w.Step(0)
	_, err := p.Render(w)
	require.NoError(t, err)
	assert.Equal(t, 2, db.Count())

	require.NoError(t, p.Close())
	assert.Zero(t, db.Count())
}

func TestTerminalBackendRasterizes(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(40, 20)

	backend := NewTerminalBackend(screen)
	backend.SetOverlay([]string{"fps 60"})
	w := engine.NewWorld()
	p := NewPipeline(resource.NewDB(), backend)
	place(t, w, w.Root(), "cube", -3, engine.Drawable{Mesh: "cube", Material: "wood"})
	w.Step(0)

	_, err := p.Render(w)
	require.NoError(t, err)

	width, height := backend.Size()
	assert.Equal(t, 40, width)
	assert.Equal(t, 20, height)

	r, bg := backend.Cell(20, 10)
	assert.Equal(t, '=', r)
	assert.NotEqual(t, RgbBackground, bg)

	r, bg = backend.Cell(1, 18)
	assert.Zero(t, r)
	assert.Equal(t, RgbBackground, bg)

	r, _ = backend.Cell(0, 0)
	assert.Equal(t, 'f', r)

	backend.SetBackground(RGBBlack)
	_, err = p.Render(w)
	require.NoError(t, err)
	_, bg = backend.Cell(1, 18)
	assert.Equal(t, RGBBlack, bg)
}

func TestTerminalBackendDepthTest(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	screen.SetSize(40, 20)

	backend := NewTerminalBackend(screen)
	w := engine.NewWorld()
	p := NewPipeline(resource.NewDB(), backend)
	// The ivory cube is nearer; submission order must not matter
	place(t, w, w.Root(), "near", -3, engine.Drawable{Mesh: "cube", Material: "ivory"})
	place(t, w, w.Root(), "far", -6, engine.Drawable{Mesh: "cube", Material: "ebony"})
	w.Step(0)
	_, err := p.Render(w)
	require.NoError(t, err)

	r, _ := backend.Cell(20, 10)
	assert.Equal(t, 'o', r)
}

func TestColorHelpers(t *testing.T) {
	c, a := RGBA([4]uint8{10, 20, 30, 255})
	assert.Equal(t, RGB{10, 20, 30}, c)
	assert.InDelta(t, 1.0, a, 1e-9)

	assert.Equal(t, RGB{100, 100, 100}, Blend(RGB{0, 0, 0}, RGB{200, 200, 200}, 0.5))
	assert.Equal(t, RGB{255, 0, 0}, Scale(RGB{200, 0, 0}, 2))
	assert.Equal(t, "transparent", QueueTransparent.String())
}
