package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/aspects"
	"github.com/lixenwraith/toymaker/asset"
	"github.com/lixenwraith/toymaker/audio"
	"github.com/lixenwraith/toymaker/config"
	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/input"
	"github.com/lixenwraith/toymaker/query"
	"github.com/lixenwraith/toymaker/render"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/scene"
)

// Actions handled by the front-end itself
const (
	actionQuit    = "quit"
	actionMenu    = "menu"
	actionResume  = "resume"
	actionOverlay = "toggle-overlay"
	actionMute    = "toggle-mute"

	contextMenu = "menu"
)

// app owns every engine service of one run
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	screen tcell.Screen

	world    *engine.World
	db       *resource.DB
	input    *input.Manager
	trans    *input.Translator
	backend  *render.TerminalBackend
	pipeline *render.Pipeline
	player   *audio.Player
	scene    *scene.Scene
	loop     *engine.Loop

	overlay bool
	quit    context.CancelFunc
}

// newApp builds the engine around an initialized screen and loads the configured scene
// quit is called when the player asks to exit
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, screen tcell.Screen, quit context.CancelFunc) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		screen:  screen,
		overlay: cfg.Display.Overlay,
		quit:    quit,
	}

	a.world = engine.NewWorld(engine.WithLogger(log), engine.WithSimStep(cfg.Engine.SimStep))
	a.world.Bus.MaxDepth = cfg.Engine.SignalDepth

	dbOpts := []resource.Option{resource.WithLogger(log), resource.WithStatus(a.world.Status)}
	if cfg.Resources.AssetDir != "" {
		dbOpts = append(dbOpts, resource.WithAssets(os.DirFS(cfg.Resources.AssetDir)))
	}
	a.db = resource.NewDB(dbOpts...)
	a.db.Concurrency = cfg.Resources.Concurrency
	engine.AddService(a.world, a.db)

	if err := a.setupInput(); err != nil {
		return nil, err
	}
	qs, err := query.NewSystem(a.world, query.WithInput(a.input))
	if err != nil {
		return nil, err
	}
	a.world.AddSystem(qs)

	a.backend = render.NewTerminalBackend(screen)
	bg := cfg.Display.Background
	a.backend.SetBackground(render.RGB{R: bg[0], G: bg[1], B: bg[2]})
	a.pipeline = render.NewPipeline(a.db, a.backend, render.WithLogger(log), render.WithStatus(a.world.Status))
	a.world.AddSystem(a.pipeline)

	a.setupAudio()

	if err := a.loadScene(ctx); err != nil {
		return nil, err
	}

	a.loop = engine.NewLoop(a.world, nil, cfg.Engine.FrameInterval)
	a.loop.AfterFrame = a.refreshOverlay
	return a, nil
}

func (a *app) setupInput() error {
	data := asset.DefaultKeymap
	if path := a.cfg.Scene.Keymap; path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("read keymap: %w", err)
		}
	}
	km, err := input.LoadKeymap(data)
	if err != nil {
		return err
	}

	a.input = input.NewManager(a.log, a.world.Status)
	if err := km.Apply(a.input); err != nil {
		return err
	}
	a.world.AddSystem(a.input)
	engine.AddService(a.world, a.input)

	w, h := a.screen.Size()
	a.trans = input.NewTranslator(w, h)

	// Front-end actions are optional in custom keymaps
	handlers := map[string]input.Handler{
		actionQuit:    a.onQuit,
		actionMenu:    a.onMenu,
		actionResume:  a.onResume,
		actionOverlay: a.onOverlay,
		actionMute:    a.onMute,
	}
	for ctxName := range km.Contexts {
		a.bindHandlers(ctxName, handlers)
	}
	return nil
}

func (a *app) bindHandlers(ctxName string, handlers map[string]input.Handler) {
	for _, action := range a.input.Actions(ctxName) {
		if h, ok := handlers[action]; ok {
			_ = a.input.RegisterHandler(ctxName, action, h)
		}
	}
}

func (a *app) setupAudio() {
	a.player = audio.NewPlayer(a.db,
		audio.WithLogger(a.log),
		audio.WithStatus(a.world.Status),
		audio.WithVolume(a.cfg.Audio.Volume))
	engine.AddService(a.world, a.player)

	if !a.cfg.Audio.Enabled {
		return
	}
	if err := a.player.Initialize(); err != nil {
		// Non-fatal, the board runs silent
		a.log.Warn("audio unavailable", zap.Error(err))
		return
	}
	a.player.SetMuted(a.cfg.Audio.Muted)
}

func (a *app) loadScene(ctx context.Context) error {
	reg := scene.NewRegistry()
	aspects.Register(reg)
	loader := scene.NewLoader(a.world, a.db, reg)

	var (
		fsys fs.FS = asset.Scenes()
		name       = asset.DefaultScene
	)
	if path := a.cfg.Scene.Path; path != "" {
		fsys, name = os.DirFS(filepath.Dir(path)), filepath.Base(path)
	}

	sc, err := loader.LoadFile(ctx, fsys, name)
	if err != nil {
		return err
	}
	a.scene = sc
	a.log.Info("scene ready", zap.String("scene", sc.Name), zap.Int("roots", len(sc.Roots)))
	return nil
}

// handle translates a terminal event on the loop goroutine
func (a *app) handle(ev tcell.Event) {
	if _, ok := ev.(*tcell.EventResize); ok {
		a.screen.Sync()
	}
	for _, raw := range a.trans.Translate(ev) {
		a.input.Queue(raw)
	}
}

func (a *app) refreshOverlay() {
	if !a.overlay {
		a.backend.SetOverlay(nil)
		return
	}
	ctxName, _ := a.input.Active()
	header := fmt.Sprintf("frame %d  context %s", a.world.Frame(), ctxName)
	if a.loop.Clock().Paused() {
		header += "  paused"
	}
	a.backend.SetOverlay(append([]string{header}, a.world.Status.Lines()...))
}

func (a *app) onQuit(act input.Action) bool {
	if act.Pressed {
		a.quit()
	}
	return true
}

func (a *app) onMenu(act input.Action) bool {
	if !act.Pressed {
		return true
	}
	if err := a.input.PushContext(contextMenu); err != nil {
		a.log.Warn("menu unavailable", zap.Error(err))
		return true
	}
	a.loop.Clock().Pause()
	return true
}

func (a *app) onResume(act input.Action) bool {
	if !act.Pressed {
		return true
	}
	if top, ok := a.input.Active(); ok && top == contextMenu {
		a.input.PopContext()
	}
	a.loop.Clock().Resume()
	return true
}

func (a *app) onOverlay(act input.Action) bool {
	if act.Pressed {
		a.overlay = !a.overlay
	}
	return true
}

func (a *app) onMute(act input.Action) bool {
	if act.Pressed {
		a.player.SetMuted(!a.player.Muted())
	}
	return true
}

// close unloads the scene and releases audio; the screen belongs to main
func (a *app) close() {
	if a.scene != nil {
		if err := a.scene.Unload(); err != nil {
			a.log.Warn("scene unload", zap.Error(err))
		}
	}
	a.player.Cleanup()
	if err := a.pipeline.Close(); err != nil {
		a.log.Warn("render close", zap.Error(err))
	}
	_ = a.log.Sync()
}
