package aspects

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/scene"
)

const TypeLuaScript = "LuaScript"

// ObserverCall forwards its payload to the script's on_signal
const ObserverCall = "Call"

// MetricLuaErrors counts failed script calls
const MetricLuaErrors = "lua.errors"

// Script callbacks, all optional
const (
	luaOnActivated   = "on_activated"
	luaOnDeactivated = "on_deactivated"
	luaUpdate        = "update"
	luaSimulate      = "simulate"
	luaOnClick       = "on_click"
	luaOnSignal      = "on_signal"
)

// LuaScript runs a gopher-lua chunk against its node
//
// The chunk sees a sandbox with the base, table, string and math libraries and:
//   - node.position() / node.set_position(x, y, z) / node.translate(x, y, z)
//   - node.rotate(ax, ay, az, radians)
//   - node.path()
//   - emit(name, value) fires one of the declared Signals
//   - log(msg)
//
// and may define on_activated, on_deactivated, update(dt_seconds),
// simulate(step_seconds) run once per fixed simulation step, on_click(x, y, z) returning whether the click was consumed, and on_signal(value)
type LuaScript struct {
	engine.AspectBase

	Source  string
	Signals []string

	vm  *lua.LState
	log *zap.Logger
}

func (*LuaScript) TypeName() string { return TypeLuaScript }

func (s *LuaScript) Clone() engine.Aspect {
	return &LuaScript{Source: s.Source, Signals: append([]string(nil), s.Signals...)}
}

func (s *LuaScript) OnAttached() error {
	w := s.World()
	s.log = w.Log.Named("lua")
	bus := s.Bus()
	for _, name := range s.Signals {
		if err := bus.Declare(s.SignalKey(TypeLuaScript, name), nil); err != nil {
			return err
		}
	}
	if err := bus.DeclareObserver(s.SignalKey(TypeLuaScript, ObserverCall), nil, s.onSignal); err != nil {
		return err
	}

	vm, err := s.sandbox()
	if err != nil {
		return err
	}
	if err := vm.DoString(s.Source); err != nil {
		vm.Close()
		return fmt.Errorf("lua script: %w", err)
	}
	s.vm = vm
	return nil
}

func (s *LuaScript) OnDetached() {
	if s.vm != nil {
		s.vm.Close()
		s.vm = nil
	}
}

func (s *LuaScript) OnActivated()   { s.call(luaOnActivated, 0) }
func (s *LuaScript) OnDeactivated() { s.call(luaOnDeactivated, 0) }

func (s *LuaScript) VariableUpdate(dt time.Duration) {
	s.call(luaUpdate, 0, lua.LNumber(dt.Seconds()))
}

func (s *LuaScript) SimulationUpdate(step time.Duration) {
	s.call(luaSimulate, 0, lua.LNumber(step.Seconds()))
}

func (s *LuaScript) OnPointerLeftClick(ev engine.PointerEvent) bool {
	ret := s.call(luaOnClick, 1, lua.LNumber(ev.Point.X()), lua.LNumber(ev.Point.Y()), lua.LNumber(ev.Point.Z()))
	return lua.LVAsBool(ret)
}

func (*LuaScript) OnPointerLeftRelease(engine.PointerEvent) bool { return false }

func (s *LuaScript) onSignal(payload any) error {
	if s.vm == nil {
		return nil
	}
	s.call(luaOnSignal, 0, toLua(s.vm, payload))
	return nil
}

// call invokes a global function when the script defines it
// Errors are logged and counted; the returned value is LNil on failure
func (s *LuaScript) call(name string, nret int, args ...lua.LValue) lua.LValue {
	if s.vm == nil {
		return lua.LNil
	}
	fn, ok := s.vm.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil
	}
	if err := s.vm.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		s.World().Status.Inc(MetricLuaErrors)
		s.log.Error("lua call failed", zap.String("func", name), zap.Error(err))
		return lua.LNil
	}
	if nret == 0 {
		return lua.LNil
	}
	ret := s.vm.Get(-1)
	s.vm.Pop(1)
	return ret
}

func (s *LuaScript) sandbox() (*lua.LState, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := vm.CallByParam(lua.P{Fn: vm.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	// no file or module access from scene scripts
	for _, name := range []string{"dofile", "loadfile", "require"} {
		vm.SetGlobal(name, lua.LNil)
	}

	vm.SetGlobal("log", vm.NewFunction(s.luaLog))
	vm.SetGlobal("emit", vm.NewFunction(s.luaEmit))
	vm.SetGlobal("node", vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"position":     s.luaPosition,
		"set_position": s.luaSetPosition,
		"translate":    s.luaTranslate,
		"rotate":       s.luaRotate,
		"path":         s.luaPath,
	}))
	return vm, nil
}

func (s *LuaScript) luaLog(L *lua.LState) int {
	s.log.Info(L.CheckString(1), zap.String("node", s.nodePath()))
	return 0
}

func (s *LuaScript) luaEmit(L *lua.LState) int {
	name := L.CheckString(1)
	key := s.SignalKey(TypeLuaScript, name)
	if !s.Bus().HasSignal(key) {
		L.ArgError(1, fmt.Sprintf("undeclared signal %q", name))
		return 0
	}
	s.Bus().Fire(key, fromLua(L.Get(2)))
	return 0
}

func (s *LuaScript) luaPosition(L *lua.LState) int {
	id, ok := node(&s.AspectBase)
	if !ok {
		return 0
	}
	p := s.World().LocalTransform(id).Position
	L.Push(lua.LNumber(p.X()))
	L.Push(lua.LNumber(p.Y()))
	L.Push(lua.LNumber(p.Z()))
	return 3
}

func (s *LuaScript) luaSetPosition(L *lua.LState) int {
	s.moveNode(L, false)
	return 0
}

func (s *LuaScript) luaTranslate(L *lua.LState) int {
	s.moveNode(L, true)
	return 0
}

func (s *LuaScript) moveNode(L *lua.LState, relative bool) {
	id, ok := node(&s.AspectBase)
	if !ok {
		return
	}
	v := mgl32.Vec3{float32(L.CheckNumber(1)), float32(L.CheckNumber(2)), float32(L.CheckNumber(3))}
	t := s.World().LocalTransform(id)
	if relative {
		t = t.Translated(v)
	} else {
		t.Position = v
	}
	_ = s.World().SetLocalTransform(id, t)
}

func (s *LuaScript) luaRotate(L *lua.LState) int {
	id, ok := node(&s.AspectBase)
	if !ok {
		return 0
	}
	axis := mgl32.Vec3{float32(L.CheckNumber(1)), float32(L.CheckNumber(2)), float32(L.CheckNumber(3))}
	if axis.Len() == 0 {
		L.ArgError(1, "zero rotation axis")
		return 0
	}
	q := mgl32.QuatRotate(float32(L.CheckNumber(4)), axis.Normalize())
	w := s.World()
	_ = w.SetLocalTransform(id, w.LocalTransform(id).Rotated(q))
	return 0
}

func (s *LuaScript) luaPath(L *lua.LState) int {
	L.Push(lua.LString(s.nodePath()))
	return 1
}

func (s *LuaScript) nodePath() string {
	if id, ok := node(&s.AspectBase); ok {
		return s.World().Path(id)
	}
	return ""
}

func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case string:
		return lua.LString(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float32:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case Cell:
		t := L.NewTable()
		t.RawSetString("row", lua.LNumber(x.Row))
		t.RawSetString("col", lua.LNumber(x.Col))
		t.RawSetString("kind", lua.LString(x.Kind.String()))
		return t
	case engine.PointerEvent:
		t := L.NewTable()
		t.RawSetString("volume", lua.LString(x.Volume))
		t.RawSetString("x", lua.LNumber(x.Point.X()))
		t.RawSetString("y", lua.LNumber(x.Point.Y()))
		t.RawSetString("z", lua.LNumber(x.Point.Z()))
		return t
	case fmt.Stringer:
		return lua.LString(x.String())
	}
	return lua.LString(fmt.Sprint(v))
}

func fromLua(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	}
	return nil
}

func newLuaScript(p scene.Params) (engine.Aspect, error) {
	src := p.String("source", "")
	if src == "" {
		return nil, fmt.Errorf("lua script needs a source")
	}
	// syntax errors fail the scene build
	scratch := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer scratch.Close()
	if _, err := scratch.LoadString(src); err != nil {
		return nil, fmt.Errorf("lua script: %w", err)
	}
	return &LuaScript{Source: src, Signals: p.Strings("signals")}, nil
}
