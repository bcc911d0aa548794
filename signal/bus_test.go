package signal

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lixenwraith/toymaker/status"
)

var strType = reflect.TypeFor[string]()

func newTestBus(t *testing.T) (*Bus, *observer.ObservedLogs, *status.Registry) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	stats := status.NewRegistry()
	return NewBus(zap.New(core), stats), logs, stats
}

func TestFireOrderSurvivesMidDispatchDisconnect(t *testing.T) {
	b, _, _ := newTestBus(t)
	src := Key{Owner: 1, Aspect: "UIButton", Name: "Pressed"}
	require.NoError(t, b.Declare(src, strType))

	var calls []string
	var third ConnectionID
	_, err := b.ConnectFunc(src, func(any) error {
		calls = append(calls, "first")
		b.Disconnect(third)
		return nil
	})
	require.NoError(t, err)
	_, err = b.ConnectFunc(src, func(any) error { calls = append(calls, "second"); return nil })
	require.NoError(t, err)
	third, err = b.ConnectFunc(src, func(any) error { calls = append(calls, "third"); return nil })
	require.NoError(t, err)

	b.Fire(src, "go")
	assert.Equal(t, []string{"first", "second", "third"}, calls)

	calls = nil
	b.Fire(src, "go")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestConnectDuringDispatchAffectsLaterFires(t *testing.T) {
	b, _, _ := newTestBus(t)
	src := Key{Owner: 1, Aspect: "A", Name: "S"}
	require.NoError(t, b.Declare(src, nil))

	n := 0
	_, err := b.ConnectFunc(src, func(any) error {
		_, err := b.ConnectFunc(src, func(any) error { n++; return nil })
		return err
	})
	require.NoError(t, err)

	b.Fire(src, nil)
	assert.Zero(t, n)
	b.Fire(src, nil)
	assert.Equal(t, 1, n)
}

func TestHandlerFailuresAreContained(t *testing.T) {
	b, logs, stats := newTestBus(t)
	src := Key{Owner: 1, Aspect: "A", Name: "S"}
	require.NoError(t, b.Declare(src, nil))

	reached := false
	_, _ = b.ConnectFunc(src, func(any) error { return errors.New("bad handler") })
	_, _ = b.ConnectFunc(src, func(any) error { panic("worse handler") })
	_, _ = b.ConnectFunc(src, func(any) error { reached = true; return nil })

	assert.NotPanics(t, func() { b.Fire(src, nil) })
	assert.True(t, reached)
	assert.EqualValues(t, 1, stats.Count(MetricHandlerErrors))
	assert.EqualValues(t, 1, stats.Count(MetricHandlerPanics))
	assert.Equal(t, 1, logs.FilterMessage("signal handler panicked").Len())
	assert.Equal(t, 1, logs.FilterMessage("signal handler failed").Len())
}

func TestConnectTypeChecked(t *testing.T) {
	b, _, _ := newTestBus(t)
	src := Key{Owner: 1, Aspect: "BoardLocations", Name: "BoardClicked"}
	require.NoError(t, b.Declare(src, reflect.TypeFor[[2]int]()))

	strObs := Key{Owner: 2, Aspect: "Game", Name: "OnText"}
	require.NoError(t, b.DeclareObserver(strObs, strType, func(any) error { return nil }))
	_, err := b.Connect(src, strObs)
	var pm *PayloadMismatchError
	assert.ErrorAs(t, err, &pm)

	_, err = b.Connect(Key{Owner: 9}, strObs)
	assert.ErrorIs(t, err, ErrUnknownSignal)
	_, err = b.Connect(src, Key{Owner: 9})
	assert.ErrorIs(t, err, ErrUnknownObserver)

	var got [2]int
	obs := Key{Owner: 2, Aspect: "Game", Name: "OnBoardClicked"}
	require.NoError(t, b.DeclareObserver(obs, reflect.TypeFor[[2]int](), func(p any) error {
		got = p.([2]int)
		return nil
	}))
	_, err = b.Connect(src, obs)
	require.NoError(t, err)
	b.Fire(src, [2]int{3, 1})
	assert.Equal(t, [2]int{3, 1}, got)
}

func TestFireRejectsWrongPayload(t *testing.T) {
	b, logs, stats := newTestBus(t)
	src := Key{Owner: 1, Aspect: "A", Name: "S"}
	require.NoError(t, b.Declare(src, strType))
	called := false
	_, _ = b.ConnectFunc(src, func(any) error { called = true; return nil })

	b.Fire(src, 42)
	assert.False(t, called)
	assert.EqualValues(t, 1, stats.Count(MetricDropped))
	assert.Equal(t, 1, logs.FilterMessage("payload type mismatch").Len())
}

func TestRemoveOwnerLeavesNoConnections(t *testing.T) {
	b, _, _ := newTestBus(t)
	a := Key{Owner: 1, Aspect: "Button", Name: "Pressed"}
	obsA := Key{Owner: 1, Aspect: "Button", Name: "Enable"}
	other := Key{Owner: 2, Aspect: "Game", Name: "Turn"}
	obsOther := Key{Owner: 2, Aspect: "Game", Name: "OnPressed"}
	require.NoError(t, b.Declare(a, nil))
	require.NoError(t, b.Declare(other, nil))
	require.NoError(t, b.DeclareObserver(obsA, nil, func(any) error { return nil }))
	require.NoError(t, b.DeclareObserver(obsOther, nil, func(any) error { return nil }))

	_, err := b.Connect(a, obsOther)
	require.NoError(t, err)
	_, err = b.Connect(other, obsA)
	require.NoError(t, err)
	_, err = b.ConnectFunc(other, func(any) error { return nil })
	require.NoError(t, err)
	require.Equal(t, 2, b.ConnectionsTouching(1))

	b.RemoveOwner(1)
	assert.Zero(t, b.ConnectionsTouching(1))
	assert.Zero(t, b.Declarations(1))
	assert.Equal(t, 1, b.Connections())
	assert.False(t, b.HasSignal(a))
	assert.True(t, b.HasSignal(other))
}

func TestRemoveAspectIsScoped(t *testing.T) {
	b, _, _ := newTestBus(t)
	require.NoError(t, b.Declare(Key{Owner: 1, Aspect: "A", Name: "x"}, nil))
	require.NoError(t, b.Declare(Key{Owner: 1, Aspect: "B", Name: "x"}, nil))
	b.RemoveAspect(1, "A")
	assert.Equal(t, 1, b.Declarations(1))
}

func TestRedeclare(t *testing.T) {
	b, _, _ := newTestBus(t)
	k := Key{Owner: 1, Aspect: "A", Name: "S"}
	require.NoError(t, b.Declare(k, strType))
	require.NoError(t, b.Declare(k, strType))
	var re *RedeclaredError
	assert.ErrorAs(t, b.Declare(k, nil), &re)
}

func TestRecursionLimit(t *testing.T) {
	b, _, stats := newTestBus(t)
	k := Key{Owner: 1, Aspect: "Echo", Name: "S"}
	require.NoError(t, b.Declare(k, nil))
	depth := 0
	_, _ = b.ConnectFunc(k, func(any) error { depth++; b.Fire(k, nil); return nil })
	b.Fire(k, nil)
	assert.Equal(t, DefaultMaxDepth, depth)
	assert.EqualValues(t, 1, stats.Count(MetricDropped))
}

func TestTypedWrappers(t *testing.T) {
	b, _, _ := newTestBus(t)
	sig, err := NewSignal[string](b, Key{Owner: 1, Aspect: "UIButton", Name: "ButtonPressed"})
	require.NoError(t, err)
	var got string
	obs, err := NewObserver(b, Key{Owner: 2, Aspect: "Menu", Name: "OnButton"}, func(v string) error {
		got = v
		return nil
	})
	require.NoError(t, err)
	_, err = Connect(b, sig, obs)
	require.NoError(t, err)

	sig.Fire("roll")
	assert.Equal(t, "roll", got)

	var zero Signal[string]
	assert.NotPanics(t, func() { zero.Fire("x") })
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("/board/cells@BoardLocations.BoardClicked")
	require.NoError(t, err)
	assert.Equal(t, Path{Node: "/board/cells", Aspect: "BoardLocations", Name: "BoardClicked"}, p)
	assert.Equal(t, "/board/cells@BoardLocations.BoardClicked", p.String())

	for _, bad := range []string{"", "board@A.B", "/board", "/board@A", "/board@.B", "/b@A.B.C"} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}
