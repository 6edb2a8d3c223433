package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoDirector is returned by NextWave when no script defines next_wave.
var ErrNoDirector = errors.New("lua function next_wave not found")

// Engine wraps a single gopher-lua VM running the wave director scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory: shared helpers from core/ first, then waves/.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	for _, sub := range []string{"core", "waves"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

func (e *Engine) Close() {
	e.vm.Close()
}

// HasDirector reports whether a script defined next_wave.
func (e *Engine) HasDirector() bool {
	return e.vm.GetGlobal("next_wave") != lua.LNil
}

// WaveContext is the game state handed to next_wave.
type WaveContext struct {
	Wave      int     // 1-based number of the wave being requested
	Elapsed   float64 // seconds survived
	Score     int
	Remaining int // rescuable points left
	Initial   int
	CitySize  float64
	Seed      int64
}

// Launch is one missile of a wave.
type Launch struct {
	From  [3]float64
	To    [3]float64
	Speed float64 // 0 = arsenal speed
}

// Wave is the director's answer: missiles to launch now and the delay
// before the next request.
type Wave struct {
	Cooldown time.Duration
	Missiles []Launch
}

// NextWave calls the Lua next_wave function. Scripts return
// {cooldown=seconds, missiles={{sx,sy,sz,dx,dy,dz,speed}, ...}}.
func (e *Engine) NextWave(ctx WaveContext) (Wave, error) {
	fn := e.vm.GetGlobal("next_wave")
	if fn == lua.LNil {
		return Wave{}, ErrNoDirector
	}

	t := e.vm.NewTable()
	t.RawSetString("wave", lua.LNumber(ctx.Wave))
	t.RawSetString("elapsed", lua.LNumber(ctx.Elapsed))
	t.RawSetString("score", lua.LNumber(ctx.Score))
	t.RawSetString("remaining", lua.LNumber(ctx.Remaining))
	t.RawSetString("initial", lua.LNumber(ctx.Initial))
	t.RawSetString("city_size", lua.LNumber(ctx.CitySize))
	t.RawSetString("seed", lua.LNumber(ctx.Seed))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return Wave{}, fmt.Errorf("lua next_wave: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return Wave{}, fmt.Errorf("lua next_wave returned %s, want table", result.Type())
	}

	var w Wave
	cd := float64(lua.LVAsNumber(rt.RawGetString("cooldown")))
	if cd > 0 {
		w.Cooldown = time.Duration(cd * float64(time.Second))
	}

	ms, ok := rt.RawGetString("missiles").(*lua.LTable)
	if !ok {
		return w, nil
	}
	for i := 1; i <= ms.Len(); i++ {
		m, ok := ms.RawGetInt(i).(*lua.LTable)
		if !ok {
			return Wave{}, fmt.Errorf("lua next_wave: missile %d is not a table", i)
		}
		if m.Len() < 6 {
			return Wave{}, fmt.Errorf("lua next_wave: missile %d has %d values, want at least 6", i, m.Len())
		}
		var l Launch
		for k := 0; k < 3; k++ {
			l.From[k] = float64(lua.LVAsNumber(m.RawGetInt(k + 1)))
			l.To[k] = float64(lua.LVAsNumber(m.RawGetInt(k + 4)))
		}
		l.Speed = float64(lua.LVAsNumber(m.RawGetInt(7)))
		w.Missiles = append(w.Missiles, l)
	}
	return w, nil
}
