package schedule

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"
)

// Scripted evaluates a user-supplied Starlark function to compute the
// schedule multiplier, for shapes a static weekly table can't express
// (holiday calendars, ramp schedules tied to external state baked into
// the script at load time). The script must define:
//
//	def multiplier(weekday, hour, minute):
//	    return 1.0
//
// where weekday is 0 (Monday) through 6 (Sunday), matching Starlark's
// own time module convention rather than Go's Sunday-is-zero.
type Scripted struct {
	thread *starlark.Thread
	fn     starlark.Callable
	loc    *time.Location
}

// LoadScripted compiles source (Starlark program text) and resolves
// its multiplier function. The script is compiled once; Multiplier
// calls are cheap starlark.Call invocations against pre-parsed code.
func LoadScripted(name, source string, loc *time.Location) (*Scripted, error) {
	if loc == nil {
		loc = time.Local
	}
	thread := &starlark.Thread{Name: name}
	globals, err := starlark.ExecFile(thread, name, source, nil)
	if err != nil {
		return nil, fmt.Errorf("schedule: compiling %s: %w", name, err)
	}
	fn, ok := globals["multiplier"].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("schedule: %s must define a multiplier(weekday, hour, minute) function", name)
	}
	return &Scripted{thread: thread, fn: fn, loc: loc}, nil
}

// Multiplier implements scenario.ScheduleMultiplier by calling into
// the loaded script. A script error or a non-numeric return falls
// back to 1.0 rather than stalling the run loop.
func (s *Scripted) Multiplier(now time.Time) float64 {
	local := now.In(s.loc)
	weekday := (int(local.Weekday()) + 6) % 7 // Go Sunday=0 -> Starlark Monday=0

	result, err := starlark.Call(s.thread, s.fn, starlark.Tuple{
		starlark.MakeInt(weekday),
		starlark.MakeInt(local.Hour()),
		starlark.MakeInt(local.Minute()),
	}, nil)
	if err != nil {
		return 1.0
	}

	switch v := result.(type) {
	case starlark.Float:
		return float64(v)
	case starlark.Int:
		return float64(v.Float())
	default:
		return 1.0
	}
}
