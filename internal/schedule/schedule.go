// Package schedule implements the time-of-day multiplier applied to a
// Direct-mode run's target TPS: a static hour-of-day/day-of-week
// table by default, or a Starlark-scripted function for anything the
// static table can't express.
package schedule

import "time"

// Static is a fixed weekly schedule: 7 days x 24 hours of multipliers,
// indexed by time.Weekday and the hour-of-day in the schedule's
// configured location. Hours not set default to 1.0 via NewStatic.
type Static struct {
	loc    *time.Location
	byHour [7][24]float64
}

// NewStatic builds a Static schedule defaulting every hour to 1.0 in
// the given location (nil location is treated as time.Local).
func NewStatic(loc *time.Location) *Static {
	if loc == nil {
		loc = time.Local
	}
	s := &Static{loc: loc}
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			s.byHour[d][h] = 1.0
		}
	}
	return s
}

// Set overrides the multiplier for one (weekday, hour) cell.
func (s *Static) Set(day time.Weekday, hour int, multiplier float64) {
	s.byHour[day][hour%24] = multiplier
}

// Multiplier implements scenario.ScheduleMultiplier.
func (s *Static) Multiplier(now time.Time) float64 {
	local := now.In(s.loc)
	return s.byHour[local.Weekday()][local.Hour()]
}
