// Package schedule decides whether a proposed showtime collides with
// existing ones.  Existing showtimes are padded on both sides by the
// configured buffer before comparison.
package schedule

import (
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// Policy controls the conflict scan.
type Policy struct {
	// HallScoped limits the scan to showtimes in the same hall.  When
	// false every active showtime is a candidate.
	HallScoped bool
	// Buffer pads each existing showtime on both ends.
	Buffer time.Duration
}

// Window is a half-open time slot [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// EndTime derives a showtime's end from its start and the movie duration.
func EndTime(start time.Time, m model.Movie) time.Time {
	return start.Add(m.Duration())
}

// Padded returns w widened by buffer on both sides.
func (w Window) Padded(buffer time.Duration) Window {
	return Window{Start: w.Start.Add(-buffer), End: w.End.Add(buffer)}
}

// Conflicts reports whether proposed collides with existing once existing
// is padded by buffer.  With ps/pe the padded bounds, a collision is any of
//
//	ps <= proposed.Start <  pe
//	ps <  proposed.End   <= pe
//	proposed.Start <= ps && proposed.End >= pe
func Conflicts(existing, proposed Window, buffer time.Duration) bool {
	p := existing.Padded(buffer)
	ns, ne := proposed.Start, proposed.End

	if !ns.Before(p.Start) && ns.Before(p.End) {
		return true
	}
	if ne.After(p.Start) && !ne.After(p.End) {
		return true
	}
	if !ns.After(p.Start) && !ne.Before(p.End) {
		return true
	}
	return false
}

// FirstConflict returns the first candidate that collides with proposed.
// Inactive candidates and the showtime identified by excludeID are skipped.
func FirstConflict(candidates []model.Showtime, proposed Window, buffer time.Duration, excludeID uint64) (model.Showtime, bool) {
	for _, s := range candidates {
		if !s.IsActive || (excludeID != 0 && s.ID == excludeID) {
			continue
		}
		if Conflicts(Window{Start: s.StartTime, End: s.EndTime}, proposed, buffer) {
			return s, true
		}
	}
	return model.Showtime{}, false
}
