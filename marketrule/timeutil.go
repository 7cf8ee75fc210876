package marketrule

import "time"

// toLocal converts at into the named IANA timezone. It returns ok=false if
// the zone cannot be loaded, in which case callers should treat the time as
// outside trading hours rather than guessing.
func toLocal(at time.Time, zone string) (time.Time, bool) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return at, false
	}
	return at.In(loc), true
}

// sinceMidnight returns the offset of t past local midnight, for comparing
// against session-window durations.
func sinceMidnight(t time.Time) time.Duration {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return t.Sub(midnight)
}
