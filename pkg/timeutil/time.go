package timeutil

import "time"

// Now is the wall clock in UTC. Ledger timestamps are stored in UTC and only
// converted to BillingZone when a window is computed.
func Now() time.Time {
	return time.Now().UTC()
}

// ToUTC normalizes instants read from the provider
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

// FixedClock returns a Clock that always reports t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
