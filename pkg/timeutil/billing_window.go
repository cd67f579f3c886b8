package timeutil

import (
	"math/rand/v2"
	"time"
)

// BillingZone is the civil zone renewal dates are reckoned in: UTC+9, no DST
var BillingZone = time.FixedZone("KST", 9*60*60)

const (
	// renewal charges run between 10:00:00 and 10:59:59 local time
	chargeHour = 10

	graceHour   = 23
	graceMinute = 59
	graceSecond = 59
)

// RandSource supplies uniform integers in [0, n). *math/rand/v2.Rand satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand is safe for concurrent use
var DefaultRand RandSource = globalRand{}

// renewalDate is the calendar date, in BillingZone, of the day after endAt
func renewalDate(endAt time.Time) (int, time.Month, int) {
	return endAt.Add(24 * time.Hour).In(BillingZone).Date()
}

// GraceDeadline returns 23:59:59.000 in BillingZone on the calendar day that
// contains endAt+24h, as a UTC instant
func GraceDeadline(endAt time.Time) time.Time {
	y, m, d := renewalDate(endAt)
	return time.Date(y, m, d, graceHour, graceMinute, graceSecond, 0, BillingZone).UTC()
}

// NextChargeInstant returns a random instant between 10:00:00 and 10:59:59 in
// BillingZone on the same calendar day as GraceDeadline, as a UTC instant.
// The minute and second are spread so renewals do not all hit the provider
// at the top of the hour.
func NextChargeInstant(endAt time.Time, rng RandSource) time.Time {
	if rng == nil {
		rng = DefaultRand
	}
	y, m, d := renewalDate(endAt)
	minute := rng.IntN(60)
	second := rng.IntN(60)
	return time.Date(y, m, d, chargeHour, minute, second, 0, BillingZone).UTC()
}
