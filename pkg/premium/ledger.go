// Package premium implements the entitlement ledger and the pledge-tiered
// quota engine for tenants and accounts.
//
// Everything here is a pure computation over supplied values: callers pass
// the current wall-clock time in epoch milliseconds, record counts come
// from an injected counter, and administrator membership from an injected
// set. The package never reaches into ambient state.
package premium

// AnchorKey is the reserved grant ID seeded whenever entitlement is
// (re)established after having lapsed. Its value is the wall-clock instant
// at grant time rather than a duration; see Ledger.
const AnchorKey = "init"

// Ledger is a keyed map of granted entitlement values in milliseconds. It
// serializes as an ordinary string-keyed JSON object inside the owning
// tenant or account record.
//
// The expiry model is inherited from the platform's original billing code
// and is deliberately kept bit-for-bit: the ledger stores no start
// timestamp. The anchor entry holds an absolute epoch-millis instant,
// ordinary grants hold durations, and IsPremium compares the plain sum of
// all values against "now". Re-seeding the anchor with the current time on
// every restart-from-lapsed is what re-bases the window. Changing this to
// a start+duration model would shift observable expiry times for every
// persisted ledger, so don't.
type Ledger map[string]int64

// Grant records a grant of millis under id, overwriting any previous grant
// with the same ID. When the ledger has lapsed at nowMillis, all existing
// entries are cleared and the anchor is re-seeded with nowMillis before
// the grant is inserted: topping up only extends an active entitlement, a
// lapsed one restarts from zero.
//
// millis is accepted unchecked; validating non-negative durations is the
// caller's boundary.
func (l *Ledger) Grant(id string, millis, nowMillis int64) {
	if *l == nil {
		*l = Ledger{}
	}
	if !l.IsPremium(nowMillis) {
		clear(*l)
		(*l)[AnchorKey] = nowMillis
	}
	(*l)[id] = millis
}

// Revoke removes the grant with the given ID. Absent IDs are a no-op.
func (l Ledger) Revoke(id string) {
	delete(l, id)
}

// TotalMillis returns the sum of all grant values, 0 for an empty or nil
// ledger. The result is interpreted as an absolute epoch-millis expiry
// instant, not a duration.
func (l Ledger) TotalMillis() int64 {
	var total int64
	for _, v := range l {
		total += v
	}
	return total
}

// IsPremium reports whether the entitlement is active at nowMillis.
func (l Ledger) IsPremium(nowMillis int64) bool {
	return nowMillis < l.TotalMillis()
}

// RemainingMillis returns how much entitlement time is left at nowMillis,
// 0 once lapsed.
func (l Ledger) RemainingMillis(nowMillis int64) int64 {
	if !l.IsPremium(nowMillis) {
		return 0
	}
	return l.TotalMillis() - nowMillis
}

// Copy returns an independent duplicate. A nil ledger copies to nil.
func (l Ledger) Copy() Ledger {
	if l == nil {
		return nil
	}
	c := make(Ledger, len(l))
	for id, v := range l {
		c[id] = v
	}
	return c
}
