// Priority tiers for waitlist ordering.
//
// Priority is a small closed set with a total order rather than raw integers
// scattered through comparisons, so a new tier can be slotted in without
// renumbering call sites.
package domain

// Priority ranks a waitlist entry for matching and position display.
// Higher values are served first; ties are broken by earlier creation time.
type Priority int

// The ordered tier set, lowest first. Values are persisted, so existing tiers
// keep their numbers; insert new tiers with fresh values and rely on the
// ordering methods rather than arithmetic.
const (
	PriorityRegular Priority = 1
	PriorityGold    Priority = 2
	PriorityElite   Priority = 3
)

// Before reports whether p ranks strictly behind other in queue order.
func (p Priority) Before(other Priority) bool { return p < other }

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityRegular, PriorityGold, PriorityElite:
		return true
	}
	return false
}

// String returns the lowercase tier name, or "unknown" for out-of-set values.
func (p Priority) String() string {
	switch p {
	case PriorityRegular:
		return "regular"
	case PriorityGold:
		return "gold"
	case PriorityElite:
		return "elite"
	}
	return "unknown"
}
