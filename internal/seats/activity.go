package seats

import "time"

// activityWindow is the rolling window a seat's last activity must fall in to
// count as active. Shared by the fetch-time aggregate and the post-filter
// recount so the two can never drift apart.
const activityWindow = 30 * 24 * time.Hour

// IsActive reports whether a last-activity timestamp falls within the
// activity window ending at ref. The boundary at exactly 30 days ago is
// inclusive. A missing timestamp is always inactive.
func IsActive(lastActivityAt *time.Time, ref time.Time) bool {
	if lastActivityAt == nil {
		return false
	}
	return !lastActivityAt.Before(ref.Add(-activityWindow))
}

// CountActive returns the number of seats active relative to ref.
func CountActive(assignments []SeatAssignment, ref time.Time) int {
	n := 0
	for _, a := range assignments {
		if IsActive(a.LastActivityAt, ref) {
			n++
		}
	}
	return n
}
