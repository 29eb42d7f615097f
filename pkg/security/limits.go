package security

// Limits caps how many issues of each kind a report shows.
type Limits struct {
	// DuplicateLimit is the max duplicate groups to show (0 = unlimited).
	DuplicateLimit int
	// WeakLimit is the max weak passwords to show (0 = unlimited).
	WeakLimit int
	// BreachedLimit is the max breached passwords to show (0 = unlimited).
	BreachedLimit int
}

// DefaultLimits returns the limits used for the terminal summary.
func DefaultLimits() Limits {
	return Limits{
		DuplicateLimit: 5,
		WeakLimit:      5,
		BreachedLimit:  5,
	}
}

// NoLimits returns limits that show every issue.
func NoLimits() Limits {
	return Limits{}
}

// IsLimited returns true if any issue kind is capped.
func (l Limits) IsLimited() bool {
	return l.DuplicateLimit > 0 || l.WeakLimit > 0 || l.BreachedLimit > 0
}

// limitFor returns the cap for an issue type (0 = unlimited).
func (l Limits) limitFor(t IssueType) int {
	switch t {
	case IssueWeakPassword:
		return l.WeakLimit
	case IssueDuplicatePassword:
		return l.DuplicateLimit
	case IssueBreachedPassword:
		return l.BreachedLimit
	default:
		return 0
	}
}
