package security

import "testing"

func TestLimits(t *testing.T) {
	tests := []struct {
		name        string
		limits      Limits
		wantLimited bool
	}{
		{"default", DefaultLimits(), true},
		{"none", NoLimits(), false},
		{"weak only", Limits{WeakLimit: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limits.IsLimited(); got != tt.wantLimited {
				t.Errorf("IsLimited() = %v, want %v", got, tt.wantLimited)
			}
		})
	}
}

func TestLimits_LimitFor(t *testing.T) {
	l := Limits{DuplicateLimit: 1, WeakLimit: 2, BreachedLimit: 3}

	tests := []struct {
		issue IssueType
		want  int
	}{
		{IssueDuplicatePassword, 1},
		{IssueWeakPassword, 2},
		{IssueBreachedPassword, 3},
		{IssueStalePassword, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.issue), func(t *testing.T) {
			if got := l.limitFor(tt.issue); got != tt.want {
				t.Errorf("limitFor(%q) = %d, want %d", tt.issue, got, tt.want)
			}
		})
	}
}
