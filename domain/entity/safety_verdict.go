package entity

// SafetyVerdict says whether the process can be interrupted right now.
// A verdict is computed fresh for every restart attempt.
type SafetyVerdict struct {
	unsafe bool
	reason string
}

// Safe returns a verdict that allows the restart
func Safe() SafetyVerdict {
	return SafetyVerdict{}
}

// Unsafe returns a veto carrying a reason for the operator
func Unsafe(reason string) SafetyVerdict {
	if reason == "" {
		reason = "work is in progress"
	}
	return SafetyVerdict{unsafe: true, reason: reason}
}

// IsSafe reports whether the restart may proceed
func (v SafetyVerdict) IsSafe() bool { return !v.unsafe }

// Reason returns the veto reason, or an empty string for a safe verdict
func (v SafetyVerdict) Reason() string { return v.reason }

func (v SafetyVerdict) String() string {
	if v.IsSafe() {
		return "safe"
	}
	return "unsafe: " + v.reason
}
