package entity

import "fmt"

// DialogOutcome is the resolution of a restart confirmation prompt
type DialogOutcome int

const (
	// DialogOutcomeNone means the prompt has not resolved yet
	DialogOutcomeNone DialogOutcome = iota
	// DialogOutcomeTimeout means nobody answered within the wait interval
	DialogOutcomeTimeout
	// DialogOutcomeAccept means the operator accepted the restart
	DialogOutcomeAccept
	// DialogOutcomeCancel means the operator declined, closed the prompt,
	// or no prompt could be shown
	DialogOutcomeCancel
)

var dialogOutcomeNames = map[DialogOutcome]string{
	DialogOutcomeNone:    "none",
	DialogOutcomeTimeout: "timeout",
	DialogOutcomeAccept:  "accept",
	DialogOutcomeCancel:  "cancel",
}

func (o DialogOutcome) String() string {
	if name, ok := dialogOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("DialogOutcome(%d)", int(o))
}

// IsTerminal reports whether o is a final outcome
func (o DialogOutcome) IsTerminal() bool {
	return o == DialogOutcomeTimeout || o == DialogOutcomeAccept || o == DialogOutcomeCancel
}

// IsConsent reports whether the restart may go ahead. An unanswered
// prompt counts as consent.
func (o DialogOutcome) IsConsent() bool {
	return o == DialogOutcomeAccept || o == DialogOutcomeTimeout
}

// ParseDialogOutcome converts a stored name back into an outcome
func ParseDialogOutcome(s string) (DialogOutcome, error) {
	for o, name := range dialogOutcomeNames {
		if name == s {
			return o, nil
		}
	}
	return DialogOutcomeNone, fmt.Errorf("unknown dialog outcome %q", s)
}
