package domain

// VerdictKind tags the outcome of a slot validation.
type VerdictKind string

const (
	VerdictAccepted VerdictKind = "accepted"
	VerdictRejected VerdictKind = "rejected"
	VerdictCleared  VerdictKind = "cleared"
)

// Verdict is the result of validating one Candidate.
// Exactly one case holds, selected by Kind:
//   - Accepted: Value is written to the slot, Derived holds extra slots (e.g. caller_id).
//   - Rejected: Message is delivered and the slot is cleared so it is asked again.
//   - Cleared: every slot in Slots is unset.
type Verdict struct {
	Kind    VerdictKind
	Value   any
	Derived map[string]any
	Message Message
	Slots   []string
}

// Accept builds an Accepted verdict.
func Accept(value any, derived map[string]any) Verdict {
	return Verdict{Kind: VerdictAccepted, Value: value, Derived: derived}
}

// Reject builds a Rejected verdict.
func Reject(msg Message) Verdict {
	return Verdict{Kind: VerdictRejected, Message: msg}
}

// Clear builds a Cleared verdict for the given slots.
func Clear(slots ...string) Verdict {
	return Verdict{Kind: VerdictCleared, Slots: slots}
}
