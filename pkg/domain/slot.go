package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Slot names shared by the forms.
const (
	SlotEmail               = "email"
	SlotPreviousEmail       = "previous_email"
	SlotCallerID            = "caller_id"
	SlotPriority            = "priority"
	SlotProblemDescription  = "problem_description"
	SlotIncidentTitle       = "incident_title"
	SlotConfirm             = "confirm"
	SlotFeedbackDescription = "feedback_description"
	SlotConfirmFeedback     = "confirm_feedback"
)

// CandidateKind tags the shape of a Candidate.
type CandidateKind string

const (
	// CandidateAbsent means the user supplied no value (or explicitly none).
	CandidateAbsent CandidateKind = "absent"
	// CandidateText is free text extracted from the user's message.
	CandidateText CandidateKind = "text"
	// CandidateConfirmation is a yes/no answer, e.g. to "use your previous email?".
	CandidateConfirmation CandidateKind = "confirmation"
)

// Candidate is the raw value offered for the requested slot on a turn.
// Exactly one of Text or Affirmed is meaningful, selected by Kind.
type Candidate struct {
	Kind     CandidateKind
	Text     string
	Affirmed bool
}

// TextCandidate wraps free text.
func TextCandidate(text string) Candidate {
	return Candidate{Kind: CandidateText, Text: text}
}

// ConfirmationCandidate wraps a yes/no answer.
func ConfirmationCandidate(affirmed bool) Candidate {
	return Candidate{Kind: CandidateConfirmation, Affirmed: affirmed}
}

// AbsentCandidate represents "no value".
func AbsentCandidate() Candidate {
	return Candidate{Kind: CandidateAbsent}
}

// IsEmpty reports whether the candidate carries no usable value.
// A negative confirmation counts as empty.
func (c Candidate) IsEmpty() bool {
	switch c.Kind {
	case CandidateText:
		return strings.TrimSpace(c.Text) == ""
	case CandidateConfirmation:
		return !c.Affirmed
	default:
		return true
	}
}

func (c Candidate) String() string {
	switch c.Kind {
	case CandidateText:
		return c.Text
	case CandidateConfirmation:
		if c.Affirmed {
			return "yes"
		}
		return "no"
	default:
		return ""
	}
}

type candidateJSON struct {
	Text    *string `json:"text,omitempty"`
	Confirm *bool   `json:"confirm,omitempty"`
}

// MarshalJSON encodes the candidate as {"text": ...}, {"confirm": ...} or {}.
func (c Candidate) MarshalJSON() ([]byte, error) {
	var out candidateJSON
	switch c.Kind {
	case CandidateText:
		out.Text = &c.Text
	case CandidateConfirmation:
		out.Confirm = &c.Affirmed
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts {"text": ...}, {"confirm": ...}, {} or null.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var in candidateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("invalid candidate: %w", err)
	}
	switch {
	case in.Text != nil && in.Confirm != nil:
		return fmt.Errorf("invalid candidate: text and confirm are mutually exclusive")
	case in.Text != nil:
		*c = TextCandidate(*in.Text)
	case in.Confirm != nil:
		*c = ConfirmationCandidate(*in.Confirm)
	default:
		*c = AbsentCandidate()
	}
	return nil
}

// ParseConfirmation interprets a yes/no style answer.
// The second return value is false when the text is not recognised.
func ParseConfirmation(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "y", "yes", "true":
		return true, true
	case "n", "no", "false":
		return false, true
	}
	return false, false
}
