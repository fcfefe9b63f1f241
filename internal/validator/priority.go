package validator

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// Priority accepts labels of the priority vocabulary, case-insensitively.
// The accepted value is the lower-cased label.
type Priority struct {
	Vocabulary domain.PriorityVocabulary
}

func (v *Priority) Validate(_ context.Context, _ string, candidate domain.Candidate, _ *domain.Session) domain.Verdict {
	label, _, ok := v.Vocabulary.Lookup(candidate.String())
	if candidate.Kind != domain.CandidateText || !ok {
		return domain.Reject(domain.Response(domain.ResponseNoPriority))
	}
	return domain.Accept(label, nil)
}
