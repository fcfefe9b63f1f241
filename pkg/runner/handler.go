package runner

import "context"

// IOHandler defines how the chat loop talks to the user.
type IOHandler interface {
	// Output presents assistant messages, already rendered to text.
	Output(ctx context.Context, messages []string) error

	// Input reads one answer from the user.
	// It returns io.EOF when the input is exhausted.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (resumed session, cancelled form).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms message text before it is printed,
// e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)
