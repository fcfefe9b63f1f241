package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/servicedesk"
	"github.com/aretw0/servicedesk/internal/presentation/tui"
	"github.com/aretw0/servicedesk/pkg/runner"
	"golang.org/x/term"
)

// ChatOptions configures an interactive chat.
type ChatOptions struct {
	SessionID string
	// Fresh deletes the session before starting.
	Fresh bool
	// Plain disables the banner and markdown rendering.
	Plain bool
	In    io.Reader
	Out   io.Writer
}

// RunChat runs the chat loop on stack until the user leaves.
// Rich output is only used when Out is a terminal.
func RunChat(ctx context.Context, stack *Stack, opts ChatOptions) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.SessionID == "" {
		opts.SessionID = runner.DefaultSessionID
	}

	if opts.Fresh {
		if err := stack.Sessions.Delete(ctx, opts.SessionID); err != nil {
			stack.Logger.WarnContext(ctx, "failed to reset session", "session_id", opts.SessionID, "error", err)
		}
	}

	var handlerOpts []runner.TextHandlerOption
	if !opts.Plain && isTerminal(opts.Out) {
		tui.PrintBanner(opts.Out, servicedesk.Version)
		handlerOpts = append(handlerOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
	}

	r := runner.NewRunner(stack.Sessions,
		runner.WithSessionID(opts.SessionID),
		runner.WithCatalog(stack.Catalog),
		runner.WithLogger(stack.Logger),
		runner.WithInputHandler(runner.NewTextHandler(opts.In, opts.Out, handlerOpts...)),
	)
	return r.Run(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
