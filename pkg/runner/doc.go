/*
Package runner implements the interactive chat loop of the service desk.

The Runner reads lines through an IOHandler, turns commands into form starts
and every other line into a slot candidate, and renders the resulting
messages through a responses.Catalog.

	r := runner.NewRunner(manager,
		runner.WithSessionID("alice"),
		runner.WithRenderer(tui.NewRenderer()),
	)
	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}

Ctrl+C abandons the form in progress; a second Ctrl+C leaves the chat.
*/
package runner
