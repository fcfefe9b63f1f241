/*
Package servicedesk is the action layer behind a help-desk chat assistant.

A dialogue collaborator (an NLU/dialogue engine, the chat CLI, or the HTTP and
MCP adapters) calls the Engine once per user turn with the form being filled,
the slot it asked for, the raw candidate value and the session's current
slots. The Engine validates the candidate, decides what to ask next and, once
every slot of the form is filled, runs exactly one terminal action: opening an
incident, checking incident status, or saving feedback.

The Engine keeps no session state between turns. It returns state mutations
(events) and user-facing messages; the host applies the events to its own
session store. pkg/session provides such a host.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/servicedesk"
		"github.com/aretw0/servicedesk/pkg/domain"
	)

	func main() {
		// No ticket client: local mode, the backend is simulated.
		eng := servicedesk.New()

		ctx := context.Background()
		res, err := eng.Turn(ctx, domain.TurnRequest{
			SessionID:     "session-123",
			Form:          domain.FormIncidentStatus,
			RequestedSlot: domain.SlotEmail,
			Candidate:     domain.TextCandidate("a@b.com"),
			Slots:         map[string]any{},
		})
		if err != nil {
			log.Fatal(err)
		}

		for _, msg := range res.Messages {
			fmt.Println(msg.Text)
		}
	}
*/
package servicedesk
