/*
Package domain contains the core domain models of the servicedesk action layer.

It defines the entities exchanged between the dialogue collaborator and the
coordinator: the per-conversation Session, the slot Candidates received on each
turn, the Verdicts produced by slot validators, and the Events and Messages a turn
emits. This package is kept pure and free of I/O, following Hexagonal
Architecture principles.

# Key Entities

  - Session: the slot snapshot of one conversation, including the carry-over email.
  - Candidate: the raw value offered for the requested slot (text, yes/no, or absent).
  - Verdict: the outcome of validating a Candidate (accepted, rejected, cleared).
  - Event: a state-mutation instruction for the session store (SetSlot, ClearAllSlots...).
  - Message: a user-facing reply, either literal text or a canned response id.
*/
package domain
