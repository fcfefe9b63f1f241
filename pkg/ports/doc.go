/*
Package ports defines the driven ports (interfaces) of the servicedesk action layer.

These interfaces decouple the coordinator from its collaborators, so the ticketing
backend, the record store and the session store can be swapped for test doubles
or other implementations.

# Key Interfaces

  - TicketClient: issues calls to the ITSM backend (user lookup, incidents).
  - RecordStore: append-only document store for link and feedback records.
  - SessionStore: persists the slot snapshot of each conversation.
  - DistributedLocker: serialises turns of one session across replicas.
  - EventPublisher: streams form outcomes to downstream consumers.
  - ActionDispatcher: runs the terminal action of a completed form.
  - Coordinator: the stateless turn processor driven by the adapters.
*/
package ports
