/*
Package session hosts conversations on top of the stateless coordinator.

The Manager loads the session snapshot, runs one turn, applies the returned
events and saves the result. Turns of one session are serialised with a
ref-counted in-process mutex and, across replicas, an optional distributed
lock; turns of different sessions run in parallel.
*/
package session
