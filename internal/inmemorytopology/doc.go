// Package inmemorytopology provides an ephemeral, thread-safe, in-memory
// implementation of the topologystore.Store interface.
//
// # Concurrency Model
//
// Writers are serialized by a dedicated write lock. Each Update works on a
// copy-on-write clone of the node and edge maps; published nodes are never
// mutated in place, so a snapshot handed to a reader stays valid after later
// writes. The current state is swapped under an RWMutex so readers always see
// either the state before or after an update, never a mix.
//
// Subscribers are notified while the write lock is still held, which keeps
// delivery in revision order.
//
// The store is created at session start and discarded at session end; it is
// not persistent.
package inmemorytopology
