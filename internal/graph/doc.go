// Package graph provides a read-only query facade over a canvas snapshot.
//
// The store (topologystore) only knows about maps of nodes and edges. Hosts
// need relationship questions answered: which nodes hang off a fan-out
// source, whether a branch already has a preview child, which generation a
// node belongs to. View answers them
// from a single immutable snapshot, so every answer within one View is
// mutually consistent.
//
// Views are cheap to build and never mutate anything; writers keep going
// through topologystore.Store.Update.
package graph
