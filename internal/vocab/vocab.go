// Package vocab defines the fixed vocabulary the core treats specially.
//
// Everything outside this vocabulary is opaque to the engine: domain objects
// carry whatever predicates they like, and the core only interprets the type
// marker, the identity marker, the edge source/destination pointers, and the
// shortcut predicates derived by materialization.
package vocab

import "github.com/vital-ai/vital-graph/internal/rdf"

// Core namespace for the built-in vocabulary.
const NS = "http://vital.ai/ontology/vital-core#"

// Markers that define node identity. A node counts as deleted only when both
// are removed in the same delete set; removing some other property is just an
// update.
const (
	// TypeMarker is the rdf:type predicate marking a node's class.
	TypeMarker rdf.IRI = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// IdentityMarker carries a node's own URI as a property, present on
	// every live node.
	IdentityMarker rdf.IRI = NS + "hasURIProp"
)

// Edge pointer predicates. An edge instance is a dedicated node that points
// at the two objects it relates through exactly these two predicates.
const (
	EdgeSource      rdf.IRI = NS + "hasEdgeSource"
	EdgeDestination rdf.IRI = NS + "hasEdgeDestination"
)

// Edge type IRIs for the tracked relationship kinds.
const (
	EdgeTypeEntityFrame rdf.IRI = NS + "Edge_hasEntityFrame" // entity -> frame
	EdgeTypeChildFrame  rdf.IRI = NS + "Edge_hasChildFrame"  // frame -> frame
	EdgeTypeFrameSlot   rdf.IRI = NS + "Edge_hasSlot"        // frame -> slot
)

// Shortcut predicates derived by materialization, one per tracked edge kind.
// These exist only in the graph store, never in the relational store.
const (
	ShortcutEntityFrame rdf.IRI = NS + "hasEntityFrame"
	ShortcutChildFrame  rdf.IRI = NS + "hasChildFrame"
	ShortcutFrameSlot   rdf.IRI = NS + "hasSlot"
)

// DefaultShortcutPredicates returns the built-in shortcut predicate list.
// The materialization registry is the runtime source of truth (it may be
// extended from configuration); this is its default content.
func DefaultShortcutPredicates() []rdf.IRI {
	return []rdf.IRI{ShortcutEntityFrame, ShortcutChildFrame, ShortcutFrameSlot}
}
