// Package materialize maintains the derived shortcut triples that collapse
// multi-hop relationship chains into single-hop lookups.
//
// For every live edge instance of a tracked kind (a node typed with the
// kind's edge type, pointing at two objects through the fixed source and
// destination predicates) exactly one shortcut triple
// (source, shortcutPredicate, destination) exists in the graph store.
// Shortcut triples live only in the graph store, never in the relational
// store, and are created and retracted exclusively by this package, driven
// by the same insert/delete sets the engine commits.
//
// Known limitation: when an edge's source or destination property is
// reassigned in place (rather than the edge being deleted and recreated),
// the old shortcut goes stale until the next Repair or full rebuild. The
// consistency checker reports it in the meantime.
package materialize

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vital-ai/vital-graph/internal/rdf"
	"github.com/vital-ai/vital-graph/internal/vocab"
)

// EdgeKind describes one tracked relationship kind: the edge type that marks
// an instance, the two pointer predicates, and the shortcut predicate the
// kind materializes. Kinds form a small closed table; adding a kind means
// extending the table, never scattering new conditionals.
type EdgeKind struct {
	Name        string  `yaml:"name"`
	EdgeType    rdf.IRI `yaml:"edge_type"`
	Source      rdf.IRI `yaml:"source"`
	Destination rdf.IRI `yaml:"destination"`
	Shortcut    rdf.IRI `yaml:"shortcut"`
}

// Validate checks that every component of the kind is usable.
func (k EdgeKind) Validate() error {
	if k.Name == "" {
		return fmt.Errorf("edge kind has no name")
	}
	for _, iri := range []rdf.IRI{k.EdgeType, k.Source, k.Destination, k.Shortcut} {
		if err := rdf.ValidateIRI(iri); err != nil {
			return fmt.Errorf("edge kind %s: %w", k.Name, err)
		}
	}
	return nil
}

// DefaultKinds returns the built-in edge kind table: entity→frame,
// frame→frame, frame→slot.
func DefaultKinds() []EdgeKind {
	return []EdgeKind{
		{
			Name:        "entity-frame",
			EdgeType:    vocab.EdgeTypeEntityFrame,
			Source:      vocab.EdgeSource,
			Destination: vocab.EdgeDestination,
			Shortcut:    vocab.ShortcutEntityFrame,
		},
		{
			Name:        "child-frame",
			EdgeType:    vocab.EdgeTypeChildFrame,
			Source:      vocab.EdgeSource,
			Destination: vocab.EdgeDestination,
			Shortcut:    vocab.ShortcutChildFrame,
		},
		{
			Name:        "frame-slot",
			EdgeType:    vocab.EdgeTypeFrameSlot,
			Source:      vocab.EdgeSource,
			Destination: vocab.EdgeDestination,
			Shortcut:    vocab.ShortcutFrameSlot,
		},
	}
}

// Registry is the canonical, runtime-reloadable source of tracked edge kinds
// and shortcut predicates. Every read-path exclusion and every materialization
// decision sources from here; nothing else declares its own predicate lists.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	kinds  []EdgeKind
	byType map[rdf.IRI]EdgeKind
}

// NewRegistry creates a registry with the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{}
	r.replace(DefaultKinds())
	return r
}

func (r *Registry) replace(kinds []EdgeKind) {
	byType := make(map[rdf.IRI]EdgeKind, len(kinds))
	for _, k := range kinds {
		byType[k.EdgeType] = k
	}
	r.mu.Lock()
	r.kinds = kinds
	r.byType = byType
	r.mu.Unlock()
}

// Kinds returns a snapshot of the kind table.
func (r *Registry) Kinds() []EdgeKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]EdgeKind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// KindForType looks up the kind tracking the given edge type IRI.
func (r *Registry) KindForType(edgeType rdf.IRI) (EdgeKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byType[edgeType]
	return k, ok
}

// ShortcutPredicates returns the canonical shortcut predicate list, in table
// order. This is the single source for the read-path exclusion filter and
// for the engine's materialized-predicate guard.
func (r *Registry) ShortcutPredicates() []rdf.IRI {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]rdf.IRI, len(r.kinds))
	for i, k := range r.kinds {
		out[i] = k.Shortcut
	}
	return out
}

// IsShortcut reports whether the predicate is a tracked shortcut predicate.
func (r *Registry) IsShortcut(pred rdf.IRI) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range r.kinds {
		if k.Shortcut == pred {
			return true
		}
	}
	return false
}

// registryFile is the YAML shape of an edge kind configuration file.
type registryFile struct {
	EdgeKinds []EdgeKind `yaml:"edge_kinds"`
}

// LoadFile replaces the kind table from a YAML configuration file. The file
// must define at least one valid kind; on any error the current table is
// left unchanged, so a bad reload never wipes the registry.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read edge registry: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse edge registry: %w", err)
	}
	if len(file.EdgeKinds) == 0 {
		return fmt.Errorf("edge registry %s defines no kinds", path)
	}
	for _, k := range file.EdgeKinds {
		if err := k.Validate(); err != nil {
			return fmt.Errorf("edge registry %s: %w", path, err)
		}
	}
	r.replace(file.EdgeKinds)
	return nil
}
