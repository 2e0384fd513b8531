// Package compiler defines the object-query compiler boundary the resolver
// talks to: path identities, path-output maps, external relations, compile
// options and results, and a reference implementation used by the CLI and the
// tests.
package compiler

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// PathID identifies a position reached by a traversal through the object
// graph: an originating type, an optional chain of traversed pointers, and a
// namespace of scoping tags added when a binding is duplicated or detached.
//
// PathIDs are immutable values; every transformation returns a new one.
// Two PathIDs are equal iff their Key() strings are equal: same type lineage,
// same pointer traversal, same namespaces.
type PathID struct {
	prev     *PathID // source side of the last step, nil for a root
	typeID   uuid.UUID
	typeName string // for roots, the derived binding name
	ptrID    uuid.UUID
	ptrName  string
	isPtr    bool // pointer-flavored path (link properties hang off it)
	ns       string
}

// FromType constructs a root PathID for an object type under a derived
// binding name.
func FromType(t *schema.ObjectType, derivedName string) PathID {
	return PathID{typeID: t.ID(), typeName: derivedName}
}

// Extend appends one pointer-traversal step, producing the target-side path.
func (p PathID) Extend(ptr schema.Pointer) PathID {
	prev := p
	next := PathID{
		prev:    &prev,
		ptrID:   ptr.ID(),
		ptrName: ptr.Name(),
	}
	if tgt := ptr.Target(); tgt != nil {
		next.typeID = tgt.ID()
	}
	return next
}

// PtrPath returns the pointer-flavored variant of the path, from which link
// properties are traversed. Roots are returned unchanged.
func (p PathID) PtrPath() PathID {
	if p.prev == nil {
		return p
	}
	p.isPtr = true
	return p
}

// TgtPath returns the target-flavored variant of the path.
func (p PathID) TgtPath() PathID {
	p.isPtr = false
	return p
}

// Prefix drops the last traversal step. The second return is false for roots.
func (p PathID) Prefix() (PathID, bool) {
	if p.prev == nil {
		return p, false
	}
	return *p.prev, true
}

// RptrName returns the name of the terminal traversed pointer, or "" if the
// path has no traversal step.
func (p PathID) RptrName() string {
	return p.ptrName
}

// Namespace returns the path's own namespace tags, sorted.
func (p PathID) Namespace() []string {
	if p.ns == "" {
		return nil
	}
	return strings.Split(p.ns, ",")
}

// ReplaceNamespace returns a copy with the path's own namespace replaced.
func (p PathID) ReplaceNamespace(tags ...string) PathID {
	p.ns = canonicalNamespace(tags)
	return p
}

// ClearPrefixNamespace returns a copy whose immediate prefix (the pointer's
// source side) has an empty namespace. Roots are returned unchanged.
func (p PathID) ClearPrefixNamespace() PathID {
	if p.prev == nil {
		return p
	}
	prefix := p.prev.ReplaceNamespace()
	p.prev = &prefix
	return p
}

// Key returns the canonical identity string. Suitable as a map key.
func (p PathID) Key() string {
	var b strings.Builder
	p.writeKey(&b)
	return b.String()
}

func (p PathID) writeKey(b *strings.Builder) {
	if p.prev != nil {
		p.prev.writeKey(b)
		b.WriteString("->")
		b.WriteString(p.ptrName)
		b.WriteString(":")
		b.WriteString(p.ptrID.String())
		if p.isPtr {
			b.WriteString("@ptr")
		}
	} else {
		b.WriteString("(")
		b.WriteString(p.typeName)
		b.WriteString(":")
		b.WriteString(p.typeID.String())
		b.WriteString(")")
	}
	if p.ns != "" {
		b.WriteString("{")
		b.WriteString(p.ns)
		b.WriteString("}")
	}
}

func (p PathID) String() string { return p.Key() }

// ScopePath rewrites a path-output key into the namespace the compiler
// assigned to its statement: the path's own namespace is replaced, and the
// namespace of its one-step-shorter prefix (the pointer's source side) is
// cleared, because the compiler keys source-side paths without the
// per-statement namespace.
func ScopePath(p PathID, tags ...string) PathID {
	p = p.ReplaceNamespace(tags...)
	if p.RptrName() != "" {
		p = p.ClearPrefixNamespace()
	}
	return p
}

func canonicalNamespace(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

// Aspect tags which facet of a path's value an output column exposes.
type Aspect string

const (
	AspectIdentity   Aspect = "identity"
	AspectValue      Aspect = "value"
	AspectSerialized Aspect = "serialized"
	AspectIterator   Aspect = "iterator"
	AspectSource     Aspect = "source"
)
