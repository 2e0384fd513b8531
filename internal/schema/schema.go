// Package schema models the object-graph schema the resolver maps SQL onto:
// object types with pointers (links to other object types, properties with
// scalar targets), and the catalog that indexes them by id and name.
package schema

import (
	"github.com/google/uuid"
)

// Cardinality is the upper cardinality of a pointer.
type Cardinality int

const (
	One Cardinality = iota
	Many
)

// Object is anything addressable in the catalog: an object type, a link or
// a property.
type Object interface {
	ID() uuid.UUID
	Name() string
}

// Pointer is a link or a property: a named, directed edge from its source
// (an object type, or a link in the case of link properties).
type Pointer interface {
	Object
	Source() Object
	// Target returns the target object type for links, nil for properties.
	Target() *ObjectType
	Cardinality() Cardinality
}

// ObjectType is the graph-schema equivalent of a table.
type ObjectType struct {
	id       uuid.UUID
	name     string
	pointers []Pointer
}

func (t *ObjectType) ID() uuid.UUID { return t.id }
func (t *ObjectType) Name() string  { return t.name }

// Pointers returns the type's pointers in declaration order.
func (t *ObjectType) Pointers() []Pointer { return t.pointers }

// Pointer looks up a pointer by name.
func (t *ObjectType) Pointer(name string) (Pointer, bool) {
	for _, p := range t.pointers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// Link is a pointer to another object type, optionally carrying link
// properties.
type Link struct {
	id         uuid.UUID
	name       string
	source     *ObjectType
	target     *ObjectType
	card       Cardinality
	properties []*Property
}

func (l *Link) ID() uuid.UUID            { return l.id }
func (l *Link) Name() string             { return l.name }
func (l *Link) Source() Object           { return l.source }
func (l *Link) Target() *ObjectType      { return l.target }
func (l *Link) Cardinality() Cardinality { return l.card }

// Properties returns the link's properties in declaration order.
func (l *Link) Properties() []*Property { return l.properties }

// Property looks up a link property by name.
func (l *Link) Property(name string) (*Property, bool) {
	for _, p := range l.properties {
		if p.name == name {
			return p, true
		}
	}
	return nil, false
}

// Property is a pointer with a scalar target. Its source is an object type,
// or a link for link properties.
type Property struct {
	id     uuid.UUID
	name   string
	source Object
	typ    string // scalar type name, e.g. "str", "int64"
	card   Cardinality
}

func (p *Property) ID() uuid.UUID            { return p.id }
func (p *Property) Name() string             { return p.name }
func (p *Property) Source() Object           { return p.source }
func (p *Property) Target() *ObjectType      { return nil }
func (p *Property) Cardinality() Cardinality { return p.card }

// ScalarType returns the name of the property's scalar target type.
func (p *Property) ScalarType() string { return p.typ }
