package schema

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Catalog indexes schema objects by id and object types by name.
// A catalog is immutable once built; the resolver only reads from it.
type Catalog struct {
	byID  map[uuid.UUID]Object
	types map[string]*ObjectType
}

// ByID returns the object with the given id.
func (c *Catalog) ByID(id uuid.UUID) (Object, bool) {
	o, ok := c.byID[id]
	return o, ok
}

// TypeByName returns the object type with the given name.
func (c *Catalog) TypeByName(name string) (*ObjectType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Types returns all object types sorted by name.
func (c *Catalog) Types() []*ObjectType {
	names := make([]string, 0, len(c.types))
	for n := range c.types {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*ObjectType, len(names))
	for i, n := range names {
		out[i] = c.types[n]
	}
	return out
}

// idNamespace seeds the ids of schema objects. Ids derive from qualified
// names, so storage relation names stay stable across loads of the same
// schema document.
var idNamespace = uuid.MustParse("9aa391be-7a4e-43dc-8d7c-5b6a2e1c0f44")

func deriveID(qualifiedName string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte(qualifiedName))
}

// Builder accumulates schema objects and produces a Catalog.
type Builder struct {
	catalog *Catalog
}

// NewBuilder returns an empty schema builder.
func NewBuilder() *Builder {
	return &Builder{catalog: &Catalog{
		byID:  make(map[uuid.UUID]Object),
		types: make(map[string]*ObjectType),
	}}
}

// AddType registers a new object type.
func (b *Builder) AddType(name string) (*ObjectType, error) {
	if _, exists := b.catalog.types[name]; exists {
		return nil, fmt.Errorf("object type %q already defined", name)
	}
	t := &ObjectType{id: deriveID(name), name: name}
	// every object type carries the implicit id property
	t.pointers = append(t.pointers, &Property{
		id:     deriveID(name + ".id"),
		name:   "id",
		source: t,
		typ:    "uuid",
		card:   One,
	})
	b.catalog.byID[t.id] = t
	b.catalog.types[name] = t
	return t, nil
}

// AddProperty attaches a scalar property to an object type.
func (b *Builder) AddProperty(t *ObjectType, name, typ string, card Cardinality) (*Property, error) {
	if _, dup := t.Pointer(name); dup {
		return nil, fmt.Errorf("pointer %q already defined on %q", name, t.name)
	}
	p := &Property{id: deriveID(t.name + "." + name), name: name, source: t, typ: typ, card: card}
	t.pointers = append(t.pointers, p)
	b.catalog.byID[p.id] = p
	return p, nil
}

// AddLink attaches a link to an object type.
func (b *Builder) AddLink(t *ObjectType, name string, target *ObjectType, card Cardinality) (*Link, error) {
	if _, dup := t.Pointer(name); dup {
		return nil, fmt.Errorf("pointer %q already defined on %q", name, t.name)
	}
	l := &Link{id: deriveID(t.name + "." + name), name: name, source: t, target: target, card: card}
	t.pointers = append(t.pointers, l)
	b.catalog.byID[l.id] = l
	return l, nil
}

// AddLinkProperty attaches a property to a link.
func (b *Builder) AddLinkProperty(l *Link, name, typ string) (*Property, error) {
	if _, dup := l.Property(name); dup {
		return nil, fmt.Errorf("property %q already defined on link %q", name, l.name)
	}
	p := &Property{
		id:     deriveID(l.source.name + "." + l.name + "@" + name),
		name:   name,
		source: l,
		typ:    typ,
		card:   One,
	}
	l.properties = append(l.properties, p)
	b.catalog.byID[p.id] = p
	return p, nil
}

// Build returns the finished catalog. The builder must not be reused.
func (b *Builder) Build() *Catalog {
	return b.catalog
}
