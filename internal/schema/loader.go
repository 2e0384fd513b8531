package schema

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SchemaDoc is the YAML document declaring an object-graph schema.
type SchemaDoc struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Types      []TypeSpec `yaml:"types"`
}

// TypeSpec declares a single object type.
type TypeSpec struct {
	Name       string     `yaml:"name"`
	Properties []PropSpec `yaml:"properties,omitempty"`
	Links      []LinkSpec `yaml:"links,omitempty"`
}

// PropSpec declares a scalar property.
type PropSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`                  // scalar type name, default "str"
	Cardinality string `yaml:"cardinality,omitempty"` // "single" (default) or "multi"
}

// LinkSpec declares a link, optionally with link properties.
type LinkSpec struct {
	Name        string     `yaml:"name"`
	Target      string     `yaml:"target"`
	Cardinality string     `yaml:"cardinality,omitempty"`
	Properties  []PropSpec `yaml:"properties,omitempty"`
}

// LoadFile reads a schema document from a YAML file and builds the catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema file: %w", err)
	}
	return Load(data)
}

// Load parses a schema document and builds the catalog. Links are resolved in
// a second pass so types may reference each other in any order.
func Load(data []byte) (*Catalog, error) {
	var doc SchemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse schema document: %w", err)
	}
	if doc.Kind != "" && doc.Kind != "Schema" {
		return nil, fmt.Errorf("unexpected document kind %q (want Schema)", doc.Kind)
	}

	b := NewBuilder()
	types := make(map[string]*ObjectType, len(doc.Types))

	for _, ts := range doc.Types {
		if ts.Name == "" {
			return nil, fmt.Errorf("object type with empty name")
		}
		t, err := b.AddType(ts.Name)
		if err != nil {
			return nil, err
		}
		types[ts.Name] = t
	}

	for _, ts := range doc.Types {
		t := types[ts.Name]
		for _, ps := range ts.Properties {
			card, err := parseCardinality(ps.Cardinality)
			if err != nil {
				return nil, fmt.Errorf("property %s.%s: %w", ts.Name, ps.Name, err)
			}
			typ := ps.Type
			if typ == "" {
				typ = "str"
			}
			if _, err := b.AddProperty(t, ps.Name, typ, card); err != nil {
				return nil, err
			}
		}
		for _, ls := range ts.Links {
			target, ok := types[ls.Target]
			if !ok {
				return nil, fmt.Errorf("link %s.%s: unknown target type %q", ts.Name, ls.Name, ls.Target)
			}
			card, err := parseCardinality(ls.Cardinality)
			if err != nil {
				return nil, fmt.Errorf("link %s.%s: %w", ts.Name, ls.Name, err)
			}
			l, err := b.AddLink(t, ls.Name, target, card)
			if err != nil {
				return nil, err
			}
			for _, ps := range ls.Properties {
				typ := ps.Type
				if typ == "" {
					typ = "str"
				}
				if _, err := b.AddLinkProperty(l, ps.Name, typ); err != nil {
					return nil, err
				}
			}
		}
	}

	cat := b.Build()
	slog.Debug("schema catalog loaded", "types", len(cat.types))
	return cat, nil
}

func parseCardinality(s string) (Cardinality, error) {
	switch s {
	case "", "single":
		return One, nil
	case "multi":
		return Many, nil
	default:
		return One, fmt.Errorf("invalid cardinality %q (want single or multi)", s)
	}
}
