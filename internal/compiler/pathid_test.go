package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

func testType(t *testing.T) (*schema.ObjectType, *schema.ObjectType) {
	t.Helper()
	b := schema.NewBuilder()
	movie, err := b.AddType("Movie")
	require.NoError(t, err)
	person, err := b.AddType("Person")
	require.NoError(t, err)
	_, err = b.AddProperty(movie, "title", "str", schema.One)
	require.NoError(t, err)
	link, err := b.AddLink(movie, "director", person, schema.One)
	require.NoError(t, err)
	_, err = b.AddLinkProperty(link, "credited_as", "str")
	require.NoError(t, err)
	b.Build()
	return movie, person
}

func TestPathIDKeyEquality(t *testing.T) {
	movie, _ := testType(t)
	title, _ := movie.Pointer("title")

	a := FromType(movie, "ins_val~1")
	b := FromType(movie, "ins_val~1")
	assert.Equal(t, a.Key(), b.Key())

	// the derived binding name is part of the identity
	c := FromType(movie, "ins_val~2")
	assert.NotEqual(t, a.Key(), c.Key())

	assert.Equal(t, a.Extend(title).Key(), b.Extend(title).Key())
	assert.NotEqual(t, a.Key(), a.Extend(title).Key())
}

func TestPathIDTraversal(t *testing.T) {
	movie, _ := testType(t)
	director, _ := movie.Pointer("director")
	link := director.(*schema.Link)
	creditedAs, _ := link.Property("credited_as")

	root := FromType(movie, "m")
	assert.Equal(t, "", root.RptrName())

	tgt := root.Extend(director)
	assert.Equal(t, "director", tgt.RptrName())

	prefix, ok := tgt.Prefix()
	require.True(t, ok)
	assert.Equal(t, root.Key(), prefix.Key())
	_, ok = root.Prefix()
	assert.False(t, ok)

	// pointer and target flavors are distinct identities
	ptr := tgt.PtrPath()
	assert.NotEqual(t, tgt.Key(), ptr.Key())
	assert.Equal(t, tgt.Key(), ptr.TgtPath().Key())

	// link properties hang off the pointer-flavored path
	prop := ptr.Extend(creditedAs)
	assert.Equal(t, "credited_as", prop.RptrName())
	propPrefix, ok := prop.Prefix()
	require.True(t, ok)
	assert.Equal(t, ptr.Key(), propPrefix.Key())
}

func TestPathIDNamespace(t *testing.T) {
	movie, _ := testType(t)
	root := FromType(movie, "m")

	assert.Nil(t, root.Namespace())

	tagged := root.ReplaceNamespace("ns~1")
	assert.Equal(t, []string{"ns~1"}, tagged.Namespace())
	assert.NotEqual(t, root.Key(), tagged.Key())

	// tags are canonicalised so order does not matter
	ab := root.ReplaceNamespace("b", "a")
	ba := root.ReplaceNamespace("a", "b")
	assert.Equal(t, ab.Key(), ba.Key())

	// replacing with nothing restores the untagged identity
	assert.Equal(t, root.Key(), tagged.ReplaceNamespace().Key())
}

func TestScopePath(t *testing.T) {
	movie, _ := testType(t)
	title, _ := movie.Pointer("title")
	root := FromType(movie, "m")

	t.Run("root", func(t *testing.T) {
		scoped := ScopePath(root, "ns~1")
		assert.Equal(t, root.ReplaceNamespace("ns~1").Key(), scoped.Key())
	})

	t.Run("extended_path_drops_prefix_namespace", func(t *testing.T) {
		// a pointer path whose source side carries a namespace is keyed
		// by the compiler without it
		taggedRoot := root.ReplaceNamespace("ns~1")
		p := taggedRoot.Extend(title)

		scoped := ScopePath(p, "ns~1")
		want := root.Extend(title).ReplaceNamespace("ns~1")
		assert.Equal(t, want.Key(), scoped.Key())
	})

	t.Run("agrees_for_both_constructions", func(t *testing.T) {
		// the same terminal path scoped from either the tagged or the
		// untagged source side yields one key
		taggedRoot := root.ReplaceNamespace("ns~1")
		a := ScopePath(taggedRoot.Extend(title), "ns~1")
		b := ScopePath(root.Extend(title), "ns~1")
		assert.Equal(t, a.Key(), b.Key())
	})
}

func TestRelationOutputs(t *testing.T) {
	movie, _ := testType(t)
	title, _ := movie.Pointer("title")
	root := FromType(movie, "m")

	rel := NewRelation("rel~1")
	rel.AddOutput(root, AspectIdentity, &pgast.ColumnRef{Column: "id"})
	rel.AddOutput(root.Extend(title), AspectValue, &pgast.ColumnRef{Column: "title"})

	got, ok := rel.Lookup(root, AspectIdentity)
	require.True(t, ok)
	assert.NotNil(t, got)

	_, ok = rel.Lookup(root, AspectSerialized)
	assert.False(t, ok)

	outs := rel.Outputs()
	require.Len(t, outs, 2)

	assert.Panics(t, func() {
		rel.AddOutput(root, AspectIdentity, &pgast.ColumnRef{Column: "id"})
	})
}
