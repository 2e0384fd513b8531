package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/eqlast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

func markedCTE(name string, mut *compiler.IRMutating) *compiler.CTE {
	return &compiler.CTE{Name: name, ForDML: mut}
}

func cteNames(ctes []*compiler.CTE) []string {
	names := make([]string, len(ctes))
	for i, cte := range ctes {
		names[i] = cte.Name
	}
	return names
}

func TestTakeStmtCTEs(t *testing.T) {
	m1 := &compiler.IRMutating{}
	m2 := &compiler.IRMutating{}

	t.Run("dependencies_travel_with_the_group", func(t *testing.T) {
		ctes := []*compiler.CTE{
			markedCTE("dep1", nil),
			markedCTE("a1", m1),
			markedCTE("a2", m1),
			markedCTE("dep2", nil),
			markedCTE("b1", m2),
		}

		group, rest := takeStmtCTEs(ctes, m1)
		assert.Equal(t, []string{"dep1", "a1", "a2"}, cteNames(group))
		assert.Equal(t, []string{"dep2", "b1"}, cteNames(rest))

		group, rest = takeStmtCTEs(rest, m2)
		assert.Equal(t, []string{"dep2", "b1"}, cteNames(group))
		assert.Empty(t, rest)
	})

	t.Run("trailing_unmarked_ctes_are_left_over", func(t *testing.T) {
		ctes := []*compiler.CTE{
			markedCTE("a1", m1),
			markedCTE("trigger", nil),
		}
		group, rest := takeStmtCTEs(ctes, m1)
		assert.Equal(t, []string{"a1"}, cteNames(group))
		assert.Equal(t, []string{"trigger"}, cteNames(rest))
	})

	t.Run("no_match_leaves_input_untouched", func(t *testing.T) {
		ctes := []*compiler.CTE{markedCTE("a1", m1)}
		group, rest := takeStmtCTEs(ctes, m2)
		assert.Nil(t, group)
		require.Equal(t, ctes, rest)
	})

	t.Run("empty_input", func(t *testing.T) {
		group, rest := takeStmtCTEs(nil, m1)
		assert.Nil(t, group)
		assert.Nil(t, rest)
	})
}

// countingCompiler delegates to a real compiler while counting invocations.
type countingCompiler struct {
	inner compiler.Compiler
	toIR  int
	toSQL int
}

func (c *countingCompiler) CompileToIR(expr eqlast.Expr, opts compiler.Options) (*compiler.IR, error) {
	c.toIR++
	return c.inner.CompileToIR(expr, opts)
}

func (c *countingCompiler) CompileIRToSQL(ir *compiler.IR, externalRels []compiler.ExternalRel) (*compiler.SQLResult, error) {
	c.toSQL++
	return c.inner.CompileIRToSQL(ir, externalRels)
}

func TestBatchCompilesOnce(t *testing.T) {
	catalog, err := schema.Load([]byte(testSchema))
	require.NoError(t, err)
	comp := &countingCompiler{inner: compiler.NewNaive(catalog, nil)}
	r := New(catalog, comp, Options{})

	resolveOne(t, r,
		`WITH a AS (INSERT INTO "Movie" (title) VALUES ('x') RETURNING id),
		      b AS (INSERT INTO "Person" (name) VALUES ('y') RETURNING id),
		      c AS (INSERT INTO "Person" (name) VALUES ('z') RETURNING id)
		 SELECT a.id, b.id, c.id FROM a, b, c`)

	assert.Equal(t, 1, comp.toIR)
	assert.Equal(t, 1, comp.toSQL)
}
