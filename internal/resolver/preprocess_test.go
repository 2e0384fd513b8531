package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/eqlast"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/pgparse"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

func preprocessSQL(t *testing.T, sql string) *dmlPlan {
	t.Helper()
	catalog, err := schema.Load([]byte(testSchema))
	require.NoError(t, err)
	c := NewContext(catalog, compiler.NewNaive(catalog, nil), Options{})
	stmt, err := pgparse.ParseOne(sql)
	require.NoError(t, err)
	ins, ok := stmt.(*pgast.InsertStmt)
	require.True(t, ok, "expected INSERT, got %T", stmt)
	plan, err := c.preprocessInsert(ins)
	require.NoError(t, err)
	return plan
}

func TestPreprocessIterationWrapping(t *testing.T) {
	t.Run("single_values_row_skips_the_iterator", func(t *testing.T) {
		plan := preprocessSQL(t, `INSERT INTO "Movie" (title) VALUES ('Alien')`)
		assert.True(t, plan.singleRow)
		assert.IsType(t, &eqlast.InsertQuery{}, plan.eqlStmt)
	})

	t.Run("two_values_rows_iterate", func(t *testing.T) {
		plan := preprocessSQL(t, `INSERT INTO "Movie" (title) VALUES ('Alien'), ('Aliens')`)
		assert.False(t, plan.singleRow)
		loop, ok := plan.eqlStmt.(*eqlast.ForQuery)
		require.True(t, ok, "expected iteration, got %T", plan.eqlStmt)
		assert.Equal(t, plan.iteratorCol, loop.IteratorAlias)
		assert.IsType(t, &eqlast.InsertQuery{}, loop.Result)
	})

	t.Run("select_with_limit_one_skips_the_iterator", func(t *testing.T) {
		plan := preprocessSQL(t,
			`INSERT INTO "Movie" (title) SELECT name FROM "Person" LIMIT 1`)
		assert.True(t, plan.singleRow)
		assert.IsType(t, &eqlast.InsertQuery{}, plan.eqlStmt)
	})

	t.Run("unbounded_select_iterates", func(t *testing.T) {
		plan := preprocessSQL(t,
			`INSERT INTO "Movie" (title) SELECT name FROM "Person"`)
		assert.False(t, plan.singleRow)
		assert.IsType(t, &eqlast.ForQuery{}, plan.eqlStmt)
	})

	t.Run("pointer_table_single_row_skips_the_iterator", func(t *testing.T) {
		plan := preprocessSQL(t,
			`INSERT INTO "Movie.actors" (source, target) VALUES ('a', 'b')`)
		assert.True(t, plan.singleRow)
		assert.IsType(t, &eqlast.UpdateQuery{}, plan.eqlStmt)
	})

	t.Run("pointer_table_two_rows_iterate", func(t *testing.T) {
		plan := preprocessSQL(t,
			`INSERT INTO "Movie.actors" (source, target) VALUES ('a', 'b'), ('a', 'c')`)
		loop, ok := plan.eqlStmt.(*eqlast.ForQuery)
		require.True(t, ok, "expected iteration, got %T", plan.eqlStmt)
		assert.IsType(t, &eqlast.UpdateQuery{}, loop.Result)
	})
}
