package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

func resolveCopyStmt(t *testing.T, r *Resolver, sql string) *pgast.CopyStmt {
	t.Helper()
	resolved := resolveOne(t, r, sql)
	cp, ok := resolved.(*pgast.CopyStmt)
	require.True(t, ok, "expected COPY, got %T", resolved)
	return cp
}

func TestResolveCopy(t *testing.T) {
	t.Run("table_is_wrapped_in_a_select", func(t *testing.T) {
		r, catalog := newTestResolver(t, Options{})
		movie, _ := catalog.TypeByName("Movie")

		cp := resolveCopyStmt(t, r, `COPY "Movie" TO STDOUT`)
		assert.Nil(t, cp.Relation)
		assert.Empty(t, cp.ColNames)
		require.NotNil(t, cp.Query)

		sql := reparse(t, cp)
		assert.Contains(t, sql, `COPY (SELECT`)
		assert.Contains(t, sql, `"`+movie.ID().String()+`"`)
		assert.NotContains(t, sql, "__type__")
	})

	t.Run("column_list_narrows_the_projection", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		cp := resolveCopyStmt(t, r, `COPY "Movie" (title, director_id) TO STDOUT`)
		query := cp.Query.(*pgast.SelectStmt)
		require.Len(t, query.TargetList, 2)
		assert.Equal(t, "title", query.TargetList[0].Name)
		assert.Equal(t, "director_id", query.TargetList[1].Name)
		reparse(t, cp)
	})

	t.Run("options_and_target_pass_through", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		cp := resolveCopyStmt(t, r,
			`COPY "Movie" TO '/tmp/movies.csv' WITH (FORMAT csv, HEADER)`)
		assert.Equal(t, "/tmp/movies.csv", cp.Filename)
		require.Len(t, cp.Options, 2)
		assert.Equal(t, "format", cp.Options[0].Name)
		assert.Equal(t, "csv", cp.Options[0].Arg)
	})

	t.Run("query_form", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		cp := resolveCopyStmt(t, r, `COPY (SELECT title FROM "Movie") TO STDOUT`)
		sql := reparse(t, cp)
		assert.Contains(t, sql, `"Movie~1"."title"`)
	})

	t.Run("where_resolves_in_table_scope", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		cp := resolveCopyStmt(t, r, `COPY "Movie" FROM STDIN WHERE year > 1999`)
		assert.True(t, cp.IsFrom)
		require.NotNil(t, cp.Where)
		// the query form of COPY FROM is internal output and does not
		// round-trip through the parser
		sql := pgast.Format(cp)
		assert.Contains(t, sql, `"Movie~1"."year"`)
	})

	t.Run("unknown_column", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `COPY "Movie" (nope) TO STDOUT`)
		assert.Equal(t, CodeUndefinedColumn, qe.SQLState())
	})

	t.Run("unknown_table", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `COPY "Nope" TO STDOUT`)
		assert.Equal(t, CodeUndefinedTable, qe.SQLState())
	})

	t.Run("dml_under_copy_is_batched", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		cp := resolveCopyStmt(t, r,
			`COPY (WITH ins AS (INSERT INTO "Movie" (title) VALUES ('x') RETURNING id)
			       SELECT id FROM ins) TO STDOUT`)
		query := cp.Query.(*pgast.SelectStmt)
		// machinery plus the user binding, all attached to the COPY query
		require.NotEmpty(t, query.CTEs)
		assert.Equal(t, "ins", query.CTEs[len(query.CTEs)-1].Name)
		reparse(t, cp)
	})
}
