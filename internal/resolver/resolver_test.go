package resolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/pgparse"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

const testSchema = `
types:
  - name: Movie
    properties:
      - name: title
      - name: year
        type: int64
      - name: tags
        cardinality: multi
    links:
      - name: director
        target: Person
      - name: actors
        target: Person
        cardinality: multi
        properties:
          - name: role
  - name: Person
    properties:
      - name: name
`

func newTestResolver(t *testing.T, opts Options) (*Resolver, *schema.Catalog) {
	t.Helper()
	catalog, err := schema.Load([]byte(testSchema))
	require.NoError(t, err)
	return New(catalog, compiler.NewNaive(catalog, nil), opts), catalog
}

func resolveOne(t *testing.T, r *Resolver, sql string) pgast.Stmt {
	t.Helper()
	stmt, err := pgparse.ParseOne(sql)
	require.NoError(t, err)
	resolved, err := r.Resolve(stmt)
	require.NoError(t, err)
	return resolved
}

func resolveErr(t *testing.T, r *Resolver, sql string) *QueryError {
	t.Helper()
	stmt, err := pgparse.ParseOne(sql)
	require.NoError(t, err)
	_, err = r.Resolve(stmt)
	require.Error(t, err)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	return qe
}

// reparse checks the resolved statement formats to parseable SQL.
func reparse(t *testing.T, stmt pgast.Stmt) string {
	t.Helper()
	sql := pgast.Format(stmt)
	_, err := pgparse.ParseOne(sql)
	require.NoError(t, err, "resolved SQL does not parse: %s", sql)
	return sql
}

func TestResolveSelect(t *testing.T) {
	r, catalog := newTestResolver(t, Options{})
	movie, _ := catalog.TypeByName("Movie")

	t.Run("table_is_rewritten_to_storage", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r, `SELECT title FROM "Movie"`))
		assert.Contains(t, sql, `FROM "`+movie.ID().String()+`" AS "Movie~1"`)
		assert.Contains(t, sql, `"Movie~1"."title"`)
	})

	t.Run("link_column_reads_stored_pointer", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r, `SELECT director_id FROM "Movie"`))
		assert.Contains(t, sql, `"Movie~1"."director" AS "director_id"`)
	})

	t.Run("star_expansion_hides_type_column", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r, `SELECT * FROM "Movie"`))
		assert.NotContains(t, sql, "__type__")
		assert.Contains(t, sql, `"id"`)
		assert.Contains(t, sql, `"director_id"`)
		assert.NotContains(t, sql, `"tags"`)
	})

	t.Run("user_alias_matches_but_storage_alias_qualifies", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r, `SELECT m.title FROM "Movie" AS m`))
		assert.Contains(t, sql, `AS "Movie~1"`)
		assert.Contains(t, sql, `"Movie~1"."title"`)
		assert.NotContains(t, sql, `"m"."title"`)
	})

	t.Run("pointer_table", func(t *testing.T) {
		actors, _ := movie.Pointer("actors")
		sql := reparse(t, resolveOne(t, r, `SELECT source, target, role FROM "Movie.actors"`))
		assert.Contains(t, sql, `FROM "`+actors.ID().String()+`"`)
		assert.Contains(t, sql, `"source"`)
		assert.Contains(t, sql, `"role"`)
	})

	t.Run("multi_property_table", func(t *testing.T) {
		tags, _ := movie.Pointer("tags")
		sql := reparse(t, resolveOne(t, r, `SELECT target FROM "Movie.tags"`))
		assert.Contains(t, sql, `FROM "`+tags.ID().String()+`"`)
	})

	t.Run("join_and_subquery", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r,
			`SELECT m.title, p.name FROM "Movie" AS m JOIN "Person" AS p ON m.director_id = p.id`))
		assert.Contains(t, sql, "INNER JOIN")
		assert.Contains(t, sql, `"Movie~1"."director"`)
	})

	t.Run("with_binding", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r,
			`WITH recent AS (SELECT title FROM "Movie") SELECT * FROM recent`))
		assert.True(t, strings.HasPrefix(sql, `WITH "recent" AS (`), sql)
	})

	t.Run("hidden_type_column_is_addressable", func(t *testing.T) {
		sql := reparse(t, resolveOne(t, r, `SELECT __type__ FROM "Movie"`))
		assert.Contains(t, sql, "::uuid")
	})
}

func TestResolveSelectErrors(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	t.Run("unknown_table", func(t *testing.T) {
		qe := resolveErr(t, r, `SELECT 1 FROM "Nope"`)
		assert.Equal(t, CodeUndefinedTable, qe.SQLState())
		assert.Contains(t, qe.Msg, `relation "Nope" does not exist`)
	})

	t.Run("unknown_pointer_table", func(t *testing.T) {
		qe := resolveErr(t, r, `SELECT 1 FROM "Movie.nope"`)
		assert.Equal(t, CodeUndefinedTable, qe.SQLState())
	})

	t.Run("single_property_is_not_a_table", func(t *testing.T) {
		qe := resolveErr(t, r, `SELECT 1 FROM "Movie.title"`)
		assert.Equal(t, CodeUndefinedTable, qe.SQLState())
	})

	t.Run("unknown_column", func(t *testing.T) {
		qe := resolveErr(t, r, `SELECT nope FROM "Movie"`)
		assert.Equal(t, CodeUndefinedColumn, qe.SQLState())
		assert.Contains(t, qe.Msg, `column "nope" does not exist`)
	})

	t.Run("ambiguous_column", func(t *testing.T) {
		qe := resolveErr(t, r, `SELECT id FROM "Movie", "Person"`)
		assert.Equal(t, CodeUndefinedColumn, qe.SQLState())
		assert.Contains(t, qe.Msg, "ambiguous")
	})

	t.Run("unknown_schema", func(t *testing.T) {
		qe := resolveErr(t, r, `SELECT 1 FROM other."Movie"`)
		assert.Contains(t, qe.Msg, `unknown schema "other"`)
	})
}

func TestResolveUpdateDelete(t *testing.T) {
	r, _ := newTestResolver(t, Options{})

	qe := resolveErr(t, r, `UPDATE "Movie" SET title = 'x'`)
	assert.Equal(t, "UPDATE is not supported", qe.Msg)
	assert.Equal(t, CodeFeatureNotSupported, qe.SQLState())

	qe = resolveErr(t, r, `DELETE FROM "Movie"`)
	assert.Equal(t, "DELETE is not supported", qe.Msg)
}

func TestResolveInsert(t *testing.T) {
	t.Run("single_row_count_projection", func(t *testing.T) {
		r, catalog := newTestResolver(t, Options{})
		movie, _ := catalog.TypeByName("Movie")

		resolved := resolveOne(t, r, `INSERT INTO "Movie" (title, year) VALUES ('Alien', 1979)`)
		sel, ok := resolved.(*pgast.SelectStmt)
		require.True(t, ok)
		// value CTE, insert CTE, output CTE
		require.Len(t, sel.CTEs, 3)

		sql := reparse(t, resolved)
		assert.Contains(t, sql, `"count"(*)`)
		assert.Contains(t, sql, `INSERT INTO "`+movie.ID().String()+`"`)
		assert.Contains(t, sql, `"edgerel"."uuid_generate_v4"()`)
		assert.Contains(t, sql, `WITH "ins_val~1" AS (`)
	})

	t.Run("multi_row", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		sql := reparse(t, resolveOne(t, r,
			`INSERT INTO "Movie" (title) VALUES ('Alien'), ('Aliens')`))
		assert.Contains(t, sql, `VALUES ('Alien'), ('Aliens')`)
		assert.Contains(t, sql, `"count"(*)`)
	})

	t.Run("returning", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		resolved := resolveOne(t, r,
			`INSERT INTO "Movie" (title) VALUES ('Alien') RETURNING id, title`)
		sel := resolved.(*pgast.SelectStmt)
		require.Len(t, sel.TargetList, 2)
		assert.Equal(t, "id", sel.TargetList[0].Name)
		assert.Equal(t, "title", sel.TargetList[1].Name)
		reparse(t, resolved)
	})

	t.Run("returning_star", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		resolved := resolveOne(t, r,
			`INSERT INTO "Movie" (title) VALUES ('Alien') RETURNING *`)
		sel := resolved.(*pgast.SelectStmt)
		var names []string
		for _, rt := range sel.TargetList {
			names = append(names, rt.Name)
		}
		assert.Equal(t, []string{"id", "director_id", "title", "year"}, names)
		reparse(t, resolved)
	})

	t.Run("insert_from_select", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		sql := reparse(t, resolveOne(t, r,
			`INSERT INTO "Person" (name) SELECT title FROM "Movie"`))
		assert.Contains(t, sql, `"Movie~`)
	})

	t.Run("default_values", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		sql := reparse(t, resolveOne(t, r, `INSERT INTO "Person" DEFAULT VALUES`))
		assert.Contains(t, sql, `VALUES (NULL)`)
		assert.Contains(t, sql, `"count"(*)`)
	})

	t.Run("per_column_default_elimination", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		sql := reparse(t, resolveOne(t, r,
			`INSERT INTO "Movie" (title, year) VALUES ('a', DEFAULT), ('b', DEFAULT)`))
		assert.NotContains(t, sql, "DEFAULT")
		assert.NotContains(t, sql, `"year"`)
	})

	t.Run("link_column_is_cast_to_uuid", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		sql := reparse(t, resolveOne(t, r,
			`INSERT INTO "Movie" (title, director_id) VALUES ('Alien', 'b2d9...'::uuid)`))
		assert.Contains(t, sql, `::uuid`)
	})

	t.Run("with_value_binding", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		sql := reparse(t, resolveOne(t, r,
			`WITH names AS (SELECT name FROM "Person") INSERT INTO "Person" (name) SELECT name FROM names`))
		assert.Contains(t, sql, `"names" AS (`)
	})
}

func TestResolveInsertErrors(t *testing.T) {
	t.Run("id_assignment_guard", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r,
			`INSERT INTO "Movie" (id, title) VALUES ('x'::uuid, 'Alien')`)
		assert.Contains(t, qe.Msg, "cannot assign to property 'id'")
		assert.Contains(t, qe.Msg, "allow_user_specified_id")
	})

	t.Run("id_assignment_allowed_when_configured", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{AllowUserSpecifiedID: true})
		stmt, err := pgparse.ParseOne(
			`INSERT INTO "Movie" (id, title) VALUES ('x'::uuid, 'Alien')`)
		require.NoError(t, err)
		_, err = r.Resolve(stmt)
		require.NoError(t, err)
	})

	t.Run("unknown_column", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `INSERT INTO "Movie" (nope) VALUES (1)`)
		assert.Equal(t, CodeUndefinedColumn, qe.SQLState())
		assert.Contains(t, qe.Msg, `column "nope" of relation "Movie" does not exist`)
	})

	t.Run("duplicate_column", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `INSERT INTO "Movie" (title, title) VALUES ('a', 'b')`)
		assert.Contains(t, qe.Msg, `column "title" specified more than once`)
	})

	t.Run("column_count_mismatch", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `INSERT INTO "Movie" (title, year) VALUES ('a')`)
		assert.Contains(t, qe.Msg, "INSERT expected 2 columns, but got 1 (expecting title, year)")
	})

	t.Run("unknown_table", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `INSERT INTO "Nope" (x) VALUES (1)`)
		assert.Equal(t, CodeUndefinedTable, qe.SQLState())
	})
}

func TestResolveLinkTableInsert(t *testing.T) {
	t.Run("link_with_property", func(t *testing.T) {
		r, catalog := newTestResolver(t, Options{})
		movie, _ := catalog.TypeByName("Movie")
		actors, _ := movie.Pointer("actors")

		sql := reparse(t, resolveOne(t, r,
			`INSERT INTO "Movie.actors" (source, target, role)
			 VALUES ('a'::uuid, 'b'::uuid, 'Ripley')`))
		assert.Contains(t, sql, `INSERT INTO "`+actors.ID().String()+`"`)
		assert.Contains(t, sql, `"source"`)
		assert.Contains(t, sql, `"role"`)
	})

	t.Run("multi_property", func(t *testing.T) {
		r, catalog := newTestResolver(t, Options{})
		movie, _ := catalog.TypeByName("Movie")
		tags, _ := movie.Pointer("tags")

		sql := reparse(t, resolveOne(t, r,
			`INSERT INTO "Movie.tags" (source, target) VALUES ('a'::uuid, 'scifi')`))
		assert.Contains(t, sql, `INSERT INTO "`+tags.ID().String()+`"`)
	})

	t.Run("missing_required_column", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r, `INSERT INTO "Movie.actors" (source) VALUES ('a'::uuid)`)
		assert.Contains(t, qe.Msg, `column "target" is required when inserting into "Movie.actors"`)
	})

	t.Run("unknown_link_property", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r,
			`INSERT INTO "Movie.actors" (source, target, nope) VALUES ('a'::uuid, 'b'::uuid, 1)`)
		assert.Equal(t, CodeUndefinedColumn, qe.SQLState())
	})

	t.Run("returning_link_property", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		resolved := resolveOne(t, r,
			`INSERT INTO "Movie.actors" (source, target, role)
			 VALUES ('a'::uuid, 'b'::uuid, 'Ripley') RETURNING source, role`)
		sel := resolved.(*pgast.SelectStmt)
		require.Len(t, sel.TargetList, 2)
		assert.Equal(t, "source", sel.TargetList[0].Name)
		assert.Equal(t, "role", sel.TargetList[1].Name)
		reparse(t, resolved)
	})
}

func TestResolveDMLPlacement(t *testing.T) {
	t.Run("insert_in_with_binding", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		resolved := resolveOne(t, r,
			`WITH ins AS (INSERT INTO "Movie" (title) VALUES ('Alien') RETURNING id)
			 SELECT id FROM ins`)
		sel := resolved.(*pgast.SelectStmt)

		var names []string
		for _, cte := range sel.CTEs {
			names = append(names, cte.Name)
		}
		// the user binding comes after the machinery feeding it
		require.NotEmpty(t, names)
		assert.Equal(t, "ins", names[len(names)-1])
		assert.Contains(t, names, "ins_val~1")
		reparse(t, resolved)
	})

	t.Run("insert_with_its_own_with_binding", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		resolved := resolveOne(t, r,
			`WITH ins AS (WITH vals AS (SELECT 'Alien' AS title)
			              INSERT INTO "Movie" (title) SELECT title FROM vals RETURNING id)
			 SELECT id FROM ins`)
		sel := resolved.(*pgast.SelectStmt)

		var names []string
		for _, cte := range sel.CTEs {
			names = append(names, cte.Name)
		}
		// the statement's own binding is declared at the top level, ahead of
		// the value relation reading from it
		require.NotEmpty(t, names)
		assert.Equal(t, "vals", names[0])
		assert.Contains(t, names, "ins_val~1")
		assert.Equal(t, "ins", names[len(names)-1])
		sql := reparse(t, resolved)
		assert.Contains(t, sql, `"vals" AS (`)
		assert.Contains(t, sql, `FROM "vals"`)
	})

	t.Run("two_inserts_one_batch", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		resolved := resolveOne(t, r,
			`WITH a AS (INSERT INTO "Movie" (title) VALUES ('x') RETURNING id),
			      b AS (INSERT INTO "Person" (name) VALUES ('y') RETURNING id)
			 SELECT a.id, b.id FROM a, b`)
		sel := resolved.(*pgast.SelectStmt)
		// two value CTEs, two insert/output pairs, two user bindings
		assert.Len(t, sel.CTEs, 8)
		reparse(t, resolved)
	})

	t.Run("nested_dml_is_rejected", func(t *testing.T) {
		r, _ := newTestResolver(t, Options{})
		qe := resolveErr(t, r,
			`WITH a AS (WITH b AS (INSERT INTO "Movie" (title) VALUES ('x') RETURNING id)
			            SELECT * FROM b)
			 SELECT * FROM a`)
		assert.Contains(t, qe.Msg,
			"WITH clause containing a data-modifying statement must be at the top level")
	})
}
