// Package resolver rewrites public SQL over the object schema into SQL over
// the internal storage relations. Reads are rewritten table by table; INSERT
// and COPY are translated through synthetic object-query statements, batched
// into a single compiler invocation and spliced back as CTEs.
package resolver

import (
	"log/slog"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// Resolver turns public SQL statements into storage-level statements. It is
// stateless; each Resolve call runs on a fresh context, so a Resolver may be
// shared between goroutines.
type Resolver struct {
	catalog  *schema.Catalog
	compiler compiler.Compiler
	opts     Options
	log      *slog.Logger
}

// New returns a resolver over the given catalog and object-query compiler.
func New(catalog *schema.Catalog, comp compiler.Compiler, opts Options) *Resolver {
	return &Resolver{
		catalog:  catalog,
		compiler: comp,
		opts:     opts,
		log:      slog.Default(),
	}
}

// Resolve rewrites one top-level statement. The returned tree references
// only storage relations and carries every required CTE at its correct
// scope. On failure the input is untouched and no partial output is
// returned.
func (r *Resolver) Resolve(stmt pgast.Stmt) (pgast.Stmt, error) {
	c := NewContext(r.catalog, r.compiler, r.opts)

	if err := compileDML(c, stmt); err != nil {
		return nil, err
	}
	if n := len(c.compiledDML); n > 0 {
		r.log.Debug("compiled dml batch", "statements", n)
	}

	if copyStmt, ok := stmt.(*pgast.CopyStmt); ok {
		return c.resolveCopy(copyStmt)
	}

	resolved, _, err := c.resolveStmt(stmt)
	if err != nil {
		return nil, err
	}
	if sel, ok := resolved.(*pgast.SelectStmt); ok {
		sel.CTEs = append(c.drainCTEs(), sel.CTEs...)
	}
	return resolved, nil
}

// drainCTEs empties the hoist buffer, appending relations that belong to no
// single statement at the end.
func (c *Context) drainCTEs() []*pgast.CommonTableExpr {
	out := append(c.ctes, c.tailCTEs...)
	c.ctes = nil
	c.tailCTEs = nil
	return out
}
