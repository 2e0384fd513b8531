package resolver

import (
	"strconv"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// Options control resolution behavior.
type Options struct {
	// AllowUserSpecifiedID permits INSERTs that set the id column explicitly.
	AllowUserSpecifiedID bool
}

// Context carries the mutable state of a single resolution pass. It is not
// safe for concurrent use; resolve each query with a fresh Context.
type Context struct {
	catalog  *schema.Catalog
	compiler compiler.Compiler
	opts     Options

	scope *scope

	// ctes collects common table expressions hoisted to the top level of the
	// resolved statement, in dependency order.
	ctes []*pgast.CommonTableExpr

	// tailCTEs are compiled relations owned by no single DML statement;
	// they are appended after everything else.
	tailCTEs []*pgast.CommonTableExpr

	// subqueryDepth counts how deep below the top-level statement the
	// resolver currently is. DML is only legal at depth 0 and 1 (the
	// statement itself and its immediate WITH bindings).
	subqueryDepth int

	// compiledDML maps each preprocessed DML statement to its compiled form.
	// The batch compiler fills it; statement wiring consumes it.
	compiledDML map[*pgast.InsertStmt]*compiledDML

	aliasCounter int
}

// scope is the set of relations visible to column references at the current
// point of resolution.
type scope struct {
	tables []*Table
	ctes   []*pgast.CommonTableExpr
}

// NewContext returns a resolution context over the given catalog and
// object-query compiler.
func NewContext(catalog *schema.Catalog, comp compiler.Compiler, opts Options) *Context {
	return &Context{
		catalog:     catalog,
		compiler:    comp,
		opts:        opts,
		scope:       &scope{},
		compiledDML: map[*pgast.InsertStmt]*compiledDML{},
	}
}

// alias returns a new unique relation alias with the given prefix.
func (c *Context) alias(prefix string) string {
	c.aliasCounter++
	return prefix + "~" + strconv.Itoa(c.aliasCounter)
}

// childScope enters a scope that inherits nothing from the parent. The
// returned func restores the previous scope.
func (c *Context) childScope() func() {
	prev := c.scope
	c.scope = &scope{ctes: append([]*pgast.CommonTableExpr(nil), prev.ctes...)}
	return func() { c.scope = prev }
}

// subquery enters a nested query level. The returned func restores the
// previous depth.
func (c *Context) subquery() func() {
	c.subqueryDepth++
	return func() { c.subqueryDepth-- }
}

// addTable makes a resolved table visible to subsequent column references.
func (c *Context) addTable(t *Table) {
	c.scope.tables = append(c.scope.tables, t)
}

// addCTE registers a WITH binding as a resolvable relation in this scope.
func (c *Context) addCTE(cte *pgast.CommonTableExpr) {
	c.scope.ctes = append(c.scope.ctes, cte)
}

// hoistCTE appends a CTE to the buffer spliced into the top-level statement
// after resolution.
func (c *Context) hoistCTE(cte *pgast.CommonTableExpr) {
	c.ctes = append(c.ctes, cte)
}

// lookupScopeCTE finds a WITH binding visible under the given name.
func (c *Context) lookupScopeCTE(name string) (*pgast.CommonTableExpr, bool) {
	for i := len(c.scope.ctes) - 1; i >= 0; i-- {
		if c.scope.ctes[i].Name == name {
			return c.scope.ctes[i], true
		}
	}
	return nil, false
}
