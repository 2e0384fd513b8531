package resolver

import (
	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// resolveCopy rewrites a COPY statement. Table targets are always wrapped in
// a SELECT, since the logical table is a view and views cannot be copied by
// name. COPY is always top-level, so buffered CTEs attach to the produced
// query here.
func (c *Context) resolveCopy(stmt *pgast.CopyStmt) (*pgast.CopyStmt, error) {
	restore := c.childScope()
	defer restore()

	var query *pgast.SelectStmt

	switch {
	case stmt.Query != nil:
		resolved, _, err := c.resolveStmt(stmt.Query)
		if err != nil {
			return nil, err
		}
		sel, ok := resolved.(*pgast.SelectStmt)
		if !ok {
			return nil, errUnsupported(stmt.Span, "this query under COPY")
		}
		query = sel

	case stmt.Relation != nil:
		ref, err := c.resolveRangeVar(stmt.Relation)
		if err != nil {
			return nil, err
		}
		tbl := c.scope.tables[len(c.scope.tables)-1]

		cols, err := pullColumnsFromTable(tbl, stmt.ColNames)
		if err != nil {
			return nil, err
		}
		query = &pgast.SelectStmt{Span: pgast.NoSpan, From: []pgast.TableRef{ref}}
		for _, col := range cols {
			val, err := columnValue(tbl, col)
			if err != nil {
				return nil, err
			}
			query.TargetList = append(query.TargetList, pgast.ResTarget{Name: col.Name, Val: val})
		}

	default:
		return nil, errQuery(stmt.Span, "COPY requires a table or a query")
	}

	where, err := c.resolveOptExpr(stmt.Where)
	if err != nil {
		return nil, err
	}

	query.CTEs = append(c.drainCTEs(), query.CTEs...)

	return &pgast.CopyStmt{
		Span:      stmt.Span,
		Query:     query,
		IsFrom:    stmt.IsFrom,
		IsProgram: stmt.IsProgram,
		Filename:  stmt.Filename,
		Options:   stmt.Options,
		Where:     where,
	}, nil
}
