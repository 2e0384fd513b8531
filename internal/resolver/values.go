package resolver

import (
	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// normalizeInsertValues prepares the source query of an INSERT:
//
//   - `DEFAULT VALUES` becomes a one-row VALUES list with no columns,
//   - columns that are DEFAULT in every row are dropped together with the
//     matching entry of the expected column list,
//   - a VALUES list left with zero columns is rewritten to
//     `SELECT FROM (VALUES (NULL), ...) AS _` so the row count survives,
//   - WITH bindings on the source query are stripped and returned for
//     splicing into the enclosing statement.
//
// The rewrite is idempotent: feeding its output back in returns it unchanged.
func normalizeInsertValues(
	sel *pgast.SelectStmt, expected []Column, span pgast.Span,
) (*pgast.SelectStmt, []Column, []*pgast.CommonTableExpr, error) {
	if sel == nil {
		sel = &pgast.SelectStmt{Span: span, Values: [][]pgast.Expr{{}}}
		expected = nil
	}

	var hoisted []*pgast.CommonTableExpr
	if len(sel.CTEs) > 0 {
		hoisted = sel.CTEs
		clone := *sel
		clone.CTEs = nil
		sel = &clone
	}

	if len(sel.Values) == 0 {
		return sel, expected, hoisted, nil
	}

	rows := make([][]pgast.Expr, len(sel.Values))
	for i, row := range sel.Values {
		rows[i] = append([]pgast.Expr(nil), row...)
	}
	cols := append([]Column(nil), expected...)

	width := len(rows[0])
	for i := width - 1; i >= 0; i-- {
		defaults := 0
		for _, row := range rows {
			if i < len(row) {
				if _, ok := row[i].(*pgast.SetToDefault); ok {
					defaults++
				}
			}
		}
		if defaults == 0 {
			continue
		}
		if defaults < len(rows) {
			return nil, nil, nil, errQuery(span,
				"DEFAULT is supported only when it is used for all rows of a column")
		}
		for r, row := range rows {
			rows[r] = append(row[:i], row[i+1:]...)
		}
		if i < len(cols) {
			cols = append(cols[:i], cols[i+1:]...)
		}
	}

	if len(rows[0]) == 0 {
		nullRows := make([][]pgast.Expr, len(rows))
		for i := range nullRows {
			nullRows[i] = []pgast.Expr{&pgast.NullConst{Span: pgast.NoSpan}}
		}
		rewritten := &pgast.SelectStmt{
			Span: sel.Span,
			From: []pgast.TableRef{&pgast.RangeSubselect{
				Span:     pgast.NoSpan,
				Subquery: &pgast.SelectStmt{Span: pgast.NoSpan, Values: nullRows},
				Alias:    &pgast.Alias{Name: "_"},
			}},
		}
		return rewritten, cols, hoisted, nil
	}

	clone := *sel
	clone.Values = rows
	return &clone, cols, hoisted, nil
}

// hasAtMostOneRow reports whether the source query statically yields at most
// one row, which lets the insert skip the per-row iteration wrapper.
func hasAtMostOneRow(sel *pgast.SelectStmt) bool {
	if sel == nil {
		return true
	}
	if len(sel.Values) > 0 {
		return len(sel.Values) == 1
	}
	if limit, ok := sel.LimitCount.(*pgast.NumericConst); ok && limit.Val == "1" {
		return true
	}
	return false
}
