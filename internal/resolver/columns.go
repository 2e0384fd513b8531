package resolver

import (
	"strings"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// pullColumnsFromTable maps an INSERT or COPY column list to the table's
// logical columns, in the requested order. A nil list means all visible
// columns in table order.
func pullColumnsFromTable(tbl *Table, cols []pgast.InsertCol) ([]Column, error) {
	if cols == nil {
		return tbl.VisibleColumns(), nil
	}

	byName := map[string]Column{}
	for _, col := range tbl.VisibleColumns() {
		byName[col.Name] = col
	}

	out := make([]Column, 0, len(cols))
	seen := map[string]bool{}
	for _, req := range cols {
		col, ok := byName[req.Name]
		if !ok {
			return nil, &QueryError{
				Msg:  `column "` + req.Name + `" of relation "` + tbl.Name + `" does not exist`,
				Code: CodeUndefinedColumn,
				Span: req.Span,
			}
		}
		if seen[req.Name] {
			return nil, &QueryError{
				Msg:  `column "` + req.Name + `" specified more than once`,
				Code: CodeUndefinedColumn,
				Span: req.Span,
			}
		}
		seen[req.Name] = true
		out = append(out, col)
	}
	return out, nil
}

// getPointerForColumn maps a logical column of an object table back to the
// schema pointer it stores. Single links surface as "<name>_id" columns, so
// a trailing _id is first tried as a link name. A property that itself ends
// in _id therefore shadows nothing only when no link of the stripped name
// exists.
func getPointerForColumn(col Column, subject *schema.ObjectType, span pgast.Span) (schema.Pointer, error) {
	if base, ok := strings.CutSuffix(col.Name, "_id"); ok {
		if ptr, found := subject.Pointer(base); found {
			if _, isLink := ptr.(*schema.Link); isLink {
				return ptr, nil
			}
		}
	}
	if ptr, found := subject.Pointer(col.Name); found {
		return ptr, nil
	}
	return nil, &QueryError{
		Msg:  `cannot find column "` + col.Name + `" of object type "` + subject.Name() + `"`,
		Code: CodeUndefinedColumn,
		Span: span,
	}
}
