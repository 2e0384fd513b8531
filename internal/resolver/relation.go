package resolver

import (
	"sort"
	"strconv"
	"strings"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// ColumnKind says how a logical column is produced from the backing relation.
type ColumnKind interface {
	columnKind()
}

// ColumnByName maps the logical column to a real column of the backing
// relation.
type ColumnByName struct {
	RefAs string
}

func (ColumnByName) columnKind() {}

// ColumnStaticVal produces the column as a constant expression, independent
// of the backing relation. Used for columns every row shares, like __type__.
type ColumnStaticVal struct {
	Val pgast.Expr
}

func (ColumnStaticVal) columnKind() {}

// Column is one column of a logical table.
type Column struct {
	Name   string
	Kind   ColumnKind
	Hidden bool
}

// Table is a relation visible to the query: a logical view of an object type
// or pointer table, a WITH binding, or a derived subquery.
type Table struct {
	// Object is the backing schema object (an *schema.ObjectType for object
	// tables, a schema.Pointer for link and multi-property tables). Nil for
	// derived relations.
	Object schema.Object

	Name        string
	Alias       string
	ReferenceAs string
	Columns     []Column
}

// VisibleColumns returns the columns star expansion and column-pulling see.
func (t *Table) VisibleColumns() []Column {
	cols := make([]Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !c.Hidden {
			cols = append(cols, c)
		}
	}
	return cols
}

// Column finds a column by its exposed name, including hidden ones.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

func (t *Table) refName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

// lookupTable resolves a relation name against the schema catalog. Object
// types expose their properties plus links as "<name>_id" columns; pointer
// tables ("Type.pointer") expose source, target and any link properties.
func (c *Context) lookupTable(schemaName, name string, span pgast.Span) (*Table, error) {
	if schemaName != "" && schemaName != "public" {
		return nil, errQuery(span, `unknown schema %q`, schemaName)
	}
	if typeName, ptrName, ok := strings.Cut(name, "."); ok {
		t, found := c.catalog.TypeByName(typeName)
		if !found {
			return nil, &QueryError{
				Msg:  `relation "` + name + `" does not exist`,
				Code: CodeUndefinedTable,
				Span: span,
			}
		}
		ptr, found := t.Pointer(ptrName)
		if !found || !isPointerTable(ptr) {
			return nil, &QueryError{
				Msg:  `relation "` + name + `" does not exist`,
				Code: CodeUndefinedTable,
				Span: span,
			}
		}
		return tableForPointer(name, ptr), nil
	}
	t, found := c.catalog.TypeByName(name)
	if !found {
		return nil, &QueryError{
			Msg:  `relation "` + name + `" does not exist`,
			Code: CodeUndefinedTable,
			Span: span,
		}
	}
	return tableForObjectType(t), nil
}

// isPointerTable reports whether the pointer is backed by its own relation:
// links and multi properties are, single properties are inlined.
func isPointerTable(ptr schema.Pointer) bool {
	if _, ok := ptr.(*schema.Link); ok {
		return true
	}
	return ptr.Cardinality() == schema.Many
}

// tableForObjectType builds the logical table of an object type: the id
// column first, then single properties by name, then single links as
// "<name>_id", plus the hidden __type__ column.
func tableForObjectType(t *schema.ObjectType) *Table {
	tbl := &Table{
		Object:      t,
		Name:        t.Name(),
		ReferenceAs: t.ID().String(),
	}
	tbl.Columns = append(tbl.Columns, Column{
		Name: "id",
		Kind: ColumnByName{RefAs: "id"},
	})

	var names []string
	byName := map[string]schema.Pointer{}
	for _, ptr := range t.Pointers() {
		if ptr.Name() == "id" || ptr.Cardinality() == schema.Many {
			continue
		}
		names = append(names, ptr.Name())
		byName[ptr.Name()] = ptr
	}
	sort.Strings(names)
	for _, name := range names {
		ptr := byName[name]
		col := Column{Name: name, Kind: ColumnByName{RefAs: name}}
		if _, isLink := ptr.(*schema.Link); isLink {
			col.Name = name + "_id"
		}
		tbl.Columns = append(tbl.Columns, col)
	}

	tbl.Columns = append(tbl.Columns, Column{
		Name:   "__type__",
		Kind:   ColumnStaticVal{Val: typeIDConst(t)},
		Hidden: true,
	})
	return tbl
}

// tableForPointer builds the logical table of a link or multi property:
// source and target, plus link properties for links.
func tableForPointer(name string, ptr schema.Pointer) *Table {
	tbl := &Table{
		Object:      ptr,
		Name:        name,
		ReferenceAs: ptr.ID().String(),
		Columns: []Column{
			{Name: "source", Kind: ColumnByName{RefAs: "source"}},
			{Name: "target", Kind: ColumnByName{RefAs: "target"}},
		},
	}
	if link, ok := ptr.(*schema.Link); ok {
		var names []string
		for _, prop := range link.Properties() {
			if prop.Name() == "source" || prop.Name() == "target" {
				continue
			}
			names = append(names, prop.Name())
		}
		sort.Strings(names)
		for _, propName := range names {
			tbl.Columns = append(tbl.Columns, Column{
				Name: propName,
				Kind: ColumnByName{RefAs: propName},
			})
		}
	}
	return tbl
}

func typeIDConst(t *schema.ObjectType) pgast.Expr {
	return &pgast.TypeCast{
		Arg:  &pgast.StringConst{Span: pgast.NoSpan, Val: t.ID().String()},
		Type: pgast.TypeName{Names: []string{"uuid"}},
	}
}

// tableFromCTE derives a relation for a WITH binding, taking column names
// from the binding's query output.
func tableFromCTE(cte *pgast.CommonTableExpr) *Table {
	tbl := &Table{Name: cte.Name, ReferenceAs: cte.Name}
	for _, name := range stmtOutputNames(cte.Query) {
		tbl.Columns = append(tbl.Columns, Column{
			Name: name,
			Kind: ColumnByName{RefAs: name},
		})
	}
	return tbl
}

// stmtOutputNames reports the output column names of a resolved statement.
func stmtOutputNames(stmt pgast.Stmt) []string {
	switch s := stmt.(type) {
	case *pgast.SelectStmt:
		if s.Op != pgast.SetOpNone {
			return stmtOutputNames(s.Larg)
		}
		if len(s.Values) > 0 {
			names := make([]string, len(s.Values[0]))
			for i := range names {
				names[i] = "column" + strconv.Itoa(i+1)
			}
			return names
		}
		var names []string
		for _, rt := range s.TargetList {
			names = append(names, targetName(rt))
		}
		return names
	case *pgast.InsertStmt:
		var names []string
		for _, rt := range s.Returning {
			names = append(names, targetName(rt))
		}
		return names
	}
	return nil
}

func targetName(rt pgast.ResTarget) string {
	if rt.Name != "" {
		return rt.Name
	}
	if ref, ok := rt.Val.(*pgast.ColumnRef); ok {
		return ref.Column
	}
	return ""
}
