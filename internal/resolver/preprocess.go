package resolver

import (
	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/eqlast"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// valueColumn is one column of the value relation feeding a DML statement.
type valueColumn struct {
	column Column

	// ptr is the schema pointer the column assigns. Nil for the source and
	// target columns of pointer tables.
	ptr schema.Pointer

	// castUUID marks columns holding object references; their SQL values are
	// cast to uuid in the value CTE.
	castUUID bool
}

// dmlPlan is a preprocessed DML statement: the synthetic object-query
// statement to hand to the compiler, the anchor binding it to the SQL value
// relation, and everything statement wiring needs afterwards. Plans are
// immutable once built; compilation results attach in a separate step.
type dmlPlan struct {
	stmt    *pgast.InsertStmt
	subject *Table

	// eqlStmt is the synthetic statement, wrapped in a per-row iteration
	// when the value relation may yield more than one row.
	eqlStmt   eqlast.Expr
	returning []eqlast.ShapeElement

	// anchorName names both the compiler anchor and the value CTE.
	anchorName  string
	iteratorCol string
	root        compiler.PathID
	external    compiler.ExternalRel

	valueQuery   *pgast.SelectStmt
	valueCTEs    []*pgast.CommonTableExpr
	valueColumns []valueColumn
	singleRow    bool

	// subjectColumns maps each visible column of the subject table to the
	// pointer name carrying it in the compiled output relation.
	subjectColumns []subjectColumn
}

type subjectColumn struct {
	column  string
	pointer string
}

// preprocessInsert translates an INSERT on an object or pointer table into a
// plan carrying the equivalent object-query statement.
func (c *Context) preprocessInsert(stmt *pgast.InsertStmt) (*dmlPlan, error) {
	if stmt.Relation == nil {
		return nil, errQuery(stmt.Span, "INSERT requires a table name")
	}
	tbl, err := c.lookupTable(stmt.Relation.Schema, stmt.Relation.Name, stmt.Relation.Span)
	if err != nil {
		return nil, err
	}
	switch subject := tbl.Object.(type) {
	case *schema.ObjectType:
		return c.preprocessObjectInsert(stmt, tbl, subject)
	case schema.Pointer:
		return c.preprocessPointerInsert(stmt, tbl, subject)
	}
	return nil, errUnsupported(stmt.Span, "INSERT into this relation")
}

func (c *Context) preprocessObjectInsert(
	stmt *pgast.InsertStmt, tbl *Table, subject *schema.ObjectType,
) (*dmlPlan, error) {
	expected, err := pullColumnsFromTable(tbl, stmt.Cols)
	if err != nil {
		return nil, err
	}
	valueQuery, expected, valueCTEs, err := normalizeInsertValues(stmt.SelectStmt, expected, stmt.Span)
	if err != nil {
		return nil, err
	}

	plan := &dmlPlan{
		stmt:        stmt,
		subject:     tbl,
		anchorName:  c.alias("ins_val"),
		iteratorCol: c.alias("iter"),
		valueQuery:  valueQuery,
		valueCTEs:   valueCTEs,
		singleRow:   hasAtMostOneRow(valueQuery),
	}
	plan.root = compiler.FromType(subject, plan.anchorName)

	rel := compiler.NewRelation(plan.anchorName)
	rel.AddOutput(plan.root, compiler.AspectIterator,
		&pgast.ColumnRef{Span: pgast.NoSpan, Column: plan.iteratorCol})

	insert := &eqlast.InsertQuery{Subject: eqlast.ObjectRef{Name: subject.Name()}}
	for _, col := range expected {
		ptr, err := getPointerForColumn(col, subject, stmt.Span)
		if err != nil {
			return nil, err
		}
		if ptr.Name() == "id" && !c.opts.AllowUserSpecifiedID {
			return nil, errQuery(stmt.Span,
				"cannot assign to property 'id': consider enabling the allow_user_specified_id configuration option")
		}
		element, isLink := insertElementForPtr(ptr, plan.anchorName, col.Name)
		insert.Shape = append(insert.Shape, element)

		aspect := compiler.AspectValue
		if isLink {
			aspect = compiler.AspectIdentity
		}
		rel.AddOutput(plan.root.Extend(ptr), aspect,
			&pgast.ColumnRef{Span: pgast.NoSpan, Column: col.Name})
		plan.valueColumns = append(plan.valueColumns,
			valueColumn{column: col, ptr: ptr, castUUID: isLink})
	}

	for _, col := range tbl.VisibleColumns() {
		ptr, err := getPointerForColumn(col, subject, stmt.Span)
		if err != nil {
			return nil, err
		}
		plan.returning = append(plan.returning, eqlast.ShapeElement{
			Expr: &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.Ptr{Name: ptr.Name()}}, Partial: true},
		})
		plan.subjectColumns = append(plan.subjectColumns,
			subjectColumn{column: col.Name, pointer: ptr.Name()})
	}

	plan.external = compiler.ExternalRel{
		Anchor:  plan.root,
		Rel:     rel,
		Aspects: []compiler.Aspect{compiler.AspectSource, compiler.AspectIterator},
	}
	plan.eqlStmt = wrapIterated(insert, plan)
	return plan, nil
}

// insertElementForPtr builds the shape element assigning one pointer from the
// value anchor. Link targets are referenced by id and cast to the target
// type.
func insertElementForPtr(ptr schema.Pointer, anchor, column string) (eqlast.ShapeElement, bool) {
	valuePath := &eqlast.Path{Steps: []eqlast.PathStep{
		&eqlast.Anchor{Name: anchor},
		&eqlast.Ptr{Name: column},
	}}
	element := eqlast.ShapeElement{
		Expr: &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.Ptr{Name: ptr.Name()}}, Partial: true},
	}
	if target := linkTarget(ptr); target != nil {
		element.CompExpr = &eqlast.TypeCast{
			Type: eqlast.ObjectRef{Name: target.Name()},
			Expr: valuePath,
		}
		return element, true
	}
	element.CompExpr = valuePath
	return element, false
}

func linkTarget(ptr schema.Pointer) *schema.ObjectType {
	if _, ok := ptr.(*schema.Link); ok {
		return ptr.Target()
	}
	return nil
}

func (c *Context) preprocessPointerInsert(
	stmt *pgast.InsertStmt, tbl *Table, ptr schema.Pointer,
) (*dmlPlan, error) {
	source, ok := ptr.Source().(*schema.ObjectType)
	if !ok {
		return nil, errUnsupported(stmt.Span, "INSERT into this relation")
	}

	expected, err := pullColumnsFromTable(tbl, stmt.Cols)
	if err != nil {
		return nil, err
	}
	valueQuery, expected, valueCTEs, err := normalizeInsertValues(stmt.SelectStmt, expected, stmt.Span)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"source", "target"} {
		if !containsColumn(expected, required) {
			return nil, errQuery(stmt.Span,
				`column %q is required when inserting into %q`, required, tbl.Name)
		}
	}

	plan := &dmlPlan{
		stmt:        stmt,
		subject:     tbl,
		anchorName:  c.alias("ins_val"),
		iteratorCol: c.alias("iter"),
		valueQuery:  valueQuery,
		valueCTEs:   valueCTEs,
		singleRow:   hasAtMostOneRow(valueQuery),
	}
	plan.root = compiler.FromType(source, plan.anchorName)

	link, isLink := ptr.(*schema.Link)
	rel := compiler.NewRelation(plan.anchorName)
	rel.AddOutput(plan.root, compiler.AspectIterator,
		&pgast.ColumnRef{Span: pgast.NoSpan, Column: plan.iteratorCol})

	targetExpr := eqlast.Expr(&eqlast.Path{Steps: []eqlast.PathStep{
		&eqlast.Anchor{Name: plan.anchorName},
		&eqlast.Ptr{Name: "target"},
	}})
	if isLink {
		targetExpr = &eqlast.TypeCast{
			Type: eqlast.ObjectRef{Name: ptr.Target().Name()},
			Expr: targetExpr,
		}
	}

	var propElements []eqlast.ShapeElement
	for _, col := range expected {
		switch col.Name {
		case "source":
			rel.AddOutput(plan.root, compiler.AspectIdentity,
				&pgast.ColumnRef{Span: pgast.NoSpan, Column: "source"})
			plan.valueColumns = append(plan.valueColumns, valueColumn{column: col, castUUID: true})
		case "target":
			aspect := compiler.AspectValue
			if isLink {
				aspect = compiler.AspectIdentity
			}
			rel.AddOutput(plan.root.Extend(ptr), aspect,
				&pgast.ColumnRef{Span: pgast.NoSpan, Column: "target"})
			plan.valueColumns = append(plan.valueColumns, valueColumn{column: col, castUUID: isLink})
		default:
			if !isLink {
				return nil, &QueryError{
					Msg:  `column "` + col.Name + `" of relation "` + tbl.Name + `" does not exist`,
					Code: CodeUndefinedColumn,
					Span: stmt.Span,
				}
			}
			prop, found := link.Property(col.Name)
			if !found {
				return nil, &QueryError{
					Msg:  `column "` + col.Name + `" of relation "` + tbl.Name + `" does not exist`,
					Code: CodeUndefinedColumn,
					Span: stmt.Span,
				}
			}
			propElements = append(propElements, eqlast.ShapeElement{
				Expr: &eqlast.Path{
					Steps:   []eqlast.PathStep{&eqlast.Ptr{Name: prop.Name(), Property: true}},
					Partial: true,
				},
				CompExpr: &eqlast.Path{Steps: []eqlast.PathStep{
					&eqlast.Anchor{Name: plan.anchorName},
					&eqlast.Ptr{Name: col.Name},
				}},
			})
			rel.AddOutput(plan.root.Extend(ptr).PtrPath().Extend(prop), compiler.AspectValue,
				&pgast.ColumnRef{Span: pgast.NoSpan, Column: col.Name})
			plan.valueColumns = append(plan.valueColumns, valueColumn{column: col, ptr: prop})

			plan.returning = append(plan.returning, eqlast.ShapeElement{
				Expr: &eqlast.Path{
					Steps:   []eqlast.PathStep{&eqlast.Ptr{Name: prop.Name(), Property: true}},
					Partial: true,
				},
			})
		}
	}

	if len(propElements) > 0 {
		targetExpr = &eqlast.Shape{Expr: targetExpr, Elements: propElements}
	}
	for _, col := range tbl.VisibleColumns() {
		plan.subjectColumns = append(plan.subjectColumns,
			subjectColumn{column: col.Name, pointer: col.Name})
	}

	op := eqlast.ShapeAssign
	if ptr.Cardinality() == schema.Many {
		op = eqlast.ShapeAppend
	}
	update := &eqlast.UpdateQuery{
		Subject: &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.ObjectRef{Name: source.Name()}}},
		Where: &eqlast.BinOp{
			Left: &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.Ptr{Name: "id"}}, Partial: true},
			Op:   "=",
			Right: &eqlast.Path{Steps: []eqlast.PathStep{
				&eqlast.Anchor{Name: plan.anchorName},
				&eqlast.Ptr{Name: "source"},
			}},
		},
		Shape: []eqlast.ShapeElement{{
			Expr:     &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.Ptr{Name: ptr.Name()}}, Partial: true},
			Op:       op,
			CompExpr: targetExpr,
		}},
	}

	plan.external = compiler.ExternalRel{
		Anchor:  plan.root,
		Rel:     rel,
		Aspects: []compiler.Aspect{compiler.AspectSource, compiler.AspectIterator},
	}
	plan.eqlStmt = wrapIterated(update, plan)
	return plan, nil
}

// wrapIterated wraps the statement in a per-row iteration over the value
// anchor unless the value relation is statically known to hold at most one
// row.
func wrapIterated(stmt eqlast.Expr, plan *dmlPlan) eqlast.Expr {
	if plan.singleRow {
		return stmt
	}
	return &eqlast.ForQuery{
		Iterator:      &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.Anchor{Name: plan.anchorName}}},
		IteratorAlias: plan.iteratorCol,
		Result:        stmt,
	}
}

func containsColumn(cols []Column, name string) bool {
	for _, col := range cols {
		if col.Name == name {
			return true
		}
	}
	return false
}
