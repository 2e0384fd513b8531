package resolver

import (
	"strconv"
	"strings"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// resolveInsert splices a compiled DML statement back into the SQL tree: it
// resolves the value relation into the value CTE feeding the compiled
// relations, hoists those relations, and replaces the INSERT with a
// projection over its output relation.
func (c *Context) resolveInsert(stmt *pgast.InsertStmt) (pgast.Stmt, *Table, error) {
	if c.subqueryDepth >= 2 {
		return nil, nil, errQuery(stmt.Span,
			"WITH clause containing a data-modifying statement must be at the top level")
	}
	compiled, ok := c.compiledDML[stmt]
	if !ok {
		return nil, nil, errUnsupported(stmt.Span, "DML in this position")
	}

	// the statement's own WITH declarations ride the shared buffer so they
	// land in the top-level WITH list even when the INSERT itself sits
	// inside a binding
	for _, cte := range stmt.CTEs {
		resolved, err := c.resolveCTE(cte)
		if err != nil {
			return nil, nil, err
		}
		c.addCTE(resolved)
		c.hoistCTE(resolved)
	}

	valueCTE, err := c.buildValueCTE(compiled)
	if err != nil {
		return nil, nil, err
	}
	c.hoistCTE(valueCTE)
	for _, cte := range compiled.outputCTEs {
		c.hoistCTE(cte)
	}

	var subjectAlias string
	if stmt.Relation != nil && stmt.Relation.Alias != nil {
		subjectAlias = stmt.Relation.Alias.Name
	}

	switch {
	case len(stmt.Returning) > 0:
		return c.resolveReturningRows(stmt.Returning, compiled, subjectAlias)
	case c.subqueryDepth == 0:
		// the row count of a top-level DML statement becomes its command tag
		query := &pgast.SelectStmt{
			Span: stmt.Span,
			TargetList: []pgast.ResTarget{{
				Val: &pgast.FuncCall{Name: "count", AggStar: true},
			}},
			From: []pgast.TableRef{
				&pgast.RangeVar{Span: pgast.NoSpan, Name: compiled.outputRelName},
			},
		}
		return query, &Table{}, nil
	default:
		return &pgast.SelectStmt{Span: stmt.Span}, &Table{}, nil
	}
}

// buildValueCTE resolves the INSERT's source query and wraps it in the CTE
// the compiled relations read from, adding uuid casts for object references
// and the invented iterator column.
func (c *Context) buildValueCTE(compiled *compiledDML) (*pgast.CommonTableExpr, error) {
	plan := compiled.plan

	valRel, valTable, err := func() (*pgast.SelectStmt, *Table, error) {
		restore := c.childScope()
		defer restore()
		for _, cte := range plan.valueCTEs {
			resolved, err := c.resolveCTE(cte)
			if err != nil {
				return nil, nil, err
			}
			c.addCTE(resolved)
			c.hoistCTE(resolved)
		}
		return c.resolveSelect(plan.valueQuery)
	}()
	if err != nil {
		return nil, err
	}

	if len(valTable.Columns) != len(plan.valueColumns) {
		names := make([]string, len(plan.valueColumns))
		for i, vc := range plan.valueColumns {
			names[i] = vc.column.Name
		}
		return nil, errQuery(plan.valueQuery.Span,
			"INSERT expected %d columns, but got %d (expecting %s)",
			len(plan.valueColumns), len(valTable.Columns), strings.Join(names, ", "))
	}

	// hoisting any WITH of the value relation keeps all CTEs on one level
	if len(valRel.CTEs) > 0 {
		for _, cte := range valRel.CTEs {
			c.hoistCTE(cte)
		}
		valRel.CTEs = nil
	}

	inner := &pgast.RangeSubselect{
		Span:     pgast.NoSpan,
		Subquery: valRel,
		Alias:    &pgast.Alias{Name: c.alias("v")},
	}
	var targets []pgast.ResTarget
	for i, vc := range plan.valueColumns {
		val := pgast.Expr(&pgast.ColumnRef{
			Span:   pgast.NoSpan,
			Table:  inner.Alias.Name,
			Column: columnRefAs(valTable.Columns[i], i),
		})
		if vc.castUUID {
			val = &pgast.TypeCast{Arg: val, Type: pgast.TypeName{Names: []string{"uuid"}}}
		}
		targets = append(targets, pgast.ResTarget{Name: vc.column.Name, Val: val})
	}
	targets = append(targets, pgast.ResTarget{
		Name: plan.iteratorCol,
		Val:  &pgast.FuncCall{Schema: "edgerel", Name: "uuid_generate_v4"},
	})

	inner.Alias.Columns = make([]string, len(valTable.Columns))
	for i := range valTable.Columns {
		inner.Alias.Columns[i] = columnRefAs(valTable.Columns[i], i)
	}

	return &pgast.CommonTableExpr{
		Name: plan.anchorName,
		Query: &pgast.SelectStmt{
			Span:       pgast.NoSpan,
			TargetList: targets,
			From:       []pgast.TableRef{inner},
		},
	}, nil
}

// columnRefAs gives the name a value-relation column is addressable by once
// the relation is wrapped; unnamed expression columns get positional names.
func columnRefAs(col Column, i int) string {
	if col.Name != "" {
		return col.Name
	}
	return "column" + strconv.Itoa(i+1)
}

// resolveReturningRows builds the projection replacing a DML statement with
// a RETURNING clause: subject columns are exposed under their public names
// over the output relation, then the RETURNING targets resolve against that.
func (c *Context) resolveReturningRows(
	returning []pgast.ResTarget, compiled *compiledDML, subjectAlias string,
) (pgast.Stmt, *Table, error) {
	insName := c.alias("ins")

	inserted := &pgast.SelectStmt{
		Span: pgast.NoSpan,
		From: []pgast.TableRef{
			&pgast.RangeVar{Span: pgast.NoSpan, Name: compiled.outputRelName},
		},
	}
	insertedTable := &Table{
		Name:        compiled.plan.subject.Name,
		Alias:       subjectAlias,
		ReferenceAs: insName,
	}
	for _, oc := range compiled.outputNamespace {
		inserted.TargetList = append(inserted.TargetList,
			pgast.ResTarget{Name: oc.name, Val: oc.val})
		insertedTable.Columns = append(insertedTable.Columns,
			Column{Name: oc.name, Kind: ColumnByName{RefAs: oc.name}})
	}

	restore := c.childScope()
	defer restore()
	c.addTable(insertedTable)

	resolved, err := c.resolveTargetList(returning)
	if err != nil {
		return nil, nil, err
	}
	query := &pgast.SelectStmt{
		Span:       pgast.NoSpan,
		TargetList: resolved,
		From: []pgast.TableRef{&pgast.RangeSubselect{
			Span:     pgast.NoSpan,
			Subquery: inserted,
			Alias:    &pgast.Alias{Name: insName},
		}},
	}

	var names []string
	for _, rt := range resolved {
		names = append(names, targetName(rt))
	}
	return query, derivedTable("", names), nil
}
