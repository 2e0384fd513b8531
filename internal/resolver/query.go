package resolver

import (
	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// resolveStmt resolves a statement appearing in query position (top level,
// WITH binding, subquery) and returns the rewritten statement plus a table
// describing its output.
func (c *Context) resolveStmt(stmt pgast.Stmt) (pgast.Stmt, *Table, error) {
	switch s := stmt.(type) {
	case *pgast.SelectStmt:
		return c.resolveSelect(s)
	case *pgast.InsertStmt:
		return c.resolveInsert(s)
	case *pgast.UpdateStmt:
		return nil, nil, errUnsupported(s.Span, "UPDATE")
	case *pgast.DeleteStmt:
		return nil, nil, errUnsupported(s.Span, "DELETE")
	case *pgast.CopyStmt:
		return nil, nil, errQuery(s.Span, "COPY cannot appear in query position")
	}
	return nil, nil, errQuery(pgast.NoSpan, "unsupported statement")
}

func (c *Context) resolveSelect(s *pgast.SelectStmt) (*pgast.SelectStmt, *Table, error) {
	restore := c.childScope()
	defer restore()

	out := &pgast.SelectStmt{Span: s.Span, Distinct: s.Distinct}

	for _, cte := range s.CTEs {
		resolved, err := c.resolveCTE(cte)
		if err != nil {
			return nil, nil, err
		}
		c.addCTE(resolved)
		// at the top level all CTEs travel through the shared buffer so
		// compiler-generated relations and user bindings interleave in
		// dependency order
		if c.subqueryDepth == 0 {
			c.hoistCTE(resolved)
		} else {
			out.CTEs = append(out.CTEs, resolved)
		}
	}

	if s.Op != pgast.SetOpNone {
		larg, ltab, err := c.resolveSelectArm(s.Larg)
		if err != nil {
			return nil, nil, err
		}
		rarg, _, err := c.resolveSelectArm(s.Rarg)
		if err != nil {
			return nil, nil, err
		}
		out.Op = s.Op
		out.All = s.All
		out.Larg = larg
		out.Rarg = rarg
		return out, ltab, nil
	}

	if len(s.Values) > 0 {
		out.Values = make([][]pgast.Expr, len(s.Values))
		for i, row := range s.Values {
			out.Values[i] = make([]pgast.Expr, len(row))
			for j, v := range row {
				rv, err := c.resolveExpr(v)
				if err != nil {
					return nil, nil, err
				}
				out.Values[i][j] = rv
			}
		}
		return out, derivedTable("", stmtOutputNames(out)), nil
	}

	for _, ref := range s.From {
		resolved, err := c.resolveFromEntry(ref)
		if err != nil {
			return nil, nil, err
		}
		out.From = append(out.From, resolved)
	}

	targets, err := c.resolveTargetList(s.TargetList)
	if err != nil {
		return nil, nil, err
	}
	out.TargetList = targets

	if out.Where, err = c.resolveOptExpr(s.Where); err != nil {
		return nil, nil, err
	}
	for _, g := range s.GroupBy {
		rg, err := c.resolveExpr(g)
		if err != nil {
			return nil, nil, err
		}
		out.GroupBy = append(out.GroupBy, rg)
	}
	if out.Having, err = c.resolveOptExpr(s.Having); err != nil {
		return nil, nil, err
	}
	for _, ob := range s.SortBy {
		re, err := c.resolveExpr(ob.Expr)
		if err != nil {
			return nil, nil, err
		}
		out.SortBy = append(out.SortBy, pgast.OrderBy{Expr: re, Desc: ob.Desc, NullsFirst: ob.NullsFirst})
	}
	if out.LimitCount, err = c.resolveOptExpr(s.LimitCount); err != nil {
		return nil, nil, err
	}
	if out.LimitOffset, err = c.resolveOptExpr(s.LimitOffset); err != nil {
		return nil, nil, err
	}

	var names []string
	for _, rt := range out.TargetList {
		names = append(names, targetName(rt))
	}
	return out, derivedTable("", names), nil
}

// resolveSelectArm resolves one side of a set operation in its own scope.
func (c *Context) resolveSelectArm(s *pgast.SelectStmt) (*pgast.SelectStmt, *Table, error) {
	if s == nil {
		return nil, nil, errQuery(pgast.NoSpan, "malformed set operation")
	}
	return c.resolveSelect(s)
}

func (c *Context) resolveCTE(cte *pgast.CommonTableExpr) (*pgast.CommonTableExpr, error) {
	restoreDepth := c.subquery()
	defer restoreDepth()
	restore := c.childScope()
	defer restore()

	query, _, err := c.resolveStmt(cte.Query)
	if err != nil {
		return nil, err
	}
	return &pgast.CommonTableExpr{Name: cte.Name, Query: query}, nil
}

func (c *Context) resolveFromEntry(ref pgast.TableRef) (pgast.TableRef, error) {
	switch r := ref.(type) {
	case *pgast.RangeVar:
		return c.resolveRangeVar(r)
	case *pgast.RangeSubselect:
		return c.resolveRangeSubselect(r)
	case *pgast.JoinExpr:
		larg, err := c.resolveFromEntry(r.Larg)
		if err != nil {
			return nil, err
		}
		rarg, err := c.resolveFromEntry(r.Rarg)
		if err != nil {
			return nil, err
		}
		cond, err := c.resolveOptExpr(r.Condition)
		if err != nil {
			return nil, err
		}
		return &pgast.JoinExpr{Type: r.Type, Larg: larg, Rarg: rarg, Condition: cond, Using: r.Using}, nil
	}
	return nil, errQuery(pgast.NoSpan, "unsupported FROM entry")
}

func (c *Context) resolveRangeVar(r *pgast.RangeVar) (pgast.TableRef, error) {
	if cte, ok := c.lookupScopeCTE(r.Name); ok && r.Schema == "" {
		tbl := tableFromCTE(cte)
		if r.Alias != nil {
			tbl.Alias = r.Alias.Name
			tbl.ReferenceAs = r.Alias.Name
			applyColumnAliases(tbl, r.Alias.Columns)
		}
		c.addTable(tbl)
		return &pgast.RangeVar{Span: r.Span, Name: cte.Name, Alias: r.Alias}, nil
	}

	tbl, err := c.lookupTable(r.Schema, r.Name, r.Span)
	if err != nil {
		return nil, err
	}
	// the backing relation always gets a fresh alias; column references are
	// qualified with it while name matching keeps using the public name
	storage := tbl.ReferenceAs
	tbl.ReferenceAs = c.alias(r.Name)
	if r.Alias != nil {
		tbl.Alias = r.Alias.Name
		applyColumnAliases(tbl, r.Alias.Columns)
	}
	c.addTable(tbl)
	return &pgast.RangeVar{
		Span:  r.Span,
		Name:  storage,
		Alias: &pgast.Alias{Name: tbl.ReferenceAs},
	}, nil
}

func (c *Context) resolveRangeSubselect(r *pgast.RangeSubselect) (pgast.TableRef, error) {
	restoreDepth := c.subquery()
	query, tbl, err := func() (pgast.Stmt, *Table, error) {
		restore := c.childScope()
		defer restore()
		return c.resolveStmt(r.Subquery)
	}()
	restoreDepth()
	if err != nil {
		return nil, err
	}

	sel, ok := query.(*pgast.SelectStmt)
	if !ok {
		return nil, errQuery(r.Span, "unsupported subquery statement")
	}

	aliasName := "_"
	if r.Alias != nil {
		aliasName = r.Alias.Name
	}
	tbl.Name = aliasName
	tbl.Alias = aliasName
	tbl.ReferenceAs = aliasName
	if r.Alias != nil {
		applyColumnAliases(tbl, r.Alias.Columns)
	}
	c.addTable(tbl)
	return &pgast.RangeSubselect{
		Span:     r.Span,
		Lateral:  r.Lateral,
		Subquery: sel,
		Alias:    &pgast.Alias{Name: aliasName},
	}, nil
}

func applyColumnAliases(tbl *Table, names []string) {
	visible := 0
	for i := range tbl.Columns {
		if tbl.Columns[i].Hidden {
			continue
		}
		if visible >= len(names) {
			break
		}
		tbl.Columns[i].Name = names[visible]
		visible++
	}
}

func derivedTable(name string, columns []string) *Table {
	tbl := &Table{Name: name}
	for _, col := range columns {
		tbl.Columns = append(tbl.Columns, Column{Name: col, Kind: ColumnByName{RefAs: col}})
	}
	return tbl
}

// resolveTargetList resolves projection targets, expanding * and t.* against
// the current scope.
func (c *Context) resolveTargetList(targets []pgast.ResTarget) ([]pgast.ResTarget, error) {
	var out []pgast.ResTarget
	for _, rt := range targets {
		switch {
		case rt.Star:
			for _, tbl := range c.scope.tables {
				expanded, err := c.expandTableStar(tbl)
				if err != nil {
					return nil, err
				}
				out = append(out, expanded...)
			}
		case rt.TableStar != "":
			tbl, ok := c.tableByRef(rt.TableStar)
			if !ok {
				return nil, &QueryError{
					Msg:  `missing FROM-clause entry for table "` + rt.TableStar + `"`,
					Code: CodeUndefinedTable,
					Span: rt.Span,
				}
			}
			expanded, err := c.expandTableStar(tbl)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)
		default:
			val, err := c.resolveExpr(rt.Val)
			if err != nil {
				return nil, err
			}
			name := rt.Name
			if name == "" {
				if ref, ok := rt.Val.(*pgast.ColumnRef); ok {
					name = ref.Column
				}
			}
			out = append(out, pgast.ResTarget{Span: rt.Span, Name: name, Val: val})
		}
	}
	return out, nil
}

func (c *Context) expandTableStar(tbl *Table) ([]pgast.ResTarget, error) {
	var out []pgast.ResTarget
	for _, col := range tbl.VisibleColumns() {
		val, err := columnValue(tbl, col)
		if err != nil {
			return nil, err
		}
		out = append(out, pgast.ResTarget{Name: col.Name, Val: val})
	}
	return out, nil
}

func (c *Context) tableByRef(name string) (*Table, bool) {
	for i := len(c.scope.tables) - 1; i >= 0; i-- {
		if c.scope.tables[i].refName() == name {
			return c.scope.tables[i], true
		}
	}
	return nil, false
}

func columnValue(tbl *Table, col Column) (pgast.Expr, error) {
	switch kind := col.Kind.(type) {
	case ColumnByName:
		qual := tbl.ReferenceAs
		if qual == "" {
			qual = tbl.refName()
		}
		return &pgast.ColumnRef{Span: pgast.NoSpan, Table: qual, Column: kind.RefAs}, nil
	case ColumnStaticVal:
		return kind.Val, nil
	}
	return nil, errQuery(pgast.NoSpan, "unresolvable column %q", col.Name)
}

func (c *Context) resolveOptExpr(e pgast.Expr) (pgast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	return c.resolveExpr(e)
}

func (c *Context) resolveExpr(e pgast.Expr) (pgast.Expr, error) {
	switch expr := e.(type) {
	case *pgast.ColumnRef:
		return c.resolveColumnRef(expr)
	case *pgast.StringConst, *pgast.NumericConst, *pgast.BoolConst,
		*pgast.NullConst, *pgast.ParamRef:
		return e, nil
	case *pgast.SetToDefault:
		return nil, errQuery(expr.Span, "DEFAULT is not allowed in this context")
	case *pgast.FuncCall:
		out := &pgast.FuncCall{Span: expr.Span, Schema: expr.Schema, Name: expr.Name, AggStar: expr.AggStar}
		for _, arg := range expr.Args {
			ra, err := c.resolveExpr(arg)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, ra)
		}
		return out, nil
	case *pgast.TypeCast:
		arg, err := c.resolveExpr(expr.Arg)
		if err != nil {
			return nil, err
		}
		return &pgast.TypeCast{Span: expr.Span, Arg: arg, Type: expr.Type}, nil
	case *pgast.BinaryExpr:
		left, err := c.resolveExpr(expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.resolveExpr(expr.Right)
		if err != nil {
			return nil, err
		}
		return &pgast.BinaryExpr{Span: expr.Span, Left: left, Op: expr.Op, Right: right}, nil
	case *pgast.SubLink:
		restoreDepth := c.subquery()
		defer restoreDepth()
		restore := c.childScope()
		defer restore()
		sel, _, err := c.resolveSelect(expr.Select)
		if err != nil {
			return nil, err
		}
		return &pgast.SubLink{Span: expr.Span, Exists: expr.Exists, Select: sel}, nil
	}
	return nil, errQuery(pgast.NoSpan, "unsupported expression")
}

func (c *Context) resolveColumnRef(ref *pgast.ColumnRef) (pgast.Expr, error) {
	if ref.Table != "" {
		tbl, ok := c.tableByRef(ref.Table)
		if !ok {
			return nil, &QueryError{
				Msg:  `missing FROM-clause entry for table "` + ref.Table + `"`,
				Code: CodeUndefinedTable,
				Span: ref.Span,
			}
		}
		col, ok := tbl.Column(ref.Column)
		if !ok {
			return nil, &QueryError{
				Msg:  `column ` + ref.Table + `.` + ref.Column + ` does not exist`,
				Code: CodeUndefinedColumn,
				Span: ref.Span,
			}
		}
		return columnValue(tbl, *col)
	}

	var matchTbl *Table
	var matchCol *Column
	for _, tbl := range c.scope.tables {
		if col, ok := tbl.Column(ref.Column); ok {
			if matchCol != nil {
				return nil, &QueryError{
					Msg:  `column reference "` + ref.Column + `" is ambiguous`,
					Code: CodeUndefinedColumn,
					Span: ref.Span,
				}
			}
			matchTbl, matchCol = tbl, col
		}
	}
	if matchCol == nil {
		return nil, &QueryError{
			Msg:  `column "` + ref.Column + `" does not exist`,
			Code: CodeUndefinedColumn,
			Span: ref.Span,
		}
	}
	return columnValue(matchTbl, *matchCol)
}
