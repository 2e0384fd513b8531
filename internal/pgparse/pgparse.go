// Package pgparse parses PostgreSQL text into the resolver's syntax tree.
// It wraps the libpg_query grammar and converts the protobuf parse tree into
// pgast nodes, reporting a friendly error for any construct outside the
// supported subset.
package pgparse

import (
	"fmt"
	"strconv"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// Parse parses SQL text into statements.
func Parse(sql string) ([]pgast.Stmt, error) {
	result, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parse SQL: %w", err)
	}

	stmts := make([]pgast.Stmt, 0, len(result.Stmts))
	for _, raw := range result.Stmts {
		stmt, err := convertStmt(raw.Stmt)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// ParseOne parses SQL text expected to hold exactly one statement.
func ParseOne(sql string) (pgast.Stmt, error) {
	stmts, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("expected one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

func convertStmt(node *pg_query.Node) (pgast.Stmt, error) {
	if node == nil {
		return nil, fmt.Errorf("empty statement")
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_SelectStmt:
		return convertSelect(n.SelectStmt)
	case *pg_query.Node_InsertStmt:
		return convertInsert(n.InsertStmt)
	case *pg_query.Node_UpdateStmt:
		return &pgast.UpdateStmt{Span: relationSpan(n.UpdateStmt.Relation)}, nil
	case *pg_query.Node_DeleteStmt:
		return &pgast.DeleteStmt{Span: relationSpan(n.DeleteStmt.Relation)}, nil
	case *pg_query.Node_CopyStmt:
		return convertCopy(n.CopyStmt)
	}
	return nil, fmt.Errorf("unsupported statement: %T", node.Node)
}

func relationSpan(rv *pg_query.RangeVar) pgast.Span {
	if rv == nil {
		return pgast.NoSpan
	}
	return pgast.Span(rv.Location)
}

func convertSelect(sel *pg_query.SelectStmt) (*pgast.SelectStmt, error) {
	out := &pgast.SelectStmt{Span: pgast.NoSpan}

	if sel.WithClause != nil {
		ctes, err := convertWith(sel.WithClause)
		if err != nil {
			return nil, err
		}
		out.CTEs = ctes
	}

	if sel.Op != pg_query.SetOperation_SETOP_NONE {
		switch sel.Op {
		case pg_query.SetOperation_SETOP_UNION:
			out.Op = pgast.SetOpUnion
		case pg_query.SetOperation_SETOP_INTERSECT:
			out.Op = pgast.SetOpIntersect
		case pg_query.SetOperation_SETOP_EXCEPT:
			out.Op = pgast.SetOpExcept
		default:
			return nil, fmt.Errorf("unsupported set operation")
		}
		out.All = sel.All
		larg, err := convertSelect(sel.Larg)
		if err != nil {
			return nil, err
		}
		rarg, err := convertSelect(sel.Rarg)
		if err != nil {
			return nil, err
		}
		out.Larg = larg
		out.Rarg = rarg
		return out, nil
	}

	if len(sel.ValuesLists) > 0 {
		for _, row := range sel.ValuesLists {
			list, ok := row.Node.(*pg_query.Node_List)
			if !ok {
				return nil, fmt.Errorf("malformed VALUES list")
			}
			vals := make([]pgast.Expr, 0, len(list.List.Items))
			for _, item := range list.List.Items {
				v, err := convertExpr(item)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
			out.Values = append(out.Values, vals)
		}
		return out, nil
	}

	out.Distinct = len(sel.DistinctClause) > 0

	for _, t := range sel.TargetList {
		rt, err := convertResTarget(t)
		if err != nil {
			return nil, err
		}
		out.TargetList = append(out.TargetList, rt)
	}
	for _, f := range sel.FromClause {
		ref, err := convertTableRef(f)
		if err != nil {
			return nil, err
		}
		out.From = append(out.From, ref)
	}

	var err error
	if out.Where, err = convertOptExpr(sel.WhereClause); err != nil {
		return nil, err
	}
	for _, g := range sel.GroupClause {
		ge, err := convertExpr(g)
		if err != nil {
			return nil, err
		}
		out.GroupBy = append(out.GroupBy, ge)
	}
	if out.Having, err = convertOptExpr(sel.HavingClause); err != nil {
		return nil, err
	}
	for _, s := range sel.SortClause {
		ob, err := convertSortBy(s)
		if err != nil {
			return nil, err
		}
		out.SortBy = append(out.SortBy, ob)
	}
	if out.LimitCount, err = convertOptExpr(sel.LimitCount); err != nil {
		return nil, err
	}
	if out.LimitOffset, err = convertOptExpr(sel.LimitOffset); err != nil {
		return nil, err
	}
	return out, nil
}

func convertInsert(ins *pg_query.InsertStmt) (*pgast.InsertStmt, error) {
	out := &pgast.InsertStmt{Span: relationSpan(ins.Relation)}

	if ins.WithClause != nil {
		ctes, err := convertWith(ins.WithClause)
		if err != nil {
			return nil, err
		}
		out.CTEs = ctes
	}
	if ins.Relation == nil {
		return nil, fmt.Errorf("INSERT requires a table name")
	}
	rv, err := convertRangeVar(ins.Relation)
	if err != nil {
		return nil, err
	}
	out.Relation = rv

	for _, col := range ins.Cols {
		rt, ok := col.Node.(*pg_query.Node_ResTarget)
		if !ok {
			return nil, fmt.Errorf("malformed INSERT column list")
		}
		out.Cols = append(out.Cols, pgast.InsertCol{
			Name: rt.ResTarget.Name,
			Span: pgast.Span(rt.ResTarget.Location),
		})
	}

	if ins.SelectStmt != nil {
		src, ok := ins.SelectStmt.Node.(*pg_query.Node_SelectStmt)
		if !ok {
			return nil, fmt.Errorf("unsupported INSERT source")
		}
		sel, err := convertSelect(src.SelectStmt)
		if err != nil {
			return nil, err
		}
		out.SelectStmt = sel
	}

	if ins.OnConflictClause != nil {
		return nil, fmt.Errorf("unsupported INSERT clause: ON CONFLICT")
	}
	for _, r := range ins.ReturningList {
		rt, err := convertResTarget(r)
		if err != nil {
			return nil, err
		}
		out.Returning = append(out.Returning, rt)
	}
	return out, nil
}

func convertCopy(cp *pg_query.CopyStmt) (*pgast.CopyStmt, error) {
	out := &pgast.CopyStmt{
		Span:      relationSpan(cp.Relation),
		IsFrom:    cp.IsFrom,
		IsProgram: cp.IsProgram,
		Filename:  cp.Filename,
	}
	if cp.Relation != nil {
		rv, err := convertRangeVar(cp.Relation)
		if err != nil {
			return nil, err
		}
		out.Relation = rv
	}
	if cp.Query != nil {
		query, err := convertStmt(cp.Query)
		if err != nil {
			return nil, err
		}
		out.Query = query
	}
	for _, att := range cp.Attlist {
		s, ok := att.Node.(*pg_query.Node_String_)
		if !ok {
			return nil, fmt.Errorf("malformed COPY column list")
		}
		out.ColNames = append(out.ColNames, pgast.InsertCol{Name: s.String_.Sval, Span: out.Span})
	}
	for _, opt := range cp.Options {
		def, ok := opt.Node.(*pg_query.Node_DefElem)
		if !ok {
			return nil, fmt.Errorf("malformed COPY option")
		}
		option := pgast.CopyOption{Name: def.DefElem.Defname}
		if def.DefElem.Arg != nil {
			arg, err := defElemString(def.DefElem.Arg)
			if err != nil {
				return nil, err
			}
			option.Arg = arg
		}
		out.Options = append(out.Options, option)
	}
	var err error
	if out.Where, err = convertOptExpr(cp.WhereClause); err != nil {
		return nil, err
	}
	return out, nil
}

// defElemString renders a COPY option argument back to plain text.
func defElemString(node *pg_query.Node) (string, error) {
	switch n := node.Node.(type) {
	case *pg_query.Node_String_:
		return n.String_.Sval, nil
	case *pg_query.Node_Integer:
		return strconv.Itoa(int(n.Integer.Ival)), nil
	case *pg_query.Node_Float:
		return n.Float.Fval, nil
	case *pg_query.Node_Boolean:
		return strconv.FormatBool(n.Boolean.Boolval), nil
	case *pg_query.Node_AConst:
		c, err := convertConst(n.AConst)
		if err != nil {
			return "", err
		}
		return pgast.FormatExpr(c), nil
	}
	return "", fmt.Errorf("unsupported COPY option argument: %T", node.Node)
}

func convertWith(with *pg_query.WithClause) ([]*pgast.CommonTableExpr, error) {
	if with.Recursive {
		return nil, fmt.Errorf("unsupported clause: WITH RECURSIVE")
	}
	var out []*pgast.CommonTableExpr
	for _, item := range with.Ctes {
		cte, ok := item.Node.(*pg_query.Node_CommonTableExpr)
		if !ok {
			return nil, fmt.Errorf("malformed WITH clause")
		}
		query, err := convertStmt(cte.CommonTableExpr.Ctequery)
		if err != nil {
			return nil, err
		}
		out = append(out, &pgast.CommonTableExpr{
			Name:  cte.CommonTableExpr.Ctename,
			Query: query,
		})
	}
	return out, nil
}

func convertResTarget(node *pg_query.Node) (pgast.ResTarget, error) {
	rt, ok := node.Node.(*pg_query.Node_ResTarget)
	if !ok {
		return pgast.ResTarget{}, fmt.Errorf("malformed target list")
	}
	out := pgast.ResTarget{
		Span: pgast.Span(rt.ResTarget.Location),
		Name: rt.ResTarget.Name,
	}

	// `*` and `t.*` arrive as column references with a star field
	if ref, ok := rt.ResTarget.Val.Node.(*pg_query.Node_ColumnRef); ok {
		fields := ref.ColumnRef.Fields
		if len(fields) > 0 {
			if _, isStar := fields[len(fields)-1].Node.(*pg_query.Node_AStar); isStar {
				if len(fields) == 1 {
					out.Star = true
					return out, nil
				}
				table, ok := fields[len(fields)-2].Node.(*pg_query.Node_String_)
				if !ok {
					return pgast.ResTarget{}, fmt.Errorf("malformed star expansion")
				}
				out.TableStar = table.String_.Sval
				return out, nil
			}
		}
	}

	val, err := convertExpr(rt.ResTarget.Val)
	if err != nil {
		return pgast.ResTarget{}, err
	}
	out.Val = val
	return out, nil
}

func convertSortBy(node *pg_query.Node) (pgast.OrderBy, error) {
	sb, ok := node.Node.(*pg_query.Node_SortBy)
	if !ok {
		return pgast.OrderBy{}, fmt.Errorf("malformed ORDER BY")
	}
	expr, err := convertExpr(sb.SortBy.Node)
	if err != nil {
		return pgast.OrderBy{}, err
	}
	return pgast.OrderBy{
		Expr:       expr,
		Desc:       sb.SortBy.SortbyDir == pg_query.SortByDir_SORTBY_DESC,
		NullsFirst: sb.SortBy.SortbyNulls == pg_query.SortByNulls_SORTBY_NULLS_FIRST,
	}, nil
}

func convertTableRef(node *pg_query.Node) (pgast.TableRef, error) {
	switch n := node.Node.(type) {
	case *pg_query.Node_RangeVar:
		return convertRangeVar(n.RangeVar)
	case *pg_query.Node_RangeSubselect:
		sub, err := convertStmt(n.RangeSubselect.Subquery)
		if err != nil {
			return nil, err
		}
		sel, ok := sub.(*pgast.SelectStmt)
		if !ok {
			return nil, fmt.Errorf("unsupported subquery statement: %T", sub)
		}
		out := &pgast.RangeSubselect{
			Span:     pgast.NoSpan,
			Lateral:  n.RangeSubselect.Lateral,
			Subquery: sel,
		}
		out.Alias = convertAlias(n.RangeSubselect.Alias)
		return out, nil
	case *pg_query.Node_JoinExpr:
		return convertJoin(n.JoinExpr)
	}
	return nil, fmt.Errorf("unsupported FROM entry: %T", node.Node)
}

func convertRangeVar(rv *pg_query.RangeVar) (*pgast.RangeVar, error) {
	if rv.Catalogname != "" {
		return nil, fmt.Errorf("unsupported catalog-qualified name %q", rv.Catalogname)
	}
	return &pgast.RangeVar{
		Span:   pgast.Span(rv.Location),
		Schema: rv.Schemaname,
		Name:   rv.Relname,
		Alias:  convertAlias(rv.Alias),
	}, nil
}

func convertAlias(alias *pg_query.Alias) *pgast.Alias {
	if alias == nil {
		return nil
	}
	out := &pgast.Alias{Name: alias.Aliasname}
	for _, col := range alias.Colnames {
		if s, ok := col.Node.(*pg_query.Node_String_); ok {
			out.Columns = append(out.Columns, s.String_.Sval)
		}
	}
	return out
}

func convertJoin(join *pg_query.JoinExpr) (*pgast.JoinExpr, error) {
	var jt pgast.JoinType
	switch join.Jointype {
	case pg_query.JoinType_JOIN_INNER:
		jt = pgast.JoinInner
	case pg_query.JoinType_JOIN_LEFT:
		jt = pgast.JoinLeft
	case pg_query.JoinType_JOIN_RIGHT:
		jt = pgast.JoinRight
	case pg_query.JoinType_JOIN_FULL:
		jt = pgast.JoinFull
	default:
		return nil, fmt.Errorf("unsupported join type")
	}
	larg, err := convertTableRef(join.Larg)
	if err != nil {
		return nil, err
	}
	rarg, err := convertTableRef(join.Rarg)
	if err != nil {
		return nil, err
	}
	out := &pgast.JoinExpr{Type: jt, Larg: larg, Rarg: rarg}
	if out.Condition, err = convertOptExpr(join.Quals); err != nil {
		return nil, err
	}
	for _, u := range join.UsingClause {
		if s, ok := u.Node.(*pg_query.Node_String_); ok {
			out.Using = append(out.Using, s.String_.Sval)
		}
	}
	return out, nil
}
