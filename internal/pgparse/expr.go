package pgparse

import (
	"fmt"
	"strconv"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

func convertOptExpr(node *pg_query.Node) (pgast.Expr, error) {
	if node == nil {
		return nil, nil
	}
	return convertExpr(node)
}

func convertExpr(node *pg_query.Node) (pgast.Expr, error) {
	if node == nil {
		return nil, fmt.Errorf("empty expression")
	}
	switch n := node.Node.(type) {
	case *pg_query.Node_ColumnRef:
		return convertColumnRef(n.ColumnRef)
	case *pg_query.Node_AConst:
		return convertConst(n.AConst)
	case *pg_query.Node_ParamRef:
		return &pgast.ParamRef{
			Span:   pgast.Span(n.ParamRef.Location),
			Number: int(n.ParamRef.Number),
		}, nil
	case *pg_query.Node_SetToDefault:
		return &pgast.SetToDefault{Span: pgast.Span(n.SetToDefault.Location)}, nil
	case *pg_query.Node_FuncCall:
		return convertFuncCall(n.FuncCall)
	case *pg_query.Node_TypeCast:
		return convertTypeCast(n.TypeCast)
	case *pg_query.Node_AExpr:
		return convertAExpr(n.AExpr)
	case *pg_query.Node_BoolExpr:
		return convertBoolExpr(n.BoolExpr)
	case *pg_query.Node_SubLink:
		return convertSubLink(n.SubLink)
	case *pg_query.Node_NullTest:
		return nil, fmt.Errorf("unsupported expression: IS NULL test")
	}
	return nil, fmt.Errorf("unsupported expression: %T", node.Node)
}

func convertColumnRef(ref *pg_query.ColumnRef) (pgast.Expr, error) {
	names := make([]string, 0, len(ref.Fields))
	for _, field := range ref.Fields {
		switch f := field.Node.(type) {
		case *pg_query.Node_String_:
			names = append(names, f.String_.Sval)
		case *pg_query.Node_AStar:
			return nil, fmt.Errorf("star expansion is only allowed in target lists")
		default:
			return nil, fmt.Errorf("unsupported column reference field: %T", field.Node)
		}
	}
	out := &pgast.ColumnRef{Span: pgast.Span(ref.Location)}
	switch len(names) {
	case 1:
		out.Column = names[0]
	case 2:
		out.Table = names[0]
		out.Column = names[1]
	default:
		return nil, fmt.Errorf("unsupported column reference depth: %d", len(names))
	}
	return out, nil
}

func convertConst(c *pg_query.A_Const) (pgast.Expr, error) {
	span := pgast.Span(c.Location)
	if c.Isnull {
		return &pgast.NullConst{Span: span}, nil
	}
	switch v := c.Val.(type) {
	case *pg_query.A_Const_Ival:
		return &pgast.NumericConst{Span: span, Val: strconv.Itoa(int(v.Ival.Ival))}, nil
	case *pg_query.A_Const_Fval:
		return &pgast.NumericConst{Span: span, Val: v.Fval.Fval}, nil
	case *pg_query.A_Const_Sval:
		return &pgast.StringConst{Span: span, Val: v.Sval.Sval}, nil
	case *pg_query.A_Const_Boolval:
		return &pgast.BoolConst{Span: span, Val: v.Boolval.Boolval}, nil
	}
	return nil, fmt.Errorf("unsupported constant")
}

func convertFuncCall(fc *pg_query.FuncCall) (pgast.Expr, error) {
	names := make([]string, 0, len(fc.Funcname))
	for _, n := range fc.Funcname {
		s, ok := n.Node.(*pg_query.Node_String_)
		if !ok {
			return nil, fmt.Errorf("malformed function name")
		}
		names = append(names, s.String_.Sval)
	}
	out := &pgast.FuncCall{Span: pgast.Span(fc.Location), AggStar: fc.AggStar}
	switch len(names) {
	case 1:
		out.Name = names[0]
	case 2:
		out.Schema = names[0]
		out.Name = names[1]
	default:
		return nil, fmt.Errorf("unsupported function name depth: %d", len(names))
	}
	for _, arg := range fc.Args {
		a, err := convertExpr(arg)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, a)
	}
	return out, nil
}

func convertTypeCast(tc *pg_query.TypeCast) (pgast.Expr, error) {
	arg, err := convertExpr(tc.Arg)
	if err != nil {
		return nil, err
	}
	if tc.TypeName == nil {
		return nil, fmt.Errorf("malformed type cast")
	}
	var names []string
	for _, n := range tc.TypeName.Names {
		s, ok := n.Node.(*pg_query.Node_String_)
		if !ok {
			return nil, fmt.Errorf("malformed type name")
		}
		// pg_catalog qualification carries no information here
		if s.String_.Sval == "pg_catalog" {
			continue
		}
		names = append(names, s.String_.Sval)
	}
	return &pgast.TypeCast{
		Span: pgast.Span(tc.Location),
		Arg:  arg,
		Type: pgast.TypeName{Names: names},
	}, nil
}

func convertAExpr(ae *pg_query.A_Expr) (pgast.Expr, error) {
	if ae.Kind != pg_query.A_Expr_Kind_AEXPR_OP {
		return nil, fmt.Errorf("unsupported operator expression")
	}
	if len(ae.Name) != 1 {
		return nil, fmt.Errorf("unsupported qualified operator")
	}
	op, ok := ae.Name[0].Node.(*pg_query.Node_String_)
	if !ok {
		return nil, fmt.Errorf("malformed operator")
	}
	left, err := convertExpr(ae.Lexpr)
	if err != nil {
		return nil, err
	}
	right, err := convertExpr(ae.Rexpr)
	if err != nil {
		return nil, err
	}
	return &pgast.BinaryExpr{
		Span:  pgast.Span(ae.Location),
		Left:  left,
		Op:    op.String_.Sval,
		Right: right,
	}, nil
}

func convertBoolExpr(be *pg_query.BoolExpr) (pgast.Expr, error) {
	var op string
	switch be.Boolop {
	case pg_query.BoolExprType_AND_EXPR:
		op = "AND"
	case pg_query.BoolExprType_OR_EXPR:
		op = "OR"
	default:
		return nil, fmt.Errorf("unsupported boolean expression: NOT")
	}
	if len(be.Args) < 2 {
		return nil, fmt.Errorf("malformed boolean expression")
	}
	out, err := convertExpr(be.Args[0])
	if err != nil {
		return nil, err
	}
	for _, arg := range be.Args[1:] {
		right, err := convertExpr(arg)
		if err != nil {
			return nil, err
		}
		out = &pgast.BinaryExpr{
			Span:  pgast.Span(be.Location),
			Left:  out,
			Op:    op,
			Right: right,
		}
	}
	return out, nil
}

func convertSubLink(sl *pg_query.SubLink) (pgast.Expr, error) {
	sub, ok := sl.Subselect.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return nil, fmt.Errorf("unsupported subquery expression")
	}
	sel, err := convertSelect(sub.SelectStmt)
	if err != nil {
		return nil, err
	}
	switch sl.SubLinkType {
	case pg_query.SubLinkType_EXISTS_SUBLINK:
		return &pgast.SubLink{Span: pgast.Span(sl.Location), Exists: true, Select: sel}, nil
	case pg_query.SubLinkType_EXPR_SUBLINK:
		return &pgast.SubLink{Span: pgast.Span(sl.Location), Select: sel}, nil
	}
	return nil, fmt.Errorf("unsupported subquery link type")
}
