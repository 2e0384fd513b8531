package pgast

import "strconv"

// formatExpr dispatches expression formatting by node kind.
func (f *formatter) formatExpr(e Expr) {
	if e == nil {
		return
	}

	switch expr := e.(type) {
	case *ColumnRef:
		if expr.Table != "" {
			f.writeIdent(expr.Table)
			f.write(".")
		}
		f.writeIdent(expr.Column)
	case *StringConst:
		f.write(quoteLiteral(expr.Val))
	case *NumericConst:
		f.write(expr.Val)
	case *BoolConst:
		if expr.Val {
			f.write("TRUE")
		} else {
			f.write("FALSE")
		}
	case *NullConst:
		f.write("NULL")
	case *SetToDefault:
		f.write("DEFAULT")
	case *ParamRef:
		f.write("$" + strconv.Itoa(expr.Number))
	case *FuncCall:
		if expr.Schema != "" {
			f.writeIdent(expr.Schema)
			f.write(".")
		}
		f.writeIdent(expr.Name)
		f.write("(")
		if expr.AggStar {
			f.write("*")
		} else {
			f.commaSep(len(expr.Args), func(i int) {
				f.formatExpr(expr.Args[i])
			})
		}
		f.write(")")
	case *TypeCast:
		f.write("(")
		f.formatExpr(expr.Arg)
		f.write(")::")
		for i, n := range expr.Type.Names {
			if i > 0 {
				f.write(".")
			}
			f.write(n)
		}
	case *BinaryExpr:
		f.write("(")
		f.formatExpr(expr.Left)
		f.write(" " + expr.Op + " ")
		f.formatExpr(expr.Right)
		f.write(")")
	case *SubLink:
		if expr.Exists {
			f.write("EXISTS ")
		}
		f.write("(")
		f.formatSelectStmt(expr.Select)
		f.write(")")
	}
}
