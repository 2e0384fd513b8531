package pgast

// === Expression Nodes ===

// ColumnRef is a column reference, optionally qualified with a table alias.
type ColumnRef struct {
	Span   Span
	Table  string
	Column string
}

func (*ColumnRef) node()     {}
func (*ColumnRef) exprNode() {}

// StringConst is a string literal.
type StringConst struct {
	Span Span
	Val  string
}

func (*StringConst) node()     {}
func (*StringConst) exprNode() {}

// NumericConst is an integer or float literal, kept as source text.
type NumericConst struct {
	Span Span
	Val  string
}

func (*NumericConst) node()     {}
func (*NumericConst) exprNode() {}

// BoolConst is TRUE or FALSE.
type BoolConst struct {
	Span Span
	Val  bool
}

func (*BoolConst) node()     {}
func (*BoolConst) exprNode() {}

// NullConst is NULL.
type NullConst struct {
	Span Span
}

func (*NullConst) node()     {}
func (*NullConst) exprNode() {}

// SetToDefault is the DEFAULT placeholder inside a VALUES row.
type SetToDefault struct {
	Span Span
}

func (*SetToDefault) node()     {}
func (*SetToDefault) exprNode() {}

// ParamRef is a positional query parameter ($1, $2, ...).
type ParamRef struct {
	Span   Span
	Number int
}

func (*ParamRef) node()     {}
func (*ParamRef) exprNode() {}

// FuncCall is a function invocation. AggStar represents count(*).
type FuncCall struct {
	Span    Span
	Schema  string
	Name    string
	Args    []Expr
	AggStar bool
}

func (*FuncCall) node()     {}
func (*FuncCall) exprNode() {}

// TypeCast is expr::type.
type TypeCast struct {
	Span Span
	Arg  Expr
	Type TypeName
}

func (*TypeCast) node()     {}
func (*TypeCast) exprNode() {}

// TypeName is a possibly schema-qualified type name.
type TypeName struct {
	Names []string
}

// BinaryExpr is left op right, with the operator kept as SQL text.
type BinaryExpr struct {
	Span  Span
	Left  Expr
	Op    string
	Right Expr
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// SubLink is a scalar or EXISTS subquery in expression position.
type SubLink struct {
	Span   Span
	Exists bool
	Select *SelectStmt
}

func (*SubLink) node()     {}
func (*SubLink) exprNode() {}
