package pgast

// === Table Reference Nodes ===

// Alias is a range-variable alias, optionally with column aliases.
type Alias struct {
	Name    string
	Columns []string
}

// RangeVar is a named relation reference in a FROM clause or DML target.
type RangeVar struct {
	Span   Span
	Schema string
	Name   string
	Alias  *Alias
}

func (*RangeVar) node()         {}
func (*RangeVar) tableRefNode() {}

// RangeSubselect is a parenthesized subquery in a FROM clause.
type RangeSubselect struct {
	Span     Span
	Lateral  bool
	Subquery *SelectStmt
	Alias    *Alias
}

func (*RangeSubselect) node()         {}
func (*RangeSubselect) tableRefNode() {}

// JoinExpr is a join of two table references.
type JoinExpr struct {
	Span      Span
	Type      JoinType
	Larg      TableRef
	Rarg      TableRef
	Condition Expr
	Using     []string
}

func (*JoinExpr) node()         {}
func (*JoinExpr) tableRefNode() {}

// JoinType classifies SQL joins.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
)
