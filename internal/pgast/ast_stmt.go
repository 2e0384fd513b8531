package pgast

// === Statement Nodes ===

// SelectStmt represents a SELECT statement. Exactly one of the three forms is
// populated: a plain select core (TargetList/From/...), a VALUES list
// (Values), or a set operation (Op with Larg/Rarg).
type SelectStmt struct {
	Span Span

	CTEs []*CommonTableExpr

	// select core
	Distinct   bool
	TargetList []ResTarget
	From       []TableRef
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	SortBy     []OrderBy

	// VALUES (...), (...)
	Values [][]Expr

	// set operation
	Op   SetOp
	All  bool
	Larg *SelectStmt
	Rarg *SelectStmt

	LimitCount  Expr
	LimitOffset Expr
}

func (*SelectStmt) node()     {}
func (*SelectStmt) stmtNode() {}

// SetOp classifies set operations between two selects.
type SetOp string

const (
	SetOpNone      SetOp = ""
	SetOpUnion     SetOp = "UNION"
	SetOpIntersect SetOp = "INTERSECT"
	SetOpExcept    SetOp = "EXCEPT"
)

// CommonTableExpr is a single CTE of a WITH clause.
type CommonTableExpr struct {
	Name  string
	Query Stmt
}

// OrderBy is one ORDER BY item.
type OrderBy struct {
	Expr       Expr
	Desc       bool
	NullsFirst bool
}

// ResTarget is an output column of a SELECT target list or RETURNING clause.
// Star and TableStar represent `*` and `t.*` respectively.
type ResTarget struct {
	Span      Span
	Name      string // output alias, may be empty
	Val       Expr
	Star      bool
	TableStar string
}

// InsertCol is one name of an INSERT column list.
type InsertCol struct {
	Name string
	Span Span
}

// InsertStmt represents an INSERT statement. SelectStmt is the row source;
// nil means DEFAULT VALUES.
type InsertStmt struct {
	Span       Span
	CTEs       []*CommonTableExpr
	Relation   *RangeVar
	Cols       []InsertCol
	SelectStmt *SelectStmt
	Returning  []ResTarget
}

func (*InsertStmt) node()     {}
func (*InsertStmt) stmtNode() {}

// UpdateStmt represents an UPDATE statement. The resolver rejects these; the
// node exists so rejection can name the target and report a position.
type UpdateStmt struct {
	Span     Span
	Relation *RangeVar
	Targets  []ResTarget
	From     []TableRef
	Where    Expr
}

func (*UpdateStmt) node()     {}
func (*UpdateStmt) stmtNode() {}

// DeleteStmt represents a DELETE statement. Rejected, like UpdateStmt.
type DeleteStmt struct {
	Span     Span
	Relation *RangeVar
	Where    Expr
}

func (*DeleteStmt) node()     {}
func (*DeleteStmt) stmtNode() {}

// CopyStmt represents COPY ... FROM/TO. Either Relation or Query is set.
type CopyStmt struct {
	Span      Span
	Relation  *RangeVar
	ColNames  []InsertCol
	Query     Stmt
	IsFrom    bool
	IsProgram bool
	Filename  string
	Options   []CopyOption
	Where     Expr
}

func (*CopyStmt) node()     {}
func (*CopyStmt) stmtNode() {}

// CopyOption is a single COPY option, passed through unmodified.
type CopyOption struct {
	Name string
	Arg  string // raw argument text, empty for bare options
}
