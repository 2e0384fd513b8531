// Package eqlast defines the object-query AST the DML preprocessor builds.
// These trees are never parsed from text; the resolver constructs them
// directly and hands them to the object-query compiler.
package eqlast

// Expr is the base interface for all object-query nodes.
type Expr interface {
	exprNode()
}

// PathStep is a single step of a Path.
type PathStep interface {
	pathStepNode()
}

// === Path steps ===

// Anchor references a pre-bound external value by name (the compiler resolves
// it through the anchor map given in the compile options).
type Anchor struct {
	Name string
}

func (*Anchor) pathStepNode() {}

// ObjectRef references a named binding or object type.
type ObjectRef struct {
	Name string
}

func (*ObjectRef) pathStepNode() {}
func (*ObjectRef) exprNode()     {}

// Ptr is a pointer traversal step. Property marks a link-property step.
type Ptr struct {
	Name     string
	Property bool
}

func (*Ptr) pathStepNode() {}

// === Expressions ===

// Path is a chain of steps. Partial paths have an implicit leading subject.
type Path struct {
	Steps   []PathStep
	Partial bool
}

func (*Path) exprNode() {}

// TypeCast casts an expression to a named type.
type TypeCast struct {
	Type ObjectRef
	Expr Expr
}

func (*TypeCast) exprNode() {}

// BinOp is a binary operation.
type BinOp struct {
	Left  Expr
	Op    string
	Right Expr
}

func (*BinOp) exprNode() {}

// DetachedExpr evaluates its inner expression in a detached scope; the
// compiler isolates it into a private namespace.
type DetachedExpr struct {
	Expr Expr
}

func (*DetachedExpr) exprNode() {}

// Shape attaches shape elements to an expression. A nil Expr means the shape
// applies to the enclosing statement's free subject.
type Shape struct {
	Expr     Expr
	Elements []ShapeElement
}

func (*Shape) exprNode() {}

// ShapeOp is the assignment mode of a shape element.
type ShapeOp string

const (
	ShapeAssign ShapeOp = "ASSIGN"
	ShapeAppend ShapeOp = "APPEND"
)

// ShapeElement is one element of a shape: a pointer path, an optional
// operation, and an optional computed expression.
type ShapeElement struct {
	Expr     *Path
	Op       ShapeOp
	CompExpr Expr
}

// === Statements ===

// InsertQuery inserts one object of Subject's type.
type InsertQuery struct {
	Subject ObjectRef
	Shape   []ShapeElement
}

func (*InsertQuery) exprNode() {}

// UpdateQuery updates objects of the subject path matching Where.
type UpdateQuery struct {
	Subject *Path
	Where   Expr
	Shape   []ShapeElement
}

func (*UpdateQuery) exprNode() {}

// ForQuery evaluates Result once per element of Iterator.
type ForQuery struct {
	Iterator      Expr
	IteratorAlias string
	Result        Expr
}

func (*ForQuery) exprNode() {}

// AliasedExpr is a WITH-block binding of a select query.
type AliasedExpr struct {
	Alias string
	Expr  Expr
}

// SelectQuery selects Result with optional alias bindings.
type SelectQuery struct {
	Aliases []AliasedExpr
	Result  Expr
}

func (*SelectQuery) exprNode() {}
