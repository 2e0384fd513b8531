// Package pgast defines the Postgres-flavored SQL AST the resolver operates
// on. Trees are produced by pgparse (from SQL text) or constructed directly by
// the resolver; Format renders them back to SQL.
//
// The node set is closed: new statement kinds are added by extending the
// variant set and the exhaustive switches in format_stmt.go.
package pgast

// Span is a byte offset into the original SQL text, used for positional
// error reporting. NoSpan marks nodes without a source position.
type Span int

// NoSpan marks a node that has no source position.
const NoSpan Span = -1

// Node is the base interface for all AST nodes.
type Node interface {
	node()
}

// Expr is a marker interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a marker interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// TableRef is a marker interface for FROM-clause items.
type TableRef interface {
	Node
	tableRefNode()
}
