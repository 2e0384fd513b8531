package compiler

import (
	"fmt"

	"github.com/EdgeRel/EdgeRel/internal/eqlast"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// PathOutput is one entry of a relation's path-output map: which expression
// of the relation exposes the given (path, aspect).
type PathOutput struct {
	Path   PathID
	Aspect Aspect
	Var    pgast.Expr
}

// Relation is a named relation carrying path outputs. The resolver builds
// phantom relations of this kind; the compiler emits compiled ones on CTEs.
type Relation struct {
	Name    string
	outputs []PathOutput
}

// NewRelation returns an empty relation with the given name.
func NewRelation(name string) *Relation {
	return &Relation{Name: name}
}

// AddOutput registers an output expression for (path, aspect).
// Duplicate keys are a defect in the caller and panic.
func (r *Relation) AddOutput(path PathID, aspect Aspect, v pgast.Expr) {
	key := path.Key()
	for _, o := range r.outputs {
		if o.Aspect == aspect && o.Path.Key() == key {
			panic(fmt.Sprintf("duplicate path output (%s, %s)", key, aspect))
		}
	}
	r.outputs = append(r.outputs, PathOutput{Path: path, Aspect: aspect, Var: v})
}

// Outputs returns the relation's path outputs in insertion order.
func (r *Relation) Outputs() []PathOutput { return r.outputs }

// Lookup finds the output expression for (path, aspect).
func (r *Relation) Lookup(path PathID, aspect Aspect) (pgast.Expr, bool) {
	key := path.Key()
	for _, o := range r.outputs {
		if o.Aspect == aspect && o.Path.Key() == key {
			return o.Var, true
		}
	}
	return nil, false
}

// ReplaceOutputs swaps the relation's path outputs wholesale. Used when the
// resolver rewrites output keys into a compiled namespace.
func (r *Relation) ReplaceOutputs(outputs []PathOutput) {
	r.outputs = outputs
}

// ExternalRel binds a phantom relation to the anchor path it stands in for,
// restricted to the aspect names it is allowed to supply.
type ExternalRel struct {
	Anchor  PathID
	Rel     *Relation
	Aspects []Aspect
}

// Options configures a CompileToIR invocation.
type Options struct {
	ModuleAliases        map[string]string
	Singletons           []PathID
	Anchors              map[string]PathID
	AllowUserSpecifiedID bool
}

// IRNode is a node of the compiled intermediate representation. The resolver
// only ever walks bindings down to the mutating statement node.
type IRNode interface {
	irNode()
}

// IRSelect wraps a nested select evaluation.
type IRSelect struct {
	Result IRNode
}

func (*IRSelect) irNode() {}

// IRPointer wraps a pointer traversal over its source.
type IRPointer struct {
	Source IRNode
}

func (*IRPointer) irNode() {}

// IRMutating is the compiled representative of one DML statement. Its Subject
// path carries the private namespace the compiler assigned to the statement's
// detached binding. IRMutating values are compared by identity: the marker on
// an emitted CTE is the *IRMutating it was generated for.
type IRMutating struct {
	Subject PathID

	// lowering inputs, private to the compiler implementation
	stmt       eqlast.Expr
	anchorName string
	namespace  string
	returning  []eqlast.ShapeElement
}

func (*IRMutating) irNode() {}

// IRBinding is one named top-level shape element of the compiled statement.
type IRBinding struct {
	Name string
	Expr IRNode
}

// IR is the result of CompileToIR.
type IR struct {
	Shape []IRBinding

	opts Options
}

// SQLResult is the result of CompileIRToSQL.
type SQLResult struct {
	Tree pgast.Stmt
	CTEs []*CTE
}

// CTE is one emitted common table expression, marked with the mutating IR
// node it was generated for and carrying the path outputs of its relation.
type CTE struct {
	Name    string
	Query   pgast.Stmt
	ForDML  *IRMutating
	Outputs []PathOutput
}

// Decl returns the CTE as a plain SQL node.
func (c *CTE) Decl() *pgast.CommonTableExpr {
	return &pgast.CommonTableExpr{Name: c.Name, Query: c.Query}
}

// Compiler is the object-query compiler: a synchronous, in-process, two-call
// boundary. CompileToIR compiles the synthetic object-query statement;
// CompileIRToSQL lowers the IR to SQL, substituting the given external
// relations for anchor paths. Errors returned from either call are caused by
// user-supplied data or shape, never by the resolver.
type Compiler interface {
	CompileToIR(expr eqlast.Expr, opts Options) (*IR, error)
	CompileIRToSQL(ir *IR, externalRels []ExternalRel) (*SQLResult, error)
}
