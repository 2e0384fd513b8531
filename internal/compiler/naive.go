package compiler

import (
	"fmt"
	"strconv"

	"github.com/EdgeRel/EdgeRel/internal/eqlast"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

// Naive is a reference implementation of the Compiler boundary. It lowers the
// synthetic object-query statements the DML preprocessor builds into
// storage-level SQL CTEs, with a private namespace per detached binding and
// mutating-statement markers plus path outputs on every emitted relation.
//
// It is deliberately small: no inheritance splitting, no triggers, no
// rewrites. Anything it cannot lower is reported as a compile error.
type Naive struct {
	catalog *schema.Catalog
	next    func(prefix string) string
	counter int
}

var _ Compiler = (*Naive)(nil)

// NewNaive returns a reference compiler over the given catalog. aliasNext
// generates unique relation aliases; pass nil for an internal counter.
func NewNaive(catalog *schema.Catalog, aliasNext func(prefix string) string) *Naive {
	n := &Naive{catalog: catalog, next: aliasNext}
	if n.next == nil {
		n.next = func(prefix string) string {
			n.counter++
			return prefix + "_" + strconv.Itoa(n.counter)
		}
	}
	return n
}

// CompileToIR compiles the merged synthetic statement. Each aliased detached
// binding is isolated into its own private namespace.
func (c *Naive) CompileToIR(expr eqlast.Expr, opts Options) (*IR, error) {
	sel, ok := expr.(*eqlast.SelectQuery)
	if !ok {
		return nil, fmt.Errorf("compile: expected select query, got %T", expr)
	}
	shape, ok := sel.Result.(*eqlast.Shape)
	if !ok {
		return nil, fmt.Errorf("compile: expected shape result, got %T", sel.Result)
	}

	returningByName := make(map[string][]eqlast.ShapeElement, len(shape.Elements))
	for _, el := range shape.Elements {
		name := terminalPtrName(el.Expr)
		if inner, ok := el.CompExpr.(*eqlast.Shape); ok {
			returningByName[name] = inner.Elements
		}
	}

	ir := &IR{opts: opts}
	for i, aliased := range sel.Aliases {
		detached, ok := aliased.Expr.(*eqlast.DetachedExpr)
		if !ok {
			return nil, fmt.Errorf("compile: binding %q is not detached", aliased.Alias)
		}
		stmt := detached.Expr
		if loop, ok := stmt.(*eqlast.ForQuery); ok {
			stmt = loop.Result
		}
		switch stmt.(type) {
		case *eqlast.InsertQuery, *eqlast.UpdateQuery:
		default:
			return nil, fmt.Errorf("compile: binding %q is not a mutating statement", aliased.Alias)
		}

		anchor := findAnchor(detached.Expr)
		if anchor == "" {
			// A statement with an empty shape references no anchor by
			// expression. Its subject root is still listed in Singletons
			// in binding order.
			if i < len(opts.Singletons) {
				root := opts.Singletons[i]
				for name, p := range opts.Anchors {
					if p.Key() == root.Key() {
						anchor = name
						break
					}
				}
			}
			if anchor == "" {
				return nil, fmt.Errorf("compile: binding %q references no anchor", aliased.Alias)
			}
		}
		root, ok := opts.Anchors[anchor]
		if !ok {
			return nil, fmt.Errorf("compile: unknown anchor %q", anchor)
		}

		ns := "ns~" + aliased.Alias
		mut := &IRMutating{
			Subject:    root.ReplaceNamespace(ns),
			stmt:       stmt,
			anchorName: anchor,
			namespace:  ns,
			returning:  returningByName[aliased.Alias],
		}
		ir.Shape = append(ir.Shape, IRBinding{
			Name: aliased.Alias,
			Expr: &IRSelect{Result: mut},
		})
	}
	return ir, nil
}

// CompileIRToSQL lowers every mutating binding to storage-level SQL,
// substituting external relations for anchor paths.
func (c *Naive) CompileIRToSQL(ir *IR, externalRels []ExternalRel) (*SQLResult, error) {
	relByAnchor := make(map[string]*ExternalRel, len(externalRels))
	for i := range externalRels {
		relByAnchor[externalRels[i].Anchor.Key()] = &externalRels[i]
	}

	res := &SQLResult{Tree: &pgast.SelectStmt{
		TargetList: []pgast.ResTarget{{Val: &pgast.NumericConst{Val: "1"}}},
	}}

	for _, binding := range ir.Shape {
		mut := UnwrapMutating(binding.Expr)
		if mut == nil {
			return nil, fmt.Errorf("compile: binding %q has no mutating statement", binding.Name)
		}
		root, ok := ir.opts.Anchors[mut.anchorName]
		if !ok {
			return nil, fmt.Errorf("compile: unknown anchor %q", mut.anchorName)
		}
		ext, ok := relByAnchor[root.Key()]
		if !ok {
			return nil, fmt.Errorf("compile: no external relation for anchor %q", mut.anchorName)
		}

		var ctes []*CTE
		var err error
		switch stmt := mut.stmt.(type) {
		case *eqlast.InsertQuery:
			ctes, err = c.lowerInsert(stmt, mut, root, ext)
		case *eqlast.UpdateQuery:
			ctes, err = c.lowerPointerUpdate(stmt, mut, root, ext)
		default:
			err = fmt.Errorf("compile: cannot lower %T", mut.stmt)
		}
		if err != nil {
			return nil, err
		}
		res.CTEs = append(res.CTEs, ctes...)
	}
	return res, nil
}

// lowerInsert lowers `insert Type { ptr := value.ptr, ... }` into an insert
// on the type's storage relation, reading rows from the external value
// relation.
func (c *Naive) lowerInsert(
	stmt *eqlast.InsertQuery, mut *IRMutating, root PathID, ext *ExternalRel,
) ([]*CTE, error) {
	t, ok := c.catalog.TypeByName(stmt.Subject.Name)
	if !ok {
		return nil, fmt.Errorf("compile: unknown object type %q", stmt.Subject.Name)
	}

	scopedRoot := ScopePath(root, mut.namespace)
	if _, ok := ext.Rel.Lookup(scopedRoot, AspectIterator); !ok {
		return nil, fmt.Errorf("compile: external relation %q provides no iterator for %s",
			ext.Rel.Name, scopedRoot)
	}

	var cols []pgast.InsertCol
	var vals []pgast.ResTarget
	assignsID := false
	for _, el := range stmt.Shape {
		ptrName := terminalPtrName(el.Expr)
		ptr, ok := t.Pointer(ptrName)
		if !ok {
			return nil, fmt.Errorf("compile: object type %q has no pointer %q", t.Name(), ptrName)
		}
		if ptrName == "id" {
			assignsID = true
		}
		path := ScopePath(root.Extend(ptr), mut.namespace)
		val, err := c.lookupValue(ext.Rel, path, ptr.Target() != nil)
		if err != nil {
			return nil, err
		}
		cols = append(cols, pgast.InsertCol{Name: ptrName, Span: pgast.NoSpan})
		vals = append(vals, pgast.ResTarget{Name: ptrName, Val: val})
	}
	if !assignsID {
		cols = append([]pgast.InsertCol{{Name: "id", Span: pgast.NoSpan}}, cols...)
		vals = append([]pgast.ResTarget{{
			Name: "id",
			Val:  &pgast.FuncCall{Schema: "edgerel", Name: "uuid_generate_v4"},
		}}, vals...)
	}

	insCTE := &CTE{
		Name:   c.next("ins"),
		ForDML: mut,
		Query: &pgast.InsertStmt{
			Span:     pgast.NoSpan,
			Relation: &pgast.RangeVar{Span: pgast.NoSpan, Name: t.ID().String()},
			Cols:     cols,
			SelectStmt: &pgast.SelectStmt{
				Span:       pgast.NoSpan,
				TargetList: vals,
				From:       []pgast.TableRef{&pgast.RangeVar{Span: pgast.NoSpan, Name: ext.Rel.Name}},
			},
			Returning: []pgast.ResTarget{{Star: true}},
		},
	}

	outCTE := &CTE{
		Name:   c.next("ins_out"),
		ForDML: mut,
		Query: &pgast.SelectStmt{
			Span:       pgast.NoSpan,
			TargetList: []pgast.ResTarget{{Star: true}},
			From:       []pgast.TableRef{&pgast.RangeVar{Span: pgast.NoSpan, Name: insCTE.Name}},
		},
	}
	// RETURNING * exposes every storage column, so the output relation can
	// carry a path output per single pointer regardless of what was inserted.
	outCTE.Outputs = append(outCTE.Outputs, PathOutput{
		Path:   ScopePath(root, mut.namespace),
		Aspect: AspectIdentity,
		Var:    &pgast.ColumnRef{Span: pgast.NoSpan, Column: "id"},
	})
	for _, ptr := range t.Pointers() {
		if ptr.Cardinality() == schema.Many {
			continue
		}
		outCTE.Outputs = append(outCTE.Outputs, PathOutput{
			Path:   ScopePath(root.Extend(ptr), mut.namespace),
			Aspect: AspectValue,
			Var:    &pgast.ColumnRef{Span: pgast.NoSpan, Column: ptr.Name()},
		})
	}
	return []*CTE{insCTE, outCTE}, nil
}

// lowerPointerUpdate lowers `update Source filter ... set { link += ... }`
// (a link/property-table insert) into an insert on the pointer's storage
// relation.
func (c *Naive) lowerPointerUpdate(
	stmt *eqlast.UpdateQuery, mut *IRMutating, root PathID, ext *ExternalRel,
) ([]*CTE, error) {
	if len(stmt.Subject.Steps) == 0 {
		return nil, fmt.Errorf("compile: update subject has no steps")
	}
	typeRef, ok := stmt.Subject.Steps[0].(*eqlast.ObjectRef)
	if !ok {
		return nil, fmt.Errorf("compile: update subject is not a type reference")
	}
	t, ok := c.catalog.TypeByName(typeRef.Name)
	if !ok {
		return nil, fmt.Errorf("compile: unknown object type %q", typeRef.Name)
	}
	if len(stmt.Shape) != 1 {
		return nil, fmt.Errorf("compile: pointer update must set exactly one pointer")
	}
	el := stmt.Shape[0]
	ptrName := terminalPtrName(el.Expr)
	ptr, ok := t.Pointer(ptrName)
	if !ok {
		return nil, fmt.Errorf("compile: object type %q has no pointer %q", t.Name(), ptrName)
	}

	scopedRoot := ScopePath(root, mut.namespace)
	if _, ok := ext.Rel.Lookup(scopedRoot, AspectIterator); !ok {
		return nil, fmt.Errorf("compile: external relation %q provides no iterator for %s",
			ext.Rel.Name, scopedRoot)
	}
	srcVal, err := c.lookupValue(ext.Rel, scopedRoot, true)
	if err != nil {
		return nil, err
	}
	link, isLink := ptr.(*schema.Link)
	tgtPath := ScopePath(root.Extend(ptr), mut.namespace)
	tgtVal, err := c.lookupValue(ext.Rel, tgtPath, isLink)
	if err != nil {
		return nil, err
	}

	cols := []pgast.InsertCol{
		{Name: "source", Span: pgast.NoSpan},
		{Name: "target", Span: pgast.NoSpan},
	}
	vals := []pgast.ResTarget{
		{Name: "source", Val: srcVal},
		{Name: "target", Val: tgtVal},
	}

	// link properties come from the sub-shape of the assigned value
	if inner, ok := el.CompExpr.(*eqlast.Shape); ok && isLink {
		for _, propEl := range inner.Elements {
			propName := terminalPtrName(propEl.Expr)
			prop, ok := link.Property(propName)
			if !ok {
				return nil, fmt.Errorf("compile: link %q has no property %q", link.Name(), propName)
			}
			propPath := ScopePath(root.Extend(ptr).PtrPath().Extend(prop), mut.namespace)
			val, err := c.lookupValue(ext.Rel, propPath, false)
			if err != nil {
				return nil, err
			}
			cols = append(cols, pgast.InsertCol{Name: propName, Span: pgast.NoSpan})
			vals = append(vals, pgast.ResTarget{Name: propName, Val: val})
		}
	}

	insCTE := &CTE{
		Name:   c.next("lnk"),
		ForDML: mut,
		Query: &pgast.InsertStmt{
			Span:     pgast.NoSpan,
			Relation: &pgast.RangeVar{Span: pgast.NoSpan, Name: ptr.ID().String()},
			Cols:     cols,
			SelectStmt: &pgast.SelectStmt{
				Span:       pgast.NoSpan,
				TargetList: vals,
				From:       []pgast.TableRef{&pgast.RangeVar{Span: pgast.NoSpan, Name: ext.Rel.Name}},
			},
			Returning: []pgast.ResTarget{{Star: true}},
		},
	}

	outCTE := &CTE{
		Name:   c.next("lnk_out"),
		ForDML: mut,
		Query: &pgast.SelectStmt{
			Span:       pgast.NoSpan,
			TargetList: []pgast.ResTarget{{Star: true}},
			From:       []pgast.TableRef{&pgast.RangeVar{Span: pgast.NoSpan, Name: insCTE.Name}},
		},
	}
	if isLink {
		for _, prop := range link.Properties() {
			if prop.Name() == "source" || prop.Name() == "target" {
				continue
			}
			propPath := ScopePath(root.Extend(ptr).PtrPath().Extend(prop), mut.namespace)
			outCTE.Outputs = append(outCTE.Outputs, PathOutput{
				Path:   propPath,
				Aspect: AspectValue,
				Var:    &pgast.ColumnRef{Span: pgast.NoSpan, Column: prop.Name()},
			})
		}
	}
	return []*CTE{insCTE, outCTE}, nil
}

// lookupValue resolves a path to an output expression of the external
// relation, preferring the identity aspect for object-valued paths.
func (c *Naive) lookupValue(rel *Relation, path PathID, object bool) (pgast.Expr, error) {
	if object {
		if v, ok := rel.Lookup(path, AspectIdentity); ok {
			return v, nil
		}
	}
	if v, ok := rel.Lookup(path, AspectValue); ok {
		return v, nil
	}
	return nil, fmt.Errorf("compile: external relation %q provides no output for path %s",
		rel.Name, path)
}

// UnwrapMutating descends through select and pointer wrappers to the
// mutating statement at the core of a binding, or nil if there is none.
func UnwrapMutating(n IRNode) *IRMutating {
	for n != nil {
		switch node := n.(type) {
		case *IRMutating:
			return node
		case *IRSelect:
			n = node.Result
		case *IRPointer:
			n = node.Source
		default:
			return nil
		}
	}
	return nil
}

// terminalPtrName returns the name of the last pointer step of a path.
func terminalPtrName(p *eqlast.Path) string {
	if p == nil {
		return ""
	}
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if ptr, ok := p.Steps[i].(*eqlast.Ptr); ok {
			return ptr.Name
		}
	}
	return ""
}

// findAnchor returns the name of the first anchor referenced by the
// expression tree, or "".
func findAnchor(e eqlast.Expr) string {
	switch expr := e.(type) {
	case *eqlast.Path:
		for _, step := range expr.Steps {
			if a, ok := step.(*eqlast.Anchor); ok {
				return a.Name
			}
		}
	case *eqlast.DetachedExpr:
		return findAnchor(expr.Expr)
	case *eqlast.ForQuery:
		if name := findAnchor(expr.Iterator); name != "" {
			return name
		}
		return findAnchor(expr.Result)
	case *eqlast.InsertQuery:
		for _, el := range expr.Shape {
			if name := findAnchor(el.CompExpr); name != "" {
				return name
			}
		}
	case *eqlast.UpdateQuery:
		if name := findAnchor(expr.Where); name != "" {
			return name
		}
		for _, el := range expr.Shape {
			if name := findAnchor(el.CompExpr); name != "" {
				return name
			}
		}
	case *eqlast.Shape:
		if name := findAnchor(expr.Expr); name != "" {
			return name
		}
		for _, el := range expr.Elements {
			if name := findAnchor(el.CompExpr); name != "" {
				return name
			}
		}
	case *eqlast.TypeCast:
		return findAnchor(expr.Expr)
	case *eqlast.BinOp:
		if name := findAnchor(expr.Left); name != "" {
			return name
		}
		return findAnchor(expr.Right)
	}
	return ""
}
