package resolver

import (
	"strconv"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/eqlast"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
)

// compiledDML is the compiled form of one DML statement: its slice of the
// batch-compiled CTEs and the expressions producing each subject column over
// the output relation.
type compiledDML struct {
	plan *dmlPlan

	outputCTEs    []*pgast.CommonTableExpr
	outputRelName string

	// outputNamespace gives, per visible subject column, the expression
	// valid over the output relation.
	outputNamespace []outputColumn
}

type outputColumn struct {
	name string
	val  pgast.Expr
}

// compileDML finds all DML statements of the query (the statement itself and
// its immediate WITH bindings), translates each to an object-query statement
// and compiles them all in a single compiler invocation. Results are filed
// under each source statement for the wiring pass to pick up.
func compileDML(c *Context, stmt pgast.Stmt) error {
	stmts := collectDMLStmts(stmt)
	if len(stmts) == 0 {
		return nil
	}

	plans := make([]*dmlPlan, len(stmts))
	for i, s := range stmts {
		plan, err := c.preprocessInsert(s)
		if err != nil {
			return err
		}
		plans[i] = plan
	}

	merged := &eqlast.SelectQuery{Result: &eqlast.Shape{}}
	opts := compiler.Options{
		Anchors:              map[string]compiler.PathID{},
		AllowUserSpecifiedID: c.opts.AllowUserSpecifiedID,
	}
	names := make([]string, len(plans))
	for i, plan := range plans {
		names[i] = "dml_" + strconv.Itoa(i)
		merged.Aliases = append(merged.Aliases, eqlast.AliasedExpr{
			Alias: names[i],
			Expr:  &eqlast.DetachedExpr{Expr: plan.eqlStmt},
		})
		shape := merged.Result.(*eqlast.Shape)
		shape.Elements = append(shape.Elements, eqlast.ShapeElement{
			Expr: &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.Ptr{Name: names[i]}}, Partial: true},
			CompExpr: &eqlast.Shape{
				Expr:     &eqlast.Path{Steps: []eqlast.PathStep{&eqlast.ObjectRef{Name: names[i]}}},
				Elements: plan.returning,
			},
		})
		opts.Anchors[plan.anchorName] = plan.root
		opts.Singletons = append(opts.Singletons, plan.root)
	}

	ir, err := c.compiler.CompileToIR(merged, opts)
	if err != nil {
		return errData(stmts[0].Span, "%s", err)
	}

	muts := mutatingByName(ir)
	rels := make([]compiler.ExternalRel, 0, len(plans))
	for i, plan := range plans {
		mut, ok := muts[names[i]]
		if !ok {
			return errData(stmts[0].Span, "compiled query lost statement %s", names[i])
		}
		ns := mut.Subject.Namespace()
		outputs := plan.external.Rel.Outputs()
		rewritten := make([]compiler.PathOutput, len(outputs))
		for j, out := range outputs {
			rewritten[j] = compiler.PathOutput{
				Path:   compiler.ScopePath(out.Path, ns...),
				Aspect: out.Aspect,
				Var:    out.Var,
			}
		}
		plan.external.Rel.ReplaceOutputs(rewritten)
		rels = append(rels, plan.external)
	}

	res, err := c.compiler.CompileIRToSQL(ir, rels)
	if err != nil {
		return errData(stmts[0].Span, "%s", err)
	}

	ctes := append([]*compiler.CTE(nil), res.CTEs...)
	for i, plan := range plans {
		group, rest := takeStmtCTEs(ctes, muts[names[i]])
		ctes = rest
		if len(group) == 0 {
			return errData(plan.stmt.Span, "compiled query produced no relations for statement %s", names[i])
		}
		compiled, err := attachCompiled(plan, group)
		if err != nil {
			return err
		}
		c.compiledDML[plan.stmt] = compiled
	}

	// remaining relations belong to no single statement (trigger work and
	// the like) and go at the end of the top-level query
	for _, cte := range ctes {
		c.tailCTEs = append(c.tailCTEs, cte.Decl())
	}
	return nil
}

// collectDMLStmts gathers DML from the statement itself and its immediate
// WITH bindings. Deeper nesting is rejected later, during resolution.
func collectDMLStmts(stmt pgast.Stmt) []*pgast.InsertStmt {
	var out []*pgast.InsertStmt
	var ctes []*pgast.CommonTableExpr
	switch s := stmt.(type) {
	case *pgast.InsertStmt:
		ctes = s.CTEs
	case *pgast.SelectStmt:
		ctes = s.CTEs
	case *pgast.CopyStmt:
		if s.Query != nil {
			return collectDMLStmts(s.Query)
		}
		return nil
	}
	for _, cte := range ctes {
		if ins, ok := cte.Query.(*pgast.InsertStmt); ok {
			out = append(out, ins)
		}
	}
	if ins, ok := stmt.(*pgast.InsertStmt); ok {
		out = append(out, ins)
	}
	return out
}

// mutatingByName indexes the compiled bindings' mutating statements by
// binding name.
func mutatingByName(ir *compiler.IR) map[string]*compiler.IRMutating {
	muts := make(map[string]*compiler.IRMutating, len(ir.Shape))
	for _, binding := range ir.Shape {
		mut := compiler.UnwrapMutating(binding.Expr)
		if mut == nil {
			continue
		}
		muts[binding.Name] = mut
	}
	return muts
}

// takeStmtCTEs pops the statement's CTEs from the front of the list: every
// CTE up to and including the contiguous run marked for the statement. CTEs
// preceding the first marked one are dependencies and travel with the group.
func takeStmtCTEs(ctes []*compiler.CTE, mut *compiler.IRMutating) (group, rest []*compiler.CTE) {
	found := false
	i := 0
	for i < len(ctes) {
		matches := ctes[i].ForDML == mut
		if !matches && found {
			break
		}
		if matches {
			found = true
		}
		i++
	}
	if !found {
		return nil, ctes
	}
	return ctes[:i], ctes[i:]
}

// attachCompiled joins a plan with its compiled CTE group, resolving each
// subject column to an expression over the group's output relation. The
// serialized aspect is preferred, then value, then identity; source and
// target columns always read the like-named column of the output relation.
func attachCompiled(plan *dmlPlan, group []*compiler.CTE) (*compiledDML, error) {
	last := group[len(group)-1]

	type ptrKey struct {
		name   string
		aspect compiler.Aspect
	}
	ptrMap := map[ptrKey]pgast.Expr{}
	for _, out := range last.Outputs {
		name := out.Path.RptrName()
		if name == "" {
			name = "id"
		}
		ptrMap[ptrKey{name, out.Aspect}] = out.Var
	}

	compiled := &compiledDML{plan: plan, outputRelName: last.Name}
	for _, cte := range group {
		compiled.outputCTEs = append(compiled.outputCTEs, cte.Decl())
	}
	for _, sc := range plan.subjectColumns {
		val := ptrMap[ptrKey{sc.pointer, compiler.AspectSerialized}]
		if val == nil {
			val = ptrMap[ptrKey{sc.pointer, compiler.AspectValue}]
		}
		if val == nil {
			val = ptrMap[ptrKey{sc.pointer, compiler.AspectIdentity}]
		}
		if sc.pointer == "source" || sc.pointer == "target" {
			val = &pgast.ColumnRef{Span: pgast.NoSpan, Column: sc.pointer}
		}
		if val == nil {
			panic("pointer " + sc.pointer + " was in shape but has no output")
		}
		compiled.outputNamespace = append(compiled.outputNamespace,
			outputColumn{name: sc.column, val: val})
	}
	return compiled, nil
}
