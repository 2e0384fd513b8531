package pgast

import "strings"

// formatStmt dispatches statement formatting by node kind.
func (f *formatter) formatStmt(stmt Stmt) {
	if stmt == nil {
		return
	}

	switch s := stmt.(type) {
	case *SelectStmt:
		f.formatSelectStmt(s)
	case *InsertStmt:
		f.formatInsertStmt(s)
	case *UpdateStmt:
		f.formatUpdateStmt(s)
	case *DeleteStmt:
		f.formatDeleteStmt(s)
	case *CopyStmt:
		f.formatCopyStmt(s)
	}
}

// === SELECT ===

func (f *formatter) formatSelectStmt(stmt *SelectStmt) {
	if stmt == nil {
		return
	}
	f.formatCTEs(stmt.CTEs)

	switch {
	case stmt.Op != SetOpNone:
		f.write("(")
		f.formatSelectStmt(stmt.Larg)
		f.write(") ")
		f.write(string(stmt.Op))
		if stmt.All {
			f.write(" ALL")
		}
		f.write(" (")
		f.formatSelectStmt(stmt.Rarg)
		f.write(")")
	case stmt.Values != nil:
		f.write("VALUES ")
		f.commaSep(len(stmt.Values), func(i int) {
			f.write("(")
			f.commaSep(len(stmt.Values[i]), func(j int) {
				f.formatExpr(stmt.Values[i][j])
			})
			f.write(")")
		})
	default:
		f.write("SELECT")
		if stmt.Distinct {
			f.write(" DISTINCT")
		}
		if len(stmt.TargetList) > 0 {
			f.space()
			f.commaSep(len(stmt.TargetList), func(i int) {
				f.formatResTarget(stmt.TargetList[i])
			})
		}
		if len(stmt.From) > 0 {
			f.write(" FROM ")
			f.commaSep(len(stmt.From), func(i int) {
				f.formatTableRef(stmt.From[i])
			})
		}
		if stmt.Where != nil {
			f.write(" WHERE ")
			f.formatExpr(stmt.Where)
		}
		if len(stmt.GroupBy) > 0 {
			f.write(" GROUP BY ")
			f.commaSep(len(stmt.GroupBy), func(i int) {
				f.formatExpr(stmt.GroupBy[i])
			})
		}
		if stmt.Having != nil {
			f.write(" HAVING ")
			f.formatExpr(stmt.Having)
		}
		if len(stmt.SortBy) > 0 {
			f.write(" ORDER BY ")
			f.commaSep(len(stmt.SortBy), func(i int) {
				f.formatExpr(stmt.SortBy[i].Expr)
				if stmt.SortBy[i].Desc {
					f.write(" DESC")
				}
				if stmt.SortBy[i].NullsFirst {
					f.write(" NULLS FIRST")
				}
			})
		}
	}

	if stmt.LimitCount != nil {
		f.write(" LIMIT ")
		f.formatExpr(stmt.LimitCount)
	}
	if stmt.LimitOffset != nil {
		f.write(" OFFSET ")
		f.formatExpr(stmt.LimitOffset)
	}
}

func (f *formatter) formatCTEs(ctes []*CommonTableExpr) {
	if len(ctes) == 0 {
		return
	}
	f.write("WITH ")
	f.commaSep(len(ctes), func(i int) {
		f.writeIdent(ctes[i].Name)
		f.write(" AS (")
		f.formatStmt(ctes[i].Query)
		f.write(")")
	})
	f.space()
}

func (f *formatter) formatResTarget(rt ResTarget) {
	switch {
	case rt.Star:
		f.write("*")
	case rt.TableStar != "":
		f.writeIdent(rt.TableStar)
		f.write(".*")
	default:
		f.formatExpr(rt.Val)
		if rt.Name != "" {
			f.write(" AS ")
			f.writeIdent(rt.Name)
		}
	}
}

func (f *formatter) formatTableRef(ref TableRef) {
	switch t := ref.(type) {
	case *RangeVar:
		if t.Schema != "" {
			f.writeIdent(t.Schema)
			f.write(".")
		}
		f.writeIdent(t.Name)
		f.formatAlias(t.Alias)
	case *RangeSubselect:
		if t.Lateral {
			f.write("LATERAL ")
		}
		f.write("(")
		f.formatSelectStmt(t.Subquery)
		f.write(")")
		if t.Alias == nil {
			// a bare subselect is not valid SQL, keep output parseable
			f.write(" AS " + quoteIdent("_"))
		} else {
			f.formatAlias(t.Alias)
		}
	case *JoinExpr:
		f.formatTableRef(t.Larg)
		if t.Type == JoinCross {
			f.write(" CROSS JOIN ")
			f.formatTableRef(t.Rarg)
			return
		}
		f.write(" " + string(t.Type) + " JOIN ")
		f.formatTableRef(t.Rarg)
		if t.Condition != nil {
			f.write(" ON ")
			f.formatExpr(t.Condition)
		} else if len(t.Using) > 0 {
			f.write(" USING (")
			f.commaSep(len(t.Using), func(i int) {
				f.writeIdent(t.Using[i])
			})
			f.write(")")
		}
	}
}

func (f *formatter) formatAlias(a *Alias) {
	if a == nil {
		return
	}
	f.write(" AS ")
	f.writeIdent(a.Name)
	if len(a.Columns) > 0 {
		f.write(" (")
		f.commaSep(len(a.Columns), func(i int) {
			f.writeIdent(a.Columns[i])
		})
		f.write(")")
	}
}

// === INSERT ===

func (f *formatter) formatInsertStmt(stmt *InsertStmt) {
	f.formatCTEs(stmt.CTEs)
	f.write("INSERT INTO ")
	f.formatTableRef(stmt.Relation)
	if len(stmt.Cols) > 0 {
		f.write(" (")
		f.commaSep(len(stmt.Cols), func(i int) {
			f.writeIdent(stmt.Cols[i].Name)
		})
		f.write(")")
	}
	if stmt.SelectStmt == nil {
		f.write(" DEFAULT VALUES")
	} else {
		f.space()
		f.formatSelectStmt(stmt.SelectStmt)
	}
	f.formatReturning(stmt.Returning)
}

func (f *formatter) formatReturning(rts []ResTarget) {
	if len(rts) == 0 {
		return
	}
	f.write(" RETURNING ")
	f.commaSep(len(rts), func(i int) {
		f.formatResTarget(rts[i])
	})
}

// === UPDATE / DELETE ===

func (f *formatter) formatUpdateStmt(stmt *UpdateStmt) {
	f.write("UPDATE ")
	f.formatTableRef(stmt.Relation)
	f.write(" SET ")
	f.commaSep(len(stmt.Targets), func(i int) {
		f.writeIdent(stmt.Targets[i].Name)
		f.write(" = ")
		f.formatExpr(stmt.Targets[i].Val)
	})
	if len(stmt.From) > 0 {
		f.write(" FROM ")
		f.commaSep(len(stmt.From), func(i int) {
			f.formatTableRef(stmt.From[i])
		})
	}
	if stmt.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(stmt.Where)
	}
}

func (f *formatter) formatDeleteStmt(stmt *DeleteStmt) {
	f.write("DELETE FROM ")
	f.formatTableRef(stmt.Relation)
	if stmt.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(stmt.Where)
	}
}

// === COPY ===

func (f *formatter) formatCopyStmt(stmt *CopyStmt) {
	f.write("COPY ")
	if stmt.Query != nil {
		f.write("(")
		f.formatStmt(stmt.Query)
		f.write(")")
	} else {
		f.formatTableRef(stmt.Relation)
		if len(stmt.ColNames) > 0 {
			f.write(" (")
			f.commaSep(len(stmt.ColNames), func(i int) {
				f.writeIdent(stmt.ColNames[i].Name)
			})
			f.write(")")
		}
	}
	if stmt.IsFrom {
		f.write(" FROM ")
	} else {
		f.write(" TO ")
	}
	if stmt.IsProgram {
		f.write("PROGRAM ")
	}
	if stmt.Filename == "" {
		if stmt.IsFrom {
			f.write("STDIN")
		} else {
			f.write("STDOUT")
		}
	} else {
		f.write(quoteLiteral(stmt.Filename))
	}
	if len(stmt.Options) > 0 {
		f.write(" WITH (")
		f.commaSep(len(stmt.Options), func(i int) {
			f.write(strings.ToUpper(stmt.Options[i].Name))
			if stmt.Options[i].Arg != "" {
				f.space()
				f.write(stmt.Options[i].Arg)
			}
		})
		f.write(")")
	}
	if stmt.Where != nil {
		f.write(" WHERE ")
		f.formatExpr(stmt.Where)
	}
}
