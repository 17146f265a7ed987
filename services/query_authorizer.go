package services

import (
	"regexp"
	"strconv"
	"strings"

	rsql "github.com/rqlite/sql"
)

const (
	defaultRowLimit = 5
	maxRowLimit     = 100
)

// scopeColumns maps each identity-bearing table to the column holding the
// owning user's email.
var scopeColumns = map[string]string{
	"users":           "email",
	"user_profiles":   "user_id",
	"food_logs":       "user_id",
	"recommendations": "user_id",
}

var mutationKeywords = regexp.MustCompile(`(?i)\b(insert|update|delete|alter|drop|create|replace|truncate)\b`)

// QueryAuthorizer validates a raw statement and rewrites it so it can only
// read the calling user's rows, bounded by a row limit. It is a pure
// string-to-string transform: every rejection is terminal and it never
// repairs an unsafe statement into a safe one.
type QueryAuthorizer struct{}

func NewQueryAuthorizer() *QueryAuthorizer { return &QueryAuthorizer{} }

func (a *QueryAuthorizer) Authorize(rawQuery, identity string) (string, error) {
	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return "", newQueryError(ErrUnsafeOperation, "empty query")
	}

	// Separator count runs before everything else.
	if strings.Count(trimmed, ";") > 1 {
		return "", newQueryError(ErrMultipleStatements, "multiple SQL statements are not allowed")
	}

	// Keyword screen: any text containing a mutation keyword as a whole word
	// is rejected, even inside a string literal. The parse below is the
	// structural check; this is the hard contract callers rely on.
	if m := mutationKeywords.FindString(trimmed); m != "" {
		return "", newQueryError(ErrUnsafeOperation,
			"%s is not allowed; only SELECT queries are permitted", strings.ToUpper(m))
	}

	stmtText := strings.TrimRight(trimmed, "; \t\r\n")
	if strings.Contains(stmtText, ";") {
		return "", newQueryError(ErrMultipleStatements, "multiple SQL statements are not allowed")
	}

	// Interior separators were rejected above, so stmtText holds at most one
	// statement.
	stmt, err := rsql.NewParser(strings.NewReader(stmtText)).ParseStatement()
	if err != nil {
		return "", newQueryError(ErrUnsafeOperation, "could not parse query: %v", err)
	}

	sel, ok := stmt.(*rsql.SelectStatement)
	if !ok {
		return "", newQueryError(ErrUnsafeOperation, "only SELECT queries are permitted")
	}

	if err := rejectHiddenSelects(sel); err != nil {
		return "", err
	}
	if err := a.scopeSelect(sel, identity); err != nil {
		return "", err
	}
	applyLimit(sel)

	return sel.String(), nil
}

// scopedTable is one identity-bearing table referenced by the FROM clause.
type scopedTable struct {
	table  string // table name, lower-cased
	ref    string // alias when present, else the table name
	column string // scope column for this table
}

// scopeSelect enforces the scoping predicate on sel, recursing into FROM
// subqueries and compound (UNION/INTERSECT/EXCEPT) arms first. Each arm of a
// compound select reads the tables independently, so each is scoped on its
// own.
func (a *QueryAuthorizer) scopeSelect(sel *rsql.SelectStatement, identity string) error {
	if sel.Compound != nil {
		if err := a.scopeSelect(sel.Compound, identity); err != nil {
			return err
		}
	}
	if sel.Source != nil {
		if err := a.scopeNested(sel.Source, identity); err != nil {
			return err
		}
	}

	targets := scopedTables(sel.Source)
	if len(targets) == 0 {
		return nil
	}
	if identity == "" {
		return newQueryError(ErrAuthenticationRequired, "authentication required to query user data")
	}

	// Only predicates on the top-level AND chain count as scoping; a
	// predicate buried under OR can be widened away, so it is ignored and
	// the caller's own predicate is injected on top.
	bound := false
	for _, t := range targets {
		for _, conj := range andConjuncts(sel.WhereExpr) {
			val, ok := scopeEquality(conj, t)
			if !ok {
				continue
			}
			if val != identity {
				return newQueryError(ErrUnsafeOperation, "query is restricted to a different user")
			}
			bound = true
		}
	}
	if bound {
		return nil
	}

	t := targets[0]
	pred := &rsql.BinaryExpr{
		X:  scopeColumnRef(t, len(targets) > 1 || t.ref != t.table),
		Op: rsql.EQ,
		Y:  &rsql.StringLit{Value: identity},
	}
	if sel.WhereExpr == nil {
		sel.WhereExpr = pred
	} else {
		// The existing expression must be parenthesized: serialization emits
		// no parentheses of its own, and a bare `a OR b AND scope` rebinds
		// the scope predicate to the last conjunct only.
		sel.WhereExpr = &rsql.BinaryExpr{
			X:  &rsql.ParenExpr{X: sel.WhereExpr},
			Op: rsql.AND,
			Y:  pred,
		}
	}
	return nil
}

// rejectHiddenSelects refuses any SELECT the scoper does not visit: scalar
// subqueries in the select list, EXISTS/IN subqueries in WHERE or HAVING, and
// CTE bodies. Scoping covers FROM-clause subqueries and compound arms only,
// so a select anywhere else would read tables unscoped.
func rejectHiddenSelects(sel *rsql.SelectStatement) error {
	scan := &hiddenSelectScan{visible: map[*rsql.SelectStatement]bool{}}
	markVisibleSelects(sel, scan.visible)
	_, err := rsql.Walk(scan, sel)
	return err
}

type hiddenSelectScan struct {
	visible map[*rsql.SelectStatement]bool
}

func (s *hiddenSelectScan) Visit(n rsql.Node) (rsql.Visitor, rsql.Node, error) {
	switch sel := n.(type) {
	case *rsql.WithClause:
		return nil, nil, newQueryError(ErrUnsafeOperation, "WITH clauses are not allowed")
	case rsql.SelectExpr, *rsql.Exists:
		return nil, nil, newQueryError(ErrUnsafeOperation,
			"subqueries are only allowed in the FROM clause")
	case *rsql.SelectStatement:
		if !s.visible[sel] {
			return nil, nil, newQueryError(ErrUnsafeOperation,
				"subqueries are only allowed in the FROM clause")
		}
	}
	return s, n, nil
}

func (s *hiddenSelectScan) VisitEnd(n rsql.Node) (rsql.Node, error) { return n, nil }

// markVisibleSelects records every select the scoper will reach: the
// statement itself, its compound arms, and FROM subqueries, recursively.
func markVisibleSelects(sel *rsql.SelectStatement, set map[*rsql.SelectStatement]bool) {
	for s := sel; s != nil; s = s.Compound {
		set[s] = true
		markVisibleSourceSelects(s.Source, set)
	}
}

func markVisibleSourceSelects(src rsql.Source, set map[*rsql.SelectStatement]bool) {
	switch s := src.(type) {
	case *rsql.JoinClause:
		markVisibleSourceSelects(s.X, set)
		markVisibleSourceSelects(s.Y, set)
	case *rsql.ParenSource:
		markVisibleSourceSelects(s.X, set)
	case *rsql.SelectStatement:
		markVisibleSelects(s, set)
	}
}

func (a *QueryAuthorizer) scopeNested(src rsql.Source, identity string) error {
	switch s := src.(type) {
	case *rsql.JoinClause:
		if err := a.scopeNested(s.X, identity); err != nil {
			return err
		}
		return a.scopeNested(s.Y, identity)
	case *rsql.ParenSource:
		return a.scopeNested(s.X, identity)
	case *rsql.SelectStatement:
		return a.scopeSelect(s, identity)
	}
	return nil
}

func scopedTables(src rsql.Source) []scopedTable {
	switch s := src.(type) {
	case *rsql.QualifiedTableName:
		name := strings.ToLower(s.Name.Name)
		col, ok := scopeColumns[name]
		if !ok {
			return nil
		}
		ref := name
		if s.Alias != nil {
			ref = s.Alias.Name
		}
		return []scopedTable{{table: name, ref: ref, column: col}}
	case *rsql.JoinClause:
		return append(scopedTables(s.X), scopedTables(s.Y)...)
	case *rsql.ParenSource:
		return scopedTables(s.X)
	}
	return nil
}

// andConjuncts flattens the AND chain of expr, looking through parentheses.
func andConjuncts(expr rsql.Expr) []rsql.Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *rsql.BinaryExpr:
		if e.Op == rsql.AND {
			return append(andConjuncts(e.X), andConjuncts(e.Y)...)
		}
	case *rsql.ParenExpr:
		return andConjuncts(e.X)
	}
	return []rsql.Expr{expr}
}

// scopeEquality reports the identity value bound by conj when conj is an
// equality between t's scope column and a string value.
func scopeEquality(conj rsql.Expr, t scopedTable) (string, bool) {
	be, ok := conj.(*rsql.BinaryExpr)
	if !ok || be.Op != rsql.EQ {
		return "", false
	}
	if refersToScopeColumn(be.X, t) {
		return stringValue(be.Y)
	}
	if refersToScopeColumn(be.Y, t) {
		return stringValue(be.X)
	}
	return "", false
}

func refersToScopeColumn(expr rsql.Expr, t scopedTable) bool {
	switch e := expr.(type) {
	case *rsql.Ident:
		return strings.EqualFold(e.Name, t.column)
	case *rsql.QualifiedRef:
		if e.Table == nil || e.Column == nil {
			return false
		}
		return strings.EqualFold(e.Table.Name, t.ref) &&
			strings.EqualFold(e.Column.Name, t.column)
	}
	return false
}

func stringValue(expr rsql.Expr) (string, bool) {
	switch e := expr.(type) {
	case *rsql.StringLit:
		return e.Value, true
	case *rsql.Ident:
		// SQLite falls back to treating a double-quoted identifier as a
		// string; match that so `user_id = "a@b.com"` is seen as a value.
		if e.Quoted {
			return e.Name, true
		}
	}
	return "", false
}

func scopeColumnRef(t scopedTable, qualify bool) rsql.Expr {
	if !qualify {
		return &rsql.Ident{Name: t.column}
	}
	return &rsql.QualifiedRef{
		Table:  &rsql.Ident{Name: t.ref},
		Column: &rsql.Ident{Name: t.column},
	}
}

// applyLimit appends LIMIT 5 when absent and clamps explicit limits to the
// hard maximum. Anything but a plain non-negative integer literal resets to
// the default: LIMIT -1 parses as a unary expression and means unlimited in
// SQLite, so expressions never pass through.
func applyLimit(sel *rsql.SelectStatement) {
	n, ok := sel.LimitExpr.(*rsql.NumberLit)
	if !ok {
		sel.LimitExpr = &rsql.NumberLit{Value: strconv.Itoa(defaultRowLimit)}
		return
	}
	v, err := strconv.Atoi(n.Value)
	switch {
	case err != nil || v < 0:
		sel.LimitExpr = &rsql.NumberLit{Value: strconv.Itoa(defaultRowLimit)}
	case v > maxRowLimit:
		n.Value = strconv.Itoa(maxRowLimit)
	}
}
