package sql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"
)

// Aggregation function names recognized inside a table-cell expression,
// fixed by the original compiler's modelAggregationSql.cpp.
const (
	fncAvg   = "OM_AVG"
	fncSum   = "OM_SUM"
	fncCount = "OM_COUNT"
	fncMin   = "OM_MIN"
	fncMax   = "OM_MAX"
	fncVar   = "OM_VAR"
	fncSD    = "OM_SD"
	fncSE    = "OM_SE"
	fncCV    = "OM_CV"
)

// sqlEquivalent maps each OM_* name to the plain-SQL aggregate it expands
// to at the current level; OM_VAR/OM_SD/OM_SE/OM_CV expand to a pushed-down
// average at level+1 instead and are handled separately.
var sqlEquivalent = map[string]string{
	fncAvg: "AVG", fncSum: "SUM", fncCount: "COUNT", fncMin: "MIN", fncMax: "MAX",
}

// leftDelim and rightDelim are the accumulator-name boundary characters:
// an identifier is only treated as an accumulator reference if immediately
// preceded/followed by one of these (or by the start/end of the
// expression), exactly as the original compiler's leftDelimArr/rightDelimArr
// do to avoid misreading a substring of a longer identifier.
var (
	leftDelim  = "(+-*/^|&~!=<>"
	rightDelim = ")+-*/^|&~!=<>"
)

// skipIfQuoted returns the index of the closing quote of a "..."/'...' run
// starting at pos (len(s)-1 when the run is unterminated), or pos unchanged
// if pos isn't the start of a quoted run.
func skipIfQuoted(pos int, s string) int {
	if pos >= len(s) {
		return pos
	}
	q := s[pos]
	if q != '"' && q != '\'' {
		return pos
	}
	for i := pos + 1; i < len(s); i++ {
		if s[i] == q {
			return i
		}
	}
	return len(s) - 1
}

// ModelAggregationSql rewrites a table_expr's OM_* call tree into the
// leveled self-join shape the original compiler's modelAggregationSql.cpp
// produces: a SELECT against the flattened accumulator rows at the table's
// own level (aliased M<level>), INNER JOINed against a nested SELECT at
// level+1 (aliased T<level+1>) whenever a variance-family function needs a
// pushed-down average. Translate's result is the complete SELECT text
// table_expr.expr_sql stores, not a bare expression fragment.
type ModelAggregationSql struct {
	gen      Generator
	subTable string // the flattened accumulator rows, e.g. "PersonTable_sub"
	dimCols  []string
	parser   *parser.Parser
}

// NewModelAggregationSql returns a rewriter over subTable (the flattened
// accumulator rows for one table), joining on dimCols plus run_id at every
// level the rewrite needs.
func NewModelAggregationSql(gen Generator, subTable string, dimCols []string) *ModelAggregationSql {
	return &ModelAggregationSql{gen: gen, subTable: subTable, dimCols: dimCols, parser: parser.New()}
}

// Translate rewrites expr (a table_expr's OM_* call tree) into the leveled
// SELECT statement starting at level 1, the table's own level.
func (m *ModelAggregationSql) Translate(expr string) (string, error) {
	return m.translateLevel(expr, 1)
}

func (m *ModelAggregationSql) levelAlias(level int) string { return fmt.Sprintf("M%d", level) }
func (m *ModelAggregationSql) nextAlias(level int) string  { return fmt.Sprintf("T%d", level+1) }

// translateLevel renders the complete SELECT statement for expr evaluated
// at level: run_id and every dimension column from the flattened
// accumulator alias, the rewritten expression as ex1, optionally an INNER
// JOIN against a level+1 pushed-down average, and a GROUP BY over run_id
// and the dimensions.
func (m *ModelAggregationSql) translateLevel(expr string, level int) (string, error) {
	alias := m.levelAlias(level)
	exprText, join, err := m.rewriteExpr(expr, level)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(alias + ".run_id")
	for _, d := range m.dimCols {
		sb.WriteString(", " + alias + "." + d)
	}
	sb.WriteString(", " + exprText + " AS ex1")
	sb.WriteString(" FROM " + m.subTable + " " + alias)
	if join != "" {
		sb.WriteString(" " + join)
	}
	sb.WriteString(" GROUP BY " + alias + ".run_id")
	for _, d := range m.dimCols {
		sb.WriteString(", " + alias + "." + d)
	}
	return sb.String(), nil
}

// rewriteExpr rewrites every OM_* call in expr into its plain-SQL
// equivalent at level, returning the INNER JOIN clause a variance-family
// function needed to pull in a level+1 pushed-down average, if any.
func (m *ModelAggregationSql) rewriteExpr(expr string, level int) (rendered string, join string, err error) {
	name, arg, rest, ok := m.firstCall(expr)
	if !ok {
		return m.qualifyBareIdentifiers(expr, m.levelAlias(level)), "", nil
	}

	alias := m.levelAlias(level)
	var thisJoin string
	switch name {
	case fncAvg, fncSum, fncCount, fncMin, fncMax:
		var validatedArg string
		validatedArg, err = m.validateExpr(m.qualifyBareIdentifiers(arg, alias))
		if err == nil {
			rendered = sqlEquivalent[name] + "(" + validatedArg + ")"
		}
	case fncVar:
		rendered, thisJoin, err = m.varianceExpr(arg, level)
	case fncSD:
		var variance string
		variance, thisJoin, err = m.varianceExpr(arg, level)
		if err == nil {
			rendered = "SQRT(" + variance + ")"
		}
	case fncSE:
		var variance string
		variance, thisJoin, err = m.varianceExpr(arg, level)
		if err == nil {
			rendered = "SQRT(" + variance + " / " + m.countExpr(arg, level) + ")"
		}
	case fncCV:
		var variance string
		variance, thisJoin, err = m.varianceExpr(arg, level)
		if err == nil {
			rendered = "(SQRT(" + variance + ") / " + m.nextAlias(level) + ".ex1)"
		}
	default:
		return "", "", fmt.Errorf("sql: unrecognized aggregation function %q", name)
	}
	if err != nil {
		return "", "", err
	}

	// rest is expr with the call cut out at idx: rewrite the text before and
	// after it separately so the call's expansion stays in its place.
	idx := strings.Index(expr, name+"(")
	prefixRendered, prefixJoin, err := m.rewriteExpr(rest[:idx], level)
	if err != nil {
		return "", "", err
	}
	restRendered, restJoin, err := m.rewriteExpr(rest[idx:], level)
	if err != nil {
		return "", "", err
	}
	join = thisJoin
	for _, other := range []string{prefixJoin, restJoin} {
		if other == "" {
			continue
		}
		if join != "" {
			return "", "", fmt.Errorf("sql: table expression %q would need more than one pushed-down level", expr)
		}
		join = other
	}
	return prefixRendered + rendered + restRendered, join, nil
}

// varianceExpr renders OM_VAR(arg)'s expansion at level: the sum of squared
// deviations from arg's average divided by (count - 1). The average itself
// is pushed to a level+1 nested SELECT (aliased T<level+1>, built by
// recursing into translateLevel for OM_AVG(arg)) that the caller INNER
// JOINs in; OM_SD/OM_SE/OM_CV all route through this one function so the
// pushed average is computed once and shared, never joined in twice for a
// single table_expr.
func (m *ModelAggregationSql) varianceExpr(arg string, level int) (rendered, join string, err error) {
	alias := m.levelAlias(level)
	nextAlias := m.nextAlias(level)

	validatedArg, err := m.validateExpr(m.qualifyBareIdentifiers(arg, alias))
	if err != nil {
		return "", "", err
	}

	nextQuery, err := m.translateLevel(fncAvg+"("+arg+")", level+1)
	if err != nil {
		return "", "", err
	}
	join = m.joinClause(alias, nextAlias, nextQuery)

	deviation := fmt.Sprintf("(%s - %s.ex1)", validatedArg, nextAlias)
	sumSq := "SUM(" + deviation + " * " + deviation + ")"
	return "(" + sumSq + " / (" + m.countExpr(arg, level) + " - 1))", join, nil
}

func (m *ModelAggregationSql) countExpr(arg string, level int) string {
	return "COUNT(" + m.qualifyBareIdentifiers(arg, m.levelAlias(level)) + ")"
}

// joinClause renders the INNER JOIN against a nested level+1 query,
// matching on run_id and every dimension column (property: the leveled
// join always groups by the same run_id/dims pair at every level).
func (m *ModelAggregationSql) joinClause(alias, nextAlias, nextQuery string) string {
	on := []string{alias + ".run_id = " + nextAlias + ".run_id"}
	for _, d := range m.dimCols {
		on = append(on, alias+"."+d+" = "+nextAlias+"."+d)
	}
	return "INNER JOIN (" + nextQuery + ") " + nextAlias + " ON " + strings.Join(on, " AND ")
}

// qualifyBareIdentifiers prefixes every accumulator-looking bare identifier
// in expr with alias, honoring the same left/right delimiter and
// quote-skipping rules as the original skipIfQuoted/delimiter scan.
func (m *ModelAggregationSql) qualifyBareIdentifiers(expr, alias string) string {
	var out strings.Builder
	i := 0
	for i < len(expr) {
		if skip := skipIfQuoted(i, expr); skip != i {
			out.WriteString(expr[i : skip+1])
			i = skip + 1
			continue
		}
		if isIdentStartByte(expr[i]) && (i == 0 || strings.ContainsRune(leftDelim, rune(expr[i-1])) || expr[i-1] == ' ') {
			j := i
			for j < len(expr) && isIdentByte(expr[j]) {
				j++
			}
			word := expr[i:j]
			if !strings.HasPrefix(word, "OM_") && !isKeyword(word) {
				out.WriteString(alias + "." + word)
			} else {
				out.WriteString(word)
			}
			i = j
			continue
		}
		out.WriteByte(expr[i])
		i++
	}
	return out.String()
}

func isIdentStartByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentByte(b byte) bool {
	return isIdentStartByte(b) || (b >= '0' && b <= '9')
}

var sqlKeywords = map[string]bool{
	"AND": true, "OR": true, "NOT": true, "NULL": true,
}

func isKeyword(word string) bool { return sqlKeywords[strings.ToUpper(word)] }

// firstCall tries the OM_* names in a fixed order (the variance family
// first, then AVG/SUM/COUNT/MIN/MAX) and, for the first name that occurs
// in expr, takes its first occurrence: it returns the name, the argument
// text, and expr with that whole call (up to its balanced closing paren)
// cut out.
func (m *ModelAggregationSql) firstCall(expr string) (name, arg, rest string, ok bool) {
	for _, fn := range []string{fncVar, fncSD, fncSE, fncCV, fncAvg, fncSum, fncCount, fncMin, fncMax} {
		idx := strings.Index(expr, fn+"(")
		if idx < 0 {
			continue
		}
		open := idx + len(fn)
		depth := 0
		for p := open; p < len(expr); p++ {
			switch expr[p] {
			case '(':
				depth++
			case ')':
				depth--
				if depth == 0 {
					return fn, expr[open+1 : p], expr[:idx] + expr[p+1:], true
				}
			}
		}
	}
	return "", "", expr, false
}

// validateExpr parses expr as a scalar SELECT expression through the TiDB
// parser and re-serializes it via the restorer, so a malformed
// non-aggregate sub-expression fails the build with a precise error
// instead of being passed through verbatim to the target database. Only
// ever called on an aggregate argument that has already been through
// qualifyBareIdentifiers — never on an empty "rest" remainder, which would
// parse as the invalid statement "SELECT ".
func (m *ModelAggregationSql) validateExpr(expr string) (string, error) {
	stmtNodes, _, err := m.parser.Parse("SELECT "+expr, "", "")
	if err != nil {
		return "", fmt.Errorf("sql: invalid aggregation sub-expression %q: %w", expr, err)
	}
	if len(stmtNodes) == 0 {
		return expr, nil
	}
	sel, ok := stmtNodes[0].(*ast.SelectStmt)
	if !ok || len(sel.Fields.Fields) == 0 {
		return expr, nil
	}

	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.RestoreStringSingleQuotes|format.RestoreKeyWordUppercase, &sb)
	if err := sel.Fields.Fields[0].Expr.Restore(ctx); err != nil {
		return "", fmt.Errorf("sql: failed to restore aggregation sub-expression %q: %w", expr, err)
	}
	return sb.String(), nil
}
