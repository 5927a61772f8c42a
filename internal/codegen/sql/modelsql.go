package sql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openmpp/ompc/internal/digest"
	"github.com/openmpp/ompc/internal/symtab"
)

// ModelSqlBuilder assembles the metadata-bootstrap scripts for one resolved
// model against a configured Generator.
type ModelSqlBuilder struct {
	gen    Generator
	table  *symtab.Table
	names  *digest.Assigner
	model  string
	digest string

	// tableNames/parameterNames cache the one assigned DB name each table
	// or parameter gets, so every script referencing the same symbol
	// (CreateTablesScript, CreateViewsScript, DropTablesScript, ...) agrees
	// on it — names.Assign is one-shot and would hand back a different,
	// collision-suffixed name on a second call for the same symbol.
	tableNames     map[string]string
	parameterNames map[string]string
}

// NewModelSqlBuilder returns a builder for modelName over tbl, assigning
// DB identifiers through names and tagging every script with modelDigest
// (internal/digest.ModelDigest's output).
func NewModelSqlBuilder(gen Generator, tbl *symtab.Table, names *digest.Assigner, modelName, modelDigest string) *ModelSqlBuilder {
	return &ModelSqlBuilder{
		gen: gen, table: tbl, names: names, model: modelName, digest: modelDigest,
		tableNames:     make(map[string]string),
		parameterNames: make(map[string]string),
	}
}

func (b *ModelSqlBuilder) tableDBName(name string) string {
	if got, ok := b.tableNames[name]; ok {
		return got
	}
	got := b.names.Assign(digest.NameKindTable, name)
	b.tableNames[name] = got
	return got
}

func (b *ModelSqlBuilder) parameterDBName(name string) string {
	if got, ok := b.parameterNames[name]; ok {
		return got
	}
	got := b.names.Assign(digest.NameKindParameter, name)
	b.parameterNames[name] = got
	return got
}

// incrementFunc maps an Increment's accumulator kind to the OM_* function
// name its corresponding table_expr row is built from, mirroring the
// original compiler's one-to-one accumulator/measure correspondence for the
// simple case this compiler's symbol table represents (one Increment
// standing for both the table_acc row and its default table_expr row).
var incrementFunc = map[symtab.IncrementKind]string{
	symtab.IncrementSum:   fncSum,
	symtab.IncrementAvg:   fncAvg,
	symtab.IncrementCount: fncCount,
	symtab.IncrementMin:   fncMin,
	symtab.IncrementMax:   fncMax,
	symtab.IncrementVar:   fncVar,
	symtab.IncrementSD:    fncSD,
	symtab.IncrementSE:    fncSE,
	symtab.IncrementCV:    fncCV,
}

// CreateModelScript returns the idempotent script that registers the model
// and every type/parameter/table it owns in openM++'s metadata tables,
// using the id_lst Hid-counter pattern for every _dic table that needs a
// model-wide unique id (type_dic, parameter_dic, table_dic) and a plain
// insert-if-absent for the child rows that reference a parent by digest.
func (b *ModelSqlBuilder) CreateModelScript() (string, error) {
	var out strings.Builder
	out.WriteString(b.gen.UpsertIfAbsent(
		"model_dic",
		[]string{"model_name", "model_digest"},
		[]string{b.gen.QuoteString(b.model), b.gen.QuoteString(b.digest)},
		[]string{"model_digest"},
	))
	out.WriteByte('\n')

	for _, sym := range b.table.Symbols() {
		switch sym.Kind {
		case symtab.KindType:
			b.writeTypeDic(&out, sym.Type)
		case symtab.KindParameter:
			b.writeParameterDic(&out, sym.Parameter)
		case symtab.KindTable:
			if err := b.writeTableDic(&out, sym.Table); err != nil {
				return "", err
			}
		}
	}
	return out.String(), nil
}

func (b *ModelSqlBuilder) writeTypeDic(out *strings.Builder, ty *symtab.TypeSymbol) {
	if ty == nil {
		return
	}
	typeDigest := digest.TypeDigest(ty.Name)
	out.WriteString(b.gen.UpsertWithHid(
		"type_dic", ty.Name+"_hid", "type_hid",
		[]string{"type_name", "type_digest"},
		[]string{b.gen.QuoteString(ty.Name), b.gen.QuoteString(typeDigest)},
		[]string{"type_digest"},
	))
	out.WriteByte('\n')

	out.WriteString(b.gen.UpsertIfAbsent(
		"model_type_dic",
		[]string{"model_digest", "type_digest"},
		[]string{b.gen.QuoteString(b.digest), b.gen.QuoteString(typeDigest)},
		[]string{"model_digest", "type_digest"},
	))
	out.WriteByte('\n')

	for i, name := range ty.Members {
		out.WriteString(b.gen.UpsertIfAbsent(
			"type_enum_lst",
			[]string{"type_digest", "enum_id", "enum_name"},
			[]string{b.gen.QuoteString(typeDigest), fmt.Sprintf("%d", i), b.gen.QuoteString(name)},
			[]string{"type_digest", "enum_id"},
		))
	}
	out.WriteByte('\n')
}

func (b *ModelSqlBuilder) writeParameterDic(out *strings.Builder, p *symtab.ParameterSymbol) {
	if p == nil {
		return
	}
	paramDigest := digest.ParameterDigest(p.Name)
	out.WriteString(b.gen.UpsertWithHid(
		"parameter_dic", p.Name+"_hid", "parameter_hid",
		[]string{"parameter_name", "parameter_digest"},
		[]string{b.gen.QuoteString(p.Name), b.gen.QuoteString(paramDigest)},
		[]string{"parameter_digest"},
	))
	out.WriteByte('\n')

	out.WriteString(b.gen.UpsertIfAbsent(
		"model_parameter_dic",
		[]string{"model_digest", "parameter_digest"},
		[]string{b.gen.QuoteString(b.digest), b.gen.QuoteString(paramDigest)},
		[]string{"model_digest", "parameter_digest"},
	))
	out.WriteByte('\n')

	for i, dimRef := range p.Dimensions {
		typeDigest := ""
		if dimSym := dimRef.Resolve(); dimSym != nil && dimSym.Type != nil {
			typeDigest = digest.TypeDigest(dimSym.Type.Name)
		}
		out.WriteString(b.gen.UpsertIfAbsent(
			"parameter_dims",
			[]string{"parameter_digest", "dim_id", "type_digest"},
			[]string{b.gen.QuoteString(paramDigest), fmt.Sprintf("%d", i), b.gen.QuoteString(typeDigest)},
			[]string{"parameter_digest", "dim_id"},
		))
	}

	for _, lang := range sortedLangs(p.Label) {
		out.WriteString(b.gen.UpsertIfAbsent(
			"parameter_dic_txt",
			[]string{"parameter_digest", "lang_id", "descr"},
			[]string{b.gen.QuoteString(paramDigest), fmt.Sprintf("%d", lang), b.gen.QuoteString(p.Label[lang])},
			[]string{"parameter_digest", "lang_id"},
		))
	}
	out.WriteByte('\n')
}

func sortedLangs(labels map[int]string) []int {
	out := make([]int, 0, len(labels))
	for l := range labels {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// writeTableDic emits table_dic/model_table_dic/table_dims/table_acc and,
// for every Increment, a matching table_expr row whose expr_sql is the
// ModelAggregationSql-rewritten form of the OM_* expression its
// IncrementKind corresponds to.
func (b *ModelSqlBuilder) writeTableDic(out *strings.Builder, t *symtab.TableSymbol) error {
	if t == nil {
		return nil
	}
	tableDigest := digest.TableDigest(t.Name)
	out.WriteString(b.gen.UpsertWithHid(
		"table_dic", t.Name+"_hid", "table_hid",
		[]string{"table_name", "table_digest"},
		[]string{b.gen.QuoteString(t.Name), b.gen.QuoteString(tableDigest)},
		[]string{"table_digest"},
	))
	out.WriteByte('\n')

	out.WriteString(b.gen.UpsertIfAbsent(
		"model_table_dic",
		[]string{"model_digest", "table_digest"},
		[]string{b.gen.QuoteString(b.digest), b.gen.QuoteString(tableDigest)},
		[]string{"model_digest", "table_digest"},
	))
	out.WriteByte('\n')

	for i, dimRef := range t.Dimensions {
		dimSym := dimRef.Resolve()
		typeDigest := ""
		if dimSym != nil && dimSym.Dimension != nil {
			if attrSym := dimSym.Dimension.Attribute.Resolve(); attrSym != nil && attrSym.Attribute != nil && attrSym.Attribute.Type != nil {
				typeDigest = digest.TypeDigest(attrSym.Attribute.Type.Name)
			}
		}
		out.WriteString(b.gen.UpsertIfAbsent(
			"table_dims",
			[]string{"table_digest", "dim_id", "type_digest"},
			[]string{b.gen.QuoteString(tableDigest), fmt.Sprintf("%d", i), b.gen.QuoteString(typeDigest)},
			[]string{"table_digest", "dim_id"},
		))
	}

	for _, lang := range sortedLangs(t.Label) {
		out.WriteString(b.gen.UpsertIfAbsent(
			"table_dic_txt",
			[]string{"table_digest", "lang_id", "descr"},
			[]string{b.gen.QuoteString(tableDigest), fmt.Sprintf("%d", lang), b.gen.QuoteString(t.Label[lang])},
			[]string{"table_digest", "lang_id"},
		))
	}
	out.WriteByte('\n')

	dimCols := dimNames(len(t.Dimensions))
	accName, _ := b.tableTableNames(t)
	rewriter := NewModelAggregationSql(b.gen, accName+"_sub", dimCols)

	for accID, inc := range t.Increments {
		measureName := inc.Attribute.Name()
		if attrSym := inc.Attribute.Resolve(); attrSym != nil && attrSym.Attribute != nil {
			measureName = attrSym.Attribute.Name
		}
		out.WriteString(b.gen.UpsertIfAbsent(
			"table_acc",
			[]string{"table_digest", "acc_id", "acc_name"},
			[]string{b.gen.QuoteString(tableDigest), fmt.Sprintf("%d", accID), b.gen.QuoteString(measureName)},
			[]string{"table_digest", "acc_id"},
		))

		fn, ok := incrementFunc[inc.Kind]
		if !ok {
			continue
		}
		exprText := fn + "(" + measureName + ")"
		exprSql, err := rewriter.Translate(exprText)
		if err != nil {
			return fmt.Errorf("sql: table %s accumulator %d: %w", t.Name, accID, err)
		}
		out.WriteString(b.gen.UpsertIfAbsent(
			"table_expr",
			[]string{"table_digest", "expr_id", "expr_name", "expr_src", "expr_sql"},
			[]string{
				b.gen.QuoteString(tableDigest), fmt.Sprintf("%d", accID),
				b.gen.QuoteString(measureName), b.gen.QuoteString(exprText), b.gen.QuoteString(exprSql),
			},
			[]string{"table_digest", "expr_id"},
		))
	}
	out.WriteByte('\n')
	return nil
}

// tableColumn is one column of a generated CREATE TABLE statement.
type tableColumn struct {
	name string
	ddl  string
}

func dimColumns(n int) []tableColumn {
	cols := make([]tableColumn, n)
	for i := range cols {
		cols[i] = tableColumn{name: fmt.Sprintf("dim%d", i), ddl: "INT NOT NULL"}
	}
	return cols
}

func dimNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("dim%d", i)
	}
	return names
}

// renderCreateTable writes "CREATE TABLE IF NOT EXISTS dbName (cols...,
// PRIMARY KEY (pk))", the shape spec.md §4.7(2) requires of every one of
// the four table kinds this builder emits.
func (b *ModelSqlBuilder) renderCreateTable(dbName string, cols []tableColumn, pk []string) string {
	var out strings.Builder
	out.WriteString("CREATE TABLE IF NOT EXISTS ")
	out.WriteString(b.gen.QuoteIdentifier(dbName))
	out.WriteString(" (\n")

	lines := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		lines = append(lines, "  "+b.gen.QuoteIdentifier(c.name)+" "+c.ddl)
	}
	quotedPK := make([]string, len(pk))
	for i, p := range pk {
		quotedPK[i] = b.gen.QuoteIdentifier(p)
	}
	lines = append(lines, "  PRIMARY KEY ("+strings.Join(quotedPK, ", ")+")")

	out.WriteString(strings.Join(lines, ",\n"))
	out.WriteString("\n);\n")
	return out.String()
}

// sqlValueType renders the column type for a parameter's stored value,
// falling back to DOUBLE (the default measure type throughout this
// package) for an unresolved or still-Unknown type.
func sqlValueType(t *symtab.TypeSymbol) string {
	if t == nil {
		return "DOUBLE"
	}
	switch t.Category {
	case symtab.TypeBool:
		return "SMALLINT"
	case symtab.TypeString:
		return "VARCHAR(255)"
	default:
		return "DOUBLE"
	}
}

func (b *ModelSqlBuilder) parameterTableNames(p *symtab.ParameterSymbol) (runName, setName string) {
	base := b.parameterDBName(p.Name)
	return base + "_p", base + "_w"
}

func (b *ModelSqlBuilder) tableTableNames(t *symtab.TableSymbol) (accName, valName string) {
	base := b.tableDBName(t.Name)
	return base + "_a", base + "_v"
}

func (b *ModelSqlBuilder) parameterRunTableStatement(p *symtab.ParameterSymbol) string {
	runName, _ := b.parameterTableNames(p)
	cols := append([]tableColumn{{"run_id", "INT NOT NULL"}}, dimColumns(len(p.Dimensions))...)
	cols = append(cols, tableColumn{"param_value", sqlValueType(p.Type)})
	pk := append([]string{"run_id"}, dimNames(len(p.Dimensions))...)
	return b.renderCreateTable(runName, cols, pk)
}

func (b *ModelSqlBuilder) parameterSetTableStatement(p *symtab.ParameterSymbol) string {
	_, setName := b.parameterTableNames(p)
	cols := append([]tableColumn{{"set_id", "INT NOT NULL"}}, dimColumns(len(p.Dimensions))...)
	cols = append(cols, tableColumn{"param_value", sqlValueType(p.Type)})
	pk := append([]string{"set_id"}, dimNames(len(p.Dimensions))...)
	return b.renderCreateTable(setName, cols, pk)
}

func (b *ModelSqlBuilder) accumulatorTableStatement(t *symtab.TableSymbol) string {
	accName, _ := b.tableTableNames(t)
	cols := []tableColumn{{"run_id", "INT NOT NULL"}, {"acc_id", "INT NOT NULL"}, {"sub_id", "INT NOT NULL"}}
	cols = append(cols, dimColumns(len(t.Dimensions))...)
	cols = append(cols, tableColumn{"acc_value", "DOUBLE"})
	pk := append([]string{"run_id", "acc_id", "sub_id"}, dimNames(len(t.Dimensions))...)
	return b.renderCreateTable(accName, cols, pk)
}

func (b *ModelSqlBuilder) valueTableStatement(t *symtab.TableSymbol) string {
	_, valName := b.tableTableNames(t)
	cols := []tableColumn{{"run_id", "INT NOT NULL"}, {"expr_id", "INT NOT NULL"}}
	cols = append(cols, dimColumns(len(t.Dimensions))...)
	cols = append(cols, tableColumn{"expr_value", "DOUBLE"})
	pk := append([]string{"run_id", "expr_id"}, dimNames(len(t.Dimensions))...)
	return b.renderCreateTable(valName, cols, pk)
}

// CreateTablesScript returns the CREATE TABLE statements for every
// parameter (a run table and a workset table) and every output table (an
// accumulator table and a value table), in deterministic (kind, name)
// order, each following the shape spec.md §4.7(2) fixes for its kind.
func (b *ModelSqlBuilder) CreateTablesScript() string {
	var out strings.Builder
	for _, sym := range b.table.Symbols() {
		switch sym.Kind {
		case symtab.KindParameter:
			out.WriteString(b.parameterRunTableStatement(sym.Parameter))
			out.WriteString(b.parameterSetTableStatement(sym.Parameter))
		case symtab.KindTable:
			out.WriteString(b.accumulatorTableStatement(sym.Table))
			out.WriteString(b.valueTableStatement(sym.Table))
		}
	}
	return out.String()
}

// CreateViewsScript returns one compatibility VIEW per parameter/table,
// projecting the first-run rows under the symbolic name with dimensions
// renamed Dim0, Dim1, ... and the measure column renamed Value.
func (b *ModelSqlBuilder) CreateViewsScript() string {
	var out strings.Builder
	for _, sym := range b.table.Symbols() {
		switch sym.Kind {
		case symtab.KindParameter:
			out.WriteString(b.parameterViewStatement(sym.Parameter))
		case symtab.KindTable:
			out.WriteString(b.tableViewStatement(sym.Table))
		}
	}
	return out.String()
}

func (b *ModelSqlBuilder) firstRunView(viewName, sourceName, measureColumn string, dimCount int) string {
	cols := make([]string, 0, dimCount+1)
	for i := 0; i < dimCount; i++ {
		cols = append(cols, b.gen.QuoteIdentifier(fmt.Sprintf("dim%d", i))+" AS "+b.gen.QuoteIdentifier(fmt.Sprintf("Dim%d", i)))
	}
	cols = append(cols, b.gen.QuoteIdentifier(measureColumn)+" AS "+b.gen.QuoteIdentifier("Value"))

	var out strings.Builder
	out.WriteString("CREATE VIEW ")
	out.WriteString(b.gen.QuoteIdentifier(viewName))
	out.WriteString(" AS SELECT ")
	out.WriteString(strings.Join(cols, ", "))
	out.WriteString(" FROM ")
	out.WriteString(b.gen.QuoteIdentifier(sourceName))
	out.WriteString(" WHERE ")
	out.WriteString(b.gen.QuoteIdentifier("run_id"))
	out.WriteString(" = (SELECT MIN(")
	out.WriteString(b.gen.QuoteIdentifier("run_id"))
	out.WriteString(") FROM ")
	out.WriteString(b.gen.QuoteIdentifier(sourceName))
	out.WriteString(");\n")
	return out.String()
}

func (b *ModelSqlBuilder) parameterViewStatement(p *symtab.ParameterSymbol) string {
	runName, _ := b.parameterTableNames(p)
	return b.firstRunView(p.Name+"_vw", runName, "param_value", len(p.Dimensions))
}

func (b *ModelSqlBuilder) tableViewStatement(t *symtab.TableSymbol) string {
	_, valName := b.tableTableNames(t)
	return b.firstRunView(t.Name+"_vw", valName, "expr_value", len(t.Dimensions))
}

// DropTablesScript returns a DROP TABLE IF EXISTS statement for every
// parameter's and table's physical tables, walking the symbol table's
// (kind, name) order in reverse: parameters before tables, and within a
// kind, names in descending order. Declaration order plays no part.
func (b *ModelSqlBuilder) DropTablesScript() string {
	syms := b.table.Symbols()
	var out strings.Builder
	for i := len(syms) - 1; i >= 0; i-- {
		sym := syms[i]
		switch sym.Kind {
		case symtab.KindParameter:
			runName, setName := b.parameterTableNames(sym.Parameter)
			out.WriteString("DROP TABLE IF EXISTS " + b.gen.QuoteIdentifier(runName) + ";\n")
			out.WriteString("DROP TABLE IF EXISTS " + b.gen.QuoteIdentifier(setName) + ";\n")
		case symtab.KindTable:
			accName, valName := b.tableTableNames(sym.Table)
			out.WriteString("DROP TABLE IF EXISTS " + b.gen.QuoteIdentifier(accName) + ";\n")
			out.WriteString("DROP TABLE IF EXISTS " + b.gen.QuoteIdentifier(valName) + ";\n")
		}
	}
	return out.String()
}

// DropViewsScript mirrors DropTablesScript for the compatibility views.
func (b *ModelSqlBuilder) DropViewsScript() string {
	syms := b.table.Symbols()
	var out strings.Builder
	for i := len(syms) - 1; i >= 0; i-- {
		sym := syms[i]
		switch sym.Kind {
		case symtab.KindParameter:
			out.WriteString("DROP VIEW IF EXISTS " + b.gen.QuoteIdentifier(sym.Parameter.Name+"_vw") + ";\n")
		case symtab.KindTable:
			out.WriteString("DROP VIEW IF EXISTS " + b.gen.QuoteIdentifier(sym.Table.Name+"_vw") + ";\n")
		}
	}
	return out.String()
}
