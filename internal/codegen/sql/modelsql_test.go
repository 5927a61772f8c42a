package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmpp/ompc/internal/digest"
	"github.com/openmpp/ompc/internal/symtab"
)

func newPersonAgeTable(t *testing.T) *symtab.Table {
	t.Helper()
	tbl := symtab.New()

	sexSym := tbl.Morph("Person::sex", symtab.KindDimension, symtab.Pos{})
	sexSym.Dimension = &symtab.DimensionSymbol{Name: "sex", Table: tbl.Ref("PersonTable"), Position: 0}

	ageSym := tbl.Morph("Person::age", symtab.KindAttribute, symtab.Pos{})
	ageSym.Attribute = &symtab.AttributeSymbol{Name: "age", Entity: tbl.Ref("Person")}

	tableSym := tbl.Morph("PersonTable", symtab.KindTable, symtab.Pos{})
	tableSym.Table = &symtab.TableSymbol{
		Name:       "PersonTable",
		Kind:       symtab.TableEntity,
		Entity:     tbl.Ref("Person"),
		Dimensions: []symtab.Ref{tbl.Ref("Person::sex")},
		Increments: []*symtab.Increment{
			{Name: "om_PersonTable_age", Table: tbl.Ref("PersonTable"), Kind: symtab.IncrementSum, Attribute: tbl.Ref("Person::age")},
		},
	}
	return tbl
}

func TestCreateModelScriptIsIdempotentUpsert(t *testing.T) {
	gen, err := GeneratorFor(ProviderMySQL)
	require.NoError(t, err)

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, symtab.New(), names, "Example", "abcdef0123456789")
	script, err := b.CreateModelScript()
	require.NoError(t, err)

	assert.Contains(t, script, "model_dic")
	assert.Contains(t, script, "'Example'")
	assert.Contains(t, script, "WHERE NOT EXISTS")
}

func TestCreateModelScriptRegistersTableAccumulatorsAndExpressions(t *testing.T) {
	gen, err := GeneratorFor(ProviderMySQL)
	require.NoError(t, err)

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, newPersonAgeTable(t), names, "Example", "deadbeef")
	script, err := b.CreateModelScript()
	require.NoError(t, err)

	assert.Contains(t, script, "table_dic")
	assert.Contains(t, script, "id_lst")
	assert.Contains(t, script, "table_hid")
	assert.Contains(t, script, "table_acc")
	assert.Contains(t, script, "'age'")
	assert.Contains(t, script, "table_expr")
	assert.Contains(t, script, "OM_SUM(age)")
	assert.Contains(t, script, "SUM(M1.age) AS ex1")
}

func TestCreateTablesScriptEmitsAccumulatorAndValueShapesPerTable(t *testing.T) {
	gen, err := GeneratorFor(ProviderSQLite)
	require.NoError(t, err)

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, newPersonAgeTable(t), names, "Example", "deadbeef")
	script := b.CreateTablesScript()

	assert.Contains(t, script, "CREATE TABLE IF NOT EXISTS")
	assert.Contains(t, script, `"run_id" INT NOT NULL`)
	assert.Contains(t, script, `"acc_id" INT NOT NULL`)
	assert.Contains(t, script, `"sub_id" INT NOT NULL`)
	assert.Contains(t, script, `"dim0" INT NOT NULL`)
	assert.Contains(t, script, `"acc_value" DOUBLE`)
	assert.Contains(t, script, `"expr_id" INT NOT NULL`)
	assert.Contains(t, script, `"expr_value" DOUBLE`)
	assert.Contains(t, script, "PRIMARY KEY")
}

func TestCreateTablesScriptEmitsRunAndSetShapesPerParameter(t *testing.T) {
	gen, err := GeneratorFor(ProviderSQLite)
	require.NoError(t, err)

	tbl := symtab.New()
	paramSym := tbl.Morph("ProbMortality", symtab.KindParameter, symtab.Pos{})
	paramSym.Parameter = &symtab.ParameterSymbol{Name: "ProbMortality"}

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, tbl, names, "Example", "deadbeef")
	script := b.CreateTablesScript()

	assert.Contains(t, script, `"run_id" INT NOT NULL`)
	assert.Contains(t, script, `"set_id" INT NOT NULL`)
	assert.Contains(t, script, `"param_value" DOUBLE`)
}

func TestCreateViewsScriptExposesSymbolicName(t *testing.T) {
	gen, err := GeneratorFor(ProviderMySQL)
	require.NoError(t, err)

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, newPersonAgeTable(t), names, "Example", "deadbeef")
	script := b.CreateViewsScript()

	assert.Contains(t, script, "CREATE VIEW `PersonTable_vw` AS SELECT")
	assert.Contains(t, script, "AS `Dim0`")
	assert.Contains(t, script, "AS `Value`")
}

func TestDropScriptsReverseSymbolTableOrder(t *testing.T) {
	gen, err := GeneratorFor(ProviderMySQL)
	require.NoError(t, err)

	tbl := symtab.New()
	tbl.Morph("FirstTable", symtab.KindTable, symtab.Pos{}).Table = &symtab.TableSymbol{Name: "FirstTable", Kind: symtab.TableEntity}
	tbl.Morph("SecondTable", symtab.KindTable, symtab.Pos{}).Table = &symtab.TableSymbol{Name: "SecondTable", Kind: symtab.TableEntity}

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, tbl, names, "Example", "deadbeef")

	dropTables := b.DropTablesScript()
	firstIdx := indexOfSubstring(dropTables, "firsttable")
	secondIdx := indexOfSubstring(dropTables, "secondtable")
	require.NotEqual(t, -1, firstIdx)
	require.NotEqual(t, -1, secondIdx)
	assert.Greater(t, firstIdx, secondIdx, "expected the table later in name order dropped first")

	dropViews := b.DropViewsScript()
	assert.Contains(t, dropViews, "DROP VIEW IF EXISTS `FirstTable_vw`")
	assert.Contains(t, dropViews, "DROP VIEW IF EXISTS `SecondTable_vw`")
}

func TestTableAndParameterDBNamesAreStableAcrossScripts(t *testing.T) {
	gen, err := GeneratorFor(ProviderMySQL)
	require.NoError(t, err)

	names := digest.NewAssigner(nil)
	b := NewModelSqlBuilder(gen, newPersonAgeTable(t), names, "Example", "deadbeef")

	tables := b.CreateTablesScript()
	views := b.CreateViewsScript()
	drops := b.DropTablesScript()

	assert.Contains(t, tables, "`persontable_a`")
	assert.Contains(t, views, "`persontable_v`")
	assert.Contains(t, drops, "`persontable_a`")
}

func indexOfSubstring(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
