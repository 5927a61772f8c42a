package sql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersonAggregation() *ModelAggregationSql {
	gen := mysqlGenerator{}
	return NewModelAggregationSql(gen, "PersonTable_sub", []string{"dim0", "dim1"})
}

func TestTranslateSimpleAggregateProducesLeveledSelect(t *testing.T) {
	m := newPersonAggregation()
	out, err := m.Translate("OM_AVG(x)")
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT M1.run_id, M1.dim0, M1.dim1, AVG(M1.x) AS ex1 FROM PersonTable_sub M1 GROUP BY M1.run_id, M1.dim0, M1.dim1",
		out)
}

func TestTranslateQualifiesBareIdentifiersOutsideAggregates(t *testing.T) {
	m := newPersonAggregation()
	out, err := m.Translate("OM_SUM(income) + tax_rate")
	require.NoError(t, err)
	assert.Contains(t, out, "SUM(M1.income) + M1.tax_rate AS ex1")
	assert.Contains(t, out, "FROM PersonTable_sub M1")
	assert.Contains(t, out, "GROUP BY M1.run_id, M1.dim0, M1.dim1")
}

func TestTranslateVarianceJoinsPushedDownAverageAtNextLevel(t *testing.T) {
	m := newPersonAggregation()
	out, err := m.Translate("OM_VAR(income)")
	require.NoError(t, err)

	assert.Contains(t, out, "SELECT M1.run_id, M1.dim0, M1.dim1,")
	assert.Contains(t, out, "SUM((M1.income - T2.ex1) * (M1.income - T2.ex1))")
	assert.Contains(t, out, "/ (COUNT(M1.income) - 1))")
	assert.Contains(t, out, "INNER JOIN (SELECT M2.run_id, M2.dim0, M2.dim1, AVG(M2.income) AS ex1 FROM PersonTable_sub M2 GROUP BY M2.run_id, M2.dim0, M2.dim1) T2")
	assert.Contains(t, out, "ON M1.run_id = T2.run_id AND M1.dim0 = T2.dim0 AND M1.dim1 = T2.dim1")
	assert.Contains(t, out, "GROUP BY M1.run_id, M1.dim0, M1.dim1")
}

func TestTranslateStandardDeviationWrapsVarianceInSqrt(t *testing.T) {
	m := newPersonAggregation()
	out, err := m.Translate("OM_SD(income)")
	require.NoError(t, err)
	assert.Contains(t, out, "SQRT((SUM((M1.income - T2.ex1) * (M1.income - T2.ex1)) / (COUNT(M1.income) - 1))) AS ex1")
}

func TestTranslateCoefficientOfVariationReusesSinglePushedAverage(t *testing.T) {
	m := newPersonAggregation()
	out, err := m.Translate("OM_CV(income)")
	require.NoError(t, err)

	assert.Contains(t, out, "SQRT(")
	assert.Contains(t, out, "/ T2.ex1)")
	// Exactly one nested level: the pushed average is shared between the
	// variance's deviation term and CV's own denominator, never joined twice.
	assert.Equal(t, 1, strings.Count(out, "INNER JOIN"))
}

func TestTranslateRejectsUnparseableSubExpression(t *testing.T) {
	m := newPersonAggregation()
	_, err := m.Translate("OM_AVG(income +)")
	require.Error(t, err)
}

func TestQualifyBareIdentifiersSkipsQuotedLiterals(t *testing.T) {
	m := newPersonAggregation()
	out := m.qualifyBareIdentifiers(`status = 'active'`, "M1")
	assert.Equal(t, "M1.status = 'active'", out)
}

func TestQualifyBareIdentifiersLeavesKeywordsAndFunctionNamesAlone(t *testing.T) {
	m := newPersonAggregation()
	out := m.qualifyBareIdentifiers("income > 0 AND OM_AVG(x)", "M1")
	assert.Contains(t, out, "M1.income > 0 AND OM_AVG(")
	assert.NotContains(t, out, "M1.OM_AVG")
	assert.NotContains(t, out, "M1.AND")
}

func TestFirstCallReturnsNameArgumentAndRemainder(t *testing.T) {
	m := newPersonAggregation()
	name, arg, rest, ok := m.firstCall("OM_SD(income)")
	require.True(t, ok)
	assert.Equal(t, fncSD, name)
	assert.Equal(t, "income", arg)
	assert.Equal(t, "", rest)
}
