package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmpp/ompc/internal/symtab"
)

func TestShapesFromParametersComputesSizeFromClassificationMembers(t *testing.T) {
	tbl := symtab.New()
	tbl.Morph("SEX", symtab.KindType, symtab.Pos{}).Type = &symtab.TypeSymbol{
		Name: "SEX", Category: symtab.TypeClassification, Members: []string{"male", "female"},
	}
	tbl.Morph("SalaryBySex", symtab.KindParameter, symtab.Pos{}).Parameter = &symtab.ParameterSymbol{
		Name:       "SalaryBySex",
		Dimensions: []symtab.Ref{tbl.Ref("SEX")},
	}

	shapes := ShapesFromParameters(tbl)
	require.Len(t, shapes, 1)
	assert.Equal(t, "SalaryBySex", shapes[0].Name)
	assert.Equal(t, []int{2}, shapes[0].DimSizes)
}

func TestShapesFromParametersSkipsScalarParameter(t *testing.T) {
	tbl := symtab.New()
	tbl.Morph("RetirementAge", symtab.KindParameter, symtab.Pos{}).Parameter = &symtab.ParameterSymbol{
		Name: "RetirementAge",
	}

	shapes := ShapesFromParameters(tbl)
	assert.Empty(t, shapes)
}

func TestShapesFromParametersSkipsUnresolvedDimensionType(t *testing.T) {
	tbl := symtab.New()
	tbl.Morph("SomeType", symtab.KindType, symtab.Pos{}).Type = &symtab.TypeSymbol{Category: symtab.TypeUnknown}
	tbl.Morph("WidgetsByType", symtab.KindParameter, symtab.Pos{}).Parameter = &symtab.ParameterSymbol{
		Name:       "WidgetsByType",
		Dimensions: []symtab.Ref{tbl.Ref("SomeType")},
	}

	shapes := ShapesFromParameters(tbl)
	assert.Empty(t, shapes)
}
