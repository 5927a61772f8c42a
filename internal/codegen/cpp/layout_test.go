package cpp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmpp/ompc/internal/symtab"
)

func TestClassifyGroupsBuiltinIdentityAndClockSeparately(t *testing.T) {
	assert.Equal(t, LayoutID, classify(&symtab.AttributeSymbol{Name: "entity_id", Kind: symtab.AttrBuiltin}))
	assert.Equal(t, LayoutID, classify(&symtab.AttributeSymbol{Name: "case_seed", Kind: symtab.AttrBuiltin}))
	assert.Equal(t, LayoutTime, classify(&symtab.AttributeSymbol{Name: "time", Kind: symtab.AttrBuiltin}))
	assert.Equal(t, LayoutAge, classify(&symtab.AttributeSymbol{Name: "age", Kind: symtab.AttrBuiltin}))
}

func TestClassifyGroupsDeclaredAndLinkAttributesSeparately(t *testing.T) {
	assert.Equal(t, LayoutModelDeclared, classify(&symtab.AttributeSymbol{Name: "income", Kind: symtab.AttrSimple}))
	assert.Equal(t, LayoutModelDeclared, classify(&symtab.AttributeSymbol{Name: "is_retired", Kind: symtab.AttrDerived}))
	assert.Equal(t, LayoutGenerated, classify(&symtab.AttributeSymbol{Name: "spouse", Kind: symtab.AttrLink}))
	assert.Equal(t, LayoutGenerated, classify(&symtab.AttributeSymbol{Name: "children", Kind: symtab.AttrMultilinkAggregate}))
}

func TestGroupMembersPreservesDeclarationOrderWithinGroup(t *testing.T) {
	attrs := []*symtab.AttributeSymbol{
		{Name: "income", Kind: symtab.AttrSimple},
		{Name: "tax_rate", Kind: symtab.AttrSimple},
	}
	groups := groupMembers(attrs)
	want := groups[LayoutModelDeclared]
	assert.Len(t, want, 2)
	assert.Equal(t, "income", want[0].Name)
	assert.Equal(t, "tax_rate", want[1].Name)
}
