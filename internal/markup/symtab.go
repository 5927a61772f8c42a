package markup

import "github.com/openmpp/ompc/internal/symtab"

// ShapesFromParameters derives one ArrayShape per declared parameter from
// tbl, skipping scalars (rank 0). Each dimension's size comes from the
// resolved classification/range/partition/enumeration type attached to
// it; an as-yet-unresolved dimension type contributes no shape for that
// parameter, and the parameter is treated as scalar for this pass (it
// will be markup-checked on a later build once its types resolve).
func ShapesFromParameters(tbl *symtab.Table) []ArrayShape {
	var shapes []ArrayShape
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindParameter || sym.Parameter == nil {
			continue
		}
		p := sym.Parameter
		sizes := make([]int, 0, len(p.Dimensions))
		for _, dimRef := range p.Dimensions {
			dimSym := dimRef.Resolve()
			if dimSym == nil || dimSym.Type == nil {
				sizes = nil
				break
			}
			size := dimensionSize(dimSym.Type)
			if size <= 0 {
				sizes = nil
				break
			}
			sizes = append(sizes, size)
		}
		if len(sizes) == 0 {
			continue
		}
		shapes = append(shapes, ArrayShape{Name: p.Name, DimSizes: sizes})
	}
	return shapes
}

// dimensionSize returns the number of distinct values a dimension's
// classifying type can take, or 0 if t's category carries no fixed count
// (e.g. still Unknown).
func dimensionSize(t *symtab.TypeSymbol) int {
	switch t.Category {
	case symtab.TypeClassification, symtab.TypeEnumeration:
		return len(t.Members)
	case symtab.TypeRange:
		return t.UpperBound - t.LowerBound + 1
	case symtab.TypePartition:
		return len(t.Bounds) + 1
	default:
		return 0
	}
}
