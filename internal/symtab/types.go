package symtab

// TypeCategory enumerates the openM++ type lattice (spec.md §3).
type TypeCategory int

const (
	TypeNumeric TypeCategory = iota
	TypeBool
	TypeString
	TypeTime
	TypeClassification
	TypeRange
	TypePartition
	TypeEnumeration
	TypeEntity
	TypeLink
	TypeMultilink
	TypeForeign
	TypeUnknown
)

func (c TypeCategory) String() string {
	names := [...]string{
		"Numeric", "Bool", "String", "Time", "Classification", "Range",
		"Partition", "Enumeration", "Entity", "Link", "Multilink", "Foreign", "Unknown",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "TypeCategory(?)"
}

// TypeSymbol is the populated variant for KindType. Classification, Range,
// Partition, and Enumeration carry their own member/bound lists; Entity and
// Link reference the entity they classify; Unknown is a forward-reference
// placeholder resolved by parent-chain propagation in pass 5.
type TypeSymbol struct {
	Name     string
	Category TypeCategory

	// Classification/Enumeration members, in declaration order.
	Members []string

	// Range bounds in LowerBound/UpperBound; a Partition carries its cut
	// points in Bounds and leaves Members empty.
	LowerBound, UpperBound int
	Bounds                 []float64

	// Entity/Link/Multilink target.
	TargetEntity Ref

	// resolvedVia is set once Resolve succeeds, so repeated PostParse calls
	// on an already-resolved Unknown are no-ops (fixpoint quiescence).
	resolvedVia *AttributeSymbol
}

// Resolve propagates a concrete category from parent to an Unknown-typed
// attribute declaration (spec.md §4.4 pass 5: "parent-chain propagation").
// It reports mutated=true the first time it successfully resolves.
func (t *TypeSymbol) Resolve(parent *AttributeSymbol) (mutated bool) {
	if t.Category != TypeUnknown || parent == nil || parent.Type == nil {
		return false
	}
	if parent.Type.Category == TypeUnknown {
		return false // parent itself unresolved; try again next iteration
	}
	*t = *parent.Type
	t.resolvedVia = parent
	return true
}

// PostParse implements PostParser. Only pass 5 (data-type resolution) does
// anything for a type symbol; every other pass is a no-op.
func (t *TypeSymbol) PostParse(pass Pass, tbl *Table) (bool, error) {
	if pass != PassResolveDataTypes || t.Category != TypeUnknown {
		return false, nil
	}
	target := t.TargetEntity.Resolve()
	if target == nil || target.Attribute == nil {
		return false, nil
	}
	return t.Resolve(target.Attribute), nil
}

// IsArithmetic reports whether c is an arithmetic category: numeric, bool,
// time, classification, range, partition or enumeration. String, entity,
// link, multilink, foreign and unknown are not.
func (c TypeCategory) IsArithmetic() bool {
	switch c {
	case TypeNumeric, TypeBool, TypeTime, TypeClassification, TypeRange, TypePartition, TypeEnumeration:
		return true
	default:
		return false
	}
}
