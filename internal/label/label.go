// Package label maps classifier output indices to document labels and filing categories.
package label

// Label is one of the closed set of document classes, plus Unknown.
type Label int

const (
	Document Label = iota
	KTP
	KK
	SIM

	// Unknown is returned for any index outside the table.
	Unknown Label = -1
)

// Count is the number of scores the classifier must produce.
const Count = 4

const (
	CategoryPersonal = "Pribadi"
	CategoryOther    = "Lainnya"
)

const unknownName = "unknown"

var names = [Count]string{
	Document: "document",
	KTP:      "KTP",
	KK:       "KK",
	SIM:      "SIM",
}

// Resolve never fails: out-of-range indices yield Unknown.
func Resolve(index int) Label {
	if index < 0 || index >= Count {
		return Unknown
	}
	return Label(index)
}

// FromName is the inverse of Name. Matching is case-sensitive.
func FromName(name string) Label {
	for i, n := range names {
		if n == name {
			return Label(i)
		}
	}
	return Unknown
}

// Index returns the classifier index, or -1 for Unknown.
func (l Label) Index() int {
	if !l.Known() {
		return -1
	}
	return int(l)
}

func (l Label) Known() bool {
	return l >= 0 && int(l) < Count
}

func (l Label) Name() string {
	if !l.Known() {
		return unknownName
	}
	return names[l]
}

func (l Label) String() string {
	return l.Name()
}

// Category is the coarse filing bucket: identity documents are personal,
// everything else (including Unknown) is other.
func (l Label) Category() string {
	switch l {
	case KTP, KK, SIM:
		return CategoryPersonal
	default:
		return CategoryOther
	}
}

// All returns the known labels in index order.
func All() []Label {
	return []Label{Document, KTP, KK, SIM}
}
