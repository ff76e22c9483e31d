package plan

// GapClass names a category of structural incompleteness.
type GapClass string

const (
	S0       GapClass = "S0"
	R0       GapClass = "R0"
	C0       GapClass = "C0"
	IXOrphan GapClass = "IX_orphan"
	APIWeak  GapClass = "API_weak"
	QOpen    GapClass = "Q_open"
)

// GapClasses lists the classes in reporting order.
var GapClasses = []GapClass{S0, R0, C0, IXOrphan, APIWeak, QOpen}

// GapSets holds the sorted node ids of each gap class. Slices are never nil
// so reports always show every class.
type GapSets struct {
	S0       []string `json:"S0"`
	R0       []string `json:"R0"`
	C0       []string `json:"C0"`
	IXOrphan []string `json:"IX_orphan"`
	APIWeak  []string `json:"API_weak"`
	QOpen    []string `json:"Q_open"`
}

// Get returns the ids of one class.
func (s GapSets) Get(c GapClass) []string {
	switch c {
	case S0:
		return s.S0
	case R0:
		return s.R0
	case C0:
		return s.C0
	case IXOrphan:
		return s.IXOrphan
	case APIWeak:
		return s.APIWeak
	case QOpen:
		return s.QOpen
	}
	return nil
}

// Sizes returns the cardinality of every class.
func (s GapSets) Sizes() map[GapClass]int {
	out := make(map[GapClass]int, len(GapClasses))
	for _, c := range GapClasses {
		out[c] = len(s.Get(c))
	}
	return out
}

// Empty reports whether every class except Q_open is empty. Open questions
// are reported but no phase closes them.
func (s GapSets) Empty() bool {
	for _, c := range GapClasses {
		if c != QOpen && len(s.Get(c)) > 0 {
			return false
		}
	}
	return true
}

// NewGapSets returns gap sets with every class empty and non-nil.
func NewGapSets() GapSets {
	return GapSets{
		S0:       []string{},
		R0:       []string{},
		C0:       []string{},
		IXOrphan: []string{},
		APIWeak:  []string{},
		QOpen:    []string{},
	}
}
