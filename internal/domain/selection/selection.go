// Package selection defines per-request filter selections.
package selection

// Kind is the wire-level selection intent for one value.
type Kind string

const (
	// Included means "match records having this value".
	Included Kind = "INCLUDED"
	// Excluded means "match records not having this value".
	Excluded Kind = "EXCLUDED"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == Included || k == Excluded
}

// Operators combining multiple include values of one selection.
const (
	OperatorAnd = "AND"
	OperatorOr  = "OR"
)

// Value is one selected filter value with its exclusion flag.
type Value struct {
	ID       string `json:"id"`
	Value    string `json:"value"`
	Excluded bool   `json:"excluded"`
}

// Selection is the per-request instruction to include/exclude specific
// values for one filter.
type Selection struct {
	FilterID string  `json:"filter_id"`
	Values   []Value `json:"values"`
	// Operator combines multiple include values (AND/OR). Empty means the
	// handler's default.
	Operator string `json:"operator,omitempty"`
}

// Included returns the values selected for inclusion.
func (s Selection) Included() []Value {
	out := make([]Value, 0, len(s.Values))
	for _, v := range s.Values {
		if !v.Excluded {
			out = append(out, v)
		}
	}
	return out
}

// ExcludedValues returns the values selected for exclusion.
func (s Selection) ExcludedValues() []Value {
	var out []Value
	for _, v := range s.Values {
		if v.Excluded {
			out = append(out, v)
		}
	}
	return out
}

// WithoutExclusion returns a copy with every value's Excluded flag forced
// false. Used when the resolved handler does not support exclusion.
func (s Selection) WithoutExclusion() Selection {
	out := s
	out.Values = make([]Value, len(s.Values))
	for i, v := range s.Values {
		v.Excluded = false
		out.Values[i] = v
	}
	return out
}
