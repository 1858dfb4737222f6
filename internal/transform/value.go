package transform

import "strings"

// Value is the unit flowing through a transformation chain: either a scalar
// string or an ordered sequence of strings. A selector that matched nothing
// produces the empty value.
type Value struct {
	items []string
	list  bool
}

// Scalar returns a scalar value.
func Scalar(s string) Value {
	return Value{items: []string{s}}
}

// Sequence returns a sequence value. A nil or empty slice is the empty value.
func Sequence(items []string) Value {
	if len(items) == 0 {
		return Empty()
	}
	return Value{items: items, list: true}
}

// FromMatches converts selector matches into a value: zero matches is empty,
// one match is a scalar, several matches form a sequence.
func FromMatches(matches []string) Value {
	switch len(matches) {
	case 0:
		return Empty()
	case 1:
		return Scalar(matches[0])
	default:
		return Sequence(matches)
	}
}

// Empty returns the empty value.
func Empty() Value {
	return Value{}
}

// IsEmpty reports whether the value holds nothing. A scalar empty string is
// also considered empty for required-field purposes.
func (v Value) IsEmpty() bool {
	if len(v.items) == 0 {
		return true
	}
	if !v.list && len(v.items) == 1 && v.items[0] == "" {
		return true
	}
	return false
}

// IsList reports whether the value is a sequence.
func (v Value) IsList() bool {
	return v.list
}

// Items returns the underlying elements. Scalars return a single element.
func (v Value) Items() []string {
	return v.items
}

// String renders the value as a single string. Sequences are joined with
// ", " for display and length validation against the final form.
func (v Value) String() string {
	if len(v.items) == 0 {
		return ""
	}
	if !v.list {
		return v.items[0]
	}
	return strings.Join(v.items, ", ")
}

// Export returns the value in its serializable form: a string for scalars,
// a []string for sequences.
func (v Value) Export() any {
	if v.list {
		out := make([]string, len(v.items))
		copy(out, v.items)
		return out
	}
	if len(v.items) == 0 {
		return ""
	}
	return v.items[0]
}

// mapScalar applies fn to every element, preserving the scalar/sequence shape.
func (v Value) mapScalar(fn func(string) string) Value {
	out := make([]string, len(v.items))
	for i, item := range v.items {
		out[i] = fn(item)
	}
	return Value{items: out, list: v.list}
}

// split turns a scalar into an ordered sequence of trimmed substrings.
// Sequence elements are each split and the results flattened in order.
func (v Value) split(delimiter string) Value {
	var out []string
	for _, item := range v.items {
		for _, part := range strings.Split(item, delimiter) {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return Value{items: out, list: true}
}

// limit keeps the first n elements. Fewer than n elements is not an error.
func (v Value) limit(n int) Value {
	if len(v.items) <= n {
		return Value{items: v.items, list: true}
	}
	return Value{items: v.items[:n], list: true}
}

// join concatenates the elements into a scalar.
func (v Value) join(separator string) Value {
	return Scalar(strings.Join(v.items, separator))
}
