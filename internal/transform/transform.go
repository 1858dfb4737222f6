// Package transform implements the per-field transformation language applied
// to extracted values. Transformations form a closed set of pure operations
// evaluated strictly in configuration order; malformed entries are rejected
// when the job configuration is loaded, never per record.
package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies a transformation operation.
type Kind string

// Supported transformation kinds.
const (
	KindStrip          Kind = "strip"
	KindTitleCase      Kind = "title_case"
	KindLowercase      Kind = "lowercase"
	KindUppercase      Kind = "uppercase"
	KindReplace        Kind = "replace"
	KindSplit          Kind = "split"
	KindLimit          Kind = "limit"
	KindJoin           Kind = "join"
	KindTruncate       Kind = "truncate"
	KindRemoveHTML     Kind = "remove_html"
	KindNormalizePhone Kind = "normalize_phone"
	KindRemovePrefix   Kind = "remove_prefix"
	KindRemoveSuffix   Kind = "remove_suffix"
)

// Common errors returned while parsing transformation entries.
var (
	// ErrUnknownTransform is returned for an operation name outside the closed set.
	ErrUnknownTransform = errors.New("unknown transformation")
	// ErrInvalidTransform is returned when an entry is structurally malformed.
	ErrInvalidTransform = errors.New("invalid transformation entry")
	// ErrInvalidArgument is returned when an operation argument fails to decode.
	ErrInvalidArgument = errors.New("invalid transformation argument")
)

// Transform is one operation in a field's transformation chain.
// Only the arguments relevant to its Kind are populated.
type Transform struct {
	Kind Kind

	// Replace arguments
	From string
	To   string

	// Split / Join arguments
	Delimiter string
	Separator string

	// Limit / Truncate argument
	N int

	// RemovePrefix / RemoveSuffix argument
	Affix string
}

// titleCaser folds strings into title case. cases.Caser is not safe for
// concurrent use, so a fresh caser is taken per call via this constructor.
func titleCaser() cases.Caser {
	return cases.Title(language.Und)
}

// replaceArgs decodes the arguments of a replace entry.
type replaceArgs struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// splitArgs decodes the arguments of a split entry.
type splitArgs struct {
	Delimiter string `mapstructure:"delimiter"`
}

// joinArgs decodes the arguments of a join entry.
type joinArgs struct {
	Separator string `mapstructure:"separator"`
}

// Parse converts one raw YAML transformation entry into a Transform.
// Entries are either a bare operation name ("strip") or a single-key mapping
// carrying arguments ({replace: {from: "a", to: "b"}}, {limit: 5}).
func Parse(raw any) (Transform, error) {
	switch entry := raw.(type) {
	case string:
		return parseBare(entry)
	case map[string]any:
		return parseWithArgs(entry)
	default:
		return Transform{}, fmt.Errorf("%w: expected string or mapping, got %T", ErrInvalidTransform, raw)
	}
}

// ParseChain converts a raw transformation list into an ordered chain.
func ParseChain(raw []any) ([]Transform, error) {
	chain := make([]Transform, 0, len(raw))
	for i, entry := range raw {
		t, err := Parse(entry)
		if err != nil {
			return nil, fmt.Errorf("transformation %d: %w", i, err)
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// parseBare handles argument-less operation names.
func parseBare(name string) (Transform, error) {
	kind := Kind(strings.TrimSpace(name))
	switch kind {
	case KindStrip, KindTitleCase, KindLowercase, KindUppercase,
		KindRemoveHTML, KindNormalizePhone:
		return Transform{Kind: kind}, nil
	case KindReplace, KindSplit, KindLimit, KindJoin, KindTruncate,
		KindRemovePrefix, KindRemoveSuffix:
		return Transform{}, fmt.Errorf("%w: %q requires arguments", ErrInvalidTransform, name)
	default:
		return Transform{}, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
}

// parseWithArgs handles single-key mappings carrying operation arguments.
func parseWithArgs(entry map[string]any) (Transform, error) {
	if len(entry) != 1 {
		return Transform{}, fmt.Errorf("%w: expected a single operation key, got %d", ErrInvalidTransform, len(entry))
	}

	var name string
	var args any
	for k, v := range entry {
		name, args = k, v
	}

	kind := Kind(strings.TrimSpace(name))
	switch kind {
	case KindReplace:
		var a replaceArgs
		if err := decodeArgs(name, args, &a); err != nil {
			return Transform{}, err
		}
		return Transform{Kind: kind, From: a.From, To: a.To}, nil
	case KindSplit:
		var a splitArgs
		if err := decodeArgs(name, args, &a); err != nil {
			return Transform{}, err
		}
		if a.Delimiter == "" {
			return Transform{}, fmt.Errorf("%w: split requires a delimiter", ErrInvalidArgument)
		}
		return Transform{Kind: kind, Delimiter: a.Delimiter}, nil
	case KindJoin:
		var a joinArgs
		if err := decodeArgs(name, args, &a); err != nil {
			return Transform{}, err
		}
		return Transform{Kind: kind, Separator: a.Separator}, nil
	case KindLimit, KindTruncate:
		n, err := decodeCount(name, args)
		if err != nil {
			return Transform{}, err
		}
		return Transform{Kind: kind, N: n}, nil
	case KindRemovePrefix, KindRemoveSuffix:
		s, ok := args.(string)
		if !ok {
			return Transform{}, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidArgument, name, args)
		}
		return Transform{Kind: kind, Affix: s}, nil
	case KindStrip, KindTitleCase, KindLowercase, KindUppercase,
		KindRemoveHTML, KindNormalizePhone:
		return Transform{}, fmt.Errorf("%w: %q takes no arguments", ErrInvalidTransform, name)
	default:
		return Transform{}, fmt.Errorf("%w: %q", ErrUnknownTransform, name)
	}
}

// decodeArgs strictly decodes a mapping of operation arguments into out.
func decodeArgs(name string, args, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, name, err)
	}
	if decodeErr := dec.Decode(args); decodeErr != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidArgument, name, decodeErr)
	}
	return nil
}

// decodeCount decodes a non-negative integer argument ({limit: 5}).
func decodeCount(name string, args any) (int, error) {
	var n int
	if err := decodeArgs(name, args, &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must be non-negative, got %d", ErrInvalidArgument, name, n)
	}
	return n, nil
}

// Apply evaluates the chain against a value, strictly in list order.
// An empty input short-circuits to empty without evaluating the chain.
func Apply(v Value, chain []Transform) Value {
	if v.IsEmpty() {
		return v
	}
	for _, t := range chain {
		v = t.apply(v)
		if v.IsEmpty() {
			return v
		}
	}
	return v
}

// apply evaluates a single operation. Scalar operations map over every
// element of a sequence; limit and join consume whatever the prior stage
// produced, so chains must order split before them.
func (t Transform) apply(v Value) Value {
	switch t.Kind {
	case KindStrip:
		return v.mapScalar(strings.TrimSpace)
	case KindTitleCase:
		caser := titleCaser()
		return v.mapScalar(caser.String)
	case KindLowercase:
		return v.mapScalar(strings.ToLower)
	case KindUppercase:
		return v.mapScalar(strings.ToUpper)
	case KindReplace:
		return v.mapScalar(func(s string) string {
			return strings.ReplaceAll(s, t.From, t.To)
		})
	case KindRemovePrefix:
		return v.mapScalar(func(s string) string {
			return strings.TrimPrefix(s, t.Affix)
		})
	case KindRemoveSuffix:
		return v.mapScalar(func(s string) string {
			return strings.TrimSuffix(s, t.Affix)
		})
	case KindSplit:
		return v.split(t.Delimiter)
	case KindLimit:
		return v.limit(t.N)
	case KindJoin:
		return v.join(t.Separator)
	case KindTruncate:
		return v.mapScalar(func(s string) string {
			return truncate(s, t.N)
		})
	case KindRemoveHTML:
		return v.mapScalar(stripHTML)
	case KindNormalizePhone:
		return v.mapScalar(normalizePhone)
	default:
		return v
	}
}

// truncate returns the first n characters (runes) of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// stripHTML removes markup tags from s, preserving inner text.
func stripHTML(s string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			// End of input (or malformed markup; either way we are done)
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}

// normalizePhone reduces a phone number to its canonical form: an optional
// leading plus followed by digits only. The operation is total and
// idempotent: normalizing an already-normalized number is a no-op.
func normalizePhone(s string) string {
	var b strings.Builder
	trimmed := strings.TrimSpace(s)
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
