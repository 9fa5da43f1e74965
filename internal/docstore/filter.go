package docstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter selects documents. Implementations are plain values so a filter can
// be built and inspected without a collection.
type Filter interface {
	Match(doc Document) bool
	String() string
}

// All matches every document.
type All struct{}

func (All) Match(Document) bool { return true }
func (All) String() string      { return "{}" }

// Eq matches documents whose Field equals Value.
type Eq struct {
	Field string
	Value any
}

func (f Eq) Match(doc Document) bool {
	v, ok := lookup(doc, f.Field)
	return equalValues(v, ok, f.Value)
}

func (f Eq) String() string { return fmt.Sprintf("{%s: %v}", f.Field, f.Value) }

// Range bounds Field. Nil bounds are ignored; a value outside the type
// bracket of a bound never matches.
type Range struct {
	Field string
	Gt    any
	Gte   any
	Lt    any
	Lte   any
}

func (f Range) Match(doc Document) bool {
	v, ok := lookup(doc, f.Field)
	if !ok {
		return false
	}
	if rank(v, true) == rankArray {
		for _, el := range asArray(v) {
			if f.inRange(el) {
				return true
			}
		}
		return false
	}
	return f.inRange(v)
}

func (f Range) inRange(v any) bool {
	check := func(bound any, accept func(c int) bool) bool {
		if bound == nil {
			return true
		}
		if rank(v, true) != rank(bound, true) {
			return false
		}
		return accept(compareValues(v, true, bound, true))
	}
	return check(f.Gt, func(c int) bool { return c > 0 }) &&
		check(f.Gte, func(c int) bool { return c >= 0 }) &&
		check(f.Lt, func(c int) bool { return c < 0 }) &&
		check(f.Lte, func(c int) bool { return c <= 0 })
}

func (f Range) String() string {
	var parts []string
	for _, b := range []struct {
		op    string
		bound any
	}{{"$gt", f.Gt}, {"$gte", f.Gte}, {"$lt", f.Lt}, {"$lte", f.Lte}} {
		if b.bound != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", b.op, b.bound))
		}
	}
	return fmt.Sprintf("{%s: {%s}}", f.Field, strings.Join(parts, ", "))
}

// Regex matches string fields against Pattern.
type Regex struct {
	Field   string
	Pattern *regexp.Regexp
}

func (f Regex) Match(doc Document) bool {
	v, ok := lookup(doc, f.Field)
	if !ok || f.Pattern == nil {
		return false
	}
	if rank(v, true) == rankArray {
		for _, el := range asArray(v) {
			if rank(el, true) == rankString && f.Pattern.MatchString(toString(el)) {
				return true
			}
		}
		return false
	}
	return rank(v, true) == rankString && f.Pattern.MatchString(toString(v))
}

func (f Regex) String() string { return fmt.Sprintf("{%s: /%s/}", f.Field, f.Pattern) }

// And matches when every clause matches. An empty And matches everything.
type And []Filter

func (f And) Match(doc Document) bool {
	for _, c := range f {
		if !c.Match(doc) {
			return false
		}
	}
	return true
}

func (f And) String() string { return "{$and: " + joinFilters(f) + "}" }

// Or matches when any clause matches. An empty Or matches nothing.
type Or []Filter

func (f Or) Match(doc Document) bool {
	for _, c := range f {
		if c.Match(doc) {
			return true
		}
	}
	return false
}

func (f Or) String() string { return "{$or: " + joinFilters(f) + "}" }

func joinFilters(fs []Filter) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ByID matches the document with the given internal identifier.
func ByID(id string) Filter { return Eq{Field: IDField, Value: id} }
