package docs

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Pair is one enumeration member.
type Pair[V cmp.Ordered] struct {
	Name  string
	Value V
}

func (p Pair[V]) String() string {
	return fmt.Sprintf("(%s, %v)", p.Name, p.Value)
}

// SortedPairs returns the members of an enumeration sorted by name, then value.
func SortedPairs[V cmp.Ordered](enum map[string]V) []Pair[V] {
	pairs := make([]Pair[V], 0, len(enum))
	for name, value := range enum {
		pairs = append(pairs, Pair[V]{Name: name, Value: value})
	}
	slices.SortFunc(pairs, func(a, b Pair[V]) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return pairs
}

// EnumMismatchError lists both enumerations as sorted pairs.
type EnumMismatchError struct {
	Expected []string
	Actual   []string
}

func (e *EnumMismatchError) Error() string {
	return fmt.Sprintf("enums differ: [%s] != [%s]",
		strings.Join(e.Expected, " "), strings.Join(e.Actual, " "))
}

// CompareEnums reports whether expected and actual hold the same name/value
// pairs. Declaration order is irrelevant.
func CompareEnums[V cmp.Ordered](expected, actual map[string]V) error {
	exp, act := SortedPairs(expected), SortedPairs(actual)
	if equalPairs(exp, act) {
		return nil
	}
	return &EnumMismatchError{Expected: pairStrings(exp), Actual: pairStrings(act)}
}

// EnumOf builds an enumeration from values, naming each by its String method.
func EnumOf[E interface {
	fmt.Stringer
	cmp.Ordered
}](values ...E) map[string]E {
	enum := make(map[string]E, len(values))
	for _, v := range values {
		enum[v.String()] = v
	}
	return enum
}

func equalPairs[V cmp.Ordered](a, b []Pair[V]) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}

func pairStrings[V cmp.Ordered](pairs []Pair[V]) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.String()
	}
	return out
}
