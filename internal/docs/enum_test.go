package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type performative int

const (
	propose performative = iota + 1
	accept
	decline
)

func (p performative) String() string {
	switch p {
	case propose:
		return "PROPOSE"
	case accept:
		return "ACCEPT"
	case decline:
		return "DECLINE"
	default:
		return "UNKNOWN"
	}
}

func TestCompareEnums_OrderIrrelevant(t *testing.T) {
	assert.NoError(t, CompareEnums(
		map[string]int{"A": 1, "B": 2},
		map[string]int{"B": 2, "A": 1},
	))
}

func TestCompareEnums_Mismatch(t *testing.T) {
	err := CompareEnums(
		map[string]int{"A": 1, "B": 2},
		map[string]int{"A": 1, "B": 3},
	)
	require.Error(t, err)

	var mismatch *EnumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"(A, 1)", "(B, 2)"}, mismatch.Expected)
	assert.Equal(t, []string{"(A, 1)", "(B, 3)"}, mismatch.Actual)
	assert.Equal(t, "enums differ: [(A, 1) (B, 2)] != [(A, 1) (B, 3)]", err.Error())
}

func TestCompareEnums_MissingMember(t *testing.T) {
	err := CompareEnums(
		map[string]string{"A": "a", "B": "b"},
		map[string]string{"A": "a"},
	)
	assert.Error(t, err)
}

func TestEnumOf(t *testing.T) {
	enum := EnumOf(decline, propose, accept)
	assert.Equal(t, map[string]performative{"PROPOSE": 1, "ACCEPT": 2, "DECLINE": 3}, enum)

	assert.NoError(t, CompareEnums(EnumOf(propose, accept, decline), enum))
	assert.Error(t, CompareEnums(EnumOf(propose, accept), enum))
}

func TestSortedPairs(t *testing.T) {
	pairs := SortedPairs(map[string]int{"b": 2, "c": 0, "a": 9})
	assert.Equal(t, []Pair[int]{{"a", 9}, {"b", 2}, {"c", 0}}, pairs)
}
