package vercomp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareSemVer(t *testing.T) {
	comparator := NewComparator()

	testCases := []struct {
		Name               string
		Ver1               string
		Ver2               string
		ExpectedComparable bool
		ExpectedResult     int
	}{
		{"Equal_Full", "1.73.1", "1.73.1", true, Equal},
		{"Equal_Loose", "1.9", "1.9.0", true, Equal},
		{"Less_Patch", "1.2.0", "1.2.1", true, Less},
		{"Less_Minor", "1.2.9", "1.10.0", true, Less},
		{"Greater_Major", "2.0.0", "1.99.99", true, Greater},
		{"Greater_Prerelease", "1.5.0", "1.5.0-alpha", true, Greater},
		{"Incomparable_Garbage", "1.2.3", "not-a-version", false, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			result := comparator.Compare(tc.Ver1, tc.Ver2)
			require.Equal(t, tc.ExpectedComparable, result.Comparable)
			if tc.ExpectedComparable {
				require.Equal(t, tc.ExpectedResult, result.Result)
			}
		})
	}
}

func TestCompareDateTime(t *testing.T) {
	comparator := NewComparator()

	result := comparator.Compare("2024-01-02 10:00:00", "2024-01-02 11:00:00")
	require.True(t, result.Comparable)
	require.Equal(t, Less, result.Result)

	result = comparator.Compare("2024-03-01T00:00:00Z", "2024-02-01T00:00:00Z")
	require.True(t, result.Comparable)
	require.Equal(t, Greater, result.Result)
}

func TestCompareMixedTypesNotComparable(t *testing.T) {
	comparator := NewComparator()

	result := comparator.Compare("1.2.3", "2024-01-02 10:00:00")
	require.False(t, result.Comparable)
}

func TestCompareOrderedTotalOrder(t *testing.T) {
	comparator := NewComparator()

	require.Equal(t, Less, comparator.CompareOrdered("1.2.0", "1.10.0"))
	require.Equal(t, Greater, comparator.CompareOrdered("2.0.0", "1.0.0"))
	require.Equal(t, Equal, comparator.CompareOrdered("1.0", "1.0.0"))

	// falls back to lexical comparison when either side is unparsable
	require.Equal(t, Less, comparator.CompareOrdered("abc", "abd"))
	require.Equal(t, Greater, comparator.CompareOrdered("zzz", "1.2.3"))
}
