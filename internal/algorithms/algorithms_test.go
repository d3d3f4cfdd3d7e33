package algorithms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	require := require.New(t)
	require.Equal([]string{"A", "B"}, Map([]string{"a", "b"}, strings.ToUpper))
	require.Equal([]int{}, Map([]string(nil), func(s string) int { return len(s) }))
}

func TestFilter(t *testing.T) {
	require := require.New(t)
	even := func(i int) bool { return i%2 == 0 }
	require.Equal([]int{2, 4}, Filter([]int{1, 2, 3, 4}, even))
}

func TestUniq(t *testing.T) {
	require := require.New(t)
	require.Equal([]string{"b", "a", "c"}, Uniq([]string{"b", "a", "b", "c", "a"}))
	require.Empty(Uniq([]string{}))
}
