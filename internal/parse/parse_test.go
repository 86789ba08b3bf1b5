package parse

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestTruncateCountsRunes(t *testing.T) {
	t.Parallel()

	// Three bytes per rune: byte length exceeds the cap long before the
	// rune count does.
	s := strings.Repeat("日", 10)
	require.Equal(t, s, truncate(s, 10), "at the cap the string is untouched")
	require.Equal(t, s, truncate(s, 15), "below the cap the string is untouched")

	cut := truncate(s, 4)
	require.Equal(t, 4, utf8.RuneCountInString(cut))
	require.True(t, utf8.ValidString(cut), "truncation must not split a rune")

	require.Equal(t, "abc", truncate("abc", 0), "non-positive cap disables truncation")
}
