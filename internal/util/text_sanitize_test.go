package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTextStripsControlBytes(t *testing.T) {
	require.Equal(t, "abcd\n\txy", SanitizeText("ab\x00cd\x01\x02\n\txy"))
	require.Equal(t, "", SanitizeText(""))
	require.Equal(t, "kept", SanitizeText("\x00\x1f kept \x7f"))
	require.Equal(t, "line one\nline two", SanitizeText("line one\nline two\r\n"))
}
