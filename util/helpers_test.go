package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvDefault(t *testing.T) {
	t.Setenv("THREATIQ_TEST_VAR", "set")
	assert.Equal(t, "set", GetEnvDefault("THREATIQ_TEST_VAR", "fallback"))
	assert.Equal(t, "fallback", GetEnvDefault("THREATIQ_TEST_UNSET", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("THREATIQ_TEST_INT", "42")
	assert.Equal(t, 42, GetEnvInt("THREATIQ_TEST_INT", 7))

	t.Setenv("THREATIQ_TEST_INT", "not-a-number")
	assert.Equal(t, 7, GetEnvInt("THREATIQ_TEST_INT", 7))

	assert.Equal(t, 7, GetEnvInt("THREATIQ_TEST_INT_UNSET", 7))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
	assert.Len(t, Truncate(strings.Repeat("x", 5000), 1000), 1000)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 600) // 2 bytes per rune, cut lands mid-rune
	out := Truncate(s, 999)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 998, len(out))

	assert.True(t, utf8.ValidString(Truncate("日本語テキスト", 7)))
}

func TestParseSemanticVersion(t *testing.T) {
	v := ParseSemanticVersion("1.2.3")
	require.NotNil(t, v.Major)
	require.NotNil(t, v.Minor)
	require.NotNil(t, v.Patch)
	assert.Equal(t, 1, *v.Major)
	assert.Equal(t, 2, *v.Minor)
	assert.Equal(t, 3, *v.Patch)

	v = ParseSemanticVersion("118.0")
	require.NotNil(t, v.Major)
	assert.Equal(t, 118, *v.Major)
	require.NotNil(t, v.Minor)
	assert.Equal(t, 0, *v.Minor)

	v = ParseSemanticVersion("10.2.1-beta")
	require.NotNil(t, v.Patch)
	assert.Equal(t, 1, *v.Patch)

	v = ParseSemanticVersion("")
	assert.Nil(t, v.Major)

	v = ParseSemanticVersion("unknown")
	assert.Nil(t, v.Major)
}

func TestParseSemanticVersionTrailingDot(t *testing.T) {
	v := ParseSemanticVersion("1.2.")
	require.NotNil(t, v.Major)
	assert.Equal(t, 1, *v.Major)
	require.NotNil(t, v.Minor)
	assert.Equal(t, 2, *v.Minor)
	assert.Nil(t, v.Patch)

	v = ParseSemanticVersion("1..3")
	require.NotNil(t, v.Major)
	assert.Nil(t, v.Minor)
}
