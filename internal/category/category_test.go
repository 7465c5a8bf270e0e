package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeAndLabel(t *testing.T) {
	code, ok := Code("Poem")
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Equal(t, "poem", Label(code))

	code, ok = Code("")
	require.True(t, ok)
	assert.Equal(t, Newsletter, code)

	_, ok = Code("cookbook")
	assert.False(t, ok)
	assert.Equal(t, "", Label(99))
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	_, err := Parse([]byte("categories:\n  - code: 1\n    label: poem\n"))
	assert.Error(t, err, "catalog without the newsletter code")

	_, err = Parse([]byte("categories:\n  - code: 0\n    label: a\n  - code: 1\n    label: A\n"))
	assert.Error(t, err, "labels are case-insensitive")

	_, err = Parse([]byte("categories:\n  - code: 0\n    label: a\n  - code: 0\n    label: b\n"))
	assert.Error(t, err)
}
