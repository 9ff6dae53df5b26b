package keyword_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crateport/crateport/internal/keyword"
)

func TestValid(t *testing.T) {
	valid := []string{"serialization", "no-std", "http_client", "c++", "2d", "a"}
	for _, k := range valid {
		assert.True(t, keyword.Valid(k), "expected %q to be valid", k)
	}

	invalid := []string{
		"",
		"-leading-hyphen",
		"+plus-first",
		"has space",
		"über",
		"dot.dot",
		"this-keyword-is-way-too-long-to-pass",
	}
	for _, k := range invalid {
		assert.False(t, keyword.Valid(k), "expected %q to be invalid", k)
	}
}

func TestValid_LengthBoundary(t *testing.T) {
	twenty := "aaaaaaaaaaaaaaaaaaaa"
	assert.Len(t, twenty, 20)
	assert.True(t, keyword.Valid(twenty))
	assert.False(t, keyword.Valid(twenty+"a"))
}
