package crate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crateport/crateport/internal/crate"
)

// --- CanonName Tests ---

func TestCanonName_FoldsCaseAndHyphens(t *testing.T) {
	assert.Equal(t, "serde_json", crate.CanonName("Serde-Json"))
	assert.Equal(t, "foo_bar_baz", crate.CanonName("foo-bar_baz"))
	assert.Equal(t, "plain", crate.CanonName("plain"))
}

func TestCanonName_EquivalentSpellings(t *testing.T) {
	// Every hyphen/underscore/case variant of a name shares one identity.
	variants := []string{"my-crate", "my_crate", "My-Crate", "MY_CRATE"}
	for _, v := range variants {
		assert.Equal(t, "my_crate", crate.CanonName(v), "variant %q", v)
	}
}

// --- ValidName Tests ---

func TestValidName(t *testing.T) {
	valid := []string{"foo", "foo-bar", "foo_bar", "a1", "Serde", "x2-y_z"}
	for _, name := range valid {
		assert.True(t, crate.ValidName(name), "expected %q to be valid", name)
	}

	invalid := []string{"", "1foo", "-foo", "_foo", "foo.bar", "foo bar", "héllo", "foo/bar"}
	for _, name := range invalid {
		assert.False(t, crate.ValidName(name), "expected %q to be invalid", name)
	}
}

func TestValidFeatureName(t *testing.T) {
	assert.True(t, crate.ValidFeatureName("default"))
	assert.True(t, crate.ValidFeatureName("serde/derive"))
	assert.False(t, crate.ValidFeatureName("a/b/c"))
	assert.False(t, crate.ValidFeatureName("/derive"))
	assert.False(t, crate.ValidFeatureName(""))
}

// --- ArtifactKey Tests ---

func TestArtifactKey(t *testing.T) {
	c := &crate.Crate{Name: "serde"}
	assert.Equal(t, "/crates/serde/serde-1.0.0.crate", c.ArtifactKey("1.0.0"))
}

func TestArtifactKey_KeepsDisplayCasing(t *testing.T) {
	c := &crate.Crate{Name: "Inflector"}
	assert.Equal(t, "/crates/Inflector/Inflector-0.1.6.crate", c.ArtifactKey("0.1.6"))
}
